package partial

import (
	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/internal/arena"
	"github.com/reoring/goshape/internal/tracker"
)

// completeFrame applies implicit defaults below f and checks that f's value
// is complete. The error names the first missing member, depth first.
func (p *Partial) completeFrame(f *frame) error {
	slot := p.arena.Slot(f.region, f.slot)
	if f.shape.IsLeaf() || slot.Kind == arena.Value {
		if slot.Kind == arena.Empty {
			return goshape.Issues{goshape.NewIssue(f.path, goshape.CodeRequired, map[string]any{"name": lastToken(f.path)})}
		}
		return nil
	}
	id, err := p.ensureRegion(f)
	if err != nil {
		return err
	}
	if err := p.fillDefaults(id, f.path); err != nil {
		return err
	}
	if path, code, params := p.missing(id, f.path); code != "" {
		return goshape.Issues{goshape.NewIssue(path, code, params)}
	}
	return nil
}

// fillDefaults stores the implicit default of every unset, empty field of
// region id.
func (p *Partial) fillDefaults(id arena.ID, base string) error {
	ft, ok := p.meta(id).tr.(fieldTracker)
	if !ok {
		return nil
	}
	for i, fd := range p.memberFields(id) {
		if ft.IsSet(i) || p.arena.Slot(id, i).Kind != arena.Empty {
			continue
		}
		v, ok, err := fd.ImplicitDefault()
		if err != nil {
			return goshape.Rebase(err, base)
		}
		if !ok {
			continue
		}
		if v, err = goshape.Coerce(fd.Shape, v); err != nil {
			return goshape.Rebase(err, goshape.JoinPointer(base, fd.Name))
		}
		p.arena.SetValue(id, i, v)
		ft.Mark(i)
		p.presence.Mark(goshape.JoinPointer(base, fd.Name), goshape.PresenceDefaultApplied)
	}
	return nil
}

// missing finds the first incomplete member of region id. code is empty
// when the region is complete.
func (p *Partial) missing(id arena.ID, base string) (path, code string, params map[string]any) {
	m := p.meta(id)
	switch t := m.tr.(type) {
	case *tracker.Union:
		if _, ok := t.Selected(); !ok {
			return base, goshape.CodeNoVariant, nil
		}
		return p.missingField(id, base, t)
	case *tracker.Struct:
		return p.missingField(id, base, t)
	case *tracker.List:
		if !t.Complete() {
			n, _ := m.shape.FixedLen()
			return base, goshape.CodeIncomplete, map[string]any{"want": n, "got": t.Len()}
		}
	case tracker.Tracker:
		if !t.Complete() {
			return base, goshape.CodeIncomplete, nil
		}
	}
	return "", "", nil
}

func (p *Partial) missingField(id arena.ID, base string, ft fieldTracker) (string, string, map[string]any) {
	for i, fd := range p.memberFields(id) {
		if ft.IsSet(i) {
			continue
		}
		path := goshape.JoinPointer(base, fd.Name)
		slot := p.arena.Slot(id, i)
		switch slot.Kind {
		case arena.Empty:
			return path, goshape.CodeRequired, map[string]any{"name": fd.Name}
		case arena.Child:
			if sp, code, params := p.missing(slot.Child, path); code != "" {
				return sp, code, params
			}
		}
		return path, goshape.CodeIncomplete, nil
	}
	return "", "", nil
}

func lastToken(path string) string {
	toks := goshape.SplitPointer(path)
	if len(toks) == 0 {
		return "/"
	}
	return toks[len(toks)-1]
}
