package partial

import (
	"go.uber.org/zap"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/internal/arena"
	"github.com/reoring/goshape/internal/tracker"
)

// SelectVariant selects the named variant of the current union frame.
// Selecting a different variant destroys every value set under the old one;
// selecting the current one is a no-op.
func (p *Partial) SelectVariant(name string) error {
	if err := p.ready(); err != nil {
		return err
	}
	f := p.top()
	if f.shape.Kind() != goshape.KindUnion {
		return p.fail(p.kindMismatch(f.shape))
	}
	i, ok := f.shape.VariantIndex(name)
	if !ok {
		return p.fail(p.issue(goshape.CodeUnknownVariant, map[string]any{"name": name, "shape": f.shape.Name()}))
	}
	return p.selectVariant(f, i)
}

// SelectNthVariant is SelectVariant by position.
func (p *Partial) SelectNthVariant(i int) error {
	if err := p.ready(); err != nil {
		return err
	}
	f := p.top()
	if f.shape.Kind() != goshape.KindUnion {
		return p.fail(p.kindMismatch(f.shape))
	}
	if _, ok := f.shape.Variant(i); !ok {
		return p.fail(p.issue(goshape.CodeIndexOutOfRange, map[string]any{"index": i}))
	}
	return p.selectVariant(f, i)
}

func (p *Partial) selectVariant(f *frame, i int) error {
	id, err := p.ensureRegion(f)
	if err != nil {
		return p.fail(err)
	}
	u := p.meta(id).tr.(*tracker.Union)
	if sel, ok := u.Selected(); ok && sel == i {
		return nil
	}
	if err := p.destroySlots(id); err != nil {
		p.log.Warn("destroy of deselected variant failed", zap.String("path", f.path), zap.Error(err))
	}
	n := len(f.shape.Variants()[i].Fields)
	p.arena.Resize(id, n)
	u.Select(i, n)
	p.log.Debug("variant selected", zap.String("path", f.path), zap.String("variant", f.shape.Variants()[i].Name))
	return nil
}

// SelectedVariant returns the selected variant of the current union frame.
func (p *Partial) SelectedVariant() (*goshape.Variant, bool) {
	if len(p.stack) == 0 {
		return nil, false
	}
	f := p.top()
	if f.shape.Kind() != goshape.KindUnion {
		return nil, false
	}
	s := p.arena.Slot(f.region, f.slot)
	switch s.Kind {
	case arena.Child:
		if sel, ok := p.meta(s.Child).tr.(*tracker.Union).Selected(); ok {
			return f.shape.Variant(sel)
		}
	case arena.Value:
		if idx, _, err := goshape.DecomposeUnion(f.shape, s.Value); err == nil {
			return f.shape.Variant(idx)
		}
	}
	return nil, false
}

// IsFieldSet reports whether field i of the current struct frame (or
// selected variant) holds a completed value.
func (p *Partial) IsFieldSet(i int) bool {
	if len(p.stack) == 0 {
		return false
	}
	f := p.top()
	s := p.arena.Slot(f.region, f.slot)
	switch s.Kind {
	case arena.Value:
		switch f.shape.Kind() {
		case goshape.KindStruct:
			return i >= 0 && i < f.shape.NumFields()
		case goshape.KindUnion:
			v, ok := p.SelectedVariant()
			return ok && i >= 0 && i < len(v.Fields)
		}
	case arena.Child:
		if ft, ok := p.meta(s.Child).tr.(fieldTracker); ok {
			return ft.IsSet(i)
		}
	}
	return false
}

// FieldIndex resolves a field name of the current struct frame or of the
// selected variant of the current union frame.
func (p *Partial) FieldIndex(name string) (int, bool) {
	switch p.Shape().Kind() {
	case goshape.KindStruct:
		return p.Shape().FieldIndex(name)
	case goshape.KindUnion:
		if v, ok := p.SelectedVariant(); ok {
			return v.FieldIndex(name)
		}
	}
	return -1, false
}
