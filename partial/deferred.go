package partial

import (
	"go.uber.org/zap"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/internal/arena"
)

// deferredState is the active deferred region. The frame at stack depth
// `depth` is the deferred root.
type deferredState struct {
	depth int
}

// BeginDeferred starts a deferred region at the current struct or union
// frame. Until FinishDeferred, frames reached by field navigation below it
// may be ended while incomplete and revisited later. Only one region can be
// active.
func (p *Partial) BeginDeferred() error {
	if err := p.ready(); err != nil {
		return err
	}
	if p.deferred != nil {
		return p.fail(p.issue(goshape.CodeDeferredNested, nil))
	}
	f := p.top()
	switch f.shape.Kind() {
	case goshape.KindStruct, goshape.KindUnion:
	default:
		return p.fail(p.kindMismatch(f.shape))
	}
	if _, err := p.ensureRegion(f); err != nil {
		return p.fail(err)
	}
	p.deferred = &deferredState{depth: len(p.stack)}
	p.log.Debug("deferred begin", zap.String("path", f.path))
	return nil
}

// trackedContext reports whether fields navigated from parent take part in
// the deferred region. Values under a proxy frame live in its scratch region
// and are always built in one pass.
func (p *Partial) trackedContext(parent *frame) bool {
	if p.deferred == nil || parent.proxy != nil {
		return false
	}
	return parent.tracked || len(p.stack) == p.deferred.depth
}

// suspend moves the tracked frame f into the store. Its storage stays
// attached to the parent; the parent's bit stays unset.
func (p *Partial) suspend(f *frame) error {
	id, err := p.ensureRegion(f)
	if err != nil {
		return p.fail(err)
	}
	f.child = id
	if err := p.store.Put(f.dpath, f); err != nil {
		return p.fail(p.issue(goshape.CodeInvalidState, map[string]any{"reason": err.Error()}))
	}
	p.metrics.deferredDelta(1)
	p.pop()
	p.log.Debug("deferred store", zap.String("path", f.path))
	return nil
}

// attached reports whether a stored frame still refers to live storage
// reachable from its parent.
func (p *Partial) attached(f *frame) bool {
	if !p.arena.Live(f.region) || f.slot >= p.arena.Len(f.region) {
		return false
	}
	s := p.arena.Slot(f.region, f.slot)
	return s.Kind == arena.Child && s.Child == f.child && p.arena.Live(f.child)
}

// readopt pushes the frame for field i of a tracked parent, re-adopting the
// stored frame or the existing value when there is one. Leaf members are
// rebuilt from scratch.
func (p *Partial) readopt(parent *frame, id arena.ID, i int, fd *goshape.Field, path string) error {
	dpath := parent.dpath.Child(fd.Name)
	ft := p.meta(id).tr.(fieldTracker)
	if sf, ok := p.store.Take(dpath); ok {
		p.metrics.deferredDelta(-1)
		if p.attached(sf) {
			p.push(sf)
			return nil
		}
		p.log.Debug("deferred entry is stale", zap.String("path", path))
	}
	if fd.Shape.IsLeaf() || fd.EffectiveProxy() != nil || p.arena.Slot(id, i).Kind == arena.Empty {
		p.discard(id, i)
		ft.Unmark(i)
		f := p.fieldFrame(id, i, fd, path)
		f.tracked, f.dpath = f.proxy == nil, dpath
		p.push(f)
		return nil
	}
	ft.Unmark(i)
	p.push(&frame{region: id, slot: i, shape: fd.Shape, via: viaField, field: fd, path: path, tracked: true, dpath: dpath})
	return nil
}

// FinishDeferred ends the deferred region. It must be called at the depth
// BeginDeferred was called at. Stored frames are completed deepest first
// and recorded in their parents; the first incomplete one fails with a
// completion error.
func (p *Partial) FinishDeferred() error {
	if err := p.ready(); err != nil {
		return err
	}
	if p.deferred == nil {
		return p.fail(p.issue(goshape.CodeInvalidState, map[string]any{"reason": "no deferred region"}))
	}
	if len(p.stack) != p.deferred.depth {
		return p.fail(p.issue(goshape.CodeInvalidState, map[string]any{"reason": "frames above the deferred root are still open"}))
	}
	entries := p.store.Drain()
	p.metrics.deferredDelta(-len(entries))
	p.deferred = nil
	for _, e := range entries {
		f := e.Frame
		if !p.attached(f) {
			p.log.Debug("deferred entry is stale", zap.String("path", f.path))
			continue
		}
		if err := p.completeFrame(f); err != nil {
			return p.fail(err)
		}
		p.meta(f.region).tr.(fieldTracker).Mark(f.slot)
	}
	p.log.Debug("deferred finish", zap.String("path", p.Path()), zap.Int("frames", len(entries)))
	return nil
}
