package partial

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/internal/arena"
	"github.com/reoring/goshape/internal/tracker"
)

func (p *Partial) kindMismatch(s *goshape.Shape) error {
	return p.issue(goshape.CodeKindMismatch, map[string]any{"kind": s.Kind(), "shape": s.Name()})
}

func (p *Partial) checkDepth() error {
	if len(p.stack) >= p.opt.MaxDepth {
		return p.issue(goshape.CodeMaxDepth, map[string]any{"max": p.opt.MaxDepth})
	}
	return nil
}

// trackerErr maps a tracker state error to an Issue at the current path.
func (p *Partial) trackerErr(err error) error {
	switch {
	case errors.Is(err, tracker.ErrNesting):
		return p.issue(goshape.CodeNesting, nil)
	case errors.Is(err, tracker.ErrFull):
		return p.issue(goshape.CodeIndexOutOfRange, nil)
	}
	return p.issue(goshape.CodeInvalidState, map[string]any{"reason": err.Error()})
}

// discard destroys the content of a slot that is being overwritten.
func (p *Partial) discard(id arena.ID, i int) {
	if err := p.destroyAt(id, i); err != nil {
		p.log.Warn("destroy of replaced value failed", zap.String("path", p.Path()), zap.Error(err))
	}
}

// composite returns the region of the top frame after checking its kind.
func (p *Partial) composite(kind goshape.Kind) (*frame, arena.ID, error) {
	f := p.top()
	if f.shape.Kind() != kind {
		return f, arena.None, p.kindMismatch(f.shape)
	}
	if err := p.checkDepth(); err != nil {
		return f, arena.None, err
	}
	id, err := p.ensureRegion(f)
	return f, id, err
}

// fields returns the region and addressable fields of the top frame: the
// struct fields or the fields of the selected variant.
func (p *Partial) fields() (arena.ID, []*goshape.Field, error) {
	f := p.top()
	switch f.shape.Kind() {
	case goshape.KindStruct, goshape.KindUnion:
	default:
		return arena.None, nil, p.kindMismatch(f.shape)
	}
	id, err := p.ensureRegion(f)
	if err != nil {
		return arena.None, nil, err
	}
	if u, ok := p.meta(id).tr.(*tracker.Union); ok {
		if _, sel := u.Selected(); !sel {
			return arena.None, nil, p.issue(goshape.CodeNoVariant, nil)
		}
	}
	return id, p.memberFields(id), nil
}

// BeginField navigates into the named field of a struct frame, or of the
// selected variant of a union frame.
func (p *Partial) BeginField(name string) error {
	if err := p.ready(); err != nil {
		return err
	}
	id, fs, err := p.fields()
	if err != nil {
		return p.fail(err)
	}
	if i, ok := p.FieldIndex(name); ok && i < len(fs) {
		return p.beginField(id, i, fs[i])
	}
	return p.fail(p.issue(goshape.CodeUnknownField, map[string]any{"name": name, "shape": p.top().shape.Name()}))
}

// BeginNthField is BeginField by position.
func (p *Partial) BeginNthField(i int) error {
	if err := p.ready(); err != nil {
		return err
	}
	id, fs, err := p.fields()
	if err != nil {
		return p.fail(err)
	}
	if i < 0 || i >= len(fs) {
		return p.fail(p.issue(goshape.CodeIndexOutOfRange, map[string]any{"index": i}))
	}
	return p.beginField(id, i, fs[i])
}

func (p *Partial) beginField(id arena.ID, i int, fd *goshape.Field) error {
	if err := p.checkDepth(); err != nil {
		return p.fail(err)
	}
	parent := p.top()
	path := goshape.JoinPointer(parent.path, fd.Name)
	if p.trackedContext(parent) {
		return p.readopt(parent, id, i, fd, path)
	}
	p.discard(id, i)
	p.meta(id).tr.(fieldTracker).Unmark(i)
	p.push(p.fieldFrame(id, i, fd, path))
	return nil
}

func (p *Partial) fieldFrame(id arena.ID, i int, fd *goshape.Field, path string) *frame {
	var f *frame
	if px := fd.EffectiveProxy(); px != nil {
		f = p.proxyFrame(px, fd.Shape, id, i)
	} else {
		f = &frame{region: id, slot: i, shape: fd.Shape}
	}
	f.via = viaField
	f.field = fd
	f.path = path
	return f
}

// BeginSome starts building the inner value of an optional frame. A
// previous inner value is destroyed.
func (p *Partial) BeginSome() error {
	if err := p.ready(); err != nil {
		return err
	}
	f, id, err := p.composite(goshape.KindOptional)
	if err != nil {
		return p.fail(err)
	}
	o := p.meta(id).tr.(*tracker.Optional)
	if o.Building() {
		return p.fail(p.trackerErr(tracker.ErrNesting))
	}
	p.discard(id, 0)
	if err := o.BeginSome(); err != nil {
		return p.fail(p.trackerErr(err))
	}
	p.push(&frame{region: id, slot: 0, shape: f.shape.Elem(), via: viaSome, path: f.path})
	return nil
}

// SetNone sets an optional frame to None, destroying any inner value.
func (p *Partial) SetNone() error {
	if err := p.ready(); err != nil {
		return err
	}
	f := p.top()
	if f.shape.Kind() != goshape.KindOptional {
		return p.fail(p.kindMismatch(f.shape))
	}
	id, err := p.ensureRegion(f)
	if err != nil {
		return p.fail(err)
	}
	o := p.meta(id).tr.(*tracker.Optional)
	if o.Building() {
		return p.fail(p.trackerErr(tracker.ErrNesting))
	}
	p.discard(id, 0)
	if err := o.SetNone(); err != nil {
		return p.fail(p.trackerErr(err))
	}
	p.presence.Mark(f.path, goshape.PresenceWasNull)
	return nil
}

// BeginOk starts building the ok side of a result frame.
func (p *Partial) BeginOk() error { return p.beginResult(false) }

// BeginErr starts building the error side of a result frame.
func (p *Partial) BeginErr() error { return p.beginResult(true) }

func (p *Partial) beginResult(isErr bool) error {
	if err := p.ready(); err != nil {
		return err
	}
	f, id, err := p.composite(goshape.KindResult)
	if err != nil {
		return p.fail(err)
	}
	r := p.meta(id).tr.(*tracker.Result)
	if r.Building() {
		return p.fail(p.trackerErr(tracker.ErrNesting))
	}
	p.discard(id, 0)
	if err := r.Begin(isErr); err != nil {
		return p.fail(p.trackerErr(err))
	}
	nf := &frame{region: id, slot: 0, shape: f.shape.Elem(), via: viaOk, path: goshape.JoinPointer(f.path, "ok")}
	if isErr {
		nf.shape, nf.via, nf.path = f.shape.ErrShape(), viaErr, goshape.JoinPointer(f.path, "err")
	}
	p.push(nf)
	return nil
}

// BeginListItem appends an element to a list frame and navigates into it.
func (p *Partial) BeginListItem() error {
	if err := p.ready(); err != nil {
		return err
	}
	f, id, err := p.composite(goshape.KindList)
	if err != nil {
		return p.fail(err)
	}
	l := p.meta(id).tr.(*tracker.List)
	if err := l.BeginItem(); err != nil {
		if errors.Is(err, tracker.ErrFull) {
			return p.fail(p.issue(goshape.CodeIndexOutOfRange, map[string]any{"index": l.Len()}))
		}
		return p.fail(p.trackerErr(err))
	}
	idx := p.arena.Append(id, 1)
	p.push(&frame{region: id, slot: idx, shape: f.shape.Elem(), via: viaItem, path: goshape.JoinIndex(f.path, idx)})
	return nil
}

// BeginKey starts a map entry and navigates into its key.
func (p *Partial) BeginKey() error {
	if err := p.ready(); err != nil {
		return err
	}
	f, id, err := p.composite(goshape.KindMap)
	if err != nil {
		return p.fail(err)
	}
	m := p.meta(id).tr.(*tracker.Map)
	if err := m.BeginKey(); err != nil {
		return p.fail(p.trackerErr(err))
	}
	n := m.Len()
	idx := p.arena.Append(id, 2)
	p.push(&frame{region: id, slot: idx, shape: f.shape.Key(), via: viaKey, path: goshape.JoinIndex(f.path, n)})
	return nil
}

// BeginValue navigates into the value of the entry whose key was just
// completed.
func (p *Partial) BeginValue() error {
	if err := p.ready(); err != nil {
		return err
	}
	f, id, err := p.composite(goshape.KindMap)
	if err != nil {
		return p.fail(err)
	}
	m := p.meta(id).tr.(*tracker.Map)
	if err := m.BeginValue(); err != nil {
		return p.fail(p.trackerErr(err))
	}
	keySlot := p.arena.Len(id) - 2
	key := p.arena.Slot(id, keySlot).Value
	p.push(&frame{region: id, slot: keySlot + 1, shape: f.shape.Elem(), via: viaValue, path: goshape.JoinPointer(f.path, fmt.Sprint(key))})
	return nil
}

// End pops the current frame. The frame must be complete once implicit
// defaults are applied; proxy frames convert their value into the target.
// Inside a deferred region, frames reached by field navigation are stored
// instead and completed by FinishDeferred.
func (p *Partial) End() error {
	if err := p.ready(); err != nil {
		return err
	}
	if len(p.stack) <= 1 {
		return p.fail(p.issue(goshape.CodeInvalidState, map[string]any{"reason": "cannot end the root frame"}))
	}
	f := p.top()
	if p.deferred != nil {
		if len(p.stack) == p.deferred.depth {
			return p.fail(p.issue(goshape.CodeInvalidState, map[string]any{"reason": "deferred region is still active"}))
		}
		if f.tracked && f.proxy == nil && !f.shape.IsLeaf() {
			return p.suspend(f)
		}
	}
	if f.proxy == nil || !f.proxy.direct {
		if err := p.completeFrame(f); err != nil {
			return p.fail(err)
		}
	}
	if f.proxy != nil {
		if err := p.convertProxy(f); err != nil {
			return p.fail(err)
		}
	}
	if err := p.markParent(f); err != nil {
		return p.fail(err)
	}
	p.pop()
	return nil
}

// markParent records the completed frame f in its parent's tracker.
func (p *Partial) markParent(f *frame) error {
	id, slot := f.region, f.slot
	if f.proxy != nil {
		id, slot = f.proxy.outer, f.proxy.outerSlot
	}
	var err error
	switch t := p.meta(id).tr.(type) {
	case fieldTracker:
		t.Mark(slot)
	case *tracker.Optional:
		err = t.EndSome()
	case *tracker.Result:
		err = t.End()
	case *tracker.List:
		err = t.EndItem()
	case *tracker.Map:
		if f.via == viaKey {
			return p.endKey(t, id, slot)
		}
		return p.endValue(t, id, slot)
	}
	if err != nil {
		return p.trackerErr(err)
	}
	return nil
}

// freeze replaces a key built member by member with its whole value so it
// can be hashed and compared.
func (p *Partial) freeze(id arena.ID, i int) error {
	s := p.arena.Slot(id, i)
	if s.Kind != arena.Child {
		return nil
	}
	v, err := p.assembleRegion(s.Child)
	if err != nil {
		return p.rebase(err)
	}
	p.arena.Take(id, i)
	p.forgetRegion(s.Child)
	p.arena.SetValue(id, i, v)
	return nil
}

func (p *Partial) endKey(m *tracker.Map, id arena.ID, slot int) error {
	if err := p.freeze(id, slot); err != nil {
		return err
	}
	ks := p.meta(id).shape.Key()
	key := p.arena.Slot(id, slot).Value
	dup := -1
	for _, e := range m.Candidates(ks.Ops().Hash(key)) {
		if ks.Ops().Equal(p.arena.Slot(id, 2*e).Value, key) {
			dup = e
			break
		}
	}
	if err := m.EndKey(dup); err != nil {
		return p.trackerErr(err)
	}
	return nil
}

// endValue completes an entry. A duplicate key replaces the value of the
// earlier entry; the new key is destroyed.
func (p *Partial) endValue(m *tracker.Map, id arena.ID, slot int) error {
	keySlot := slot - 1
	key := p.arena.Slot(id, keySlot).Value
	dup, err := m.EndValue(p.meta(id).shape.Key().Ops().Hash(key))
	if err != nil {
		return p.trackerErr(err)
	}
	if dup < 0 {
		return nil
	}
	old := 2*dup + 1
	p.discard(id, old)
	p.arena.Put(id, old, p.arena.Take(id, slot))
	p.discard(id, keySlot)
	p.arena.Truncate(id, keySlot)
	p.log.Debug("duplicate map key replaced", zap.String("path", p.Path()), zap.Int("entry", dup))
	return nil
}
