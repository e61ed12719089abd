package partial

import (
	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/internal/arena"
	"github.com/reoring/goshape/internal/pathstore"
	"github.com/reoring/goshape/internal/tracker"
)

// via records how a frame was reached; End uses it to update the parent.
type via uint8

const (
	viaRoot via = iota
	viaField
	viaSome
	viaOk
	viaErr
	viaItem
	viaKey
	viaValue
)

// frame is the place currently being filled: slot `slot` of region `region`
// holds (or will hold) a value of shape `shape`.
type frame struct {
	region arena.ID
	slot   int
	shape  *goshape.Shape
	via    via
	field  *goshape.Field // viaField only
	path   string

	// deferred bookkeeping
	tracked bool
	dpath   pathstore.Path
	child   arena.ID // region owned by the slot when the frame was stored

	proxy *proxyState
}

// regionMeta describes a region. Holder regions have a single slot that
// holds a whole value of shape; other regions hold the members of a
// composite value of shape and carry its tracker.
type regionMeta struct {
	shape  *goshape.Shape
	holder bool
	tr     tracker.Tracker
}

func (p *Partial) meta(id arena.ID) *regionMeta { return p.arena.Meta(id) }

// newTracker returns the empty tracker of a composite shape.
func newTracker(s *goshape.Shape) tracker.Tracker {
	switch s.Kind() {
	case goshape.KindStruct:
		return tracker.NewStruct(s.NumFields())
	case goshape.KindUnion:
		return tracker.NewUnion()
	case goshape.KindOptional:
		return tracker.NewOptional()
	case goshape.KindResult:
		return tracker.NewResult()
	case goshape.KindList:
		n, fixed := s.FixedLen()
		if !fixed {
			n = -1
		}
		return tracker.NewList(n)
	case goshape.KindMap:
		return tracker.NewMap()
	}
	return nil
}

// initialSlots is the slot count of a fresh region of s.
func initialSlots(s *goshape.Shape) int {
	switch s.Kind() {
	case goshape.KindStruct:
		return s.NumFields()
	case goshape.KindOptional, goshape.KindResult:
		return 1
	}
	return 0
}

// slotShape returns the shape of the value held by slot i of region id.
func (p *Partial) slotShape(id arena.ID, i int) *goshape.Shape {
	m := p.meta(id)
	if m.holder {
		return m.shape
	}
	s := m.shape
	switch s.Kind() {
	case goshape.KindStruct:
		return s.Fields()[i].Shape
	case goshape.KindUnion:
		sel, _ := m.tr.(*tracker.Union).Selected()
		return s.Variants()[sel].Fields[i].Shape
	case goshape.KindOptional, goshape.KindList:
		return s.Elem()
	case goshape.KindResult:
		if m.tr.(*tracker.Result).IsErr() {
			return s.ErrShape()
		}
		return s.Elem()
	case goshape.KindMap:
		if i%2 == 0 {
			return s.Key()
		}
		return s.Elem()
	}
	return nil
}

// memberFields returns the fields addressable in region id: the struct
// fields or the fields of the selected variant.
func (p *Partial) memberFields(id arena.ID) []*goshape.Field {
	m := p.meta(id)
	switch m.shape.Kind() {
	case goshape.KindStruct:
		return m.shape.Fields()
	case goshape.KindUnion:
		if sel, ok := m.tr.(*tracker.Union).Selected(); ok {
			return m.shape.Variants()[sel].Fields
		}
	}
	return nil
}

// fieldTracker is implemented by the Struct and Union trackers.
type fieldTracker interface {
	Mark(i int)
	Unmark(i int)
	IsSet(i int) bool
}

// ensureRegion returns the region holding the members of f's composite
// value, creating it from an empty slot or exploding a whole value stored
// by Set.
func (p *Partial) ensureRegion(f *frame) (arena.ID, error) {
	slot := p.arena.Slot(f.region, f.slot)
	switch slot.Kind {
	case arena.Child:
		return slot.Child, nil
	case arena.Value:
		id, err := p.explode(f.shape, slot.Value)
		if err != nil {
			return arena.None, p.rebase(err)
		}
		p.arena.Take(f.region, f.slot)
		p.arena.SetChild(f.region, f.slot, id)
		return id, nil
	}
	id := p.arena.Alloc(regionMeta{shape: f.shape, tr: newTracker(f.shape)}, initialSlots(f.shape))
	p.arena.SetChild(f.region, f.slot, id)
	return id, nil
}

// explode moves the members of the whole value v into a new region whose
// tracker is complete. Ownership of the members passes to the slots.
func (p *Partial) explode(s *goshape.Shape, v any) (arena.ID, error) {
	tr := newTracker(s)
	var vals []any
	switch s.Kind() {
	case goshape.KindStruct:
		fs, err := goshape.DecomposeStruct(s, v)
		if err != nil {
			return arena.None, err
		}
		vals = fs
		for i := range vals {
			tr.(*tracker.Struct).Mark(i)
		}
	case goshape.KindUnion:
		idx, fs, err := goshape.DecomposeUnion(s, v)
		if err != nil {
			return arena.None, err
		}
		vals = fs
		u := tr.(*tracker.Union)
		u.Select(idx, len(fs))
		for i := range vals {
			u.Mark(i)
		}
	case goshape.KindOptional:
		inner, ok, err := goshape.DecomposeOptional(s, v)
		if err != nil {
			return arena.None, err
		}
		o := tr.(*tracker.Optional)
		if ok {
			vals = []any{inner}
			o.SetSome()
		} else {
			_ = o.SetNone()
		}
	case goshape.KindResult:
		inner, isErr, err := goshape.DecomposeResult(s, v)
		if err != nil {
			return arena.None, err
		}
		vals = []any{inner}
		tr.(*tracker.Result).SetInner(isErr)
	case goshape.KindList:
		elems, err := goshape.DecomposeList(s, v)
		if err != nil {
			return arena.None, err
		}
		vals = elems
		tr.(*tracker.List).AddItems(len(elems))
	case goshape.KindMap:
		keys, mvals, err := goshape.DecomposeMap(s, v)
		if err != nil {
			return arena.None, err
		}
		mt := tr.(*tracker.Map)
		for i := range keys {
			vals = append(vals, keys[i], mvals[i])
			mt.Register(s.Key().Ops().Hash(keys[i]), i)
		}
	default:
		return arena.None, goshape.Issues{goshape.NewIssue("/", goshape.CodeKindMismatch, map[string]any{"shape": s.Name(), "kind": s.Kind().String()})}
	}
	n := len(vals)
	if s.Kind() == goshape.KindOptional {
		n = 1
	}
	id := p.arena.Alloc(regionMeta{shape: s, tr: tr}, n)
	for i, mv := range vals {
		p.arena.SetValue(id, i, mv)
	}
	return id, nil
}
