// Package arena provides the slot storage of values under construction.
//
// An Arena holds regions, one per composite value being built. A region is a
// sequence of slots; each slot is empty, holds a live leaf value or refers to
// a nested region. Slots are addressed by (region id, index) so frames never
// hold pointers into storage that may grow.
package arena

import "fmt"

// ID identifies a region. IDs are never reused within one Arena, so a stale
// ID is detected by Live rather than aliasing a newer region.
type ID int32

// None is the zero reference.
const None ID = -1

// Kind tags the content of a slot.
type Kind uint8

const (
	Empty Kind = iota
	Value      // a live value owned by the slot
	Child      // a nested region owned by the slot
)

// Slot is one storage cell.
type Slot struct {
	Kind  Kind
	Value any
	Child ID
}

type region[M any] struct {
	meta  M
	slots []Slot
	live  bool
}

// Arena stores regions carrying metadata of type M.
type Arena[M any] struct {
	regions []region[M]
	live    int
	values  int
}

func New[M any]() *Arena[M] { return &Arena[M]{} }

// Alloc creates a region with n empty slots.
func (a *Arena[M]) Alloc(meta M, n int) ID {
	id := ID(len(a.regions))
	a.regions = append(a.regions, region[M]{meta: meta, slots: make([]Slot, n), live: true})
	a.live++
	return id
}

func (a *Arena[M]) get(id ID) *region[M] {
	if id < 0 || int(id) >= len(a.regions) || !a.regions[id].live {
		panic(fmt.Sprintf("arena: region %d is not live", id))
	}
	return &a.regions[id]
}

// Live reports whether id refers to a region that has not been released.
func (a *Arena[M]) Live(id ID) bool {
	return id >= 0 && int(id) < len(a.regions) && a.regions[id].live
}

func (a *Arena[M]) Meta(id ID) *M { return &a.get(id).meta }

func (a *Arena[M]) Len(id ID) int { return len(a.get(id).slots) }

func (a *Arena[M]) Slot(id ID, i int) Slot { return a.get(id).slots[i] }

// SetValue stores v in an empty slot.
func (a *Arena[M]) SetValue(id ID, i int, v any) {
	r := a.get(id)
	a.mustBeEmpty(r, id, i)
	r.slots[i] = Slot{Kind: Value, Value: v}
	a.values++
}

// SetChild links child into an empty slot.
func (a *Arena[M]) SetChild(id ID, i int, child ID) {
	r := a.get(id)
	a.mustBeEmpty(r, id, i)
	r.slots[i] = Slot{Kind: Child, Child: child}
}

func (a *Arena[M]) mustBeEmpty(r *region[M], id ID, i int) {
	if r.slots[i].Kind != Empty {
		panic(fmt.Sprintf("arena: slot %d of region %d is occupied", i, id))
	}
}

// Take empties slot i and returns what it held. Ownership of a value or
// child region passes to the caller.
func (a *Arena[M]) Take(id ID, i int) Slot {
	r := a.get(id)
	s := r.slots[i]
	if s.Kind == Value {
		a.values--
	}
	r.slots[i] = Slot{}
	return s
}

// Put stores a slot previously returned by Take into an empty slot.
func (a *Arena[M]) Put(id ID, i int, s Slot) {
	switch s.Kind {
	case Value:
		a.SetValue(id, i, s.Value)
	case Child:
		a.SetChild(id, i, s.Child)
	}
}

// Append adds n empty slots and returns the index of the first.
func (a *Arena[M]) Append(id ID, n int) int {
	r := a.get(id)
	first := len(r.slots)
	for j := 0; j < n; j++ {
		r.slots = append(r.slots, Slot{})
	}
	return first
}

// Truncate drops the slots from index n on. They must be empty.
func (a *Arena[M]) Truncate(id ID, n int) {
	r := a.get(id)
	for i := n; i < len(r.slots); i++ {
		a.mustBeEmpty(r, id, i)
	}
	r.slots = r.slots[:n]
}

// Resize replaces the slots of an emptied region with n empty slots.
func (a *Arena[M]) Resize(id ID, n int) {
	r := a.get(id)
	for i := range r.slots {
		a.mustBeEmpty(r, id, i)
	}
	r.slots = make([]Slot, n)
}

// Release retires a region. Its slots must have been emptied.
func (a *Arena[M]) Release(id ID) {
	r := a.get(id)
	for i := range r.slots {
		a.mustBeEmpty(r, id, i)
	}
	r.slots = nil
	r.live = false
	var zero M
	r.meta = zero
	a.live--
}

// LiveRegions returns the number of regions not yet released.
func (a *Arena[M]) LiveRegions() int { return a.live }

// LiveValues returns the number of values currently owned by slots.
func (a *Arena[M]) LiveValues() int { return a.values }
