package tracker

import "errors"

var (
	// ErrNesting reports an attempt to start an inner value while one is
	// already being built.
	ErrNesting = errors.New("tracker: already building the inner value")
	// ErrState reports an operation that is not valid in the current state.
	ErrState = errors.New("tracker: invalid state transition")
	// ErrFull reports an item beyond the length of a fixed-size list.
	ErrFull = errors.New("tracker: fixed-length list is full")
)

// Tracker is the completion state of one composite value.
type Tracker interface {
	Complete() bool
}

// Struct tracks which fields hold a valid value.
type Struct struct {
	Bits Bitset
}

func NewStruct(n int) *Struct { return &Struct{Bits: NewBitset(n)} }

func (s *Struct) Mark(i int)        { s.Bits.Set(i) }
func (s *Struct) Unmark(i int)      { s.Bits.Clear(i) }
func (s *Struct) IsSet(i int) bool  { return s.Bits.Has(i) }
func (s *Struct) Complete() bool    { return s.Bits.All() }
func (s *Struct) FirstMissing() int { return s.Bits.FirstUnset() }

// Union tracks the selected variant and its fields.
type Union struct {
	selected int
	Bits     Bitset
}

func NewUnion() *Union { return &Union{selected: -1} }

// Select records variant i carrying n fields. It reports whether the
// selection changed; the caller destroys the old variant's values first.
func (u *Union) Select(i, n int) bool {
	if u.selected == i {
		return false
	}
	u.selected = i
	u.Bits.Reset(n)
	return true
}

func (u *Union) Selected() (int, bool) { return u.selected, u.selected >= 0 }

func (u *Union) Mark(i int)       { u.Bits.Set(i) }
func (u *Union) Unmark(i int)     { u.Bits.Clear(i) }
func (u *Union) IsSet(i int) bool { return u.Bits.Has(i) }

func (u *Union) Complete() bool { return u.selected >= 0 && u.Bits.All() }

// FirstMissing returns the first unset field of the selected variant, or -1.
func (u *Union) FirstMissing() int {
	if u.selected < 0 {
		return -1
	}
	return u.Bits.FirstUnset()
}

// InnerState is the state of an Optional or Result tracker.
type InnerState uint8

const (
	InnerEmpty InnerState = iota
	InnerBuilding
	InnerSet
	InnerNone // Optional only
)

// Optional tracks None / Some(inner).
type Optional struct {
	state InnerState
}

func NewOptional() *Optional { return &Optional{} }

// BeginSome starts building the inner value. A previous inner value or None
// is replaced; the caller destroys it.
func (o *Optional) BeginSome() error {
	if o.state == InnerBuilding {
		return ErrNesting
	}
	o.state = InnerBuilding
	return nil
}

func (o *Optional) EndSome() error {
	if o.state != InnerBuilding {
		return ErrState
	}
	o.state = InnerSet
	return nil
}

func (o *Optional) SetNone() error {
	if o.state == InnerBuilding {
		return ErrNesting
	}
	o.state = InnerNone
	return nil
}

// SetSome records an inner value placed without building it.
func (o *Optional) SetSome() { o.state = InnerSet }

func (o *Optional) State() InnerState { return o.state }
func (o *Optional) HasInner() bool    { return o.state == InnerSet }
func (o *Optional) IsNone() bool      { return o.state == InnerNone }
func (o *Optional) Building() bool    { return o.state == InnerBuilding }
func (o *Optional) Complete() bool    { return o.state == InnerSet || o.state == InnerNone }

// Result tracks Ok(value) / Err(value).
type Result struct {
	state InnerState
	isErr bool
}

func NewResult() *Result { return &Result{} }

// Begin starts building the ok or error side. A previous value is replaced;
// the caller destroys it.
func (r *Result) Begin(isErr bool) error {
	if r.state == InnerBuilding {
		return ErrNesting
	}
	r.state = InnerBuilding
	r.isErr = isErr
	return nil
}

func (r *Result) End() error {
	if r.state != InnerBuilding {
		return ErrState
	}
	r.state = InnerSet
	return nil
}

// SetInner records a value placed without building it.
func (r *Result) SetInner(isErr bool) {
	r.state = InnerSet
	r.isErr = isErr
}

func (r *Result) IsErr() bool    { return r.isErr }
func (r *Result) HasInner() bool { return r.state == InnerSet }
func (r *Result) Building() bool { return r.state == InnerBuilding }
func (r *Result) Complete() bool { return r.state == InnerSet }

// List tracks the number of completed items.
type List struct {
	n        int
	fixed    int
	building bool
}

// NewList returns a list tracker; fixed < 0 means unbounded.
func NewList(fixed int) *List { return &List{fixed: fixed} }

func (l *List) BeginItem() error {
	if l.building {
		return ErrNesting
	}
	if l.fixed >= 0 && l.n >= l.fixed {
		return ErrFull
	}
	l.building = true
	return nil
}

func (l *List) EndItem() error {
	if !l.building {
		return ErrState
	}
	l.building = false
	l.n++
	return nil
}

// AddItems records n items placed without building them.
func (l *List) AddItems(n int) { l.n += n }

func (l *List) Len() int       { return l.n }
func (l *List) Building() bool { return l.building }

func (l *List) Complete() bool {
	return !l.building && (l.fixed < 0 || l.n == l.fixed)
}

// MapState is the entry-building state of a Map tracker.
type MapState uint8

const (
	MapIdle    MapState = iota
	MapKey              // building a key
	MapKeyDone          // key complete, value expected
	MapValue            // building a value
)

// Map tracks completed entries and the entry being built. Keys are indexed
// by hash so the caller can detect duplicates.
type Map struct {
	n     int
	state MapState
	dup   int
	index map[uint64][]int
}

func NewMap() *Map { return &Map{dup: -1} }

func (m *Map) BeginKey() error {
	if m.state != MapIdle {
		return ErrState
	}
	m.state = MapKey
	return nil
}

// EndKey completes the key. dup is the entry whose key equals the new one,
// or -1.
func (m *Map) EndKey(dup int) error {
	if m.state != MapKey {
		return ErrState
	}
	m.state = MapKeyDone
	m.dup = dup
	return nil
}

func (m *Map) BeginValue() error {
	if m.state != MapKeyDone {
		return ErrState
	}
	m.state = MapValue
	return nil
}

// EndValue completes the entry. It returns the duplicate recorded by EndKey;
// when it is -1 the entry was added under hash.
func (m *Map) EndValue(hash uint64) (dup int, err error) {
	if m.state != MapValue {
		return -1, ErrState
	}
	m.state = MapIdle
	dup, m.dup = m.dup, -1
	if dup < 0 {
		m.Register(hash, m.n)
		m.n++
	}
	return dup, nil
}

// Register indexes entry under hash without going through the key/value
// states.
func (m *Map) Register(hash uint64, entry int) {
	if m.index == nil {
		m.index = make(map[uint64][]int)
	}
	m.index[hash] = append(m.index[hash], entry)
	if entry >= m.n {
		m.n = entry + 1
	}
}

// Candidates returns the entries whose key hashes to hash.
func (m *Map) Candidates(hash uint64) []int { return m.index[hash] }

func (m *Map) Len() int        { return m.n }
func (m *Map) State() MapState { return m.state }
func (m *Map) Complete() bool  { return m.state == MapIdle }
func (m *Map) PendingDup() int { return m.dup }
