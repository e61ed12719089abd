package goshape

import (
	"encoding/binary"
	"fmt"
	"reflect"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/multierr"
)

// Record is the materialized form of a struct shape without a Go type.
type Record struct {
	Shape  *Shape
	Values []any // one per field, in declaration order
}

// Get returns the value of the named field.
func (r *Record) Get(name string) (any, bool) {
	i, ok := r.Shape.FieldIndex(name)
	if !ok {
		return nil, false
	}
	return r.Values[i], true
}

func (r *Record) String() string { return fmt.Sprintf("%s%v", r.Shape.Name(), r.Values) }

// Tagged is the materialized form of a union shape without a Go type.
type Tagged struct {
	Shape   *Shape
	Variant int
	Values  []any // one per payload field of the selected variant
}

// VariantName returns the name of the selected variant.
func (t *Tagged) VariantName() string { return t.Shape.variants[t.Variant].Name }

// Get returns the value of the named payload field.
func (t *Tagged) Get(name string) (any, bool) {
	i, ok := t.Shape.variants[t.Variant].FieldIndex(name)
	if !ok {
		return nil, false
	}
	return t.Values[i], true
}

func (t *Tagged) String() string { return fmt.Sprintf("%s::%s%v", t.Shape.Name(), t.VariantName(), t.Values) }

// Option is the materialized form of an optional shape without a Go type.
type Option struct {
	Valid bool
	Value any
}

// Some wraps v as a present Option.
func Some(v any) Option { return Option{Valid: true, Value: v} }

// ResultValue is the materialized form of a result shape.
type ResultValue struct {
	IsErr bool
	Value any
}

// MapEntry is one key/value pair of a Map.
type MapEntry struct {
	Key   any
	Value any
}

// Map is the materialized form of a map shape without a Go type. Entries keep
// insertion order; keys are compared with the key shape's Hash and Equal.
type Map struct {
	Entries []MapEntry

	key   *Shape
	index map[uint64][]int
}

// NewMap returns an empty Map whose keys are compared with key's operations.
func NewMap(key *Shape) *Map { return &Map{key: key} }

func (m *Map) hash(k any) uint64 {
	if m.key != nil && m.key.ops != nil {
		return m.key.ops.Hash(k)
	}
	return hashValue(k)
}

func (m *Map) equal(a, b any) bool {
	if m.key != nil && m.key.ops != nil {
		return m.key.ops.Equal(a, b)
	}
	return valueEqual(a, b)
}

func (m *Map) find(k any) int {
	if m.index == nil {
		m.index = make(map[uint64][]int, len(m.Entries))
		for i, e := range m.Entries {
			h := m.hash(e.Key)
			m.index[h] = append(m.index[h], i)
		}
	}
	for _, i := range m.index[m.hash(k)] {
		if m.equal(m.Entries[i].Key, k) {
			return i
		}
	}
	return -1
}

// Put inserts or replaces the value stored under k and returns the replaced
// value.
func (m *Map) Put(k, v any) (old any, replaced bool) {
	if i := m.find(k); i >= 0 {
		old = m.Entries[i].Value
		m.Entries[i].Value = v
		return old, true
	}
	m.Entries = append(m.Entries, MapEntry{Key: k, Value: v})
	h := m.hash(k)
	m.index[h] = append(m.index[h], len(m.Entries)-1)
	return nil, false
}

// Get returns the value stored under k.
func (m *Map) Get(k any) (any, bool) {
	if i := m.find(k); i >= 0 {
		return m.Entries[i].Value, true
	}
	return nil, false
}

func (m *Map) Len() int { return len(m.Entries) }

// AssembleStruct builds a struct value from its field values.
func AssembleStruct(s *Shape, vals []any) (any, error) {
	if len(vals) != len(s.fields) {
		return nil, invalidType(s, vals)
	}
	if s.goType == nil {
		return &Record{Shape: s, Values: vals}, nil
	}
	out := reflect.New(s.goType).Elem()
	if err := fillStruct(s, s.fields, out, vals); err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

func fillStruct(s *Shape, fields []*Field, out reflect.Value, vals []any) error {
	for i, f := range fields {
		if err := setValue(out.FieldByIndex(f.goIndex), vals[i]); err != nil {
			return Issues{NewIssue("/"+EscapePointer(f.Name), CodeInvalidType, map[string]any{"expected": f.Shape.Name(), "got": fmt.Sprintf("%T", vals[i]), "shape": s.name})}
		}
	}
	return nil
}

func setValue(dst reflect.Value, v any) error {
	if v == nil {
		dst.Set(reflect.Zero(dst.Type()))
		return nil
	}
	rv := reflect.ValueOf(v)
	switch {
	case rv.Type().AssignableTo(dst.Type()):
		dst.Set(rv)
	case rv.Type().ConvertibleTo(dst.Type()) && rv.Kind() == dst.Kind():
		dst.Set(rv.Convert(dst.Type()))
	default:
		return fmt.Errorf("cannot assign %s to %s", rv.Type(), dst.Type())
	}
	return nil
}

// AssembleUnion builds a union value for the given variant.
func AssembleUnion(s *Shape, variant int, vals []any) (any, error) {
	v, ok := s.Variant(variant)
	if !ok || len(vals) != len(v.Fields) {
		return nil, Issues{NewIssue("/", CodeNoVariant, nil)}
	}
	if s.goType == nil || v.goType == nil {
		return &Tagged{Shape: s, Variant: variant, Values: vals}, nil
	}
	if v.newtype {
		out := reflect.New(v.goType).Elem()
		if err := setValue(out, vals[0]); err != nil {
			return nil, invalidType(v.Fields[0].Shape, vals[0])
		}
		return out.Interface(), nil
	}
	if v.goType.Kind() == reflect.Pointer {
		out := reflect.New(v.goType.Elem())
		if err := fillStruct(s, v.Fields, out.Elem(), vals); err != nil {
			return nil, err
		}
		return out.Interface(), nil
	}
	out := reflect.New(v.goType).Elem()
	if err := fillStruct(s, v.Fields, out, vals); err != nil {
		return nil, err
	}
	return out.Interface(), nil
}

// AssembleOptional builds an optional value: Some(inner) when valid, None
// otherwise.
func AssembleOptional(s *Shape, inner any, valid bool) (any, error) {
	if s.goType == nil {
		if !valid {
			return Option{}, nil
		}
		return Some(inner), nil
	}
	if !valid {
		return reflect.Zero(s.goType).Interface(), nil
	}
	p := reflect.New(s.goType.Elem())
	if err := setValue(p.Elem(), inner); err != nil {
		return nil, invalidType(s.elem, inner)
	}
	return p.Interface(), nil
}

// AssembleResult builds a result value.
func AssembleResult(_ *Shape, isErr bool, v any) (any, error) {
	return ResultValue{IsErr: isErr, Value: v}, nil
}

// AssembleList builds a list value from its elements.
func AssembleList(s *Shape, elems []any) (any, error) {
	if n, fixed := s.FixedLen(); fixed && n != len(elems) {
		return nil, Issues{NewIssue("/", CodeIncomplete, map[string]any{"want": n, "got": len(elems)})}
	}
	if s.goType == nil {
		return elems, nil
	}
	var out reflect.Value
	if s.goType.Kind() == reflect.Array {
		out = reflect.New(s.goType).Elem()
	} else {
		out = reflect.MakeSlice(s.goType, len(elems), len(elems))
	}
	for i, e := range elems {
		if err := setValue(out.Index(i), e); err != nil {
			return nil, invalidType(s.elem, e)
		}
	}
	return out.Interface(), nil
}

// AssembleMap builds a map value. Later duplicates of a key replace earlier
// ones.
func AssembleMap(s *Shape, keys, vals []any) (any, error) {
	if s.goType == nil {
		m := NewMap(s.key)
		for i := range keys {
			m.Put(keys[i], vals[i])
		}
		return m, nil
	}
	out := reflect.MakeMapWithSize(s.goType, len(keys))
	kt, vt := s.goType.Key(), s.goType.Elem()
	for i := range keys {
		k := reflect.New(kt).Elem()
		if err := setValue(k, keys[i]); err != nil {
			return nil, invalidType(s.key, keys[i])
		}
		v := reflect.New(vt).Elem()
		if err := setValue(v, vals[i]); err != nil {
			return nil, invalidType(s.elem, vals[i])
		}
		out.SetMapIndex(k, v)
	}
	return out.Interface(), nil
}

// DecomposeStruct returns the field values of a struct value.
func DecomposeStruct(s *Shape, v any) ([]any, error) {
	if r, ok := v.(*Record); ok {
		if len(r.Values) != len(s.fields) {
			return nil, invalidType(s, v)
		}
		return append([]any(nil), r.Values...), nil
	}
	rv := reflect.ValueOf(v)
	if s.goType == nil || !rv.IsValid() || rv.Type() != s.goType {
		return nil, invalidType(s, v)
	}
	return readFields(s.fields, rv), nil
}

func readFields(fields []*Field, rv reflect.Value) []any {
	out := make([]any, len(fields))
	for i, f := range fields {
		out[i] = rv.FieldByIndex(f.goIndex).Interface()
	}
	return out
}

// DecomposeUnion returns the selected variant and its payload values.
func DecomposeUnion(s *Shape, v any) (int, []any, error) {
	if t, ok := v.(*Tagged); ok {
		vr, ok := s.Variant(t.Variant)
		if !ok || len(vr.Fields) != len(t.Values) {
			return 0, nil, invalidType(s, v)
		}
		return t.Variant, append([]any(nil), t.Values...), nil
	}
	if v == nil {
		return 0, nil, invalidType(s, v)
	}
	rt := reflect.TypeOf(v)
	for _, vr := range s.variants {
		if vr.goType != rt {
			continue
		}
		rv := reflect.ValueOf(v)
		switch {
		case vr.newtype:
			return vr.Index, []any{v}, nil
		case rt.Kind() == reflect.Pointer:
			if rv.IsNil() {
				return 0, nil, invalidType(s, v)
			}
			return vr.Index, readFields(vr.Fields, rv.Elem()), nil
		default:
			return vr.Index, readFields(vr.Fields, rv), nil
		}
	}
	return 0, nil, invalidType(s, v)
}

// DecomposeOptional reports whether v is present and returns its inner value.
func DecomposeOptional(s *Shape, v any) (any, bool, error) {
	switch o := v.(type) {
	case nil:
		return nil, false, nil
	case Option:
		return o.Value, o.Valid, nil
	}
	rv := reflect.ValueOf(v)
	if s.goType == nil || rv.Type() != s.goType || rv.Kind() != reflect.Pointer {
		return nil, false, invalidType(s, v)
	}
	if rv.IsNil() {
		return nil, false, nil
	}
	return rv.Elem().Interface(), true, nil
}

// DecomposeResult reports which side v holds and returns its value.
func DecomposeResult(s *Shape, v any) (any, bool, error) {
	r, ok := v.(ResultValue)
	if !ok {
		return nil, false, invalidType(s, v)
	}
	return r.Value, r.IsErr, nil
}

// DecomposeList returns the elements of a list value.
func DecomposeList(s *Shape, v any) ([]any, error) {
	if l, ok := v.([]any); ok && s.goType == nil {
		return append([]any(nil), l...), nil
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, nil
	}
	if s.goType == nil || rv.Type() != s.goType {
		return nil, invalidType(s, v)
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, nil
}

// DecomposeMap returns the keys and values of a map value.
func DecomposeMap(s *Shape, v any) ([]any, []any, error) {
	if m, ok := v.(*Map); ok {
		keys := make([]any, len(m.Entries))
		vals := make([]any, len(m.Entries))
		for i, e := range m.Entries {
			keys[i], vals[i] = e.Key, e.Value
		}
		return keys, vals, nil
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, nil, nil
	}
	if s.goType == nil || rv.Type() != s.goType {
		return nil, nil, invalidType(s, v)
	}
	keys := make([]any, 0, rv.Len())
	vals := make([]any, 0, rv.Len())
	it := rv.MapRange()
	for it.Next() {
		keys = append(keys, it.Key().Interface())
		vals = append(vals, it.Value().Interface())
	}
	return keys, vals, nil
}

func coerceWhole(s *Shape, v any) (any, error) {
	if s.goType != nil {
		if v == nil {
			if nilable(s.goType) {
				return reflect.Zero(s.goType).Interface(), nil
			}
			return nil, invalidType(s, v)
		}
		if s.kind == KindUnion {
			if _, _, err := DecomposeUnion(s, v); err != nil {
				return nil, err
			}
			return v, nil
		}
		if reflect.TypeOf(v).AssignableTo(s.goType) {
			return v, nil
		}
		return nil, invalidType(s, v)
	}
	var err error
	switch s.kind {
	case KindStruct:
		_, err = DecomposeStruct(s, v)
	case KindUnion:
		_, _, err = DecomposeUnion(s, v)
	case KindOptional:
		if v == nil {
			return Option{}, nil
		}
		_, _, err = DecomposeOptional(s, v)
	case KindResult:
		_, _, err = DecomposeResult(s, v)
	case KindList:
		var elems []any
		if elems, err = DecomposeList(s, v); err == nil {
			if n, fixed := s.FixedLen(); fixed && n != len(elems) {
				err = invalidType(s, v)
			}
		}
	case KindMap:
		if _, ok := v.(*Map); !ok {
			err = invalidType(s, v)
		}
	default:
		err = invalidType(s, v)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

// member is one nested value of a composite value together with its shape.
type member struct {
	shape *Shape
	value any
}

// members splits a composite value into its nested values. tag identifies
// the structural alternative (variant index, presence, error side).
func members(s *Shape, v any) (tag int, ms []member, err error) {
	switch s.kind {
	case KindStruct:
		vals, err := DecomposeStruct(s, v)
		if err != nil {
			return 0, nil, err
		}
		for i, f := range s.fields {
			ms = append(ms, member{f.Shape, vals[i]})
		}
		return 0, ms, nil
	case KindUnion:
		idx, vals, err := DecomposeUnion(s, v)
		if err != nil {
			return 0, nil, err
		}
		for i, f := range s.variants[idx].Fields {
			ms = append(ms, member{f.Shape, vals[i]})
		}
		return idx, ms, nil
	case KindOptional:
		inner, ok, err := DecomposeOptional(s, v)
		if err != nil || !ok {
			return 0, nil, err
		}
		return 1, []member{{s.elem, inner}}, nil
	case KindResult:
		inner, isErr, err := DecomposeResult(s, v)
		if err != nil {
			return 0, nil, err
		}
		if isErr {
			return 1, []member{{s.errT, inner}}, nil
		}
		return 0, []member{{s.elem, inner}}, nil
	case KindList:
		elems, err := DecomposeList(s, v)
		if err != nil {
			return 0, nil, err
		}
		for _, e := range elems {
			ms = append(ms, member{s.elem, e})
		}
		return len(elems), ms, nil
	case KindMap:
		keys, vals, err := DecomposeMap(s, v)
		if err != nil {
			return 0, nil, err
		}
		for i := range keys {
			ms = append(ms, member{s.key, keys[i]}, member{s.elem, vals[i]})
		}
		return len(keys), ms, nil
	}
	return 0, nil, nil
}

// compositeOps returns the generic operations of a composite shape: member
// wise destroy, equality and hashing.
func compositeOps(s *Shape) Funcs {
	return Funcs{
		DestroyFn: func(v any) error { return destroyComposite(s, v) },
		EqualFn:   func(a, b any) bool { return equalComposite(s, a, b) },
		HashFn:    func(v any) uint64 { return hashComposite(s, v) },
	}
}

func destroyComposite(s *Shape, v any) error {
	if v == nil {
		return nil
	}
	if err := closeValue(v); err != nil || isCloser(v) {
		return err
	}
	_, ms, err := members(s, v)
	if err != nil {
		return err
	}
	for _, m := range ms {
		err = multierr.Append(err, m.shape.ops.Destroy(m.value))
	}
	return err
}

func isCloser(v any) bool {
	_, ok := v.(interface{ Close() error })
	return ok
}

func equalComposite(s *Shape, a, b any) bool {
	ta, ma, err := members(s, a)
	if err != nil {
		return false
	}
	tb, mb, err := members(s, b)
	if err != nil || ta != tb || len(ma) != len(mb) {
		return false
	}
	if s.kind == KindMap {
		idx := NewMap(s.key)
		for i := 0; i < len(mb); i += 2 {
			idx.Put(mb[i].value, mb[i+1].value)
		}
		for i := 0; i < len(ma); i += 2 {
			bv, ok := idx.Get(ma[i].value)
			if !ok || !s.elem.ops.Equal(ma[i+1].value, bv) {
				return false
			}
		}
		return true
	}
	for i := range ma {
		if !ma[i].shape.ops.Equal(ma[i].value, mb[i].value) {
			return false
		}
	}
	return true
}

func hashComposite(s *Shape, v any) uint64 {
	tag, ms, err := members(s, v)
	if err != nil {
		return 0
	}
	var buf [8]byte
	d := xxhash.New()
	binary.LittleEndian.PutUint64(buf[:], uint64(tag))
	_, _ = d.Write(buf[:])
	if s.kind == KindMap {
		// entry order is not significant
		var acc uint64
		for i := 0; i < len(ms); i += 2 {
			acc += ms[i].shape.ops.Hash(ms[i].value)*31 + ms[i+1].shape.ops.Hash(ms[i+1].value)
		}
		binary.LittleEndian.PutUint64(buf[:], acc)
		_, _ = d.Write(buf[:])
		return d.Sum64()
	}
	for _, m := range ms {
		binary.LittleEndian.PutUint64(buf[:], m.shape.ops.Hash(m.value))
		_, _ = d.Write(buf[:])
	}
	return d.Sum64()
}
