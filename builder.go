package goshape

import (
	"fmt"
	"reflect"
)

// StructBuilder declares a struct shape field by field.
type StructBuilder struct {
	name   string
	fields []*Field
	ops    VTable
	proxy  *Proxy
}

type fieldStep struct {
	b *StructBuilder
	f *Field
}

// Struct starts a struct shape declaration.
func Struct(name string) *StructBuilder { return &StructBuilder{name: name} }

// Field appends a field. Fields are required unless given a default or an
// Optional shape.
func (b *StructBuilder) Field(name string, s *Shape) *fieldStep {
	f := &Field{Name: name, Shape: s}
	b.fields = append(b.fields, f)
	return &fieldStep{b: b, f: f}
}

// Ops replaces the generic operations of the struct shape. Nil entries of a
// Funcs table keep their generic behavior.
func (b *StructBuilder) Ops(ops VTable) *StructBuilder {
	b.ops = ops
	return b
}

// WithProxy attaches an alternate representation used by fields declared
// with UseProxy.
func (b *StructBuilder) WithProxy(p *Proxy) *StructBuilder {
	b.proxy = p
	return b
}

// Default gives the current field a constant-default function.
func (f *fieldStep) Default(fn func() (any, error)) *fieldStep {
	f.f.Default = DefaultFunc
	f.f.DefaultFn = fn
	return f
}

// DefaultValue is Default with a fixed value. The value is shared by every
// builder that applies it; use Default for values that must not be shared.
func (f *fieldStep) DefaultValue(v any) *fieldStep {
	return f.Default(func() (any, error) { return v, nil })
}

// DefaultFromType makes an omitted field take its shape's Default operation.
func (f *fieldStep) DefaultFromType() *fieldStep {
	f.f.Default = DefaultTypeOp
	f.f.DefaultFn = nil
	return f
}

// Proxy builds the current field through p.
func (f *fieldStep) Proxy(p *Proxy) *fieldStep {
	f.f.Proxy = p
	return f
}

// UseProxy builds the current field through its shape's own proxy.
func (f *fieldStep) UseProxy() *fieldStep {
	f.f.UseProxy = true
	return f
}

func (f *fieldStep) Field(name string, s *Shape) *fieldStep { return f.b.Field(name, s) }
func (f *fieldStep) Ops(ops VTable) *StructBuilder          { return f.b.Ops(ops) }
func (f *fieldStep) WithProxy(p *Proxy) *StructBuilder      { return f.b.WithProxy(p) }
func (f *fieldStep) Build() (*Shape, error)                 { return f.b.Build() }
func (f *fieldStep) MustBuild() *Shape                      { return f.b.MustBuild() }

// Build validates the declaration and returns the struct shape.
func (b *StructBuilder) Build() (*Shape, error) {
	s := newShape(b.name, KindStruct)
	if err := finishStruct(s, b.fields, b.ops); err != nil {
		return nil, err
	}
	s.proxy = b.proxy
	return s, nil
}

// MustBuild is Build that panics on an invalid declaration.
func (b *StructBuilder) MustBuild() *Shape {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func finishStruct(s *Shape, fields []*Field, ops VTable) error {
	byName, err := indexFields(fields)
	if err != nil {
		return err
	}
	for _, f := range fields {
		if err := checkField(f); err != nil {
			return err
		}
	}
	s.fields = fields
	s.byName = byName
	base := compositeOps(s)
	if s.goType != nil {
		t := s.goType
		base.DefaultFn = func() (any, error) { return reflect.Zero(t).Interface(), nil }
	} else if allDefaulted(fields) {
		base.DefaultFn = func() (any, error) { return defaultRecord(s) }
	}
	s.ops = mergeOps(ops, base)
	return nil
}

func checkField(f *Field) error {
	if f.Default == DefaultFunc && f.DefaultFn == nil {
		return Issues{NewIssue("/"+EscapePointer(f.Name), CodeInvalidShape, map[string]any{"reason": "default function missing for " + f.Name})}
	}
	if f.UseProxy && f.Proxy == nil && f.Shape.Proxy() == nil {
		return Issues{NewIssue("/"+EscapePointer(f.Name), CodeInvalidShape, map[string]any{"reason": "shape " + f.Shape.Name() + " has no proxy"})}
	}
	if p := f.EffectiveProxy(); p != nil && (p.Shape == nil || p.FromProxy == nil) {
		return Issues{NewIssue("/"+EscapePointer(f.Name), CodeInvalidShape, map[string]any{"reason": "incomplete proxy " + p.Name})}
	}
	return nil
}

func allDefaulted(fields []*Field) bool {
	for _, f := range fields {
		if f.Required() {
			return false
		}
	}
	return true
}

func defaultRecord(s *Shape) (any, error) {
	vals := make([]any, len(s.fields))
	for i, f := range s.fields {
		v, _, err := f.ImplicitDefault()
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return &Record{Shape: s, Values: vals}, nil
}

// UnionBuilder declares a tagged union shape variant by variant.
type UnionBuilder struct {
	name     string
	variants []*Variant
	ops      VTable
	proxy    *Proxy
}

// Union starts a tagged union declaration.
func Union(name string) *UnionBuilder { return &UnionBuilder{name: name} }

// Unit adds a variant without payload.
func (b *UnionBuilder) Unit(name string) *UnionBuilder {
	b.variants = append(b.variants, &Variant{Name: name})
	return b
}

// Newtype adds a variant wrapping one positional value named "0".
func (b *UnionBuilder) Newtype(name string, s *Shape) *UnionBuilder {
	b.variants = append(b.variants, &Variant{Name: name, Fields: []*Field{{Name: "0", Shape: s}}, newtype: true})
	return b
}

// Variant adds a variant carrying the given named fields.
func (b *UnionBuilder) Variant(name string, fields ...*Field) *UnionBuilder {
	b.variants = append(b.variants, &Variant{Name: name, Fields: fields})
	return b
}

func (b *UnionBuilder) Ops(ops VTable) *UnionBuilder {
	b.ops = ops
	return b
}

func (b *UnionBuilder) WithProxy(p *Proxy) *UnionBuilder {
	b.proxy = p
	return b
}

// Build validates the declaration and returns the union shape.
func (b *UnionBuilder) Build() (*Shape, error) {
	s := newShape(b.name, KindUnion)
	if err := finishUnion(s, b.variants, b.ops); err != nil {
		return nil, err
	}
	s.proxy = b.proxy
	return s, nil
}

func (b *UnionBuilder) MustBuild() *Shape {
	s, err := b.Build()
	if err != nil {
		panic(err)
	}
	return s
}

func finishUnion(s *Shape, variants []*Variant, ops VTable) error {
	if len(variants) == 0 {
		return Issues{NewIssue("/", CodeInvalidShape, map[string]any{"reason": "union " + s.name + " has no variants"})}
	}
	byName := make(map[string]int, len(variants))
	for i, v := range variants {
		if _, dup := byName[v.Name]; dup {
			return Issues{NewIssue("/", CodeInvalidShape, map[string]any{"reason": "duplicate variant " + v.Name})}
		}
		idx, err := indexFields(v.Fields)
		if err != nil {
			return err
		}
		for _, f := range v.Fields {
			if err := checkField(f); err != nil {
				return err
			}
		}
		v.Index = i
		v.byName = idx
		byName[v.Name] = i
	}
	s.variants = variants
	s.variantByName = byName
	s.ops = mergeOps(ops, compositeOps(s))
	return nil
}

// OptionalOf declares a shape holding either nothing or a value of inner.
// Its default is None.
func OptionalOf(inner *Shape) *Shape {
	return optionalFor(inner, nil)
}

func optionalFor(inner *Shape, t reflect.Type) *Shape {
	return initOptional(newShape("", KindOptional), inner, t)
}

func initOptional(s *Shape, inner *Shape, t reflect.Type) *Shape {
	s.name = inner.name + "?"
	s.elem = inner
	s.goType = t
	base := compositeOps(s)
	base.DefaultFn = func() (any, error) { return AssembleOptional(s, nil, false) }
	s.ops = base
	return s
}

// ResultOf declares a shape holding either an ok value or an error value.
func ResultOf(ok, errShape *Shape) *Shape {
	s := newShape(fmt.Sprintf("Result<%s, %s>", ok.name, errShape.name), KindResult)
	s.elem = ok
	s.errT = errShape
	s.ops = compositeOps(s)
	return s
}

// ListOf declares a variable-length sequence of elem. Its default is the
// empty list.
func ListOf(elem *Shape) *Shape {
	return listFor(elem, nil, -1)
}

// ArrayOf declares a sequence of exactly n elements.
func ArrayOf(elem *Shape, n int) *Shape {
	return listFor(elem, nil, n)
}

func listFor(elem *Shape, t reflect.Type, n int) *Shape {
	return initList(newShape("", KindList), elem, t, n)
}

func initList(s *Shape, elem *Shape, t reflect.Type, n int) *Shape {
	s.name = "[]" + elem.name
	if n >= 0 {
		s.name = fmt.Sprintf("[%d]%s", n, elem.name)
	}
	s.elem = elem
	s.goType = t
	s.length = n
	base := compositeOps(s)
	switch {
	case t != nil:
		base.DefaultFn = func() (any, error) { return reflect.Zero(t).Interface(), nil }
	case n <= 0:
		base.DefaultFn = func() (any, error) { return []any{}, nil }
	}
	s.ops = base
	return s
}

// MapOf declares a map from key to value. Its default is the empty map.
func MapOf(key, value *Shape) *Shape {
	return mapFor(key, value, nil)
}

func mapFor(key, value *Shape, t reflect.Type) *Shape {
	return initMap(newShape("", KindMap), key, value, t)
}

func initMap(s *Shape, key, value *Shape, t reflect.Type) *Shape {
	s.name = fmt.Sprintf("map[%s]%s", key.name, value.name)
	s.key = key
	s.elem = value
	s.goType = t
	base := compositeOps(s)
	if t != nil {
		base.DefaultFn = func() (any, error) { return reflect.MakeMap(t).Interface(), nil }
	} else {
		base.DefaultFn = func() (any, error) { return NewMap(key), nil }
	}
	s.ops = base
	return s
}
