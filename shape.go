package goshape

import (
	"reflect"
	"sync/atomic"
)

// Shape is the runtime descriptor of one data type: its kind, its members and
// the operations usable on its values without static type information.
//
// Shapes are immutable once built and may be shared by any number of builders
// concurrently. Construct them with the descriptor builders (Struct, Union,
// ListOf, ...) or derive them from Go types with ShapeOf.
type Shape struct {
	id     uint64
	name   string
	kind   Kind
	scalar ScalarKind

	fields []*Field
	byName map[string]int

	variants      []*Variant
	variantByName map[string]int

	elem   *Shape // optional inner, result ok, list element, map value
	key    *Shape // map key
	errT   *Shape // result error
	length int    // fixed list length; -1 when unbounded

	ops    VTable
	proxy  *Proxy
	goType reflect.Type
}

var shapeIDs atomic.Uint64

func newShape(name string, kind Kind) *Shape {
	return &Shape{id: shapeIDs.Add(1), name: name, kind: kind, length: -1}
}

// ID returns a process-wide identifier that is stable for the lifetime of the
// Shape.
func (s *Shape) ID() uint64 { return s.id }

// Name returns the display name.
func (s *Shape) Name() string { return s.name }

func (s *Shape) String() string { return s.name }

// Kind returns the kind of value the shape describes.
func (s *Shape) Kind() Kind { return s.kind }

// ScalarKind returns the scalar refinement (ScalarNone for non-scalars).
func (s *Shape) ScalarKind() ScalarKind { return s.scalar }

// Ops returns the operation table.
func (s *Shape) Ops() VTable { return s.ops }

// Proxy returns the shape's alternate representation, or nil.
func (s *Shape) Proxy() *Proxy { return s.proxy }

// GoType returns the Go type values of this shape materialize into, or nil
// for dynamic shapes.
func (s *Shape) GoType() reflect.Type { return s.goType }

// Elem returns the inner shape of an Optional, the ok shape of a Result, the
// element shape of a List or the value shape of a Map.
func (s *Shape) Elem() *Shape { return s.elem }

// Key returns the key shape of a Map.
func (s *Shape) Key() *Shape { return s.key }

// ErrShape returns the error shape of a Result.
func (s *Shape) ErrShape() *Shape { return s.errT }

// FixedLen returns the required element count of a fixed-size List and
// whether the list is fixed-size.
func (s *Shape) FixedLen() (int, bool) { return s.length, s.length >= 0 }

// IsLeaf reports whether values of the shape are set in a single step.
func (s *Shape) IsLeaf() bool { return s.kind == KindScalar || s.kind == KindOpaque }

// Fields returns the struct fields in declaration order. Callers must not
// modify the returned slice.
func (s *Shape) Fields() []*Field { return s.fields }

// NumFields returns the number of struct fields.
func (s *Shape) NumFields() int { return len(s.fields) }

// Field returns the i-th struct field.
func (s *Shape) Field(i int) (*Field, bool) {
	if i < 0 || i >= len(s.fields) {
		return nil, false
	}
	return s.fields[i], true
}

// FieldIndex resolves a struct field name (exact, case-sensitive) to its
// position.
func (s *Shape) FieldIndex(name string) (int, bool) {
	i, ok := s.byName[name]
	return i, ok
}

// FieldByName resolves a struct field by exact name.
func (s *Shape) FieldByName(name string) (*Field, bool) {
	if i, ok := s.byName[name]; ok {
		return s.fields[i], true
	}
	return nil, false
}

// Members returns the fields of a struct shape. Other kinds have no direct
// members and report CodeKindMismatch.
func (s *Shape) Members() ([]*Field, error) {
	if s.kind != KindStruct {
		return nil, Issues{NewIssue("/", CodeKindMismatch, map[string]any{"kind": s.kind, "shape": s.name})}
	}
	return s.fields, nil
}

// Variants returns the union variants in declaration order.
func (s *Shape) Variants() []*Variant { return s.variants }

// Variant returns the i-th union variant.
func (s *Shape) Variant(i int) (*Variant, bool) {
	if i < 0 || i >= len(s.variants) {
		return nil, false
	}
	return s.variants[i], true
}

// VariantIndex resolves a variant name to its position.
func (s *Shape) VariantIndex(name string) (int, bool) {
	i, ok := s.variantByName[name]
	return i, ok
}

// VariantByName resolves a variant by exact name.
func (s *Shape) VariantByName(name string) (*Variant, bool) {
	if i, ok := s.variantByName[name]; ok {
		return s.variants[i], true
	}
	return nil, false
}

// LookupField resolves a member name on a struct shape, or on the given
// variant of a union shape (variant is ignored for structs). The error form
// is meant for drivers that report the failure as is.
func (s *Shape) LookupField(name string, variant int) (*Field, error) {
	switch s.kind {
	case KindStruct:
		if f, ok := s.FieldByName(name); ok {
			return f, nil
		}
	case KindUnion:
		v, ok := s.Variant(variant)
		if !ok {
			return nil, Issues{NewIssue("/", CodeNoVariant, nil)}
		}
		if f, ok := v.FieldByName(name); ok {
			return f, nil
		}
	default:
		return nil, Issues{NewIssue("/", CodeKindMismatch, map[string]any{"kind": s.kind, "shape": s.name})}
	}
	return nil, Issues{NewIssue("/"+EscapePointer(name), CodeUnknownField, map[string]any{"name": name})}
}

// WithProxy returns a copy of s that carries p as its alternate
// representation.
func (s *Shape) WithProxy(p *Proxy) *Shape {
	c := *s
	c.id = shapeIDs.Add(1)
	c.proxy = p
	return &c
}

// WithOps returns a copy of s using ops as its operation table.
func (s *Shape) WithOps(ops VTable) *Shape {
	c := *s
	c.id = shapeIDs.Add(1)
	c.ops = ops
	return &c
}

func indexFields(fields []*Field) (map[string]int, error) {
	m := make(map[string]int, len(fields))
	for i, f := range fields {
		if f == nil || f.Shape == nil {
			return nil, Issues{NewIssue("/", CodeInvalidShape, map[string]any{"reason": "field without shape"})}
		}
		if _, dup := m[f.Name]; dup {
			return nil, Issues{NewIssue("/"+EscapePointer(f.Name), CodeInvalidShape, map[string]any{"reason": "duplicate field " + f.Name})}
		}
		f.Index = i
		m[f.Name] = i
	}
	return m, nil
}
