package goshape

import "reflect"

// Field describes one named member of a struct shape or of a union variant.
type Field struct {
	Name  string
	Index int
	Shape *Shape

	// Default says where an omitted value comes from. DefaultFn is consulted
	// for DefaultFunc; DefaultTypeOp uses Shape.Ops().Default.
	Default   DefaultSource
	DefaultFn func() (any, error)

	// Proxy is a field-specific alternate representation. UseProxy substitutes
	// the field shape's own proxy instead.
	Proxy    *Proxy
	UseProxy bool

	goIndex []int
}

// HasDefault reports whether the field carries a default source.
func (f *Field) HasDefault() bool { return f.Default != DefaultNone }

// Required reports whether the field must be set explicitly: it has no
// default source and its shape is not Optional (those default to None).
func (f *Field) Required() bool {
	return f.Default == DefaultNone && f.Shape.Kind() != KindOptional
}

// EffectiveProxy returns the proxy to substitute while building the field, or
// nil when the field is built directly.
func (f *Field) EffectiveProxy() *Proxy {
	if f.Proxy != nil {
		return f.Proxy
	}
	if f.UseProxy {
		return f.Shape.Proxy()
	}
	return nil
}

// DefaultValue resolves the field's default: the field-specific function
// first, then the shape's Default operation.
func (f *Field) DefaultValue() (any, error) {
	if f.DefaultFn != nil {
		return f.DefaultFn()
	}
	if ops := f.Shape.Ops(); ops != nil && ops.HasDefault() {
		return ops.Default()
	}
	return nil, Issues{NewIssue("/"+EscapePointer(f.Name), CodeNoDefault, map[string]any{"name": f.Name})}
}

// ImplicitDefault returns the value an omitted field takes. ok is false for
// required fields.
func (f *Field) ImplicitDefault() (v any, ok bool, err error) {
	switch {
	case f.HasDefault():
		v, err = f.DefaultValue()
		return v, err == nil, err
	case f.Shape.Kind() == KindOptional:
		v, err = f.Shape.Ops().Default()
		return v, err == nil, err
	}
	return nil, false, nil
}

// Variant is one alternative of a union shape.
type Variant struct {
	Name   string
	Index  int
	Fields []*Field

	byName  map[string]int
	newtype bool // single positional payload "0" stored as the bare value
	goType  reflect.Type
}

// IsUnit reports whether the variant carries no payload.
func (v *Variant) IsUnit() bool { return len(v.Fields) == 0 }

// IsNewtype reports whether the variant wraps exactly one positional value.
func (v *Variant) IsNewtype() bool { return v.newtype }

func (v *Variant) FieldByName(name string) (*Field, bool) {
	if i, ok := v.byName[name]; ok {
		return v.Fields[i], true
	}
	return nil, false
}

func (v *Variant) FieldIndex(name string) (int, bool) {
	i, ok := v.byName[name]
	return i, ok
}

func (v *Variant) Field(i int) (*Field, bool) {
	if i < 0 || i >= len(v.Fields) {
		return nil, false
	}
	return v.Fields[i], true
}

// GoType returns the concrete Go type of a reflected variant.
func (v *Variant) GoType() reflect.Type { return v.goType }
