package goshape

import (
	"reflect"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// ShapeProvider lets a Go type describe its own shape instead of having one
// derived by reflection. The returned shape must materialize into the
// implementing type.
type ShapeProvider interface {
	DescribeShape() *Shape
}

// shapeCacheSize bounds the number of derived shapes kept alive.
const shapeCacheSize = 4096

var (
	// reflectMu serializes derivation so recursive types resolve to a single
	// shape per Go type.
	reflectMu  sync.Mutex
	shapeCache = mustCache(shapeCacheSize)
	unionDecls = map[reflect.Type]unionDecl{}

	providerType = reflect.TypeOf((*ShapeProvider)(nil)).Elem()
	timeType     = reflect.TypeOf(time.Time{})
	bytesType    = reflect.TypeOf([]byte(nil))
)

func mustCache(n int) *lru.Cache[reflect.Type, *Shape] {
	c, err := lru.New[reflect.Type, *Shape](n)
	if err != nil {
		panic(err)
	}
	return c
}

// ShapeOf returns the shape derived from T.
//
// Struct fields map to members using the goshape tag
// (name=..,default,default=<text>,proxy=<name>,skip), falling back to the
// json tag name and then to the field name. Pointers become Optional, slices
// and arrays List, maps Map; []byte and time.Time are scalars. Interfaces
// registered with UnionOf become unions, other interfaces and funcs become
// opaque.
func ShapeOf[T any]() (*Shape, error) { return ShapeFor(reflect.TypeFor[T]()) }

// MustShapeOf is ShapeOf that panics on error.
func MustShapeOf[T any]() *Shape {
	s, err := ShapeOf[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// ShapeFor returns the shape derived from t. Results are cached.
func ShapeFor(t reflect.Type) (*Shape, error) {
	if t == nil {
		return nil, Issues{NewIssue("/", CodeInvalidShape, map[string]any{"reason": "nil type"})}
	}
	if s, ok := shapeCache.Get(t); ok {
		return s, nil
	}
	reflectMu.Lock()
	defer reflectMu.Unlock()
	return deriveLocked(t)
}

func deriveLocked(t reflect.Type) (*Shape, error) {
	if s, ok := shapeCache.Get(t); ok {
		return s, nil
	}
	d := &deriver{made: map[reflect.Type]*Shape{}}
	s, err := d.derive(t)
	if err != nil {
		return nil, err
	}
	// only fully derived graphs are published
	for rt, rs := range d.made {
		shapeCache.Add(rt, rs)
	}
	return s, nil
}

// Case names one concrete type of a reflected union.
type Case struct {
	name string
	t    reflect.Type
}

// CaseOf declares T as the variant called name. Struct types (or pointers to
// structs) carry their fields as payload, empty structs are unit variants
// and any other type is wrapped as a single positional value.
func CaseOf[T any](name string) Case { return Case{name: name, t: reflect.TypeFor[T]()} }

type unionDecl struct {
	name  string
	cases []Case
}

// UnionOf registers the interface I as a tagged union whose variants are the
// given cases, and returns its shape. Fields of type I in reflected structs
// resolve to this shape afterwards.
func UnionOf[I any](name string, cases ...Case) (*Shape, error) {
	it := reflect.TypeFor[I]()
	if it.Kind() != reflect.Interface {
		return nil, Issues{NewIssue("/", CodeInvalidShape, map[string]any{"reason": it.String() + " is not an interface"})}
	}
	for _, c := range cases {
		if !c.t.Implements(it) {
			return nil, Issues{NewIssue("/", CodeInvalidShape, map[string]any{"reason": c.t.String() + " does not implement " + it.String()})}
		}
	}
	reflectMu.Lock()
	defer reflectMu.Unlock()
	unionDecls[it] = unionDecl{name: name, cases: cases}
	shapeCache.Remove(it)
	return deriveLocked(it)
}

type deriver struct {
	made map[reflect.Type]*Shape // in progress and finished during this derivation
}

func (d *deriver) derive(t reflect.Type) (*Shape, error) {
	if s, ok := d.made[t]; ok {
		return s, nil
	}
	if s, ok := shapeCache.Peek(t); ok {
		return s, nil
	}
	s, err := d.build(t)
	if err != nil {
		return nil, err
	}
	d.made[t] = s
	return s, nil
}

func (d *deriver) build(t reflect.Type) (*Shape, error) {
	if s, ok, err := provided(t); ok || err != nil {
		return s, err
	}
	switch {
	case t == timeType:
		return Time, nil
	case t == bytesType:
		return Bytes, nil
	}
	switch t.Kind() {
	case reflect.Bool:
		return builtinOr(t, Bool, ScalarBool), nil
	case reflect.Int:
		return builtinOr(t, Int, ScalarInt), nil
	case reflect.Int8:
		return builtinOr(t, Int8, ScalarInt), nil
	case reflect.Int16:
		return builtinOr(t, Int16, ScalarInt), nil
	case reflect.Int32:
		return builtinOr(t, Int32, ScalarInt), nil
	case reflect.Int64:
		return builtinOr(t, Int64, ScalarInt), nil
	case reflect.Uint:
		return builtinOr(t, Uint, ScalarUint), nil
	case reflect.Uint8:
		return builtinOr(t, Uint8, ScalarUint), nil
	case reflect.Uint16:
		return builtinOr(t, Uint16, ScalarUint), nil
	case reflect.Uint32:
		return builtinOr(t, Uint32, ScalarUint), nil
	case reflect.Uint64:
		return builtinOr(t, Uint64, ScalarUint), nil
	case reflect.Float32:
		return builtinOr(t, Float32, ScalarFloat), nil
	case reflect.Float64:
		return builtinOr(t, Float64, ScalarFloat), nil
	case reflect.String:
		return builtinOr(t, String, ScalarString), nil
	case reflect.Pointer:
		s := newShape("", KindOptional)
		d.made[t] = s
		inner, err := d.derive(t.Elem())
		if err != nil {
			return nil, err
		}
		return initOptional(s, inner, t), nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return scalarFor(ScalarBytes, t), nil
		}
		return d.list(t, -1)
	case reflect.Array:
		return d.list(t, t.Len())
	case reflect.Map:
		s := newShape("", KindMap)
		d.made[t] = s
		k, err := d.derive(t.Key())
		if err != nil {
			return nil, err
		}
		v, err := d.derive(t.Elem())
		if err != nil {
			return nil, err
		}
		return initMap(s, k, v, t), nil
	case reflect.Struct:
		if t.ConvertibleTo(timeType) {
			return scalarFor(ScalarTime, t), nil
		}
		s := newShape(typeName(t), KindStruct)
		s.goType = t
		d.made[t] = s
		fields, err := d.structFields(t)
		if err != nil {
			return nil, err
		}
		if err := finishStruct(s, fields, nil); err != nil {
			return nil, err
		}
		return s, nil
	case reflect.Interface:
		if decl, ok := unionDecls[t]; ok {
			return d.union(t, decl)
		}
	}
	return opaqueFor(t), nil
}

func provided(t reflect.Type) (*Shape, bool, error) {
	if t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface {
		return nil, false, nil
	}
	var sp ShapeProvider
	switch {
	case t.Implements(providerType):
		sp, _ = reflect.Zero(t).Interface().(ShapeProvider)
	case reflect.PointerTo(t).Implements(providerType):
		sp, _ = reflect.New(t).Interface().(ShapeProvider)
	default:
		return nil, false, nil
	}
	if sp == nil {
		return nil, false, nil
	}
	s := sp.DescribeShape()
	if s == nil {
		return nil, true, Issues{NewIssue("/", CodeInvalidShape, map[string]any{"reason": t.String() + " described a nil shape"})}
	}
	return s, true, nil
}

func builtinOr(t reflect.Type, builtin *Shape, kind ScalarKind) *Shape {
	if t == builtin.goType {
		return builtin
	}
	return scalarFor(kind, t)
}

func typeName(t reflect.Type) string {
	if t.Name() != "" {
		return t.Name()
	}
	return t.String()
}

func (d *deriver) list(t reflect.Type, n int) (*Shape, error) {
	s := newShape("", KindList)
	d.made[t] = s
	elem, err := d.derive(t.Elem())
	if err != nil {
		return nil, err
	}
	return initList(s, elem, t, n), nil
}

func (d *deriver) structFields(t reflect.Type) ([]*Field, error) {
	var fields []*Field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		opts := parseTag(sf)
		if opts.name == "-" {
			continue
		}
		fs, err := d.derive(sf.Type)
		if err != nil {
			return nil, Rebase(err, "/"+EscapePointer(opts.name))
		}
		f := &Field{Name: opts.name, Shape: fs, goIndex: sf.Index}
		switch {
		case opts.defaultText != nil:
			fn, err := textDefault(fs, *opts.defaultText)
			if err != nil {
				return nil, Rebase(err, "/"+EscapePointer(opts.name))
			}
			f.Default, f.DefaultFn = DefaultFunc, fn
		case opts.useDefault:
			f.Default = DefaultTypeOp
		}
		if opts.proxy != "" {
			p, ok := LookupProxy(opts.proxy)
			if !ok {
				return nil, Issues{NewIssue("/"+EscapePointer(opts.name), CodeInvalidShape, map[string]any{"reason": "unknown proxy " + opts.proxy})}
			}
			f.Proxy = p
		}
		fields = append(fields, f)
	}
	return fields, nil
}

// textDefault parses text once to reject bad tags early, then parses it
// again on every use so defaults never share mutable state.
func textDefault(s *Shape, text string) (func() (any, error), error) {
	parse := func() (any, error) {
		if s.Kind() == KindOptional && s.elem.ops != nil && s.elem.ops.CanParse() {
			v, err := s.elem.ops.Parse(text)
			if err != nil {
				return nil, err
			}
			return AssembleOptional(s, v, true)
		}
		if s.ops == nil || !s.ops.CanParse() {
			return nil, Issues{NewIssue("/", CodeInvalidShape, map[string]any{"reason": "default text for unparsable shape " + s.Name()})}
		}
		return s.ops.Parse(text)
	}
	if _, err := parse(); err != nil {
		return nil, err
	}
	return parse, nil
}

func (d *deriver) union(t reflect.Type, decl unionDecl) (*Shape, error) {
	s := newShape(decl.name, KindUnion)
	s.goType = t
	d.made[t] = s
	variants := make([]*Variant, 0, len(decl.cases))
	for _, c := range decl.cases {
		st := c.t
		if st.Kind() == reflect.Pointer && st.Elem().Kind() == reflect.Struct {
			st = st.Elem()
		}
		if st.Kind() == reflect.Struct && !st.ConvertibleTo(timeType) {
			fields, err := d.structFields(st)
			if err != nil {
				return nil, err
			}
			variants = append(variants, &Variant{Name: c.name, Fields: fields, goType: c.t})
			continue
		}
		inner, err := d.derive(c.t)
		if err != nil {
			return nil, err
		}
		variants = append(variants, &Variant{
			Name:    c.name,
			Fields:  []*Field{{Name: "0", Shape: inner}},
			newtype: true,
			goType:  c.t,
		})
	}
	if err := finishUnion(s, variants, nil); err != nil {
		return nil, err
	}
	return s, nil
}
