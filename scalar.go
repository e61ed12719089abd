package goshape

import (
	"encoding/base64"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"time"
)

// Built-in scalar shapes.
var (
	Bool    = scalarFor(ScalarBool, reflect.TypeOf(false))
	Int     = scalarFor(ScalarInt, reflect.TypeOf(int(0)))
	Int8    = scalarFor(ScalarInt, reflect.TypeOf(int8(0)))
	Int16   = scalarFor(ScalarInt, reflect.TypeOf(int16(0)))
	Int32   = scalarFor(ScalarInt, reflect.TypeOf(int32(0)))
	Int64   = scalarFor(ScalarInt, reflect.TypeOf(int64(0)))
	Uint    = scalarFor(ScalarUint, reflect.TypeOf(uint(0)))
	Uint8   = scalarFor(ScalarUint, reflect.TypeOf(uint8(0)))
	Uint16  = scalarFor(ScalarUint, reflect.TypeOf(uint16(0)))
	Uint32  = scalarFor(ScalarUint, reflect.TypeOf(uint32(0)))
	Uint64  = scalarFor(ScalarUint, reflect.TypeOf(uint64(0)))
	Float32 = scalarFor(ScalarFloat, reflect.TypeOf(float32(0)))
	Float64 = scalarFor(ScalarFloat, reflect.TypeOf(float64(0)))
	String  = scalarFor(ScalarString, reflect.TypeOf(""))
	Bytes   = scalarFor(ScalarBytes, reflect.TypeOf([]byte(nil)))
	Time    = scalarFor(ScalarTime, reflect.TypeOf(time.Time{}))
)

var canonicalScalar = map[ScalarKind]reflect.Type{
	ScalarBool:   reflect.TypeOf(false),
	ScalarInt:    reflect.TypeOf(int64(0)),
	ScalarUint:   reflect.TypeOf(uint64(0)),
	ScalarFloat:  reflect.TypeOf(float64(0)),
	ScalarString: reflect.TypeOf(""),
	ScalarBytes:  reflect.TypeOf([]byte(nil)),
	ScalarTime:   reflect.TypeOf(time.Time{}),
}

// ScalarOf declares a named scalar shape of the given kind whose values are
// the kind's canonical Go type (int64, uint64, float64, string, []byte,
// bool, time.Time). Nil entries of a Funcs ops table are filled with the
// kind's generic operations.
func ScalarOf(name string, kind ScalarKind, ops VTable) *Shape {
	t := canonicalScalar[kind]
	if t == nil {
		panic(fmt.Sprintf("goshape: invalid scalar kind %d", kind))
	}
	s := newShape(name, KindScalar)
	s.scalar = kind
	s.goType = t
	s.ops = mergeOps(ops, scalarOps(kind, t))
	return s
}

func scalarFor(kind ScalarKind, t reflect.Type) *Shape {
	name := t.String()
	if t == reflect.TypeOf([]byte(nil)) {
		name = "[]byte"
	}
	s := newShape(name, KindScalar)
	s.scalar = kind
	s.goType = t
	s.ops = scalarOps(kind, t)
	return s
}

// OpaqueOf declares a leaf shape for T. Opaque values are set as a whole and
// never inspected; Destroy closes values implementing io.Closer.
func OpaqueOf[T any]() *Shape {
	return opaqueFor(reflect.TypeFor[T]())
}

func opaqueFor(t reflect.Type) *Shape {
	s := newShape(t.String(), KindOpaque)
	s.goType = t
	s.ops = Funcs{
		DefaultFn: func() (any, error) { return reflect.Zero(t).Interface(), nil },
	}
	return s
}

func scalarOps(kind ScalarKind, t reflect.Type) Funcs {
	return Funcs{
		DefaultFn: func() (any, error) { return reflect.Zero(t).Interface(), nil },
		ParseFn:   func(text string) (any, error) { return parseScalar(kind, t, text) },
	}
}

func parseScalar(kind ScalarKind, t reflect.Type, text string) (any, error) {
	out := reflect.New(t).Elem()
	var err error
	switch kind {
	case ScalarBool:
		var b bool
		if b, err = strconv.ParseBool(text); err == nil {
			out.SetBool(b)
		}
	case ScalarInt:
		var n int64
		if n, err = strconv.ParseInt(text, 10, t.Bits()); err == nil {
			out.SetInt(n)
		}
	case ScalarUint:
		var n uint64
		if n, err = strconv.ParseUint(text, 10, t.Bits()); err == nil {
			out.SetUint(n)
		}
	case ScalarFloat:
		var f float64
		if f, err = strconv.ParseFloat(text, t.Bits()); err == nil {
			out.SetFloat(f)
		}
	case ScalarString:
		out.SetString(text)
	case ScalarBytes:
		var b []byte
		if b, err = base64.StdEncoding.DecodeString(text); err == nil {
			out.SetBytes(b)
		}
	case ScalarTime:
		var tm time.Time
		if tm, err = time.Parse(time.RFC3339Nano, text); err == nil {
			out.Set(reflect.ValueOf(tm).Convert(t))
		}
	default:
		err = fmt.Errorf("scalar kind %s cannot be parsed", kind)
	}
	if err != nil {
		is := NewIssue("/", CodeParseError, map[string]any{"text": text, "kind": kind})
		is.Cause = err
		return nil, Issues{is}
	}
	return out.Interface(), nil
}

// Coerce converts v into the representation of s. Scalars accept any value
// of the same kind whose conversion is lossless; opaque shapes accept values
// assignable to their Go type; composite shapes accept whole values of their
// materialized representation.
func Coerce(s *Shape, v any) (any, error) {
	switch s.kind {
	case KindScalar:
		return coerceScalar(s, v)
	case KindOpaque:
		if s.goType == nil {
			return v, nil
		}
		if v == nil {
			if nilable(s.goType) {
				return reflect.Zero(s.goType).Interface(), nil
			}
			return nil, invalidType(s, v)
		}
		if reflect.TypeOf(v).AssignableTo(s.goType) {
			return v, nil
		}
		return nil, invalidType(s, v)
	}
	return coerceWhole(s, v)
}

func invalidType(s *Shape, v any) error {
	return Issues{NewIssue("/", CodeInvalidType, map[string]any{"expected": s.name, "got": fmt.Sprintf("%T", v)})}
}

func nilable(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		return true
	}
	return false
}

func coerceScalar(s *Shape, v any) (any, error) {
	t := s.goType
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil, invalidType(s, v)
	}
	if rv.Type() == t {
		return v, nil
	}
	out := reflect.New(t).Elem()
	switch s.scalar {
	case ScalarBool:
		if rv.Kind() != reflect.Bool {
			return nil, invalidType(s, v)
		}
		out.SetBool(rv.Bool())
	case ScalarInt:
		n, ok := toInt64(rv)
		if !ok || out.OverflowInt(n) {
			return nil, invalidType(s, v)
		}
		out.SetInt(n)
	case ScalarUint:
		n, ok := toUint64(rv)
		if !ok || out.OverflowUint(n) {
			return nil, invalidType(s, v)
		}
		out.SetUint(n)
	case ScalarFloat:
		f, ok := toFloat64(rv)
		if !ok || out.OverflowFloat(f) {
			return nil, invalidType(s, v)
		}
		out.SetFloat(f)
	case ScalarString:
		if rv.Kind() != reflect.String {
			return nil, invalidType(s, v)
		}
		out.SetString(rv.String())
	case ScalarBytes:
		if rv.Kind() != reflect.Slice || rv.Type().Elem().Kind() != reflect.Uint8 {
			return nil, invalidType(s, v)
		}
		out.SetBytes(rv.Bytes())
	case ScalarTime:
		tm, ok := v.(time.Time)
		if !ok {
			if !rv.Type().ConvertibleTo(reflect.TypeOf(time.Time{})) || rv.Kind() != reflect.Struct {
				return nil, invalidType(s, v)
			}
			tm = rv.Convert(reflect.TypeOf(time.Time{})).Interface().(time.Time)
		}
		out.Set(reflect.ValueOf(tm).Convert(t))
	default:
		return nil, invalidType(s, v)
	}
	return out.Interface(), nil
}

func toInt64(rv reflect.Value) (int64, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < math.MinInt64 || f >= math.MaxInt64 {
			return 0, false
		}
		return int64(f), true
	}
	return 0, false
}

func toUint64(rv reflect.Value) (uint64, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		if n < 0 {
			return 0, false
		}
		return uint64(n), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint(), true
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if f != math.Trunc(f) || f < 0 || f >= math.MaxUint64 {
			return 0, false
		}
		return uint64(f), true
	}
	return 0, false
}

// 2^53: the largest magnitude below which every integer is exact in float64.
const maxExactFloat = 1 << 53

func toFloat64(rv reflect.Value) (float64, bool) {
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n := rv.Int()
		if n > maxExactFloat || n < -maxExactFloat {
			return 0, false
		}
		return float64(n), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > maxExactFloat {
			return 0, false
		}
		return float64(u), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}
