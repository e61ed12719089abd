package goshape

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"reflect"
	"time"

	"github.com/cespare/xxhash/v2"
)

// VTable is the per-shape operation table. Builders and drivers use it to
// handle values without static type information.
type VTable interface {
	// Default constructs the shape's default value.
	Default() (any, error)
	// Destroy releases a value (and everything it owns). It is invoked exactly
	// once for every value a builder overwrites or abandons.
	Destroy(v any) error
	// Parse converts text into a value of the shape.
	Parse(text string) (any, error)
	Equal(a, b any) bool
	Hash(v any) uint64

	HasDefault() bool
	CanParse() bool
}

// Funcs implements VTable with plain functions. A nil Destroy closes values
// implementing io.Closer, a nil Equal compares structurally and a nil Hash
// hashes with xxhash.
type Funcs struct {
	DefaultFn func() (any, error)
	DestroyFn func(v any) error
	ParseFn   func(text string) (any, error)
	EqualFn   func(a, b any) bool
	HashFn    func(v any) uint64
}

func (f Funcs) Default() (any, error) {
	if f.DefaultFn == nil {
		return nil, Issues{NewIssue("/", CodeNoDefault, nil)}
	}
	return f.DefaultFn()
}

func (f Funcs) Destroy(v any) error {
	if v == nil {
		return nil
	}
	if f.DestroyFn != nil {
		return f.DestroyFn(v)
	}
	return closeValue(v)
}

func (f Funcs) Parse(text string) (any, error) {
	if f.ParseFn == nil {
		return nil, Issues{NewIssue("/", CodeParseError, map[string]any{"text": text})}
	}
	return f.ParseFn(text)
}

func (f Funcs) Equal(a, b any) bool {
	if f.EqualFn != nil {
		return f.EqualFn(a, b)
	}
	return valueEqual(a, b)
}

func (f Funcs) Hash(v any) uint64 {
	if f.HashFn != nil {
		return f.HashFn(v)
	}
	return hashValue(v)
}

func (f Funcs) HasDefault() bool { return f.DefaultFn != nil }
func (f Funcs) CanParse() bool   { return f.ParseFn != nil }

// mergeOps fills the nil entries of a user supplied Funcs from base. Other
// VTable implementations are used as is.
func mergeOps(user VTable, base Funcs) VTable {
	var f Funcs
	switch u := user.(type) {
	case nil:
		return base
	case Funcs:
		f = u
	case *Funcs:
		f = *u
	default:
		return user
	}
	if f.DefaultFn == nil {
		f.DefaultFn = base.DefaultFn
	}
	if f.DestroyFn == nil {
		f.DestroyFn = base.DestroyFn
	}
	if f.ParseFn == nil {
		f.ParseFn = base.ParseFn
	}
	if f.EqualFn == nil {
		f.EqualFn = base.EqualFn
	}
	if f.HashFn == nil {
		f.HashFn = base.HashFn
	}
	return f
}

func closeValue(v any) error {
	c, ok := v.(io.Closer)
	if !ok {
		return nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil
	}
	return c.Close()
}

func valueEqual(a, b any) bool {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		return ok && x.Equal(y)
	case []byte:
		y, ok := b.([]byte)
		return ok && bytes.Equal(x, y)
	}
	return reflect.DeepEqual(a, b)
}

func hashValue(v any) uint64 {
	var buf [8]byte
	switch x := v.(type) {
	case nil:
		return 0
	case string:
		return xxhash.Sum64String(x)
	case []byte:
		return xxhash.Sum64(x)
	case bool:
		if x {
			return xxhash.Sum64([]byte{1})
		}
		return xxhash.Sum64([]byte{0})
	case time.Time:
		binary.LittleEndian.PutUint64(buf[:], uint64(x.UnixNano()))
		return xxhash.Sum64(buf[:])
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		binary.LittleEndian.PutUint64(buf[:], uint64(rv.Int()))
		return xxhash.Sum64(buf[:])
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		binary.LittleEndian.PutUint64(buf[:], rv.Uint())
		return xxhash.Sum64(buf[:])
	case reflect.Float32, reflect.Float64:
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(rv.Float()))
		return xxhash.Sum64(buf[:])
	case reflect.String:
		return xxhash.Sum64String(rv.String())
	}
	return xxhash.Sum64String(fmt.Sprintf("%T:%v", v, v))
}
