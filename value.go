package goshape

import "fmt"

// Value pairs a materialized value with its shape.
type Value struct {
	Shape *Shape
	Data  any
}

// Equal compares two values with the shape's Equal operation. Values of
// different shapes are never equal.
func (v Value) Equal(o Value) bool {
	if v.Shape == nil || o.Shape == nil {
		return v.Shape == o.Shape && valueEqual(v.Data, o.Data)
	}
	if v.Shape != o.Shape {
		return false
	}
	return v.Shape.Ops().Equal(v.Data, o.Data)
}

// Hash hashes the value with the shape's Hash operation.
func (v Value) Hash() uint64 {
	if v.Shape == nil {
		return hashValue(v.Data)
	}
	return v.Shape.Ops().Hash(v.Data)
}

// Destroy releases the value with the shape's Destroy operation.
func (v Value) Destroy() error {
	if v.Shape == nil {
		return closeValue(v.Data)
	}
	return v.Shape.Ops().Destroy(v.Data)
}

func (v Value) String() string {
	if v.Shape == nil {
		return fmt.Sprint(v.Data)
	}
	return fmt.Sprintf("%s(%v)", v.Shape.Name(), v.Data)
}
