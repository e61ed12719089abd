// Package goshape provides:
//
// - Runtime type descriptors (Shape) for structs, tagged unions, optionals,
//   results, lists, maps, scalars and opaque values
// - Per-shape operation tables (VTable) usable without static type information
// - Shapes derived from Go types by reflection (ShapeOf), with a bounded cache
// - Proxy representations substituted while a value is built
// - A stable error model via Issues (JSON Pointer, code, message)
//
// Design policy:
// - Keep only descriptors and value representations in the root package; the
//   incremental builder lives in partial/, format front ends under driver/.
// - Shapes are immutable after construction and safe for concurrent use.
// - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	point := goshape.Struct("Point").
//		Field("x", goshape.Int).
//		Field("y", goshape.Int).DefaultFromType().
//		MustBuild()
//
//	p, _ := partial.Alloc(point)
//	_ = p.BeginField("x")
//	_ = p.Set(1)
//	_ = p.End()
//	v, err := p.Materialize()
package goshape
