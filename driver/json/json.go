// Package json decodes JSON documents into goshape values. It reads tokens
// from goccy/go-json and drives a partial.Partial member by member, so the
// document is never materialized as a generic tree.
//
// Mapping:
//
//   - objects fill struct fields by name and map entries (keys are parsed
//     with the key shape's Parse operation)
//   - arrays fill lists
//   - null sets an optional to None
//   - unions are externally tagged: "Unit" or {"Variant": payload}
//   - results are {"ok": value} or {"err": value}
package json

import (
	"bytes"
	"io"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/internal/engine"
	"github.com/reoring/goshape/partial"
)

// Opt configures decoding. When several are passed the last one wins.
type Opt struct {
	Unknown    goshape.UnknownPolicy // strict (default) rejects unknown object keys
	Strictness goshape.Strictness
	MaxDepth   int // input nesting limit; 0 disables
	Partial    partial.Opt
}

func pick(opts []Opt) Opt {
	if len(opts) == 0 {
		return Opt{}
	}
	return opts[len(opts)-1]
}

// Unmarshal decodes data into a value of type T using the shape derived
// from T.
func Unmarshal[T any](data []byte, opts ...Opt) (T, error) {
	var zero T
	o := pick(opts)
	p, err := partial.AllocOf[T](o.Partial)
	if err != nil {
		return zero, err
	}
	if err := DecodeBytes(p, data, o); err != nil {
		return zero, err
	}
	return partial.Build[T](p)
}

// UnmarshalWithMeta is Unmarshal that also returns the presence flags
// collected while decoding (Partial.Presence must enable collection).
func UnmarshalWithMeta[T any](data []byte, opts ...Opt) (goshape.Decoded[T], error) {
	o := pick(opts)
	p, err := partial.AllocOf[T](o.Partial)
	if err != nil {
		return goshape.Decoded[T]{}, err
	}
	if err := DecodeBytes(p, data, o); err != nil {
		return goshape.Decoded[T]{}, err
	}
	return partial.BuildWithMeta[T](p)
}

// UnmarshalShape decodes data into a value of shape s.
func UnmarshalShape(s *goshape.Shape, data []byte, opts ...Opt) (goshape.Value, error) {
	o := pick(opts)
	p, err := partial.Alloc(s, o.Partial)
	if err != nil {
		return goshape.Value{}, err
	}
	if err := DecodeBytes(p, data, o); err != nil {
		return goshape.Value{}, err
	}
	v, err := p.Materialize()
	if err != nil {
		return goshape.Value{}, multierr.Append(err, p.Drop())
	}
	return v, nil
}

// DecodeBytes is Decode over a byte slice.
func DecodeBytes(p *partial.Partial, data []byte, opts ...Opt) error {
	return Decode(p, bytes.NewReader(data), opts...)
}

// Decode reads one JSON document from r into the current frame of p. The
// frame is left open for the caller to End or Materialize. On error p is
// dropped.
func Decode(p *partial.Partial, r io.Reader, opts ...Opt) error {
	o := pick(opts)
	log := o.Partial.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("json")
	src := engine.Enforce(newSource(r), engine.Options{
		OnDuplicate: o.Strictness.OnDuplicateKey,
		MaxDepth:    o.MaxDepth,
		Warn: func(is goshape.Issue) {
			log.Warn("duplicate key", zap.String("path", is.Path), zap.Int64("offset", is.Offset))
		},
	})
	d := &decoder{p: p, src: src, opt: o}
	if err := d.document(); err != nil {
		log.Debug("decode failed", zap.String("path", p.Path()), zap.Error(err))
		return multierr.Append(err, p.Drop())
	}
	return nil
}
