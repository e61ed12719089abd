// Package yaml decodes YAML documents into goshape values by walking
// gopkg.in/yaml.v3 nodes and driving a partial.Partial.
//
// The mapping follows the JSON driver: mappings fill struct fields and map
// entries, sequences fill lists, null sets an optional to None and unions
// are externally tagged ("Unit", {Variant: payload}). A local tag also
// selects a variant: `!Move {x: 1, y: 2}`.
//
// With Opt.DottedKeys a struct key such as "server.port" that names no
// field is split and navigated field by field. Tables visited more than
// once ("server.host" then "server.port") are merged: the enclosing mapping
// is decoded in deferred mode so partially filled structs can be revisited.
// Dotted navigation only crosses struct fields and selected union variants.
package yaml

import (
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	yaml "gopkg.in/yaml.v3"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/partial"
)

// Opt configures decoding. When several are passed the last one wins.
type Opt struct {
	Unknown    goshape.UnknownPolicy
	DottedKeys bool
	Partial    partial.Opt
}

func pick(opts []Opt) Opt {
	if len(opts) == 0 {
		return Opt{}
	}
	return opts[len(opts)-1]
}

func parse(data []byte) (*yaml.Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		is := goshape.NewIssue("/", goshape.CodeParseError, nil)
		is.Hint = err.Error()
		is.Cause = err
		return nil, goshape.Issues{is}
	}
	return &doc, nil
}

// Unmarshal decodes data into a value of type T using the shape derived
// from T.
func Unmarshal[T any](data []byte, opts ...Opt) (T, error) {
	var zero T
	o := pick(opts)
	doc, err := parse(data)
	if err != nil {
		return zero, err
	}
	p, err := partial.AllocOf[T](o.Partial)
	if err != nil {
		return zero, err
	}
	if err := Decode(p, doc, o); err != nil {
		return zero, err
	}
	return partial.Build[T](p)
}

// UnmarshalShape decodes data into a value of shape s.
func UnmarshalShape(s *goshape.Shape, data []byte, opts ...Opt) (goshape.Value, error) {
	o := pick(opts)
	doc, err := parse(data)
	if err != nil {
		return goshape.Value{}, err
	}
	p, err := partial.Alloc(s, o.Partial)
	if err != nil {
		return goshape.Value{}, err
	}
	if err := Decode(p, doc, o); err != nil {
		return goshape.Value{}, err
	}
	v, err := p.Materialize()
	if err != nil {
		return goshape.Value{}, multierr.Append(err, p.Drop())
	}
	return v, nil
}

// Decode fills the current frame of p from node, which may be a document
// node. The frame is left open for the caller to End or Materialize. On
// error p is dropped.
func Decode(p *partial.Partial, node *yaml.Node, opts ...Opt) error {
	o := pick(opts)
	log := o.Partial.Logger
	if log == nil {
		log = zap.NewNop()
	}
	d := &decoder{p: p, opt: o}
	err := d.document(node)
	if err == nil {
		return nil
	}
	err = d.locate(err)
	log.Named("yaml").Debug("decode failed", zap.String("path", p.Path()), zap.Error(err))
	return multierr.Append(err, p.Drop())
}

// locate adds the position of the node being decoded to the first issue.
func (d *decoder) locate(err error) error {
	iss, ok := goshape.AsIssues(err)
	if !ok || d.last == nil || len(iss) == 0 || iss[0].Hint != "" {
		return err
	}
	out := append(goshape.Issues(nil), iss...)
	out[0].Hint = fmt.Sprintf("line %d, column %d", d.last.Line, d.last.Column)
	return out
}
