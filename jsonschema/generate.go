// Package jsonschema projects goshape shapes into JSON Schema documents
// describing the wire form the format drivers accept.
package jsonschema

import (
	goshape "github.com/reoring/goshape"
)

// Opt configures FromShape. When several are passed the last one wins.
type Opt struct {
	// Unknown mirrors the driver policy: strict forbids additional
	// properties on struct objects, strip allows them.
	Unknown goshape.UnknownPolicy
}

// FromShape returns the JSON Schema of the documents that decode into s.
// Fields with a proxy are described by the proxy's representation.
// Recursive shapes are emitted once under $defs and referenced.
func FromShape(s *goshape.Shape, opts ...Opt) (*Schema, error) {
	if s == nil {
		return nil, goshape.Issues{goshape.NewIssue("/", goshape.CodeInvalidShape, map[string]any{"reason": "nil shape"})}
	}
	var o Opt
	if len(opts) > 0 {
		o = opts[len(opts)-1]
	}
	g := &generator{
		opt:       o,
		root:      s,
		visiting:  map[*goshape.Shape]bool{},
		recursive: map[*goshape.Shape]bool{},
		defs:      map[string]*Schema{},
	}
	out, err := g.shape(s)
	if err != nil {
		return nil, err
	}
	if out.Ref != "" {
		// a recursive root is emitted in place
		out = g.defs[defName(s)]
		delete(g.defs, defName(s))
	}
	out.Schema = Draft
	if len(g.defs) > 0 {
		out.Defs = g.defs
	}
	return out, nil
}

type generator struct {
	opt       Opt
	root      *goshape.Shape
	visiting  map[*goshape.Shape]bool
	recursive map[*goshape.Shape]bool
	defs      map[string]*Schema
}

func defName(s *goshape.Shape) string { return goshape.EscapePointer(s.Name()) }

func (g *generator) ref(s *goshape.Shape) *Schema {
	if s == g.root {
		return &Schema{Ref: "#"}
	}
	return &Schema{Ref: "#/$defs/" + defName(s)}
}

func (g *generator) shape(s *goshape.Shape) (*Schema, error) {
	switch s.Kind() {
	case goshape.KindStruct, goshape.KindUnion:
		if g.visiting[s] {
			g.recursive[s] = true
			return g.ref(s), nil
		}
		g.visiting[s] = true
		out, err := g.composite(s)
		delete(g.visiting, s)
		if err != nil {
			return nil, err
		}
		if g.recursive[s] {
			g.defs[defName(s)] = out
			return g.ref(s), nil
		}
		return out, nil
	}
	return g.composite(s)
}

func (g *generator) composite(s *goshape.Shape) (*Schema, error) {
	switch s.Kind() {
	case goshape.KindScalar:
		return scalar(s), nil
	case goshape.KindOpaque:
		return &Schema{}, nil
	case goshape.KindStruct:
		out, err := g.object(s.Fields())
		if err != nil {
			return nil, err
		}
		out.Title = s.Name()
		return out, nil
	case goshape.KindUnion:
		return g.union(s)
	case goshape.KindOptional:
		inner, err := g.shape(s.Elem())
		if err != nil {
			return nil, err
		}
		return &Schema{AnyOf: []*Schema{inner, {Type: "null"}}}, nil
	case goshape.KindResult:
		ok, err := g.shape(s.Elem())
		if err != nil {
			return nil, err
		}
		bad, err := g.shape(s.ErrShape())
		if err != nil {
			return nil, err
		}
		return &Schema{OneOf: []*Schema{tagged("ok", ok), tagged("err", bad)}}, nil
	case goshape.KindList:
		items, err := g.shape(s.Elem())
		if err != nil {
			return nil, err
		}
		out := &Schema{Type: "array", Items: items}
		if n, ok := s.FixedLen(); ok {
			out.MinItems, out.MaxItems = &n, &n
		}
		return out, nil
	case goshape.KindMap:
		vals, err := g.shape(s.Elem())
		if err != nil {
			return nil, err
		}
		out := &Schema{Type: "object", AdditionalProperties: vals}
		if k := s.Key(); k.Kind() == goshape.KindScalar {
			switch k.ScalarKind() {
			case goshape.ScalarInt:
				out.PropertyNames = &Schema{Pattern: "^-?[0-9]+$"}
			case goshape.ScalarUint:
				out.PropertyNames = &Schema{Pattern: "^[0-9]+$"}
			}
		}
		return out, nil
	}
	return nil, goshape.Issues{goshape.NewIssue("/", goshape.CodeInvalidShape, map[string]any{"reason": "unknown kind " + s.Kind().String()})}
}

func scalar(s *goshape.Shape) *Schema {
	switch s.ScalarKind() {
	case goshape.ScalarBool:
		return &Schema{Type: "boolean"}
	case goshape.ScalarInt:
		return &Schema{Type: "integer"}
	case goshape.ScalarUint:
		zero := 0.0
		return &Schema{Type: "integer", Minimum: &zero}
	case goshape.ScalarFloat:
		return &Schema{Type: "number"}
	case goshape.ScalarBytes:
		return &Schema{Type: "string", ContentEncoding: "base64"}
	case goshape.ScalarTime:
		return &Schema{Type: "string", Format: "date-time"}
	}
	return &Schema{Type: "string"}
}

// object describes fields as the properties of an object.
func (g *generator) object(fields []*goshape.Field) (*Schema, error) {
	out := &Schema{Type: "object", Properties: make(map[string]*Schema, len(fields))}
	for _, f := range fields {
		fs := f.Shape
		if px := f.EffectiveProxy(); px != nil {
			fs = px.Shape
		}
		ps, err := g.shape(fs)
		if err != nil {
			return nil, goshape.Rebase(err, goshape.JoinPointer("/", f.Name))
		}
		if f.Required() {
			out.Required = append(out.Required, f.Name)
		} else if d, ok := literalDefault(f); ok && ps.Ref == "" {
			ps.Default = d
		}
		out.Properties[f.Name] = ps
	}
	switch g.opt.Unknown {
	case goshape.UnknownStrict:
		out.AdditionalProperties = false
	case goshape.UnknownStrip:
		out.AdditionalProperties = true
	}
	return out, nil
}

// literalDefault returns the default of a scalar field without a proxy, as
// written on the wire.
func literalDefault(f *goshape.Field) (any, bool) {
	if f.Shape.Kind() != goshape.KindScalar || f.EffectiveProxy() != nil || !f.HasDefault() {
		return nil, false
	}
	switch f.Shape.ScalarKind() {
	case goshape.ScalarBytes, goshape.ScalarTime:
		return nil, false
	}
	v, err := f.DefaultValue()
	if err != nil {
		return nil, false
	}
	return v, true
}

func tagged(name string, payload *Schema) *Schema {
	return &Schema{
		Type:                 "object",
		Properties:           map[string]*Schema{name: payload},
		Required:             []string{name},
		AdditionalProperties: false,
	}
}

func (g *generator) union(s *goshape.Shape) (*Schema, error) {
	out := &Schema{Title: s.Name()}
	for _, v := range s.Variants() {
		var payload *Schema
		var err error
		switch {
		case v.IsUnit():
			out.OneOf = append(out.OneOf, &Schema{Type: "string", Const: v.Name})
			continue
		case v.IsNewtype():
			payload, err = g.shape(v.Fields[0].Shape)
		case v.Fields[0].Name == "0":
			payload = &Schema{Type: "array", Items: false}
			for _, f := range v.Fields {
				fs, ferr := g.shape(f.Shape)
				if ferr != nil {
					return nil, ferr
				}
				payload.PrefixItems = append(payload.PrefixItems, fs)
			}
			n := len(v.Fields)
			payload.MinItems, payload.MaxItems = &n, &n
		default:
			payload, err = g.object(v.Fields)
		}
		if err != nil {
			return nil, goshape.Rebase(err, goshape.JoinPointer("/", v.Name))
		}
		out.OneOf = append(out.OneOf, tagged(v.Name, payload))
	}
	return out, nil
}
