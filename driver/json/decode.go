package json

import (
	"io"
	"math"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/internal/engine"
	"github.com/reoring/goshape/partial"
)

type decoder struct {
	p   *partial.Partial
	src engine.TokenSource
	opt Opt
}

func (d *decoder) document() error {
	tok, err := d.src.NextToken()
	if err == io.EOF {
		return d.issue(goshape.CodeParseError, map[string]any{"reason": "empty input"}, tok)
	}
	if err != nil {
		return d.syntax(err)
	}
	if err := d.value(tok); err != nil {
		return d.syntax(err)
	}
	switch tok, err := d.src.NextToken(); {
	case err == io.EOF:
		return nil
	case err != nil:
		return d.syntax(err)
	default:
		return d.issue(goshape.CodeParseError, map[string]any{"reason": "trailing data"}, tok)
	}
}

// value decodes the value starting with tok into the current frame.
func (d *decoder) value(tok engine.Token) error {
	s := d.p.Shape()
	if tok.Kind == engine.KindNull {
		switch s.Kind() {
		case goshape.KindOptional:
			return d.p.SetNone()
		case goshape.KindOpaque:
			return d.p.Set(nil)
		}
		return d.unexpected(s, tok)
	}
	switch s.Kind() {
	case goshape.KindOptional:
		if err := d.p.BeginSome(); err != nil {
			return err
		}
		if err := d.value(tok); err != nil {
			return err
		}
		return d.p.End()
	case goshape.KindScalar:
		return d.scalar(s, tok)
	case goshape.KindOpaque:
		if tok.Kind == engine.KindString && s.Ops().CanParse() {
			return d.p.SetFromText(tok.String)
		}
		v, err := engine.DecodeAny(d.src, tok)
		if err != nil {
			return err
		}
		return d.p.Set(v)
	case goshape.KindStruct:
		return d.members(s, tok)
	case goshape.KindUnion:
		return d.union(s, tok)
	case goshape.KindResult:
		return d.result(s, tok)
	case goshape.KindList:
		return d.list(s, tok)
	case goshape.KindMap:
		return d.mapping(s, tok)
	}
	return d.unexpected(s, tok)
}

func (d *decoder) scalar(s *goshape.Shape, tok engine.Token) error {
	switch tok.Kind {
	case engine.KindString:
		switch s.ScalarKind() {
		case goshape.ScalarString:
			return d.p.Set(tok.String)
		case goshape.ScalarBytes, goshape.ScalarTime:
			return d.p.SetFromText(tok.String)
		case goshape.ScalarFloat:
			if f, ok := nonFinite(tok.String); ok && d.opt.Strictness.AllowNaN {
				return d.p.Set(f)
			}
		}
	case engine.KindNumber:
		switch s.ScalarKind() {
		case goshape.ScalarInt, goshape.ScalarUint, goshape.ScalarFloat:
			return d.p.SetFromText(tok.Number)
		}
	case engine.KindBool:
		if s.ScalarKind() == goshape.ScalarBool {
			return d.p.Set(tok.Bool)
		}
	}
	return d.unexpected(s, tok)
}

func nonFinite(s string) (float64, bool) {
	switch s {
	case "NaN":
		return math.NaN(), true
	case "Infinity", "+Infinity":
		return math.Inf(1), true
	case "-Infinity":
		return math.Inf(-1), true
	}
	return 0, false
}

// members decodes the object starting with tok into the fields of the
// current struct frame or of the selected variant.
func (d *decoder) members(s *goshape.Shape, tok engine.Token) error {
	if tok.Kind != engine.KindBeginObject {
		return d.unexpected(s, tok)
	}
	for {
		kt, err := engine.Next(d.src)
		if err != nil {
			return err
		}
		if kt.Kind == engine.KindEndObject {
			return nil
		}
		vt, err := engine.Next(d.src)
		if err != nil {
			return err
		}
		if _, ok := d.p.FieldIndex(kt.String); !ok {
			if d.opt.Unknown == goshape.UnknownStrip {
				if err := engine.Skip(d.src, vt); err != nil {
					return err
				}
				continue
			}
			return d.unknownKey(kt)
		}
		if err := d.p.BeginField(kt.String); err != nil {
			return err
		}
		if err := d.value(vt); err != nil {
			return err
		}
		if err := d.p.End(); err != nil {
			return err
		}
	}
}

func (d *decoder) union(s *goshape.Shape, tok engine.Token) error {
	switch tok.Kind {
	case engine.KindString:
		return d.p.SelectVariant(tok.String)
	case engine.KindBeginObject:
	default:
		return d.unexpected(s, tok)
	}
	kt, err := engine.Next(d.src)
	if err != nil {
		return err
	}
	if kt.Kind != engine.KindKey {
		return d.issue(goshape.CodeNoVariant, nil, kt)
	}
	if err := d.p.SelectVariant(kt.String); err != nil {
		return err
	}
	v, _ := d.p.SelectedVariant()
	vt, err := engine.Next(d.src)
	if err != nil {
		return err
	}
	if err := d.payload(s, v, vt); err != nil {
		return err
	}
	return d.closeTagged(s)
}

func (d *decoder) payload(s *goshape.Shape, v *goshape.Variant, tok engine.Token) error {
	switch {
	case v.IsUnit():
		if tok.Kind == engine.KindNull {
			return nil
		}
		return d.members(s, tok)
	case v.IsNewtype():
		if err := d.p.BeginNthField(0); err != nil {
			return err
		}
		if err := d.value(tok); err != nil {
			return err
		}
		return d.p.End()
	case v.Fields[0].Name == "0":
		return d.tuple(s, tok)
	}
	return d.members(s, tok)
}

// tuple decodes a positional payload written as an array.
func (d *decoder) tuple(s *goshape.Shape, tok engine.Token) error {
	if tok.Kind != engine.KindBeginArray {
		return d.unexpected(s, tok)
	}
	for i := 0; ; i++ {
		it, err := engine.Next(d.src)
		if err != nil {
			return err
		}
		if it.Kind == engine.KindEndArray {
			return nil
		}
		if err := d.p.BeginNthField(i); err != nil {
			return err
		}
		if err := d.value(it); err != nil {
			return err
		}
		if err := d.p.End(); err != nil {
			return err
		}
	}
}

// closeTagged consumes the end of a single-key tagged object.
func (d *decoder) closeTagged(s *goshape.Shape) error {
	et, err := engine.Next(d.src)
	if err != nil {
		return err
	}
	if et.Kind != engine.KindEndObject {
		return d.issue(goshape.CodeInvalidType, map[string]any{"expected": s.Name(), "got": "more than one tag"}, et)
	}
	return nil
}

func (d *decoder) result(s *goshape.Shape, tok engine.Token) error {
	if tok.Kind != engine.KindBeginObject {
		return d.unexpected(s, tok)
	}
	kt, err := engine.Next(d.src)
	if err != nil {
		return err
	}
	switch {
	case kt.Kind == engine.KindKey && kt.String == "ok":
		err = d.p.BeginOk()
	case kt.Kind == engine.KindKey && kt.String == "err":
		err = d.p.BeginErr()
	default:
		return d.unknownKey(kt)
	}
	if err != nil {
		return err
	}
	vt, err := engine.Next(d.src)
	if err != nil {
		return err
	}
	if err := d.value(vt); err != nil {
		return err
	}
	if err := d.p.End(); err != nil {
		return err
	}
	return d.closeTagged(s)
}

func (d *decoder) list(s *goshape.Shape, tok engine.Token) error {
	if tok.Kind != engine.KindBeginArray {
		return d.unexpected(s, tok)
	}
	for {
		it, err := engine.Next(d.src)
		if err != nil {
			return err
		}
		if it.Kind == engine.KindEndArray {
			return nil
		}
		if err := d.p.BeginListItem(); err != nil {
			return err
		}
		if err := d.value(it); err != nil {
			return err
		}
		if err := d.p.End(); err != nil {
			return err
		}
	}
}

func (d *decoder) mapping(s *goshape.Shape, tok engine.Token) error {
	if tok.Kind != engine.KindBeginObject {
		return d.unexpected(s, tok)
	}
	for {
		kt, err := engine.Next(d.src)
		if err != nil {
			return err
		}
		if kt.Kind == engine.KindEndObject {
			return nil
		}
		if err := d.key(kt.String); err != nil {
			return err
		}
		vt, err := engine.Next(d.src)
		if err != nil {
			return err
		}
		if err := d.p.BeginValue(); err != nil {
			return err
		}
		if err := d.value(vt); err != nil {
			return err
		}
		if err := d.p.End(); err != nil {
			return err
		}
	}
}

func (d *decoder) key(k string) error {
	if err := d.p.BeginKey(); err != nil {
		return err
	}
	ks := d.p.Shape()
	var err error
	if ks.Kind() == goshape.KindScalar && ks.ScalarKind() == goshape.ScalarString {
		err = d.p.Set(k)
	} else {
		err = d.p.SetFromText(k)
	}
	if err != nil {
		return err
	}
	return d.p.End()
}

func (d *decoder) unexpected(s *goshape.Shape, tok engine.Token) error {
	return d.issue(goshape.CodeInvalidType, map[string]any{"expected": s.Name(), "got": tok.Kind.String()}, tok)
}

func (d *decoder) unknownKey(kt engine.Token) error {
	is := goshape.NewIssue(goshape.JoinPointer(d.p.Path(), kt.String), goshape.CodeUnknownKey, map[string]any{"key": kt.String})
	is.Offset = kt.Offset
	return goshape.Issues{is}
}

func (d *decoder) issue(code string, params map[string]any, tok engine.Token) error {
	is := goshape.NewIssue(d.p.Path(), code, params)
	is.Offset = tok.Offset
	return goshape.Issues{is}
}

// syntax turns tokenizer errors into a parse Issue at the current path.
func (d *decoder) syntax(err error) error {
	if _, ok := goshape.AsIssues(err); ok {
		return err
	}
	is := goshape.NewIssue(d.p.Path(), goshape.CodeParseError, nil)
	is.Hint = err.Error()
	is.Cause = err
	is.Offset = d.src.Location()
	return goshape.Issues{is}
}
