package json

import (
	"fmt"
	"io"
	"strconv"

	gojson "github.com/goccy/go-json"

	"github.com/reoring/goshape/internal/engine"
)

type container struct {
	object    bool
	expectKey bool
}

// source adapts a go-json Decoder to engine.TokenSource. go-json reports
// object keys as plain strings, so the source tracks containers to tell keys
// from string values.
type source struct {
	dec   *gojson.Decoder
	stack []container
}

func newSource(r io.Reader) *source {
	dec := gojson.NewDecoder(r)
	dec.UseNumber()
	return &source{dec: dec}
}

func (s *source) NextToken() (engine.Token, error) {
	off := s.dec.InputOffset()
	tok, err := s.dec.Token()
	if err != nil {
		return engine.Token{}, err
	}
	out := engine.Token{Offset: off}
	switch v := tok.(type) {
	case gojson.Delim:
		switch v {
		case '{':
			s.stack = append(s.stack, container{object: true, expectKey: true})
			out.Kind = engine.KindBeginObject
		case '[':
			s.stack = append(s.stack, container{})
			out.Kind = engine.KindBeginArray
		case '}', ']':
			if n := len(s.stack); n > 0 {
				s.stack = s.stack[:n-1]
			}
			s.valueDone()
			out.Kind = engine.KindEndObject
			if v == ']' {
				out.Kind = engine.KindEndArray
			}
		}
		return out, nil
	case string:
		if n := len(s.stack); n > 0 && s.stack[n-1].object && s.stack[n-1].expectKey {
			s.stack[n-1].expectKey = false
			out.Kind, out.String = engine.KindKey, v
			return out, nil
		}
		out.Kind, out.String = engine.KindString, v
	case bool:
		out.Kind, out.Bool = engine.KindBool, v
	case gojson.Number:
		out.Kind, out.Number = engine.KindNumber, string(v)
	case float64:
		out.Kind, out.Number = engine.KindNumber, strconv.FormatFloat(v, 'g', -1, 64)
	case nil:
		out.Kind = engine.KindNull
	default:
		return engine.Token{}, fmt.Errorf("json: unexpected token %T", tok)
	}
	s.valueDone()
	return out, nil
}

// valueDone records that the value of the pending key was read.
func (s *source) valueDone() {
	if n := len(s.stack); n > 0 && s.stack[n-1].object {
		s.stack[n-1].expectKey = true
	}
}

func (s *source) Location() int64 { return s.dec.InputOffset() }
