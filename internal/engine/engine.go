// Package engine holds the token model shared by the streaming format
// drivers and the enforcement applied to token streams before they reach a
// builder.
package engine

import (
	"io"
	"strconv"
)

// Kind represents token kinds from a generic source.
type Kind int

const (
	KindBeginObject Kind = iota
	KindEndObject
	KindBeginArray
	KindEndArray
	KindKey
	KindString
	KindNumber
	KindBool
	KindNull
)

func (k Kind) String() string {
	switch k {
	case KindBeginObject:
		return "{"
	case KindEndObject:
		return "}"
	case KindBeginArray:
		return "["
	case KindEndArray:
		return "]"
	case KindKey:
		return "key"
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindBool:
		return "bool"
	case KindNull:
		return "null"
	}
	return "invalid"
}

// Token represents a streaming token with approximate input offset.
type Token struct {
	Kind   Kind
	String string // key or string value
	Number string // number literal as written
	Bool   bool
	Offset int64 // -1 when unknown
}

// TokenSource is the pull interface drivers read from.
type TokenSource interface {
	NextToken() (Token, error)
	Location() int64
}

// Next reads one token, reporting io.ErrUnexpectedEOF when the input ends
// inside a value.
func Next(src TokenSource) (Token, error) {
	tok, err := src.NextToken()
	if err == io.EOF {
		return Token{}, io.ErrUnexpectedEOF
	}
	return tok, err
}

// Skip consumes the rest of the value that starts with tok.
func Skip(src TokenSource, tok Token) error {
	depth := 0
	for {
		switch tok.Kind {
		case KindBeginObject, KindBeginArray:
			depth++
		case KindEndObject, KindEndArray:
			depth--
		}
		if depth <= 0 && tok.Kind != KindKey {
			return nil
		}
		var err error
		if tok, err = Next(src); err != nil {
			return err
		}
	}
}

// DecodeAny builds a generic tree (map[string]any, []any, string, float64,
// bool, nil) from the value that starts with tok.
func DecodeAny(src TokenSource, tok Token) (any, error) {
	switch tok.Kind {
	case KindBeginObject:
		m := make(map[string]any)
		for {
			kt, err := Next(src)
			if err != nil {
				return nil, err
			}
			if kt.Kind == KindEndObject {
				return m, nil
			}
			if kt.Kind != KindKey {
				return nil, io.ErrUnexpectedEOF
			}
			vt, err := Next(src)
			if err != nil {
				return nil, err
			}
			v, err := DecodeAny(src, vt)
			if err != nil {
				return nil, err
			}
			m[kt.String] = v
		}
	case KindBeginArray:
		arr := []any{}
		for {
			it, err := Next(src)
			if err != nil {
				return nil, err
			}
			if it.Kind == KindEndArray {
				return arr, nil
			}
			v, err := DecodeAny(src, it)
			if err != nil {
				return nil, err
			}
			arr = append(arr, v)
		}
	case KindString:
		return tok.String, nil
	case KindNumber:
		return strconv.ParseFloat(tok.Number, 64)
	case KindBool:
		return tok.Bool, nil
	case KindNull:
		return nil, nil
	}
	return nil, io.ErrUnexpectedEOF
}
