package engine

import (
	goshape "github.com/reoring/goshape"
)

// Options controls the enforcement applied by Enforce.
type Options struct {
	OnDuplicate goshape.Severity // duplicate keys within one object
	MaxDepth    int              // nesting limit for objects and arrays; 0 disables
	// Warn receives duplicate keys reported at goshape.Warn severity.
	Warn func(goshape.Issue)
}

type container struct {
	object bool
	keys   map[string]struct{}
	path   string
	key    string
	next   int
}

// Enforce returns a TokenSource that rejects input nested deeper than
// MaxDepth and applies the duplicate key policy. Errors are goshape.Issues
// carrying the JSON Pointer of the offending token.
func Enforce(inner TokenSource, opt Options) TokenSource {
	return &enforcer{inner: inner, opt: opt}
}

type enforcer struct {
	inner TokenSource
	opt   Options
	stack []container
}

func (e *enforcer) NextToken() (Token, error) {
	tok, err := e.inner.NextToken()
	if err != nil {
		return Token{}, err
	}
	path := e.pathOf(tok)

	switch tok.Kind {
	case KindBeginObject, KindBeginArray:
		if e.opt.MaxDepth > 0 && len(e.stack) >= e.opt.MaxDepth {
			return Token{}, issueAt(path, goshape.CodeMaxDepth, map[string]any{"max": e.opt.MaxDepth}, tok)
		}
		c := container{object: tok.Kind == KindBeginObject, path: path}
		if c.object && e.opt.OnDuplicate != goshape.Ignore {
			c.keys = make(map[string]struct{})
		}
		e.stack = append(e.stack, c)
	case KindEndObject, KindEndArray:
		if n := len(e.stack); n > 0 {
			e.stack = e.stack[:n-1]
		}
	case KindKey:
		top := e.top()
		if top == nil || top.keys == nil {
			break
		}
		if _, dup := top.keys[tok.String]; dup {
			err := issueAt(path, goshape.CodeDuplicateKey, map[string]any{"key": tok.String}, tok)
			if e.opt.OnDuplicate == goshape.Error {
				return Token{}, err
			}
			if e.opt.Warn != nil {
				e.opt.Warn(err[0])
			}
		}
		top.keys[tok.String] = struct{}{}
	}
	return tok, nil
}

func (e *enforcer) Location() int64 { return e.inner.Location() }

func (e *enforcer) top() *container {
	if len(e.stack) == 0 {
		return nil
	}
	return &e.stack[len(e.stack)-1]
}

// pathOf returns the JSON Pointer of tok and advances the position of the
// enclosing container.
func (e *enforcer) pathOf(tok Token) string {
	top := e.top()
	if top == nil {
		return "/"
	}
	switch tok.Kind {
	case KindKey:
		top.key = tok.String
		return goshape.JoinPointer(top.path, tok.String)
	case KindEndObject, KindEndArray:
		return top.path
	}
	if top.object {
		return goshape.JoinPointer(top.path, top.key)
	}
	i := top.next
	top.next++
	return goshape.JoinIndex(top.path, i)
}

func issueAt(path, code string, params map[string]any, tok Token) goshape.Issues {
	is := goshape.NewIssue(path, code, params)
	is.Offset = tok.Offset
	return goshape.Issues{is}
}
