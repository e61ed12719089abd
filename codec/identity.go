package codec

import goshape "github.com/reoring/goshape"

// Identity returns a proxy whose representation is s itself. Values are
// coerced to s in both directions, which makes Identity useful to check a
// representation before it reaches a target with a different Go type of the
// same kind.
func Identity(s *goshape.Shape) *goshape.Proxy {
	return &goshape.Proxy{
		Name:      "identity(" + s.Name() + ")",
		Shape:     s,
		FromProxy: func(v any) (any, error) { return goshape.Coerce(s, v) },
		ToProxy:   func(v any) (any, error) { return goshape.Coerce(s, v) },
	}
}
