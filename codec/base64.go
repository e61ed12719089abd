package codec

import (
	"encoding/base64"

	goshape "github.com/reoring/goshape"
)

// Base64URL returns a proxy that builds byte slices from unpadded base64url
// text. Padded input is accepted too.
func Base64URL() *goshape.Proxy {
	return &goshape.Proxy{
		Name:  NameBase64URL,
		Shape: goshape.String,
		FromProxy: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, typeError("string", v)
			}
			if n := len(s); n > 0 && s[n-1] == '=' {
				return base64.URLEncoding.DecodeString(s)
			}
			return base64.RawURLEncoding.DecodeString(s)
		},
		ToProxy: func(v any) (any, error) {
			b, ok := v.([]byte)
			if !ok {
				return nil, typeError("[]byte", v)
			}
			return base64.RawURLEncoding.EncodeToString(b), nil
		},
	}
}
