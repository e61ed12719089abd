package codec

import (
	"time"

	goshape "github.com/reoring/goshape"
)

// Duration returns a proxy that builds time.Duration values from strings
// such as "1h30m".
func Duration() *goshape.Proxy {
	return &goshape.Proxy{
		Name:  NameDuration,
		Shape: goshape.String,
		FromProxy: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, typeError("string", v)
			}
			return time.ParseDuration(s)
		},
		ToProxy: func(v any) (any, error) {
			d, ok := v.(time.Duration)
			if !ok {
				return nil, typeError("time.Duration", v)
			}
			return d.String(), nil
		},
	}
}
