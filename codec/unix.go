package codec

import (
	"time"

	goshape "github.com/reoring/goshape"
)

// UnixSeconds returns a proxy that builds time.Time values (UTC) from a
// count of seconds since the Unix epoch.
func UnixSeconds() *goshape.Proxy {
	return &goshape.Proxy{
		Name:  NameUnix,
		Shape: goshape.Int64,
		FromProxy: func(v any) (any, error) {
			n, ok := v.(int64)
			if !ok {
				return nil, typeError("int64", v)
			}
			return time.Unix(n, 0).UTC(), nil
		},
		ToProxy: func(v any) (any, error) {
			t, ok := v.(time.Time)
			if !ok {
				return nil, typeError("time.Time", v)
			}
			return t.Unix(), nil
		},
	}
}
