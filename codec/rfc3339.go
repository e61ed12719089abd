package codec

import (
	"time"

	goshape "github.com/reoring/goshape"
)

// TimeRFC3339 returns a proxy that builds time.Time values from RFC3339
// strings. The reverse conversion normalizes to UTC.
func TimeRFC3339() *goshape.Proxy {
	return &goshape.Proxy{
		Name:  NameRFC3339,
		Shape: goshape.String,
		FromProxy: func(v any) (any, error) {
			s, ok := v.(string)
			if !ok {
				return nil, typeError("string", v)
			}
			return parseRFC3339(s)
		},
		ToProxy: func(v any) (any, error) {
			t, ok := v.(time.Time)
			if !ok {
				return nil, typeError("time.Time", v)
			}
			return formatRFC3339Canonical(t), nil
		},
	}
}

func parseRFC3339(s string) (time.Time, error) {
	// RFC3339Nano accepts omitted fractional seconds as well.
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		if t2, err2 := time.Parse(time.RFC3339, s); err2 == nil {
			return t2, nil
		}
		return time.Time{}, err
	}
	return t, nil
}

func formatRFC3339Canonical(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
