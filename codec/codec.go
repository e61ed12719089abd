// Package codec provides ready-made proxies: wire representations that are
// built in place of a target value and converted when the frame ends.
//
// The proxies are registered under their names on import, so struct tags can
// refer to them:
//
//	type Event struct {
//		At      time.Time     `goshape:"name=at,proxy=rfc3339"`
//		Timeout time.Duration `goshape:"name=timeout,proxy=duration"`
//	}
package codec

import (
	"fmt"

	goshape "github.com/reoring/goshape"
)

// Registered proxy names.
const (
	NameRFC3339   = "rfc3339"
	NameDuration  = "duration"
	NameBase64URL = "base64url"
	NameUnix      = "unix"
)

func init() {
	goshape.RegisterProxy(NameRFC3339, TimeRFC3339())
	goshape.RegisterProxy(NameDuration, Duration())
	goshape.RegisterProxy(NameBase64URL, Base64URL())
	goshape.RegisterProxy(NameUnix, UnixSeconds())
}

func typeError(expected string, v any) error {
	return goshape.Issues{goshape.NewIssue("/", goshape.CodeInvalidType, map[string]any{"expected": expected, "got": fmt.Sprintf("%T", v)})}
}
