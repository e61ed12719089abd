package goshape

import (
	"reflect"
	"strings"
)

// ResolveStructKey applies the repository-wide rule to resolve a struct field's
// member name used by reflected shapes and PresenceMap.
// Priority: goshape:"name=..." > json tag name > field name; "-" disables the field.
func ResolveStructKey(sf reflect.StructField) string {
	if gt := sf.Tag.Get("goshape"); gt != "" {
		for _, p := range strings.Split(gt, ",") {
			p = strings.TrimSpace(p)
			if strings.HasPrefix(p, "name=") {
				return strings.TrimPrefix(p, "name=")
			}
			if p == "skip" {
				return "-"
			}
		}
	}
	if jt := sf.Tag.Get("json"); jt != "" {
		if jt == "-" {
			return "-"
		}
		if i := strings.IndexByte(jt, ','); i >= 0 {
			if jt[:i] != "" {
				return jt[:i]
			}
		} else {
			return jt
		}
	}
	return sf.Name
}

type tagOptions struct {
	name        string
	useDefault  bool    // "default": the shape's Default operation
	defaultText *string // "default=<text>": parsed with the shape's Parse operation
	proxy       string
}

// parseTag reads the goshape tag of a struct field. The default text runs to
// the end of the tag so it may contain commas when written last.
func parseTag(sf reflect.StructField) tagOptions {
	opts := tagOptions{name: ResolveStructKey(sf)}
	gt := sf.Tag.Get("goshape")
	for gt != "" {
		var p string
		if strings.HasPrefix(gt, "default=") {
			text := strings.TrimPrefix(gt, "default=")
			opts.defaultText = &text
			break
		}
		p, gt, _ = strings.Cut(gt, ",")
		switch p = strings.TrimSpace(p); {
		case p == "default":
			opts.useDefault = true
		case strings.HasPrefix(p, "proxy="):
			opts.proxy = strings.TrimPrefix(p, "proxy=")
		}
		gt = strings.TrimLeft(gt, " ")
	}
	return opts
}
