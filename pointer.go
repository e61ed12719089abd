package goshape

import (
	"strconv"
	"strings"
)

var (
	pointerEscaper   = strings.NewReplacer("~", "~0", "/", "~1")
	pointerUnescaper = strings.NewReplacer("~1", "/", "~0", "~")
)

// EscapePointer escapes one JSON Pointer reference token per RFC 6901.
func EscapePointer(token string) string { return pointerEscaper.Replace(token) }

// UnescapePointer reverses EscapePointer.
func UnescapePointer(token string) string { return pointerUnescaper.Replace(token) }

// JoinPointer appends one unescaped token to a JSON Pointer ("/" is the root).
func JoinPointer(base, token string) string {
	if base == "" || base == "/" {
		return "/" + EscapePointer(token)
	}
	return base + "/" + EscapePointer(token)
}

// JoinIndex appends an index token to a JSON Pointer.
func JoinIndex(base string, i int) string {
	return JoinPointer(base, strconv.Itoa(i))
}

// SplitPointer returns the unescaped tokens of a JSON Pointer.
func SplitPointer(p string) []string {
	if p == "" || p == "/" {
		return nil
	}
	parts := strings.Split(strings.TrimPrefix(p, "/"), "/")
	for i, s := range parts {
		parts[i] = UnescapePointer(s)
	}
	return parts
}

// Rebase prefixes the path of every issue in err that was reported relative
// to a nested value with base. Errors that are not Issues are returned as is.
func Rebase(err error, base string) error {
	iss, ok := AsIssues(err)
	if !ok || base == "" || base == "/" {
		return err
	}
	out := make(Issues, len(iss))
	for i, it := range iss {
		if it.Path == "" || it.Path == "/" {
			it.Path = base
		} else {
			it.Path = strings.TrimSuffix(base, "/") + it.Path
		}
		out[i] = it
	}
	return out
}
