package goshape

import (
	"errors"
	"fmt"
	"strings"

	"github.com/reoring/goshape/i18n"
)

// Issue codes (exported consts for IDE completion and type safety by convention)
const (
	// Navigation
	CodeUnknownField    = "unknown_field"
	CodeUnknownVariant  = "unknown_variant"
	CodeIndexOutOfRange = "index_out_of_range"
	CodeKindMismatch    = "kind_mismatch"
	CodeNoVariant       = "no_variant_selected"
	CodeNesting         = "nesting"
	CodeInvalidType     = "invalid_type"
	CodeParseError      = "parse_error"
	CodeMaxDepth        = "max_depth"
	// Reported by format drivers
	CodeUnknownKey   = "unknown_key"
	CodeDuplicateKey = "duplicate_key"
	// Completion
	CodeRequired   = "required"
	CodeNoDefault  = "no_default"
	CodeIncomplete = "incomplete"
	// Substitution
	CodeProxyFailed = "proxy_failed"
	// Builder state
	CodeInvalidState   = "invalid_state"
	CodePoisoned       = "poisoned"
	CodeDeferredNested = "deferred_nested"
	CodeInvalidShape   = "invalid_shape"
)

// Category groups issue codes by the taxonomy drivers react to.
type Category int

const (
	CategoryUnknown Category = iota
	CategoryNavigation
	CategoryCompletion
	CategorySubstitution
	CategoryState
)

func (c Category) String() string {
	switch c {
	case CategoryNavigation:
		return "navigation"
	case CategoryCompletion:
		return "completion"
	case CategorySubstitution:
		return "substitution"
	case CategoryState:
		return "state"
	}
	return "unknown"
}

// CategoryOf maps an issue code to its Category.
func CategoryOf(code string) Category {
	switch code {
	case CodeUnknownField, CodeUnknownVariant, CodeIndexOutOfRange, CodeKindMismatch,
		CodeNoVariant, CodeNesting, CodeInvalidType, CodeParseError, CodeMaxDepth,
		CodeUnknownKey, CodeDuplicateKey:
		return CategoryNavigation
	case CodeRequired, CodeNoDefault, CodeIncomplete:
		return CategoryCompletion
	case CodeProxyFailed:
		return CategorySubstitution
	case CodeInvalidState, CodePoisoned, CodeDeferredNested, CodeInvalidShape:
		return CategoryState
	}
	return CategoryUnknown
}

// Issue represents a single construction error.
type Issue struct {
	Path    string // JSON Pointer of the frame the operation addressed (for example: /items/2/price).
	Code    string // One of the codes listed above.
	Message string
	Hint    string // Optional: remediation hints, member names, etc.
	Cause   error  // Optional: underlying error.
	Offset  int64  // Byte offset in the driver's input (-1 when unknown).
	// Params carries structured parameters (e.g., {"name":"y", "shape":"Point"})
	// for i18n and observability.
	Params map[string]any
}

// NewIssue builds an Issue whose message is rendered by the current i18n
// translator from code and params.
func NewIssue(path, code string, params map[string]any) Issue {
	var data map[string]string
	if len(params) > 0 {
		data = make(map[string]string, len(params))
		for k, v := range params {
			data[k] = fmt.Sprint(v)
		}
	}
	if path == "" {
		path = "/"
	}
	return Issue{Path: path, Code: code, Message: i18n.T(code, data), Offset: -1, Params: params}
}

// Issues is a collection of construction errors that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(iss)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := iss[i]
		// e.g. required at /y: required member y missing
		fmt.Fprintf(b, "%s at %s", it.Code, it.Path)
		if it.Message != "" && it.Message != it.Code {
			fmt.Fprintf(b, ": %s", it.Message)
		}
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// Unwrap exposes the causes so errors.Is/As see through proxy failures.
func (iss Issues) Unwrap() []error {
	var errs []error
	for _, it := range iss {
		if it.Cause != nil {
			errs = append(errs, it.Cause)
		}
	}
	return errs
}

// AppendIssues appends issues to the destination, initializing the slice when
// needed.
func AppendIssues(dst Issues, more ...Issue) Issues {
	if dst == nil {
		dst = Issues{}
	}
	dst = append(dst, more...)
	return dst
}

// AsIssues extracts Issues from an error using errors.As internally.
func AsIssues(err error) (Issues, bool) {
	if err == nil {
		return nil, false
	}
	var iss Issues
	if errors.As(err, &iss) {
		return iss, true
	}
	return nil, false
}

// CodeOf returns the code of the first issue carried by err, or "" when err
// carries none.
func CodeOf(err error) string {
	if iss, ok := AsIssues(err); ok && len(iss) > 0 {
		return iss[0].Code
	}
	return ""
}

// IsNavigation reports whether err is a navigation error.
func IsNavigation(err error) bool { return CategoryOf(CodeOf(err)) == CategoryNavigation }

// IsCompletion reports whether err is a completion error.
func IsCompletion(err error) bool { return CategoryOf(CodeOf(err)) == CategoryCompletion }

// IsSubstitution reports whether err is a proxy substitution error.
func IsSubstitution(err error) bool { return CategoryOf(CodeOf(err)) == CategorySubstitution }
