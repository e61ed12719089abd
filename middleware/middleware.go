// Package middleware decodes JSON request bodies into goshape values at an
// HTTP boundary and hands the result to the next handler via the context.
package middleware

import (
	"context"
	"errors"
	"io"
	"net/http"

	gojson "github.com/goccy/go-json"
	"go.uber.org/zap"

	goshape "github.com/reoring/goshape"
	gsjson "github.com/reoring/goshape/driver/json"
)

// DefaultMaxBodyBytes caps the request body when Config.MaxBodyBytes is zero.
const DefaultMaxBodyBytes = 1 << 20

// ctxKeyDecoded is a typed context key for storing Decoded[T].
// Using a generic struct type ensures uniqueness per T.
type ctxKeyDecoded[T any] struct{}

// ContextWithDecoded attaches a Decoded[T] to the context.
func ContextWithDecoded[T any](ctx context.Context, db goshape.Decoded[T]) context.Context {
	return context.WithValue(ctx, ctxKeyDecoded[T]{}, db)
}

// DecodedFromContext retrieves a Decoded[T] from context.
func DecodedFromContext[T any](ctx context.Context) (goshape.Decoded[T], bool) {
	v, ok := ctx.Value(ctxKeyDecoded[T]{}).(goshape.Decoded[T])
	return v, ok
}

// DefaultOpt returns a recommended default for HTTP JSON boundaries.
// - Duplicate keys are errors
// - Presence is collected so handlers can tell defaults from sent values
func DefaultOpt() gsjson.Opt {
	o := gsjson.Opt{
		Strictness: goshape.Strictness{OnDuplicateKey: goshape.Error},
		MaxDepth:   64,
	}
	o.Partial.Presence = goshape.PresenceOpt{Collect: true}
	return o
}

// Config configures DecodeJSON.
type Config struct {
	Opt          gsjson.Opt
	MaxBodyBytes int64 // 0 means DefaultMaxBodyBytes
	Logger       *zap.Logger
}

// DecodeJSON returns a handler that decodes the request body into T and
// calls next with the Decoded[T] attached to the request context. Bodies
// that fail to decode are answered with 400 and an ErrorPayload; bodies over
// the limit with 413.
func DecodeJSON[T any](next http.Handler, cfg Config) http.Handler {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	limit := cfg.MaxBodyBytes
	if limit <= 0 {
		limit = DefaultMaxBodyBytes
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
		if err != nil {
			log.Debug("request body rejected", zap.Error(err))
			status := http.StatusBadRequest
			var tooLarge *http.MaxBytesError
			if errors.As(err, &tooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			is := goshape.NewIssue("/", goshape.CodeParseError, nil)
			is.Hint = err.Error()
			WriteError(w, status, goshape.Issues{is})
			return
		}
		dm, err := gsjson.UnmarshalWithMeta[T](body, cfg.Opt)
		if err != nil {
			iss, ok := goshape.AsIssues(err)
			if !ok || len(iss) == 0 {
				log.Error("decode failed", zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			log.Debug("request body invalid", zap.Int("issues", len(iss)), zap.String("first", iss[0].Code))
			WriteError(w, http.StatusBadRequest, iss)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithDecoded(r.Context(), dm)))
	})
}

// IssueView is the wire form of an Issue.
type IssueView struct {
	Path    string `json:"path"`
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Hint    string `json:"hint,omitempty"`
	Offset  *int64 `json:"offset,omitempty"`
}

// ErrorPayload shapes Issues for JSON responses.
func ErrorPayload(issues goshape.Issues) map[string]any {
	views := make([]IssueView, 0, len(issues))
	for _, it := range issues {
		v := IssueView{Path: it.Path, Code: it.Code, Message: it.Message, Hint: it.Hint}
		if it.Offset >= 0 {
			off := it.Offset
			v.Offset = &off
		}
		views = append(views, v)
	}
	return map[string]any{"issues": views}
}

// WriteError writes issues as an ErrorPayload with the given status.
func WriteError(w http.ResponseWriter, status int, issues goshape.Issues) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = gojson.NewEncoder(w).Encode(ErrorPayload(issues))
}
