// Package partial builds values of a goshape.Shape incrementally.
//
// A Partial is driven member by member: navigation calls (BeginField,
// BeginSome, BeginListItem, ...) push a frame for the member being filled,
// Set/SetFromText/SetDefault store leaf values and End pops the frame after
// checking it is complete. Materialize hands back the finished value.
//
// Storage lives in an arena of regions, one per composite value under
// construction. Every live value is owned by exactly one slot, so values are
// destroyed exactly once whether they are overwritten, deselected or
// abandoned by Drop.
//
// A Partial is not safe for concurrent use.
package partial

import (
	"go.uber.org/zap"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/internal/arena"
	"github.com/reoring/goshape/internal/pathstore"
)

// DefaultMaxDepth bounds the frame stack when Opt.MaxDepth is zero.
const DefaultMaxDepth = 512

// Opt configures a Partial. When several are passed to Alloc the last one
// wins.
type Opt struct {
	Logger   *zap.Logger // nil: zap.NewNop()
	Metrics  *Metrics    // nil: no metrics
	MaxDepth int         // frame stack limit; 0 means DefaultMaxDepth
	Presence goshape.PresenceOpt
}

type status uint8

const (
	statusActive status = iota
	statusPoisoned
	statusConsumed
	statusDropped
)

// Partial is a value under construction.
type Partial struct {
	shape  *goshape.Shape
	arena  *arena.Arena[regionMeta]
	root   arena.ID
	stack  []*frame
	status status

	deferred *deferredState
	store    *pathstore.Store[*frame]

	presence goshape.PresenceMap
	opt      Opt
	log      *zap.Logger
	metrics  *Metrics
}

// Alloc starts building a value of shape s.
func Alloc(s *goshape.Shape, opts ...Opt) (*Partial, error) {
	if s == nil {
		return nil, goshape.Issues{goshape.NewIssue("/", goshape.CodeInvalidShape, map[string]any{"reason": "nil shape"})}
	}
	var o Opt
	if len(opts) > 0 {
		o = opts[len(opts)-1]
	}
	if o.MaxDepth <= 0 {
		o.MaxDepth = DefaultMaxDepth
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}
	p := &Partial{
		shape:   s,
		arena:   arena.New[regionMeta](),
		store:   pathstore.New[*frame](),
		opt:     o,
		log:     log.Named("partial"),
		metrics: o.Metrics,
	}
	if o.Presence.Collect {
		p.presence = goshape.PresenceMap{}
	}
	p.root = p.arena.Alloc(regionMeta{shape: s, holder: true}, 1)
	p.push(&frame{region: p.root, slot: 0, shape: s, via: viaRoot, path: "/"})
	return p, nil
}

// AllocOf starts building a value of the shape derived from T.
func AllocOf[T any](opts ...Opt) (*Partial, error) {
	s, err := goshape.ShapeOf[T]()
	if err != nil {
		return nil, err
	}
	return Alloc(s, opts...)
}

// Shape returns the shape of the current frame.
func (p *Partial) Shape() *goshape.Shape {
	if len(p.stack) == 0 {
		return p.shape
	}
	return p.top().shape
}

// Depth returns the number of frames on the stack; 1 at the root.
func (p *Partial) Depth() int { return len(p.stack) }

// Path returns the JSON Pointer of the current frame ("/" at the root).
func (p *Partial) Path() string {
	if len(p.stack) == 0 {
		return "/"
	}
	return p.top().path
}

// Presence returns the presence flags collected so far, or nil when
// collection is disabled.
func (p *Partial) Presence() goshape.PresenceMap { return p.presence }

// Poisoned reports whether an earlier operation failed.
func (p *Partial) Poisoned() bool { return p.status == statusPoisoned }

func (p *Partial) top() *frame { return p.stack[len(p.stack)-1] }

func (p *Partial) push(f *frame) {
	p.stack = append(p.stack, f)
	p.presence.Mark(f.path, goshape.PresenceSeen)
	p.metrics.framePushed()
	p.log.Debug("push", zap.String("path", f.path), zap.Stringer("shape", f.shape), zap.Int("depth", len(p.stack)))
}

func (p *Partial) pop() *frame {
	f := p.top()
	p.stack = p.stack[:len(p.stack)-1]
	p.log.Debug("pop", zap.String("path", f.path), zap.Int("depth", len(p.stack)))
	return f
}

// ready guards every mutating operation.
func (p *Partial) ready() error {
	switch p.status {
	case statusPoisoned:
		return p.issue(goshape.CodePoisoned, nil)
	case statusConsumed, statusDropped:
		return p.issue(goshape.CodeInvalidState, map[string]any{"reason": "builder is no longer usable"})
	}
	return nil
}

// fail poisons the builder and returns err.
func (p *Partial) fail(err error) error {
	if err == nil {
		return nil
	}
	if p.status == statusActive {
		p.status = statusPoisoned
	}
	p.metrics.failed(goshape.CodeOf(err))
	p.log.Debug("operation failed", zap.String("path", p.Path()), zap.Error(err))
	return err
}

// issue builds a single Issue at the current path.
func (p *Partial) issue(code string, params map[string]any) error {
	return goshape.Issues{goshape.NewIssue(p.Path(), code, params)}
}

// rebase places issues reported relative to a value at the current path.
func (p *Partial) rebase(err error) error { return goshape.Rebase(err, p.Path()) }

// wrap rebases Issues to the current path and turns any other error into an
// Issue with code.
func (p *Partial) wrap(err error, code string) error {
	if _, ok := goshape.AsIssues(err); ok {
		return p.rebase(err)
	}
	is := goshape.NewIssue(p.Path(), code, nil)
	is.Hint = err.Error()
	is.Cause = err
	return goshape.Issues{is}
}
