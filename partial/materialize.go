package partial

import (
	"fmt"

	"go.uber.org/zap"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/internal/arena"
	"github.com/reoring/goshape/internal/tracker"
)

// assembleSlot builds the whole value held by slot i of region id without
// consuming storage.
func (p *Partial) assembleSlot(id arena.ID, i int) (any, error) {
	s := p.arena.Slot(id, i)
	switch s.Kind {
	case arena.Value:
		return s.Value, nil
	case arena.Child:
		return p.assembleRegion(s.Child)
	}
	return nil, nil
}

func (p *Partial) assembleMembers(id arena.ID) ([]any, error) {
	vals := make([]any, p.arena.Len(id))
	for i := range vals {
		v, err := p.assembleSlot(id, i)
		if err != nil {
			return nil, err
		}
		vals[i] = v
	}
	return vals, nil
}

func (p *Partial) assembleRegion(id arena.ID) (any, error) {
	m := p.meta(id)
	if m.holder {
		return p.assembleSlot(id, 0)
	}
	s := m.shape
	switch t := m.tr.(type) {
	case *tracker.Struct:
		vals, err := p.assembleMembers(id)
		if err != nil {
			return nil, err
		}
		return goshape.AssembleStruct(s, vals)
	case *tracker.Union:
		sel, ok := t.Selected()
		if !ok {
			return nil, goshape.Issues{goshape.NewIssue("/", goshape.CodeNoVariant, nil)}
		}
		vals, err := p.assembleMembers(id)
		if err != nil {
			return nil, err
		}
		return goshape.AssembleUnion(s, sel, vals)
	case *tracker.Optional:
		if !t.HasInner() {
			return goshape.AssembleOptional(s, nil, false)
		}
		v, err := p.assembleSlot(id, 0)
		if err != nil {
			return nil, err
		}
		return goshape.AssembleOptional(s, v, true)
	case *tracker.Result:
		v, err := p.assembleSlot(id, 0)
		if err != nil {
			return nil, err
		}
		return goshape.AssembleResult(s, t.IsErr(), v)
	case *tracker.List:
		vals, err := p.assembleMembers(id)
		if err != nil {
			return nil, err
		}
		return goshape.AssembleList(s, vals)
	case *tracker.Map:
		vals, err := p.assembleMembers(id)
		if err != nil {
			return nil, err
		}
		keys := make([]any, 0, len(vals)/2)
		mvals := make([]any, 0, len(vals)/2)
		for i := 0; i+1 < len(vals); i += 2 {
			keys = append(keys, vals[i])
			mvals = append(mvals, vals[i+1])
		}
		return goshape.AssembleMap(s, keys, mvals)
	}
	return nil, fmt.Errorf("partial: region of %s has no tracker", s.Name())
}

// Materialize checks that the root is complete and returns the built value.
// The builder is consumed: ownership of every value passes to the result.
func (p *Partial) Materialize() (goshape.Value, error) {
	if err := p.ready(); err != nil {
		return goshape.Value{}, err
	}
	if len(p.stack) != 1 {
		return goshape.Value{}, p.fail(p.issue(goshape.CodeInvalidState, map[string]any{"reason": fmt.Sprintf("%d frames still open", len(p.stack)-1)}))
	}
	if p.deferred != nil {
		return goshape.Value{}, p.fail(p.issue(goshape.CodeInvalidState, map[string]any{"reason": "deferred region still active"}))
	}
	root := p.top()
	if err := p.completeFrame(root); err != nil {
		return goshape.Value{}, p.fail(err)
	}
	v, err := p.assembleSlot(p.root, 0)
	if err != nil {
		return goshape.Value{}, p.fail(err)
	}
	p.forgetRegion(p.root)
	p.stack = nil
	p.status = statusConsumed
	p.metrics.materialized()
	p.log.Debug("materialized", zap.Stringer("shape", p.shape))
	return goshape.Value{Shape: p.shape, Data: v}, nil
}

// Build materializes p and returns the value as T. On any failure p is
// dropped.
func Build[T any](p *Partial) (T, error) {
	var zero T
	v, err := p.Materialize()
	if err != nil {
		_ = p.Drop()
		return zero, err
	}
	out, ok := v.Data.(T)
	if !ok {
		if v.Data == nil {
			return zero, nil
		}
		_ = v.Destroy()
		return zero, goshape.Issues{goshape.NewIssue("/", goshape.CodeInvalidType, map[string]any{"expected": fmt.Sprintf("%T", zero), "got": fmt.Sprintf("%T", v.Data)})}
	}
	return out, nil
}

// BuildWithMeta is Build plus the presence flags collected while building,
// filtered by Opt.Presence.
func BuildWithMeta[T any](p *Partial) (goshape.Decoded[T], error) {
	pm := p.presence
	v, err := Build[T](p)
	if err != nil {
		return goshape.Decoded[T]{}, err
	}
	return goshape.Decoded[T]{Value: v, Presence: goshape.FilterPresence(pm, p.opt.Presence)}, nil
}
