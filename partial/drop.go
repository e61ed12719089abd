package partial

import (
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/reoring/goshape/internal/arena"
)

// destroyAt empties slot i of region id and destroys what it held.
func (p *Partial) destroyAt(id arena.ID, i int) error {
	s := p.arena.Slot(id, i)
	switch s.Kind {
	case arena.Value:
		sh := p.slotShape(id, i)
		p.arena.Take(id, i)
		p.metrics.destroyed()
		return sh.Ops().Destroy(s.Value)
	case arena.Child:
		p.arena.Take(id, i)
		return p.destroyRegion(s.Child)
	}
	return nil
}

// destroySlots destroys every slot of region id, keeping the region.
func (p *Partial) destroySlots(id arena.ID) error {
	var err error
	for i := p.arena.Len(id) - 1; i >= 0; i-- {
		err = multierr.Append(err, p.destroyAt(id, i))
	}
	return err
}

// destroyRegion destroys the contents of region id and releases it.
func (p *Partial) destroyRegion(id arena.ID) error {
	if !p.arena.Live(id) {
		return nil
	}
	err := p.destroySlots(id)
	p.arena.Release(id)
	return err
}

// forgetRegion releases region id and its descendants without destroying
// the values; ownership has moved to an assembled value.
func (p *Partial) forgetRegion(id arena.ID) {
	for i := 0; i < p.arena.Len(id); i++ {
		if s := p.arena.Take(id, i); s.Kind == arena.Child {
			p.forgetRegion(s.Child)
		}
	}
	p.arena.Release(id)
}

// Drop abandons the value under construction: every live value reachable
// from the root, the frame stack (including detached proxy regions) and the
// deferred store is destroyed exactly once. Destroy failures are combined
// into the returned error. Drop is idempotent and is valid on a poisoned
// builder.
func (p *Partial) Drop() error {
	if p.status == statusDropped || p.status == statusConsumed {
		return nil
	}
	var err error
	for i := len(p.stack) - 1; i >= 0; i-- {
		if f := p.stack[i]; f.proxy != nil {
			err = multierr.Append(err, p.destroyRegion(f.proxy.scratch))
		}
	}
	err = multierr.Append(err, p.destroyRegion(p.root))
	p.metrics.deferredDelta(-len(p.store.Drain()))
	p.stack = nil
	p.deferred = nil
	p.status = statusDropped
	if err != nil {
		p.log.Warn("destroy failed during drop", zap.Error(err), zap.Int("failures", len(multierr.Errors(err))))
	}
	return err
}
