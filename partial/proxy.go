package partial

import (
	"go.uber.org/zap"

	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/internal/arena"
)

// proxyState is attached to a frame that builds a proxy representation in
// a detached scratch region. The frame's own slot is slot 0 of scratch; the
// converted value lands in (outer, outerSlot).
type proxyState struct {
	p         *goshape.Proxy
	target    *goshape.Shape
	scratch   arena.ID
	outer     arena.ID
	outerSlot int
	direct    bool // the target was set directly (field default)
}

// proxyFrame returns a frame building target through px. The caller has
// already emptied the target slot; it is filled when the frame ends.
func (p *Partial) proxyFrame(px *goshape.Proxy, target *goshape.Shape, outer arena.ID, slot int) *frame {
	scratch := p.arena.Alloc(regionMeta{shape: px.Shape, holder: true}, 1)
	return &frame{
		region: scratch,
		slot:   0,
		shape:  px.Shape,
		proxy:  &proxyState{p: px, target: target, scratch: scratch, outer: outer, outerSlot: slot},
	}
}

// convertProxy assembles the proxy value, converts it and stores the result
// in the target slot. The scratch region is released either way.
func (p *Partial) convertProxy(f *frame) error {
	ps := f.proxy
	if ps.direct {
		return p.destroyRegion(ps.scratch)
	}
	v, err := p.assembleSlot(ps.scratch, 0)
	if err != nil {
		return p.rebase(err)
	}
	out, err := ps.p.Convert(ps.target, v)
	if err != nil {
		derr := p.destroyRegion(ps.scratch)
		if derr != nil {
			p.log.Warn("destroy of rejected proxy value failed", zap.Error(derr))
		}
		return p.rebase(err)
	}
	p.forgetRegion(ps.scratch)
	coerced, err := goshape.Coerce(ps.target, out)
	if err != nil {
		_ = ps.target.Ops().Destroy(out)
		return p.rebase(err)
	}
	if derr := p.destroyAt(ps.outer, ps.outerSlot); derr != nil {
		p.log.Warn("destroy of replaced value failed", zap.String("path", f.path), zap.Error(derr))
	}
	p.arena.SetValue(ps.outer, ps.outerSlot, coerced)
	return nil
}

// setProxyTarget stores v, a value of the target shape, directly into the
// target slot of proxy frame f.
func (p *Partial) setProxyTarget(f *frame, v any) error {
	ps := f.proxy
	v, err := goshape.Coerce(ps.target, v)
	if err != nil {
		return p.rebase(err)
	}
	if err := p.destroySlots(ps.scratch); err != nil {
		return err
	}
	if err := p.destroyAt(ps.outer, ps.outerSlot); err != nil {
		return err
	}
	p.arena.SetValue(ps.outer, ps.outerSlot, v)
	ps.direct = true
	return nil
}
