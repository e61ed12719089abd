package partial

import (
	goshape "github.com/reoring/goshape"
	"github.com/reoring/goshape/internal/arena"
)

// Set stores v as the value of the current frame, destroying the previous
// one. Scalars accept lossless numeric conversions; composite frames accept a
// whole value of their materialized form. Set(nil) on an optional frame is
// SetNone.
func (p *Partial) Set(v any) error {
	if err := p.ready(); err != nil {
		return err
	}
	f := p.top()
	if v == nil && f.shape.Kind() == goshape.KindOptional {
		return p.SetNone()
	}
	cv, err := goshape.Coerce(f.shape, v)
	if err != nil {
		return p.fail(p.rebase(err))
	}
	p.replace(f, cv)
	return nil
}

// SetFromText parses s with the shape's Parse operation and stores the
// result.
func (p *Partial) SetFromText(s string) error {
	if err := p.ready(); err != nil {
		return err
	}
	f := p.top()
	ops := f.shape.Ops()
	v, err := ops.Parse(s)
	if err != nil {
		return p.fail(p.wrap(err, goshape.CodeParseError))
	}
	cv, err := goshape.Coerce(f.shape, v)
	if err != nil {
		_ = ops.Destroy(v)
		return p.fail(p.rebase(err))
	}
	p.replace(f, cv)
	return nil
}

func (p *Partial) replace(f *frame, v any) {
	if f.proxy != nil {
		f.proxy.direct = false
	}
	p.discard(f.region, f.slot)
	p.arena.SetValue(f.region, f.slot, v)
}

// SetDefault stores the default of the current frame: the field-specific
// default function when the frame is a field that has one, otherwise the
// shape's Default operation. On a proxy frame the default is one of the
// target shape and bypasses the conversion.
func (p *Partial) SetDefault() error {
	if err := p.ready(); err != nil {
		return err
	}
	f := p.top()
	if f.proxy != nil {
		return p.setProxyDefault(f)
	}
	if f.field != nil && f.field.DefaultFn != nil {
		v, err := f.field.DefaultFn()
		if err != nil {
			return p.fail(p.wrap(err, goshape.CodeNoDefault))
		}
		if err := p.setOwned(f, v); err != nil {
			return p.fail(err)
		}
		p.presence.Mark(f.path, goshape.PresenceDefaultApplied)
		return nil
	}
	ops := f.shape.Ops()
	if !ops.HasDefault() {
		return p.fail(p.issue(goshape.CodeNoDefault, nil))
	}
	v, err := ops.Default()
	if err != nil {
		return p.fail(p.wrap(err, goshape.CodeNoDefault))
	}
	if err := p.setOwned(f, v); err != nil {
		return p.fail(err)
	}
	p.presence.Mark(f.path, goshape.PresenceDefaultApplied)
	return nil
}

func (p *Partial) setProxyDefault(f *frame) error {
	var (
		v   any
		err error
	)
	switch {
	case f.field != nil && f.field.DefaultFn != nil:
		v, err = f.field.DefaultFn()
	case f.proxy.target.Ops().HasDefault():
		v, err = f.proxy.target.Ops().Default()
	default:
		return p.fail(p.issue(goshape.CodeNoDefault, nil))
	}
	if err != nil {
		return p.fail(p.wrap(err, goshape.CodeNoDefault))
	}
	if err := p.setProxyTarget(f, v); err != nil {
		return p.fail(err)
	}
	p.presence.Mark(f.path, goshape.PresenceDefaultApplied)
	return nil
}

// setOwned stores a value the builder already owns; it is destroyed when it
// does not fit the frame.
func (p *Partial) setOwned(f *frame, v any) error {
	cv, err := goshape.Coerce(f.shape, v)
	if err != nil {
		_ = f.shape.Ops().Destroy(v)
		return p.rebase(err)
	}
	p.replace(f, cv)
	return nil
}

// SetFieldDefault stores the default of the named field of the current
// struct (or selected variant) without navigating into it.
func (p *Partial) SetFieldDefault(name string) error {
	if err := p.ready(); err != nil {
		return err
	}
	id, fs, err := p.fields()
	if err != nil {
		return p.fail(err)
	}
	if i, ok := p.FieldIndex(name); ok && i < len(fs) {
		return p.setFieldDefault(id, i, fs[i])
	}
	return p.fail(p.issue(goshape.CodeUnknownField, map[string]any{"name": name, "shape": p.top().shape.Name()}))
}

// SetNthFieldDefault is SetFieldDefault by position.
func (p *Partial) SetNthFieldDefault(i int) error {
	if err := p.ready(); err != nil {
		return err
	}
	id, fs, err := p.fields()
	if err != nil {
		return p.fail(err)
	}
	if i < 0 || i >= len(fs) {
		return p.fail(p.issue(goshape.CodeIndexOutOfRange, map[string]any{"index": i}))
	}
	return p.setFieldDefault(id, i, fs[i])
}

func (p *Partial) setFieldDefault(id arena.ID, i int, fd *goshape.Field) error {
	v, err := fd.DefaultValue()
	if err != nil {
		return p.fail(p.wrap(err, goshape.CodeNoDefault))
	}
	cv, err := goshape.Coerce(fd.Shape, v)
	if err != nil {
		_ = fd.Shape.Ops().Destroy(v)
		return p.fail(goshape.Rebase(err, goshape.JoinPointer(p.Path(), fd.Name)))
	}
	p.discard(id, i)
	p.arena.SetValue(id, i, cv)
	p.meta(id).tr.(fieldTracker).Mark(i)
	p.presence.Mark(goshape.JoinPointer(p.Path(), fd.Name), goshape.PresenceDefaultApplied)
	return nil
}
