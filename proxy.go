package goshape

import (
	"fmt"
	"sync"
)

// Proxy is an alternate representation substituted for a target shape while
// a value is being built (and while it is encoded). Builders construct the
// Shape's representation and hand the finished value to FromProxy.
type Proxy struct {
	Name  string
	Shape *Shape

	FromProxy func(v any) (any, error) // proxy -> target
	ToProxy   func(v any) (any, error) // target -> proxy; optional
}

// Convert runs FromProxy and wraps a failure as a substitution Issue naming
// both shapes.
func (p *Proxy) Convert(target *Shape, v any) (any, error) {
	out, err := p.FromProxy(v)
	if err != nil {
		return nil, p.failure(target, err)
	}
	return out, nil
}

// Reverse runs ToProxy, when available.
func (p *Proxy) Reverse(target *Shape, v any) (any, error) {
	if p.ToProxy == nil {
		return nil, p.failure(target, fmt.Errorf("proxy %s has no reverse conversion", p.Name))
	}
	out, err := p.ToProxy(v)
	if err != nil {
		return nil, p.failure(target, err)
	}
	return out, nil
}

func (p *Proxy) failure(target *Shape, cause error) error {
	tname := "<nil>"
	if target != nil {
		tname = target.Name()
	}
	is := NewIssue("/", CodeProxyFailed, map[string]any{"proxy": p.Shape.Name(), "target": tname})
	is.Hint = cause.Error()
	is.Cause = cause
	return Issues{is}
}

var (
	proxyMu  sync.RWMutex
	proxyReg = map[string]*Proxy{}
)

// RegisterProxy makes p available under name to struct tags
// (goshape:"proxy=<name>"). Registering a name twice replaces the entry.
func RegisterProxy(name string, p *Proxy) {
	proxyMu.Lock()
	defer proxyMu.Unlock()
	proxyReg[name] = p
}

// LookupProxy returns the proxy registered under name.
func LookupProxy(name string) (*Proxy, bool) {
	proxyMu.RLock()
	defer proxyMu.RUnlock()
	p, ok := proxyReg[name]
	return p, ok
}
