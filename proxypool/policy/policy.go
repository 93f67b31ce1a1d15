// Package policy decides which pooled proxy the next request uses.
package policy

import (
	"fmt"

	"crawlproxy/proxypool/model"
	"crawlproxy/proxypool/pool"
)

// Policy is the selection strategy for one Mode. Implementations hold the
// mode's selection state; callers serialize access together with the pool.
type Policy interface {
	Mode() model.Mode
	// Select returns the address for the next request. It may update the
	// policy's own state but never mutates the pool.
	Select(p *pool.Pool) (string, error)
	// OnEvict is called after address was removed from the pool.
	OnEvict(address string)
	// HandleFailure applies the mode's reaction to a failed proxy and reports
	// whether the address was evicted.
	HandleFailure(p *pool.Pool, address string) bool
}

// New returns the policy for mode. fixed is the pinned address, used only by
// Custom.
func New(mode model.Mode, fixed string) (Policy, error) {
	switch mode {
	case model.EveryRequest:
		return &everyRequest{}, nil
	case model.Once:
		return &once{}, nil
	case model.Custom:
		if fixed == "" {
			return nil, fmt.Errorf("custom policy needs a proxy address")
		}
		return &custom{address: fixed}, nil
	}
	return nil, fmt.Errorf("unsupported proxy mode %v", mode)
}

// everyRequest is stateless: every call draws from the whole pool.
type everyRequest struct{}

func (*everyRequest) Mode() model.Mode { return model.EveryRequest }

func (*everyRequest) Select(p *pool.Pool) (string, error) {
	return p.Random()
}

func (*everyRequest) OnEvict(string) {}

func (e *everyRequest) HandleFailure(p *pool.Pool, address string) bool {
	evicted := p.Delete(address)
	e.OnEvict(address)
	return evicted
}

// once sticks to one randomly drawn address until that address is evicted.
type once struct {
	sticky string
}

func (*once) Mode() model.Mode { return model.Once }

func (o *once) Select(p *pool.Pool) (string, error) {
	if o.sticky != "" {
		return o.sticky, nil
	}
	addr, err := p.Random()
	if err != nil {
		return "", err
	}
	o.sticky = addr
	return addr, nil
}

func (o *once) OnEvict(address string) {
	if address == o.sticky {
		o.sticky = ""
	}
}

// HandleFailure evicts address and immediately draws the next sticky proxy,
// unless the pool has run dry.
func (o *once) HandleFailure(p *pool.Pool, address string) bool {
	evicted := p.Delete(address)
	o.OnEvict(address)
	if !p.IsEmpty() {
		_, _ = o.Select(p)
	}
	return evicted
}

// Sticky returns the current sticky address, empty when unset.
func (o *once) Sticky() string {
	return o.sticky
}

// custom always hands out the configured proxy. There is nothing to fail
// over to, so failures never evict it.
type custom struct {
	address string
}

func (*custom) Mode() model.Mode { return model.Custom }

func (c *custom) Select(*pool.Pool) (string, error) {
	return c.address, nil
}

func (*custom) OnEvict(string) {}

func (*custom) HandleFailure(*pool.Pool, string) bool {
	return false
}
