package pool

import (
	"errors"
	"math/rand/v2"

	"crawlproxy/proxypool/model"
)

// ErrPoolExhausted is returned when a proxy is requested from an empty pool.
var ErrPoolExhausted = errors.New("all proxies are unusable, cannot proceed")

// Pool is an insertion-ordered mapping of proxy address to credential.
// It is not safe for concurrent use; the manager serializes access.
type Pool struct {
	order   []string
	entries map[string]string
	intn    func(int) int
}

// New creates an empty pool that draws random indexes from rand.IntN.
func New() *Pool {
	return &Pool{
		entries: make(map[string]string),
		intn:    rand.IntN,
	}
}

// FromEntries builds a pool from entries in order.
func FromEntries(entries []model.Entry) *Pool {
	p := New()
	for _, e := range entries {
		p.Put(e)
	}
	return p
}

// SetRand replaces the random index source. Used by tests.
func (p *Pool) SetRand(intn func(int) int) {
	if intn != nil {
		p.intn = intn
	}
}

// Put adds or updates an entry. An existing address keeps its position and
// takes the new credential.
func (p *Pool) Put(e model.Entry) {
	if _, exists := p.entries[e.Address]; !exists {
		p.order = append(p.order, e.Address)
	}
	p.entries[e.Address] = e.Credential
}

// Delete removes address and reports whether it was present.
// Deleting a missing address is a no-op.
func (p *Pool) Delete(address string) bool {
	if _, exists := p.entries[address]; !exists {
		return false
	}
	delete(p.entries, address)
	for i, a := range p.order {
		if a == address {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
	return true
}

// Get returns the entry for address.
func (p *Pool) Get(address string) (model.Entry, bool) {
	cred, ok := p.entries[address]
	if !ok {
		return model.Entry{}, false
	}
	return model.Entry{Address: address, Credential: cred}, true
}

// Contains reports whether address is in the pool.
func (p *Pool) Contains(address string) bool {
	_, ok := p.entries[address]
	return ok
}

func (p *Pool) Len() int {
	return len(p.order)
}

func (p *Pool) IsEmpty() bool {
	return len(p.order) == 0
}

// Random returns an address chosen uniformly from the pool.
func (p *Pool) Random() (string, error) {
	if p.IsEmpty() {
		return "", ErrPoolExhausted
	}
	return p.order[p.intn(len(p.order))], nil
}

// Addresses returns a copy of the addresses in insertion order.
func (p *Pool) Addresses() []string {
	out := make([]string, len(p.order))
	copy(out, p.order)
	return out
}
