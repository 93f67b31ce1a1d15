package manager

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"crawlproxy/internal/shared/logger"
	"crawlproxy/proxypool/model"
	"crawlproxy/proxypool/policy"
	"crawlproxy/proxypool/pool"
	"crawlproxy/proxypool/source"
)

// ErrPoolExhausted is returned once every proxy has been evicted.
var ErrPoolExhausted = pool.ErrPoolExhausted

// Manager owns the process-wide proxy pool and its selection policy.
// All methods are safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	parser *source.Parser
	pool   *pool.Pool
	policy policy.Policy
	intn   func(int) int
}

// Option configures a Manager.
type Option func(*Manager)

// WithRand sets the random index source used for proxy selection.
func WithRand(intn func(int) int) Option {
	return func(m *Manager) {
		m.intn = intn
	}
}

// New creates an unloaded manager. Call Load before selecting.
func New(opts ...Option) *Manager {
	m := &Manager{
		parser: source.NewParser(),
		pool:   pool.New(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Load builds the pool from src according to mode. List modes parse every
// line and skip malformed ones; Custom parses exactly one spec and pins it.
// On error the manager keeps its previous state.
func (m *Manager) Load(ctx context.Context, mode model.Mode, src source.Source) error {
	l := logger.WithComponent("ProxyPool/Manager")
	if src == nil {
		return fmt.Errorf("%w: no source for mode %v", source.ErrMissingProxySource, mode)
	}

	lines, err := src.Lines(ctx)
	if err != nil {
		return err
	}

	var (
		entries []model.Entry
		fixed   string
	)
	switch {
	case mode.UsesList():
		entries = m.parser.ParseList(lines)
	case mode == model.Custom:
		if len(lines) == 0 {
			return fmt.Errorf("%w: custom proxy is empty", source.ErrMissingProxySource)
		}
		e, err := m.parser.ParseCustom(lines[0])
		if err != nil {
			return err
		}
		entries = []model.Entry{e}
		fixed = e.Address
	default:
		return fmt.Errorf("unsupported proxy mode %v", mode)
	}

	p := pool.FromEntries(entries)
	if m.intn != nil {
		p.SetRand(m.intn)
	}
	if p.IsEmpty() {
		return fmt.Errorf("%w: source %s yielded no usable proxies", ErrPoolExhausted, src.Name())
	}

	pol, err := policy.New(mode, fixed)
	if err != nil {
		return err
	}
	if mode == model.Once {
		if _, err := pol.Select(p); err != nil {
			return err
		}
	}

	m.mu.Lock()
	m.pool = p
	m.policy = pol
	m.mu.Unlock()

	l.Info().
		Str("mode", mode.String()).
		Str("source", src.Name()).
		Int("count", p.Len()).
		Int("skipped", len(lines)-len(entries)).
		Msg("Proxy pool loaded.")
	return nil
}

// Select returns the address for the next request without touching the pool.
func (m *Manager) Select() (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.selectLocked()
}

func (m *Manager) selectLocked() (string, error) {
	if m.policy == nil {
		return "", errors.New("proxy pool is not loaded")
	}
	return m.policy.Select(m.pool)
}

// Next checks for exhaustion, selects an address and returns it with its
// credential, all under one lock so the entry cannot be evicted in between.
// remaining is the pool size at selection time.
func (m *Manager) Next() (entry model.Entry, remaining int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pool.IsEmpty() {
		return model.Entry{}, 0, ErrPoolExhausted
	}
	addr, err := m.selectLocked()
	if err != nil {
		return model.Entry{}, 0, err
	}
	entry, ok := m.pool.Get(addr)
	if !ok {
		// Only reachable for a custom proxy that was evicted directly.
		return model.Entry{}, 0, ErrPoolExhausted
	}
	return entry, m.pool.Len(), nil
}

// Evict removes address from the pool. Missing addresses are ignored.
func (m *Manager) Evict(address string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pool.Delete(address) && m.policy != nil {
		m.policy.OnEvict(address)
	}
}

// ReportFailure applies the mode's failover for a proxy that failed a
// request. It reports whether the proxy was evicted and how many remain.
func (m *Manager) ReportFailure(address string) (evicted bool, remaining int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.policy == nil {
		return false, m.pool.Len()
	}
	evicted = m.policy.HandleFailure(m.pool, address)
	return evicted, m.pool.Len()
}

// Mode returns the loaded selection mode.
func (m *Manager) Mode() model.Mode {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.policy == nil {
		return model.EveryRequest
	}
	return m.policy.Mode()
}

// Credential returns the stored "user:pass" for address.
func (m *Manager) Credential(address string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.pool.Get(address)
	return e.Credential, ok
}

func (m *Manager) IsEmpty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.IsEmpty()
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.Len()
}

// Addresses returns a snapshot of the pool in insertion order.
func (m *Manager) Addresses() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.pool.Addresses()
}
