package model

import (
	"context"
	"sync"
)

// Provider hands out one process-wide Manager, built on first use.
type Provider struct {
	build func() (*Manager, error)

	once    sync.Once
	manager *Manager
	err     error
}

// NewProvider returns a Provider that calls build at most once.
func NewProvider(build func() (*Manager, error)) *Provider {
	return &Provider{build: build}
}

// Manager returns the shared manager without loading it.
func (p *Provider) Manager() (*Manager, error) {
	p.once.Do(func() {
		p.manager, p.err = p.build()
	})
	return p.manager, p.err
}

// Get returns the shared manager after making sure it is loaded. A load
// failure is returned alongside the manager so callers can still report its
// state.
func (p *Provider) Get(ctx context.Context) (*Manager, error) {
	m, err := p.Manager()
	if err != nil {
		return nil, err
	}
	return m, m.Load(ctx)
}
