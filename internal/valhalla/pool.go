package valhalla

import (
	"sync"

	"valhalla/pkg/config"
)

// Pool owns the process-wide client. The composition root creates one Pool
// and passes it (or the client it opens) to collaborators.
type Pool struct {
	mu     sync.Mutex
	cfg    *config.Config
	client *Client
	open   func(*config.Config) (*Client, error)
}

func NewPool(cfg *config.Config) *Pool {
	return &Pool{cfg: cfg, open: New}
}

// Open returns the open client, constructing it on first use.
func (p *Pool) Open() (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client != nil {
		return p.client, nil
	}
	client, err := p.open(p.cfg)
	if err != nil {
		return nil, err
	}
	p.client = client
	return client, nil
}

// Close shuts the client down. A later Open builds a fresh one.
func (p *Pool) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.client == nil {
		return nil
	}
	err := p.client.Close()
	p.client = nil
	return err
}
