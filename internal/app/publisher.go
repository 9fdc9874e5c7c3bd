package app

import (
	"errors"
	"sync"
)

var (
	ErrAlreadyPublished = errors.New("application context already published")
	ErrNilContext       = errors.New("application context is nil")
)

// Publisher hands the session's AppContext to the rest of the application.
// Publish succeeds exactly once.
type Publisher struct {
	mu        sync.RWMutex
	ctx       *AppContext
	published chan struct{}
}

func NewPublisher() *Publisher {
	return &Publisher{published: make(chan struct{})}
}

func (p *Publisher) Publish(c *AppContext) error {
	if c == nil {
		return ErrNilContext
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ctx != nil {
		return ErrAlreadyPublished
	}
	p.ctx = c
	close(p.published)
	return nil
}

// Context returns the published context, or nil before Publish.
func (p *Publisher) Context() *AppContext {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.ctx
}

// Published is closed once a context has been published.
func (p *Publisher) Published() <-chan struct{} {
	return p.published
}
