// Package memory records completion events in process, for tests and
// deployments without a message broker. Only the most recent events are kept.
package memory

import (
	"context"
	"fmt"
	"sync"
)

// DefaultCapacity is the number of events New retains.
const DefaultCapacity = 100

// Publisher keeps the last capacity published payloads for inspection.
type Publisher struct {
	mu       sync.RWMutex
	messages []PublishedMessage
	next     int
	total    int
	capacity int
	failErr  error
}

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	Topic   string
	Payload any
}

// New returns a memory Publisher holding DefaultCapacity events.
func New() *Publisher {
	return NewWithCapacity(DefaultCapacity)
}

// NewWithCapacity returns a memory Publisher holding at most capacity events.
// Non-positive values fall back to DefaultCapacity.
func NewWithCapacity(capacity int) *Publisher {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Publisher{messages: make([]PublishedMessage, 0, capacity), capacity: capacity}
}

// FailWith makes every later Publish return err. Pass nil to recover.
func (p *Publisher) FailWith(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failErr = err
}

// Publish records the message, evicting the oldest one when full, and returns
// a pseudo ID numbered over all publishes.
func (p *Publisher) Publish(_ context.Context, topic string, payload any) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil {
		return "", fmt.Errorf("publish to %s: %w", topic, p.failErr)
	}
	msg := PublishedMessage{Topic: topic, Payload: payload}
	if len(p.messages) < p.capacity {
		p.messages = append(p.messages, msg)
	} else {
		p.messages[p.next] = msg
	}
	p.next = (p.next + 1) % p.capacity
	p.total++
	return fmt.Sprintf("memory-%d", p.total), nil
}

// Messages returns the retained publishes, oldest first.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, 0, len(p.messages))
	if len(p.messages) < p.capacity {
		return append(out, p.messages...)
	}
	out = append(out, p.messages[p.next:]...)
	return append(out, p.messages[:p.next]...)
}
