package backplane

import (
	"context"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
)

type memSub struct {
	ch   chan core.Envelope
	quit chan struct{}
}

// Memory is an in-process bus with redis-like semantics: every subscriber
// sees every envelope in publish order.
type Memory struct {
	mu     sync.RWMutex
	subs   map[int]*memSub
	next   int
	buffer int
	closed bool
	done   chan struct{}
}

func NewMemory(buffer int) *Memory {
	return &Memory{
		subs:   make(map[int]*memSub),
		buffer: buffer,
		done:   make(chan struct{}),
	}
}

func (m *Memory) Publish(ctx context.Context, env core.Envelope) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return ErrClosed
	}
	for _, sub := range m.subs {
		select {
		case sub.ch <- env:
		case <-sub.quit:
		case <-m.done:
			return ErrClosed
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (m *Memory) Subscribe(ctx context.Context, handle func(core.Envelope)) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrClosed
	}
	id := m.next
	m.next++
	sub := &memSub{ch: make(chan core.Envelope, m.buffer), quit: make(chan struct{})}
	m.subs[id] = sub
	m.mu.Unlock()

	defer func() {
		close(sub.quit)
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-m.done:
			return nil
		case env := <-sub.ch:
			handle(env)
		}
	}
}

func (m *Memory) Distributed() bool { return true }

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	close(m.done)
	return nil
}
