package app

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/stretchr/testify/require"
)

var errFull = errors.New("full")

// mockConn records frames. capacity < 0 means unbounded.
type mockConn struct {
	mu       sync.Mutex
	frames   []core.Frame
	capacity int
	closed   bool
}

func newMockConn() *mockConn { return &mockConn{capacity: -1} }

func (m *mockConn) TrySend(f core.Frame) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return errors.New("closed")
	}
	if m.capacity >= 0 && len(m.frames) >= m.capacity {
		return errFull
	}
	m.frames = append(m.frames, f)
	return nil
}

func (m *mockConn) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
}

func (m *mockConn) events(t *testing.T) []core.WireEvent {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.WireEvent, 0, len(m.frames))
	for _, f := range m.frames {
		var ev core.WireEvent
		require.NoError(t, json.Unmarshal(f, &ev))
		out = append(out, ev)
	}
	return out
}

func (m *mockConn) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.frames)
}
