package orch

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"testing"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/stretchr/testify/require"
)

type mockConn struct {
	mu     sync.Mutex
	frames []core.WireEvent

	// onSend runs on the sender's goroutine after the frame is recorded.
	onSend func(core.WireEvent)
}

func (m *mockConn) TrySend(f core.Frame) error {
	var ev core.WireEvent
	if err := json.Unmarshal(f, &ev); err != nil {
		return err
	}
	m.mu.Lock()
	m.frames = append(m.frames, ev)
	m.mu.Unlock()
	if m.onSend != nil {
		m.onSend(ev)
	}
	return nil
}

func (m *mockConn) Close() {}

func (m *mockConn) received() []core.WireEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]core.WireEvent(nil), m.frames...)
}

func (m *mockConn) named(event string) []core.WireEvent {
	var out []core.WireEvent
	for _, ev := range m.received() {
		if ev.Event == event {
			out = append(out, ev)
		}
	}
	return out
}

// memStore is an in-memory core.Store.
type memStore struct {
	mu       sync.Mutex
	messages []domain.ChatMessage
	users    map[domain.UserID]*domain.User
	friends  []domain.FriendRequest
	failNext error
}

func newMemStore() *memStore {
	return &memStore{users: make(map[domain.UserID]*domain.User)}
}

func (s *memStore) CreateMessage(_ context.Context, msg *domain.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failNext != nil {
		err := s.failNext
		s.failNext = nil
		return err
	}
	s.messages = append(s.messages, *msg)
	return nil
}

func (s *memStore) ListMessages(_ context.Context, room domain.RoomID, limit int) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.ChatMessage
	for _, m := range s.messages {
		if m.RoomID == room {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (s *memStore) CreateUser(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *memStore) FindUserByID(_ context.Context, id domain.UserID) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, core.ErrNotFound
}

func (s *memStore) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *memStore) FindUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, core.ErrNotFound
}

func (s *memStore) CreateFriendRequest(_ context.Context, fr *domain.FriendRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, f := range s.friends {
		if f.SenderID == fr.SenderID && f.ReceiverID == fr.ReceiverID {
			return core.ErrAlreadyExists
		}
	}
	s.friends = append(s.friends, *fr)
	return nil
}

func (s *memStore) ListFriendRequests(_ context.Context, user domain.UserID) ([]domain.FriendRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []domain.FriendRequest
	for _, f := range s.friends {
		if f.SenderID == user || f.ReceiverID == user {
			out = append(out, f)
		}
	}
	return out, nil
}

var errDiskFull = errors.New("disk full")

type fixture struct {
	orch  *Orchestrator
	store *memStore
	reg   *app.Registry
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	reg := app.NewRegistry()
	hub := app.NewHub(reg, nil, nil, nil)
	store := newMemStore()
	o := New(hub, store, opts, nil)
	t.Cleanup(o.Close)
	return &fixture{orch: o, store: store, reg: reg}
}

func (f *fixture) connect(identity domain.UserID, rooms ...domain.RoomID) (core.SessionID, *mockConn) {
	conn := &mockConn{}
	sid := f.reg.Register(conn, identity, nil)
	for _, r := range rooms {
		f.reg.Join(sid, r)
	}
	return sid, conn
}

func decode[T any](t *testing.T, ev core.WireEvent) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(ev.Data, &v))
	return v
}
