package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "test.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newUser(t *testing.T, name string) *domain.User {
	t.Helper()
	u, err := domain.NewUser(name+"@example.com", name)
	require.NoError(t, err)
	u.PasswordHash = "hash"
	u.CreatedAt = time.Now().UTC()
	return u
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(config.DatabaseConfig{Driver: "oracle"})
	assert.Error(t, err)
}

func TestStore_Ping(t *testing.T) {
	s := setupStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestUsers_CreateAndFind(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := newUser(t, "alice")
	require.NoError(t, s.CreateUser(ctx, u))

	byID, err := s.FindUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", byID.Username)
	assert.Equal(t, "hash", byID.PasswordHash)

	byEmail, err := s.FindUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byEmail.ID)

	byName, err := s.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	_, err = s.FindUserByUsername(ctx, "nobody")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUsers_DuplicateEmail(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	require.NoError(t, s.CreateUser(ctx, newUser(t, "alice")))

	dup := newUser(t, "alice2")
	dup.Email = "alice@example.com"
	assert.ErrorIs(t, s.CreateUser(ctx, dup), ErrAlreadyExists)
}

func TestFriendRequests(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	alice, bob, carol := newUser(t, "alice"), newUser(t, "bob"), newUser(t, "carol")
	for _, u := range []*domain.User{alice, bob, carol} {
		require.NoError(t, s.CreateUser(ctx, u))
	}

	fr := &domain.FriendRequest{
		ID:         uuid.NewString(),
		SenderID:   alice.ID,
		ReceiverID: bob.ID,
		Status:     domain.FriendPending,
		CreatedAt:  time.Now().UTC(),
	}
	require.NoError(t, s.CreateFriendRequest(ctx, fr))

	dup := *fr
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.CreateFriendRequest(ctx, &dup), ErrAlreadyExists)

	for _, id := range []domain.UserID{alice.ID, bob.ID} {
		list, err := s.ListFriendRequests(ctx, id)
		require.NoError(t, err)
		require.Len(t, list, 1)
		require.NotNil(t, list[0].Sender)
		require.NotNil(t, list[0].Receiver)
		assert.Equal(t, "alice", list[0].Sender.Username)
		assert.Equal(t, "bob", list[0].Receiver.Username)
	}

	list, err := s.ListFriendRequests(ctx, carol.ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMessages_OrderedByCreation(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	// Inserted out of order on purpose.
	for _, tc := range []struct {
		content string
		offset  time.Duration
		room    domain.RoomID
	}{
		{"third", 3 * time.Second, "r1"},
		{"first", 1 * time.Second, "r1"},
		{"other", 2 * time.Second, "r2"},
		{"second", 2 * time.Second, "r1"},
	} {
		require.NoError(t, s.CreateMessage(ctx, &domain.ChatMessage{
			ID:        uuid.NewString(),
			RoomID:    tc.room,
			UserID:    "u1",
			Username:  "alice",
			Content:   tc.content,
			CreatedAt: base.Add(tc.offset),
		}))
	}

	all, err := s.ListMessages(ctx, "r1", 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"first", "second", "third"}, contents(all))
	assert.True(t, all[0].CreatedAt.Equal(base.Add(time.Second)))

	newest, err := s.ListMessages(ctx, "r1", 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "third"}, contents(newest))

	empty, err := s.ListMessages(ctx, "nowhere", 0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func contents(msgs []domain.ChatMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Content)
	}
	return out
}
