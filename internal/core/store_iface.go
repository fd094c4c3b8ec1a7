package core

import (
	"context"

	"github.com/dkeye/Huddle/internal/domain"
)

type MessageStore interface {
	CreateMessage(ctx context.Context, msg *domain.ChatMessage) error
	// ListMessages returns messages in ascending creation order.
	// limit > 0 keeps the newest limit messages.
	ListMessages(ctx context.Context, room domain.RoomID, limit int) ([]domain.ChatMessage, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, u *domain.User) error
	FindUserByID(ctx context.Context, id domain.UserID) (*domain.User, error)
	FindUserByEmail(ctx context.Context, email string) (*domain.User, error)
	FindUserByUsername(ctx context.Context, username string) (*domain.User, error)
}

type FriendStore interface {
	CreateFriendRequest(ctx context.Context, fr *domain.FriendRequest) error
	ListFriendRequests(ctx context.Context, user domain.UserID) ([]domain.FriendRequest, error)
}

type Store interface {
	MessageStore
	UserStore
	FriendStore
}
