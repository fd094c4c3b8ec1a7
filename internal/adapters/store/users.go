package store

import (
	"context"
	"fmt"

	"github.com/dkeye/Huddle/internal/domain"
)

func (s *Store) CreateUser(ctx context.Context, u *domain.User) error {
	m := userModel{
		ID:           string(u.ID),
		Email:        u.Email,
		Username:     u.Username,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", translate(err))
	}
	u.CreatedAt = m.CreatedAt
	return nil
}

func (s *Store) FindUserByID(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return s.findUser(ctx, "id = ?", string(id))
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findUser(ctx, "username = ?", username)
}

func (s *Store) findUser(ctx context.Context, query string, arg string) (*domain.User, error) {
	var m userModel
	if err := s.db.WithContext(ctx).First(&m, query, arg).Error; err != nil {
		return nil, fmt.Errorf("failed to find user: %w", translate(err))
	}
	return m.toDomain(), nil
}
