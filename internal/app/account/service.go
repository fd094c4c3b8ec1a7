// Package account registers users and checks their credentials.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

var (
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidInput       = errors.New("invalid input")
)

type RegisterInput struct {
	Email    string `json:"email" binding:"required,email,max=255" validate:"required,email,max=255"`
	Username string `json:"username" binding:"required,max=36" validate:"required,max=36"`
	Password string `json:"password" binding:"required,min=6,max=72" validate:"required,min=6,max=72"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required" validate:"required"`
	Password string `json:"password" binding:"required" validate:"required"`
}

type Service struct {
	users    core.UserStore
	hasher   *PasswordHasher
	validate *validator.Validate
}

func NewService(users core.UserStore, hasher *PasswordHasher) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Username = strings.TrimSpace(in.Username)
	if err := s.validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	u, err := domain.NewUser(in.Email, in.Username)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	u.PasswordHash = hash
	u.CreatedAt = time.Now().UTC()

	if err := s.users.CreateUser(ctx, u); err != nil {
		if errors.Is(err, core.ErrAlreadyExists) {
			return nil, ErrUserExists
		}
		return nil, err
	}
	log.Info().Str("module", "app.account").Str("user", string(u.ID)).Str("username", u.Username).Msg("registered")
	return u, nil
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	u, err := s.users.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !s.hasher.Verify(in.Password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

func (s *Service) User(ctx context.Context, id domain.UserID) (*domain.User, error) {
	return s.users.FindUserByID(ctx, id)
}
