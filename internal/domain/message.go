package domain

import (
	"errors"
	"time"
)

var (
	ErrContentEmpty   = errors.New("content empty")
	ErrContentTooLong = errors.New("content too long")
)

// ChatMessage is immutable once persisted.
type ChatMessage struct {
	ID        string    `json:"id"`
	RoomID    RoomID    `json:"roomId"`
	UserID    UserID    `json:"userId"`
	Username  string    `json:"username"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

func ValidateContent(content string, max int) error {
	if content == "" {
		return ErrContentEmpty
	}
	if max > 0 && len(content) > max {
		return ErrContentTooLong
	}
	return nil
}
