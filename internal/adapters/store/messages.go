package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/dkeye/Huddle/internal/domain"
)

func (s *Store) CreateMessage(ctx context.Context, msg *domain.ChatMessage) error {
	m := messageModel{
		ID:        msg.ID,
		RoomID:    string(msg.RoomID),
		UserID:    string(msg.UserID),
		Username:  msg.Username,
		Content:   msg.Content,
		CreatedAt: msg.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to create message: %w", translate(err))
	}
	return nil
}

// ListMessages returns a room's messages oldest first. With limit > 0 only
// the newest limit messages are returned, still oldest first.
func (s *Store) ListMessages(ctx context.Context, room domain.RoomID, limit int) ([]domain.ChatMessage, error) {
	var rows []messageModel
	q := s.db.WithContext(ctx).Where("room_id = ?", string(room))
	if limit > 0 {
		q = q.Order("created_at DESC").Order("id DESC").Limit(limit)
	} else {
		q = q.Order("created_at ASC").Order("id ASC")
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	if limit > 0 {
		slices.Reverse(rows)
	}
	out := make([]domain.ChatMessage, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
