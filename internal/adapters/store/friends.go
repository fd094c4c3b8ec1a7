package store

import (
	"context"
	"fmt"

	"github.com/dkeye/Huddle/internal/domain"
	"gorm.io/gorm/clause"
)

func (s *Store) CreateFriendRequest(ctx context.Context, fr *domain.FriendRequest) error {
	m := friendRequestModel{
		ID:         fr.ID,
		SenderID:   string(fr.SenderID),
		ReceiverID: string(fr.ReceiverID),
		Status:     fr.Status,
		CreatedAt:  fr.CreatedAt,
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(&m).Error; err != nil {
		return fmt.Errorf("failed to create friend request: %w", translate(err))
	}
	return nil
}

// ListFriendRequests returns requests the user sent or received, both ends loaded.
func (s *Store) ListFriendRequests(ctx context.Context, user domain.UserID) ([]domain.FriendRequest, error) {
	var rows []friendRequestModel
	err := s.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		Where("sender_id = ? OR receiver_id = ?", string(user), string(user)).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list friend requests: %w", err)
	}
	out := make([]domain.FriendRequest, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}
