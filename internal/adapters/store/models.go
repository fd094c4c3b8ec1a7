package store

import (
	"time"

	"github.com/dkeye/Huddle/internal/domain"
)

type userModel struct {
	ID           string    `gorm:"primarykey;size:36"`
	Email        string    `gorm:"uniqueIndex;size:255;not null"`
	Username     string    `gorm:"uniqueIndex;size:36;not null"`
	PasswordHash string    `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (userModel) TableName() string { return "users" }

func (m userModel) toDomain() *domain.User {
	return &domain.User{
		ID:           domain.UserID(m.ID),
		Email:        m.Email,
		Username:     m.Username,
		PasswordHash: m.PasswordHash,
		CreatedAt:    m.CreatedAt,
	}
}

type friendRequestModel struct {
	ID         string    `gorm:"primarykey;size:36"`
	SenderID   string    `gorm:"uniqueIndex:idx_friend_pair,priority:1;size:36;not null"`
	ReceiverID string    `gorm:"uniqueIndex:idx_friend_pair,priority:2;index;size:36;not null"`
	Status     string    `gorm:"size:16;not null"`
	CreatedAt  time.Time `gorm:"not null"`

	Sender   userModel `gorm:"foreignKey:SenderID"`
	Receiver userModel `gorm:"foreignKey:ReceiverID"`
}

func (friendRequestModel) TableName() string { return "friend_requests" }

func (m friendRequestModel) toDomain() domain.FriendRequest {
	fr := domain.FriendRequest{
		ID:         m.ID,
		SenderID:   domain.UserID(m.SenderID),
		ReceiverID: domain.UserID(m.ReceiverID),
		Status:     m.Status,
		CreatedAt:  m.CreatedAt,
	}
	if m.Sender.ID != "" {
		fr.Sender = m.Sender.toDomain()
	}
	if m.Receiver.ID != "" {
		fr.Receiver = m.Receiver.toDomain()
	}
	return fr
}

type messageModel struct {
	ID        string    `gorm:"primarykey;size:36"`
	RoomID    string    `gorm:"index:idx_messages_room_created,priority:1;size:128;not null"`
	UserID    string    `gorm:"size:36"`
	Username  string    `gorm:"size:64"`
	Content   string    `gorm:"type:text;not null"`
	CreatedAt time.Time `gorm:"index:idx_messages_room_created,priority:2;not null"`
}

func (messageModel) TableName() string { return "messages" }

func (m messageModel) toDomain() domain.ChatMessage {
	return domain.ChatMessage{
		ID:        m.ID,
		RoomID:    domain.RoomID(m.RoomID),
		UserID:    domain.UserID(m.UserID),
		Username:  m.Username,
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UTC(),
	}
}
