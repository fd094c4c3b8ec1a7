package domain

import "time"

const FriendPending = "pending"

// FriendRequest is a directed edge sender -> receiver.
type FriendRequest struct {
	ID         string    `json:"id"`
	SenderID   UserID    `json:"senderId"`
	ReceiverID UserID    `json:"receiverId"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	Sender     *User     `json:"sender,omitempty"`
	Receiver   *User     `json:"receiver,omitempty"`
}
