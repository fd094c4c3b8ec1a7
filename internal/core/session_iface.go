package core

import "github.com/dkeye/Huddle/internal/domain"

// SessionID is the handle of one live connection.
type SessionID string

// Member is a read-only snapshot of a registered connection.
type Member struct {
	SID      SessionID
	Identity domain.UserID
	Conn     SignalConnection
}

// MemberDTO is a read-only view for APIs (no transport fields).
type MemberDTO struct {
	SID      SessionID     `json:"sid"`
	Identity domain.UserID `json:"userId,omitempty"`
}
