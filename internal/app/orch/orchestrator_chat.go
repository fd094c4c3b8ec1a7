package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type SendMessagePayload struct {
	RoomID   string `json:"roomId" validate:"required,max=128"`
	UserID   string `json:"userId" validate:"max=36"`
	Username string `json:"username" validate:"max=64"`
	Content  string `json:"content" validate:"required"`
}

type SendFailed struct {
	RoomID domain.RoomID `json:"roomId"`
	Reason string        `json:"reason"`
}

// SendMessage persists first and only then broadcasts new_msg to the room,
// sender included. Both steps run under the room's lock so history order
// and live order agree.
func (o *Orchestrator) SendMessage(ctx context.Context, sid core.SessionID, p SendMessagePayload) (*domain.ChatMessage, error) {
	room, err := domain.ParseRoomID(p.RoomID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	if err := domain.ValidateContent(p.Content, o.opts.MaxContentLength); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	author := domain.UserID(p.UserID)
	if author == "" {
		author, _ = o.Registry.Identity(sid)
	}

	unlock := o.roomLocks.Lock(room)
	defer unlock()

	msg := &domain.ChatMessage{
		ID:        uuid.NewString(),
		RoomID:    room,
		UserID:    author,
		Username:  p.Username,
		Content:   p.Content,
		CreatedAt: o.stamp(),
	}
	if err := o.Store.CreateMessage(ctx, msg); err != nil {
		o.Metrics.Message(false)
		log.Error().Err(err).Str("module", "app.orch").Str("sid", string(sid)).Str("room", string(room)).Msg("persist message failed, not broadcasting")
		if o.opts.AckFailures {
			if ackErr := o.Hub.SendTo(sid, core.EventSendFailed, SendFailed{RoomID: room, Reason: "persist_failed"}); ackErr != nil {
				log.Debug().Err(ackErr).Str("module", "app.orch").Str("sid", string(sid)).Msg("send_failed not delivered")
			}
		}
		return nil, fmt.Errorf("persist message: %w", err)
	}
	o.Metrics.Message(true)

	d := o.Hub.Broadcast(ctx, room, core.EventNewMsg, msg, core.BroadcastOptions{})
	log.Debug().Str("module", "app.orch").Str("room", string(room)).Str("msg", msg.ID).Int("delivered", d.Delivered).Msg("new_msg")
	return msg, nil
}

// History returns stored messages oldest first.
func (o *Orchestrator) History(ctx context.Context, raw string, limit int) ([]domain.ChatMessage, error) {
	room, err := domain.ParseRoomID(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	if limit < 0 {
		return nil, fmt.Errorf("%w: negative limit", ErrBadPayload)
	}
	if ceiling := o.opts.HistoryLimit; ceiling > 0 && (limit == 0 || limit > ceiling) {
		limit = ceiling
	}
	msgs, err := o.Store.ListMessages(ctx, room, limit)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	return msgs, nil
}
