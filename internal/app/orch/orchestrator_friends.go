package orch

import (
	"context"
	"fmt"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// AddFriend records a request and tells the target's live connections to
// refetch their friend list.
func (o *Orchestrator) AddFriend(ctx context.Context, me domain.UserID, targetUsername string) (*domain.FriendRequest, error) {
	sender, err := o.Store.FindUserByID(ctx, me)
	if err != nil {
		return nil, fmt.Errorf("find sender: %w", err)
	}
	target, err := o.Store.FindUserByUsername(ctx, targetUsername)
	if err != nil {
		return nil, fmt.Errorf("find target: %w", err)
	}
	if target.ID == sender.ID {
		return nil, ErrSelfFriend
	}

	fr := &domain.FriendRequest{
		ID:         uuid.NewString(),
		SenderID:   sender.ID,
		ReceiverID: target.ID,
		Status:     domain.FriendPending,
		CreatedAt:  time.Now().UTC(),
	}
	if err := o.Store.CreateFriendRequest(ctx, fr); err != nil {
		return nil, fmt.Errorf("create friend request: %w", err)
	}

	d := o.Hub.Unicast(ctx, target.ID, core.EventUpdateFriends, nil)
	log.Info().Str("module", "app.orch").Str("from", string(sender.ID)).Str("to", string(target.ID)).Int("notified", d.Delivered).Msg("friend request")
	return fr, nil
}

func (o *Orchestrator) Friends(ctx context.Context, user domain.UserID) ([]domain.FriendRequest, error) {
	list, err := o.Store.ListFriendRequests(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	return list, nil
}
