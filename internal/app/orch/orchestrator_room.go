package orch

import (
	"context"
	"fmt"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/rs/zerolog/log"
)

func (o *Orchestrator) Join(sid core.SessionID, raw string) (domain.RoomID, error) {
	room, err := domain.ParseRoomID(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	if !o.Registry.Join(sid, room) {
		log.Debug().Str("module", "app.orch").Str("sid", string(sid)).Str("room", raw).Msg("join from unknown session ignored")
	}
	return room, nil
}

func (o *Orchestrator) Leave(sid core.SessionID, raw string) (domain.RoomID, error) {
	room, err := domain.ParseRoomID(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	o.Registry.Leave(sid, room)
	return room, nil
}

func (o *Orchestrator) Identify(sid core.SessionID, raw string) (domain.UserID, error) {
	if raw == "" || len(raw) > domain.MaxUserIDLen {
		return "", fmt.Errorf("%w: invalid user id", ErrBadPayload)
	}
	id := domain.UserID(raw)
	o.Registry.SetIdentity(sid, id)
	return id, nil
}

// Disconnect tears a connection down once and cancels the calls it was
// still ringing.
func (o *Orchestrator) Disconnect(ctx context.Context, sid core.SessionID) {
	rooms := o.Registry.OnDisconnect(sid)
	if rooms == nil {
		return
	}
	if o.Calls == nil {
		return
	}
	for _, s := range o.Calls.DropCaller(sid) {
		log.Info().Str("module", "app.orch").Str("call", s.ID).Str("sid", string(sid)).Msg("caller left while ringing")
		o.Hub.Unicast(ctx, s.Callee, core.EventCallCancelled, CallReply{CallID: s.ID, From: s.Caller})
		o.Metrics.Call("abandoned")
	}
}

type RoomView struct {
	RoomID  domain.RoomID    `json:"roomId"`
	Members []core.MemberDTO `json:"members"`
	Count   int              `json:"count"`
}

// Room describes local membership only.
func (o *Orchestrator) Room(raw string) (RoomView, error) {
	room, err := domain.ParseRoomID(raw)
	if err != nil {
		return RoomView{}, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	members := o.Registry.MembersOfRoom(room)
	view := RoomView{RoomID: room, Members: make([]core.MemberDTO, 0, len(members)), Count: len(members)}
	for _, m := range members {
		view.Members = append(view.Members, core.MemberDTO{SID: m.SID, Identity: m.Identity})
	}
	return view, nil
}
