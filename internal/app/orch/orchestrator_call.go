package orch

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// StartCallPayload keeps every field the client sent so that extras
// reach the callee untouched.
type StartCallPayload struct {
	To         string `json:"to" validate:"required,max=36"`
	RoomID     string `json:"roomId" validate:"required,max=128"`
	CallerName string `json:"callerName" validate:"max=64"`

	fields map[string]json.RawMessage
}

func (p *StartCallPayload) UnmarshalJSON(b []byte) error {
	type plain StartCallPayload
	if err := json.Unmarshal(b, (*plain)(p)); err != nil {
		return err
	}
	return json.Unmarshal(b, &p.fields)
}

type CallReplyPayload struct {
	CallID string `json:"callId" validate:"required,max=64"`
	To     string `json:"to" validate:"required,max=36"`
}

type PresencePayload struct {
	RoomID   string          `json:"roomId" validate:"required,max=128"`
	UID      json.RawMessage `json:"uid" validate:"required"`
	Username string          `json:"username" validate:"required,max=64"`
}

type CallFailed struct {
	CallID string        `json:"callId"`
	To     domain.UserID `json:"to"`
	RoomID domain.RoomID `json:"roomId"`
	Reason string        `json:"reason"`
}

type CallReply struct {
	CallID string        `json:"callId"`
	From   domain.UserID `json:"from"`
}

type UserNameInfo struct {
	RoomID   domain.RoomID   `json:"roomId"`
	UID      json.RawMessage `json:"uid"`
	Username string          `json:"username"`
}

type CallResult struct {
	CallID   string
	Delivery core.Delivery
	Offline  bool
}

const (
	ReasonOffline = "offline"
	ReasonTimeout = "timeout"
)

// StartCall relays start_call to every connection of the callee as incoming_call.
func (o *Orchestrator) StartCall(ctx context.Context, sid core.SessionID, p StartCallPayload) (CallResult, error) {
	room, err := domain.ParseRoomID(p.RoomID)
	if err != nil {
		return CallResult{}, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	if p.To == "" {
		return CallResult{}, fmt.Errorf("%w: missing callee", ErrBadPayload)
	}
	callee := domain.UserID(p.To)
	caller, _ := o.Registry.Identity(sid)
	callID := uuid.NewString()

	incoming, err := p.incoming(callID, caller)
	if err != nil {
		return CallResult{}, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}

	// Ringing starts before delivery so an answer racing the unicast
	// still finds the session.
	if o.Calls != nil {
		o.Calls.Start(domain.CallSession{
			ID:        callID,
			Caller:    caller,
			Callee:    callee,
			RoomID:    room,
			StartedAt: o.now().UTC(),
		}, sid, o.onRingTimeout)
	}

	d := o.Hub.Unicast(ctx, callee, core.EventIncomingCall, incoming)
	res := CallResult{CallID: callID, Delivery: d}
	if d.Err != nil {
		o.stopRinging(callID)
		o.Metrics.Call("error")
		return res, d.Err
	}

	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("call", callID).Str("to", p.To).Str("room", p.RoomID).Int("delivered", d.Delivered).Msg("start call")

	if !d.Remote && d.Delivered == 0 {
		o.stopRinging(callID)
		res.Offline = true
		o.Metrics.Call(ReasonOffline)
		if o.opts.OfflinePolicy == OfflineNotify {
			if err := o.Hub.SendTo(sid, core.EventCallFailed, CallFailed{CallID: callID, To: callee, RoomID: room, Reason: ReasonOffline}); err != nil {
				log.Warn().Err(err).Str("module", "app.orch").Str("sid", string(sid)).Msg("call_failed not delivered")
			}
		}
		return res, nil
	}

	o.Metrics.Call("ringing")
	return res, nil
}

func (o *Orchestrator) stopRinging(callID string) {
	if o.Calls != nil {
		o.Calls.Transition(callID, domain.CallEnded)
	}
}

func (p StartCallPayload) incoming(callID string, caller domain.UserID) (map[string]json.RawMessage, error) {
	out := make(map[string]json.RawMessage, len(p.fields)+4)
	for k, v := range p.fields {
		out[k] = v
	}
	set := func(key string, v any) error {
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		out[key] = b
		return nil
	}
	if err := set("to", p.To); err != nil {
		return nil, err
	}
	if err := set("roomId", p.RoomID); err != nil {
		return nil, err
	}
	if err := set("callerName", p.CallerName); err != nil {
		return nil, err
	}
	if err := set("callId", callID); err != nil {
		return nil, err
	}
	if caller != "" {
		if err := set("from", caller); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (o *Orchestrator) onRingTimeout(s domain.CallSession, callerSID core.SessionID) {
	log.Info().Str("module", "app.orch").Str("call", s.ID).Str("to", string(s.Callee)).Msg("call not answered")
	o.Metrics.Call(ReasonTimeout)
	if err := o.Hub.SendTo(callerSID, core.EventCallFailed, CallFailed{CallID: s.ID, To: s.Callee, RoomID: s.RoomID, Reason: ReasonTimeout}); err != nil {
		log.Debug().Err(err).Str("module", "app.orch").Str("call", s.ID).Msg("caller gone before timeout")
	}
	o.Hub.Unicast(context.Background(), s.Callee, core.EventCallCancelled, CallReply{CallID: s.ID, From: s.Caller})
}

// AnswerCall relays the callee's decision back to the caller.
func (o *Orchestrator) AnswerCall(ctx context.Context, sid core.SessionID, p CallReplyPayload, accept bool) core.Delivery {
	event := core.EventCallRejected
	if accept {
		event = core.EventCallAccepted
	}
	return o.relayReply(ctx, sid, p, event)
}

func (o *Orchestrator) CancelCall(ctx context.Context, sid core.SessionID, p CallReplyPayload) core.Delivery {
	return o.relayReply(ctx, sid, p, core.EventCallCancelled)
}

func (o *Orchestrator) relayReply(ctx context.Context, sid core.SessionID, p CallReplyPayload, event string) core.Delivery {
	from, _ := o.Registry.Identity(sid)
	log.Info().Str("module", "app.orch").Str("sid", string(sid)).Str("call", p.CallID).Str("event", event).Msg("call reply")
	return o.Hub.Unicast(ctx, domain.UserID(p.To), event, CallReply{CallID: p.CallID, From: from})
}

// observeCalls lets whichever instance owns a ringing call see replies
// relayed from other instances.
func (o *Orchestrator) observeCalls() {
	track := func(to domain.CallState, outcome string) func(core.Envelope) {
		return func(env core.Envelope) {
			var r CallReply
			if err := json.Unmarshal(env.Data, &r); err != nil || r.CallID == "" {
				return
			}
			if _, ok := o.Calls.Transition(r.CallID, to); ok {
				o.Metrics.Call(outcome)
			}
		}
	}
	o.Hub.Observe(core.EventCallAccepted, track(domain.CallConnected, "accepted"))
	o.Hub.Observe(core.EventCallRejected, track(domain.CallEnded, "rejected"))
	o.Hub.Observe(core.EventCallCancelled, track(domain.CallEnded, "cancelled"))
}

// PresenceInfo lets room members map a media uid to a display name.
func (o *Orchestrator) PresenceInfo(ctx context.Context, sid core.SessionID, p PresencePayload) (core.Delivery, error) {
	room, err := domain.ParseRoomID(p.RoomID)
	if err != nil {
		return core.Delivery{}, fmt.Errorf("%w: %w", ErrBadPayload, err)
	}
	info := UserNameInfo{RoomID: room, UID: p.UID, Username: p.Username}
	return o.Hub.Broadcast(ctx, room, core.EventUserNameInfo, info, core.BroadcastOptions{ExcludeSender: sid}), nil
}
