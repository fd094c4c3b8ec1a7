package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/metrics"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

var ErrUnknownSession = errors.New("unknown session")

// Hub fans events out to rooms and identities. With a backplane every
// envelope goes through the bus and is delivered by Run on each instance;
// without one delivery happens synchronously on the caller's goroutine.
type Hub struct {
	instance  string
	registry  *Registry
	backplane core.Backplane
	policy    Policy
	metrics   *metrics.Metrics

	obsMu     sync.RWMutex
	observers map[string][]func(core.Envelope)
}

func NewHub(reg *Registry, bp core.Backplane, policy Policy, m *metrics.Metrics) *Hub {
	if policy == nil {
		policy = DropPolicy{}
	}
	return &Hub{
		instance:  uuid.NewString(),
		registry:  reg,
		backplane: bp,
		policy:    policy,
		metrics:   m,
		observers: make(map[string][]func(core.Envelope)),
	}
}

func (h *Hub) Registry() *Registry { return h.registry }

// Distributed reports whether deliveries may happen on other instances.
func (h *Hub) Distributed() bool {
	return h.backplane != nil && h.backplane.Distributed()
}

func (h *Hub) Broadcast(ctx context.Context, room domain.RoomID, event string, payload any, opts core.BroadcastOptions) core.Delivery {
	return h.publish(ctx, core.Envelope{
		Kind:    core.ToRoom,
		Target:  string(room),
		Event:   event,
		Exclude: opts.ExcludeSender,
	}, payload)
}

// Unicast reaches every connection that claims identity. No match is not an error.
func (h *Hub) Unicast(ctx context.Context, identity domain.UserID, event string, payload any) core.Delivery {
	return h.publish(ctx, core.Envelope{
		Kind:   core.ToIdentity,
		Target: string(identity),
		Event:  event,
	}, payload)
}

// SendTo writes directly to one local connection.
func (h *Hub) SendTo(sid core.SessionID, event string, payload any) error {
	conn, ok := h.registry.Connection(sid)
	if !ok {
		return ErrUnknownSession
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", event, err)
	}
	frame, err := EncodeFrame(event, data)
	if err != nil {
		return err
	}
	return conn.TrySend(frame)
}

// Observe registers fn for every envelope of event seen by this instance,
// whether or not it has local recipients.
func (h *Hub) Observe(event string, fn func(core.Envelope)) {
	h.obsMu.Lock()
	defer h.obsMu.Unlock()
	h.observers[event] = append(h.observers[event], fn)
}

func (h *Hub) publish(ctx context.Context, env core.Envelope, payload any) core.Delivery {
	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Str("event", env.Event).Msg("marshal payload")
		return core.Delivery{Err: fmt.Errorf("marshal %s: %w", env.Event, err)}
	}
	env.Data = data
	env.Origin = h.instance

	if !h.Distributed() {
		return h.Deliver(env)
	}
	if err := h.backplane.Publish(ctx, env); err != nil {
		log.Error().Err(err).Str("module", "app.hub").Str("event", env.Event).Str("target", env.Target).Msg("backplane publish")
		return core.Delivery{Remote: true, Err: fmt.Errorf("publish %s: %w", env.Event, err)}
	}
	return core.Delivery{Remote: true}
}

// Deliver hands an envelope to local connections. Membership is read now.
func (h *Hub) Deliver(env core.Envelope) core.Delivery {
	h.notify(env)

	var members []core.Member
	switch env.Kind {
	case core.ToRoom:
		members = h.registry.MembersOfRoom(domain.RoomID(env.Target))
	case core.ToIdentity:
		members = h.registry.Reachable(domain.UserID(env.Target))
	default:
		log.Warn().Str("module", "app.hub").Str("kind", string(env.Kind)).Msg("unknown envelope kind")
		return core.Delivery{}
	}
	if len(members) == 0 {
		return core.Delivery{}
	}

	frame, err := EncodeFrame(env.Event, env.Data)
	if err != nil {
		log.Error().Err(err).Str("module", "app.hub").Str("event", env.Event).Msg("encode frame")
		return core.Delivery{Err: err}
	}
	res := core.FanOut(members, env.Exclude, frame)
	h.onDropped(res.Dropped)
	h.metrics.Delivered(res.SendTo, len(res.Dropped))
	return core.Delivery{Delivered: res.SendTo, Dropped: len(res.Dropped)}
}

// Run consumes the backplane until ctx is done.
func (h *Hub) Run(ctx context.Context) error {
	if !h.Distributed() {
		<-ctx.Done()
		return nil
	}
	log.Info().Str("module", "app.hub").Str("instance", h.instance).Msg("backplane subscriber started")
	return h.backplane.Subscribe(ctx, func(env core.Envelope) {
		h.Deliver(env)
	})
}

func (h *Hub) notify(env core.Envelope) {
	h.obsMu.RLock()
	fns := h.observers[env.Event]
	h.obsMu.RUnlock()
	for _, fn := range fns {
		fn(env)
	}
}

func (h *Hub) onDropped(dropped []core.Member) {
	for _, m := range dropped {
		switch h.policy.OnBackPressure(m) {
		case KickMember:
			log.Warn().Str("module", "app.hub").Str("sid", string(m.SID)).Msg("kicking slow consumer")
			h.registry.Cancel(m.SID)
		case DropFrame, NoAction:
		}
	}
}

// EncodeFrame builds the client-facing {"event","data"} frame.
func EncodeFrame(event string, data json.RawMessage) (core.Frame, error) {
	if len(data) == 0 {
		data = json.RawMessage("null")
	}
	b, err := json.Marshal(core.WireEvent{Event: event, Data: data})
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", event, err)
	}
	return b, nil
}
