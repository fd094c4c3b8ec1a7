package core

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Huddle/internal/domain"
)

type EnvelopeKind string

const (
	ToRoom     EnvelopeKind = "room"
	ToIdentity EnvelopeKind = "identity"
)

// Envelope is what travels over a backplane between instances.
type Envelope struct {
	Origin  string          `json:"origin"`
	Kind    EnvelopeKind    `json:"kind"`
	Target  string          `json:"target"`
	Event   string          `json:"event"`
	Data    json.RawMessage `json:"data,omitempty"`
	Exclude SessionID       `json:"exclude,omitempty"`
}

// WireEvent is the client-facing frame shape.
type WireEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Delivery reports the outcome of a broadcast or unicast.
// Delivered and Dropped count local connections only; Remote marks
// that other instances may have delivered too.
type Delivery struct {
	Delivered int
	Dropped   int
	Remote    bool
	Err       error
}

// Backplane fans envelopes out to every instance, this one included.
type Backplane interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe blocks, calling handle for each envelope in publish order,
	// until ctx is done or the backplane is closed.
	Subscribe(ctx context.Context, handle func(Envelope)) error
	Distributed() bool
	Close() error
}

type Broadcaster interface {
	Broadcast(ctx context.Context, room domain.RoomID, event string, payload any, opts BroadcastOptions) Delivery
	Unicast(ctx context.Context, identity domain.UserID, event string, payload any) Delivery
	SendTo(sid SessionID, event string, payload any) error
}

type BroadcastOptions struct {
	ExcludeSender SessionID
}
