// Package backplane carries hub envelopes between server instances.
package backplane

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dkeye/Huddle/internal/config"
	"github.com/dkeye/Huddle/internal/core"
)

var ErrClosed = errors.New("backplane closed")

// New returns nil for the "none" driver; the hub then delivers locally.
func New(cfg config.BackplaneConfig) (core.Backplane, error) {
	switch cfg.Driver {
	case "", "none":
		return nil, nil
	case "memory":
		return NewMemory(256), nil
	case "redis":
		return NewRedis(cfg.RedisURL, cfg.Channel, cfg.PublishTimeout)
	case "nats":
		return NewNATS(cfg.NATSURL, cfg.Channel)
	default:
		return nil, fmt.Errorf("unknown backplane driver %q", cfg.Driver)
	}
}

func encode(env core.Envelope) ([]byte, error) {
	b, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("encode envelope: %w", err)
	}
	return b, nil
}

func decode(b []byte) (core.Envelope, error) {
	var env core.Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return core.Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}
