package backplane

import (
	"context"
	"fmt"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

type NATS struct {
	conn    *nats.Conn
	subject string
}

func NewNATS(url, subject string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("huddle"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Str("module", "adapters.backplane").Str("driver", "nats").Msg("disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("module", "adapters.backplane").Str("driver", "nats").Str("url", nc.ConnectedUrl()).Msg("reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NATS{conn: nc, subject: subject}, nil
}

func (n *NATS) Publish(ctx context.Context, env core.Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := encode(env)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, b)
}

func (n *NATS) Subscribe(ctx context.Context, handle func(core.Envelope)) error {
	ch := make(chan *nats.Msg, 1024)
	sub, err := n.conn.ChanSubscribe(n.subject, ch)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", n.subject, err)
	}
	defer func() { _ = sub.Unsubscribe() }()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg := <-ch:
			env, err := decode(msg.Data)
			if err != nil {
				log.Warn().Err(err).Str("module", "adapters.backplane").Str("driver", "nats").Msg("dropping envelope")
				continue
			}
			handle(env)
		}
	}
}

func (n *NATS) Distributed() bool { return true }

func (n *NATS) Close() error {
	n.conn.Close()
	return nil
}
