package signal

import (
	"context"
	"encoding/json"
	"errors"
	"runtime/debug"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) writePump(ctx context.Context, sid core.SessionID, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("writePump ctx done")
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
				time.Now().Add(time.Second))
			return
		case data, ok := <-c.send:
			if !ok {
				log.Debug().Str("module", "signal").Str("sid", string(sid)).Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.opts.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("ping failed")
				return
			}
		}
	}
}

// readPump owns the connection lifecycle: when it returns the connection
// is closed and unregistered exactly once.
func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, sid core.SessionID, c *WsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("readPump closing")
		cancel()
		c.Close()
		ctl.Orch.Disconnect(context.Background(), sid)
		ctl.limiter.Forget(sid)
		ctl.Orch.Metrics.ConnectionClosed()
	}()

	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) && ctx.Err() == nil {
				log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("readPump read error")
			}
			return
		}
		ctl.handleSignal(ctx, sid, data)
	}
}

var knownEvents = map[string]struct{}{
	core.EventJoinRoom:   {},
	core.EventLeaveRoom:  {},
	core.EventIdentify:   {},
	core.EventPing:       {},
	core.EventSendMsg:    {},
	core.EventStartCall:  {},
	core.EventAcceptCall: {},
	core.EventRejectCall: {},
	core.EventCancelCall: {},
	core.EventAgoraJoin:  {},
	core.EventPresence:   {},
}

// eventLabel keeps the metric label set closed over client input.
func eventLabel(event string) string {
	if _, ok := knownEvents[event]; ok {
		return event
	}
	return "unknown"
}

type inbound struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (ctl *SignalWSController) handleSignal(ctx context.Context, sid core.SessionID, data []byte) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "signal").Str("sid", string(sid)).Interface("panic", r).Bytes("stack", debug.Stack()).Msg("handler panic")
		}
	}()

	var env inbound
	if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Msg("bad json")
		ctl.sendError(sid, "", "bad_json")
		return
	}

	if env.Event == core.EventPing {
		ctl.Orch.Metrics.Event(core.EventPing)
		ctl.handlePing(sid)
		return
	}
	if !ctl.limiter.Allow(sid) {
		ctl.sendError(sid, env.Event, "rate_limited")
		return
	}
	ctl.Orch.Metrics.Event(eventLabel(env.Event))

	switch env.Event {
	case core.EventJoinRoom:
		ctl.handleJoin(sid, env.Data)
	case core.EventLeaveRoom:
		ctl.handleLeave(sid, env.Data)
	case core.EventIdentify:
		ctl.handleIdentify(sid, env.Data)
	case core.EventSendMsg:
		ctl.handleSendMsg(ctx, sid, env.Data)
	case core.EventStartCall:
		ctl.handleStartCall(ctx, sid, env.Data)
	case core.EventAcceptCall:
		ctl.handleCallReply(ctx, sid, env.Event, env.Data)
	case core.EventRejectCall:
		ctl.handleCallReply(ctx, sid, env.Event, env.Data)
	case core.EventCancelCall:
		ctl.handleCallReply(ctx, sid, env.Event, env.Data)
	case core.EventAgoraJoin, core.EventPresence:
		ctl.handlePresence(ctx, sid, env.Event, env.Data)
	default:
		log.Warn().Str("module", "signal").Str("event", env.Event).Msg("unknown signal")
		ctl.sendError(sid, env.Event, "unknown_event")
	}
}

// decode unmarshals and validates a payload, answering the sender on failure.
func (ctl *SignalWSController) decode(sid core.SessionID, event string, raw json.RawMessage, v any) bool {
	if len(raw) == 0 {
		raw = json.RawMessage("null")
	}
	if err := json.Unmarshal(raw, v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("event", event).Msg("bad payload")
		ctl.sendError(sid, event, "bad_payload")
		return false
	}
	if err := ctl.validate.Struct(v); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("event", event).Msg("invalid payload")
		ctl.sendError(sid, event, "bad_payload")
		return false
	}
	return true
}

func (ctl *SignalWSController) reportErr(sid core.SessionID, event string, err error) {
	if errors.Is(err, errBadPayload) {
		ctl.sendError(sid, event, "bad_payload")
		return
	}
	log.Error().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("event", event).Msg("handler failed")
}
