package signal

import (
	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/rs/zerolog/log"
)

var errBadPayload = orch.ErrBadPayload

type errorPayload struct {
	Event string `json:"event,omitempty"`
	Error string `json:"error"`
}

func (ctl *SignalWSController) handlePing(sid core.SessionID) {
	ctl.send(sid, core.EventPong, nil)
}

func (ctl *SignalWSController) sendError(sid core.SessionID, event, code string) {
	ctl.send(sid, core.EventError, errorPayload{Event: event, Error: code})
}

func (ctl *SignalWSController) send(sid core.SessionID, event string, v any) {
	if err := ctl.Orch.Hub.SendTo(sid, event, v); err != nil {
		log.Debug().Err(err).Str("module", "signal").Str("sid", string(sid)).Str("event", event).Msg("send dropped")
	}
}
