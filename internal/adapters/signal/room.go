package signal

import (
	"encoding/json"
	"errors"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/rs/zerolog/log"
)

type roomPayload struct {
	RoomID string `json:"roomId"`
}

// roomArg accepts either a bare string or {"roomId": "..."}.
func roomArg(raw json.RawMessage) (string, error) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var p roomPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", err
	}
	if p.RoomID == "" {
		return "", errors.New("missing roomId")
	}
	return p.RoomID, nil
}

func (ctl *SignalWSController) handleJoin(sid core.SessionID, raw json.RawMessage) {
	arg, err := roomArg(raw)
	if err != nil {
		ctl.sendError(sid, core.EventJoinRoom, "bad_payload")
		return
	}
	room, err := ctl.Orch.Join(sid, arg)
	if err != nil {
		ctl.reportErr(sid, core.EventJoinRoom, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", string(room)).Msg("join")
}

func (ctl *SignalWSController) handleLeave(sid core.SessionID, raw json.RawMessage) {
	arg, err := roomArg(raw)
	if err != nil {
		ctl.sendError(sid, core.EventLeaveRoom, "bad_payload")
		return
	}
	if _, err := ctl.Orch.Leave(sid, arg); err != nil {
		ctl.reportErr(sid, core.EventLeaveRoom, err)
		return
	}
	log.Info().Str("module", "signal").Str("sid", string(sid)).Str("room", arg).Msg("leave")
}

func (ctl *SignalWSController) handleIdentify(sid core.SessionID, raw json.RawMessage) {
	type identifyPayload struct {
		UserID string `json:"userId" validate:"required,max=36"`
	}
	var p identifyPayload
	if !ctl.decode(sid, core.EventIdentify, raw, &p) {
		return
	}
	if _, err := ctl.Orch.Identify(sid, p.UserID); err != nil {
		ctl.reportErr(sid, core.EventIdentify, err)
	}
}
