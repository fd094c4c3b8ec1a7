package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/core"
)

func (ctl *SignalWSController) handleStartCall(ctx context.Context, sid core.SessionID, raw json.RawMessage) {
	var p orch.StartCallPayload
	if !ctl.decode(sid, core.EventStartCall, raw, &p) {
		return
	}
	if _, err := ctl.Orch.StartCall(ctx, sid, p); err != nil {
		ctl.reportErr(sid, core.EventStartCall, err)
	}
}

func (ctl *SignalWSController) handleCallReply(ctx context.Context, sid core.SessionID, event string, raw json.RawMessage) {
	var p orch.CallReplyPayload
	if !ctl.decode(sid, event, raw, &p) {
		return
	}
	switch event {
	case core.EventAcceptCall:
		ctl.Orch.AnswerCall(ctx, sid, p, true)
	case core.EventRejectCall:
		ctl.Orch.AnswerCall(ctx, sid, p, false)
	case core.EventCancelCall:
		ctl.Orch.CancelCall(ctx, sid, p)
	}
}

func (ctl *SignalWSController) handlePresence(ctx context.Context, sid core.SessionID, event string, raw json.RawMessage) {
	var p orch.PresencePayload
	if !ctl.decode(sid, event, raw, &p) {
		return
	}
	if _, err := ctl.Orch.PresenceInfo(ctx, sid, p); err != nil {
		ctl.reportErr(sid, event, err)
	}
}
