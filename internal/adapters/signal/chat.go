package signal

import (
	"context"
	"encoding/json"

	"github.com/dkeye/Huddle/internal/app/orch"
	"github.com/dkeye/Huddle/internal/core"
)

func (ctl *SignalWSController) handleSendMsg(ctx context.Context, sid core.SessionID, raw json.RawMessage) {
	var p orch.SendMessagePayload
	if !ctl.decode(sid, core.EventSendMsg, raw, &p) {
		return
	}
	// Persistence failures are logged and acked inside the relay.
	if _, err := ctl.Orch.SendMessage(ctx, sid, p); err != nil {
		ctl.reportErr(sid, core.EventSendMsg, err)
	}
}
