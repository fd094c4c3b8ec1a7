package orch

import (
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
)

type trackedCall struct {
	session   domain.CallSession
	callerSID core.SessionID
	timer     *time.Timer
}

// CallTracker keeps ringing calls in memory until they are answered,
// cancelled or time out. Only ringing calls are stored.
type CallTracker struct {
	mu       sync.Mutex
	calls    map[string]*trackedCall
	timeout  time.Duration
	disabled bool
}

func NewCallTracker(timeout time.Duration) *CallTracker {
	return &CallTracker{
		calls:   make(map[string]*trackedCall),
		timeout: timeout,
	}
}

// Start begins ringing. onTimeout runs on its own goroutine when nobody
// answered in time.
func (t *CallTracker) Start(s domain.CallSession, caller core.SessionID, onTimeout func(domain.CallSession, core.SessionID)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disabled {
		return
	}
	s.State = domain.CallRinging
	tc := &trackedCall{session: s, callerSID: caller}
	tc.timer = time.AfterFunc(t.timeout, func() {
		t.mu.Lock()
		cur, ok := t.calls[s.ID]
		if !ok || cur != tc {
			t.mu.Unlock()
			return
		}
		delete(t.calls, s.ID)
		t.mu.Unlock()

		cur.session.State = domain.CallTimeout
		onTimeout(cur.session, cur.callerSID)
	})
	t.calls[s.ID] = tc
}

// Transition moves a ringing call to a final state and forgets it.
// It reports false when the call is unknown here or no longer ringing.
func (t *CallTracker) Transition(callID string, to domain.CallState) (domain.CallSession, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	tc, ok := t.calls[callID]
	if !ok {
		return domain.CallSession{}, false
	}
	tc.timer.Stop()
	delete(t.calls, callID)
	tc.session.State = to
	return tc.session, true
}

// DropCaller ends every ringing call started by sid.
func (t *CallTracker) DropCaller(sid core.SessionID) []domain.CallSession {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []domain.CallSession
	for id, tc := range t.calls {
		if tc.callerSID != sid {
			continue
		}
		tc.timer.Stop()
		delete(t.calls, id)
		tc.session.State = domain.CallEnded
		out = append(out, tc.session)
	}
	return out
}

func (t *CallTracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

// Stop cancels all timers; later Start calls are ignored.
func (t *CallTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disabled = true
	for id, tc := range t.calls {
		tc.timer.Stop()
		delete(t.calls, id)
	}
}
