package orch

import (
	"errors"
	"sync"
	"time"

	"github.com/dkeye/Huddle/internal/app"
	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/dkeye/Huddle/internal/metrics"
)

var (
	ErrBadPayload = errors.New("bad payload")
	ErrSelfFriend = errors.New("cannot befriend yourself")
)

type OfflinePolicy string

const (
	// OfflineSilent delivers to nobody and tells the caller nothing.
	OfflineSilent OfflinePolicy = "silent"
	// OfflineNotify answers the caller with call_failed.
	OfflineNotify OfflinePolicy = "notify"
)

type Options struct {
	OfflinePolicy    OfflinePolicy
	RingTimeout      time.Duration
	AckFailures      bool
	MaxContentLength int
	HistoryLimit     int
}

// Orchestrator layers chat, call and friend semantics over the hub.
type Orchestrator struct {
	Registry *app.Registry
	Hub      *app.Hub
	Store    core.Store
	Calls    *CallTracker
	Metrics  *metrics.Metrics

	opts      Options
	roomLocks *app.KeyedMutex[domain.RoomID]

	clockMu sync.Mutex
	last    time.Time
	now     func() time.Time
}

func New(hub *app.Hub, store core.Store, opts Options, m *metrics.Metrics) *Orchestrator {
	o := &Orchestrator{
		Registry:  hub.Registry(),
		Hub:       hub,
		Store:     store,
		Metrics:   m,
		opts:      opts,
		roomLocks: app.NewKeyedMutex[domain.RoomID](),
		now:       time.Now,
	}
	if opts.RingTimeout > 0 {
		o.Calls = NewCallTracker(opts.RingTimeout)
		o.observeCalls()
	}
	return o
}

func (o *Orchestrator) Options() Options { return o.opts }

// RingingCalls counts calls started here that nobody answered yet.
func (o *Orchestrator) RingingCalls() int {
	if o.Calls == nil {
		return 0
	}
	return o.Calls.Len()
}

// Close stops pending ring timers.
func (o *Orchestrator) Close() {
	if o.Calls != nil {
		o.Calls.Stop()
	}
}

// stamp returns a strictly increasing UTC timestamp at microsecond precision.
func (o *Orchestrator) stamp() time.Time {
	o.clockMu.Lock()
	defer o.clockMu.Unlock()
	t := o.now().UTC().Truncate(time.Microsecond)
	if !t.After(o.last) {
		t = o.last.Add(time.Microsecond)
	}
	o.last = t
	return t
}
