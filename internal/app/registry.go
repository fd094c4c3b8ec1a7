package app

import (
	"context"
	"sync"

	"github.com/dkeye/Huddle/internal/core"
	"github.com/dkeye/Huddle/internal/domain"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type sessionEntry struct {
	Identity domain.UserID
	Conn     core.SignalConnection
	Rooms    map[domain.RoomID]struct{}
	Cancel   context.CancelFunc
}

// Registry tracks live connections, the rooms each has joined and the
// identity each claims. A room exists only while its member set is non-empty.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*sessionEntry
	rooms    map[domain.RoomID]map[core.SessionID]struct{}
	byUser   map[domain.UserID]map[core.SessionID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*sessionEntry),
		rooms:    make(map[domain.RoomID]map[core.SessionID]struct{}),
		byUser:   make(map[domain.UserID]map[core.SessionID]struct{}),
	}
}

func (r *Registry) Register(conn core.SignalConnection, identity domain.UserID, cancel context.CancelFunc) core.SessionID {
	sid := core.SessionID(uuid.NewString())
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[sid] = &sessionEntry{
		Identity: identity,
		Conn:     conn,
		Rooms:    make(map[domain.RoomID]struct{}),
		Cancel:   cancel,
	}
	if identity != "" {
		addTo(r.byUser, identity, sid)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(identity)).Msg("registered connection")
	return sid
}

func (r *Registry) SetIdentity(sid core.SessionID, identity domain.UserID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	if e.Identity == identity {
		return true
	}
	if e.Identity != "" {
		removeFrom(r.byUser, e.Identity, sid)
	}
	e.Identity = identity
	if identity != "" {
		addTo(r.byUser, identity, sid)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("user", string(identity)).Msg("updated identity")
	return true
}

// Join is idempotent. Unknown handles are ignored.
func (r *Registry) Join(sid core.SessionID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	if _, already := e.Rooms[room]; already {
		return true
	}
	e.Rooms[room] = struct{}{}
	addTo(r.rooms, room, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("joined room")
	return true
}

func (r *Registry) Leave(sid core.SessionID, room domain.RoomID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return false
	}
	if _, member := e.Rooms[room]; !member {
		return false
	}
	delete(e.Rooms, room)
	removeFrom(r.rooms, room, sid)
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Str("room", string(room)).Msg("left room")
	return true
}

// OnDisconnect drops the handle and all its memberships. Only the first
// call for a handle does anything; it returns the rooms that were left.
func (r *Registry) OnDisconnect(sid core.SessionID) []domain.RoomID {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	delete(r.sessions, sid)
	left := make([]domain.RoomID, 0, len(e.Rooms))
	for room := range e.Rooms {
		removeFrom(r.rooms, room, sid)
		left = append(left, room)
	}
	if e.Identity != "" {
		removeFrom(r.byUser, e.Identity, sid)
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Int("rooms", len(left)).Msg("unregistered connection")
	return left
}

func (r *Registry) Identity(sid core.SessionID) (domain.UserID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return "", false
	}
	return e.Identity, true
}

func (r *Registry) Connection(sid core.SessionID) (core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil, false
	}
	return e.Conn, true
}

func (r *Registry) RoomsOf(sid core.SessionID) []domain.RoomID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[sid]
	if !ok {
		return nil
	}
	out := make([]domain.RoomID, 0, len(e.Rooms))
	for room := range e.Rooms {
		out = append(out, room)
	}
	return out
}

func (r *Registry) MembersOfRoom(room domain.RoomID) []core.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshot(r.rooms[room])
}

// Reachable returns every connection an identity-targeted event should
// reach: those bound to identity plus those that joined the room named
// after it. Each connection appears once.
func (r *Registry) Reachable(identity domain.UserID) []core.Member {
	r.mu.RLock()
	defer r.mu.RUnlock()
	own := r.rooms[domain.RoomID(identity)]
	if len(own) == 0 {
		return r.snapshot(r.byUser[identity])
	}
	union := make(map[core.SessionID]struct{}, len(r.byUser[identity])+len(own))
	for sid := range r.byUser[identity] {
		union[sid] = struct{}{}
	}
	for sid := range own {
		union[sid] = struct{}{}
	}
	return r.snapshot(union)
}

func (r *Registry) snapshot(set map[core.SessionID]struct{}) []core.Member {
	out := make([]core.Member, 0, len(set))
	for sid := range set {
		e := r.sessions[sid]
		out = append(out, core.Member{SID: sid, Identity: e.Identity, Conn: e.Conn})
	}
	return out
}

type RegistryStats struct {
	Connections int `json:"connections"`
	Rooms       int `json:"rooms"`
}

func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RegistryStats{Connections: len(r.sessions), Rooms: len(r.rooms)}
}

// Cancel asks the owning transport to shut the connection down.
func (r *Registry) Cancel(sid core.SessionID) bool {
	r.mu.RLock()
	e, ok := r.sessions[sid]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	if e.Cancel != nil {
		e.Cancel()
	}
	log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("canceled session")
	return true
}

func addTo[K comparable](index map[K]map[core.SessionID]struct{}, key K, sid core.SessionID) {
	set, ok := index[key]
	if !ok {
		set = make(map[core.SessionID]struct{})
		index[key] = set
	}
	set[sid] = struct{}{}
}

func removeFrom[K comparable](index map[K]map[core.SessionID]struct{}, key K, sid core.SessionID) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, sid)
	if len(set) == 0 {
		delete(index, key)
	}
}
