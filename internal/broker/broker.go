// Package broker owns the room membership table and fans message payloads
// out to the sessions joined to a room. It is transport-agnostic: anything
// implementing Session can join, which keeps the websocket layer thin and
// lets tests use in-memory fakes.
package broker

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/albaliriagomez/proyectoReusetech/internal/metrics"
)

// Session is one connected client. Deliver must be safe for concurrent use;
// a returned error marks the session dead and evicts it from every room.
type Session interface {
	ID() string
	Deliver(payload []byte) error
}

// Broker maps room tokens to the sessions currently joined to them.
// Rooms exist only while they have members; an empty room is dropped.
type Broker struct {
	mu       sync.RWMutex
	rooms    map[string]map[string]Session  // room token -> session id -> session
	sessions map[string]map[string]struct{} // session id -> joined room tokens

	relay  *Relay
	logger zerolog.Logger
}

// New creates an empty broker.
func New(logger zerolog.Logger) *Broker {
	return &Broker{
		rooms:    make(map[string]map[string]Session),
		sessions: make(map[string]map[string]struct{}),
		logger:   logger,
	}
}

// UseRelay mirrors every broadcast to a Redis channel and accepts rebroadcasts
// from other instances. Call before serving traffic.
func (b *Broker) UseRelay(r *Relay) {
	b.relay = r
}

// Join adds the session to a room. Joining a room twice is a no-op.
func (b *Broker) Join(s Session, roomToken string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	members, ok := b.rooms[roomToken]
	if !ok {
		members = make(map[string]Session)
		b.rooms[roomToken] = members
		metrics.RoomsActive.Set(float64(len(b.rooms)))
	}
	if _, joined := members[s.ID()]; joined {
		return
	}
	members[s.ID()] = s

	joinedRooms, ok := b.sessions[s.ID()]
	if !ok {
		joinedRooms = make(map[string]struct{})
		b.sessions[s.ID()] = joinedRooms
	}
	joinedRooms[roomToken] = struct{}{}

	b.logger.Debug().
		Str("session_id", s.ID()).
		Str("room", roomToken).
		Int("members", len(members)).
		Msg("session joined room")
}

// Leave removes the session from one room. Leaving a room it never joined
// is a no-op.
func (b *Broker) Leave(sessionID, roomToken string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeFromRoom(sessionID, roomToken)
}

// Disconnect removes the session from every room it was joined to. The
// removal is atomic with respect to Broadcast: a concurrent broadcast either
// snapshots the membership before the removal and may still deliver, or
// after it and does not.
func (b *Broker) Disconnect(sessionID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for roomToken := range b.sessions[sessionID] {
		b.removeFromRoom(sessionID, roomToken)
	}
}

// removeFromRoom must be called with mu held.
func (b *Broker) removeFromRoom(sessionID, roomToken string) {
	members, ok := b.rooms[roomToken]
	if !ok {
		return
	}
	delete(members, sessionID)
	if len(members) == 0 {
		delete(b.rooms, roomToken)
		metrics.RoomsActive.Set(float64(len(b.rooms)))
	}
	if joinedRooms, ok := b.sessions[sessionID]; ok {
		delete(joinedRooms, roomToken)
		if len(joinedRooms) == 0 {
			delete(b.sessions, sessionID)
		}
	}
}

// Broadcast delivers payload to every session currently joined to the room,
// at most once each, and to no session of any other room. A room with no
// members is a silent no-op: the message is already durably stored by the
// caller, so nobody listening is not an error.
func (b *Broker) Broadcast(roomToken string, payload []byte) {
	b.deliverLocal(roomToken, payload)

	if b.relay != nil {
		b.relay.Publish(roomToken, payload)
	}
}

// deliverLocal fans out to sessions on this instance. Membership is
// snapshotted under the read lock and the lock released before any Deliver
// call, so a slow client never blocks joins or disconnects and the
// membership view of one broadcast is consistent.
func (b *Broker) deliverLocal(roomToken string, payload []byte) {
	b.mu.RLock()
	members := b.rooms[roomToken]
	snapshot := make([]Session, 0, len(members))
	for _, s := range members {
		snapshot = append(snapshot, s)
	}
	b.mu.RUnlock()

	metrics.BroadcastsTotal.Inc()
	if len(snapshot) == 0 {
		return
	}

	for _, s := range snapshot {
		if err := s.Deliver(payload); err != nil {
			b.logger.Warn().
				Str("session_id", s.ID()).
				Str("room", roomToken).
				Err(err).
				Msg("delivery failed, evicting session")
			b.Disconnect(s.ID())
			continue
		}
		metrics.BroadcastDeliveries.Inc()
	}
}

// Rooms reports the session count for a room. Mostly useful in tests and
// debug logging.
func (b *Broker) Rooms(roomToken string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.rooms[roomToken])
}
