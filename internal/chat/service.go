// Package chat glues persistence and realtime delivery together: a send is
// persisted first, and only the stored row — the authoritative record with
// its assigned id and timestamp — is broadcast to the room.
package chat

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/rs/zerolog"

	"github.com/albaliriagomez/proyectoReusetech/internal/broker"
	"github.com/albaliriagomez/proyectoReusetech/internal/metrics"
	"github.com/albaliriagomez/proyectoReusetech/internal/models"
	"github.com/albaliriagomez/proyectoReusetech/internal/room"
	"github.com/albaliriagomez/proyectoReusetech/internal/store"
)

// Broadcaster is what the service needs from the realtime layer; tests
// substitute spies.
type Broadcaster interface {
	Broadcast(roomToken string, payload []byte)
}

var _ Broadcaster = (*broker.Broker)(nil)

// Event is the frame broadcast to a room after a successful send.
type Event struct {
	Type string          `json:"type"`
	Room string          `json:"room"`
	Data *models.Message `json:"data"`
}

// Service orchestrates message delivery.
type Service struct {
	store  store.MessageStore
	broker Broadcaster
	logger zerolog.Logger

	// roomLocks serializes the append+broadcast pair per room so that
	// broadcast order always equals append-completion order. Sends to
	// different rooms never contend. Entries are never pruned: one mutex
	// per conversation ever messaged through this process, a few dozen
	// bytes each, which stays small next to the sockets those
	// conversations hold open.
	roomLocks sync.Map // room token -> *sync.Mutex
}

// NewService creates the delivery orchestrator.
func NewService(st store.MessageStore, b Broadcaster, logger zerolog.Logger) *Service {
	return &Service{store: st, broker: b, logger: logger}
}

func (s *Service) roomLock(token string) *sync.Mutex {
	mu, _ := s.roomLocks.LoadOrStore(token, &sync.Mutex{})
	return mu.(*sync.Mutex)
}

// Send validates and persists the message, then broadcasts the stored row to
// the conversation's room. Persistence is the commit point: a store failure
// aborts the send with no broadcast, while delivery problems — including a
// room nobody is listening to — never fail an already-persisted send.
func (s *Service) Send(ctx context.Context, senderID, recipientID, publicationID int64, content string) (*models.Message, error) {
	token := room.Token(publicationID, senderID, recipientID)

	mu := s.roomLock(token)
	mu.Lock()
	defer mu.Unlock()

	msg, err := s.store.Append(ctx, senderID, recipientID, publicationID, content)
	if err != nil {
		return nil, err
	}
	metrics.MessagesStored.Inc()

	payload, err := json.Marshal(Event{Type: "message", Room: token, Data: msg})
	if err != nil {
		// The message is stored; delivery is best-effort from here on.
		s.logger.Error().Err(err).Int64("message_id", msg.ID).Msg("broadcast payload encoding failed")
		return msg, nil
	}
	s.broker.Broadcast(token, payload)

	s.logger.Debug().
		Int64("message_id", msg.ID).
		Str("room", token).
		Msg("message delivered")

	return msg, nil
}

// History returns the full exchange for a conversation, oldest first.
func (s *Service) History(ctx context.Context, publicationID, userA, userB int64) ([]models.Message, error) {
	return s.store.ListBetween(ctx, publicationID, userA, userB)
}

// Inbox returns one summary per conversation involving userID, most recent
// first.
func (s *Service) Inbox(ctx context.Context, userID int64) ([]models.ConversationSummary, error) {
	return s.store.ListConversations(ctx, userID)
}
