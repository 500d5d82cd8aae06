package store

import (
	"context"
	"strings"

	"github.com/albaliriagomez/proyectoReusetech/internal/models"
)

// MessageStore is the durable record of messages and the inbox read-model
// derived from it. Both PostgresStore and SQLiteStore implement this interface.
type MessageStore interface {
	// Connection management
	Close()
	Ping(ctx context.Context) error

	// Append stores a new message and returns it with the store-assigned
	// id and sent_at. Ids and timestamps are monotonically increasing in
	// append-completion order.
	Append(ctx context.Context, senderID, recipientID, publicationID int64, content string) (*models.Message, error)

	// ListBetween returns every message exchanged between userA and userB
	// about the given publication, in both directions, ascending by sent_at.
	// An empty slice is a valid result.
	ListBetween(ctx context.Context, publicationID, userA, userB int64) ([]models.Message, error)

	// ListConversations returns one summary per distinct
	// (publication, unordered user pair) involving userID, each holding the
	// latest message of its group, most recent conversation first.
	ListConversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error)
}

// validateAppend rejects malformed sends before any I/O. Shared by both
// store implementations so validation cannot drift between them.
func validateAppend(senderID, recipientID, publicationID int64, content string) error {
	if senderID <= 0 {
		return &ValidationError{Field: "sender_id", Reason: "must be a positive id"}
	}
	if recipientID <= 0 {
		return &ValidationError{Field: "recipient_id", Reason: "must be a positive id"}
	}
	if senderID == recipientID {
		return &ValidationError{Field: "recipient_id", Reason: "sender and recipient must differ"}
	}
	if publicationID <= 0 {
		return &ValidationError{Field: "publication_id", Reason: "must be a positive id"}
	}
	if strings.TrimSpace(content) == "" {
		return &ValidationError{Field: "content", Reason: "must not be empty"}
	}
	return nil
}
