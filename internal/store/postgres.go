package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/albaliriagomez/proyectoReusetech/internal/metrics"
	"github.com/albaliriagomez/proyectoReusetech/internal/models"
)

// PostgresStore handles PostgreSQL database operations.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL store with a connection pool.
func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	return &PostgresStore{pool: pool}, nil
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Append stores a new message. The id sequence and clock are assigned by the
// database, so id order is append-completion order across all connections.
func (s *PostgresStore) Append(ctx context.Context, senderID, recipientID, publicationID int64, content string) (*models.Message, error) {
	if err := validateAppend(senderID, recipientID, publicationID, content); err != nil {
		return nil, err
	}

	start := time.Now()
	msg := &models.Message{}
	err := s.pool.QueryRow(ctx, `
		INSERT INTO messages (sender_id, recipient_id, publication_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, sender_id, recipient_id, publication_id, content, sent_at
	`, senderID, recipientID, publicationID, content).Scan(
		&msg.ID,
		&msg.SenderID,
		&msg.RecipientID,
		&msg.PublicationID,
		&msg.Content,
		&msg.SentAt,
	)
	metrics.PostgresLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &StorageError{Op: "append", Err: err}
	}
	return msg, nil
}

// ListBetween retrieves the full exchange between two users about a
// publication, oldest first.
func (s *PostgresStore) ListBetween(ctx context.Context, publicationID, userA, userB int64) ([]models.Message, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT id, sender_id, recipient_id, publication_id, content, sent_at
		FROM messages
		WHERE publication_id = $1
		  AND ((sender_id = $2 AND recipient_id = $3) OR
		       (sender_id = $3 AND recipient_id = $2))
		ORDER BY sent_at ASC, id ASC
	`, publicationID, userA, userB)
	metrics.PostgresLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &StorageError{Op: "list_between", Err: err}
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.RecipientID,
			&msg.PublicationID,
			&msg.Content,
			&msg.SentAt,
		)
		if err != nil {
			return nil, &StorageError{Op: "list_between", Err: err}
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list_between", Err: err}
	}

	return messages, nil
}

// ListConversations derives the inbox: one row per distinct
// (publication, unordered user pair), keeping the latest message of each
// group. DISTINCT ON picks the first row per group, so the inner ordering
// ends with sent_at DESC, id DESC; the outer query re-sorts the surviving
// rows most recent first. Counterpart names and publication titles are
// joined from the marketplace tables when present.
func (s *PostgresStore) ListConversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error) {
	start := time.Now()
	rows, err := s.pool.Query(ctx, `
		SELECT * FROM (
			SELECT DISTINCT ON (m.publication_id, LEAST(m.sender_id, m.recipient_id), GREATEST(m.sender_id, m.recipient_id))
				m.id, m.sender_id, m.recipient_id, m.publication_id, m.content, m.sent_at,
				COALESCE(u.name, '') AS counterpart_name,
				COALESCE(p.title, '') AS publication_title
			FROM messages m
			LEFT JOIN users u ON u.id = CASE
				WHEN m.sender_id = $1 THEN m.recipient_id
				ELSE m.sender_id
			END
			LEFT JOIN publications p ON p.id = m.publication_id
			WHERE m.sender_id = $1 OR m.recipient_id = $1
			ORDER BY m.publication_id, LEAST(m.sender_id, m.recipient_id), GREATEST(m.sender_id, m.recipient_id), m.sent_at DESC, m.id DESC
		) c
		ORDER BY c.sent_at DESC, c.id DESC
	`, userID)
	metrics.PostgresLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, &StorageError{Op: "list_conversations", Err: err}
	}
	defer rows.Close()

	summaries := []models.ConversationSummary{}
	for rows.Next() {
		var cs models.ConversationSummary
		err := rows.Scan(
			&cs.ID,
			&cs.SenderID,
			&cs.RecipientID,
			&cs.PublicationID,
			&cs.Content,
			&cs.SentAt,
			&cs.CounterpartName,
			&cs.PublicationTitle,
		)
		if err != nil {
			return nil, &StorageError{Op: "list_conversations", Err: err}
		}
		summaries = append(summaries, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list_conversations", Err: err}
	}

	return summaries, nil
}
