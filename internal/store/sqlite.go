package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/albaliriagomez/proyectoReusetech/internal/models"
)

// SQLiteStore handles SQLite database operations. It is the development
// fallback when no DATABASE_URL is configured, and the backing store for
// tests (":memory:").
type SQLiteStore struct {
	db *sql.DB

	// mu serializes appends so sent_at assignment is strictly increasing
	// together with the autoincrement id. ListConversations depends on
	// this: with (sent_at, id) co-monotonic, MAX(id) per group is the
	// latest message under the sent_at DESC, id DESC tie-break.
	mu     sync.Mutex
	lastAt time.Time
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/reusetech.db".
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/reusetech.db"
	}

	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		dbPath += "?_journal_mode=WAL&_foreign_keys=on"
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// An in-memory database exists per connection; pin the pool to one so
	// every query sees the same schema.
	if dbPath == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS publications (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL DEFAULT '',
		owner_id INTEGER,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS messages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sender_id INTEGER NOT NULL,
		recipient_id INTEGER NOT NULL,
		publication_id INTEGER NOT NULL,
		content TEXT NOT NULL,
		sent_at DATETIME NOT NULL,
		CHECK (sender_id <> recipient_id)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages(publication_id, sender_id, recipient_id);
	CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id);
	CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages(recipient_id);
	`

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() {
	s.db.Close()
}

// Ping checks the database connection.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// nextSentAt returns a timestamp strictly after every previously assigned one.
func (s *SQLiteStore) nextSentAt() time.Time {
	now := time.Now().UTC()
	if !now.After(s.lastAt) {
		now = s.lastAt.Add(time.Microsecond)
	}
	s.lastAt = now
	return now
}

// Append stores a new message.
func (s *SQLiteStore) Append(ctx context.Context, senderID, recipientID, publicationID int64, content string) (*models.Message, error) {
	if err := validateAppend(senderID, recipientID, publicationID, content); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sentAt := s.nextSentAt()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO messages (sender_id, recipient_id, publication_id, content, sent_at)
		VALUES (?, ?, ?, ?, ?)
	`, senderID, recipientID, publicationID, content, sentAt)
	if err != nil {
		return nil, &StorageError{Op: "append", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, &StorageError{Op: "append", Err: err}
	}

	return &models.Message{
		ID:            id,
		SenderID:      senderID,
		RecipientID:   recipientID,
		PublicationID: publicationID,
		Content:       content,
		SentAt:        sentAt,
	}, nil
}

// ListBetween retrieves the full exchange between two users about a
// publication, oldest first.
func (s *SQLiteStore) ListBetween(ctx context.Context, publicationID, userA, userB int64) ([]models.Message, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, sender_id, recipient_id, publication_id, content, sent_at
		FROM messages
		WHERE publication_id = ?
		  AND ((sender_id = ? AND recipient_id = ?) OR
		       (sender_id = ? AND recipient_id = ?))
		ORDER BY sent_at ASC, id ASC
	`, publicationID, userA, userB, userB, userA)
	if err != nil {
		return nil, &StorageError{Op: "list_between", Err: err}
	}
	defer rows.Close()

	messages := []models.Message{}
	for rows.Next() {
		var msg models.Message
		var sentAt string
		err := rows.Scan(
			&msg.ID,
			&msg.SenderID,
			&msg.RecipientID,
			&msg.PublicationID,
			&msg.Content,
			&sentAt,
		)
		if err != nil {
			return nil, &StorageError{Op: "list_between", Err: err}
		}
		msg.SentAt = parseSQLiteTime(sentAt)
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list_between", Err: err}
	}

	return messages, nil
}

// ListConversations derives the inbox view. The grouped subquery picks the
// id of the latest message per (publication, unordered pair); see the mu
// comment for why MAX(id) is the right row.
func (s *SQLiteStore) ListConversations(ctx context.Context, userID int64) ([]models.ConversationSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT m.id, m.sender_id, m.recipient_id, m.publication_id, m.content, m.sent_at,
		       COALESCE(u.name, '') AS counterpart_name,
		       COALESCE(p.title, '') AS publication_title
		FROM messages m
		JOIN (
			SELECT MAX(id) AS last_id
			FROM messages
			WHERE sender_id = ? OR recipient_id = ?
			GROUP BY publication_id, MIN(sender_id, recipient_id), MAX(sender_id, recipient_id)
		) g ON g.last_id = m.id
		LEFT JOIN users u ON u.id = CASE
			WHEN m.sender_id = ? THEN m.recipient_id
			ELSE m.sender_id
		END
		LEFT JOIN publications p ON p.id = m.publication_id
		ORDER BY m.sent_at DESC, m.id DESC
	`, userID, userID, userID)
	if err != nil {
		return nil, &StorageError{Op: "list_conversations", Err: err}
	}
	defer rows.Close()

	summaries := []models.ConversationSummary{}
	for rows.Next() {
		var cs models.ConversationSummary
		var sentAt string
		err := rows.Scan(
			&cs.ID,
			&cs.SenderID,
			&cs.RecipientID,
			&cs.PublicationID,
			&cs.Content,
			&sentAt,
			&cs.CounterpartName,
			&cs.PublicationTitle,
		)
		if err != nil {
			return nil, &StorageError{Op: "list_conversations", Err: err}
		}
		cs.SentAt = parseSQLiteTime(sentAt)
		summaries = append(summaries, cs)
	}
	if err := rows.Err(); err != nil {
		return nil, &StorageError{Op: "list_conversations", Err: err}
	}

	return summaries, nil
}

// InsertUser adds a marketplace user so inbox summaries can join its display
// name. The marketplace itself owns this table in production; this helper
// exists for development seeding and tests.
func (s *SQLiteStore) InsertUser(ctx context.Context, id int64, name string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO users (id, name) VALUES (?, ?)
	`, id, name)
	if err != nil {
		return &StorageError{Op: "insert_user", Err: err}
	}
	return nil
}

// InsertPublication adds a listing so inbox summaries can join its title.
func (s *SQLiteStore) InsertPublication(ctx context.Context, id int64, title string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO publications (id, title) VALUES (?, ?)
	`, id, title)
	if err != nil {
		return &StorageError{Op: "insert_publication", Err: err}
	}
	return nil
}

// parseSQLiteTime handles the formats the sqlite3 driver hands back for
// DATETIME columns written from time.Time values.
func parseSQLiteTime(raw string) time.Time {
	for _, layout := range []string{
		time.RFC3339Nano,
		"2006-01-02 15:04:05.999999999-07:00",
		"2006-01-02 15:04:05",
	} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}
