package store

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// schema is idempotent: every statement is IF NOT EXISTS, so startup can
// always run it against an existing database.
const schema = `
CREATE TABLE IF NOT EXISTS users (
	id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL DEFAULT '',
	email TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS publications (
	id BIGSERIAL PRIMARY KEY,
	title TEXT NOT NULL DEFAULT '',
	owner_id BIGINT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS messages (
	id BIGSERIAL PRIMARY KEY,
	sender_id BIGINT NOT NULL,
	recipient_id BIGINT NOT NULL,
	publication_id BIGINT NOT NULL,
	content TEXT NOT NULL,
	sent_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp(),
	CONSTRAINT messages_distinct_parties CHECK (sender_id <> recipient_id)
);

CREATE INDEX IF NOT EXISTS idx_messages_pair ON messages (publication_id, sender_id, recipient_id);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages (sender_id);
CREATE INDEX IF NOT EXISTS idx_messages_recipient ON messages (recipient_id);
`

// RunMigrations applies the schema to the database at databaseURL.
func RunMigrations(ctx context.Context, databaseURL string) error {
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return err
	}
	defer conn.Close(ctx)

	_, err = conn.Exec(ctx, schema)
	return err
}
