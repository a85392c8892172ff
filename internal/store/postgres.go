package store

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/enki09/borg-collective/internal/models"
)

// PostgresStore persists relay snapshots in PostgreSQL.
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

	store := &PostgresStore{pool: pool}

	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *PostgresStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		message_id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		ts TIMESTAMPTZ NOT NULL,
		speaker TEXT NOT NULL,
		reply_to TEXT DEFAULT '',
		content TEXT NOT NULL,
		message_type TEXT NOT NULL,
		confidence DOUBLE PRECISION NOT NULL,
		tags JSONB NOT NULL,
		site TEXT NOT NULL,
		model_hint TEXT DEFAULT '',
		url TEXT DEFAULT ''
	);

	CREATE TABLE IF NOT EXISTS relay_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, seq);
	`

	_, err := s.pool.Exec(ctx, schema)
	return err
}

// Close closes the database connection pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Ping checks the database connection.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// SaveState persists a snapshot. Messages are immutable, so existing rows are
// left untouched; an empty snapshot clears the durable log (reset path).
func (s *PostgresStore) SaveState(ctx context.Context, state *models.State) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if len(state.Conversations) == 0 {
		if _, err := tx.Exec(ctx, `TRUNCATE messages, conversations`); err != nil {
			return err
		}
	}

	for _, conv := range state.Conversations {
		_, err := tx.Exec(ctx, `
			INSERT INTO conversations (id, created_at, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET updated_at = EXCLUDED.updated_at
		`, conv.ID, conv.CreatedAt, conv.UpdatedAt)
		if err != nil {
			return err
		}

		for i, msg := range conv.Messages {
			tags, err := json.Marshal(msg.Tags)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx, `
				INSERT INTO messages
					(message_id, conversation_id, seq, ts, speaker, reply_to, content,
					 message_type, confidence, tags, site, model_hint, url)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
				ON CONFLICT (message_id) DO NOTHING
			`, msg.MessageID, conv.ID, i, msg.Timestamp, msg.Speaker, msg.ReplyTo,
				msg.Content, msg.MessageType, msg.Confidence, tags,
				msg.Site, msg.ModelHint, msg.URL)
			if err != nil {
				return err
			}
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO relay_meta (key, value) VALUES ('last_message_id', $1)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value
	`, state.LastMessageID)
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}
