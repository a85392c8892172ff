package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/enki09/borg-collective/internal/models"
)

// SQLiteStore persists relay snapshots in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store.
// If dbPath is empty, defaults to "./data/borg.db"
func NewSQLiteStore(ctx context.Context, dbPath string) (*SQLiteStore, error) {
	if dbPath == "" {
		dbPath = "./data/borg.db"
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	// Initialize schema
	if err := store.initSchema(ctx); err != nil {
		return nil, err
	}

	return store, nil
}

// initSchema creates tables if they don't exist.
func (s *SQLiteStore) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversations (
		id TEXT PRIMARY KEY,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		message_id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		seq INTEGER NOT NULL,
		ts DATETIME NOT NULL,
		speaker TEXT NOT NULL,
		reply_to TEXT DEFAULT '',
		content TEXT NOT NULL,
		message_type TEXT NOT NULL,
		confidence REAL NOT NULL,
		tags TEXT NOT NULL,
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

// SaveState persists a snapshot. Messages are immutable, so existing rows are
// left untouched; an empty snapshot clears the durable log (reset path).
func (s *SQLiteStore) SaveState(ctx context.Context, state *models.State) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if len(state.Conversations) == 0 {
		if _, err := tx.ExecContext(ctx, `DELETE FROM messages`); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM conversations`); err != nil {
			return err
		}
	}

	for _, conv := range state.Conversations {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO conversations (id, created_at, updated_at)
			VALUES (?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at
		`, conv.ID, conv.CreatedAt, conv.UpdatedAt)
		if err != nil {
			return err
		}

		for i, msg := range conv.Messages {
			tags, err := json.Marshal(msg.Tags)
			if err != nil {
				return err
			}
			_, err = tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO messages
					(message_id, conversation_id, seq, ts, speaker, reply_to, content,
					 message_type, confidence, tags, site, model_hint, url)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			`, msg.MessageID, conv.ID, i, msg.Timestamp, msg.Speaker, msg.ReplyTo,
				msg.Content, msg.MessageType, msg.Confidence, string(tags),
				msg.Site, msg.ModelHint, msg.URL)
			if err != nil {
				return err
			}
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO relay_meta (key, value) VALUES ('last_message_id', ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, state.LastMessageID)
	if err != nil {
		return err
	}

	return tx.Commit()
}
