// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/jeranaias/taxease-tui/internal/model"
)

// ErrNotFound is returned when a conversation is not in the archive.
var ErrNotFound = errors.New("conversation not in archive")

// Archive is a SQLite-backed transcript store. It is safe for concurrent use.
type Archive struct {
	db   *sql.DB
	path string
}

// Open opens or creates the archive at path. ":memory:" opens a private
// in-memory database.
func Open(path string) (*Archive, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
			return nil, fmt.Errorf("failed to create archive directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}

	// SQLite has a single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to set pragma: %w", err)
		}
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if _, err := db.Exec(
		`INSERT INTO metadata(key, value) VALUES ('schema_version', ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		strconv.Itoa(SchemaVersion),
	); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to write metadata: %w", err)
	}

	return &Archive{db: db, path: path}, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}

// Path returns the database location.
func (a *Archive) Path() string {
	return a.path
}

// =============================================================================
// WRITES
// =============================================================================

// Record appends msgs to conversation id, creating the conversation row if
// needed. Messages already archived (same id) are skipped.
func (a *Archive) Record(ctx context.Context, id model.ConversationID, msgs ...*model.Message) error {
	if id.IsZero() || len(msgs) == 0 {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := touchConversation(ctx, tx, id); err != nil {
		return err
	}

	var seq int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM messages WHERE conversation_id = ?`, id.String(),
	).Scan(&seq); err != nil {
		return fmt.Errorf("failed to read sequence: %w", err)
	}

	if err := insertMessages(ctx, tx, id, seq, msgs); err != nil {
		return err
	}
	return tx.Commit()
}

// Replace swaps the archived messages of conversation id for msgs in one
// transaction. The title is kept.
func (a *Archive) Replace(ctx context.Context, id model.ConversationID, msgs ...*model.Message) error {
	if id.IsZero() {
		return nil
	}

	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := touchConversation(ctx, tx, id); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE conversation_id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to clear messages: %w", err)
	}
	if err := insertMessages(ctx, tx, id, 0, msgs); err != nil {
		return err
	}
	return tx.Commit()
}

func touchConversation(ctx context.Context, tx *sql.Tx, id model.ConversationID) error {
	now := time.Now().UnixMilli()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO conversations(id, title, created_at, updated_at) VALUES (?, '', ?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		id.String(), now, now,
	); err != nil {
		return fmt.Errorf("failed to upsert conversation: %w", err)
	}
	return nil
}

// insertMessages writes msgs after sequence number seq.
func insertMessages(ctx context.Context, tx *sql.Tx, id model.ConversationID, seq int64, msgs []*model.Message) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO messages
			(id, conversation_id, seq, role, text, failed, misconception, sources, follow_ups, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		if m == nil {
			continue
		}
		sources, err := encodeJSON(m.Sources)
		if err != nil {
			return err
		}
		followUps, err := encodeJSON(m.FollowUps)
		if err != nil {
			return err
		}
		created := m.Timestamp
		if created.IsZero() {
			created = time.Now()
		}
		seq++
		if _, err := stmt.ExecContext(ctx,
			m.ID, id.String(), seq, string(m.Role), m.Text,
			boolInt(m.Failed), boolInt(m.MisconceptionFlag),
			sources, followUps, created.UnixMilli(),
		); err != nil {
			return fmt.Errorf("failed to insert message: %w", err)
		}
	}
	return nil
}

// Rename sets the archived title of a conversation.
func (a *Archive) Rename(ctx context.Context, id model.ConversationID, title string) error {
	now := time.Now().UnixMilli()
	_, err := a.db.ExecContext(ctx,
		`INSERT INTO conversations(id, title, created_at, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET title = excluded.title`,
		id.String(), title, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to rename conversation: %w", err)
	}
	return nil
}

// Forget removes a conversation and its messages.
func (a *Archive) Forget(ctx context.Context, id model.ConversationID) error {
	if _, err := a.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id.String()); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// =============================================================================
// READS
// =============================================================================

// List returns archived conversations, most recently updated first.
func (a *Archive) List(ctx context.Context) ([]model.ConversationSummary, error) {
	rows, err := a.db.QueryContext(ctx, `
		SELECT c.id, c.title, c.created_at, c.updated_at, COUNT(m.id)
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id
		GROUP BY c.id
		ORDER BY c.updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []model.ConversationSummary
	for rows.Next() {
		var (
			s                model.ConversationSummary
			id               string
			created, updated int64
		)
		if err := rows.Scan(&id, &s.Title, &created, &updated, &s.MessageCount); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		s.ID = model.ConversationID(id)
		s.CreatedAt = time.UnixMilli(created)
		s.UpdatedAt = time.UnixMilli(updated)
		out = append(out, s)
	}
	return out, rows.Err()
}

// Load returns an archived conversation with its transcript in order.
func (a *Archive) Load(ctx context.Context, id model.ConversationID) (*model.Conversation, error) {
	conv := &model.Conversation{}
	var created, updated int64
	err := a.db.QueryRowContext(ctx,
		`SELECT title, created_at, updated_at FROM conversations WHERE id = ?`, id.String(),
	).Scan(&conv.Title, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	conv.ID = id
	conv.CreatedAt = time.UnixMilli(created)
	conv.UpdatedAt = time.UnixMilli(updated)

	rows, err := a.db.QueryContext(ctx, `
		SELECT id, role, text, failed, misconception, sources, follow_ups, created_at
		FROM messages WHERE conversation_id = ? ORDER BY seq`, id.String())
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		conv.Messages = append(conv.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	conv.MessageCount = len(conv.Messages)
	return conv, nil
}

// SearchResult is one archived message matching a query.
type SearchResult struct {
	ConversationID model.ConversationID
	Title          string
	Message        *model.Message
}

// Search finds archived messages containing query (case-insensitive).
func (a *Archive) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT m.conversation_id, c.title,
		       m.id, m.role, m.text, m.failed, m.misconception, m.sources, m.follow_ups, m.created_at
		FROM messages m JOIN conversations c ON c.id = m.conversation_id
		WHERE m.text LIKE ? ESCAPE '\'
		ORDER BY m.created_at DESC
		LIMIT ?`, "%"+escapeLike(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search archive: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var (
			r      SearchResult
			convID string
		)
		m, err := scanMessage(rows, &convID, &r.Title)
		if err != nil {
			return nil, err
		}
		r.ConversationID = model.ConversationID(convID)
		r.Message = m
		out = append(out, r)
	}
	return out, rows.Err()
}

// =============================================================================
// HELPERS
// =============================================================================

// scanMessage scans the message columns, preceded by any extra destinations.
func scanMessage(rows *sql.Rows, leading ...any) (*model.Message, error) {
	var (
		m                     model.Message
		role                  string
		failed, misconception int
		sources, followUps    sql.NullString
		created               int64
	)
	dest := append(leading, &m.ID, &role, &m.Text, &failed, &misconception, &sources, &followUps, &created)
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("failed to scan message: %w", err)
	}
	m.Role = model.Role(role)
	m.Failed = failed != 0
	m.MisconceptionFlag = misconception != 0
	m.Timestamp = time.UnixMilli(created)
	if sources.Valid && sources.String != "" {
		if err := json.Unmarshal([]byte(sources.String), &m.Sources); err != nil {
			return nil, fmt.Errorf("failed to decode sources: %w", err)
		}
	}
	if followUps.Valid && followUps.String != "" {
		if err := json.Unmarshal([]byte(followUps.String), &m.FollowUps); err != nil {
			return nil, fmt.Errorf("failed to decode follow-ups: %w", err)
		}
	}
	return &m, nil
}

func encodeJSON(v any) (sql.NullString, error) {
	switch x := v.(type) {
	case []model.Citation:
		if len(x) == 0 {
			return sql.NullString{}, nil
		}
	case []string:
		if len(x) == 0 {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to encode message field: %w", err)
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
