// Package sqlite provides the durable MessageIndex backed by SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/custodia-labs/mailsage/internal/adapters/driven/index/sqlite/migrations"
	"github.com/custodia-labs/mailsage/internal/core/domain"
	"github.com/custodia-labs/mailsage/internal/core/ports/driven"
)

// Store is the SQLite-backed message index.
type Store struct {
	db   *sql.DB
	path string
}

var _ driven.MessageIndex = (*Store)(nil)

// NewStore opens (or creates) the index database in the given data
// directory. If dataDir is empty, defaults to ~/.mailsage/data/index.db.
func NewStore(dataDir string) (*Store, error) {
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		dataDir = filepath.Join(home, ".mailsage", "data")
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	dbPath := filepath.Join(dataDir, "index.db")

	// WAL mode lets queries run alongside the indexing writer.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("%w: opening database: %w", domain.ErrIndexUnavailable, err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: enabling foreign keys: %w", domain.ErrIndexUnavailable, err)
	}

	s := &Store{
		db:   db,
		path: dbPath,
	}

	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: running migrations: %w", domain.ErrIndexUnavailable, err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// migrate runs all pending migrations.
func (s *Store) migrate(fsys embed.FS) error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var currentVersion int
	row := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&currentVersion); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var upFiles []string
	for _, entry := range entries {
		name := entry.Name()
		if strings.HasSuffix(name, ".up.sql") {
			upFiles = append(upFiles, name)
		}
	}
	sort.Strings(upFiles)

	for _, name := range upFiles {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue // Skip files that don't match pattern
		}

		if version <= currentVersion {
			continue // Already applied
		}

		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}

		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}

		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}

	return nil
}

// UpsertMessage replaces the message row and its complete chunk set in a
// single transaction. A reader observes either the old or the new chunk
// set, never a mix.
func (s *Store) UpsertMessage(ctx context.Context, msg domain.Message, records []domain.IndexRecord) error {
	if msg.ID == "" {
		return fmt.Errorf("%w: message id is empty", domain.ErrInvalidInput)
	}

	recipientsJSON, err := json.Marshal(msg.To)
	if err != nil {
		return fmt.Errorf("marshalling recipients: %w", err)
	}
	labelsJSON, err := json.Marshal(msg.Labels)
	if err != nil {
		return fmt.Errorf("marshalling labels: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	// CASCADE clears the old chunk set before the replacement is written.
	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", msg.ID); err != nil {
		return fmt.Errorf("clearing prior message: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO messages (id, thread_id, ts, sender, recipients, subject, body,
			labels, unread, starred, has_attachment, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, msg.ID, msg.ThreadID, msg.Timestamp.UTC(), msg.From, string(recipientsJSON),
		msg.Subject, msg.Body, string(labelsJSON),
		boolToInt(msg.Unread), boolToInt(msg.Starred), boolToInt(msg.HasAttachment),
		time.Now().UTC())
	if err != nil {
		return fmt.Errorf("saving message: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO chunks (message_id, seq, content, start_off, end_off, embedding)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("preparing chunk insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		embeddingBlob := float32SliceToBytes(rec.Embedding)
		if _, err := stmt.ExecContext(ctx, msg.ID, rec.Chunk.Seq, rec.Chunk.Text,
			rec.Chunk.Start, rec.Chunk.End, embeddingBlob); err != nil {
			return fmt.Errorf("saving chunk %d: %w", rec.Chunk.Seq, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// HasMessage reports whether a message id is present.
func (s *Store) HasMessage(ctx context.Context, messageID string) (bool, error) {
	var exists int
	row := s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM messages WHERE id = ?)", messageID)
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("checking message: %w", err)
	}
	return exists == 1, nil
}

// GetMessage retrieves a message by id.
func (s *Store) GetMessage(ctx context.Context, messageID string) (*domain.Message, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, thread_id, ts, sender, recipients, subject, body, labels,
			unread, starred, has_attachment
		FROM messages WHERE id = ?
	`, messageID)

	msg, err := scanMessage(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: message %s", domain.ErrNotFound, messageID)
		}
		return nil, fmt.Errorf("scanning message: %w", err)
	}
	return msg, nil
}

// DeleteMessage removes a message; its chunks go with it via CASCADE.
func (s *Store) DeleteMessage(ctx context.Context, messageID string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM messages WHERE id = ?", messageID); err != nil {
		return fmt.Errorf("deleting message: %w", err)
	}
	return nil
}

// Clear removes every message and chunk.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM chunks"); err != nil {
		return fmt.Errorf("clearing chunks: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, "DELETE FROM messages"); err != nil {
		return fmt.Errorf("clearing messages: %w", err)
	}
	return nil
}

// Query scans candidate chunks and ranks them by cosine similarity in Go.
// The metadata filter narrows the scan in SQL first.
func (s *Store) Query(ctx context.Context, embedding []float32, k int, filter domain.Filter) ([]domain.IndexHit, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: k must be positive, got %d", domain.ErrInvalidInput, k)
	}
	if len(embedding) == 0 {
		return nil, fmt.Errorf("%w: query embedding is empty", domain.ErrInvalidInput)
	}

	query := `
		SELECT c.message_id, c.seq, c.content, c.start_off, c.end_off, c.embedding,
			m.thread_id, m.sender, m.ts, m.subject, m.labels
		FROM chunks c
		JOIN messages m ON m.id = c.message_id
		WHERE c.embedding IS NOT NULL
	`
	var args []any
	if filter.ThreadID != "" {
		query += " AND m.thread_id = ?"
		args = append(args, filter.ThreadID)
	}
	if filter.Sender != "" {
		query += " AND LOWER(m.sender) LIKE ?"
		args = append(args, "%"+strings.ToLower(filter.Sender)+"%")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var hits []domain.IndexHit
	for rows.Next() {
		var rec domain.IndexRecord
		var embeddingBlob []byte
		var ts time.Time
		var labelsJSON string

		if err := rows.Scan(&rec.Chunk.MessageID, &rec.Chunk.Seq, &rec.Chunk.Text,
			&rec.Chunk.Start, &rec.Chunk.End, &embeddingBlob,
			&rec.Chunk.Meta.ThreadID, &rec.Chunk.Meta.Sender, &ts,
			&rec.Chunk.Meta.Subject, &labelsJSON); err != nil {
			return nil, fmt.Errorf("scanning chunk: %w", err)
		}
		rec.Chunk.Meta.Timestamp = ts
		if err := json.Unmarshal([]byte(labelsJSON), &rec.Chunk.Meta.Labels); err != nil {
			return nil, fmt.Errorf("unmarshaling labels: %w", err)
		}

		rec.Embedding = bytesToFloat32Slice(embeddingBlob)
		if len(rec.Embedding) != len(embedding) {
			return nil, fmt.Errorf("%w: query has %d dimensions, index has %d",
				domain.ErrModelMismatch, len(embedding), len(rec.Embedding))
		}

		hits = append(hits, domain.IndexHit{
			Record: rec,
			Score:  cosineSimilarity(embedding, rec.Embedding),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunks: %w", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Record.Chunk.Meta.Timestamp.After(hits[j].Record.Chunk.Meta.Timestamp)
	})

	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

// ThreadMessages returns all messages of a thread, unordered.
func (s *Store) ThreadMessages(ctx context.Context, threadID string) ([]domain.Message, error) {
	return s.queryMessages(ctx, `
		SELECT id, thread_id, ts, sender, recipients, subject, body, labels,
			unread, starred, has_attachment
		FROM messages WHERE thread_id = ?
	`, threadID)
}

// MessagesSince returns all messages at or after the given instant, unordered.
func (s *Store) MessagesSince(ctx context.Context, since time.Time) ([]domain.Message, error) {
	return s.queryMessages(ctx, `
		SELECT id, thread_id, ts, sender, recipients, subject, body, labels,
			unread, starred, has_attachment
		FROM messages WHERE ts >= ?
	`, since.UTC())
}

func (s *Store) queryMessages(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying messages: %w", err)
	}
	defer rows.Close()

	var msgs []domain.Message
	for rows.Next() {
		msg, err := scanMessage(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		msgs = append(msgs, *msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}
	return msgs, nil
}

// Dimensions returns the embedding dimensionality of the stored records,
// 0 when no embedded chunks exist.
func (s *Store) Dimensions(ctx context.Context) (int, error) {
	var length sql.NullInt64
	row := s.db.QueryRowContext(ctx,
		"SELECT LENGTH(embedding) FROM chunks WHERE embedding IS NOT NULL LIMIT 1")
	if err := row.Scan(&length); err != nil {
		if err == sql.ErrNoRows {
			return 0, nil
		}
		return 0, fmt.Errorf("reading dimensions: %w", err)
	}
	if !length.Valid {
		return 0, nil
	}
	return int(length.Int64) / 4, nil
}

// Count returns the number of indexed messages.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	row := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("counting messages: %w", err)
	}
	return count, nil
}

// scanMessage scans one message row via the given Scan function.
func scanMessage(scan func(dest ...any) error) (*domain.Message, error) {
	var msg domain.Message
	var ts time.Time
	var recipientsJSON, labelsJSON string
	var unread, starred, hasAttachment int

	if err := scan(&msg.ID, &msg.ThreadID, &ts, &msg.From, &recipientsJSON,
		&msg.Subject, &msg.Body, &labelsJSON, &unread, &starred, &hasAttachment); err != nil {
		return nil, err
	}

	msg.Timestamp = ts
	if err := json.Unmarshal([]byte(recipientsJSON), &msg.To); err != nil {
		return nil, fmt.Errorf("unmarshaling recipients: %w", err)
	}
	if err := json.Unmarshal([]byte(labelsJSON), &msg.Labels); err != nil {
		return nil, fmt.Errorf("unmarshaling labels: %w", err)
	}
	msg.Unread = unread == 1
	msg.Starred = starred == 1
	msg.HasAttachment = hasAttachment == 1

	return &msg, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// float32SliceToBytes converts a []float32 to a byte slice for storage.
func float32SliceToBytes(floats []float32) []byte {
	if len(floats) == 0 {
		return nil
	}
	buf := make([]byte, len(floats)*4)
	for i, f := range floats {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// bytesToFloat32Slice converts a byte slice back to []float32.
func bytesToFloat32Slice(data []byte) []float32 {
	if len(data) == 0 {
		return nil
	}
	floats := make([]float32, len(data)/4)
	for i := range floats {
		floats[i] = math.Float32frombits(binary.LittleEndian.Uint32(data[i*4:]))
	}
	return floats
}

func cosineSimilarity(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
