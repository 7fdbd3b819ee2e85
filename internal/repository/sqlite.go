package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hooksink/hooksink/internal/models"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS messages (
	message_id TEXT PRIMARY KEY,
	sender     TEXT NOT NULL,
	recipient  TEXT NOT NULL,
	ts         TEXT NOT NULL,
	ts_ns      INTEGER NOT NULL,
	body       TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_messages_order ON messages (ts_ns, message_id);
CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages (sender);
`

// SQLiteRepository stores messages in a local SQLite file, the default store
// for single-node deployments. Idempotency rides on the message_id primary
// key via INSERT OR IGNORE.
//
// Timestamps are kept twice: RFC3339 text for reads and unix nanoseconds for
// ordering and range filters, since lexicographic order of RFC3339 breaks
// down once fractional seconds vary in width.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(ctx context.Context, path string) (*SQLiteRepository, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	// SQLite handles one writer at a time; a single connection avoids
	// SQLITE_BUSY under concurrent inserts.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() {
	r.db.Close()
}

func (r *SQLiteRepository) Insert(ctx context.Context, msg *models.Message) (InsertOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO messages (message_id, sender, recipient, ts, ts_ns, body, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		msg.MessageID, msg.From, msg.To,
		msg.TS.UTC().Format(time.RFC3339Nano), msg.TS.UnixNano(),
		msg.Text, msg.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return OutcomeCreated, fmt.Errorf("failed to insert message: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return OutcomeCreated, fmt.Errorf("failed to read insert result: %w", err)
	}
	if affected == 0 {
		return OutcomeDuplicate, nil
	}
	return OutcomeCreated, nil
}

func (r *SQLiteRepository) List(ctx context.Context, f Filter, p Page) ([]models.Message, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	where, args := buildSQLiteFilter(f)

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var total int64
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM messages"+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	pageArgs := append(args, p.Limit, p.Offset)
	rows, err := tx.QueryContext(ctx, `
		SELECT message_id, sender, recipient, ts, body, created_at
		FROM messages`+where+`
		ORDER BY ts_ns ASC, message_id ASC
		LIMIT ? OFFSET ?
	`, pageArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		var ts, createdAt string
		if err := rows.Scan(&m.MessageID, &m.From, &m.To, &ts, &m.Text, &createdAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan message: %w", err)
		}
		if m.TS, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, 0, fmt.Errorf("failed to parse stored timestamp: %w", err)
		}
		if m.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
			return nil, 0, fmt.Errorf("failed to parse stored timestamp: %w", err)
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read messages: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return messages, total, nil
}

func (r *SQLiteRepository) Stats(ctx context.Context) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	tx, err := r.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stats := &Stats{MessagesPerSender: []SenderCount{}}

	var first, last sql.NullInt64
	err = tx.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT sender), MIN(ts_ns), MAX(ts_ns)
		FROM messages
	`).Scan(&stats.TotalMessages, &stats.SendersCount, &first, &last)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate messages: %w", err)
	}

	if first.Valid {
		ts := time.Unix(0, first.Int64).UTC()
		stats.FirstMessageTS = &ts
	}
	if last.Valid {
		ts := time.Unix(0, last.Int64).UTC()
		stats.LastMessageTS = &ts
	}

	rows, err := tx.QueryContext(ctx, `
		SELECT sender, COUNT(*) AS cnt
		FROM messages
		GROUP BY sender
		ORDER BY cnt DESC, sender ASC
		LIMIT ?
	`, topSendersLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate senders: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var sc SenderCount
		if err := rows.Scan(&sc.From, &sc.Count); err != nil {
			return nil, fmt.Errorf("failed to scan sender count: %w", err)
		}
		stats.MessagesPerSender = append(stats.MessagesPerSender, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sender counts: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return stats, nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func buildSQLiteFilter(f Filter) (string, []any) {
	var clauses []string
	var args []any

	if f.From != "" {
		clauses = append(clauses, "sender = ?")
		args = append(args, f.From)
	}
	if f.Since != nil {
		clauses = append(clauses, "ts_ns >= ?")
		args = append(args, f.Since.UnixNano())
	}
	if f.Q != "" {
		clauses = append(clauses, "LOWER(body) LIKE ?")
		args = append(args, "%"+strings.ToLower(f.Q)+"%")
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
