package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hooksink/hooksink/internal/models"
)

const queryTimeout = 5 * time.Second

// PostgresRepository stores messages in PostgreSQL. Idempotency is enforced
// by the primary key on message_id together with ON CONFLICT DO NOTHING, so
// concurrent duplicate deliveries are resolved by the database itself.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(ctx context.Context, connString string) (*PostgresRepository, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	config.MaxConns = 25
	config.MinConns = 5
	config.MaxConnLifetime = 5 * time.Minute
	config.MaxConnIdleTime = 1 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

func (r *PostgresRepository) Close() {
	r.pool.Close()
}

func (r *PostgresRepository) Insert(ctx context.Context, msg *models.Message) (InsertOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	query := `
		INSERT INTO messages (message_id, sender, recipient, ts, body, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (message_id) DO NOTHING
	`

	tag, err := r.pool.Exec(ctx, query,
		msg.MessageID, msg.From, msg.To, msg.TS, msg.Text, msg.CreatedAt,
	)
	if err != nil {
		return OutcomeCreated, fmt.Errorf("failed to insert message: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return OutcomeDuplicate, nil
	}
	return OutcomeCreated, nil
}

func (r *PostgresRepository) List(ctx context.Context, f Filter, p Page) ([]models.Message, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	where, args := buildFilter(f)

	// Count and page run inside one read-only transaction so total always
	// describes the same snapshot the page was cut from.
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var total int64
	countQuery := "SELECT COUNT(*) FROM messages" + where
	if err := tx.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	pageQuery := fmt.Sprintf(`
		SELECT message_id, sender, recipient, ts, body, created_at
		FROM messages%s
		ORDER BY ts ASC, message_id ASC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, p.Limit, p.Offset)

	rows, err := tx.Query(ctx, pageQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []models.Message
	for rows.Next() {
		var m models.Message
		if err := rows.Scan(&m.MessageID, &m.From, &m.To, &m.TS, &m.Text, &m.CreatedAt); err != nil {
			return nil, 0, fmt.Errorf("failed to scan message: %w", err)
		}
		m.TS = m.TS.UTC()
		m.CreatedAt = m.CreatedAt.UTC()
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to read messages: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return messages, total, nil
}

func (r *PostgresRepository) Stats(ctx context.Context) (*Stats, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// All aggregates read the same snapshot: a single repeatable-read
	// transaction, so an insert landing mid-aggregation cannot skew one
	// quantity against another.
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   pgx.RepeatableRead,
		AccessMode: pgx.ReadOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	stats := &Stats{MessagesPerSender: []SenderCount{}}

	err = tx.QueryRow(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT sender), MIN(ts), MAX(ts)
		FROM messages
	`).Scan(&stats.TotalMessages, &stats.SendersCount, &stats.FirstMessageTS, &stats.LastMessageTS)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate messages: %w", err)
	}

	rows, err := tx.Query(ctx, `
		SELECT sender, COUNT(*) AS cnt
		FROM messages
		GROUP BY sender
		ORDER BY cnt DESC, sender ASC
		LIMIT $1
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

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if stats.FirstMessageTS != nil {
		first := stats.FirstMessageTS.UTC()
		last := stats.LastMessageTS.UTC()
		stats.FirstMessageTS = &first
		stats.LastMessageTS = &last
	}

	return stats, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// buildFilter renders f as a WHERE clause with positional args.
func buildFilter(f Filter) (string, []any) {
	var clauses []string
	var args []any

	if f.From != "" {
		args = append(args, f.From)
		clauses = append(clauses, fmt.Sprintf("sender = $%d", len(args)))
	}
	if f.Since != nil {
		args = append(args, *f.Since)
		clauses = append(clauses, fmt.Sprintf("ts >= $%d", len(args)))
	}
	if f.Q != "" {
		args = append(args, "%"+strings.ToLower(f.Q)+"%")
		clauses = append(clauses, fmt.Sprintf("LOWER(body) LIKE $%d", len(args)))
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
