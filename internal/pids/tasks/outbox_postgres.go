package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	txcontext "rdmrecords/pkg/platform/tx"
)

// Entry is an outbox row awaiting publication.
type Entry struct {
	ID        uuid.UUID
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

// PostgresOutbox stores tasks in pid_task_outbox. Insert joins the
// transaction in ctx; the relay reads rows with FOR UPDATE SKIP LOCKED so
// several relays can run side by side.
type PostgresOutbox struct {
	db *sql.DB
}

func NewPostgresOutbox(db *sql.DB) *PostgresOutbox {
	return &PostgresOutbox{db: db}
}

func (o *PostgresOutbox) Insert(ctx context.Context, tasks ...Task) error {
	const query = `
		INSERT INTO pid_task_outbox (id, task_key, payload, created_at)
		VALUES ($1, $2, $3, $4)
	`
	exec := txcontext.Exec(ctx, o.db)
	for _, t := range tasks {
		payload, err := t.Encode()
		if err != nil {
			return err
		}
		if _, err := exec.ExecContext(ctx, query, t.ID, t.Key(), payload, t.CreatedAt); err != nil {
			return fmt.Errorf("insert outbox entry: %w", err)
		}
	}
	return nil
}

// FetchUnpublished locks up to limit unpublished rows, oldest first. It must
// run inside a transaction for the locks to hold until MarkPublished.
func (o *PostgresOutbox) FetchUnpublished(ctx context.Context, limit int) ([]Entry, error) {
	const query = `
		SELECT id, task_key, payload, created_at
		FROM pid_task_outbox
		WHERE published_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	rows, err := txcontext.Exec(ctx, o.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Key, &e.Payload, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (o *PostgresOutbox) MarkPublished(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	values := make([]string, len(ids))
	for i, id := range ids {
		values[i] = id.String()
	}
	const query = `UPDATE pid_task_outbox SET published_at = NOW() WHERE id = ANY($1::uuid[])`
	if _, err := txcontext.Exec(ctx, o.db).ExecContext(ctx, query, pq.Array(values)); err != nil {
		return fmt.Errorf("mark outbox entries published: %w", err)
	}
	return nil
}

func (o *PostgresOutbox) Backlog(ctx context.Context) (int, error) {
	var n int
	err := txcontext.Exec(ctx, o.db).
		QueryRowContext(ctx, `SELECT COUNT(*) FROM pid_task_outbox WHERE published_at IS NULL`).
		Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count outbox backlog: %w", err)
	}
	return n, nil
}

// DeletePublishedBefore prunes rows published before cutoff.
func (o *PostgresOutbox) DeletePublishedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := txcontext.Exec(ctx, o.db).ExecContext(ctx,
		`DELETE FROM pid_task_outbox WHERE published_at IS NOT NULL AND published_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune outbox: %w", err)
	}
	return res.RowsAffected()
}
