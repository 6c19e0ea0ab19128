package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"rdmrecords/internal/pids/models"
	txcontext "rdmrecords/pkg/platform/tx"
)

// PostgresStore persists the PID registry in the pid_registry table.
// It joins the transaction bound to ctx, so rollbacks undo its writes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const rowColumns = `scheme, value, provider, object_type, object_id, status, previous_status, updated_at`

func (s *PostgresStore) Create(ctx context.Context, row *Row) error {
	if row == nil {
		return fmt.Errorf("pid row is required")
	}
	query := `
		INSERT INTO pid_registry (` + rowColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (scheme, value) DO NOTHING
	`
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, query,
		row.Scheme,
		row.Value,
		row.Provider,
		string(row.ObjectType),
		row.ObjectID,
		string(row.Status),
		string(row.PreviousStatus),
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("create pid row: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("create pid row: %w", err)
	}
	if affected == 0 {
		return ErrAlreadyUsed
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, scheme, value string) (*Row, error) {
	query := `SELECT ` + rowColumns + ` FROM pid_registry WHERE scheme = $1 AND value = $2`
	row, err := scanRow(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, scheme, value))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get pid row: %w", err)
	}
	return row, nil
}

func (s *PostgresStore) SetStatus(ctx context.Context, scheme, value string, status models.Status) (*Row, error) {
	query := `
		UPDATE pid_registry
		SET previous_status = status, status = $3, updated_at = $4
		WHERE scheme = $1 AND value = $2
		RETURNING ` + rowColumns
	row, err := scanRow(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, scheme, value, string(status), time.Now()))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("set pid status: %w", err)
	}
	return row, nil
}

func (s *PostgresStore) Delete(ctx context.Context, scheme, value string) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx,
		`DELETE FROM pid_registry WHERE scheme = $1 AND value = $2`, scheme, value)
	if err != nil {
		return fmt.Errorf("delete pid row: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete pid row: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRow(row *sql.Row) (*Row, error) {
	var (
		out            Row
		objectType     string
		status         string
		previousStatus string
	)
	if err := row.Scan(
		&out.Scheme,
		&out.Value,
		&out.Provider,
		&objectType,
		&out.ObjectID,
		&status,
		&previousStatus,
		&out.UpdatedAt,
	); err != nil {
		return nil, err
	}
	out.ObjectType = models.EntityType(objectType)
	out.Status = models.Status(status)
	out.PreviousStatus = models.Status(previousStatus)
	return &out, nil
}
