package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	pidmodels "rdmrecords/internal/pids/models"
	"rdmrecords/internal/records/models"
	txcontext "rdmrecords/pkg/platform/tx"
)

// PostgresStore persists aggregates in the parents, drafts and records
// tables. JSON columns hold access, metadata and the PID set.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal column: %w", err)
	}
	return data, nil
}

func pidsColumn(pids pidmodels.PIDSet) ([]byte, error) {
	if pids == nil {
		pids = pidmodels.PIDSet{}
	}
	return marshalJSON(pids)
}

func unmarshalColumns(pidsRaw, accessRaw, metadataRaw []byte, pids *pidmodels.PIDSet, access *models.Access, metadata *models.Metadata) error {
	if err := json.Unmarshal(pidsRaw, pids); err != nil {
		return fmt.Errorf("unmarshal pids: %w", err)
	}
	if access != nil {
		if err := json.Unmarshal(accessRaw, access); err != nil {
			return fmt.Errorf("unmarshal access: %w", err)
		}
		*access = access.Normalized()
	}
	if metadata != nil {
		if err := json.Unmarshal(metadataRaw, metadata); err != nil {
			return fmt.Errorf("unmarshal metadata: %w", err)
		}
	}
	return nil
}

// insertError maps unique violations to ErrConflict.
func insertError(kind string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fmt.Errorf("%s already exists: %w", kind, ErrConflict)
	}
	return fmt.Errorf("insert %s: %w", kind, err)
}

// updateResult maps zero affected rows to not found or conflict.
func (s *PostgresStore) updateResult(ctx context.Context, res sql.Result, table, id string, revision int) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	if n > 0 {
		return nil
	}
	var current int
	err = txcontext.Exec(ctx, s.db).
		QueryRowContext(ctx, `SELECT revision FROM `+table+` WHERE id = $1`, id).
		Scan(&current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", table, err)
	}
	return fmt.Errorf("%s %s at revision %d, saved from %d: %w", table, id, current, revision, ErrConflict)
}

func (s *PostgresStore) GetParent(ctx context.Context, id string) (*models.Parent, error) {
	const query = `SELECT id, pids, revision, created_at, updated_at FROM parents WHERE id = $1`
	var (
		p       models.Parent
		pidsRaw []byte
	)
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, query, id).
		Scan(&p.ID, &pidsRaw, &p.Revision, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get parent: %w", err)
	}
	if err := unmarshalColumns(pidsRaw, nil, nil, &p.PIDs, nil, nil); err != nil {
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) SaveParent(ctx context.Context, parent *models.Parent) error {
	pids, err := pidsColumn(parent.PIDs)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	exec := txcontext.Exec(ctx, s.db)
	if parent.Revision == 0 {
		_, err := exec.ExecContext(ctx,
			`INSERT INTO parents (id, pids, revision, created_at, updated_at) VALUES ($1, $2, 1, $3, $3)`,
			parent.ID, pids, now)
		if err != nil {
			return insertError("parent", err)
		}
		parent.CreatedAt = now
	} else {
		res, err := exec.ExecContext(ctx,
			`UPDATE parents SET pids = $2, revision = revision + 1, updated_at = $3 WHERE id = $1 AND revision = $4`,
			parent.ID, pids, now, parent.Revision)
		if err != nil {
			return fmt.Errorf("update parent: %w", err)
		}
		if err := s.updateResult(ctx, res, "parents", parent.ID, parent.Revision); err != nil {
			return err
		}
	}
	parent.Revision++
	parent.UpdatedAt = now
	return nil
}

const draftColumns = `id, parent_id, version_index, access, metadata, pids, revision, created_at, updated_at`

func scanDraft(row scanner) (*models.Draft, error) {
	var (
		d                               models.Draft
		accessRaw, metadataRaw, pidsRaw []byte
	)
	if err := row.Scan(&d.ID, &d.ParentID, &d.VersionIndex, &accessRaw, &metadataRaw, &pidsRaw, &d.Revision, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalColumns(pidsRaw, accessRaw, metadataRaw, &d.PIDs, &d.Access, &d.Metadata); err != nil {
		return nil, err
	}
	return &d, nil
}

func (s *PostgresStore) GetDraft(ctx context.Context, id string) (*models.Draft, error) {
	d, err := scanDraft(txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+draftColumns+` FROM drafts WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get draft: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) DraftByParent(ctx context.Context, parentID string) (*models.Draft, error) {
	d, err := scanDraft(txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+draftColumns+` FROM drafts WHERE parent_id = $1 ORDER BY version_index DESC LIMIT 1`, parentID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get draft by parent: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) SaveDraft(ctx context.Context, draft *models.Draft) error {
	access, err := marshalJSON(draft.Access)
	if err != nil {
		return err
	}
	metadata, err := marshalJSON(draft.Metadata)
	if err != nil {
		return err
	}
	pids, err := pidsColumn(draft.PIDs)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	exec := txcontext.Exec(ctx, s.db)
	if draft.Revision == 0 {
		_, err := exec.ExecContext(ctx,
			`INSERT INTO drafts (`+draftColumns+`) VALUES ($1, $2, $3, $4, $5, $6, 1, $7, $7)`,
			draft.ID, draft.ParentID, draft.VersionIndex, access, metadata, pids, now)
		if err != nil {
			return insertError("draft", err)
		}
		draft.CreatedAt = now
	} else {
		res, err := exec.ExecContext(ctx, `
			UPDATE drafts
			SET access = $2, metadata = $3, pids = $4, revision = revision + 1, updated_at = $5
			WHERE id = $1 AND revision = $6`,
			draft.ID, access, metadata, pids, now, draft.Revision)
		if err != nil {
			return fmt.Errorf("update draft: %w", err)
		}
		if err := s.updateResult(ctx, res, "drafts", draft.ID, draft.Revision); err != nil {
			return err
		}
	}
	draft.Revision++
	draft.UpdatedAt = now
	return nil
}

func (s *PostgresStore) DeleteDraft(ctx context.Context, id string) error {
	res, err := txcontext.Exec(ctx, s.db).ExecContext(ctx, `DELETE FROM drafts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

const recordColumns = `id, parent_id, version_index, access, metadata, pids, deleted, revision, published_at, created_at, updated_at`

func scanRecord(row scanner) (*models.Record, error) {
	var (
		r                               models.Record
		accessRaw, metadataRaw, pidsRaw []byte
	)
	if err := row.Scan(&r.ID, &r.ParentID, &r.VersionIndex, &accessRaw, &metadataRaw, &pidsRaw,
		&r.Deleted, &r.Revision, &r.PublishedAt, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	if err := unmarshalColumns(pidsRaw, accessRaw, metadataRaw, &r.PIDs, &r.Access, &r.Metadata); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *PostgresStore) GetRecord(ctx context.Context, id string) (*models.Record, error) {
	r, err := scanRecord(txcontext.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM records WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) SaveRecord(ctx context.Context, record *models.Record) error {
	access, err := marshalJSON(record.Access)
	if err != nil {
		return err
	}
	metadata, err := marshalJSON(record.Metadata)
	if err != nil {
		return err
	}
	pids, err := pidsColumn(record.PIDs)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	exec := txcontext.Exec(ctx, s.db)
	if record.Revision == 0 {
		if record.PublishedAt.IsZero() {
			record.PublishedAt = now
		}
		_, err := exec.ExecContext(ctx,
			`INSERT INTO records (`+recordColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8, $9, $9)`,
			record.ID, record.ParentID, record.VersionIndex, access, metadata, pids, record.Deleted, record.PublishedAt, now)
		if err != nil {
			return insertError("record", err)
		}
		record.CreatedAt = now
	} else {
		res, err := exec.ExecContext(ctx, `
			UPDATE records
			SET access = $2, metadata = $3, pids = $4, deleted = $5, revision = revision + 1, updated_at = $6
			WHERE id = $1 AND revision = $7`,
			record.ID, access, metadata, pids, record.Deleted, now, record.Revision)
		if err != nil {
			return fmt.Errorf("update record: %w", err)
		}
		if err := s.updateResult(ctx, res, "records", record.ID, record.Revision); err != nil {
			return err
		}
	}
	record.Revision++
	record.UpdatedAt = now
	return nil
}

func (s *PostgresStore) NextLatestPublishedByParent(ctx context.Context, parentID, excludeID string) (*models.Record, error) {
	r, err := scanRecord(txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT `+recordColumns+`
		FROM records
		WHERE parent_id = $1 AND id <> $2 AND NOT deleted
		ORDER BY version_index DESC
		LIMIT 1`, parentID, excludeID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("next latest record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) LatestVersionIndex(ctx context.Context, parentID string) (int, error) {
	var idx int
	err := txcontext.Exec(ctx, s.db).QueryRowContext(ctx, `
		SELECT COALESCE(MAX(version_index), 0) FROM (
			SELECT version_index FROM records WHERE parent_id = $1
			UNION ALL
			SELECT version_index FROM drafts WHERE parent_id = $1
		) v`, parentID).Scan(&idx)
	if err != nil {
		return 0, fmt.Errorf("latest version index: %w", err)
	}
	return idx, nil
}
