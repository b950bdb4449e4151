package stub

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/matthewbaird/metaform/internal/meta"
)

// SQLiteStore persists records across stub restarts. Rows live in one
// generic table keyed by (entity, id) with the record body as a JSON
// blob; the stub never queries inside the body, so there is no
// per-entity DDL to keep in sync with the catalog.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and initializes) a SQLite-backed store at path.
// Use ":memory:" for an ephemeral database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// modernc sqlite serializes writes itself; a second writer conn
	// only produces SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	s := &SQLiteStore{db: db}
	if err := s.createTable(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLiteStore) createTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS records (
			entity     TEXT NOT NULL,
			id         TEXT NOT NULL,
			body       TEXT NOT NULL,
			deleted    INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (entity, id)
		);

		CREATE INDEX IF NOT EXISTS idx_records_entity
			ON records (entity, created_at);
	`)
	if err != nil {
		return fmt.Errorf("create records table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context, entity string, opts ListOptions) ([]meta.Record, error) {
	q := `SELECT body FROM records WHERE entity = ?`
	if !opts.IncludeDeleted {
		q += ` AND deleted = 0`
	}
	q += ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, q, entity)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", entity, err)
	}
	defer rows.Close()

	var out []meta.Record
	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("list %s: %w", entity, err)
		}
		var rec meta.Record
		if err := json.Unmarshal([]byte(body), &rec); err != nil {
			return nil, fmt.Errorf("list %s: decode body: %w", entity, err)
		}
		if opts.MappedBy != "" && !matchesParent(rec, opts.MappedBy, opts.ParentID) {
			continue
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) Get(ctx context.Context, entity, id string) (meta.Record, error) {
	var body string
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM records WHERE entity = ? AND id = ? AND deleted = 0`,
		entity, id).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", entity, id, err)
	}
	var rec meta.Record
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("get %s/%s: decode body: %w", entity, id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Create(ctx context.Context, entity string, rec meta.Record) (meta.Record, error) {
	stored := cloneRecord(rec)
	id, _ := stored["id"].(string)
	if id == "" {
		id = NewID()
		stored["id"] = id
	}
	body, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("create %s: encode body: %w", entity, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO records (entity, id, body) VALUES (?, ?, ?)
		ON CONFLICT (entity, id) DO UPDATE SET body = excluded.body, deleted = 0`,
		entity, id, string(body))
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", entity, err)
	}
	return stored, nil
}

func (s *SQLiteStore) Update(ctx context.Context, entity, id string, fields meta.Record) (meta.Record, error) {
	rec, err := s.Get(ctx, entity, id)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		if k == "id" {
			continue
		}
		rec[k] = v
	}
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: encode body: %w", entity, id, err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE records SET body = ? WHERE entity = ? AND id = ? AND deleted = 0`,
		string(body), entity, id)
	if err != nil {
		return nil, fmt.Errorf("update %s/%s: %w", entity, id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, entity, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET deleted = 1 WHERE entity = ? AND id = ? AND deleted = 0`,
		entity, id)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", entity, id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) Restore(ctx context.Context, entity, id string) (meta.Record, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE records SET deleted = 0 WHERE entity = ? AND id = ? AND deleted = 1`,
		entity, id)
	if err != nil {
		return nil, fmt.Errorf("restore %s/%s: %w", entity, id, err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return nil, ErrNotFound
	}
	return s.Get(ctx, entity, id)
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
