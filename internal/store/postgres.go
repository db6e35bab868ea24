package store

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is satisfied by both *pgxpool.Pool and pgx.Tx so the same
// statements serve transactional and non-transactional calls.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type pgStore struct {
	pool *pgxpool.Pool
	q    querier
}

// NewPostgres returns a Store backed by a single documents table with JSONB
// bodies. Merge maps onto the jsonb || operator, Consume onto
// DELETE ... RETURNING, so both are atomic at the database.
func NewPostgres(pool *pgxpool.Pool) Store {
	return &pgStore{pool: pool, q: pool}
}

// EnsureSchema creates the documents table. Safe to call repeatedly.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS documents (
  path text PRIMARY KEY,
  doc jsonb NOT NULL DEFAULT '{}'::jsonb,
  created_at timestamptz NOT NULL DEFAULT NOW(),
  updated_at timestamptz NOT NULL DEFAULT NOW()
);
`)
	return err
}

func (s *pgStore) Get(ctx context.Context, path string) (map[string]any, error) {
	var raw []byte
	err := s.q.QueryRow(ctx, `SELECT doc FROM documents WHERE path=$1`, path).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeDoc(raw)
}

func (s *pgStore) Set(ctx context.Context, path string, doc map[string]any) error {
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.q.Exec(ctx, `INSERT INTO documents(path, doc) VALUES ($1, $2)
		ON CONFLICT (path) DO UPDATE SET doc=EXCLUDED.doc, updated_at=NOW()`, path, raw)
	return err
}

func (s *pgStore) Merge(ctx context.Context, path string, patch map[string]any) error {
	raw, err := json.Marshal(patch)
	if err != nil {
		return err
	}
	_, err = s.q.Exec(ctx, `INSERT INTO documents(path, doc) VALUES ($1, $2)
		ON CONFLICT (path) DO UPDATE SET doc=documents.doc || EXCLUDED.doc, updated_at=NOW()`, path, raw)
	return err
}

func (s *pgStore) Delete(ctx context.Context, path string) error {
	_, err := s.q.Exec(ctx, `DELETE FROM documents WHERE path=$1`, path)
	return err
}

func (s *pgStore) Consume(ctx context.Context, path string) (map[string]any, error) {
	var raw []byte
	err := s.q.QueryRow(ctx, `DELETE FROM documents WHERE path=$1 RETURNING doc`, path).Scan(&raw)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decodeDoc(raw)
}

func (s *pgStore) List(ctx context.Context, prefix string) ([]Document, error) {
	prefix = strings.TrimRight(prefix, "/")
	rows, err := s.q.Query(ctx, `SELECT path, doc FROM documents WHERE path LIKE $1 || '/%' ORDER BY path`, prefix)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Document
	for rows.Next() {
		var path string
		var raw []byte
		if err := rows.Scan(&path, &raw); err != nil {
			return nil, err
		}
		// direct children only, not nested collections
		if strings.Contains(path[len(prefix)+1:], "/") {
			continue
		}
		doc, err := decodeDoc(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, Document{Path: path, Doc: doc})
	}
	return out, rows.Err()
}

func (s *pgStore) WithTx(ctx context.Context, fn func(Store) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(&pgStore{pool: s.pool, q: tx}); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func decodeDoc(raw []byte) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
