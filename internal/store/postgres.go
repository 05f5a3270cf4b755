package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

// Postgres stores documents in a single records table:
//
//	CREATE TABLE records (
//	    kind    TEXT   NOT NULL,
//	    id      TEXT   NOT NULL,
//	    doc     JSONB  NOT NULL,
//	    version BIGINT NOT NULL,
//	    PRIMARY KEY (kind, id)
//	);
//
// Optimistic concurrency rides on the version column: conditional writes
// include it in the WHERE clause and a zero row count is disambiguated by a
// follow-up existence check.
type Postgres struct {
	db *sqlx.DB
}

// NewPostgres wraps a connected database handle.
func NewPostgres(db *sqlx.DB) *Postgres {
	return &Postgres{db: db}
}

type recordRow struct {
	Kind    string `db:"kind"`
	ID      string `db:"id"`
	Doc     []byte `db:"doc"`
	Version int64  `db:"version"`
}

// Get implements Store.
func (p *Postgres) Get(ctx context.Context, kind Kind, id string) (Document, error) {
	const query = `SELECT kind, id, doc, version FROM records WHERE kind = $1 AND id = $2`
	var row recordRow
	if err := p.db.GetContext(ctx, &row, query, string(kind), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Document{}, appErrors.Clone(appErrors.ErrNotFound, string(kind)+" record not found")
		}
		return Document{}, fmt.Errorf("get %s/%s: %w", kind, id, err)
	}
	return Document{Kind: kind, ID: id, Data: row.Doc, Version: row.Version}, nil
}

// Put implements Store.
func (p *Postgres) Put(ctx context.Context, kind Kind, id string, data json.RawMessage, expectedVersion int64) (int64, error) {
	switch {
	case expectedVersion == 0:
		const insert = `INSERT INTO records (kind, id, doc, version) VALUES ($1, $2, $3, 1)
ON CONFLICT (kind, id) DO NOTHING`
		res, err := p.db.ExecContext(ctx, insert, string(kind), id, []byte(data))
		if err != nil {
			return 0, fmt.Errorf("create %s/%s: %w", kind, id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return 0, appErrors.Clone(appErrors.ErrVersionConflict, string(kind)+" record already exists")
		}
		return 1, nil

	case expectedVersion == VersionAny:
		const upsert = `INSERT INTO records (kind, id, doc, version) VALUES ($1, $2, $3, 1)
ON CONFLICT (kind, id) DO UPDATE SET doc = EXCLUDED.doc, version = records.version + 1
RETURNING version`
		var version int64
		if err := p.db.GetContext(ctx, &version, upsert, string(kind), id, []byte(data)); err != nil {
			return 0, fmt.Errorf("upsert %s/%s: %w", kind, id, err)
		}
		return version, nil

	default:
		const update = `UPDATE records SET doc = $3, version = version + 1
WHERE kind = $1 AND id = $2 AND version = $4
RETURNING version`
		var version int64
		err := p.db.GetContext(ctx, &version, update, string(kind), id, []byte(data), expectedVersion)
		if err == nil {
			return version, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("update %s/%s: %w", kind, id, err)
		}
		return 0, p.missOrConflict(ctx, kind, id)
	}
}

// Delete implements Store.
func (p *Postgres) Delete(ctx context.Context, kind Kind, id string, expectedVersion int64) error {
	if expectedVersion == VersionAny {
		res, err := p.db.ExecContext(ctx, `DELETE FROM records WHERE kind = $1 AND id = $2`, string(kind), id)
		if err != nil {
			return fmt.Errorf("delete %s/%s: %w", kind, id, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return appErrors.Clone(appErrors.ErrNotFound, string(kind)+" record not found")
		}
		return nil
	}

	res, err := p.db.ExecContext(ctx, `DELETE FROM records WHERE kind = $1 AND id = $2 AND version = $3`,
		string(kind), id, expectedVersion)
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", kind, id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return p.missOrConflict(ctx, kind, id)
	}
	return nil
}

// List implements Store.
func (p *Postgres) List(ctx context.Context, kind Kind) ([]Document, error) {
	const query = `SELECT kind, id, doc, version FROM records WHERE kind = $1 ORDER BY id`
	var rows []recordRow
	if err := p.db.SelectContext(ctx, &rows, query, string(kind)); err != nil {
		return nil, fmt.Errorf("list %s: %w", kind, err)
	}
	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		docs = append(docs, Document{Kind: kind, ID: row.ID, Data: row.Doc, Version: row.Version})
	}
	return docs, nil
}

// missOrConflict decides whether a zero-row conditional write lost to a
// concurrent writer or targeted a record that no longer exists.
func (p *Postgres) missOrConflict(ctx context.Context, kind Kind, id string) error {
	var exists bool
	err := p.db.GetContext(ctx, &exists,
		`SELECT EXISTS (SELECT 1 FROM records WHERE kind = $1 AND id = $2)`, string(kind), id)
	if err != nil {
		return fmt.Errorf("check %s/%s: %w", kind, id, err)
	}
	if exists {
		return appErrors.Clone(appErrors.ErrVersionConflict, "")
	}
	return appErrors.Clone(appErrors.ErrNotFound, string(kind)+" record not found")
}
