package store

import (
	"context"
	"encoding/json"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/uni-records-api/pkg/errors"
)

func newPostgresMock(t *testing.T) (*Postgres, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return NewPostgres(sqlx.NewDb(db, "sqlmock")), mock, func() { db.Close() }
}

func TestPostgresGet(t *testing.T) {
	p, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"kind", "id", "doc", "version"}).
		AddRow("students", "s1", []byte(`{"id":"s1"}`), int64(3))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT kind, id, doc, version FROM records WHERE kind = $1 AND id = $2")).
		WithArgs("students", "s1").
		WillReturnRows(rows)

	doc, err := p.Get(context.Background(), KindStudent, "s1")
	require.NoError(t, err)
	assert.Equal(t, "s1", doc.ID)
	assert.Equal(t, int64(3), doc.Version)
	assert.JSONEq(t, `{"id":"s1"}`, string(doc.Data))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetMissing(t *testing.T) {
	p, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT kind, id, doc, version FROM records")).
		WithArgs("students", "nope").
		WillReturnRows(sqlmock.NewRows([]string{"kind", "id", "doc", "version"}))

	_, err := p.Get(context.Background(), KindStudent, "nope")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreate(t *testing.T) {
	p, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO records (kind, id, doc, version) VALUES ($1, $2, $3, 1)")).
		WithArgs("courses", "c1", []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	version, err := p.Put(context.Background(), KindCourse, "c1", json.RawMessage(`{}`), 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresCreateConflict(t *testing.T) {
	p, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO records")).
		WithArgs("courses", "c1", []byte(`{}`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := p.Put(context.Background(), KindCourse, "c1", json.RawMessage(`{}`), 0)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrVersionConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresConditionalPut(t *testing.T) {
	p, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE records SET doc = $3, version = version + 1")).
		WithArgs("courses", "c1", []byte(`{"v":2}`), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(5)))

	version, err := p.Put(context.Background(), KindCourse, "c1", json.RawMessage(`{"v":2}`), 4)
	require.NoError(t, err)
	assert.Equal(t, int64(5), version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresConditionalPutConflict(t *testing.T) {
	p, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE records SET doc = $3, version = version + 1")).
		WithArgs("courses", "c1", []byte(`{}`), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("courses", "c1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := p.Put(context.Background(), KindCourse, "c1", json.RawMessage(`{}`), 4)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrVersionConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresConditionalPutMissing(t *testing.T) {
	p, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE records SET doc = $3, version = version + 1")).
		WithArgs("courses", "gone", []byte(`{}`), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("courses", "gone").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err := p.Put(context.Background(), KindCourse, "gone", json.RawMessage(`{}`), 4)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpsert(t *testing.T) {
	p, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (kind, id) DO UPDATE SET doc = EXCLUDED.doc")).
		WithArgs("departments", "d1", []byte(`{}`)).
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow(int64(7)))

	version, err := p.Put(context.Background(), KindDepartment, "d1", json.RawMessage(`{}`), VersionAny)
	require.NoError(t, err)
	assert.Equal(t, int64(7), version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteConditional(t *testing.T) {
	p, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM records WHERE kind = $1 AND id = $2 AND version = $3")).
		WithArgs("students", "s1", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, p.Delete(context.Background(), KindStudent, "s1", 2))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresDeleteStale(t *testing.T) {
	p, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM records WHERE kind = $1 AND id = $2 AND version = $3")).
		WithArgs("students", "s1", int64(2)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).
		WithArgs("students", "s1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	err := p.Delete(context.Background(), KindStudent, "s1", 2)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrVersionConflict))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresList(t *testing.T) {
	p, mock, cleanup := newPostgresMock(t)
	defer cleanup()

	rows := sqlmock.NewRows([]string{"kind", "id", "doc", "version"}).
		AddRow("courses", "c1", []byte(`{"v":1}`), int64(1)).
		AddRow("courses", "c2", []byte(`{"v":2}`), int64(4))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT kind, id, doc, version FROM records WHERE kind = $1 ORDER BY id")).
		WithArgs("courses").
		WillReturnRows(rows)

	docs, err := p.List(context.Background(), KindCourse)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "c1", docs[0].ID)
	assert.Equal(t, int64(4), docs[1].Version)
	require.NoError(t, mock.ExpectationsWereMet())
}
