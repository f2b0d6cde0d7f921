package docstore

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostgresStore_Get(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgresStore(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT fields, updated_at FROM documents WHERE collection = $1 AND doc_id = $2`)).
		WithArgs("events/e1/exhibitors", "ex1").
		WillReturnRows(sqlmock.NewRows([]string{"fields", "updated_at"}).
			AddRow([]byte(`{"name":"Acme","booth_id":"B01"}`), now))

	doc, err := s.Get(context.Background(), "events/e1/exhibitors", "ex1")
	require.NoError(t, err)
	assert.Equal(t, "ex1", doc.ID)
	assert.Equal(t, "Acme", doc.Fields["name"])
	assert.Equal(t, "B01", doc.Fields["booth_id"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgresStore(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT fields, updated_at FROM documents`)).
		WithArgs("c", "missing").
		WillReturnRows(sqlmock.NewRows([]string{"fields", "updated_at"}))

	_, err = s.Get(context.Background(), "c", "missing")
	assert.Equal(t, ErrNotFound, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_QueryWithFilter(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgresStore(db)

	now := time.Now()
	mock.ExpectQuery(regexp.QuoteMeta(`AND fields->>$2 = $3 ORDER BY doc_id`)).
		WithArgs("events/e1/exhibitors", "booth_id", "B01").
		WillReturnRows(sqlmock.NewRows([]string{"doc_id", "fields", "updated_at"}).
			AddRow("ex1", []byte(`{"booth_id":"B01"}`), now).
			AddRow("ex3", []byte(`{"booth_id":"B01"}`), now))

	docs, err := s.Query(context.Background(), "events/e1/exhibitors",
		Filter{Field: "booth_id", Value: "B01"})
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "ex1", docs[0].ID)
	assert.Equal(t, "ex3", docs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetMergeUsesJSONBConcat(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgresStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`fields = documents.fields || EXCLUDED.fields`)).
		WithArgs("c", "d1", []byte(`{"booth_id":"B01"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = s.Set(context.Background(), "c", "d1", map[string]any{"booth_id": "B01"}, true)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SetReplace(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgresStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`DO UPDATE SET fields = EXCLUDED.fields, updated_at = now()`)).
		WithArgs("c", "d1", []byte(`{"svg":"<svg/>"}`)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = s.Set(context.Background(), "c", "d1", map[string]any{"svg": "<svg/>"}, false)
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Delete(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgresStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM documents WHERE collection = $1 AND doc_id = $2`)).
		WithArgs("c", "d1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, s.Delete(context.Background(), "c", "d1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_EnsureSchema(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	s := NewPostgresStore(db)

	mock.ExpectExec(regexp.QuoteMeta(`CREATE TABLE IF NOT EXISTS documents`)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
