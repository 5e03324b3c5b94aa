package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

func sampleRecord(id string, at time.Time) summarizer.Record {
	return summarizer.Record{
		ID:         id,
		URL:        "https://www.asiaone.com/singapore/a",
		Domain:     "www.asiaone.com",
		Title:      "Headline",
		Summary:    "A short summary.",
		ModelID:    "google/pegasus-cnn_dailymail",
		CreatedAt:  at,
		DurationMS: 1200,
	}
}

func TestSaveInsertsRow(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "summaries")
	require.NoError(t, err)

	rec := sampleRecord("uuid-v7", time.Unix(1700000000, 0).UTC())
	mock.ExpectExec("INSERT INTO summaries").
		WithArgs(
			rec.ID,
			rec.URL,
			rec.Domain,
			rec.Title,
			rec.Instruction,
			rec.Summary,
			rec.ModelID,
			rec.CreatedAt,
			rec.DurationMS,
		).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, store.Save(context.Background(), rec))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveRejectsMissingID(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "")
	require.NoError(t, err)
	require.EqualError(t, store.Save(context.Background(), summarizer.Record{}), "record id is required")
}

func TestSaveWrapsExecError(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "summaries")
	require.NoError(t, err)

	mock.ExpectExec("INSERT INTO summaries").WillReturnError(errors.New("connection reset"))
	err = store.Save(context.Background(), sampleRecord("id-1", time.Now().UTC()))
	require.ErrorContains(t, err, "insert summary: connection reset")
}

func TestRecentScansRows(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "summaries")
	require.NoError(t, err)

	newer := sampleRecord("id-2", time.Unix(1700000100, 0).UTC())
	older := sampleRecord("id-1", time.Unix(1700000000, 0).UTC())
	rows := mock.NewRows([]string{"id", "url", "domain", "title", "instruction", "summary", "model_id", "created_at", "duration_ms"})
	for _, r := range []summarizer.Record{newer, older} {
		rows.AddRow(r.ID, r.URL, r.Domain, r.Title, r.Instruction, r.Summary, r.ModelID, r.CreatedAt, r.DurationMS)
	}
	mock.ExpectQuery("SELECT (.+) FROM summaries").WithArgs(5).WillReturnRows(rows)

	got, err := store.Recent(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, []summarizer.Record{newer, older}, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRecentNonPositiveLimit(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "summaries")
	require.NoError(t, err)

	got, err := store.Recent(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, got)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	store, err := NewWithPool(mock, "article_summaries")
	require.NoError(t, err)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS article_summaries").
		WillReturnResult(pgxmock.NewResult("CREATE TABLE", 0))
	require.NoError(t, store.EnsureSchema(context.Background()))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTableNameValidation(t *testing.T) {
	t.Parallel()

	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	_, err = NewWithPool(mock, "summaries; DROP TABLE users")
	require.Error(t, err)
	_, err = NewWithPool(nil, "summaries")
	require.EqualError(t, err, "pool is required")
	_, err = New(context.Background(), Config{})
	require.EqualError(t, err, "history.dsn is required")
}
