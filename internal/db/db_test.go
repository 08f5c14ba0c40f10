package db

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/codex-pipeline/internal/store"
	"github.com/jonathan/codex-pipeline/internal/types"
)

var unitColumnNames = []string{
	"id", "status", "source_text", "source_kind", "codex_id", "record",
	"processing_error", "error_detail", "batch_id", "created_at", "updated_at",
}

func newMock(t *testing.T) (pgxmock.PgxPoolIface, *DB) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, New(mock)
}

func TestEnsureSchema(t *testing.T) {
	mock, db := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS codexes").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, db.EnsureSchema(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEnsureSchema_Error(t *testing.T) {
	mock, db := newMock(t)
	mock.ExpectExec("CREATE TABLE").WillReturnError(errors.New("permission denied"))

	err := db.EnsureSchema(context.Background())
	assert.ErrorContains(t, err, "permission denied")
}

func TestUnits(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("put", func(t *testing.T) {
		mock, db := newMock(t)
		u := types.NewProcessingUnit("u1", "text", types.SourceText, "job-card-v1", "b1")
		u.Record = types.NewStructuredRecord(map[string]any{"title": "Engineer"})
		record, err := json.Marshal(u.Record)
		require.NoError(t, err)

		mock.ExpectExec("INSERT INTO units").
			WithArgs("u1", "pending", "text", "text", "job-card-v1", record,
				u.ProcessingError, "", u.BatchID, u.CreatedAt, u.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, db.PutUnit(ctx, u))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get", func(t *testing.T) {
		mock, db := newMock(t)
		msg := "extraction failed; please retry later"
		batchID := "b1"
		rows := mock.NewRows(unitColumnNames).
			AddRow("u1", "error", "text", "text", "job-card-v1", []byte(nil),
				&msg, "timeout", &batchID, now, now)
		mock.ExpectQuery(`(?s)SELECT (.+) FROM units WHERE id = \$1`).
			WithArgs("u1").
			WillReturnRows(rows)

		u, err := db.GetUnit(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, types.UnitError, u.Status)
		assert.Equal(t, types.SourceText, u.SourceKind)
		assert.Nil(t, u.Record)
		require.NotNil(t, u.ProcessingError)
		assert.Equal(t, msg, *u.ProcessingError)
		assert.Equal(t, "timeout", u.ErrorDetail)
		require.NotNil(t, u.BatchID)
		assert.Equal(t, "b1", *u.BatchID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get decodes the record", func(t *testing.T) {
		mock, db := newMock(t)
		record := []byte(`{"fields":{"title":"Engineer"},"evidence":[],"confidence":{"title":0.9},"missing_fields":[]}`)
		var noMsg, noBatch *string
		rows := mock.NewRows(unitColumnNames).
			AddRow("u1", "completed", "text", "text", "job-card-v1", record, noMsg, "", noBatch, now, now)
		mock.ExpectQuery(`(?s)SELECT (.+) FROM units WHERE id = \$1`).WithArgs("u1").WillReturnRows(rows)

		u, err := db.GetUnit(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, u.Record)
		assert.Equal(t, "Engineer", u.Record.Fields["title"])
		assert.InDelta(t, 0.9, u.Record.Confidence["title"], 1e-9)
		assert.Nil(t, u.BatchID)
	})

	t.Run("get missing", func(t *testing.T) {
		mock, db := newMock(t)
		mock.ExpectQuery(`(?s)SELECT (.+) FROM units WHERE id = \$1`).
			WithArgs("nope").
			WillReturnError(pgx.ErrNoRows)

		_, err := db.GetUnit(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("list by batch", func(t *testing.T) {
		mock, db := newMock(t)
		batchID := "b1"
		var noMsg *string
		rows := mock.NewRows(unitColumnNames).
			AddRow("u1", "completed", "a", "text", "job-card-v1", []byte(nil), noMsg, "", &batchID, now, now).
			AddRow("u2", "pending", "b", "text", "job-card-v1", []byte(nil), noMsg, "", &batchID, now, now)
		mock.ExpectQuery(`(?s)SELECT (.+) FROM units WHERE batch_id = \$1 ORDER BY created_at, id`).
			WithArgs("b1").
			WillReturnRows(rows)

		units, err := db.ListUnitsByBatch(ctx, "b1")
		require.NoError(t, err)
		require.Len(t, units, 2)
		assert.Equal(t, "u1", units[0].ID)
		assert.Equal(t, types.UnitPending, units[1].Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestBatches(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("put", func(t *testing.T) {
		mock, db := newMock(t)
		b := &types.BatchJob{ID: "b1", Status: types.BatchProcessing, TotalUnits: 7, CompletedUnits: 3,
			CodexID: "job-card-v1", Concurrency: 3, CreatedAt: now, UpdatedAt: now}
		mock.ExpectExec("INSERT INTO batches").
			WithArgs("b1", "processing", 7, 3, "job-card-v1", 3, now, now).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, db.PutBatch(ctx, b))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get", func(t *testing.T) {
		mock, db := newMock(t)
		rows := mock.NewRows([]string{"id", "status", "total_units", "completed_units", "codex_id", "concurrency", "created_at", "updated_at"}).
			AddRow("b1", "completed", 7, 7, "job-card-v1", 3, now, now)
		mock.ExpectQuery(`(?s)SELECT (.+) FROM batches WHERE id = \$1`).WithArgs("b1").WillReturnRows(rows)

		b, err := db.GetBatch(ctx, "b1")
		require.NoError(t, err)
		assert.Equal(t, types.BatchCompleted, b.Status)
		assert.Equal(t, 7, b.CompletedUnits)
		assert.True(t, b.Done())
	})

	t.Run("get missing", func(t *testing.T) {
		mock, db := newMock(t)
		mock.ExpectQuery(`(?s)SELECT (.+) FROM batches`).WithArgs("nope").WillReturnError(pgx.ErrNoRows)

		_, err := db.GetBatch(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestCodexes(t *testing.T) {
	ctx := context.Background()
	c := &types.Codex{
		ID:           "job-card-v1",
		Version:      "1.0.0",
		Kind:         types.CodexKindExtraction,
		OutputSchema: json.RawMessage(`{"type":"object"}`),
		Prompts:      map[string]string{"synthesis": "Summarize."},
		CreatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	body, err := json.Marshal(c)
	require.NoError(t, err)

	t.Run("put", func(t *testing.T) {
		mock, db := newMock(t)
		mock.ExpectExec("INSERT INTO codexes").
			WithArgs("job-card-v1", "1.0.0", "extraction", body, c.CreatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		require.NoError(t, db.PutCodex(ctx, c))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("get", func(t *testing.T) {
		mock, db := newMock(t)
		mock.ExpectQuery(`SELECT body FROM codexes WHERE id = \$1`).
			WithArgs("job-card-v1").
			WillReturnRows(mock.NewRows([]string{"body"}).AddRow(body))

		got, err := db.GetCodex(ctx, "job-card-v1")
		require.NoError(t, err)
		assert.Equal(t, c.ID, got.ID)
		assert.Equal(t, types.CodexKindExtraction, got.Kind)
		assert.JSONEq(t, `{"type":"object"}`, string(got.OutputSchema))
	})

	t.Run("list", func(t *testing.T) {
		mock, db := newMock(t)
		mock.ExpectQuery(`SELECT body FROM codexes ORDER BY id`).
			WillReturnRows(mock.NewRows([]string{"body"}).AddRow(body).AddRow([]byte(`{"id":"resume-card-v1"}`)))

		list, err := db.ListCodexes(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "resume-card-v1", list[1].ID)
	})

	t.Run("in use", func(t *testing.T) {
		mock, db := newMock(t)
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("job-card-v1").
			WillReturnRows(mock.NewRows([]string{"exists"}).AddRow(true))

		inUse, err := db.CodexInUse(ctx, "job-card-v1")
		require.NoError(t, err)
		assert.True(t, inUse)
	})

	t.Run("get missing", func(t *testing.T) {
		mock, db := newMock(t)
		mock.ExpectQuery(`SELECT body FROM codexes`).WithArgs("nope").WillReturnError(pgx.ErrNoRows)

		_, err := db.GetCodex(ctx, "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})
}
