package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

func openTestLedger(t *testing.T) (RunLedger, *DB) {
	t.Helper()
	ctx := context.Background()
	db, err := Open(ctx, Config{DSN: "sqlite://" + filepath.Join(t.TempDir(), "ledger.db")}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close(nil) })

	l := NewRunLedger(db.Driver(), nil)
	require.NoError(t, l.Migrate(ctx))
	return l, db
}

func newRun(input string, started time.Time) *entity.Run {
	finished := started.Add(3 * time.Second)
	return &entity.Run{
		ID:         uuid.New(),
		InputPath:  input,
		Format:     constants.PDF,
		Seller:     entity.SellerMetadata{Address: "Hauptstr. 1", TaxNumber: "DE123"},
		StartedAt:  started,
		FinishedAt: &finished,
	}
}

func TestLedgerRoundTrip(t *testing.T) {
	ctx := context.Background()
	l, db := openTestLedger(t)
	require.NoError(t, db.HealthCheck(ctx, time.Second))

	started := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	run := newRun("/in/invoice.pdf", started)
	rr := entity.RunResult{
		entity.NewPageSuccess(1, "md", `{"invoice":{}}`),
		entity.NewPageFailure(2, errors.New("Ollama run failed: 1")),
	}
	require.NoError(t, l.RecordRun(ctx, run, rr))

	runs, err := l.ListRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	got := runs[0]
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, "/in/invoice.pdf", got.InputPath)
	assert.Equal(t, string(constants.RunStatusPartial), got.Status)
	assert.Equal(t, 2, got.Pages)
	assert.Equal(t, 1, got.FailedPages)
	assert.True(t, started.Equal(got.StartedAt))
	assert.True(t, run.FinishedAt.Equal(got.FinishedAt))

	rows := struct {
		status, errMsg string
	}{}
	err = db.Driver().DB().QueryRowContext(ctx,
		"SELECT status, error FROM page_result WHERE run_id = ? AND page = 2", run.ID.String()).
		Scan(&rows.status, &rows.errMsg)
	require.NoError(t, err)
	assert.Equal(t, string(constants.PageStatusFailed), rows.status)
	assert.Equal(t, "Ollama run failed: 1", rows.errMsg)
}

func TestLedgerListRunsNewestFirstWithLimit(t *testing.T) {
	ctx := context.Background()
	l, _ := openTestLedger(t)

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	var ids []uuid.UUID
	for i := 0; i < 3; i++ {
		// sub-second offsets exercise fixed-width timestamp ordering
		run := newRun("/in/doc.png", base.Add(time.Duration(i)*500*time.Millisecond))
		ids = append(ids, run.ID)
		require.NoError(t, l.RecordRun(ctx, run, entity.RunResult{entity.NewPageSuccess(1, "md", "{}")}))
	}

	runs, err := l.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, ids[2], runs[0].ID)
	assert.Equal(t, ids[1], runs[1].ID)
	assert.Equal(t, string(constants.RunStatusCompleted), runs[0].Status)
}

func TestLedgerMigrateIsIdempotent(t *testing.T) {
	l, _ := openTestLedger(t)
	require.NoError(t, l.Migrate(context.Background()))
}

func TestLedgerDuplicateRunRollsBack(t *testing.T) {
	ctx := context.Background()
	l, _ := openTestLedger(t)

	run := newRun("/in/a.pdf", time.Now())
	rr := entity.RunResult{entity.NewPageSuccess(1, "md", "{}")}
	require.NoError(t, l.RecordRun(ctx, run, rr))
	require.Error(t, l.RecordRun(ctx, run, rr))

	runs, err := l.ListRuns(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestIsPostgresDSN(t *testing.T) {
	assert.True(t, IsPostgresDSN("postgres://u:p@localhost:5432/db"))
	assert.True(t, IsPostgresDSN("postgresql://localhost/db"))
	assert.False(t, IsPostgresDSN("sqlite://ledger.db"))
	assert.False(t, IsPostgresDSN("./ledger.db"))
}
