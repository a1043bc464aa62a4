package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

const (
	runTable  = "extract_run"
	pageTable = "page_result"
)

// Timestamps are stored as fixed-width UTC text so both backends read them
// back the same way and lexical order is time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

var ledgerDDL = []string{
	`CREATE TABLE IF NOT EXISTS extract_run (
		id             VARCHAR(36) PRIMARY KEY,
		input_path     TEXT NOT NULL,
		format         TEXT NOT NULL,
		seller_address TEXT NOT NULL DEFAULT '',
		seller_tax_no  TEXT NOT NULL DEFAULT '',
		status         TEXT NOT NULL,
		pages          INTEGER NOT NULL,
		failed_pages   INTEGER NOT NULL,
		started_at     TEXT NOT NULL,
		finished_at    TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS page_result (
		run_id  VARCHAR(36) NOT NULL REFERENCES extract_run (id),
		page    INTEGER NOT NULL,
		status  TEXT NOT NULL,
		output  TEXT NOT NULL DEFAULT '',
		error   TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, page)
	)`,
	`CREATE INDEX IF NOT EXISTS extract_run_started_at ON extract_run (started_at)`,
}

type RunLedger interface {
	Migrate(ctx context.Context) error
	RecordRun(ctx context.Context, run *entity.Run, rr entity.RunResult) error
	ListRuns(ctx context.Context, limit int) ([]entity.RunSummary, error)
}

type ledger struct {
	drv *entsql.Driver
	log *slog.Logger
}

func NewRunLedger(drv *entsql.Driver, log *slog.Logger) RunLedger {
	if log == nil {
		log = slog.Default()
	}
	return &ledger{drv: drv, log: log}
}

func (l *ledger) Migrate(ctx context.Context) error {
	for _, stmt := range ledgerDDL {
		if err := l.drv.Exec(ctx, stmt, []any{}, nil); err != nil {
			l.log.Error("ledger migrate failed", "err", err)
			return fmt.Errorf("migrate ledger: %w", err)
		}
	}
	return nil
}

// RecordRun stores the run and its final page outcomes in one transaction.
func (l *ledger) RecordRun(ctx context.Context, run *entity.Run, rr entity.RunResult) (err error) {
	finished := time.Now().UTC()
	if run.FinishedAt != nil {
		finished = *run.FinishedAt
	}
	_, failed := rr.Counts()

	tx, err := l.drv.Tx(ctx)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				l.log.Warn("ledger rollback failed", "run_id", run.ID, "err", rerr)
			}
		}
	}()

	b := entsql.Dialect(l.drv.Dialect())
	query, args := b.Insert(runTable).
		Columns("id", "input_path", "format", "seller_address", "seller_tax_no", "status", "pages", "failed_pages", "started_at", "finished_at").
		Values(
			run.ID.String(),
			run.InputPath,
			run.Format,
			run.Seller.Address,
			run.Seller.TaxNumber,
			string(run.Status(rr)),
			len(rr),
			failed,
			formatTime(run.StartedAt),
			formatTime(finished),
		).
		Query()
	if err = tx.Exec(ctx, query, args, nil); err != nil {
		l.log.Error("ledger insert run failed", "run_id", run.ID, "err", err)
		return fmt.Errorf("insert run: %w", err)
	}

	if len(rr) > 0 {
		ins := b.Insert(pageTable).Columns("run_id", "page", "status", "output", "error")
		for _, r := range rr {
			status, errMsg := constants.PageStatusOK, ""
			if !r.Succeeded() {
				status, errMsg = constants.PageStatusFailed, r.Failure().Error()
			}
			ins.Values(run.ID.String(), r.Page(), string(status), r.Output(), errMsg)
		}
		query, args = ins.Query()
		if err = tx.Exec(ctx, query, args, nil); err != nil {
			l.log.Error("ledger insert pages failed", "run_id", run.ID, "err", err)
			return fmt.Errorf("insert page results: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	l.log.Info("ledger run recorded", "run_id", run.ID, "pages", len(rr), "failed", failed)
	return nil
}

type runRow struct {
	ID          string `sql:"id"`
	InputPath   string `sql:"input_path"`
	Status      string `sql:"status"`
	Pages       int64  `sql:"pages"`
	FailedPages int64  `sql:"failed_pages"`
	StartedAt   string `sql:"started_at"`
	FinishedAt  string `sql:"finished_at"`
}

// ListRuns returns the most recent runs first.
func (l *ledger) ListRuns(ctx context.Context, limit int) ([]entity.RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	query, args := entsql.Dialect(l.drv.Dialect()).
		Select("id", "input_path", "status", "pages", "failed_pages", "started_at", "finished_at").
		From(entsql.Table(runTable)).
		OrderBy(entsql.Desc("started_at")).
		Limit(limit).
		Query()

	rows := &entsql.Rows{}
	if err := l.drv.Query(ctx, query, args, rows); err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var scanned []runRow
	if err := entsql.ScanSlice(rows, &scanned); err != nil {
		return nil, fmt.Errorf("scan runs: %w", err)
	}

	out := make([]entity.RunSummary, 0, len(scanned))
	for _, r := range scanned {
		id, err := uuid.Parse(r.ID)
		if err != nil {
			return nil, fmt.Errorf("run id %q: %w", r.ID, err)
		}
		out = append(out, entity.RunSummary{
			ID:          id,
			InputPath:   r.InputPath,
			Status:      r.Status,
			Pages:       int(r.Pages),
			FailedPages: int(r.FailedPages),
			StartedAt:   parseTime(r.StartedAt),
			FinishedAt:  parseTime(r.FinishedAt),
		})
	}
	return out, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
