package entity

import (
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-extractor/constants"
)

// Run is the explicit per-run state owned by the run driver.
type Run struct {
	ID         uuid.UUID      `json:"id"`
	InputPath  string         `json:"input_path"`
	Format     string         `json:"format"`
	Seller     SellerMetadata `json:"seller"`
	StartedAt  time.Time      `json:"started_at"`
	FinishedAt *time.Time     `json:"finished_at,omitempty"`
}

// Status derives the run status from its page outcomes.
func (r *Run) Status(rr RunResult) constants.RunStatus {
	ok, failed := rr.Counts()
	switch {
	case failed == 0:
		return constants.RunStatusCompleted
	case ok == 0:
		return constants.RunStatusFailed
	default:
		return constants.RunStatusPartial
	}
}

// RunSummary is one row of the run ledger.
type RunSummary struct {
	ID          uuid.UUID `json:"id"`
	InputPath   string    `json:"input_path"`
	Status      string    `json:"status"`
	Pages       int       `json:"pages"`
	FailedPages int       `json:"failed_pages"`
	StartedAt   time.Time `json:"started_at"`
	FinishedAt  time.Time `json:"finished_at"`
}
