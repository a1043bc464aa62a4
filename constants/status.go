package constants

// PageStatus is the terminal state of one page, as stored in the run ledger.
type PageStatus string

// Stable values (store these exact strings in DB).
const (
	PageStatusOK     PageStatus = "OK"     // structured output produced
	PageStatusFailed PageStatus = "FAILED" // any stage failed
)

// RunStatus is the terminal state of one run.
type RunStatus string

const (
	RunStatusCompleted RunStatus = "COMPLETED" // every page succeeded
	RunStatusPartial   RunStatus = "PARTIAL"   // some pages failed
	RunStatusFailed    RunStatus = "FAILED"    // every page failed
)
