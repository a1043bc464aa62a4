package entity

import (
	"errors"
)

// PageUnit is one page image of the input document, numbered from 1.
type PageUnit struct {
	Index     int
	ImagePath string
}

// SellerMetadata is the seller identity injected into every page's markdown.
type SellerMetadata struct {
	Address   string `json:"address"`
	TaxNumber string `json:"tax_number"`
}

// PageResult is the terminal state of one page. Exactly one of the success
// pair (text, output) or the failure is populated; build it through
// NewPageSuccess or NewPageFailure.
type PageResult struct {
	page    int
	text    string
	output  string
	failure error
}

// NewPageSuccess records a page whose every stage succeeded.
func NewPageSuccess(page int, text, output string) PageResult {
	return PageResult{page: page, text: text, output: output}
}

// NewPageFailure records a page that failed at some stage. A nil err still
// produces a failure so the result can never end up with neither slot set.
func NewPageFailure(page int, err error) PageResult {
	if err == nil {
		err = errors.New("unknown page failure")
	}
	return PageResult{page: page, failure: err}
}

func (r PageResult) Page() int       { return r.page }
func (r PageResult) Text() string    { return r.text }
func (r PageResult) Output() string  { return r.output }
func (r PageResult) Failure() error  { return r.failure }
func (r PageResult) Succeeded() bool { return r.failure == nil }

// Value is what the page contributes to the serialized output array: the
// structured text on success, the error message on failure.
func (r PageResult) Value() string {
	if r.failure != nil {
		return r.failure.Error()
	}
	return r.output
}

// RunResult holds one PageResult per input page, in page order.
type RunResult []PageResult

// Values returns the output array entries in page order.
func (rr RunResult) Values() []string {
	out := make([]string, len(rr))
	for i, r := range rr {
		out[i] = r.Value()
	}
	return out
}

// Counts returns how many pages succeeded and failed.
func (rr RunResult) Counts() (succeeded, failed int) {
	for _, r := range rr {
		if r.Succeeded() {
			succeeded++
		} else {
			failed++
		}
	}
	return succeeded, failed
}
