package llm

import (
	"context"

	"github.com/joseph-ayodele/invoice-extractor/internal/entity"
)

// ExtractRequest carries one page's markdown to the structured extractor.
// Markdown already starts with the seller header.
type ExtractRequest struct {
	Page     int
	Markdown string
	Seller   entity.SellerMetadata
}

// FieldExtractor is the interface our pipeline depends on. It returns the
// engine's response text as-is.
type FieldExtractor interface {
	ExtractStructured(ctx context.Context, req ExtractRequest) (string, error)
}
