package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// ValidatingExtractor wraps a FieldExtractor and turns responses that are
// not schema-conforming invoice JSON into errors. Unit spellings are
// canonicalized before validation.
type ValidatingExtractor struct {
	next      FieldExtractor
	validator *SchemaValidator
	logger    *slog.Logger
}

func NewValidatingExtractor(next FieldExtractor, logger *slog.Logger) (*ValidatingExtractor, error) {
	if logger == nil {
		logger = slog.Default()
	}
	v, err := NewSchemaValidator(BuildInvoiceJSONSchema())
	if err != nil {
		return nil, err
	}
	return &ValidatingExtractor{next: next, validator: v, logger: logger}, nil
}

func (e *ValidatingExtractor) ExtractStructured(ctx context.Context, req ExtractRequest) (string, error) {
	out, err := e.next.ExtractStructured(ctx, req)
	if err != nil {
		return "", err
	}

	doc := []byte(StripCodeFences(out))
	fixed, changed, err := CanonicalizeUnits(doc)
	if err != nil {
		e.logger.Warn("llm.strict.not_json", "page", req.Page, "error", err)
		return "", fmt.Errorf("structured output is not JSON: %w", err)
	}
	if len(changed) > 0 {
		e.logger.Info("llm.strict.units_canonicalized", "page", req.Page, "changed", changed)
	}

	if err := e.validator.Validate(fixed); err != nil {
		e.logger.Warn("llm.strict.schema_validation_failed", "page", req.Page, "error", err)
		return "", fmt.Errorf("schema validation failed: %w", err)
	}
	return string(fixed), nil
}
