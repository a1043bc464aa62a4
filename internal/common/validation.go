package common

import (
	"fmt"
	"slices"
	"strings"
	"unicode/utf8"
)

// ValidationError represents validation failures
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s=%v %s", e.Field, e.Value, e.Message)
}

// Validator provides validation utilities
type Validator struct {
	errors []ValidationError
}

// NewValidator creates a new validator instance
func NewValidator() *Validator {
	return &Validator{
		errors: make([]ValidationError, 0),
	}
}

// Field validates a field and collects errors
func (v *Validator) Field(fieldName string, value any, rules ...ValidationRule) *Validator {
	for _, rule := range rules {
		if err := rule(fieldName, value); err != nil {
			v.errors = append(v.errors, *err)
		}
	}
	return v
}

// HasErrors returns true if there are validation errors
func (v *Validator) HasErrors() bool {
	return len(v.errors) > 0
}

// Errors returns all validation errors
func (v *Validator) Errors() []ValidationError {
	return v.errors
}

// Err returns the collected failures as a CONFIG_ERROR, or nil.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	return NewAppError(CodeConfig, v.ErrorMessage(), ErrInvalidInput)
}

// ErrorMessage returns a combined error message as string
func (v *Validator) ErrorMessage() string {
	if !v.HasErrors() {
		return ""
	}

	var messages []string
	for _, err := range v.errors {
		messages = append(messages, err.Error())
	}
	return strings.Join(messages, "; ")
}

// ValidationRule represents a single validation rule
type ValidationRule func(fieldName string, value any) *ValidationError

// Required - Common validation rules
func Required(fieldName string, value any) *ValidationError {
	if value == nil {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}

	if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
		return &ValidationError{Field: fieldName, Value: value, Message: "is required"}
	}
	return nil
}

func Positive(fieldName string, value any) *ValidationError {
	if n, ok := value.(int); ok && n <= 0 {
		return &ValidationError{Field: fieldName, Value: value, Message: "must be greater than zero"}
	}
	return nil
}

func NonNegative(fieldName string, value any) *ValidationError {
	if n, ok := value.(int); ok && n < 0 {
		return &ValidationError{Field: fieldName, Value: value, Message: "must not be negative"}
	}
	return nil
}

func Between(min, max int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		n, ok := value.(int)
		if !ok {
			return nil
		}
		if n < min || n > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("must be between %d and %d", min, max),
			}
		}
		return nil
	}
}

func OneOf(allowed ...string) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		s, ok := value.(string)
		if !ok {
			return nil
		}
		if !slices.Contains(allowed, s) {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: "must be one of: " + strings.Join(allowed, ", "),
			}
		}
		return nil
	}
}

func MaxLength(max int) ValidationRule {
	return func(fieldName string, value any) *ValidationError {
		str, ok := value.(string)
		if !ok {
			return nil
		}
		if utf8.RuneCountInString(str) > max {
			return &ValidationError{
				Field:   fieldName,
				Value:   value,
				Message: fmt.Sprintf("must be at most %d characters", max),
			}
		}
		return nil
	}
}
