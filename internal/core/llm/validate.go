package llm

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaValidator holds a compiled schema for repeated validation.
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// NewSchemaValidator compiles schemaMap once.
func NewSchemaValidator(schemaMap map[string]any) (*SchemaValidator, error) {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &SchemaValidator{schema: schema}, nil
}

// Validate checks data against the compiled schema.
func (v *SchemaValidator) Validate(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if dec.More() {
		return fmt.Errorf("unmarshal data: trailing content after JSON value")
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
