// Package openapi embeds the API document and validates request bodies
// against its schemas.
package openapi

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var document []byte

var (
	// ErrInvalidBody is returned when a request body does not match its schema
	ErrInvalidBody = errors.New("request body does not match schema")
	// ErrUnknownSchema is returned for a schema name missing from the document
	ErrUnknownSchema = errors.New("unknown schema")
)

// Load parses and validates the embedded document
func Load() (*openapi3.T, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromData(document)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi document: %w", err)
	}

	if err := doc.Validate(loader.Context); err != nil {
		return nil, fmt.Errorf("invalid openapi document: %w", err)
	}

	return doc, nil
}

// Validator checks request bodies against component schemas
type Validator struct {
	doc *openapi3.T
}

// NewValidator loads the embedded document
func NewValidator() (*Validator, error) {
	doc, err := Load()
	if err != nil {
		return nil, err
	}

	return &Validator{doc: doc}, nil
}

// Document returns the loaded document
func (v *Validator) Document() *openapi3.T {
	return v.doc
}

// ValidateBody checks that body is JSON matching the named schema. An empty
// body is validated as an empty object.
func (v *Validator) ValidateBody(schema string, body []byte) error {
	ref, ok := v.doc.Components.Schemas[schema]
	if !ok || ref.Value == nil {
		return fmt.Errorf("%w: %s", ErrUnknownSchema, schema)
	}

	if len(body) == 0 {
		body = []byte("{}")
	}

	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}

	if err := ref.Value.VisitJSON(value, openapi3.MultiErrors()); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidBody, err)
	}

	return nil
}
