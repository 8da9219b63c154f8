// Package metadata validates item metadata payloads before they are stored.
package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// defaultSchema constrains item metadata documents: a display name plus an
// optional flat attribute bag and media URI. Unknown top-level fields are
// rejected so that typos surface at write time.
const defaultSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "title": "item-metadata",
  "type": "object",
  "required": ["name"],
  "additionalProperties": false,
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "description": {"type": "string"},
    "media_uri": {"type": "string", "format": "uri"},
    "attributes": {
      "type": "object",
      "additionalProperties": {"type": ["string", "number", "boolean"]}
    }
  }
}`

// Validator checks metadata payloads against a compiled JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the built-in item metadata schema.
func NewValidator() (*Validator, error) {
	return NewValidatorFromSchema(defaultSchema)
}

// NewValidatorFromSchema compiles a caller-supplied schema document. Used by
// deployments that extend the metadata contract.
func NewValidatorFromSchema(schema string) (*Validator, error) {
	c := jsonschema.NewCompiler()
	if err := c.AddResource("item-metadata.schema.json", strings.NewReader(schema)); err != nil {
		return nil, err
	}
	s, err := c.Compile("item-metadata.schema.json")
	if err != nil {
		return nil, err
	}
	return &Validator{schema: s}, nil
}

// Validate checks a raw metadata payload. Empty payloads are valid: items may
// be issued without metadata and enriched later.
func (v *Validator) Validate(payload []byte) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("metadata payload is not valid JSON: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("metadata payload rejected: %w", err)
	}
	return nil
}
