// Package validation checks site configuration against an embedded JSON
// Schema before it reaches the engine.
package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/rendis/diagrun/pkg/schema"
)

// siteConfigSchemaJSON is the JSON Schema for SiteConfig validation.
// Embedded as a constant to avoid filesystem dependencies.
const siteConfigSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "$id": "https://diagrun.dev/schemas/site-config.json",
  "type": "object",
  "properties": {
    "start_on_load": { "type": "boolean" },
    "deterministic_ids": { "type": "boolean" },
    "deterministic_id_seed": { "type": "string" },
    "security_level": {
      "type": "string",
      "enum": ["strict", "loose"]
    },
    "max_text_size": {
      "type": "integer",
      "minimum": 1
    },
    "log_level": {
      "type": "string",
      "enum": ["debug", "info", "warn", "error"]
    }
  },
  "additionalProperties": false
}`

// Validator validates SiteConfig values. Safe for concurrent use.
type Validator struct {
	configSchema *jsonschema.Schema
}

// NewValidator compiles the embedded site-config schema.
func NewValidator() (*Validator, error) {
	c := jsonschema.NewCompiler()
	c.AssertFormat()

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(siteConfigSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("unmarshal site-config schema: %w", err)
	}
	if err := c.AddResource("https://diagrun.dev/schemas/site-config.json", doc); err != nil {
		return nil, fmt.Errorf("add site-config schema resource: %w", err)
	}

	compiled, err := c.Compile("https://diagrun.dev/schemas/site-config.json")
	if err != nil {
		return nil, fmt.Errorf("compile site-config schema: %w", err)
	}

	return &Validator{configSchema: compiled}, nil
}

// ValidateSiteConfig validates cfg against the schema, plus structural
// checks the schema cannot express.
func (v *Validator) ValidateSiteConfig(cfg schema.SiteConfig) error {
	doc, err := toJSONValue(cfg)
	if err != nil {
		return schema.NewError(schema.ErrCodeValidation, "failed to serialize site config").WithCause(err)
	}

	if err := v.configSchema.Validate(doc); err != nil {
		return schema.NewError(schema.ErrCodeValidation, err.Error()).WithCause(err)
	}

	// A seed without deterministic IDs silently does nothing; reject it.
	if !cfg.DeterministicIDs && cfg.DeterministicIDSeed != "" {
		return schema.NewError(schema.ErrCodeValidation,
			"deterministic_id_seed is set but deterministic_ids is false")
	}

	return nil
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

// ValidateSiteConfig validates cfg using a lazily built shared Validator.
func ValidateSiteConfig(cfg schema.SiteConfig) error {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = NewValidator()
	})
	if defaultErr != nil {
		return schema.NewError(schema.ErrCodeValidation, "site-config schema unavailable").WithCause(defaultErr)
	}
	return defaultValidator.ValidateSiteConfig(cfg)
}

// toJSONValue round-trips a value through JSON so the validator sees
// json.Number for numeric fields.
func toJSONValue(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}
