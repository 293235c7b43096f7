package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

const trialSchemaURL = "schema://trial-input.json"

// trialSchemaDefinition is the wire shape of TrialInput.
var trialSchemaDefinition = map[string]any{
	"type":                 "object",
	"required":             []any{"correct"},
	"additionalProperties": false,
	"properties": map[string]any{
		"timestamp":   map[string]any{"type": "string"},
		"trialNumber": map[string]any{"type": "integer", "minimum": 0},
		"correct":     map[string]any{"type": "boolean"},
		"errorType": map[string]any{
			"enum": []any{
				string(ErrorOmission), string(ErrorCommission), string(ErrorTimeout),
				string(ErrorWrongTarget), string(ErrorSequence), string(ErrorOther),
				"", nil,
			},
		},
		"reactionTimeMs": map[string]any{"type": []any{"number", "null"}, "minimum": 0},
		"thinkTimeMs":    map[string]any{"type": []any{"number", "null"}, "minimum": 0},
		"difficulty": map[string]any{
			"type":                 "object",
			"additionalProperties": map[string]any{"type": "number"},
		},
		"difficultyRating": map[string]any{"type": "number", "minimum": 0, "maximum": 2400},
		"score":            map[string]any{"type": "number"},
	},
}

var (
	trialSchemaOnce sync.Once
	trialSchema     *jsonschema.Schema
	trialSchemaErr  error
)

func compiledTrialSchema() (*jsonschema.Schema, error) {
	trialSchemaOnce.Do(func() {
		// The compiler wants a decoded JSON value, not Go literals.
		defBytes, err := json.Marshal(trialSchemaDefinition)
		if err != nil {
			trialSchemaErr = fmt.Errorf("marshal schema definition: %w", err)
			return
		}
		var def any
		if err := json.Unmarshal(defBytes, &def); err != nil {
			trialSchemaErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}

		c := jsonschema.NewCompiler()
		if err := c.AddResource(trialSchemaURL, def); err != nil {
			trialSchemaErr = fmt.Errorf("add resource: %w", err)
			return
		}
		trialSchema, trialSchemaErr = c.Compile(trialSchemaURL)
	})
	return trialSchema, trialSchemaErr
}

// ParseTrialInput decodes and validates a JSON trial report. The raw
// document is checked against the trial schema first, then the decoded
// value is checked with Validate. Every rejection is a *ValidationError.
func ParseTrialInput(raw []byte) (TrialInput, error) {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return TrialInput{}, &ValidationError{Field: "body", Reason: "invalid JSON: " + err.Error()}
	}

	schema, err := compiledTrialSchema()
	if err != nil {
		return TrialInput{}, fmt.Errorf("compile trial schema: %w", err)
	}
	if err := schema.Validate(parsed); err != nil {
		return TrialInput{}, schemaError(err)
	}

	var in TrialInput
	if err := json.Unmarshal(raw, &in); err != nil {
		return TrialInput{}, &ValidationError{Field: "body", Reason: err.Error()}
	}
	if err := in.Validate(); err != nil {
		return TrialInput{}, err
	}
	return in, nil
}

// schemaError reduces a schema failure to the first offending field.
func schemaError(err error) *ValidationError {
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return &ValidationError{Field: "body", Reason: err.Error()}
	}
	leaf := ve
	for len(leaf.Causes) > 0 {
		leaf = leaf.Causes[0]
	}
	field := strings.Join(leaf.InstanceLocation, ".")
	if field == "" {
		field = "body"
	}
	return &ValidationError{Field: field, Reason: "does not match the trial schema"}
}
