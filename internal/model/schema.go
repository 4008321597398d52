package model

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"
)

// ValidationError reports one JSON Schema violation found against an event's
// data payload.
type ValidationError struct {
	Message      string `json:"message"`
	InstancePath string `json:"instancePath"`
	SchemaPath   string `json:"schemaPath"`
}

// JSONSchema stores both the raw schema document and its compiled form. The
// draft is read from $schema (draft-04/-06/-07, default draft-07).
// Equality and cloning always go through the raw document: compiled schemas
// are never compared or copied directly.
type JSONSchema struct {
	raw      json.RawMessage
	compiled *jsonschema.Schema
	draft    *jsonschema.Draft
}

func detectDraft(raw json.RawMessage) *jsonschema.Draft {
	var probe struct {
		Schema string `json:"$schema"`
	}
	_ = json.Unmarshal(raw, &probe)
	switch {
	case containsSubstr(probe.Schema, "draft-04"):
		return jsonschema.Draft4
	case containsSubstr(probe.Schema, "draft-06"):
		return jsonschema.Draft6
	default:
		return jsonschema.Draft7
	}
}

func containsSubstr(s, substr string) bool {
	return len(s) >= len(substr) && bytes.Contains([]byte(s), []byte(substr))
}

// NewJSONSchema compiles raw into a usable schema, detecting its draft.
// Compilation failure is a construction-time error; a schema is never
// accepted into storage or a DataSchema uncompiled.
func NewJSONSchema(raw json.RawMessage) (*JSONSchema, error) {
	draft := detectDraft(raw)
	resourceID := fmt.Sprintf("mem://event-gateway/%s.json", uuid.New().String())

	compiler := jsonschema.NewCompiler()
	compiler.Draft = draft
	if err := compiler.AddResource(resourceID, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("schema: invalid document: %w", err)
	}
	compiled, err := compiler.Compile(resourceID)
	if err != nil {
		return nil, fmt.Errorf("schema: compile failed: %w", err)
	}

	buf := bytes.Buffer{}
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("schema: invalid json: %w", err)
	}

	return &JSONSchema{raw: buf.Bytes(), compiled: compiled, draft: draft}, nil
}

// Clone recompiles a fresh copy from the raw document.
func (s *JSONSchema) Clone() (*JSONSchema, error) {
	return NewJSONSchema(s.raw)
}

// Equal compares two schemas by their raw JSON document, never by compiled
// form.
func (s *JSONSchema) Equal(other *JSONSchema) bool {
	if s == nil || other == nil {
		return s == other
	}
	return bytes.Equal(s.raw, other.raw)
}

// RawSchema returns the compact raw JSON document.
func (s *JSONSchema) RawSchema() json.RawMessage {
	return append(json.RawMessage(nil), s.raw...)
}

// Validate checks instance (already decoded, e.g. via encoding/json) against
// the compiled schema, returning every violation found.
func (s *JSONSchema) Validate(instance interface{}) []ValidationError {
	err := s.compiled.Validate(instance)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return []ValidationError{{Message: err.Error()}}
	}
	var out []ValidationError
	flattenValidationError(ve, &out)
	if len(out) == 0 {
		out = append(out, ValidationError{Message: ve.Error(), InstancePath: ve.InstanceLocation, SchemaPath: ve.KeywordLocation})
	}
	return out
}

func flattenValidationError(ve *jsonschema.ValidationError, out *[]ValidationError) {
	if len(ve.Causes) == 0 {
		*out = append(*out, ValidationError{
			Message:      ve.Message,
			InstancePath: ve.InstanceLocation,
			SchemaPath:   ve.KeywordLocation,
		})
		return
	}
	for _, cause := range ve.Causes {
		flattenValidationError(cause, out)
	}
}

func (s *JSONSchema) MarshalJSON() ([]byte, error) {
	return s.raw, nil
}

func (s *JSONSchema) UnmarshalJSON(data []byte) error {
	compiled, err := NewJSONSchema(data)
	if err != nil {
		return err
	}
	*s = *compiled
	return nil
}

// SchemaKind discriminates the Schema tagged union. Only "json" exists
// today; the tag is kept so a future schema language has somewhere to live
// without breaking the wire format.
type SchemaKind string

const SchemaKindJSON SchemaKind = "json"

// Schema wraps a JSONSchema in its wire tag: {"type":"json","data":{...}}.
type Schema struct {
	Kind SchemaKind
	JSON *JSONSchema
}

func NewJSONSchemaWrapper(raw json.RawMessage) (Schema, error) {
	js, err := NewJSONSchema(raw)
	if err != nil {
		return Schema{}, err
	}
	return Schema{Kind: SchemaKindJSON, JSON: js}, nil
}

func (s Schema) Equal(other Schema) bool {
	if s.Kind != other.Kind {
		return false
	}
	return s.JSON.Equal(other.JSON)
}

// Clone recompiles the wrapped schema from its raw document.
func (s Schema) Clone() (Schema, error) {
	js, err := s.JSON.Clone()
	if err != nil {
		return Schema{}, err
	}
	return Schema{Kind: s.Kind, JSON: js}, nil
}

type schemaWire struct {
	Type SchemaKind      `json:"type"`
	Data json.RawMessage `json:"data"`
}

func (s Schema) MarshalJSON() ([]byte, error) {
	return json.Marshal(schemaWire{Type: s.Kind, Data: s.JSON.RawSchema()})
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	var wire schemaWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	if wire.Type != SchemaKindJSON {
		return fmt.Errorf("schema: unsupported type %q", wire.Type)
	}
	js, err := NewJSONSchema(wire.Data)
	if err != nil {
		return err
	}
	s.Kind = wire.Type
	s.JSON = js
	return nil
}
