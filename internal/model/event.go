package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// DataType is a descriptive tag carried alongside Data. Event.Data's own tag
// is authoritative; DataType is informational only.
type DataType string

const (
	DataTypeJSON   DataType = "json"
	DataTypeString DataType = "string"
	DataTypeBinary DataType = "binary"
)

// DataKind discriminates the Data tagged union.
type DataKind string

const (
	DataKindJSON   DataKind = "json"
	DataKindString DataKind = "string"
	DataKindBinary DataKind = "binary"
)

// Data is the event payload: exactly one of a JSON object, raw text, or raw
// bytes. Binary content round-trips through JSON as a base64 string, the
// standard library's behavior for []byte.
type Data struct {
	Kind   DataKind
	JSON   map[string]interface{}
	Text   string
	Binary []byte
}

func JSONData(v map[string]interface{}) Data {
	return Data{Kind: DataKindJSON, JSON: v}
}

func StringData(s string) Data {
	return Data{Kind: DataKindString, Text: s}
}

func BinaryData(b []byte) Data {
	return Data{Kind: DataKindBinary, Binary: b}
}

type dataWire struct {
	Type    DataKind        `json:"type"`
	Content json.RawMessage `json:"content"`
}

func (d Data) MarshalJSON() ([]byte, error) {
	var content interface{}
	switch d.Kind {
	case DataKindJSON:
		content = d.JSON
	case DataKindString:
		content = d.Text
	case DataKindBinary:
		content = d.Binary
	default:
		return nil, fmt.Errorf("data: unknown kind %q", d.Kind)
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(dataWire{Type: d.Kind, Content: raw})
}

func (d *Data) UnmarshalJSON(data []byte) error {
	var wire dataWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	d.Kind = wire.Type
	switch wire.Type {
	case DataKindJSON:
		var m map[string]interface{}
		if err := json.Unmarshal(wire.Content, &m); err != nil {
			return fmt.Errorf("data: invalid json content: %w", err)
		}
		d.JSON = m
	case DataKindString:
		var s string
		if err := json.Unmarshal(wire.Content, &s); err != nil {
			return fmt.Errorf("data: invalid string content: %w", err)
		}
		d.Text = s
	case DataKindBinary:
		var b []byte
		if err := json.Unmarshal(wire.Content, &b); err != nil {
			return fmt.Errorf("data: invalid binary content: %w", err)
		}
		d.Binary = b
	default:
		return fmt.Errorf("data: unknown type %q", wire.Type)
	}
	return nil
}

// Event is an immutable ingested message. Construct it fully, never mutate
// in place once it has entered the pipeline.
type Event struct {
	ID                uuid.UUID         `json:"id"`
	EventType         string            `json:"eventType"`
	EventVersion      *string           `json:"eventVersion,omitempty"`
	Metadata          map[string]string `json:"metadata"`
	TransportMetadata map[string]string `json:"transportMetadata,omitempty"`
	DataType          *DataType         `json:"dataType,omitempty"`
	Data              Data              `json:"data"`
	Timestamp         *time.Time        `json:"timestamp,omitempty"`
	Origin            *string           `json:"origin,omitempty"`
}

// NewEventID mints a fresh random event identifier.
func NewEventID() uuid.UUID {
	return uuid.New()
}

// VersionOrDefault returns the event version, or "unknown" when absent -
// the label value used consistently across metrics.
func (e Event) VersionOrDefault() string {
	if e.EventVersion == nil || *e.EventVersion == "" {
		return "unknown"
	}
	return *e.EventVersion
}

// OriginOrDefault returns the event origin, or "unknown" when absent.
func (e Event) OriginOrDefault() string {
	if e.Origin == nil || *e.Origin == "" {
		return "unknown"
	}
	return *e.Origin
}
