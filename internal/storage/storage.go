// Package storage defines the uniform rule/validation/event persistence
// port and its in-memory, file-tree, relational, and cached-relational
// implementations, grounded on the connection-pool and repository patterns
// in user-service/internal/database and user-service/internal/repository.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lightsaway/event-gateway/internal/model"
)

// ErrorKind classifies a storage failure uniformly across backends.
type ErrorKind string

const (
	ErrKindNotFound       ErrorKind = "notFound"
	ErrKindIO             ErrorKind = "io"
	ErrKindSerialization  ErrorKind = "serialization"
	ErrKindDatabase       ErrorKind = "database"
	ErrKindPool           ErrorKind = "pool"
	ErrKindOther          ErrorKind = "other"
)

// Error is the shared storage error type. Use errors.As to recover it and
// Kind to branch on taxonomy, e.g. to map NotFound to an HTTP 404.
type Error struct {
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewNotFoundError(msg string) error {
	return &Error{Kind: ErrKindNotFound, Msg: msg}
}

func wrapError(kind ErrorKind, msg string, err error) error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// IsNotFound reports whether err (or any error it wraps) is a storage
// not-found error.
func IsNotFound(err error) bool {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind == ErrKindNotFound
	}
	return false
}

// Storage is the uniform persistence port the gateway depends on. All
// operations are safe for concurrent use.
type Storage interface {
	AddRule(ctx context.Context, rule model.TopicRoutingRule) error
	GetRule(ctx context.Context, id uuid.UUID) (*model.TopicRoutingRule, error)
	GetAllRules(ctx context.Context) ([]model.TopicRoutingRule, error)
	UpdateRule(ctx context.Context, id uuid.UUID, rule model.TopicRoutingRule) error
	DeleteRule(ctx context.Context, id uuid.UUID) error

	AddTopicValidation(ctx context.Context, v model.TopicValidationConfig) error
	GetAllTopicValidations(ctx context.Context) (map[string][]model.DataSchema, error)
	GetValidationsForTopic(ctx context.Context, topic string) ([]model.DataSchema, error)
	DeleteTopicValidation(ctx context.Context, id uuid.UUID) error

	StoreEvent(ctx context.Context, event model.Event, routingID *uuid.UUID, destinationTopic *string, failureReason *string) error
	GetEvent(ctx context.Context, id uuid.UUID) (*model.StoredEvent, error)
	GetEventsByType(ctx context.Context, eventType string, limit, offset int) ([]model.StoredEvent, int, error)
	GetEventsByRouting(ctx context.Context, routingID uuid.UUID, limit, offset int) ([]model.StoredEvent, int, error)
	GetSampleEvents(ctx context.Context, limit, offset int) ([]model.StoredEvent, int, error)

	Close() error
}

// getValidationsForTopic is the derived default implementation shared by
// backends that only maintain GetAllTopicValidations natively.
func getValidationsForTopic(all map[string][]model.DataSchema, topic string) []model.DataSchema {
	schemas, ok := all[topic]
	if !ok {
		return []model.DataSchema{}
	}
	out := make([]model.DataSchema, len(schemas))
	copy(out, schemas)
	return out
}
