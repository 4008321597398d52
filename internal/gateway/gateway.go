// Package gateway implements the event-handling core: route, validate,
// publish, and sampled background archive, grounded on
// original_source/src/gateway/gateway.rs's handle() pipeline.
package gateway

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lightsaway/event-gateway/internal/logger"
	"github.com/lightsaway/event-gateway/internal/metrics"
	"github.com/lightsaway/event-gateway/internal/model"
	"github.com/lightsaway/event-gateway/internal/publisher"
	"github.com/lightsaway/event-gateway/internal/router"
	"github.com/lightsaway/event-gateway/internal/storage"
)

// ErrorKind discriminates Error's three outcomes, each mapped to a
// distinct HTTP status at the boundary.
type ErrorKind string

const (
	ErrSchemaInvalid  ErrorKind = "schemaInvalid"
	ErrNoTopicToRoute ErrorKind = "noTopicToRoute"
	ErrInternal       ErrorKind = "internalError"
)

// Error is the gateway's handling outcome error. Kind drives the HTTP
// boundary's status mapping; Message is safe to log but never echoed back
// to callers: every kind answers with a fixed response body.
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func newSchemaInvalidError(msg string) error {
	return &Error{Kind: ErrSchemaInvalid, Message: msg}
}

func newNoTopicToRouteError(eventID uuid.UUID) error {
	return &Error{Kind: ErrNoTopicToRoute, Message: fmt.Sprintf("no topic to route event %s", eventID)}
}

func newInternalError(msg string, err error) error {
	return &Error{Kind: ErrInternal, Message: msg, Err: err}
}

// Config tunes the sampling behavior of a Gateway.
type Config struct {
	SamplingEnabled   bool
	SamplingThreshold float64 // percentage in [0, 100]
}

// Gateway owns one storage and one publisher and orchestrates the
// route -> validate -> publish -> archive pipeline. Admin CRUD calls pass
// straight through to storage.
type Gateway struct {
	storage   storage.Storage
	publisher publisher.Publisher
	config    Config
}

func New(store storage.Storage, pub publisher.Publisher, cfg Config) *Gateway {
	return &Gateway{storage: store, publisher: pub, config: cfg}
}

// Handle runs the full pipeline for one inbound event. On every outcome
// (routed, unrouted, schema-invalid, published, publish-failed) it
// dispatches a fire-and-forget archive attempt before returning.
func (g *Gateway) Handle(ctx context.Context, event model.Event) error {
	rules, err := g.storage.GetAllRules(ctx)
	if err != nil {
		return newInternalError("failed to load routing rules", err)
	}

	rule := (&router.TopicRoutings{Rules: rules}).Route(event)
	if rule == nil {
		unknown := model.UnknownTopic().String()
		reason := "No topic to route event"
		metrics.RecordRouted(unknown, "unmatched")
		g.archiveAsync(event, nil, &unknown, &reason)
		return newNoTopicToRouteError(event.ID)
	}

	topic := rule.Topic.String()
	metrics.RecordRouted(topic, "matched")
	schemas, err := g.storage.GetValidationsForTopic(ctx, topic)
	if err != nil {
		return newInternalError("failed to load topic validations", err)
	}
	applicable := applicableSchemas(schemas, event.EventType, event.EventVersion)

	if jsonErr := g.validate(event, applicable); jsonErr != nil {
		reason := jsonErr.Error()
		g.archiveAsync(event, &rule.ID, &topic, &reason)
		return newSchemaInvalidError(jsonErr.Error())
	}

	if err := g.publisher.PublishOne(ctx, topic, event); err != nil {
		reason := fmt.Sprintf("Failed to publish event: %v", err)
		g.archiveAsync(event, &rule.ID, &topic, &reason)
		return newInternalError("failed to publish event", err)
	}

	g.archiveAsync(event, &rule.ID, &topic, nil)
	return nil
}

// applicableSchemas filters to schemas bound to this exact
// (event_type, event_version) pair: None matches None, Some must equal
// Some.
func applicableSchemas(schemas []model.DataSchema, eventType string, eventVersion *string) []model.DataSchema {
	var out []model.DataSchema
	for _, s := range schemas {
		if s.AppliesTo(eventType, eventVersion) {
			out = append(out, s)
		}
	}
	return out
}

type schemaValidationFailure struct {
	schemaName string
	errors     []model.ValidationError
}

func (e *schemaValidationFailure) Error() string {
	return fmt.Sprintf("Schema validation failed for '%s': %v", e.schemaName, e.errors)
}

// validate checks event.Data against applicable only when it is a Json
// payload; String and Binary payloads always pass. Only the first failing
// schema is reported, matching the non-goal of probing every schema.
func (g *Gateway) validate(event model.Event, applicable []model.DataSchema) error {
	if event.Data.Kind != model.DataKindJSON {
		return nil
	}
	for _, schema := range applicable {
		violations := schema.Schema.JSON.Validate(event.Data.JSON)
		if len(violations) > 0 {
			return &schemaValidationFailure{schemaName: schema.Name, errors: violations}
		}
	}
	return nil
}

// archiveAsync dispatches a fire-and-forget archive attempt with bounded
// retry. It never blocks the caller and never propagates a failure.
func (g *Gateway) archiveAsync(event model.Event, routingID *uuid.UUID, destinationTopic *string, failureReason *string) {
	if !shouldStoreEvent(g.config.SamplingEnabled, g.config.SamplingThreshold, event.ID) {
		return
	}
	go g.archiveWithRetry(event, routingID, destinationTopic, failureReason)
}

const maxArchiveAttempts = 3

func (g *Gateway) archiveWithRetry(event model.Event, routingID *uuid.UUID, destinationTopic *string, failureReason *string) {
	delay := 100
	for attempt := 1; attempt <= maxArchiveAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := g.storage.StoreEvent(ctx, event, routingID, destinationTopic, failureReason)
		cancel()
		if err == nil {
			metrics.RecordArchiveRetry(attempt, "success")
			return
		}
		metrics.RecordArchiveRetry(attempt, "failure")
		if attempt == maxArchiveAttempts {
			logger.GetLogger().WithError(err).WithField("event_id", event.ID).Error("archive: giving up after max attempts")
			return
		}
		time.Sleep(time.Duration(delay) * time.Millisecond)
		delay = archiveRetryDelayMs(delay, event.ID)
	}
}

func (g *Gateway) AddRule(ctx context.Context, rule model.TopicRoutingRule) error {
	return g.storage.AddRule(ctx, rule)
}

func (g *Gateway) GetRule(ctx context.Context, id uuid.UUID) (*model.TopicRoutingRule, error) {
	return g.storage.GetRule(ctx, id)
}

func (g *Gateway) GetAllRules(ctx context.Context) ([]model.TopicRoutingRule, error) {
	return g.storage.GetAllRules(ctx)
}

func (g *Gateway) UpdateRule(ctx context.Context, id uuid.UUID, rule model.TopicRoutingRule) error {
	return g.storage.UpdateRule(ctx, id, rule)
}

func (g *Gateway) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return g.storage.DeleteRule(ctx, id)
}

func (g *Gateway) AddTopicValidation(ctx context.Context, v model.TopicValidationConfig) error {
	return g.storage.AddTopicValidation(ctx, v)
}

func (g *Gateway) GetAllTopicValidations(ctx context.Context) (map[string][]model.DataSchema, error) {
	return g.storage.GetAllTopicValidations(ctx)
}

func (g *Gateway) DeleteTopicValidation(ctx context.Context, id uuid.UUID) error {
	return g.storage.DeleteTopicValidation(ctx, id)
}
