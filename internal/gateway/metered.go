package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lightsaway/event-gateway/internal/metrics"
	"github.com/lightsaway/event-gateway/internal/model"
	"github.com/lightsaway/event-gateway/internal/publisher"
	"github.com/lightsaway/event-gateway/internal/storage"
)

// Handler is the surface the HTTP boundary drives; both Gateway and
// MeteredGateway satisfy it.
type Handler interface {
	Handle(ctx context.Context, event model.Event) error
	AddRule(ctx context.Context, rule model.TopicRoutingRule) error
	GetRule(ctx context.Context, id uuid.UUID) (*model.TopicRoutingRule, error)
	GetAllRules(ctx context.Context) ([]model.TopicRoutingRule, error)
	UpdateRule(ctx context.Context, id uuid.UUID, rule model.TopicRoutingRule) error
	DeleteRule(ctx context.Context, id uuid.UUID) error
	AddTopicValidation(ctx context.Context, v model.TopicValidationConfig) error
	GetAllTopicValidations(ctx context.Context) (map[string][]model.DataSchema, error)
	DeleteTopicValidation(ctx context.Context, id uuid.UUID) error
}

var _ Handler = (*Gateway)(nil)
var _ Handler = (*MeteredGateway)(nil)

// MeteredGateway decorates a Gateway with the events_total counter and
// event_handling_duration_seconds histogram described in the gateway's
// metrics wrapper. Admin CRUD calls pass through unmetered.
type MeteredGateway struct {
	inner *Gateway
}

func NewMetered(store storage.Storage, pub publisher.Publisher, cfg Config) *MeteredGateway {
	return &MeteredGateway{inner: New(store, pub, cfg)}
}

func (g *MeteredGateway) Handle(ctx context.Context, event model.Event) error {
	start := time.Now()
	err := g.inner.Handle(ctx, event)
	metrics.RecordStep("handle", time.Since(start))

	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.RecordEvent(event.EventType, event.VersionOrDefault(), event.OriginOrDefault(), result)
	return err
}

func (g *MeteredGateway) AddRule(ctx context.Context, rule model.TopicRoutingRule) error {
	return g.inner.AddRule(ctx, rule)
}

func (g *MeteredGateway) GetRule(ctx context.Context, id uuid.UUID) (*model.TopicRoutingRule, error) {
	return g.inner.GetRule(ctx, id)
}

func (g *MeteredGateway) GetAllRules(ctx context.Context) ([]model.TopicRoutingRule, error) {
	return g.inner.GetAllRules(ctx)
}

func (g *MeteredGateway) UpdateRule(ctx context.Context, id uuid.UUID, rule model.TopicRoutingRule) error {
	return g.inner.UpdateRule(ctx, id, rule)
}

func (g *MeteredGateway) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return g.inner.DeleteRule(ctx, id)
}

func (g *MeteredGateway) AddTopicValidation(ctx context.Context, v model.TopicValidationConfig) error {
	return g.inner.AddTopicValidation(ctx, v)
}

func (g *MeteredGateway) GetAllTopicValidations(ctx context.Context) (map[string][]model.DataSchema, error) {
	return g.inner.GetAllTopicValidations(ctx)
}

func (g *MeteredGateway) DeleteTopicValidation(ctx context.Context, id uuid.UUID) error {
	return g.inner.DeleteTopicValidation(ctx, id)
}
