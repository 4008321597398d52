package gateway

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightsaway/event-gateway/internal/model"
	pub "github.com/lightsaway/event-gateway/internal/publisher"
	strg "github.com/lightsaway/event-gateway/internal/storage"
)

// fakeStorage is a minimal in-memory Storage implementation for exercising
// the gateway pipeline without a real backend.
type fakeStorage struct {
	mu          sync.Mutex
	rules       []model.TopicRoutingRule
	validations map[string][]model.DataSchema
	stored      []model.StoredEvent
	storeErr    error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{validations: make(map[string][]model.DataSchema)}
}

func (s *fakeStorage) AddRule(ctx context.Context, rule model.TopicRoutingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, rule)
	return nil
}
func (s *fakeStorage) GetRule(ctx context.Context, id uuid.UUID) (*model.TopicRoutingRule, error) {
	return nil, nil
}
func (s *fakeStorage) GetAllRules(ctx context.Context) ([]model.TopicRoutingRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.TopicRoutingRule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}
func (s *fakeStorage) UpdateRule(ctx context.Context, id uuid.UUID, rule model.TopicRoutingRule) error {
	return nil
}
func (s *fakeStorage) DeleteRule(ctx context.Context, id uuid.UUID) error { return nil }
func (s *fakeStorage) AddTopicValidation(ctx context.Context, v model.TopicValidationConfig) error {
	return nil
}
func (s *fakeStorage) GetAllTopicValidations(ctx context.Context) (map[string][]model.DataSchema, error) {
	return s.validations, nil
}
func (s *fakeStorage) GetValidationsForTopic(ctx context.Context, topic string) ([]model.DataSchema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validations[topic], nil
}
func (s *fakeStorage) DeleteTopicValidation(ctx context.Context, id uuid.UUID) error { return nil }
func (s *fakeStorage) StoreEvent(ctx context.Context, event model.Event, routingID *uuid.UUID, destinationTopic *string, failureReason *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return s.storeErr
	}
	s.stored = append(s.stored, model.StoredEvent{EventID: event.ID, RoutingID: routingID, DestinationTopic: destinationTopic, FailureReason: failureReason})
	return nil
}
func (s *fakeStorage) GetEvent(ctx context.Context, id uuid.UUID) (*model.StoredEvent, error) {
	return nil, nil
}
func (s *fakeStorage) GetEventsByType(ctx context.Context, eventType string, limit, offset int) ([]model.StoredEvent, int, error) {
	return nil, 0, nil
}
func (s *fakeStorage) GetEventsByRouting(ctx context.Context, routingID uuid.UUID, limit, offset int) ([]model.StoredEvent, int, error) {
	return nil, 0, nil
}
func (s *fakeStorage) GetSampleEvents(ctx context.Context, limit, offset int) ([]model.StoredEvent, int, error) {
	return nil, 0, nil
}
func (s *fakeStorage) Close() error { return nil }

func (s *fakeStorage) snapshot() []model.StoredEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.StoredEvent, len(s.stored))
	copy(out, s.stored)
	return out
}

type fakePublisher struct {
	mu        sync.Mutex
	published []model.Event
	failErr   error
}

func (p *fakePublisher) PublishOne(ctx context.Context, topic string, event model.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failErr != nil {
		return p.failErr
	}
	p.published = append(p.published, event)
	return nil
}
func (p *fakePublisher) Close() error { return nil }

var _ strg.Storage = (*fakeStorage)(nil)
var _ pub.Publisher = (*fakePublisher)(nil)

func newTestEvent() model.Event {
	return model.Event{
		ID:        model.NewEventID(),
		EventType: "order.created",
		Metadata:  map[string]string{},
		Data:      model.JSONData(map[string]interface{}{"amount": 10}),
	}
}

func TestGateway_Handle_NoRouteMatches(t *testing.T) {
	store := newFakeStorage()
	publ := &fakePublisher{}
	g := New(store, publ, Config{SamplingEnabled: true, SamplingThreshold: 100})

	err := g.Handle(context.Background(), newTestEvent())
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, ErrNoTopicToRoute, gwErr.Kind)

	waitForArchive(t, store, 1)
	stored := store.snapshot()
	require.Len(t, stored, 1)
	assert.Equal(t, "unknown", *stored[0].DestinationTopic)
	assert.Nil(t, stored[0].RoutingID)
}

func TestGateway_Handle_RoutesAndPublishes(t *testing.T) {
	store := newFakeStorage()
	rule := model.TopicRoutingRule{ID: uuid.New(), Order: 0, Topic: model.MustTopic("orders"), EventTypeCondition: model.AnyCondition()}
	store.rules = []model.TopicRoutingRule{rule}
	publ := &fakePublisher{}
	g := New(store, publ, Config{SamplingEnabled: true, SamplingThreshold: 100})

	err := g.Handle(context.Background(), newTestEvent())
	require.NoError(t, err)
	require.Len(t, publ.published, 1)

	waitForArchive(t, store, 1)
	stored := store.snapshot()
	require.Len(t, stored, 1)
	assert.Equal(t, "orders", *stored[0].DestinationTopic)
	assert.Nil(t, stored[0].FailureReason)
}

func TestGateway_Handle_SchemaValidationFails(t *testing.T) {
	store := newFakeStorage()
	rule := model.TopicRoutingRule{ID: uuid.New(), Order: 0, Topic: model.MustTopic("orders"), EventTypeCondition: model.AnyCondition()}
	store.rules = []model.TopicRoutingRule{rule}

	rawSchema := []byte(`{"type":"object","required":["amount"],"properties":{"amount":{"type":"string"}}}`)
	schemaWrapper, err := model.NewJSONSchemaWrapper(rawSchema)
	require.NoError(t, err)
	store.validations["orders"] = []model.DataSchema{
		{Name: "order-created", EventType: "order.created", Schema: schemaWrapper},
	}

	publ := &fakePublisher{}
	g := New(store, publ, Config{SamplingEnabled: true, SamplingThreshold: 100})

	err = g.Handle(context.Background(), newTestEvent())
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, ErrSchemaInvalid, gwErr.Kind)
	assert.Empty(t, publ.published)

	waitForArchive(t, store, 1)
	stored := store.snapshot()
	require.Len(t, stored, 1)
	require.NotNil(t, stored[0].FailureReason)
}

func TestGateway_Handle_StringDataSkipsValidation(t *testing.T) {
	store := newFakeStorage()
	rule := model.TopicRoutingRule{ID: uuid.New(), Order: 0, Topic: model.MustTopic("orders"), EventTypeCondition: model.AnyCondition()}
	store.rules = []model.TopicRoutingRule{rule}

	rawSchema := []byte(`{"type":"object","required":["amount"]}`)
	schemaWrapper, err := model.NewJSONSchemaWrapper(rawSchema)
	require.NoError(t, err)
	store.validations["orders"] = []model.DataSchema{
		{Name: "order-created", EventType: "order.created", Schema: schemaWrapper},
	}

	publ := &fakePublisher{}
	g := New(store, publ, Config{})

	event := newTestEvent()
	event.Data = model.StringData("not json")
	require.NoError(t, g.Handle(context.Background(), event))
	assert.Len(t, publ.published, 1)
}

func TestGateway_Handle_PublishFailure(t *testing.T) {
	store := newFakeStorage()
	rule := model.TopicRoutingRule{ID: uuid.New(), Order: 0, Topic: model.MustTopic("orders"), EventTypeCondition: model.AnyCondition()}
	store.rules = []model.TopicRoutingRule{rule}
	publ := &fakePublisher{failErr: assert.AnError}
	g := New(store, publ, Config{SamplingEnabled: true, SamplingThreshold: 100})

	err := g.Handle(context.Background(), newTestEvent())
	var gwErr *Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, ErrInternal, gwErr.Kind)

	waitForArchive(t, store, 1)
	stored := store.snapshot()
	require.Len(t, stored, 1)
	require.NotNil(t, stored[0].FailureReason)
}

func TestGateway_Handle_SamplingDisabledSkipsArchive(t *testing.T) {
	store := newFakeStorage()
	rule := model.TopicRoutingRule{ID: uuid.New(), Order: 0, Topic: model.MustTopic("orders"), EventTypeCondition: model.AnyCondition()}
	store.rules = []model.TopicRoutingRule{rule}
	publ := &fakePublisher{}
	g := New(store, publ, Config{SamplingEnabled: false})

	require.NoError(t, g.Handle(context.Background(), newTestEvent()))
	time.Sleep(50 * time.Millisecond)
	assert.Empty(t, store.snapshot())
}

func waitForArchive(t *testing.T, store *fakeStorage, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if len(store.snapshot()) >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d archived events", want)
}
