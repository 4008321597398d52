package storage

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/lightsaway/event-gateway/internal/model"
)

// MemoryStorage is a read-only snapshot loaded once from a JSON document at
// construction. It exists for tests and for operators who want immutable
// routing rules; every mutating call fails with ErrKindOther("unimplemented").
type MemoryStorage struct {
	rules       []model.TopicRoutingRule
	validations map[string][]model.DataSchema
}

// memorySnapshot is the JSON document shape MemoryStorage is seeded from,
// mirroring original_source's InMemoryStorage Deserialize impl.
type memorySnapshot struct {
	RoutingRules      []model.TopicRoutingRule        `json:"routingRules"`
	TopicValidations  map[string][]model.DataSchema   `json:"topicValidations"`
}

// NewMemoryStorage builds an empty snapshot.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{validations: make(map[string][]model.DataSchema)}
}

// NewMemoryStorageFromJSON parses initialDataJSON (the
// [database].initialDataJson config field) into a ready-to-use snapshot.
func NewMemoryStorageFromJSON(initialDataJSON string) (*MemoryStorage, error) {
	if initialDataJSON == "" {
		return NewMemoryStorage(), nil
	}
	var snap memorySnapshot
	if err := json.Unmarshal([]byte(initialDataJSON), &snap); err != nil {
		return nil, wrapError(ErrKindSerialization, "memory storage: invalid initial data", err)
	}
	if snap.TopicValidations == nil {
		snap.TopicValidations = make(map[string][]model.DataSchema)
	}
	return &MemoryStorage{rules: snap.RoutingRules, validations: snap.TopicValidations}, nil
}

// WithInitialRoutingRules replaces s's rules in place and returns s.
func (s *MemoryStorage) WithInitialRoutingRules(rules []model.TopicRoutingRule) *MemoryStorage {
	s.rules = rules
	return s
}

// WithInitialTopicValidations replaces s's validations in place and returns s.
func (s *MemoryStorage) WithInitialTopicValidations(validations map[string][]model.DataSchema) *MemoryStorage {
	s.validations = validations
	return s
}

func unimplemented(op string) error {
	return wrapError(ErrKindOther, "memory storage: "+op+" is unimplemented", nil)
}

func (s *MemoryStorage) AddRule(ctx context.Context, rule model.TopicRoutingRule) error {
	return unimplemented("add_rule")
}

func (s *MemoryStorage) GetRule(ctx context.Context, id uuid.UUID) (*model.TopicRoutingRule, error) {
	for i := range s.rules {
		if s.rules[i].ID == id {
			r := s.rules[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (s *MemoryStorage) GetAllRules(ctx context.Context) ([]model.TopicRoutingRule, error) {
	out := make([]model.TopicRoutingRule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

func (s *MemoryStorage) UpdateRule(ctx context.Context, id uuid.UUID, rule model.TopicRoutingRule) error {
	return unimplemented("update_rule")
}

func (s *MemoryStorage) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return unimplemented("delete_rule")
}

func (s *MemoryStorage) AddTopicValidation(ctx context.Context, v model.TopicValidationConfig) error {
	return unimplemented("add_topic_validation")
}

func (s *MemoryStorage) GetAllTopicValidations(ctx context.Context) (map[string][]model.DataSchema, error) {
	out := make(map[string][]model.DataSchema, len(s.validations))
	for k, v := range s.validations {
		cp := make([]model.DataSchema, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out, nil
}

func (s *MemoryStorage) GetValidationsForTopic(ctx context.Context, topic string) ([]model.DataSchema, error) {
	all, err := s.GetAllTopicValidations(ctx)
	if err != nil {
		return nil, err
	}
	return getValidationsForTopic(all, topic), nil
}

func (s *MemoryStorage) DeleteTopicValidation(ctx context.Context, id uuid.UUID) error {
	return unimplemented("delete_topic_validation")
}

func (s *MemoryStorage) StoreEvent(ctx context.Context, event model.Event, routingID *uuid.UUID, destinationTopic *string, failureReason *string) error {
	return unimplemented("store_event")
}

func (s *MemoryStorage) GetEvent(ctx context.Context, id uuid.UUID) (*model.StoredEvent, error) {
	return nil, nil
}

func (s *MemoryStorage) GetEventsByType(ctx context.Context, eventType string, limit, offset int) ([]model.StoredEvent, int, error) {
	return []model.StoredEvent{}, 0, nil
}

func (s *MemoryStorage) GetEventsByRouting(ctx context.Context, routingID uuid.UUID, limit, offset int) ([]model.StoredEvent, int, error) {
	return []model.StoredEvent{}, 0, nil
}

func (s *MemoryStorage) GetSampleEvents(ctx context.Context, limit, offset int) ([]model.StoredEvent, int, error) {
	return []model.StoredEvent{}, 0, nil
}

func (s *MemoryStorage) Close() error {
	return nil
}
