package storage

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/lightsaway/event-gateway/internal/model"
)

// FileStorage persists rules, validations and archived events as one JSON
// file per entity under root/{rules,validations,events}/<id>.json. Writes
// are serialized through a single in-process lock; they are not atomic
// across a crash, an accepted limitation for single-process deployments.
//
// No pack example repo implements a directory-of-JSON-files store, so this
// stays on the standard library (os/encoding/json) rather than reaching for
// a filesystem abstraction library - there is no mocking or virtualization
// need here that would justify one.
type FileStorage struct {
	mu   sync.Mutex
	root string
}

func NewFileStorage(root string) (*FileStorage, error) {
	for _, sub := range []string{"rules", "validations", "events"} {
		if err := os.MkdirAll(filepath.Join(root, sub), 0o755); err != nil {
			return nil, wrapError(ErrKindIO, "file storage: create "+sub, err)
		}
	}
	return &FileStorage{root: root}, nil
}

func (s *FileStorage) path(sub string, id uuid.UUID) string {
	return filepath.Join(s.root, sub, id.String()+".json")
}

func (s *FileStorage) writeJSON(path string, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return wrapError(ErrKindSerialization, "file storage: marshal", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return wrapError(ErrKindIO, "file storage: write "+path, err)
	}
	return nil
}

func (s *FileStorage) readJSON(path string, v interface{}) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, wrapError(ErrKindIO, "file storage: read "+path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, wrapError(ErrKindSerialization, "file storage: unmarshal "+path, err)
	}
	return true, nil
}

func (s *FileStorage) listDir(sub string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(s.root, sub))
	if err != nil {
		return nil, wrapError(ErrKindIO, "file storage: list "+sub, err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(e.Name(), ".json"))
	}
	return names, nil
}

func (s *FileStorage) AddRule(ctx context.Context, rule model.TopicRoutingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(s.path("rules", rule.ID), rule)
}

func (s *FileStorage) GetRule(ctx context.Context, id uuid.UUID) (*model.TopicRoutingRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var rule model.TopicRoutingRule
	found, err := s.readJSON(s.path("rules", id), &rule)
	if err != nil || !found {
		return nil, err
	}
	return &rule, nil
}

func (s *FileStorage) GetAllRules(ctx context.Context) ([]model.TopicRoutingRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, err := s.listDir("rules")
	if err != nil {
		return nil, err
	}
	rules := make([]model.TopicRoutingRule, 0, len(ids))
	for _, idStr := range ids {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		var rule model.TopicRoutingRule
		found, err := s.readJSON(s.path("rules", id), &rule)
		if err != nil {
			return nil, err
		}
		if found {
			rules = append(rules, rule)
		}
	}
	sort.SliceStable(rules, func(i, j int) bool { return rules[i].Order < rules[j].Order })
	return rules, nil
}

func (s *FileStorage) UpdateRule(ctx context.Context, id uuid.UUID, rule model.TopicRoutingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.path("rules", id)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return NewNotFoundError("file storage: rule not found")
	}
	return s.writeJSON(path, rule)
}

func (s *FileStorage) DeleteRule(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.path("rules", id)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return NewNotFoundError("file storage: rule not found")
		}
		return wrapError(ErrKindIO, "file storage: delete rule", err)
	}
	return nil
}

func (s *FileStorage) AddTopicValidation(ctx context.Context, v model.TopicValidationConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writeJSON(s.path("validations", v.ID), v)
}

func (s *FileStorage) GetAllTopicValidations(ctx context.Context) (map[string][]model.DataSchema, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, err := s.listDir("validations")
	if err != nil {
		return nil, err
	}
	out := make(map[string][]model.DataSchema)
	for _, idStr := range ids {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		var cfg model.TopicValidationConfig
		found, err := s.readJSON(s.path("validations", id), &cfg)
		if err != nil {
			return nil, err
		}
		if found {
			topic := cfg.Topic.String()
			out[topic] = append(out[topic], cfg.Schema)
		}
	}
	return out, nil
}

func (s *FileStorage) GetValidationsForTopic(ctx context.Context, topic string) ([]model.DataSchema, error) {
	all, err := s.GetAllTopicValidations(ctx)
	if err != nil {
		return nil, err
	}
	return getValidationsForTopic(all, topic), nil
}

func (s *FileStorage) DeleteTopicValidation(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	path := s.path("validations", id)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return NewNotFoundError("file storage: topic validation not found")
		}
		return wrapError(ErrKindIO, "file storage: delete validation", err)
	}
	return nil
}

type storedEventFile struct {
	model.StoredEvent
	Metadata          map[string]string `json:"metadata"`
	TransportMetadata map[string]string `json:"transportMetadata,omitempty"`
}

func (s *FileStorage) StoreEvent(ctx context.Context, event model.Event, routingID *uuid.UUID, destinationTopic *string, failureReason *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := storedEventFile{
		StoredEvent: model.StoredEvent{
			ID:               uuid.New(),
			EventID:          event.ID,
			EventType:        event.EventType,
			EventVersion:     event.EventVersion,
			RoutingID:        routingID,
			DestinationTopic: destinationTopic,
			FailureReason:    failureReason,
			StoredAt:         nowUTC(),
			EventData:        eventDataAsMap(event),
		},
		Metadata:          event.Metadata,
		TransportMetadata: event.TransportMetadata,
	}
	return s.writeJSON(s.path("events", row.ID), row)
}

func (s *FileStorage) GetEvent(ctx context.Context, id uuid.UUID) (*model.StoredEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var row storedEventFile
	found, err := s.readJSON(s.path("events", id), &row)
	if err != nil || !found {
		return nil, err
	}
	return &row.StoredEvent, nil
}

// GetEventsByType, GetEventsByRouting and GetSampleEvents have no efficient
// index in a directory-of-files store. Listing (sampling) is intentionally
// unsupported here per the file-tree variant's documented limitation;
// lookups by type/routing still work, via a linear scan.
func (s *FileStorage) GetEventsByType(ctx context.Context, eventType string, limit, offset int) ([]model.StoredEvent, int, error) {
	return s.scanEvents(func(e model.StoredEvent) bool { return e.EventType == eventType }, limit, offset)
}

func (s *FileStorage) GetEventsByRouting(ctx context.Context, routingID uuid.UUID, limit, offset int) ([]model.StoredEvent, int, error) {
	return s.scanEvents(func(e model.StoredEvent) bool {
		return e.RoutingID != nil && *e.RoutingID == routingID
	}, limit, offset)
}

func (s *FileStorage) GetSampleEvents(ctx context.Context, limit, offset int) ([]model.StoredEvent, int, error) {
	return []model.StoredEvent{}, 0, nil
}

func (s *FileStorage) scanEvents(predicate func(model.StoredEvent) bool, limit, offset int) ([]model.StoredEvent, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids, err := s.listDir("events")
	if err != nil {
		return nil, 0, err
	}
	var matched []model.StoredEvent
	for _, idStr := range ids {
		id, err := uuid.Parse(idStr)
		if err != nil {
			continue
		}
		var row storedEventFile
		found, err := s.readJSON(s.path("events", id), &row)
		if err != nil {
			return nil, 0, err
		}
		if found && predicate(row.StoredEvent) {
			matched = append(matched, row.StoredEvent)
		}
	}
	total := len(matched)
	if offset >= total {
		return []model.StoredEvent{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (s *FileStorage) Close() error {
	return nil
}
