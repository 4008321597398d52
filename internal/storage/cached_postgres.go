package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/lightsaway/event-gateway/internal/logger"
	"github.com/lightsaway/event-gateway/internal/metrics"
	"github.com/lightsaway/event-gateway/internal/model"
)

// invalidationChannel is the Redis pub/sub channel used to tell sibling
// gateway instances a write just happened, so their caches refresh sooner
// than the next scheduled tick. Grounded on the publish/subscribe pattern in
// shared/cache/go/redis_client.go.
const invalidationChannel = "event-gateway:cache:invalidate"

// CachedPostgresStorage wraps PostgresStorage with an in-memory read-through
// cache of rules and topic validations, refreshed on a timer and
// force-refreshed after writes. Reads are served from the cache under an
// RWMutex; refreshes build a fresh snapshot off-lock, then swap.
type CachedPostgresStorage struct {
	inner           *PostgresStorage
	refreshInterval time.Duration
	redisClient     *redis.Client

	mu          sync.RWMutex
	rules       []model.TopicRoutingRule
	validations map[string][]model.DataSchema
	lastRefresh time.Time

	refreshing int32 // CAS guard: at most one refresh in flight

	stopCh chan struct{}
	wg     sync.WaitGroup
}

// NewCachedPostgresStorage wraps inner, performs an initial synchronous
// load, and starts the periodic refresh loop. redisClient is optional
// (nil disables cross-instance invalidation, leaving purely timer-driven
// refresh).
func NewCachedPostgresStorage(ctx context.Context, inner *PostgresStorage, refreshInterval time.Duration, redisClient *redis.Client) (*CachedPostgresStorage, error) {
	if refreshInterval <= 0 {
		refreshInterval = 300 * time.Second
	}
	s := &CachedPostgresStorage{
		inner:           inner,
		refreshInterval: refreshInterval,
		redisClient:     redisClient,
		validations:     make(map[string][]model.DataSchema),
		stopCh:          make(chan struct{}),
	}
	if err := s.doRefresh(ctx); err != nil {
		return nil, err
	}

	s.wg.Add(1)
	go s.refreshLoop()

	if redisClient != nil {
		s.wg.Add(1)
		go s.invalidationListener()
	}

	return s, nil
}

func (s *CachedPostgresStorage) refreshLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(s.refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.scheduleRefresh()
		case <-s.stopCh:
			return
		}
	}
}

func (s *CachedPostgresStorage) invalidationListener() {
	defer s.wg.Done()
	sub := s.redisClient.Subscribe(context.Background(), invalidationChannel)
	defer sub.Close()
	ch := sub.Channel()
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
			s.scheduleRefresh()
		case <-s.stopCh:
			return
		}
	}
}

func (s *CachedPostgresStorage) publishInvalidation() {
	if s.redisClient == nil {
		return
	}
	if err := s.redisClient.Publish(context.Background(), invalidationChannel, "refresh").Err(); err != nil {
		logger.GetLogger().WithError(err).Warn("cached postgres storage: failed to publish cache invalidation")
	}
}

// isStale reports whether the cache state is stale as of now: the last
// completed refresh is older than refreshInterval.
func (s *CachedPostgresStorage) isStale() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return time.Since(s.lastRefresh) >= s.refreshInterval
}

// scheduleRefresh starts a refresh in the background if none is already in
// flight; concurrent callers do not wait for it.
func (s *CachedPostgresStorage) scheduleRefresh() {
	if !atomic.CompareAndSwapInt32(&s.refreshing, 0, 1) {
		return
	}
	go func() {
		defer atomic.StoreInt32(&s.refreshing, 0)
		if err := s.doRefresh(context.Background()); err != nil {
			logger.GetLogger().WithError(err).Warn("cached postgres storage: background refresh failed")
		}
	}()
}

// forceRefreshAfterWrite refreshes synchronously unless a refresh is
// already running, in which case the writer proceeds without waiting - its
// change becomes visible on that in-flight refresh or the next one.
func (s *CachedPostgresStorage) forceRefreshAfterWrite(ctx context.Context) {
	s.publishInvalidation()
	if !atomic.CompareAndSwapInt32(&s.refreshing, 0, 1) {
		return
	}
	defer atomic.StoreInt32(&s.refreshing, 0)
	if err := s.doRefresh(ctx); err != nil {
		logger.GetLogger().WithError(err).Warn("cached postgres storage: post-write refresh failed")
	}
}

func (s *CachedPostgresStorage) doRefresh(ctx context.Context) error {
	rules, err := s.inner.GetAllRules(ctx)
	if err != nil {
		metrics.RecordCacheRefresh("failure")
		return err
	}
	validations, err := s.inner.GetAllTopicValidations(ctx)
	if err != nil {
		metrics.RecordCacheRefresh("failure")
		return err
	}
	s.mu.Lock()
	s.rules = rules
	s.validations = validations
	s.lastRefresh = time.Now()
	s.mu.Unlock()
	metrics.RecordCacheRefresh("success")
	return nil
}

func (s *CachedPostgresStorage) AddRule(ctx context.Context, rule model.TopicRoutingRule) error {
	if err := s.inner.AddRule(ctx, rule); err != nil {
		return err
	}
	s.forceRefreshAfterWrite(ctx)
	return nil
}

func (s *CachedPostgresStorage) GetRule(ctx context.Context, id uuid.UUID) (*model.TopicRoutingRule, error) {
	if s.isStale() {
		metrics.RecordCacheMiss()
		s.scheduleRefresh()
	} else {
		metrics.RecordCacheHit()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for i := range s.rules {
		if s.rules[i].ID == id {
			r := s.rules[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (s *CachedPostgresStorage) GetAllRules(ctx context.Context) ([]model.TopicRoutingRule, error) {
	if s.isStale() {
		metrics.RecordCacheMiss()
		s.scheduleRefresh()
	} else {
		metrics.RecordCacheHit()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TopicRoutingRule, len(s.rules))
	copy(out, s.rules)
	return out, nil
}

func (s *CachedPostgresStorage) UpdateRule(ctx context.Context, id uuid.UUID, rule model.TopicRoutingRule) error {
	if err := s.inner.UpdateRule(ctx, id, rule); err != nil {
		return err
	}
	s.forceRefreshAfterWrite(ctx)
	return nil
}

func (s *CachedPostgresStorage) DeleteRule(ctx context.Context, id uuid.UUID) error {
	if err := s.inner.DeleteRule(ctx, id); err != nil {
		return err
	}
	s.forceRefreshAfterWrite(ctx)
	return nil
}

func (s *CachedPostgresStorage) AddTopicValidation(ctx context.Context, v model.TopicValidationConfig) error {
	if err := s.inner.AddTopicValidation(ctx, v); err != nil {
		return err
	}
	s.forceRefreshAfterWrite(ctx)
	return nil
}

func (s *CachedPostgresStorage) GetAllTopicValidations(ctx context.Context) (map[string][]model.DataSchema, error) {
	if s.isStale() {
		metrics.RecordCacheMiss()
		s.scheduleRefresh()
	} else {
		metrics.RecordCacheHit()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string][]model.DataSchema, len(s.validations))
	for k, v := range s.validations {
		cp := make([]model.DataSchema, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out, nil
}

func (s *CachedPostgresStorage) GetValidationsForTopic(ctx context.Context, topic string) ([]model.DataSchema, error) {
	all, err := s.GetAllTopicValidations(ctx)
	if err != nil {
		return nil, err
	}
	return getValidationsForTopic(all, topic), nil
}

func (s *CachedPostgresStorage) DeleteTopicValidation(ctx context.Context, id uuid.UUID) error {
	if err := s.inner.DeleteTopicValidation(ctx, id); err != nil {
		return err
	}
	s.forceRefreshAfterWrite(ctx)
	return nil
}

// Event operations are pass-throughs: the cache never holds archived
// events.
func (s *CachedPostgresStorage) StoreEvent(ctx context.Context, event model.Event, routingID *uuid.UUID, destinationTopic *string, failureReason *string) error {
	return s.inner.StoreEvent(ctx, event, routingID, destinationTopic, failureReason)
}

func (s *CachedPostgresStorage) GetEvent(ctx context.Context, id uuid.UUID) (*model.StoredEvent, error) {
	return s.inner.GetEvent(ctx, id)
}

func (s *CachedPostgresStorage) GetEventsByType(ctx context.Context, eventType string, limit, offset int) ([]model.StoredEvent, int, error) {
	return s.inner.GetEventsByType(ctx, eventType, limit, offset)
}

func (s *CachedPostgresStorage) GetEventsByRouting(ctx context.Context, routingID uuid.UUID, limit, offset int) ([]model.StoredEvent, int, error) {
	return s.inner.GetEventsByRouting(ctx, routingID, limit, offset)
}

func (s *CachedPostgresStorage) GetSampleEvents(ctx context.Context, limit, offset int) ([]model.StoredEvent, int, error) {
	return s.inner.GetSampleEvents(ctx, limit, offset)
}

func (s *CachedPostgresStorage) Close() error {
	close(s.stopCh)
	s.wg.Wait()
	return s.inner.Close()
}
