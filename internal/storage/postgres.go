package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lightsaway/event-gateway/internal/logger"
	"github.com/lightsaway/event-gateway/internal/metrics"
	"github.com/lightsaway/event-gateway/internal/model"
)

// PostgresConfig describes how to reach and authenticate against the
// relational backend. Endpoint is host[:port], default port 5432.
type PostgresConfig struct {
	Username string
	Password string
	Endpoint string
	DBName   string
}

func (c PostgresConfig) dbName() string {
	if c.DBName == "" {
		return "event_gateway"
	}
	return c.DBName
}

func parseEndpoint(endpoint string) (string, int) {
	if host, portStr, found := strings.Cut(endpoint, ":"); found {
		if port, err := strconv.Atoi(portStr); err == nil {
			return host, port
		}
		return host, 5432
	}
	return endpoint, 5432
}

func (c PostgresConfig) connString() string {
	host, port := parseEndpoint(c.Endpoint)
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", c.Username, c.Password, host, port, c.dbName())
}

// PostgresStorage is the relational Storage implementation, grounded on the
// pgxpool connection-pool pattern in user-service/internal/database and the
// query style in user-service/internal/repository/user_repository.go.
type PostgresStorage struct {
	pool *pgxpool.Pool
}

func NewPostgresStorage(ctx context.Context, cfg PostgresConfig) (*PostgresStorage, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.connString())
	if err != nil {
		return nil, wrapError(ErrKindPool, "postgres storage: parse config", err)
	}
	poolConfig.MaxConns = 30
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, wrapError(ErrKindPool, "postgres storage: create pool", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, wrapError(ErrKindDatabase, "postgres storage: ping", err)
	}

	if err := runMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}

	logger.GetLogger().Info("postgres storage connected")
	return &PostgresStorage{pool: pool}, nil
}

func (s *PostgresStorage) queryWithMetrics(ctx context.Context, operation string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.RecordDBQuery(operation, time.Since(start))
	return err
}

func (s *PostgresStorage) AddRule(ctx context.Context, rule model.TopicRoutingRule) error {
	return s.queryWithMetrics(ctx, "add_rule", func() error {
		typeCond, err := json.Marshal(rule.EventTypeCondition)
		if err != nil {
			return wrapError(ErrKindSerialization, "postgres storage: marshal event type condition", err)
		}
		var versionCond []byte
		if rule.EventVersionCondition != nil {
			versionCond, err = json.Marshal(rule.EventVersionCondition)
			if err != nil {
				return wrapError(ErrKindSerialization, "postgres storage: marshal event version condition", err)
			}
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO routing_rules (id, order_num, topic, description, event_version_condition, event_type_condition, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (id) DO UPDATE SET
				order_num = EXCLUDED.order_num,
				topic = EXCLUDED.topic,
				description = EXCLUDED.description,
				event_version_condition = EXCLUDED.event_version_condition,
				event_type_condition = EXCLUDED.event_type_condition,
				updated_at = now()`,
			rule.ID, rule.Order, rule.Topic.String(), rule.Description, versionCond, typeCond)
		if err != nil {
			return wrapError(ErrKindDatabase, "postgres storage: add rule", err)
		}
		return nil
	})
}

func (s *PostgresStorage) scanRule(row pgx.Row) (*model.TopicRoutingRule, error) {
	var (
		id                                uuid.UUID
		order                             int32
		topicStr                          string
		description                       *string
		versionCondRaw, typeCondRaw       []byte
	)
	if err := row.Scan(&id, &order, &topicStr, &description, &versionCondRaw, &typeCondRaw); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, wrapError(ErrKindDatabase, "postgres storage: scan rule", err)
	}
	topic, err := model.NewTopic(topicStr)
	if err != nil {
		return nil, wrapError(ErrKindSerialization, "postgres storage: stored topic invalid", err)
	}
	var typeCond model.Condition
	if err := json.Unmarshal(typeCondRaw, &typeCond); err != nil {
		return nil, wrapError(ErrKindSerialization, "postgres storage: unmarshal event type condition", err)
	}
	var versionCond *model.Condition
	if len(versionCondRaw) > 0 {
		var c model.Condition
		if err := json.Unmarshal(versionCondRaw, &c); err != nil {
			return nil, wrapError(ErrKindSerialization, "postgres storage: unmarshal event version condition", err)
		}
		versionCond = &c
	}
	return &model.TopicRoutingRule{
		ID:                    id,
		Order:                 order,
		Topic:                 topic,
		Description:           description,
		EventTypeCondition:    typeCond,
		EventVersionCondition: versionCond,
	}, nil
}

func (s *PostgresStorage) GetRule(ctx context.Context, id uuid.UUID) (*model.TopicRoutingRule, error) {
	var rule *model.TopicRoutingRule
	err := s.queryWithMetrics(ctx, "get_rule", func() error {
		row := s.pool.QueryRow(ctx, `
			SELECT id, order_num, topic, description, event_version_condition, event_type_condition
			FROM routing_rules WHERE id = $1`, id)
		r, err := s.scanRule(row)
		rule = r
		return err
	})
	return rule, err
}

func (s *PostgresStorage) GetAllRules(ctx context.Context) ([]model.TopicRoutingRule, error) {
	var rules []model.TopicRoutingRule
	err := s.queryWithMetrics(ctx, "get_all_rules", func() error {
		rows, err := s.pool.Query(ctx, `
			SELECT id, order_num, topic, description, event_version_condition, event_type_condition
			FROM routing_rules ORDER BY order_num ASC`)
		if err != nil {
			return wrapError(ErrKindDatabase, "postgres storage: get all rules", err)
		}
		defer rows.Close()
		for rows.Next() {
			rule, err := s.scanRule(rows)
			if err != nil {
				return err
			}
			if rule != nil {
				rules = append(rules, *rule)
			}
		}
		return rows.Err()
	})
	if rules == nil {
		rules = []model.TopicRoutingRule{}
	}
	return rules, err
}

func (s *PostgresStorage) UpdateRule(ctx context.Context, id uuid.UUID, rule model.TopicRoutingRule) error {
	return s.queryWithMetrics(ctx, "update_rule", func() error {
		typeCond, err := json.Marshal(rule.EventTypeCondition)
		if err != nil {
			return wrapError(ErrKindSerialization, "postgres storage: marshal event type condition", err)
		}
		var versionCond []byte
		if rule.EventVersionCondition != nil {
			versionCond, err = json.Marshal(rule.EventVersionCondition)
			if err != nil {
				return wrapError(ErrKindSerialization, "postgres storage: marshal event version condition", err)
			}
		}
		tag, err := s.pool.Exec(ctx, `
			UPDATE routing_rules SET
				order_num = $2, topic = $3, description = $4,
				event_version_condition = $5, event_type_condition = $6, updated_at = now()
			WHERE id = $1`,
			id, rule.Order, rule.Topic.String(), rule.Description, versionCond, typeCond)
		if err != nil {
			return wrapError(ErrKindDatabase, "postgres storage: update rule", err)
		}
		if tag.RowsAffected() == 0 {
			return NewNotFoundError("postgres storage: rule not found")
		}
		return nil
	})
}

func (s *PostgresStorage) DeleteRule(ctx context.Context, id uuid.UUID) error {
	return s.queryWithMetrics(ctx, "delete_rule", func() error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM routing_rules WHERE id = $1`, id)
		if err != nil {
			return wrapError(ErrKindDatabase, "postgres storage: delete rule", err)
		}
		if tag.RowsAffected() == 0 {
			return NewNotFoundError("postgres storage: rule not found")
		}
		return nil
	})
}

func (s *PostgresStorage) AddTopicValidation(ctx context.Context, v model.TopicValidationConfig) error {
	return s.queryWithMetrics(ctx, "add_topic_validation", func() error {
		schemaJSON, err := json.Marshal(v.Schema)
		if err != nil {
			return wrapError(ErrKindSerialization, "postgres storage: marshal schema", err)
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO topic_validations (id, topic, schema) VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET topic = EXCLUDED.topic, schema = EXCLUDED.schema`,
			v.ID, v.Topic.String(), schemaJSON)
		if err != nil {
			return wrapError(ErrKindDatabase, "postgres storage: add topic validation", err)
		}
		return nil
	})
}

func (s *PostgresStorage) GetAllTopicValidations(ctx context.Context) (map[string][]model.DataSchema, error) {
	out := make(map[string][]model.DataSchema)
	err := s.queryWithMetrics(ctx, "get_all_topic_validations", func() error {
		rows, err := s.pool.Query(ctx, `SELECT topic, schema FROM topic_validations`)
		if err != nil {
			return wrapError(ErrKindDatabase, "postgres storage: get all topic validations", err)
		}
		defer rows.Close()
		for rows.Next() {
			var topic string
			var schemaRaw []byte
			if err := rows.Scan(&topic, &schemaRaw); err != nil {
				return wrapError(ErrKindDatabase, "postgres storage: scan topic validation", err)
			}
			var schema model.DataSchema
			if err := json.Unmarshal(schemaRaw, &schema); err != nil {
				return wrapError(ErrKindSerialization, "postgres storage: unmarshal schema", err)
			}
			out[topic] = append(out[topic], schema)
		}
		return rows.Err()
	})
	return out, err
}

func (s *PostgresStorage) GetValidationsForTopic(ctx context.Context, topic string) ([]model.DataSchema, error) {
	all, err := s.GetAllTopicValidations(ctx)
	if err != nil {
		return nil, err
	}
	return getValidationsForTopic(all, topic), nil
}

func (s *PostgresStorage) DeleteTopicValidation(ctx context.Context, id uuid.UUID) error {
	return s.queryWithMetrics(ctx, "delete_topic_validation", func() error {
		tag, err := s.pool.Exec(ctx, `DELETE FROM topic_validations WHERE id = $1`, id)
		if err != nil {
			return wrapError(ErrKindDatabase, "postgres storage: delete topic validation", err)
		}
		if tag.RowsAffected() == 0 {
			return NewNotFoundError("postgres storage: topic validation not found")
		}
		return nil
	})
}

func (s *PostgresStorage) StoreEvent(ctx context.Context, event model.Event, routingID *uuid.UUID, destinationTopic *string, failureReason *string) error {
	return s.queryWithMetrics(ctx, "store_event", func() error {
		eventData, err := json.Marshal(event.Data)
		if err != nil {
			return wrapError(ErrKindSerialization, "postgres storage: marshal event data", err)
		}
		metadata, err := json.Marshal(event.Metadata)
		if err != nil {
			return wrapError(ErrKindSerialization, "postgres storage: marshal metadata", err)
		}
		var transportMetadata []byte
		if event.TransportMetadata != nil {
			transportMetadata, err = json.Marshal(event.TransportMetadata)
			if err != nil {
				return wrapError(ErrKindSerialization, "postgres storage: marshal transport metadata", err)
			}
		}
		_, err = s.pool.Exec(ctx, `
			INSERT INTO events (id, event_id, event_type, event_version, routing_id, destination_topic, failure_reason, stored_at, event_data, metadata, transport_metadata)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), $8, $9, $10)`,
			uuid.New(), event.ID, event.EventType, event.EventVersion, routingID, destinationTopic, failureReason, eventData, metadata, transportMetadata)
		if err != nil {
			return wrapError(ErrKindDatabase, "postgres storage: store event", err)
		}
		return nil
	})
}

func (s *PostgresStorage) scanStoredEvent(row pgx.Row) (*model.StoredEvent, error) {
	var (
		id, eventID               uuid.UUID
		eventType                 string
		eventVersion              *string
		routingID                 *uuid.UUID
		destinationTopic          *string
		failureReason             *string
		storedAt                  time.Time
		eventDataRaw              []byte
	)
	if err := row.Scan(&id, &eventID, &eventType, &eventVersion, &routingID, &destinationTopic, &failureReason, &storedAt, &eventDataRaw); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, wrapError(ErrKindDatabase, "postgres storage: scan event", err)
	}
	var eventData map[string]interface{}
	if err := json.Unmarshal(eventDataRaw, &eventData); err != nil {
		return nil, wrapError(ErrKindSerialization, "postgres storage: unmarshal event data", err)
	}
	return &model.StoredEvent{
		ID:               id,
		EventID:          eventID,
		EventType:        eventType,
		EventVersion:     eventVersion,
		RoutingID:        routingID,
		DestinationTopic: destinationTopic,
		FailureReason:    failureReason,
		StoredAt:         storedAt,
		EventData:        eventData,
	}, nil
}

const storedEventColumns = `id, event_id, event_type, event_version, routing_id, destination_topic, failure_reason, stored_at, event_data`

func (s *PostgresStorage) GetEvent(ctx context.Context, id uuid.UUID) (*model.StoredEvent, error) {
	var stored *model.StoredEvent
	err := s.queryWithMetrics(ctx, "get_event", func() error {
		row := s.pool.QueryRow(ctx, `SELECT `+storedEventColumns+` FROM events WHERE id = $1`, id)
		e, err := s.scanStoredEvent(row)
		stored = e
		return err
	})
	return stored, err
}

func (s *PostgresStorage) listEvents(ctx context.Context, operation, whereClause string, args []interface{}, limit, offset int) ([]model.StoredEvent, int, error) {
	var events []model.StoredEvent
	var total int
	err := s.queryWithMetrics(ctx, operation, func() error {
		countArgs := append([]interface{}{}, args...)
		if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM events WHERE `+whereClause, countArgs...).Scan(&total); err != nil {
			return wrapError(ErrKindDatabase, "postgres storage: count events", err)
		}
		pageArgs := append(append([]interface{}{}, args...), limit, offset)
		limitIdx := len(args) + 1
		offsetIdx := len(args) + 2
		query := fmt.Sprintf(`SELECT %s FROM events WHERE %s ORDER BY stored_at DESC LIMIT $%d OFFSET $%d`,
			storedEventColumns, whereClause, limitIdx, offsetIdx)
		rows, err := s.pool.Query(ctx, query, pageArgs...)
		if err != nil {
			return wrapError(ErrKindDatabase, "postgres storage: list events", err)
		}
		defer rows.Close()
		for rows.Next() {
			e, err := s.scanStoredEvent(rows)
			if err != nil {
				return err
			}
			if e != nil {
				events = append(events, *e)
			}
		}
		return rows.Err()
	})
	if events == nil {
		events = []model.StoredEvent{}
	}
	return events, total, err
}

func (s *PostgresStorage) GetEventsByType(ctx context.Context, eventType string, limit, offset int) ([]model.StoredEvent, int, error) {
	return s.listEvents(ctx, "get_events_by_type", "event_type = $1", []interface{}{eventType}, limit, offset)
}

func (s *PostgresStorage) GetEventsByRouting(ctx context.Context, routingID uuid.UUID, limit, offset int) ([]model.StoredEvent, int, error) {
	return s.listEvents(ctx, "get_events_by_routing", "routing_id = $1", []interface{}{routingID}, limit, offset)
}

func (s *PostgresStorage) GetSampleEvents(ctx context.Context, limit, offset int) ([]model.StoredEvent, int, error) {
	return s.listEvents(ctx, "get_sample_events", "true", nil, limit, offset)
}

func (s *PostgresStorage) Close() error {
	s.pool.Close()
	return nil
}
