package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lightsaway/event-gateway/internal/gateway"
	"github.com/lightsaway/event-gateway/internal/model"
)

type fakeGateway struct {
	handleErr error
	rules     []model.TopicRoutingRule
}

func (g *fakeGateway) Handle(ctx context.Context, event model.Event) error { return g.handleErr }
func (g *fakeGateway) AddRule(ctx context.Context, rule model.TopicRoutingRule) error {
	return nil
}
func (g *fakeGateway) GetRule(ctx context.Context, id uuid.UUID) (*model.TopicRoutingRule, error) {
	return nil, nil
}
func (g *fakeGateway) GetAllRules(ctx context.Context) ([]model.TopicRoutingRule, error) {
	return g.rules, nil
}
func (g *fakeGateway) UpdateRule(ctx context.Context, id uuid.UUID, rule model.TopicRoutingRule) error {
	return nil
}
func (g *fakeGateway) DeleteRule(ctx context.Context, id uuid.UUID) error { return nil }
func (g *fakeGateway) AddTopicValidation(ctx context.Context, v model.TopicValidationConfig) error {
	return nil
}
func (g *fakeGateway) GetAllTopicValidations(ctx context.Context) (map[string][]model.DataSchema, error) {
	return map[string][]model.DataSchema{}, nil
}
func (g *fakeGateway) DeleteTopicValidation(ctx context.Context, id uuid.UUID) error { return nil }

var _ gateway.Handler = (*fakeGateway)(nil)

func newTestRouter(gw gateway.Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	h := NewHandlers(gw)
	engine.GET("/health-check", h.HealthCheck)
	engine.POST("/event", h.PostEvent)
	engine.GET("/routing-rules", h.GetRoutingRules)
	return engine
}

func TestHealthCheck(t *testing.T) {
	engine := newTestRouter(&fakeGateway{})
	req := httptest.NewRequest(http.MethodGet, "/health-check", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestPostEvent_Success(t *testing.T) {
	engine := newTestRouter(&fakeGateway{})
	payload := []byte(`{"id":"` + uuid.New().String() + `","eventType":"order.created","metadata":{},"data":{"type":"string","content":"x"}}`)
	req := httptest.NewRequest(http.MethodPost, "/event", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPostEvent_NoTopicToRoute(t *testing.T) {
	gw := &fakeGateway{handleErr: &gateway.Error{Kind: gateway.ErrNoTopicToRoute}}
	engine := newTestRouter(gw)
	payload := []byte(`{"id":"` + uuid.New().String() + `","eventType":"order.created","metadata":{},"data":{"type":"string","content":"x"}}`)
	req := httptest.NewRequest(http.MethodPost, "/event", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotAcceptable, w.Code)
}

func TestPostEvent_SchemaInvalid(t *testing.T) {
	gw := &fakeGateway{handleErr: &gateway.Error{Kind: gateway.ErrSchemaInvalid}}
	engine := newTestRouter(gw)
	payload := []byte(`{"id":"` + uuid.New().String() + `","eventType":"order.created","metadata":{},"data":{"type":"string","content":"x"}}`)
	req := httptest.NewRequest(http.MethodPost, "/event", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPostEvent_InternalError(t *testing.T) {
	gw := &fakeGateway{handleErr: &gateway.Error{Kind: gateway.ErrInternal}}
	engine := newTestRouter(gw)
	payload := []byte(`{"id":"` + uuid.New().String() + `","eventType":"order.created","metadata":{},"data":{"type":"string","content":"x"}}`)
	req := httptest.NewRequest(http.MethodPost, "/event", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGetRoutingRules(t *testing.T) {
	rule := model.TopicRoutingRule{ID: uuid.New(), Order: 0, Topic: model.MustTopic("orders"), EventTypeCondition: model.AnyCondition()}
	engine := newTestRouter(&fakeGateway{rules: []model.TopicRoutingRule{rule}})
	req := httptest.NewRequest(http.MethodGet, "/routing-rules", nil)
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var rules []model.TopicRoutingRule
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rules))
	require.Len(t, rules, 1)
	assert.Equal(t, "orders", rules[0].Topic.String())
}
