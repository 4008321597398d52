package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lightsaway/event-gateway/internal/gateway"
	"github.com/lightsaway/event-gateway/internal/logger"
	"github.com/lightsaway/event-gateway/internal/model"
	"github.com/lightsaway/event-gateway/internal/storage"
)

// Handlers binds gin routes to the gateway core.
type Handlers struct {
	gw gateway.Handler
}

func NewHandlers(gw gateway.Handler) *Handlers {
	return &Handlers{gw: gw}
}

func (h *Handlers) HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// PostEvent ingests one event, attaching transport metadata gathered by
// transportMetadataMiddleware, and maps the gateway's outcome to a status
// code per the error taxonomy in the error handling design.
func (h *Handlers) PostEvent(c *gin.Context) {
	var event model.Event
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "schema validation failed"})
		return
	}

	if meta, ok := c.Get("transport_metadata"); ok {
		if m, ok := meta.(map[string]string); ok {
			event.TransportMetadata = m
		}
	}

	err := h.gw.Handle(c.Request.Context(), event)
	if err == nil {
		c.JSON(http.StatusOK, gin.H{"status": "success"})
		return
	}

	var gwErr *gateway.Error
	if !errors.As(err, &gwErr) {
		logger.WithRequestID(c).WithError(err).Error("event handling: unexpected error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	switch gwErr.Kind {
	case gateway.ErrSchemaInvalid:
		c.JSON(http.StatusBadRequest, gin.H{"error": "schema validation failed"})
	case gateway.ErrNoTopicToRoute:
		c.JSON(http.StatusNotAcceptable, gin.H{"error": "no destination found"})
	default:
		logger.WithRequestID(c).WithError(gwErr).Error("event handling: internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func (h *Handlers) GetRoutingRules(c *gin.Context) {
	rules, err := h.gw.GetAllRules(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, rules)
}

type routingRuleBody struct {
	Order                 int32            `json:"order"`
	Topic                 model.Topic      `json:"topic"`
	EventTypeCondition    model.Condition  `json:"eventTypeCondition"`
	EventVersionCondition *model.Condition `json:"eventVersionCondition,omitempty"`
	Description           *string          `json:"description,omitempty"`
}

func (h *Handlers) PostRoutingRule(c *gin.Context) {
	var body routingRuleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule := model.TopicRoutingRule{
		ID:                    uuid.New(),
		Order:                 body.Order,
		Topic:                 body.Topic,
		EventTypeCondition:    body.EventTypeCondition,
		EventVersionCondition: body.EventVersionCondition,
		Description:           body.Description,
	}

	if err := h.gw.AddRule(c.Request.Context(), rule); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) PutRoutingRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}

	var body routingRuleBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rule := model.TopicRoutingRule{
		ID:                    id,
		Order:                 body.Order,
		Topic:                 body.Topic,
		EventTypeCondition:    body.EventTypeCondition,
		EventVersionCondition: body.EventVersionCondition,
		Description:           body.Description,
	}

	if err := h.gw.UpdateRule(c.Request.Context(), id, rule); err != nil {
		h.respondStorageError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) DeleteRoutingRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.gw.DeleteRule(c.Request.Context(), id); err != nil {
		h.respondStorageError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) GetTopicValidations(c *gin.Context) {
	all, err := h.gw.GetAllTopicValidations(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, all)
}

type topicValidationBody struct {
	Topic  model.Topic      `json:"topic"`
	Schema model.DataSchema `json:"schema"`
}

func (h *Handlers) PostTopicValidation(c *gin.Context) {
	var body topicValidationBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	cfg := model.TopicValidationConfig{
		ID:     uuid.New(),
		Topic:  body.Topic,
		Schema: body.Schema,
	}

	if err := h.gw.AddTopicValidation(c.Request.Context(), cfg); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handlers) DeleteTopicValidation(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	if err := h.gw.DeleteTopicValidation(c.Request.Context(), id); err != nil {
		h.respondStorageError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// respondStorageError maps a NotFound storage error to 404; everything
// else is a 500. This is the current, documented behavior - see the
// storage NotFound open question recorded in the design notes.
func (h *Handlers) respondStorageError(c *gin.Context, err error) {
	if storage.IsNotFound(err) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}
