package trigger

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/notify-engine/internal/handler"
	"github.com/jwalitptl/notify-engine/internal/model"
)

// Dispatcher is the ingress contract for firing domain events.
type Dispatcher interface {
	Fire(ctx context.Context, event model.TriggerEvent, payload map[string]interface{}) (int, error)
}

type Handler struct {
	dispatcher Dispatcher
}

func NewHandler(dispatcher Dispatcher) *Handler {
	return &Handler{dispatcher: dispatcher}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	triggers := r.Group("/triggers")
	{
		triggers.POST("/fire", h.FireEvent)
		triggers.GET("/events", h.ListEvents)
	}
}

type fireRequest struct {
	Event   string                 `json:"event" binding:"required,trigger_event"`
	Payload map[string]interface{} `json:"payload"`
}

// FireEvent takes one domain event and fans it out to every matching
// workflow. The response reports how many messages were enqueued; zero
// is a normal outcome, not an error.
func (h *Handler) FireEvent(c *gin.Context) {
	var req fireRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	enqueued, err := h.dispatcher.Fire(c.Request.Context(), model.TriggerEvent(req.Event), req.Payload)
	if err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusAccepted, handler.NewSuccessResponse(gin.H{"enqueued": enqueued}))
}

// ListEvents returns the trigger events workflows may bind to.
func (h *Handler) ListEvents(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.TriggerEvents))
}
