package message

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/handler"
	"github.com/jwalitptl/notify-engine/internal/model"
	messageService "github.com/jwalitptl/notify-engine/internal/service/message"
)

type Handler struct {
	service messageService.MessageServicer
}

func NewHandler(service messageService.MessageServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	messages := r.Group("/messages")
	{
		messages.GET("", h.ListMessages)
		messages.GET("/:id", h.GetMessage)
		messages.POST("/:id/cancel", h.CancelMessage)
		messages.POST("/:id/retry", h.RetryMessage)
		messages.GET("/:id/status", h.RefreshStatus)
	}
}

func (h *Handler) ListMessages(c *gin.Context) {
	status := model.MessageStatus(c.Query("status"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))

	messages, err := h.service.ListMessages(c.Request.Context(), status, limit)
	if err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(messages))
}

func (h *Handler) GetMessage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid message ID"))
		return
	}

	msg, err := h.service.GetMessage(c.Request.Context(), id)
	if err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(msg))
}

func (h *Handler) CancelMessage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid message ID"))
		return
	}

	if err := h.service.CancelMessage(c.Request.Context(), id); err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"cancelled": true}))
}

func (h *Handler) RetryMessage(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid message ID"))
		return
	}

	if err := h.service.RetryMessage(c.Request.Context(), id); err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"requeued": true}))
}

// RefreshStatus asks the carrying provider for current delivery state.
func (h *Handler) RefreshStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid message ID"))
		return
	}

	status, err := h.service.RefreshStatus(c.Request.Context(), id)
	if err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(status))
}
