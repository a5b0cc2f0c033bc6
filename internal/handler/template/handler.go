package template

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/handler"
	"github.com/jwalitptl/notify-engine/internal/model"
	templateService "github.com/jwalitptl/notify-engine/internal/service/template"
)

type Handler struct {
	service templateService.TemplateServicer
}

func NewHandler(service templateService.TemplateServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	templates := r.Group("/templates")
	{
		templates.POST("", h.CreateTemplate)
		templates.GET("", h.ListTemplates)
		templates.GET("/:id", h.GetTemplate)
		templates.PUT("/:id", h.UpdateTemplate)
		templates.DELETE("/:id", h.DeleteTemplate)
	}
}

type templateRequest struct {
	Name    string `json:"name" binding:"required"`
	Channel string `json:"channel" binding:"required,channel"`
	Subject string `json:"subject"`
	Body    string `json:"body" binding:"required"`
}

func (h *Handler) CreateTemplate(c *gin.Context) {
	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tpl := &model.MessageTemplate{
		Name:    req.Name,
		Channel: model.Channel(req.Channel),
		Subject: req.Subject,
		Body:    req.Body,
	}
	if err := h.service.CreateTemplate(c.Request.Context(), tpl); err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(tpl))
}

func (h *Handler) GetTemplate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid template ID"))
		return
	}

	tpl, err := h.service.GetTemplate(c.Request.Context(), id)
	if err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(tpl))
}

func (h *Handler) ListTemplates(c *gin.Context) {
	templates, err := h.service.ListTemplates(c.Request.Context())
	if err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(templates))
}

func (h *Handler) UpdateTemplate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid template ID"))
		return
	}

	var req templateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	tpl := &model.MessageTemplate{
		ID:      id,
		Name:    req.Name,
		Channel: model.Channel(req.Channel),
		Subject: req.Subject,
		Body:    req.Body,
	}
	if err := h.service.UpdateTemplate(c.Request.Context(), tpl); err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(tpl))
}

func (h *Handler) DeleteTemplate(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid template ID"))
		return
	}

	if err := h.service.DeleteTemplate(c.Request.Context(), id); err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}
