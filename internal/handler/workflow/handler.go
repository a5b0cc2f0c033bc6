package workflow

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/handler"
	"github.com/jwalitptl/notify-engine/internal/model"
	workflowService "github.com/jwalitptl/notify-engine/internal/service/workflow"
)

type Handler struct {
	service workflowService.WorkflowServicer
}

func NewHandler(service workflowService.WorkflowServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	workflows := r.Group("/workflows")
	{
		workflows.POST("", h.CreateWorkflow)
		workflows.GET("", h.ListWorkflows)
		workflows.GET("/:id", h.GetWorkflow)
		workflows.PUT("/:id", h.UpdateWorkflow)
		workflows.DELETE("/:id", h.DeleteWorkflow)
		workflows.POST("/:id/activate", h.ActivateWorkflow)
		workflows.POST("/:id/deactivate", h.DeactivateWorkflow)
	}
}

type conditionRequest struct {
	Field    string `json:"field" binding:"required"`
	Operator string `json:"operator" binding:"required,oneof=eq ne in"`
	Value    string `json:"value"`
}

type workflowRequest struct {
	Name              string             `json:"name" binding:"required"`
	TriggerEvent      string             `json:"trigger_event" binding:"required,trigger_event"`
	Channel           string             `json:"channel" binding:"required,channel"`
	TemplateID        string             `json:"template_id" binding:"required,uuid"`
	GatewayID         string             `json:"gateway_id" binding:"omitempty,uuid"`
	ScheduleType      string             `json:"schedule_type" binding:"required,oneof=immediate delay distinct_time"`
	DelayMinutes      int                `json:"delay_minutes"`
	ScheduleOffset    int                `json:"schedule_offset"`
	ScheduleUnit      string             `json:"schedule_unit" binding:"omitempty,oneof=minutes hours days"`
	ScheduleReference string             `json:"schedule_reference"`
	Conditions        []conditionRequest `json:"conditions" binding:"dive"`
	IsActive          *bool              `json:"is_active"`
}

func (r *workflowRequest) toModel() (*model.Workflow, error) {
	templateID, err := uuid.Parse(r.TemplateID)
	if err != nil {
		return nil, err
	}

	w := &model.Workflow{
		Name:              r.Name,
		TriggerEvent:      model.TriggerEvent(r.TriggerEvent),
		Channel:           model.Channel(r.Channel),
		TemplateID:        templateID,
		ScheduleType:      model.ScheduleType(r.ScheduleType),
		DelayMinutes:      r.DelayMinutes,
		ScheduleOffset:    r.ScheduleOffset,
		ScheduleUnit:      model.ScheduleUnit(r.ScheduleUnit),
		ScheduleReference: r.ScheduleReference,
		IsActive:          true,
	}
	if r.GatewayID != "" {
		gatewayID, err := uuid.Parse(r.GatewayID)
		if err != nil {
			return nil, err
		}
		w.GatewayID = &gatewayID
	}
	if r.IsActive != nil {
		w.IsActive = *r.IsActive
	}
	for _, c := range r.Conditions {
		w.Conditions = append(w.Conditions, model.Condition{
			Field:    c.Field,
			Operator: model.ConditionOperator(c.Operator),
			Value:    c.Value,
		})
	}
	return w, nil
}

func (h *Handler) CreateWorkflow(c *gin.Context) {
	var req workflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	workflow, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid identifier"))
		return
	}

	if err := h.service.CreateWorkflow(c.Request.Context(), workflow); err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(workflow))
}

func (h *Handler) GetWorkflow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid workflow ID"))
		return
	}

	workflow, err := h.service.GetWorkflow(c.Request.Context(), id)
	if err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(workflow))
}

func (h *Handler) ListWorkflows(c *gin.Context) {
	workflows, err := h.service.ListWorkflows(c.Request.Context())
	if err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(workflows))
}

func (h *Handler) UpdateWorkflow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid workflow ID"))
		return
	}

	var req workflowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	workflow, err := req.toModel()
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid identifier"))
		return
	}
	workflow.ID = id

	if err := h.service.UpdateWorkflow(c.Request.Context(), workflow); err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(workflow))
}

func (h *Handler) DeleteWorkflow(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid workflow ID"))
		return
	}

	if err := h.service.DeleteWorkflow(c.Request.Context(), id); err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) ActivateWorkflow(c *gin.Context) {
	h.setActive(c, true)
}

func (h *Handler) DeactivateWorkflow(c *gin.Context) {
	h.setActive(c, false)
}

func (h *Handler) setActive(c *gin.Context, active bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid workflow ID"))
		return
	}

	if err := h.service.SetActive(c.Request.Context(), id, active); err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"is_active": active}))
}
