package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/notify-engine/internal/handler"
	"github.com/jwalitptl/notify-engine/internal/model"
	gatewayService "github.com/jwalitptl/notify-engine/internal/service/gateway"
)

type Handler struct {
	service gatewayService.GatewayServicer
}

func NewHandler(service gatewayService.GatewayServicer) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	gateways := r.Group("/gateways")
	{
		gateways.POST("", h.CreateGateway)
		gateways.GET("", h.ListGateways)
		gateways.GET("/providers", h.ListProviders)
		gateways.GET("/:id", h.GetGateway)
		gateways.PUT("/:id", h.UpdateGateway)
		gateways.DELETE("/:id", h.DeleteGateway)
		gateways.POST("/:id/test", h.TestGateway)
		gateways.GET("/:id/balance", h.GetBalance)
	}
}

type gatewayRequest struct {
	Name       string            `json:"name" binding:"required"`
	Channel    string            `json:"channel" binding:"required,channel"`
	Provider   string            `json:"provider" binding:"required"`
	Config     map[string]string `json:"config" binding:"required"`
	Priority   int               `json:"priority"`
	DailyLimit int               `json:"daily_limit" binding:"min=0"`
	IsActive   *bool             `json:"is_active"`
}

func (r *gatewayRequest) toModel() *model.Gateway {
	g := &model.Gateway{
		Name:       r.Name,
		Channel:    model.Channel(r.Channel),
		Provider:   r.Provider,
		Config:     model.GatewayConfig(r.Config),
		Priority:   r.Priority,
		DailyLimit: r.DailyLimit,
		IsActive:   true,
	}
	if r.IsActive != nil {
		g.IsActive = *r.IsActive
	}
	return g
}

func (h *Handler) CreateGateway(c *gin.Context) {
	var req gatewayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	gateway := req.toModel()
	if err := h.service.CreateGateway(c.Request.Context(), gateway); err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(gateway))
}

func (h *Handler) GetGateway(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid gateway ID"))
		return
	}

	gateway, err := h.service.GetGateway(c.Request.Context(), id)
	if err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gateway))
}

func (h *Handler) ListGateways(c *gin.Context) {
	gateways, err := h.service.ListGateways(c.Request.Context())
	if err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gateways))
}

// ListProviders exposes the supported provider catalogue so clients can
// render configuration forms without hardcoding key names.
func (h *Handler) ListProviders(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(h.service.Providers()))
}

func (h *Handler) UpdateGateway(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid gateway ID"))
		return
	}

	var req gatewayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	gateway := req.toModel()
	gateway.ID = id
	if err := h.service.UpdateGateway(c.Request.Context(), gateway); err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gateway))
}

func (h *Handler) DeleteGateway(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid gateway ID"))
		return
	}

	if err := h.service.DeleteGateway(c.Request.Context(), id); err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

// TestGateway probes the provider with the stored credentials without
// sending a message.
func (h *Handler) TestGateway(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid gateway ID"))
		return
	}

	if err := h.service.TestConnection(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusBadGateway, handler.NewErrorResponse(err.Error()))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{"reachable": true}))
}

func (h *Handler) GetBalance(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid gateway ID"))
		return
	}

	amount, currency, err := h.service.Balance(c.Request.Context(), id)
	if err != nil {
		c.JSON(handler.ErrorBody(err))
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(gin.H{
		"balance":  amount,
		"currency": currency,
	}))
}
