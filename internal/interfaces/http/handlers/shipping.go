// internal/interfaces/http/handlers/shipping.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/shipping"
)

// ShippingHandler handles shipping method endpoints
type ShippingHandler struct {
	shippingService *shipping.Service
	logger          *logrus.Logger
}

// NewShippingHandler creates a new shipping handler
func NewShippingHandler(services *Services, logger *logrus.Logger) *ShippingHandler {
	return &ShippingHandler{
		shippingService: services.Shipping,
		logger:          logger,
	}
}

// GetShippingConfig handles GET /shipping
func (h *ShippingHandler) GetShippingConfig(c *gin.Context) {
	config, err := h.shippingService.GetConfig(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipping configuration retrieved successfully",
		"data":    config,
	})
}

// ListMethods handles GET /admin/shipping-methods
func (h *ShippingHandler) ListMethods(c *gin.Context) {
	methods, err := h.shippingService.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipping methods retrieved successfully",
		"data":    methods,
	})
}

// GetMethod handles GET /admin/shipping-methods/:id
func (h *ShippingHandler) GetMethod(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	method, err := h.shippingService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipping method retrieved successfully",
		"data":    method,
	})
}

// CreateMethod handles POST /admin/shipping-methods
func (h *ShippingHandler) CreateMethod(c *gin.Context) {
	var req shipping.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	method, err := h.shippingService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Shipping method created successfully",
		"data":    method,
	})
}

// UpdateMethod handles PUT /admin/shipping-methods/:id
func (h *ShippingHandler) UpdateMethod(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req shipping.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	method, err := h.shippingService.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipping method updated successfully",
		"data":    method,
	})
}

// DeleteMethod handles DELETE /admin/shipping-methods/:id
func (h *ShippingHandler) DeleteMethod(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.shippingService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipping method deleted successfully",
	})
}
