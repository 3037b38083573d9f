// internal/interfaces/http/handlers/checkout.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/checkout"
)

// CheckoutHandler handles checkout session endpoints
type CheckoutHandler struct {
	checkoutService *checkout.Service
	logger          *logrus.Logger
}

// NewCheckoutHandler creates a new checkout handler
func NewCheckoutHandler(services *Services, logger *logrus.Logger) *CheckoutHandler {
	return &CheckoutHandler{
		checkoutService: services.Checkout,
		logger:          logger,
	}
}

// GetSummary handles GET /checkout/summary
func (h *CheckoutHandler) GetSummary(c *gin.Context) {
	summary, err := h.checkoutService.Summary(c.Request.Context(), ownerFromContext(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Checkout summary retrieved successfully",
		"data":    summary,
	})
}

// ApplyCoupon handles POST /checkout/coupon
func (h *CheckoutHandler) ApplyCoupon(c *gin.Context) {
	var req checkout.ApplyCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	summary, err := h.checkoutService.ApplyCoupon(c.Request.Context(), ownerFromContext(c), req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon applied successfully",
		"data":    summary,
	})
}

// RemoveCoupon handles DELETE /checkout/coupon
func (h *CheckoutHandler) RemoveCoupon(c *gin.Context) {
	summary, err := h.checkoutService.RemoveCoupon(c.Request.Context(), ownerFromContext(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Coupon removed successfully",
		"data":    summary,
	})
}

// SelectShipping handles PUT /checkout/shipping
func (h *CheckoutHandler) SelectShipping(c *gin.Context) {
	var req checkout.SelectShippingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	summary, err := h.checkoutService.SelectShipping(c.Request.Context(), ownerFromContext(c), req.ShippingMethodID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Shipping method selected successfully",
		"data":    summary,
	})
}
