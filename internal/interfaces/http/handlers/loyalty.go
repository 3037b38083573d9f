// internal/interfaces/http/handlers/loyalty.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/loyalty"
)

const defaultHistoryLimit = 20

// LoyaltyHandler handles loyalty point endpoints
type LoyaltyHandler struct {
	loyaltyService *loyalty.Service
	logger         *logrus.Logger
}

// NewLoyaltyHandler creates a new loyalty handler
func NewLoyaltyHandler(services *Services, logger *logrus.Logger) *LoyaltyHandler {
	return &LoyaltyHandler{
		loyaltyService: services.Loyalty,
		logger:         logger,
	}
}

// GetLoyalty handles GET /loyalty: the point balance and the latest transactions
func (h *LoyaltyHandler) GetLoyalty(c *gin.Context) {
	userID, ok := requireUser(c)
	if !ok {
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultHistoryLimit)))
	if err != nil || limit < 1 || limit > 100 {
		limit = defaultHistoryLimit
	}

	account, err := h.loyaltyService.Balance(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	history, err := h.loyaltyService.History(c.Request.Context(), userID, limit)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Loyalty points retrieved successfully",
		"data": gin.H{
			"account":      account,
			"transactions": history,
		},
	})
}
