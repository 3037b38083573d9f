// internal/interfaces/http/handlers/response.go
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/bundle"
	"github.com/your-org/storefront/internal/domain/cart"
	"github.com/your-org/storefront/internal/domain/catalog"
	"github.com/your-org/storefront/internal/domain/checkout"
	"github.com/your-org/storefront/internal/domain/coupon"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/shipping"
	"github.com/your-org/storefront/internal/domain/user"
	"github.com/your-org/storefront/internal/interfaces/http/middleware"
)

// errorStatus maps domain errors to HTTP status codes
func errorStatus(err error) int {
	switch {
	case errors.Is(err, bundle.ErrBundleNotFound),
		errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, catalog.ErrVariantNotFound),
		errors.Is(err, cart.ErrItemNotFound),
		errors.Is(err, coupon.ErrCouponNotFound),
		errors.Is(err, shipping.ErrMethodNotFound),
		errors.Is(err, order.ErrOrderNotFound),
		errors.Is(err, user.ErrUserNotFound):
		return http.StatusNotFound

	case errors.Is(err, bundle.ErrDuplicateSlug),
		errors.Is(err, bundle.ErrBundleOverlap),
		errors.Is(err, catalog.ErrDuplicateSKU),
		errors.Is(err, catalog.ErrDuplicateSlug),
		errors.Is(err, catalog.ErrBundleOverlap),
		errors.Is(err, coupon.ErrDuplicateCode),
		errors.Is(err, user.ErrEmailTaken),
		errors.Is(err, order.ErrCheckoutChanged),
		errors.Is(err, order.ErrInsufficientInventory),
		errors.Is(err, order.ErrInvalidTransition),
		errors.Is(err, order.ErrCannotCancel):
		return http.StatusConflict

	case coupon.IsRejection(err),
		errors.Is(err, cart.ErrInsufficientInventory),
		errors.Is(err, cart.ErrProductUnavailable),
		errors.Is(err, checkout.ErrEmptyCart),
		errors.Is(err, checkout.ErrShippingMethodUnavailable),
		errors.Is(err, order.ErrEmptyCart),
		errors.Is(err, order.ErrNoShippingMethod):
		return http.StatusUnprocessableEntity

	case errors.Is(err, bundle.ErrInvalidBundle),
		errors.Is(err, coupon.ErrInvalidCoupon),
		errors.Is(err, shipping.ErrInvalidMethod),
		errors.Is(err, cart.ErrInvalidQuantity),
		errors.Is(err, cart.ErrInvalidLineID),
		errors.Is(err, cart.ErrSessionRequired),
		errors.Is(err, user.ErrUnknownReferralCode):
		return http.StatusBadRequest

	case errors.Is(err, user.ErrInvalidCredentials):
		return http.StatusUnauthorized
	}
	return http.StatusInternalServerError
}

// respondError writes the error response for err. Unexpected errors are
// logged and hidden from the client.
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.WithFields(logrus.Fields{
			"request_id": middleware.GetRequestID(c),
			"path":       c.FullPath(),
		}).WithError(err).Error("Request failed")

		c.JSON(status, gin.H{
			"error": "Internal server error",
		})
		return
	}

	c.JSON(status, gin.H{
		"error": err.Error(),
	})
}

func respondInvalidRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{
		"error":   "Invalid request data",
		"details": err.Error(),
	})
}

// parseID reads a numeric path parameter
func parseID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + name,
		})
		return 0, false
	}
	return uint(id), true
}

// requireUser returns the authenticated user's ID
func requireUser(c *gin.Context) (uint, bool) {
	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{
			"error": "User not authenticated",
		})
	}
	return userID, ok
}

// ownerFromContext resolves the cart owner: the signed-in user, otherwise
// the guest session
func ownerFromContext(c *gin.Context) cart.Owner {
	if userID, ok := middleware.GetUserIDFromContext(c); ok {
		return cart.UserOwner(userID)
	}
	return cart.GuestOwner(middleware.GetSessionID(c))
}
