// internal/interfaces/http/handlers/bundle.go
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/bundle"
)

// BundleHandler handles bundle endpoints
type BundleHandler struct {
	bundleService *bundle.Service
	logger        *logrus.Logger
}

// NewBundleHandler creates a new bundle handler
func NewBundleHandler(services *Services, logger *logrus.Logger) *BundleHandler {
	return &BundleHandler{
		bundleService: services.Bundles,
		logger:        logger,
	}
}

// GetBundleConfig handles GET /bundles/:slug
func (h *BundleHandler) GetBundleConfig(c *gin.Context) {
	config, err := h.bundleService.GetConfig(c.Request.Context(), c.Param("slug"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bundle retrieved successfully",
		"data":    config,
	})
}

// ListBundles handles GET /admin/bundles
func (h *BundleHandler) ListBundles(c *gin.Context) {
	bundles, err := h.bundleService.List(c.Request.Context())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bundles retrieved successfully",
		"data":    bundles,
	})
}

// GetBundle handles GET /admin/bundles/:id
func (h *BundleHandler) GetBundle(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	b, err := h.bundleService.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bundle retrieved successfully",
		"data":    b,
	})
}

// CreateBundle handles POST /admin/bundles
func (h *BundleHandler) CreateBundle(c *gin.Context) {
	var req bundle.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	b, err := h.bundleService.Create(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Bundle created successfully",
		"data":    b,
	})
}

// UpdateBundle handles PUT /admin/bundles/:id
func (h *BundleHandler) UpdateBundle(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req bundle.UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalidRequest(c, err)
		return
	}

	b, err := h.bundleService.Update(c.Request.Context(), id, &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bundle updated successfully",
		"data":    b,
	})
}

// DeleteBundle handles DELETE /admin/bundles/:id
func (h *BundleHandler) DeleteBundle(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.bundleService.Delete(c.Request.Context(), id); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Bundle deleted successfully",
	})
}
