// internal/interfaces/http/handlers/invoice.go
package handlers

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/pkg/pdf"
)

// InvoiceHandler handles invoice-related endpoints
type InvoiceHandler struct {
	orderService *order.Service
	pdfService   *pdf.Service
	logger       *logrus.Logger
}

// NewInvoiceHandler creates a new invoice handler
func NewInvoiceHandler(services *Services, logger *logrus.Logger) *InvoiceHandler {
	return &InvoiceHandler{
		orderService: services.Orders,
		pdfService:   services.PDF,
		logger:       logger,
	}
}

// GenerateInvoice handles GET /orders/:id/invoice
func (h *InvoiceHandler) GenerateInvoice(c *gin.Context) {
	o, ok := h.userOrder(c)
	if !ok {
		return
	}

	pdfBuffer, err := h.pdfService.GenerateInvoice(o)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	// Set headers for PDF download
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=invoice-%s.pdf", o.OrderNumber))
	c.Header("Content-Length", strconv.Itoa(pdfBuffer.Len()))

	c.Data(http.StatusOK, "application/pdf", pdfBuffer.Bytes())
}

// PreviewInvoice handles GET /orders/:id/invoice/preview, the HTML the PDF is rendered from
func (h *InvoiceHandler) PreviewInvoice(c *gin.Context) {
	o, ok := h.userOrder(c)
	if !ok {
		return
	}

	html, err := h.pdfService.RenderInvoiceHTML(o)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.Data(http.StatusOK, "text/html; charset=utf-8", html)
}

// userOrder loads the order from the path, restricted to the signed-in user
func (h *InvoiceHandler) userOrder(c *gin.Context) (*order.Order, bool) {
	userID, ok := requireUser(c)
	if !ok {
		return nil, false
	}
	orderID, ok := parseID(c, "id")
	if !ok {
		return nil, false
	}

	o, err := h.orderService.GetUserOrder(c.Request.Context(), orderID, userID)
	if err != nil {
		respondError(c, h.logger, err)
		return nil, false
	}
	return o, true
}
