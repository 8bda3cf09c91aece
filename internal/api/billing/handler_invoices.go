package billing

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tourism-app/internal/api/apierr"
	"tourism-app/internal/app/http/middleware"
	"tourism-app/internal/domain/billing"
)

func (h *Handler) ListInvoices(c *gin.Context) {
	invoices, err := billing.ListInvoices(h.db.WithContext(c.Request.Context()), billing.InvoiceFilter{
		UserID: middleware.Principal(c).UserID,
		Status: billing.InvoiceStatus(c.Query("status")),
	})
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}
