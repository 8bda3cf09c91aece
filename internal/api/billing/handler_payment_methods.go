package billing

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tourism-app/internal/api/apierr"
	"tourism-app/internal/app/http/middleware"
	"tourism-app/internal/domain/billing"
)

type paymentMethodRequest struct {
	ExternalRef string `json:"external_ref" binding:"required"`
	Type        string `json:"type"`
	Last4       string `json:"last4"`
	Brand       string `json:"brand"`
	IsDefault   bool   `json:"is_default"`
}

func (h *Handler) ListPaymentMethods(c *gin.Context) {
	methods, err := h.manager.ListPaymentMethods(c.Request.Context(), middleware.Principal(c).UserID)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"payment_methods": methods})
}

func (h *Handler) AddPaymentMethod(c *gin.Context) {
	var req paymentMethodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, "external_ref is required")
		return
	}

	kind := billing.PaymentMethodType(strings.ToLower(strings.TrimSpace(req.Type)))
	switch kind {
	case "":
		kind = billing.MethodCard
	case billing.MethodCard, billing.MethodBankAccount:
	default:
		apierr.BadRequest(c, "type must be card or bank_account")
		return
	}
	if !validLast4(req.Last4) {
		apierr.BadRequest(c, "last4 must be four digits")
		return
	}

	pm, err := h.manager.AddPaymentMethod(c.Request.Context(), middleware.Principal(c).UserID, billing.PaymentMethodInput{
		ExternalRef: strings.TrimSpace(req.ExternalRef),
		Type:        kind,
		Last4:       req.Last4,
		Brand:       strings.TrimSpace(req.Brand),
		IsDefault:   req.IsDefault,
	})
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, pm)
}

func (h *Handler) DeletePaymentMethod(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.manager.DeletePaymentMethod(c.Request.Context(), middleware.Principal(c).UserID, id); err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Payment method deleted"})
}

func (h *Handler) SetDefaultPaymentMethod(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	pm, err := h.manager.SetDefaultPaymentMethod(c.Request.Context(), middleware.Principal(c).UserID, id)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, pm)
}

func validLast4(s string) bool {
	if s == "" {
		return true
	}
	if len(s) != 4 {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		apierr.BadRequest(c, "Invalid id")
		return 0, false
	}
	return uint(id), true
}
