package promotions

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tourism-app/internal/api/apierr"
	"tourism-app/internal/app/http/middleware"
	"tourism-app/internal/domain/access"
	"tourism-app/internal/domain/destinations"
	"tourism-app/internal/domain/promotions"
)

type Handler struct {
	db  *gorm.DB
	now func() time.Time
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db, now: time.Now}
}

func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

type promotionRequest struct {
	DestinationID   *uint           `json:"destination_id"`
	Title           string          `json:"title" binding:"required"`
	Description     string          `json:"description"`
	DiscountPercent decimal.Decimal `json:"discount_percent"`
	StartDate       *time.Time      `json:"start_date"`
	EndDate         *time.Time      `json:"end_date"`
	IsActive        *bool           `json:"is_active"`
}

// input turns req into a domain input. A missing start date means now; a
// linked destination must belong to the caller.
func (h *Handler) input(c *gin.Context, req promotionRequest) (promotions.Input, bool) {
	in := promotions.Input{
		DestinationID:   req.DestinationID,
		Title:           strings.TrimSpace(req.Title),
		Description:     strings.TrimSpace(req.Description),
		DiscountPercent: req.DiscountPercent,
		EndDate:         req.EndDate,
		IsActive:        true,
	}
	if in.Title == "" {
		apierr.BadRequest(c, "title is required")
		return in, false
	}
	in.StartDate = h.now().UTC()
	if req.StartDate != nil {
		in.StartDate = *req.StartDate
	}
	if req.IsActive != nil {
		in.IsActive = *req.IsActive
	}

	if in.DestinationID != nil {
		var d destinations.Destination
		if err := h.db.WithContext(c.Request.Context()).Select("id", "provider_id").First(&d, *in.DestinationID).Error; err != nil {
			apierr.BadRequest(c, "unknown destination_id")
			return in, false
		}
		if !middleware.Principal(c).CanManage(d.ProviderID) {
			apierr.Write(c, access.ErrNotOwner)
			return in, false
		}
	}
	return in, true
}

// ListRunning serves the promotions currently on offer.
func (h *Handler) ListRunning(c *gin.Context) {
	destinationID, _ := strconv.ParseUint(c.Query("destination_id"), 10, 64)
	out, err := promotions.ListRunning(c.Request.Context(), h.db, h.now(), uint(destinationID))
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"promotions": out})
}

func (h *Handler) Mine(c *gin.Context) {
	out, err := promotions.ListOwned(c.Request.Context(), h.db, middleware.Principal(c).UserID)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"promotions": out})
}

// Create runs behind the plan capacity guard.
func (h *Handler) Create(c *gin.Context) {
	var req promotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, "title and discount_percent are required")
		return
	}
	in, ok := h.input(c, req)
	if !ok {
		return
	}
	p, err := promotions.Create(c.Request.Context(), h.db, middleware.Principal(c).UserID, in)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *Handler) Update(c *gin.Context) {
	p, ok := h.owned(c)
	if !ok {
		return
	}
	var req promotionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, "title and discount_percent are required")
		return
	}
	if req.StartDate == nil {
		req.StartDate = &p.StartDate
	}
	in, ok := h.input(c, req)
	if !ok {
		return
	}
	if err := promotions.Update(c.Request.Context(), h.db, p, middleware.Principal(c).UserID, in); err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c *gin.Context) {
	p, ok := h.owned(c)
	if !ok {
		return
	}
	if err := promotions.Delete(c.Request.Context(), h.db, p, middleware.Principal(c).UserID); err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Promotion deleted"})
}

func (h *Handler) owned(c *gin.Context) (*promotions.Promotion, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		apierr.BadRequest(c, "Invalid id")
		return nil, false
	}
	var p promotions.Promotion
	if err := h.db.WithContext(c.Request.Context()).First(&p, id).Error; err != nil {
		apierr.Write(c, err)
		return nil, false
	}
	if !middleware.Principal(c).CanManage(p.ProviderID) {
		apierr.Write(c, access.ErrNotOwner)
		return nil, false
	}
	return &p, true
}
