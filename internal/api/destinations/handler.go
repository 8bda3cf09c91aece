package destinations

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"tourism-app/internal/api/apierr"
	"tourism-app/internal/app/http/middleware"
	"tourism-app/internal/domain/access"
	"tourism-app/internal/domain/destinations"
	"tourism-app/internal/domain/media"
	"tourism-app/internal/infra/logger"
)

type Handler struct {
	db *gorm.DB
}

func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

type destinationRequest struct {
	Name        string           `json:"name" binding:"required"`
	Description string           `json:"description"`
	Location    string           `json:"location"`
	Price       *decimal.Decimal `json:"price"`
	RegionID    *uint            `json:"region_id"`
	CategoryID  *uint            `json:"category_id"`
	IsPublished bool             `json:"is_published"`
}

// input validates req against the catalog tables. It writes the 400 itself.
func (h *Handler) input(c *gin.Context, req destinationRequest) (destinations.Input, bool) {
	in := destinations.Input{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Location:    strings.TrimSpace(req.Location),
		RegionID:    req.RegionID,
		CategoryID:  req.CategoryID,
		IsPublished: req.IsPublished,
	}
	if in.Name == "" {
		apierr.BadRequest(c, "name is required")
		return in, false
	}
	if req.Price != nil {
		if req.Price.IsNegative() {
			apierr.BadRequest(c, "price must not be negative")
			return in, false
		}
		in.Price = req.Price.Round(2)
	}

	db := h.db.WithContext(c.Request.Context())
	if in.RegionID != nil && !exists(db, &destinations.Region{}, *in.RegionID) {
		apierr.BadRequest(c, "unknown region_id")
		return in, false
	}
	if in.CategoryID != nil && !exists(db, &destinations.Category{}, *in.CategoryID) {
		apierr.BadRequest(c, "unknown category_id")
		return in, false
	}
	return in, true
}

func exists(db *gorm.DB, model any, id uint) bool {
	var n int64
	if err := db.Model(model).Where("id = ?", id).Count(&n).Error; err != nil {
		logger.Warn("existence check failed", "error", err)
		return false
	}
	return n > 0
}

// List serves published destinations, newest first.
func (h *Handler) List(c *gin.Context) {
	page, _ := strconv.Atoi(c.Query("page"))
	perPage, _ := strconv.Atoi(c.Query("per_page"))
	providerID, _ := strconv.ParseUint(c.Query("provider_id"), 10, 64)

	out, total, err := destinations.List(c.Request.Context(), h.db, destinations.Filter{
		ProviderID:    uint(providerID),
		RegionSlug:    c.Query("region"),
		CategorySlug:  c.Query("category"),
		PublishedOnly: true,
		Page:          page,
		PerPage:       perPage,
	})
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"destinations": out, "total": total})
}

func (h *Handler) Mine(c *gin.Context) {
	out, total, err := destinations.List(c.Request.Context(), h.db, destinations.Filter{
		ProviderID: middleware.Principal(c).UserID,
		PerPage:    100,
	})
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"destinations": out, "total": total})
}

// Get serves one published destination with its gallery.
func (h *Handler) Get(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	db := h.db.WithContext(c.Request.Context())

	var d destinations.Destination
	if err := db.Preload("Region").Preload("Category").
		Where("id = ? AND is_published = ?", id, true).
		First(&d).Error; err != nil {
		apierr.Write(c, err)
		return
	}
	images, err := media.ListFor(db, media.OwnerRef{Kind: media.OwnerDestination, ID: d.ID})
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"destination": d, "images": images})
}

// Create runs behind the plan capacity guard.
func (h *Handler) Create(c *gin.Context) {
	var req destinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, "name is required")
		return
	}
	in, ok := h.input(c, req)
	if !ok {
		return
	}
	d, err := destinations.Create(c.Request.Context(), h.db, middleware.Principal(c).UserID, in)
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) Update(c *gin.Context) {
	d, ok := h.owned(c)
	if !ok {
		return
	}
	var req destinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, "name is required")
		return
	}
	in, ok := h.input(c, req)
	if !ok {
		return
	}
	if err := destinations.Update(c.Request.Context(), h.db, d, middleware.Principal(c).UserID, in); err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) Publish(c *gin.Context)   { h.setPublished(c, true) }
func (h *Handler) Unpublish(c *gin.Context) { h.setPublished(c, false) }

func (h *Handler) setPublished(c *gin.Context, published bool) {
	d, ok := h.owned(c)
	if !ok {
		return
	}
	if err := destinations.SetPublished(c.Request.Context(), h.db, d, middleware.Principal(c).UserID, published); err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

func (h *Handler) Delete(c *gin.Context) {
	d, ok := h.owned(c)
	if !ok {
		return
	}
	if err := destinations.Delete(c.Request.Context(), h.db, d, middleware.Principal(c).UserID); err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Destination deleted"})
}

// owned loads the destination in the path and checks the caller may
// manage it.
func (h *Handler) owned(c *gin.Context) (*destinations.Destination, bool) {
	id, ok := pathID(c)
	if !ok {
		return nil, false
	}
	var d destinations.Destination
	if err := h.db.WithContext(c.Request.Context()).First(&d, id).Error; err != nil {
		apierr.Write(c, err)
		return nil, false
	}
	if !middleware.Principal(c).CanManage(d.ProviderID) {
		apierr.Write(c, access.ErrNotOwner)
		return nil, false
	}
	return &d, true
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		apierr.BadRequest(c, "Invalid id")
		return 0, false
	}
	return uint(id), true
}
