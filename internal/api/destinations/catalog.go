package destinations

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tourism-app/internal/api/apierr"
	"tourism-app/internal/domain/destinations"
)

type catalogRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
}

func (h *Handler) ListRegions(c *gin.Context) {
	out := []destinations.Region{}
	if err := h.db.WithContext(c.Request.Context()).Order("name ASC").Find(&out).Error; err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"regions": out})
}

func (h *Handler) ListCategories(c *gin.Context) {
	out := []destinations.Category{}
	if err := h.db.WithContext(c.Request.Context()).Order("name ASC").Find(&out).Error; err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

// CreateRegion is admin only.
func (h *Handler) CreateRegion(c *gin.Context) {
	var req catalogRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		apierr.BadRequest(c, "name is required")
		return
	}
	r := destinations.Region{Name: strings.TrimSpace(req.Name), Description: strings.TrimSpace(req.Description)}
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		slug, err := destinations.UniqueSlug(tx, &destinations.Region{}, r.Name)
		if err != nil {
			return err
		}
		r.Slug = slug
		return tx.Create(&r).Error
	})
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// CreateCategory is admin only.
func (h *Handler) CreateCategory(c *gin.Context) {
	var req catalogRequest
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		apierr.BadRequest(c, "name is required")
		return
	}
	cat := destinations.Category{Name: strings.TrimSpace(req.Name)}
	err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
		slug, err := destinations.UniqueSlug(tx, &destinations.Category{}, cat.Name)
		if err != nil {
			return err
		}
		cat.Slug = slug
		return tx.Create(&cat).Error
	})
	if err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, cat)
}
