package media

import (
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"tourism-app/internal/api/apierr"
	"tourism-app/internal/app/http/middleware"
	"tourism-app/internal/domain/access"
	"tourism-app/internal/domain/media"
	"tourism-app/internal/infra/logger"
)

const (
	maxImageSize = 5 << 20 // 5MB
	minImageSize = 100
)

// allowedImageTypes maps sniffed MIME types to the stored extension.
var allowedImageTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// Store is where uploaded bytes go.
type Store interface {
	Put(key string, content []byte) error
	Delete(key string) error
}

type Handler struct {
	db    *gorm.DB
	store Store
}

func NewHandler(db *gorm.DB, store Store) *Handler {
	return &Handler{db: db, store: store}
}

type reorderRequest struct {
	IDs []uint `json:"ids" binding:"required"`
}

// Upload returns the handler that adds an image to the gallery of an owner
// of kind, taken from the :id path parameter.
func (h *Handler) Upload(kind media.OwnerKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := h.managedOwner(c, kind)
		if !ok {
			return
		}

		file, header, err := c.Request.FormFile("file")
		if err != nil {
			apierr.BadRequest(c, "file is required")
			return
		}
		defer file.Close()

		if header.Size > maxImageSize {
			apierr.BadRequest(c, "file size exceeds 5MB limit")
			return
		}
		if header.Size < minImageSize {
			apierr.BadRequest(c, "file is too small or empty")
			return
		}
		content, err := io.ReadAll(io.LimitReader(file, maxImageSize+1))
		if err != nil {
			apierr.Write(c, fmt.Errorf("read upload: %w", err))
			return
		}
		if int64(len(content)) > maxImageSize {
			apierr.BadRequest(c, "file size exceeds 5MB limit")
			return
		}

		mimeType := mimetype.Detect(content).String()
		ext, allowed := allowedImageTypes[mimeType]
		if !allowed {
			logger.Warn("rejected upload", "detected_mime", mimeType, "filename", header.Filename)
			apierr.BadRequest(c, "only JPEG, PNG, WEBP and GIF images are allowed")
			return
		}

		key := fmt.Sprintf("%s/%d/%s%s", ref.Kind, ref.ID, uuid.NewString(), ext)
		if err := h.store.Put(key, content); err != nil {
			apierr.Write(c, fmt.Errorf("store upload: %w", err))
			return
		}

		img := media.Image{
			OwnerKind:  ref.Kind,
			OwnerID:    ref.ID,
			UploadedBy: middleware.Principal(c).UserID,
			Path:       key,
			MimeType:   mimeType,
			Size:       int64(len(content)),
		}
		err = h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			return media.Append(tx, &img)
		})
		if err != nil {
			if derr := h.store.Delete(key); derr != nil {
				logger.Warn("orphaned upload", "key", key, "error", derr)
			}
			apierr.Write(c, err)
			return
		}
		c.JSON(http.StatusCreated, img)
	}
}

// List returns the handler serving the gallery of an owner of kind.
func (h *Handler) List(kind media.OwnerKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathID(c)
		if !ok {
			return
		}
		images, err := media.ListFor(h.db.WithContext(c.Request.Context()), media.OwnerRef{Kind: kind, ID: id})
		if err != nil {
			apierr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"images": images})
	}
}

// Reorder returns the handler that rewrites the gallery order of an owner
// of kind.
func (h *Handler) Reorder(kind media.OwnerKind) gin.HandlerFunc {
	return func(c *gin.Context) {
		ref, ok := h.managedOwner(c, kind)
		if !ok {
			return
		}
		var req reorderRequest
		if err := c.ShouldBindJSON(&req); err != nil || len(req.IDs) == 0 {
			apierr.BadRequest(c, "ids required")
			return
		}
		err := h.db.WithContext(c.Request.Context()).Transaction(func(tx *gorm.DB) error {
			return media.Reorder(tx, ref, req.IDs)
		})
		if err != nil {
			apierr.Write(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// Delete removes one image. The file goes after the row; a failed file
// delete leaves an orphan that is only logged.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	db := h.db.WithContext(c.Request.Context())
	p := middleware.Principal(c)

	var img media.Image
	if err := db.First(&img, id).Error; err != nil {
		apierr.Write(c, err)
		return
	}
	owner, err := media.ProviderOf(db, img.Owner())
	if err != nil {
		apierr.Write(c, err)
		return
	}
	if !p.CanManage(owner) {
		apierr.Write(c, access.ErrNotOwner)
		return
	}

	if err := db.Transaction(func(tx *gorm.DB) error { return media.Remove(tx, &img, p.UserID) }); err != nil {
		apierr.Write(c, err)
		return
	}
	if err := h.store.Delete(img.Path); err != nil {
		logger.Warn("image file not removed", "key", img.Path, "error", err)
	}
	c.JSON(http.StatusOK, gin.H{"message": "Image deleted"})
}

func (h *Handler) managedOwner(c *gin.Context, kind media.OwnerKind) (media.OwnerRef, bool) {
	id, ok := pathID(c)
	if !ok {
		return media.OwnerRef{}, false
	}
	ref := media.OwnerRef{Kind: kind, ID: id}
	owner, err := media.ProviderOf(h.db.WithContext(c.Request.Context()), ref)
	if err != nil {
		apierr.Write(c, err)
		return ref, false
	}
	if !middleware.Principal(c).CanManage(owner) {
		apierr.Write(c, access.ErrNotOwner)
		return ref, false
	}
	return ref, true
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		apierr.BadRequest(c, "Invalid id")
		return 0, false
	}
	return uint(id), true
}
