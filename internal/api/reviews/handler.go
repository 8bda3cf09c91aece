package reviews

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"tourism-app/internal/api/apierr"
	"tourism-app/internal/app/http/middleware"
	"tourism-app/internal/domain/destinations"
	"tourism-app/internal/domain/reviews"
	"tourism-app/internal/domain/users"
	"tourism-app/internal/infra/logger"
	"tourism-app/internal/infra/notify"
)

type Handler struct {
	db       *gorm.DB
	notifier notify.Notifier
	now      func() time.Time
}

func NewHandler(db *gorm.DB, notifier notify.Notifier) *Handler {
	return &Handler{db: db, notifier: notifier, now: time.Now}
}

type reviewRequest struct {
	Rating  int    `json:"rating" binding:"required"`
	Comment string `json:"comment"`
}

type moderationRequest struct {
	Reason string `json:"reason"`
}

// Create stores a pending review of a published destination.
func (h *Handler) Create(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req reviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierr.BadRequest(c, "rating is required")
		return
	}

	ctx := c.Request.Context()
	var d destinations.Destination
	if err := h.db.WithContext(ctx).Where("id = ? AND is_published = ?", id, true).First(&d).Error; err != nil {
		apierr.Write(c, err)
		return
	}

	r := reviews.Review{
		DestinationID: d.ID,
		UserID:        middleware.Principal(c).UserID,
		Rating:        req.Rating,
		Comment:       strings.TrimSpace(req.Comment),
	}
	if err := reviews.Create(ctx, h.db, &r); err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

// ListApproved serves the published reviews of a destination with their
// average rating.
func (h *Handler) ListApproved(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	db := h.db.WithContext(c.Request.Context())

	out := []reviews.Review{}
	if err := db.Where("destination_id = ? AND status = ?", id, reviews.StatusApproved).
		Order("created_at DESC").Find(&out).Error; err != nil {
		apierr.Write(c, err)
		return
	}
	var sum int
	for _, r := range out {
		sum += r.Rating
	}
	avg := 0.0
	if len(out) > 0 {
		avg = float64(sum) / float64(len(out))
	}
	c.JSON(http.StatusOK, gin.H{"reviews": out, "average_rating": avg, "count": len(out)})
}

// ListForModeration is the admin queue; status defaults to pending.
func (h *Handler) ListForModeration(c *gin.Context) {
	status := reviews.Status(c.DefaultQuery("status", string(reviews.StatusPending)))
	out := []reviews.Review{}
	if err := h.db.WithContext(c.Request.Context()).Where("status = ?", status).
		Order("created_at ASC").Find(&out).Error; err != nil {
		apierr.Write(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": out})
}

func (h *Handler) Approve(c *gin.Context) { h.moderate(c, true) }
func (h *Handler) Reject(c *gin.Context)  { h.moderate(c, false) }

func (h *Handler) moderate(c *gin.Context, approve bool) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req moderationRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierr.BadRequest(c, "Invalid request body")
			return
		}
	}
	reason := strings.TrimSpace(req.Reason)
	if !approve && reason == "" {
		apierr.BadRequest(c, "reason is required when rejecting")
		return
	}

	ctx := c.Request.Context()
	r, err := reviews.Moderate(ctx, h.db, id, middleware.Principal(c).UserID, approve, reason, h.now())
	if err != nil {
		apierr.Write(c, err)
		return
	}
	h.notifyAuthor(h.db.WithContext(ctx), r)
	c.JSON(http.StatusOK, r)
}

// notifyAuthor is best effort; the moderation already committed.
func (h *Handler) notifyAuthor(db *gorm.DB, r *reviews.Review) {
	author, err := users.FindByID(db, r.UserID)
	if err != nil {
		logger.Warn("review author not found", "review_id", r.ID, "error", err)
		return
	}
	var d destinations.Destination
	name := ""
	if err := db.Unscoped().Select("id", "name").First(&d, r.DestinationID).Error; err == nil {
		name = d.Name
	}

	kind := notify.KindReviewApproved
	if r.Status == reviews.StatusRejected {
		kind = notify.KindReviewRejected
	}
	h.notifier.Notify(notify.Message{
		Kind:   kind,
		UserID: author.ID,
		To:     author.Email,
		Name:   author.FullName(),
		Data:   map[string]string{"destination": name, "reason": r.RejectionReason},
	})
}

func pathID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		apierr.BadRequest(c, "Invalid id")
		return 0, false
	}
	return uint(id), true
}
