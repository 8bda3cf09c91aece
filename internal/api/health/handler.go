package health

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"tourism-app/internal/infra/logger"
	"tourism-app/internal/infra/metrics"
)

type Handler struct {
	ping func() error
}

// NewHandler takes the database probe used by Health.
func NewHandler(ping func() error) *Handler {
	return &Handler{ping: ping}
}

func (h *Handler) Health(c *gin.Context) {
	if err := h.ping(); err != nil {
		logger.Warn("health check failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "database": "down"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "database": "up"})
}

// Metrics serves the application registry in the Prometheus text format.
func Metrics() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
}
