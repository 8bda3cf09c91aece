package stripewebhooks

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/stripe/stripe-go/v75/webhook"

	"tourism-app/internal/infra/logger"
	stripeinfra "tourism-app/internal/infra/stripe"
)

const maxBodyBytes = 65536

type Handler struct {
	processor *Processor
	secret    string
}

func NewHandler(processor *Processor, endpointSecret string) *Handler {
	return &Handler{processor: processor, secret: endpointSecret}
}

// StripeWebhook verifies the signature, then hands the event to the
// processor. Only storage failures answer 5xx, so the gateway retries
// exactly the deliveries that may succeed later.
func (h *Handler) StripeWebhook(c *gin.Context) {
	if h.secret == "" {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "STRIPE_WEBHOOK_SECRET not configured"})
		return
	}

	payload, err := readStripeBody(c, maxBodyBytes)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Error reading request body"})
		return
	}

	event, err := webhook.ConstructEventWithOptions(
		payload,
		c.GetHeader("Stripe-Signature"),
		h.secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true},
	)
	if err != nil {
		logger.WithComponent("stripe.webhook").Warn("signature verification failed", "error", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": "Signature verification failed"})
		return
	}

	ev, err := stripeinfra.NormalizeEvent(event)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to parse event payload"})
		return
	}

	outcome, err := h.processor.Process(c.Request.Context(), ev)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process event"})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func readStripeBody(c *gin.Context, maxBytes int64) ([]byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
	return io.ReadAll(c.Request.Body)
}
