package stripewebhooks

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v75/webhook"

	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/users"
	"tourism-app/internal/testutil"
)

const testSecret = "whsec_test_secret"

func newRouter(e *env, secret string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webhooks/stripe", NewHandler(e.proc, secret).StripeWebhook)
	return r
}

func post(r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set("Stripe-Signature", signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func signed(body []byte) string {
	return webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{Payload: body, Secret: testSecret}).Header
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHandler_RejectsBadSignature(t *testing.T) {
	e := newEnv(t)
	r := newRouter(e, testSecret)

	body := []byte(`{"id":"evt_1","object":"event","type":"invoice.payment_succeeded","data":{"object":{}}}`)

	w := post(r, body, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = post(r, body, "t=1,v1=deadbeef")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	var n int64
	require.NoError(t, e.db.Model(&billing.WebhookEvent{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestHandler_MissingSecret(t *testing.T) {
	e := newEnv(t)
	w := post(newRouter(e, ""), []byte(`{}`), "x")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestHandler_UnknownTypeIsAcknowledged(t *testing.T) {
	e := newEnv(t)
	r := newRouter(e, testSecret)

	body := []byte(`{"id":"evt_2","object":"event","type":"charge.refunded","created":1735732800,"data":{"object":{"id":"ch_1"}}}`)
	w := post(r, body, signed(body))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ignored", decode(t, w)["status"])
}

func TestHandler_InvoicePaidEndToEnd(t *testing.T) {
	e := newEnv(t)
	r := newRouter(e, testSecret)
	u := testutil.CreateUser(t, e.db, users.RoleProvider)
	sub, inv := e.pendingCheckout(t, u)

	body := []byte(`{
		"id": "evt_paid_http",
		"object": "event",
		"type": "invoice.payment_succeeded",
		"created": 1735732800,
		"data": {"object": {
			"id": "in_1",
			"object": "invoice",
			"amount_paid": 29999,
			"currency": "usd",
			"subscription": "sub_1",
			"payment_intent": "pi_http"
		}}
	}`)

	w := post(r, body, signed(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "processed", decode(t, w)["status"])

	w = post(r, body, signed(body))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "duplicate", decode(t, w)["status"])

	var stored billing.Invoice
	require.NoError(t, e.db.First(&stored, inv.ID).Error)
	assert.Equal(t, billing.InvoicePaid, stored.Status)

	var s billing.Subscription
	require.NoError(t, e.db.First(&s, sub.ID).Error)
	assert.Equal(t, billing.StatusActive, s.Status)
	require.NotNil(t, s.TransactionID)
	assert.Equal(t, "pi_http", *s.TransactionID)

	assert.Len(t, e.notes.kinds(), 1)
}

func TestHandler_UnknownInvoiceStillAnswers200(t *testing.T) {
	e := newEnv(t)
	r := newRouter(e, testSecret)

	body := []byte(`{"id":"evt_w","object":"event","type":"invoice.payment_failed","created":1735732800,
		"data":{"object":{"id":"in_nowhere","object":"invoice","amount_due":999,"currency":"usd"}}}`)
	w := post(r, body, signed(body))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "warning", decode(t, w)["status"])
}
