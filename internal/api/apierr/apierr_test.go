package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/media"
)

func write(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	Write(c, err)
	return w
}

func TestWrite_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{billing.ErrNotProvider, http.StatusForbidden},
		{billing.ErrPlanLimitReached, http.StatusForbidden},
		{billing.ErrAlreadySubscribed, http.StatusUnprocessableEntity},
		{billing.ErrLastPaymentMethod, http.StatusUnprocessableEntity},
		{billing.ErrNothingToCancel, http.StatusUnprocessableEntity},
		{billing.ErrSubscriptionNotFound, http.StatusNotFound},
		{billing.ErrUnknownPlan, http.StatusBadRequest},
		{billing.External("stripe down", errors.New("timeout")), http.StatusInternalServerError},
		{fmt.Errorf("load: %w", gorm.ErrRecordNotFound), http.StatusNotFound},
		{media.ErrUnknownOwnerKind, http.StatusBadRequest},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, write(tc.err).Code, tc.err.Error())
	}
}

func TestWrite_WrappedDomainErrorKeepsCode(t *testing.T) {
	w := write(fmt.Errorf("subscribe: %w", billing.ErrAlreadySubscribed))
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "already_subscribed", body["code"])
}

func TestWrite_HidesInternalDetail(t *testing.T) {
	w := write(errors.New("pq: relation does not exist"))
	assert.NotContains(t, w.Body.String(), "relation")
}
