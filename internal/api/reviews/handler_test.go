package reviews

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tourism-app/internal/app/http/middleware"
	"tourism-app/internal/domain/access"
	"tourism-app/internal/domain/destinations"
	"tourism-app/internal/domain/reviews"
	"tourism-app/internal/domain/users"
	"tourism-app/internal/infra/notify"
	"tourism-app/internal/testutil"
)

type recorder struct {
	mu   sync.Mutex
	msgs []notify.Message
}

func (r *recorder) Notify(m notify.Message) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, m)
	return true
}

type env struct {
	db    *gorm.DB
	r     *gin.Engine
	notes *recorder
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	notes := &recorder{}
	h := NewHandler(db, notes)

	r := gin.New()
	r.Use(testutil.HeaderAuth())
	r.GET("/destinations/:id/reviews", h.ListApproved)
	r.POST("/destinations/:id/reviews", middleware.RequireCapability(access.CapReview), h.Create)
	a := r.Group("/admin", middleware.RequireCapability(access.CapModerate))
	a.GET("/reviews", h.ListForModeration)
	a.PUT("/reviews/:id/approve", h.Approve)
	a.PUT("/reviews/:id/reject", h.Reject)
	return &env{db: db, r: r, notes: notes}
}

func (e *env) do(method, path string, u *users.User, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if u != nil {
		req = testutil.AsUser(req, *u)
	}
	w := httptest.NewRecorder()
	e.r.ServeHTTP(w, req)
	return w
}

func destination(t *testing.T, db *gorm.DB, name string, published bool) destinations.Destination {
	t.Helper()
	provider := testutil.CreateUser(t, db, users.RoleProvider)
	d := destinations.Destination{ProviderID: provider.ID, Name: name, Slug: destinations.MakeSlug(name), IsPublished: published}
	require.NoError(t, db.Create(&d).Error)
	return d
}

func id(v uint) string { return strconv.FormatUint(uint64(v), 10) }

func TestCreateReview(t *testing.T) {
	e := newEnv(t)
	tourist := testutil.CreateUser(t, e.db, users.RoleTourist)
	open := destination(t, e.db, "Lake Bohinj", true)
	hidden := destination(t, e.db, "Draft place", false)

	w := e.do(http.MethodPost, "/destinations/"+id(open.ID)+"/reviews", &tourist, gin.H{"rating": 5, "comment": " Lovely "})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var r reviews.Review
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &r))
	assert.Equal(t, reviews.StatusPending, r.Status)
	assert.Equal(t, "Lovely", r.Comment)
	assert.Equal(t, tourist.ID, r.UserID)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/destinations/"+id(hidden.ID)+"/reviews", &tourist, gin.H{"rating": 4}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/destinations/"+id(open.ID)+"/reviews", &tourist, gin.H{"rating": 7}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/destinations/"+id(open.ID)+"/reviews", &tourist, gin.H{}).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/destinations/"+id(open.ID)+"/reviews", nil, gin.H{"rating": 4}).Code)
}

func TestModeration(t *testing.T) {
	e := newEnv(t)
	admin := testutil.CreateUser(t, e.db, users.RoleAdmin)
	tourist := testutil.CreateUser(t, e.db, users.RoleTourist)
	d := destination(t, e.db, "Postojna Cave", true)
	base := "/destinations/" + id(d.ID) + "/reviews"

	var good, bad reviews.Review
	require.NoError(t, json.Unmarshal(e.do(http.MethodPost, base, &tourist, gin.H{"rating": 4}).Body.Bytes(), &good))
	require.NoError(t, json.Unmarshal(e.do(http.MethodPost, base, &tourist, gin.H{"rating": 1, "comment": "spam"}).Body.Bytes(), &bad))

	var list struct {
		Reviews       []reviews.Review `json:"reviews"`
		AverageRating float64          `json:"average_rating"`
	}
	require.NoError(t, json.Unmarshal(e.do(http.MethodGet, base, nil, nil).Body.Bytes(), &list))
	assert.Empty(t, list.Reviews, "pending reviews are not public")

	require.NoError(t, json.Unmarshal(e.do(http.MethodGet, "/admin/reviews", &admin, nil).Body.Bytes(), &list))
	assert.Len(t, list.Reviews, 2)

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPut, "/admin/reviews/"+id(good.ID)+"/approve", &tourist, nil).Code)

	w := e.do(http.MethodPut, "/admin/reviews/"+id(good.ID)+"/approve", &admin, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPut, "/admin/reviews/"+id(bad.ID)+"/reject", &admin, nil).Code)
	w = e.do(http.MethodPut, "/admin/reviews/"+id(bad.ID)+"/reject", &admin, gin.H{"reason": "off topic"})
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPut, "/admin/reviews/999/approve", &admin, nil).Code)

	require.NoError(t, json.Unmarshal(e.do(http.MethodGet, base, nil, nil).Body.Bytes(), &list))
	require.Len(t, list.Reviews, 1)
	assert.Equal(t, 4.0, list.AverageRating)

	require.Len(t, e.notes.msgs, 2)
	assert.Equal(t, notify.KindReviewApproved, e.notes.msgs[0].Kind)
	assert.Equal(t, tourist.Email, e.notes.msgs[0].To)
	assert.Equal(t, "Postojna Cave", e.notes.msgs[0].Data["destination"])
	assert.Equal(t, notify.KindReviewRejected, e.notes.msgs[1].Kind)
	assert.Equal(t, "off topic", e.notes.msgs[1].Data["reason"])
}
