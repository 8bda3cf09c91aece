package destinations

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tourism-app/internal/app/http/middleware"
	"tourism-app/internal/domain/access"
	"tourism-app/internal/domain/billing"
	"tourism-app/internal/domain/destinations"
	"tourism-app/internal/domain/plans"
	"tourism-app/internal/domain/promotions"
	"tourism-app/internal/domain/users"
	"tourism-app/internal/testutil"
)

type env struct {
	db *gorm.DB
	r  *gin.Engine
}

func newEnv(t *testing.T) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := testutil.NewDB(t)
	limits := billing.NewLimitEvaluator(db, map[billing.ResourceKind]billing.CountFunc{
		billing.ResourceDestination: destinations.CountOwned,
		billing.ResourcePromotion:   promotions.CountOwned,
	})
	h := NewHandler(db)

	r := gin.New()
	r.Use(testutil.HeaderAuth())
	r.GET("/destinations", h.List)
	r.GET("/destinations/:id", h.Get)
	r.GET("/regions", h.ListRegions)

	p := r.Group("/", middleware.RequireCapability(access.CapProvider))
	p.GET("/my/destinations", h.Mine)
	p.POST("/destinations", middleware.RequireCapacity(limits, billing.ResourceDestination), h.Create)
	p.PUT("/destinations/:id", h.Update)
	p.DELETE("/destinations/:id", h.Delete)
	p.POST("/destinations/:id/publish", h.Publish)
	p.POST("/destinations/:id/unpublish", h.Unpublish)

	a := r.Group("/admin", middleware.RequireCapability(access.CapModerate))
	a.POST("/regions", h.CreateRegion)
	return &env{db: db, r: r}
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

func created(t *testing.T, w *httptest.ResponseRecorder) destinations.Destination {
	t.Helper()
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var d destinations.Destination
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	return d
}

func path(id uint, suffix string) string {
	return "/destinations/" + strconv.FormatUint(uint64(id), 10) + suffix
}

func TestCreate_BasicPlanAllowsFive(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, users.RoleProvider)
	testutil.Subscribe(t, e.db, u, plans.Basic)

	var first destinations.Destination
	for i := 0; i < 5; i++ {
		d := created(t, e.do(http.MethodPost, "/destinations", &u, gin.H{"name": "Lake Bled", "price": "49.5"}))
		if i == 0 {
			first = d
			assert.Equal(t, "lake-bled", d.Slug)
			assert.Equal(t, "49.50", d.Price.StringFixed(2))
		}
		assert.Equal(t, u.ID, d.ProviderID)
	}

	w := e.do(http.MethodPost, "/destinations", &u, gin.H{"name": "One too many"})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "plan_limit_reached")

	// a deleted destination frees its slot
	require.Equal(t, http.StatusOK, e.do(http.MethodDelete, path(first.ID, ""), &u, nil).Code)
	d := created(t, e.do(http.MethodPost, "/destinations", &u, gin.H{"name": "Lake Bled"}))
	assert.Equal(t, "lake-bled-6", d.Slug, "slugs of deleted rows stay reserved")
}

func TestCreate_Refusals(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, users.RoleProvider)
	tourist := testutil.CreateUser(t, e.db, users.RoleTourist)

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/destinations", &u, gin.H{"name": "x"}).Code, "no subscription")
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, "/destinations", &tourist, gin.H{"name": "x"}).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/destinations", nil, gin.H{"name": "x"}).Code)

	testutil.Subscribe(t, e.db, u, plans.Premium)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/destinations", &u, gin.H{}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/destinations", &u, gin.H{"name": "x", "price": "-1"}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, "/destinations", &u, gin.H{"name": "x", "region_id": 99}).Code)
}

func TestUpdate_Ownership(t *testing.T) {
	e := newEnv(t)
	owner := testutil.CreateUser(t, e.db, users.RoleProvider)
	testutil.Subscribe(t, e.db, owner, plans.Basic)
	intruder := testutil.CreateUser(t, e.db, users.RoleProvider)
	admin := testutil.CreateUser(t, e.db, users.RoleAdmin)

	d := created(t, e.do(http.MethodPost, "/destinations", &owner, gin.H{"name": "Old Town"}))

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPut, path(d.ID, ""), &intruder, gin.H{"name": "Mine now"}).Code)
	assert.Equal(t, http.StatusForbidden, e.do(http.MethodDelete, path(d.ID, ""), &intruder, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPut, path(404, ""), &owner, gin.H{"name": "x"}).Code)

	w := e.do(http.MethodPut, path(d.ID, ""), &owner, gin.H{"name": "Old Town Walk", "location": "Ljubljana"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var got destinations.Destination
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "old-town-walk", got.Slug)
	assert.Equal(t, "Ljubljana", got.Location)

	assert.Equal(t, http.StatusOK, e.do(http.MethodPut, path(d.ID, ""), &admin, gin.H{"name": "Old Town Walk"}).Code)
}

func TestPublicVisibility(t *testing.T) {
	e := newEnv(t)
	u := testutil.CreateUser(t, e.db, users.RoleProvider)
	testutil.Subscribe(t, e.db, u, plans.Basic)
	admin := testutil.CreateUser(t, e.db, users.RoleAdmin)

	w := e.do(http.MethodPost, "/admin/regions", &admin, gin.H{"name": "Julian Alps"})
	require.Equal(t, http.StatusCreated, w.Code)
	var region destinations.Region
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &region))
	assert.Equal(t, "julian-alps", region.Slug)

	d := created(t, e.do(http.MethodPost, "/destinations", &u, gin.H{"name": "Vintgar", "region_id": region.ID}))
	created(t, e.do(http.MethodPost, "/destinations", &u, gin.H{"name": "Piran", "is_published": true}))

	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, path(d.ID, ""), nil, nil).Code)

	var list struct {
		Destinations []destinations.Destination `json:"destinations"`
		Total        int64                      `json:"total"`
	}
	require.NoError(t, json.Unmarshal(e.do(http.MethodGet, "/destinations", nil, nil).Body.Bytes(), &list))
	assert.EqualValues(t, 1, list.Total)

	require.Equal(t, http.StatusOK, e.do(http.MethodPost, path(d.ID, "/publish"), &u, nil).Code)
	w = e.do(http.MethodGet, path(d.ID, ""), nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"julian-alps"`)

	require.NoError(t, json.Unmarshal(e.do(http.MethodGet, "/destinations?region=julian-alps", nil, nil).Body.Bytes(), &list))
	require.Len(t, list.Destinations, 1)
	assert.Equal(t, "Vintgar", list.Destinations[0].Name)

	require.NoError(t, json.Unmarshal(e.do(http.MethodGet, "/my/destinations", &u, nil).Body.Bytes(), &list))
	assert.EqualValues(t, 2, list.Total)
}
