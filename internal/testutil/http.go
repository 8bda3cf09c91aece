package testutil

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"tourism-app/internal/app/http/middleware"
	"tourism-app/internal/domain/users"
)

// HeaderAuth stands in for the JWT middleware in handler tests: the caller
// travels in X-User / X-Role headers set by AsUser. Requests without them
// stay anonymous.
func HeaderAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id, err := strconv.ParseUint(c.GetHeader("X-User"), 10, 64); err == nil {
			middleware.SetPrincipal(c, uint(id), c.GetHeader("X-Role"))
		}
		c.Next()
	}
}

func AsUser(req *http.Request, u users.User) *http.Request {
	req.Header.Set("X-User", strconv.FormatUint(uint64(u.ID), 10))
	req.Header.Set("X-Role", u.Role)
	return req
}
