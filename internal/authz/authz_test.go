package authz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oss-listings/claims-backend/internal/auth"
	"github.com/oss-listings/claims-backend/internal/users"
)

type roleMap map[string]users.Role

func (m roleMap) Role(ctx context.Context, userID string) (users.Role, error) {
	if userID == "broken" {
		return "", errors.New("db down")
	}
	role, ok := m[userID]
	if !ok {
		return "", users.ErrNotFound
	}
	return role, nil
}

func TestRoleAllowed(t *testing.T) {
	e, err := NewEnforcer(roleMap{})
	require.NoError(t, err)

	cases := []struct {
		role users.Role
		obj  string
		act  string
		want bool
	}{
		{users.RoleModerator, "claims", "read", true},
		{users.RoleAdmin, "claims", "read", true},
		{users.RoleUser, "claims", "read", false},
		{users.RoleAdmin, "claims", "write", false},
		{users.RoleModerator, "projects", "read", false},
	}
	for _, tc := range cases {
		got, err := e.RoleAllowed(tc.role, tc.obj, tc.act)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "%s %s %s", tc.role, tc.act, tc.obj)
	}
}

func TestRequirePermission(t *testing.T) {
	e, err := NewEnforcer(roleMap{"mod": users.RoleModerator, "plain": users.RoleUser})
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/claims", func(c *gin.Context) {
		if uid := c.GetHeader("X-Test-User"); uid != "" {
			c.Set(auth.CtxUserDBID, uid)
		}
	}, e.RequirePermission("claims", "read"), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})

	for user, want := range map[string]int{
		"":        http.StatusUnauthorized,
		"plain":   http.StatusForbidden,
		"unknown": http.StatusForbidden,
		"broken":  http.StatusInternalServerError,
		"mod":     http.StatusNoContent,
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin/claims", nil)
		if user != "" {
			req.Header.Set("X-Test-User", user)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, "user %q", user)
	}
}
