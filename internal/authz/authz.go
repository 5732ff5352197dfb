package authz

import (
	"context"
	"embed"
	"errors"
	"net/http"
	"os"
	"path/filepath"

	"github.com/casbin/casbin/v3"
	"github.com/gin-gonic/gin"

	"github.com/oss-listings/claims-backend/internal/auth"
	"github.com/oss-listings/claims-backend/internal/logging"
	"github.com/oss-listings/claims-backend/internal/users"
)

//go:embed model.conf policy.csv
var embedFS embed.FS

// RoleSource resolves the stored role of a user.
type RoleSource interface {
	Role(ctx context.Context, userID string) (users.Role, error)
}

// Enforcer decides role based permissions. Roles come from the users table,
// permissions from the embedded policy.
type Enforcer struct {
	enforcer *casbin.Enforcer
	roles    RoleSource
}

func NewEnforcer(roles RoleSource) (*Enforcer, error) {
	dir, err := os.MkdirTemp("", "claims-casbin-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(dir)

	if err := writeEmbedToDir(dir, "model.conf", "policy.csv"); err != nil {
		return nil, err
	}

	e, err := casbin.NewEnforcer(filepath.Join(dir, "model.conf"), filepath.Join(dir, "policy.csv"))
	if err != nil {
		return nil, err
	}
	return &Enforcer{enforcer: e, roles: roles}, nil
}

func writeEmbedToDir(dir string, names ...string) error {
	for _, name := range names {
		data, err := embedFS.ReadFile(name)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), data, 0600); err != nil {
			return err
		}
	}
	return nil
}

// RoleAllowed checks the policy for a role directly.
func (e *Enforcer) RoleAllowed(role users.Role, obj, act string) (bool, error) {
	return e.enforcer.Enforce(string(role), obj, act)
}

// Allowed loads the user's role and checks obj/act against it.
func (e *Enforcer) Allowed(ctx context.Context, userID, obj, act string) (bool, error) {
	role, err := e.roles.Role(ctx, userID)
	if err != nil {
		return false, err
	}
	return e.RoleAllowed(role, obj, act)
}

// RequirePermission rejects requests whose user lacks obj/act. It must run
// after an auth middleware.
func (e *Enforcer) RequirePermission(obj, act string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := auth.UserDBID(c)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "sign in required", "code": "unauthenticated"})
			return
		}

		ok, err := e.Allowed(c.Request.Context(), userID, obj, act)
		if err != nil && !errors.Is(err, users.ErrNotFound) {
			logging.New(c.Request.Context()).LogError("authorize", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "authorization failed"})
			return
		}
		if !ok {
			logging.New(c.Request.Context()).LogWarnf("authorize", "user=%s denied %s on %s", userID, act, obj)
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden", "code": "forbidden"})
			return
		}
		c.Next()
	}
}
