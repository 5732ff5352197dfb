package middleware

import (
	"context"
	"net/http"
	"strings"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"

	"github.com/oss-listings/claims-backend/internal/auth"
	"github.com/oss-listings/claims-backend/internal/logging"
	"github.com/oss-listings/claims-backend/internal/users"
)

// TokenVerifier is implemented by *auth.Client from the Firebase Admin SDK.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

// UserStore maps an authenticated identity to a database user.
type UserStore interface {
	EnsureUser(ctx context.Context, u users.UpsertUser) (string, error)
}

// FirebaseAuthMiddleware validates Firebase ID tokens and rejects requests
// without one.
func FirebaseAuthMiddleware(verifier TokenVerifier, store UserStore) gin.HandlerFunc {
	return firebaseAuth(verifier, store, true)
}

// OptionalFirebaseAuth resolves the user when a token is sent and lets
// anonymous requests through. A token that fails verification is still
// rejected.
func OptionalFirebaseAuth(verifier TokenVerifier, store UserStore) gin.HandlerFunc {
	return firebaseAuth(verifier, store, false)
}

func firebaseAuth(verifier TokenVerifier, store UserStore, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing authorization token", "code": "unauthenticated"})
				return
			}
			c.Next()
			return
		}

		ctx := c.Request.Context()
		decodedToken, err := verifier.VerifyIDToken(ctx, token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token", "code": "unauthenticated"})
			return
		}

		u := users.UpsertUser{FirebaseUID: decodedToken.UID}
		if email, ok := decodedToken.Claims["email"].(string); ok {
			u.Email = email
		}
		if name, ok := decodedToken.Claims["name"].(string); ok {
			u.DisplayName = name
		}
		if picture, ok := decodedToken.Claims["picture"].(string); ok {
			u.PhotoURL = picture
		}

		setUser(c, store, u)
	}
}

// HeaderAuth trusts X-User-Id as the Firebase UID. Development only.
func HeaderAuth(store UserStore, required bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		fuid := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if fuid == "" {
			if required {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing X-User-Id", "code": "unauthenticated"})
				return
			}
			c.Next()
			return
		}

		setUser(c, store, users.UpsertUser{
			FirebaseUID: fuid,
			Email:       c.GetHeader("X-User-Email"),
			DisplayName: c.GetHeader("X-User-Name"),
			PhotoURL:    c.GetHeader("X-User-Photo"),
		})
	}
}

func setUser(c *gin.Context, store UserStore, u users.UpsertUser) {
	uid, err := store.EnsureUser(c.Request.Context(), u)
	if err != nil {
		logging.New(c.Request.Context()).LogError("ensure_user", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "could not load user"})
		return
	}

	c.Set(auth.CtxFirebaseUID, u.FirebaseUID)
	c.Set(auth.CtxUserDBID, uid)
	if u.Email != "" {
		c.Set(auth.CtxEmail, u.Email)
	}
	c.Next()
}

// extractToken extracts the Bearer token from the Authorization header
func extractToken(c *gin.Context) string {
	bearerToken := c.GetHeader("Authorization")
	if len(bearerToken) > 7 && strings.HasPrefix(bearerToken, "Bearer ") {
		return bearerToken[7:]
	}
	return ""
}
