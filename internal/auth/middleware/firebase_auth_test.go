package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/oss-listings/claims-backend/internal/auth"
	"github.com/oss-listings/claims-backend/internal/users"
)

type fakeVerifier struct{}

func (fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error) {
	if idToken != "good" {
		return nil, errors.New("bad token")
	}
	return &fbauth.Token{UID: "fb-1", Claims: map[string]interface{}{"email": "a@example.com"}}, nil
}

type fakeStore struct {
	seen users.UpsertUser
	err  error
}

func (s *fakeStore) EnsureUser(ctx context.Context, u users.UpsertUser) (string, error) {
	s.seen = u
	return "db-" + u.FirebaseUID, s.err
}

func newRouter(mw gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/", mw, func(c *gin.Context) {
		c.String(http.StatusOK, auth.UserDBID(c))
	})
	return r
}

func do(r *gin.Engine, header, value string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(header, value)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestFirebaseAuthMiddleware(t *testing.T) {
	store := &fakeStore{}
	r := newRouter(FirebaseAuthMiddleware(fakeVerifier{}, store))

	t.Run("missing token", func(t *testing.T) {
		w := do(r, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("invalid token", func(t *testing.T) {
		w := do(r, "Authorization", "Bearer nope")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid token resolves db user", func(t *testing.T) {
		w := do(r, "Authorization", "Bearer good")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "db-fb-1", w.Body.String())
		assert.Equal(t, "a@example.com", store.seen.Email)
	})
}

func TestOptionalFirebaseAuth(t *testing.T) {
	r := newRouter(OptionalFirebaseAuth(fakeVerifier{}, &fakeStore{}))

	w := do(r, "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())

	w = do(r, "Authorization", "Bearer nope")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(r, "Authorization", "Bearer good")
	assert.Equal(t, "db-fb-1", w.Body.String())
}

func TestHeaderAuth(t *testing.T) {
	t.Run("optional passes anonymous", func(t *testing.T) {
		w := do(newRouter(HeaderAuth(&fakeStore{}, false)), "", "")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Body.String())
	})

	t.Run("required rejects anonymous", func(t *testing.T) {
		w := do(newRouter(HeaderAuth(&fakeStore{}, true)), "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("store failure", func(t *testing.T) {
		w := do(newRouter(HeaderAuth(&fakeStore{err: errors.New("db down")}, true)), "X-User-Id", "dev")
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})

	t.Run("header user", func(t *testing.T) {
		w := do(newRouter(HeaderAuth(&fakeStore{}, true)), "X-User-Id", "dev")
		assert.Equal(t, "db-dev", w.Body.String())
	})
}
