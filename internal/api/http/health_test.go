package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serveHealth(t *testing.T, checks map[string]Pinger) (*httptest.ResponseRecorder, HealthResponse) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHealthHandler("claims-api", "1.2.3", checks).RegisterRoutes(r)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	var body HealthResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHealthCheck(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	t.Run("all dependencies up", func(t *testing.T) {
		w, body := serveHealth(t, map[string]Pinger{
			"db":    pingFunc(func(context.Context) error { return nil }),
			"redis": RedisPinger{Client: rdb},
		})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "claims-api", body.Service)
		assert.Equal(t, map[string]string{"db": "up", "redis": "up"}, body.Checks)
	})

	t.Run("a failing dependency degrades the service", func(t *testing.T) {
		w, body := serveHealth(t, map[string]Pinger{
			"db":    pingFunc(func(context.Context) error { return errors.New("conn refused") }),
			"cache": nil,
		})
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "degraded", body.Status)
		assert.Equal(t, "down", body.Checks["db"])
		assert.Equal(t, "disabled", body.Checks["cache"])
	})
}
