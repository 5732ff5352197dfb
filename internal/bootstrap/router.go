package bootstrap

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	httpapi "github.com/oss-listings/claims-backend/internal/api/http"
	"github.com/oss-listings/claims-backend/internal/api/http/middleware"
	authhttp "github.com/oss-listings/claims-backend/internal/auth/http"
	"github.com/oss-listings/claims-backend/internal/auth/oauth"
	"github.com/oss-listings/claims-backend/internal/authz"
	claimshttp "github.com/oss-listings/claims-backend/internal/claims/http"
	projectshttp "github.com/oss-listings/claims-backend/internal/projects/http"
)

type RouterDeps struct {
	ServiceName string
	Version     string
	CORSOrigins []string
	// ClaimRequestsPerMinute limits POST /claim per client IP.
	ClaimRequestsPerMinute int
	Health                 map[string]httpapi.Pinger

	RequireAuth  gin.HandlerFunc
	OptionalAuth gin.HandlerFunc

	Projects *projectshttp.Handler
	Claims   *claimshttp.Handler
	Me       *authhttp.Handler
	OAuth    *oauth.Handler // nil when no forge OAuth app is configured
	Authz    *authz.Enforcer
}

func BuildRouter(dep RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     dep.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader, "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	httpapi.NewHealthHandler(dep.ServiceName, dep.Version, dep.Health).RegisterRoutes(r)

	api := r.Group("/api/v1")

	projectsGroup := api.Group("/projects")
	if dep.Projects != nil {
		dep.Projects.Register(projectsGroup, dep.RequireAuth)
	}
	if dep.Claims != nil {
		dep.Claims.Register(projectsGroup, dep.OptionalAuth, middleware.RateLimitMiddleware(dep.ClaimRequestsPerMinute, 5))
	}

	me := api.Group("/me", dep.RequireAuth)
	if dep.Me != nil {
		dep.Me.Register(me)
	}

	if dep.OAuth != nil {
		dep.OAuth.RegisterConnect(api.Group("/auth", dep.RequireAuth))
		dep.OAuth.RegisterCallback(r)
	}

	if dep.Authz != nil && dep.Projects != nil {
		admin := api.Group("/admin", dep.RequireAuth)
		dep.Projects.RegisterAdmin(admin, dep.Authz.RequirePermission("claims", "read"))
	}

	return r
}
