package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oss-listings/claims-backend/config"
	httpapi "github.com/oss-listings/claims-backend/internal/api/http"
	"github.com/oss-listings/claims-backend/internal/auth"
	authhttp "github.com/oss-listings/claims-backend/internal/auth/http"
	authmw "github.com/oss-listings/claims-backend/internal/auth/middleware"
	"github.com/oss-listings/claims-backend/internal/auth/oauth"
	"github.com/oss-listings/claims-backend/internal/authz"
	"github.com/oss-listings/claims-backend/internal/bootstrap"
	claimshttp "github.com/oss-listings/claims-backend/internal/claims/http"
	"github.com/oss-listings/claims-backend/internal/cronjob"
	"github.com/oss-listings/claims-backend/internal/logging"
	projectshttp "github.com/oss-listings/claims-backend/internal/projects/http"
	"github.com/oss-listings/claims-backend/internal/storage/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	bootstrap.SetGinMode(cfg.App.Environment)
	_ = logging.SetLevel(cfg.App.LogLevel)

	ctx := context.Background()

	if cfg.Database.RunMigrations {
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			log.Fatalf("migrations: %v", err)
		}
		if err := postgres.MigrateUp(db); err != nil {
			log.Fatalf("migrations: %v", err)
		}
		db.Close()
	}

	pool, err := bootstrap.OpenDB(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("db: %v", err)
	}
	defer pool.Close()

	rdb, err := bootstrap.OpenRedis(ctx, cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer rdb.Close()

	svc, err := bootstrap.NewServices(ctx, cfg, pool, rdb)
	if err != nil {
		log.Fatalf("services: %v", err)
	}

	requireAuth, optionalAuth := authMiddlewares(ctx, cfg, svc)

	enforcer, err := authz.NewEnforcer(svc.Users)
	if err != nil {
		log.Fatalf("authz: %v", err)
	}

	var oauthHandler *oauth.Handler
	if len(svc.OAuthProviders) > 0 {
		oauthHandler = oauth.NewHandler(svc.OAuthProviders, oauth.NewStateStore(rdb, 0), svc.Forges, svc.Users, cfg.Server.WebAppURL)
	} else {
		log.Println("No forge OAuth apps configured, account linking disabled")
	}

	scheduler := cronjob.NewScheduler(30 * time.Minute)
	if cfg.Forge.RefreshSchedule != "" {
		err := scheduler.Add("refresh_repos", cfg.Forge.RefreshSchedule, func(ctx context.Context) error {
			report, err := svc.Refresher.Run(ctx)
			log.Printf("Repository refresh: refreshed=%d skipped=%d failed=%d", report.Refreshed, report.Skipped, report.Failed)
			return err
		})
		if err != nil {
			log.Fatalf("cron: %v", err)
		}
	}
	scheduler.Start()
	defer scheduler.Stop()

	router := bootstrap.BuildRouter(bootstrap.RouterDeps{
		ServiceName:            "listings-claims-api",
		Version:                cfg.App.Version,
		CORSOrigins:            cfg.Server.CORSOrigins,
		ClaimRequestsPerMinute: cfg.App.ClaimRequestsPerMinute,
		Health: map[string]httpapi.Pinger{
			"db":    pool,
			"redis": httpapi.RedisPinger{Client: rdb},
		},
		RequireAuth:  requireAuth,
		OptionalAuth: optionalAuth,
		Projects:     projectshttp.New(svc.Catalog, svc.RepoStats),
		Claims:       claimshttp.New(svc.Workflow),
		Me:           authhttp.New(svc.Users),
		OAuth:        oauthHandler,
		Authz:        enforcer,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening on :%s (env=%s)", cfg.Server.Port, cfg.App.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

func authMiddlewares(ctx context.Context, cfg *config.Config, svc *bootstrap.Services) (required, optional gin.HandlerFunc) {
	if cfg.Firebase.AuthMode == config.AuthModeHeader {
		log.Println("WARNING: AUTH_MODE=header trusts X-User-Id, never use outside development")
		return authmw.HeaderAuth(svc.Users, true), authmw.HeaderAuth(svc.Users, false)
	}

	client, err := auth.InitializeFirebase(ctx, &cfg.Firebase)
	if err != nil {
		log.Fatalf("firebase: %v", err)
	}
	return authmw.FirebaseAuthMiddleware(client, svc.Users), authmw.OptionalFirebaseAuth(client, svc.Users)
}
