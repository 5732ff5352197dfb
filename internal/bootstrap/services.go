package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/oss-listings/claims-backend/config"
	"github.com/oss-listings/claims-backend/internal/auth/oauth"
	"github.com/oss-listings/claims-backend/internal/claims"
	"github.com/oss-listings/claims-backend/internal/forge"
	"github.com/oss-listings/claims-backend/internal/projects/repository"
	"github.com/oss-listings/claims-backend/internal/projects/service"
	"github.com/oss-listings/claims-backend/internal/uploads"
	"github.com/oss-listings/claims-backend/internal/users"
)

// Services holds the domain components shared by the API server and the
// worker CLI.
type Services struct {
	Users     *users.Repo
	Projects  *repository.Repo
	Forges    forge.Clients
	Catalog   *service.ProjectService
	RepoStats *service.RepoStats
	Refresher *service.Refresher
	Workflow  *claims.Workflow
	// OAuthProviders is empty when no forge OAuth app is configured.
	OAuthProviders oauth.Providers
}

func NewForgeClients(cfg config.ForgeConfig) forge.Clients {
	return forge.Clients{
		forge.HostGitHub: forge.NewGitHubClient(forge.ClientConfig{
			BaseURL:           cfg.GitHubAPIURL,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}),
		forge.HostGitLab: forge.NewGitLabClient(forge.ClientConfig{
			BaseURL:           cfg.GitLabAPIURL,
			RequestsPerSecond: cfg.RequestsPerSecond,
		}),
	}
}

// NewServices wires repositories, forge clients and the claim workflow.
// Logo uploads stay disabled when no bucket is configured.
func NewServices(ctx context.Context, cfg *config.Config, db repository.DBTX, rdb redis.Cmdable) (*Services, error) {
	userRepo := users.NewRepo(db)
	projectRepo := repository.NewRepo(db)
	clients := NewForgeClients(cfg.Forge)

	var presigner uploads.PutPresigner
	if cfg.Uploads.Bucket != "" {
		p, err := uploads.NewS3Presigner(ctx, cfg.Uploads)
		if err != nil {
			return nil, fmt.Errorf("init uploads: %w", err)
		}
		presigner = p
	}

	stats := service.NewRepoStats(
		forge.NewRepoCache(rdb, cfg.Forge.RepoCacheTTL),
		clients,
		map[forge.Host]string{
			forge.HostGitHub: cfg.Forge.GitHubAPIToken,
			forge.HostGitLab: cfg.Forge.GitLabAPIToken,
		},
	)

	providers := oauth.NewProviders(cfg.Forge, cfg.Server.PublicBaseURL)
	verifier := claims.NewVerifier(clients, claims.VerifierConfig{
		Timeout:      cfg.Forge.Timeout,
		RetryBackoff: cfg.Forge.RetryBackoff,
		Refresher:    oauth.NewTokenRefresher(providers, userRepo),
	})
	tracker := claims.NewTracker(projectRepo, verifier, time.Now)

	return &Services{
		Users:     userRepo,
		Projects:  projectRepo,
		Forges:    clients,
		Catalog:   service.NewProjectService(projectRepo, uploads.NewService(presigner, cfg.Uploads)),
		RepoStats: stats,
		Refresher: service.NewRefresher(projectRepo, stats),
		Workflow:  claims.NewWorkflow(projectRepo, userRepo, tracker),

		OAuthProviders: providers,
	}, nil
}
