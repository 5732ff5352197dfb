package service

import (
	"context"
	"errors"

	"github.com/oss-listings/claims-backend/internal/forge"
	"github.com/oss-listings/claims-backend/internal/logging"
	"github.com/oss-listings/claims-backend/internal/projects/domain"
)

// RepoStats serves public repository metadata for listings through the redis
// cache, using server-side tokens. It plays no part in ownership checks.
type RepoStats struct {
	cache   *forge.RepoCache
	clients forge.Clients
	tokens  map[forge.Host]string
}

func NewRepoStats(cache *forge.RepoCache, clients forge.Clients, tokens map[forge.Host]string) *RepoStats {
	return &RepoStats{cache: cache, clients: clients, tokens: tokens}
}

// ForProject returns the repository behind p, from cache when possible.
func (s *RepoStats) ForProject(ctx context.Context, p *domain.Project) (*forge.Repository, error) {
	ref, api, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	return s.cache.Fetch(ctx, ref, s.loader(api, ref))
}

// Refresh reloads p's repository into the cache.
func (s *RepoStats) Refresh(ctx context.Context, p *domain.Project) (*forge.Repository, error) {
	ref, api, err := s.resolve(p)
	if err != nil {
		return nil, err
	}
	return s.cache.Refresh(ctx, ref, s.loader(api, ref))
}

func (s *RepoStats) loader(api forge.API, ref forge.RepoRef) func(context.Context) (*forge.Repository, error) {
	return func(ctx context.Context) (*forge.Repository, error) {
		return api.GetRepository(ctx, s.tokens[ref.Host], ref)
	}
}

func (s *RepoStats) resolve(p *domain.Project) (forge.RepoRef, forge.API, error) {
	if p.GitRepoURL == "" || p.GitHost == "" {
		return forge.RepoRef{}, nil, domain.ErrNoRepository
	}
	ref, err := forge.ParseRepoURL(p.GitHost, p.GitRepoURL)
	if err != nil {
		return forge.RepoRef{}, nil, errors.Join(domain.ErrNoRepository, err)
	}
	api, err := s.clients.For(p.GitHost)
	if err != nil {
		return forge.RepoRef{}, nil, errors.Join(domain.ErrNoRepository, err)
	}
	return ref, api, nil
}

// ProjectLister lists every project that points at a repository.
type ProjectLister interface {
	ListWithRepositories(ctx context.Context) ([]domain.Project, error)
}

type RefreshReport struct {
	Refreshed int
	Skipped   int
	Failed    int
}

// Refresher warms the repository cache for all listed projects.
type Refresher struct {
	projects ProjectLister
	stats    *RepoStats
}

func NewRefresher(projects ProjectLister, stats *RepoStats) *Refresher {
	return &Refresher{projects: projects, stats: stats}
}

// Run refreshes every repository once. It stops early when a forge rate
// limits, leaving the remaining entries for the next run.
func (r *Refresher) Run(ctx context.Context) (RefreshReport, error) {
	log := logging.New(ctx)
	var report RefreshReport

	projects, err := r.projects.ListWithRepositories(ctx)
	if err != nil {
		return report, err
	}

	for i := range projects {
		if err := ctx.Err(); err != nil {
			return report, err
		}

		p := &projects[i]
		_, err := r.stats.Refresh(ctx, p)
		switch {
		case err == nil:
			report.Refreshed++
		case errors.Is(err, domain.ErrNoRepository), forge.IsNotFound(err):
			report.Skipped++
		case forge.IsRateLimited(err):
			report.Failed++
			log.LogWarnf("refresh_repos", "rate limited on %s, stopping after %d projects", p.GitHost, i+1)
			return report, nil
		default:
			report.Failed++
			log.LogErrorf("refresh_repos", "project=%s: %v", p.ID, err)
		}
	}

	log.LogInfof("refresh_repos", "refreshed=%d skipped=%d failed=%d", report.Refreshed, report.Skipped, report.Failed)
	return report, nil
}
