package forge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	repoKeyPrefix  = "forge:repo:" // forge:repo:{host}:{owner}/{name}
	defaultRepoTTL = 24 * time.Hour
)

// RepoCache is a read-through redis cache of repository metadata shown on
// project listings. Ownership checks never read from it.
type RepoCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewRepoCache(client redis.Cmdable, ttl time.Duration) *RepoCache {
	if ttl <= 0 {
		ttl = defaultRepoTTL
	}
	return &RepoCache{client: client, ttl: ttl}
}

func (c *RepoCache) key(ref RepoRef) string {
	return repoKeyPrefix + string(ref.Host) + ":" + strings.ToLower(ref.FullName())
}

// Get returns the cached repository, or nil when absent.
func (c *RepoCache) Get(ctx context.Context, ref RepoRef) (*Repository, error) {
	data, err := c.client.Get(ctx, c.key(ref)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read repo cache: %w", err)
	}

	var repo Repository
	if err := json.Unmarshal(data, &repo); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached repo: %w", err)
	}
	return &repo, nil
}

func (c *RepoCache) Set(ctx context.Context, ref RepoRef, repo *Repository) error {
	data, err := json.Marshal(repo)
	if err != nil {
		return fmt.Errorf("failed to marshal repo: %w", err)
	}
	if err := c.client.Set(ctx, c.key(ref), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write repo cache: %w", err)
	}
	return nil
}

// Fetch returns the cached repository or loads and caches it. Cache errors
// degrade to a direct load.
func (c *RepoCache) Fetch(ctx context.Context, ref RepoRef, load func(context.Context) (*Repository, error)) (*Repository, error) {
	if repo, err := c.Get(ctx, ref); err == nil && repo != nil {
		return repo, nil
	}

	repo, err := load(ctx)
	if err != nil {
		return nil, err
	}
	_ = c.Set(ctx, ref, repo)
	return repo, nil
}

// Refresh loads the repository unconditionally and overwrites the cache entry.
func (c *RepoCache) Refresh(ctx context.Context, ref RepoRef, load func(context.Context) (*Repository, error)) (*Repository, error) {
	repo, err := load(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Set(ctx, ref, repo); err != nil {
		return nil, err
	}
	return repo, nil
}
