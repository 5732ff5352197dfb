package claims

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/oss-listings/claims-backend/internal/forge"
	"github.com/oss-listings/claims-backend/internal/projects/domain"
)

// fakeAPI answers from fixed values. Errors in repoErrs are returned by
// successive GetRepository calls before repo is.
type fakeAPI struct {
	repo      *forge.Repository
	repoErrs  []error
	role      forge.Role
	roleErr   error
	hang      bool
	repoCalls atomic.Int32
	roleCalls atomic.Int32
	lastOrg   string
	lastToken atomic.Value
}

func (f *fakeAPI) GetRepository(ctx context.Context, token string, ref forge.RepoRef) (*forge.Repository, error) {
	n := int(f.repoCalls.Add(1))
	f.lastToken.Store(token)
	if f.hang {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if n <= len(f.repoErrs) {
		return nil, f.repoErrs[n-1]
	}
	return f.repo, nil
}

func (f *fakeAPI) GetOrgRole(ctx context.Context, token, org, userID string) (forge.Role, error) {
	f.roleCalls.Add(1)
	f.lastOrg = org
	return f.role, f.roleErr
}

func (f *fakeAPI) CurrentUser(ctx context.Context, token string) (*forge.Account, error) {
	return &forge.Account{ID: "1", Login: "octo"}, nil
}

// memStore is an in-memory Store with the same conditional semantics as the
// SQL update.
type memStore struct {
	mu       sync.Mutex
	projects map[string]*domain.Project
	writes   int
}

func newMemStore(ps ...*domain.Project) *memStore {
	s := &memStore{projects: map[string]*domain.Project{}}
	for _, p := range ps {
		cp := *p
		s.projects[p.ID] = &cp
	}
	return s
}

func (s *memStore) SetOwnerIfUnset(ctx context.Context, projectID, userID string, ownership domain.OwnershipType, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[projectID]
	if !ok || p.OwnerUserID != nil || p.ClaimedAt != nil {
		return false, nil
	}
	uid, ot, at := userID, ownership, now
	p.OwnerUserID, p.OwnershipType, p.ClaimedAt = &uid, &ot, &at
	s.writes++
	return true, nil
}

func (s *memStore) GetByID(ctx context.Context, id string) (*domain.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

type identityMap map[string][]forge.Identity

func (m identityMap) ListIdentities(ctx context.Context, userID string) ([]forge.Identity, error) {
	return m[userID], nil
}

func githubProject() *domain.Project {
	return &domain.Project{
		ID:         "p-1",
		Name:       "tool",
		GitRepoURL: "https://github.com/octo/tool",
		GitHost:    forge.HostGitHub,
	}
}

func githubIdentity(forgeUserID string) forge.Identity {
	return forge.Identity{
		Host:        forge.HostGitHub,
		ForgeUserID: forgeUserID,
		Login:       "octo",
		AccessToken: "gho_token",
		Scopes:      []string{"repo", "read:org"},
	}
}

func claimed(p *domain.Project, owner string) *domain.Project {
	at := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ot := domain.OwnershipPersonal
	p.OwnerUserID, p.OwnershipType, p.ClaimedAt = &owner, &ot, &at
	return p
}
