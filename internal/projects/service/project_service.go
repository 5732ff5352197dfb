package service

import (
	"context"
	"fmt"

	"github.com/oss-listings/claims-backend/internal/projects/domain"
	"github.com/oss-listings/claims-backend/internal/uploads"
)

// ProjectRepository is the persistence the project service needs.
type ProjectRepository interface {
	List(ctx context.Context, f domain.Filter) ([]domain.Project, error)
	GetByID(ctx context.Context, id string) (*domain.Project, error)
	ListClaimed(ctx context.Context, limit, offset int) ([]domain.Project, error)
	SetLogo(ctx context.Context, projectID, ownerUserID, logoURL string) (bool, error)
}

// ProjectService handles project-related business logic
type ProjectService struct {
	repo    ProjectRepository
	uploads *uploads.Service
}

// NewProjectService creates a new project service
func NewProjectService(repo ProjectRepository, uploads *uploads.Service) *ProjectService {
	return &ProjectService{
		repo:    repo,
		uploads: uploads,
	}
}

// List returns projects matching the filter
func (s *ProjectService) List(ctx context.Context, f domain.Filter) ([]domain.Project, error) {
	return s.repo.List(ctx, f)
}

// Get returns a single project
func (s *ProjectService) Get(ctx context.Context, id string) (*domain.Project, error) {
	return s.repo.GetByID(ctx, id)
}

// ListClaimed returns claimed projects for review
func (s *ProjectService) ListClaimed(ctx context.Context, limit, offset int) ([]domain.Project, error) {
	return s.repo.ListClaimed(ctx, limit, offset)
}

// PresignLogo issues an upload URL for the project's owner.
func (s *ProjectService) PresignLogo(ctx context.Context, projectID, userID string, req uploads.UploadRequest) (*uploads.PresignedUpload, error) {
	p, err := s.repo.GetByID(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !p.IsOwnedBy(userID) {
		return nil, domain.ErrNotProjectOwner
	}
	return s.uploads.PresignLogo(ctx, p.ID, req)
}

// SetLogo attaches an uploaded logo. Only URLs issued for this project are
// accepted.
func (s *ProjectService) SetLogo(ctx context.Context, projectID, userID, logoURL string) error {
	if !s.uploads.IsLogoURL(projectID, logoURL) {
		return domain.ErrInvalidLogoURL
	}
	ok, err := s.repo.SetLogo(ctx, projectID, userID, logoURL)
	if err != nil {
		return fmt.Errorf("set logo: %w", err)
	}
	if !ok {
		return domain.ErrNotProjectOwner
	}
	return nil
}
