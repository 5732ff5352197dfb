package http

import (
	"github.com/oss-listings/claims-backend/internal/projects/service"
)

type Handler struct {
	projects *service.ProjectService
	stats    *service.RepoStats
}

func New(projects *service.ProjectService, stats *service.RepoStats) *Handler {
	return &Handler{projects: projects, stats: stats}
}

type setLogoReq struct {
	LogoURL string `json:"logo_url"`
}
