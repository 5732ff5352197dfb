package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oss-listings/claims-backend/internal/auth"
	"github.com/oss-listings/claims-backend/internal/forge"
	"github.com/oss-listings/claims-backend/internal/logging"
	"github.com/oss-listings/claims-backend/internal/projects/domain"
	"github.com/oss-listings/claims-backend/internal/uploads"
)

func (h *Handler) list(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	items, err := h.projects.List(c.Request.Context(), f)
	if err != nil {
		h.fail(c, "list_projects", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": items})
}

func (h *Handler) get(c *gin.Context) {
	p, err := h.projects.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.fail(c, "get_project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

// repository returns live forge metadata (stars, forks, avatar) for the
// project's repository.
func (h *Handler) repository(c *gin.Context) {
	ctx := c.Request.Context()
	p, err := h.projects.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, "get_project", err)
		return
	}

	repo, err := h.stats.ForProject(ctx, p)
	if err != nil {
		h.fail(c, "repo_stats", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "repository": repo})
}

func (h *Handler) logoUploadURL(c *gin.Context) {
	var req uploads.UploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	up, err := h.projects.PresignLogo(c.Request.Context(), c.Param("id"), auth.UserDBID(c), req)
	if err != nil {
		h.fail(c, "presign_logo", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "upload": up})
}

func (h *Handler) setLogo(c *gin.Context) {
	var req setLogoReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.LogoURL) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	ctx := c.Request.Context()
	if err := h.projects.SetLogo(ctx, c.Param("id"), auth.UserDBID(c), strings.TrimSpace(req.LogoURL)); err != nil {
		h.fail(c, "set_logo", err)
		return
	}

	p, err := h.projects.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, "get_project", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "project": p})
}

func (h *Handler) listClaimed(c *gin.Context) {
	limit, offset, err := parsePage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	items, err := h.projects.ListClaimed(c.Request.Context(), limit, offset)
	if err != nil {
		h.fail(c, "list_claimed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "projects": items})
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	status := http.StatusInternalServerError
	msg := "internal error"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		status, msg = http.StatusNotFound, "project not found"
	case errors.Is(err, domain.ErrNotProjectOwner):
		status, msg = http.StatusForbidden, err.Error()
	case errors.Is(err, domain.ErrInvalidLogoURL),
		errors.Is(err, uploads.ErrUnsupportedContentType),
		errors.Is(err, uploads.ErrTooLarge):
		status, msg = http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrNoRepository):
		status, msg = http.StatusUnprocessableEntity, err.Error()
	case errors.Is(err, uploads.ErrNotConfigured):
		status, msg = http.StatusServiceUnavailable, "logo uploads are not available"
	case forge.IsNotFound(err):
		status, msg = http.StatusNotFound, "repository not found on forge"
	case forge.IsRateLimited(err):
		status, msg = http.StatusServiceUnavailable, "forge rate limit reached, try again later"
	}

	if status >= http.StatusInternalServerError {
		logging.New(c.Request.Context()).LogError(op, err)
	}
	c.JSON(status, gin.H{"ok": false, "error": msg})
}

func parseFilter(c *gin.Context) (domain.Filter, error) {
	var f domain.Filter

	if v := c.Query("host"); v != "" {
		host, err := forge.ParseHost(v)
		if err != nil {
			return f, err
		}
		f.Host = &host
	}
	if v := c.Query("tag"); v != "" {
		tag, err := domain.ParseTag(v)
		if err != nil {
			return f, err
		}
		f.Tag = &tag
	}
	if v := c.Query("looking_for_contributors"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.New("looking_for_contributors must be a boolean")
		}
		f.LookingForContributors = &b
	}
	if v := c.Query("claimed"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return f, errors.New("claimed must be a boolean")
		}
		f.Claimed = &b
	}
	limit, offset, err := parsePage(c)
	if err != nil {
		return f, err
	}
	f.Limit, f.Offset = limit, offset
	return f, nil
}

func parsePage(c *gin.Context) (limit, offset int, err error) {
	if v := c.Query("limit"); v != "" {
		limit, err = strconv.Atoi(v)
		if err != nil || limit < 0 {
			return 0, 0, errors.New("limit must be a non-negative integer")
		}
	}
	if v := c.Query("offset"); v != "" {
		offset, err = strconv.Atoi(v)
		if err != nil || offset < 0 {
			return 0, 0, errors.New("offset must be a non-negative integer")
		}
	}
	return limit, offset, nil
}
