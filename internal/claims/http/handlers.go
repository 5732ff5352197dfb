package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/oss-listings/claims-backend/internal/auth"
	"github.com/oss-listings/claims-backend/internal/claims"
	"github.com/oss-listings/claims-backend/internal/forge"
	"github.com/oss-listings/claims-backend/internal/logging"
	"github.com/oss-listings/claims-backend/internal/projects/domain"
)

type Handler struct {
	workflow *claims.Workflow
}

func New(workflow *claims.Workflow) *Handler {
	return &Handler{workflow: workflow}
}

// eligibility answers whether the caller may claim the project. Decided
// outcomes, including "not signed in", are a 200 with the reason.
func (h *Handler) eligibility(c *gin.Context) {
	ctx := c.Request.Context()
	attempt, err := h.workflow.Evaluate(ctx, c.Param("id"), auth.UserDBID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	if attempt.State == claims.StateFailed && attempt.Reason == "" {
		writeError(c, attempt.Err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"state":       attempt.State,
		"eligibility": attempt.Eligibility,
	})
}

func (h *Handler) claim(c *gin.Context) {
	ctx := c.Request.Context()
	attempt, err := h.workflow.Claim(ctx, c.Param("id"), auth.UserDBID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	if attempt.State != claims.StateClaimed {
		writeError(c, attempt.Err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"ok":    true,
		"state": attempt.State,
		"claim": attempt.Record,
	})
}

// statusFor maps a claim error to its HTTP status and stable code.
func statusFor(err error) (int, string) {
	if ve, ok := claims.AsVerificationError(err); ok {
		switch ve.Kind {
		case claims.FailureUnauthorized:
			return http.StatusUnauthorized, "forge_reauth_required"
		case claims.FailureRateLimited:
			return http.StatusServiceUnavailable, "verification_failed_rate_limited"
		case claims.FailureTimeout:
			return http.StatusBadGateway, "verification_failed_timeout"
		default:
			return http.StatusBadGateway, "verification_failed_network"
		}
	}

	switch {
	case errors.Is(err, claims.ErrNotAuthenticated):
		return http.StatusUnauthorized, "unauthenticated"
	case errors.Is(err, claims.ErrNeedsForgeAuth):
		return http.StatusForbidden, "needs_forge_auth"
	case errors.Is(err, claims.ErrNotOwner):
		return http.StatusForbidden, "not_owner"
	case errors.Is(err, claims.ErrAlreadyClaimed):
		return http.StatusConflict, "already_claimed"
	case errors.Is(err, claims.ErrUnsupportedRepository):
		return http.StatusUnprocessableEntity, "unsupported_repository"
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "not_found"
	}
	return http.StatusInternalServerError, "internal"
}

var messages = map[string]string{
	"unauthenticated":                  "sign in to claim this project",
	"needs_forge_auth":                 "connect your forge account with repository access",
	"not_owner":                        "you are not an owner of this repository",
	"already_claimed":                  "this project has already been claimed",
	"unsupported_repository":           "this project has no supported repository",
	"not_found":                        "project not found",
	"forge_reauth_required":            "your forge authorization expired, reconnect your account",
	"verification_failed_rate_limited": "the forge is rate limiting requests, try again later",
	"verification_failed_timeout":      "the forge did not respond in time, try again",
	"verification_failed_network":      "could not reach the forge, try again",
	"internal":                         "internal error",
}

func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	if status >= http.StatusInternalServerError {
		logging.New(c.Request.Context()).LogError("claim_project", err)
	}

	var apiErr *forge.APIError
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(apiErr.RetryAfter.Seconds())))
	}

	c.JSON(status, gin.H{"ok": false, "error": messages[code], "code": code})
}
