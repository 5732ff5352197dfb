package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/oss-listings/claims-backend/internal/auth"
	"github.com/oss-listings/claims-backend/internal/forge"
	"github.com/oss-listings/claims-backend/internal/logging"
	"github.com/oss-listings/claims-backend/internal/users"
)

// GetProfile returns the current user with their linked forge accounts
func (h *Handler) GetProfile(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.UserDBID(c)

	user, err := h.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "user not found"})
			return
		}
		logging.New(ctx).LogError("get_profile", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to load user"})
		return
	}

	idents, err := h.users.ListIdentities(ctx, userID)
	if err != nil {
		logging.New(ctx).LogError("list_identities", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to load identities"})
		return
	}

	linked := make([]linkedIdentity, 0, len(idents))
	for _, ident := range idents {
		linked = append(linked, linkedIdentity{Identity: ident, CanClaim: ident.HasRequiredScope()})
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user, "identities": linked})
}

// UpdateProfile updates the display name and photo
func (h *Handler) UpdateProfile(c *gin.Context) {
	var req updateProfileReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid request body"})
		return
	}
	if req.DisplayName != nil {
		trimmed := strings.TrimSpace(*req.DisplayName)
		if trimmed == "" {
			c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "display_name cannot be empty"})
			return
		}
		req.DisplayName = &trimmed
	}

	ctx := c.Request.Context()
	user, err := h.users.UpdateProfile(ctx, auth.UserDBID(c), users.ProfileUpdate{
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	})
	if err != nil {
		if errors.Is(err, users.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "user not found"})
			return
		}
		logging.New(ctx).LogError("update_profile", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to update user"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "user": user})
}

// UnlinkIdentity disconnects the user's account on a forge. Existing claims
// are kept.
func (h *Handler) UnlinkIdentity(c *gin.Context) {
	host, err := forge.ParseHost(c.Param("host"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "unsupported host"})
		return
	}

	ctx := c.Request.Context()
	removed, err := h.users.DeleteIdentity(ctx, auth.UserDBID(c), host)
	if err != nil {
		logging.New(ctx).LogError("unlink_identity", err)
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to unlink account"})
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "no linked account for host"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
