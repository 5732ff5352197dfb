package http

import "github.com/gin-gonic/gin"

// Register attaches /me routes. The group must already require authentication.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.GetProfile)
	rg.PUT("", h.UpdateProfile)
	rg.DELETE("/identities/:host", h.UnlinkIdentity)
}
