package http

import "github.com/gin-gonic/gin"

// Register attaches project routes to the given router group. Logo routes
// need an authenticated user.
func (h *Handler) Register(rg *gin.RouterGroup, requireAuth gin.HandlerFunc) {
	rg.GET("", h.list)
	rg.GET("/:id", h.get)
	rg.GET("/:id/repository", h.repository)
	rg.POST("/:id/logo/upload-url", requireAuth, h.logoUploadURL)
	rg.PUT("/:id/logo", requireAuth, h.setLogo)
}

// RegisterAdmin attaches review routes. The group must enforce permissions.
func (h *Handler) RegisterAdmin(rg *gin.RouterGroup, readClaims gin.HandlerFunc) {
	rg.GET("/claims", readClaims, h.listClaimed)
}
