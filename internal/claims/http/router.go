package http

import "github.com/gin-gonic/gin"

// Register attaches claim routes under a projects group. Both routes run with
// optional authentication so an anonymous caller gets a typed answer.
func (h *Handler) Register(rg *gin.RouterGroup, optionalAuth gin.HandlerFunc, claimLimit gin.HandlerFunc) {
	rg.GET("/:id/claim", optionalAuth, h.eligibility)
	rg.POST("/:id/claim", claimLimit, optionalAuth, h.claim)
}
