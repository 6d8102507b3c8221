package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pulsewire/pulse/internal/comments"
	"github.com/pulsewire/pulse/internal/posts"
)

// AdminHandler serves the moderation views: complete, unordered listings of
// both collections. Mounted behind RequireAdmin.
type AdminHandler struct {
	postsSvc    *posts.Service
	commentsSvc *comments.Service
}

func NewAdminHandler(p *posts.Service, cm *comments.Service) *AdminHandler {
	return &AdminHandler{postsSvc: p, commentsSvc: cm}
}

func (h *AdminHandler) Register(rg *gin.RouterGroup) {
	a := rg.Group("/admin", RequireAdmin())
	a.GET("/posts", h.ListPosts)
	a.GET("/comments", h.ListComments)
}

func (h *AdminHandler) ListPosts(c *gin.Context) {
	out, err := h.postsSvc.All(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) ListComments(c *gin.Context) {
	out, err := h.commentsSvc.All(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}
