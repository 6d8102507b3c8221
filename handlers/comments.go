package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pulsewire/pulse/internal/comments"
)

// CommentsHandler serves comment deletion; creation and listing live on the
// post routes.
type CommentsHandler struct {
	commentsSvc *comments.Service
}

func NewCommentsHandler(cm *comments.Service) *CommentsHandler {
	return &CommentsHandler{commentsSvc: cm}
}

func (h *CommentsHandler) Register(rg *gin.RouterGroup) {
	rg.DELETE("/comments/:id", h.Delete)
}

// Delete removes a comment. Owner or admin only.
func (h *CommentsHandler) Delete(c *gin.Context) {
	cm, err := h.commentsSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !sessionFrom(c).CanMutate(cm.AuthorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the author"})
		return
	}
	if err := h.commentsSvc.Delete(c.Request.Context(), cm.ID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
