package handlers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pulsewire/pulse/internal/comments"
	"github.com/pulsewire/pulse/internal/models"
	"github.com/pulsewire/pulse/internal/posts"
	"github.com/pulsewire/pulse/internal/storage"
	"github.com/pulsewire/pulse/pkg/logger"
)

// maxAttachmentSize caps uploads at 8 MiB.
const maxAttachmentSize = 8 << 20

// PostsHandler serves the post CRUD surface. Ownership gating happens here:
// services trust that a mutation reaching them has already been authorized.
type PostsHandler struct {
	postsSvc    *posts.Service
	commentsSvc *comments.Service
	attachments *storage.AttachmentStore // nil when object storage is unconfigured
}

func NewPostsHandler(p *posts.Service, cm *comments.Service, att *storage.AttachmentStore) *PostsHandler {
	return &PostsHandler{postsSvc: p, commentsSvc: cm, attachments: att}
}

// Register mounts the post routes on an authenticated group.
func (h *PostsHandler) Register(rg *gin.RouterGroup) {
	rg.GET("/posts", h.List)
	rg.POST("/posts", h.Create)
	rg.GET("/posts/:id", h.Get)
	rg.PATCH("/posts/:id", h.Update)
	rg.DELETE("/posts/:id", h.Delete)
	rg.POST("/posts/:id/attachments", h.Attach)

	rg.GET("/posts/:id/comments", h.ListComments)
	rg.POST("/posts/:id/comments", h.CreateComment)
}

type postBody struct {
	Content string `json:"content"`
}

// List returns the feed, newest first.
func (h *PostsHandler) List(c *gin.Context) {
	out, err := h.postsSvc.Feed(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.withURLs(c, out))
}

func (h *PostsHandler) Create(c *gin.Context) {
	var req postBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := sessionFrom(c)
	if s == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	p, err := h.postsSvc.Create(c.Request.Context(), s.Identity.ID, s.Identity.Email, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

func (h *PostsHandler) Get(c *gin.Context) {
	p, err := h.postsSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, h.withURL(c, *p))
}

// Update replaces the content. Owner or admin only; everyone else gets 403
// regardless of what their client claimed to allow.
func (h *PostsHandler) Update(c *gin.Context) {
	var req postBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	p, err := h.postsSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !sessionFrom(c).CanMutate(p.AuthorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the author"})
		return
	}
	updated, err := h.postsSvc.Update(c.Request.Context(), p.ID, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Delete removes the post. Comments under it are intentionally left in place.
func (h *PostsHandler) Delete(c *gin.Context) {
	p, err := h.postsSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !sessionFrom(c).CanMutate(p.AuthorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the author"})
		return
	}
	if err := h.postsSvc.Delete(c.Request.Context(), p.ID); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Attach uploads an image for the post and records its object key.
func (h *PostsHandler) Attach(c *gin.Context) {
	if h.attachments == nil {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "attachments not configured"})
		return
	}
	p, err := h.postsSvc.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if !sessionFrom(c).CanMutate(p.AuthorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not the author"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' required"})
		return
	}
	if file.Size > maxAttachmentSize {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "attachment too large"})
		return
	}
	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable upload"})
		return
	}
	defer src.Close()

	key := fmt.Sprintf("posts/%s/%s", p.ID, uuid.NewString())
	contentType := file.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := h.attachments.Put(c.Request.Context(), key, src, file.Size, contentType); err != nil {
		logger.Errorf("attachment upload failed: %v", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "attachment storage unavailable"})
		return
	}
	if err := h.postsSvc.SetAttachment(c.Request.Context(), p.ID, key); err != nil {
		writeError(c, err)
		return
	}
	url, err := h.attachments.PresignedURL(c.Request.Context(), key, time.Hour)
	if err != nil {
		logger.Warnf("presign failed for %s: %v", key, err)
	}
	c.JSON(http.StatusCreated, gin.H{"attachmentKey": key, "attachmentUrl": url})
}

// ListComments returns the post's comments, newest first. Comments under a
// vanished post are still listed; the reader sees them as orphans.
func (h *PostsHandler) ListComments(c *gin.Context) {
	out, err := h.commentsSvc.ForPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (h *PostsHandler) CreateComment(c *gin.Context) {
	var req postBody
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s := sessionFrom(c)
	if s == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	cm, err := h.commentsSvc.Create(c.Request.Context(), c.Param("id"), s.Identity.ID, s.Identity.Email, req.Content)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cm)
}

// withURL embeds a presigned attachment URL when the post has one and object
// storage is available.
func (h *PostsHandler) withURL(c *gin.Context, p models.Post) gin.H {
	out := gin.H{
		"id":          p.ID,
		"authorId":    p.AuthorID,
		"authorEmail": p.AuthorEmail,
		"content":     p.Content,
		"createdAt":   p.CreatedAt,
		"updatedAt":   p.UpdatedAt,
	}
	if p.AttachmentKey != "" {
		out["attachmentKey"] = p.AttachmentKey
		if h.attachments != nil {
			if url, err := h.attachments.PresignedURL(c.Request.Context(), p.AttachmentKey, time.Hour); err == nil {
				out["attachmentUrl"] = url
			}
		}
	}
	return out
}

func (h *PostsHandler) withURLs(c *gin.Context, ps []models.Post) []gin.H {
	out := make([]gin.H, 0, len(ps))
	for _, p := range ps {
		out = append(out, h.withURL(c, p))
	}
	return out
}
