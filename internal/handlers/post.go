package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/brandpulse-backend/internal/logger"
	"github.com/yungbote/brandpulse-backend/internal/repos"
	"github.com/yungbote/brandpulse-backend/internal/requestdata"
	"github.com/yungbote/brandpulse-backend/internal/types"
)

type PostHandler struct {
	log   *logger.Logger
	posts repos.PostRepo
}

func NewPostHandler(log *logger.Logger, posts repos.PostRepo) *PostHandler {
	return &PostHandler{
		log:   log.With("handler", "PostHandler"),
		posts: posts,
	}
}

type postRequest struct {
	Platform        string `json:"platform"`
	Content         string `json:"content"`
	VariationNumber int    `json:"variation_number"`
}

// POST /api/posts
// Accepts the original post plus its variations in one call. Variation
// number 0 is the original.
func (h *PostHandler) Create(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}

	var req struct {
		Posts []postRequest `json:"posts"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || len(req.Posts) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	posts := make([]*types.Post, 0, len(req.Posts))
	for _, p := range req.Posts {
		if p.Content == "" {
			RespondError(c, http.StatusUnprocessableEntity, "post_invalid", fmt.Errorf("post content is required"))
			return
		}
		if p.VariationNumber < 0 {
			RespondError(c, http.StatusUnprocessableEntity, "post_invalid", fmt.Errorf("variation number must be >= 0"))
			return
		}
		posts = append(posts, &types.Post{
			ID:              uuid.New(),
			UserID:          rd.UserID,
			Platform:        p.Platform,
			Content:         p.Content,
			VariationNumber: p.VariationNumber,
			Status:          "draft",
		})
	}

	created, err := h.posts.Create(c.Request.Context(), nil, posts)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "post_create_failed", err)
		return
	}
	h.log.Info("Posts created", "user_id", rd.UserID, "count", len(created))
	RespondOK(c, gin.H{"posts": created})
}

// GET /api/posts
func (h *PostHandler) List(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.UserID == uuid.Nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	posts, err := h.posts.GetByUser(c.Request.Context(), nil, rd.UserID)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "post_list_failed", err)
		return
	}
	RespondOK(c, gin.H{"posts": posts})
}
