package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/triggah61/acent-messenger-backend/internal/middleware"
)

type createPostForm struct {
	Caption string `form:"caption" binding:"max=2000"`
}

// CreatePost POST /api/user/post/createPost (multipart "attachment")
func (h *Handler) CreatePost(c *gin.Context) {
	var input createPostForm
	if err := c.ShouldBind(&input); err != nil {
		bindFailed(c, err)
		return
	}
	fh, _ := c.FormFile("attachment")

	post, err := h.svc.Posts.Create(c.Request.Context(), middleware.CurrentUserID(c), input.Caption, fh)
	if err != nil {
		fail(c, err)
		return
	}
	respond(c, http.StatusCreated, "Post created", post)
}

// Feed GET /api/user/post/feed
func (h *Handler) Feed(c *gin.Context) {
	posts, err := h.svc.Posts.Feed(c.Request.Context(), middleware.CurrentUserID(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, "Feed fetched", posts)
}
