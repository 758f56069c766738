package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"devbook/internal/domain/model"
)

type PostHandler struct {
	posts        *Records[model.Post]
	comments     *Records[model.Comment]
	postLikes    *Records[model.PostLike]
	commentLikes *Records[model.CommentLike]
	protect      func(http.Handler) http.Handler
}

func NewPostHandler(
	posts *Records[model.Post],
	comments *Records[model.Comment],
	postLikes *Records[model.PostLike],
	commentLikes *Records[model.CommentLike],
	protect func(http.Handler) http.Handler,
) *PostHandler {
	return &PostHandler{
		posts:        posts.OwnedBy(func(p *model.Post) *string { return &p.UserID }),
		comments:     comments.OwnedBy(func(c *model.Comment) *string { return &c.UserID }),
		postLikes:    postLikes.OwnedBy(func(l *model.PostLike) *string { return &l.UserID }),
		commentLikes: commentLikes.OwnedBy(func(l *model.CommentLike) *string { return &l.UserID }),
		protect:      protect,
	}
}

func (h *PostHandler) RegisterRoutes(r chi.Router) {
	r.Get("/test", testRoute("Posts route secured"))

	r.Group(func(protected chi.Router) {
		protected.Use(h.protect)

		protected.Route("/comments", func(cr chi.Router) {
			mountOwnedRecords(cr, h.comments, "user_id",
				CreateRecord[model.Comment, CreateCommentRequest](h.comments),
				UpdateRecord[model.Comment, UpdateBodyRequest](h.comments))
		})
		protected.Route("/post-likes", func(lr chi.Router) {
			mountOwnedRecords(lr, h.postLikes, "user_id",
				CreateRecord[model.PostLike, CreatePostLikeRequest](h.postLikes), nil)
		})
		protected.Route("/comment-likes", func(lr chi.Router) {
			mountOwnedRecords(lr, h.commentLikes, "user_id",
				CreateRecord[model.CommentLike, CreateCommentLikeRequest](h.commentLikes), nil)
		})
		mountOwnedRecords(protected, h.posts, "user_id",
			CreateRecord[model.Post, CreatePostRequest](h.posts),
			UpdateRecord[model.Post, UpdateBodyRequest](h.posts))
	})
}
