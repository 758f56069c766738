package model

import "time"

type Post struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Comment struct {
	ID              string    `json:"id"`
	UserID          string    `json:"userId"`
	PostID          string    `json:"postId"`
	ParentCommentID *string   `json:"parentCommentId"`
	Body            string    `json:"body"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

type PostLike struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	PostID    string    `json:"postId"`
	CreatedAt time.Time `json:"createdAt"`
}

type CommentLike struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	CommentID string    `json:"commentId"`
	CreatedAt time.Time `json:"createdAt"`
}

// FeedPost is a post as listed in a user's feed.
type FeedPost struct {
	Post
	User          PublicUser `json:"user"`
	CommentsCount int        `json:"commentsCount"`
	LikesCount    int        `json:"likesCount"`
}
