package repository

import (
	"context"
	"database/sql"
	"fmt"

	"devbook/internal/domain/model"
)

type PostRepository interface {
	Store[model.Post]
	// Feed lists posts written by userID or by their contacts, newest first.
	Feed(ctx context.Context, userID string, skip, take int) ([]model.FeedPost, error)
}

type pgPostRepository struct {
	*pgStore[model.Post]
}

func NewPgPostRepository(db *sql.DB) PostRepository {
	return &pgPostRepository{pgStore: newPgStore(db, PostTable)}
}

const feedQuery = `SELECT p.id, p.user_id, p.body, p.created_at, p.updated_at,
	       u.id, u.name, u.username, u.image,
	       (SELECT COUNT(*) FROM comments c WHERE c.post_id = p.id),
	       (SELECT COUNT(*) FROM post_likes l WHERE l.post_id = p.id)
	FROM posts p
	JOIN users u ON u.id = p.user_id
	WHERE p.user_id = $1
	   OR p.user_id IN (SELECT contact_id FROM user_contacts WHERE user_id = $1)
	ORDER BY p.created_at DESC
	OFFSET $2 LIMIT $3`

func (r *pgPostRepository) Feed(ctx context.Context, userID string, skip, take int) ([]model.FeedPost, error) {
	rows, err := r.db.QueryContext(ctx, feedQuery, userID, skip, take)
	if err != nil {
		return nil, dbError("pgPostRepository.Feed", err)
	}
	defer rows.Close()

	posts := make([]model.FeedPost, 0)
	for rows.Next() {
		var p model.FeedPost
		err := rows.Scan(
			&p.ID, &p.UserID, &p.Body, &p.CreatedAt, &p.UpdatedAt,
			&p.User.ID, &p.User.Name, &p.User.Username, &p.User.Image,
			&p.CommentsCount, &p.LikesCount,
		)
		if err != nil {
			return nil, fmt.Errorf("pgPostRepository.Feed: scan: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("pgPostRepository.Feed", err)
	}
	return posts, nil
}
