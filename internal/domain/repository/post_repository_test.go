package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPgPostRepository_Feed(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgPostRepository(db)
	now := time.Now()

	cols := []string{"id", "user_id", "body", "created_at", "updated_at", "id", "name", "username", "image", "comments", "likes"}
	mock.ExpectQuery(regexp.QuoteMeta(`FROM posts p`)).
		WithArgs("u1", 0, 10).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("p2", "u2", "from a contact", now, now, "u2", "Grace", "grace", "https://img/g.jpeg", 3, 1).
			AddRow("p1", "u1", "mine", now.Add(-time.Hour), now, "u1", "Ada", "ada", nil, 0, 0))

	posts, err := repo.Feed(context.Background(), "u1", 0, 10)
	require.NoError(t, err)
	require.Len(t, posts, 2)

	assert.Equal(t, "grace", posts[0].User.Username)
	assert.Equal(t, 3, posts[0].CommentsCount)
	assert.Equal(t, 1, posts[0].LikesCount)
	require.NotNil(t, posts[0].User.Image)
	assert.Nil(t, posts[1].User.Image)
}
