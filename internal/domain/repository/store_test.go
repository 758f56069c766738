package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"devbook/internal/common"
	"devbook/internal/domain/model"
)

var postColumns = []string{"id", "user_id", "body", "created_at", "updated_at"}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return db, mock
}

func TestPgStore_Create(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, PostTable)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(
		`INSERT INTO posts (user_id, body) VALUES ($1, $2) RETURNING id, user_id, body, created_at, updated_at`)).
		WithArgs("u1", "hello").
		WillReturnRows(sqlmock.NewRows(postColumns).AddRow("p1", "u1", "hello", now, now))

	post, err := store.Create(context.Background(), &model.Post{UserID: "u1", Body: "hello"})
	require.NoError(t, err)
	assert.Equal(t, "p1", post.ID)
	assert.Equal(t, "hello", post.Body)
	assert.True(t, now.Equal(post.CreatedAt))
}

func TestPgStore_CreateUniqueViolation(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, PostLikeTable)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO post_likes (user_id, post_id)`)).
		WithArgs("u1", "p1").
		WillReturnError(&pgconn.PgError{Code: "23505", TableName: "post_likes", ConstraintName: "post_likes_user_id_post_id_key"})

	_, err := store.Create(context.Background(), &model.PostLike{UserID: "u1", PostID: "p1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, common.ErrConflict)

	var pgErr *pgconn.PgError
	assert.ErrorAs(t, err, &pgErr)
}

func TestPgStore_FindByID(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, PostTable)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, body, created_at, updated_at FROM posts WHERE id = $1`)).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows(postColumns).AddRow("p1", "u1", "hello", now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, body, created_at, updated_at FROM posts WHERE id = $1`)).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(postColumns))

	post, err := store.FindByID(context.Background(), "p1")
	require.NoError(t, err)
	assert.Equal(t, "u1", post.UserID)

	_, err = store.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestPgStore_FindAll(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, PostTable)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, body, created_at, updated_at FROM posts ORDER BY created_at DESC`)).
		WillReturnRows(sqlmock.NewRows(postColumns))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM posts WHERE user_id = $1 ORDER BY created_at DESC`)).
		WithArgs("u1").
		WillReturnRows(sqlmock.NewRows(postColumns).
			AddRow("p2", "u1", "second", now, now).
			AddRow("p1", "u1", "first", now, now))

	all, err := store.FindAll(context.Background(), nil)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)

	mine, err := store.FindAll(context.Background(), Filter{"user_id": "u1"})
	require.NoError(t, err)
	require.Len(t, mine, 2)
	assert.Equal(t, "p2", mine[0].ID)

	_, err = store.FindAll(context.Background(), Filter{"password": "x"})
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestPgStore_Update(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, PostTable)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(
		`UPDATE posts SET body = $1, updated_at = $2 WHERE id = $3 RETURNING id, user_id, body, created_at, updated_at`)).
		WithArgs("edited", sqlmock.AnyArg(), "p1").
		WillReturnRows(sqlmock.NewRows(postColumns).AddRow("p1", "u1", "edited", now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE posts SET body = $1, updated_at = $2 WHERE id = $3`)).
		WithArgs("edited", sqlmock.AnyArg(), "missing").
		WillReturnRows(sqlmock.NewRows(postColumns))

	post, err := store.Update(context.Background(), "p1", Fields{"body": "edited", "updated_at": now})
	require.NoError(t, err)
	assert.Equal(t, "edited", post.Body)

	_, err = store.Update(context.Background(), "missing", Fields{"body": "edited", "updated_at": now})
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.Update(context.Background(), "p1", Fields{"user_id": "someone-else"})
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestPgStore_Delete(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, PostTable)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM posts WHERE id = $1`)).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM posts WHERE id = $1`)).
		WithArgs("p1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, store.Delete(context.Background(), "p1"))
	assert.ErrorIs(t, store.Delete(context.Background(), "p1"), common.ErrNotFound)
}

func TestPgStore_Owner(t *testing.T) {
	db, mock := newMock(t)
	store := NewStore(db, PostTable)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM posts WHERE id = $1`)).
		WithArgs("p1").
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow("u1"))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT user_id FROM posts WHERE id = $1`)).
		WithArgs("not-a-uuid").
		WillReturnError(&pgconn.PgError{Code: "22P02"})

	owner, err := store.Owner(context.Background(), "p1", "user_id")
	require.NoError(t, err)
	assert.Equal(t, "u1", owner)

	_, err = store.Owner(context.Background(), "not-a-uuid", "user_id")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.Owner(context.Background(), "p1", "nope")
	assert.ErrorIs(t, err, common.ErrBadRequest)
}

func TestTable_Field(t *testing.T) {
	p := &model.Post{UserID: "u1"}
	ptr, ok := PostTable.Field(p, "user_id").(*string)
	require.True(t, ok)
	assert.Equal(t, "u1", *ptr)
	assert.Nil(t, PostTable.Field(p, "missing"))
}
