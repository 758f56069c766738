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

func TestPgSessionRepository_CreateForUserInTx(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgSessionRepository(db)
	expires := time.Now().Add(24 * time.Hour)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE user_id = $1`)).
		WithArgs("u1").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO sessions (user_id, expires) VALUES ($1, $2) RETURNING id, user_id, expires, created_at`)).
		WithArgs("u1", expires).
		WillReturnRows(sqlmock.NewRows(SessionTable.Columns).AddRow("s1", "u1", expires, time.Now()))
	mock.ExpectCommit()

	tx, err := db.Begin()
	require.NoError(t, err)

	removed, err := repo.DeleteByUserID(context.Background(), tx, "u1")
	require.NoError(t, err)
	assert.EqualValues(t, 2, removed)

	session, err := repo.CreateForUser(context.Background(), tx, "u1", expires)
	require.NoError(t, err)
	assert.Equal(t, "s1", session.ID)
	assert.True(t, expires.Equal(session.Expires))

	require.NoError(t, tx.Commit())
}

func TestPgSessionRepository_DeleteExpired(t *testing.T) {
	db, mock := newMock(t)
	repo := NewPgSessionRepository(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM sessions WHERE expires < $1`)).
		WithArgs(sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	n, err := repo.DeleteExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 3, n)
}
