package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"devbook/internal/domain/model"
)

type SessionRepository interface {
	Store[model.Session]
	CreateForUser(ctx context.Context, tx *sql.Tx, userID string, expires time.Time) (*model.Session, error)
	DeleteByUserID(ctx context.Context, tx *sql.Tx, userID string) (int64, error)
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type pgSessionRepository struct {
	*pgStore[model.Session]
}

func NewPgSessionRepository(db *sql.DB) SessionRepository {
	return &pgSessionRepository{pgStore: newPgStore(db, SessionTable)}
}

func (r *pgSessionRepository) CreateForUser(ctx context.Context, tx *sql.Tx, userID string, expires time.Time) (*model.Session, error) {
	query := fmt.Sprintf("INSERT INTO sessions (user_id, expires) VALUES ($1, $2) RETURNING %s", SessionTable.selectList())
	session := &model.Session{}
	if err := conn(r.db, tx).QueryRowContext(ctx, query, userID, expires).Scan(SessionTable.Fields(session)...); err != nil {
		return nil, dbError("pgSessionRepository.CreateForUser", err)
	}
	return session, nil
}

func (r *pgSessionRepository) DeleteByUserID(ctx context.Context, tx *sql.Tx, userID string) (int64, error) {
	res, err := conn(r.db, tx).ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID)
	if err != nil {
		return 0, dbError("pgSessionRepository.DeleteByUserID", err)
	}
	return res.RowsAffected()
}

func (r *pgSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires < $1`, now)
	if err != nil {
		return 0, dbError("pgSessionRepository.DeleteExpired", err)
	}
	return res.RowsAffected()
}
