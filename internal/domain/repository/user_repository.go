package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"devbook/internal/domain/model"
)

const searchLimit = 50

type UserRepository interface {
	Store[model.User]
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	// FindByIDForUpdate locks the user row until tx ends.
	FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.User, error)
	FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error)
	SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error
	ClearResetToken(ctx context.Context, tx *sql.Tx, id string) error
	UpdatePassword(ctx context.Context, tx *sql.Tx, id, passwordHash string, changedAt time.Time) error
	SetImage(ctx context.Context, id, imageURL string) (*model.User, error)
	SetRole(ctx context.Context, id, role string) (*model.User, error)
	Search(ctx context.Context, query string) ([]model.User, error)
	// ToggleContact connects or disconnects both users and reports whether they are now connected.
	ToggleContact(ctx context.Context, tx *sql.Tx, userID, contactID string) (bool, error)
	ContactIDs(ctx context.Context, userID string) ([]string, error)
	PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error)
}

type pgUserRepository struct {
	*pgStore[model.User]
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{pgStore: newPgStore(db, UserTable)}
}

func (r *pgUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findOne(ctx, nil, "pgUserRepository.FindByEmail", "email", email, false)
}

func (r *pgUserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findOne(ctx, nil, "pgUserRepository.FindByUsername", "username", username, false)
}

func (r *pgUserRepository) FindByIDForUpdate(ctx context.Context, tx *sql.Tx, id string) (*model.User, error) {
	return r.findOne(ctx, tx, "pgUserRepository.FindByIDForUpdate", "id", id, true)
}

func (r *pgUserRepository) FindByResetToken(ctx context.Context, tokenHash string, now time.Time) (*model.User, error) {
	query := fmt.Sprintf(`SELECT %s FROM users
	          WHERE reset_password_token = $1 AND reset_password_token_expires > $2`, UserTable.selectList())
	user := &model.User{}
	if err := r.db.QueryRowContext(ctx, query, tokenHash, now).Scan(UserTable.Fields(user)...); err != nil {
		return nil, dbError("pgUserRepository.FindByResetToken", err)
	}
	return user, nil
}

func (r *pgUserRepository) SetResetToken(ctx context.Context, id, tokenHash string, expires time.Time) error {
	query := `UPDATE users SET reset_password_token = $1, reset_password_token_expires = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, tokenHash, expires, id)
	if err != nil {
		return dbError("pgUserRepository.SetResetToken", err)
	}
	return requireAffected("pgUserRepository.SetResetToken", res)
}

func (r *pgUserRepository) ClearResetToken(ctx context.Context, tx *sql.Tx, id string) error {
	query := `UPDATE users SET reset_password_token = NULL, reset_password_token_expires = NULL WHERE id = $1`
	if _, err := conn(r.db, tx).ExecContext(ctx, query, id); err != nil {
		return dbError("pgUserRepository.ClearResetToken", err)
	}
	return nil
}

func (r *pgUserRepository) UpdatePassword(ctx context.Context, tx *sql.Tx, id, passwordHash string, changedAt time.Time) error {
	query := `UPDATE users
	          SET password = $1, password_updated_at = $2, updated_at = $2,
	              reset_password_token = NULL, reset_password_token_expires = NULL
	          WHERE id = $3`
	res, err := conn(r.db, tx).ExecContext(ctx, query, passwordHash, changedAt, id)
	if err != nil {
		return dbError("pgUserRepository.UpdatePassword", err)
	}
	return requireAffected("pgUserRepository.UpdatePassword", res)
}

func (r *pgUserRepository) SetImage(ctx context.Context, id, imageURL string) (*model.User, error) {
	return r.setColumn(ctx, "pgUserRepository.SetImage", "image", imageURL, id)
}

func (r *pgUserRepository) SetRole(ctx context.Context, id, role string) (*model.User, error) {
	return r.setColumn(ctx, "pgUserRepository.SetRole", "role", role, id)
}

// setColumn updates a column that is not writable through the generic Update.
func (r *pgUserRepository) setColumn(ctx context.Context, op, column string, value interface{}, id string) (*model.User, error) {
	query := fmt.Sprintf("UPDATE users SET %s = $1, updated_at = now() WHERE id = $2 RETURNING %s",
		column, UserTable.selectList())
	user := &model.User{}
	if err := r.db.QueryRowContext(ctx, query, value, id).Scan(UserTable.Fields(user)...); err != nil {
		return nil, dbError(op, err)
	}
	return user, nil
}

func (r *pgUserRepository) Search(ctx context.Context, query string) ([]model.User, error) {
	pattern := "%" + escapeLike(query) + "%"
	q := fmt.Sprintf(`SELECT %s FROM users
	          WHERE name ILIKE $1 OR username ILIKE $1
	          ORDER BY name ASC LIMIT %d`, UserTable.selectList(), searchLimit)
	return r.queryAll(ctx, "pgUserRepository.Search", q, pattern)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *pgUserRepository) ToggleContact(ctx context.Context, tx *sql.Tx, userID, contactID string) (bool, error) {
	q := conn(r.db, tx)
	res, err := q.ExecContext(ctx, `DELETE FROM user_contacts
	          WHERE (user_id = $1 AND contact_id = $2) OR (user_id = $2 AND contact_id = $1)`, userID, contactID)
	if err != nil {
		return false, dbError("pgUserRepository.ToggleContact", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("pgUserRepository.ToggleContact: rows affected: %w", err)
	}
	if removed > 0 {
		return false, nil
	}

	_, err = q.ExecContext(ctx, `INSERT INTO user_contacts (user_id, contact_id) VALUES ($1, $2), ($2, $1)`, userID, contactID)
	if err != nil {
		return false, dbError("pgUserRepository.ToggleContact", err)
	}
	return true, nil
}

func (r *pgUserRepository) ContactIDs(ctx context.Context, userID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT contact_id FROM user_contacts WHERE user_id = $1 ORDER BY created_at ASC`, userID)
	if err != nil {
		return nil, dbError("pgUserRepository.ContactIDs", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgUserRepository.ContactIDs: scan: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, dbError("pgUserRepository.ContactIDs", err)
	}
	return ids, nil
}

func (r *pgUserRepository) PurgeExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE users
	          SET reset_password_token = NULL, reset_password_token_expires = NULL
	          WHERE reset_password_token_expires < $1`, now)
	if err != nil {
		return 0, dbError("pgUserRepository.PurgeExpiredResetTokens", err)
	}
	return res.RowsAffected()
}
