package repotest

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"devbook/internal/common"
	"devbook/internal/domain/model"
	"devbook/internal/domain/repository"
)

// Users is an in-memory repository.UserRepository.
type Users struct {
	*MemoryStore[model.User]

	contactsMu sync.Mutex
	contacts   map[string]map[string]time.Time
}

var _ repository.UserRepository = (*Users)(nil)

func NewUsers() *Users {
	return &Users{
		MemoryStore: NewMemoryStore(repository.UserTable, []string{"email"}, []string{"username"}),
		contacts:    make(map[string]map[string]time.Time),
	}
}

func (u *Users) findWhere(op string, pred func(*model.User) bool) (*model.User, error) {
	var found *model.User
	u.Each(func(rec *model.User) {
		if found == nil && pred(rec) {
			cp := *rec
			found = &cp
		}
	})
	if found == nil {
		return nil, fmt.Errorf("repotest.Users.%s: %w", op, common.ErrNotFound)
	}
	return found, nil
}

func (u *Users) FindByEmail(_ context.Context, email string) (*model.User, error) {
	return u.findWhere("FindByEmail", func(rec *model.User) bool { return rec.Email == email })
}

func (u *Users) FindByUsername(_ context.Context, username string) (*model.User, error) {
	return u.findWhere("FindByUsername", func(rec *model.User) bool { return rec.Username == username })
}

func (u *Users) FindByIDForUpdate(ctx context.Context, _ *sql.Tx, id string) (*model.User, error) {
	return u.FindByID(ctx, id)
}

func (u *Users) FindByResetToken(_ context.Context, tokenHash string, now time.Time) (*model.User, error) {
	return u.findWhere("FindByResetToken", func(rec *model.User) bool {
		return rec.ResetPasswordToken != nil && *rec.ResetPasswordToken == tokenHash &&
			rec.ResetPasswordTokenExpires != nil && rec.ResetPasswordTokenExpires.After(now)
	})
}

// mutate applies fn to the stored user with the given id.
func (u *Users) mutate(op, id string, fn func(*model.User)) (*model.User, error) {
	var found *model.User
	u.Each(func(rec *model.User) {
		if rec.ID == id {
			fn(rec)
			cp := *rec
			found = &cp
		}
	})
	if found == nil {
		return nil, fmt.Errorf("repotest.Users.%s: %w", op, common.ErrNotFound)
	}
	return found, nil
}

func (u *Users) SetResetToken(_ context.Context, id, tokenHash string, expires time.Time) error {
	_, err := u.mutate("SetResetToken", id, func(rec *model.User) {
		rec.ResetPasswordToken = &tokenHash
		rec.ResetPasswordTokenExpires = &expires
	})
	return err
}

func (u *Users) ClearResetToken(_ context.Context, _ *sql.Tx, id string) error {
	u.mutate("ClearResetToken", id, func(rec *model.User) {
		rec.ResetPasswordToken = nil
		rec.ResetPasswordTokenExpires = nil
	})
	return nil
}

func (u *Users) UpdatePassword(_ context.Context, _ *sql.Tx, id, passwordHash string, changedAt time.Time) error {
	_, err := u.mutate("UpdatePassword", id, func(rec *model.User) {
		rec.Password = passwordHash
		rec.PasswordUpdatedAt = &changedAt
		rec.UpdatedAt = changedAt
		rec.ResetPasswordToken = nil
		rec.ResetPasswordTokenExpires = nil
	})
	return err
}

func (u *Users) SetImage(_ context.Context, id, imageURL string) (*model.User, error) {
	return u.mutate("SetImage", id, func(rec *model.User) { rec.Image = &imageURL })
}

func (u *Users) SetRole(_ context.Context, id, role string) (*model.User, error) {
	return u.mutate("SetRole", id, func(rec *model.User) { rec.Role = role })
}

func (u *Users) Search(_ context.Context, query string) ([]model.User, error) {
	q := strings.ToLower(query)
	out := make([]model.User, 0)
	u.Each(func(rec *model.User) {
		if strings.Contains(strings.ToLower(rec.Name), q) || strings.Contains(strings.ToLower(rec.Username), q) {
			out = append(out, *rec)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (u *Users) ToggleContact(_ context.Context, _ *sql.Tx, userID, contactID string) (bool, error) {
	u.contactsMu.Lock()
	defer u.contactsMu.Unlock()

	if _, ok := u.contacts[userID][contactID]; ok {
		delete(u.contacts[userID], contactID)
		delete(u.contacts[contactID], userID)
		return false, nil
	}
	now := time.Now()
	for _, pair := range [][2]string{{userID, contactID}, {contactID, userID}} {
		if u.contacts[pair[0]] == nil {
			u.contacts[pair[0]] = make(map[string]time.Time)
		}
		u.contacts[pair[0]][pair[1]] = now
	}
	return true, nil
}

func (u *Users) ContactIDs(_ context.Context, userID string) ([]string, error) {
	u.contactsMu.Lock()
	defer u.contactsMu.Unlock()
	ids := make([]string, 0, len(u.contacts[userID]))
	for id := range u.contacts[userID] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (u *Users) PurgeExpiredResetTokens(_ context.Context, now time.Time) (int64, error) {
	var n int64
	u.Each(func(rec *model.User) {
		if rec.ResetPasswordTokenExpires != nil && rec.ResetPasswordTokenExpires.Before(now) {
			rec.ResetPasswordToken = nil
			rec.ResetPasswordTokenExpires = nil
			n++
		}
	})
	return n, nil
}

// Sessions is an in-memory repository.SessionRepository.
type Sessions struct {
	*MemoryStore[model.Session]
}

var _ repository.SessionRepository = (*Sessions)(nil)

func NewSessions() *Sessions {
	return &Sessions{MemoryStore: NewMemoryStore(repository.SessionTable)}
}

func (s *Sessions) CreateForUser(ctx context.Context, _ *sql.Tx, userID string, expires time.Time) (*model.Session, error) {
	return s.Create(ctx, &model.Session{UserID: userID, Expires: expires})
}

func (s *Sessions) DeleteByUserID(_ context.Context, _ *sql.Tx, userID string) (int64, error) {
	return s.DeleteWhere(func(rec *model.Session) bool { return rec.UserID == userID }), nil
}

func (s *Sessions) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	return s.DeleteWhere(func(rec *model.Session) bool { return rec.Expires.Before(now) }), nil
}

// Posts is an in-memory repository.PostRepository. Feed consults Users for
// contacts and authors.
type Posts struct {
	*MemoryStore[model.Post]
	Users *Users
}

var _ repository.PostRepository = (*Posts)(nil)

func NewPosts(users *Users) *Posts {
	return &Posts{MemoryStore: NewMemoryStore(repository.PostTable), Users: users}
}

func (p *Posts) Feed(ctx context.Context, userID string, skip, take int) ([]model.FeedPost, error) {
	contacts, _ := p.Users.ContactIDs(ctx, userID)
	authors := map[string]bool{userID: true}
	for _, id := range contacts {
		authors[id] = true
	}

	var all []model.FeedPost
	p.Each(func(rec *model.Post) {
		if !authors[rec.UserID] {
			return
		}
		fp := model.FeedPost{Post: *rec}
		if author, err := p.Users.FindByID(ctx, rec.UserID); err == nil {
			fp.User = model.PublicUser{ID: author.ID, Name: author.Name, Username: author.Username, Image: author.Image}
		}
		all = append(all, fp)
	})
	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })

	out := make([]model.FeedPost, 0)
	for i := skip; i < len(all) && len(out) < take; i++ {
		out = append(out, all[i])
	}
	return out, nil
}
