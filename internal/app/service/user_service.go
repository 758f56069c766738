package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"devbook/internal/common"
	"devbook/internal/domain/model"
	"devbook/internal/domain/repository"
)

const (
	defaultFeedTake = 10
	maxFeedTake     = 50
)

type UserService struct {
	db    *sql.DB
	users repository.UserRepository
	posts repository.PostRepository
}

func NewUserService(db *sql.DB, users repository.UserRepository, posts repository.PostRepository) *UserService {
	return &UserService{db: db, users: users, posts: posts}
}

type SearchRequest struct {
	Query string `json:"query" validate:"required,min=3,max=100"`
}

type RoleRequest struct {
	Role string `json:"role" validate:"required,oneof=USER ADMIN"`
}

func (s *UserService) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NotFound("User not found!", nil)
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return user, nil
}

// CurrentUser returns the user with their contact ids.
func (s *UserService) CurrentUser(ctx context.Context, user *model.User) (*model.CurrentUser, error) {
	contacts, err := s.users.ContactIDs(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts: %w", err)
	}
	return &model.CurrentUser{User: *user, Contacts: contacts}, nil
}

// Feed pages through the posts of the user and their contacts. A missing take
// uses the default page size and larger ones are capped at 50.
func (s *UserService) Feed(ctx context.Context, userID string, skip, take int) ([]model.FeedPost, error) {
	if skip < 0 {
		skip = 0
	}
	if take <= 0 {
		take = defaultFeedTake
	}
	take = min(take, maxFeedTake)
	posts, err := s.posts.Feed(ctx, userID, skip, take)
	if err != nil {
		return nil, fmt.Errorf("failed to load feed: %w", err)
	}
	return posts, nil
}

// ToggleContact connects the two users, or disconnects them if they already are.
func (s *UserService) ToggleContact(ctx context.Context, user *model.User, contactID string) (*model.CurrentUser, error) {
	if contactID == user.ID {
		return nil, common.BadRequest("Cannot add yourself as a contact!", nil)
	}
	if _, err := s.users.FindByID(ctx, contactID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NotFound("User not found!", nil)
		}
		return nil, fmt.Errorf("failed to find contact: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	if _, err := s.users.ToggleContact(ctx, tx, user.ID, contactID); err != nil {
		return nil, fmt.Errorf("failed to toggle contact: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit contact toggle: %w", err)
	}
	return s.CurrentUser(ctx, user)
}

func (s *UserService) Search(ctx context.Context, req SearchRequest) ([]model.User, error) {
	users, err := s.users.Search(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	if len(users) == 0 {
		return nil, common.NotFound("Results not found!", nil)
	}
	return users, nil
}

func (s *UserService) SetRole(ctx context.Context, id string, req RoleRequest) (*model.User, error) {
	user, err := s.users.SetRole(ctx, id, req.Role)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.NotFound("User not found!", nil)
		}
		return nil, fmt.Errorf("failed to set role: %w", err)
	}
	return user, nil
}
