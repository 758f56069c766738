package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"devbook/internal/common"
	"devbook/internal/common/security"
	"devbook/internal/domain/model"
	"devbook/internal/domain/repository"
	"devbook/internal/platform/logger"
	"devbook/internal/platform/mailer"
	"devbook/internal/platform/metrics"
)

const (
	msgInvalidCredentials = "Email and/or password are incorrect."
	msgResetTokenInvalid  = "Token is invalid or expired."
	msgResetMailFailed    = "There was a problem sending the email, please try again later!"
)

type AuthConfig struct {
	SessionTTL    time.Duration
	ResetTokenTTL time.Duration
	FrontendURL   string
}

type AuthService struct {
	db       *sql.DB
	users    repository.UserRepository
	sessions repository.SessionRepository
	tokens   *security.TokenIssuer
	mail     mailer.Mailer
	cfg      AuthConfig
	now      func() time.Time
	log      zerolog.Logger
}

func NewAuthService(
	db *sql.DB,
	users repository.UserRepository,
	sessions repository.SessionRepository,
	tokens *security.TokenIssuer,
	mail mailer.Mailer,
	cfg AuthConfig,
) *AuthService {
	return &AuthService{
		db:       db,
		users:    users,
		sessions: sessions,
		tokens:   tokens,
		mail:     mail,
		cfg:      cfg,
		now:      time.Now,
		log:      logger.WithComponent("auth"),
	}
}

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=3,max=100,fullname"`
	Email    string `json:"email" validate:"required,email,max=100"`
	Username string `json:"username" validate:"required,min=4,max=15"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=100"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

type LoginResponse struct {
	JWT string `json:"jwt"`
}

type SendResetTokenRequest struct {
	Email string `json:"email" validate:"required,email,max=100"`
}

type ResetPasswordRequest struct {
	Password string `json:"password" validate:"required,min=8,max=100"`
}

type UpdatePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=8,max=100"`
}

// Register creates a user with the USER role. Email and username must both be unused.
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*model.User, error) {
	return s.createUser(ctx, req, model.RoleUser)
}

// CreateUser is Register for administrators, who may choose the role.
func (s *AuthService) CreateUser(ctx context.Context, req RegisterRequest, role string) (*model.User, error) {
	if role == "" {
		role = model.RoleUser
	}
	return s.createUser(ctx, req, role)
}

func (s *AuthService) createUser(ctx context.Context, req RegisterRequest, role string) (*model.User, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))

	duplicates := map[string]string{}
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		duplicates["email"] = "Email in use"
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}
	if _, err := s.users.FindByUsername(ctx, req.Username); err == nil {
		duplicates["username"] = "Username in use"
	} else if !errors.Is(err, common.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if len(duplicates) > 0 {
		return nil, common.BadRequest("Duplicate field value(s)", duplicates)
	}

	hashedPassword, err := security.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user, err := s.users.Create(ctx, &model.User{
		Name:     strings.TrimSpace(req.Name),
		Email:    email,
		Username: req.Username,
		Password: hashedPassword,
		Role:     role,
	})
	if err != nil {
		// A concurrent registration won the race for the same email or username.
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login replaces every session of the user with a new one and returns a signed token for it.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*LoginResponse, error) {
	invalid := common.Unauthorized("Invalid credentials!", map[string]string{
		"email":    msgInvalidCredentials,
		"password": msgInvalidCredentials,
	})

	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			metrics.LoginsTotal.WithLabelValues("invalid").Inc()
			return nil, invalid
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if !security.CheckPasswordHash(req.Password, user.Password) {
		metrics.LoginsTotal.WithLabelValues("invalid").Inc()
		return nil, invalid
	}

	var session *model.Session
	err = s.inTx(ctx, func(tx *sql.Tx) error {
		// Concurrent logins for the same user serialize on this row lock.
		if _, err := s.users.FindByIDForUpdate(ctx, tx, user.ID); err != nil {
			return err
		}
		if _, err := s.sessions.DeleteByUserID(ctx, tx, user.ID); err != nil {
			return err
		}
		if err := s.users.ClearResetToken(ctx, tx, user.ID); err != nil {
			return err
		}
		session, err = s.sessions.CreateForUser(ctx, tx, user.ID, s.now().Add(s.cfg.SessionTTL))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.tokens.Issue(session.ID, session.Expires)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	metrics.LoginsTotal.WithLabelValues("success").Inc()
	s.log.Info().Str("user_id", user.ID).Str("session_id", session.ID).Msg("user logged in")
	return &LoginResponse{JWT: token}, nil
}

// Logout deletes the session the request was authenticated with.
func (s *AuthService) Logout(ctx context.Context, sessionID string) error {
	if err := s.sessions.Delete(ctx, sessionID); err != nil && !errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// SendResetPasswordToken stores a hashed reset token for the user and emails the raw token.
func (s *AuthService) SendResetPasswordToken(ctx context.Context, req SendResetTokenRequest) error {
	user, err := s.users.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.NotFound("User not found!", map[string]string{"email": "No user found with email!"})
		}
		return fmt.Errorf("failed to find user: %w", err)
	}

	token, hash, err := security.NewResetToken()
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, user.ID, hash, s.now().Add(s.cfg.ResetTokenTTL)); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := strings.TrimRight(s.cfg.FrontendURL, "/") + "/reset-password/?token=" + token
	if err := s.mail.Send(ctx, mailer.ResetPasswordMessage(user.Email, resetURL)); err != nil {
		if clearErr := s.users.ClearResetToken(ctx, nil, user.ID); clearErr != nil {
			s.log.Error().Err(clearErr).Str("user_id", user.ID).Msg("failed to clear reset token")
		}
		return common.Internal(msgResetMailFailed, err)
	}
	return nil
}

// ResetPassword sets a new password for the holder of a valid reset token and
// signs the user out everywhere.
func (s *AuthService) ResetPassword(ctx context.Context, token string, req ResetPasswordRequest) error {
	user, err := s.users.FindByResetToken(ctx, security.HashResetToken(token), s.now())
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return common.Unauthorized(msgResetTokenInvalid, nil)
		}
		return fmt.Errorf("failed to find reset token: %w", err)
	}
	return s.changePassword(ctx, user.ID, req.Password, true)
}

// UpdatePassword changes the password of an authenticated user after checking the current one.
func (s *AuthService) UpdatePassword(ctx context.Context, user *model.User, req UpdatePasswordRequest) error {
	if !security.CheckPasswordHash(req.CurrentPassword, user.Password) {
		return common.Unauthorized("Unauthorized request!", map[string]string{
			"currentPassword": "Current password is incorrect",
		})
	}
	return s.changePassword(ctx, user.ID, req.NewPassword, false)
}

func (s *AuthService) changePassword(ctx context.Context, userID, password string, revokeSessions bool) error {
	hashedPassword, err := security.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return s.inTx(ctx, func(tx *sql.Tx) error {
		if err := s.users.UpdatePassword(ctx, tx, userID, hashedPassword, s.now()); err != nil {
			return err
		}
		if !revokeSessions {
			return nil
		}
		_, err := s.sessions.DeleteByUserID(ctx, tx, userID)
		return err
	})
}

func (s *AuthService) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Rollback if not committed

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}
