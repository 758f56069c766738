package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"devbook/internal/api/middleware"
	"devbook/internal/app/service"
	"devbook/internal/common"
	"devbook/internal/domain/model"
)

type AuthHandler struct {
	authService *service.AuthService
	sessions    *Records[model.Session]
	protect     func(http.Handler) http.Handler
}

// NewAuthHandler wires the auth routes. protect authenticates the request and
// must leave the current user in the context.
func NewAuthHandler(authService *service.AuthService, sessions *Records[model.Session], protect func(http.Handler) http.Handler) *AuthHandler {
	return &AuthHandler{authService: authService, sessions: sessions, protect: protect}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Get("/test", h.test)
	r.Post("/register", common.Wrap(h.register))
	r.Post("/login", common.Wrap(h.login))
	r.Post("/send-reset-password-token", common.Wrap(h.sendResetPasswordToken))
	r.Patch("/reset-password/{token}", common.Wrap(h.resetPassword))

	r.Group(func(protected chi.Router) {
		protected.Use(h.protect)
		protected.Patch("/update-password", common.Wrap(h.updatePassword))
		protected.Post("/logout", common.Wrap(h.logout))

		protected.Route("/sessions", func(admin chi.Router) {
			admin.Use(middleware.Restrict(model.RoleAdmin))
			admin.Get("/", common.Wrap(h.sessions.readAll))
			admin.Get("/{id}", common.Wrap(h.sessions.read))
			admin.Delete("/{id}", common.Wrap(h.sessions.remove))
		})
	})
}

func (h *AuthHandler) test(w http.ResponseWriter, r *http.Request) {
	common.RespondWithSuccess(w, http.StatusOK, "Auth route secured", nil)
}

func (h *AuthHandler) register(w http.ResponseWriter, r *http.Request) error {
	var req service.RegisterRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		return err
	}
	user, err := h.authService.Register(r.Context(), req)
	if err != nil {
		return err
	}
	common.RespondWithSuccess(w, http.StatusCreated, "Registration successful", user)
	return nil
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) error {
	var req service.LoginRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		return err
	}
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		return err
	}
	common.RespondWithSuccess(w, http.StatusOK, "Login successful!", resp)
	return nil
}

func (h *AuthHandler) sendResetPasswordToken(w http.ResponseWriter, r *http.Request) error {
	var req service.SendResetTokenRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		return err
	}
	if err := h.authService.SendResetPasswordToken(r.Context(), req); err != nil {
		return err
	}
	common.RespondWithSuccess(w, http.StatusOK, "Reset password email sent!", nil)
	return nil
}

func (h *AuthHandler) resetPassword(w http.ResponseWriter, r *http.Request) error {
	var req service.ResetPasswordRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		return err
	}
	if err := h.authService.ResetPassword(r.Context(), chi.URLParam(r, "token"), req); err != nil {
		return err
	}
	common.RespondWithSuccess(w, http.StatusOK, "Password reset!", nil)
	return nil
}

func (h *AuthHandler) updatePassword(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	var req service.UpdatePasswordRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		return err
	}
	if err := h.authService.UpdatePassword(r.Context(), user, req); err != nil {
		return err
	}
	common.RespondWithSuccess(w, http.StatusOK, "Password updated!", nil)
	return nil
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) error {
	session, ok := middleware.CurrentSession(r.Context())
	if !ok {
		return common.Unauthorized("Unauthorized request!", nil)
	}
	if err := h.authService.Logout(r.Context(), session.ID); err != nil {
		return err
	}
	common.RespondWithSuccess(w, http.StatusOK, "Logout successful!", nil)
	return nil
}
