package handler

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"devbook/internal/api/middleware"
	"devbook/internal/app/service"
	"devbook/internal/common"
	"devbook/internal/domain/model"
)

const msgMissingItems = "Missing request items!"

type UserHandler struct {
	authService  *service.AuthService
	userService  *service.UserService
	imageService *service.ImageService
	users        *Records[model.User]
	educations   *Records[model.UserEducation]
	experiences  *Records[model.UserExperience]
	protect      func(http.Handler) http.Handler
	maxImage     int64
}

type UserHandlerDeps struct {
	AuthService  *service.AuthService
	UserService  *service.UserService
	ImageService *service.ImageService
	Users        *Records[model.User]
	Educations   *Records[model.UserEducation]
	Experiences  *Records[model.UserExperience]
	Protect      func(http.Handler) http.Handler
	// MaxImageBytes bounds the multipart form held in memory.
	MaxImageBytes int64
}

func NewUserHandler(deps UserHandlerDeps) *UserHandler {
	return &UserHandler{
		authService:  deps.AuthService,
		userService:  deps.UserService,
		imageService: deps.ImageService,
		users:        deps.Users,
		educations:   deps.Educations.OwnedBy(func(e *model.UserEducation) *string { return &e.UserID }),
		experiences:  deps.Experiences.OwnedBy(func(e *model.UserExperience) *string { return &e.UserID }),
		protect:      deps.Protect,
		maxImage:     deps.MaxImageBytes,
	}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Get("/test", testRoute("Users route secured"))
	r.Get("/username/{username}", common.Wrap(h.readByUsername))

	r.Group(func(protected chi.Router) {
		protected.Use(h.protect)

		protected.Get("/current-user", common.Wrap(h.readCurrentUser))
		protected.Get("/current-user/feed", common.Wrap(h.readCurrentUserFeed))
		protected.Patch("/current-user/contacts/{id}", common.Wrap(h.toggleContact))
		protected.Patch("/current-user/image", common.Wrap(h.updateCurrentUserImage))

		protected.Route("/educations", func(er chi.Router) {
			mountOwnedRecords(er, h.educations, "user_id",
				CreateRecord[model.UserEducation, CreateEducationRequest](h.educations),
				UpdateRecord[model.UserEducation, UpdateEducationRequest](h.educations))
		})
		protected.Route("/experiences", func(er chi.Router) {
			mountOwnedRecords(er, h.experiences, "user_id",
				CreateRecord[model.UserExperience, CreateExperienceRequest](h.experiences),
				UpdateRecord[model.UserExperience, UpdateExperienceRequest](h.experiences))
		})

		owned := middleware.RecordOwnership(h.users.store, "id")
		admin := middleware.Restrict(model.RoleAdmin)

		protected.With(admin).Post("/", common.Wrap(h.createUser))
		protected.Get("/", common.Wrap(h.users.readAll))
		protected.Get("/{id}", common.Wrap(h.users.read))
		protected.With(owned).Patch("/{id}", UpdateRecord[model.User, UpdateUserRequest](h.users))
		protected.With(owned).Delete("/{id}", common.Wrap(h.users.remove))
		protected.With(admin).Patch("/{id}/role", common.Wrap(h.setRole))
	})
}

func (h *UserHandler) readByUsername(w http.ResponseWriter, r *http.Request) error {
	user, err := h.userService.FindByUsername(r.Context(), chi.URLParam(r, "username"))
	if err != nil {
		return err
	}
	common.RespondWithSuccess(w, http.StatusOK, "User found!", user)
	return nil
}

func (h *UserHandler) readCurrentUser(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	current, err := h.userService.CurrentUser(r.Context(), user)
	if err != nil {
		return err
	}
	common.RespondWithSuccess(w, http.StatusOK, "Current user found!", current)
	return nil
}

func (h *UserHandler) readCurrentUserFeed(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	// Unparsable values fall back to the defaults.
	skip, _ := strconv.Atoi(r.URL.Query().Get("skip"))
	take, _ := strconv.Atoi(r.URL.Query().Get("take"))

	posts, err := h.userService.Feed(r.Context(), user.ID, skip, take)
	if err != nil {
		return err
	}
	common.RespondWithSuccess(w, http.StatusOK, "Current user feed found!", posts)
	return nil
}

func (h *UserHandler) toggleContact(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}
	current, err := h.userService.ToggleContact(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		return err
	}
	common.RespondWithSuccess(w, http.StatusOK, "Contact toggled!", current)
	return nil
}

func (h *UserHandler) updateCurrentUserImage(w http.ResponseWriter, r *http.Request) error {
	user, err := currentUser(r)
	if err != nil {
		return err
	}

	if err := r.ParseMultipartForm(h.maxImage); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return common.NewAppError(http.StatusRequestEntityTooLarge, "Request body too large!", nil, common.ErrBadRequest)
		}
		return common.BadRequest(msgMissingItems, nil)
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		return common.BadRequest(msgMissingItems, nil)
	}
	defer file.Close()
	// Anything that is not declared as an image is treated as absent.
	if !strings.HasPrefix(header.Header.Get("Content-Type"), "image/") {
		return common.BadRequest(msgMissingItems, nil)
	}

	updated, err := h.imageService.UploadUserImage(r.Context(), user.ID, header.Filename, file)
	if err != nil {
		return err
	}
	common.RespondWithSuccess(w, http.StatusOK, msgRecordUpdated, updated)
	return nil
}

// createUser lets administrators add users. The password is hashed like on registration.
func (h *UserHandler) createUser(w http.ResponseWriter, r *http.Request) error {
	var req CreateUserRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		return err
	}
	user, err := h.authService.CreateUser(r.Context(), req.RegisterRequest, req.Role)
	if err != nil {
		return err
	}
	common.RespondWithSuccess(w, http.StatusCreated, msgRecordCreated, user)
	return nil
}

func (h *UserHandler) setRole(w http.ResponseWriter, r *http.Request) error {
	var req service.RoleRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		return err
	}
	user, err := h.userService.SetRole(r.Context(), chi.URLParam(r, "id"), req)
	if err != nil {
		return err
	}
	common.RespondWithSuccess(w, http.StatusOK, msgRecordUpdated, user)
	return nil
}
