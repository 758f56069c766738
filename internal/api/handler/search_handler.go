package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"devbook/internal/app/service"
	"devbook/internal/common"
)

type SearchHandler struct {
	userService *service.UserService
}

func NewSearchHandler(userService *service.UserService) *SearchHandler {
	return &SearchHandler{userService: userService}
}

func (h *SearchHandler) RegisterRoutes(r chi.Router) {
	r.Get("/test", testRoute("Search route secured"))
	r.Post("/", common.Wrap(h.search))
}

// search matches users by name or username.
func (h *SearchHandler) search(w http.ResponseWriter, r *http.Request) error {
	var req service.SearchRequest
	if err := common.DecodeAndValidate(r, &req); err != nil {
		return err
	}
	users, err := h.userService.Search(r.Context(), req)
	if err != nil {
		return err
	}
	common.RespondWithSuccess(w, http.StatusOK, "Results found!", users)
	return nil
}
