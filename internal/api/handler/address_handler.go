package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"devbook/internal/domain/model"
)

type AddressHandler struct {
	addresses *Records[model.Address]
	protect   func(http.Handler) http.Handler
}

func NewAddressHandler(addresses *Records[model.Address], protect func(http.Handler) http.Handler) *AddressHandler {
	return &AddressHandler{
		addresses: addresses.OwnedBy(func(a *model.Address) *string { return &a.UserID }),
		protect:   protect,
	}
}

func (h *AddressHandler) RegisterRoutes(r chi.Router) {
	r.Get("/test", testRoute("Addresses route secured"))

	r.Group(func(protected chi.Router) {
		protected.Use(h.protect)
		mountOwnedRecords(protected, h.addresses, "user_id",
			CreateRecord[model.Address, CreateAddressRequest](h.addresses),
			UpdateRecord[model.Address, UpdateAddressRequest](h.addresses))
	})
}
