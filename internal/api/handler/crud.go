package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"devbook/internal/api/middleware"
	"devbook/internal/common"
	"devbook/internal/domain/model"
	"devbook/internal/domain/repository"
)

const (
	msgRecordCreated  = "Record created!"
	msgRecordFound    = "Record found!"
	msgRecordsFound   = "All records found!"
	msgRecordUpdated  = "Updated record!"
	msgRecordNotFound = "No record found with that id!"
)

// Creator is a validated request body that becomes a new record.
type Creator[T any] interface {
	ToRecord() *T
}

// Patcher is a validated request body that becomes a column patch.
type Patcher interface {
	Fields() repository.Fields
}

// Records serves the generic record operations for one entity.
type Records[T any] struct {
	store repository.Store[T]
	owner func(*T) *string
	now   func() time.Time
}

func NewRecords[T any](store repository.Store[T]) *Records[T] {
	return &Records[T]{store: store, now: time.Now}
}

// OwnedBy makes new records default to the current user as owner when the
// body leaves field empty.
func (rs *Records[T]) OwnedBy(field func(*T) *string) *Records[T] {
	rs.owner = field
	return rs
}

// CreateRecord decodes and validates a C, then stores the record it describes.
func CreateRecord[T any, C Creator[T]](rs *Records[T]) http.HandlerFunc {
	return common.Wrap(func(w http.ResponseWriter, r *http.Request) error {
		var in C
		if err := common.DecodeAndValidate(r, &in); err != nil {
			return err
		}
		rec := in.ToRecord()
		if rs.owner != nil {
			if id := rs.owner(rec); *id == "" {
				if user, ok := middleware.CurrentUser(r.Context()); ok {
					*id = user.ID
				}
			}
		}

		created, err := rs.store.Create(r.Context(), rec)
		if err != nil {
			return err
		}
		common.RespondWithSuccess(w, http.StatusCreated, msgRecordCreated, created)
		return nil
	})
}

func (rs *Records[T]) read(w http.ResponseWriter, r *http.Request) error {
	rec, err := rs.store.FindByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		return notFoundAs(err, msgRecordNotFound)
	}
	common.RespondWithSuccess(w, http.StatusOK, msgRecordFound, rec)
	return nil
}

func (rs *Records[T]) readAll(w http.ResponseWriter, r *http.Request) error {
	recs, err := rs.store.FindAll(r.Context(), nil)
	if err != nil {
		return err
	}
	common.RespondWithSuccess(w, http.StatusOK, msgRecordsFound, recs)
	return nil
}

// UpdateRecord decodes and validates a U and applies its patch. updated_at is
// always set by the server.
func UpdateRecord[T any, U Patcher](rs *Records[T]) http.HandlerFunc {
	return common.Wrap(func(w http.ResponseWriter, r *http.Request) error {
		var in U
		if err := common.DecodeAndValidate(r, &in); err != nil {
			return err
		}
		fields := in.Fields()
		if fields == nil {
			fields = repository.Fields{}
		}
		fields["updated_at"] = rs.now()

		updated, err := rs.store.Update(r.Context(), chi.URLParam(r, "id"), fields)
		if err != nil {
			return notFoundAs(err, msgRecordNotFound)
		}
		common.RespondWithSuccess(w, http.StatusOK, msgRecordUpdated, updated)
		return nil
	})
}

// remove answers 204 with an empty body.
func (rs *Records[T]) remove(w http.ResponseWriter, r *http.Request) error {
	if err := rs.store.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		return notFoundAs(err, msgRecordNotFound)
	}
	common.RespondNoContent(w)
	return nil
}

// mountOwnedRecords registers the record routes shared by user-owned entities.
// New records may only name the current user; existing ones may only be
// changed by the user stored in ownerColumn. update is nil for entities that
// cannot be edited.
func mountOwnedRecords[T any](r chi.Router, rs *Records[T], ownerColumn string, create, update http.HandlerFunc) {
	owned := middleware.RecordOwnership(rs.store, ownerColumn)

	r.With(middleware.RecordCreation).Post("/", create)
	r.Get("/", common.Wrap(rs.readAll))
	r.Get("/{id}", common.Wrap(rs.read))
	if update != nil {
		r.With(owned).Patch("/{id}", update)
	}
	r.With(owned).Delete("/{id}", common.Wrap(rs.remove))
}

func notFoundAs(err error, message string) error {
	if errors.Is(err, common.ErrNotFound) {
		return common.NotFound(message, nil)
	}
	return err
}

func testRoute(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithJSON(w, http.StatusOK, map[string]string{"message": message})
	}
}

func currentUser(r *http.Request) (*model.User, error) {
	user, ok := middleware.CurrentUser(r.Context())
	if !ok {
		return nil, common.Unauthorized("Unauthorized request!", nil)
	}
	return user, nil
}
