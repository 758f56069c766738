package handler

import (
	"strings"

	"devbook/internal/app/service"
	"devbook/internal/domain/model"
	"devbook/internal/domain/repository"
)

// patch adds col to fields when v was sent.
func patch[V any](fields repository.Fields, col string, v *V) {
	if v != nil {
		fields[col] = *v
	}
}

type CreateUserRequest struct {
	service.RegisterRequest
	Role string `json:"role" validate:"omitempty,oneof=USER ADMIN"`
}

type UpdateUserRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=3,max=100,fullname"`
	Email    *string `json:"email" validate:"omitempty,email,max=100"`
	Username *string `json:"username" validate:"omitempty,min=4,max=15"`
	Headline *string `json:"headline" validate:"omitempty,max=100"`
	Bio      *string `json:"bio" validate:"omitempty,max=1000"`
}

func (in UpdateUserRequest) Fields() repository.Fields {
	f := repository.Fields{}
	patch(f, "name", in.Name)
	if in.Email != nil {
		f["email"] = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	patch(f, "username", in.Username)
	patch(f, "headline", in.Headline)
	patch(f, "bio", in.Bio)
	return f
}

type CreateEducationRequest struct {
	UserID       string  `json:"userId" validate:"omitempty,uuid"`
	School       string  `json:"school" validate:"required,max=100"`
	Degree       string  `json:"degree" validate:"required,max=100"`
	FieldOfStudy *string `json:"fieldOfStudy" validate:"omitempty,max=100"`
	StartYear    string  `json:"startYear" validate:"required,len=4,pastyear"`
	EndYear      *string `json:"endYear" validate:"omitempty,len=4,pastyear"`
	Description  *string `json:"description" validate:"omitempty,max=1000"`
}

func (in CreateEducationRequest) ToRecord() *model.UserEducation {
	return &model.UserEducation{
		UserID:       in.UserID,
		School:       in.School,
		Degree:       in.Degree,
		FieldOfStudy: in.FieldOfStudy,
		StartYear:    in.StartYear,
		EndYear:      in.EndYear,
		Description:  in.Description,
	}
}

type UpdateEducationRequest struct {
	School       *string `json:"school" validate:"omitempty,max=100"`
	Degree       *string `json:"degree" validate:"omitempty,max=100"`
	FieldOfStudy *string `json:"fieldOfStudy" validate:"omitempty,max=100"`
	StartYear    *string `json:"startYear" validate:"omitempty,len=4,pastyear"`
	EndYear      *string `json:"endYear" validate:"omitempty,len=4,pastyear"`
	Description  *string `json:"description" validate:"omitempty,max=1000"`
}

func (in UpdateEducationRequest) Fields() repository.Fields {
	f := repository.Fields{}
	patch(f, "school", in.School)
	patch(f, "degree", in.Degree)
	patch(f, "field_of_study", in.FieldOfStudy)
	patch(f, "start_year", in.StartYear)
	patch(f, "end_year", in.EndYear)
	patch(f, "description", in.Description)
	return f
}

type CreateExperienceRequest struct {
	UserID      string  `json:"userId" validate:"omitempty,uuid"`
	Company     string  `json:"company" validate:"required,max=100"`
	Position    string  `json:"position" validate:"required,max=100"`
	City        *string `json:"city" validate:"omitempty,max=100"`
	State       *string `json:"state" validate:"omitempty,max=100"`
	Country     *string `json:"country" validate:"omitempty,max=100"`
	StartYear   string  `json:"startYear" validate:"required,len=4,pastyear"`
	EndYear     *string `json:"endYear" validate:"omitempty,len=4,pastyear"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

func (in CreateExperienceRequest) ToRecord() *model.UserExperience {
	return &model.UserExperience{
		UserID:      in.UserID,
		Company:     in.Company,
		Position:    in.Position,
		City:        in.City,
		State:       in.State,
		Country:     in.Country,
		StartYear:   in.StartYear,
		EndYear:     in.EndYear,
		Description: in.Description,
	}
}

type UpdateExperienceRequest struct {
	Company     *string `json:"company" validate:"omitempty,max=100"`
	Position    *string `json:"position" validate:"omitempty,max=100"`
	City        *string `json:"city" validate:"omitempty,max=100"`
	State       *string `json:"state" validate:"omitempty,max=100"`
	Country     *string `json:"country" validate:"omitempty,max=100"`
	StartYear   *string `json:"startYear" validate:"omitempty,len=4,pastyear"`
	EndYear     *string `json:"endYear" validate:"omitempty,len=4,pastyear"`
	Description *string `json:"description" validate:"omitempty,max=1000"`
}

func (in UpdateExperienceRequest) Fields() repository.Fields {
	f := repository.Fields{}
	patch(f, "company", in.Company)
	patch(f, "position", in.Position)
	patch(f, "city", in.City)
	patch(f, "state", in.State)
	patch(f, "country", in.Country)
	patch(f, "start_year", in.StartYear)
	patch(f, "end_year", in.EndYear)
	patch(f, "description", in.Description)
	return f
}

type CreatePostRequest struct {
	UserID string `json:"userId" validate:"omitempty,uuid"`
	Body   string `json:"body" validate:"required,min=10,max=1000"`
}

func (in CreatePostRequest) ToRecord() *model.Post {
	return &model.Post{UserID: in.UserID, Body: in.Body}
}

// UpdateBodyRequest edits the body of a post or comment.
type UpdateBodyRequest struct {
	Body string `json:"body" validate:"required,min=10,max=1000"`
}

func (in UpdateBodyRequest) Fields() repository.Fields {
	return repository.Fields{"body": in.Body}
}

type CreateCommentRequest struct {
	UserID          string  `json:"userId" validate:"omitempty,uuid"`
	PostID          string  `json:"postId" validate:"required,uuid"`
	ParentCommentID *string `json:"parentCommentId" validate:"omitempty,uuid"`
	Body            string  `json:"body" validate:"required,min=10,max=1000"`
}

func (in CreateCommentRequest) ToRecord() *model.Comment {
	return &model.Comment{UserID: in.UserID, PostID: in.PostID, ParentCommentID: in.ParentCommentID, Body: in.Body}
}

type CreatePostLikeRequest struct {
	UserID string `json:"userId" validate:"omitempty,uuid"`
	PostID string `json:"postId" validate:"required,uuid"`
}

func (in CreatePostLikeRequest) ToRecord() *model.PostLike {
	return &model.PostLike{UserID: in.UserID, PostID: in.PostID}
}

type CreateCommentLikeRequest struct {
	UserID    string `json:"userId" validate:"omitempty,uuid"`
	CommentID string `json:"commentId" validate:"required,uuid"`
}

func (in CreateCommentLikeRequest) ToRecord() *model.CommentLike {
	return &model.CommentLike{UserID: in.UserID, CommentID: in.CommentID}
}

type CreateAddressRequest struct {
	UserID     string  `json:"userId" validate:"omitempty,uuid"`
	Street     string  `json:"street" validate:"required,max=100"`
	City       string  `json:"city" validate:"required,max=100"`
	State      *string `json:"state" validate:"omitempty,max=100"`
	Country    string  `json:"country" validate:"required,max=100"`
	PostalCode *string `json:"postalCode" validate:"omitempty,max=20"`
}

func (in CreateAddressRequest) ToRecord() *model.Address {
	return &model.Address{
		UserID:     in.UserID,
		Street:     in.Street,
		City:       in.City,
		State:      in.State,
		Country:    in.Country,
		PostalCode: in.PostalCode,
	}
}

type UpdateAddressRequest struct {
	Street     *string `json:"street" validate:"omitempty,max=100"`
	City       *string `json:"city" validate:"omitempty,max=100"`
	State      *string `json:"state" validate:"omitempty,max=100"`
	Country    *string `json:"country" validate:"omitempty,max=100"`
	PostalCode *string `json:"postalCode" validate:"omitempty,max=20"`
}

func (in UpdateAddressRequest) Fields() repository.Fields {
	f := repository.Fields{}
	patch(f, "street", in.Street)
	patch(f, "city", in.City)
	patch(f, "state", in.State)
	patch(f, "country", in.Country)
	patch(f, "postal_code", in.PostalCode)
	return f
}
