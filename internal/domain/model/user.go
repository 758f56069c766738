package model

import (
	"time"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"
)

type User struct {
	ID                        string     `json:"id"`
	Name                      string     `json:"name"`
	Email                     string     `json:"email"`
	Username                  string     `json:"username"`
	Password                  string     `json:"-"`
	Role                      string     `json:"role"`
	Image                     *string    `json:"image"`
	Headline                  *string    `json:"headline"`
	Bio                       *string    `json:"bio"`
	PasswordUpdatedAt         *time.Time `json:"passwordUpdatedAt,omitempty"`
	ResetPasswordToken        *string    `json:"-"`
	ResetPasswordTokenExpires *time.Time `json:"-"`
	CreatedAt                 time.Time  `json:"createdAt"`
	UpdatedAt                 time.Time  `json:"updatedAt"`
}

// PublicUser is the subset of a user shown next to content authored by them.
type PublicUser struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Username string  `json:"username"`
	Image    *string `json:"image"`
}

// CurrentUser is the authenticated user together with their contact ids.
type CurrentUser struct {
	User
	Contacts []string `json:"contacts"`
}
