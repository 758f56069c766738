package model

import "time"

type Address struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	State      *string   `json:"state"`
	Country    string    `json:"country"`
	PostalCode *string   `json:"postalCode"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

type UserEducation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	School       string    `json:"school"`
	Degree       string    `json:"degree"`
	FieldOfStudy *string   `json:"fieldOfStudy"`
	StartYear    string    `json:"startYear"`
	EndYear      *string   `json:"endYear"`
	Description  *string   `json:"description"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

type UserExperience struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Company     string    `json:"company"`
	Position    string    `json:"position"`
	City        *string   `json:"city"`
	State       *string   `json:"state"`
	Country     *string   `json:"country"`
	StartYear   string    `json:"startYear"`
	EndYear     *string   `json:"endYear"`
	Description *string   `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}
