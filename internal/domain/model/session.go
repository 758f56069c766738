package model

import "time"

type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Expires   time.Time `json:"expires"`
	CreatedAt time.Time `json:"createdAt"`
}

// Expired reports whether the session is no longer valid at now.
func (s *Session) Expired(now time.Time) bool {
	return s.Expires.Before(now)
}
