package domain

import "time"

// Session is a dashboard login session (login_sessions).
type Session struct {
	ID        int64
	AccountID int64
	Token     string
	CreatedAt time.Time
	ExpiredAt time.Time
}

// Expired reports whether the session is no longer usable at t.
func (s Session) Expired(t time.Time) bool {
	return !t.Before(s.ExpiredAt)
}
