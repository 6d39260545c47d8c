package domain

import "time"

// Account is a credentialed dashboard user linked to a Telegram user
// already captured by the archive.
type Account struct {
	ID           int64
	IdentityID   int64
	Username     string
	Email        string
	PasswordHash string
	CreatedAt    time.Time
}

// Identity is a Telegram user observed by the ingestion bot (gt_users).
type Identity struct {
	ID        int64
	TgUserID  string
	Username  string
	FirstName string
	LastName  string
}

// RegistrationRequest carries raw registration input. A nil field was not
// submitted at all, which is different from an empty value.
type RegistrationRequest struct {
	Username             *string
	TgUserID             *string
	Email                *string
	Password             *string
	PasswordConfirmation *string
}

// RegistrationResult is the user facing outcome of a registration attempt.
type RegistrationResult struct {
	Success bool
	Message string
}
