package store

import "time"

// Event is one logged occurrence owned by an authenticated principal.
//
// Instant is the absolute moment the event happened, stored UTC. LocalDate,
// LocalTime and LocalWeekday are derived from Instant in the server's
// configured timezone and kept consistent with it; they are never computed
// from the UTC components directly.
type Event struct {
	ID           string
	OwnerID      string
	Instant      time.Time
	LocalDate    string
	LocalTime    string
	LocalWeekday string
	Note         *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// LocalFieldsUpdate stages corrected local fields for one event during a
// normalization run.
type LocalFieldsUpdate struct {
	EventID      string
	LocalDate    string
	LocalTime    string
	LocalWeekday string
}

// AccessToken is a personal API credential usable in place of an OIDC
// bearer token. Only the bcrypt hash of the secret is stored.
type AccessToken struct {
	ID         string
	OwnerID    string
	Label      string
	SecretHash string
	CreatedAt  time.Time
	RevokedAt  *time.Time
	LastUsedAt *time.Time
}
