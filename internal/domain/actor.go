package domain

import "github.com/google/uuid"

// Actor is the authenticated caller as resolved from the session.
type Actor struct {
	UserID    uuid.UUID
	TeamID    uuid.UUID
	Role      string
	IP        string
	UserAgent string
}
