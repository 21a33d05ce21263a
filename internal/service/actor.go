package service

import "github.com/google/uuid"

// Actor is the authenticated caller of a catalog mutation.
type Actor struct {
	UserID  uuid.UUID
	IsAdmin bool
}
