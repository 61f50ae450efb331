// Package store persists session records behind two collaborators: a durable
// store with no expiry and a fast cache with a fixed TTL. Layered combines
// them with a defined fallback order so call sites never reimplement it.
package store

import (
	"context"
	"errors"

	"grocery-autocart/pkg/models"
)

// ErrNotFound is returned when neither a lookup key nor its record exists.
var ErrNotFound = errors.New("session record not found")

// SessionStore is the durable store. Save upserts by id.
type SessionStore interface {
	Save(ctx context.Context, session *models.SessionData) error
	Get(ctx context.Context, id string) (*models.SessionData, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
	Close() error
}

// SessionCache is the ephemeral accelerator in front of the store.
// Entries expire on their own; Delete exists for explicit cleanup.
type SessionCache interface {
	Set(ctx context.Context, session *models.SessionData) error
	Get(ctx context.Context, id string) (*models.SessionData, error)
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
