// Package domain holds the tenant directory: the organizations,
// managers and resources other services register with us, plus the API
// keys that scope every request to one calling service. Entities carry
// the caller's own integer id (ExternalID) next to our uuid primary
// key; the pair (App, ExternalID) is unique per entity kind.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Organization groups managers and resource memberships.
type Organization struct {
	ID         uuid.UUID
	App        string
	ExternalID int64
	CreatedAt  time.Time
}

// Manager is an actor allowed to reserve time inside the organizations
// they belong to.
type Manager struct {
	ID         uuid.UUID
	App        string
	ExternalID int64
	CreatedAt  time.Time
}

// Resource is the worker whose timeline is being scheduled.
type Resource struct {
	ID         uuid.UUID
	App        string
	ExternalID int64
	CreatedAt  time.Time
}

// APIKey maps an opaque key to the calling service's app label.
type APIKey struct {
	Key       uuid.UUID
	App       string
	Active    bool
	CreatedAt time.Time
}

// NewAPIKey mints an active key for an app.
func NewAPIKey(app string) *APIKey {
	return &APIKey{Key: uuid.New(), App: app, Active: true}
}
