package domain

import (
	"context"

	"github.com/google/uuid"
)

// Find methods return (nil, nil) when no row matches; callers decide
// whether absence is an error.

// OrganizationRepository persists organizations and their manager
// edges.
type OrganizationRepository interface {
	GetOrCreate(ctx context.Context, app string, externalID int64) (*Organization, bool, error)
	FindByExternalID(ctx context.Context, app string, externalID int64) (*Organization, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Organization, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Organization, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllForApp(ctx context.Context, app string) (int64, error)

	ManagerExternalIDs(ctx context.Context, id uuid.UUID) ([]int64, error)
	AddManager(ctx context.Context, id, manager uuid.UUID) error
	RemoveManager(ctx context.Context, id, manager uuid.UUID) error
	HasManager(ctx context.Context, id, manager uuid.UUID) (bool, error)
}

// ManagerRepository persists managers.
type ManagerRepository interface {
	GetOrCreate(ctx context.Context, app string, externalID int64) (*Manager, bool, error)
	FindByExternalID(ctx context.Context, app string, externalID int64) (*Manager, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Manager, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]*Manager, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllForApp(ctx context.Context, app string) (int64, error)

	// OrganizationsForResource returns the manager's organizations the
	// given resource is a member of, ordered by external id so event
	// payloads pick a stable representative.
	OrganizationsForResource(ctx context.Context, manager, resource uuid.UUID) ([]*Organization, error)
}

// ResourceRepository persists resources.
type ResourceRepository interface {
	GetOrCreate(ctx context.Context, app string, externalID int64) (*Resource, bool, error)
	FindByExternalID(ctx context.Context, app string, externalID int64) (*Resource, error)
	FindByID(ctx context.Context, id uuid.UUID) (*Resource, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteAllForApp(ctx context.Context, app string) (int64, error)

	// Lock takes a row lock on the resource for the duration of the
	// ambient transaction, serializing interval mutations per resource.
	Lock(ctx context.Context, id uuid.UUID) error
}

// APIKeyRepository persists API keys.
type APIKeyRepository interface {
	Create(ctx context.Context, key *APIKey) error
	// FindApp resolves an active key to its app label; ("", nil) when
	// the key is unknown or inactive.
	FindApp(ctx context.Context, key uuid.UUID) (string, error)
	List(ctx context.Context) ([]*APIKey, error)
	Deactivate(ctx context.Context, key uuid.UUID) error
}
