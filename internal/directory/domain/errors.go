package domain

import "errors"

var (
	ErrOrganizationNotFound = errors.New("organization not found")
	ErrManagerNotFound      = errors.New("manager not found")
	ErrResourceNotFound     = errors.New("resource not found")
	ErrMembershipNotFound   = errors.New("resource is not a member of this organization")

	// ErrInvalidAPIKey covers missing, malformed, unknown and revoked
	// keys alike; the transport never tells callers which.
	ErrInvalidAPIKey = errors.New("invalid api key")
)
