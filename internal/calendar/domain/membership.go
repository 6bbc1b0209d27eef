package domain

import (
	"time"

	"github.com/google/uuid"
)

// Membership ties a resource to an organization and owns the weekly
// schedule template for the pair. ScheduleExtendedTo is the watermark
// through which the template has already been materialized as
// OrgReserved intervals.
type Membership struct {
	ID                 uuid.UUID
	Resource           uuid.UUID
	Organization       uuid.UUID
	ScheduleExtendedTo *time.Time
	CreatedAt          time.Time
}

// NewMembership builds an unsaved membership edge.
func NewMembership(resource, organization uuid.UUID) *Membership {
	return &Membership{
		ID:           uuid.New(),
		Resource:     resource,
		Organization: organization,
	}
}
