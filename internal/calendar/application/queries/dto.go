// Package queries implements the calendar read side: interval listings
// with the organization-view masking rules, membership detail and
// organization detail. Handlers translate internal rows to the calling
// app's external ids before anything leaves the application layer.
package queries

import (
	"time"

	"github.com/google/uuid"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
)

// IntervalDTO is the wire shape of one interval. Object names the
// entity the interval belongs to and is present only when it resolves:
// the organization for organization-reserved time, the manager for
// manager-reserved time.
type IntervalDTO struct {
	ID           uuid.UUID `json:"id"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Kind         string    `json:"kind"`
	Resource     int64     `json:"resource"`
	Organization *int64    `json:"organization"`
	Manager      *int64    `json:"manager"`
	Comment      *string   `json:"comment"`
	Object       *int64    `json:"object,omitempty"`
}

// NewIntervalDTO renders an interval against resolved external ids.
func NewIntervalDTO(iv *caldomain.Interval, resource int64, organization, manager *int64) IntervalDTO {
	dto := IntervalDTO{
		ID:           iv.ID,
		Start:        iv.Start,
		End:          iv.End,
		Kind:         iv.Kind.String(),
		Resource:     resource,
		Organization: organization,
		Manager:      manager,
		Comment:      iv.Comment,
	}
	switch iv.Kind {
	case caldomain.KindOrgReserved:
		dto.Object = organization
	case caldomain.KindManagerReserved:
		dto.Object = manager
	}
	return dto
}
