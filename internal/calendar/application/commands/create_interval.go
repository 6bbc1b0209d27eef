package commands

import (
	"context"
	"time"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
	sharedApplication "github.com/marfateam/rcalendar/internal/shared/application"
	"github.com/marfateam/rcalendar/internal/shared/infrastructure/outbox"
)

// CreateIntervalCommand reserves a span of a resource's time. All
// entity references are the caller's external ids.
type CreateIntervalCommand struct {
	App          string
	Resource     int64
	Kind         caldomain.Kind
	Start        time.Time
	End          time.Time
	Organization *int64
	Manager      *int64
	Comment      *string
	AuthorID     *int64
}

// IntervalResult is a saved interval together with the external ids
// its references resolve to.
type IntervalResult struct {
	Interval        *caldomain.Interval
	ResourceRef     int64
	OrganizationRef *int64
	ManagerRef      *int64
}

// CreateIntervalHandler handles the CreateIntervalCommand.
type CreateIntervalHandler struct {
	saver      intervalSaver
	resources  dirdomain.ResourceRepository
	outboxRepo outbox.Repository
	uow        sharedApplication.UnitOfWork
}

// NewCreateIntervalHandler creates a new CreateIntervalHandler.
func NewCreateIntervalHandler(
	intervals caldomain.IntervalRepository,
	memberships caldomain.MembershipRepository,
	resources dirdomain.ResourceRepository,
	organizations dirdomain.OrganizationRepository,
	managers dirdomain.ManagerRepository,
	outboxRepo outbox.Repository,
	uow sharedApplication.UnitOfWork,
) *CreateIntervalHandler {
	return &CreateIntervalHandler{
		saver: intervalSaver{
			intervals:     intervals,
			memberships:   memberships,
			organizations: organizations,
			managers:      managers,
		},
		resources:  resources,
		outboxRepo: outboxRepo,
		uow:        uow,
	}
}

// Handle executes the CreateIntervalCommand.
func (h *CreateIntervalHandler) Handle(ctx context.Context, cmd CreateIntervalCommand) (*IntervalResult, error) {
	// A caller acting as a manager may only reserve time under their
	// own name.
	if cmd.AuthorID != nil && cmd.Kind == caldomain.KindManagerReserved {
		if cmd.Manager == nil || *cmd.Manager != *cmd.AuthorID {
			return nil, caldomain.ErrNotIntervalAuthor
		}
	}

	var result *IntervalResult
	var events []caldomain.Event

	err := sharedApplication.WithUnitOfWork(ctx, h.uow, func(txCtx context.Context) error {
		res, err := h.resources.FindByExternalID(txCtx, cmd.App, cmd.Resource)
		if err != nil {
			return err
		}
		if res == nil {
			return invalidRef("resource", cmd.Resource)
		}
		if err := h.resources.Lock(txCtx, res.ID); err != nil {
			return err
		}

		org, mgr, err := h.saver.resolveRefs(txCtx, cmd.App, cmd.Organization, cmd.Manager)
		if err != nil {
			return err
		}

		iv := caldomain.NewInterval(res.ID, cmd.Kind, cmd.Start, cmd.End)
		if org != nil {
			iv = iv.WithOrganization(org.ID)
		}
		if mgr != nil {
			iv = iv.WithManager(mgr.ID)
		}
		if cmd.Comment != nil {
			iv = iv.WithComment(*cmd.Comment)
		}

		events, err = h.saver.save(txCtx, iv, res, org, mgr, false)
		if err != nil {
			return err
		}
		if err := stageEvents(txCtx, h.outboxRepo, cmd.App, "interval", iv.ID, events); err != nil {
			return err
		}

		result = &IntervalResult{
			Interval:        iv,
			ResourceRef:     res.ExternalID,
			OrganizationRef: cmd.Organization,
			ManagerRef:      cmd.Manager,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sink := caldomain.SinkFrom(ctx)
	for _, e := range events {
		sink.Push(e)
	}
	return result, nil
}
