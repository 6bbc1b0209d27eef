package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/google/uuid"

	"github.com/marfateam/rcalendar/adapter/api"
	calcommands "github.com/marfateam/rcalendar/internal/calendar/application/commands"
	calqueries "github.com/marfateam/rcalendar/internal/calendar/application/queries"
	calpersistence "github.com/marfateam/rcalendar/internal/calendar/infrastructure/persistence"
	dircommands "github.com/marfateam/rcalendar/internal/directory/application/commands"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
	dirpersistence "github.com/marfateam/rcalendar/internal/directory/infrastructure/persistence"
	sharedApplication "github.com/marfateam/rcalendar/internal/shared/application"
	"github.com/marfateam/rcalendar/internal/shared/infrastructure/outbox"
	"github.com/marfateam/rcalendar/pkg/observability"
)

// testServer runs the full router over in-memory repositories, with one
// active API key minted for the "crm" app.
type testServer struct {
	t       *testing.T
	handler http.Handler
	apiKey  string

	intervals *calpersistence.InMemoryIntervalRepository
	keys      *dirpersistence.InMemoryAPIKeyRepository
	metrics   *observability.InMemoryMetrics
	outbox    *outbox.InMemoryRepository
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	resources := dirpersistence.NewInMemoryResourceRepository()
	managers := dirpersistence.NewInMemoryManagerRepository()
	organizations := dirpersistence.NewInMemoryOrganizationRepository(managers)
	memberships := calpersistence.NewInMemoryMembershipRepository(resources)
	managers.BindOrganizations(organizations, func(ctx context.Context, resource, organization uuid.UUID) (bool, error) {
		m, err := memberships.Find(ctx, resource, organization)
		return m != nil, err
	})
	intervals := calpersistence.NewInMemoryIntervalRepository()
	outboxRepo := outbox.NewInMemoryRepository()
	uow := sharedApplication.NewNoopUnitOfWork()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	directory := api.NewDirectoryHandler(api.DirectoryHandlerConfig{
		RegisterOrganization: dircommands.NewRegisterOrganizationHandler(organizations),
		RegisterManager:      dircommands.NewRegisterManagerHandler(managers),
		RegisterResource:     dircommands.NewRegisterResourceHandler(resources),
		AddManagers:          dircommands.NewAddManagersHandler(managers, organizations, uow),
		AddResources:         dircommands.NewAddResourcesHandler(resources, organizations, memberships, uow),
		DeleteOrganization:   dircommands.NewDeleteOrganizationHandler(organizations),
		DeleteManager:        dircommands.NewDeleteManagerHandler(managers, organizations),
		DeleteResource:       dircommands.NewDeleteResourceHandler(resources),
		OrganizationView:     calqueries.NewOrganizationViewHandler(memberships, organizations),
		Logger:               logger,
	})

	deleteInterval := calcommands.NewDeleteIntervalHandler(intervals, memberships, resources, organizations, managers, outboxRepo, uow)
	calendar := api.NewCalendarHandler(api.CalendarHandlerConfig{
		CreateInterval:        calcommands.NewCreateIntervalHandler(intervals, memberships, resources, organizations, managers, outboxRepo, uow),
		UpdateInterval:        calcommands.NewUpdateIntervalHandler(intervals, memberships, resources, organizations, managers, outboxRepo, uow),
		DeleteInterval:        deleteInterval,
		DeleteMany:            calcommands.NewDeleteManyHandler(deleteInterval),
		ClearUnavailable:      calcommands.NewClearUnavailableHandler(intervals, memberships, resources, organizations, managers, outboxRepo, uow),
		ApplySchedule:         calcommands.NewApplyScheduleHandler(intervals, memberships, resources, organizations, outboxRepo, uow),
		JoinMembership:        calcommands.NewJoinMembershipHandler(memberships, resources, organizations, uow),
		DismissMembership:     calcommands.NewDismissMembershipHandler(intervals, memberships, resources, organizations, uow),
		ResourceIntervals:     calqueries.NewResourceIntervalsHandler(intervals, resources, organizations, managers),
		OrganizationIntervals: calqueries.NewOrganizationIntervalsHandler(intervals, memberships, resources, organizations, managers),
		MembershipView:        calqueries.NewMembershipViewHandler(memberships, resources, organizations),
		Logger:                logger,
	})

	keys := dirpersistence.NewInMemoryAPIKeyRepository()
	key := dirdomain.NewAPIKey("crm")
	require.NoError(t, keys.Create(context.Background(), key))

	metrics := observability.NewInMemoryMetrics()
	srv := api.NewServer(api.DefaultServerConfig(), directory, calendar, keys, observability.NewHealthRegistry(), metrics, logger)

	return &testServer{
		t:         t,
		handler:   srv.Handler(),
		apiKey:    key.Key.String(),
		intervals: intervals,
		keys:      keys,
		metrics:   metrics,
		outbox:    outboxRepo,
	}
}

// do sends an authenticated JSON request through the router.
func (ts *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	ts.t.Helper()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(ts.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Api-Key", ts.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	return w
}

// decode unmarshals a JSON response body.
func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

// registerOrganization, registerResource and joinMembership drive setup
// through the public routes so the fixtures exercise the same paths the
// assertions do.
func (ts *testServer) registerOrganization(id int64) {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/organization/", map[string]int64{"id": id})
	require.Equal(ts.t, http.StatusCreated, w.Code)
}

func (ts *testServer) registerResource(id int64) {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/resource/", map[string]int64{"id": id})
	require.Equal(ts.t, http.StatusCreated, w.Code)
}

func (ts *testServer) registerManager(id int64, organization int64) {
	ts.t.Helper()
	w := ts.do(http.MethodPost, "/manager/add_many/", map[string]any{
		"ids":          []int64{id},
		"organization": organization,
	})
	require.Equal(ts.t, http.StatusCreated, w.Code)
}

func (ts *testServer) joinMembership(resource, organization int64) {
	ts.t.Helper()
	path := fmt.Sprintf("/resource/%d/membership/?organization=%d", resource, organization)
	w := ts.do(http.MethodPut, path, nil)
	require.Equal(ts.t, http.StatusCreated, w.Code)
}
