package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/marfateam/rcalendar/internal/calendar/application/commands"
	"github.com/marfateam/rcalendar/internal/calendar/application/queries"
	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
)

// CalendarHandler handles interval, membership and schedule requests.
type CalendarHandler struct {
	createInterval        *commands.CreateIntervalHandler
	updateInterval        *commands.UpdateIntervalHandler
	deleteInterval        *commands.DeleteIntervalHandler
	deleteMany            *commands.DeleteManyHandler
	clearUnavailable      *commands.ClearUnavailableHandler
	applySchedule         *commands.ApplyScheduleHandler
	joinMembership        *commands.JoinMembershipHandler
	dismissMembership     *commands.DismissMembershipHandler
	resourceIntervals     *queries.ResourceIntervalsHandler
	organizationIntervals *queries.OrganizationIntervalsHandler
	membershipView        *queries.MembershipViewHandler
	logger                *slog.Logger
}

// CalendarHandlerConfig holds dependencies for the calendar handler.
type CalendarHandlerConfig struct {
	CreateInterval        *commands.CreateIntervalHandler
	UpdateInterval        *commands.UpdateIntervalHandler
	DeleteInterval        *commands.DeleteIntervalHandler
	DeleteMany            *commands.DeleteManyHandler
	ClearUnavailable      *commands.ClearUnavailableHandler
	ApplySchedule         *commands.ApplyScheduleHandler
	JoinMembership        *commands.JoinMembershipHandler
	DismissMembership     *commands.DismissMembershipHandler
	ResourceIntervals     *queries.ResourceIntervalsHandler
	OrganizationIntervals *queries.OrganizationIntervalsHandler
	MembershipView        *queries.MembershipViewHandler
	Logger                *slog.Logger
}

// NewCalendarHandler creates a new calendar handler.
func NewCalendarHandler(cfg CalendarHandlerConfig) *CalendarHandler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &CalendarHandler{
		createInterval:        cfg.CreateInterval,
		updateInterval:        cfg.UpdateInterval,
		deleteInterval:        cfg.DeleteInterval,
		deleteMany:            cfg.DeleteMany,
		clearUnavailable:      cfg.ClearUnavailable,
		applySchedule:         cfg.ApplySchedule,
		joinMembership:        cfg.JoinMembership,
		dismissMembership:     cfg.DismissMembership,
		resourceIntervals:     cfg.ResourceIntervals,
		organizationIntervals: cfg.OrganizationIntervals,
		membershipView:        cfg.MembershipView,
		logger:                cfg.Logger,
	}
}

// CreateInterval handles POST /interval/
func (h *CalendarHandler) CreateInterval(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Start        *string         `json:"start"`
		End          *string         `json:"end"`
		Kind         json.RawMessage `json:"kind"`
		Resource     *int64          `json:"resource"`
		Organization *int64          `json:"organization"`
		Manager      *int64          `json:"manager"`
		Comment      *string         `json:"comment"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	missing := map[string][]string{}
	if body.Start == nil {
		missing["start"] = []string{msgFieldRequired}
	}
	if body.End == nil {
		missing["end"] = []string{msgFieldRequired}
	}
	if body.Resource == nil {
		missing["resource"] = []string{msgFieldRequired}
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, missing)
		return
	}

	start, ok := datetimeField(w, "start", *body.Start)
	if !ok {
		return
	}
	end, ok := datetimeField(w, "end", *body.End)
	if !ok {
		return
	}
	kind, ok := kindField(w, body.Kind)
	if !ok {
		return
	}

	cmd := commands.CreateIntervalCommand{
		App:          appFrom(r.Context()),
		Resource:     *body.Resource,
		Kind:         kind,
		Start:        start,
		End:          end,
		Organization: body.Organization,
		Manager:      body.Manager,
		Comment:      body.Comment,
		AuthorID:     authorID(r),
	}
	result, err := h.createInterval.Handle(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	dto := queries.NewIntervalDTO(result.Interval, result.ResourceRef, result.OrganizationRef, result.ManagerRef)
	respond(w, r, http.StatusCreated, dto)
}

// UpdateInterval handles PATCH /interval/{id}/
//
// Only start, end and comment may change; fields absent from the body
// keep their stored values, and a comment set to null clears it.
func (h *CalendarHandler) UpdateInterval(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	var body map[string]json.RawMessage
	if !decodeBody(w, r, &body) {
		return
	}

	cmd := commands.UpdateIntervalCommand{
		App:      appFrom(r.Context()),
		ID:       id,
		AuthorID: authorID(r),
	}
	if raw, present := body["start"]; present {
		t, ok := rawDatetimeField(w, "start", raw)
		if !ok {
			return
		}
		cmd.Start = &t
	}
	if raw, present := body["end"]; present {
		t, ok := rawDatetimeField(w, "end", raw)
		if !ok {
			return
		}
		cmd.End = &t
	}
	if raw, present := body["comment"]; present {
		cmd.CommentSet = true
		if string(raw) != "null" {
			var s string
			if err := json.Unmarshal(raw, &s); err != nil {
				writeJSON(w, http.StatusBadRequest, fieldError("comment", "Not a valid string."))
				return
			}
			cmd.Comment = &s
		}
	}

	result, err := h.updateInterval.Handle(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	dto := queries.NewIntervalDTO(result.Interval, result.ResourceRef, result.OrganizationRef, result.ManagerRef)
	respond(w, r, http.StatusOK, dto)
}

// DeleteInterval handles DELETE /interval/{id}/
func (h *CalendarHandler) DeleteInterval(w http.ResponseWriter, r *http.Request) {
	id, ok := pathUUID(w, r)
	if !ok {
		return
	}
	err := h.deleteInterval.Handle(r.Context(), commands.DeleteIntervalCommand{
		App:      appFrom(r.Context()),
		ID:       id,
		AuthorID: authorID(r),
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	respond(w, r, http.StatusNoContent, nil)
}

// DeleteMany handles DELETE /interval/delete_many/
//
// Removes the listed intervals in order, stopping at the first failure.
func (h *CalendarHandler) DeleteMany(w http.ResponseWriter, r *http.Request) {
	var body struct {
		IDs *[]string `json:"ids"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.IDs == nil {
		// Callers match on this exact string, typo included.
		writeJSON(w, http.StatusBadRequest, map[string]string{"ids": "This fields is required."})
		return
	}
	ids := make([]uuid.UUID, 0, len(*body.IDs))
	for _, raw := range *body.IDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, fieldError("ids", msgInvalidUUID))
			return
		}
		ids = append(ids, id)
	}

	err := h.deleteMany.Handle(r.Context(), commands.DeleteManyCommand{
		App:      appFrom(r.Context()),
		IDs:      ids,
		AuthorID: authorID(r),
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	respond(w, r, http.StatusNoContent, nil)
}

// ClearUnavailable handles POST /resource/{id}/clear_unavailable_interval/
//
// Cuts the given window out of the resource's unavailability.
func (h *CalendarHandler) ClearUnavailable(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Start *string `json:"start"`
		End   *string `json:"end"`
	}
	if !decodeBody(w, r, &body) {
		return
	}

	missing := map[string][]string{}
	if body.Start == nil {
		missing["start"] = []string{msgFieldRequired}
	}
	if body.End == nil {
		missing["end"] = []string{msgFieldRequired}
	}
	if len(missing) > 0 {
		writeJSON(w, http.StatusBadRequest, missing)
		return
	}

	start, ok := datetimeField(w, "start", *body.Start)
	if !ok {
		return
	}
	end, ok := datetimeField(w, "end", *body.End)
	if !ok {
		return
	}

	_, err := h.clearUnavailable.Handle(r.Context(), commands.ClearUnavailableCommand{
		App:      appFrom(r.Context()),
		Resource: id,
		Start:    start,
		End:      end,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	respond(w, r, http.StatusOK, nil)
}

// ApplySchedule handles POST /resource/{id}/apply_schedule/
//
// Replaces the organization's window on the resource with the posted
// weekly template. Omitting schedule_intervals reuses the stored
// template; posting an empty list clears the window instead.
func (h *CalendarHandler) ApplySchedule(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Organization      *int64                  `json:"organization"`
		Start             *string                 `json:"start"`
		End               *string                 `json:"end"`
		ScheduleIntervals *[]scheduleFragmentBody `json:"schedule_intervals"`
	}
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Organization == nil {
		writeJSON(w, http.StatusBadRequest, fieldError("organization", msgFieldRequired))
		return
	}

	cmd := commands.ApplyScheduleCommand{
		App:          appFrom(r.Context()),
		Resource:     id,
		Organization: *body.Organization,
		AuthorID:     authorID(r),
	}
	if body.Start != nil {
		t, ok := datetimeField(w, "start", *body.Start)
		if !ok {
			return
		}
		cmd.Start = &t
	}
	if body.End != nil {
		t, ok := datetimeField(w, "end", *body.End)
		if !ok {
			return
		}
		cmd.End = &t
	}
	if body.ScheduleIntervals != nil {
		fragments := make([]*caldomain.ScheduleFragment, 0, len(*body.ScheduleIntervals))
		for _, fb := range *body.ScheduleIntervals {
			frag, ok := fb.toFragment(w)
			if !ok {
				return
			}
			fragments = append(fragments, frag)
		}
		cmd.Fragments = fragments
	}

	result, err := h.applySchedule.Handle(r.Context(), cmd)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	respond(w, r, http.StatusOK, map[string]bool{"applied": result.Applied})
}

// GetMembership handles GET /resource/{id}/membership/
func (h *CalendarHandler) GetMembership(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	org, ok := organizationParam(w, r)
	if !ok {
		return
	}
	view, err := h.membershipView.Handle(r.Context(), queries.MembershipViewQuery{
		App:          appFrom(r.Context()),
		Resource:     id,
		Organization: org,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// JoinMembership handles PUT /resource/{id}/membership/
func (h *CalendarHandler) JoinMembership(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	org, ok := organizationParam(w, r)
	if !ok {
		return
	}
	result, err := h.joinMembership.Handle(r.Context(), commands.JoinMembershipCommand{
		App:          appFrom(r.Context()),
		Resource:     id,
		Organization: org,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	if result.Created {
		writeJSON(w, http.StatusCreated, nil)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

// DismissMembership handles DELETE /resource/{id}/membership/
//
// Drops the membership after truncating the organization's window at
// the moment of dismissal.
func (h *CalendarHandler) DismissMembership(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	org, ok := organizationParam(w, r)
	if !ok {
		return
	}
	err := h.dismissMembership.Handle(r.Context(), commands.DismissMembershipCommand{
		App:          appFrom(r.Context()),
		Resource:     id,
		Organization: org,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusNoContent, nil)
}

// ResourceIntervals handles GET /resource/{id}/intervals/
func (h *CalendarHandler) ResourceIntervals(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	start, ok := dateParam(w, r, "start")
	if !ok {
		return
	}
	end, ok := dateParam(w, r, "end")
	if !ok {
		return
	}
	result, err := h.resourceIntervals.Handle(r.Context(), queries.ResourceIntervalsQuery{
		App:      appFrom(r.Context()),
		Resource: id,
		Start:    start,
		End:      end,
	})
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// OrganizationIntervals handles GET /organization/{id}/intervals/
func (h *CalendarHandler) OrganizationIntervals(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	start, ok := dateParam(w, r, "start")
	if !ok {
		return
	}
	end, ok := dateParam(w, r, "end")
	if !ok {
		return
	}
	query := queries.OrganizationIntervalsQuery{
		App:          appFrom(r.Context()),
		Organization: id,
		Start:        start,
		End:          end,
	}
	if raw := r.URL.Query().Get("resource"); raw != "" {
		res, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, fieldError("resource", msgInvalidInteger))
			return
		}
		query.Resource = &res
	}
	result, err := h.organizationIntervals.Handle(r.Context(), query)
	if err != nil {
		writeDomainError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// scheduleFragmentBody is one weekly template row as posted by callers.
type scheduleFragmentBody struct {
	DayOfWeek *int    `json:"day_of_week"`
	Start     *string `json:"start"`
	End       *string `json:"end"`
}

func (b scheduleFragmentBody) toFragment(w http.ResponseWriter) (*caldomain.ScheduleFragment, bool) {
	if b.DayOfWeek == nil {
		writeJSON(w, http.StatusBadRequest, fieldError("day_of_week", msgFieldRequired))
		return nil, false
	}
	if *b.DayOfWeek < 0 || *b.DayOfWeek > 6 {
		message := fmt.Sprintf("%q is not a valid choice.", strconv.Itoa(*b.DayOfWeek))
		writeJSON(w, http.StatusBadRequest, fieldError("day_of_week", message))
		return nil, false
	}
	if b.Start == nil {
		writeJSON(w, http.StatusBadRequest, fieldError("start", msgFieldRequired))
		return nil, false
	}
	if b.End == nil {
		writeJSON(w, http.StatusBadRequest, fieldError("end", msgFieldRequired))
		return nil, false
	}
	start, err := parseClock(*b.Start)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, fieldError("start", msgInvalidTime))
		return nil, false
	}
	end, err := parseClock(*b.End)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, fieldError("end", msgInvalidTime))
		return nil, false
	}
	return caldomain.NewScheduleFragment(*b.DayOfWeek, start, end), true
}

// Helper functions

// pathUUID parses the {id} path segment as an interval id.
func pathUUID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, detail(msgNotFound))
		return uuid.Nil, false
	}
	return id, true
}

// authorID reads the optional author_id query parameter. A value that
// does not parse is kept as no author, which fails the authorship
// check the same way an unknown author would.
func authorID(r *http.Request) *int64 {
	raw := r.URL.Query().Get("author_id")
	if raw == "" {
		return nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

// organizationParam parses the required organization query parameter.
func organizationParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := r.URL.Query().Get("organization")
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, fieldError("organization", msgFieldRequired))
		return 0, false
	}
	org, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, fieldError("organization", msgInvalidInteger))
		return 0, false
	}
	return org, true
}

// dateParam parses a required YYYY-MM-DD query parameter.
func dateParam(w http.ResponseWriter, r *http.Request, key string) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		writeJSON(w, http.StatusBadRequest, fieldError(key, msgFieldRequired))
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("2006-01-02", raw, time.UTC)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, fieldError(key, msgInvalidDate))
		return time.Time{}, false
	}
	return t, true
}

// datetimeField parses a timestamp body field, rejecting the request on
// failure.
func datetimeField(w http.ResponseWriter, field, value string) (time.Time, bool) {
	t, err := parseDateTime(value)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, fieldError(field, msgInvalidDateTime))
		return time.Time{}, false
	}
	return t, true
}

// rawDatetimeField parses a timestamp that arrived as raw JSON.
func rawDatetimeField(w http.ResponseWriter, field string, raw json.RawMessage) (time.Time, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		writeJSON(w, http.StatusBadRequest, fieldError(field, msgInvalidDateTime))
		return time.Time{}, false
	}
	return datetimeField(w, field, s)
}

// kindField accepts the kind body field as either its numeric value or
// its string label. Absent means organization-reserved, and unknown
// labels fall back the same way.
func kindField(w http.ResponseWriter, raw json.RawMessage) (caldomain.Kind, bool) {
	if len(raw) == 0 || string(raw) == "null" {
		return caldomain.KindOrgReserved, true
	}
	var n int16
	if err := json.Unmarshal(raw, &n); err == nil {
		k := caldomain.Kind(n)
		if !k.Valid() {
			message := fmt.Sprintf("%q is not a valid choice.", strconv.FormatInt(int64(n), 10))
			writeJSON(w, http.StatusBadRequest, fieldError("kind", message))
			return 0, false
		}
		return k, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return caldomain.KindFromString(s), true
	}
	message := fmt.Sprintf("%s is not a valid choice.", string(raw))
	writeJSON(w, http.StatusBadRequest, fieldError("kind", message))
	return 0, false
}

// parseDateTime accepts RFC 3339 and the same layout without a zone,
// which reads as UTC.
func parseDateTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", s, time.UTC)
}

// parseClock reads a wall clock value with optional seconds.
func parseClock(s string) (time.Time, error) {
	if t, err := time.Parse("15:04:05", s); err == nil {
		return t, nil
	}
	return time.Parse("15:04", s)
}
