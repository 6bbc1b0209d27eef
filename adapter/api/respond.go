package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	caldomain "github.com/marfateam/rcalendar/internal/calendar/domain"
	dirdomain "github.com/marfateam/rcalendar/internal/directory/domain"
)

// Error strings callers are known to match on.
const (
	msgFieldRequired    = "This field is required."
	msgInvalidDate      = "Enter a valid date."
	msgInvalidDateTime  = "Enter a valid date/time."
	msgInvalidTime      = "Enter a valid time."
	msgInvalidInteger   = "A valid integer is required."
	msgInvalidUUID      = "Must be a valid UUID."
	msgNotFound         = "Not found."
	msgPermissionDenied = "You do not have permission to perform this action."
	msgInternalError    = "Internal server error."
)

// detail wraps a message the way detail-style error bodies carry it.
func detail(message string) map[string]string {
	return map[string]string{"detail": message}
}

// fieldError renders one rejected input field.
func fieldError(field, message string) map[string][]string {
	return map[string][]string{field: {message}}
}

func writePermissionDenied(w http.ResponseWriter) {
	writeJSON(w, http.StatusForbidden, detail(msgPermissionDenied))
}

// respond writes data together with any events collected during the
// request. Events merge into the response object under an "events"
// key; a bodiless status is upgraded to 200 OK when events exist so
// they are not dropped.
func respond(w http.ResponseWriter, r *http.Request, status int, data any) {
	events := caldomain.SinkFrom(r.Context()).Events()
	if len(events) == 0 {
		writeJSON(w, status, data)
		return
	}

	body := make(map[string]any)
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			slog.Error("failed to encode response payload", "error", err)
			writeJSON(w, http.StatusInternalServerError, detail(msgInternalError))
			return
		}
		if err := json.Unmarshal(raw, &body); err != nil {
			// Non-object payloads cannot carry events; send as is.
			writeJSON(w, status, data)
			return
		}
	}
	body["events"] = events
	if status == http.StatusNoContent {
		status = http.StatusOK
	}
	writeJSON(w, status, body)
}

// writeDomainError maps command and query failures onto the response
// contract. Validation problems render as a field-to-messages object,
// missing entities as 404, authorship failures as 403 and everything
// else as an opaque 500.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var verr *caldomain.ValidationError
	switch {
	case errors.As(err, &verr):
		field := verr.Field
		if field == "" {
			field = "non_field_errors"
		}
		writeJSON(w, http.StatusBadRequest, fieldError(field, verr.Message))
	case errors.Is(err, caldomain.ErrNotIntervalAuthor):
		writePermissionDenied(w)
	case errors.Is(err, caldomain.ErrIntervalNotFound),
		errors.Is(err, dirdomain.ErrOrganizationNotFound),
		errors.Is(err, dirdomain.ErrManagerNotFound),
		errors.Is(err, dirdomain.ErrResourceNotFound),
		errors.Is(err, dirdomain.ErrMembershipNotFound):
		writeJSON(w, http.StatusNotFound, detail(msgNotFound))
	default:
		logger.Error("request failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, detail(msgInternalError))
	}
}
