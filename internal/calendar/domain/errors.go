package domain

import "errors"

// ValidationError is a rejected save. Field names the offending input
// field; an empty field renders as a non-field error at the API
// boundary. The messages are part of the contract with calling
// services and must not be reworded.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewValidationError builds a field-scoped validation failure.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Validation rule failures, in the order the save pipeline checks them.
var (
	ErrEndNotAfterStart      = NewValidationError("end", "End date must be greater than start date.")
	ErrOrganizationRequired  = NewValidationError("organization", "You must specify organization for this interval.")
	ErrManagerNotInOrg       = NewValidationError("", "Only managers can reserve time for organization.")
	ErrResourceNotInOrg      = NewValidationError("", "Resource is not in specified organization.")
	ErrManagerRequired       = NewValidationError("manager", "You must specify manager for this interval.")
	ErrOutsideOrgTime        = NewValidationError("", "This period isn't fall within organization time.")
	ErrReservedForAnother    = NewValidationError("", "This period is reserved for another manager.")
	ErrAlreadyReserved       = NewValidationError("", "This period is already reserved.")
	ErrAlreadyReservedForOrg = NewValidationError("", "This period is already reserved for organization.")
	ErrWithinAnotherOrg      = NewValidationError("", "This period falls within another organization.")
	ErrWithinAnotherSchedule = NewValidationError("", "This period falls within another organization's schedule.")
)

var (
	// ErrIntervalNotFound is returned when an interval id does not
	// exist under the caller's app.
	ErrIntervalNotFound = errors.New("interval not found")

	// ErrNotIntervalAuthor is returned when author_id does not match
	// the interval's manager, or its resource for unavailability.
	ErrNotIntervalAuthor = errors.New("author is not allowed to modify this interval")
)
