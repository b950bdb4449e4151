package form

import "errors"

var (
	// ErrNoChanges is returned when an edit submit finds a zero diff.
	// No request is issued; the user is told no save occurred.
	ErrNoChanges = errors.New("no changes to save")

	// ErrSubmitInFlight guards the one-submit-at-a-time rule per form
	// instance.
	ErrSubmitInFlight = errors.New("a submit is already in flight")

	// ErrNotReady is returned when Submit is called outside the Ready
	// phase (meta error, already closed).
	ErrNotReady = errors.New("form is not ready")

	// ErrValidation is returned when required-field validation blocks a
	// submit. Per-field messages are in State.Errors.
	ErrValidation = errors.New("validation failed")
)
