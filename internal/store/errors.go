package store

import "errors"

// ErrNotFound is returned when an operation references an event id that is no
// longer present in the collection. Not reachable under single-threaded use,
// but checked defensively.
var ErrNotFound = errors.New("event not found")

// ValidationError rejects a create or edit whose times violate the store's
// invariants. The message is suitable for direct display to the user.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func newValidationError(msg string) error {
	return &ValidationError{Message: msg}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
