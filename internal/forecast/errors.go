package forecast

import (
	"errors"
	"fmt"
	"strings"
)

// ErrAllProvidersFailed is returned when every provider-group call failed
// and no partial data is available.
var ErrAllProvidersFailed = errors.New("all providers failed")

// ValidationError reports malformed input. It fails the query before any
// network call is made.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + e.Reason
}

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// UnknownVariablesError reports every unrecognized variable name in the
// request as one batch.
type UnknownVariablesError struct {
	Names []string
}

func (e *UnknownVariablesError) Error() string {
	return "unknown variables: " + strings.Join(e.Names, ", ")
}
