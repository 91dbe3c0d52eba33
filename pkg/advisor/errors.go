package advisor

import (
	"errors"
	"fmt"
)

// ErrExternalService matches every error returned by the remote boundary.
var ErrExternalService = errors.New("external service error")

// ExternalServiceError describes a failed call to the suggestion endpoint.
// StatusCode is zero when no HTTP response was received.
type ExternalServiceError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ExternalServiceError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("advisor: %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("advisor: %s: %v", e.Op, e.Err)
}

func (e *ExternalServiceError) Unwrap() error { return e.Err }

// Is reports true for ErrExternalService.
func (e *ExternalServiceError) Is(target error) bool { return target == ErrExternalService }
