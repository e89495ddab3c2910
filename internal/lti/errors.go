package lti

import (
	"errors"
	"fmt"
)

var (
	// ErrLaunchNotFound means the launch id has no live cache entry.
	// Handlers must treat this as an authorization failure.
	ErrLaunchNotFound = errors.New("lti: launch not found in cache")

	// ErrUnknownPlatform means no registration matches the issuer/client_id.
	ErrUnknownPlatform = errors.New("lti: unknown platform")

	// ErrNoAGS / ErrNoNRPS mean the launch does not advertise the service.
	ErrNoAGS  = errors.New("lti: launch has no assignment and grade service")
	ErrNoNRPS = errors.New("lti: launch has no names and role service")

	// ErrNotDeepLink means a deep-link operation was attempted on a launch
	// that is not a deep-link request.
	ErrNotDeepLink = errors.New("lti: not a deep link launch")
)

// ServiceError is a non-2xx reply from a platform service (token endpoint,
// AGS or NRPS). The body is kept for diagnostics.
type ServiceError struct {
	URL    string
	Status int
	Body   string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("lti service error: status=%d url=%s body=%s", e.Status, e.URL, e.Body)
}
