package socrata

import "fmt"

// NetworkError is a transport-level failure reaching a portal. Surfaced to
// the caller as-is; retrying is the caller's decision.
type NetworkError struct {
	Domain string
	Err    error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error reaching %s: %v", e.Domain, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// PortalUnavailable is a non-2xx response from a portal endpoint.
type PortalUnavailable struct {
	Domain     string
	StatusCode int
}

func (e *PortalUnavailable) Error() string {
	return fmt.Sprintf("portal %s unavailable: status %d", e.Domain, e.StatusCode)
}
