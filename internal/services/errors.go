package services

import "fmt"

// APIError classifies a failed call to an external service. Status 0 marks a
// transport-level failure (connection refused, timeout).
type APIError struct {
	Service string
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Service, e.Message)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Service, e.Status, e.Message)
}

// Transient reports whether the failure is worth retrying: transport errors,
// rate limiting and 5xx-class responses. 4xx responses mean the request
// itself is bad and must fail fast.
func (e *APIError) Transient() bool {
	return e.Status == 0 || e.Status == 429 || e.Status >= 500
}

func transportError(service string, err error) *APIError {
	return &APIError{Service: service, Message: err.Error()}
}
