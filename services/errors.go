package services

import "fmt"

// StatusError is a non-2xx answer from a collaborator.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s: status %d", e.Op, e.StatusCode)
	}
	return fmt.Sprintf("%s: status %d: %s", e.Op, e.StatusCode, e.Body)
}

// PayloadError is a 2xx answer whose body is missing what the contract promises.
type PayloadError struct {
	Op     string
	Reason string
}

func (e *PayloadError) Error() string {
	return fmt.Sprintf("%s: %s", e.Op, e.Reason)
}
