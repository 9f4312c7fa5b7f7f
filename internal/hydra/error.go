package hydra

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/simp-lee/peopleadmin/internal/domain"
)

// Error is a non-2xx answer from the API.
type Error struct {
	StatusCode  int
	Description string
	Violations  []domain.Violation
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("hydra: %d %s: %s", e.StatusCode, http.StatusText(e.StatusCode), e.Description)
	}
	return fmt.Sprintf("hydra: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// HasViolations reports whether the response carried a violations list.
func (e *Error) HasViolations() bool {
	return len(e.Violations) > 0
}

// AsError unwraps err into an *Error.
func AsError(err error) (*Error, bool) {
	var he *Error
	if errors.As(err, &he) {
		return he, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 answer.
func IsNotFound(err error) bool {
	he, ok := AsError(err)
	return ok && he.StatusCode == http.StatusNotFound
}

// errorBody covers both the hydra and the RFC 7807 error shapes.
type errorBody struct {
	Description string             `json:"hydra:description"`
	Detail      string             `json:"detail"`
	Violations  []domain.Violation `json:"violations"`
}

func (b errorBody) description() string {
	if b.Description != "" {
		return b.Description
	}
	return b.Detail
}
