package api

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthenticationRequired is returned when the server redirects to its
	// login page, answers 401 or 403, or flags user_is_authenticated=false.
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrLoginFailed            = errors.New("invalid username and/or password")
)

// NetworkError means no usable response came back.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ServerError covers non-success statuses and payloads that do not match
// the expected schema.
type ServerError struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *ServerError) Error() string {
	switch {
	case e.Message != "" && e.Status != 0:
		return fmt.Sprintf("%s: server error (HTTP %d): %s", e.Op, e.Status, e.Message)
	case e.Message != "":
		return fmt.Sprintf("%s: server error: %s", e.Op, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s: malformed response: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("%s: server error (HTTP %d)", e.Op, e.Status)
	}
}

func (e *ServerError) Unwrap() error { return e.Err }

func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

func IsServerError(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}
