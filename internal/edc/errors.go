package edc

import (
	"errors"
	"fmt"
	"net/http"
)

// NetworkError means the request never produced an HTTP response.
type NetworkError struct {
	Op  string
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("edc %s: %s: %v", e.Op, e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// HTTPError means the backend answered with a non-2xx status.
type HTTPError struct {
	Op      string
	URL     string
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("edc %s: %s: status %d: %s", e.Op, e.URL, e.Status, e.Message)
	}
	return fmt.Sprintf("edc %s: %s: status %d", e.Op, e.URL, e.Status)
}

// AuthError means the caller's credentials were missing, rejected, or could
// not be refreshed. It is the only error kind with an automatic recovery
// action: trigger re-authentication.
type AuthError struct {
	Reason string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("edc auth: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("edc auth: %s", e.Reason)
}

func (e *AuthError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a backend 404. Deleting an already
// deleted connector lands here and is treated as handled by callers.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.Status == http.StatusNotFound
}

// IsAuth reports whether err requires re-authentication.
func IsAuth(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}
