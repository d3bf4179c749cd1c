package tailorapi

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNetwork matches every failed API call: transport errors and
// unexpected status codes alike
var ErrNetwork = errors.New("network error")

// Error describes a failed API call. Status is 0 when no response arrived.
type Error struct {
	Op      string
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// Is makes every *Error match ErrNetwork
func (e *Error) Is(target error) bool {
	return target == ErrNetwork
}

// StatusOf returns the HTTP status of err, or 0
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}

// IsUnauthorized reports whether the API rejected the session token
func IsUnauthorized(err error) bool {
	return StatusOf(err) == http.StatusUnauthorized
}

// IsInsufficientBalance reports whether a payment was rejected for lack of funds
func IsInsufficientBalance(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusBadRequest && apiErr.Message == "Insufficient balance"
}
