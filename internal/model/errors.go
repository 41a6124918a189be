package model

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks malformed or missing input.
	ErrValidation = errors.New("validation error")

	// ErrPermission marks a mutation the caller is not allowed to make.
	ErrPermission = errors.New("permission denied")

	// ErrConfig marks a missing VAPID identity. Fatal for a dispatch, never at startup.
	ErrConfig = errors.New("configuration error")

	// ErrSubscriptionNotFound is returned by lookups for an unknown id or endpoint.
	ErrSubscriptionNotFound = errors.New("subscription not found")
)

// kindError pairs a sentinel kind with a human readable message so that
// errors.Is works while Error() stays user presentable.
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Is(target error) bool { return target == e.kind }

// NewValidationError returns an error matching ErrValidation.
func NewValidationError(msg string) error {
	return &kindError{kind: ErrValidation, msg: msg}
}

// NewPermissionError returns an error matching ErrPermission.
func NewPermissionError(msg string) error {
	return &kindError{kind: ErrPermission, msg: msg}
}

// NewConfigError returns an error matching ErrConfig.
func NewConfigError(msg string) error {
	return &kindError{kind: ErrConfig, msg: msg}
}

// PermanentDeliveryError is a push service answer meaning the endpoint is gone
// (404 Not Found or 410 Gone). The subscription gets deactivated.
type PermanentDeliveryError struct {
	StatusCode int
	Body       string
}

func (e *PermanentDeliveryError) Error() string {
	return fmt.Sprintf("push endpoint gone: status=%d", e.StatusCode)
}

// TransientDeliveryError covers everything else that went wrong on a send:
// network errors, timeouts, 5xx, rejected keys. The subscription stays active.
type TransientDeliveryError struct {
	StatusCode int // 0 when no response was received
	Body       string
	Err        error
}

func (e *TransientDeliveryError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("push delivery failed: %v", e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("push delivery failed: status=%d body=%s", e.StatusCode, e.Body)
	}
	return fmt.Sprintf("push delivery failed: status=%d", e.StatusCode)
}

func (e *TransientDeliveryError) Unwrap() error { return e.Err }
