package order

import (
	"errors"
	"sort"
	"strings"
)

var (
	// -- Validation & Auth --
	ErrValidation             = errors.New("validation failed")
	ErrAuthenticationRequired = errors.New("authentication required")

	// -- Remote writes --
	ErrOrderCreationFailed       = errors.New("failed to create order")
	ErrOrderItemsCreationFailed  = errors.New("failed to create order items")
	ErrAppointmentCreationFailed = errors.New("failed to create service appointments")
	ErrTimeout                   = errors.New("remote call timed out")

	// -- Resource State --
	ErrSubmissionInProgress = errors.New("checkout already in progress")
	ErrOrderNotFound        = errors.New("order not found")
	ErrDuplicateKey         = errors.New("idempotency key already used")
	ErrDuplicateOrderNumber = errors.New("order number already taken")
)

// ValidationError lists every offending field with a user-facing message.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		names = append(names, k)
	}
	sort.Strings(names)
	return "validation failed: " + strings.Join(names, ", ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
