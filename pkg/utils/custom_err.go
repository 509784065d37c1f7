package utils

import (
	"errors"
	"fmt"
)

// Error kinds as they appear in the "error" field of a JSON error body.
const (
	KindUnauthenticated      = "Unauthenticated"
	KindConsentRequired      = "ConsentRequired"
	KindSubscriptionRequired = "SubscriptionRequired"
	KindNotFound             = "NotFound"
	KindBadRequest           = "BadRequest"
	KindConflict             = "Conflict"
	KindQuotaExceeded        = "QuotaExceeded"
	KindRateLimited          = "RateLimited"
	KindRequestInProgress    = "RequestInProgress"
	KindIdempotencyConflict  = "IdempotencyConflict"
	KindUpstreamUnavailable  = "UpstreamUnavailable"
	KindCoachDisabled        = "CoachDisabled"
	KindInternal             = "Internal"
)

var (
	ErrUnauthenticated      = errors.New("unauthenticated")
	ErrInvalidCredentials   = errors.New("invalid email or password")
	ErrConsentRequired      = errors.New("disclaimer consent required")
	ErrSubscriptionRequired = errors.New("active subscription or trial required")
	ErrNotFound             = errors.New("not found")
	ErrBadRequest           = errors.New("bad request")
	ErrEmailAlreadyExists   = errors.New("email already registered")
	ErrQuotaExceeded        = errors.New("monthly consultation limit reached")
	ErrRateLimited          = errors.New("too many requests")
	ErrRequestInProgress    = errors.New("request with this idempotency key is in progress")
	ErrIdempotencyConflict  = errors.New("idempotency key reused with a different request")
	ErrUpstreamUnavailable  = errors.New("AI service temporarily unavailable")
	ErrCoachDisabled        = errors.New("coach is disabled")
	ErrDatabaseError        = errors.New("database error")
)

// QuotaExceededError carries the counter state at the moment the limit was hit.
type QuotaExceededError struct {
	CurrentCount int
	Limit        int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s (%d/%d)", ErrQuotaExceeded.Error(), e.CurrentCount, e.Limit)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

// BadRequestError is a validation failure whose Detail is safe to show to clients.
type BadRequestError struct {
	Detail string
}

func (e *BadRequestError) Error() string {
	return "bad request: " + e.Detail
}

func (e *BadRequestError) Is(target error) bool {
	return target == ErrBadRequest
}

func NewBadRequest(format string, args ...any) error {
	return &BadRequestError{Detail: fmt.Sprintf(format, args...)}
}
