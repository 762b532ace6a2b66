package booking

import (
	"errors"
	"fmt"
)

// Categories. Handlers map these to HTTP statuses.
var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("not_found")
	ErrForbidden  = errors.New("forbidden")
	ErrConflict   = errors.New("conflict")
	ErrPayment    = errors.New("payment failed")
)

var (
	ErrNotAvailable            = fmt.Errorf("service not available on the requested date: %w", ErrConflict)
	ErrInsufficientCapacity    = fmt.Errorf("insufficient capacity: %w", ErrConflict)
	ErrInvalidStatusTransition = fmt.Errorf("invalid_status_transition: %w", ErrConflict)
	ErrAmountExceedsBalance    = fmt.Errorf("amount exceeds remaining balance: %w", ErrConflict)
	ErrAlreadyFullyPaid        = fmt.Errorf("booking already fully paid: %w", ErrConflict)
	ErrOnlinePaymentDisabled   = fmt.Errorf("service does not accept online payment: %w", ErrConflict)
	ErrCancellationNotAllowed  = fmt.Errorf("cancellation not allowed: %w", ErrConflict)
	ErrRefundNotDue            = fmt.Errorf("no refund due: %w", ErrConflict)
	ErrRefundAlreadyProcessed  = fmt.Errorf("refund already processed: %w", ErrConflict)
	ErrRefundInProgress        = fmt.Errorf("refund already in progress: %w", ErrConflict)
	ErrNoCompletedPayment      = fmt.Errorf("no completed payment to refund: %w", ErrConflict)
)

func validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
