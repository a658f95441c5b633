package errs

import "errors"

// Common sentinel errors. Services wrap them with context via
// fmt.Errorf("%w: ..."); transports match with errors.Is.
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrBelowMinimum     = errors.New("amount below minimum")
	ErrWrongMultiple    = errors.New("amount must be in multiples of 100")
	ErrNotEnoughFunds   = errors.New("not enough funds")
	ErrInvalidStatus    = errors.New("invalid status")
	ErrAlreadyProcessed = errors.New("already processed")
	ErrAlreadyExists    = errors.New("already exists")
	ErrTaskClosed       = errors.New("task is not accepting submissions")
	ErrDailyLimit       = errors.New("daily submission limit reached")
	ErrInvalidRequest   = errors.New("invalid request")
	ErrUnauthorized     = errors.New("unauthorized")
)

// Type just for marshalling purpose.
// Should only be used immediately before marshalling.
type JSON struct {
	Code  string `json:"code"`
	Error string `json:"error"`
}

// Code returns a stable machine-checkable reason for err, so clients
// can tell "insufficient funds" from "below minimum" without parsing
// the human message.
func Code(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrBelowMinimum):
		return "below_minimum"
	case errors.Is(err, ErrWrongMultiple):
		return "wrong_multiple"
	case errors.Is(err, ErrNotEnoughFunds):
		return "insufficient_balance"
	case errors.Is(err, ErrInvalidStatus):
		return "invalid_status"
	case errors.Is(err, ErrAlreadyProcessed):
		return "already_processed"
	case errors.Is(err, ErrAlreadyExists):
		return "already_exists"
	case errors.Is(err, ErrTaskClosed):
		return "task_closed"
	case errors.Is(err, ErrDailyLimit):
		return "daily_limit"
	case errors.Is(err, ErrInvalidRequest):
		return "invalid_request"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	}
	return "internal"
}
