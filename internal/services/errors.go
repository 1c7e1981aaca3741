package services

import "errors"

type ErrorCode string

const (
	ErrorInvalid         ErrorCode = "invalid"
	ErrorForbidden       ErrorCode = "forbidden"
	ErrorNotFound        ErrorCode = "not_found"
	ErrorConflict        ErrorCode = "conflict"
	ErrorUnauthorized    ErrorCode = "unauthorized"
	ErrorTooManyRequests ErrorCode = "too_many_requests"
	ErrorPersistence     ErrorCode = "persistence"
)

// ServiceError is the error every handler maps to a status code. Message is safe to show.
type ServiceError struct {
	Code    ErrorCode
	Message string
	Details []string
	Err     error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error { return e.Err }

func NewInvalidError(msg string, details ...string) error {
	return &ServiceError{Code: ErrorInvalid, Message: msg, Details: details}
}
func NewForbiddenError(msg string) error { return &ServiceError{Code: ErrorForbidden, Message: msg} }
func NewNotFoundError(msg string) error  { return &ServiceError{Code: ErrorNotFound, Message: msg} }
func NewConflictError(msg string) error  { return &ServiceError{Code: ErrorConflict, Message: msg} }
func NewUnauthorizedError(msg string) error {
	return &ServiceError{Code: ErrorUnauthorized, Message: msg}
}

func NewTooManyRequestsError(msg string) error {
	return &ServiceError{Code: ErrorTooManyRequests, Message: msg}
}

// NewPersistenceError wraps a storage failure; the cause is logged, never shown.
func NewPersistenceError(msg string, err error) error {
	return &ServiceError{Code: ErrorPersistence, Message: msg, Err: err}
}

func AsServiceError(err error) (*ServiceError, bool) {
	var se *ServiceError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ErrBotDetected marks a submission rejected by the honeypot or timing heuristics.
// It never reaches the client; callers see an ordinary failed decision.
var ErrBotDetected = errors.New("bot detected")

// ErrSurveyNotFound is shared by missing and inactive surveys so the two are indistinguishable.
var ErrSurveyNotFound = &ServiceError{Code: ErrorNotFound, Message: "survey not found"}
