package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	CodeAuthRejected       = "auth_rejected"
	CodeForbidden          = "forbidden"
	CodeRateLimited        = "rate_limited"
	CodeOracleUnavailable  = "oracle_unavailable"
	CodeOracleMalformed    = "oracle_malformed_output"
	CodeValidationFailed   = "validation_failed"
	CodeNotFound           = "not_found"
	CodeAlreadyCompleted   = "already_completed"
	CodeStorageUnavailable = "storage_unavailable"
)

// Oracle failure causes, surfaced alongside oracle_unavailable.
const (
	OracleCauseTimeout = "timeout"
	OracleCauseNetwork = "network"
	OracleCauseQuota   = "quota"
	OracleCauseAuth    = "auth_failure"
)

type Error struct {
	Status     int
	Code       string
	Cause      string
	RetryAfter time.Duration
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	if e.Status != 0 {
		return fmt.Sprintf("api error (%d)", e.Status)
	}
	return "api error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

// From returns err as an *Error, wrapping unknown errors as a 500.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return New(http.StatusInternalServerError, "internal_error", err)
}

func AuthRejected(err error) *Error {
	return New(http.StatusUnauthorized, CodeAuthRejected, err)
}

func Forbidden(err error) *Error {
	return New(http.StatusForbidden, CodeForbidden, err)
}

func GateRejected(retryAfter time.Duration) *Error {
	return &Error{
		Status:     http.StatusTooManyRequests,
		Code:       CodeRateLimited,
		RetryAfter: retryAfter,
		Err:        fmt.Errorf("too many requests, retry after %s", retryAfter),
	}
}

func OracleUnavailable(cause string, err error) *Error {
	return &Error{
		Status: http.StatusServiceUnavailable,
		Code:   CodeOracleUnavailable,
		Cause:  cause,
		Err:    err,
	}
}

func OracleMalformed(err error) *Error {
	return New(http.StatusBadGateway, CodeOracleMalformed, err)
}

func ValidationFailed(field, reason string) *Error {
	return New(http.StatusBadRequest, CodeValidationFailed, fmt.Errorf("%s: %s", field, reason))
}

func NotFound(what string) *Error {
	return New(http.StatusNotFound, CodeNotFound, fmt.Errorf("%s not found", what))
}

func AlreadyCompleted() *Error {
	return New(http.StatusConflict, CodeAlreadyCompleted, fmt.Errorf("quiz already completed for this record"))
}

func StorageUnavailable(err error) *Error {
	return New(http.StatusServiceUnavailable, CodeStorageUnavailable, err)
}

// Is reports whether err carries the given taxonomy code.
func Is(err error, code string) bool {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Code == code
	}
	return false
}
