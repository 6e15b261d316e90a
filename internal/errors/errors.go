package errors

import (
	"fmt"

	"github.com/Proton-105/arbor-bot/internal/i18n"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

const (
	CodeDatabase       = "E200"
	CodeExternalAPI    = "E300"
	CodeState          = "E400"
	CodeRateLimit      = "E500"
	CodePrivateChannel = "E600"
)

// AppError is a classified failure. MessageKey names the catalog entry shown to the user.
type AppError struct {
	Code       string
	Message    string
	MessageKey string
	Severity   Severity
	cause      error
}

func (e *AppError) Error() string {
	if e == nil {
		return ""
	}

	return e.Message
}

func (e *AppError) Unwrap() error {
	if e == nil {
		return nil
	}

	return e.cause
}

func (e *AppError) Cause() error {
	return e.Unwrap()
}

func NewDatabaseError(cause error) *AppError {
	var underlyingMsg string
	if cause != nil {
		underlyingMsg = cause.Error()
	}

	return &AppError{
		Code:       CodeDatabase,
		Message:    fmt.Sprintf("Database error: %s", underlyingMsg),
		MessageKey: i18n.KeyError,
		Severity:   SeverityHigh,
		cause:      cause,
	}
}

func NewExternalAPIError(apiName string, cause error) *AppError {
	msg := fmt.Sprintf("External API error: %s", apiName)
	if cause != nil {
		msg = fmt.Sprintf("%s: %s", msg, cause.Error())
	}

	return &AppError{
		Code:       CodeExternalAPI,
		Message:    msg,
		MessageKey: i18n.KeyError,
		Severity:   SeverityMedium,
		cause:      cause,
	}
}

func NewStateError(msg string) *AppError {
	return &AppError{
		Code:       CodeState,
		Message:    msg,
		MessageKey: i18n.KeyBusy,
		Severity:   SeverityLow,
	}
}

func NewRateLimitError(retryAfter int) *AppError {
	return &AppError{
		Code:       CodeRateLimit,
		Message:    fmt.Sprintf("Rate limit exceeded: retry after %d seconds", retryAfter),
		MessageKey: i18n.KeyRateLimited,
		Severity:   SeverityLow,
	}
}

// NewPrivateChannelError reports that the user's direct message channel could not be used.
func NewPrivateChannelError(cause error) *AppError {
	return &AppError{
		Code:       CodePrivateChannel,
		Message:    "Private channel unavailable",
		MessageKey: i18n.KeyDMFailed,
		Severity:   SeverityLow,
		cause:      cause,
	}
}
