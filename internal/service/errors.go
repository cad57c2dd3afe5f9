package service

import (
	"errors"
	"fmt"
	"net/http"

	"token-vending-service/internal/client"
)

// ServiceError is a typed error carrying the HTTP status a handler should
// answer with.
type ServiceError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func badRequest(format string, args ...interface{}) *ServiceError {
	return &ServiceError{StatusCode: http.StatusBadRequest, Message: fmt.Sprintf(format, args...)}
}

func unauthorized(msg string) *ServiceError {
	return &ServiceError{StatusCode: http.StatusUnauthorized, Message: msg}
}

func notFound(format string, args ...interface{}) *ServiceError {
	return &ServiceError{StatusCode: http.StatusNotFound, Message: fmt.Sprintf(format, args...)}
}

func conflict(format string, args ...interface{}) *ServiceError {
	return &ServiceError{StatusCode: http.StatusConflict, Message: fmt.Sprintf(format, args...)}
}

// configError points the operator at the setting that needs fixing.
func configError(settingKey, fix string) *ServiceError {
	return &ServiceError{
		StatusCode: http.StatusInternalServerError,
		Message:    fmt.Sprintf("configuration %q is missing or incomplete: %s", settingKey, fix),
	}
}

// parseError is an upstream 2xx answer that could not be understood.
func parseError(provider, reason, preview string) *ServiceError {
	msg := fmt.Sprintf("%s returned an unexpected response: %s", provider, reason)
	if preview != "" {
		msg = fmt.Sprintf("%s (body: %s)", msg, preview)
	}
	return &ServiceError{StatusCode: http.StatusInternalServerError, Message: msg}
}

func internalError(msg string, err error) *ServiceError {
	return &ServiceError{StatusCode: http.StatusInternalServerError, Message: msg, Err: err}
}

// upstreamError converts a gateway/provider client error. Provider statuses
// are passed through, unparseable bodies become 500 with a preview, and
// transport failures become 502.
func upstreamError(provider string, err error) *ServiceError {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return &ServiceError{StatusCode: apiErr.StatusCode, Message: apiErr.Message, Err: err}
	}

	var malformed *client.MalformedResponseError
	if errors.As(err, &malformed) {
		svcErr := parseError(malformed.Provider, malformed.Reason, malformed.Preview)
		svcErr.Err = err
		return svcErr
	}

	return &ServiceError{
		StatusCode: http.StatusBadGateway,
		Message:    fmt.Sprintf("%s is unreachable", provider),
		Err:        err,
	}
}

// StatusCode returns the HTTP status for any error returned by this package.
func StatusCode(err error) int {
	var svcErr *ServiceError
	if errors.As(err, &svcErr) {
		return svcErr.StatusCode
	}
	return http.StatusInternalServerError
}
