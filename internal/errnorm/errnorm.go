// Package errnorm maps legacy API failures onto the gateway error taxonomy.
package errnorm

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/i2y/legacybridge/internal/domain"
)

const maxMessageLen = 200

func withContext(msg, context string) string {
	if context == "" {
		return msg
	}
	return msg + ": " + context
}

// New builds an error for a local failure.
func New(code domain.ErrorCode, status int, message string) *domain.APIError {
	return &domain.APIError{Code: code, Status: status, Message: message}
}

// FromResponse normalizes an error response from the legacy API. body is
// either the decoded JSON value or the raw text.
func FromResponse(status int, body any, context string) *domain.APIError {
	if text, ok := body.(string); ok && strings.Contains(strings.ToLower(text), "<html") {
		return &domain.APIError{
			Code:    domain.CodeInvalidResponse,
			Status:  status,
			Message: withContext("Backend returned HTML instead of JSON", context),
			Details: map[string]any{"responseType": "text/html"},
		}
	}

	switch {
	case status == http.StatusNotFound:
		e := New(domain.CodeNotFound, status, withContext("Resource not found", context))
		if !isEmpty(body) {
			e.Details = map[string]any{"responseBody": body}
		}
		return e
	case status == http.StatusMethodNotAllowed:
		return New(domain.CodeOperationNotSupported, status, withContext("Operation not supported", context))
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return New(domain.CodeAuth, status, withContext("Authentication failed", context))
	case status >= http.StatusInternalServerError:
		return backendError(status, body, context)
	}

	e := New(domain.CodeUnknown, status, withContext(fmt.Sprintf("Unexpected error (status %d)", status), context))
	if !isEmpty(body) {
		e.Details = map[string]any{"responseBody": body}
	}
	return e
}

func backendError(status int, body any, context string) *domain.APIError {
	msg := "Backend error"
	var details map[string]any
	switch b := body.(type) {
	case map[string]any:
		switch inner := b["error"].(type) {
		case string:
			msg = inner
		case map[string]any:
			if m, ok := inner["message"].(string); ok {
				msg = m
			}
		case nil:
			if m, ok := b["message"].(string); ok {
				msg = m
			}
		}
		details = b
	case string:
		if b != "" {
			msg = truncate(b, maxMessageLen)
			details = map[string]any{"rawResponse": b}
		}
	}
	return &domain.APIError{
		Code:    domain.CodeBackend,
		Status:  status,
		Message: withContext(msg, context),
		Details: details,
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func isEmpty(body any) bool {
	switch b := body.(type) {
	case nil:
		return true
	case string:
		return b == ""
	case map[string]any:
		return len(b) == 0
	case []any:
		return len(b) == 0
	}
	return false
}

// Timeout reports a legacy call that exceeded its deadline.
func Timeout(context string) *domain.APIError {
	return New(domain.CodeBackendUnavailable, http.StatusServiceUnavailable, withContext("Backend timed out", context))
}

// Connection reports a legacy call that could not reach the backend.
func Connection(err error, context string) *domain.APIError {
	text := "connection failed"
	if err != nil {
		text = err.Error()
	}
	return &domain.APIError{
		Code:    domain.CodeConnection,
		Status:  http.StatusServiceUnavailable,
		Message: withContext("Unable to connect to backend: "+text, context),
		Details: map[string]any{"originalError": text},
	}
}

// SoapFault reports a fault returned by a SOAP backend.
func SoapFault(faultCode, faultString, context string) *domain.APIError {
	return &domain.APIError{
		Code:          domain.CodeSoapFault,
		Status:        http.StatusInternalServerError,
		Message:       withContext(faultString, context),
		SoapFaultCode: faultCode,
	}
}

// Validation reports request validation failures detected before dispatch.
func Validation(errs []string, context string) *domain.APIError {
	list := make([]any, len(errs))
	for i, e := range errs {
		list[i] = e
	}
	return &domain.APIError{
		Code:    domain.CodeValidation,
		Status:  http.StatusBadRequest,
		Message: withContext(strings.Join(errs, "; "), context),
		Details: map[string]any{"validationErrors": list},
	}
}
