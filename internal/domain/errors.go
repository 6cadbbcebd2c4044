package domain

import (
	"encoding/json"
	"fmt"
)

// ErrorCode names one entry of the gateway's error taxonomy.
type ErrorCode string

const (
	CodeValidation             ErrorCode = "VALIDATION_ERROR"
	CodeNotFound               ErrorCode = "NOT_FOUND"
	CodeAuth                   ErrorCode = "AUTH_ERROR"
	CodeOperationNotSupported  ErrorCode = "OPERATION_NOT_SUPPORTED"
	CodeOperationNotConfigured ErrorCode = "OPERATION_NOT_CONFIGURED"
	CodeSoapConfigMissing      ErrorCode = "SOAP_CONFIG_MISSING"
	CodeInvalidResponse        ErrorCode = "INVALID_RESPONSE"
	CodeBackend                ErrorCode = "BACKEND_ERROR"
	CodeBackendUnavailable     ErrorCode = "BACKEND_UNAVAILABLE"
	CodeConnection             ErrorCode = "CONNECTION_ERROR"
	CodeSoapFault              ErrorCode = "SOAP_FAULT"
	CodeSoapBuild              ErrorCode = "SOAP_BUILD_ERROR"
	CodeSoapParse              ErrorCode = "SOAP_PARSE_ERROR"
	CodeUnknown                ErrorCode = "UNKNOWN_ERROR"

	// Dispatch failures raised before any network call.
	CodeConfigNotSet         ErrorCode = "CONFIG_NOT_SET"
	CodeResourceNotFound     ErrorCode = "RESOURCE_NOT_FOUND"
	CodeUnsupportedOperation ErrorCode = "UNSUPPORTED_OPERATION"
	CodePathParam            ErrorCode = "PATH_PARAM_ERROR"
	CodeInternal             ErrorCode = "INTERNAL_ERROR"
)

// APIError is the single normalized error shape returned to gateway callers.
// It serializes as {"error": {...}}.
type APIError struct {
	Code          ErrorCode      `json:"code"`
	Status        int            `json:"status"`
	Message       string         `json:"message"`
	Details       map[string]any `json:"details,omitempty"`
	SoapFaultCode string         `json:"soapFaultCode,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Body returns the wire envelope for e.
func (e *APIError) Body() map[string]any {
	inner := map[string]any{
		"code":    string(e.Code),
		"status":  e.Status,
		"message": e.Message,
	}
	if len(e.Details) > 0 {
		inner["details"] = e.Details
	}
	if e.SoapFaultCode != "" {
		inner["soapFaultCode"] = e.SoapFaultCode
	}
	return map[string]any{"error": inner}
}

// MarshalJSON renders the {"error": {...}} envelope.
func (e *APIError) MarshalJSON() ([]byte, error) {
	type plain APIError
	return json.Marshal(struct {
		Error *plain `json:"error"`
	}{Error: (*plain)(e)})
}
