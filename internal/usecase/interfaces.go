package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/i2y/legacybridge/internal/domain"
)

// Standard errors returned by use cases and adapters.
var (
	ErrConfigNotSet     = errors.New("proxy configuration not set")
	ErrResourceNotFound = errors.New("resource not configured")
	ErrInvalidInput     = errors.New("invalid input")
	ErrPayloadTooLarge  = errors.New("payload too large")

	// ErrBackendTimeout and ErrBackendUnreachable are wrapped by Transport
	// implementations so callers can classify failures without knowing the
	// underlying client.
	ErrBackendTimeout     = errors.New("backend timed out")
	ErrBackendUnreachable = errors.New("backend unreachable")
)

// inputError carries a caller-facing message and matches ErrInvalidInput.
type inputError struct {
	msg string
}

func (e *inputError) Error() string { return e.msg }

func (e *inputError) Is(target error) bool { return target == ErrInvalidInput }

// InvalidInput returns an error matching ErrInvalidInput whose message is
// shown to the caller unchanged.
func InvalidInput(format string, args ...any) error {
	return &inputError{msg: fmt.Sprintf(format, args...)}
}

// --- Outbound transport ---

// OutboundRequest is one HTTP exchange with a legacy API.
type OutboundRequest struct {
	Method string
	URL    string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// OutboundResponse is the raw result of an OutboundRequest.
type OutboundResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Transport executes outbound calls. A non-2xx status is not an error;
// errors are reserved for failures to complete the exchange and should wrap
// ErrBackendTimeout or ErrBackendUnreachable where they apply.
type Transport interface {
	Do(ctx context.Context, req OutboundRequest) (*OutboundResponse, error)
}

// --- Proxy configuration ---

// ConfigStore holds the single active ProxyConfig.
// Get returns (nil, nil) when nothing is configured. Readers must always see
// a complete snapshot, never a partially written one.
type ConfigStore interface {
	Get(ctx context.Context) (*domain.ProxyConfig, error)
	Set(ctx context.Context, cfg *domain.ProxyConfig) error
	Clear(ctx context.Context) error
}

// --- Schema analysis ---

// AnalyzeMode selects the input format of an analysis request.
type AnalyzeMode string

const (
	ModeOpenAPI       AnalyzeMode = "openapi"
	ModeOpenAPIURL    AnalyzeMode = "openapi_url"
	ModeEndpoint      AnalyzeMode = "endpoint"
	ModeJSONSample    AnalyzeMode = "json_sample"
	ModeWSDL          AnalyzeMode = "wsdl"
	ModeWSDLURL       AnalyzeMode = "wsdl_url"
	ModeSoapEndpoint  AnalyzeMode = "soap_endpoint"
	ModeSoapXMLSample AnalyzeMode = "soap_xml_sample"
)

// AnalyzeRequest carries the inputs of every mode; only the fields a mode
// needs are read. SpecJSON may hold a JSON object or a JSON string with
// JSON or YAML text. CustomHeaders may hold an object or a JSON string
// encoding one.
type AnalyzeRequest struct {
	Mode AnalyzeMode `json:"mode"`

	SpecJSON json.RawMessage `json:"specJson,omitempty"`
	SpecURL  string          `json:"specUrl,omitempty"`

	BaseURL       string          `json:"baseUrl,omitempty"`
	EndpointPath  string          `json:"endpointPath,omitempty"`
	Method        string          `json:"method,omitempty"`
	AuthType      string          `json:"authType,omitempty"`
	AuthValue     string          `json:"authValue,omitempty"`
	CustomHeaders json.RawMessage `json:"customHeaders,omitempty"`

	SampleJSON json.RawMessage `json:"sampleJson,omitempty"`

	WSDLContent string `json:"wsdlContent,omitempty"`
	WSDLURL     string `json:"wsdlUrl,omitempty"`

	SoapAction string `json:"soapAction,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	WSSEToken  string `json:"wsseToken,omitempty"`

	SampleXML     string `json:"sampleXml,omitempty"`
	OperationName string `json:"operationName,omitempty"`
}

// SpecDocument returns the OpenAPI document text carried in SpecJSON.
func (r AnalyzeRequest) SpecDocument() ([]byte, error) {
	raw := bytes.TrimSpace(r.SpecJSON)
	if len(raw) > 0 && raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, InvalidInput("specJson is not a valid JSON string: %v", err)
		}
		return []byte(text), nil
	}
	return raw, nil
}

// Headers decodes CustomHeaders.
func (r AnalyzeRequest) Headers() (map[string]string, error) {
	raw := bytes.TrimSpace(r.CustomHeaders)
	if isBlankJSON(raw) {
		return nil, nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return nil, InvalidInput("Invalid JSON in customHeaders")
		}
		if strings.TrimSpace(text) == "" {
			return nil, nil
		}
		raw = []byte(text)
	}
	var headers map[string]string
	if err := json.Unmarshal(raw, &headers); err != nil {
		return nil, InvalidInput("Invalid JSON in customHeaders")
	}
	return headers, nil
}

// isBlankJSON reports whether raw is absent or encodes null, "", {} or [].
func isBlankJSON(raw []byte) bool {
	if len(bytes.TrimSpace(raw)) == 0 {
		return true
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false
	}
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return val == ""
	case map[string]any:
		return len(val) == 0
	case []any:
		return len(val) == 0
	}
	return false
}

// Analyzer turns one kind of input into resource schemas.
type Analyzer interface {
	Analyze(ctx context.Context, req AnalyzeRequest) ([]domain.ResourceSchema, error)
}

// --- Observability ---

// Metrics records gateway activity. Implementations must be safe for
// concurrent use.
type Metrics interface {
	ObserveForward(resource, operation string, apiType domain.APIType, status int, elapsed time.Duration)
	ObserveAnalyze(mode AnalyzeMode, err error, elapsed time.Duration)
}

// NopMetrics discards all observations.
type NopMetrics struct{}

func (NopMetrics) ObserveForward(string, string, domain.APIType, int, time.Duration) {}
func (NopMetrics) ObserveAnalyze(AnalyzeMode, error, time.Duration)                  {}
