package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/i2y/legacybridge/internal/authheader"
	"github.com/i2y/legacybridge/internal/domain"
	"github.com/i2y/legacybridge/internal/errnorm"
	"github.com/i2y/legacybridge/internal/fieldmap"
	"github.com/i2y/legacybridge/internal/pathresolve"
	"github.com/i2y/legacybridge/internal/soap"
	"github.com/i2y/legacybridge/internal/unwrap"
)

// DefaultForwardTimeout bounds a single outbound call.
const DefaultForwardTimeout = 30 * time.Second

const tracerName = "github.com/i2y/legacybridge/internal/usecase"

// ForwardRequest is one normalized CRUD call against a configured resource.
type ForwardRequest struct {
	Resource  string
	Operation string
	ID        string
	Body      map[string]any
	Query     url.Values
}

// ForwardResult is what the caller sends back: a status code and either the
// legacy data or a *domain.APIError.
type ForwardResult struct {
	Status  int
	Payload any
}

// Err returns the normalized error carried by r, if any.
func (r ForwardResult) Err() *domain.APIError {
	e, _ := r.Payload.(*domain.APIError)
	return e
}

func failure(e *domain.APIError) ForwardResult {
	return ForwardResult{Status: e.Status, Payload: e}
}

// ForwardUseCase translates normalized CRUD calls into REST or SOAP calls
// against the configured legacy API. It keeps no per-call state.
type ForwardUseCase struct {
	store     ConfigStore
	transport Transport
	soap      *soap.Builder
	metrics   Metrics
	timeout   time.Duration
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewForwardUseCase creates a new ForwardUseCase. A zero timeout selects
// DefaultForwardTimeout and a nil metrics sink discards observations.
func NewForwardUseCase(store ConfigStore, transport Transport, metrics Metrics, timeout time.Duration, logger *slog.Logger) *ForwardUseCase {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if timeout <= 0 {
		timeout = DefaultForwardTimeout
	}
	return &ForwardUseCase{
		store:     store,
		transport: transport,
		soap:      soap.NewBuilder(),
		metrics:   metrics,
		timeout:   timeout,
		tracer:    otel.Tracer(tracerName),
		logger:    logger.With("usecase", "Forward"),
	}
}

// WithSoapBuilder replaces the envelope builder (used to pin nonces and clocks).
func (uc *ForwardUseCase) WithSoapBuilder(b *soap.Builder) *ForwardUseCase {
	uc.soap = b
	return uc
}

// Forward executes req. Every failure is returned as a ForwardResult carrying
// a *domain.APIError; Forward never returns a raw transport error.
func (uc *ForwardUseCase) Forward(ctx context.Context, req ForwardRequest) (result ForwardResult) {
	start := time.Now()
	log := uc.logger.With(slog.String("resource", req.Resource), slog.String("operation", req.Operation))

	ctx, span := uc.tracer.Start(ctx, "proxy.forward", trace.WithAttributes(
		attribute.String("legacybridge.resource", req.Resource),
		attribute.String("legacybridge.operation", req.Operation),
	))
	var apiType domain.APIType
	defer func() {
		span.SetAttributes(attribute.Int("http.response.status_code", result.Status))
		if e := result.Err(); e != nil {
			span.SetStatus(codes.Error, string(e.Code))
			log.Warn("Forwarding failed", slog.String("code", string(e.Code)), slog.Int("status", e.Status), slog.String("message", e.Message))
		}
		span.End()
		uc.metrics.ObserveForward(req.Resource, req.Operation, apiType, result.Status, time.Since(start))
	}()

	cfg, err := uc.store.Get(ctx)
	if err != nil {
		log.Error("Failed to load proxy configuration", slog.Any("error", err))
		return failure(errnorm.New(domain.CodeInternal, http.StatusInternalServerError, fmt.Sprintf("Failed to load proxy configuration: %v", err)))
	}
	if cfg == nil {
		return failure(errnorm.New(domain.CodeConfigNotSet, http.StatusBadRequest, "Proxy not configured. Please configure the proxy first."))
	}
	res, ok := cfg.Resource(req.Resource)
	if !ok {
		return failure(errnorm.New(domain.CodeResourceNotFound, http.StatusNotFound,
			fmt.Sprintf("Resource '%s' not found in proxy configuration", req.Resource)))
	}
	op, err := domain.ParseOperation(req.Operation)
	if err != nil {
		return failure(errnorm.New(domain.CodeUnsupportedOperation, http.StatusBadRequest, fmt.Sprintf("Unsupported operation: %s", req.Operation)))
	}

	apiType = cfg.APIType
	span.SetAttributes(attribute.String("legacybridge.api_type", string(apiType)))
	log.Debug("Forwarding request", slog.String("api_type", string(apiType)), slog.String("id", req.ID))

	switch cfg.APIType {
	case domain.APITypeREST:
		return uc.forwardREST(ctx, cfg, res, op, req, log)
	case domain.APITypeSOAP:
		return uc.forwardSOAP(ctx, cfg, res, op, req, log)
	default:
		return failure(errnorm.New(domain.CodeInternal, http.StatusInternalServerError, fmt.Sprintf("Unsupported API type: %s", cfg.APIType)))
	}
}

// restRoute returns the configured method and path for op, falling back to
// the conventional REST layout under the resource endpoint.
func restRoute(res *domain.ResourceConfig, op domain.Operation) (string, string) {
	if oc, ok := res.Operation(op); ok && oc.REST != nil {
		return strings.ToUpper(oc.REST.Method), oc.REST.Path
	}
	endpoint := res.Endpoint
	switch op {
	case domain.OpList:
		return http.MethodGet, endpoint
	case domain.OpDetail:
		return http.MethodGet, endpoint + "/{id}"
	case domain.OpCreate:
		return http.MethodPost, endpoint
	case domain.OpUpdate:
		return http.MethodPut, endpoint + "/{id}"
	default:
		return http.MethodDelete, endpoint + "/{id}"
	}
}

func (uc *ForwardUseCase) forwardREST(ctx context.Context, cfg *domain.ProxyConfig, res *domain.ResourceConfig, op domain.Operation, req ForwardRequest, log *slog.Logger) ForwardResult {
	errCtx := fmt.Sprintf("%s %s", op, res.Name)
	method, template := restRoute(res, op)

	params := map[string]string{}
	if req.ID != "" {
		params["id"] = req.ID
		params[res.PrimaryKeyOrDefault()] = req.ID
	}
	path, err := pathresolve.Resolve(template, params)
	if err != nil {
		return failure(errnorm.New(domain.CodePathParam, http.StatusBadRequest, err.Error()))
	}

	header := authheader.REST(cfg.Auth)
	header.Set("Content-Type", "application/json")
	header.Set("Accept", "application/json")

	var body []byte
	if len(req.Body) > 0 {
		outbound := fieldmap.MapRecord(req.Body, res.FieldMappings, false)
		if body, err = json.Marshal(outbound); err != nil {
			return failure(errnorm.Validation([]string{fmt.Sprintf("request body is not serializable: %v", err)}, errCtx))
		}
	}

	out := OutboundRequest{
		Method: method,
		URL:    strings.TrimRight(cfg.BaseURL, "/") + path,
		Query:  req.Query,
		Header: header,
		Body:   body,
	}
	log.Debug("Calling REST backend",
		slog.String("method", out.Method),
		slog.String("url", out.URL),
		slog.Any("headers", authheader.SanitizeForLogging(header)))

	resp, err := uc.do(ctx, out)
	if err != nil {
		return failure(transportFailure(err, errCtx))
	}

	if resp.Status >= http.StatusBadRequest {
		return ForwardResult{Status: resp.Status, Payload: errnorm.FromResponse(resp.Status, decodeBody(resp.Body), errCtx)}
	}
	if len(strings.TrimSpace(string(resp.Body))) == 0 {
		return ForwardResult{Status: resp.Status, Payload: nil}
	}

	data, err := DecodeJSON(resp.Body)
	if err != nil {
		return ForwardResult{Status: resp.Status, Payload: map[string]any{"data": string(resp.Body)}}
	}
	if res.ResponsePath != "" {
		data, err = unwrap.ByPath(data, res.ResponsePath)
		if err != nil {
			return failure(&domain.APIError{
				Code:    domain.CodeInvalidResponse,
				Status:  http.StatusBadGateway,
				Message: fmt.Sprintf("Response path %q not found: %s", res.ResponsePath, errCtx),
				Details: map[string]any{"responsePath": res.ResponsePath},
			})
		}
	} else {
		data = unwrap.Unwrap(data)
	}
	return ForwardResult{Status: resp.Status, Payload: fieldmap.Map(data, res.FieldMappings, true)}
}

func (uc *ForwardUseCase) forwardSOAP(ctx context.Context, cfg *domain.ProxyConfig, res *domain.ResourceConfig, op domain.Operation, req ForwardRequest, log *slog.Logger) ForwardResult {
	oc, ok := res.Operation(op)
	if !ok {
		return failure(errnorm.New(domain.CodeOperationNotConfigured, http.StatusBadRequest,
			fmt.Sprintf("SOAP operation '%s' not configured for resource '%s'", op, res.Name)))
	}
	if oc.SOAP == nil || oc.SOAP.OperationName == "" {
		return failure(errnorm.New(domain.CodeSoapConfigMissing, http.StatusBadRequest,
			fmt.Sprintf("SOAP configuration missing for operation '%s'", op)))
	}
	sc := oc.SOAP

	params := map[string]any{}
	if req.ID != "" {
		params[res.PrimaryKeyOrDefault()] = req.ID
	}
	for k, v := range fieldmap.MapRecord(req.Body, res.FieldMappings, false) {
		params[k] = v
	}

	envelope, err := uc.soap.Build(sc.OperationName, cfg.Namespace(), params, &cfg.Auth)
	if err != nil {
		return failure(errnorm.New(domain.CodeSoapBuild, http.StatusInternalServerError, fmt.Sprintf("Failed to build SOAP request: %v", err)))
	}

	header := authheader.SOAP(cfg.Auth, sc.SoapAction)
	out := OutboundRequest{
		Method: http.MethodPost,
		URL:    cfg.BaseURL,
		Header: header,
		Body:   []byte(envelope),
	}
	log.Debug("Calling SOAP backend",
		slog.String("url", out.URL),
		slog.String("soap_operation", sc.OperationName),
		slog.Any("headers", authheader.SanitizeForLogging(header)))

	resp, err := uc.do(ctx, out)
	if err != nil {
		return failure(transportFailure(err, fmt.Sprintf("SOAP %s %s", op, res.Name)))
	}
	if resp.Status != http.StatusOK {
		return ForwardResult{Status: resp.Status, Payload: errnorm.FromResponse(resp.Status, string(resp.Body), fmt.Sprintf("SOAP %s %s", op, res.Name))}
	}

	data, err := soap.ParseResponseElement(resp.Body, sc.OperationName, sc.ResponseElement)
	if err != nil {
		var fault *soap.FaultError
		if errors.As(err, &fault) {
			return failure(errnorm.SoapFault(fault.Code, fault.String, fmt.Sprintf("%s %s", op, res.Name)))
		}
		return failure(errnorm.New(domain.CodeSoapParse, http.StatusInternalServerError, fmt.Sprintf("Failed to parse SOAP response: %v", err)))
	}
	return ForwardResult{Status: http.StatusOK, Payload: fieldmap.Map(data, res.FieldMappings, true)}
}

func (uc *ForwardUseCase) do(ctx context.Context, req OutboundRequest) (*OutboundResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	resp, err := uc.transport.Do(ctx, req)
	if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(err, ErrBackendTimeout) {
		err = fmt.Errorf("%w: %v", ErrBackendTimeout, err)
	}
	return resp, err
}

func transportFailure(err error, errCtx string) *domain.APIError {
	switch {
	case errors.Is(err, ErrBackendTimeout):
		return errnorm.Timeout(errCtx)
	case errors.Is(err, ErrBackendUnreachable):
		return errnorm.Connection(err, errCtx)
	default:
		return errnorm.FromResponse(http.StatusInternalServerError, map[string]any{"error": err.Error()}, errCtx)
	}
}

// decodeBody returns the JSON value of b, or b as text when it is not JSON.
func decodeBody(b []byte) any {
	if v, err := DecodeJSON(b); err == nil {
		return v
	}
	return string(b)
}

// DecodeJSON decodes a single JSON value, keeping numbers as json.Number
// so integers beyond float64 precision pass through unchanged.
func DecodeJSON(b []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("invalid character after top-level value")
	}
	return v, nil
}
