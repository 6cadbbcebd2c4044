// Package restendpoint infers a resource schema by calling a live REST
// endpoint and analyzing its JSON response.
package restendpoint

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"unicode"

	"github.com/i2y/legacybridge/internal/authheader"
	"github.com/i2y/legacybridge/internal/displayname"
	"github.com/i2y/legacybridge/internal/domain"
	"github.com/i2y/legacybridge/internal/usecase"
)

// APIKeyHeader carries the key for authType "api-key".
const APIKeyHeader = "X-API-Key"

// Analyzer implements usecase.Analyzer for the endpoint mode.
type Analyzer struct {
	transport usecase.Transport
	builder   *usecase.SchemaBuilder
	logger    *slog.Logger
}

// NewAnalyzer creates a new endpoint Analyzer.
func NewAnalyzer(transport usecase.Transport, builder *usecase.SchemaBuilder, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		transport: transport,
		builder:   builder,
		logger:    logger.With("component", "endpoint_analyzer"),
	}
}

// Analyze calls req.BaseURL + req.EndpointPath and infers one resource from
// the JSON it returns.
func (a *Analyzer) Analyze(ctx context.Context, req usecase.AnalyzeRequest) ([]domain.ResourceSchema, error) {
	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	if method != http.MethodGet && method != http.MethodPost {
		return nil, usecase.InvalidInput("Unsupported HTTP method: %s", req.Method)
	}

	custom, err := req.Headers()
	if err != nil {
		return nil, err
	}
	header := RequestHeader(req.AuthType, req.AuthValue, custom)
	target := JoinURL(req.BaseURL, req.EndpointPath)
	log := a.logger.With(slog.String("method", method), slog.String("url", target))

	log.Info("Calling endpoint", slog.Any("headers", authheader.SanitizeForLogging(header)))
	resp, err := a.transport.Do(ctx, usecase.OutboundRequest{Method: method, URL: target, Header: header})
	if err != nil {
		log.Warn("Endpoint unreachable", slog.Any("error", err))
		return nil, usecase.InvalidInput("Unable to reach endpoint: %v", err)
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, usecase.InvalidInput("Unable to reach endpoint: status %d", resp.Status)
	}
	var probe any
	if err := json.Unmarshal(resp.Body, &probe); err != nil {
		return nil, usecase.InvalidInput("Response is not valid JSON: %v", err)
	}

	schema, err := a.builder.FromJSON(ctx, resp.Body)
	if err != nil {
		return nil, err
	}
	schema.Endpoint = req.EndpointPath
	if name, ok := ResourceName(req.EndpointPath); ok {
		schema.Name = name
		schema.DisplayName = displayname.Title(name)
	}
	return []domain.ResourceSchema{schema}, nil
}

// JoinURL joins base and path with exactly one slash between them.
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// RequestHeader builds the outbound headers for authType ("bearer",
// "api-key" or "basic" with a "user:pass" value) plus custom headers,
// which are applied last and may override auth.
func RequestHeader(authType, authValue string, custom map[string]string) http.Header {
	h := make(http.Header)
	if authType != "" && authValue != "" {
		switch strings.ToLower(authType) {
		case "bearer":
			h.Set("Authorization", "Bearer "+authValue)
		case "api-key":
			h.Set(APIKeyHeader, authValue)
		case "basic":
			h.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(authValue)))
		}
	}
	for k, v := range custom {
		h.Set(k, v)
	}
	return h
}

// ResourceName returns the last path segment that is not a template
// parameter, a numeric id or one of api, v1, v2, v3, lower-cased.
func ResourceName(path string) (string, bool) {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		switch {
		case seg == "", strings.HasPrefix(seg, "{"), isDigits(seg):
			continue
		}
		switch strings.ToLower(seg) {
		case "api", "v1", "v2", "v3":
			continue
		}
		return strings.ToLower(seg), true
	}
	return "", false
}

func isDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
