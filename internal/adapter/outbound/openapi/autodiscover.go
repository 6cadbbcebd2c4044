package openapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/i2y/legacybridge/internal/usecase"
)

// Common OpenAPI schema paths used by various frameworks
var commonOpenAPIPaths = []string{
	"/openapi.json",            // FastAPI default
	"/docs/openapi.json",       // Alternative FastAPI path
	"/swagger.json",            // Swagger/OpenAPI 2.0
	"/v3/api-docs",             // SpringDoc OpenAPI 3.0
	"/v2/api-docs",             // SpringFox
	"/api-docs",                // SpringFox
	"/api/openapi.json",        // Custom API prefix
	"/api/v1/openapi.json",     // Versioned API
	"/api/swagger.json",        // Alternative swagger path
	"/swagger/v1/swagger.json", // .NET default
	"/openapi.yaml",
	"/swagger.yaml",
}

const probeTimeout = 5 * time.Second

// AutoDiscoverer attempts to find OpenAPI schemas from base URLs
type AutoDiscoverer struct {
	transport usecase.Transport
	logger    *slog.Logger
}

// NewAutoDiscoverer creates a new OpenAPI schema auto-discoverer
func NewAutoDiscoverer(transport usecase.Transport, logger *slog.Logger) *AutoDiscoverer {
	return &AutoDiscoverer{
		transport: transport,
		logger:    logger.With("component", "openapi_autodiscoverer"),
	}
}

// LooksLikeSpecURL reports whether source already names a spec document
// rather than the root of a service.
func LooksLikeSpecURL(source string) bool {
	lower := strings.ToLower(source)
	if u, err := url.Parse(lower); err == nil {
		lower = u.Path
	}
	return strings.HasSuffix(lower, ".json") ||
		strings.HasSuffix(lower, ".yaml") ||
		strings.HasSuffix(lower, ".yml") ||
		strings.Contains(lower, "openapi") ||
		strings.Contains(lower, "swagger") ||
		strings.Contains(lower, "api-docs")
}

// Resolve returns source unchanged when it already names a spec, otherwise
// the first common spec path under source that answers with a document.
// When nothing is found source is returned so the caller's fetch reports
// the real failure.
func (d *AutoDiscoverer) Resolve(ctx context.Context, source string, headers map[string]string) string {
	log := d.logger.With(slog.String("source", source))
	if LooksLikeSpecURL(source) {
		log.Debug("Source appears to be a direct schema URL")
		return source
	}

	log.Info("Source appears to be a base URL, attempting auto-discovery")
	found, err := d.Discover(ctx, source, headers)
	if err != nil {
		log.Warn("Auto-discovery failed, using original source", slog.Any("error", err))
		return source
	}
	return found
}

// Discover probes the common spec paths under baseURL.
func (d *AutoDiscoverer) Discover(ctx context.Context, baseURL string, headers map[string]string) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	if parsed.Scheme == "" {
		return "", fmt.Errorf("base URL must include scheme (http:// or https://)")
	}

	for _, path := range commonOpenAPIPaths {
		candidate := strings.TrimRight(baseURL, "/") + path
		ok, err := d.probe(ctx, candidate, headers)
		if err != nil {
			d.logger.Debug("Error checking path", slog.String("url", candidate), slog.Any("error", err))
			continue
		}
		if ok {
			d.logger.Info("Found OpenAPI schema", slog.String("url", candidate))
			return candidate, nil
		}
	}
	return "", fmt.Errorf("no OpenAPI schema found at base URL: %s", baseURL)
}

// probe reports whether candidate answers 200 with a JSON or YAML body.
func (d *AutoDiscoverer) probe(ctx context.Context, candidate string, headers map[string]string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	h := http.Header{}
	h.Set("Accept", "application/json, application/vnd.oai.openapi+json, application/yaml")
	for k, v := range headers {
		h.Set(k, v)
	}
	resp, err := d.transport.Do(ctx, usecase.OutboundRequest{Method: http.MethodGet, URL: candidate, Header: h})
	if err != nil {
		return false, err
	}
	if resp.Status != http.StatusOK {
		return false, nil
	}
	contentType := strings.ToLower(resp.Header.Get("Content-Type"))
	return strings.Contains(contentType, "json") || strings.Contains(contentType, "yaml"), nil
}
