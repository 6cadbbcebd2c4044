package httpinvoker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"syscall"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/i2y/legacybridge/internal/authheader"
	"github.com/i2y/legacybridge/internal/usecase"
)

// DefaultMaxResponseBytes caps how much of a legacy response is read.
const DefaultMaxResponseBytes = 20 << 20

// Invoker implements the usecase.Transport interface using standard net/http.
type Invoker struct {
	client   *http.Client
	maxBytes int64
	logger   *slog.Logger
}

// New creates a new HTTP Invoker. A maxBytes of zero selects
// DefaultMaxResponseBytes.
func New(client *http.Client, maxBytes int64, logger *slog.Logger) *Invoker {
	if client == nil {
		client = http.DefaultClient
	}
	if maxBytes <= 0 {
		maxBytes = DefaultMaxResponseBytes
	}
	return &Invoker{
		client:   client,
		maxBytes: maxBytes,
		logger:   logger.With("component", "http_invoker"),
	}
}

// Do executes one outbound exchange. Any status code is returned as a
// response; errors mean the exchange itself did not complete.
func (i *Invoker) Do(ctx context.Context, out usecase.OutboundRequest) (*usecase.OutboundResponse, error) {
	log := i.logger.With(
		slog.String("method", out.Method),
		slog.String("url", out.URL),
	)

	var body io.Reader
	if out.Body != nil {
		body = bytes.NewReader(out.Body)
	}
	req, err := http.NewRequestWithContext(ctx, out.Method, out.URL, body)
	if err != nil {
		log.Error("Failed to create HTTP request", slog.Any("error", err))
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if len(out.Query) > 0 {
		q := req.URL.Query()
		for k, vs := range out.Query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		req.URL.RawQuery = q.Encode()
	}
	for k, vs := range out.Header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	log.Debug("Executing HTTP request", slog.Any("headers", authheader.SanitizeForLogging(req.Header)))
	resp, err := i.client.Do(req)
	if err != nil {
		log.Warn("HTTP request failed", slog.Any("error", err))
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, i.maxBytes+1))
	if err != nil {
		log.Warn("Failed to read response body", slog.Any("error", err))
		return nil, classify(ctx, fmt.Errorf("failed to read response body: %w", err))
	}
	if int64(len(data)) > i.maxBytes {
		return nil, fmt.Errorf("response body exceeds %d bytes", i.maxBytes)
	}

	log.Debug("Received HTTP response", slog.Int("status_code", resp.StatusCode), slog.Int("size", len(data)))
	return &usecase.OutboundResponse{
		Status: resp.StatusCode,
		Header: resp.Header,
		Body:   data,
	}, nil
}

// classify wraps err with the usecase sentinel describing the failure.
func classify(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", usecase.ErrBackendTimeout, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", usecase.ErrBackendTimeout, err)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	switch {
	case errors.As(err, &dnsErr),
		errors.Is(err, syscall.ECONNREFUSED),
		errors.Is(err, syscall.ECONNRESET),
		errors.As(err, &opErr) && opErr.Op == "dial":
		return fmt.Errorf("%w: %v", usecase.ErrBackendUnreachable, err)
	}
	return fmt.Errorf("request execution failed: %w", err)
}
