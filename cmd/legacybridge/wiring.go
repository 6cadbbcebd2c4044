package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/i2y/legacybridge/configs"
	"github.com/i2y/legacybridge/internal/adapter/outbound/filestore"
	"github.com/i2y/legacybridge/internal/adapter/outbound/httpinvoker"
	"github.com/i2y/legacybridge/internal/adapter/outbound/memstore"
	"github.com/i2y/legacybridge/internal/adapter/outbound/openapi"
	"github.com/i2y/legacybridge/internal/adapter/outbound/prommetrics"
	"github.com/i2y/legacybridge/internal/adapter/outbound/redisstore"
	"github.com/i2y/legacybridge/internal/adapter/outbound/restendpoint"
	"github.com/i2y/legacybridge/internal/adapter/outbound/soapxml"
	"github.com/i2y/legacybridge/internal/adapter/outbound/wsdl"
	"github.com/i2y/legacybridge/internal/pkdetect"
	"github.com/i2y/legacybridge/internal/soap"
	"github.com/i2y/legacybridge/internal/usecase"
)

// components is the dependency graph shared by the serve and analyze
// commands.
type components struct {
	transport *httpinvoker.Invoker
	metrics   *prommetrics.Metrics
	analyze   *usecase.AnalyzeUseCase
}

func newComponents(cfg *configs.Config, reg prometheus.Registerer, logger *slog.Logger) *components {
	httpClient := &http.Client{Timeout: cfg.HTTPClientTimeout}
	logger.Debug("HTTP Client configured.", slog.Duration("timeout", cfg.HTTPClientTimeout))

	transport := httpinvoker.New(httpClient, cfg.MaxResponseBytes, logger)
	detector := pkdetect.New(nil, logger)
	builder := usecase.NewSchemaBuilder(detector, logger)

	var metrics *prommetrics.Metrics
	if reg != nil {
		metrics = prommetrics.New(reg)
	}

	openapiAnalyzer := openapi.NewAnalyzer(transport, detector, logger)
	wsdlAnalyzer := wsdl.NewAnalyzer(transport, detector, logger)
	sampleAnalyzer := soapxml.NewSampleAnalyzer(detector, logger)
	analyzers := map[usecase.AnalyzeMode]usecase.Analyzer{
		usecase.ModeOpenAPI:       openapiAnalyzer,
		usecase.ModeOpenAPIURL:    openapiAnalyzer,
		usecase.ModeEndpoint:      restendpoint.NewAnalyzer(transport, builder, logger),
		usecase.ModeWSDL:          wsdlAnalyzer,
		usecase.ModeWSDLURL:       wsdlAnalyzer,
		usecase.ModeSoapEndpoint:  soapxml.NewEndpointAnalyzer(transport, soap.NewBuilder(), sampleAnalyzer, logger),
		usecase.ModeSoapXMLSample: sampleAnalyzer,
	}
	logger.Debug("Analyzers initialized.", slog.Int("modes", len(analyzers)+1))

	c := &components{transport: transport, metrics: metrics}
	c.analyze = usecase.NewAnalyzeUseCase(analyzers, builder, c.observer(), cfg.MaxAnalyzePayload, logger)
	return c
}

// observer keeps a nil *prommetrics.Metrics from becoming a non-nil
// interface value.
func (c *components) observer() usecase.Metrics {
	if c.metrics == nil {
		return nil
	}
	return c.metrics
}

// openStore builds the configured proxy configuration store. The returned
// close function releases its connection, if any.
func openStore(ctx context.Context, cfg *configs.Config, logger *slog.Logger) (usecase.ConfigStore, func() error, error) {
	noop := func() error { return nil }
	switch cfg.Store {
	case configs.StoreFile:
		store, err := filestore.New(cfg.StorePath, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open file store: %w", err)
		}
		return store, noop, nil
	case configs.StoreRedis:
		store := redisstore.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.RedisKey, logger)
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return memstore.New(logger), noop, nil
	}
}
