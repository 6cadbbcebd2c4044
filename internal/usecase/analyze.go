package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/i2y/legacybridge/internal/domain"
)

// DefaultMaxAnalyzePayload caps the size of inline analysis inputs.
const DefaultMaxAnalyzePayload = 10 << 20

// SupportedModes lists the analysis modes in the order they are documented.
var SupportedModes = []AnalyzeMode{
	ModeOpenAPI, ModeOpenAPIURL, ModeEndpoint, ModeJSONSample,
	ModeWSDL, ModeWSDLURL, ModeSoapEndpoint, ModeSoapXMLSample,
}

// AnalyzeUseCase routes an analysis request to the analyzer registered for
// its mode and normalizes the result.
type AnalyzeUseCase struct {
	analyzers  map[AnalyzeMode]Analyzer
	builder    *SchemaBuilder
	metrics    Metrics
	maxPayload int
	tracer     trace.Tracer
	logger     *slog.Logger
}

// NewAnalyzeUseCase creates a new AnalyzeUseCase. json_sample is served by
// builder; every other mode needs an entry in analyzers. A maxPayload of
// zero selects DefaultMaxAnalyzePayload.
func NewAnalyzeUseCase(analyzers map[AnalyzeMode]Analyzer, builder *SchemaBuilder, metrics Metrics, maxPayload int, logger *slog.Logger) *AnalyzeUseCase {
	if metrics == nil {
		metrics = NopMetrics{}
	}
	if maxPayload <= 0 {
		maxPayload = DefaultMaxAnalyzePayload
	}
	return &AnalyzeUseCase{
		analyzers:  analyzers,
		builder:    builder,
		metrics:    metrics,
		maxPayload: maxPayload,
		tracer:     otel.Tracer(tracerName),
		logger:     logger.With("usecase", "Analyze"),
	}
}

// MaxPayload returns the configured inline payload cap in bytes.
func (uc *AnalyzeUseCase) MaxPayload() int {
	return uc.maxPayload
}

// Execute runs the analysis. Errors matching ErrInvalidInput or
// ErrPayloadTooLarge are the caller's fault; anything else is a failure of
// the analysis itself.
func (uc *AnalyzeUseCase) Execute(ctx context.Context, req AnalyzeRequest) (result AnalyzeResult, err error) {
	start := time.Now()
	log := uc.logger.With(slog.String("mode", string(req.Mode)))
	ctx, span := uc.tracer.Start(ctx, "analyze", trace.WithAttributes(attribute.String("legacybridge.mode", string(req.Mode))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			log.Warn("Analysis failed", slog.Any("error", err))
		} else {
			log.Info("Analysis completed", slog.Int("resources", len(result.Resources)))
		}
		span.End()
		uc.metrics.ObserveAnalyze(req.Mode, err, time.Since(start))
	}()

	if err := uc.validate(req); err != nil {
		return AnalyzeResult{}, err
	}

	var resources []domain.ResourceSchema
	if req.Mode == ModeJSONSample {
		schema, err := uc.builder.FromJSON(ctx, req.SampleJSON)
		if err != nil {
			return AnalyzeResult{}, err
		}
		if req.EndpointPath != "" {
			schema.Endpoint = req.EndpointPath
		}
		resources = []domain.ResourceSchema{schema}
	} else {
		analyzer, ok := uc.analyzers[req.Mode]
		if !ok {
			return AnalyzeResult{}, fmt.Errorf("no analyzer registered for mode %s", req.Mode)
		}
		log.Debug("Dispatching to analyzer")
		found, err := analyzer.Analyze(ctx, req)
		if err != nil {
			return AnalyzeResult{}, err
		}
		resources = found
	}
	return NormalizeResources(resources)
}

// validate checks the mode, its required inputs and the payload size.
func (uc *AnalyzeUseCase) validate(req AnalyzeRequest) error {
	required := func(names string, missing bool) error {
		if missing {
			verb := "is"
			if strings.Contains(names, " and ") {
				verb = "are"
			}
			return InvalidInput("%s %s required for %s mode", names, verb, req.Mode)
		}
		return nil
	}

	var err error
	switch req.Mode {
	case ModeOpenAPI:
		err = required("specJson", isBlankJSON(req.SpecJSON))
	case ModeOpenAPIURL:
		err = required("specUrl", req.SpecURL == "")
	case ModeEndpoint:
		err = required("baseUrl and endpointPath", req.BaseURL == "" || req.EndpointPath == "")
	case ModeJSONSample:
		err = required("sampleJson", isBlankJSON(req.SampleJSON))
	case ModeWSDL:
		err = required("wsdlContent", req.WSDLContent == "")
	case ModeWSDLURL:
		err = required("wsdlUrl", req.WSDLURL == "")
	case ModeSoapEndpoint:
		err = required("baseUrl and soapAction", req.BaseURL == "" || req.SoapAction == "")
	case ModeSoapXMLSample:
		if err = required("sampleXml", req.SampleXML == ""); err == nil {
			err = required("operationName", req.OperationName == "")
		}
	default:
		names := make([]string, len(SupportedModes))
		for i, m := range SupportedModes {
			names[i] = string(m)
		}
		return InvalidInput("Unknown analysis mode: %s. Supported modes: %s", req.Mode, strings.Join(names, ", "))
	}
	if err != nil {
		return err
	}

	size := len(req.SpecJSON) + len(req.SampleJSON) + len(req.WSDLContent) + len(req.SampleXML)
	if size > uc.maxPayload {
		return fmt.Errorf("%w: %d bytes exceeds the %d byte limit", ErrPayloadTooLarge, size, uc.maxPayload)
	}
	return nil
}
