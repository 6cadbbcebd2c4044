package soapxml

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/i2y/legacybridge/internal/authheader"
	"github.com/i2y/legacybridge/internal/domain"
	"github.com/i2y/legacybridge/internal/soap"
	"github.com/i2y/legacybridge/internal/usecase"
)

// EndpointAnalyzer implements usecase.Analyzer for the soap_endpoint mode:
// it calls the operation named by the SOAPAction with an empty request and
// analyzes the response like a sample.
type EndpointAnalyzer struct {
	transport usecase.Transport
	builder   *soap.Builder
	sample    *SampleAnalyzer
	logger    *slog.Logger
}

// NewEndpointAnalyzer creates a new EndpointAnalyzer.
func NewEndpointAnalyzer(transport usecase.Transport, builder *soap.Builder, sample *SampleAnalyzer, logger *slog.Logger) *EndpointAnalyzer {
	if builder == nil {
		builder = soap.NewBuilder()
	}
	return &EndpointAnalyzer{
		transport: transport,
		builder:   builder,
		sample:    sample,
		logger:    logger.With("component", "soap_endpoint_analyzer"),
	}
}

// Analyze posts the request envelope to req.BaseURL and infers a resource
// from the response. WSSE credentials go into the envelope; Basic
// credentials into the Authorization header.
func (a *EndpointAnalyzer) Analyze(ctx context.Context, req usecase.AnalyzeRequest) ([]domain.ResourceSchema, error) {
	operation, namespace := SplitAction(req.SoapAction)
	log := a.logger.With(slog.String("operation", operation), slog.String("url", req.BaseURL))

	auth := requestAuth(req)
	envelope, err := a.builder.Build(operation, namespace, nil, &auth)
	if err != nil {
		return nil, usecase.InvalidInput("Unable to build SOAP request: %v", err)
	}

	log.Info("Calling SOAP endpoint")
	resp, err := a.transport.Do(ctx, usecase.OutboundRequest{
		Method: http.MethodPost,
		URL:    req.BaseURL,
		Header: authheader.SOAP(auth, strings.Trim(req.SoapAction, `"`)),
		Body:   []byte(envelope),
	})
	if err != nil {
		log.Warn("SOAP endpoint unreachable", slog.Any("error", err))
		return nil, usecase.InvalidInput("Unable to reach SOAP endpoint: %v", err)
	}

	if fault := responseFault(resp.Body); fault != nil {
		log.Warn("SOAP endpoint returned a fault", slog.String("fault_code", fault.Code))
		return nil, usecase.InvalidInput("SOAP Fault: %s", fault.String)
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, usecase.InvalidInput("Unable to reach SOAP endpoint: status %d", resp.Status)
	}

	schema, err := a.sample.FromDocument(ctx, resp.Body, operation, req.BaseURL)
	if err != nil {
		return nil, err
	}
	return []domain.ResourceSchema{schema}, nil
}

// requestAuth maps the request's authType onto an AuthConfig.
func requestAuth(req usecase.AnalyzeRequest) domain.AuthConfig {
	switch strings.ToLower(req.AuthType) {
	case "wsse":
		return domain.AuthConfig{Mode: domain.AuthWSSE, WSSEUsername: req.Username, WSSEPassword: req.Password}
	case "basic":
		return domain.AuthConfig{Mode: domain.AuthBasic, BasicUser: req.Username, BasicPass: req.Password}
	}
	return domain.AuthConfig{Mode: domain.AuthNone}
}

// responseFault returns the fault carried by body, if body parses.
func responseFault(body []byte) *soap.FaultError {
	root, err := soap.Decode(body)
	if err != nil {
		return nil
	}
	return soap.Fault(soap.Body(root))
}

// SplitAction derives the operation name and namespace from a SOAPAction
// such as "http://example.com/customers/GetCustomer". An action without a
// slash is both.
func SplitAction(action string) (operation, namespace string) {
	action = strings.Trim(action, `"`)
	i := strings.LastIndex(action, "/")
	if i < 0 {
		return action, action
	}
	return action[i+1:], action[:i]
}
