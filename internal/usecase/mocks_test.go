package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/i2y/legacybridge/internal/domain"
	"github.com/i2y/legacybridge/internal/usecase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// MockTransport is a mock implementation of the Transport interface.
type MockTransport struct {
	mock.Mock
}

func (m *MockTransport) Do(ctx context.Context, req usecase.OutboundRequest) (*usecase.OutboundResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*usecase.OutboundResponse)
	return resp, args.Error(1)
}

// transportFunc adapts a function to the Transport interface.
type transportFunc func(ctx context.Context, req usecase.OutboundRequest) (*usecase.OutboundResponse, error)

func (f transportFunc) Do(ctx context.Context, req usecase.OutboundRequest) (*usecase.OutboundResponse, error) {
	return f(ctx, req)
}

// MockConfigStore is a mock implementation of the ConfigStore interface.
type MockConfigStore struct {
	mock.Mock
}

func (m *MockConfigStore) Get(ctx context.Context) (*domain.ProxyConfig, error) {
	args := m.Called(ctx)
	cfg, _ := args.Get(0).(*domain.ProxyConfig)
	return cfg, args.Error(1)
}

func (m *MockConfigStore) Set(ctx context.Context, cfg *domain.ProxyConfig) error {
	return m.Called(ctx, cfg).Error(0)
}

func (m *MockConfigStore) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// MockAnalyzer is a mock implementation of the Analyzer interface.
type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, req usecase.AnalyzeRequest) ([]domain.ResourceSchema, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).([]domain.ResourceSchema)
	return res, args.Error(1)
}

type forwardObservation struct {
	resource, operation string
	apiType             domain.APIType
	status              int
}

type analyzeObservation struct {
	mode usecase.AnalyzeMode
	err  error
}

// recordingMetrics keeps every observation for later assertions.
type recordingMetrics struct {
	mu       sync.Mutex
	forwards []forwardObservation
	analyses []analyzeObservation
}

func (r *recordingMetrics) ObserveForward(resource, operation string, apiType domain.APIType, status int, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.forwards = append(r.forwards, forwardObservation{resource, operation, apiType, status})
}

func (r *recordingMetrics) ObserveAnalyze(mode usecase.AnalyzeMode, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.analyses = append(r.analyses, analyzeObservation{mode, err})
}
