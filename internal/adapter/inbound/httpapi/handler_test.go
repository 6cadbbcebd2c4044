package httpapi_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/legacybridge/internal/adapter/inbound/httpapi"
	"github.com/i2y/legacybridge/internal/adapter/outbound/httpinvoker"
	"github.com/i2y/legacybridge/internal/adapter/outbound/memstore"
	"github.com/i2y/legacybridge/internal/usecase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// backendCall records what the legacy backend received.
type backendCall struct {
	method string
	path   string
	query  string
	auth   string
	body   string
}

type fixture struct {
	mux     *http.ServeMux
	backend *httptest.Server
	calls   []backendCall
}

func newFixture(t *testing.T, maxPayload int) *fixture {
	t.Helper()
	logger := discardLogger()
	f := &fixture{}
	f.backend = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		f.calls = append(f.calls, backendCall{
			method: r.Method, path: r.URL.Path, query: r.URL.RawQuery,
			auth: r.Header.Get("Authorization"), body: string(body),
		})
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodDelete:
			w.WriteHeader(http.StatusNoContent)
		case r.URL.Path == "/customers":
			w.Write([]byte(`{"data":[{"CUST_ID":1,"CUST_NM":"Ann"}]}`))
		case r.URL.Path == "/customers/7":
			w.Write([]byte(`{"CUST_ID":7,"CUST_NM":"Bob"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"message":"no such record"}`))
		}
	}))
	t.Cleanup(f.backend.Close)

	store := memstore.New(logger)
	transport := httpinvoker.New(f.backend.Client(), 0, logger)
	configureUC, err := usecase.NewConfigureProxyUseCase(store, logger)
	require.NoError(t, err)
	forwardUC := usecase.NewForwardUseCase(store, transport, nil, 0, logger)
	analyzeUC := usecase.NewAnalyzeUseCase(nil, usecase.NewSchemaBuilder(nil, logger), nil, maxPayload, logger)

	f.mux = http.NewServeMux()
	httpapi.NewHandlers(analyzeUC, configureUC, forwardUC, logger).RegisterRoutes(f.mux)
	return f
}

func (f *fixture) do(method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) configure(t *testing.T) {
	t.Helper()
	cfg := `{
  "baseUrl": "` + f.backend.URL + `",
  "apiType": "rest",
  "auth": {"mode": "bearer", "bearerToken": "s3cret"},
  "resources": [{
    "name": "customers",
    "endpoint": "/customers",
    "operations": {},
    "fieldMappings": [
      {"normalizedName": "id", "legacyName": "CUST_ID"},
      {"normalizedName": "name", "legacyName": "CUST_NM"}
    ]
  }]
}`
	rec := f.do(http.MethodPost, "/proxy/config", cfg)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{name: "bad body", body: "{", wantStatus: http.StatusBadRequest, wantDetail: "Invalid request body"},
		{name: "unknown mode", body: `{"mode":"graphql"}`, wantStatus: http.StatusBadRequest, wantDetail: "Unknown analysis mode: graphql"},
		{name: "missing input", body: `{"mode":"json_sample"}`, wantStatus: http.StatusBadRequest, wantDetail: "sampleJson is required for json_sample mode"},
		{
			name:       "over the payload cap",
			body:       `{"mode":"json_sample","sampleJson":{"description":"` + strings.Repeat("x", 200) + `"}}`,
			wantStatus: http.StatusRequestEntityTooLarge,
			wantDetail: "payload too large",
		},
		{name: "no analyzer for mode", body: `{"mode":"wsdl","wsdlContent":"<definitions/>"}`, wantStatus: http.StatusInternalServerError, wantDetail: "Analysis failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 128)
			rec := f.do(http.MethodPost, "/analyze", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, decode(t, rec)["detail"], tt.wantDetail)
		})
	}
}

func TestAnalyze_JSONSample(t *testing.T) {
	f := newFixture(t, 0)
	rec := f.do(http.MethodPost, "/analyze", `{"mode":"json_sample","sampleJson":[{"orderId":1,"email":"a@example.com"}],"endpointPath":"/orders"}`)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var result usecase.AnalyzeResult
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	require.Len(t, result.Resources, 1)
	assert.Equal(t, "/orders", result.Resources[0].Endpoint)
	assert.Equal(t, "orderId", result.Resources[0].PrimaryKey)
}

func TestProxyConfigLifecycle(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t, 0)

	rec := f.do(http.MethodGet, "/proxy/config", "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.JSONEq(`{"configured":false}`, rec.Body.String())

	rec = f.do(http.MethodGet, "/proxy/status", "")
	assert.JSONEq(`{"configured":false,"resourceCount":0}`, rec.Body.String())

	rec = f.do(http.MethodPost, "/proxy/config", `{"baseUrl":"ftp://x","apiType":"rest","resources":[]}`)
	assert.Equal(http.StatusBadRequest, rec.Code)
	assert.Contains(decode(t, rec)["detail"], "Invalid configuration")

	f.configure(t)

	rec = f.do(http.MethodGet, "/proxy/config", "")
	assert.Equal(http.StatusOK, rec.Code)
	got := decode(t, rec)
	assert.Equal(true, got["configured"])
	assert.Equal(f.backend.URL, got["baseUrl"])
	assert.Equal("***", got["auth"].(map[string]any)["bearerToken"])
	assert.NotContains(rec.Body.String(), "s3cret")

	rec = f.do(http.MethodGet, "/proxy/status", "")
	assert.JSONEq(`{"configured":true,"apiType":"rest","baseUrl":"`+f.backend.URL+`","resourceCount":1}`, rec.Body.String())

	rec = f.do(http.MethodDelete, "/proxy/config", "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.Equal("ok", decode(t, rec)["status"])

	rec = f.do(http.MethodGet, "/proxy/config", "")
	assert.JSONEq(`{"configured":false}`, rec.Body.String())
}

func TestProxy_NotConfigured(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.do(http.MethodGet, "/proxy/customers", "")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	errBody := decode(t, rec)["error"].(map[string]any)
	assert.Equal(t, "CONFIG_NOT_SET", errBody["code"])
	assert.Empty(t, f.calls)
}

func TestProxy_Forwarding(t *testing.T) {
	assert := assert.New(t)
	f := newFixture(t, 0)
	f.configure(t)

	rec := f.do(http.MethodGet, "/proxy/customers?page=2", "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.JSONEq(`[{"id":1,"name":"Ann"}]`, rec.Body.String())
	assert.Equal("GET, POST, PUT, PATCH, DELETE, OPTIONS", rec.Header().Get("Access-Control-Allow-Methods"))

	rec = f.do(http.MethodGet, "/proxy/customers/7", "")
	assert.Equal(http.StatusOK, rec.Code)
	assert.JSONEq(`{"id":7,"name":"Bob"}`, rec.Body.String())

	rec = f.do(http.MethodPatch, "/proxy/customers/7", `{"name":"Bobby"}`)
	assert.Equal(http.StatusOK, rec.Code)

	rec = f.do(http.MethodDelete, "/proxy/customers/7", "")
	assert.Equal(http.StatusNoContent, rec.Code)
	assert.Empty(rec.Body.String())

	rec = f.do(http.MethodGet, "/proxy/customers/99", "")
	assert.Equal(http.StatusNotFound, rec.Code)
	assert.Equal("NOT_FOUND", decode(t, rec)["error"].(map[string]any)["code"])

	require.Len(t, f.calls, 5)
	assert.Equal(backendCall{method: "GET", path: "/customers", query: "page=2", auth: "Bearer s3cret"}, f.calls[0])
	assert.Equal("GET", f.calls[1].method)
	assert.Equal("/customers/7", f.calls[1].path)
	assert.Equal("PUT", f.calls[2].method)
	assert.JSONEq(`{"CUST_NM":"Bobby"}`, f.calls[2].body)
	assert.Equal("DELETE", f.calls[3].method)
}

func TestProxy_KeepsIntegerPrecision(t *testing.T) {
	f := newFixture(t, 0)
	f.configure(t)

	rec := f.do(http.MethodPatch, "/proxy/customers/7", `{"id":9007199254740993}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, f.calls, 1)
	assert.Equal(t, `{"CUST_ID":9007199254740993}`, f.calls[0].body)
}

func TestProxy_Rejects(t *testing.T) {
	f := newFixture(t, 0)
	f.configure(t)

	rec := f.do(http.MethodPost, "/proxy/customers", `[1,2]`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "VALIDATION_ERROR", decode(t, rec)["error"].(map[string]any)["code"])

	rec = f.do(http.MethodGet, "/proxy/invoices", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "RESOURCE_NOT_FOUND", decode(t, rec)["error"].(map[string]any)["code"])

	assert.Empty(t, f.calls)
}

func TestProxy_Preflight(t *testing.T) {
	f := newFixture(t, 0)

	rec := f.do(http.MethodOptions, "/proxy/customers/7", "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "Content-Type, Authorization", rec.Header().Get("Access-Control-Allow-Headers"))
}
