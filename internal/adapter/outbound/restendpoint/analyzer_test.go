package restendpoint_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/legacybridge/internal/adapter/outbound/httpinvoker"
	"github.com/i2y/legacybridge/internal/adapter/outbound/restendpoint"
	"github.com/i2y/legacybridge/internal/domain"
	"github.com/i2y/legacybridge/internal/usecase"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newAnalyzer(server *httptest.Server) *restendpoint.Analyzer {
	logger := discardLogger()
	return restendpoint.NewAnalyzer(
		httpinvoker.New(server.Client(), 0, logger),
		usecase.NewSchemaBuilder(nil, logger),
		logger,
	)
}

func TestAnalyzer_Analyze(t *testing.T) {
	assert := assert.New(t)
	var gotMethod, gotPath string
	var gotHeader http.Header
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotHeader = r.Method, r.URL.Path, r.Header.Clone()
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"data":[{"userId":1,"email":"a@example.com"},{"userId":2,"email":"b@example.com"}]}`))
	}))
	defer server.Close()

	resources, err := newAnalyzer(server).Analyze(context.Background(), usecase.AnalyzeRequest{
		Mode:          usecase.ModeEndpoint,
		BaseURL:       server.URL + "/",
		EndpointPath:  "/api/v1/users",
		AuthType:      "Bearer",
		AuthValue:     "tok",
		CustomHeaders: json.RawMessage(`{"X-Tenant":"acme"}`),
	})

	require.NoError(t, err)
	require.Len(t, resources, 1)
	res := resources[0]
	assert.Equal("users", res.Name)
	assert.Equal("Users", res.DisplayName)
	assert.Equal("/api/v1/users", res.Endpoint)
	assert.Equal("userId", res.PrimaryKey)
	assert.Equal([]domain.Operation{domain.OpList}, res.Operations)
	assert.Equal([]string{"userId", "email"}, res.FieldNames())

	assert.Equal(http.MethodGet, gotMethod)
	assert.Equal("/api/v1/users", gotPath)
	assert.Equal("Bearer tok", gotHeader.Get("Authorization"))
	assert.Equal("acme", gotHeader.Get("X-Tenant"))
}

func TestAnalyzer_PostWithoutNameSegment(t *testing.T) {
	var gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		w.Write([]byte(`{"id":"x1","total":"$4.50"}`))
	}))
	defer server.Close()

	resources, err := newAnalyzer(server).Analyze(context.Background(), usecase.AnalyzeRequest{
		BaseURL:      server.URL,
		EndpointPath: "api/v2/42",
		Method:       "post",
	})

	require.NoError(t, err)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, usecase.SampleResourceName, resources[0].Name)
	assert.Equal(t, "api/v2/42", resources[0].Endpoint)
	assert.Equal(t, []domain.Operation{domain.OpDetail}, resources[0].Operations)
}

func TestAnalyzer_Failures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		method  string
		headers string
		wantMsg string
	}{
		{name: "unsupported method", method: "DELETE", wantMsg: "Unsupported HTTP method: DELETE"},
		{name: "not json", status: http.StatusOK, body: "<html>", wantMsg: "Response is not valid JSON"},
		{name: "error status", status: http.StatusBadGateway, body: "{}", wantMsg: "Unable to reach endpoint: status 502"},
		{name: "bad custom headers", headers: `"{not json"`, wantMsg: "Invalid JSON in customHeaders"},
		{name: "empty array", status: http.StatusOK, body: "[]", wantMsg: "JSON array sample cannot be empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			req := usecase.AnalyzeRequest{BaseURL: server.URL, EndpointPath: "/items", Method: tt.method}
			if tt.headers != "" {
				req.CustomHeaders = json.RawMessage(tt.headers)
			}
			_, err := newAnalyzer(server).Analyze(context.Background(), req)

			require.Error(t, err)
			assert.ErrorIs(t, err, usecase.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestAnalyzer_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	analyzer := newAnalyzer(server)
	url := server.URL
	server.Close()

	_, err := analyzer.Analyze(context.Background(), usecase.AnalyzeRequest{BaseURL: url, EndpointPath: "/items"})

	require.Error(t, err)
	assert.ErrorIs(t, err, usecase.ErrInvalidInput)
	assert.Contains(t, err.Error(), "Unable to reach endpoint")
}

func TestRequestHeader(t *testing.T) {
	tests := []struct {
		name      string
		authType  string
		authValue string
		custom    map[string]string
		want      http.Header
	}{
		{name: "bearer", authType: "bearer", authValue: "t", want: http.Header{"Authorization": {"Bearer t"}}},
		{name: "api key", authType: "api-key", authValue: "k", want: http.Header{"X-Api-Key": {"k"}}},
		{name: "basic", authType: "basic", authValue: "user:pass", want: http.Header{"Authorization": {"Basic dXNlcjpwYXNz"}}},
		{name: "unknown type", authType: "digest", authValue: "x", want: http.Header{}},
		{name: "no value", authType: "bearer", want: http.Header{}},
		{
			name:     "custom overrides auth",
			authType: "bearer", authValue: "t",
			custom: map[string]string{"Authorization": "Token abc", "Accept": "application/json"},
			want:   http.Header{"Authorization": {"Token abc"}, "Accept": {"application/json"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, restendpoint.RequestHeader(tt.authType, tt.authValue, tt.custom))
		})
	}
}

func TestResourceName(t *testing.T) {
	tests := []struct {
		path string
		want string
		ok   bool
	}{
		{"/api/v1/users", "users", true},
		{"/users/{id}", "users", true},
		{"/api/v2/user-profiles", "user-profiles", true},
		{"/api/v1/Users/1", "users", true},
		{"/api/v3/", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := restendpoint.ResourceName(tt.path)
		assert.Equal(t, tt.want, got, tt.path)
		assert.Equal(t, tt.ok, ok, tt.path)
	}
}

func TestJoinURL(t *testing.T) {
	assert.Equal(t, "http://h/api/users", restendpoint.JoinURL("http://h/", "/api/users"))
	assert.Equal(t, "http://h/users", restendpoint.JoinURL("http://h", "users"))
}
