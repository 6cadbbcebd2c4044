package domain_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/legacybridge/internal/domain"
)

func restConfig() *domain.ProxyConfig {
	return &domain.ProxyConfig{
		BaseURL: "https://legacy.example.com/api",
		APIType: domain.APITypeREST,
		Auth:    domain.AuthConfig{Mode: domain.AuthBearer, BearerToken: "secret"},
		Resources: []domain.ResourceConfig{{
			Name:     "users",
			Endpoint: "/users",
			Operations: map[string]domain.OperationConfig{
				"list": {REST: &domain.RestOperationConfig{Method: "GET", Path: "/users"}},
			},
			FieldMappings: []domain.FieldMapping{{NormalizedName: "id", LegacyName: "USER_ID"}},
		}},
	}
}

func TestProxyConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.ProxyConfig)
		wantErr string
	}{
		{name: "valid", mutate: func(*domain.ProxyConfig) {}},
		{name: "missing base url", mutate: func(c *domain.ProxyConfig) { c.BaseURL = "" }, wantErr: "baseUrl is required"},
		{name: "relative base url", mutate: func(c *domain.ProxyConfig) { c.BaseURL = "/api" }, wantErr: "absolute http(s) URL"},
		{name: "bad api type", mutate: func(c *domain.ProxyConfig) { c.APIType = "grpc" }, wantErr: "unsupported apiType"},
		{name: "bearer without token", mutate: func(c *domain.ProxyConfig) { c.Auth.BearerToken = "" }, wantErr: "bearerToken"},
		{name: "unknown auth mode", mutate: func(c *domain.ProxyConfig) { c.Auth.Mode = "oauth" }, wantErr: "unsupported auth.mode"},
		{name: "no resources", mutate: func(c *domain.ProxyConfig) { c.Resources = nil }, wantErr: "at least one resource"},
		{
			name:    "duplicate resource",
			mutate:  func(c *domain.ProxyConfig) { c.Resources = append(c.Resources, c.Resources[0]) },
			wantErr: "duplicate resource name",
		},
		{
			name: "unknown operation key",
			mutate: func(c *domain.ProxyConfig) {
				c.Resources[0].Operations["search"] = domain.OperationConfig{}
			},
			wantErr: "invalid operation",
		},
		{
			name: "bad rest method",
			mutate: func(c *domain.ProxyConfig) {
				c.Resources[0].Operations["list"] = domain.OperationConfig{REST: &domain.RestOperationConfig{Method: "FETCH", Path: "/u"}}
			},
			wantErr: "unsupported rest.method",
		},
		{
			name: "duplicate legacy mapping",
			mutate: func(c *domain.ProxyConfig) {
				c.Resources[0].FieldMappings = append(c.Resources[0].FieldMappings,
					domain.FieldMapping{NormalizedName: "uid", LegacyName: "USER_ID"})
			},
			wantErr: "duplicate legacyName",
		},
		{
			name: "soap without soap operation",
			mutate: func(c *domain.ProxyConfig) {
				c.APIType = domain.APITypeSOAP
			},
			wantErr: "soap.operationName is required",
		},
		{
			name: "soap with soap operation",
			mutate: func(c *domain.ProxyConfig) {
				c.APIType = domain.APITypeSOAP
				c.Resources[0].Operations["list"] = domain.OperationConfig{
					SOAP: &domain.SoapOperationConfig{OperationName: "GetUsers", SoapAction: "urn:GetUsers"},
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := restConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestProxyConfig_CloneIsDeep(t *testing.T) {
	orig := restConfig()
	cp := orig.Clone()

	cp.Resources[0].Operations["list"].REST.Path = "/changed"
	cp.Resources[0].FieldMappings[0].LegacyName = "X"
	cp.Resources[0].Name = "other"

	assert.Equal(t, "/users", orig.Resources[0].Operations["list"].REST.Path)
	assert.Equal(t, "USER_ID", orig.Resources[0].FieldMappings[0].LegacyName)
	assert.Equal(t, "users", orig.Resources[0].Name)

	var nilCfg *domain.ProxyConfig
	assert.Nil(t, nilCfg.Clone())
}

func TestProxyConfig_Sanitized(t *testing.T) {
	cfg := restConfig()
	out := cfg.Sanitized()
	assert.Equal(t, "***", out.Auth.BearerToken)
	assert.Equal(t, "secret", cfg.Auth.BearerToken)

	raw, err := json.Marshal(out)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret")
}

func TestProxyConfig_LookupsAndDefaults(t *testing.T) {
	assert := assert.New(t)
	cfg := restConfig()

	res, ok := cfg.Resource("users")
	assert.True(ok)
	assert.Equal("id", res.PrimaryKeyOrDefault())
	_, ok = res.Operation(domain.OpList)
	assert.True(ok)
	_, ok = res.Operation(domain.OpDelete)
	assert.False(ok)

	_, ok = cfg.Resource("orders")
	assert.False(ok)

	assert.Equal(domain.DefaultSoapNamespace, cfg.Namespace())
	cfg.SoapNamespace = "urn:legacy"
	assert.Equal("urn:legacy", cfg.Namespace())
}

func TestParseOperation(t *testing.T) {
	for _, name := range []string{"list", "detail", "create", "update", "delete"} {
		op, err := domain.ParseOperation(name)
		assert.NoError(t, err)
		assert.Equal(t, name, string(op))
	}
	_, err := domain.ParseOperation("patch")
	assert.Error(t, err)
	assert.Equal(t, 3, domain.OpUpdate.Order())
	assert.Equal(t, -1, domain.Operation("x").Order())
}

func TestAPIError_JSON(t *testing.T) {
	e := &domain.APIError{Code: domain.CodeSoapFault, Status: 500, Message: "Bad", SoapFaultCode: "soap:Server"}
	raw, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"error":{"code":"SOAP_FAULT","status":500,"message":"Bad","soapFaultCode":"soap:Server"}}`, string(raw))
}
