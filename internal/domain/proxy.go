package domain

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

// AuthMode selects how the gateway authenticates against the legacy API.
type AuthMode string

const (
	AuthNone   AuthMode = "none"
	AuthBearer AuthMode = "bearer"
	AuthAPIKey AuthMode = "apiKey"
	AuthBasic  AuthMode = "basic"
	AuthWSSE   AuthMode = "wsse"
)

// APIType is the wire protocol of the legacy API.
type APIType string

const (
	APITypeREST APIType = "rest"
	APITypeSOAP APIType = "soap"
)

// DefaultSoapNamespace is used when a SOAP config does not name one.
const DefaultSoapNamespace = "http://tempuri.org/"

const redacted = "***"

// AuthConfig is tagged by Mode; only the fields belonging to Mode are read.
type AuthConfig struct {
	Mode         AuthMode `json:"mode" yaml:"mode"`
	BearerToken  string   `json:"bearerToken,omitempty" yaml:"bearerToken,omitempty"`
	APIKeyHeader string   `json:"apiKeyHeader,omitempty" yaml:"apiKeyHeader,omitempty"`
	APIKeyValue  string   `json:"apiKeyValue,omitempty" yaml:"apiKeyValue,omitempty"`
	BasicUser    string   `json:"basicUser,omitempty" yaml:"basicUser,omitempty"`
	BasicPass    string   `json:"basicPass,omitempty" yaml:"basicPass,omitempty"`
	WSSEUsername string   `json:"wsseUsername,omitempty" yaml:"wsseUsername,omitempty"`
	WSSEPassword string   `json:"wssePassword,omitempty" yaml:"wssePassword,omitempty"`
}

// EffectiveMode treats an empty mode as none.
func (a AuthConfig) EffectiveMode() AuthMode {
	if a.Mode == "" {
		return AuthNone
	}
	return a.Mode
}

// Validate checks that the mode is known and its fields are present.
func (a AuthConfig) Validate() error {
	switch a.EffectiveMode() {
	case AuthNone:
	case AuthBearer:
		if a.BearerToken == "" {
			return fmt.Errorf("auth.bearerToken is required for bearer")
		}
	case AuthAPIKey:
		if a.APIKeyHeader == "" || a.APIKeyValue == "" {
			return fmt.Errorf("auth.apiKeyHeader and auth.apiKeyValue are required for apiKey")
		}
	case AuthBasic:
		if a.BasicUser == "" || a.BasicPass == "" {
			return fmt.Errorf("auth.basicUser and auth.basicPass are required for basic")
		}
	case AuthWSSE:
		if a.WSSEUsername == "" || a.WSSEPassword == "" {
			return fmt.Errorf("auth.wsseUsername and auth.wssePassword are required for wsse")
		}
	default:
		return fmt.Errorf("unsupported auth.mode %q", a.Mode)
	}
	return nil
}

// Sanitized masks every secret while keeping the mode and non-secret names.
func (a AuthConfig) Sanitized() AuthConfig {
	out := AuthConfig{Mode: a.EffectiveMode(), APIKeyHeader: a.APIKeyHeader, BasicUser: a.BasicUser, WSSEUsername: a.WSSEUsername}
	if a.BearerToken != "" {
		out.BearerToken = redacted
	}
	if a.APIKeyValue != "" {
		out.APIKeyValue = redacted
	}
	if a.BasicPass != "" {
		out.BasicPass = redacted
	}
	if a.WSSEPassword != "" {
		out.WSSEPassword = redacted
	}
	return out
}

// RestOperationConfig pins an operation to an HTTP method and path template.
type RestOperationConfig struct {
	Method string `json:"method" yaml:"method"`
	Path   string `json:"path" yaml:"path"`
}

// SoapOperationConfig pins an operation to a SOAP operation.
type SoapOperationConfig struct {
	OperationName   string `json:"operationName" yaml:"operationName"`
	SoapAction      string `json:"soapAction" yaml:"soapAction"`
	ResponseElement string `json:"responseElement,omitempty" yaml:"responseElement,omitempty"`
}

// OperationConfig holds the protocol-specific wiring of one operation.
type OperationConfig struct {
	REST *RestOperationConfig `json:"rest,omitempty" yaml:"rest,omitempty"`
	SOAP *SoapOperationConfig `json:"soap,omitempty" yaml:"soap,omitempty"`
}

// FieldMapping renames a normalized field to its legacy counterpart.
type FieldMapping struct {
	NormalizedName string `json:"normalizedName" yaml:"normalizedName"`
	LegacyName     string `json:"legacyName" yaml:"legacyName"`
}

// ResourceConfig describes how one normalized resource maps onto the legacy API.
type ResourceConfig struct {
	Name          string                     `json:"name" yaml:"name"`
	Endpoint      string                     `json:"endpoint" yaml:"endpoint"`
	Operations    map[string]OperationConfig `json:"operations" yaml:"operations"`
	FieldMappings []FieldMapping             `json:"fieldMappings,omitempty" yaml:"fieldMappings,omitempty"`
	ResponsePath  string                     `json:"responsePath,omitempty" yaml:"responsePath,omitempty"`
	PrimaryKey    string                     `json:"primaryKey,omitempty" yaml:"primaryKey,omitempty"`
}

// PrimaryKeyOrDefault returns the configured primary key or "id".
func (r ResourceConfig) PrimaryKeyOrDefault() string {
	if r.PrimaryKey == "" {
		return DefaultPrimaryKey
	}
	return r.PrimaryKey
}

// Operation returns the wiring for op, if configured.
func (r ResourceConfig) Operation(op Operation) (OperationConfig, bool) {
	cfg, ok := r.Operations[string(op)]
	return cfg, ok
}

// ProxyConfig is the operator-supplied description of one legacy API.
type ProxyConfig struct {
	BaseURL       string           `json:"baseUrl" yaml:"baseUrl"`
	APIType       APIType          `json:"apiType" yaml:"apiType"`
	Auth          AuthConfig       `json:"auth" yaml:"auth"`
	Resources     []ResourceConfig `json:"resources" yaml:"resources"`
	SoapNamespace string           `json:"soapNamespace,omitempty" yaml:"soapNamespace,omitempty"`
}

// Resource finds a resource by name.
func (c *ProxyConfig) Resource(name string) (*ResourceConfig, bool) {
	for i := range c.Resources {
		if c.Resources[i].Name == name {
			return &c.Resources[i], true
		}
	}
	return nil, false
}

// Namespace returns the SOAP namespace, falling back to DefaultSoapNamespace.
func (c *ProxyConfig) Namespace() string {
	if c.SoapNamespace == "" {
		return DefaultSoapNamespace
	}
	return c.SoapNamespace
}

// Validate checks structural consistency of the whole configuration.
func (c *ProxyConfig) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("baseUrl is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("baseUrl %q must be an absolute http(s) URL", c.BaseURL)
	}
	switch c.APIType {
	case APITypeREST, APITypeSOAP:
	default:
		return fmt.Errorf("unsupported apiType %q", c.APIType)
	}
	if err := c.Auth.Validate(); err != nil {
		return err
	}
	if len(c.Resources) == 0 {
		return fmt.Errorf("at least one resource is required")
	}

	seen := make(map[string]struct{}, len(c.Resources))
	for i, res := range c.Resources {
		if res.Name == "" {
			return fmt.Errorf("resources[%d].name is required", i)
		}
		if _, dup := seen[res.Name]; dup {
			return fmt.Errorf("duplicate resource name %q", res.Name)
		}
		seen[res.Name] = struct{}{}
		if err := c.validateResource(res); err != nil {
			return fmt.Errorf("resource %q: %w", res.Name, err)
		}
	}
	return nil
}

func (c *ProxyConfig) validateResource(res ResourceConfig) error {
	for name, op := range res.Operations {
		if _, err := ParseOperation(name); err != nil {
			return err
		}
		if op.REST != nil {
			if op.REST.Method == "" || op.REST.Path == "" {
				return fmt.Errorf("operation %q: rest.method and rest.path are required", name)
			}
			if !isHTTPMethod(op.REST.Method) {
				return fmt.Errorf("operation %q: unsupported rest.method %q", name, op.REST.Method)
			}
		}
		if c.APIType == APITypeSOAP {
			if op.SOAP == nil || op.SOAP.OperationName == "" {
				return fmt.Errorf("operation %q: soap.operationName is required for soap APIs", name)
			}
		}
	}
	if c.APIType == APITypeSOAP && len(res.Operations) == 0 {
		return fmt.Errorf("soap resources must configure at least one operation")
	}

	normalized := make(map[string]struct{}, len(res.FieldMappings))
	legacy := make(map[string]struct{}, len(res.FieldMappings))
	for _, m := range res.FieldMappings {
		if m.NormalizedName == "" || m.LegacyName == "" {
			return fmt.Errorf("field mappings need both normalizedName and legacyName")
		}
		if _, dup := normalized[m.NormalizedName]; dup {
			return fmt.Errorf("duplicate normalizedName %q in field mappings", m.NormalizedName)
		}
		if _, dup := legacy[m.LegacyName]; dup {
			return fmt.Errorf("duplicate legacyName %q in field mappings", m.LegacyName)
		}
		normalized[m.NormalizedName] = struct{}{}
		legacy[m.LegacyName] = struct{}{}
	}
	return nil
}

func isHTTPMethod(m string) bool {
	switch strings.ToUpper(m) {
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}

// Clone returns a deep copy, so a stored snapshot can never be mutated
// through a reference handed out earlier.
func (c *ProxyConfig) Clone() *ProxyConfig {
	if c == nil {
		return nil
	}
	out := *c
	out.Resources = make([]ResourceConfig, len(c.Resources))
	for i, res := range c.Resources {
		cp := res
		if res.Operations != nil {
			cp.Operations = make(map[string]OperationConfig, len(res.Operations))
			for k, op := range res.Operations {
				opCopy := OperationConfig{}
				if op.REST != nil {
					r := *op.REST
					opCopy.REST = &r
				}
				if op.SOAP != nil {
					s := *op.SOAP
					opCopy.SOAP = &s
				}
				cp.Operations[k] = opCopy
			}
		}
		if res.FieldMappings != nil {
			cp.FieldMappings = append([]FieldMapping(nil), res.FieldMappings...)
		}
		out.Resources[i] = cp
	}
	return &out
}

// Sanitized returns a deep copy safe to show to operators.
func (c *ProxyConfig) Sanitized() *ProxyConfig {
	out := c.Clone()
	if out != nil {
		out.Auth = c.Auth.Sanitized()
	}
	return out
}
