// Package authheader builds outbound HTTP headers from an AuthConfig.
// Everything here is pure: no I/O and no logging.
package authheader

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/i2y/legacybridge/internal/domain"
)

const (
	// SoapContentType is the SOAP 1.1 request content type.
	SoapContentType = "text/xml; charset=utf-8"
	masked          = "***"
)

// BasicCredentials encodes user:pass for the Basic scheme.
func BasicCredentials(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

// REST returns the auth headers for a REST call. Modes none and wsse yield
// no headers.
func REST(auth domain.AuthConfig) http.Header {
	h := make(http.Header)
	switch auth.EffectiveMode() {
	case domain.AuthBearer:
		if auth.BearerToken != "" {
			h.Set("Authorization", "Bearer "+auth.BearerToken)
		}
	case domain.AuthAPIKey:
		if auth.APIKeyHeader != "" && auth.APIKeyValue != "" {
			h.Set(auth.APIKeyHeader, auth.APIKeyValue)
		}
	case domain.AuthBasic:
		if auth.BasicUser != "" && auth.BasicPass != "" {
			h.Set("Authorization", "Basic "+BasicCredentials(auth.BasicUser, auth.BasicPass))
		}
	}
	return h
}

// SOAP returns the HTTP headers for a SOAP call. WS-Security credentials
// travel in the envelope, so only Basic adds an Authorization header.
func SOAP(auth domain.AuthConfig, soapAction string) http.Header {
	h := make(http.Header)
	h.Set("Content-Type", SoapContentType)
	h.Set("SOAPAction", `"`+soapAction+`"`)
	if auth.EffectiveMode() == domain.AuthBasic && auth.BasicUser != "" && auth.BasicPass != "" {
		h.Set("Authorization", "Basic "+BasicCredentials(auth.BasicUser, auth.BasicPass))
	}
	return h
}

// SanitizeForLogging flattens h and masks credential values.
func SanitizeForLogging(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		value := strings.Join(values, ", ")
		switch {
		case strings.EqualFold(name, "Authorization"):
			scheme, _, found := strings.Cut(value, " ")
			if found {
				value = scheme + " " + masked
			} else {
				value = masked
			}
		case isSecretHeader(name):
			value = masked
		}
		out[name] = value
	}
	return out
}

func isSecretHeader(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range []string{"api-key", "apikey", "token", "secret"} {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
