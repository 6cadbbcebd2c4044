// Package soap builds SOAP 1.1 request envelopes and parses SOAP responses.
package soap

import (
	"encoding/base64"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/i2y/legacybridge/internal/domain"
)

const (
	EnvelopeNS11 = "http://schemas.xmlsoap.org/soap/envelope/"
	EnvelopeNS12 = "http://www.w3.org/2003/05/soap-envelope"

	wsseNS       = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	wsuNS        = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd"
	passwordText = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordText"
	base64Binary = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-soap-message-security-1.0#Base64Binary"

	createdLayout = "2006-01-02T15:04:05Z"
)

// MaxBuildDepth bounds parameter nesting when serializing a request.
const MaxBuildDepth = 32

// ErrBuild is wrapped by every envelope construction failure.
var ErrBuild = errors.New("soap build failed")

// Builder renders request envelopes. Now and Nonce are injectable for tests.
type Builder struct {
	Now   func() time.Time
	Nonce func() string
}

// NewBuilder returns a Builder using the wall clock and random UUID nonces.
func NewBuilder() *Builder {
	return &Builder{
		Now: time.Now,
		Nonce: func() string {
			return base64.StdEncoding.EncodeToString([]byte(uuid.NewString()))
		},
	}
}

var defaultBuilder = NewBuilder()

// BuildRequest renders an envelope with the default Builder.
func BuildRequest(operation, namespace string, params map[string]any, auth *domain.AuthConfig) (string, error) {
	return defaultBuilder.Build(operation, namespace, params, auth)
}

// Build renders a SOAP 1.1 envelope calling operation in namespace.
// A WS-Security UsernameToken is added to the header when auth is wsse
// and both credentials are present.
func (b *Builder) Build(operation, namespace string, params map[string]any, auth *domain.AuthConfig) (string, error) {
	if strings.TrimSpace(operation) == "" {
		return "", fmt.Errorf("%w: operation name is empty", ErrBuild)
	}
	if namespace == "" {
		namespace = domain.DefaultSoapNamespace
	}
	op := SanitizeName(operation)

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	sb.WriteString(`<soap:Envelope xmlns:soap="` + EnvelopeNS11 + `" xmlns:ns="` + EscapeText(namespace) + `">` + "\n")
	sb.WriteString("    <soap:Header>\n")
	if auth != nil && auth.EffectiveMode() == domain.AuthWSSE && auth.WSSEUsername != "" && auth.WSSEPassword != "" {
		b.writeSecurity(&sb, auth.WSSEUsername, auth.WSSEPassword)
	}
	sb.WriteString("    </soap:Header>\n")
	sb.WriteString("    <soap:Body>\n")
	sb.WriteString("        <ns:" + op + ">\n")
	if err := writeParams(&sb, params, 3, 0); err != nil {
		return "", err
	}
	sb.WriteString("        </ns:" + op + ">\n")
	sb.WriteString("    </soap:Body>\n")
	sb.WriteString("</soap:Envelope>")
	return sb.String(), nil
}

func (b *Builder) writeSecurity(sb *strings.Builder, username, password string) {
	now, nonce := time.Now, b.Nonce
	if b.Now != nil {
		now = b.Now
	}
	if nonce == nil {
		nonce = defaultBuilder.Nonce
	}
	created := now().UTC().Format(createdLayout)

	sb.WriteString(`        <wsse:Security xmlns:wsse="` + wsseNS + `" xmlns:wsu="` + wsuNS + `">` + "\n")
	sb.WriteString("            <wsse:UsernameToken>\n")
	sb.WriteString("                <wsse:Username>" + EscapeText(username) + "</wsse:Username>\n")
	sb.WriteString(`                <wsse:Password Type="` + passwordText + `">` + EscapeText(password) + "</wsse:Password>\n")
	sb.WriteString(`                <wsse:Nonce EncodingType="` + base64Binary + `">` + nonce() + "</wsse:Nonce>\n")
	sb.WriteString("                <wsu:Created>" + created + "</wsu:Created>\n")
	sb.WriteString("            </wsse:UsernameToken>\n")
	sb.WriteString("        </wsse:Security>\n")
}

func writeParams(sb *strings.Builder, params map[string]any, indent, depth int) error {
	if depth > MaxBuildDepth {
		return fmt.Errorf("%w: parameters nested deeper than %d levels", ErrBuild, MaxBuildDepth)
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := writeValue(sb, SanitizeName(k), params[k], indent, depth); err != nil {
			return err
		}
	}
	return nil
}

func writeValue(sb *strings.Builder, name string, value any, indent, depth int) error {
	pad := strings.Repeat("    ", indent)
	switch v := value.(type) {
	case nil:
		sb.WriteString(pad + "<ns:" + name + "/>\n")
	case map[string]any:
		sb.WriteString(pad + "<ns:" + name + ">\n")
		if err := writeParams(sb, v, indent+1, depth+1); err != nil {
			return err
		}
		sb.WriteString(pad + "</ns:" + name + ">\n")
	case []any:
		if depth+1 > MaxBuildDepth {
			return fmt.Errorf("%w: parameters nested deeper than %d levels", ErrBuild, MaxBuildDepth)
		}
		for _, item := range v {
			if err := writeValue(sb, name, item, indent, depth+1); err != nil {
				return err
			}
		}
	default:
		sb.WriteString(pad + "<ns:" + name + ">" + EscapeText(scalarText(v)) + "</ns:" + name + ">\n")
	}
	return nil
}

func scalarText(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case bool:
		return strconv.FormatBool(s)
	case float64:
		return formatFloat(s, 64)
	case float32:
		return formatFloat(float64(s), 32)
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(s)
	}
}

// formatFloat writes plain decimals and switches to exponent notation
// outside [1e-4, 1e16).
func formatFloat(f float64, bitSize int) string {
	if abs := math.Abs(f); f != 0 && (abs >= 1e16 || abs < 1e-4) {
		return strconv.FormatFloat(f, 'g', -1, bitSize)
	}
	return strconv.FormatFloat(f, 'f', -1, bitSize)
}

var textEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

// EscapeText replaces the five XML special characters with entity references.
func EscapeText(s string) string {
	return textEscaper.Replace(s)
}

// SanitizeName turns an arbitrary key into a legal XML element name.
func SanitizeName(name string) string {
	var sb strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' || r == '.' {
			sb.WriteRune(r)
		} else {
			sb.WriteByte('_')
		}
	}
	out := sb.String()
	if out == "" {
		return "element"
	}
	first := []rune(out)[0]
	if !unicode.IsLetter(first) && first != '_' {
		out = "_" + out
	}
	return out
}
