package soap_test

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i2y/legacybridge/internal/domain"
	"github.com/i2y/legacybridge/internal/soap"
)

func fixedBuilder() *soap.Builder {
	return &soap.Builder{
		Now:   func() time.Time { return time.Date(2024, 3, 5, 14, 7, 9, 0, time.FixedZone("JST", 9*3600)) },
		Nonce: func() string { return "bm9uY2U=" },
	}
}

func TestBuildRequest_Parameters(t *testing.T) {
	assert := assert.New(t)
	require := require.New(t)

	env, err := soap.BuildRequest("GetCustomers", "http://example.com", map[string]any{"status": "active"}, nil)
	require.NoError(err)

	assert.True(strings.HasPrefix(env, `<?xml version="1.0" encoding="UTF-8"?>`))
	assert.Contains(env, `xmlns:soap="http://schemas.xmlsoap.org/soap/envelope/"`)
	assert.Contains(env, `xmlns:ns="http://example.com"`)

	body := between(t, env, "<soap:Body>", "</soap:Body>")
	op := between(t, body, "<ns:GetCustomers>", "</ns:GetCustomers>")
	assert.Contains(op, "<ns:status>active</ns:status>")
	assert.NotContains(env, "wsse:Security")
}

func TestBuildRequest_Serialization(t *testing.T) {
	params := map[string]any{
		"note":     `Tom & "Jerry" <'x'>`,
		"active":   true,
		"deleted":  false,
		"count":    3.0,
		"ratio":    0.25,
		"huge":     1e21,
		"tiny":     0.00001,
		"big":      json.Number("9007199254740993"),
		"empty":    nil,
		"tags":     []any{"a", "b"},
		"address":  map[string]any{"city": "Oslo", "zip": nil},
		"bad key!": "v",
		"1st":      "first",
		"lines":    []any{map[string]any{"sku": "A1"}, map[string]any{"sku": "B2"}},
	}
	env, err := soap.BuildRequest("Save", "urn:x", params, nil)
	require.NoError(t, err)

	for _, want := range []string{
		"<ns:note>Tom &amp; &quot;Jerry&quot; &lt;&apos;x&apos;&gt;</ns:note>",
		"<ns:active>true</ns:active>",
		"<ns:deleted>false</ns:deleted>",
		"<ns:count>3</ns:count>",
		"<ns:ratio>0.25</ns:ratio>",
		"<ns:huge>1e+21</ns:huge>",
		"<ns:tiny>1e-05</ns:tiny>",
		"<ns:big>9007199254740993</ns:big>",
		"<ns:empty/>",
		"<ns:tags>a</ns:tags>",
		"<ns:tags>b</ns:tags>",
		"<ns:city>Oslo</ns:city>",
		"<ns:zip/>",
		"<ns:bad_key_>v</ns:bad_key_>",
		"<ns:_1st>first</ns:_1st>",
		"<ns:sku>A1</ns:sku>",
		"<ns:sku>B2</ns:sku>",
	} {
		assert.Contains(t, env, want)
	}
	assert.Equal(t, 2, strings.Count(env, "<ns:lines>"))
	assert.Less(t, strings.Index(env, "<ns:active>"), strings.Index(env, "<ns:count>"), "keys are sorted")
}

func TestBuild_WSSE(t *testing.T) {
	assert := assert.New(t)
	auth := &domain.AuthConfig{Mode: domain.AuthWSSE, WSSEUsername: "admin", WSSEPassword: "p&ss"}

	env, err := fixedBuilder().Build("GetUser", "", nil, auth)
	require.NoError(t, err)

	header := between(t, env, "<soap:Header>", "</soap:Header>")
	assert.Contains(header, `xmlns:wsse="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"`)
	assert.Contains(header, "<wsse:Username>admin</wsse:Username>")
	assert.Contains(header, `#PasswordText">p&amp;ss</wsse:Password>`)
	assert.Contains(header, `#Base64Binary">bm9uY2U=</wsse:Nonce>`)
	assert.Contains(header, "<wsu:Created>2024-03-05T05:07:09Z</wsu:Created>")
	assert.Contains(env, `xmlns:ns="http://tempuri.org/"`)
}

func TestBuild_WSSERequiresCredentials(t *testing.T) {
	env, err := fixedBuilder().Build("Op", "urn:x", nil, &domain.AuthConfig{Mode: domain.AuthWSSE, WSSEUsername: "u"})
	require.NoError(t, err)
	assert.NotContains(t, env, "wsse:Security")

	env, err = fixedBuilder().Build("Op", "urn:x", nil, &domain.AuthConfig{Mode: domain.AuthBasic, BasicUser: "u", BasicPass: "p"})
	require.NoError(t, err)
	assert.NotContains(t, env, "wsse:Security")
}

func TestNewBuilder_NonceIsBase64(t *testing.T) {
	b := soap.NewBuilder()
	n1, n2 := b.Nonce(), b.Nonce()
	assert.NotEqual(t, n1, n2)
	_, err := base64.StdEncoding.DecodeString(n1)
	assert.NoError(t, err)
}

func TestBuildRequest_Errors(t *testing.T) {
	_, err := soap.BuildRequest(" ", "urn:x", nil, nil)
	assert.True(t, errors.Is(err, soap.ErrBuild))

	deep := map[string]any{}
	cur := deep
	for i := 0; i < soap.MaxBuildDepth+5; i++ {
		next := map[string]any{}
		cur["n"] = next
		cur = next
	}
	_, err = soap.BuildRequest("Op", "urn:x", deep, nil)
	assert.True(t, errors.Is(err, soap.ErrBuild))
}

func TestSanitizeName(t *testing.T) {
	tests := map[string]string{
		"name":       "name",
		"first name": "first_name",
		"a.b-c_d":    "a.b-c_d",
		"9lives":     "_9lives",
		"-x":         "_-x",
		"":           "element",
		"_ok":        "_ok",
	}
	for in, want := range tests {
		assert.Equal(t, want, soap.SanitizeName(in), "input %q", in)
	}
}

func between(t *testing.T, s, start, end string) string {
	t.Helper()
	i := strings.Index(s, start)
	require.GreaterOrEqual(t, i, 0, "missing %q", start)
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	require.GreaterOrEqual(t, j, 0, "missing %q", end)
	return rest[:j]
}
