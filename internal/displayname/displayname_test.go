package displayname_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/i2y/legacybridge/internal/displayname"
)

func TestFromIdentifier(t *testing.T) {
	tests := map[string]string{
		"user_name":     "User Name",
		"userId":        "User Id",
		"api_key":       "Api Key",
		"getUserData":   "Get User Data",
		"email-address": "Email Address",
		"OrderID":       "Order Id",
		"CUST_NM":       "Cust Nm",
		"__private":     "Private",
		"address2line":  "Address2Line",
		"":              "",
	}
	for in, want := range tests {
		assert.Equal(t, want, displayname.FromIdentifier(in), "input %q", in)
	}
}

func TestBatch(t *testing.T) {
	assert.Equal(t,
		map[string]string{"user_id": "User Id", "created_at": "Created At"},
		displayname.Batch([]string{"user_id", "created_at"}),
	)
}

func TestTitle(t *testing.T) {
	assert := assert.New(t)
	assert.Equal("Users", displayname.Title("users"))
	assert.Equal("User-Profiles", displayname.Title("user-profiles"))
	assert.Equal("Customer_Orders", displayname.Title("customer_orders"))
}

func TestSnake(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"CustomerOrder", "customer_order"},
		{"Customer", "customer"},
		{"GetHTTPResponse", "get_http_response"},
		{"order2Item", "order2_item"},
		{"already_snake", "already_snake"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, displayname.Snake(tt.in), "input %q", tt.in)
	}
}

func TestPluralize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"customer", "customers"},
		{"category", "categories"},
		{"box", "boxes"},
		{"branch", "branches"},
		{"wish", "wishes"},
		{"address", "address"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, displayname.Pluralize(tt.in), "input %q", tt.in)
	}
}
