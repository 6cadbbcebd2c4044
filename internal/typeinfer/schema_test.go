package typeinfer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/i2y/legacybridge/internal/domain"
	"github.com/i2y/legacybridge/internal/typeinfer"
)

func TestFromSchema(t *testing.T) {
	tests := []struct {
		name string
		in   typeinfer.SchemaHint
		want domain.TypeTag
	}{
		{name: "integer", in: typeinfer.SchemaHint{Type: "integer"}, want: domain.TypeNumber},
		{name: "number", in: typeinfer.SchemaHint{Type: "number", Format: "double"}, want: domain.TypeNumber},
		{name: "boolean", in: typeinfer.SchemaHint{Type: "boolean"}, want: domain.TypeBoolean},
		{name: "object", in: typeinfer.SchemaHint{Type: "object"}, want: domain.TypeObject},
		{name: "array without items", in: typeinfer.SchemaHint{Type: "array"}, want: "array[object]"},
		{name: "array of strings", in: typeinfer.SchemaHint{Type: "array", Items: &typeinfer.SchemaHint{Type: "string"}}, want: "array[string]"},
		{
			name: "array nesting capped",
			in: typeinfer.SchemaHint{Type: "array", Items: &typeinfer.SchemaHint{Type: "array", Items: &typeinfer.SchemaHint{
				Type: "array", Items: &typeinfer.SchemaHint{Type: "integer"},
			}}},
			want: "array[array[object]]",
		},
		{name: "email format", in: typeinfer.SchemaHint{Type: "string", Format: "email"}, want: domain.TypeEmail},
		{name: "date format", in: typeinfer.SchemaHint{Type: "string", Format: "date"}, want: domain.TypeDatetime},
		{name: "date-time format", in: typeinfer.SchemaHint{Type: "string", Format: "date-time"}, want: domain.TypeDatetime},
		{name: "uuid format", in: typeinfer.SchemaHint{Type: "string", Format: "uuid"}, want: domain.TypeUUID},
		{name: "uri format", in: typeinfer.SchemaHint{Type: "string", Format: "uri"}, want: domain.TypeURL},
		{name: "phone format", in: typeinfer.SchemaHint{Type: "string", Format: "phone"}, want: domain.TypePhone},
		{name: "long string", in: typeinfer.SchemaHint{Type: "string", MaxLength: 500}, want: domain.TypeText},
		{name: "short string", in: typeinfer.SchemaHint{Type: "string", MaxLength: 100}, want: domain.TypeString},
		{name: "missing type", in: typeinfer.SchemaHint{}, want: domain.TypeString},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, typeinfer.FromSchema(tt.in))
		})
	}
}

func TestFromXSD(t *testing.T) {
	assert := assert.New(t)

	assert.Equal(domain.TypeNumber, typeinfer.FromXSD("xsd:int"))
	assert.Equal(domain.TypeNumber, typeinfer.FromXSD("xs:decimal"))
	assert.Equal(domain.TypeBoolean, typeinfer.FromXSD("boolean"))
	assert.Equal(domain.TypeDatetime, typeinfer.FromXSD("s:dateTime"))
	assert.Equal(domain.TypeDatetime, typeinfer.FromXSD("xsd:date"))
	assert.Equal(domain.TypeURL, typeinfer.FromXSD("xsd:anyURI"))
	assert.Equal(domain.TypeString, typeinfer.FromXSD("tns:CustomerType"))
	assert.Equal(domain.TypeString, typeinfer.FromXSD(""))
}
