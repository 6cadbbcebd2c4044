package typeinfer

import (
	"strings"

	"github.com/i2y/legacybridge/internal/domain"
)

// SchemaHint is the subset of a JSON-schema style property that decides its tag.
type SchemaHint struct {
	Type      string
	Format    string
	MaxLength uint64
	// Items is the hint of the element schema when Type is "array".
	Items *SchemaHint
}

// FromSchema maps a declared schema property onto a tag.
func FromSchema(h SchemaHint) domain.TypeTag {
	return fromSchemaAt(h, 1)
}

func fromSchemaAt(h SchemaHint, level int) domain.TypeTag {
	switch strings.ToLower(h.Type) {
	case "integer", "number":
		return domain.TypeNumber
	case "boolean":
		return domain.TypeBoolean
	case "array":
		if h.Items == nil {
			return domain.ArrayOf(domain.TypeObject)
		}
		if strings.EqualFold(h.Items.Type, "array") && level >= domain.MaxArrayNesting {
			return domain.ArrayOf(domain.TypeObject)
		}
		return domain.ArrayOf(fromSchemaAt(*h.Items, level+1))
	case "object":
		return domain.TypeObject
	}

	switch strings.ToLower(h.Format) {
	case "email":
		return domain.TypeEmail
	case "date", "date-time", "datetime":
		return domain.TypeDatetime
	case "uuid":
		return domain.TypeUUID
	case "uri", "url":
		return domain.TypeURL
	case "phone":
		return domain.TypePhone
	}
	if h.MaxLength > TextThreshold {
		return domain.TypeText
	}
	return domain.TypeString
}

var xsdTypes = map[string]domain.TypeTag{
	"string":             domain.TypeString,
	"normalizedString":   domain.TypeString,
	"token":              domain.TypeString,
	"time":               domain.TypeString,
	"base64Binary":       domain.TypeString,
	"hexBinary":          domain.TypeString,
	"int":                domain.TypeNumber,
	"integer":            domain.TypeNumber,
	"long":               domain.TypeNumber,
	"short":              domain.TypeNumber,
	"byte":               domain.TypeNumber,
	"float":              domain.TypeNumber,
	"double":             domain.TypeNumber,
	"decimal":            domain.TypeNumber,
	"positiveInteger":    domain.TypeNumber,
	"negativeInteger":    domain.TypeNumber,
	"nonPositiveInteger": domain.TypeNumber,
	"nonNegativeInteger": domain.TypeNumber,
	"unsignedInt":        domain.TypeNumber,
	"unsignedLong":       domain.TypeNumber,
	"unsignedShort":      domain.TypeNumber,
	"unsignedByte":       domain.TypeNumber,
	"boolean":            domain.TypeBoolean,
	"date":               domain.TypeDatetime,
	"dateTime":           domain.TypeDatetime,
	"anyURI":             domain.TypeURL,
}

// FromXSD maps an XML Schema type reference such as "xsd:int" onto a tag.
// Unknown and user-defined types map to string.
func FromXSD(xsdType string) domain.TypeTag {
	if i := strings.LastIndex(xsdType, ":"); i >= 0 {
		xsdType = xsdType[i+1:]
	}
	if t, ok := xsdTypes[xsdType]; ok {
		return t
	}
	return domain.TypeString
}
