// Package typeinfer classifies raw sample values into normalized type tags.
//
// Classification is total: every input yields a tag and nothing panics.
// Values are expected in the shape produced by encoding/json (nil, bool,
// float64 or json.Number, string, []any, map[string]any); other Go numeric
// kinds are accepted as numbers and anything else falls back to string.
package typeinfer

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/i2y/legacybridge/internal/domain"
)

// TextThreshold is the length above which a plain string becomes text.
const TextThreshold = 100

var (
	currencyPattern = regexp.MustCompile(`^([$€£¥₹]\s*[\d,]+\.?\d*|[\d,]+\.?\d*\s*[$€£¥₹])$`)
	emailPattern    = regexp.MustCompile(`^.+@.+\..+`)
	uuidPattern     = regexp.MustCompile(`(?i)^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)
	urlPattern      = regexp.MustCompile(`(?i)^https?://\S+$`)
)

// Classify returns the tag of a single value. nil classifies as string.
func Classify(v any) domain.TypeTag {
	return classifyAt(v, 1)
}

func classifyAt(v any, arrayLevel int) domain.TypeTag {
	switch val := v.(type) {
	case nil:
		return domain.TypeString
	case bool:
		return domain.TypeBoolean
	case float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, json.Number:
		return domain.TypeNumber
	case []any:
		return classifyArrayAt(val, arrayLevel)
	case map[string]any:
		return domain.TypeObject
	case string:
		return ClassifyString(val)
	default:
		return domain.TypeString
	}
}

// ClassifyString runs the string pattern chain in its fixed priority order.
func ClassifyString(s string) domain.TypeTag {
	switch {
	case isCurrency(s):
		return domain.TypeCurrency
	case emailPattern.MatchString(s):
		return domain.TypeEmail
	case isDatetime(s):
		return domain.TypeDatetime
	case uuidPattern.MatchString(s):
		return domain.TypeUUID
	case urlPattern.MatchString(s):
		return domain.TypeURL
	case utf8.RuneCountInString(s) > TextThreshold:
		return domain.TypeText
	case isNumeric(s):
		return domain.TypeNumber
	default:
		return domain.TypeString
	}
}

// ClassifyMany resolves the tag of a field from all of its sample values.
// Nulls are ignored; when every value is null the result is string.
// Disagreeing samples resolve to the most flexible tag.
func ClassifyMany(values []any) domain.TypeTag {
	var (
		result domain.TypeTag
		seen   bool
	)
	for _, v := range values {
		if v == nil {
			continue
		}
		t := Classify(v)
		if !seen {
			result, seen = t, true
			continue
		}
		result = domain.Wider(result, t)
	}
	if !seen {
		return domain.TypeString
	}
	return result
}

// ClassifyArray returns array[T] for items, where T is the resolved element tag.
func ClassifyArray(items []any) domain.TypeTag {
	return classifyArrayAt(items, 1)
}

// classifyArrayAt classifies items that sit at the given array nesting level.
// At the last permitted level any nested list degrades the whole element
// type to object.
func classifyArrayAt(items []any, level int) domain.TypeTag {
	var nonNull []any
	for _, item := range items {
		if item != nil {
			nonNull = append(nonNull, item)
		}
	}
	if len(nonNull) == 0 {
		return domain.ArrayOf(domain.TypeObject)
	}

	if level >= domain.MaxArrayNesting {
		for _, item := range nonNull {
			if _, nested := item.([]any); nested {
				return domain.ArrayOf(domain.TypeObject)
			}
		}
	}

	var elem domain.TypeTag
	for i, item := range nonNull {
		var t domain.TypeTag
		if nested, ok := item.([]any); ok {
			t = classifyArrayAt(nested, level+1)
		} else {
			t = classifyAt(item, level)
		}
		if i == 0 {
			elem = t
			continue
		}
		elem = domain.Wider(elem, t)
	}
	return domain.ArrayOf(elem)
}

func isCurrency(s string) bool {
	return currencyPattern.MatchString(strings.TrimSpace(s))
}

// isNumeric reports whether s fully parses as a number once surrounding
// whitespace and thousands separators are removed.
func isNumeric(s string) bool {
	cleaned := strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if cleaned == "" {
		return false
	}
	lower := strings.ToLower(cleaned)
	if strings.Contains(lower, "0x") || strings.Contains(lower, "_") || strings.Contains(lower, "p") {
		return false
	}
	_, err := strconv.ParseFloat(cleaned, 64)
	return err == nil || errors.Is(err, strconv.ErrRange)
}
