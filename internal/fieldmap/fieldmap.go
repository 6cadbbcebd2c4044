// Package fieldmap renames record keys between normalized and legacy names.
package fieldmap

import "github.com/i2y/legacybridge/internal/domain"

// Map renames the keys of a record or a list of records.
// With reverse=false keys go from normalized to legacy names; with
// reverse=true from legacy to normalized. Unmapped keys and non-record
// values are left as they are. The input is not modified.
func Map(data any, mappings []domain.FieldMapping, reverse bool) any {
	if len(mappings) == 0 {
		return data
	}
	renames := table(mappings, reverse)
	switch val := data.(type) {
	case map[string]any:
		return rename(val, renames)
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			if rec, ok := item.(map[string]any); ok {
				out[i] = rename(rec, renames)
			} else {
				out[i] = item
			}
		}
		return out
	default:
		return data
	}
}

// MapRecord is Map specialised to a single record.
func MapRecord(rec map[string]any, mappings []domain.FieldMapping, reverse bool) map[string]any {
	if rec == nil || len(mappings) == 0 {
		return rec
	}
	return rename(rec, table(mappings, reverse))
}

func table(mappings []domain.FieldMapping, reverse bool) map[string]string {
	t := make(map[string]string, len(mappings))
	for _, m := range mappings {
		if reverse {
			t[m.LegacyName] = m.NormalizedName
		} else {
			t[m.NormalizedName] = m.LegacyName
		}
	}
	return t
}

func rename(rec map[string]any, renames map[string]string) map[string]any {
	out := make(map[string]any, len(rec))
	for k, v := range rec {
		if to, ok := renames[k]; ok {
			out[to] = v
		} else {
			out[k] = v
		}
	}
	return out
}
