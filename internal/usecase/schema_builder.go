package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"github.com/i2y/legacybridge/internal/displayname"
	"github.com/i2y/legacybridge/internal/domain"
	"github.com/i2y/legacybridge/internal/pkdetect"
	"github.com/i2y/legacybridge/internal/typeinfer"
	"github.com/i2y/legacybridge/internal/unwrap"
)

// Names given to a schema inferred from a bare sample.
const (
	SampleResourceName = "sample"
	SampleDisplayName  = "Sample"
	SampleEndpoint     = "__sample"
)

// SchemaBuilder infers a ResourceSchema from a JSON sample response.
type SchemaBuilder struct {
	detector *pkdetect.Detector
	logger   *slog.Logger
}

// NewSchemaBuilder creates a SchemaBuilder. A nil detector uses the
// heuristics alone.
func NewSchemaBuilder(detector *pkdetect.Detector, logger *slog.Logger) *SchemaBuilder {
	if detector == nil {
		detector = pkdetect.New(nil, logger)
	}
	return &SchemaBuilder{
		detector: detector,
		logger:   logger.With("usecase", "SchemaBuilder"),
	}
}

// FromJSON builds the schema of the records in raw. Wrapper objects are
// stripped first; an array yields a list resource and a single object a
// detail resource. Fields keep the order in which their keys first appear
// in raw, and each field's type is resolved from every record's value.
func (b *SchemaBuilder) FromJSON(ctx context.Context, raw []byte) (domain.ResourceSchema, error) {
	if isBlankJSON(raw) {
		return domain.ResourceSchema{}, InvalidInput("JSON sample cannot be empty")
	}
	var sample any
	if err := json.Unmarshal(raw, &sample); err != nil {
		return domain.ResourceSchema{}, InvalidInput("Invalid JSON sample: %v", err)
	}

	unwrapped := unwrap.Unwrap(sample)
	items, isList := unwrapped.([]any)
	if isList && len(items) == 0 {
		return domain.ResourceSchema{}, InvalidInput("JSON array sample cannot be empty")
	}
	if !isList {
		items = []any{unwrapped}
	}

	values := make(map[string][]any)
	for _, item := range items {
		rec, ok := item.(map[string]any)
		if !ok {
			return domain.ResourceSchema{}, InvalidInput("Expected object in sample, got %s", jsonKind(item))
		}
		for k, v := range rec {
			values[k] = append(values[k], v)
		}
	}

	names := orderedKeys(values, keyOrder(raw))
	fields := make([]domain.ResourceField, len(names))
	for i, name := range names {
		fields[i] = domain.ResourceField{
			Name:        name,
			Type:        typeinfer.ClassifyMany(values[name]),
			DisplayName: displayname.FromIdentifier(name),
		}
	}

	ops := []domain.Operation{domain.OpDetail}
	if isList {
		ops = []domain.Operation{domain.OpList}
	}

	schema := domain.ResourceSchema{
		Name:        SampleResourceName,
		DisplayName: SampleDisplayName,
		Endpoint:    SampleEndpoint,
		PrimaryKey:  b.detector.Detect(ctx, names, SampleResourceName),
		Fields:      fields,
		Operations:  ops,
	}
	b.logger.Debug("Inferred schema from sample",
		slog.Int("records", len(items)),
		slog.Int("fields", len(fields)),
		slog.String("primary_key", schema.PrimaryKey))
	return schema, nil
}

func orderedKeys(values map[string][]any, order map[string]int) []string {
	names := make([]string, 0, len(values))
	for k := range values {
		names = append(names, k)
	}
	sort.Slice(names, func(i, j int) bool {
		oi, iok := order[names[i]]
		oj, jok := order[names[j]]
		switch {
		case iok && jok:
			return oi < oj
		case iok != jok:
			return iok
		}
		return names[i] < names[j]
	})
	return names
}

// keyOrder maps every object key in raw to the position of its first
// appearance.
func keyOrder(raw []byte) map[string]int {
	type frame struct {
		object    bool
		expectKey bool
	}
	order := make(map[string]int)
	dec := json.NewDecoder(bytes.NewReader(raw))
	var stack []frame
	for {
		tok, err := dec.Token()
		if err != nil {
			return order
		}
		switch t := tok.(type) {
		case json.Delim:
			switch t {
			case '{':
				stack = append(stack, frame{object: true, expectKey: true})
				continue
			case '[':
				stack = append(stack, frame{})
				continue
			default:
				stack = stack[:len(stack)-1]
			}
		case string:
			if n := len(stack); n > 0 && stack[n-1].object && stack[n-1].expectKey {
				if _, seen := order[t]; !seen {
					order[t] = len(order)
				}
				stack[n-1].expectKey = false
				continue
			}
		}
		if n := len(stack); n > 0 && stack[n-1].object {
			stack[n-1].expectKey = true
		}
	}
}

func jsonKind(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64, json.Number:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	}
	return "unknown"
}
