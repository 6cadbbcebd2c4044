package openapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// Load parses an OpenAPI 3 or Swagger 2 document given as JSON or YAML.
// Swagger 2 documents are converted to OpenAPI 3.
func Load(ctx context.Context, data []byte, logger *slog.Logger) (*openapi3.T, error) {
	var probe any
	if err := yaml.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	top, ok := jsonCompatible(probe).(map[string]any)
	if !ok {
		return nil, fmt.Errorf("document root must be an object")
	}

	if _, isSwagger := top["swagger"]; isSwagger {
		converted, err := convertSwagger(top)
		if err != nil {
			return nil, err
		}
		logger.Debug("Converted Swagger 2 document to OpenAPI 3")
		data = converted
	}

	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, err
	}
	if err := doc.Validate(ctx); err != nil {
		logger.Warn("OpenAPI schema validation failed", slog.Any("validation_error", err))
	}
	return doc, nil
}

// convertSwagger upgrades a decoded Swagger 2 document and returns the
// OpenAPI 3 JSON.
func convertSwagger(top map[string]any) ([]byte, error) {
	raw, err := json.Marshal(top)
	if err != nil {
		return nil, fmt.Errorf("failed to encode Swagger document: %w", err)
	}
	var v2 openapi2.T
	if err := json.Unmarshal(raw, &v2); err != nil {
		return nil, fmt.Errorf("failed to parse Swagger document: %w", err)
	}
	v3, err := openapi2conv.ToV3(&v2)
	if err != nil {
		return nil, fmt.Errorf("failed to convert Swagger document: %w", err)
	}
	out, err := json.Marshal(v3)
	if err != nil {
		return nil, fmt.Errorf("failed to encode converted document: %w", err)
	}
	return out, nil
}

// jsonCompatible rewrites YAML mappings with non-string keys (such as
// unquoted response codes) into string-keyed maps.
func jsonCompatible(v any) any {
	switch val := v.(type) {
	case map[string]any:
		for k, item := range val {
			val[k] = jsonCompatible(item)
		}
		return val
	case map[any]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[fmt.Sprint(k)] = jsonCompatible(item)
		}
		return out
	case []any:
		for i, item := range val {
			val[i] = jsonCompatible(item)
		}
		return val
	}
	return v
}
