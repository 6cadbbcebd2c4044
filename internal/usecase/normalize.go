package usecase

import (
	"fmt"
	"sort"

	"github.com/i2y/legacybridge/internal/displayname"
	"github.com/i2y/legacybridge/internal/domain"
)

// AnalyzeResult is the response body of a successful analysis.
type AnalyzeResult struct {
	Resources []domain.ResourceSchema `json:"resources"`
}

// NormalizeResources validates inferred schemas and puts them in canonical
// form: missing display names are derived from names, duplicate operations
// are dropped and operations are sorted in vocabulary order. The input is
// not modified.
func NormalizeResources(resources []domain.ResourceSchema) (AnalyzeResult, error) {
	if len(resources) == 0 {
		return AnalyzeResult{}, InvalidInput("No resources provided")
	}
	out := make([]domain.ResourceSchema, len(resources))
	for i, res := range resources {
		norm, err := normalizeResource(res)
		if err != nil {
			return AnalyzeResult{}, err
		}
		out[i] = norm
	}
	return AnalyzeResult{Resources: out}, nil
}

func normalizeResource(res domain.ResourceSchema) (domain.ResourceSchema, error) {
	if res.Name == "" {
		return res, InvalidInput("Resource must have a name")
	}
	if res.DisplayName == "" {
		res.DisplayName = displayname.FromIdentifier(res.Name)
	}
	switch {
	case res.Endpoint == "":
		return res, InvalidInput("Resource '%s' must have an endpoint", res.Name)
	case res.PrimaryKey == "":
		return res, InvalidInput("Resource '%s' must have a primaryKey", res.Name)
	case len(res.Operations) == 0:
		return res, InvalidInput("Resource '%s' must have at least one operation", res.Name)
	}

	seen := make(map[domain.Operation]bool, len(res.Operations))
	ops := make([]domain.Operation, 0, len(res.Operations))
	for _, op := range res.Operations {
		if op.Order() < 0 {
			return res, InvalidInput("Resource '%s' has invalid operation %q. Valid operations are: %v", res.Name, op, domain.OperationNames())
		}
		if !seen[op] {
			seen[op] = true
			ops = append(ops, op)
		}
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Order() < ops[j].Order() })
	res.Operations = ops

	fields := make([]domain.ResourceField, len(res.Fields))
	for i, f := range res.Fields {
		if f.Name == "" {
			return res, InvalidInput("Resource '%s' has a field without a name", res.Name)
		}
		if !f.Type.Valid() {
			return res, fmt.Errorf("resource %q field %q has unsupported type %q", res.Name, f.Name, f.Type)
		}
		if f.DisplayName == "" {
			f.DisplayName = displayname.FromIdentifier(f.Name)
		}
		fields[i] = f
	}
	res.Fields = fields
	return res, nil
}
