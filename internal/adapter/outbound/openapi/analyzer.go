package openapi

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"

	"github.com/i2y/legacybridge/internal/displayname"
	"github.com/i2y/legacybridge/internal/domain"
	"github.com/i2y/legacybridge/internal/pkdetect"
	"github.com/i2y/legacybridge/internal/typeinfer"
	"github.com/i2y/legacybridge/internal/usecase"
)

// methodOrder fixes the order operations of one path are visited in.
var methodOrder = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete}

// versionSegments are skipped when naming a resource after its path.
var versionSegments = map[string]bool{"api": true, "v1": true, "v2": true, "v3": true}

// successCodes are the responses whose schema describes a resource, by priority.
var successCodes = []string{"200", "201", "default"}

// Analyzer implements usecase.Analyzer for the openapi and openapi_url modes.
type Analyzer struct {
	transport  usecase.Transport
	discoverer *AutoDiscoverer
	detector   *pkdetect.Detector
	logger     *slog.Logger
}

// NewAnalyzer creates a new OpenAPI Analyzer. transport is only used for
// openapi_url requests.
func NewAnalyzer(transport usecase.Transport, detector *pkdetect.Detector, logger *slog.Logger) *Analyzer {
	if detector == nil {
		detector = pkdetect.New(nil, logger)
	}
	return &Analyzer{
		transport:  transport,
		discoverer: NewAutoDiscoverer(transport, logger),
		detector:   detector,
		logger:     logger.With("component", "openapi_analyzer"),
	}
}

// Analyze loads the document carried by req and extracts its resources.
func (a *Analyzer) Analyze(ctx context.Context, req usecase.AnalyzeRequest) ([]domain.ResourceSchema, error) {
	var (
		data []byte
		err  error
	)
	if req.Mode == usecase.ModeOpenAPIURL {
		data, err = a.fetch(ctx, req)
	} else {
		data, err = req.SpecDocument()
	}
	if err != nil {
		return nil, err
	}

	doc, err := Load(ctx, data, a.logger)
	if err != nil {
		return nil, usecase.InvalidInput("Invalid OpenAPI specification: %v", err)
	}
	resources := a.Resources(ctx, doc)
	if len(resources) == 0 {
		return nil, usecase.InvalidInput("No resources found in specification")
	}
	a.logger.Info("Extracted resources from OpenAPI document", slog.Int("resources", len(resources)))
	return resources, nil
}

// fetch downloads the spec named by req.SpecURL, discovering it first
// when the URL points at a service root.
func (a *Analyzer) fetch(ctx context.Context, req usecase.AnalyzeRequest) ([]byte, error) {
	headers, err := req.Headers()
	if err != nil {
		return nil, err
	}
	if a.transport == nil {
		return nil, fmt.Errorf("no transport configured for openapi_url mode")
	}

	src := a.discoverer.Resolve(ctx, req.SpecURL, headers)
	log := a.logger.With(slog.String("source", src))
	log.Info("Fetching OpenAPI schema")

	h := http.Header{}
	for k, v := range headers {
		h.Set(k, v)
	}
	resp, err := a.transport.Do(ctx, usecase.OutboundRequest{Method: http.MethodGet, URL: src, Header: h})
	if err != nil {
		log.Warn("Failed to fetch schema from URL", slog.Any("error", err))
		return nil, usecase.InvalidInput("Unable to fetch OpenAPI spec from URL: %v", err)
	}
	if resp.Status < 200 || resp.Status >= 300 {
		log.Warn("Received non-OK status code from URL", slog.Int("status_code", resp.Status))
		return nil, usecase.InvalidInput("Unable to fetch OpenAPI spec from URL: status %d", resp.Status)
	}
	return resp.Body, nil
}

// resourceDraft accumulates everything known about one resource while the
// paths are walked.
type resourceDraft struct {
	name       string
	endpoint   string
	operations map[domain.Operation]bool
	fields     *fieldSet
	primaryKey string
}

// Resources groups the document's paths into resources. Paths are visited
// in sorted order so the result is stable.
func (a *Analyzer) Resources(ctx context.Context, doc *openapi3.T) []domain.ResourceSchema {
	if doc == nil || doc.Paths == nil {
		return nil
	}
	pathMap := doc.Paths.Map()
	paths := make([]string, 0, len(pathMap))
	for p := range pathMap {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var order []string
	drafts := make(map[string]*resourceDraft)
	for _, path := range paths {
		item := pathMap[path]
		name := ResourceName(path)
		if item == nil || name == "" {
			continue
		}
		draft, ok := drafts[name]
		if !ok {
			draft = &resourceDraft{
				name:       name,
				endpoint:   Endpoint(path, name),
				operations: make(map[domain.Operation]bool),
				fields:     newFieldSet(),
			}
			drafts[name] = draft
			order = append(order, name)
		}

		ops := item.Operations()
		for _, method := range methodOrder {
			op := ops[method]
			if op == nil {
				continue
			}
			if mapped, ok := OperationFor(method, path); ok {
				draft.operations[mapped] = true
			}
			draft.fields.addMissing(responseFields(op))
		}
		if draft.primaryKey == "" {
			if pk, ok := pkdetect.KeyFromPathTemplate(path); ok {
				draft.primaryKey = pk
			}
		}
	}

	resources := make([]domain.ResourceSchema, 0, len(order))
	for _, name := range order {
		draft := drafts[name]
		fields := draft.fields.list()
		names := make([]string, len(fields))
		for i := range fields {
			names[i] = fields[i].Name
			fields[i].DisplayName = displayname.FromIdentifier(fields[i].Name)
		}
		pk := draft.primaryKey
		if pk == "" {
			pk = a.detector.Detect(ctx, names, draft.name)
		}
		ops := make([]domain.Operation, 0, len(draft.operations))
		for op := range draft.operations {
			ops = append(ops, op)
		}
		sort.Slice(ops, func(i, j int) bool { return ops[i].Order() < ops[j].Order() })

		resources = append(resources, domain.ResourceSchema{
			Name:        draft.name,
			DisplayName: displayname.FromIdentifier(draft.name),
			Endpoint:    draft.endpoint,
			PrimaryKey:  pk,
			Fields:      fields,
			Operations:  ops,
		})
	}
	return resources
}

// ResourceName returns the lowercased last path segment that is neither a
// parameter nor a version prefix, or "".
func ResourceName(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	for i := len(segments) - 1; i >= 0; i-- {
		seg := segments[i]
		if seg == "" || strings.HasPrefix(seg, "{") {
			continue
		}
		lower := strings.ToLower(seg)
		if versionSegments[lower] {
			continue
		}
		return lower
	}
	return ""
}

// Endpoint is the part of path before its first parameter, without a
// trailing slash. A path that starts with a parameter falls back to
// "/"+name.
func Endpoint(path, name string) string {
	endpoint := path
	if i := strings.Index(endpoint, "{"); i >= 0 {
		endpoint = endpoint[:i]
	}
	endpoint = strings.TrimRight(endpoint, "/")
	if endpoint == "" {
		return "/" + name
	}
	return endpoint
}

// OperationFor maps an HTTP method on path onto a CRUD operation.
func OperationFor(method, path string) (domain.Operation, bool) {
	switch strings.ToUpper(method) {
	case http.MethodGet:
		if strings.Contains(path, "{") {
			return domain.OpDetail, true
		}
		return domain.OpList, true
	case http.MethodPost:
		return domain.OpCreate, true
	case http.MethodPut, http.MethodPatch:
		return domain.OpUpdate, true
	case http.MethodDelete:
		return domain.OpDelete, true
	}
	return "", false
}

// responseFields extracts the fields of the first success response with a
// JSON schema.
func responseFields(op *openapi3.Operation) *fieldSet {
	if op.Responses == nil {
		return newFieldSet()
	}
	responses := op.Responses.Map()
	for _, code := range successCodes {
		ref := responses[code]
		if ref == nil || ref.Value == nil {
			continue
		}
		if schema := jsonSchema(ref.Value.Content); schema != nil {
			return schemaFields(schema, make(map[*openapi3.Schema]bool))
		}
	}
	return newFieldSet()
}

// jsonSchema picks application/json, then any other JSON media type.
func jsonSchema(content openapi3.Content) *openapi3.SchemaRef {
	if mt := content.Get("application/json"); mt != nil && mt.Schema != nil {
		return mt.Schema
	}
	types := make([]string, 0, len(content))
	for t := range content {
		types = append(types, t)
	}
	sort.Strings(types)
	for _, t := range types {
		if mt := content[t]; mt != nil && mt.Schema != nil && strings.Contains(strings.ToLower(t), "json") {
			return mt.Schema
		}
	}
	return nil
}

// schemaFields walks a response schema down to the record it describes:
// arrays yield their items, single-property and array-property wrappers
// are unwrapped, and allOf/oneOf/anyOf members are merged in.
func schemaFields(ref *openapi3.SchemaRef, visited map[*openapi3.Schema]bool) *fieldSet {
	fields := newFieldSet()
	if ref == nil || ref.Value == nil || visited[ref.Value] {
		return fields
	}
	schema := ref.Value
	visited[schema] = true

	if typeOf(schema) == "array" {
		if schema.Items != nil {
			return schemaFields(schema.Items, visited)
		}
		return fields
	}

	if len(schema.Properties) > 0 {
		names := sortedKeys(schema.Properties)
		if len(names) == 1 {
			prop := schema.Properties[names[0]]
			if prop != nil && prop.Value != nil {
				switch typeOf(prop.Value) {
				case "array":
					if isRecord(prop.Value.Items) {
						return schemaFields(prop.Value.Items, visited)
					}
				case "object":
					if len(prop.Value.Properties) > 0 {
						if nested := schemaFields(prop, visited); nested.len() > 0 {
							return nested
						}
					}
				}
			}
		}
		for _, name := range names {
			prop := schema.Properties[name]
			if prop != nil && prop.Value != nil && typeOf(prop.Value) == "array" && isRecord(prop.Value.Items) {
				return schemaFields(prop.Value.Items, visited)
			}
		}
		for _, name := range names {
			fields.set(domain.ResourceField{Name: name, Type: typeinfer.FromSchema(hintOf(schema.Properties[name], 0))})
		}
	}

	for _, group := range []openapi3.SchemaRefs{schema.AllOf, schema.OneOf, schema.AnyOf} {
		for _, sub := range group {
			fields.merge(schemaFields(sub, visited))
		}
	}
	return fields
}

// isRecord reports whether ref describes an object rather than a scalar, so
// an array of it is a record list and not a plain field.
func isRecord(ref *openapi3.SchemaRef) bool {
	if ref == nil || ref.Value == nil {
		return false
	}
	s := ref.Value
	return typeOf(s) == "object" || len(s.Properties) > 0 ||
		len(s.AllOf) > 0 || len(s.OneOf) > 0 || len(s.AnyOf) > 0
}

// hintOf reduces a property schema to what typeinfer needs. A missing type
// reads as string.
func hintOf(ref *openapi3.SchemaRef, depth int) typeinfer.SchemaHint {
	if ref == nil || ref.Value == nil {
		return typeinfer.SchemaHint{Type: "string"}
	}
	s := ref.Value
	hint := typeinfer.SchemaHint{Type: typeOf(s), Format: s.Format}
	if hint.Type == "" {
		hint.Type = "string"
	}
	if s.MaxLength != nil {
		hint.MaxLength = *s.MaxLength
	}
	if hint.Type == "array" && s.Items != nil && depth < domain.MaxArrayNesting {
		items := hintOf(s.Items, depth+1)
		hint.Items = &items
	}
	return hint
}

// typeOf returns the first declared type of s, or "".
func typeOf(s *openapi3.Schema) string {
	if s.Type == nil || len(*s.Type) == 0 {
		return ""
	}
	return strings.ToLower((*s.Type)[0])
}

func sortedKeys(props openapi3.Schemas) []string {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// fieldSet is an insertion-ordered set of fields keyed by name.
type fieldSet struct {
	names  []string
	byName map[string]domain.ResourceField
}

func newFieldSet() *fieldSet {
	return &fieldSet{byName: make(map[string]domain.ResourceField)}
}

func (s *fieldSet) len() int { return len(s.names) }

// set adds f or replaces an existing field of the same name in place.
func (s *fieldSet) set(f domain.ResourceField) {
	if _, ok := s.byName[f.Name]; !ok {
		s.names = append(s.names, f.Name)
	}
	s.byName[f.Name] = f
}

// merge overwrites with every field of other.
func (s *fieldSet) merge(other *fieldSet) {
	for _, name := range other.names {
		s.set(other.byName[name])
	}
}

// addMissing keeps existing definitions and appends new names only.
func (s *fieldSet) addMissing(other *fieldSet) {
	for _, name := range other.names {
		if _, ok := s.byName[name]; !ok {
			s.set(other.byName[name])
		}
	}
}

func (s *fieldSet) list() []domain.ResourceField {
	out := make([]domain.ResourceField, len(s.names))
	for i, name := range s.names {
		out[i] = s.byName[name]
	}
	return out
}
