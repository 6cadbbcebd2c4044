// Package wsdl infers resource schemas from WSDL 1.1 service descriptions.
package wsdl

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"

	"github.com/i2y/legacybridge/internal/displayname"
	"github.com/i2y/legacybridge/internal/domain"
	"github.com/i2y/legacybridge/internal/pkdetect"
	"github.com/i2y/legacybridge/internal/soap"
	"github.com/i2y/legacybridge/internal/typeinfer"
	"github.com/i2y/legacybridge/internal/usecase"
)

// DefaultEndpoint is used when the WSDL names no service address.
const DefaultEndpoint = "/service"

// wrapperMarkers identify message wrapper types that are not resources.
var wrapperMarkers = []string{"request", "response", "result", "message"}

// Analyzer implements usecase.Analyzer for the wsdl and wsdl_url modes.
type Analyzer struct {
	transport usecase.Transport
	detector  *pkdetect.Detector
	logger    *slog.Logger
}

// NewAnalyzer creates a new WSDL Analyzer. transport is only used for
// wsdl_url requests.
func NewAnalyzer(transport usecase.Transport, detector *pkdetect.Detector, logger *slog.Logger) *Analyzer {
	if detector == nil {
		detector = pkdetect.New(nil, logger)
	}
	return &Analyzer{
		transport: transport,
		detector:  detector,
		logger:    logger.With("component", "wsdl_analyzer"),
	}
}

// Analyze parses the WSDL carried by req, fetching it first in wsdl_url mode.
func (a *Analyzer) Analyze(ctx context.Context, req usecase.AnalyzeRequest) ([]domain.ResourceSchema, error) {
	content := []byte(req.WSDLContent)
	if req.Mode == usecase.ModeWSDLURL {
		fetched, err := a.fetch(ctx, req.WSDLURL)
		if err != nil {
			return nil, err
		}
		content = fetched
	}

	root, err := soap.Decode(content)
	if err != nil {
		return nil, usecase.InvalidInput("Invalid WSDL XML: %v", err)
	}
	resources := a.Resources(ctx, root)
	a.logger.Info("Extracted resources from WSDL", slog.Int("resources", len(resources)))
	return resources, nil
}

func (a *Analyzer) fetch(ctx context.Context, wsdlURL string) ([]byte, error) {
	if a.transport == nil {
		return nil, fmt.Errorf("no transport configured for wsdl_url mode")
	}
	a.logger.Info("Fetching WSDL", slog.String("url", wsdlURL))
	resp, err := a.transport.Do(ctx, usecase.OutboundRequest{Method: http.MethodGet, URL: wsdlURL})
	if err != nil {
		return nil, usecase.InvalidInput("Unable to fetch WSDL from URL: %v", err)
	}
	if resp.Status < 200 || resp.Status >= 300 {
		return nil, usecase.InvalidInput("Unable to fetch WSDL from URL: status %d", resp.Status)
	}
	return resp.Body, nil
}

// complexType is a named record definition found in the WSDL types.
type complexType struct {
	name   string
	fields []domain.ResourceField
}

// Resources builds one resource per record type. Every resource carries the
// CRUD operations inferred from all portType operations.
func (a *Analyzer) Resources(ctx context.Context, root *soap.Node) []domain.ResourceSchema {
	types := complexTypes(root)
	ops := Operations(root)
	endpoint := ServiceEndpoint(root)

	main := make([]complexType, 0, len(types))
	for _, t := range types {
		if !isWrapper(t.name) {
			main = append(main, t)
		}
	}
	if len(main) == 0 {
		main = types
	}

	resources := make([]domain.ResourceSchema, 0, len(main))
	for _, t := range main {
		if len(t.fields) == 0 {
			continue
		}
		fields := make([]domain.ResourceField, len(t.fields))
		copy(fields, t.fields)
		names := make([]string, len(fields))
		for i := range fields {
			names[i] = fields[i].Name
			fields[i].DisplayName = displayname.FromIdentifier(fields[i].Name)
		}
		name := displayname.Pluralize(strings.ToLower(t.name))
		resources = append(resources, domain.ResourceSchema{
			Name:        name,
			DisplayName: displayname.FromIdentifier(name),
			Endpoint:    endpoint,
			PrimaryKey:  a.detector.Detect(ctx, names, strings.ToLower(t.name)),
			Fields:      fields,
			Operations:  append([]domain.Operation(nil), ops...),
		})
	}
	return resources
}

func isWrapper(name string) bool {
	lower := strings.ToLower(name)
	for _, marker := range wrapperMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}

// complexTypes collects named complexType definitions and elements with an
// embedded complexType, in document order. A later definition of the same
// name replaces the earlier one in place. Types without fields are dropped.
func complexTypes(root *soap.Node) []complexType {
	var out []complexType
	index := make(map[string]int)
	add := func(name string, fields []domain.ResourceField) {
		if name == "" || len(fields) == 0 {
			return
		}
		if i, ok := index[name]; ok {
			out[i].fields = fields
			return
		}
		index[name] = len(out)
		out = append(out, complexType{name: name, fields: fields})
	}

	root.Walk(func(n *soap.Node) bool {
		switch n.Local {
		case "complexType":
			add(n.Attr("name"), typeFields(n))
		case "element":
			if ct := n.Child("complexType"); ct != nil {
				add(n.Attr("name"), typeFields(ct))
			}
		}
		return true
	})
	return out
}

// typeFields lists the named elements directly inside every sequence, all
// or choice below ct.
func typeFields(ct *soap.Node) []domain.ResourceField {
	var fields []domain.ResourceField
	ct.Walk(func(n *soap.Node) bool {
		switch n.Local {
		case "sequence", "all", "choice":
			for _, el := range n.Children {
				if el.Local != "element" {
					continue
				}
				name := el.Attr("name")
				if name == "" {
					continue
				}
				fields = append(fields, domain.ResourceField{Name: name, Type: typeinfer.FromXSD(el.Attr("type"))})
			}
		}
		return true
	})
	return fields
}

// Operations infers the distinct CRUD operations of every portType
// operation, in vocabulary order. With none, list and detail are assumed.
func Operations(root *soap.Node) []domain.Operation {
	seen := make(map[domain.Operation]bool)
	root.Walk(func(n *soap.Node) bool {
		if n.Local != "portType" {
			return true
		}
		for _, op := range n.Children {
			if op.Local == "operation" && op.Attr("name") != "" {
				seen[OperationKind(op.Attr("name"))] = true
			}
		}
		return false
	})
	if len(seen) == 0 {
		return []domain.Operation{domain.OpList, domain.OpDetail}
	}
	ops := make([]domain.Operation, 0, len(seen))
	for op := range seen {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Order() < ops[j].Order() })
	return ops
}

// OperationKind infers the CRUD operation a SOAP operation name performs.
// Names that match nothing are treated as detail lookups.
func OperationKind(name string) domain.Operation {
	lower := strings.ToLower(name)
	switch {
	case containsAny(lower, "getall", "getlist", "list", "search", "find", "query"):
		return domain.OpList
	case containsAny(lower, "getbyid", "getby", "get", "fetch", "retrieve", "load") &&
		!strings.Contains(lower, "all") && !strings.Contains(lower, "list"):
		return domain.OpDetail
	case containsAny(lower, "create", "add", "insert", "new", "register"):
		return domain.OpCreate
	case containsAny(lower, "update", "modify", "edit", "save", "change"):
		return domain.OpUpdate
	case containsAny(lower, "delete", "remove", "destroy", "cancel"):
		return domain.OpDelete
	}
	return domain.OpDetail
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// ServiceEndpoint returns the path of the first service address location.
// Relative locations are returned unchanged.
func ServiceEndpoint(root *soap.Node) string {
	endpoint := ""
	root.Walk(func(n *soap.Node) bool {
		if endpoint != "" {
			return false
		}
		if n.Local != "address" {
			return true
		}
		location := n.Attr("location")
		if location == "" {
			return true
		}
		if !strings.Contains(location, "://") {
			endpoint = location
			return false
		}
		endpoint = DefaultEndpoint
		if u, err := url.Parse(location); err == nil && u.Path != "" {
			endpoint = u.Path
		}
		return false
	})
	if endpoint == "" {
		return DefaultEndpoint
	}
	return endpoint
}
