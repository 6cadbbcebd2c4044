// Package soapxml infers resource schemas from SOAP response documents,
// either supplied as a sample or fetched from a live endpoint.
package soapxml

import (
	"context"
	"log/slog"
	"strings"

	"github.com/i2y/legacybridge/internal/displayname"
	"github.com/i2y/legacybridge/internal/domain"
	"github.com/i2y/legacybridge/internal/pkdetect"
	"github.com/i2y/legacybridge/internal/soap"
	"github.com/i2y/legacybridge/internal/typeinfer"
	"github.com/i2y/legacybridge/internal/usecase"
)

const (
	maxMergedRecords = 5  // records contributing to type inference
	maxFieldRecords  = 10 // records taken from the leaf-field fallback
	minLeafFields    = 3
)

var (
	verbPrefixes    = []string{"Get", "Create", "Update", "Delete", "List", "Find", "Search"}
	wrapperSuffixes = []string{"Response", "Request", "Result"}
)

// SampleAnalyzer implements usecase.Analyzer for the soap_xml_sample mode.
type SampleAnalyzer struct {
	detector *pkdetect.Detector
	logger   *slog.Logger
}

// NewSampleAnalyzer creates a new SampleAnalyzer.
func NewSampleAnalyzer(detector *pkdetect.Detector, logger *slog.Logger) *SampleAnalyzer {
	if detector == nil {
		detector = pkdetect.New(nil, logger)
	}
	return &SampleAnalyzer{
		detector: detector,
		logger:   logger.With("component", "soap_xml_analyzer"),
	}
}

// Analyze infers one resource from req.SampleXML. The endpoint is
// req.BaseURL when set.
func (a *SampleAnalyzer) Analyze(ctx context.Context, req usecase.AnalyzeRequest) ([]domain.ResourceSchema, error) {
	schema, err := a.FromDocument(ctx, []byte(req.SampleXML), req.OperationName, req.BaseURL)
	if err != nil {
		return nil, err
	}
	return []domain.ResourceSchema{schema}, nil
}

// FromDocument infers a resource from a SOAP response document returned by
// operation.
func (a *SampleAnalyzer) FromDocument(ctx context.Context, doc []byte, operation, endpoint string) (domain.ResourceSchema, error) {
	root, err := soap.Decode(doc)
	if err != nil {
		return domain.ResourceSchema{}, usecase.InvalidInput("Invalid XML: %v", err)
	}
	body := soap.Body(root)

	records := Records(body)
	if len(records) == 0 {
		return domain.ResourceSchema{}, usecase.InvalidInput("Could not find data records in XML response")
	}

	fields := recordFields(records[0])
	last := min(len(records), maxMergedRecords)
	for _, rec := range records[1:last] {
		mergeFields(fields, rec)
	}

	out := make([]domain.ResourceField, len(fields))
	names := make([]string, len(fields))
	for i, f := range fields {
		out[i] = domain.ResourceField{Name: f.name, Type: f.tag, DisplayName: displayname.FromIdentifier(f.name)}
		names[i] = f.name
	}

	name := ResourceName(operation)
	if endpoint == "" {
		endpoint = "/" + name
	}
	a.logger.Debug("Inferred resource from SOAP sample",
		slog.String("operation", operation),
		slog.Int("records", len(records)),
		slog.Int("fields", len(out)))
	return domain.ResourceSchema{
		Name:        name,
		DisplayName: displayname.FromIdentifier(name),
		Endpoint:    endpoint,
		PrimaryKey:  a.detector.Detect(ctx, names, name),
		Fields:      out,
		Operations:  OperationsFor(operation),
	}, nil
}

// Records locates the record elements inside body. It tries, in order:
// a group of at least two same-named siblings that have children; inside
// any *Response or *Result element, a group of same-named children that
// have children; elements with at least three leaf children; and finally
// the first child of body.
func Records(body *soap.Node) []*soap.Node {
	var found []*soap.Node

	body.Walk(func(n *soap.Node) bool {
		if found != nil {
			return false
		}
		if len(n.Children) >= 2 && sameTag(n.Children) && !n.Children[0].IsLeaf() {
			found = n.Children
			return false
		}
		return true
	})
	if found != nil {
		return found
	}

	body.Walk(func(n *soap.Node) bool {
		if found != nil {
			return false
		}
		if !strings.Contains(n.Local, "Response") && !strings.Contains(n.Local, "Result") {
			return true
		}
		n.Walk(func(c *soap.Node) bool {
			if found != nil {
				return false
			}
			if len(c.Children) >= 1 && sameTag(c.Children) && !c.Children[0].IsLeaf() {
				found = c.Children
				return false
			}
			return true
		})
		return found == nil
	})
	if found != nil {
		return found
	}

	body.Walk(func(n *soap.Node) bool {
		if len(found) >= maxFieldRecords {
			return false
		}
		leaves := 0
		for _, c := range n.Children {
			if c.IsLeaf() {
				leaves++
			}
		}
		if leaves >= minLeafFields {
			found = append(found, n)
		}
		return true
	})
	if len(found) > 0 {
		return found
	}

	if len(body.Children) > 0 {
		return body.Children[:1]
	}
	return nil
}

func sameTag(nodes []*soap.Node) bool {
	for _, n := range nodes[1:] {
		if n.Local != nodes[0].Local || n.Space != nodes[0].Space {
			return false
		}
	}
	return true
}

// sampleField is a field under construction with its inferred tag.
type sampleField struct {
	name string
	tag  domain.TypeTag
}

// recordFields reads one field per distinct child name. Leaves are
// classified by their text; empty leaves are strings and elements with
// children are objects.
func recordFields(rec *soap.Node) []*sampleField {
	var fields []*sampleField
	seen := make(map[string]bool)
	for _, c := range rec.Children {
		if seen[c.Local] {
			continue
		}
		seen[c.Local] = true
		fields = append(fields, &sampleField{name: c.Local, tag: childTag(c)})
	}
	return fields
}

func childTag(c *soap.Node) domain.TypeTag {
	if !c.IsLeaf() {
		return domain.TypeObject
	}
	if text := c.Text(); text != "" {
		return typeinfer.ClassifyString(text)
	}
	return domain.TypeString
}

// mergeFields upgrades fields still typed string when rec holds a
// non-empty value of a more specific type.
func mergeFields(fields []*sampleField, rec *soap.Node) {
	for _, f := range fields {
		if f.tag != domain.TypeString {
			continue
		}
		c := rec.Child(f.name)
		if c == nil || !c.IsLeaf() || c.Text() == "" {
			continue
		}
		if tag := typeinfer.ClassifyString(c.Text()); tag != domain.TypeString {
			f.tag = tag
		}
	}
}

// ResourceName derives a plural snake_case resource name from an operation
// name: the leading verb and trailing Response/Request/Result are removed,
// e.g. "GetCustomerOrders" becomes "customer_orders".
func ResourceName(operation string) string {
	name := operation
	for _, prefix := range verbPrefixes {
		if strings.HasPrefix(name, prefix) {
			name = strings.TrimPrefix(name, prefix)
			break
		}
	}
	for _, suffix := range wrapperSuffixes {
		name = strings.TrimSuffix(name, suffix)
	}
	name = displayname.Pluralize(displayname.Snake(name))
	if name == "" {
		return "resources"
	}
	return name
}

// OperationsFor infers the operations a resource supports from the verb in
// the operation name that produced the sample.
func OperationsFor(operation string) []domain.Operation {
	lower := strings.ToLower(operation)
	switch {
	case containsAny(lower, "getall", "list", "search", "find", "query"):
		return []domain.Operation{domain.OpList}
	case containsAny(lower, "get", "fetch", "retrieve"):
		return []domain.Operation{domain.OpList, domain.OpDetail}
	case containsAny(lower, "create", "add", "insert"):
		return []domain.Operation{domain.OpList, domain.OpDetail, domain.OpCreate}
	case containsAny(lower, "update", "modify", "edit"):
		return []domain.Operation{domain.OpList, domain.OpDetail, domain.OpUpdate}
	case containsAny(lower, "delete", "remove"):
		return []domain.Operation{domain.OpList, domain.OpDetail, domain.OpDelete}
	}
	return []domain.Operation{domain.OpList, domain.OpDetail}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
