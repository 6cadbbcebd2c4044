package soap

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html/charset"
)

// MaxParseDepth bounds element nesting accepted from a response document.
const MaxParseDepth = 256

// ErrMalformedXML is wrapped when a response cannot be parsed as XML.
var ErrMalformedXML = errors.New("malformed SOAP response")

// FaultError is returned when the response body carries a SOAP Fault.
type FaultError struct {
	Code   string
	String string
}

func (e *FaultError) Error() string {
	return fmt.Sprintf("SOAP Fault [%s]: %s", e.Code, e.String)
}

// Node is a namespace-aware element tree decoded from a response.
type Node struct {
	Space    string
	Local    string
	Attrs    []xml.Attr
	Children []*Node
	text     strings.Builder
}

// Text returns the element's own character data, trimmed.
func (n *Node) Text() string {
	return strings.TrimSpace(n.text.String())
}

// IsLeaf reports whether n has no child elements.
func (n *Node) IsLeaf() bool {
	return len(n.Children) == 0
}

// Child returns the first child whose local name equals local.
func (n *Node) Child(local string) *Node {
	for _, c := range n.Children {
		if c.Local == local {
			return c
		}
	}
	return nil
}

// Find returns the first descendant (depth first, excluding n) matching pred.
func (n *Node) Find(pred func(*Node) bool) *Node {
	for _, c := range n.Children {
		if pred(c) {
			return c
		}
		if found := c.Find(pred); found != nil {
			return found
		}
	}
	return nil
}

// Attr returns the value of the first attribute named local, ignoring its
// namespace, or "".
func (n *Node) Attr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

// Walk visits n and its descendants in document order. Returning false from
// fn skips the children of the visited node.
func (n *Node) Walk(fn func(*Node) bool) {
	if !fn(n) {
		return
	}
	for _, c := range n.Children {
		c.Walk(fn)
	}
}

// Decode parses an XML document into a Node tree.
func Decode(data []byte) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charset.NewReaderLabel

	var (
		stack []*Node
		root  *Node
	)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedXML, err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if len(stack) >= MaxParseDepth {
				return nil, fmt.Errorf("%w: nesting deeper than %d levels", ErrMalformedXML, MaxParseDepth)
			}
			node := &Node{Space: t.Name.Space, Local: t.Name.Local}
			for _, a := range t.Attr {
				if a.Name.Space == "xmlns" || a.Name.Local == "xmlns" {
					continue
				}
				node.Attrs = append(node.Attrs, a)
			}
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				parent.Children = append(parent.Children, node)
			} else if root != nil {
				return nil, fmt.Errorf("%w: multiple root elements", ErrMalformedXML)
			}
			stack = append(stack, node)
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].text.Write(t)
			}
		case xml.EndElement:
			node := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				root = node
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedXML)
	}
	return root, nil
}

// Body locates the SOAP Body: a SOAP 1.1 or 1.2 Body child of root, then
// any child whose name ends in "Body", else root itself.
func Body(root *Node) *Node {
	for _, ns := range []string{EnvelopeNS11, EnvelopeNS12} {
		for _, c := range root.Children {
			if c.Space == ns && c.Local == "Body" {
				return c
			}
		}
	}
	for _, c := range root.Children {
		if strings.HasSuffix(c.Local, "Body") {
			return c
		}
	}
	return root
}

// Fault returns the fault carried by body, or nil.
func Fault(body *Node) *FaultError {
	var fault *Node
	for _, ns := range []string{EnvelopeNS11, EnvelopeNS12} {
		for _, c := range body.Children {
			if c.Space == ns && c.Local == "Fault" {
				fault = c
				break
			}
		}
		if fault != nil {
			break
		}
	}
	if fault == nil {
		for _, c := range body.Children {
			if strings.HasSuffix(c.Local, "Fault") {
				fault = c
				break
			}
		}
	}
	if fault == nil {
		return nil
	}

	out := &FaultError{Code: "Unknown", String: "Unknown error"}
	for _, c := range fault.Children {
		switch c.Local {
		case "faultcode":
			if t := c.Text(); t != "" {
				out.Code = t
			}
		case "faultstring":
			if t := c.Text(); t != "" {
				out.String = t
			}
		}
	}
	if out.Code == "Unknown" {
		if v := pathUnder(fault, "Code", "Value"); v != nil && v.Text() != "" {
			out.Code = v.Text()
		}
		if r := pathUnder(fault, "Reason", "Text"); r != nil && r.Text() != "" {
			out.String = r.Text()
		}
	}
	return out
}

// pathUnder finds a descendant named parent that has a direct child named child.
func pathUnder(n *Node, parent, child string) *Node {
	var hit *Node
	n.Find(func(c *Node) bool {
		if c.Local != parent {
			return false
		}
		if found := c.Child(child); found != nil {
			hit = found
			return true
		}
		return false
	})
	return hit
}

// ParseResponse extracts records from a SOAP response. A fault is reported
// as *FaultError before any record extraction. One record is returned bare;
// several (or none) are returned as []any.
func ParseResponse(data []byte, operation string) (any, error) {
	return ParseResponseElement(data, operation, "")
}

// ParseResponseElement is ParseResponse with an explicit response element
// name overriding "{operation}Response".
func ParseResponseElement(data []byte, operation, responseElement string) (any, error) {
	root, err := Decode(data)
	if err != nil {
		return nil, err
	}
	body := Body(root)
	if fault := Fault(body); fault != nil {
		return nil, fault
	}

	elems := Records(body, operation, responseElement)
	records := make([]any, 0, len(elems))
	for _, e := range elems {
		records = append(records, ToValue(e))
	}
	if len(records) == 1 {
		return records[0], nil
	}
	return records, nil
}

// Records returns the elements holding data records inside body.
func Records(body *Node, operation, responseElement string) []*Node {
	names := []string{operation + "Response", operation}
	if responseElement != "" {
		names = []string{responseElement}
	}
	response := body
	for _, c := range body.Children {
		if c.Local == names[0] || (len(names) > 1 && c.Local == names[1]) {
			response = c
			break
		}
	}

	var records []*Node
	for _, c := range response.Children {
		switch strings.ToLower(c.Local) {
		case "return", "result", "response":
			records = append(records, c.Children...)
		default:
			records = append(records, c)
		}
	}
	if len(records) == 0 && response != body {
		records = []*Node{response}
	}
	return records
}

// ToValue converts an element to a plain value: a leaf becomes its trimmed
// text (or an empty map), anything else a map keyed by local names with
// repeated children grouped into lists and attributes under "@name".
func ToValue(n *Node) any {
	if n.IsLeaf() {
		if t := n.Text(); t != "" {
			return t
		}
		if len(n.Attrs) > 0 {
			return attrMap(n)
		}
		return map[string]any{}
	}

	out := attrMap(n)
	order := make([]string, 0, len(n.Children))
	grouped := make(map[string][]any, len(n.Children))
	for _, c := range n.Children {
		if _, seen := grouped[c.Local]; !seen {
			order = append(order, c.Local)
		}
		grouped[c.Local] = append(grouped[c.Local], ToValue(c))
	}
	for _, name := range order {
		if vals := grouped[name]; len(vals) == 1 {
			out[name] = vals[0]
		} else {
			out[name] = vals
		}
	}
	if t := n.Text(); t != "" {
		out["#text"] = t
	}
	return out
}

func attrMap(n *Node) map[string]any {
	out := make(map[string]any, len(n.Attrs)+len(n.Children))
	for _, a := range n.Attrs {
		out["@"+a.Name.Local] = a.Value
	}
	return out
}
