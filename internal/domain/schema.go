package domain

import (
	"fmt"
	"strings"
)

// Operation is one of the normalized CRUD verbs understood by the gateway.
type Operation string

const (
	OpList   Operation = "list"
	OpDetail Operation = "detail"
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// Operations lists the vocabulary in canonical order.
var Operations = []Operation{OpList, OpDetail, OpCreate, OpUpdate, OpDelete}

// ParseOperation validates a raw operation token.
func ParseOperation(s string) (Operation, error) {
	for _, op := range Operations {
		if string(op) == s {
			return op, nil
		}
	}
	return "", fmt.Errorf("invalid operation %q: must be one of %s", s, strings.Join(OperationNames(), ", "))
}

// OperationNames returns the vocabulary as plain strings.
func OperationNames() []string {
	names := make([]string, len(Operations))
	for i, op := range Operations {
		names[i] = string(op)
	}
	return names
}

// Order returns the position of op in the canonical vocabulary, or -1.
func (op Operation) Order() int {
	for i, o := range Operations {
		if o == op {
			return i
		}
	}
	return -1
}

// DefaultPrimaryKey is used when no better identifier field is found.
const DefaultPrimaryKey = "id"

// ResourceField describes one field of an inferred resource.
type ResourceField struct {
	Name        string  `json:"name"`
	Type        TypeTag `json:"type"`
	DisplayName string  `json:"displayName"`
}

// ResourceSchema is the normalized description of one legacy resource.
// Instances are built once per inference call and not mutated afterwards.
type ResourceSchema struct {
	Name        string          `json:"name"`
	DisplayName string          `json:"displayName"`
	Endpoint    string          `json:"endpoint"`
	PrimaryKey  string          `json:"primaryKey"`
	Fields      []ResourceField `json:"fields"`
	Operations  []Operation     `json:"operations"`
}

// FieldNames returns the names of all fields in declaration order.
func (s ResourceSchema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}
