package domain

import "strings"

// TypeTag is the normalized type of a resource field.
// The set is closed: the scalar tags below plus array[T] where T is itself a
// valid tag and at most two array levels are nested.
type TypeTag string

const (
	TypeString   TypeTag = "string"
	TypeText     TypeTag = "text"
	TypeNumber   TypeTag = "number"
	TypeBoolean  TypeTag = "boolean"
	TypeEmail    TypeTag = "email"
	TypeURL      TypeTag = "url"
	TypeUUID     TypeTag = "uuid"
	TypeDatetime TypeTag = "datetime"
	TypeCurrency TypeTag = "currency"
	TypePhone    TypeTag = "phone"
	TypeObject   TypeTag = "object"
)

// MaxArrayNesting is the number of array levels a tag may carry.
const MaxArrayNesting = 2

const (
	arrayPrefix = "array["
	arraySuffix = "]"
)

// flexibility ranks decide which tag wins when samples disagree. Arrays of
// any element type rank 0.
var flexibility = map[TypeTag]int{
	TypeText:     100,
	TypeString:   90,
	TypeCurrency: 80,
	TypeURL:      70,
	TypeEmail:    60,
	TypePhone:    50,
	TypeUUID:     40,
	TypeDatetime: 30,
	TypeNumber:   20,
	TypeBoolean:  10,
	TypeObject:   5,
}

// ArrayOf wraps elem in an array tag.
func ArrayOf(elem TypeTag) TypeTag {
	return TypeTag(arrayPrefix + string(elem) + arraySuffix)
}

// IsArray reports whether t is an array[...] tag.
func (t TypeTag) IsArray() bool {
	s := string(t)
	return strings.HasPrefix(s, arrayPrefix) && strings.HasSuffix(s, arraySuffix)
}

// Elem returns the element tag of an array tag.
func (t TypeTag) Elem() (TypeTag, bool) {
	if !t.IsArray() {
		return "", false
	}
	s := string(t)
	return TypeTag(s[len(arrayPrefix) : len(s)-len(arraySuffix)]), true
}

// Depth returns the number of array levels wrapping the base tag.
func (t TypeTag) Depth() int {
	depth := 0
	for {
		elem, ok := t.Elem()
		if !ok {
			return depth
		}
		depth++
		t = elem
	}
}

// Rank returns the flexibility rank of t. Unknown tags rank 0.
func (t TypeTag) Rank() int {
	if t.IsArray() {
		return 0
	}
	return flexibility[t]
}

// Valid reports whether t belongs to the closed tag set.
func (t TypeTag) Valid() bool {
	if t.Depth() > MaxArrayNesting {
		return false
	}
	base := t
	for {
		elem, ok := base.Elem()
		if !ok {
			break
		}
		base = elem
	}
	_, known := flexibility[base]
	return known
}

// Wider returns whichever of a and b has the higher flexibility rank.
// On a tie a is kept.
func Wider(a, b TypeTag) TypeTag {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}
