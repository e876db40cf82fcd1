package common

import (
	"fmt"
	"strings"
)

type Type int8

const (
	// For uninitialized Values
	DefaultType Type = iota
	IntType
	StringType
)

func (t Type) String() string {
	switch t {
	case IntType:
		return "int"
	case StringType:
		return "string"
	}
	return "unknown"
}

// ParseType is the inverse of Type.String.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "int":
		return IntType, nil
	case "string":
		return StringType, nil
	}
	return DefaultType, NewPlanError(SerializationError, "unknown type %q", s)
}

func (t Type) MarshalYAML() (interface{}, error) {
	return t.String(), nil
}

func (t *Type) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	parsed, err := ParseType(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// ObjectID is a unique identifier for a table in the catalog.
type ObjectID uint32

const InvalidObjectID ObjectID = 0

// Value represents a literal appearing in a plan expression.
type Value struct {
	t                Type
	null             bool
	underlyingInt    int64
	underlyingString string
}

// NewIntValue creates a new integer Value.
func NewIntValue(v int64) Value {
	return Value{
		t:             IntType,
		underlyingInt: v,
	}
}

// NewStringValue creates a new string Value.
func NewStringValue(v string) Value {
	return Value{
		t:                StringType,
		underlyingString: v,
	}
}

// NewNullInt creates a NULL integer Value.
func NewNullInt() Value {
	return Value{
		t:    IntType,
		null: true,
	}
}

// NewNullString creates a NULL string Value.
func NewNullString() Value {
	return Value{
		t:    StringType,
		null: true,
	}
}

// IsNil returns true if the Value is nil and uninitialized. This is NOT to be confused with NULL values.
func (v Value) IsNil() bool {
	return v.t == DefaultType
}

// Type returns the type of the Value.
func (v Value) Type() Type {
	return v.t
}

// IsNull returns true if the Value is NULL.
func (v Value) IsNull() bool {
	return v.null
}

// IntValue returns the underlying (non-NULL) integer.
func (v Value) IntValue() int64 {
	Assert(v.t == IntType, "type mismatch in IntValue")
	Assert(!v.null, "accessing value of NULL int")
	return v.underlyingInt
}

// StringValue returns the underlying (non-NULL) string.
func (v Value) StringValue() string {
	Assert(v.t == StringType, "type mismatch in StringValue")
	Assert(!v.null, "accessing value of NULL string")
	return v.underlyingString
}

// Compare compares two Values.
// Returns -1 if v < other, 0 if v == other, 1 if v > other.
// NULL is considered less than non-NULL values.
func (v Value) Compare(other Value) int {
	Assert(v.t == other.t, "type mismatch in comparison")

	if v.null && other.null {
		return 0
	}
	if v.null {
		return -1
	}
	if other.null {
		return 1
	}

	switch v.t {
	case IntType:
		if v.underlyingInt < other.underlyingInt {
			return -1
		}
		if v.underlyingInt > other.underlyingInt {
			return 1
		}
		return 0
	case StringType:
		return strings.Compare(v.underlyingString, other.underlyingString)
	}
	panic("unreachable")
}

func (v Value) String() string {
	if v.null {
		return "NULL"
	}
	if v.t == StringType {
		return fmt.Sprintf("'%s'", v.underlyingString)
	}
	return fmt.Sprintf("%d", v.underlyingInt)
}
