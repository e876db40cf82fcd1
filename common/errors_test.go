package common

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestPlanErrorCodes(t *testing.T) {
	err := NewPlanError(InvalidPlanError, "sort %d is missing", 3)
	assert.Equal(t, "err: InvalidPlanError; msg: sort 3 is missing", err.Error())

	wrapped := errors.Wrap(errors.Wrap(err, "inner"), "outer")
	code, ok := CodeOf(wrapped)
	require.True(t, ok)
	assert.Equal(t, InvalidPlanError, code)
	assert.True(t, HasCode(wrapped, InvalidPlanError))
	assert.False(t, HasCode(wrapped, ConfigError))

	_, ok = CodeOf(errors.New("plain"))
	assert.False(t, ok)
	assert.False(t, HasCode(nil, InvalidPlanError))
	assert.Equal(t, "unknown", ErrorCode(99).String())
}

func TestValueCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"ints", NewIntValue(1), NewIntValue(2), -1},
		{"equal ints", NewIntValue(7), NewIntValue(7), 0},
		{"strings", NewStringValue("b"), NewStringValue("a"), 1},
		{"null first", NewNullInt(), NewIntValue(-100), -1},
		{"null last", NewStringValue(""), NewNullString(), 1},
		{"both null", NewNullInt(), NewNullInt(), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Compare(tt.b))
		})
	}

	assert.Panics(t, func() { NewIntValue(1).Compare(NewStringValue("1")) })
	assert.Panics(t, func() { NewNullInt().IntValue() })
}

func TestValueString(t *testing.T) {
	assert.Equal(t, "42", NewIntValue(42).String())
	assert.Equal(t, "'hi'", NewStringValue("hi").String())
	assert.Equal(t, "NULL", NewNullString().String())
	assert.True(t, Value{}.IsNil())
	assert.False(t, NewNullInt().IsNil())
}

func TestTypeYAML(t *testing.T) {
	parsed, err := ParseType("STRING")
	require.NoError(t, err)
	assert.Equal(t, StringType, parsed)

	_, err = ParseType("float")
	assert.True(t, HasCode(err, SerializationError))

	var holder struct {
		T Type `yaml:"t"`
	}
	holder.T = IntType
	out, err := yaml.Marshal(&holder)
	require.NoError(t, err)
	assert.Equal(t, "t: int\n", string(out))

	require.NoError(t, yaml.Unmarshal([]byte("t: string\n"), &holder))
	assert.Equal(t, StringType, holder.T)
	assert.Error(t, yaml.Unmarshal([]byte("t: blob\n"), &holder))
}
