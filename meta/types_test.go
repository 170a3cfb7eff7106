package meta

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTypeValidate(t *testing.T) {
	r := NewTypes()
	tests := []struct {
		typ   string
		value string
		want  bool
	}{
		{"string", "anything", true},
		{"integer", " 42 ", true},
		{"integer", "4.2", false},
		{"double", "4.2e3", true},
		{"double", "four", false},
		{"boolean", "true", true},
		{"boolean", "yes", false},
		{"biginteger", "123456789012345678901234567890", true},
		{"biginteger", "12.5", false},
		{"bigdecimal", "1234567890.0987654321", true},
		{"date", "2024-02-29", true},
		{"date", "2023-02-29", false},
		{"date", "2024-05-01T10:00:00Z", true},
		{"date", "yesterday", false},
		{"binary", "aGVsbG8=", true},
		{"binary", "not base64!", false},
		{"uid", "3f2504e0-4f89-11d3-9a0c-0305e82c3301", true},
		{"uid", "3f2504e0", false},
		{"email", "jane@example.com", true},
		{"email", "Jane <jane@example.com>", true},
		{"email", "jane@localhost", false},
		{"email", "@example.com", false},
		{"phone", "+16502530000", true},
		{"phone", "12345", false},
	}
	for _, tt := range tests {
		t.Run(tt.typ+" "+tt.value, func(t *testing.T) {
			typ := r.Get(tt.typ)
			require.NotNil(t, typ)
			assert.Equal(t, tt.want, typ.Validate(tt.value))
		})
	}
}

func TestTypeRegistry(t *testing.T) {
	r := NewTypes()
	assert.Nil(t, r.Get("blob"))
	assert.Contains(t, r.Names(), "uid")
	assert.Len(t, r.Names(), 16)
	assert.True(t, r.Array.Container())
	assert.False(t, r.Array.Validate("x"))
	assert.False(t, r.String.Container())
	assert.True(t, r.Date.Comparable())
	assert.Equal(t, "E-Mail Address", r.Email.Label())
	assert.Same(t, registry, DefaultTypes())

	id := r.UID.Generate()
	assert.True(t, r.UID.Validate(id))
	assert.NotEqual(t, id, r.UID.Generate())
}
