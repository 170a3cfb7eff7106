package meta

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := NewModel("../schema")
	require.NoError(t, err)
	return m
}

func TestNewModelFromPath(t *testing.T) {
	m := loadTestModel(t)
	assert.Equal(t, []string{"A", "B", "C", "R", "customer", "order", "product"}, m.Entities())
	assert.Equal(t, []string{"1.0.0", "1.1.0"}, m.Versions("customer"))
	assert.Nil(t, m.Versions("nobody"))

	md, err := m.Get("customer", "")
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", md.VersionValue())
	assert.Equal(t, []string{"1.0.0"}, md.Version.Extends)
	assert.Equal(t, "mongo", md.DataStore.Backend)
	assert.Equal(t, "customers", md.DataStore.Properties["collection"])
	assert.Equal(t, []string{"admin"}, md.Access.Delete)
	require.Len(t, md.Indexes, 1)
	assert.True(t, md.Indexes[0].Unique)
	assert.Equal(t, "email asc", md.Indexes[0].Fields[0].String())

	old, err := m.Get("customer", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, StatusDeprecated, old.Status)
	require.Len(t, old.StatusChangeLog, 2)
	assert.Equal(t, StatusDeprecated, old.StatusChangeLog[1].Status)
	assert.Equal(t, "replaced by 1.1.0", old.StatusChangeLog[1].Comment)
}

func TestModelFieldOrderAndTypes(t *testing.T) {
	m := loadTestModel(t)
	md, err := m.Get("customer", "1.1.0")
	require.NoError(t, err)
	assert.Equal(t, []string{"_id", "email", "phone", "name", "status", "created", "addresses"}, md.Fields().Names())

	tests := map[string]string{
		"_id":              "uid",
		"email":            "email",
		"phone":            "phone",
		"created":          "date",
		"addresses":        "array",
		"addresses.*":      "object",
		"addresses.0.city": "string",
	}
	for path, typ := range tests {
		n, err := md.Resolve(ParsePath(path))
		require.NoError(t, err, path)
		assert.Equal(t, typ, n.Type().Name(), path)
	}

	n, err := md.Resolve(ParsePath("status"))
	require.NoError(t, err)
	c, ok := n.(Field).base().Constraint("enum")
	require.True(t, ok)
	assert.Equal(t, []string{"active", "suspended"}, c.Value)
	assert.Equal(t, []Path{ParsePath("_id")}, md.IdentityFields())
}

func TestModelReferences(t *testing.T) {
	m := loadTestModel(t)
	md, err := m.Get("A", "")
	require.NoError(t, err)

	n, err := md.Resolve(ParsePath("obj1.c"))
	require.NoError(t, err)
	ref, ok := n.(*ReferenceField)
	require.True(t, ok)
	assert.Equal(t, "C", ref.EntityName)
	assert.Equal(t, "$and(field1 = abc, ref = $parent.x)", ref.Query.String())

	n, err = md.Resolve(ParsePath("b"))
	require.NoError(t, err)
	assert.Equal(t, "+*/**", n.(*ReferenceField).Projection.String())
}

func TestModelGetErrors(t *testing.T) {
	m := loadTestModel(t)
	_, err := m.Get("custmer", "")
	assert.True(t, errors.Is(err, ErrUnknownEntity))
	assert.Contains(t, err.Error(), `did you mean "customer"?`)

	_, err = m.Get("customer", "9.9.9")
	assert.True(t, errors.Is(err, ErrInvalidVersion))
}

func TestModelGetMetadataFor(t *testing.T) {
	m := loadTestModel(t)
	order, err := m.Get("order", "")
	require.NoError(t, err)

	q := mustQuery(t, `{"array":"lines","elemMatch":{"field":"product.*.price","op":">","rvalue":10}}`)
	cmd, err := BuildCompositeMetadata(order, m.GetMetadataFor(nil, q))
	require.NoError(t, err)
	assert.Nil(t, cmd.ChildMetadata(ParsePath("customer")))
	product := cmd.ChildReference(ParsePath("lines.*.product"))
	require.NotNil(t, product)
	assert.Same(t, product, cmd.ChildReference(ParsePath("lines.3.product")))
	assert.Same(t, product.ReferencedMetadata(), cmd.ChildMetadata(ParsePath("lines.0.product")))
	assert.Equal(t, "lines.*.product.*.sku = lines.*.sku", product.AbsQuery().String())

	cmd, err = BuildCompositeMetadata(order, m.GetMetadataFor(mustProjection(t, `{"field":"customer.*.email"}`), nil))
	require.NoError(t, err)
	customer := cmd.ChildReference(ParsePath("customer"))
	require.NotNil(t, customer)
	assert.Equal(t, "1.1.0", customer.ReferencedMetadata().VersionValue())
	assert.Equal(t, "customer.*._id = customerId", customer.AbsQuery().String())
	assert.Equal(t, "order@1.0.0\n  customer -> customer@1.1.0\n", cmd.TreeString())
}

func writeModelFile(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "entity.yml"), []byte(body), 0o644))
	return dir
}

func TestModelLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		kind error
	}{
		{"bad version number", "e:\n  defaultVersion: \"1\"\n  versions:\n    - version: {value: \"1\"}\n", ErrInvalidVersionNumber},
		{"duplicate version", "e:\n  defaultVersion: 1.0.0\n  versions:\n    - version: {value: 1.0.0}\n    - version: {value: 1.0.0}\n", ErrInvalidVersion},
		{"missing default", "e:\n  defaultVersion: 2.0.0\n  versions:\n    - version: {value: 1.0.0}\n", ErrInvalidDefaultVersion},
		{"unknown type", "e:\n  defaultVersion: 1.0.0\n  versions:\n    - version: {value: 1.0.0}\n      fields:\n        a: {type: blob}\n", ErrUnknownType},
		{"container element", "e:\n  defaultVersion: 1.0.0\n  versions:\n    - version: {value: 1.0.0}\n      fields:\n        a: {type: array, items: {type: reference}}\n", ErrUnknownType},
		{"unknown reference", "e:\n  defaultVersion: 1.0.0\n  versions:\n    - version: {value: 1.0.0}\n      fields:\n        a: {type: reference, entity: f}\n", ErrUnknownEntity},
		{"unknown enum", "e:\n  defaultVersion: 1.0.0\n  versions:\n    - version: {value: 1.0.0}\n      fields:\n        a: {type: string, constraints: {enum: colors}}\n", ErrIllFormedMetadata},
		{"bad query", "e:\n  defaultVersion: 1.0.0\n  versions:\n    - version: {value: 1.0.0}\n      fields:\n        a: {type: reference, entity: e, query: {field: x}}\n", ErrInvalidQuery},
		{"bad status", "e:\n  defaultVersion: 1.0.0\n  versions:\n    - version: {value: 1.0.0}\n      status: retired\n", ErrIllFormedMetadata},
		{"not yaml", "e: [\n", ErrIllFormedMetadata},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewModel(writeModelFile(t, tt.body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
		})
	}
}

func TestModelDuplicateEntity(t *testing.T) {
	dir := t.TempDir()
	body := []byte("e:\n  defaultVersion: 1.0.0\n  versions:\n    - version: {value: 1.0.0}\n")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.yml"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.yaml"), body, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644))
	_, err := NewModel(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate entity name: e")
}

func TestModelLoadBytesBreadcrumbs(t *testing.T) {
	m := &Model{entities: map[string]*modelEntity{}, types: registry}
	err := m.LoadBytes([]byte("e:\n  defaultVersion: 1.0.0\n  versions:\n    - version: {value: 1.0.0}\n      fields:\n        o:\n          type: object\n          fields:\n            a: {type: blob}\n"))
	require.Error(t, err)
	var me *Error
	require.True(t, errors.As(err, &me))
	assert.Equal(t, []string{"e", "1.0.0", "o", "a"}, me.Context)
}
