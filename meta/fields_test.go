package meta

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldsOrderAndLookup(t *testing.T) {
	root := NewRootNode()
	fs := root.Fields()
	require.NoError(t, fs.AddNew(NewSimpleField("z", registry.String)))
	require.NoError(t, fs.AddNew(NewSimpleField("a", registry.Integer)))
	require.NoError(t, fs.AddNew(NewObjectField("m")))

	assert.Equal(t, []string{"z", "a", "m"}, fs.Names())
	assert.Equal(t, 3, fs.Len())
	assert.True(t, fs.Has("a"))
	assert.False(t, fs.Has("b"))
	assert.Nil(t, fs.Get("b"))
	assert.Same(t, root, fs.Get("a").Parent())
	assert.Same(t, root, fs.Owner())

	err := fs.AddNew(NewSimpleField("a", registry.String))
	assert.True(t, errors.Is(err, ErrDuplicateField))
	assert.Equal(t, "integer", fs.Get("a").Type().Name())
}

func TestFieldsPutReplacesInPlace(t *testing.T) {
	o := NewObjectField("o")
	addFields(o.Fields(), NewSimpleField("a", registry.String), NewSimpleField("b", registry.String))

	repl := NewSimpleField("a", registry.Double)
	o.Fields().Put(repl)
	assert.Equal(t, []string{"a", "b"}, o.Fields().Names())
	assert.Same(t, repl, o.Fields().Get("a"))
	assert.Same(t, o, repl.Parent())
	assert.Equal(t, "o.a", repl.FullPath().String())

	o.Fields().Put(NewSimpleField("c", registry.String))
	assert.Equal(t, []string{"a", "b", "c"}, o.Fields().Names())
}

func TestFieldsCopyIsDetached(t *testing.T) {
	o := NewObjectField("o")
	addFields(o.Fields(), NewSimpleField("a", registry.String))
	list := o.Fields().Fields()
	list[0] = nil
	assert.NotNil(t, o.Fields().Get("a"))
	assert.Len(t, o.Children(), 1)
}

func TestFieldMetadata(t *testing.T) {
	f := NewSimpleField("email", registry.Email)
	f.SetDescription("contact address")
	f.AddConstraint("required", true)
	f.Access().Find = []string{"anyone"}
	f.Properties()["x-index"] = "yes"

	assert.Equal(t, "contact address", f.Description())
	c, ok := f.Constraint("required")
	require.True(t, ok)
	assert.Equal(t, true, c.Value)
	_, ok = f.Constraint("minLength")
	assert.False(t, ok)
	assert.Equal(t, []string{"anyone"}, f.Access().Find)
	assert.Equal(t, "yes", f.Properties()["x-index"])
	assert.False(t, f.HasChildren())
}

func TestArrayElementParent(t *testing.T) {
	el := NewSimpleArrayElement(registry.String)
	arr := NewArrayField("tags", el)
	assert.Same(t, arr, el.Parent())
	assert.Equal(t, Any, el.Name())
	assert.Equal(t, "tags.*", el.FullPath().String())
	assert.True(t, arr.HasChildren())
	assert.Len(t, arr.Children(), 1)

	empty := NewArrayField("empty", nil)
	assert.False(t, empty.HasChildren())
	_, err := empty.Resolve(ParsePath("empty.*"), 1)
	assert.True(t, errors.Is(err, ErrIllFormedMetadata))
}
