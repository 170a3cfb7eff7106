package meta

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	a := entityA()
	tests := []struct {
		path     string
		fullPath string
		typ      string
	}{
		{"_id", "_id", "uid"},
		{"obj1", "obj1", "object"},
		{"obj1.x", "obj1.x", "string"},
		{"obj1.c", "obj1.c", "reference"},
		{"arr", "arr", "array"},
		{"arr.*", "arr.*", "object"},
		{"arr.3.y", "arr.*.y", "string"},
		{"arr.*.z.*", "arr.*.z.*", "integer"},
		{"obj1.$this.x", "obj1.x", "string"},
		{"obj1.x.$parent.c", "obj1.c", "reference"},
		{"arr.*.y.$parent.z", "arr.*.z", "array"},
		{"arr.*.$parent.obj1.x", "obj1.x", "string"},
		{"$this.name", "name", "string"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			n, err := a.Resolve(ParsePath(tt.path))
			require.NoError(t, err)
			assert.Equal(t, tt.fullPath, n.FullPath().String())
			assert.Equal(t, tt.typ, n.Type().Name())
		})
	}
}

func TestResolveRoundTrip(t *testing.T) {
	a := entityA()
	count := 0
	err := WalkFields(a.FieldTreeRoot(), func(p Path, n FieldTreeNode) error {
		count++
		assert.Equal(t, p.String(), n.FullPath().String())
		got, err := a.Resolve(n.FullPath())
		require.NoError(t, err)
		assert.Same(t, n, got)

		// $this is a no-op anywhere
		got, err = a.Resolve(n.FullPath().Append(This))
		require.NoError(t, err)
		assert.Same(t, n, got)

		if f, ok := n.(Field); ok {
			// name.$parent.name leads back to the field itself
			got, err = a.Resolve(n.FullPath().Append(Parent, f.Name()))
			require.NoError(t, err)
			assert.Same(t, n, got)
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 11, count)
}

func TestResolveErrors(t *testing.T) {
	a := entityA()
	tests := []struct {
		path    string
		kind    error
		context []string
	}{
		{"nope", ErrInvalidFieldReference, []string{"nope"}},
		{"obj1.nope", ErrInvalidFieldReference, []string{"obj1", "nope"}},
		{"obj1.x.y", ErrInvalidFieldReference, []string{"obj1", "x"}},
		{"arr.y", ErrInvalidArrayReference, []string{"arr"}},
		{"obj1.*", ErrInvalidArrayReference, []string{"obj1", "*"}},
		{"obj1.0", ErrInvalidArrayReference, []string{"obj1", "0"}},
		{"arr.*.z.*.q", ErrInvalidFieldReference, []string{"arr", "*", "z", "*"}},
		{"$parent", ErrInvalidFieldReference, nil},
		{"obj1.$parent.$parent", ErrInvalidFieldReference, []string{"obj1"}},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			_, err := a.Resolve(ParsePath(tt.path))
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.kind), "got %v", err)
			var me *Error
			require.True(t, errors.As(err, &me))
			assert.Equal(t, tt.context, me.Context)
		})
	}
}

func TestResolveSuggestsName(t *testing.T) {
	_, err := entityA().Resolve(ParsePath("nam"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `did you mean "name"?`)
	assert.Contains(t, err.Error(), "nam: invalid field reference")
}

func TestResolveExhaustedFields(t *testing.T) {
	_, err := entityA().Fields().Resolve(EmptyPath, 0)
	assert.True(t, errors.Is(err, ErrInvalidRedirection))
}

func TestWithContextWrapsForeignErrors(t *testing.T) {
	cause := errors.New("boom")
	err := withContext(cause, "a")
	assert.True(t, errors.Is(err, ErrIllFormedMetadata))
	assert.True(t, errors.Is(err, cause))
	assert.Equal(t, "a: ill-formed metadata: boom", err.Error())
	assert.NoError(t, withContext(nil, "a"))
}

func TestResolveParentChain(t *testing.T) {
	a := entityA()
	root := a.FieldTreeRoot()
	obj1, err := a.Resolve(ParsePath("obj1"))
	require.NoError(t, err)
	elem, err := a.Resolve(ParsePath("arr.*"))
	require.NoError(t, err)

	tests := []struct {
		path string
		want FieldTreeNode
	}{
		{"obj1.x.$parent", obj1},
		{"obj1.x.$parent.$parent", root},
		{"arr.*.y.$parent", elem},
		// the element and its array are left in one step
		{"arr.*.y.$parent.$parent", root},
		{"arr.0.z.$parent.$parent", root},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, err := a.Resolve(ParsePath(tt.path))
			require.NoError(t, err)
			assert.Same(t, tt.want, got)
		})
	}

	_, err = a.Resolve(ParsePath("arr.*.y.$parent.$parent.$parent"))
	assert.ErrorIs(t, err, ErrInvalidFieldReference)
}
