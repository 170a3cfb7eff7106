package meta

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func addFields(fields *Fields, fs ...Field) {
	for _, f := range fs {
		if err := fields.AddNew(f); err != nil {
			panic(err)
		}
	}
}

func objectField(name string, fs ...Field) *ObjectField {
	o := NewObjectField(name)
	addFields(o.Fields(), fs...)
	return o
}

func objectArray(name string, fs ...Field) *ArrayField {
	el := NewObjectArrayElement()
	addFields(el.Fields(), fs...)
	return NewArrayField(name, el)
}

func idField() *SimpleField {
	f := NewSimpleField("_id", registry.UID)
	f.AddConstraint("identity", true)
	return f
}

func testEntity(name string, fs ...Field) *EntityMetadata {
	info := NewEntityInfo(name)
	info.DefaultVersion = "1.0.0"
	s := NewEntitySchema(name, Version{Value: "1.0.0"})
	addFields(s.Fields(), fs...)
	return NewEntityMetadata(info, s)
}

// entityA: b references B, obj1.c references C with an association query.
func entityA() *EntityMetadata {
	c := NewReferenceField("c", "C", "1.0.0")
	c.Query = &NaryLogical{Op: "$and", Queries: []QueryExpression{
		&ValueComparison{Field: ParsePath("field1"), Op: "=", RValue: "abc"},
		&FieldComparison{Field: ParsePath("ref"), Op: "=", RField: ParsePath("$parent.x")},
	}}
	return testEntity("A",
		idField(),
		NewSimpleField("name", registry.String),
		NewReferenceField("b", "B", "1.0.0"),
		objectField("obj1",
			NewSimpleField("x", registry.String),
			c,
		),
		objectArray("arr",
			NewSimpleField("y", registry.String),
			NewArrayField("z", NewSimpleArrayElement(registry.Integer)),
		),
	)
}

func entityB() *EntityMetadata {
	return testEntity("B",
		idField(),
		NewSimpleField("field1", registry.String),
		NewSimpleField("field2", registry.Integer),
	)
}

func entityC() *EntityMetadata {
	return testEntity("C",
		idField(),
		NewSimpleField("field1", registry.String),
		NewSimpleField("ref", registry.String),
	)
}

// entityR references itself through r.
func entityR() *EntityMetadata {
	return testEntity("R",
		idField(),
		NewSimpleField("b", registry.String),
		NewReferenceField("r", "R", ""),
	)
}

type testCatalog map[string]*EntityMetadata

func newTestCatalog() testCatalog {
	return testCatalog{"A": entityA(), "B": entityB(), "C": entityC(), "R": entityR()}
}

func (c testCatalog) retrieve(_ Path, entity, _ string) (*EntityMetadata, error) {
	md, ok := c[entity]
	if !ok {
		return nil, newError(ErrUnknownEntity, "%s", entity)
	}
	return md, nil
}

func mustProjection(t *testing.T, s string) Projection {
	t.Helper()
	p, err := ParseProjection([]byte(s))
	require.NoError(t, err)
	return p
}

func mustQuery(t *testing.T, s string) QueryExpression {
	t.Helper()
	q, err := ParseQuery([]byte(s))
	require.NoError(t, err)
	return q
}

// buildFor builds the composite metadata of entity for one projection and
// query, either of which may be empty.
func buildFor(t *testing.T, c testCatalog, entity, projection, query string) *CompositeMetadata {
	t.Helper()
	gmd := NewProjectionGetMetadata(c.retrieve, nil)
	if projection != "" {
		gmd.AddProjection(mustProjection(t, projection))
	}
	if query != "" {
		gmd.AddQuery(mustQuery(t, query))
	}
	cmd, err := BuildCompositeMetadata(c[entity], gmd)
	require.NoError(t, err)
	return cmd
}
