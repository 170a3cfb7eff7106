package meta

// FieldTreeNode is a node of an entity's field tree. The set of node types
// is closed: RootNode, SimpleField, ObjectField, ArrayField, ReferenceField,
// ResolvedReferenceField, SimpleArrayElement and ObjectArrayElement.
type FieldTreeNode interface {
	Name() string
	Type() Type
	Parent() FieldTreeNode
	Children() []FieldTreeNode
	HasChildren() bool
	FullPath() Path

	// Resolve interprets p from segment level onward relative to this node.
	Resolve(p Path, level int) (FieldTreeNode, error)

	setParent(FieldTreeNode)
}

// Field is a named schema field, as opposed to an array element or a root.
type Field interface {
	FieldTreeNode
	Description() string
	Access() *FieldAccess
	Constraints() []FieldConstraint
	Properties() map[string]any

	base() *fieldBase
}

// ArrayElement is the single child of an array field.
type ArrayElement interface {
	FieldTreeNode
	arrayElement()
}

// FieldAccess lists the roles allowed to read or write a field.
type FieldAccess struct {
	Find   []string `yaml:"find" json:"find,omitempty"`
	Update []string `yaml:"update" json:"update,omitempty"`
	Insert []string `yaml:"insert" json:"insert,omitempty"`
}

func (a FieldAccess) clone() FieldAccess {
	return FieldAccess{
		Find:   append([]string(nil), a.Find...),
		Update: append([]string(nil), a.Update...),
		Insert: append([]string(nil), a.Insert...),
	}
}

// FieldConstraint is a named field-level constraint such as minLength.
type FieldConstraint struct {
	Name  string `yaml:"name" json:"name"`
	Value any    `yaml:"value" json:"value"`
}

type fieldBase struct {
	name        string
	typ         Type
	parent      FieldTreeNode
	description string
	access      FieldAccess
	constraints []FieldConstraint
	properties  map[string]any
}

func newFieldBase(name string, t Type) fieldBase {
	return fieldBase{name: name, typ: t, properties: map[string]any{}}
}

func (f *fieldBase) Name() string                   { return f.name }
func (f *fieldBase) Type() Type                     { return f.typ }
func (f *fieldBase) Parent() FieldTreeNode          { return f.parent }
func (f *fieldBase) setParent(p FieldTreeNode)      { f.parent = p }
func (f *fieldBase) Description() string            { return f.description }
func (f *fieldBase) Access() *FieldAccess           { return &f.access }
func (f *fieldBase) Constraints() []FieldConstraint { return f.constraints }
func (f *fieldBase) Properties() map[string]any     { return f.properties }
func (f *fieldBase) base() *fieldBase               { return f }
func (f *fieldBase) FullPath() Path                 { return pathOf(f.parent).Append(f.name) }

func (f *fieldBase) SetDescription(d string) { f.description = d }

// AddConstraint appends a constraint to the field.
func (f *fieldBase) AddConstraint(name string, value any) {
	f.constraints = append(f.constraints, FieldConstraint{Name: name, Value: value})
}

// Constraint returns the named constraint, if present.
func (f *fieldBase) Constraint(name string) (FieldConstraint, bool) {
	for _, c := range f.constraints {
		if c.Name == name {
			return c, true
		}
	}
	return FieldConstraint{}, false
}

// copyFrom copies type, access, constraints and properties from src. Name
// and parent are left alone.
func (f *fieldBase) copyFrom(src *fieldBase) {
	f.typ = src.typ
	f.description = src.description
	f.access = src.access.clone()
	f.constraints = append([]FieldConstraint(nil), src.constraints...)
	f.properties = make(map[string]any, len(src.properties))
	for k, v := range src.properties {
		f.properties[k] = v
	}
}

// pathOf returns the absolute path of n; the root contributes no segment.
func pathOf(n FieldTreeNode) Path {
	var segs []string
	for x := n; x != nil; x = x.Parent() {
		if _, ok := x.(*RootNode); ok {
			break
		}
		segs = append(segs, x.Name())
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return NewPath(segs...)
}

// logicalParent is where Parent leads from n. From an array element it skips
// the element and its array, landing on the array's own parent.
func logicalParent(n FieldTreeNode) FieldTreeNode {
	switch n.(type) {
	case *SimpleArrayElement, *ObjectArrayElement:
		arr := n.Parent()
		if arr == nil {
			return nil
		}
		return arr.Parent()
	}
	return n.Parent()
}

// resolveStep consumes This and Parent at level, and ends resolution once
// the path is exhausted. ok is false when the segment is for self to handle.
func resolveStep(self FieldTreeNode, p Path, level int) (FieldTreeNode, bool, error) {
	if level >= p.Len() {
		return self, true, nil
	}
	switch p.Head(level) {
	case This:
		n, err := self.Resolve(p, level+1)
		return n, true, err
	case Parent:
		up := logicalParent(self)
		if up == nil {
			return nil, true, newError(ErrInvalidFieldReference, "%s: %s beyond root", p, Parent)
		}
		n, err := up.Resolve(p, level+1)
		return n, true, err
	}
	return nil, false, nil
}

// resolveLeaf resolves below a node with no children.
func resolveLeaf(self FieldTreeNode, p Path, level int) (FieldTreeNode, error) {
	if n, ok, err := resolveStep(self, p, level); ok {
		return n, err
	}
	return nil, newError(ErrInvalidFieldReference, "%s: %s has no field %q", p, self.Name(), p.Head(level))
}

// resolveElement resolves an index or wildcard segment into an array's element.
func resolveElement(el ArrayElement, p Path, level int) (n FieldTreeNode, err error) {
	seg := p.Head(level)
	if seg != Any && !p.IsIndex(level) {
		return nil, newError(ErrInvalidArrayReference, "%s: expected index or %s, got %q", p, Any, seg)
	}
	defer func() { err = withContext(err, seg) }()
	if el == nil {
		return nil, newError(ErrIllFormedMetadata, "%s: array has no element", p)
	}
	return el.Resolve(p, level+1)
}

// RootNode is the synthetic root of a schema's field tree.
type RootNode struct {
	fields *Fields
}

func NewRootNode() *RootNode {
	r := &RootNode{}
	r.fields = newFields(r)
	return r
}

func (r *RootNode) Name() string              { return "" }
func (r *RootNode) Type() Type                { return registry.Root }
func (r *RootNode) Parent() FieldTreeNode     { return nil }
func (r *RootNode) setParent(FieldTreeNode)   {}
func (r *RootNode) Children() []FieldTreeNode { return r.fields.nodes() }
func (r *RootNode) HasChildren() bool         { return r.fields.Len() > 0 }
func (r *RootNode) FullPath() Path            { return EmptyPath }
func (r *RootNode) Fields() *Fields           { return r.fields }

func (r *RootNode) Resolve(p Path, level int) (FieldTreeNode, error) {
	if n, ok, err := resolveStep(r, p, level); ok {
		return n, err
	}
	return r.fields.Resolve(p, level)
}

// SimpleField holds a scalar value.
type SimpleField struct {
	fieldBase
}

func NewSimpleField(name string, t Type) *SimpleField {
	return &SimpleField{fieldBase: newFieldBase(name, t)}
}

func (f *SimpleField) Children() []FieldTreeNode { return nil }
func (f *SimpleField) HasChildren() bool         { return false }

func (f *SimpleField) Resolve(p Path, level int) (FieldTreeNode, error) {
	return resolveLeaf(f, p, level)
}

// ObjectField holds nested fields.
type ObjectField struct {
	fieldBase
	fields *Fields
}

func NewObjectField(name string) *ObjectField {
	f := &ObjectField{fieldBase: newFieldBase(name, registry.Object)}
	f.fields = newFields(f)
	return f
}

func (f *ObjectField) Fields() *Fields           { return f.fields }
func (f *ObjectField) Children() []FieldTreeNode { return f.fields.nodes() }
func (f *ObjectField) HasChildren() bool         { return f.fields.Len() > 0 }

func (f *ObjectField) Resolve(p Path, level int) (FieldTreeNode, error) {
	if n, ok, err := resolveStep(f, p, level); ok {
		return n, err
	}
	return f.fields.Resolve(p, level)
}

// ArrayField holds a list of values described by a single element node.
type ArrayField struct {
	fieldBase
	element ArrayElement
}

func NewArrayField(name string, el ArrayElement) *ArrayField {
	f := &ArrayField{fieldBase: newFieldBase(name, registry.Array)}
	if el != nil {
		f.SetElement(el)
	}
	return f
}

func (f *ArrayField) Element() ArrayElement { return f.element }

func (f *ArrayField) SetElement(el ArrayElement) {
	f.element = el
	el.setParent(f)
}

func (f *ArrayField) Children() []FieldTreeNode {
	if f.element == nil {
		return nil
	}
	return []FieldTreeNode{f.element}
}

func (f *ArrayField) HasChildren() bool { return f.element != nil }

func (f *ArrayField) Resolve(p Path, level int) (FieldTreeNode, error) {
	if n, ok, err := resolveStep(f, p, level); ok {
		return n, err
	}
	return resolveElement(f.element, p, level)
}

// ReferenceField points to documents of another entity. The projection,
// query and sort describe which referenced documents are pulled in; they are
// not part of the tree structure.
type ReferenceField struct {
	fieldBase
	EntityName   string
	VersionValue string
	Projection   Projection
	Query        QueryExpression
	Sort         Sort
}

func NewReferenceField(name, entityName, version string) *ReferenceField {
	return &ReferenceField{
		fieldBase:    newFieldBase(name, registry.Reference),
		EntityName:   entityName,
		VersionValue: version,
	}
}

func (f *ReferenceField) Children() []FieldTreeNode { return nil }
func (f *ReferenceField) HasChildren() bool         { return false }

func (f *ReferenceField) Resolve(p Path, level int) (FieldTreeNode, error) {
	return resolveLeaf(f, p, level)
}

// SimpleArrayElement is the element of an array of scalars.
type SimpleArrayElement struct {
	typ         Type
	parent      FieldTreeNode
	constraints []FieldConstraint
	properties  map[string]any
}

func NewSimpleArrayElement(t Type) *SimpleArrayElement {
	return &SimpleArrayElement{typ: t, properties: map[string]any{}}
}

func (e *SimpleArrayElement) arrayElement()                  {}
func (e *SimpleArrayElement) Name() string                   { return Any }
func (e *SimpleArrayElement) Type() Type                     { return e.typ }
func (e *SimpleArrayElement) Parent() FieldTreeNode          { return e.parent }
func (e *SimpleArrayElement) setParent(p FieldTreeNode)      { e.parent = p }
func (e *SimpleArrayElement) Children() []FieldTreeNode      { return nil }
func (e *SimpleArrayElement) HasChildren() bool              { return false }
func (e *SimpleArrayElement) FullPath() Path                 { return pathOf(e) }
func (e *SimpleArrayElement) Constraints() []FieldConstraint { return e.constraints }
func (e *SimpleArrayElement) Properties() map[string]any     { return e.properties }

func (e *SimpleArrayElement) AddConstraint(name string, value any) {
	e.constraints = append(e.constraints, FieldConstraint{Name: name, Value: value})
}

func (e *SimpleArrayElement) Resolve(p Path, level int) (FieldTreeNode, error) {
	return resolveLeaf(e, p, level)
}

// ObjectArrayElement is the element of an array of objects.
type ObjectArrayElement struct {
	parent     FieldTreeNode
	fields     *Fields
	properties map[string]any
}

func NewObjectArrayElement() *ObjectArrayElement {
	e := &ObjectArrayElement{properties: map[string]any{}}
	e.fields = newFields(e)
	return e
}

func (e *ObjectArrayElement) arrayElement()              {}
func (e *ObjectArrayElement) Name() string               { return Any }
func (e *ObjectArrayElement) Type() Type                 { return registry.Object }
func (e *ObjectArrayElement) Parent() FieldTreeNode      { return e.parent }
func (e *ObjectArrayElement) setParent(p FieldTreeNode)  { e.parent = p }
func (e *ObjectArrayElement) Fields() *Fields            { return e.fields }
func (e *ObjectArrayElement) Children() []FieldTreeNode  { return e.fields.nodes() }
func (e *ObjectArrayElement) HasChildren() bool          { return e.fields.Len() > 0 }
func (e *ObjectArrayElement) FullPath() Path             { return pathOf(e) }
func (e *ObjectArrayElement) Properties() map[string]any { return e.properties }

func (e *ObjectArrayElement) Resolve(p Path, level int) (FieldTreeNode, error) {
	if n, ok, err := resolveStep(e, p, level); ok {
		return n, err
	}
	return e.fields.Resolve(p, level)
}
