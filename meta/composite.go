package meta

import (
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"
)

// ResolvedReferenceField is a reference that was expanded while building a
// composite metadata tree. It is an array field whose element is the root of
// the referenced entity's composite field tree.
type ResolvedReferenceField struct {
	fieldBase
	reference *ReferenceField
	original  *EntityMetadata
	metadata  *CompositeMetadata
	element   *ObjectArrayElement
	absQuery  QueryExpression
}

func newResolvedReferenceField(ref *ReferenceField, original *EntityMetadata, md *CompositeMetadata, el *ObjectArrayElement) *ResolvedReferenceField {
	f := &ResolvedReferenceField{
		fieldBase: newFieldBase(ref.Name(), registry.Array),
		reference: ref,
		original:  original,
		metadata:  md,
		element:   el,
	}
	f.copyFrom(&ref.fieldBase)
	f.typ = registry.Array
	el.setParent(f)
	return f
}

func (f *ResolvedReferenceField) Reference() *ReferenceField             { return f.reference }
func (f *ResolvedReferenceField) OriginalMetadata() *EntityMetadata      { return f.original }
func (f *ResolvedReferenceField) ReferencedMetadata() *CompositeMetadata { return f.metadata }
func (f *ResolvedReferenceField) Element() ArrayElement                  { return f.element }
func (f *ResolvedReferenceField) Children() []FieldTreeNode              { return []FieldTreeNode{f.element} }
func (f *ResolvedReferenceField) HasChildren() bool                      { return true }

// AbsQuery returns the reference's association query with field names
// rewritten to absolute paths in the composite tree. It is nil when the
// reference has no query.
func (f *ResolvedReferenceField) AbsQuery() QueryExpression { return f.absQuery }

func (f *ResolvedReferenceField) Resolve(p Path, level int) (FieldTreeNode, error) {
	if n, ok, err := resolveStep(f, p, level); ok {
		return n, err
	}
	return resolveElement(f.element, p, level)
}

// isEntityBoundary reports whether n is the root of an injected entity.
func isEntityBoundary(n FieldTreeNode) bool {
	el, ok := n.(*ObjectArrayElement)
	if !ok {
		return false
	}
	_, ok = el.Parent().(*ResolvedReferenceField)
	return ok
}

// EntityRelativeFieldName names n relative to the entity containing it: the
// walk up stops at the schema root or at the element of a resolved
// reference.
func EntityRelativeFieldName(n FieldTreeNode) Path {
	var segs []string
	for x := n; x != nil; x = x.Parent() {
		if _, ok := x.(*RootNode); ok || isEntityBoundary(x) {
			break
		}
		segs = append(segs, x.Name())
	}
	for i, j := 0, len(segs)-1; i < j; i, j = i+1, j-1 {
		segs[i], segs[j] = segs[j], segs[i]
	}
	return NewPath(segs...)
}

// CompositeMetadata is an entity's metadata with the referenced entities
// required by a request grafted in at their reference fields. Each node
// owns the resolved references directly under its own entity.
type CompositeMetadata struct {
	*EntityMetadata
	schema     *CompositeSchema
	entityPath Path
	parent     *CompositeMetadata
	children   map[string]*ResolvedReferenceField
}

// EntityPath is the absolute path of the reference this entity was injected
// at; empty for the root entity.
func (c *CompositeMetadata) EntityPath() Path           { return c.entityPath }
func (c *CompositeMetadata) Parent() *CompositeMetadata { return c.parent }
func (c *CompositeMetadata) Schema() *CompositeSchema   { return c.schema }
func (c *CompositeMetadata) IsRoot() bool               { return c.parent == nil }

// ChildReference returns the resolved reference at the absolute path p, or
// nil if nothing was expanded there. Array indexes in p match any element.
func (c *CompositeMetadata) ChildReference(p Path) *ResolvedReferenceField {
	return c.children[p.Mask().String()]
}

// ChildMetadata returns the composite metadata injected at the absolute path
// p, or nil.
func (c *CompositeMetadata) ChildMetadata(p Path) *CompositeMetadata {
	if r := c.ChildReference(p); r != nil {
		return r.metadata
	}
	return nil
}

// ChildPaths lists the injection paths of the direct children, sorted.
func (c *CompositeMetadata) ChildPaths() []Path {
	keys := make([]string, 0, len(c.children))
	for k := range c.children {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]Path, len(keys))
	for i, k := range keys {
		out[i] = c.children[k].FullPath()
	}
	return out
}

// Children returns the direct child composites in ChildPaths order.
func (c *CompositeMetadata) Children() []*CompositeMetadata {
	paths := c.ChildPaths()
	out := make([]*CompositeMetadata, len(paths))
	for i, p := range paths {
		out[i] = c.ChildMetadata(p)
	}
	return out
}

// Walk visits c and every descendant composite in pre-order.
func (c *CompositeMetadata) Walk(fn func(*CompositeMetadata) error) error {
	if err := fn(c); err != nil {
		return err
	}
	for _, child := range c.Children() {
		if err := child.Walk(fn); err != nil {
			return err
		}
	}
	return nil
}

// EntityRelativeFieldName names n relative to the entity containing it.
func (c *CompositeMetadata) EntityRelativeFieldName(n FieldTreeNode) Path {
	return EntityRelativeFieldName(n)
}

// EntityRelativeFieldNameOf resolves p in this composite and names the
// result relative to its containing entity.
func (c *CompositeMetadata) EntityRelativeFieldNameOf(p Path) (Path, error) {
	n, err := c.Resolve(p)
	if err != nil {
		return EmptyPath, err
	}
	return EntityRelativeFieldName(n), nil
}

// EntityOf returns the composite node whose entity contains n. n must belong
// to the tree of c or one of its descendants.
func (c *CompositeMetadata) EntityOf(n FieldTreeNode) *CompositeMetadata {
	for x := n; x != nil; x = x.Parent() {
		if isEntityBoundary(x) {
			return x.Parent().(*ResolvedReferenceField).metadata
		}
	}
	root := c
	for root.parent != nil {
		root = root.parent
	}
	return root
}

// TreeString renders one line per composite node, indented by depth.
func (c *CompositeMetadata) TreeString() string {
	var b strings.Builder
	c.writeTree(&b, 0)
	return b.String()
}

func (c *CompositeMetadata) writeTree(b *strings.Builder, depth int) {
	indent := strings.Repeat("  ", depth)
	if c.entityPath.IsEmpty() {
		fmt.Fprintf(b, "%s%s@%s\n", indent, c.Name(), c.VersionValue())
	} else {
		fmt.Fprintf(b, "%s%s -> %s@%s\n", indent, c.entityPath, c.Name(), c.VersionValue())
	}
	for _, child := range c.Children() {
		child.writeTree(b, depth+1)
	}
}

// BuildOption configures BuildCompositeMetadata.
type BuildOption func(*builder)

// WithLogger logs expansion decisions to logger.
func WithLogger(logger *zap.Logger) BuildOption {
	return func(b *builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

type builder struct {
	gmd    GetMetadata
	logger *zap.Logger
	path   MutablePath
}

// BuildCompositeMetadata builds the composite metadata of root, asking gmd
// for every reference whether to expand it. After the tree is complete the
// association queries of all expanded references are rewritten to absolute
// field paths.
func BuildCompositeMetadata(root *EntityMetadata, gmd GetMetadata, opts ...BuildOption) (*CompositeMetadata, error) {
	b := &builder{gmd: gmd, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(b)
	}
	cmd, err := b.build(root, EmptyPath, nil, NewRootNode())
	if err != nil {
		return nil, err
	}
	if err := cmd.rewriteQueries(); err != nil {
		return nil, err
	}
	b.logger.Debug("built composite metadata",
		zap.String("entity", root.Name()), zap.Int("children", len(cmd.children)))
	return cmd, nil
}

func (b *builder) build(md *EntityMetadata, entityPath Path, parent *CompositeMetadata, root fieldContainer) (cmd *CompositeMetadata, err error) {
	defer func() { err = withContext(err, md.Name()) }()
	schema := newCompositeSchema(md.EntitySchema, root)
	cmd = &CompositeMetadata{
		EntityMetadata: NewEntityMetadata(md.EntityInfo, schema.EntitySchema),
		schema:         schema,
		entityPath:     entityPath,
		parent:         parent,
		children:       map[string]*ResolvedReferenceField{},
	}
	if err := b.copyFields(cmd, root.Fields(), md.Fields()); err != nil {
		return nil, err
	}
	return cmd, nil
}

func (b *builder) copyFields(cmd *CompositeMetadata, dest, src *Fields) error {
	for _, f := range src.Fields() {
		if err := b.copyField(cmd, dest, f); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) copyField(cmd *CompositeMetadata, dest *Fields, f Field) (err error) {
	defer b.path.Push(f.Name())()
	defer func() { err = withContext(err, f.Name()) }()

	switch x := f.(type) {
	case *SimpleField:
		nf := NewSimpleField(x.Name(), x.Type())
		nf.copyFrom(&x.fieldBase)
		dest.Put(nf)
	case *ObjectField:
		nf := NewObjectField(x.Name())
		nf.copyFrom(&x.fieldBase)
		dest.Put(nf)
		return b.copyFields(cmd, nf.fields, x.fields)
	case *ArrayField:
		nf := NewArrayField(x.Name(), nil)
		nf.copyFrom(&x.fieldBase)
		dest.Put(nf)
		switch el := x.element.(type) {
		case *ObjectArrayElement:
			ne := NewObjectArrayElement()
			copyProperties(ne.properties, el.properties)
			nf.SetElement(ne)
			defer b.path.Push(Any)()
			return b.copyFields(cmd, ne.fields, el.fields)
		case *SimpleArrayElement:
			ne := NewSimpleArrayElement(el.typ)
			ne.constraints = append([]FieldConstraint(nil), el.constraints...)
			copyProperties(ne.properties, el.properties)
			nf.SetElement(ne)
		}
	case *ReferenceField:
		rf, err := b.copyReference(cmd, x)
		if err != nil {
			return err
		}
		if rf != nil {
			dest.Put(rf)
		}
	case *ResolvedReferenceField:
		rf, err := b.copyReference(cmd, x.reference)
		if err != nil {
			return err
		}
		if rf != nil {
			dest.Put(rf)
		}
	default:
		return newError(ErrIllFormedMetadata, "unexpected field type %T", f)
	}
	return nil
}

// copyReference asks the resolver about ref. A nil result leaves the
// reference out of the composite tree entirely.
func (b *builder) copyReference(cmd *CompositeMetadata, ref *ReferenceField) (*ResolvedReferenceField, error) {
	fieldPath := b.path.Immutable()
	md, err := b.gmd.GetMetadata(fieldPath, ref.EntityName, ref.VersionValue)
	if err != nil {
		return nil, err
	}
	if md == nil {
		b.logger.Debug("reference not expanded",
			zap.Stringer("path", fieldPath), zap.String("entity", ref.EntityName))
		return nil, nil
	}
	b.logger.Debug("expanding reference",
		zap.Stringer("path", fieldPath), zap.String("entity", md.Name()), zap.String("version", md.VersionValue()))

	element := NewObjectArrayElement()
	child, err := func() (*CompositeMetadata, error) {
		defer b.path.Push(Any)()
		return b.build(md, fieldPath, cmd, element)
	}()
	if err != nil {
		return nil, err
	}
	rf := newResolvedReferenceField(ref, md, child, element)
	cmd.children[fieldPath.String()] = rf
	return rf, nil
}

// rewriteQueries rewrites the association query of every resolved reference
// below c, at any depth. Query fields are relative to the referenced entity
// and are resolved from the reference's element.
func (c *CompositeMetadata) rewriteQueries() error {
	for _, p := range c.ChildPaths() {
		rf := c.ChildReference(p)
		if q := rf.reference.Query; q != nil {
			abs, err := MapQueryFields(q, func(field Path) (Path, error) {
				n, err := rf.element.Resolve(field, 0)
				if err != nil {
					return EmptyPath, err
				}
				return n.FullPath(), nil
			})
			if err != nil {
				return withContext(err, p.String())
			}
			rf.absQuery = abs
		}
		if err := rf.metadata.rewriteQueries(); err != nil {
			return err
		}
	}
	return nil
}

func copyProperties(dst, src map[string]any) {
	for k, v := range src {
		dst[k] = v
	}
}
