package meta

// CompositeSchema is a copy of an entity schema whose field tree is built
// afresh by the composite builder. Everything except the field tree is
// copied from the source; nothing mutable is shared with it.
type CompositeSchema struct {
	*EntitySchema
	source *EntitySchema
}

// newCompositeSchema copies src with an empty field tree hanging off root.
func newCompositeSchema(src *EntitySchema, root fieldContainer) *CompositeSchema {
	s := &EntitySchema{
		Name:            src.Name,
		Version:         Version{Value: src.Version.Value, Extends: append([]string(nil), src.Version.Extends...), Changelog: src.Version.Changelog},
		Status:          src.Status,
		StatusChangeLog: append([]StatusChange(nil), src.StatusChangeLog...),
		Access: EntityAccess{
			Find:   append([]string(nil), src.Access.Find...),
			Update: append([]string(nil), src.Access.Update...),
			Insert: append([]string(nil), src.Access.Insert...),
			Delete: append([]string(nil), src.Access.Delete...),
		},
		Constraints: append([]EntityConstraint(nil), src.Constraints...),
		Properties:  make(map[string]any, len(src.Properties)),
		root:        root,
	}
	for k, v := range src.Properties {
		s.Properties[k] = v
	}
	return &CompositeSchema{EntitySchema: s, source: src}
}

// Source returns the schema this one was copied from.
func (s *CompositeSchema) Source() *EntitySchema { return s.source }
