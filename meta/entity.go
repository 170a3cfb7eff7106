package meta

// EntityMetadata pairs an entity's info with one of its schema versions.
type EntityMetadata struct {
	*EntityInfo
	*EntitySchema
}

func NewEntityMetadata(info *EntityInfo, schema *EntitySchema) *EntityMetadata {
	return &EntityMetadata{EntityInfo: info, EntitySchema: schema}
}

// Name resolves the ambiguity between the embedded halves; both carry the
// entity name.
func (m *EntityMetadata) Name() string { return m.EntitySchema.Name }

func (m *EntityMetadata) VersionValue() string { return m.EntitySchema.Version.Value }
