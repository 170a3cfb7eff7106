package meta

// SortKey is one field of a sort order or an index.
type SortKey struct {
	Field      Path
	Descending bool
}

func (k SortKey) String() string {
	if k.Descending {
		return k.Field.String() + " desc"
	}
	return k.Field.String() + " asc"
}

// Sort is an ordered list of sort keys.
type Sort []SortKey

// Index describes one index on an entity's documents.
type Index struct {
	Name   string
	Unique bool
	Fields []SortKey
}

type EnumValue struct {
	Name        string `yaml:"name" json:"name"`
	Description string `yaml:"description" json:"description,omitempty"`
}

// Enum is a named set of allowed values.
type Enum struct {
	Name   string      `yaml:"name" json:"name"`
	Values []EnumValue `yaml:"values" json:"values"`
}

// ValueNames returns just the value names.
func (e Enum) ValueNames() []string {
	out := make([]string, len(e.Values))
	for i, v := range e.Values {
		out[i] = v.Name
	}
	return out
}

// DataStore names the backend holding the entity's documents.
type DataStore struct {
	Backend    string            `yaml:"backend" json:"backend"`
	Properties map[string]string `yaml:"properties" json:"properties,omitempty"`
}

// EntityInfo is the version independent half of an entity's metadata.
type EntityInfo struct {
	Name           string
	DefaultVersion string
	Indexes        []Index
	Enums          map[string]Enum
	DataStore      DataStore
}

func NewEntityInfo(name string) *EntityInfo {
	return &EntityInfo{Name: name, Enums: map[string]Enum{}}
}

// Enum returns the named enum, if declared.
func (i *EntityInfo) Enum(name string) (Enum, bool) {
	e, ok := i.Enums[name]
	return e, ok
}
