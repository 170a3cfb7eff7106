package meta

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Model holds the metadata of every entity found under a directory of YAML
// files.
type Model struct {
	Path string

	entities map[string]*modelEntity
	types    *Types
	logger   *zap.Logger
}

type modelEntity struct {
	info     *EntityInfo
	versions map[string]*EntitySchema
}

// ModelOption configures NewModel.
type ModelOption func(*Model)

// WithModelLogger logs loading progress to logger.
func WithModelLogger(logger *zap.Logger) ModelOption {
	return func(m *Model) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithTypes resolves field type names against types instead of the default
// registry.
func WithTypes(types *Types) ModelOption {
	return func(m *Model) {
		if types != nil {
			m.types = types
		}
	}
}

// Each file is a map of entity name to entitySpec.
type entitySpec struct {
	DefaultVersion string       `yaml:"defaultVersion"`
	DataStore      DataStore    `yaml:"datastore"`
	Indexes        []indexSpec  `yaml:"indexes"`
	Enums          []Enum       `yaml:"enums"`
	Versions       []schemaSpec `yaml:"versions"`
}

type indexSpec struct {
	Name   string `yaml:"name"`
	Unique bool   `yaml:"unique"`
	Fields any    `yaml:"fields"`
}

type statusChangeSpec struct {
	Date    string `yaml:"date"`
	Status  string `yaml:"status"`
	Comment string `yaml:"comment"`
}

type schemaSpec struct {
	Version         Version            `yaml:"version"`
	Status          string             `yaml:"status"`
	StatusChangeLog []statusChangeSpec `yaml:"statusChangeLog"`
	Access          EntityAccess       `yaml:"access"`
	Constraints     []EntityConstraint `yaml:"constraints"`
	Properties      map[string]any     `yaml:"properties"`
	Fields          yaml.Node          `yaml:"fields"`
}

type fieldSpec struct {
	Type         string         `yaml:"type"`
	Description  string         `yaml:"description"`
	Access       FieldAccess    `yaml:"access"`
	Constraints  map[string]any `yaml:"constraints"`
	Properties   map[string]any `yaml:"properties"`
	Fields       yaml.Node      `yaml:"fields"`
	Items        *fieldSpec     `yaml:"items"`
	Entity       string         `yaml:"entity"`
	VersionValue string         `yaml:"versionValue"`
	Projection   any            `yaml:"projection"`
	Query        any            `yaml:"query"`
	Sort         any            `yaml:"sort"`
}

func NewModel(path string, opts ...ModelOption) (*Model, error) {
	m := &Model{
		Path:     path,
		entities: map[string]*modelEntity{},
		types:    registry,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	if err := m.loadAll(); err != nil {
		return nil, err
	}
	if err := m.checkReferences(); err != nil {
		return nil, err
	}
	m.logger.Info("loaded metadata model", zap.String("path", path), zap.Int("entities", len(m.entities)))
	return m, nil
}

func (m *Model) loadAll() error {
	walk := func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !strings.HasSuffix(d.Name(), ".yml") && !strings.HasSuffix(d.Name(), ".yaml") {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		if err := m.LoadBytes(raw); err != nil {
			return withContext(err, d.Name())
		}
		m.logger.Debug("loaded metadata file", zap.String("file", path))
		return nil
	}
	return filepath.WalkDir(m.Path, walk)
}

// LoadBytes adds the entities defined by one YAML document to the model.
func (m *Model) LoadBytes(raw []byte) error {
	defs := map[string]entitySpec{}
	if err := yaml.Unmarshal(raw, &defs); err != nil {
		return newError(ErrIllFormedMetadata, "%v", err)
	}
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if _, ok := m.entities[name]; ok {
			return newError(ErrIllFormedMetadata, "duplicate entity name: %s", name)
		}
		e, err := m.newEntity(name, defs[name])
		if err != nil {
			return withContext(err, name)
		}
		m.entities[name] = e
	}
	return nil
}

func (m *Model) newEntity(name string, spec entitySpec) (*modelEntity, error) {
	info := NewEntityInfo(name)
	info.DefaultVersion = spec.DefaultVersion
	info.DataStore = spec.DataStore
	for _, e := range spec.Enums {
		info.Enums[e.Name] = e
	}
	for _, is := range spec.Indexes {
		keys, err := parseSortValue(is.Fields)
		if err != nil {
			return nil, withContext(err, "index "+is.Name)
		}
		info.Indexes = append(info.Indexes, Index{Name: is.Name, Unique: is.Unique, Fields: keys})
	}

	e := &modelEntity{info: info, versions: map[string]*EntitySchema{}}
	for _, vs := range spec.Versions {
		if err := ValidateVersionValue(vs.Version.Value); err != nil {
			return nil, err
		}
		if _, ok := e.versions[vs.Version.Value]; ok {
			return nil, newError(ErrInvalidVersion, "duplicate version %s", vs.Version.Value)
		}
		s, err := m.newSchema(info, vs)
		if err != nil {
			return nil, withContext(err, vs.Version.Value)
		}
		e.versions[vs.Version.Value] = s
	}
	if _, ok := e.versions[info.DefaultVersion]; !ok {
		return nil, newError(ErrInvalidDefaultVersion, "%q is not a declared version", info.DefaultVersion)
	}
	return e, nil
}

func (m *Model) newSchema(info *EntityInfo, spec schemaSpec) (*EntitySchema, error) {
	s := NewEntitySchema(info.Name, spec.Version)
	status, err := ParseMetadataStatus(spec.Status)
	if err != nil {
		return nil, newError(ErrIllFormedMetadata, "%v", err)
	}
	s.Status = status
	for _, sc := range spec.StatusChangeLog {
		st, err := ParseMetadataStatus(sc.Status)
		if err != nil {
			return nil, newError(ErrIllFormedMetadata, "%v", err)
		}
		s.StatusChangeLog = append(s.StatusChangeLog, StatusChange{Date: sc.Date, Status: st, Comment: sc.Comment})
	}
	s.Access = spec.Access
	s.Constraints = spec.Constraints
	for k, v := range spec.Properties {
		s.Properties[k] = v
	}
	if err := m.loadFields(info, s.Fields(), &spec.Fields); err != nil {
		return nil, err
	}
	return s, nil
}

// loadFields adds the fields of a YAML mapping node in document order.
func (m *Model) loadFields(info *EntityInfo, dest *Fields, node *yaml.Node) error {
	if node.Kind == 0 || node.Tag == "!!null" {
		return nil
	}
	if node.Kind != yaml.MappingNode {
		return newError(ErrIllFormedMetadata, "fields must be a mapping (line %d)", node.Line)
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		var spec fieldSpec
		if err := node.Content[i+1].Decode(&spec); err != nil {
			return withContext(newError(ErrIllFormedMetadata, "%v", err), name)
		}
		f, err := m.newField(info, name, &spec)
		if err != nil {
			return withContext(err, name)
		}
		if err := dest.AddNew(f); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) newField(info *EntityInfo, name string, spec *fieldSpec) (Field, error) {
	var f Field
	switch spec.Type {
	case "object":
		of := NewObjectField(name)
		if err := m.loadFields(info, of.Fields(), &spec.Fields); err != nil {
			return nil, err
		}
		f = of
	case "array":
		if spec.Items == nil {
			return nil, newError(ErrIllFormedMetadata, "array without items")
		}
		el, err := m.newElement(info, spec.Items)
		if err != nil {
			return nil, withContext(err, Any)
		}
		f = NewArrayField(name, el)
	case "reference":
		rf, err := newReference(name, spec)
		if err != nil {
			return nil, err
		}
		f = rf
	default:
		t := m.types.Get(spec.Type)
		if t == nil || t.Container() {
			return nil, newError(ErrUnknownType, "%q", spec.Type)
		}
		f = NewSimpleField(name, t)
	}

	b := f.base()
	b.SetDescription(spec.Description)
	b.access = spec.Access.clone()
	for k, v := range spec.Properties {
		b.properties[k] = v
	}
	constraints, err := m.constraints(info, spec.Constraints)
	if err != nil {
		return nil, err
	}
	b.constraints = constraints
	return f, nil
}

func (m *Model) newElement(info *EntityInfo, spec *fieldSpec) (ArrayElement, error) {
	if spec.Type == "object" {
		el := NewObjectArrayElement()
		if err := m.loadFields(info, el.Fields(), &spec.Fields); err != nil {
			return nil, err
		}
		return el, nil
	}
	t := m.types.Get(spec.Type)
	if t == nil || t.Container() {
		return nil, newError(ErrUnknownType, "%q is not a valid element type", spec.Type)
	}
	el := NewSimpleArrayElement(t)
	constraints, err := m.constraints(info, spec.Constraints)
	if err != nil {
		return nil, err
	}
	el.constraints = constraints
	return el, nil
}

func newReference(name string, spec *fieldSpec) (*ReferenceField, error) {
	if spec.Entity == "" {
		return nil, newError(ErrIllFormedMetadata, "reference without entity")
	}
	rf := NewReferenceField(name, spec.Entity, spec.VersionValue)
	if spec.Projection != nil {
		p, err := parseProjectionValue(spec.Projection)
		if err != nil {
			return nil, err
		}
		rf.Projection = p
	}
	if spec.Query != nil {
		q, err := parseQueryValue(spec.Query)
		if err != nil {
			return nil, err
		}
		rf.Query = q
	}
	s, err := parseSortValue(spec.Sort)
	if err != nil {
		return nil, err
	}
	rf.Sort = s
	return rf, nil
}

// constraints converts a constraint mapping, sorted by name. An enum
// constraint names one of the entity's enums or lists the values inline.
func (m *Model) constraints(info *EntityInfo, raw map[string]any) ([]FieldConstraint, error) {
	names := make([]string, 0, len(raw))
	for k := range raw {
		names = append(names, k)
	}
	sort.Strings(names)
	var out []FieldConstraint
	for _, name := range names {
		v := raw[name]
		if name == "enum" {
			values, err := enumValues(info, v)
			if err != nil {
				return nil, err
			}
			v = values
		}
		out = append(out, FieldConstraint{Name: name, Value: v})
	}
	return out, nil
}

func enumValues(info *EntityInfo, v any) ([]string, error) {
	switch x := v.(type) {
	case string:
		e, ok := info.Enum(x)
		if !ok {
			return nil, newError(ErrIllFormedMetadata, "unknown enum %q", x)
		}
		return e.ValueNames(), nil
	case []any:
		out := make([]string, len(x))
		for i, item := range x {
			out[i] = fmt.Sprint(item)
		}
		return out, nil
	}
	return nil, newError(ErrIllFormedMetadata, "bad enum constraint %v", v)
}

// checkReferences verifies that every reference names a loaded entity and,
// when pinned, one of its versions.
func (m *Model) checkReferences() error {
	for _, name := range m.Entities() {
		e := m.entities[name]
		for _, s := range e.versions {
			err := WalkFields(s.FieldTreeRoot(), func(p Path, n FieldTreeNode) error {
				rf, ok := n.(*ReferenceField)
				if !ok {
					return nil
				}
				target, ok := m.entities[rf.EntityName]
				if !ok {
					return newError(ErrUnknownEntity, "%s: %s", p, rf.EntityName)
				}
				if rf.VersionValue != "" {
					if _, ok := target.versions[rf.VersionValue]; !ok {
						return newError(ErrInvalidVersion, "%s: %s@%s", p, rf.EntityName, rf.VersionValue)
					}
				}
				return nil
			})
			if err != nil {
				return withContext(err, name+"@"+s.Version.Value)
			}
		}
	}
	return nil
}

// Get returns the metadata of entity at version, or at its default version
// when version is empty.
func (m *Model) Get(entity, version string) (*EntityMetadata, error) {
	e, ok := m.entities[entity]
	if !ok {
		if s := suggest(entity, m.Entities()); s != "" {
			return nil, newError(ErrUnknownEntity, "%s (did you mean %q?)", entity, s)
		}
		return nil, newError(ErrUnknownEntity, "%s", entity)
	}
	if version == "" {
		version = e.info.DefaultVersion
	}
	s, ok := e.versions[version]
	if !ok {
		return nil, newError(ErrInvalidVersion, "%s@%s", entity, version)
	}
	return NewEntityMetadata(e.info, s), nil
}

// Entities lists the entity names, sorted.
func (m *Model) Entities() []string {
	out := make([]string, 0, len(m.entities))
	for name := range m.entities {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Versions lists the declared versions of entity, sorted.
func (m *Model) Versions(entity string) []string {
	e, ok := m.entities[entity]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(e.versions))
	for v := range e.versions {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Info returns the version independent metadata of entity.
func (m *Model) Info(entity string) (*EntityInfo, bool) {
	e, ok := m.entities[entity]
	if !ok {
		return nil, false
	}
	return e.info, true
}

// GetMetadataFor returns a resolver that expands the references needed by
// projection and query, loading referenced entities from the model. Either
// may be nil.
func (m *Model) GetMetadataFor(projection Projection, query QueryExpression) *ProjectionGetMetadata {
	retrieve := func(_ Path, entity, version string) (*EntityMetadata, error) {
		return m.Get(entity, version)
	}
	return NewProjectionGetMetadata(retrieve, m.logger).AddProjection(projection).AddQuery(query)
}
