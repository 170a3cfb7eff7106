package meta

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// MetadataStatus is the lifecycle status of one schema version.
type MetadataStatus int

const (
	StatusActive MetadataStatus = iota
	StatusDeprecated
	StatusDisabled
)

func (s MetadataStatus) String() string {
	switch s {
	case StatusActive:
		return "active"
	case StatusDeprecated:
		return "deprecated"
	case StatusDisabled:
		return "disabled"
	default:
		return "unknown"
	}
}

// ParseMetadataStatus converts a status name, case-insensitively. The empty
// string is active.
func ParseMetadataStatus(s string) (MetadataStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "active":
		return StatusActive, nil
	case "deprecated":
		return StatusDeprecated, nil
	case "disabled":
		return StatusDisabled, nil
	default:
		return 0, fmt.Errorf("unknown metadata status: %s", s)
	}
}

// StatusChange records one status transition.
type StatusChange struct {
	Date    string         `yaml:"date" json:"date"`
	Status  MetadataStatus `yaml:"-" json:"-"`
	Comment string         `yaml:"comment" json:"comment"`
}

// Version identifies one schema version of an entity.
type Version struct {
	Value     string   `yaml:"value" json:"value"`
	Extends   []string `yaml:"extendsVersions" json:"extendsVersions,omitempty"`
	Changelog string   `yaml:"changelog" json:"changelog,omitempty"`
}

var versionRe = regexp.MustCompile(`^\d+\.\d+\.\d+(-[0-9A-Za-z.-]+)?$`)

// ValidateVersionValue checks the major.minor.patch[-qualifier] form.
func ValidateVersionValue(v string) error {
	if !versionRe.MatchString(v) {
		return newError(ErrInvalidVersionNumber, "%q", v)
	}
	return nil
}

// EntityAccess lists the roles allowed each operation on an entity.
type EntityAccess struct {
	Find   []string `yaml:"find" json:"find,omitempty"`
	Update []string `yaml:"update" json:"update,omitempty"`
	Insert []string `yaml:"insert" json:"insert,omitempty"`
	Delete []string `yaml:"delete" json:"delete,omitempty"`
}

// EntityConstraint is an entity-level constraint.
type EntityConstraint struct {
	Name  string `yaml:"name" json:"name"`
	Value any    `yaml:"value" json:"value"`
}

// EntitySchema is the version specific half of an entity's metadata.
type EntitySchema struct {
	Name            string
	Version         Version
	Status          MetadataStatus
	StatusChangeLog []StatusChange
	Access          EntityAccess
	Constraints     []EntityConstraint
	Properties      map[string]any

	root fieldContainer
}

// fieldContainer is a node owning a Fields collection that can serve as the
// root of a schema: a RootNode, or the element of a resolved reference.
type fieldContainer interface {
	FieldTreeNode
	Fields() *Fields
}

func NewEntitySchema(name string, version Version) *EntitySchema {
	return &EntitySchema{
		Name:       name,
		Version:    version,
		Properties: map[string]any{},
		root:       NewRootNode(),
	}
}

func (s *EntitySchema) FieldTreeRoot() FieldTreeNode { return s.root }
func (s *EntitySchema) Fields() *Fields              { return s.root.Fields() }

// Resolve resolves an absolute path in the schema.
func (s *EntitySchema) Resolve(p Path) (FieldTreeNode, error) {
	return s.root.Resolve(p, 0)
}

// IdentityFields returns the fields carrying the identity constraint, in
// tree order.
func (s *EntitySchema) IdentityFields() []Path {
	var out []Path
	_ = WalkFields(s.root, func(p Path, n FieldTreeNode) error {
		if f, ok := n.(Field); ok {
			if _, ok := f.base().Constraint("identity"); ok {
				out = append(out, p)
			}
		}
		return nil
	})
	return out
}

// ValidateValue checks value against the type and scalar constraints of the
// field at path.
func (s *EntitySchema) ValidateValue(path string, value string) error {
	n, err := s.Resolve(ParsePath(path))
	if err != nil {
		return err
	}
	if n.Type().Container() {
		return newError(ErrConstraintViolation, "%s: %s is not a scalar field", path, n.Type().Name())
	}
	if !n.Type().Validate(value) {
		return newError(ErrConstraintViolation, "%s: %q is not a valid %s", path, value, n.Type().Name())
	}
	var constraints []FieldConstraint
	switch x := n.(type) {
	case Field:
		constraints = x.Constraints()
	case *SimpleArrayElement:
		constraints = x.Constraints()
	}
	for _, c := range constraints {
		if err := checkConstraint(c, value); err != nil {
			return withContext(err, path)
		}
	}
	return nil
}

func checkConstraint(c FieldConstraint, value string) error {
	switch c.Name {
	case "minLength":
		if n, ok := toInt(c.Value); ok && len(value) < n {
			return newError(ErrConstraintViolation, "length %d below minLength %d", len(value), n)
		}
	case "maxLength":
		if n, ok := toInt(c.Value); ok && len(value) > n {
			return newError(ErrConstraintViolation, "length %d above maxLength %d", len(value), n)
		}
	case "minimum", "maximum":
		bound, ok := toFloat(c.Value)
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if !ok || err != nil {
			return nil
		}
		if c.Name == "minimum" && v < bound {
			return newError(ErrConstraintViolation, "%v below minimum %v", v, bound)
		}
		if c.Name == "maximum" && v > bound {
			return newError(ErrConstraintViolation, "%v above maximum %v", v, bound)
		}
	case "matches":
		pattern, _ := c.Value.(string)
		re, err := regexp.Compile(pattern)
		if err != nil {
			return newError(ErrIllFormedMetadata, "bad pattern %q: %v", pattern, err)
		}
		if !re.MatchString(value) {
			return newError(ErrConstraintViolation, "%q does not match %q", value, pattern)
		}
	case "enum":
		values, _ := c.Value.([]string)
		for _, v := range values {
			if v == value {
				return nil
			}
		}
		return newError(ErrConstraintViolation, "%q is not one of %v", value, values)
	}
	return nil
}

func toInt(v any) (int, bool) {
	switch x := v.(type) {
	case int:
		return x, true
	case int64:
		return int(x), true
	case float64:
		return int(x), true
	case string:
		n, err := strconv.Atoi(x)
		return n, err == nil
	}
	return 0, false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case float64:
		return x, true
	case string:
		f, err := strconv.ParseFloat(x, 64)
		return f, err == nil
	}
	return 0, false
}
