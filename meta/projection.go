package meta

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Projection selects the fields of a document to return. The variants are
// FieldProjection, ArrayQueryMatchProjection, ArrayRangeProjection and
// ProjectionList.
type Projection interface {
	fmt.Stringer
	projection()
}

type FieldProjection struct {
	Field     Path
	Include   bool
	Recursive bool
}

// ArrayQueryMatchProjection projects the elements of an array matching a
// query, optionally with a nested projection relative to the element.
type ArrayQueryMatchProjection struct {
	Field   Path
	Include bool
	Match   QueryExpression
	Project Projection
	Sort    Sort
}

// ArrayRangeProjection projects the elements From..To of an array.
type ArrayRangeProjection struct {
	Field   Path
	Include bool
	From    int
	To      int
	Project Projection
	Sort    Sort
}

// ProjectionList applies its items in order; later items override earlier
// ones.
type ProjectionList []Projection

func (*FieldProjection) projection()           {}
func (*ArrayQueryMatchProjection) projection() {}
func (*ArrayRangeProjection) projection()      {}
func (ProjectionList) projection()             {}

func incl(b bool) string {
	if b {
		return "+"
	}
	return "-"
}

func (p *FieldProjection) String() string {
	if p.Recursive {
		return incl(p.Include) + p.Field.String() + "/**"
	}
	return incl(p.Include) + p.Field.String()
}

func (p *ArrayQueryMatchProjection) String() string {
	return fmt.Sprintf("%s%s[%s]", incl(p.Include), p.Field, p.Match)
}

func (p *ArrayRangeProjection) String() string {
	return fmt.Sprintf("%s%s[%d:%d]", incl(p.Include), p.Field, p.From, p.To)
}

func (p ProjectionList) String() string {
	parts := make([]string, len(p))
	for i, x := range p {
		parts[i] = x.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// Inclusion is how a projection treats one field.
type Inclusion int

const (
	Undecided Inclusion = iota
	ExplicitInclusion
	ImplicitInclusion
	ExplicitExclusion
	ImplicitExclusion
)

func (i Inclusion) String() string {
	switch i {
	case ExplicitInclusion:
		return "explicit_inclusion"
	case ImplicitInclusion:
		return "implicit_inclusion"
	case ExplicitExclusion:
		return "explicit_exclusion"
	case ImplicitExclusion:
		return "implicit_exclusion"
	default:
		return "undecided"
	}
}

// FieldInclusion decides how p treats field. Projection fields are taken
// relative to ctx; array indexes are compared as wildcards.
func FieldInclusion(p Projection, field, ctx Path) Inclusion {
	field = field.Mask()
	switch x := p.(type) {
	case *FieldProjection:
		return basicInclusion(field, ctx.Concat(x.Field).Mask(), x.Include, x.Recursive)
	case *ArrayQueryMatchProjection:
		return arrayInclusion(field, ctx.Concat(x.Field).Mask(), x.Include, x.Project)
	case *ArrayRangeProjection:
		return arrayInclusion(field, ctx.Concat(x.Field).Mask(), x.Include, x.Project)
	case ProjectionList:
		result := Undecided
		for _, item := range x {
			if inc := FieldInclusion(item, field, ctx); inc != Undecided {
				result = inc
			}
		}
		return result
	}
	return Undecided
}

func arrayInclusion(field, arrayField Path, include bool, nested Projection) Inclusion {
	inc := basicInclusion(field, arrayField, include, false)
	if inc == Undecided && include && nested != nil {
		inc = FieldInclusion(nested, field, arrayField.Append(Any))
	}
	return inc
}

func basicInclusion(field, pfield Path, include, recursive bool) Inclusion {
	switch {
	case field.Matches(pfield):
		if include {
			return ExplicitInclusion
		}
		return ExplicitExclusion
	case pfield.MatchingPrefix(field):
		// field is below pfield
		if !include {
			return ImplicitExclusion
		}
		if recursive {
			return ExplicitInclusion
		}
	case field.MatchingPrefix(pfield):
		// field is above pfield, and has to be there for pfield to be
		if include {
			return ImplicitInclusion
		}
	}
	return Undecided
}

// ParseProjection parses a projection written in JSON or YAML.
func ParseProjection(data []byte) (Projection, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, newError(ErrInvalidProjection, "%v", err)
	}
	return parseProjectionValue(v)
}

func parseProjectionValue(v any) (Projection, error) {
	switch x := v.(type) {
	case []any:
		out := make(ProjectionList, 0, len(x))
		for _, item := range x {
			p, err := parseProjectionValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	case map[string]any:
		return parseProjectionMap(x)
	case nil:
		return nil, newError(ErrInvalidProjection, "empty projection")
	}
	return nil, newError(ErrInvalidProjection, "expected object, got %T", v)
}

func parseProjectionMap(m map[string]any) (Projection, error) {
	fv, ok := m["field"]
	if !ok {
		return nil, newError(ErrInvalidProjection, "no field in %v", sortedKeys(m))
	}
	field := ParsePath(fmt.Sprint(fv))
	include := true
	if v, ok := m["include"]; ok {
		include = truthy(v)
	}
	var nested Projection
	if pv, ok := m["project"]; ok {
		p, err := parseProjectionValue(pv)
		if err != nil {
			return nil, err
		}
		nested = p
	}
	sort, err := parseSortValue(m["sort"])
	if err != nil {
		return nil, err
	}
	if mv, ok := m["match"]; ok {
		q, err := parseQueryValue(mv)
		if err != nil {
			return nil, err
		}
		return &ArrayQueryMatchProjection{Field: field, Include: include, Match: q, Project: nested, Sort: sort}, nil
	}
	if rv, ok := m["range"]; ok {
		bounds, _ := rv.([]any)
		if len(bounds) != 2 {
			return nil, newError(ErrInvalidProjection, "%s: range needs [from, to]", field)
		}
		from, ok1 := toInt(bounds[0])
		to, ok2 := toInt(bounds[1])
		if !ok1 || !ok2 || from > to {
			return nil, newError(ErrInvalidProjection, "%s: bad range %v", field, bounds)
		}
		return &ArrayRangeProjection{Field: field, Include: include, From: from, To: to, Project: nested, Sort: sort}, nil
	}
	return &FieldProjection{Field: field, Include: include, Recursive: truthy(m["recursive"])}, nil
}
