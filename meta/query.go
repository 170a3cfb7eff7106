package meta

import (
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// QueryExpression is a node of the query AST. The variants are
// ValueComparison, FieldComparison, RegexMatch, NaryRelational,
// UnaryLogical, NaryLogical, ArrayContains and ArrayMatch.
type QueryExpression interface {
	fmt.Stringer
	queryExpression()
}

// ValueComparison compares a field with a literal: field op rvalue.
type ValueComparison struct {
	Field  Path
	Op     string
	RValue any
}

// FieldComparison compares two fields: field op rfield.
type FieldComparison struct {
	Field  Path
	Op     string
	RField Path
}

type RegexMatch struct {
	Field           Path
	Regex           string
	CaseInsensitive bool
	Multiline       bool
	Extended        bool
	DotAll          bool
}

// NaryRelational tests membership of a field value in a list ($in, $nin).
type NaryRelational struct {
	Field  Path
	Op     string
	Values []any
}

type UnaryLogical struct {
	Op    string // $not
	Query QueryExpression
}

type NaryLogical struct {
	Op      string // $and, $or
	Queries []QueryExpression
}

// ArrayContains tests an array against a list of values ($any, $all, $none).
type ArrayContains struct {
	Array  Path
	Op     string
	Values []any
}

// ArrayMatch tests whether some array element satisfies ElemMatch. Fields
// of ElemMatch are relative to the array element.
type ArrayMatch struct {
	Array     Path
	ElemMatch QueryExpression
}

func (*ValueComparison) queryExpression() {}
func (*FieldComparison) queryExpression() {}
func (*RegexMatch) queryExpression()      {}
func (*NaryRelational) queryExpression()  {}
func (*UnaryLogical) queryExpression()    {}
func (*NaryLogical) queryExpression()     {}
func (*ArrayContains) queryExpression()   {}
func (*ArrayMatch) queryExpression()      {}

func (q *ValueComparison) String() string { return fmt.Sprintf("%s %s %v", q.Field, q.Op, q.RValue) }
func (q *FieldComparison) String() string { return fmt.Sprintf("%s %s %s", q.Field, q.Op, q.RField) }
func (q *RegexMatch) String() string      { return fmt.Sprintf("%s =~ /%s/", q.Field, q.Regex) }
func (q *NaryRelational) String() string  { return fmt.Sprintf("%s %s %v", q.Field, q.Op, q.Values) }
func (q *UnaryLogical) String() string    { return fmt.Sprintf("%s(%s)", q.Op, q.Query) }
func (q *ArrayContains) String() string   { return fmt.Sprintf("%s %s %v", q.Array, q.Op, q.Values) }
func (q *ArrayMatch) String() string      { return fmt.Sprintf("%s elemMatch(%s)", q.Array, q.ElemMatch) }

func (q *NaryLogical) String() string {
	parts := make([]string, len(q.Queries))
	for i, x := range q.Queries {
		parts[i] = x.String()
	}
	return q.Op + "(" + strings.Join(parts, ", ") + ")"
}

// walkQueryFields calls fn with every field reference of q made absolute
// against ctx, stopping as soon as fn returns true. Fields inside an
// elemMatch are prefixed with the array and Any.
func walkQueryFields(q QueryExpression, ctx Path, fn func(Path) bool) bool {
	switch x := q.(type) {
	case *ValueComparison:
		return fn(ctx.Concat(x.Field))
	case *FieldComparison:
		return fn(ctx.Concat(x.Field)) || fn(ctx.Concat(x.RField))
	case *RegexMatch:
		return fn(ctx.Concat(x.Field))
	case *NaryRelational:
		return fn(ctx.Concat(x.Field))
	case *UnaryLogical:
		return walkQueryFields(x.Query, ctx, fn)
	case *NaryLogical:
		for _, sub := range x.Queries {
			if walkQueryFields(sub, ctx, fn) {
				return true
			}
		}
		return false
	case *ArrayContains:
		return fn(ctx.Concat(x.Array))
	case *ArrayMatch:
		if fn(ctx.Concat(x.Array)) {
			return true
		}
		return walkQueryFields(x.ElemMatch, ctx.Concat(x.Array).Append(Any), fn)
	}
	return false
}

// QueryFields lists the fields q refers to, in order of appearance.
func QueryFields(q QueryExpression) []Path {
	var out []Path
	walkQueryFields(q, EmptyPath, func(p Path) bool {
		out = append(out, p)
		return false
	})
	return out
}

// MapQueryFields returns a copy of q with every field reference replaced by
// fn's result. ElemMatch bodies stay relative to their array element; only
// the array path is mapped.
func MapQueryFields(q QueryExpression, fn func(Path) (Path, error)) (QueryExpression, error) {
	switch x := q.(type) {
	case *ValueComparison:
		f, err := fn(x.Field)
		if err != nil {
			return nil, err
		}
		return &ValueComparison{Field: f, Op: x.Op, RValue: x.RValue}, nil
	case *FieldComparison:
		f, err := fn(x.Field)
		if err != nil {
			return nil, err
		}
		rf, err := fn(x.RField)
		if err != nil {
			return nil, err
		}
		return &FieldComparison{Field: f, Op: x.Op, RField: rf}, nil
	case *RegexMatch:
		f, err := fn(x.Field)
		if err != nil {
			return nil, err
		}
		cp := *x
		cp.Field = f
		return &cp, nil
	case *NaryRelational:
		f, err := fn(x.Field)
		if err != nil {
			return nil, err
		}
		return &NaryRelational{Field: f, Op: x.Op, Values: x.Values}, nil
	case *UnaryLogical:
		sub, err := MapQueryFields(x.Query, fn)
		if err != nil {
			return nil, err
		}
		return &UnaryLogical{Op: x.Op, Query: sub}, nil
	case *NaryLogical:
		out := &NaryLogical{Op: x.Op, Queries: make([]QueryExpression, len(x.Queries))}
		for i, sub := range x.Queries {
			m, err := MapQueryFields(sub, fn)
			if err != nil {
				return nil, err
			}
			out.Queries[i] = m
		}
		return out, nil
	case *ArrayContains:
		a, err := fn(x.Array)
		if err != nil {
			return nil, err
		}
		return &ArrayContains{Array: a, Op: x.Op, Values: x.Values}, nil
	case *ArrayMatch:
		a, err := fn(x.Array)
		if err != nil {
			return nil, err
		}
		return &ArrayMatch{Array: a, ElemMatch: x.ElemMatch}, nil
	}
	return nil, newError(ErrInvalidQuery, "unsupported expression %T", q)
}

var comparisonOps = map[string]string{
	"=": "=", "$eq": "=",
	"!=": "!=", "$neq": "!=", "$ne": "!=",
	"<": "<", "$lt": "<",
	">": ">", "$gt": ">",
	"<=": "<=", "$lte": "<=",
	">=": ">=", "$gte": ">=",
}

var naryOps = map[string]string{"$in": "$in", "$nin": "$nin", "$not_in": "$nin"}

var containsOps = map[string]string{"$any": "$any", "$all": "$all", "$none": "$none"}

// ParseQuery parses a query written in JSON or YAML.
func ParseQuery(data []byte) (QueryExpression, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, newError(ErrInvalidQuery, "%v", err)
	}
	return parseQueryValue(v)
}

func parseQueryValue(v any) (QueryExpression, error) {
	switch x := v.(type) {
	case []any:
		and := &NaryLogical{Op: "$and"}
		for _, item := range x {
			q, err := parseQueryValue(item)
			if err != nil {
				return nil, err
			}
			and.Queries = append(and.Queries, q)
		}
		return and, nil
	case map[string]any:
		return parseQueryMap(x)
	case nil:
		return nil, newError(ErrInvalidQuery, "empty query")
	}
	return nil, newError(ErrInvalidQuery, "expected object, got %T", v)
}

func parseQueryMap(m map[string]any) (QueryExpression, error) {
	for _, op := range []string{"$and", "$or", "$all", "$any"} {
		items, ok := m[op]
		if !ok {
			continue
		}
		list, ok := items.([]any)
		if !ok {
			return nil, newError(ErrInvalidQuery, "%s expects a list", op)
		}
		canon := op
		if op == "$all" {
			canon = "$and"
		} else if op == "$any" {
			canon = "$or"
		}
		out := &NaryLogical{Op: canon}
		for _, item := range list {
			q, err := parseQueryValue(item)
			if err != nil {
				return nil, err
			}
			out.Queries = append(out.Queries, q)
		}
		return out, nil
	}
	if sub, ok := m["$not"]; ok {
		q, err := parseQueryValue(sub)
		if err != nil {
			return nil, err
		}
		return &UnaryLogical{Op: "$not", Query: q}, nil
	}
	if arr, ok := m["array"]; ok {
		array := ParsePath(fmt.Sprint(arr))
		if em, ok := m["elemMatch"]; ok {
			q, err := parseQueryValue(em)
			if err != nil {
				return nil, err
			}
			return &ArrayMatch{Array: array, ElemMatch: q}, nil
		}
		op, ok := containsOps[fmt.Sprint(m["contains"])]
		if !ok {
			return nil, newError(ErrInvalidQuery, "array %s: unknown contains operator %v", array, m["contains"])
		}
		values, _ := m["values"].([]any)
		return &ArrayContains{Array: array, Op: op, Values: values}, nil
	}
	fv, ok := m["field"]
	if !ok {
		return nil, newError(ErrInvalidQuery, "no field in %v", sortedKeys(m))
	}
	field := ParsePath(fmt.Sprint(fv))
	if re, ok := m["regex"]; ok {
		return &RegexMatch{
			Field:           field,
			Regex:           fmt.Sprint(re),
			CaseInsensitive: truthy(m["caseInsensitive"]),
			Multiline:       truthy(m["multiline"]),
			Extended:        truthy(m["extended"]),
			DotAll:          truthy(m["dotall"]),
		}, nil
	}
	rawOp := fmt.Sprint(m["op"])
	if values, ok := m["values"]; ok {
		op, ok := naryOps[rawOp]
		if !ok {
			return nil, newError(ErrInvalidQuery, "field %s: unknown operator %q", field, rawOp)
		}
		list, _ := values.([]any)
		return &NaryRelational{Field: field, Op: op, Values: list}, nil
	}
	op, ok := comparisonOps[rawOp]
	if !ok {
		return nil, newError(ErrInvalidQuery, "field %s: unknown operator %q", field, rawOp)
	}
	if rf, ok := m["rfield"]; ok {
		return &FieldComparison{Field: field, Op: op, RField: ParsePath(fmt.Sprint(rf))}, nil
	}
	rv, ok := m["rvalue"]
	if !ok {
		return nil, newError(ErrInvalidQuery, "field %s: no rvalue or rfield", field)
	}
	return &ValueComparison{Field: field, Op: op, RValue: rv}, nil
}

// ParseSort parses {"field":"$asc"} objects or lists of them.
func ParseSort(data []byte) (Sort, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, newError(ErrInvalidQuery, "sort: %v", err)
	}
	return parseSortValue(v)
}

func parseSortValue(v any) (Sort, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case []any:
		var out Sort
		for _, item := range x {
			s, err := parseSortValue(item)
			if err != nil {
				return nil, err
			}
			out = append(out, s...)
		}
		return out, nil
	case map[string]any:
		var out Sort
		for _, k := range sortedKeys(x) {
			switch fmt.Sprint(x[k]) {
			case "$asc", "asc", "1":
				out = append(out, SortKey{Field: ParsePath(k)})
			case "$desc", "desc", "-1":
				out = append(out, SortKey{Field: ParsePath(k), Descending: true})
			default:
				return nil, newError(ErrInvalidQuery, "sort %s: bad direction %v", k, x[k])
			}
		}
		return out, nil
	}
	return nil, newError(ErrInvalidQuery, "sort: unexpected %T", v)
}

func truthy(v any) bool {
	switch x := v.(type) {
	case bool:
		return x
	case int:
		return x != 0
	case float64:
		return x != 0
	case string:
		return x == "true" || x == "1"
	}
	return false
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
