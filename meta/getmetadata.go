package meta

import (
	"go.uber.org/zap"
)

// GetMetadata decides whether a reference is expanded while building a
// composite metadata tree. It returns the referenced entity's metadata, or
// nil with a nil error to leave the reference out. Errors abort the build.
type GetMetadata interface {
	GetMetadata(injectionField Path, entityName, version string) (*EntityMetadata, error)
}

// GetMetadataFunc adapts a function to GetMetadata.
type GetMetadataFunc func(injectionField Path, entityName, version string) (*EntityMetadata, error)

func (f GetMetadataFunc) GetMetadata(injectionField Path, entityName, version string) (*EntityMetadata, error) {
	return f(injectionField, entityName, version)
}

// RetrieveFunc loads the metadata of a referenced entity.
type RetrieveFunc func(injectionField Path, entityName, version string) (*EntityMetadata, error)

// ProjectionGetMetadata expands a reference only when the request's
// projections or queries need the field the reference is injected at.
type ProjectionGetMetadata struct {
	retrieve    RetrieveFunc
	projections []Projection
	queries     []QueryExpression
	logger      *zap.Logger
}

func NewProjectionGetMetadata(retrieve RetrieveFunc, logger *zap.Logger) *ProjectionGetMetadata {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectionGetMetadata{retrieve: retrieve, logger: logger}
}

// AddProjection registers a projection; nil is ignored.
func (g *ProjectionGetMetadata) AddProjection(p Projection) *ProjectionGetMetadata {
	if p != nil {
		g.projections = append(g.projections, p)
	}
	return g
}

// AddQuery registers a query; nil is ignored.
func (g *ProjectionGetMetadata) AddQuery(q QueryExpression) *ProjectionGetMetadata {
	if q != nil {
		g.queries = append(g.queries, q)
	}
	return g
}

func (g *ProjectionGetMetadata) GetMetadata(injectionField Path, entityName, version string) (*EntityMetadata, error) {
	if !g.IsRequired(injectionField) {
		g.logger.Debug("reference not required",
			zap.Stringer("path", injectionField), zap.String("entity", entityName))
		return nil, nil
	}
	g.logger.Debug("retrieving referenced metadata",
		zap.Stringer("path", injectionField), zap.String("entity", entityName), zap.String("version", version))
	return g.retrieve(injectionField, entityName, version)
}

// IsRequired reports whether any registered projection includes field or
// any registered query refers to it.
func (g *ProjectionGetMetadata) IsRequired(field Path) bool {
	for _, p := range g.projections {
		if required, decided := projectionRequires(field, EmptyPath, p); decided && required {
			return true
		}
	}
	for _, q := range g.queries {
		if queryRequires(field, EmptyPath, q) {
			return true
		}
	}
	return false
}

// projectionRequires reports whether p needs field. decided is false when p
// says nothing about it.
func projectionRequires(field, ctx Path, p Projection) (required, decided bool) {
	switch x := p.(type) {
	case *FieldProjection, *ArrayRangeProjection:
		return decide(FieldInclusion(x, field, ctx))
	case *ArrayQueryMatchProjection:
		if required, decided = decide(FieldInclusion(x, field, ctx)); decided {
			return required, decided
		}
		if queryRequires(field, ctx.Concat(x.Field).Append(Any), x.Match) {
			return true, true
		}
		return false, false
	case ProjectionList:
		for _, item := range x {
			if r, d := projectionRequires(field, ctx, item); d {
				required, decided = r, true
			}
		}
		return required, decided
	}
	return false, false
}

func decide(inc Inclusion) (required, decided bool) {
	switch inc {
	case ExplicitInclusion, ImplicitInclusion:
		return true, true
	case ExplicitExclusion, ImplicitExclusion:
		return false, true
	}
	return false, false
}

// queryRequires reports whether q refers to field or anything below it.
func queryRequires(field, ctx Path, q QueryExpression) bool {
	return walkQueryFields(q, ctx, field.MatchingPrefix)
}
