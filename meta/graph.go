package meta

import (
	"sort"
)

// GraphNode is one entity version.
type GraphNode struct {
	ID      string
	Entity  string
	Version string
}

func newGraphNode(entity, version string) *GraphNode {
	return &GraphNode{ID: entity + "@" + version, Entity: entity, Version: version}
}

// GraphEdge links the entity holding a reference field to the entity the
// field points to.
type GraphEdge struct {
	ID       string
	SourceID string
	TargetID string
	Field    Path
	graph    *ReferenceGraph
}

func (e *GraphEdge) Source() *GraphNode { return e.graph.nodes[e.SourceID] }
func (e *GraphEdge) Target() *GraphNode { return e.graph.nodes[e.TargetID] }

// ReferenceGraph models entity versions as a graph with one node per
// entity version and one edge per reference field.
type ReferenceGraph struct {
	nodes map[string]*GraphNode
	edges map[string]*GraphEdge
}

func NewReferenceGraph() *ReferenceGraph {
	return &ReferenceGraph{nodes: map[string]*GraphNode{}, edges: map[string]*GraphEdge{}}
}

func (g *ReferenceGraph) Flush() {
	g.nodes = map[string]*GraphNode{}
	g.edges = map[string]*GraphEdge{}
}

func (g *ReferenceGraph) getNode(entity, version string) *GraphNode {
	n := newGraphNode(entity, version)
	if g.nodes[n.ID] == nil {
		g.nodes[n.ID] = n
	}
	return g.nodes[n.ID]
}

// Add adds md and an edge for each of its reference fields. defaultVersion
// names the version an unpinned reference points to.
func (g *ReferenceGraph) Add(md *EntityMetadata, defaultVersion func(entity string) string) {
	src := g.getNode(md.Name(), md.VersionValue())
	_ = WalkFields(md.FieldTreeRoot(), func(p Path, n FieldTreeNode) error {
		rf, ok := n.(*ReferenceField)
		if !ok {
			return nil
		}
		version := rf.VersionValue
		if version == "" && defaultVersion != nil {
			version = defaultVersion(rf.EntityName)
		}
		dst := g.getNode(rf.EntityName, version)
		e := &GraphEdge{
			ID:       src.ID + "<" + p.String() + ">" + dst.ID,
			SourceID: src.ID,
			TargetID: dst.ID,
			Field:    p,
			graph:    g,
		}
		g.edges[e.ID] = e
		return nil
	})
}

// Nodes returns the nodes sorted by ID.
func (g *ReferenceGraph) Nodes() []*GraphNode {
	out := make([]*GraphNode, 0, len(g.nodes))
	for _, n := range g.nodes {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Edges returns the edges sorted by ID.
func (g *ReferenceGraph) Edges() []*GraphEdge {
	out := make([]*GraphEdge, 0, len(g.edges))
	for _, e := range g.edges {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Outgoing returns the edges leaving node id, sorted by ID.
func (g *ReferenceGraph) Outgoing(id string) []*GraphEdge {
	var out []*GraphEdge
	for _, e := range g.Edges() {
		if e.SourceID == id {
			out = append(out, e)
		}
	}
	return out
}

// Recursive reports whether a chain of references leads from node id back
// to itself. Such entities only stop expanding where projections and
// queries stop asking for them.
func (g *ReferenceGraph) Recursive(id string) bool {
	seen := map[string]bool{}
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, e := range g.Outgoing(cur) {
			if e.TargetID == id {
				return true
			}
			if !seen[e.TargetID] {
				seen[e.TargetID] = true
				stack = append(stack, e.TargetID)
			}
		}
	}
	return false
}

// ReferenceGraph builds the graph of every loaded entity version.
func (m *Model) ReferenceGraph() *ReferenceGraph {
	g := NewReferenceGraph()
	defaultVersion := func(entity string) string {
		if e, ok := m.entities[entity]; ok {
			return e.info.DefaultVersion
		}
		return ""
	}
	for _, name := range m.Entities() {
		for _, v := range m.Versions(name) {
			md, err := m.Get(name, v)
			if err != nil {
				continue
			}
			g.Add(md, defaultVersion)
		}
	}
	return g
}
