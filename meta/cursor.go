package meta

// FieldCursor walks a field tree depth first without recursion. Array
// elements appear as Any segments in the cursor path.
type FieldCursor struct {
	current FieldTreeNode
	path    []string

	// one frame per level above current: the parent node, its children
	// and the index of current among them
	parents  []FieldTreeNode
	siblings [][]FieldTreeNode
	index    []int

	// set once Next has walked past the last node
	done bool
}

// NewFieldCursor positions a cursor at root. Paths reported by the cursor
// are relative to root.
func NewFieldCursor(root FieldTreeNode) *FieldCursor {
	return &FieldCursor{current: root}
}

func (c *FieldCursor) Current() FieldTreeNode { return c.current }

// CurrentPath returns the path of the current node relative to the root the
// cursor started at.
func (c *FieldCursor) CurrentPath() Path { return NewPath(c.path...) }

// FirstChild moves to the first child of the current node.
func (c *FieldCursor) FirstChild() bool {
	if c.done {
		return false
	}
	children := c.current.Children()
	if len(children) == 0 {
		return false
	}
	c.parents = append(c.parents, c.current)
	c.siblings = append(c.siblings, children)
	c.index = append(c.index, 0)
	c.current = children[0]
	c.path = append(c.path, c.current.Name())
	return true
}

// NextSibling moves to the next sibling of the current node.
func (c *FieldCursor) NextSibling() bool {
	depth := len(c.index)
	if depth == 0 {
		return false
	}
	next := c.index[depth-1] + 1
	if next >= len(c.siblings[depth-1]) {
		return false
	}
	c.index[depth-1] = next
	c.current = c.siblings[depth-1][next]
	c.path[len(c.path)-1] = c.current.Name()
	return true
}

// Parent moves back to the parent of the current node.
func (c *FieldCursor) Parent() bool {
	depth := len(c.parents)
	if depth == 0 {
		return false
	}
	c.current = c.parents[depth-1]
	c.parents = c.parents[:depth-1]
	c.siblings = c.siblings[:depth-1]
	c.index = c.index[:depth-1]
	c.path = c.path[:len(c.path)-1]
	return true
}

// Next advances in pre-order: into the first child, else to the next
// sibling, else up until some ancestor has a next sibling. Once the walk is
// over the cursor rests on the start node and Next keeps returning false.
func (c *FieldCursor) Next() bool {
	if c.done {
		return false
	}
	if c.FirstChild() {
		return true
	}
	if c.NextSibling() {
		return true
	}
	for c.Parent() {
		if c.NextSibling() {
			return true
		}
	}
	c.done = true
	return false
}

// WalkFields calls fn for every node below root in pre-order, stopping at
// the first error.
func WalkFields(root FieldTreeNode, fn func(Path, FieldTreeNode) error) error {
	c := NewFieldCursor(root)
	for c.Next() {
		if err := fn(c.CurrentPath(), c.Current()); err != nil {
			return err
		}
	}
	return nil
}
