package meta

// Fields is an ordered collection of uniquely named sibling fields attached
// to one owner node.
type Fields struct {
	owner  FieldTreeNode
	list   []Field
	byName map[string]int
}

func newFields(owner FieldTreeNode) *Fields {
	return &Fields{owner: owner, byName: map[string]int{}}
}

func (f *Fields) Owner() FieldTreeNode { return f.owner }
func (f *Fields) Len() int             { return len(f.list) }

func (f *Fields) Has(name string) bool {
	_, ok := f.byName[name]
	return ok
}

// Get returns the named field or nil.
func (f *Fields) Get(name string) Field {
	if i, ok := f.byName[name]; ok {
		return f.list[i]
	}
	return nil
}

// Fields returns the fields in insertion order.
func (f *Fields) Fields() []Field { return append([]Field(nil), f.list...) }

func (f *Fields) Names() []string {
	out := make([]string, len(f.list))
	for i, x := range f.list {
		out[i] = x.Name()
	}
	return out
}

func (f *Fields) nodes() []FieldTreeNode {
	out := make([]FieldTreeNode, len(f.list))
	for i, x := range f.list {
		out[i] = x
	}
	return out
}

// AddNew appends field, failing if the name is taken.
func (f *Fields) AddNew(field Field) error {
	if f.Has(field.Name()) {
		return newError(ErrDuplicateField, "%s", field.Name())
	}
	f.append(field)
	return nil
}

// Put adds field, replacing a same-named field at its list position.
func (f *Fields) Put(field Field) {
	if i, ok := f.byName[field.Name()]; ok {
		f.list[i] = field
		field.setParent(f.owner)
		return
	}
	f.append(field)
}

func (f *Fields) append(field Field) {
	f.byName[field.Name()] = len(f.list)
	f.list = append(f.list, field)
	field.setParent(f.owner)
}

// Resolve resolves the segment at level by name and continues in the
// matching child.
func (f *Fields) Resolve(p Path, level int) (n FieldTreeNode, err error) {
	if level >= p.Len() {
		return nil, newError(ErrInvalidRedirection, "%s", p)
	}
	name := p.Head(level)
	defer func() { err = withContext(err, name) }()

	switch {
	case name == This || name == Parent:
		if f.owner == nil {
			return nil, newError(ErrInvalidFieldReference, "%s: %s outside a field tree", p, name)
		}
		return f.owner.Resolve(p, level)
	case name == Any || p.IsIndex(level):
		return nil, newError(ErrInvalidArrayReference, "%s: %q used outside an array", p, name)
	}
	field := f.Get(name)
	if field == nil {
		if s := suggest(name, f.Names()); s != "" {
			return nil, newError(ErrInvalidFieldReference, "%s: no field %q (did you mean %q?)", p, name, s)
		}
		return nil, newError(ErrInvalidFieldReference, "%s: no field %q", p, name)
	}
	return field.Resolve(p, level+1)
}
