package lattice

import "fmt"

// ConflictError reports two incompatible shapes observed for one member or
// array element. It is fatal to the inference run that produced it.
type ConflictError struct {
	Path   string
	Member string
	Left   string
	Right  string
}

func (e *ConflictError) Error() string {
	path := e.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("types disagree for %q at %s: %s vs %s", e.Member, path, e.Left, e.Right)
}

// AddMember registers name on the structure id, unifying with the type
// already registered under that name. On error l may be partially updated;
// callers mutate a Clone and drop it on failure.
func (l *Lattice) AddMember(id StructID, name string, t Node, path string) error {
	return l.addMember(id, name, t, 1, path)
}

func (l *Lattice) addMember(id StructID, name string, t Node, seen int, path string) error {
	s := l.Struct(id)
	if s == nil {
		return fmt.Errorf("lattice: no structure %d", id)
	}
	m, ok := s.Members[name]
	if !ok {
		s.Members[name] = &Member{Type: t, Seen: seen}
		return nil
	}
	u, err := l.Unify(m.Type, t, path, name)
	if err != nil {
		return err
	}
	m.Type = u
	m.Seen += seen
	return nil
}

// Unify merges two nodes of l claimed to describe the same slot. member and
// path only label a conflict.
func (l *Lattice) Unify(existing, incoming Node, path, member string) (Node, error) {
	if existing == nil {
		return incoming, nil
	}
	if incoming == nil {
		return existing, nil
	}

	switch e := existing.(type) {
	case Basic:
		if in, ok := incoming.(Basic); ok && in.Type == e.Type {
			return e, nil
		}
		return nil, l.conflict(path, member, existing, incoming)

	case Array:
		in, ok := incoming.(Array)
		if !ok {
			return nil, l.conflict(path, member, existing, incoming)
		}
		elem, err := l.Unify(e.Elem, in.Elem, path+"[]", member)
		if err != nil {
			return nil, err
		}
		return Array{Elem: elem}, nil

	case Struct:
		in, ok := incoming.(Struct)
		if !ok {
			return nil, l.conflict(path, member, existing, incoming)
		}
		if in.ID != e.ID {
			if err := l.absorb(e.ID, in.ID, path); err != nil {
				return nil, err
			}
		}
		return e, nil
	}

	panic("should be unreachable")
}

// absorb folds structure src into dst. Inner types only src has move under
// dst; inner types both have are merged through their members.
func (l *Lattice) absorb(dst, src StructID, path string) error {
	d, s := l.structs[dst], l.structs[src]
	d.Seen += s.Seen
	for _, k := range s.InnerKeys() {
		if _, ok := d.Inner[k]; ok {
			continue
		}
		cid := s.Inner[k]
		d.Inner[k] = cid
		l.structs[cid].Parent = dst
	}
	for _, name := range s.MemberNames() {
		m := s.Members[name]
		if err := l.addMember(dst, name, m.Type, m.Seen, path+"/"+name); err != nil {
			return err
		}
	}
	return nil
}

func (l *Lattice) conflict(path, member string, left, right Node) error {
	return &ConflictError{
		Path:   path,
		Member: member,
		Left:   l.Describe(left),
		Right:  l.Describe(right),
	}
}

// Unify merges two independently inferred lattices into a fresh one. Neither
// input is modified. The root keeps a's name when a has a root.
func Unify(a, b *Lattice) (*Lattice, error) {
	c := a.Clone()
	br := b.Root()
	if br == nil {
		return c, nil
	}

	name := br.Name
	if r := c.Root(); r != nil {
		name = r.Name
	}
	root := c.Obtain(NoParent, name)
	if err := c.merge(root.ID, b, br, ""); err != nil {
		return nil, err
	}
	return c, nil
}

func (l *Lattice) merge(dst StructID, other *Lattice, src *Structure, path string) error {
	l.structs[dst].Seen += src.Seen
	for _, name := range src.MemberNames() {
		m := src.Members[name]
		p := path + "/" + name
		t, err := l.adopt(dst, m.Type, other, p)
		if err != nil {
			return err
		}
		if err := l.addMember(dst, name, t, m.Seen, p); err != nil {
			return err
		}
	}
	return nil
}

// adopt translates a node of other into l. Structures are folded into the
// structure with the same key under parent.
func (l *Lattice) adopt(parent StructID, n Node, other *Lattice, path string) (Node, error) {
	switch t := n.(type) {
	case nil:
		return nil, nil
	case Basic:
		return t, nil
	case Array:
		elem, err := l.adopt(parent, t.Elem, other, path+"[]")
		if err != nil {
			return nil, err
		}
		return Array{Elem: elem}, nil
	case Struct:
		src := other.Struct(t.ID)
		if src == nil {
			return nil, fmt.Errorf("lattice: no structure %d", t.ID)
		}
		dst := l.Obtain(parent, src.Name)
		if err := l.merge(dst.ID, other, src, path); err != nil {
			return nil, err
		}
		return Struct{ID: dst.ID}, nil
	}

	panic("should be unreachable")
}
