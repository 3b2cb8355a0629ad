package lattice

import "sort"

// StructID indexes a Structure in its Lattice.
type StructID int32

// NoParent is the parent of the root structure.
const NoParent StructID = -1

// Member is one field of a Structure. Seen counts the object instances the
// field appeared in.
type Member struct {
	Type Node
	Seen int
}

// Structure is a named object type. Parent is a plain index; the Lattice owns
// every Structure and a Structure reaches its nested types through Inner.
type Structure struct {
	ID      StructID
	Name    string
	Parent  StructID
	Members map[string]*Member
	Inner   map[string]StructID
	Seen    int
}

// MemberNames returns the member names in sorted order.
func (s *Structure) MemberNames() []string {
	names := make([]string, 0, len(s.Members))
	for k := range s.Members {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// InnerKeys returns the inner type keys in sorted order.
func (s *Structure) InnerKeys() []string {
	keys := make([]string, 0, len(s.Inner))
	for k := range s.Inner {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// IsRoot reports whether s is the outermost structure.
func (s *Structure) IsRoot() bool {
	return s.Parent == NoParent
}

// Lattice is the arena that owns every Structure of one inference run. It is
// not safe for concurrent use; Clone hands out an independent copy.
type Lattice struct {
	structs []*Structure
	root    StructID
}

func New() *Lattice {
	return &Lattice{root: NoParent}
}

// Root returns the root structure, or nil before any object was seen.
func (l *Lattice) Root() *Structure {
	if l.root == NoParent {
		return nil
	}
	return l.structs[l.root]
}

// Struct returns the structure with the given id, or nil if there is none.
func (l *Lattice) Struct(id StructID) *Structure {
	if id < 0 || int(id) >= len(l.structs) {
		return nil
	}
	return l.structs[id]
}

// Structures returns every structure in creation order.
func (l *Lattice) Structures() []*Structure {
	return append([]*Structure(nil), l.structs...)
}

// Len returns the number of structures in the arena.
func (l *Lattice) Len() int {
	return len(l.structs)
}

// Child returns the structure registered under key in parent's inner types.
// With parent == NoParent it returns the root when its name is key.
func (l *Lattice) Child(parent StructID, key string) (*Structure, bool) {
	if parent == NoParent {
		r := l.Root()
		if r != nil && r.Name == key {
			return r, true
		}
		return nil, false
	}
	p := l.Struct(parent)
	if p == nil {
		return nil, false
	}
	id, ok := p.Inner[key]
	if !ok {
		return nil, false
	}
	return l.structs[id], true
}

// NewStructure creates a structure named key and registers it as an inner
// type of parent. With parent == NoParent it becomes the root, replacing any
// previous root.
func (l *Lattice) NewStructure(parent StructID, key string) *Structure {
	s := &Structure{
		ID:      StructID(len(l.structs)),
		Name:    key,
		Parent:  parent,
		Members: make(map[string]*Member),
		Inner:   make(map[string]StructID),
	}
	l.structs = append(l.structs, s)
	if parent == NoParent {
		l.root = s.ID
	} else {
		l.structs[parent].Inner[key] = s.ID
	}
	return s
}

// Obtain returns the structure at (parent, key), creating it when missing.
func (l *Lattice) Obtain(parent StructID, key string) *Structure {
	if s, ok := l.Child(parent, key); ok {
		return s
	}
	return l.NewStructure(parent, key)
}

// Clone deep-copies the arena. Nodes are immutable values and are shared.
func (l *Lattice) Clone() *Lattice {
	c := &Lattice{
		structs: make([]*Structure, len(l.structs)),
		root:    l.root,
	}
	for i, s := range l.structs {
		cs := &Structure{
			ID:      s.ID,
			Name:    s.Name,
			Parent:  s.Parent,
			Members: make(map[string]*Member, len(s.Members)),
			Inner:   make(map[string]StructID, len(s.Inner)),
			Seen:    s.Seen,
		}
		for k, m := range s.Members {
			cs.Members[k] = &Member{Type: m.Type, Seen: m.Seen}
		}
		for k, id := range s.Inner {
			cs.Inner[k] = id
		}
		c.structs[i] = cs
	}
	return c
}

// Walk visits s and all of its nested structures depth-first, owners before
// their inner types, inner types in key order.
func (l *Lattice) Walk(s *Structure, visit func(s *Structure, depth int) error) error {
	return l.walk(s, 0, visit)
}

func (l *Lattice) walk(s *Structure, depth int, visit func(s *Structure, depth int) error) error {
	if err := visit(s, depth); err != nil {
		return err
	}
	for _, k := range s.InnerKeys() {
		child := l.Struct(s.Inner[k])
		if child == nil {
			continue
		}
		if err := l.walk(child, depth+1, visit); err != nil {
			return err
		}
	}
	return nil
}
