package render

import (
	"fmt"
	"unicode"
	"unicode/utf8"

	"github.com/siegeai/jsonstruct/ident"
	"github.com/siegeai/jsonstruct/lattice"
)

const (
	// ActualNameAnnotation marks a renamed accessor or structure in the
	// declaration dialect. Its single argument is the external name.
	ActualNameAnnotation = "@ActualName"

	// ActualNameDirective is the Go dialect's equivalent of
	// ActualNameAnnotation.
	ActualNameDirective = "//jsonstruct:actual"
)

// Renderer turns a finished lattice into declaration text. mutable adds a
// write accessor for every member.
type Renderer interface {
	Render(l *lattice.Lattice, mutable bool) ([]byte, error)
}

// Error reports a lattice the renderer cannot represent. It indicates a bug
// in whatever built the lattice, not bad input.
type Error struct {
	Structure string
	Msg       string
}

func (e *Error) Error() string {
	if e.Structure == "" {
		return "render: " + e.Msg
	}
	return fmt.Sprintf("render: %s: %s", e.Structure, e.Msg)
}

// check validates the invariants every dialect relies on and applies the
// identifier collision policy of names.
func check(l *lattice.Lattice, names *ident.Sanitizer) (*lattice.Structure, error) {
	root := l.Root()
	if root == nil {
		return nil, &Error{Msg: "lattice has no root structure"}
	}
	if !root.IsRoot() {
		return nil, &Error{Structure: root.Name, Msg: "root structure has a parent"}
	}

	err := l.Walk(root, func(s *lattice.Structure, _ int) error {
		for _, name := range s.MemberNames() {
			if err := checkNode(l, s, s.Members[name].Type); err != nil {
				return err
			}
		}
		return ident.CheckUnique(names, s.Name, s.MemberNames())
	})
	if err != nil {
		return nil, err
	}
	return root, nil
}

func checkNode(l *lattice.Lattice, s *lattice.Structure, n lattice.Node) error {
	switch t := n.(type) {
	case nil, lattice.Basic:
		return nil
	case lattice.Array:
		return checkNode(l, s, t.Elem)
	case lattice.Struct:
		if l.Struct(t.ID) == nil {
			return &Error{Structure: s.Name, Msg: fmt.Sprintf("dangling structure id %d", t.ID)}
		}
		return nil
	}

	panic("should be unreachable")
}

// QualifiedNames assigns every structure reachable from the root a flat,
// exported name: the root's name, then each owner's name joined with "_".
// Two keys flattening to one name, such as "A" and "a", are an
// *ident.CollisionError reported against the owner of the second.
func QualifiedNames(l *lattice.Lattice) (map[lattice.StructID]string, error) {
	root := l.Root()
	if root == nil {
		return nil, &Error{Msg: "lattice has no root structure"}
	}

	names := make(map[lattice.StructID]string, l.Len())
	taken := make(map[string]string, l.Len())
	err := l.Walk(root, func(s *lattice.Structure, _ int) error {
		name := Export(ident.GoSource.Identifier(s.Name))
		if !s.IsRoot() {
			name = names[s.Parent] + "_" + name
		}
		if prev, ok := taken[name]; ok {
			owner := s.Name
			if p := l.Struct(s.Parent); p != nil {
				owner = p.Name
			}
			return &ident.CollisionError{Structure: owner, Identifier: name, Names: [2]string{prev, s.Name}}
		}
		taken[name] = s.Name
		names[s.ID] = name
		return nil
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}

// Export makes a Go identifier exported: a lowercase first letter is
// uppercased, anything else that is not already uppercase gets an "X" prefix.
func Export(id string) string {
	r, size := utf8.DecodeRuneInString(id)
	switch {
	case unicode.IsUpper(r):
		return id
	case unicode.IsLower(r) && unicode.IsUpper(unicode.ToUpper(r)):
		return string(unicode.ToUpper(r)) + id[size:]
	}
	return "X" + id
}
