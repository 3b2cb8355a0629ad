// Package binding gives runtime access to a decoded document through the
// identifiers a rendered declaration exposes. Each identifier resolves to the
// external key it was sanitized from.
package binding

import (
	"errors"
	"fmt"
	"sort"

	"github.com/siegeai/jsonstruct/ident"
	"github.com/siegeai/jsonstruct/lattice"
)

var (
	ErrImmutable     = errors.New("binding is read-only")
	ErrUnknownMember = errors.New("unknown member")
	ErrTypeMismatch  = errors.New("value does not match member type")
)

// Object is a view of one JSON object typed by a Structure. Writes go straight
// to the underlying map.
type Object struct {
	l       *lattice.Lattice
	s       *lattice.Structure
	doc     map[string]any
	mutable bool
	names   *ident.Sanitizer
	keys    map[string]string
}

// Bind views doc as the root structure of l.
func Bind(l *lattice.Lattice, names *ident.Sanitizer, doc map[string]any, mutable bool) (*Object, error) {
	root := l.Root()
	if root == nil {
		return nil, errors.New("binding: lattice has no root structure")
	}
	if doc == nil {
		return nil, errors.New("binding: nil document")
	}
	return bind(l, root, names, doc, mutable)
}

func bind(l *lattice.Lattice, s *lattice.Structure, names *ident.Sanitizer, doc map[string]any, mutable bool) (*Object, error) {
	if err := ident.CheckUnique(names, s.Name, s.MemberNames()); err != nil {
		return nil, err
	}
	keys := make(map[string]string, len(s.Members))
	for name := range s.Members {
		keys[names.Identifier(name)] = name
	}
	return &Object{l: l, s: s, doc: doc, mutable: mutable, names: names, keys: keys}, nil
}

// Identifiers returns the accessor names in sorted order.
func (o *Object) Identifiers() []string {
	ids := make([]string, 0, len(o.keys))
	for id := range o.keys {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Key returns the external key behind an accessor identifier.
func (o *Object) Key(id string) (string, bool) {
	k, ok := o.keys[id]
	return k, ok
}

func (o *Object) member(id string) (string, *lattice.Member, error) {
	k, ok := o.keys[id]
	if !ok {
		return "", nil, fmt.Errorf("%w: %s.%s", ErrUnknownMember, o.s.Name, id)
	}
	return k, o.s.Members[k], nil
}

// Get returns the raw value stored under the member's external key.
func (o *Object) Get(id string) (any, error) {
	k, _, err := o.member(id)
	if err != nil {
		return nil, err
	}
	return o.doc[k], nil
}

// Set stores v under the member's external key after checking it against the
// member's type. A nil v stores a JSON null.
func (o *Object) Set(id string, v any) error {
	if !o.mutable {
		return ErrImmutable
	}
	k, m, err := o.member(id)
	if err != nil {
		return err
	}
	if !o.conforms(m.Type, v) {
		return fmt.Errorf("%w: %s.%s is %s, got %T", ErrTypeMismatch, o.s.Name, id, o.l.Describe(m.Type), v)
	}
	o.doc[k] = v
	return nil
}

// Object returns the nested structure behind a member. An absent member gives
// nil, or a fresh empty object stored in the document when o is mutable.
func (o *Object) Object(id string) (*Object, error) {
	k, m, err := o.member(id)
	if err != nil {
		return nil, err
	}
	st, ok := m.Type.(lattice.Struct)
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s is %s", ErrTypeMismatch, o.s.Name, id, o.l.Describe(m.Type))
	}
	child := o.l.Struct(st.ID)
	if child == nil {
		return nil, fmt.Errorf("binding: dangling structure id %d", st.ID)
	}

	switch v := o.doc[k].(type) {
	case map[string]any:
		return bind(o.l, child, o.names, v, o.mutable)
	case nil:
		if !o.mutable {
			return nil, nil
		}
		doc := make(map[string]any)
		o.doc[k] = doc
		return bind(o.l, child, o.names, doc, o.mutable)
	default:
		return nil, fmt.Errorf("%w: %s.%s holds %T", ErrTypeMismatch, o.s.Name, id, v)
	}
}

func (o *Object) conforms(n lattice.Node, v any) bool {
	if v == nil {
		return true
	}
	switch t := n.(type) {
	case nil:
		return true
	case lattice.Basic:
		switch t.Type {
		case lattice.String:
			_, ok := v.(string)
			return ok
		case lattice.Number:
			switch v.(type) {
			case float64, float32, int, int64, int32, uint, uint64, uint32:
				return true
			}
			return false
		case lattice.Boolean:
			_, ok := v.(bool)
			return ok
		case lattice.Null:
			// rendered as Object
			return true
		}
	case lattice.Array:
		vs, ok := v.([]any)
		if !ok {
			return false
		}
		for _, e := range vs {
			if !o.conforms(t.Elem, e) {
				return false
			}
		}
		return true
	case lattice.Struct:
		m, ok := v.(map[string]any)
		s := o.l.Struct(t.ID)
		if !ok || s == nil {
			return false
		}
		for k, e := range m {
			mem, ok := s.Members[k]
			if !ok || !o.conforms(mem.Type, e) {
				return false
			}
		}
		return true
	}

	panic("should be unreachable")
}
