package lattice

// Describe names a node for diagnostics: "string", "array<number>",
// "structure address".
func (l *Lattice) Describe(n Node) string {
	switch t := n.(type) {
	case nil:
		return "unconstrained"
	case Basic:
		return t.Type.String()
	case Array:
		return "array<" + l.Describe(t.Elem) + ">"
	case Struct:
		if s := l.Struct(t.ID); s != nil {
			return "structure " + s.Name
		}
		return "structure ?"
	}

	panic("should be unreachable")
}

// SameShape reports whether two lattices have roots with the same names,
// members, member types and nested structures. Seen counts are ignored.
func SameShape(a, b *Lattice) bool {
	ra, rb := a.Root(), b.Root()
	if ra == nil || rb == nil {
		return ra == nil && rb == nil
	}
	return sameStruct(a, ra, b, rb)
}

func sameStruct(a *Lattice, sa *Structure, b *Lattice, sb *Structure) bool {
	if sa.Name != sb.Name || len(sa.Members) != len(sb.Members) || len(sa.Inner) != len(sb.Inner) {
		return false
	}
	for name, ma := range sa.Members {
		mb, ok := sb.Members[name]
		if !ok || !sameNode(a, ma.Type, b, mb.Type) {
			return false
		}
	}
	for k, ia := range sa.Inner {
		ib, ok := sb.Inner[k]
		if !ok {
			return false
		}
		ca, cb := a.Struct(ia), b.Struct(ib)
		if ca == nil || cb == nil || !sameStruct(a, ca, b, cb) {
			return false
		}
	}
	return true
}

func sameNode(a *Lattice, na Node, b *Lattice, nb Node) bool {
	switch ta := na.(type) {
	case nil:
		return nb == nil
	case Basic:
		tb, ok := nb.(Basic)
		return ok && ta.Type == tb.Type
	case Array:
		tb, ok := nb.(Array)
		return ok && sameNode(a, ta.Elem, b, tb.Elem)
	case Struct:
		tb, ok := nb.(Struct)
		if !ok {
			return false
		}
		sa, sb := a.Struct(ta.ID), b.Struct(tb.ID)
		return sa != nil && sb != nil && sa.Name == sb.Name
	}

	panic("should be unreachable")
}
