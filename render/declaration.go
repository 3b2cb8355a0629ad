package render

import (
	"bytes"
	"fmt"
	"strings"
	"unicode"
	"unicode/utf16"

	"github.com/siegeai/jsonstruct/ident"
	"github.com/siegeai/jsonstruct/lattice"
)

// Declaration renders the structure declaration dialect: one nested
// `structure` block per Structure, property accessors, and parse entry points
// on the root.
type Declaration struct {
	// Names defaults to ident.Declaration.
	Names *ident.Sanitizer
}

func (d Declaration) Render(l *lattice.Lattice, mutable bool) ([]byte, error) {
	names := d.Names
	if names == nil {
		names = ident.Declaration
	}
	root, err := check(l, names)
	if err != nil {
		return nil, err
	}

	w := declWriter{l: l, names: names, mutable: mutable}
	w.structure(root, 0)
	return w.buf.Bytes(), nil
}

type declWriter struct {
	buf     bytes.Buffer
	l       *lattice.Lattice
	names   *ident.Sanitizer
	mutable bool
}

func (w *declWriter) line(indent int, format string, args ...any) {
	w.buf.WriteString(strings.Repeat(" ", indent))
	fmt.Fprintf(&w.buf, format, args...)
	w.buf.WriteByte('\n')
}

// identifier writes the annotation for a renamed name and returns the
// identifier to declare.
func (w *declWriter) identifier(indent int, name string) string {
	id, renamed := w.names.Sanitize(name)
	if renamed {
		w.line(indent, "%s( %s )", ActualNameAnnotation, quote(name))
	}
	return id
}

func (w *declWriter) structure(s *lattice.Structure, indent int) {
	id := w.identifier(indent, s.Name)
	w.line(indent, "structure %s {", id)
	if s.IsRoot() {
		w.factories(id, indent+2)
	}

	for _, name := range s.MemberNames() {
		t := w.typeName(s.Members[name].Type)
		prop := w.identifier(indent+2, name)
		w.line(indent+2, "property get %s(): %s", prop, t)
		if w.mutable {
			w.line(indent+2, "property set %s( $value: %s )", prop, t)
		}
	}

	for _, k := range s.InnerKeys() {
		if child := w.l.Struct(s.Inner[k]); child != nil {
			w.structure(child, indent+2)
		}
	}
	w.line(indent, "}")
}

// factories emits the root's entry points. Every one of them ends up in
// parse so there is a single decoding path.
func (w *declWriter) factories(t string, indent int) {
	w.line(indent, "static function parse( jsonText: String ): %s {", t)
	w.line(indent, "  return Json.parse( jsonText ) as %s", t)
	w.line(indent, "}")
	w.line(indent, "static function parseUrl( url: String ): %s {", t)
	w.line(indent, "  return parseUrl( new URL( url ) )")
	w.line(indent, "}")
	w.line(indent, "static function parseUrl( url: URL ): %s {", t)
	w.line(indent, "  return parse( url.TextContent )")
	w.line(indent, "}")
	w.line(indent, "static function parseFile( file: File ): %s {", t)
	w.line(indent, "  return parseUrl( file.toURI().toURL() )")
	w.line(indent, "}")
}

func (w *declWriter) typeName(n lattice.Node) string {
	switch t := n.(type) {
	case nil:
		return "Object"
	case lattice.Basic:
		switch t.Type {
		case lattice.String:
			return "String"
		case lattice.Number:
			return "Number"
		case lattice.Boolean:
			return "Boolean"
		case lattice.Null:
			return "Object"
		}
	case lattice.Array:
		return "List<" + w.typeName(t.Elem) + ">"
	case lattice.Struct:
		return w.names.Identifier(w.l.Struct(t.ID).Name)
	}

	panic("should be unreachable")
}

// quote writes a string literal the declaration host reads back unchanged.
// Unlike Go's %q it has no \x or \U forms; anything not printable is one or
// two \uXXXX escapes.
func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '\b':
			b.WriteString(`\b`)
		case '\f':
			b.WriteString(`\f`)
		default:
			if unicode.IsPrint(r) {
				b.WriteRune(r)
			} else if r1, r2 := utf16.EncodeRune(r); r1 != unicode.ReplacementChar {
				fmt.Fprintf(&b, `\u%04x\u%04x`, r1, r2)
			} else {
				fmt.Fprintf(&b, `\u%04x`, r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
