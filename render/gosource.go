package render

import (
	"bytes"
	"fmt"
	"go/format"
	"go/token"
	"strconv"

	"github.com/siegeai/jsonstruct/ident"
	"github.com/siegeai/jsonstruct/lattice"
)

// GoSource renders a Go file with one map-backed type per Structure.
// Accessors read and write the decoded document under the external key, so
// a value survives a decode and re-encode untouched.
type GoSource struct {
	// Package defaults to "models".
	Package string
	// Names defaults to ident.GoSource.
	Names *ident.Sanitizer
}

func (g GoSource) Render(l *lattice.Lattice, mutable bool) ([]byte, error) {
	pkg := g.Package
	if pkg == "" {
		pkg = "models"
	}
	if !token.IsIdentifier(pkg) {
		return nil, &Error{Msg: fmt.Sprintf("invalid package name %q", pkg)}
	}
	names := g.Names
	if names == nil {
		names = ident.GoSource
	}

	root, err := check(l, names)
	if err != nil {
		return nil, err
	}
	types, err := QualifiedNames(l)
	if err != nil {
		return nil, err
	}

	w := goWriter{l: l, names: names, types: types, mutable: mutable}
	w.printf("// Code generated by jsonstruct. DO NOT EDIT.\n\n")
	w.printf("package %s\n\n", pkg)
	w.printf("import (\n\"encoding/json\"\n\"errors\"\n\"io\"\n\"net/http\"\n\"net/url\"\n\"path/filepath\"\n)\n\n")

	err = l.Walk(root, func(s *lattice.Structure, _ int) error {
		return w.structure(s)
	})
	if err != nil {
		return nil, err
	}
	w.factories(types[root.ID])
	w.printf("%s", goHelpers)

	out, err := format.Source(w.buf.Bytes())
	if err != nil {
		return nil, &Error{Structure: root.Name, Msg: "generated Go does not parse: " + err.Error()}
	}
	return out, nil
}

type goWriter struct {
	buf     bytes.Buffer
	l       *lattice.Lattice
	names   *ident.Sanitizer
	types   map[lattice.StructID]string
	mutable bool
}

func (w *goWriter) printf(format string, args ...any) {
	fmt.Fprintf(&w.buf, format, args...)
}

type goAccessor struct {
	key    string
	method string
	node   lattice.Node
}

func (w *goWriter) accessors(s *lattice.Structure) ([]goAccessor, error) {
	tname := w.types[s.ID]
	taken := map[string]string{"MarshalJSON": ""}
	as := make([]goAccessor, 0, len(s.Members))

	claim := func(method, key string) error {
		if prev, ok := taken[method]; ok {
			return &ident.CollisionError{Structure: tname, Identifier: method, Names: [2]string{prev, key}}
		}
		taken[method] = key
		return nil
	}

	for _, key := range s.MemberNames() {
		a := goAccessor{key: key, method: Export(w.names.Identifier(key)), node: s.Members[key].Type}
		if err := claim(a.method, key); err != nil {
			return nil, err
		}
		as = append(as, a)
	}
	if w.mutable {
		for _, a := range as {
			if err := claim("Set"+a.method, a.key); err != nil {
				return nil, err
			}
		}
	}
	return as, nil
}

func (w *goWriter) structure(s *lattice.Structure) error {
	t := w.types[s.ID]
	as, err := w.accessors(s)
	if err != nil {
		return err
	}

	if _, renamed := w.names.Sanitize(s.Name); renamed {
		w.printf("%s %s\n", ActualNameDirective, strconv.Quote(s.Name))
	}
	w.printf("type %s struct {\ndoc map[string]any\n}\n\n", t)
	w.printf("func as%s(v any) *%s {\nm, ok := v.(map[string]any)\nif !ok {\nreturn nil\n}\nreturn &%s{doc: m}\n}\n\n", t, t, t)
	w.printf("func (s *%s) jsonValue() any {\nif s == nil {\nreturn nil\n}\nreturn s.doc\n}\n\n", t)
	w.printf("func (s *%s) MarshalJSON() ([]byte, error) {\nreturn json.Marshal(s.doc)\n}\n\n", t)
	if w.mutable {
		w.printf("func New%s() *%s {\nreturn &%s{doc: make(map[string]any)}\n}\n\n", t, t, t)
	}

	for _, a := range as {
		key := strconv.Quote(a.key)
		_, renamed := w.names.Sanitize(a.key)
		gt := w.goType(a.node)

		if renamed {
			w.printf("%s %s\n", ActualNameDirective, key)
		}
		w.printf("func (s *%s) %s() %s {\nreturn %s(s.doc[%s])\n}\n\n", t, a.method, gt, w.getConv(a.node), key)

		if !w.mutable {
			continue
		}
		if renamed {
			w.printf("%s %s\n", ActualNameDirective, key)
		}
		w.printf("func (s *%s) Set%s(v %s) {\ns.doc[%s] = %s\n}\n\n", t, a.method, gt, key, w.setExpr(a.node, "v"))
	}
	return nil
}

func (w *goWriter) factories(t string) {
	w.printf("// Parse%s decodes a JSON object.\n", t)
	w.printf("func Parse%s(text string) (*%s, error) {\n", t, t)
	w.printf("var doc map[string]any\nif err := json.Unmarshal([]byte(text), &doc); err != nil {\nreturn nil, err\n}\n")
	w.printf("if doc == nil {\nreturn nil, errors.New(%s)\n}\nreturn &%s{doc: doc}, nil\n}\n\n", strconv.Quote(t+": document is not an object"), t)

	w.printf("func Parse%sURLString(rawURL string) (*%s, error) {\n", t, t)
	w.printf("u, err := url.Parse(rawURL)\nif err != nil {\nreturn nil, err\n}\nreturn Parse%sURL(u)\n}\n\n", t)

	w.printf("// Parse%sURL fetches u over http, https or file and decodes the body.\n", t)
	w.printf("func Parse%sURL(u *url.URL) (*%s, error) {\n", t, t)
	w.printf("tr := &http.Transport{}\ntr.RegisterProtocol(\"file\", http.NewFileTransport(http.Dir(\"/\")))\n")
	w.printf("res, err := (&http.Client{Transport: tr}).Get(u.String())\nif err != nil {\nreturn nil, err\n}\ndefer res.Body.Close()\n")
	w.printf("if res.StatusCode != http.StatusOK {\nreturn nil, errors.New(%s + res.Status)\n}\n", strconv.Quote(t+": unexpected status "))
	w.printf("b, err := io.ReadAll(res.Body)\nif err != nil {\nreturn nil, err\n}\nreturn Parse%s(string(b))\n}\n\n", t)

	w.printf("func Parse%sFile(path string) (*%s, error) {\n", t, t)
	w.printf("abs, err := filepath.Abs(path)\nif err != nil {\nreturn nil, err\n}\n")
	w.printf("return Parse%sURL(&url.URL{Scheme: \"file\", Path: filepath.ToSlash(abs)})\n}\n\n", t)
}

func (w *goWriter) goType(n lattice.Node) string {
	switch t := n.(type) {
	case nil:
		return "any"
	case lattice.Basic:
		switch t.Type {
		case lattice.String:
			return "string"
		case lattice.Number:
			return "float64"
		case lattice.Boolean:
			return "bool"
		case lattice.Null:
			return "any"
		}
	case lattice.Array:
		return "[]" + w.goType(t.Elem)
	case lattice.Struct:
		return "*" + w.types[t.ID]
	}

	panic("should be unreachable")
}

// getConv is an expression of type func(any) T converting a raw document
// value to the accessor type T.
func (w *goWriter) getConv(n lattice.Node) string {
	switch t := n.(type) {
	case nil:
		return "jsonAny"
	case lattice.Basic:
		switch t.Type {
		case lattice.String:
			return "jsonString"
		case lattice.Number:
			return "jsonNumber"
		case lattice.Boolean:
			return "jsonBool"
		case lattice.Null:
			return "jsonAny"
		}
	case lattice.Array:
		return fmt.Sprintf("func(v any) %s { return jsonList(v, %s) }", w.goType(t), w.getConv(t.Elem))
	case lattice.Struct:
		return "as" + w.types[t.ID]
	}

	panic("should be unreachable")
}

// setConv is an expression of type func(T) any, the inverse of getConv.
func (w *goWriter) setConv(n lattice.Node) string {
	switch t := n.(type) {
	case nil, lattice.Basic:
		return "jsonIdentity[" + w.goType(n) + "]"
	case lattice.Array:
		return fmt.Sprintf("func(v %s) any { return jsonUnlist(v, %s) }", w.goType(t), w.setConv(t.Elem))
	case lattice.Struct:
		return "(*" + w.types[t.ID] + ").jsonValue"
	}

	panic("should be unreachable")
}

func (w *goWriter) setExpr(n lattice.Node, v string) string {
	switch t := n.(type) {
	case nil, lattice.Basic:
		return v
	case lattice.Array:
		return fmt.Sprintf("jsonUnlist(%s, %s)", v, w.setConv(t.Elem))
	case lattice.Struct:
		return v + ".jsonValue()"
	}

	panic("should be unreachable")
}

const goHelpers = `
func jsonString(v any) string {
	s, _ := v.(string)
	return s
}

func jsonNumber(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case json.Number:
		f, _ := n.Float64()
		return f
	}
	return 0
}

func jsonBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func jsonAny(v any) any {
	return v
}

func jsonIdentity[T any](v T) any {
	return v
}

func jsonList[T any](v any, conv func(any) T) []T {
	vs, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]T, len(vs))
	for i, e := range vs {
		out[i] = conv(e)
	}
	return out
}

func jsonUnlist[T any](vs []T, conv func(T) any) []any {
	if vs == nil {
		return nil
	}
	out := make([]any, len(vs))
	for i, e := range vs {
		out[i] = conv(e)
	}
	return out
}
`
