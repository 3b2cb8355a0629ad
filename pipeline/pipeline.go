// Package pipeline ties decoding, inference and rendering together for the
// command line and the service.
package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/siegeai/jsonstruct/ident"
	"github.com/siegeai/jsonstruct/infer"
	"github.com/siegeai/jsonstruct/lattice"
	"github.com/siegeai/jsonstruct/openapi"
	"github.com/siegeai/jsonstruct/render"
	"github.com/siegeai/jsonstruct/source"
)

var ErrNoDocuments = errors.New("no documents")

type Dialect string

const (
	Declaration Dialect = "declaration"
	Go          Dialect = "go"
	OpenAPI     Dialect = "openapi"
)

func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(s)); d {
	case "":
		return Declaration, nil
	case Declaration, Go, OpenAPI:
		return d, nil
	}
	return "", fmt.Errorf("unknown dialect %q", s)
}

// Ext is the file extension artifacts of the dialect are stored under.
func (d Dialect) Ext() string {
	switch d {
	case Go:
		return ".go"
	case OpenAPI:
		return ".json"
	}
	return ".decl"
}

func (d Dialect) ContentType() string {
	switch d {
	case Go:
		return "text/x-go; charset=utf-8"
	case OpenAPI:
		return "application/json"
	}
	return "text/plain; charset=utf-8"
}

type Options struct {
	Root    string
	Mutable bool
	Dialect Dialect
	Package string
	Logger  *slog.Logger
}

// Sanitizer returns the identifier rules of the dialect. Schemas carry member
// names verbatim, so the OpenAPI dialect uses the most permissive rules.
func (o Options) Sanitizer() *ident.Sanitizer {
	if o.Dialect == Declaration || o.Dialect == "" {
		return ident.Declaration
	}
	return ident.GoSource
}

func (o Options) Renderer() render.Renderer {
	switch o.Dialect {
	case Go:
		return render.GoSource{Package: o.Package, Names: ident.GoSource}
	case OpenAPI:
		return openapi.Renderer{Title: o.Root}
	}
	return render.Declaration{Names: ident.Declaration}
}

// Doc is one decoded document and where it came from.
type Doc struct {
	Source string
	Value  infer.Value
}

// Decode splits data from one location into documents.
func Decode(name string, format source.Format, data []byte) ([]Doc, error) {
	vs, err := source.Decode(name, format, data)
	if err != nil {
		return nil, err
	}
	docs := make([]Doc, len(vs))
	for i, v := range vs {
		docs[i] = Doc{Source: name, Value: v}
	}
	return docs, nil
}

// Infer folds every document into one lattice rooted at o.Root.
func Infer(o Options, docs []Doc) (*lattice.Lattice, error) {
	if len(docs) == 0 {
		return nil, ErrNoDocuments
	}
	opts := []infer.Option{infer.WithSanitizer(o.Sanitizer())}
	if o.Logger != nil {
		opts = append(opts, infer.WithLogger(o.Logger))
	}

	d := infer.New(o.root(), opts...)
	for _, doc := range docs {
		if err := d.AddSource(doc.Source, doc.Value); err != nil {
			return nil, err
		}
	}
	return d.Lattice(), nil
}

// Run infers and renders in one step.
func Run(o Options, docs []Doc) ([]byte, error) {
	l, err := Infer(o, docs)
	if err != nil {
		return nil, err
	}
	return o.Renderer().Render(l, o.Mutable)
}

func (o Options) root() string {
	if o.Root == "" {
		return "Root"
	}
	return o.Root
}
