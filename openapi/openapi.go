// Package openapi exports inferred lattices as OpenAPI 3 component schemas.
package openapi

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/siegeai/jsonstruct/lattice"
	"github.com/siegeai/jsonstruct/render"
)

const refPrefix = "#/components/schemas/"

// Ref returns a reference to the component a structure is exported as.
func Ref(name string) *openapi3.SchemaRef {
	return openapi3.NewSchemaRef(refPrefix+name, nil)
}

// Components returns one object schema per structure of l, named like the Go
// dialect's types. A member is required when it appeared in every instance
// of its structure.
func Components(l *lattice.Lattice) (openapi3.Schemas, error) {
	names, err := render.QualifiedNames(l)
	if err != nil {
		return nil, err
	}

	schemas := make(openapi3.Schemas, len(names))
	err = l.Walk(l.Root(), func(s *lattice.Structure, _ int) error {
		o := openapi3.NewObjectSchema()
		o.Properties = make(openapi3.Schemas, len(s.Members))
		for _, k := range s.MemberNames() {
			m := s.Members[k]
			ref, err := nodeSchema(l, names, m.Type)
			if err != nil {
				return err
			}
			o.Properties[k] = ref
			if s.Seen > 0 && m.Seen >= s.Seen {
				o.Required = append(o.Required, k)
			}
		}
		schemas[names[s.ID]] = o.NewRef()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return schemas, nil
}

func nodeSchema(l *lattice.Lattice, names map[lattice.StructID]string, n lattice.Node) (*openapi3.SchemaRef, error) {
	switch t := n.(type) {
	case nil:
		return openapi3.NewSchema().NewRef(), nil
	case lattice.Basic:
		switch t.Type {
		case lattice.String:
			return openapi3.NewStringSchema().NewRef(), nil
		case lattice.Number:
			return openapi3.NewFloat64Schema().NewRef(), nil
		case lattice.Boolean:
			return openapi3.NewBoolSchema().NewRef(), nil
		case lattice.Null:
			return (&openapi3.Schema{Nullable: true}).NewRef(), nil
		}
	case lattice.Array:
		items, err := nodeSchema(l, names, t.Elem)
		if err != nil {
			return nil, err
		}
		a := openapi3.NewArraySchema()
		a.Items = items
		return a.NewRef(), nil
	case lattice.Struct:
		name, ok := names[t.ID]
		if !ok {
			return nil, fmt.Errorf("openapi: structure %d is not reachable from the root", t.ID)
		}
		return Ref(name), nil
	}

	panic("should be unreachable")
}

// Document wraps the components of several roots into one OpenAPI document.
// Two roots exporting the same component name is an error.
func Document(title, version string, roots map[string]*lattice.Lattice) (*openapi3.T, error) {
	keys := make([]string, 0, len(roots))
	for k := range roots {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	all := make(openapi3.Schemas)
	for _, k := range keys {
		schemas, err := Components(roots[k])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", k, err)
		}
		for name, s := range schemas {
			if _, ok := all[name]; ok {
				return nil, fmt.Errorf("openapi: component %s exported by more than one root", name)
			}
			all[name] = s
		}
	}

	return &openapi3.T{
		OpenAPI:    "3.0.0",
		Info:       &openapi3.Info{Title: title, Version: version},
		Paths:      openapi3.Paths{},
		Components: &openapi3.Components{Schemas: all},
	}, nil
}

// Renderer renders a lattice as an OpenAPI document holding its components.
type Renderer struct {
	Title   string
	Version string
}

// Render ignores mutable; schemas have no notion of write access.
func (r Renderer) Render(l *lattice.Lattice, _ bool) ([]byte, error) {
	root := l.Root()
	if root == nil {
		return nil, &render.Error{Msg: "lattice has no root structure"}
	}
	title, version := r.Title, r.Version
	if title == "" {
		title = root.Name
	}
	if version == "" {
		version = "0.0.1"
	}

	doc, err := Document(title, version, map[string]*lattice.Lattice{root.Name: l})
	if err != nil {
		return nil, err
	}
	bs, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(bs, '\n'), nil
}

var _ render.Renderer = Renderer{}
