package listener

import (
	"net/http"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/siegeai/jsonstruct/lattice"
	"github.com/siegeai/jsonstruct/openapi"
)

// Roots returns every inferred lattice keyed by its root structure's name.
func Roots(endpoints []Observed) map[string]*lattice.Lattice {
	roots := make(map[string]*lattice.Lattice)
	for _, o := range endpoints {
		if o.Request != nil {
			roots[rootName(o.Endpoint, Request, 0)] = o.Request
		}
		for status, l := range o.Responses {
			if l != nil {
				roots[rootName(o.Endpoint, Response, status)] = l
			}
		}
	}
	return roots
}

// Spec builds an OpenAPI document from observed endpoints. Bodies reference
// the components exported for their lattices.
func Spec(title, version string, endpoints []Observed) (*openapi3.T, error) {
	doc, err := openapi.Document(title, version, Roots(endpoints))
	if err != nil {
		return nil, err
	}

	for _, o := range endpoints {
		op := openapi3.NewOperation()
		op.Parameters = pathParameters(o.Params)
		if o.Request != nil {
			rb := openapi3.NewRequestBody().WithJSONSchemaRef(openapi.Ref(rootName(o.Endpoint, Request, 0)))
			op.RequestBody = &openapi3.RequestBodyRef{Value: rb}
		}

		op.Responses = make(openapi3.Responses, len(o.Responses))
		for status, l := range o.Responses {
			r := openapi3.NewResponse().WithDescription(http.StatusText(status))
			if l != nil {
				r = r.WithJSONSchemaRef(openapi.Ref(rootName(o.Endpoint, Response, status)))
			}
			op.Responses[strconv.Itoa(status)] = &openapi3.ResponseRef{Value: r}
		}
		if len(op.Responses) == 0 {
			op.Responses = openapi3.NewResponses()
		}

		item, ok := doc.Paths[o.Endpoint.Path]
		if !ok {
			item = &openapi3.PathItem{}
			doc.Paths[o.Endpoint.Path] = item
		}
		item.SetOperation(o.Endpoint.Method, op)
	}
	return doc, nil
}
