package listener

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/google/uuid"
	"github.com/siegeai/jsonstruct/render"
)

// Endpoint identifies an operation: the request method and the templated
// path.
type Endpoint struct {
	Method string
	Path   string
}

func (e Endpoint) String() string {
	return e.Method + " " + e.Path
}

type ParamKind int

const (
	ParamInteger ParamKind = iota
	ParamUUID
)

// TemplatePath replaces the numeric and uuid segments of a request path with
// {argN} placeholders, numbered from 1 left to right.
func TemplatePath(path string) (string, []ParamKind) {
	var kinds []ParamKind
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if p == "" {
			continue
		}
		if _, err := strconv.Atoi(p); err == nil {
			kinds = append(kinds, ParamInteger)
		} else if _, err := uuid.Parse(p); err == nil {
			kinds = append(kinds, ParamUUID)
		} else {
			continue
		}
		parts[i] = fmt.Sprintf("{arg%d}", len(kinds))
	}
	return strings.Join(parts, "/"), kinds
}

func pathParameters(kinds []ParamKind) openapi3.Parameters {
	var ps openapi3.Parameters
	for i, k := range kinds {
		var s *openapi3.Schema
		switch k {
		case ParamInteger:
			s = openapi3.NewIntegerSchema()
		case ParamUUID:
			s = openapi3.NewUUIDSchema()
		}
		p := openapi3.NewPathParameter(fmt.Sprintf("arg%d", i+1)).WithSchema(s)
		ps = append(ps, &openapi3.ParameterRef{Value: p})
	}
	return ps
}

// rootName names the root structure inferred for one direction of an
// endpoint, e.g. GetUsersArg1Response200 or PostUsersRequest.
func rootName(e Endpoint, dir string, status int) string {
	var b strings.Builder
	b.WriteString(render.Export(strings.ToLower(e.Method)))
	words := strings.FieldsFunc(e.Path, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		b.WriteString(render.Export(w))
	}
	b.WriteString(render.Export(dir))
	if status != 0 {
		b.WriteString(strconv.Itoa(status))
	}
	return b.String()
}

// operationMethod reports whether an OpenAPI path item can hold method.
func operationMethod(method string) bool {
	switch method {
	case http.MethodConnect, http.MethodDelete, http.MethodGet, http.MethodHead,
		http.MethodOptions, http.MethodPatch, http.MethodPost, http.MethodPut, http.MethodTrace:
		return true
	}
	return false
}
