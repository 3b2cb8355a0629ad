package fake

import (
	"math/rand"
	"sort"
)

// Generator produces random documents from a seeded source so failures
// reproduce.
type Generator struct {
	r        *rand.Rand
	maxDepth int
}

func New(seed int64) *Generator {
	return &Generator{r: rand.New(rand.NewSource(seed)), maxDepth: 5}
}

// JSON returns an object of random string and object members.
func (g *Generator) JSON() map[string]any {
	return g.jsonRecursive(0)
}

func (g *Generator) jsonRecursive(depth int) map[string]any {
	if depth >= g.maxDepth {
		panic("max depth exceeded")
	}

	nkeys := 1 + g.r.Intn(12)
	obj := make(map[string]any, nkeys)

	for i := 0; i < nkeys; i++ {
		key := g.String(1 + g.r.Intn(32))
		if g.r.Intn(100) < 70 || depth+1 >= g.maxDepth {
			obj[key] = g.String(1 + g.r.Intn(32))
		} else {
			obj[key] = g.jsonRecursive(depth + 1)
		}
	}

	return obj
}

// Corpus returns n documents that all conform to one random shape. Members
// are dropped at random and arrays vary in length, so the documents differ
// while never disagreeing on a member's type. A null member is null in every
// document that has it.
func (g *Generator) Corpus(n int) []map[string]any {
	s := g.objectShape(0)
	docs := make([]map[string]any, n)
	for i := range docs {
		docs[i] = g.object(s)
	}
	return docs
}

type shapeKind int

const (
	shapeString shapeKind = iota
	shapeNumber
	shapeBool
	shapeObject
	shapeArray
	shapeNull
)

type shape struct {
	kind    shapeKind
	members map[string]*shape
	elem    *shape
}

func (g *Generator) objectShape(depth int) *shape {
	n := 1 + g.r.Intn(6)
	s := &shape{kind: shapeObject, members: make(map[string]*shape, n)}
	for i := 0; i < n; i++ {
		s.members[g.String(3+g.r.Intn(8))] = g.anyShape(depth + 1)
	}
	return s
}

func (g *Generator) anyShape(depth int) *shape {
	k := shapeKind(g.r.Intn(6))
	if depth+1 >= g.maxDepth && (k == shapeObject || k == shapeArray) {
		k = shapeString
	}
	switch k {
	case shapeObject:
		return g.objectShape(depth)
	case shapeArray:
		return &shape{kind: shapeArray, elem: g.anyShape(depth + 1)}
	}
	return &shape{kind: k}
}

func (g *Generator) object(s *shape) map[string]any {
	keys := make([]string, 0, len(s.members))
	for k := range s.members {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	obj := make(map[string]any, len(s.members))
	for _, k := range keys {
		m := s.members[k]
		if g.r.Intn(100) < 20 {
			continue
		}
		obj[k] = g.value(m)
	}
	return obj
}

func (g *Generator) value(s *shape) any {
	switch s.kind {
	case shapeString:
		return g.String(1 + g.r.Intn(16))
	case shapeNumber:
		return g.r.Float64() * 1000
	case shapeBool:
		return g.r.Intn(2) == 0
	case shapeObject:
		return g.object(s)
	case shapeNull:
		return nil
	case shapeArray:
		vs := make([]any, g.r.Intn(4))
		for i := range vs {
			vs[i] = g.value(s.elem)
		}
		return vs
	}

	panic("should be unreachable")
}

const letters = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

func (g *Generator) String(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = letters[g.r.Intn(len(letters))]
	}
	return string(b)
}
