package infer

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/siegeai/jsonstruct/fake"
	"github.com/siegeai/jsonstruct/ident"
	"github.com/siegeai/jsonstruct/lattice"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fastjson"
)

func member(t *testing.T, l *lattice.Lattice, s *lattice.Structure, name string) lattice.Node {
	m, ok := s.Members[name]
	require.True(t, ok, "missing member %q", name)
	return m.Type
}

func TestParseObjectEmpty(t *testing.T) {
	l, err := Infer("Root", []byte("{}"))
	assert.Nil(t, err)
	require.NotNil(t, l.Root())
	assert.Equal(t, "Root", l.Root().Name)
	assert.Empty(t, l.Root().Members)
}

func TestParseObjectScalars(t *testing.T) {
	l, err := Infer("Root", []byte(`{"s": "string-val", "n": 1234, "b": true, "z": null}`))
	require.Nil(t, err)
	r := l.Root()
	assert.Equal(t, lattice.NewString(), member(t, l, r, "s"))
	assert.Equal(t, lattice.NewNumber(), member(t, l, r, "n"))
	assert.Equal(t, lattice.NewBoolean(), member(t, l, r, "b"))
	assert.Equal(t, lattice.NewNull(), member(t, l, r, "z"))
}

func TestParseNestedObject(t *testing.T) {
	l, err := Infer("Root", []byte(`{"address": {"city": "Oslo", "geo": {"lat": 1.5}}}`))
	require.Nil(t, err)
	assert.Equal(t, 3, l.Len())

	addr, ok := l.Child(l.Root().ID, "address")
	require.True(t, ok)
	assert.Equal(t, lattice.Struct{ID: addr.ID}, member(t, l, l.Root(), "address"))

	geo, ok := l.Child(addr.ID, "geo")
	require.True(t, ok)
	assert.Equal(t, lattice.NewNumber(), member(t, l, geo, "lat"))
}

func TestParseArrayEmpty(t *testing.T) {
	l, err := Infer("Root", []byte(`{"xs": []}`))
	require.Nil(t, err)
	assert.Equal(t, lattice.Array{}, member(t, l, l.Root(), "xs"))
}

func TestParseArrayCompositeHomogeneous(t *testing.T) {
	l, err := Infer("Root", []byte(`{"items": [{"id": 1}, {"id": 2, "name": "x"}]}`))
	require.Nil(t, err)

	items, ok := l.Child(l.Root().ID, "items")
	require.True(t, ok)
	assert.Equal(t, lattice.Array{Elem: lattice.Struct{ID: items.ID}}, member(t, l, l.Root(), "items"))
	assert.Equal(t, []string{"id", "name"}, items.MemberNames())
	assert.Equal(t, lattice.NewNumber(), member(t, l, items, "id"))
	assert.Equal(t, lattice.NewString(), member(t, l, items, "name"))
	assert.Equal(t, 2, items.Seen)
	assert.Equal(t, 1, items.Members["name"].Seen)
}

func TestParseArrayCompositeHeterogeneous(t *testing.T) {
	_, err := Infer("Root", []byte(`{"items": [{"a": 123}, null]}`))
	var ce *lattice.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "/items[]", ce.Path)
	assert.Equal(t, "structure items", ce.Left)
	assert.Equal(t, "null", ce.Right)
}

func TestNullConflictsWithOtherShapes(t *testing.T) {
	cases := []struct {
		docs        []string
		left, right string
	}{
		{[]string{`{"a": null}`, `{"a": {"x": 1}}`}, "null", "structure a"},
		{[]string{`{"a": {"x": 1}}`, `{"a": null}`}, "structure a", "null"},
		{[]string{`{"a": null}`, `{"a": [1]}`}, "null", "array<number>"},
		{[]string{`{"a": [1]}`, `{"a": null}`}, "array<number>", "null"},
		{[]string{`{"a": "s"}`, `{"a": null}`}, "string", "null"},
	}
	for _, c := range cases {
		docs := make([][]byte, len(c.docs))
		for i, d := range c.docs {
			docs[i] = []byte(d)
		}
		_, err := Infer("Root", docs...)
		var se *SchemaConflictError
		require.True(t, errors.As(err, &se), "%v", c.docs)
		assert.Equal(t, 1, se.Document)
		assert.Equal(t, "a", se.Conflict.Member)
		assert.Equal(t, c.left, se.Conflict.Left)
		assert.Equal(t, c.right, se.Conflict.Right)
	}

	l, err := Infer("Root", []byte(`{"a": null}`), []byte(`{"a": null, "b": 1}`))
	require.NoError(t, err)
	assert.Equal(t, lattice.NewNull(), member(t, l, l.Root(), "a"))
}

func TestParseArrayScalarConflict(t *testing.T) {
	_, err := Infer("Root", []byte(`{"xs": [1, "two"]}`))
	var ce *lattice.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "/xs[]", ce.Path)
	assert.Equal(t, "xs", ce.Member)
}

func TestConflictAcrossDocuments(t *testing.T) {
	_, err := Infer("Root", []byte(`{"a": 1}`), []byte(`{"a": "x"}`))

	var se *SchemaConflictError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 1, se.Document)

	var ce *lattice.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "a", ce.Member)
	assert.Equal(t, "number", ce.Left)
	assert.Equal(t, "string", ce.Right)
}

func TestConflictPathInsideArray(t *testing.T) {
	_, err := Infer("Root", []byte(`{"items": [{"id": 1}, {"id": "x"}]}`))
	var ce *lattice.ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "/items[]/id", ce.Path)
	assert.Equal(t, "id", ce.Member)
}

func TestAddIsAtomic(t *testing.T) {
	d := New("Root")
	require.Nil(t, d.Add(FastJSON(mustParse(t, `{"a": 1, "b": {"c": true}}`))))

	err := d.AddSource("second.json", FastJSON(mustParse(t, `{"extra": {"x": 1}, "zz": "new", "a": "oops"}`)))
	var se *SchemaConflictError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "second.json", se.Source)
	assert.Contains(t, se.Error(), "second.json")

	l := d.Lattice()
	assert.Equal(t, []string{"a", "b"}, l.Root().MemberNames())
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 1, d.Documents())
}

func TestTopLevelArrayFoldsIntoRoot(t *testing.T) {
	l, err := Infer("Root", []byte(`[{"id": 1}, [{"name": "x"}]]`))
	require.Nil(t, err)
	assert.Equal(t, []string{"id", "name"}, l.Root().MemberNames())
	assert.Equal(t, 2, l.Root().Seen)
}

func TestRootNotObject(t *testing.T) {
	for _, doc := range []string{`1`, `"x"`, `null`, `[]`, `[1, 2]`, `[{"a": 1}, 2]`} {
		_, err := Infer("Root", []byte(doc))
		assert.ErrorIs(t, err, ErrRootNotObject, doc)
	}
}

func TestCollisionFailsFast(t *testing.T) {
	_, err := Infer("Root", []byte(`{"a-b": 1, "a.b": 2}`))
	var ce *ident.CollisionError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "a_b", ce.Identifier)
	assert.Equal(t, "Root", ce.Structure)
}

func TestCollisionDependsOnSanitizer(t *testing.T) {
	d := New("Root", WithSanitizer(ident.GoSource))
	err := d.Add(Native(map[string]any{"class": 1, "clazz": 2}))
	assert.Nil(t, err)

	d = New("Root")
	err = d.Add(Native(map[string]any{"class": 1, "clazz": 2}))
	var ce *ident.CollisionError
	assert.True(t, errors.As(err, &ce))
}

func TestInvalidJSON(t *testing.T) {
	_, err := Infer("Root", []byte(`{"a": `))
	assert.NotNil(t, err)
}

func TestNativeMatchesFastJSON(t *testing.T) {
	doc := `{"id": 7, "tags": ["a"], "owner": {"name": "x", "active": true}, "items": [{"n": 1}], "gone": null}`

	var native any
	require.Nil(t, json.Unmarshal([]byte(doc), &native))

	a := New("Root")
	require.Nil(t, a.Add(FastJSON(mustParse(t, doc))))
	b := New("Root")
	require.Nil(t, b.Add(Native(native)))

	assert.True(t, lattice.SameShape(a.Lattice(), b.Lattice()))
}

func TestNativeYAMLShapes(t *testing.T) {
	d := New("Root")
	err := d.Add(Native(map[string]any{
		"count": 3,
		"big":   uint64(1 << 40),
		"nested": map[any]any{
			1:      "one",
			"flag": false,
		},
	}))
	require.Nil(t, err)

	l := d.Lattice()
	assert.Equal(t, lattice.NewNumber(), member(t, l, l.Root(), "count"))
	assert.Equal(t, lattice.NewNumber(), member(t, l, l.Root(), "big"))
	nested, ok := l.Child(l.Root().ID, "nested")
	require.True(t, ok)
	assert.Equal(t, []string{"1", "flag"}, nested.MemberNames())
}

func TestNativeUnsupported(t *testing.T) {
	err := New("Root").Add(Native(map[string]any{"ch": make(chan int)}))
	assert.NotNil(t, err)
}

func TestReinferenceIdempotent(t *testing.T) {
	docs := docsOf(t, fake.New(11).Corpus(8))

	one, err := Infer("Root", docs...)
	require.Nil(t, err)
	two, err := Infer("Root", docs...)
	require.Nil(t, err)

	both, err := lattice.Unify(one, two)
	require.Nil(t, err)
	assert.True(t, lattice.SameShape(one, both))
}

func TestOrderIndependence(t *testing.T) {
	for seed := int64(1); seed <= 20; seed++ {
		docs := docsOf(t, fake.New(seed).Corpus(6))

		forward, err := Infer("Root", docs...)
		require.Nil(t, err, "seed %d", seed)

		reversed := make([][]byte, len(docs))
		for i, d := range docs {
			reversed[len(docs)-1-i] = d
		}
		backward, err := Infer("Root", reversed...)
		require.Nil(t, err, "seed %d", seed)

		assert.True(t, lattice.SameShape(forward, backward), "seed %d", seed)
	}
}

func TestSplitCorpusUnifies(t *testing.T) {
	docs := docsOf(t, fake.New(5).Corpus(10))

	whole, err := Infer("Root", docs...)
	require.Nil(t, err)
	a, err := Infer("Root", docs[:5]...)
	require.Nil(t, err)
	b, err := Infer("Root", docs[5:]...)
	require.Nil(t, err)

	merged, err := lattice.Unify(a, b)
	require.Nil(t, err)
	assert.True(t, lattice.SameShape(whole, merged))
}

func docsOf(t *testing.T, objs []map[string]any) [][]byte {
	docs := make([][]byte, len(objs))
	for i, o := range objs {
		b, err := json.Marshal(o)
		require.Nil(t, err)
		docs[i] = b
	}
	return docs
}

func mustParse(t *testing.T, s string) *fastjson.Value {
	v, err := fastjson.Parse(s)
	require.Nil(t, err)
	return v
}
