package lattice

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// person builds Root{name: string, address: {city: string}}.
func person(t *testing.T) *Lattice {
	l := New()
	root := l.NewStructure(NoParent, "Root")
	addr := l.NewStructure(root.ID, "address")
	require.Nil(t, l.AddMember(addr.ID, "city", NewString(), "/address/city"))
	require.Nil(t, l.AddMember(root.ID, "name", NewString(), "/name"))
	require.Nil(t, l.AddMember(root.ID, "address", Struct{ID: addr.ID}, "/address"))
	return l
}

func TestNewStructureRegistersInner(t *testing.T) {
	l := person(t)
	root := l.Root()
	require.NotNil(t, root)
	assert.True(t, root.IsRoot())
	assert.Equal(t, "Root", root.Name)

	addr, ok := l.Child(root.ID, "address")
	assert.True(t, ok)
	assert.Equal(t, root.ID, addr.Parent)
	assert.False(t, addr.IsRoot())

	_, ok = l.Child(root.ID, "missing")
	assert.False(t, ok)

	r, ok := l.Child(NoParent, "Root")
	assert.True(t, ok)
	assert.Equal(t, root.ID, r.ID)
}

func TestObtainReuses(t *testing.T) {
	l := person(t)
	a := l.Obtain(l.Root().ID, "address")
	b := l.Obtain(l.Root().ID, "address")
	assert.Equal(t, a.ID, b.ID)
	assert.Equal(t, 2, l.Len())
}

func TestAddMemberSameBasic(t *testing.T) {
	l := person(t)
	root := l.Root()
	assert.Nil(t, l.AddMember(root.ID, "name", NewString(), "/name"))
	assert.Equal(t, 2, root.Members["name"].Seen)
	assert.Equal(t, NewString(), root.Members["name"].Type)
}

func TestAddMemberConflict(t *testing.T) {
	l := New()
	root := l.NewStructure(NoParent, "Root")
	require.Nil(t, l.AddMember(root.ID, "a", NewNumber(), "/a"))

	err := l.AddMember(root.ID, "a", NewString(), "/a")
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "a", ce.Member)
	assert.Equal(t, "/a", ce.Path)
	assert.Equal(t, "number", ce.Left)
	assert.Equal(t, "string", ce.Right)
	assert.Contains(t, ce.Error(), `"a"`)
}

func TestBasicVersusStructureConflicts(t *testing.T) {
	l := person(t)
	root := l.Root()
	err := l.AddMember(root.ID, "address", NewString(), "/address")
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "structure address", ce.Left)
	assert.Equal(t, "string", ce.Right)
}

func TestBasicVersusArrayConflicts(t *testing.T) {
	l := New()
	root := l.NewStructure(NoParent, "Root")
	require.Nil(t, l.AddMember(root.ID, "tags", Array{Elem: NewString()}, "/tags"))
	err := l.AddMember(root.ID, "tags", NewBoolean(), "/tags")
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "array<string>", ce.Left)
	assert.Equal(t, "boolean", ce.Right)
}

func TestUnifyArrayElements(t *testing.T) {
	l := New()
	n, err := l.Unify(Array{}, Array{Elem: NewNumber()}, "/xs", "xs")
	assert.Nil(t, err)
	assert.Equal(t, Array{Elem: NewNumber()}, n)

	n, err = l.Unify(Array{Elem: NewNumber()}, Array{}, "/xs", "xs")
	assert.Nil(t, err)
	assert.Equal(t, Array{Elem: NewNumber()}, n)

	_, err = l.Unify(Array{Elem: NewNumber()}, Array{Elem: NewString()}, "/xs", "xs")
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "/xs[]", ce.Path)
}

func TestUnifyNullIsABasicKind(t *testing.T) {
	l := New()
	n, err := l.Unify(NewNull(), NewNull(), "/a", "a")
	assert.Nil(t, err)
	assert.Equal(t, NewNull(), n)

	n, err = l.Unify(nil, NewNull(), "/a", "a")
	assert.Nil(t, err)
	assert.Equal(t, NewNull(), n)

	n, err = l.Unify(Array{}, Array{Elem: NewNull()}, "/a", "a")
	assert.Nil(t, err)
	assert.Equal(t, Array{Elem: NewNull()}, n)

	cases := []struct {
		existing, incoming Node
		left, right        string
	}{
		{NewNull(), NewString(), "null", "string"},
		{NewString(), NewNull(), "string", "null"},
		{NewNull(), Array{}, "null", "array<unconstrained>"},
		{Array{Elem: NewNumber()}, NewNull(), "array<number>", "null"},
	}
	for _, c := range cases {
		_, err := l.Unify(c.existing, c.incoming, "/a", "a")
		var ce *ConflictError
		require.True(t, errors.As(err, &ce), "%s vs %s", c.left, c.right)
		assert.Equal(t, c.left, ce.Left)
		assert.Equal(t, c.right, ce.Right)
	}
}

func TestUnifyDistinctStructuresAbsorbs(t *testing.T) {
	l := New()
	root := l.NewStructure(NoParent, "Root")
	a := l.NewStructure(root.ID, "a")
	b := l.NewStructure(root.ID, "b")
	inner := l.NewStructure(b.ID, "inner")
	require.Nil(t, l.AddMember(a.ID, "x", NewNumber(), "/a/x"))
	require.Nil(t, l.AddMember(b.ID, "y", NewString(), "/b/y"))
	require.Nil(t, l.AddMember(inner.ID, "z", NewBoolean(), "/b/inner/z"))
	require.Nil(t, l.AddMember(b.ID, "inner", Struct{ID: inner.ID}, "/b/inner"))

	n, err := l.Unify(Struct{ID: a.ID}, Struct{ID: b.ID}, "/a", "a")
	require.Nil(t, err)
	assert.Equal(t, Struct{ID: a.ID}, n)
	assert.Len(t, a.Members, 3)
	assert.Equal(t, inner.ID, a.Inner["inner"])
	assert.Equal(t, a.ID, inner.Parent)
}

func TestCloneIsIndependent(t *testing.T) {
	l := person(t)
	c := l.Clone()
	require.Nil(t, c.AddMember(c.Root().ID, "age", NewNumber(), "/age"))
	c.Obtain(c.Root().ID, "extra")

	assert.Len(t, l.Root().Members, 2)
	assert.Len(t, c.Root().Members, 3)
	assert.Equal(t, 2, l.Len())
	assert.Equal(t, 3, c.Len())
}

func TestUnifyLatticesIdempotent(t *testing.T) {
	a, b := person(t), person(t)
	c, err := Unify(a, b)
	require.Nil(t, err)
	assert.True(t, SameShape(a, c))
	assert.Equal(t, 2, c.Root().Members["name"].Seen)
	assert.Equal(t, 1, a.Root().Members["name"].Seen)
}

func TestUnifyLatticesUnionsMembers(t *testing.T) {
	a := person(t)

	b := New()
	root := b.NewStructure(NoParent, "Root")
	addr := b.NewStructure(root.ID, "address")
	require.Nil(t, b.AddMember(addr.ID, "zip", NewString(), "/address/zip"))
	require.Nil(t, b.AddMember(root.ID, "address", Struct{ID: addr.ID}, "/address"))
	require.Nil(t, b.AddMember(root.ID, "tags", Array{Elem: NewString()}, "/tags"))

	ab, err := Unify(a, b)
	require.Nil(t, err)
	ba, err := Unify(b, a)
	require.Nil(t, err)
	assert.True(t, SameShape(ab, ba))

	r := ab.Root()
	assert.ElementsMatch(t, []string{"address", "name", "tags"}, r.MemberNames())
	city, ok := ab.Child(r.ID, "address")
	require.True(t, ok)
	assert.Equal(t, []string{"city", "zip"}, city.MemberNames())
}

func TestUnifyLatticesConflictLeavesInputs(t *testing.T) {
	a := person(t)

	b := New()
	root := b.NewStructure(NoParent, "Root")
	require.Nil(t, b.AddMember(root.ID, "address", NewString(), "/address"))

	c, err := Unify(a, b)
	assert.Nil(t, c)
	var ce *ConflictError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "address", ce.Member)
	assert.Len(t, a.Root().Members, 2)
}

func TestUnifyWithEmpty(t *testing.T) {
	a := person(t)
	c, err := Unify(New(), a)
	require.Nil(t, err)
	assert.True(t, SameShape(a, c))

	c, err = Unify(a, New())
	require.Nil(t, err)
	assert.True(t, SameShape(a, c))
}

func TestDescribe(t *testing.T) {
	l := person(t)
	assert.Equal(t, "array<unconstrained>", l.Describe(Array{}))
	assert.Equal(t, "array<array<boolean>>", l.Describe(Array{Elem: Array{Elem: NewBoolean()}}))
	assert.Equal(t, "structure address", l.Describe(l.Root().Members["address"].Type))
}

func TestWalkOrder(t *testing.T) {
	l := person(t)
	b := l.NewStructure(l.Root().ID, "billing")
	_ = b

	var names []string
	var depths []int
	err := l.Walk(l.Root(), func(s *Structure, depth int) error {
		names = append(names, s.Name)
		depths = append(depths, depth)
		return nil
	})
	assert.Nil(t, err)
	assert.Equal(t, []string{"Root", "address", "billing"}, names)
	assert.Equal(t, []int{0, 1, 1}, depths)
}
