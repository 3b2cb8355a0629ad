package lattice

type Kind int

const (
	KindBasic  Kind = 1
	KindArray  Kind = 2
	KindStruct Kind = 3
)

// Node is a closed union of Basic, Array and Struct. Code that switches on a
// Node handles all three and panics on anything else.
type Node interface {
	Kind() Kind
	node()
}

type BasicKind int

const (
	String  BasicKind = 1
	Number  BasicKind = 2
	Boolean BasicKind = 3
	Null    BasicKind = 4
)

func (k BasicKind) String() string {
	switch k {
	case String:
		return "string"
	case Number:
		return "number"
	case Boolean:
		return "boolean"
	case Null:
		return "null"
	}
	return "unknown"
}

type Basic struct {
	Type BasicKind
}

func (Basic) Kind() Kind { return KindBasic }
func (Basic) node()      {}

// Array has exactly one element type. A nil Elem is the unconstrained
// placeholder an empty array produces.
type Array struct {
	Elem Node
}

func (Array) Kind() Kind { return KindArray }
func (Array) node()      {}

// Struct refers to a Structure owned by a Lattice.
type Struct struct {
	ID StructID
}

func (Struct) Kind() Kind { return KindStruct }
func (Struct) node()      {}

func NewString() Basic  { return Basic{Type: String} }
func NewNumber() Basic  { return Basic{Type: Number} }
func NewBoolean() Basic { return Basic{Type: Boolean} }
func NewNull() Basic    { return Basic{Type: Null} }
