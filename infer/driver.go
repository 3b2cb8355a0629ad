package infer

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/siegeai/jsonstruct/ident"
	"github.com/siegeai/jsonstruct/lattice"
	"github.com/valyala/fastjson"
)

// ErrRootNotObject is returned for a document that has no object at its root,
// either directly or as the elements of a top-level array.
var ErrRootNotObject = errors.New("document root is not an object")

// SchemaConflictError wraps the conflict that aborted a document. Document is
// the zero-based index of the document in the driver's run.
type SchemaConflictError struct {
	Document int
	Source   string
	Conflict *lattice.ConflictError
}

func (e *SchemaConflictError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s (document %d): %s", e.Source, e.Document, e.Conflict)
	}
	return fmt.Sprintf("document %d: %s", e.Document, e.Conflict)
}

func (e *SchemaConflictError) Unwrap() error {
	return e.Conflict
}

// Driver folds documents one at a time into a single lattice rooted at a
// synthetic structure. A document that fails leaves the lattice as it was.
type Driver struct {
	root    string
	names   *ident.Sanitizer
	logger  *slog.Logger
	lattice *lattice.Lattice
	docs    int
}

type Option func(*Driver)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Driver) {
		d.logger = logger
	}
}

// WithSanitizer sets the identifier rules member names are checked against
// after every document. The default is ident.Declaration.
func WithSanitizer(s *ident.Sanitizer) Option {
	return func(d *Driver) {
		d.names = s
	}
}

func New(root string, opts ...Option) *Driver {
	d := &Driver{
		root:    root,
		names:   ident.Declaration,
		logger:  slog.Default(),
		lattice: lattice.New(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Lattice returns the committed result. It must not be mutated while the
// driver is still in use.
func (d *Driver) Lattice() *lattice.Lattice {
	return d.lattice
}

// Documents returns the number of documents committed so far.
func (d *Driver) Documents() int {
	return d.docs
}

func (d *Driver) Add(v Value) error {
	return d.AddSource("", v)
}

// AddSource folds one document; source only labels errors and log lines.
func (d *Driver) AddSource(source string, v Value) error {
	next := d.lattice.Clone()
	w := walker{l: next}

	if err := w.document(v, d.root); err != nil {
		var ce *lattice.ConflictError
		if errors.As(err, &ce) {
			return &SchemaConflictError{Document: d.docs, Source: source, Conflict: ce}
		}
		return err
	}

	for _, s := range next.Structures() {
		if err := ident.CheckUnique(d.names, s.Name, s.MemberNames()); err != nil {
			return err
		}
	}

	d.lattice = next
	d.docs++
	d.logger.Debug("document inferred", "source", source, "document", d.docs-1, "structures", next.Len())
	return nil
}

// Infer parses every document as JSON and folds them into one lattice.
func Infer(root string, docs ...[]byte) (*lattice.Lattice, error) {
	d := New(root)
	for i, b := range docs {
		v, err := fastjson.ParseBytes(b)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i, err)
		}
		if err := d.Add(FastJSON(v)); err != nil {
			return nil, err
		}
	}
	return d.Lattice(), nil
}

type walker struct {
	l *lattice.Lattice
}

func (w *walker) document(v Value, root string) error {
	found, err := w.top(v, root)
	if err != nil {
		return err
	}
	if !found {
		return ErrRootNotObject
	}
	return nil
}

// top strips top-level arrays and folds every object found into the root.
func (w *walker) top(v Value, root string) (bool, error) {
	switch v.kind() {
	case kindObject:
		_, err := w.value(v, lattice.NoParent, root, "")
		return err == nil, err
	case kindArray:
		found := false
		err := v.elems(func(e Value) error {
			ok, err := w.top(e, root)
			if err != nil {
				return err
			}
			if !ok {
				return ErrRootNotObject
			}
			found = true
			return nil
		})
		return found, err
	}
	return false, nil
}

func (w *walker) value(v Value, parent lattice.StructID, key, path string) (lattice.Node, error) {
	switch v.kind() {
	case kindObject:
		s := w.l.Obtain(parent, key)
		s.Seen++
		err := v.fields(func(k string, fv Value) error {
			p := path + "/" + k
			n, err := w.value(fv, s.ID, k, p)
			if err != nil {
				return err
			}
			return w.l.AddMember(s.ID, k, n, p)
		})
		if err != nil {
			return nil, err
		}
		return lattice.Struct{ID: s.ID}, nil

	case kindArray:
		// elements share the array's key, so objects in the array fold into
		// one structure named after it
		var elem lattice.Node
		p := path + "[]"
		err := v.elems(func(ev Value) error {
			n, err := w.value(ev, parent, key, p)
			if err != nil {
				return err
			}
			elem, err = w.l.Unify(elem, n, p, key)
			return err
		})
		if err != nil {
			return nil, err
		}
		return lattice.Array{Elem: elem}, nil

	case kindString:
		return lattice.NewString(), nil
	case kindNumber:
		return lattice.NewNumber(), nil
	case kindBool:
		return lattice.NewBoolean(), nil
	case kindNull:
		return lattice.NewNull(), nil
	}

	return nil, fmt.Errorf("infer: unsupported value %v at %s", v, path)
}
