package infer

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/valyala/fastjson"
)

type valueKind int

const (
	kindInvalid valueKind = iota
	kindObject
	kindArray
	kindString
	kindNumber
	kindBool
	kindNull
)

// Value is one node of a decoded document. The driver only needs the shape of
// a document, never its scalar contents. Build one with FastJSON or Native.
type Value interface {
	kind() valueKind
	fields(visit func(key string, v Value) error) error
	elems(visit func(v Value) error) error
}

// FastJSON adapts a parsed fastjson document. Object members are visited in
// document order.
func FastJSON(v *fastjson.Value) Value {
	return fastValue{v: v}
}

type fastValue struct {
	v *fastjson.Value
}

func (f fastValue) kind() valueKind {
	if f.v == nil {
		return kindNull
	}
	switch f.v.Type() {
	case fastjson.TypeObject:
		return kindObject
	case fastjson.TypeArray:
		return kindArray
	case fastjson.TypeString:
		return kindString
	case fastjson.TypeNumber:
		return kindNumber
	case fastjson.TypeTrue, fastjson.TypeFalse:
		return kindBool
	case fastjson.TypeNull:
		return kindNull
	}

	panic("should be unreachable")
}

func (f fastValue) fields(visit func(string, Value) error) error {
	o, err := f.v.Object()
	if err != nil {
		return err
	}

	var visitErr error
	o.Visit(func(key []byte, v *fastjson.Value) {
		if visitErr != nil {
			return
		}
		visitErr = visit(string(key), fastValue{v: v})
	})
	return visitErr
}

func (f fastValue) elems(visit func(Value) error) error {
	vs, err := f.v.Array()
	if err != nil {
		return err
	}
	for _, v := range vs {
		if err := visit(fastValue{v: v}); err != nil {
			return err
		}
	}
	return nil
}

// Native adapts a tree of Go values as produced by encoding/json, go-json or
// yaml.v3 decoding into any. Map keys are visited in sorted order; non-string
// keys are formatted with fmt.
func Native(v any) Value {
	return nativeValue{v: v}
}

type nativeValue struct {
	v any
}

func (n nativeValue) kind() valueKind {
	switch n.v.(type) {
	case map[string]any, map[any]any:
		return kindObject
	case []any:
		return kindArray
	case string, time.Time:
		return kindString
	case float64, float32, int, int64, int32, uint, uint64, uint32, json.Number:
		return kindNumber
	case bool:
		return kindBool
	case nil:
		return kindNull
	}
	return kindInvalid
}

func (n nativeValue) fields(visit func(string, Value) error) error {
	switch m := n.v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := visit(k, nativeValue{v: m[k]}); err != nil {
				return err
			}
		}
		return nil
	case map[any]any:
		byKey := make(map[string]any, len(m))
		keys := make([]string, 0, len(m))
		for k, v := range m {
			s := fmt.Sprint(k)
			byKey[s] = v
			keys = append(keys, s)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if err := visit(k, nativeValue{v: byKey[k]}); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("infer: %T is not an object", n.v)
}

func (n nativeValue) elems(visit func(Value) error) error {
	vs, ok := n.v.([]any)
	if !ok {
		return fmt.Errorf("infer: %T is not an array", n.v)
	}
	for _, v := range vs {
		if err := visit(nativeValue{v: v}); err != nil {
			return err
		}
	}
	return nil
}

func (n nativeValue) String() string {
	return fmt.Sprintf("%T", n.v)
}
