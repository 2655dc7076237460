// Package types implements the type system: a small tagged variant with
// structural sharing, matching the shapes a C-subset front end needs
// (scalars, pointers, arrays, structs, function signatures).
package types

import (
	"fmt"
	"strings"
)

// Kind tags which case of the Type variant a value represents.
type Kind int

const (
	KindInt Kind = iota
	KindVoid
	KindPointer
	KindArray
	KindStruct
	KindFunction
)

func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindVoid:
		return "void"
	case KindPointer:
		return "pointer"
	case KindArray:
		return "array"
	case KindStruct:
		return "struct"
	case KindFunction:
		return "function"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Field is one ordered (name, type) member of a Struct.
type Field struct {
	Name   string
	Type   *Type
	Offset int // in slots, computed on Finalize
}

// Param is one ordered (type, name) parameter of a Function type.
type Param struct {
	Name string
	Type *Type
}

// Type is the tagged variant described in spec.md §3. Only the fields
// relevant to Kind are meaningful for a given value.
type Type struct {
	Kind Kind

	// KindPointer
	Base *Type

	// KindArray
	Elem   *Type
	Length int

	// KindStruct
	StructName string
	Fields     []Field
	slotCount  int  // memoized once Finalize is called
	finalized  bool

	// KindFunction
	Return *Type
	Params []Param
}

// IntType and VoidType are the shared singletons named in spec.md §3.
var (
	IntType  = &Type{Kind: KindInt}
	VoidType = &Type{Kind: KindVoid}
)

// cache interns structurally-identical Pointer/Array wrappers so that,
// e.g., every occurrence of "int*" in a program shares one *Type.
var cache = map[string]*Type{
	"int":  IntType,
	"void": VoidType,
}

// NewPointer returns the (possibly cached) pointer-to-base type.
func NewPointer(base *Type) *Type {
	key := base.canonicalKey() + "*"
	if t, ok := cache[key]; ok {
		return t
	}
	t := &Type{Kind: KindPointer, Base: base}
	cache[key] = t
	return t
}

// NewArray returns the (possibly cached) array-of-elem type with the given length.
func NewArray(elem *Type, length int) *Type {
	key := fmt.Sprintf("%s[%d]", elem.canonicalKey(), length)
	if t, ok := cache[key]; ok {
		return t
	}
	t := &Type{Kind: KindArray, Elem: elem, Length: length}
	cache[key] = t
	return t
}

// NewStruct constructs a fresh, not-yet-finalized struct type. Struct
// types are canonically identified by name, so no interning cache is
// consulted here; the analyzer's struct namespace (Analyzer.structTypes
// in pkg/sema) owns the one canonical instance per name.
func NewStruct(name string) *Type {
	return &Type{Kind: KindStruct, StructName: name}
}

// NewFunction constructs a function signature type.
func NewFunction(ret *Type, params []Param) *Type {
	return &Type{Kind: KindFunction, Return: ret, Params: params}
}

func (t *Type) canonicalKey() string {
	switch t.Kind {
	case KindInt:
		return "int"
	case KindVoid:
		return "void"
	case KindPointer:
		return t.Base.canonicalKey() + "*"
	case KindArray:
		return fmt.Sprintf("%s[%d]", t.Elem.canonicalKey(), t.Length)
	case KindStruct:
		return "struct " + t.StructName
	default:
		return fmt.Sprintf("<%s>", t.Kind)
	}
}

// String renders the type the way a C declarator would read.
func (t *Type) String() string {
	switch t.Kind {
	case KindInt:
		return "int"
	case KindVoid:
		return "void"
	case KindPointer:
		return t.Base.String() + "*"
	case KindArray:
		return fmt.Sprintf("%s[%d]", t.Elem.String(), t.Length)
	case KindStruct:
		return "struct " + t.StructName
	case KindFunction:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.Type.String()
		}
		return fmt.Sprintf("%s(%s)", t.Return.String(), strings.Join(parts, ", "))
	default:
		return "?"
	}
}

// AppendField appends an ordered member to a not-yet-finalized struct type.
func (t *Type) AppendField(name string, ft *Type) {
	if t.Kind != KindStruct {
		panic("AppendField on non-struct type")
	}
	t.Fields = append(t.Fields, Field{Name: name, Type: ft})
}

// Finalize computes member offsets and memoizes SlotCount. Struct
// definitions are closed (all fields appended) before this is called,
// and never mutated afterward, per spec.md §3.
func (t *Type) Finalize() {
	if t.Kind != KindStruct || t.finalized {
		return
	}
	offset := 0
	for i := range t.Fields {
		t.Fields[i].Offset = offset
		offset += t.Fields[i].Type.SlotCount()
	}
	t.slotCount = offset
	t.finalized = true
}

// FindField looks up a member by name, returning (field, true) or
// (zero, false).
func (t *Type) FindField(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// SlotCount is the type's footprint in 32-bit machine slots.
func (t *Type) SlotCount() int {
	switch t.Kind {
	case KindVoid:
		return 0
	case KindInt, KindPointer:
		return 1
	case KindArray:
		return t.Elem.SlotCount() * t.Length
	case KindStruct:
		if !t.finalized {
			t.Finalize()
		}
		return t.slotCount
	default:
		return 0
	}
}

// IsVoid reports whether t is the Void type.
func (t *Type) IsVoid() bool { return t.Kind == KindVoid }

// Compatible implements the symmetric type-compatibility predicate of
// spec.md §4.1: identical types are compatible; both Int are
// compatible; two Pointers are compatible iff their bases are; two
// Arrays are compatible iff their element types are (length is not
// part of compatibility, a deliberate relaxation); two Structs are
// compatible iff they share a name. No implicit int/pointer conversion.
func Compatible(a, b *Type) bool {
	if a == nil || b == nil {
		return false
	}
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindInt, KindVoid:
		return true
	case KindPointer:
		return Compatible(a.Base, b.Base)
	case KindArray:
		return Compatible(a.Elem, b.Elem)
	case KindStruct:
		return a.StructName == b.StructName
	case KindFunction:
		if !Compatible(a.Return, b.Return) || len(a.Params) != len(b.Params) {
			return false
		}
		for i := range a.Params {
			if !Compatible(a.Params[i].Type, b.Params[i].Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
