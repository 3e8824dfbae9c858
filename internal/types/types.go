// Package types interns every C type the compiler encounters and hosts the
// conversion/promotion rules used by expression lowering.
//
// Types are canonical: two structurally identical constructions always
// return the same *Type handle, so type identity is pointer equality.
package types

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"
)

// Kind discriminates the variant a Type represents.
type Kind int

const (
	Void Kind = iota
	Char
	Int
	Bool
	Float
	Pointer
	Array
	Function
	Struct
)

// priority orders arithmetic kinds for usual-arithmetic-conversion purposes:
// the operand with the lower priority is cast up to the one with the higher.
var priority = map[Kind]int{
	Char:  0,
	Int:   1,
	Float: 2,
}

// Member is one field of a struct type, in declaration order.
type Member struct {
	Name string
	Type *Type
}

// Type is an interned, possibly-derived C type.
type Type struct {
	Kind     Kind
	Elem     *Type    // Pointer/array target type, or function return type.
	Len      int64    // Array length.
	Params   []*Type  // Function parameter types.
	Variadic bool     // Function accepts a trailing "...".
	Tag      string   // Struct tag (or "anonymous.N").
	Members  []Member // Struct members, once complete.
	Complete bool     // Struct has been completed with CompleteStruct.

	llvmType llvm.Type
	llvmSet  bool
}

// Priority returns the arithmetic-conversion priority of t's kind, or -1 if
// t is not an arithmetic type.
func (t *Type) Priority() int {
	if p, ok := priority[t.Kind]; ok {
		return p
	}
	return -1
}

// IsArithmetic reports whether t is int, char, or float (bool is scalar but
// not arithmetic for the purpose of usual conversions).
func (t *Type) IsArithmetic() bool {
	_, ok := priority[t.Kind]
	return ok
}

// IsInteger reports whether t is an integer kind (char, int, or bool).
func (t *Type) IsInteger() bool {
	return t.Kind == Char || t.Kind == Int || t.Kind == Bool
}

// IsScalar reports whether t may appear in a boolean context.
func (t *Type) IsScalar() bool {
	switch t.Kind {
	case Char, Int, Bool, Float, Pointer:
		return true
	}
	return false
}

// Equal reports whether t and u are the identical interned type.
func (t *Type) Equal(u *Type) bool {
	return t == u
}

// String renders t the way diagnostics refer to it (not LLVM syntax).
func (t *Type) String() string {
	switch t.Kind {
	case Void:
		return "void"
	case Char:
		return "char"
	case Int:
		return "int"
	case Bool:
		return "_Bool"
	case Float:
		return "double"
	case Pointer:
		return t.Elem.String() + "*"
	case Array:
		return fmt.Sprintf("%s[%d]", t.Elem.String(), t.Len)
	case Function:
		parts := make([]string, len(t.Params))
		for i, p := range t.Params {
			parts[i] = p.String()
		}
		if t.Variadic {
			parts = append(parts, "...")
		}
		return fmt.Sprintf("%s (%s)", t.Elem.String(), strings.Join(parts, ", "))
	case Struct:
		return "struct " + t.Tag
	}
	return "?"
}

// Library interns every Type produced during one compilation and owns the
// LLVM context the interned types are ultimately materialized against.
type Library struct {
	ctx llvm.Context

	basic     map[Kind]*Type
	pointers  map[*Type]*Type
	arrays    map[arrayKey]*Type
	functions map[string]*Type
	structs   map[string]*Type

	anonCounter int
}

type arrayKey struct {
	elem *Type
	len  int64
}

// NewLibrary returns a type library backed by ctx.
func NewLibrary(ctx llvm.Context) *Library {
	l := &Library{
		ctx:       ctx,
		basic:     make(map[Kind]*Type),
		pointers:  make(map[*Type]*Type),
		arrays:    make(map[arrayKey]*Type),
		functions: make(map[string]*Type),
		structs:   make(map[string]*Type),
	}
	l.basic[Void] = &Type{Kind: Void}
	l.basic[Char] = &Type{Kind: Char}
	l.basic[Int] = &Type{Kind: Int}
	l.basic[Bool] = &Type{Kind: Bool}
	l.basic[Float] = &Type{Kind: Float}
	return l
}

// Void, CharT, IntT, BoolT, and FloatT return the interned builtin handles.
func (l *Library) Void() *Type  { return l.basic[Void] }
func (l *Library) CharT() *Type { return l.basic[Char] }
func (l *Library) IntT() *Type  { return l.basic[Int] }
func (l *Library) BoolT() *Type { return l.basic[Bool] }
func (l *Library) FloatT() *Type {
	return l.basic[Float]
}

// Get fetches a named builtin type by its C spelling.
func (l *Library) Get(name string) (*Type, error) {
	switch name {
	case "void":
		return l.Void(), nil
	case "char", "signed char", "unsigned char":
		return l.CharT(), nil
	case "int", "signed", "signed int", "unsigned", "unsigned int", "long", "short":
		return l.IntT(), nil
	case "_Bool":
		return l.BoolT(), nil
	case "float", "double":
		return l.FloatT(), nil
	}
	return nil, errors.Errorf("unknown type %q", name)
}

// InternPointer returns the canonical pointer-to-elem type.
func (l *Library) InternPointer(elem *Type) *Type {
	if t, ok := l.pointers[elem]; ok {
		return t
	}
	t := &Type{Kind: Pointer, Elem: elem}
	l.pointers[elem] = t
	return t
}

// InternArray returns the canonical array-of-length-n-of-elem type.
func (l *Library) InternArray(elem *Type, n int64) *Type {
	k := arrayKey{elem, n}
	if t, ok := l.arrays[k]; ok {
		return t
	}
	t := &Type{Kind: Array, Elem: elem, Len: n}
	l.arrays[k] = t
	return t
}

// InternFunction returns the canonical function type for the given
// signature. Two structurally identical signatures always yield the same
// handle, which is what lets redeclaration checks compare by pointer.
func (l *Library) InternFunction(ret *Type, params []*Type, variadic bool) *Type {
	key := signatureKey(ret, params, variadic)
	if t, ok := l.functions[key]; ok {
		return t
	}
	t := &Type{Kind: Function, Elem: ret, Params: append([]*Type(nil), params...), Variadic: variadic}
	l.functions[key] = t
	return t
}

func signatureKey(ret *Type, params []*Type, variadic bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%p(", ret)
	for _, p := range params {
		fmt.Fprintf(&sb, "%p,", p)
	}
	if variadic {
		sb.WriteString("...")
	}
	sb.WriteByte(')')
	return sb.String()
}

// InternStruct returns the (possibly incomplete) canonical handle for tag.
// A second call with the same tag returns the same handle.
func (l *Library) InternStruct(tag string) *Type {
	if t, ok := l.structs[tag]; ok {
		return t
	}
	t := &Type{Kind: Struct, Tag: tag}
	l.structs[tag] = t
	return t
}

// AnonymousTag returns a fresh tag for an untagged struct definition.
func (l *Library) AnonymousTag() string {
	l.anonCounter++
	return fmt.Sprintf("anonymous.%d", l.anonCounter)
}

// CompleteStruct fills in t's members. It is an error to complete an
// already-complete struct (redefinition).
func (l *Library) CompleteStruct(t *Type, members []Member) error {
	if t.Kind != Struct {
		return errors.Errorf("%s is not a struct type", t)
	}
	if t.Complete {
		return errors.Errorf("redefinition of struct %s", t.Tag)
	}
	seen := make(map[string]bool, len(members))
	for _, m := range members {
		if seen[m.Name] {
			return errors.Errorf("duplicate member %q in struct %s", m.Name, t.Tag)
		}
		seen[m.Name] = true
	}
	t.Members = members
	t.Complete = true
	// A self-referential member (e.g. a pointer-to-this-struct field) may
	// already have forced this struct's opaque llvm.Type into existence via
	// LLVM(t.Elem) while resolving the pointer, before completion ran. LLVM
	// named struct types support setting the body after creation, so fill it
	// in now rather than leaving a memoized empty-body type around.
	if t.llvmSet {
		fields := make([]llvm.Type, len(members))
		for i, m := range members {
			fields[i] = l.LLVM(m.Type)
		}
		t.llvmType.StructSetBody(fields, false)
	}
	return nil
}

// Member looks up a struct member by name, returning its index and type.
func (t *Type) Member(name string) (int, *Type, error) {
	if t.Kind != Struct {
		return 0, nil, errors.Errorf("%s is not a struct type", t)
	}
	for i, m := range t.Members {
		if m.Name == name {
			return i, m.Type, nil
		}
	}
	return 0, nil, errors.Errorf("struct %s has no member %q", t.Tag, name)
}

// LLVM returns (and memoizes) the llvm.Type this Type materializes to.
func (l *Library) LLVM(t *Type) llvm.Type {
	if t.llvmSet {
		return t.llvmType
	}
	var lt llvm.Type
	switch t.Kind {
	case Void:
		lt = l.ctx.VoidType()
	case Char:
		lt = l.ctx.Int8Type()
	case Int:
		lt = l.ctx.Int64Type()
	case Bool:
		lt = l.ctx.Int1Type()
	case Float:
		lt = l.ctx.DoubleType()
	case Pointer:
		target := l.LLVM(t.Elem)
		if t.Elem.Kind == Void {
			target = l.ctx.Int8Type()
		}
		lt = llvm.PointerType(target, 0)
	case Array:
		lt = llvm.ArrayType(l.LLVM(t.Elem), int(t.Len))
	case Function:
		params := make([]llvm.Type, len(t.Params))
		for i, p := range t.Params {
			params[i] = l.LLVM(p)
		}
		lt = llvm.FunctionType(l.LLVM(t.Elem), params, t.Variadic)
	case Struct:
		named := l.ctx.StructCreateNamed("struct." + t.Tag)
		if t.Complete {
			fields := make([]llvm.Type, len(t.Members))
			for i, m := range t.Members {
				fields[i] = l.LLVM(m.Type)
			}
			named.StructSetBody(fields, false)
		}
		lt = named
	default:
		lt = l.ctx.VoidType()
	}
	t.llvmType = lt
	t.llvmSet = true
	return lt
}

// DefaultValue returns the zero-value constant for t.
func (l *Library) DefaultValue(t *Type) llvm.Value {
	switch t.Kind {
	case Char, Int, Bool:
		return llvm.ConstInt(l.LLVM(t), 0, false)
	case Float:
		return llvm.ConstFloat(l.LLVM(t), 0)
	case Pointer:
		return llvm.ConstNull(l.LLVM(t))
	case Array, Struct:
		return llvm.ConstNull(l.LLVM(t))
	}
	return llvm.ConstNull(l.LLVM(t))
}
