// convert.go implements the cast and usual-arithmetic-conversion rules.
// Legality checks are table-driven: a small boolean lookup table keyed by
// the source and destination kinds.
package types

import (
	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"
)

// convertible[from][to] reports whether an implicit/explicit scalar
// conversion from kind "from" to kind "to" is defined by this compiler.
var convertible = map[Kind]map[Kind]bool{
	Char:    {Char: true, Int: true, Bool: true, Float: true},
	Int:     {Char: true, Int: true, Bool: true, Float: true},
	Bool:    {Char: true, Int: true, Bool: true, Float: true},
	Float:   {Char: true, Int: true, Bool: true, Float: true},
	Pointer: {Pointer: true, Bool: true},
}

// Convertible reports whether a value of type from can be cast to type to.
func Convertible(from, to *Type) bool {
	if from == to {
		return true
	}
	row, ok := convertible[from.Kind]
	if !ok {
		return false
	}
	return row[to.Kind]
}

// Promote returns the common arithmetic type two operands must be cast to
// before applying a binary operator (the higher-priority kind wins).
func Promote(a, b *Type) *Type {
	if a.Priority() >= b.Priority() {
		return a
	}
	return b
}

// Cast emits the IR that converts val (of type from) to type to:
// int<->int truncates/extends, int<->float uses signed conversions, any
// scalar to bool compares not-equal to zero.
func (l *Library) Cast(b llvm.Builder, val llvm.Value, from, to *Type) (llvm.Value, error) {
	if from == to {
		return val, nil
	}
	if !Convertible(from, to) {
		return llvm.Value{}, errors.Errorf("cannot convert %s to %s", from, to)
	}

	switch {
	case to.Kind == Bool:
		return l.toBool(b, val, from), nil

	case from.Kind == Bool && (to.Kind == Char || to.Kind == Int):
		return b.CreateZExt(val, l.LLVM(to), ""), nil
	case from.Kind == Bool && to.Kind == Float:
		return b.CreateUIToFP(val, l.LLVM(to), ""), nil

	case from.IsInteger() && to.IsInteger():
		fromBits := bitWidth(from)
		toBits := bitWidth(to)
		switch {
		case toBits > fromBits:
			return b.CreateSExt(val, l.LLVM(to), ""), nil
		case toBits < fromBits:
			return b.CreateTrunc(val, l.LLVM(to), ""), nil
		default:
			return val, nil
		}

	case from.IsInteger() && to.Kind == Float:
		return b.CreateSIToFP(val, l.LLVM(to), ""), nil
	case from.Kind == Float && to.IsInteger():
		return b.CreateFPToSI(val, l.LLVM(to), ""), nil

	case from.Kind == Pointer && to.Kind == Pointer:
		return b.CreateBitCast(val, l.LLVM(to), ""), nil
	}
	return llvm.Value{}, errors.Errorf("cannot convert %s to %s", from, to)
}

// toBool compares val against the zero value of its type, yielding the i1
// that _Bool is represented as.
func (l *Library) toBool(b llvm.Builder, val llvm.Value, from *Type) llvm.Value {
	switch from.Kind {
	case Float:
		return b.CreateFCmp(llvm.FloatONE, val, llvm.ConstFloat(l.LLVM(from), 0), "")
	case Pointer:
		return b.CreateICmp(llvm.IntNE, val, llvm.ConstNull(l.LLVM(from)), "")
	default:
		return b.CreateICmp(llvm.IntNE, val, llvm.ConstInt(l.LLVM(from), 0, false), "")
	}
}

func bitWidth(t *Type) int {
	switch t.Kind {
	case Char:
		return 8
	case Bool:
		return 1
	case Int:
		return 64
	}
	return 64
}
