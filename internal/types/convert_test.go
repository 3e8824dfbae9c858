package types

import (
	"testing"

	"tinygo.org/x/go-llvm"
)

func TestConvertibleTable(t *testing.T) {
	lib := newLibrary()
	cases := []struct {
		from, to *Type
		want     bool
	}{
		{lib.CharT(), lib.IntT(), true},
		{lib.IntT(), lib.FloatT(), true},
		{lib.FloatT(), lib.BoolT(), true},
		{lib.InternPointer(lib.IntT()), lib.InternPointer(lib.CharT()), true},
		{lib.InternPointer(lib.IntT()), lib.IntT(), false},
		{lib.IntT(), lib.InternPointer(lib.IntT()), false},
	}
	for _, c := range cases {
		if got := Convertible(c.from, c.to); got != c.want {
			t.Errorf("Convertible(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestCastIntWidening(t *testing.T) {
	ctx := llvm.NewContext()
	lib := NewLibrary(ctx)
	m := ctx.NewModule("test")
	defer m.Dispose()
	fnType := llvm.FunctionType(ctx.VoidType(), nil, false)
	fn := m.AddFunction("f", fnType)
	b := ctx.NewBuilder()
	defer b.Dispose()
	bb := ctx.AddBasicBlock(fn, "entry")
	b.SetInsertPointAtEnd(bb)

	charVal := llvm.ConstInt(lib.LLVM(lib.CharT()), 65, false)
	widened, err := lib.Cast(b, charVal, lib.CharT(), lib.IntT())
	if err != nil {
		t.Fatalf("Cast char->int: %v", err)
	}
	if widened.Type() != lib.LLVM(lib.IntT()) {
		t.Fatal("Cast char->int did not produce an i64 value")
	}

	intVal := llvm.ConstInt(lib.LLVM(lib.IntT()), 65, false)
	narrowed, err := lib.Cast(b, intVal, lib.IntT(), lib.CharT())
	if err != nil {
		t.Fatalf("Cast int->char: %v", err)
	}
	if narrowed.Type() != lib.LLVM(lib.CharT()) {
		t.Fatal("Cast int->char did not produce an i8 value")
	}

	same, err := lib.Cast(b, intVal, lib.IntT(), lib.IntT())
	if err != nil || same != intVal {
		t.Fatal("Cast to the same type should be a no-op")
	}
}

func TestCastRejectsIllegalConversion(t *testing.T) {
	ctx := llvm.NewContext()
	lib := NewLibrary(ctx)
	m := ctx.NewModule("test2")
	defer m.Dispose()
	fnType := llvm.FunctionType(ctx.VoidType(), nil, false)
	fn := m.AddFunction("f", fnType)
	b := ctx.NewBuilder()
	defer b.Dispose()
	bb := ctx.AddBasicBlock(fn, "entry")
	b.SetInsertPointAtEnd(bb)

	ptrVal := llvm.ConstNull(lib.LLVM(lib.InternPointer(lib.IntT())))
	if _, err := lib.Cast(b, ptrVal, lib.InternPointer(lib.IntT()), lib.IntT()); err == nil {
		t.Fatal("casting pointer to int should be rejected")
	}
}
