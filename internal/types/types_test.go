package types

import (
	"testing"

	"tinygo.org/x/go-llvm"
)

func newLibrary() *Library {
	return NewLibrary(llvm.NewContext())
}

func TestBasicTypesAreInterned(t *testing.T) {
	lib := newLibrary()
	if lib.IntT() != lib.IntT() {
		t.Fatal("IntT() returned different handles across calls")
	}
	a, err := lib.Get("int")
	if err != nil {
		t.Fatal(err)
	}
	if a != lib.IntT() {
		t.Fatal("Get(\"int\") did not return the interned IntT handle")
	}
	if _, err := lib.Get("bogus"); err == nil {
		t.Fatal("Get(\"bogus\") should have failed")
	}
}

func TestPointerInterning(t *testing.T) {
	lib := newLibrary()
	p1 := lib.InternPointer(lib.IntT())
	p2 := lib.InternPointer(lib.IntT())
	if p1 != p2 {
		t.Fatal("InternPointer did not return the same handle for the same element type")
	}
	p3 := lib.InternPointer(lib.CharT())
	if p1 == p3 {
		t.Fatal("InternPointer returned the same handle for different element types")
	}
}

func TestArrayInterning(t *testing.T) {
	lib := newLibrary()
	a1 := lib.InternArray(lib.IntT(), 10)
	a2 := lib.InternArray(lib.IntT(), 10)
	if a1 != a2 {
		t.Fatal("InternArray did not return the same handle for the same (elem, len) pair")
	}
	a3 := lib.InternArray(lib.IntT(), 5)
	if a1 == a3 {
		t.Fatal("InternArray conflated arrays of different length")
	}
}

// Two structurally identical function signatures, built independently,
// must yield the same handle so redeclaration checks can compare by
// identity.
func TestFunctionTypeInterning(t *testing.T) {
	lib := newLibrary()
	params := []*Type{lib.IntT(), lib.InternPointer(lib.CharT())}
	f1 := lib.InternFunction(lib.IntT(), params, false)

	params2 := []*Type{lib.IntT(), lib.InternPointer(lib.CharT())}
	f2 := lib.InternFunction(lib.IntT(), params2, false)

	if f1 != f2 {
		t.Fatal("structurally identical function signatures produced distinct handles")
	}

	variadic := lib.InternFunction(lib.IntT(), params, true)
	if variadic == f1 {
		t.Fatal("variadic and non-variadic signatures must not share a handle")
	}

	other := lib.InternFunction(lib.FloatT(), params, false)
	if other == f1 {
		t.Fatal("different return types must not share a handle")
	}
}

func TestStructCompletionAndRedefinition(t *testing.T) {
	lib := newLibrary()
	t1 := lib.InternStruct("point")
	t2 := lib.InternStruct("point")
	if t1 != t2 {
		t.Fatal("InternStruct did not return the same handle for the same tag")
	}
	if t1.Complete {
		t.Fatal("a freshly interned struct must start incomplete")
	}

	members := []Member{{Name: "x", Type: lib.IntT()}, {Name: "y", Type: lib.IntT()}}
	if err := lib.CompleteStruct(t1, members); err != nil {
		t.Fatalf("CompleteStruct: %v", err)
	}
	if !t1.Complete {
		t.Fatal("CompleteStruct did not mark the struct complete")
	}
	if err := lib.CompleteStruct(t1, members); err == nil {
		t.Fatal("completing an already-complete struct should fail")
	}

	if _, _, err := t1.Member("z"); err == nil {
		t.Fatal("looking up a nonexistent member should fail")
	}
	idx, mt, err := t1.Member("y")
	if err != nil || idx != 1 || mt != lib.IntT() {
		t.Fatalf("Member(\"y\") = (%d, %v, %v)", idx, mt, err)
	}
}

// TestSelfReferentialStructCompletesAfterPointerForcesOpaqueBody exercises a
// linked-list-shaped struct (`struct node { struct node *next; }`), where
// resolving the `next` member's pointer type forces the struct's opaque
// llvm.Type into existence before CompleteStruct runs.
func TestSelfReferentialStructCompletesAfterPointerForcesOpaqueBody(t *testing.T) {
	lib := newLibrary()
	node := lib.InternStruct("node")
	nextPtr := lib.InternPointer(node)

	// Force materialization of node's opaque (bodyless) llvm.Type, the way
	// resolving the "next" member's declarator would.
	_ = lib.LLVM(nextPtr)

	members := []Member{{Name: "next", Type: nextPtr}, {Name: "value", Type: lib.IntT()}}
	if err := lib.CompleteStruct(node, members); err != nil {
		t.Fatalf("CompleteStruct on a self-referential struct: %v", err)
	}
	if !node.Complete || len(node.Members) != 2 {
		t.Fatal("CompleteStruct must record members even when the llvm.Type was materialized early")
	}
	idx, mt, err := node.Member("next")
	if err != nil || idx != 0 || mt != nextPtr {
		t.Fatalf("Member(\"next\") = (%d, %v, %v)", idx, mt, err)
	}
}

func TestCompleteStructRejectsDuplicateMembers(t *testing.T) {
	lib := newLibrary()
	s := lib.InternStruct("dup")
	members := []Member{{Name: "a", Type: lib.IntT()}, {Name: "a", Type: lib.FloatT()}}
	if err := lib.CompleteStruct(s, members); err == nil {
		t.Fatal("duplicate member names should be rejected")
	}
}

func TestPriorityAndPromotion(t *testing.T) {
	lib := newLibrary()
	if lib.CharT().Priority() >= lib.IntT().Priority() {
		t.Fatal("char must have lower promotion priority than int")
	}
	if lib.IntT().Priority() >= lib.FloatT().Priority() {
		t.Fatal("int must have lower promotion priority than float")
	}
	if Promote(lib.CharT(), lib.FloatT()) != lib.FloatT() {
		t.Fatal("Promote(char, float) must yield float")
	}
	if Promote(lib.IntT(), lib.IntT()) != lib.IntT() {
		t.Fatal("Promote(int, int) must yield int")
	}
	if lib.InternPointer(lib.IntT()).Priority() != -1 {
		t.Fatal("pointer types are not arithmetic and must report priority -1")
	}
}

func TestIsIntegerIsScalar(t *testing.T) {
	lib := newLibrary()
	if !lib.BoolT().IsInteger() {
		t.Fatal("_Bool must be an integer kind")
	}
	if lib.FloatT().IsInteger() {
		t.Fatal("float must not be an integer kind")
	}
	if !lib.InternPointer(lib.IntT()).IsScalar() {
		t.Fatal("pointer must be scalar")
	}
	arr := lib.InternArray(lib.IntT(), 4)
	if arr.IsScalar() {
		t.Fatal("array must not be scalar")
	}
}

func TestTypeString(t *testing.T) {
	lib := newLibrary()
	ptr := lib.InternPointer(lib.CharT())
	if got := ptr.String(); got != "char*" {
		t.Errorf("String() = %q, want %q", got, "char*")
	}
	arr := lib.InternArray(lib.IntT(), 3)
	if got := arr.String(); got != "int[3]" {
		t.Errorf("String() = %q, want %q", got, "int[3]")
	}
}
