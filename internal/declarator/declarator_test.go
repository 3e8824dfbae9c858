package declarator

import (
	"testing"

	"tinygo.org/x/go-llvm"

	"cllvm/internal/ast"
	"cllvm/internal/types"
)

func newLibrary() *types.Library {
	return types.NewLibrary(llvm.NewContext())
}

func ident(name string) *ast.Node {
	return &ast.Node{Kind: ast.IdentifierDeclarator, Data: name}
}

func ptrTo(inner *ast.Node) *ast.Node {
	return &ast.Node{Kind: ast.PointerDeclarator, Children: []*ast.Node{inner}}
}

func arrayOf(inner *ast.Node, n int64) *ast.Node {
	return &ast.Node{Kind: ast.ArrayDeclarator, Data: n, Children: []*ast.Node{inner}}
}

func paramDecl(specName string, decl *ast.Node) *ast.Node {
	spec := &ast.Node{Kind: ast.DeclarationSpecifiers, Data: specName}
	children := []*ast.Node{spec}
	if decl != nil {
		children = append(children, decl)
	}
	return &ast.Node{Kind: ast.ParameterDeclaration, Children: children}
}

func funcDecl(inner *ast.Node, params ...*ast.Node) *ast.Node {
	children := append([]*ast.Node{inner}, params...)
	return &ast.Node{Kind: ast.FunctionDeclarator, Children: children}
}

func TestResolveIdentifierBottomsOutAtBaseType(t *testing.T) {
	lib := newLibrary()
	r, err := Resolve(ident("x"), lib.IntT(), lib)
	if err != nil {
		t.Fatal(err)
	}
	if r.Name != "x" || r.Type != lib.IntT() {
		t.Fatalf("Resolve(identifier) = %+v", r)
	}
}

func TestResolvePointerWrapsBase(t *testing.T) {
	lib := newLibrary()
	r, err := Resolve(ptrTo(ident("p")), lib.IntT(), lib)
	if err != nil {
		t.Fatal(err)
	}
	if r.Type.Kind != types.Pointer || r.Type.Elem != lib.IntT() {
		t.Fatalf("Resolve(pointer) = %+v, want pointer-to-int", r)
	}
}

func TestResolveArrayRequiresPositiveConstantLength(t *testing.T) {
	lib := newLibrary()
	r, err := Resolve(arrayOf(ident("a"), 3), lib.IntT(), lib)
	if err != nil {
		t.Fatal(err)
	}
	if r.Type.Kind != types.Array || r.Type.Len != 3 {
		t.Fatalf("Resolve(array) = %+v", r)
	}

	if _, err := Resolve(arrayOf(ident("a"), 0), lib.IntT(), lib); err == nil {
		t.Fatal("a zero-length array declarator must be rejected")
	}
	if _, err := Resolve(arrayOf(ident("a"), -1), lib.IntT(), lib); err == nil {
		t.Fatal("a negative-length array declarator must be rejected")
	}
}

func TestResolveArrayOfFunctionsRejected(t *testing.T) {
	lib := newLibrary()
	fnType := lib.InternFunction(lib.IntT(), nil, false)
	if _, err := Resolve(arrayOf(ident("a"), 4), fnType, lib); err == nil {
		t.Fatal("an array of functions must be rejected")
	}
}

func TestResolveFunctionReturningFunctionRejected(t *testing.T) {
	lib := newLibrary()
	fnType := lib.InternFunction(lib.IntT(), nil, false)
	decl := funcDecl(ident("f"))
	if _, err := Resolve(decl, fnType, lib); err == nil {
		t.Fatal("a function returning a function must be rejected")
	}
}

func TestResolveFunctionReturningArrayRejected(t *testing.T) {
	lib := newLibrary()
	arrType := lib.InternArray(lib.IntT(), 4)
	decl := funcDecl(ident("f"))
	if _, err := Resolve(decl, arrType, lib); err == nil {
		t.Fatal("a function returning an array must be rejected")
	}
}

func TestResolveVoidParameterListFoldsToZeroParams(t *testing.T) {
	lib := newLibrary()
	decl := funcDecl(ident("f"), paramDecl("void", nil))
	r, err := Resolve(decl, lib.IntT(), lib)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Type.Params) != 0 {
		t.Fatalf("a (void) parameter list must fold to zero parameters, got %d", len(r.Type.Params))
	}
}

func TestResolveVariadicFunction(t *testing.T) {
	lib := newLibrary()
	decl := funcDecl(ident("f"), paramDecl("int", ident("x")), &ast.Node{Kind: ast.Ellipsis})
	r, err := Resolve(decl, lib.IntT(), lib)
	if err != nil {
		t.Fatal(err)
	}
	if !r.Type.Variadic {
		t.Fatal("a trailing Ellipsis node must mark the function type variadic")
	}
	if len(r.Type.Params) != 1 {
		t.Fatalf("expected exactly one named parameter, got %d", len(r.Type.Params))
	}
}

func TestResolveDuplicateParameterNamesRejected(t *testing.T) {
	lib := newLibrary()
	decl := funcDecl(ident("f"), paramDecl("int", ident("x")), paramDecl("int", ident("x")))
	if _, err := Resolve(decl, lib.IntT(), lib); err == nil {
		t.Fatal("duplicate parameter names must be rejected")
	}
}

func TestResolveFunctionTypedParameterDecaysToPointer(t *testing.T) {
	lib := newLibrary()
	paramFn := funcDecl(ident("cb"))
	decl := funcDecl(ident("f"), paramDecl("int", paramFn))
	r, err := Resolve(decl, lib.IntT(), lib)
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Type.Params) != 1 || r.Type.Params[0].Kind != types.Pointer {
		t.Fatalf("a function-typed parameter must decay to pointer-to-function, got %+v", r.Type.Params)
	}
}

func TestResolveStructTaggedParameter(t *testing.T) {
	lib := newLibrary()
	structSpec := &ast.Node{Kind: ast.DeclarationSpecifiers, Children: []*ast.Node{
		{Kind: ast.StructSpecifier, Data: "point"},
	}}
	p := &ast.Node{Kind: ast.ParameterDeclaration, Children: []*ast.Node{structSpec, ptrTo(ident("p"))}}
	decl := funcDecl(ident("f"), p)
	r, err := Resolve(decl, lib.IntT(), lib)
	if err != nil {
		t.Fatal(err)
	}
	want := lib.InternPointer(lib.InternStruct("point"))
	if len(r.Type.Params) != 1 || r.Type.Params[0] != want {
		t.Fatalf("expected a pointer-to-struct parameter, got %+v", r.Type.Params)
	}
}

func TestIdentifierWalkFindsBoundNameThroughLayers(t *testing.T) {
	decl := funcDecl(ptrTo(ident("f")))
	name, err := Identifier(decl)
	if err != nil {
		t.Fatal(err)
	}
	if name != "f" {
		t.Fatalf("Identifier() = %q, want %q", name, "f")
	}
}

func TestIdentifierMissingNameIsError(t *testing.T) {
	if _, err := Identifier(nil); err == nil {
		t.Fatal("an abstract declarator with no identifier must be rejected")
	}
}
