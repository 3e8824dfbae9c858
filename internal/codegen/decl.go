// decl.go lowers declarations: variables, function prototypes, and struct
// type definitions. Locals allocate with alloca, file-scope variables
// become module globals with a zero initializer.
package codegen

import (
	"github.com/pkg/errors"

	"cllvm/internal/ast"
	"cllvm/internal/declarator"
	"cllvm/internal/state"
	"cllvm/internal/types"
)

// genDeclaration lowers a Declaration (or EmptyDeclaration) node: one
// specifier shared by zero or more comma-separated declarators.
func (g *generator) genDeclaration(n *ast.Node, isLocal bool) error {
	base, err := g.resolveSpecifiers(n.Child(0))
	if err != nil {
		return err
	}
	for _, declNode := range n.Children[1:] {
		r, err := declarator.Resolve(declNode, base, g.lib)
		if err != nil {
			return err
		}
		if r.Name == "" {
			return errors.New("declarator requires an identifier")
		}
		if r.Type.Kind == types.Function {
			if err := g.declareFunction(r); err != nil {
				return err
			}
			continue
		}
		if err := g.declareVariable(r, isLocal); err != nil {
			return err
		}
	}
	return nil
}

// declareFunction registers (and, if not already present, emits a
// `declare`/function header for) a function prototype.
func (g *generator) declareFunction(r declarator.Resolved) error {
	if existing, ok := g.cs.Lookup(r.Name); ok {
		if existing.Type != r.Type {
			return errors.Errorf("conflicting declaration of %q: %s vs %s", r.Name, existing.Type, r.Type)
		}
		return nil
	}
	if !g.cs.IsGlobal() {
		return errors.Errorf("function %q may not be declared in block scope", r.Name)
	}
	fn := g.m.AddFunction(r.Name, g.lib.LLVM(r.Type))
	v := &state.Variable{Name: r.Name, Type: r.Type, Storage: "@" + r.Name, Ptr: fn, IsGlobal: true}
	return g.cs.Declare(r.Name, v)
}

// declareVariable registers a data variable, choosing alloca-in-entry-block
// storage for locals and a module-level global for file-scope variables.
func (g *generator) declareVariable(r declarator.Resolved, isLocal bool) error {
	if t := storageElem(r.Type); t.Kind == types.Struct && !t.Complete {
		return errors.Errorf("variable %q has incomplete type %s", r.Name, t)
	}
	llvmType := g.lib.LLVM(r.Type)
	if isLocal {
		name := g.cs.FreshVar(r.Name)
		ptr := g.b.CreateAlloca(llvmType, name)
		v := &state.Variable{Name: r.Name, Type: r.Type, Storage: "%" + name, Ptr: ptr}
		return g.cs.Declare(r.Name, v)
	}
	global := g.m.AddGlobal(llvmType, r.Name)
	global.SetInitializer(g.lib.DefaultValue(r.Type))
	v := &state.Variable{Name: r.Name, Type: r.Type, Storage: "@" + r.Name, Ptr: global, IsGlobal: true}
	return g.cs.Declare(r.Name, v)
}

// storageElem strips array layers to the type whose storage an allocation
// of t ultimately reserves (pointers to incomplete structs are fine; arrays
// of them are not).
func storageElem(t *types.Type) *types.Type {
	for t.Kind == types.Array {
		t = t.Elem
	}
	return t
}

// resolveSpecifiers resolves a DeclarationSpecifiers node to a type, either
// a named builtin or an (optionally defining) struct specifier.
func (g *generator) resolveSpecifiers(n *ast.Node) (*types.Type, error) {
	if n == nil {
		return nil, errors.New("missing declaration specifiers")
	}
	if s := n.Child(0); s != nil && s.Kind == ast.StructSpecifier {
		return g.resolveStruct(s)
	}
	return g.lib.Get(n.Text())
}

// resolveStruct resolves (and, if a member list is present, completes) a
// struct specifier: a struct may be forward-referenced by tag any number
// of times but completed at most once.
func (g *generator) resolveStruct(n *ast.Node) (*types.Type, error) {
	tag := n.Text()
	if tag == "" {
		tag = g.lib.AnonymousTag()
	}
	t := g.lib.InternStruct(tag)
	if list := n.Child(0); list != nil {
		members, err := g.resolveStructMembers(list)
		if err != nil {
			return nil, err
		}
		if err := g.lib.CompleteStruct(t, members); err != nil {
			return nil, err
		}
	}
	return t, nil
}

// resolveStructMembers resolves a StructDeclarationList's members in
// declaration order, rejecting members of incomplete struct type.
func (g *generator) resolveStructMembers(n *ast.Node) ([]types.Member, error) {
	var members []types.Member
	for _, m := range n.Children {
		base, err := g.resolveSpecifiers(m.Child(0))
		if err != nil {
			return nil, err
		}
		for _, declNode := range m.Children[1:] {
			r, err := declarator.Resolve(declNode, base, g.lib)
			if err != nil {
				return nil, err
			}
			if r.Type.Kind == types.Struct && !r.Type.Complete {
				return nil, errors.Errorf("member %q has incomplete struct type", r.Name)
			}
			members = append(members, types.Member{Name: r.Name, Type: r.Type})
		}
	}
	return members, nil
}
