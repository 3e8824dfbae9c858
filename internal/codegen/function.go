// function.go lowers function definitions: header matching against a prior
// declaration, parameter sealing via the pending-scope mechanism, and the
// missing-return safety net.
package codegen

import (
	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"

	"cllvm/internal/ast"
	"cllvm/internal/declarator"
	"cllvm/internal/state"
	"cllvm/internal/types"
)

// genFunctionDefinition lowers one FunctionDefinition node: specifiers,
// function declarator, and a compound-statement body.
func (g *generator) genFunctionDefinition(n *ast.Node) error {
	base, err := g.resolveSpecifiers(n.Child(0))
	if err != nil {
		return err
	}
	declNode := n.Child(1)
	body := n.Child(2)

	r, err := declarator.Resolve(declNode, base, g.lib)
	if err != nil {
		return err
	}
	if r.Type.Kind != types.Function {
		return errors.New("function definition requires a function declarator")
	}

	v, ok := g.cs.Lookup(r.Name)
	if ok {
		if v.Type != r.Type {
			return errors.Errorf("conflicting definition of %q: %s vs %s", r.Name, v.Type, r.Type)
		}
		if v.Defined {
			return errors.Errorf("redefinition of function %q", r.Name)
		}
	} else {
		fn := g.m.AddFunction(r.Name, g.lib.LLVM(r.Type))
		v = &state.Variable{Name: r.Name, Type: r.Type, Storage: "@" + r.Name, Ptr: fn, IsGlobal: true}
		if err := g.cs.Declare(r.Name, v); err != nil {
			return err
		}
	}
	v.Defined = true
	fn := v.Ptr
	g.returnTypes[fn] = r.Type.Elem
	g.currentFn = fn

	entry := g.ctx.AddBasicBlock(fn, "entry")
	g.b.SetInsertPointAtEnd(entry)

	pending := make(map[string]*state.Variable, len(r.ParamNames))
	for i, paramType := range r.Type.Params {
		if i >= len(r.ParamNames) || r.ParamNames[i] == "" {
			continue
		}
		paramName := r.ParamNames[i]
		name := g.cs.FreshVar(paramName)
		ptr := g.b.CreateAlloca(g.lib.LLVM(paramType), name)
		g.b.CreateStore(fn.Param(i), ptr)
		pending[paramName] = &state.Variable{Name: paramName, Type: paramType, Storage: "%" + name, Ptr: ptr}
	}
	g.cs.SetPendingScope(pending)

	terminated, err := g.genStatement(body, fn)
	if err != nil {
		return err
	}
	if !terminated {
		if r.Type.Elem.Kind == types.Void {
			g.b.CreateRetVoid()
		} else {
			g.cs.Diagnostics.Warnf(n.Line, n.Col, "control reaches end of non-void function %q", r.Name)
			g.b.CreateRet(llvm.Undef(g.lib.LLVM(r.Type.Elem)))
		}
	}
	return nil
}
