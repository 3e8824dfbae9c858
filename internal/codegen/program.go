// Package codegen lowers a syntax tree (internal/ast) to LLVM textual IR.
//
// It drives tinygo.org/x/go-llvm to build an in-memory module (one
// llvm.Context, one llvm.Builder, one llvm.Module, a dispatch-on-node-kind
// walk) and obtains the ".ll" text via Module.String(), LLVM's own textual
// printer, so the emitted assembly always parses.
package codegen

import (
	"fmt"

	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"

	"cllvm/internal/ast"
	"cllvm/internal/state"
	"cllvm/internal/types"
	"cllvm/internal/util"
)

// Options configures one compilation run.
type Options struct {
	ModuleName string
	Verbose    bool
}

// generator bundles the LLVM handles and compiler state one compilation run
// shares across expression/statement/declaration/function lowering.
type generator struct {
	ctx llvm.Context
	b   llvm.Builder
	m   llvm.Module
	cs  *state.Compiler
	lib *types.Library
	opt Options

	// returnTypes recovers the C return type of a function given its
	// llvm.Value header, since llvm.Type alone cannot be mapped back to the
	// richer interned *types.Type (e.g. distinguishing char from _Bool).
	returnTypes map[llvm.Value]*types.Type

	// currentFn is the function currently being lowered, used by
	// expression forms (short-circuit && / ||) that must open new basic
	// blocks without every expression-lowering call threading fn through.
	currentFn llvm.Value
}

// GenModule lowers root (a TranslationUnit node) to LLVM IR text. On a
// semantic error it still returns the accumulated diagnostics so the driver
// can report every problem found, not just the first.
func GenModule(root *ast.Node, opt Options) (string, *util.Diagnostics, error) {
	if root == nil || root.Kind != ast.TranslationUnit {
		return "", nil, errors.New("GenModule requires a TranslationUnit root node")
	}
	if opt.ModuleName == "" {
		opt.ModuleName = "module"
	}

	ctx := llvm.NewContext()
	defer ctx.Dispose()
	b := ctx.NewBuilder()
	defer b.Dispose()
	m := ctx.NewModule(opt.ModuleName)

	lib := types.NewLibrary(ctx)
	cs := state.New(lib)
	g := &generator{ctx: ctx, b: b, m: m, cs: cs, lib: lib, opt: opt, returnTypes: make(map[llvm.Value]*types.Type)}

	for _, child := range root.Children {
		g.genTopLevel(child)
	}

	if opt.Verbose {
		fmt.Println(m.String())
	}

	if cs.Diagnostics.HasErrors() {
		return "", cs.Diagnostics, errors.New("compilation failed")
	}
	return m.String(), cs.Diagnostics, nil
}

// genTopLevel dispatches one direct child of the translation unit.
func (g *generator) genTopLevel(n *ast.Node) {
	switch n.Kind {
	case ast.Declaration, ast.EmptyDeclaration:
		if err := g.genDeclaration(n, false); err != nil {
			g.cs.Diagnostics.Errorf(n.Line, n.Col, "%s", err)
		}
	case ast.FunctionDefinition:
		if err := g.genFunctionDefinition(n); err != nil {
			g.cs.Diagnostics.Errorf(n.Line, n.Col, "%s", err)
		}
	default:
		g.cs.Diagnostics.Errorf(n.Line, n.Col, "unexpected top-level node %s", n.Kind)
	}
}
