// stmt.go lowers statements and structured control flow to basic blocks:
// if/while/do/for/switch/break/continue/return, with one block per branch
// target and a human-readable label per structured construct.
package codegen

import (
	"fmt"

	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"

	"cllvm/internal/ast"
	"cllvm/internal/state"
	"cllvm/internal/types"
)

// genStatement lowers one statement node, returning whether the current
// basic block was left terminated (ended in a branch/return) so callers
// know whether a fallthrough branch is still needed.
func (g *generator) genStatement(n *ast.Node, fn llvm.Value) (bool, error) {
	switch n.Kind {
	case ast.CompoundStatement:
		return g.genCompound(n, fn)
	case ast.Declaration, ast.EmptyDeclaration:
		if err := g.genDeclaration(n, true); err != nil {
			return false, err
		}
		return false, nil
	case ast.ExpressionStatement:
		if _, err := g.lowerExpr(n.Child(0)); err != nil {
			return false, err
		}
		g.cs.DiscardResult()
		return false, nil
	case ast.NullStatement:
		return false, nil
	case ast.IfStatement:
		return g.genIf(n, fn)
	case ast.WhileStatement:
		return g.genWhile(n, fn)
	case ast.DoStatement:
		return g.genDo(n, fn)
	case ast.ForStatement:
		return g.genFor(n, fn)
	case ast.SwitchStatement:
		return g.genSwitch(n, fn)
	case ast.BreakStatement:
		target, err := g.cs.BreakTarget()
		if err != nil {
			return false, err
		}
		g.b.CreateBr(target)
		return true, nil
	case ast.ContinueStatement:
		target, err := g.cs.ContinueTarget()
		if err != nil {
			return false, err
		}
		g.b.CreateBr(target)
		return true, nil
	case ast.ReturnStatement:
		return g.genReturn(n, fn)
	}
	return false, errors.Errorf("unsupported statement %s", n.Kind)
}

// genCompound lowers an ordinary (non-switch) block: a fresh scope over a
// flat sequence of statements. Any statement reached after a terminator
// (dead code with no case/default label to receive control) gets its own
// unreachable block so every block keeps exactly one terminator. A failing
// statement is recorded at its own position and lowering continues with
// its siblings, so one run reports every problem it can find.
func (g *generator) genCompound(n *ast.Node, fn llvm.Value) (bool, error) {
	g.cs.EnterBlock()
	terminated := false
	for _, c := range n.Children {
		if terminated {
			dead := g.ctx.AddBasicBlock(fn, fmt.Sprintf("unreachable.%d", g.cs.FreshID()))
			g.b.SetInsertPointAtEnd(dead)
			terminated = false
		}
		t, err := g.genStatement(c, fn)
		if err != nil {
			g.cs.Diagnostics.Errorf(c.Line, c.Col, "%s", err)
			g.cs.DiscardResult()
			continue
		}
		terminated = t
	}
	g.cs.LeaveBlock()
	return terminated, nil
}

func (g *generator) genIf(n *ast.Node, fn llvm.Value) (bool, error) {
	condVal, err := g.lowerExprToBool(n.Child(0))
	if err != nil {
		return false, err
	}
	id := g.cs.FreshID()
	thenBB := g.ctx.AddBasicBlock(fn, state.Label("If", id, "True"))
	endBB := g.ctx.AddBasicBlock(fn, state.Label("If", id, "End"))

	elseNode := n.Child(2)
	elseBB := endBB
	if elseNode != nil {
		elseBB = g.ctx.AddBasicBlock(fn, state.Label("If", id, "False"))
	}
	g.b.CreateCondBr(condVal, thenBB, elseBB)

	g.b.SetInsertPointAtEnd(thenBB)
	thenTerm, err := g.genStatement(n.Child(1), fn)
	if err != nil {
		return false, err
	}
	if !thenTerm {
		g.b.CreateBr(endBB)
	}

	elseTerm := false
	if elseNode != nil {
		g.b.SetInsertPointAtEnd(elseBB)
		elseTerm, err = g.genStatement(elseNode, fn)
		if err != nil {
			return false, err
		}
		if !elseTerm {
			g.b.CreateBr(endBB)
		}
	}

	g.b.SetInsertPointAtEnd(endBB)
	return elseNode != nil && thenTerm && elseTerm, nil
}

func (g *generator) genWhile(n *ast.Node, fn llvm.Value) (bool, error) {
	id := g.cs.FreshID()
	testBB := g.ctx.AddBasicBlock(fn, state.Label("While", id, "Test"))
	bodyBB := g.ctx.AddBasicBlock(fn, state.Label("While", id, "Body"))
	endBB := g.ctx.AddBasicBlock(fn, state.Label("While", id, "End"))

	g.b.CreateBr(testBB)
	g.b.SetInsertPointAtEnd(testBB)
	condVal, err := g.lowerExprToBool(n.Child(0))
	if err != nil {
		return false, err
	}
	g.b.CreateCondBr(condVal, bodyBB, endBB)

	g.b.SetInsertPointAtEnd(bodyBB)
	g.cs.EnterLoop(endBB, testBB)
	bodyTerm, err := g.genStatement(n.Child(1), fn)
	g.cs.LeaveLoop()
	if err != nil {
		return false, err
	}
	if !bodyTerm {
		g.b.CreateBr(testBB)
	}

	g.b.SetInsertPointAtEnd(endBB)
	return false, nil
}

func (g *generator) genDo(n *ast.Node, fn llvm.Value) (bool, error) {
	id := g.cs.FreshID()
	bodyBB := g.ctx.AddBasicBlock(fn, state.Label("Do", id, "Body"))
	testBB := g.ctx.AddBasicBlock(fn, state.Label("Do", id, "Test"))
	endBB := g.ctx.AddBasicBlock(fn, state.Label("Do", id, "End"))

	g.b.CreateBr(bodyBB)
	g.b.SetInsertPointAtEnd(bodyBB)
	g.cs.EnterLoop(endBB, testBB)
	bodyTerm, err := g.genStatement(n.Child(0), fn)
	g.cs.LeaveLoop()
	if err != nil {
		return false, err
	}
	if !bodyTerm {
		g.b.CreateBr(testBB)
	}

	g.b.SetInsertPointAtEnd(testBB)
	condVal, err := g.lowerExprToBool(n.Child(1))
	if err != nil {
		return false, err
	}
	g.b.CreateCondBr(condVal, bodyBB, endBB)

	g.b.SetInsertPointAtEnd(endBB)
	return false, nil
}

// genFor lowers a for statement. Children are always [init, cond, post,
// body] with nil entries marking an omitted clause; an omitted condition
// behaves as always-true.
func (g *generator) genFor(n *ast.Node, fn llvm.Value) (bool, error) {
	g.cs.EnterBlock()
	defer g.cs.LeaveBlock()

	if init := n.Child(0); init != nil {
		if _, err := g.genStatement(init, fn); err != nil {
			return false, err
		}
	}

	id := g.cs.FreshID()
	testBB := g.ctx.AddBasicBlock(fn, state.Label("For", id, "Test"))
	bodyBB := g.ctx.AddBasicBlock(fn, state.Label("For", id, "Body"))
	incBB := g.ctx.AddBasicBlock(fn, state.Label("For", id, "Inc"))
	endBB := g.ctx.AddBasicBlock(fn, state.Label("For", id, "End"))

	g.b.CreateBr(testBB)
	g.b.SetInsertPointAtEnd(testBB)
	if cond := n.Child(1); cond != nil {
		condVal, err := g.lowerExprToBool(cond)
		if err != nil {
			return false, err
		}
		g.b.CreateCondBr(condVal, bodyBB, endBB)
	} else {
		g.b.CreateBr(bodyBB)
	}

	g.b.SetInsertPointAtEnd(bodyBB)
	g.cs.EnterLoop(endBB, incBB)
	bodyTerm, err := g.genStatement(n.Child(3), fn)
	g.cs.LeaveLoop()
	if err != nil {
		return false, err
	}
	if !bodyTerm {
		g.b.CreateBr(incBB)
	}

	g.b.SetInsertPointAtEnd(incBB)
	if post := n.Child(2); post != nil {
		if _, err := g.lowerExpr(post); err != nil {
			return false, err
		}
		g.cs.DiscardResult()
	}
	g.b.CreateBr(testBB)

	g.b.SetInsertPointAtEnd(endBB)
	return false, nil
}

// genSwitch lowers a switch statement. The body must be a compound
// statement whose direct children may include CaseLabel/DefaultLabel
// markers; their target blocks are pre-created before the body is walked so
// the `switch` instruction's jump table can be built up front.
func (g *generator) genSwitch(n *ast.Node, fn llvm.Value) (bool, error) {
	body := n.Child(1)
	if body == nil || body.Kind != ast.CompoundStatement {
		return false, errors.New("switch body must be a compound statement")
	}

	selResult, err := g.lowerExpr(n.Child(0))
	if err != nil {
		return false, err
	}
	if !selResult.Type.IsInteger() {
		return false, errors.New("switch selector must have integer type")
	}
	selVal, err := g.lib.Cast(g.b, selResult.Value, selResult.Type, g.lib.IntT())
	if err != nil {
		return false, err
	}

	id := g.cs.FreshID()
	endBB := g.ctx.AddBasicBlock(fn, state.Label("Switch", id, "End"))

	blocks := make(map[*ast.Node]llvm.BasicBlock)
	var cases []state.CaseEntry
	seen := make(map[int64]bool)
	defaultSeen := false
	defaultBB := endBB
	for _, c := range body.Children {
		switch c.Kind {
		case ast.CaseLabel:
			val, err := g.constIntOf(c.Child(0))
			if err != nil {
				return false, err
			}
			if seen[val] {
				return false, errors.Errorf("duplicate case value %d", val)
			}
			seen[val] = true
			bb := g.ctx.AddBasicBlock(fn, state.Label("Switch", id, fmt.Sprintf("Case%d", val)))
			blocks[c] = bb
			cases = append(cases, state.CaseEntry{Value: val, Block: bb})
		case ast.DefaultLabel:
			if defaultSeen {
				return false, errors.New("multiple default labels in one switch")
			}
			defaultSeen = true
			defaultBB = g.ctx.AddBasicBlock(fn, state.Label("Switch", id, "Default"))
			blocks[c] = defaultBB
		}
	}

	swInst := g.b.CreateSwitch(selVal, defaultBB, len(cases))
	intT := g.lib.LLVM(g.lib.IntT())
	for _, ce := range cases {
		swInst.AddCase(llvm.ConstInt(intT, uint64(ce.Value), false), ce.Block)
	}

	sw := g.cs.EnterSwitch(endBB, id)
	sw.Cases = cases
	sw.DefaultBlock = defaultBB
	sw.DefaultSeen = defaultSeen

	bodyTerm, err := g.genSwitchBody(body, fn, blocks)
	g.cs.LeaveSwitch()
	if err != nil {
		return false, err
	}
	if !bodyTerm {
		g.b.CreateBr(endBB)
	}

	g.b.SetInsertPointAtEnd(endBB)
	return false, nil
}

// genSwitchBody walks a switch's direct statement sequence. Unlike
// genCompound it starts "terminated" (the switch instruction itself just
// terminated the current block), so the very first statement must either be
// a case/default label or dead code needing its own block. Failing
// statements are recorded and skipped the same way genCompound does.
func (g *generator) genSwitchBody(body *ast.Node, fn llvm.Value, blocks map[*ast.Node]llvm.BasicBlock) (bool, error) {
	g.cs.EnterBlock()
	terminated := true
	for _, c := range body.Children {
		if c.Kind == ast.CaseLabel || c.Kind == ast.DefaultLabel {
			target := blocks[c]
			if !terminated {
				g.b.CreateBr(target)
			}
			g.b.SetInsertPointAtEnd(target)
			terminated = false
			continue
		}
		if terminated {
			dead := g.ctx.AddBasicBlock(fn, fmt.Sprintf("unreachable.%d", g.cs.FreshID()))
			g.b.SetInsertPointAtEnd(dead)
			terminated = false
		}
		t, err := g.genStatement(c, fn)
		if err != nil {
			g.cs.Diagnostics.Errorf(c.Line, c.Col, "%s", err)
			g.cs.DiscardResult()
			continue
		}
		terminated = t
	}
	g.cs.LeaveBlock()
	return terminated, nil
}

// constIntOf evaluates n, which must fold to a compile-time integer
// constant (required of `case` labels).
func (g *generator) constIntOf(n *ast.Node) (int64, error) {
	r, err := g.lowerExpr(n)
	if err != nil {
		return 0, err
	}
	g.cs.DiscardResult()
	if !r.Constant || !r.Type.IsInteger() {
		return 0, errors.Errorf("expected a constant integer expression")
	}
	return r.ConstInt, nil
}

func (g *generator) genReturn(n *ast.Node, fn llvm.Value) (bool, error) {
	retType := g.currentFunctionReturnType(fn)
	operand := n.Child(0)
	if retType.Kind == types.Void {
		if operand != nil {
			return false, errors.New("void function may not return a value")
		}
		g.b.CreateRetVoid()
		return true, nil
	}
	if operand == nil {
		return false, errors.Errorf("non-void function must return a value")
	}
	r, err := g.lowerExpr(operand)
	if err != nil {
		return false, err
	}
	if r.Type.Kind == types.Pointer && retType.Kind == types.Pointer && r.Type != retType {
		return false, errors.Errorf("cannot return %s where %s is expected", r.Type, retType)
	}
	val, err := g.lib.Cast(g.b, r.Value, r.Type, retType)
	if err != nil {
		return false, err
	}
	g.b.CreateRet(val)
	return true, nil
}

// currentFunctionReturnType returns the C return type that
// genFunctionDefinition recorded for fn before lowering its body.
func (g *generator) currentFunctionReturnType(fn llvm.Value) *types.Type {
	return g.returnTypes[fn]
}
