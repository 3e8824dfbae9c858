// expr.go lowers expressions to LLVM IR values. Every lowering returns a
// Result carrying the rvalue, its type, and (for lvalues) the storage
// pointer through which assignment and address-of reach the location.
package codegen

import (
	"fmt"

	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"

	"cllvm/internal/ast"
	"cllvm/internal/declarator"
	"cllvm/internal/state"
	"cllvm/internal/types"
)

// lowerExpr lowers n and returns its result. It routes the value through
// the compiler's single-slot result channel (PushResult/PopResult) to keep
// the write-once/read-once discipline observable, even though the Go
// return value is what callers actually use.
func (g *generator) lowerExpr(n *ast.Node) (state.Result, error) {
	r, err := g.lowerExprInner(n)
	if err != nil {
		return state.Result{}, err
	}
	g.cs.PushResult(r)
	return g.cs.PopResult(), nil
}

// lowerExprToBool lowers n and casts the result to a one-bit i1 condition.
func (g *generator) lowerExprToBool(n *ast.Node) (llvm.Value, error) {
	r, err := g.lowerExpr(n)
	if err != nil {
		return llvm.Value{}, err
	}
	if !r.Type.IsScalar() {
		return llvm.Value{}, errors.Errorf("controlling expression of type %s is not scalar", r.Type)
	}
	return g.toCondition(r)
}

// toCondition produces an i1 value from an already-lowered scalar result.
func (g *generator) toCondition(r state.Result) (llvm.Value, error) {
	if r.Type.Kind == types.Bool {
		return r.Value, nil
	}
	v, err := g.lib.Cast(g.b, r.Value, r.Type, g.lib.BoolT())
	if err != nil {
		return llvm.Value{}, err
	}
	return v, nil
}

func (g *generator) lowerExprInner(n *ast.Node) (state.Result, error) {
	switch n.Kind {
	case ast.CommaExpr:
		return g.genComma(n)
	case ast.AssignExpr:
		return g.genAssign(n)
	case ast.CompoundAssignExpr:
		return g.genCompoundAssign(n)
	case ast.LogicalOrExpr:
		return g.genLogical(n, false)
	case ast.LogicalAndExpr:
		return g.genLogical(n, true)
	case ast.BitOrExpr, ast.BitXorExpr, ast.BitAndExpr, ast.EqualityExpr,
		ast.RelationalExpr, ast.ShiftExpr, ast.AdditiveExpr, ast.MultiplicativeExpr:
		return g.genBinary(n)
	case ast.CastExpr:
		return g.genCast(n)
	case ast.UnaryExpr:
		return g.genUnary(n)
	case ast.AddressOfExpr:
		return g.genAddressOf(n)
	case ast.DereferenceExpr:
		return g.genDereference(n)
	case ast.CallExpr:
		return g.genCall(n)
	case ast.MemberExpr:
		return g.genMember(n)
	case ast.IndexExpr:
		return g.genIndex(n)
	case ast.IdentifierExpr:
		return g.genIdentifier(n)
	case ast.IntegerLiteral:
		return g.genIntegerLiteral(n)
	case ast.FloatLiteral:
		return g.genFloatLiteral(n)
	case ast.CharLiteral:
		return g.genCharLiteral(n)
	case ast.StringLiteral:
		return g.genStringLiteral(n)
	}
	return state.Result{}, errors.Errorf("unsupported expression %s", n.Kind)
}

// genComma evaluates both operands in order, discarding the left result.
func (g *generator) genComma(n *ast.Node) (state.Result, error) {
	left, err := g.lowerExpr(n.Child(0))
	if err != nil {
		return state.Result{}, err
	}
	_ = left
	g.cs.DiscardResult()
	return g.lowerExpr(n.Child(1))
}

// genAssign lowers `lhs = rhs`: lhs must be an lvalue, rhs is cast to its
// type and stored; the result of the expression is the stored rvalue.
func (g *generator) genAssign(n *ast.Node) (state.Result, error) {
	lhs, err := g.lowerExpr(n.Child(0))
	if err != nil {
		return state.Result{}, err
	}
	if !lhs.HasPointer {
		return state.Result{}, errors.New("left-hand side of assignment is not an lvalue")
	}
	rhs, err := g.lowerExpr(n.Child(1))
	if err != nil {
		return state.Result{}, err
	}
	val, err := g.castResult(rhs, lhs.Type)
	if err != nil {
		return state.Result{}, err
	}
	g.b.CreateStore(val, lhs.Pointer)
	return state.Result{Value: val, Type: lhs.Type}, nil
}

// genCompoundAssign lowers `lhs OP= rhs` as `lhs = lhs OP rhs`, reusing the
// lvalue computed for lhs so it is evaluated exactly once.
func (g *generator) genCompoundAssign(n *ast.Node) (state.Result, error) {
	lhs, err := g.lowerExpr(n.Child(0))
	if err != nil {
		return state.Result{}, err
	}
	if !lhs.HasPointer {
		return state.Result{}, errors.New("left-hand side of compound assignment is not an lvalue")
	}
	rhs, err := g.lowerExpr(n.Child(1))
	if err != nil {
		return state.Result{}, err
	}
	op := n.Text()
	combined, err := g.computeBinary(op, lhs, rhs)
	if err != nil {
		return state.Result{}, err
	}
	val, err := g.castResult(combined, lhs.Type)
	if err != nil {
		return state.Result{}, err
	}
	g.b.CreateStore(val, lhs.Pointer)
	return state.Result{Value: val, Type: lhs.Type}, nil
}

// genLogical lowers && and || with short-circuit evaluation: the right
// operand is only evaluated inside a conditionally-reached basic block, and
// a phi node joins the short-circuited constant with the right operand's
// boolean value.
func (g *generator) genLogical(n *ast.Node, isAnd bool) (state.Result, error) {
	lhs, err := g.lowerExpr(n.Child(0))
	if err != nil {
		return state.Result{}, err
	}
	lhsCond, err := g.toCondition(lhs)
	if err != nil {
		return state.Result{}, err
	}
	originBB := g.b.GetInsertBlock()

	id := g.cs.FreshID()
	rhsBB := g.ctx.AddBasicBlock(g.currentFn, state.Label("Logic", id, "Rhs"))
	endBB := g.ctx.AddBasicBlock(g.currentFn, state.Label("Logic", id, "End"))

	if isAnd {
		g.b.CreateCondBr(lhsCond, rhsBB, endBB)
	} else {
		g.b.CreateCondBr(lhsCond, endBB, rhsBB)
	}

	g.b.SetInsertPointAtEnd(rhsBB)
	rhs, err := g.lowerExpr(n.Child(1))
	if err != nil {
		return state.Result{}, err
	}
	rhsCond, err := g.toCondition(rhs)
	if err != nil {
		return state.Result{}, err
	}
	rhsExit := g.b.GetInsertBlock()
	g.b.CreateBr(endBB)

	g.b.SetInsertPointAtEnd(endBB)
	boolT := g.lib.LLVM(g.lib.BoolT())
	phi := g.b.CreatePHI(boolT, g.cs.FreshTemp())
	shortCircuit := llvm.ConstInt(boolT, boolToUint(!isAnd), false)
	phi.AddIncoming([]llvm.Value{shortCircuit, rhsCond}, []llvm.BasicBlock{originBB, rhsExit})

	result := g.b.CreateZExt(phi, g.lib.LLVM(g.lib.IntT()), g.cs.FreshTemp())
	return state.Result{Value: result, Type: g.lib.IntT()}, nil
}

func boolToUint(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// genBinary lowers the arithmetic/relational/bitwise/shift operator forms
// sharing a single computeBinary core.
func (g *generator) genBinary(n *ast.Node) (state.Result, error) {
	lhs, err := g.lowerExpr(n.Child(0))
	if err != nil {
		return state.Result{}, err
	}
	rhs, err := g.lowerExpr(n.Child(1))
	if err != nil {
		return state.Result{}, err
	}
	return g.computeBinary(n.Text(), lhs, rhs)
}

// computeBinary applies one binary operator to two lowered operands:
// pointer arithmetic and shifts are special-cased ahead of the usual
// arithmetic conversions; two constant arithmetic operands fold entirely
// in Go without emitting any IR.
func (g *generator) computeBinary(op string, lhs, rhs state.Result) (state.Result, error) {
	switch {
	case lhs.Type.Kind == types.Pointer && rhs.Type.IsInteger() && (op == "+" || op == "-"):
		return g.pointerArith(op, lhs, rhs)
	case rhs.Type.Kind == types.Pointer && lhs.Type.IsInteger() && op == "+":
		return g.pointerArith(op, rhs, lhs)
	case lhs.Type.Kind == types.Pointer && rhs.Type.Kind == types.Pointer && op == "-":
		return g.pointerDiff(lhs, rhs)
	case lhs.Type.Kind == types.Pointer && rhs.Type.Kind == types.Pointer:
		return g.pointerCompare(op, lhs, rhs)
	}

	if !lhs.Type.IsArithmetic() || !rhs.Type.IsArithmetic() {
		return state.Result{}, errors.Errorf("invalid operands to %q: %s and %s", op, lhs.Type, rhs.Type)
	}

	if op == "<<" || op == ">>" {
		if !lhs.Type.IsInteger() || !rhs.Type.IsInteger() {
			return state.Result{}, errors.Errorf("invalid operands to %q: %s and %s", op, lhs.Type, rhs.Type)
		}
		if lhs.Constant && rhs.Constant {
			return g.foldConstant(op, lhs.Type, lhs, rhs)
		}
		return g.shiftOp(op, lhs, rhs)
	}

	common := types.Promote(lhs.Type, rhs.Type)
	if lhs.Constant && rhs.Constant {
		return g.foldConstant(op, common, lhs, rhs)
	}

	lv, err := g.castResult(lhs, common)
	if err != nil {
		return state.Result{}, err
	}
	rv, err := g.castResult(rhs, common)
	if err != nil {
		return state.Result{}, err
	}
	return g.emitBinary(op, common, lv, rv)
}

// castResult casts an already-lowered result to target, returning the bare
// llvm.Value (a Result with no lvalue: casts never produce lvalues).
func (g *generator) castResult(r state.Result, target *types.Type) (llvm.Value, error) {
	return g.lib.Cast(g.b, r.Value, r.Type, target)
}

// pointerArith lowers `ptr +/- int` via a single-index GEP; subtraction
// negates the index first.
func (g *generator) pointerArith(op string, ptr, idx state.Result) (state.Result, error) {
	idxVal, err := g.lib.Cast(g.b, idx.Value, idx.Type, g.lib.IntT())
	if err != nil {
		return state.Result{}, err
	}
	if op == "-" {
		idxVal = g.b.CreateNeg(idxVal, g.cs.FreshTemp())
	}
	v := g.b.CreateGEP(ptr.Value, []llvm.Value{idxVal}, g.cs.FreshTemp())
	return state.Result{Value: v, Type: ptr.Type}, nil
}

// pointerDiff lowers `ptr - ptr` as an element count: the raw address
// difference divided by the pointee's element size, matching C pointer
// subtraction semantics within the same array object.
func (g *generator) pointerDiff(lhs, rhs state.Result) (state.Result, error) {
	if lhs.Type != rhs.Type {
		return state.Result{}, errors.Errorf("cannot subtract %s and %s", lhs.Type, rhs.Type)
	}
	intT := g.lib.LLVM(g.lib.IntT())
	lv := g.b.CreatePtrToInt(lhs.Value, intT, g.cs.FreshTemp())
	rv := g.b.CreatePtrToInt(rhs.Value, intT, g.cs.FreshTemp())
	diff := g.b.CreateSub(lv, rv, g.cs.FreshTemp())
	elemSize := elementSizeBytes(lhs.Type.Elem)
	size := llvm.ConstInt(intT, uint64(elemSize), false)
	result := g.b.CreateSDiv(diff, size, g.cs.FreshTemp())
	return state.Result{Value: result, Type: g.lib.IntT()}, nil
}

// elementSizeBytes returns the in-memory size this compiler's own type
// library assigns t, mirroring the llvmType widths types.Library.LLVM uses.
func elementSizeBytes(t *types.Type) int64 {
	switch t.Kind {
	case types.Char, types.Bool:
		return 1
	case types.Int:
		return 8
	case types.Float:
		return 8
	case types.Pointer:
		return 8
	case types.Array:
		return t.Len * elementSizeBytes(t.Elem)
	}
	return 1
}

// pointerCompare lowers pointer equality/relational comparisons: no
// arithmetic promotion applies, the compared pointers must share a type.
func (g *generator) pointerCompare(op string, lhs, rhs state.Result) (state.Result, error) {
	if lhs.Type != rhs.Type {
		return state.Result{}, errors.Errorf("cannot compare %s and %s", lhs.Type, rhs.Type)
	}
	pred, ok := intPredicates[op]
	if !ok {
		return state.Result{}, errors.Errorf("invalid pointer operator %q", op)
	}
	cmp := g.b.CreateICmp(pred, lhs.Value, rhs.Value, g.cs.FreshTemp())
	result := g.b.CreateZExt(cmp, g.lib.LLVM(g.lib.IntT()), g.cs.FreshTemp())
	return state.Result{Value: result, Type: g.lib.IntT()}, nil
}

// shiftOp lowers << and >>: the shift amount is cast to the left operand's
// type with no further promotion.
func (g *generator) shiftOp(op string, lhs, rhs state.Result) (state.Result, error) {
	shiftAmt, err := g.lib.Cast(g.b, rhs.Value, rhs.Type, lhs.Type)
	if err != nil {
		return state.Result{}, err
	}
	lv := lhs.Value
	var v llvm.Value
	if op == "<<" {
		v = g.b.CreateShl(lv, shiftAmt, g.cs.FreshTemp())
	} else {
		v = g.b.CreateAShr(lv, shiftAmt, g.cs.FreshTemp())
	}
	return state.Result{Value: v, Type: lhs.Type}, nil
}

var intPredicates = map[string]llvm.IntPredicate{
	"==": llvm.IntEQ,
	"!=": llvm.IntNE,
	"<":  llvm.IntSLT,
	"<=": llvm.IntSLE,
	">":  llvm.IntSGT,
	">=": llvm.IntSGE,
}

var floatPredicates = map[string]llvm.FloatPredicate{
	"==": llvm.FloatOEQ,
	"!=": llvm.FloatONE,
	"<":  llvm.FloatOLT,
	"<=": llvm.FloatOLE,
	">":  llvm.FloatOGT,
	">=": llvm.FloatOGE,
}

// foldConstant computes op over two already-promoted constant operands
// entirely in Go, emitting no IR instruction.
func (g *generator) foldConstant(op string, common *types.Type, lhs, rhs state.Result) (state.Result, error) {
	if common.Kind == types.Float {
		a, b := constAsFloat(lhs), constAsFloat(rhs)
		if _, ok := floatPredicates[op]; ok {
			return g.boolConstant(compareFloat(op, a, b)), nil
		}
		f, err := foldFloatOp(op, a, b)
		if err != nil {
			return state.Result{}, err
		}
		return state.Result{Value: llvm.ConstFloat(g.lib.LLVM(common), f), Type: common, Constant: true, ConstFloat: f}, nil
	}

	a, b := constAsInt(lhs), constAsInt(rhs)
	if _, ok := intPredicates[op]; ok {
		return g.boolConstant(compareInt(op, a, b)), nil
	}
	i, err := foldIntOp(op, a, b)
	if err != nil {
		return state.Result{}, err
	}
	return state.Result{Value: llvm.ConstInt(g.lib.LLVM(common), uint64(i), true), Type: common, Constant: true, ConstInt: i}, nil
}

// boolConstant returns the int-typed 0/1 constant result a comparison
// operator yields, matching the "zero-extend the comparison to int" rule
// applied to the non-constant path.
func (g *generator) boolConstant(b bool) state.Result {
	var i int64
	if b {
		i = 1
	}
	return state.Result{Value: llvm.ConstInt(g.lib.LLVM(g.lib.IntT()), uint64(i), true), Type: g.lib.IntT(), Constant: true, ConstInt: i}
}

func constAsFloat(r state.Result) float64 {
	if r.Type.Kind == types.Float {
		return r.ConstFloat
	}
	return float64(r.ConstInt)
}

func constAsInt(r state.Result) int64 {
	return r.ConstInt
}

func foldFloatOp(op string, a, b float64) (float64, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		return a / b, nil
	}
	return 0, errors.Errorf("invalid floating-point operator %q", op)
}

func foldIntOp(op string, a, b int64) (int64, error) {
	switch op {
	case "+":
		return a + b, nil
	case "-":
		return a - b, nil
	case "*":
		return a * b, nil
	case "/":
		if b == 0 {
			return 0, errors.New("division by zero in constant expression")
		}
		return a / b, nil
	case "%":
		if b == 0 {
			return 0, errors.New("division by zero in constant expression")
		}
		return a % b, nil
	case "<<":
		return a << uint(b), nil
	case ">>":
		return a >> uint(b), nil
	case "&":
		return a & b, nil
	case "|":
		return a | b, nil
	case "^":
		return a ^ b, nil
	}
	return 0, errors.Errorf("invalid integer operator %q", op)
}

func compareFloat(op string, a, b float64) bool {
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

func compareInt(op string, a, b int64) bool {
	switch op {
	case "==":
		return a == b
	case "!=":
		return a != b
	case "<":
		return a < b
	case "<=":
		return a <= b
	case ">":
		return a > b
	case ">=":
		return a >= b
	}
	return false
}

// emitBinary emits the IR instruction for a non-constant binary operator
// over two operands already cast to the common type.
func (g *generator) emitBinary(op string, common *types.Type, lv, rv llvm.Value) (state.Result, error) {
	if pred, ok := intPredicates[op]; common.Kind != types.Float && ok {
		cmp := g.b.CreateICmp(pred, lv, rv, g.cs.FreshTemp())
		v := g.b.CreateZExt(cmp, g.lib.LLVM(g.lib.IntT()), g.cs.FreshTemp())
		return state.Result{Value: v, Type: g.lib.IntT()}, nil
	}
	if pred, ok := floatPredicates[op]; common.Kind == types.Float && ok {
		cmp := g.b.CreateFCmp(pred, lv, rv, g.cs.FreshTemp())
		v := g.b.CreateZExt(cmp, g.lib.LLVM(g.lib.IntT()), g.cs.FreshTemp())
		return state.Result{Value: v, Type: g.lib.IntT()}, nil
	}

	name := g.cs.FreshTemp()
	if common.Kind == types.Float {
		var v llvm.Value
		switch op {
		case "+":
			v = g.b.CreateFAdd(lv, rv, name)
		case "-":
			v = g.b.CreateFSub(lv, rv, name)
		case "*":
			v = g.b.CreateFMul(lv, rv, name)
		case "/":
			v = g.b.CreateFDiv(lv, rv, name)
		default:
			return state.Result{}, errors.Errorf("invalid floating-point operator %q", op)
		}
		return state.Result{Value: v, Type: common}, nil
	}

	var v llvm.Value
	switch op {
	case "+":
		v = g.b.CreateAdd(lv, rv, name)
	case "-":
		v = g.b.CreateSub(lv, rv, name)
	case "*":
		v = g.b.CreateMul(lv, rv, name)
	case "/":
		v = g.b.CreateSDiv(lv, rv, name)
	case "%":
		v = g.b.CreateSRem(lv, rv, name)
	case "&":
		v = g.b.CreateAnd(lv, rv, name)
	case "|":
		v = g.b.CreateOr(lv, rv, name)
	case "^":
		v = g.b.CreateXor(lv, rv, name)
	default:
		return state.Result{}, errors.Errorf("invalid integer operator %q", op)
	}
	return state.Result{Value: v, Type: common}, nil
}

// genCast lowers an explicit (T)expr cast. The type name arrives as a
// DeclarationSpecifiers child, optionally followed by an abstract
// declarator wrapping it with pointer/array layers; the operand is the
// last child. Constant operands fold without emitting IR.
func (g *generator) genCast(n *ast.Node) (state.Result, error) {
	target, err := g.resolveSpecifiers(n.Child(0))
	if err != nil {
		return state.Result{}, err
	}
	operand := n.Child(1)
	if len(n.Children) > 2 {
		resolved, rerr := declarator.Resolve(n.Child(1), target, g.lib)
		if rerr != nil {
			return state.Result{}, rerr
		}
		if resolved.Name != "" {
			return state.Result{}, errors.New("cast type name may not declare an identifier")
		}
		target = resolved.Type
		operand = n.Child(2)
	}
	r, err := g.lowerExpr(operand)
	if err != nil {
		return state.Result{}, err
	}
	if r.Constant {
		if folded, ok := g.foldCast(r, target); ok {
			return folded, nil
		}
	}
	val, err := g.castResult(r, target)
	if err != nil {
		return state.Result{}, err
	}
	return state.Result{Value: val, Type: target}, nil
}

// foldCast converts a constant arithmetic operand to target entirely in Go.
// Char narrows modulo 2^8 and bool collapses to 0/1, matching what the
// emitted trunc/icmp would compute at run time.
func (g *generator) foldCast(r state.Result, target *types.Type) (state.Result, bool) {
	if !types.Convertible(r.Type, target) {
		return state.Result{}, false
	}
	switch target.Kind {
	case types.Float:
		f := constAsFloat(r)
		return state.Result{Value: llvm.ConstFloat(g.lib.LLVM(target), f), Type: target, Constant: true, ConstFloat: f}, true
	case types.Int, types.Char, types.Bool:
		var i int64
		if r.Type.Kind == types.Float {
			i = int64(r.ConstFloat)
		} else {
			i = r.ConstInt
		}
		switch target.Kind {
		case types.Char:
			i = int64(int8(i))
		case types.Bool:
			if i != 0 {
				i = 1
			}
		}
		return state.Result{Value: llvm.ConstInt(g.lib.LLVM(target), uint64(i), true), Type: target, Constant: true, ConstInt: i}, true
	}
	return state.Result{}, false
}

// genUnary lowers -, +, ~, and !, dispatching on the operator token.
func (g *generator) genUnary(n *ast.Node) (state.Result, error) {
	r, err := g.lowerExpr(n.Child(0))
	if err != nil {
		return state.Result{}, err
	}
	switch n.Text() {
	case "+":
		if !r.Type.IsArithmetic() {
			return state.Result{}, errors.Errorf("invalid operand to unary +: %s", r.Type)
		}
		return r, nil
	case "-":
		if !r.Type.IsArithmetic() {
			return state.Result{}, errors.Errorf("invalid operand to unary -: %s", r.Type)
		}
		if r.Constant {
			if r.Type.Kind == types.Float {
				f := -r.ConstFloat
				return state.Result{Value: llvm.ConstFloat(g.lib.LLVM(r.Type), f), Type: r.Type, Constant: true, ConstFloat: f}, nil
			}
			i := -r.ConstInt
			return state.Result{Value: llvm.ConstInt(g.lib.LLVM(r.Type), uint64(i), true), Type: r.Type, Constant: true, ConstInt: i}, nil
		}
		if r.Type.Kind == types.Float {
			minusOne := llvm.ConstFloat(g.lib.LLVM(r.Type), -1)
			return state.Result{Value: g.b.CreateFMul(r.Value, minusOne, g.cs.FreshTemp()), Type: r.Type}, nil
		}
		minusOne := llvm.ConstInt(g.lib.LLVM(r.Type), ^uint64(0), true)
		return state.Result{Value: g.b.CreateMul(r.Value, minusOne, g.cs.FreshTemp()), Type: r.Type}, nil
	case "~":
		if !r.Type.IsInteger() {
			return state.Result{}, errors.Errorf("invalid operand to ~: %s", r.Type)
		}
		if r.Constant {
			i := ^r.ConstInt
			return state.Result{Value: llvm.ConstInt(g.lib.LLVM(r.Type), uint64(i), true), Type: r.Type, Constant: true, ConstInt: i}, nil
		}
		return state.Result{Value: g.b.CreateNot(r.Value, g.cs.FreshTemp()), Type: r.Type}, nil
	case "!":
		cond, err := g.toCondition(r)
		if err != nil {
			return state.Result{}, err
		}
		notCond := g.b.CreateNot(cond, g.cs.FreshTemp())
		v := g.b.CreateZExt(notCond, g.lib.LLVM(g.lib.IntT()), g.cs.FreshTemp())
		return state.Result{Value: v, Type: g.lib.IntT()}, nil
	}
	return state.Result{}, errors.Errorf("unsupported unary operator %q", n.Text())
}

// genAddressOf lowers &expr: expr must be an lvalue, the result is its
// storage address with no lvalue of its own.
func (g *generator) genAddressOf(n *ast.Node) (state.Result, error) {
	r, err := g.lowerExpr(n.Child(0))
	if err != nil {
		return state.Result{}, err
	}
	if !r.HasPointer {
		return state.Result{}, errors.New("cannot take the address of a non-lvalue")
	}
	return state.Result{Value: r.Pointer, Type: g.lib.InternPointer(r.Type)}, nil
}

// genDereference lowers *expr: expr must be pointer-typed; the result is an
// lvalue whose storage is the pointer's value itself.
func (g *generator) genDereference(n *ast.Node) (state.Result, error) {
	r, err := g.lowerExpr(n.Child(0))
	if err != nil {
		return state.Result{}, err
	}
	if r.Type.Kind != types.Pointer {
		return state.Result{}, errors.Errorf("cannot dereference non-pointer type %s", r.Type)
	}
	elem := r.Type.Elem
	if elem.Kind == types.Array {
		decayed := g.b.CreateGEP(r.Value, []llvm.Value{
			llvm.ConstInt(g.lib.LLVM(g.lib.IntT()), 0, false),
			llvm.ConstInt(g.lib.LLVM(g.lib.IntT()), 0, false),
		}, g.cs.FreshTemp())
		return state.Result{Value: decayed, Type: g.lib.InternPointer(elem.Elem)}, nil
	}
	loaded := g.b.CreateLoad(r.Value, g.cs.FreshTemp())
	return state.Result{Value: loaded, Type: elem, Pointer: r.Value, HasPointer: true}, nil
}

// genCall lowers f(args...): each argument is cast to its declared
// parameter type; trailing variadic arguments pass through unconverted.
func (g *generator) genCall(n *ast.Node) (state.Result, error) {
	callee, err := g.lowerExpr(n.Child(0))
	if err != nil {
		return state.Result{}, err
	}
	fnType := callee.Type
	if fnType.Kind == types.Pointer {
		fnType = fnType.Elem
	}
	if fnType.Kind != types.Function {
		return state.Result{}, errors.Errorf("cannot call non-function type %s", callee.Type)
	}

	argNodes := n.Children[1:]
	if len(argNodes) < len(fnType.Params) || (!fnType.Variadic && len(argNodes) > len(fnType.Params)) {
		return state.Result{}, errors.Errorf("call to function expects %d argument(s), got %d", len(fnType.Params), len(argNodes))
	}

	args := make([]llvm.Value, len(argNodes))
	for i, an := range argNodes {
		ar, err := g.lowerExpr(an)
		if err != nil {
			return state.Result{}, err
		}
		if i < len(fnType.Params) {
			v, err := g.castResult(ar, fnType.Params[i])
			if err != nil {
				return state.Result{}, err
			}
			args[i] = v
		} else {
			args[i] = ar.Value
		}
	}

	name := ""
	if fnType.Elem.Kind != types.Void {
		name = g.cs.FreshTemp()
	}
	v := g.b.CreateCall(callee.Value, args, name)
	return state.Result{Value: v, Type: fnType.Elem}, nil
}

// genMember lowers expr.field. A pointer-backed struct value is indexed in
// place (CreateStructGEP + load); a pure rvalue struct is taken apart with
// CreateExtractValue and yields no lvalue.
func (g *generator) genMember(n *ast.Node) (state.Result, error) {
	base, err := g.lowerExpr(n.Child(0))
	if err != nil {
		return state.Result{}, err
	}
	if base.Type.Kind != types.Struct {
		return state.Result{}, errors.Errorf("member access on non-struct type %s", base.Type)
	}
	idx, memberType, err := base.Type.Member(n.Text())
	if err != nil {
		return state.Result{}, err
	}
	if base.HasPointer {
		ptr := g.b.CreateStructGEP(base.Pointer, idx, g.cs.FreshTemp())
		loaded := g.b.CreateLoad(ptr, g.cs.FreshTemp())
		return state.Result{Value: loaded, Type: memberType, Pointer: ptr, HasPointer: true}, nil
	}
	v := g.b.CreateExtractValue(base.Value, idx, g.cs.FreshTemp())
	return state.Result{Value: v, Type: memberType}, nil
}

// genIndex lowers base[idx]. genIdentifier already decays an array-typed
// base to a pointer to its first element, so indexing is always a single
// GEP over a pointer value, matching ordinary C pointer arithmetic.
func (g *generator) genIndex(n *ast.Node) (state.Result, error) {
	base, err := g.lowerExpr(n.Child(0))
	if err != nil {
		return state.Result{}, err
	}
	if base.Type.Kind != types.Pointer {
		return state.Result{}, errors.Errorf("cannot index non-pointer type %s", base.Type)
	}
	idxResult, err := g.lowerExpr(n.Child(1))
	if err != nil {
		return state.Result{}, err
	}
	idxVal, err := g.lib.Cast(g.b, idxResult.Value, idxResult.Type, g.lib.IntT())
	if err != nil {
		return state.Result{}, err
	}
	ptr := g.b.CreateGEP(base.Value, []llvm.Value{idxVal}, g.cs.FreshTemp())
	elem := base.Type.Elem
	if elem.Kind == types.Array {
		decayed := g.b.CreateGEP(ptr, []llvm.Value{
			llvm.ConstInt(g.lib.LLVM(g.lib.IntT()), 0, false),
			llvm.ConstInt(g.lib.LLVM(g.lib.IntT()), 0, false),
		}, g.cs.FreshTemp())
		return state.Result{Value: decayed, Type: g.lib.InternPointer(elem.Elem)}, nil
	}
	loaded := g.b.CreateLoad(ptr, g.cs.FreshTemp())
	return state.Result{Value: loaded, Type: elem, Pointer: ptr, HasPointer: true}, nil
}

// genIdentifier looks up a bound name. Array-typed variables decay to a
// pointer to their first element (no lvalue of the decayed pointer itself);
// function-typed variables yield their own address as both value and
// pointer, since calling code only ever reads the value; everything else is
// an ordinary lvalue load.
func (g *generator) genIdentifier(n *ast.Node) (state.Result, error) {
	v, ok := g.cs.Lookup(n.Text())
	if !ok {
		return state.Result{}, errors.Errorf("undeclared identifier %q", n.Text())
	}
	switch v.Type.Kind {
	case types.Array:
		decayed := g.b.CreateGEP(v.Ptr, []llvm.Value{
			llvm.ConstInt(g.lib.LLVM(g.lib.IntT()), 0, false),
			llvm.ConstInt(g.lib.LLVM(g.lib.IntT()), 0, false),
		}, g.cs.FreshTemp())
		return state.Result{Value: decayed, Type: g.lib.InternPointer(v.Type.Elem)}, nil
	case types.Function:
		return state.Result{Value: v.Ptr, Type: v.Type, Pointer: v.Ptr, HasPointer: true}, nil
	}
	loaded := g.b.CreateLoad(v.Ptr, g.cs.FreshTemp())
	return state.Result{Value: loaded, Type: v.Type, Pointer: v.Ptr, HasPointer: true}, nil
}

func (g *generator) genIntegerLiteral(n *ast.Node) (state.Result, error) {
	i, ok := n.Data.(int64)
	if !ok {
		return state.Result{}, errors.New("integer literal missing value")
	}
	t := g.lib.IntT()
	return state.Result{Value: llvm.ConstInt(g.lib.LLVM(t), uint64(i), true), Type: t, Constant: true, ConstInt: i}, nil
}

func (g *generator) genFloatLiteral(n *ast.Node) (state.Result, error) {
	f, ok := n.Data.(float64)
	if !ok {
		return state.Result{}, errors.New("floating-point literal missing value")
	}
	t := g.lib.FloatT()
	return state.Result{Value: llvm.ConstFloat(g.lib.LLVM(t), f), Type: t, Constant: true, ConstFloat: f}, nil
}

func (g *generator) genCharLiteral(n *ast.Node) (state.Result, error) {
	c, ok := n.Data.(int64)
	if !ok {
		return state.Result{}, errors.New("character literal missing value")
	}
	t := g.lib.CharT()
	return state.Result{Value: llvm.ConstInt(g.lib.LLVM(t), uint64(c), true), Type: t, Constant: true, ConstInt: c}, nil
}

// genStringLiteral lowers a string literal to a global constant char array
// and decays it to pointer-to-char, matching ordinary array decay.
func (g *generator) genStringLiteral(n *ast.Node) (state.Result, error) {
	s, ok := n.Data.(string)
	if !ok {
		return state.Result{}, errors.New("string literal missing value")
	}
	data := llvm.ConstString(s, true)
	name := fmt.Sprintf("string.%d", g.cs.FreshID())
	global := g.m.AddGlobal(data.Type(), name)
	global.SetInitializer(data)

	charT := g.lib.CharT()
	zero := llvm.ConstInt(g.lib.LLVM(g.lib.IntT()), 0, false)
	ptr := g.b.CreateGEP(global, []llvm.Value{zero, zero}, g.cs.FreshTemp())
	return state.Result{Value: ptr, Type: g.lib.InternPointer(charT)}, nil
}
