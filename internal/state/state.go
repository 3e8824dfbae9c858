// Package state holds everything mutable a compilation run threads through
// the syntax-tree walk: the scoped symbol table with its one-shot pending
// scope for function parameters, the single-slot expression-result channel,
// the monotonic name counters, and the break/continue/switch context stacks.
//
// The walk is strictly single-threaded, so none of this is synchronized.
package state

import (
	"fmt"

	"github.com/pkg/errors"
	"tinygo.org/x/go-llvm"

	"cllvm/internal/types"
	"cllvm/internal/util"
)

// Variable is one named entity bound in some scope.
type Variable struct {
	Name     string
	Type     *types.Type
	Storage  string     // Textual IR designator: "@name" or "%var.name.N".
	Ptr      llvm.Value // The alloca/global value backing this binding.
	IsGlobal bool
	Defined  bool // for functions: has a body been emitted yet.
}

// Result is what every expression lowering leaves in the result channel.
type Result struct {
	Value      llvm.Value  // The (possibly loaded) rvalue.
	Type       *types.Type // Static type of Value.
	Constant   bool        // True if Value is a compile-time constant.
	ConstInt   int64       // Folded value, valid when Constant && Type.IsInteger().
	ConstFloat float64     // Folded value, valid when Constant && Type.Kind == types.Float.
	Pointer    llvm.Value  // Storage location, valid only if HasPointer.
	HasPointer bool        // True if this expression is an lvalue.
}

// loopContext is one entry of the break/continue stack. continueBlock is
// the zero llvm.BasicBlock when the entry is a switch, which pushes no
// continue target of its own.
type loopContext struct {
	breakBlock    llvm.BasicBlock
	continueBlock llvm.BasicBlock
	hasContinue   bool
}

// CaseEntry is one populated `case` arm of an open switch.
type CaseEntry struct {
	Value int64
	Block llvm.BasicBlock
}

// SwitchContext tracks an in-progress switch statement's case table.
type SwitchContext struct {
	ID           int
	DefaultSeen  bool
	Cases        []CaseEntry
	DefaultBlock llvm.BasicBlock
}

// Compiler is the full mutable state threaded through one compilation run.
type Compiler struct {
	Types       *types.Library
	Diagnostics *util.Diagnostics

	scopes  *util.Stack // of map[string]*Variable, innermost on top.
	pending map[string]*Variable

	counter int
	result  *Result

	loops    *util.Stack // of *loopContext
	switches *util.Stack // of *SwitchContext
}

// New returns a fresh Compiler state with one (global) scope open.
func New(lib *types.Library) *Compiler {
	c := &Compiler{
		Types:       lib,
		Diagnostics: util.NewDiagnostics(16),
		scopes:      &util.Stack{},
		loops:       &util.Stack{},
		switches:    &util.Stack{},
	}
	c.scopes.Push(make(map[string]*Variable))
	return c
}

// EnterBlock opens a new scope. If a pending scope has been staged via
// SetPendingScope (used for function parameters), it is consumed here
// instead of a fresh empty map, sealing parameters into the function
// body's scope rather than an enclosing one.
func (c *Compiler) EnterBlock() {
	if c.pending != nil {
		c.scopes.Push(c.pending)
		c.pending = nil
		return
	}
	c.scopes.Push(make(map[string]*Variable))
}

// LeaveBlock closes the innermost scope.
func (c *Compiler) LeaveBlock() {
	c.scopes.Pop()
}

// SetPendingScope stages a pre-populated scope map to be consumed by the
// next EnterBlock call.
func (c *Compiler) SetPendingScope(m map[string]*Variable) {
	c.pending = m
}

// IsGlobal reports whether the current scope is the outermost (file) scope.
func (c *Compiler) IsGlobal() bool {
	return c.scopes.Size() == 1
}

// Declare binds name to v in the current scope. Redeclaration of a
// non-function in the same scope is an error; the caller is responsible for
// function-specific redeclaration rules (matching signature, at most one
// definition).
func (c *Compiler) Declare(name string, v *Variable) error {
	scope := c.scopes.Peek().(map[string]*Variable)
	if _, ok := scope[name]; ok {
		return errors.Errorf("redeclaration of %q", name)
	}
	scope[name] = v
	return nil
}

// Bind is like Declare but overwrites any existing binding in the current
// scope.
func (c *Compiler) Bind(name string, v *Variable) {
	scope := c.scopes.Peek().(map[string]*Variable)
	scope[name] = v
}

// Lookup searches the scope stack from innermost to outermost. Stack.Get is
// indexed top-down (Get(1) is the innermost scope, Get(Size()) the
// outermost), so the search walks n upward to prefer an inner shadowing
// declaration over an outer one.
func (c *Compiler) Lookup(name string) (*Variable, bool) {
	for n := 1; n <= c.scopes.Size(); n++ {
		scope := c.scopes.Get(n).(map[string]*Variable)
		if v, ok := scope[name]; ok {
			return v, true
		}
	}
	return nil, false
}

// FreshTemp returns a new unique temporary register name.
func (c *Compiler) FreshTemp() string {
	c.counter++
	return fmt.Sprintf("tmp.%d", c.counter)
}

// FreshVar returns a new unique local-variable register name derived from
// the C source identifier name.
func (c *Compiler) FreshVar(name string) string {
	c.counter++
	return fmt.Sprintf("var.%s.%d", name, c.counter)
}

// FreshID returns a new unique integer id used to build structured labels
// such as "If3.True" or "While7.End".
func (c *Compiler) FreshID() int {
	c.counter++
	return c.counter
}

// Label formats a structured label of the form "<Kind><id>.<part>".
func Label(kind string, id int, part string) string {
	return fmt.Sprintf("%s%d.%s", kind, id, part)
}

// PushResult stores r as the current expression result.
func (c *Compiler) PushResult(r Result) {
	c.result = &r
}

// PopResult retrieves and clears the current expression result. With no
// result pending it returns the zero Result.
func (c *Compiler) PopResult() Result {
	if c.result == nil {
		return Result{}
	}
	r := *c.result
	c.result = nil
	return r
}

// DiscardResult clears any pending result without reading it (used by
// statement forms, such as a bare expression statement, that evaluate an
// expression purely for side effects).
func (c *Compiler) DiscardResult() {
	c.result = nil
}

// EnterLoop pushes a break/continue target pair.
func (c *Compiler) EnterLoop(breakBlock, continueBlock llvm.BasicBlock) {
	c.loops.Push(&loopContext{breakBlock: breakBlock, continueBlock: continueBlock, hasContinue: true})
}

// LeaveLoop pops the innermost break/continue target pair.
func (c *Compiler) LeaveLoop() {
	c.loops.Pop()
}

// BreakTarget returns the block a `break` statement should branch to.
func (c *Compiler) BreakTarget() (llvm.BasicBlock, error) {
	top := c.loops.Peek()
	if top == nil {
		return llvm.BasicBlock{}, errors.New("break statement not within loop or switch")
	}
	return top.(*loopContext).breakBlock, nil
}

// ContinueTarget returns the block a `continue` statement should branch to.
// A switch pushes no continue target of its own, so continue inside a
// switch nested in a loop reaches that loop. Like Lookup, the search walks
// the stack innermost-first (n=1 upward, since util.Stack.Get(1) is the
// top) so a nested inner loop's continue target wins over an outer one.
func (c *Compiler) ContinueTarget() (llvm.BasicBlock, error) {
	for n := 1; n <= c.loops.Size(); n++ {
		lc := c.loops.Get(n).(*loopContext)
		if lc.hasContinue {
			return lc.continueBlock, nil
		}
	}
	return llvm.BasicBlock{}, errors.New("continue statement not within loop")
}

// EnterSwitch pushes a break target (switches reuse the loop break stack)
// and a fresh switch-case context tagged with id (obtained
// from the caller via FreshID before any basic blocks naming that id were
// created), returning it for the caller to populate as case/default labels
// are discovered.
func (c *Compiler) EnterSwitch(breakBlock llvm.BasicBlock, id int) *SwitchContext {
	c.loops.Push(&loopContext{breakBlock: breakBlock})
	sw := &SwitchContext{ID: id}
	c.switches.Push(sw)
	return sw
}

// LeaveSwitch pops the innermost switch context and its break target.
func (c *Compiler) LeaveSwitch() *SwitchContext {
	c.loops.Pop()
	return c.switches.Pop().(*SwitchContext)
}

// CurrentSwitch returns the innermost open switch context, if any.
func (c *Compiler) CurrentSwitch() (*SwitchContext, bool) {
	top := c.switches.Peek()
	if top == nil {
		return nil, false
	}
	return top.(*SwitchContext), true
}
