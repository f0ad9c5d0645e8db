package ast

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

// CompoundStmt represents a block of statements: { stmts }
type CompoundStmt struct {
	NodeBase
	Stmts []Stmt
}

// ReturnStmt represents: return [expr];
type ReturnStmt struct {
	NodeBase
	Value Expr // nil for bare return
}

// IfStmt represents: if cond { } [else [if ...] { }]
type IfStmt struct {
	NodeBase
	Condition Expr
	Body      *CompoundStmt
	Else      Stmt // nil, *IfStmt, or *CompoundStmt
}

// SwitchStmt represents: switch expr { cases }
type SwitchStmt struct {
	NodeBase
	Expr  Expr
	Cases []*SwitchCase
}

// SwitchCase represents a case clause in a switch. A clause may list the
// default selector next to ordinary ones: case 1, default: { }
type SwitchCase struct {
	NodeBase
	Selectors  []Expr
	HasDefault bool
	Body       *CompoundStmt
}

// ForStmt represents: for (init; cond; update) { }
type ForStmt struct {
	NodeBase
	Init      Stmt // DeclStmt, assignment, call, or nil
	Condition Expr // nil for infinite loop
	Update    Stmt // assignment, increment or call, or nil
	Body      *CompoundStmt
}

// WhileStmt represents: while cond { }
type WhileStmt struct {
	NodeBase
	Condition Expr
	Body      *CompoundStmt
}

// LoopStmt represents: loop { [continuing { }] }
type LoopStmt struct {
	NodeBase
	Body       *CompoundStmt
	Continuing *CompoundStmt // nil if no continuing block
}

// BreakStmt represents: break;
type BreakStmt struct {
	NodeBase
}

// BreakIfStmt represents: break if expr; (only in continuing block)
type BreakIfStmt struct {
	NodeBase
	Condition Expr
}

// ContinueStmt represents: continue;
type ContinueStmt struct {
	NodeBase
}

// DiscardStmt represents: discard; (fragment shader only)
type DiscardStmt struct {
	NodeBase
}

// AssignStmt represents: lhs = rhs; or lhs op= rhs;
type AssignStmt struct {
	NodeBase
	Op    AssignOp
	Left  Expr // *PhonyExpr for _ = rhs;
	Right Expr
}

// AssignOp represents assignment operators.
type AssignOp uint8

const (
	AssignOpSimple AssignOp = iota // =
	AssignOpAdd                    // +=
	AssignOpSub                    // -=
	AssignOpMul                    // *=
	AssignOpDiv                    // /=
	AssignOpMod                    // %=
	AssignOpAnd                    // &=
	AssignOpOr                     // |=
	AssignOpXor                    // ^=
	AssignOpShl                    // <<=
	AssignOpShr                    // >>=
)

var assignOpBinary = [...]BinaryOp{
	AssignOpAdd: BinOpAdd, AssignOpSub: BinOpSub, AssignOpMul: BinOpMul,
	AssignOpDiv: BinOpDiv, AssignOpMod: BinOpMod, AssignOpAnd: BinOpAnd,
	AssignOpOr: BinOpOr, AssignOpXor: BinOpXor, AssignOpShl: BinOpShl,
	AssignOpShr: BinOpShr,
}

// BinaryOp returns the operator applied by a compound assignment.
// It must not be called on AssignOpSimple.
func (op AssignOp) BinaryOp() BinaryOp { return assignOpBinary[op] }

func (op AssignOp) String() string {
	if op == AssignOpSimple {
		return "="
	}
	return op.BinaryOp().String() + "="
}

// IncrDecrStmt represents: expr++; or expr--;
type IncrDecrStmt struct {
	NodeBase
	Expr      Expr
	Increment bool // true for ++, false for --
}

// CallStmt represents a function call as a statement.
type CallStmt struct {
	NodeBase
	Call *CallExpr
}

// DeclStmt wraps a declaration as a statement (for local const/let/var).
type DeclStmt struct {
	NodeBase
	Decl Decl
}

func (*CompoundStmt) isStmt() {}
func (*ReturnStmt) isStmt()   {}
func (*IfStmt) isStmt()       {}
func (*SwitchStmt) isStmt()   {}
func (*ForStmt) isStmt()      {}
func (*WhileStmt) isStmt()    {}
func (*LoopStmt) isStmt()     {}
func (*BreakStmt) isStmt()    {}
func (*BreakIfStmt) isStmt()  {}
func (*ContinueStmt) isStmt() {}
func (*DiscardStmt) isStmt()  {}
func (*AssignStmt) isStmt()   {}
func (*IncrDecrStmt) isStmt() {}
func (*CallStmt) isStmt()     {}
func (*DeclStmt) isStmt()     {}

func (*CompoundStmt) Kind() Kind { return KindCompoundStmt }
func (*ReturnStmt) Kind() Kind   { return KindReturnStmt }
func (*IfStmt) Kind() Kind       { return KindIfStmt }
func (*SwitchStmt) Kind() Kind   { return KindSwitchStmt }
func (*SwitchCase) Kind() Kind   { return KindSwitchCase }
func (*ForStmt) Kind() Kind      { return KindForStmt }
func (*WhileStmt) Kind() Kind    { return KindWhileStmt }
func (*LoopStmt) Kind() Kind     { return KindLoopStmt }
func (*BreakStmt) Kind() Kind    { return KindBreakStmt }
func (*BreakIfStmt) Kind() Kind  { return KindBreakIfStmt }
func (*ContinueStmt) Kind() Kind { return KindContinueStmt }
func (*DiscardStmt) Kind() Kind  { return KindDiscardStmt }
func (*AssignStmt) Kind() Kind   { return KindAssignStmt }
func (*IncrDecrStmt) Kind() Kind { return KindIncrDecrStmt }
func (*CallStmt) Kind() Kind     { return KindCallStmt }
func (*DeclStmt) Kind() Kind     { return KindDeclStmt }

func (n *CompoundStmt) clone(ctx *CloneContext) Node {
	stmts := CloneList(ctx, StmtsOf(n), n.Stmts)
	return create(ctx.dst, n.rng, &CompoundStmt{Stmts: stmts})
}

func (n *ReturnStmt) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &ReturnStmt{Value: Clone(ctx, n.Value)})
}

func (n *IfStmt) clone(ctx *CloneContext) Node {
	cond := Clone(ctx, n.Condition)
	body := Clone(ctx, n.Body)
	els := Clone(ctx, n.Else)
	return create(ctx.dst, n.rng, &IfStmt{Condition: cond, Body: body, Else: els})
}

func (n *SwitchStmt) clone(ctx *CloneContext) Node {
	e := Clone(ctx, n.Expr)
	cases := CloneList(ctx, CasesOf(n), n.Cases)
	return create(ctx.dst, n.rng, &SwitchStmt{Expr: e, Cases: cases})
}

func (n *SwitchCase) clone(ctx *CloneContext) Node {
	sels := CloneList(ctx, SelectorsOf(n), n.Selectors)
	body := Clone(ctx, n.Body)
	return create(ctx.dst, n.rng, &SwitchCase{Selectors: sels, HasDefault: n.HasDefault, Body: body})
}

func (n *ForStmt) clone(ctx *CloneContext) Node {
	init := Clone(ctx, n.Init)
	cond := Clone(ctx, n.Condition)
	update := Clone(ctx, n.Update)
	body := Clone(ctx, n.Body)
	return create(ctx.dst, n.rng, &ForStmt{Init: init, Condition: cond, Update: update, Body: body})
}

func (n *WhileStmt) clone(ctx *CloneContext) Node {
	cond := Clone(ctx, n.Condition)
	body := Clone(ctx, n.Body)
	return create(ctx.dst, n.rng, &WhileStmt{Condition: cond, Body: body})
}

func (n *LoopStmt) clone(ctx *CloneContext) Node {
	body := Clone(ctx, n.Body)
	cont := Clone(ctx, n.Continuing)
	return create(ctx.dst, n.rng, &LoopStmt{Body: body, Continuing: cont})
}

func (n *BreakStmt) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &BreakStmt{})
}

func (n *BreakIfStmt) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &BreakIfStmt{Condition: Clone(ctx, n.Condition)})
}

func (n *ContinueStmt) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &ContinueStmt{})
}

func (n *DiscardStmt) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &DiscardStmt{})
}

func (n *AssignStmt) clone(ctx *CloneContext) Node {
	l := Clone(ctx, n.Left)
	r := Clone(ctx, n.Right)
	return create(ctx.dst, n.rng, &AssignStmt{Op: n.Op, Left: l, Right: r})
}

func (n *IncrDecrStmt) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &IncrDecrStmt{Expr: Clone(ctx, n.Expr), Increment: n.Increment})
}

func (n *CallStmt) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &CallStmt{Call: Clone(ctx, n.Call)})
}

func (n *DeclStmt) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &DeclStmt{Decl: Clone(ctx, n.Decl)})
}

func (n *CompoundStmt) children(fn func(Node)) { eachOf(fn, n.Stmts) }
func (n *ReturnStmt) children(fn func(Node))   { each(fn, n.Value) }
func (n *IfStmt) children(fn func(Node))       { each(fn, n.Condition, n.Body, n.Else) }
func (n *ForStmt) children(fn func(Node)) {
	each(fn, n.Init, n.Condition, n.Update, n.Body)
}
func (n *WhileStmt) children(fn func(Node))    { each(fn, n.Condition, n.Body) }
func (n *LoopStmt) children(fn func(Node))     { each(fn, n.Body, n.Continuing) }
func (n *BreakStmt) children(fn func(Node))    {}
func (n *BreakIfStmt) children(fn func(Node))  { each(fn, n.Condition) }
func (n *ContinueStmt) children(fn func(Node)) {}
func (n *DiscardStmt) children(fn func(Node))  {}
func (n *AssignStmt) children(fn func(Node))   { each(fn, n.Left, n.Right) }
func (n *IncrDecrStmt) children(fn func(Node)) { each(fn, n.Expr) }
func (n *CallStmt) children(fn func(Node))     { each(fn, n.Call) }
func (n *DeclStmt) children(fn func(Node))     { each(fn, n.Decl) }

func (n *SwitchStmt) children(fn func(Node)) {
	each(fn, n.Expr)
	eachOf(fn, n.Cases)
}

func (n *SwitchCase) children(fn func(Node)) {
	eachOf(fn, n.Selectors)
	each(fn, n.Body)
}
