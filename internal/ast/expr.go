package ast

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// IdentExpr represents an identifier reference.
type IdentExpr struct {
	NodeBase
	Symbol Symbol
}

// LiteralKind distinguishes the three literal families.
type LiteralKind uint8

const (
	LiteralInt LiteralKind = iota
	LiteralFloat
	LiteralBool
)

// LiteralSuffix is the type suffix written after a numeric literal.
type LiteralSuffix uint8

const (
	SuffixNone LiteralSuffix = iota // abstract-int or abstract-float
	SuffixI                         // i32
	SuffixU                         // u32
	SuffixF                         // f32
	SuffixH                         // f16
)

func (s LiteralSuffix) String() string {
	switch s {
	case SuffixI:
		return "i"
	case SuffixU:
		return "u"
	case SuffixF:
		return "f"
	case SuffixH:
		return "h"
	}
	return ""
}

// LiteralExpr represents a literal value.
type LiteralExpr struct {
	NodeBase
	LitKind LiteralKind
	Suffix  LiteralSuffix
	Int     int64
	Float   float64
	Bool    bool
}

// BinaryExpr represents a binary operation.
type BinaryExpr struct {
	NodeBase
	Op    BinaryOp
	Left  Expr
	Right Expr
}

// BinaryOp represents binary operators.
type BinaryOp uint8

const (
	BinOpAdd        BinaryOp = iota // +
	BinOpSub                        // -
	BinOpMul                        // *
	BinOpDiv                        // /
	BinOpMod                        // %
	BinOpAnd                        // &
	BinOpOr                         // |
	BinOpXor                        // ^
	BinOpShl                        // <<
	BinOpShr                        // >>
	BinOpLogicalAnd                 // &&
	BinOpLogicalOr                  // ||
	BinOpEq                         // ==
	BinOpNe                         // !=
	BinOpLt                         // <
	BinOpLe                         // <=
	BinOpGt                         // >
	BinOpGe                         // >=
)

var binaryOpText = [...]string{
	BinOpAdd: "+", BinOpSub: "-", BinOpMul: "*", BinOpDiv: "/", BinOpMod: "%",
	BinOpAnd: "&", BinOpOr: "|", BinOpXor: "^", BinOpShl: "<<", BinOpShr: ">>",
	BinOpLogicalAnd: "&&", BinOpLogicalOr: "||",
	BinOpEq: "==", BinOpNe: "!=", BinOpLt: "<", BinOpLe: "<=", BinOpGt: ">", BinOpGe: ">=",
}

func (op BinaryOp) String() string { return binaryOpText[op] }

// IsComparison reports whether op yields a bool from two operands.
func (op BinaryOp) IsComparison() bool { return op >= BinOpEq }

// IsLogical reports whether op is a short-circuiting && or ||.
func (op BinaryOp) IsLogical() bool { return op == BinOpLogicalAnd || op == BinOpLogicalOr }

// UnaryExpr represents a unary operation.
type UnaryExpr struct {
	NodeBase
	Op      UnaryOp
	Operand Expr
}

// UnaryOp represents unary operators.
type UnaryOp uint8

const (
	UnaryOpNeg    UnaryOp = iota // -
	UnaryOpNot                   // !
	UnaryOpBitNot                // ~
	UnaryOpDeref                 // *
	UnaryOpAddr                  // &
)

func (op UnaryOp) String() string {
	return [...]string{"-", "!", "~", "*", "&"}[op]
}

// CallExpr represents a function call, builtin call or type constructor.
// Func names the callee for plain calls (f(x), vec3f(x), S(x)); Type holds
// the written type for templated constructors (vec2<f32>(x), array<u32, 2>()).
// bitcast<T>(x) sets both.
type CallExpr struct {
	NodeBase
	Func *IdentExpr
	Type Type
	Args []Expr
}

// IndexExpr represents array/vector/matrix indexing: base[index]
type IndexExpr struct {
	NodeBase
	Base  Expr
	Index Expr
}

// MemberExpr represents member access or a swizzle: base.member
type MemberExpr struct {
	NodeBase
	Base   Expr
	Member Symbol
}

// PhonyExpr is the '_' on the left of a phony assignment.
type PhonyExpr struct {
	NodeBase
}

func (*IdentExpr) isExpr()   {}
func (*LiteralExpr) isExpr() {}
func (*BinaryExpr) isExpr()  {}
func (*UnaryExpr) isExpr()   {}
func (*CallExpr) isExpr()    {}
func (*IndexExpr) isExpr()   {}
func (*MemberExpr) isExpr()  {}
func (*PhonyExpr) isExpr()   {}

func (*IdentExpr) Kind() Kind   { return KindIdentExpr }
func (*LiteralExpr) Kind() Kind { return KindLiteralExpr }
func (*BinaryExpr) Kind() Kind  { return KindBinaryExpr }
func (*UnaryExpr) Kind() Kind   { return KindUnaryExpr }
func (*CallExpr) Kind() Kind    { return KindCallExpr }
func (*IndexExpr) Kind() Kind   { return KindIndexExpr }
func (*MemberExpr) Kind() Kind  { return KindMemberExpr }
func (*PhonyExpr) Kind() Kind   { return KindPhonyExpr }

func (n *IdentExpr) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &IdentExpr{Symbol: ctx.CloneSymbol(n.Symbol)})
}

func (n *LiteralExpr) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &LiteralExpr{
		LitKind: n.LitKind, Suffix: n.Suffix, Int: n.Int, Float: n.Float, Bool: n.Bool,
	})
}

func (n *BinaryExpr) clone(ctx *CloneContext) Node {
	l := Clone(ctx, n.Left)
	r := Clone(ctx, n.Right)
	return create(ctx.dst, n.rng, &BinaryExpr{Op: n.Op, Left: l, Right: r})
}

func (n *UnaryExpr) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &UnaryExpr{Op: n.Op, Operand: Clone(ctx, n.Operand)})
}

func (n *CallExpr) clone(ctx *CloneContext) Node {
	fn := Clone(ctx, n.Func)
	ty := Clone(ctx, n.Type)
	args := CloneList(ctx, ArgsOf(n), n.Args)
	return create(ctx.dst, n.rng, &CallExpr{Func: fn, Type: ty, Args: args})
}

func (n *IndexExpr) clone(ctx *CloneContext) Node {
	base := Clone(ctx, n.Base)
	idx := Clone(ctx, n.Index)
	return create(ctx.dst, n.rng, &IndexExpr{Base: base, Index: idx})
}

func (n *MemberExpr) clone(ctx *CloneContext) Node {
	base := Clone(ctx, n.Base)
	return create(ctx.dst, n.rng, &MemberExpr{Base: base, Member: ctx.CloneSymbol(n.Member)})
}

func (n *PhonyExpr) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &PhonyExpr{})
}

func (n *IdentExpr) children(fn func(Node))   {}
func (n *LiteralExpr) children(fn func(Node)) {}
func (n *PhonyExpr) children(fn func(Node))   {}

func (n *BinaryExpr) children(fn func(Node)) { each(fn, n.Left, n.Right) }
func (n *UnaryExpr) children(fn func(Node))  { each(fn, n.Operand) }
func (n *IndexExpr) children(fn func(Node))  { each(fn, n.Base, n.Index) }
func (n *MemberExpr) children(fn func(Node)) { each(fn, n.Base) }

func (n *CallExpr) children(fn func(Node)) {
	each(fn, n.Func, n.Type)
	eachOf(fn, n.Args)
}

// each calls fn for every node that is not nil.
func each(fn func(Node), nodes ...Node) {
	for _, n := range nodes {
		if !IsNil(n) {
			fn(n)
		}
	}
}

func eachOf[T Node](fn func(Node), nodes []T) {
	for _, n := range nodes {
		fn(n)
	}
}
