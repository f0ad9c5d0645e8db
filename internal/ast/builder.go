package ast

import (
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
)

// Builder is the mutable counterpart of Module. Every node is created by
// exactly one Builder, which owns it for the node's lifetime. Builders are
// single-writer; the Module they produce is safe for concurrent reads.
type Builder struct {
	gen     GenerationID
	nodes   []Node
	symbols *SymbolTable
	rng     Range
	source  string
	diags   *diagnostic.DiagnosticList

	Directives []Directive
	Decls      []Decl
}

// NewBuilder creates an empty builder with a fresh generation.
func NewBuilder() *Builder {
	gen := NextGenerationID()
	return &Builder{gen: gen, symbols: NewSymbolTable(gen)}
}

// Generation returns the builder's generation.
func (b *Builder) Generation() GenerationID { return b.gen }

// Symbols returns the builder's symbol table.
func (b *Builder) Symbols() *SymbolTable { return b.symbols }

// SetRange sets the source range given to nodes created from now on.
func (b *Builder) SetRange(r Range) { b.rng = r }

// SetSource records the source text that diagnostics refer to.
func (b *Builder) SetSource(src string) {
	b.source = src
	if b.diags != nil {
		fresh := diagnostic.NewDiagnosticList(src)
		fresh.Append(b.diags)
		b.diags = fresh
	}
}

// Source returns the source text recorded with SetSource.
func (b *Builder) Source() string { return b.source }

// Diagnostics returns the builder's diagnostic list, creating it on first use.
func (b *Builder) Diagnostics() *diagnostic.DiagnosticList {
	if b.diags == nil {
		b.diags = diagnostic.NewDiagnosticList(b.source)
	}
	return b.diags
}

// HasDiagnostics reports whether anything was reported on the builder.
func (b *Builder) HasDiagnostics() bool { return b.diags != nil && b.diags.Count() > 0 }

// Module snapshots the builder into an immutable module.
func (b *Builder) Module() *Module {
	return &Module{
		gen:        b.gen,
		symbols:    b.symbols,
		nodes:      append([]Node(nil), b.nodes...),
		source:     b.source,
		Directives: append([]Directive(nil), b.Directives...),
		Decls:      append([]Decl(nil), b.Decls...),
	}
}

// AddDecl appends d to the module-scope declarations.
func (b *Builder) AddDecl(d Decl) {
	b.checkGeneration(d)
	b.Decls = append(b.Decls, d)
}

// AddDirective appends d to the module directives.
func (b *Builder) AddDirective(d Directive) {
	b.checkGeneration(d)
	b.Directives = append(b.Directives, d)
}

// create registers n with b: it assigns the node's identity and checks
// that every child and symbol of n belongs to b.
func create[T Node](b *Builder, rng Range, n T) T {
	nb := any(n).(baser).base()
	n.children(func(c Node) { b.checkGeneration(c) })
	for _, s := range symbolsOf(n) {
		if s.IsValid() && s.gen != b.gen {
			diagnostic.ICE("%v: symbol %q belongs to generation %d, builder is %d", n.Kind(), s.name, s.gen, b.gen)
		}
	}
	nb.id = NodeID(len(b.nodes))
	nb.gen = b.gen
	nb.rng = rng
	b.nodes = append(b.nodes, n)
	return n
}

func (b *Builder) checkGeneration(n Node) {
	if IsNil(n) {
		return
	}
	if n.Generation() != b.gen {
		diagnostic.ICE("%v belongs to generation %d, builder is %d", n.Kind(), n.Generation(), b.gen)
	}
}

func symbolsOf(n Node) []Symbol {
	switch n := n.(type) {
	case *IdentExpr:
		return []Symbol{n.Symbol}
	case *MemberExpr:
		return []Symbol{n.Member}
	case *IdentType:
		return []Symbol{n.Name}
	case *StructMember:
		return []Symbol{n.Name}
	case Decl:
		return []Symbol{DeclName(n)}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Symbols and names
// ----------------------------------------------------------------------------

// Sym interns name.
func (b *Builder) Sym(name string) Symbol { return b.symbols.Register(name) }

// NewSym returns a fresh symbol whose name starts with prefix.
func (b *Builder) NewSym(prefix string) Symbol { return b.symbols.New(prefix) }

func (b *Builder) toSymbol(v any) Symbol {
	switch v := v.(type) {
	case Symbol:
		return v
	case string:
		return b.Sym(v)
	}
	diagnostic.ICE("cannot make a symbol from %T", v)
	return Symbol{}
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// Ident creates an identifier expression. name is a Symbol or a string.
func (b *Builder) Ident(name any) *IdentExpr {
	return create(b, b.rng, &IdentExpr{Symbol: b.toSymbol(name)})
}

// Expr converts v to an expression. It accepts expressions, symbols and
// strings (identifiers), bool, int (abstract int), int32 (i), uint32 (u),
// float32 (f) and float64 (abstract float).
func (b *Builder) Expr(v any) Expr {
	switch v := v.(type) {
	case nil:
		return nil
	case Expr:
		return v
	case Symbol, string:
		return b.Ident(v)
	case bool:
		return b.Bool(v)
	case int:
		return b.IntLit(int64(v), SuffixNone)
	case int32:
		return b.IntLit(int64(v), SuffixI)
	case uint32:
		return b.IntLit(int64(v), SuffixU)
	case float32:
		return b.FloatLit(float64(v), SuffixF)
	case float64:
		return b.FloatLit(v, SuffixNone)
	}
	diagnostic.ICE("cannot make an expression from %T", v)
	return nil
}

// Exprs converts every value with Expr.
func (b *Builder) Exprs(vs ...any) []Expr {
	if len(vs) == 0 {
		return nil
	}
	out := make([]Expr, len(vs))
	for i, v := range vs {
		out[i] = b.Expr(v)
	}
	return out
}

// IntLit creates an integer literal.
func (b *Builder) IntLit(v int64, suffix LiteralSuffix) *LiteralExpr {
	return create(b, b.rng, &LiteralExpr{LitKind: LiteralInt, Int: v, Suffix: suffix})
}

// FloatLit creates a floating point literal.
func (b *Builder) FloatLit(v float64, suffix LiteralSuffix) *LiteralExpr {
	return create(b, b.rng, &LiteralExpr{LitKind: LiteralFloat, Float: v, Suffix: suffix})
}

// Bool creates a bool literal.
func (b *Builder) Bool(v bool) *LiteralExpr {
	return create(b, b.rng, &LiteralExpr{LitKind: LiteralBool, Bool: v})
}

func (b *Builder) U32(v uint32) *LiteralExpr { return b.IntLit(int64(v), SuffixU) }
func (b *Builder) I32(v int32) *LiteralExpr  { return b.IntLit(int64(v), SuffixI) }

// Binary creates a binary expression.
func (b *Builder) Binary(op BinaryOp, l, r any) *BinaryExpr {
	return create(b, b.rng, &BinaryExpr{Op: op, Left: b.Expr(l), Right: b.Expr(r)})
}

func (b *Builder) Add(l, r any) *BinaryExpr        { return b.Binary(BinOpAdd, l, r) }
func (b *Builder) Sub(l, r any) *BinaryExpr        { return b.Binary(BinOpSub, l, r) }
func (b *Builder) Mul(l, r any) *BinaryExpr        { return b.Binary(BinOpMul, l, r) }
func (b *Builder) Div(l, r any) *BinaryExpr        { return b.Binary(BinOpDiv, l, r) }
func (b *Builder) LessThan(l, r any) *BinaryExpr   { return b.Binary(BinOpLt, l, r) }
func (b *Builder) LogicalAnd(l, r any) *BinaryExpr { return b.Binary(BinOpLogicalAnd, l, r) }

// Unary creates a unary expression.
func (b *Builder) Unary(op UnaryOp, operand any) *UnaryExpr {
	return create(b, b.rng, &UnaryExpr{Op: op, Operand: b.Expr(operand)})
}

func (b *Builder) Not(e any) *UnaryExpr       { return b.Unary(UnaryOpNot, e) }
func (b *Builder) Deref(e any) *UnaryExpr     { return b.Unary(UnaryOpDeref, e) }
func (b *Builder) AddressOf(e any) *UnaryExpr { return b.Unary(UnaryOpAddr, e) }

// Call creates a call to the named function or builtin.
func (b *Builder) Call(fn any, args ...any) *CallExpr {
	var id *IdentExpr
	if e, ok := fn.(*IdentExpr); ok {
		id = e
	} else {
		id = b.Ident(fn)
	}
	return create(b, b.rng, &CallExpr{Func: id, Args: b.Exprs(args...)})
}

// Construct creates a type constructor call such as vec2<f32>(x, y).
func (b *Builder) Construct(ty Type, args ...any) *CallExpr {
	if id, ok := ty.(*IdentType); ok {
		return create(b, b.rng, &CallExpr{Func: b.Ident(id.Name), Args: b.Exprs(args...)})
	}
	return create(b, b.rng, &CallExpr{Type: ty, Args: b.Exprs(args...)})
}

// Bitcast creates bitcast<ty>(arg).
func (b *Builder) Bitcast(ty Type, arg any) *CallExpr {
	return create(b, b.rng, &CallExpr{Func: b.Ident("bitcast"), Type: ty, Args: b.Exprs(arg)})
}

// Index creates base[idx].
func (b *Builder) Index(base, idx any) *IndexExpr {
	return create(b, b.rng, &IndexExpr{Base: b.Expr(base), Index: b.Expr(idx)})
}

// MemberAccessor creates base.member.
func (b *Builder) MemberAccessor(base, member any) *MemberExpr {
	return create(b, b.rng, &MemberExpr{Base: b.Expr(base), Member: b.toSymbol(member)})
}

// Phony creates the '_' assignment target.
func (b *Builder) Phony() *PhonyExpr {
	return create(b, b.rng, &PhonyExpr{})
}

// ----------------------------------------------------------------------------
// Types
// ----------------------------------------------------------------------------

// TypeName creates a named type reference. name is a Symbol or a string.
func (b *Builder) TypeName(name any) *IdentType {
	return create(b, b.rng, &IdentType{Name: b.toSymbol(name)})
}

func (b *Builder) U32Type() *IdentType  { return b.TypeName("u32") }
func (b *Builder) I32Type() *IdentType  { return b.TypeName("i32") }
func (b *Builder) F32Type() *IdentType  { return b.TypeName("f32") }
func (b *Builder) BoolType() *IdentType { return b.TypeName("bool") }

// Vec creates vecN<elem>.
func (b *Builder) Vec(size uint8, elem Type) *VecType {
	return create(b, b.rng, &VecType{Size: size, Elem: elem})
}

// Mat creates matCxR<elem>.
func (b *Builder) Mat(cols, rows uint8, elem Type) *MatType {
	return create(b, b.rng, &MatType{Cols: cols, Rows: rows, Elem: elem})
}

// Array creates array<elem, count>. A nil count makes a runtime-sized array.
func (b *Builder) Array(elem Type, count any) *ArrayType {
	return create(b, b.rng, &ArrayType{Elem: elem, Count: b.Expr(count)})
}

// Ptr creates ptr<space, elem[, access]>.
func (b *Builder) Ptr(space AddressSpace, elem Type, access AccessMode) *PtrType {
	return create(b, b.rng, &PtrType{AddressSpace: space, Elem: elem, AccessMode: access})
}

// Atomic creates atomic<elem>.
func (b *Builder) Atomic(elem Type) *AtomicType {
	return create(b, b.rng, &AtomicType{Elem: elem})
}

// Sampler creates sampler or sampler_comparison.
func (b *Builder) Sampler(comparison bool) *SamplerType {
	return create(b, b.rng, &SamplerType{Comparison: comparison})
}

// Texture creates a texture type.
func (b *Builder) Texture(kind TextureKind, dim TextureDimension, sampled Type, format string, access AccessMode) *TextureType {
	return create(b, b.rng, &TextureType{TexKind: kind, Dim: dim, Sampled: sampled, Format: format, Access: access})
}

// ----------------------------------------------------------------------------
// Attributes
// ----------------------------------------------------------------------------

// Attr creates @name(args...).
func (b *Builder) Attr(name string, args ...any) *Attribute {
	return create(b, b.rng, &Attribute{Name: name, Args: b.Exprs(args...)})
}

// Stride creates @stride(n).
func (b *Builder) Stride(n uint32) *Attribute { return b.Attr("stride", int(n)) }

// Offset creates @offset(n).
func (b *Builder) Offset(n uint32) *Attribute { return b.Attr("offset", int(n)) }

// Location creates @location(n).
func (b *Builder) Location(n uint32) *Attribute { return b.Attr("location", int(n)) }

// Internal creates @internal(marker, args...), which marks a bodiless
// function as an intrinsic the backend provides.
func (b *Builder) Internal(marker string, args ...any) *Attribute {
	return b.Attr("internal", append([]any{b.Ident(marker)}, args...)...)
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

// Block creates { stmts }.
func (b *Builder) Block(stmts ...Stmt) *CompoundStmt {
	return create(b, b.rng, &CompoundStmt{Stmts: append([]Stmt(nil), stmts...)})
}

// Return creates return [value];
func (b *Builder) Return(value any) *ReturnStmt {
	return create(b, b.rng, &ReturnStmt{Value: b.Expr(value)})
}

// If creates if cond { body } [else els].
func (b *Builder) If(cond any, body *CompoundStmt, els Stmt) *IfStmt {
	return create(b, b.rng, &IfStmt{Condition: b.Expr(cond), Body: body, Else: els})
}

// Switch creates switch expr { cases }.
func (b *Builder) Switch(expr any, cases ...*SwitchCase) *SwitchStmt {
	return create(b, b.rng, &SwitchStmt{Expr: b.Expr(expr), Cases: cases})
}

// Case creates a switch clause.
func (b *Builder) Case(selectors []Expr, hasDefault bool, body *CompoundStmt) *SwitchCase {
	return create(b, b.rng, &SwitchCase{Selectors: selectors, HasDefault: hasDefault, Body: body})
}

// For creates for (init; cond; update) { body }.
func (b *Builder) For(init Stmt, cond any, update Stmt, body *CompoundStmt) *ForStmt {
	return create(b, b.rng, &ForStmt{Init: init, Condition: b.Expr(cond), Update: update, Body: body})
}

// While creates while cond { body }.
func (b *Builder) While(cond any, body *CompoundStmt) *WhileStmt {
	return create(b, b.rng, &WhileStmt{Condition: b.Expr(cond), Body: body})
}

// Loop creates loop { body continuing { cont } }.
func (b *Builder) Loop(body, cont *CompoundStmt) *LoopStmt {
	return create(b, b.rng, &LoopStmt{Body: body, Continuing: cont})
}

func (b *Builder) Break() *BreakStmt       { return create(b, b.rng, &BreakStmt{}) }
func (b *Builder) Continue() *ContinueStmt { return create(b, b.rng, &ContinueStmt{}) }
func (b *Builder) Discard() *DiscardStmt   { return create(b, b.rng, &DiscardStmt{}) }

// BreakIf creates break if cond;
func (b *Builder) BreakIf(cond any) *BreakIfStmt {
	return create(b, b.rng, &BreakIfStmt{Condition: b.Expr(cond)})
}

// Assign creates lhs = rhs;
func (b *Builder) Assign(lhs, rhs any) *AssignStmt {
	return b.CompoundAssign(lhs, AssignOpSimple, rhs)
}

// CompoundAssign creates lhs op= rhs;
func (b *Builder) CompoundAssign(lhs any, op AssignOp, rhs any) *AssignStmt {
	return create(b, b.rng, &AssignStmt{Op: op, Left: b.Expr(lhs), Right: b.Expr(rhs)})
}

// IncrDecr creates e++; or e--;
func (b *Builder) IncrDecr(e any, increment bool) *IncrDecrStmt {
	return create(b, b.rng, &IncrDecrStmt{Expr: b.Expr(e), Increment: increment})
}

// CallStmt wraps call as a statement.
func (b *Builder) CallStmt(call *CallExpr) *CallStmt {
	return create(b, b.rng, &CallStmt{Call: call})
}

// Decl wraps d as a statement.
func (b *Builder) Decl(d Decl) *DeclStmt {
	return create(b, b.rng, &DeclStmt{Decl: d})
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

func (b *Builder) fields(name any, ty Type, init any, attrs []*Attribute) VariableFields {
	return VariableFields{Name: b.toSymbol(name), Type: ty, Initializer: b.Expr(init), Attributes: attrs}
}

// Var creates var<space> name: ty = init; Module-scope variables must be
// added with GlobalVar or AddDecl.
func (b *Builder) Var(name any, ty Type, space AddressSpace, init any, attrs ...*Attribute) *VarDecl {
	return create(b, b.rng, &VarDecl{VariableFields: b.fields(name, ty, init, attrs), AddressSpace: space})
}

// VarAccess is Var with an explicit access mode.
func (b *Builder) VarAccess(name any, ty Type, space AddressSpace, access AccessMode, init any, attrs ...*Attribute) *VarDecl {
	return create(b, b.rng, &VarDecl{VariableFields: b.fields(name, ty, init, attrs), AddressSpace: space, AccessMode: access})
}

// GlobalVar creates a module-scope variable and appends it to Decls.
func (b *Builder) GlobalVar(name any, ty Type, space AddressSpace, init any, attrs ...*Attribute) *VarDecl {
	v := b.Var(name, ty, space, init, attrs...)
	b.AddDecl(v)
	return v
}

// Let creates let name[: ty] = init;
func (b *Builder) Let(name any, ty Type, init any) *LetDecl {
	return create(b, b.rng, &LetDecl{VariableFields: b.fields(name, ty, init, nil)})
}

// Const creates const name[: ty] = init;
func (b *Builder) Const(name any, ty Type, init any) *ConstDecl {
	return create(b, b.rng, &ConstDecl{VariableFields: b.fields(name, ty, init, nil)})
}

// Override creates override name[: ty][ = init];
func (b *Builder) Override(name any, ty Type, init any, attrs ...*Attribute) *OverrideDecl {
	return create(b, b.rng, &OverrideDecl{VariableFields: b.fields(name, ty, init, attrs)})
}

// Param creates a function parameter.
func (b *Builder) Param(name any, ty Type, attrs ...*Attribute) *Parameter {
	return create(b, b.rng, &Parameter{VariableFields: b.fields(name, ty, nil, attrs)})
}

// FuncDecl creates a function without adding it to the module.
func (b *Builder) FuncDecl(name any, params []*Parameter, ret Type, retAttrs []*Attribute, body *CompoundStmt, attrs ...*Attribute) *FunctionDecl {
	return create(b, b.rng, &FunctionDecl{
		Attributes:       attrs,
		Name:             b.toSymbol(name),
		Parameters:       params,
		ReturnType:       ret,
		ReturnAttributes: retAttrs,
		Body:             body,
	})
}

// Func creates a function and appends it to Decls. A nil body declares an
// intrinsic, which must carry an @internal attribute.
func (b *Builder) Func(name any, params []*Parameter, ret Type, body *CompoundStmt, attrs ...*Attribute) *FunctionDecl {
	f := b.FuncDecl(name, params, ret, nil, body, attrs...)
	b.AddDecl(f)
	return f
}

// Member creates a struct member.
func (b *Builder) Member(name any, ty Type, attrs ...*Attribute) *StructMember {
	return create(b, b.rng, &StructMember{Attributes: attrs, Name: b.toSymbol(name), Type: ty})
}

// StructDecl creates a struct without adding it to the module.
func (b *Builder) StructDecl(name any, members ...*StructMember) *StructDecl {
	return create(b, b.rng, &StructDecl{Name: b.toSymbol(name), Members: members})
}

// Struct creates a struct and appends it to Decls.
func (b *Builder) Struct(name any, members ...*StructMember) *StructDecl {
	s := b.StructDecl(name, members...)
	b.AddDecl(s)
	return s
}

// AliasDecl creates alias name = ty; without adding it to the module.
func (b *Builder) AliasDecl(name any, ty Type) *AliasDecl {
	return create(b, b.rng, &AliasDecl{Name: b.toSymbol(name), Type: ty})
}

// Alias creates alias name = ty; and appends it to Decls.
func (b *Builder) Alias(name any, ty Type) *AliasDecl {
	a := b.AliasDecl(name, ty)
	b.AddDecl(a)
	return a
}

// ConstAssert creates const_assert expr;
func (b *Builder) ConstAssert(e any) *ConstAssertDecl {
	return create(b, b.rng, &ConstAssertDecl{Expr: b.Expr(e)})
}

// Enable creates an enable directive and appends it to Directives.
func (b *Builder) Enable(features ...string) *EnableDirective {
	d := create(b, b.rng, &EnableDirective{Features: features})
	b.AddDirective(d)
	return d
}

// Requires creates a requires directive and appends it to Directives.
func (b *Builder) Requires(features ...string) *RequiresDirective {
	d := create(b, b.rng, &RequiresDirective{Features: features})
	b.AddDirective(d)
	return d
}

// DiagnosticControl creates diagnostic(severity, rule); and appends it to
// Directives.
func (b *Builder) DiagnosticControl(severity, rule string) *DiagnosticDirective {
	d := create(b, b.rng, &DiagnosticDirective{Severity: severity, Rule: rule})
	b.AddDirective(d)
	return d
}
