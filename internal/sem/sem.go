// Package sem holds the semantic information the resolver attaches to an
// ast.Module: the type of every expression, what every identifier and call
// refers to, variable and function summaries, and statement behaviors.
//
// Every table is keyed by node identity. An Info is filled by the resolver
// and only read afterwards.
package sem

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/builtins"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// Info is the semantic annotation store of one module.
type Info struct {
	exprs       map[ast.Expr]*Expression
	idents      map[*ast.IdentExpr]Target
	calls       map[*ast.CallExpr]*Call
	members     map[*ast.MemberExpr]*MemberAccess
	variables   map[ast.Variable]*Variable
	functions   map[*ast.FunctionDecl]*Function
	stmts       map[ast.Stmt]*Statement
	structs     map[*ast.StructDecl]*types.Struct
	structDecls map[*types.Struct]*ast.StructDecl
	typeNodes   map[ast.Type]types.Type

	// Functions lists the module's functions in declaration order.
	Functions []*Function
}

// NewInfo returns an empty store.
func NewInfo() *Info {
	return &Info{
		exprs:       make(map[ast.Expr]*Expression),
		idents:      make(map[*ast.IdentExpr]Target),
		calls:       make(map[*ast.CallExpr]*Call),
		members:     make(map[*ast.MemberExpr]*MemberAccess),
		variables:   make(map[ast.Variable]*Variable),
		functions:   make(map[*ast.FunctionDecl]*Function),
		stmts:       make(map[ast.Stmt]*Statement),
		structs:     make(map[*ast.StructDecl]*types.Struct),
		structDecls: make(map[*types.Struct]*ast.StructDecl),
		typeNodes:   make(map[ast.Type]types.Type),
	}
}

// ----------------------------------------------------------------------------
// Queries
// ----------------------------------------------------------------------------

// Expr returns the annotation of e, or nil if e was not resolved.
func (i *Info) Expr(e ast.Expr) *Expression { return i.exprs[e] }

// TypeOf returns the type of e, or nil.
func (i *Info) TypeOf(e ast.Expr) types.Type {
	if x := i.exprs[e]; x != nil {
		return x.Type
	}
	return nil
}

// Ident returns what the identifier expression refers to.
func (i *Info) Ident(e *ast.IdentExpr) Target { return i.idents[e] }

// Call returns the annotation of a call expression.
func (i *Info) Call(e *ast.CallExpr) *Call { return i.calls[e] }

// Member returns the annotation of a member access.
func (i *Info) Member(e *ast.MemberExpr) *MemberAccess { return i.members[e] }

// Variable returns the annotation of a variable declaration.
func (i *Info) Variable(v ast.Variable) *Variable { return i.variables[v] }

// Function returns the annotation of a function declaration.
func (i *Info) Function(f *ast.FunctionDecl) *Function { return i.functions[f] }

// Stmt returns the annotation of a statement.
func (i *Info) Stmt(s ast.Stmt) *Statement { return i.stmts[s] }

// Struct returns the semantic struct of a declaration.
func (i *Info) Struct(d *ast.StructDecl) *types.Struct { return i.structs[d] }

// StructDecl returns the declaration of a semantic struct, or nil for
// builtin result structs.
func (i *Info) StructDecl(s *types.Struct) *ast.StructDecl { return i.structDecls[s] }

// Type returns the resolved type of a type node.
func (i *Info) Type(t ast.Type) types.Type { return i.typeNodes[t] }

// ----------------------------------------------------------------------------
// Recording (used by the resolver)
// ----------------------------------------------------------------------------

func (i *Info) SetExpr(e ast.Expr, x *Expression)            { i.exprs[e] = x }
func (i *Info) SetIdent(e *ast.IdentExpr, t Target)          { i.idents[e] = t }
func (i *Info) SetCall(e *ast.CallExpr, c *Call)             { i.calls[e] = c }
func (i *Info) SetMember(e *ast.MemberExpr, m *MemberAccess) { i.members[e] = m }
func (i *Info) SetVariable(d ast.Variable, v *Variable)      { i.variables[d] = v }
func (i *Info) SetStmt(s ast.Stmt, st *Statement)            { i.stmts[s] = st }
func (i *Info) SetType(t ast.Type, ty types.Type)            { i.typeNodes[t] = ty }

// SetFunction records a function and appends it to Functions.
func (i *Info) SetFunction(d *ast.FunctionDecl, f *Function) {
	i.functions[d] = f
	i.Functions = append(i.Functions, f)
}

// SetStruct records both directions of a struct declaration.
func (i *Info) SetStruct(d *ast.StructDecl, s *types.Struct) {
	i.structs[d] = s
	i.structDecls[s] = d
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

// Expression is the annotation of one expression node.
type Expression struct {
	Node ast.Expr

	// Type is a *types.Reference for expressions that name memory.
	Type types.Type

	// Stmt is the statement that owns the expression. It is nil for
	// expressions at module scope (initializers, array counts, attributes).
	Stmt *Statement

	Function *Function

	// Value is the constant value, or nil.
	Value *Value

	HasSideEffects bool

	// RootVariable is the variable a memory view or pointer originates
	// from. Pointer lets are chased to their initializer's root.
	RootVariable *Variable
}

// UnwrappedType returns the type with any reference removed.
func (e *Expression) UnwrappedType() types.Type { return types.UnwrapRef(e.Type) }

// IsReference reports whether the expression names memory.
func (e *Expression) IsReference() bool { return types.IsReference(e.Type) }

// IsConstant reports whether the expression has a constant value.
func (e *Expression) IsConstant() bool { return e.Value != nil }

// Value is a constant scalar value. Composite constants are not folded.
type Value struct {
	Type  *types.Scalar
	Int   int64
	Float float64
	Bool  bool
}

// AsInt returns the value as an integer, truncating floats.
func (v *Value) AsInt() int64 {
	switch {
	case v.Type.IsFloat():
		return int64(v.Float)
	case v.Type.Kind == types.ScalarBool:
		if v.Bool {
			return 1
		}
		return 0
	}
	return v.Int
}

// AsFloat returns the value as a float.
func (v *Value) AsFloat() float64 {
	if v.Type.IsFloat() {
		return v.Float
	}
	return float64(v.AsInt())
}

// ----------------------------------------------------------------------------
// Identifiers, calls and member accesses
// ----------------------------------------------------------------------------

// Target is what an identifier refers to. Exactly one field is set.
type Target struct {
	Variable *Variable
	Function *Function
	Builtin  *builtins.Builtin
	Type     types.Type
}

// CallKind tells what a call expression invokes.
type CallKind uint8

const (
	CallBuiltin CallKind = iota
	CallFunction
	CallConstructor
	CallConversion
)

// Call is the annotation of a call expression.
type Call struct {
	Kind     CallKind
	Builtin  *builtins.Builtin // CallBuiltin
	Function *Function         // CallFunction
	Type     types.Type        // CallConstructor and CallConversion
	Args     []*Expression
}

// MemberAccess is either a struct field access or a vector swizzle.
type MemberAccess struct {
	Struct  *types.Struct
	Field   *types.StructField
	Swizzle []int
}

// IsSwizzle reports whether the access is a swizzle.
func (m *MemberAccess) IsSwizzle() bool { return m.Field == nil }

// ----------------------------------------------------------------------------
// Variables
// ----------------------------------------------------------------------------

// VariableKind distinguishes the variable declaration forms.
type VariableKind uint8

const (
	VariableVar VariableKind = iota
	VariableLet
	VariableConst
	VariableOverride
	VariableParameter
)

// BindingPoint is a @group/@binding pair.
type BindingPoint struct {
	Group   uint32
	Binding uint32
}

// Variable is the annotation of a variable declaration.
type Variable struct {
	Decl         ast.Variable
	Kind         VariableKind
	AddressSpace ast.AddressSpace
	Access       ast.AccessMode

	// Type is the store type: the type of the value held, never a
	// reference.
	Type types.Type

	BindingPoint *BindingPoint
	Location     *uint32

	// Users lists every identifier that refers to the variable, in
	// resolution order.
	Users []*ast.IdentExpr

	// Shadows is the declaration of the same name the variable hides,
	// or nil.
	Shadows ast.Node

	// Function is nil for module-scope variables.
	Function *Function

	// Index is the parameter index, or -1.
	Index int

	Value       *Value
	Initializer *Expression
}

// Name returns the declared name.
func (v *Variable) Name() string { return v.Decl.Fields().Name.Name() }

// IsGlobal reports whether the variable is declared at module scope.
func (v *Variable) IsGlobal() bool { return v.Function == nil && v.Kind != VariableParameter }

// ----------------------------------------------------------------------------
// Functions
// ----------------------------------------------------------------------------

// PipelineStage is the shader stage of an entry point.
type PipelineStage uint8

const (
	StageNone PipelineStage = iota
	StageVertex
	StageFragment
	StageCompute
)

func (s PipelineStage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return "none"
	}
}

// Function is the annotation of a function declaration.
type Function struct {
	Decl          *ast.FunctionDecl
	Parameters    []*Variable
	ReturnType    types.Type // types.VoidType when absent
	Stage         PipelineStage
	WorkgroupSize [3]uint32

	// CallSites are the calls to this function, in resolution order.
	CallSites []*ast.CallExpr

	// Callees are the user functions called directly, deduplicated, in
	// first-call order.
	Callees []*Function

	// DirectGlobals are the module-scope variables referenced in the body.
	DirectGlobals []*Variable

	// TransitiveGlobals adds the globals of every transitive callee.
	TransitiveGlobals []*Variable

	// AncestorEntryPoints are the entry points that reach this function.
	AncestorEntryPoints []*Function

	Behaviors Behaviors
}

// Name returns the declared name.
func (f *Function) Name() string { return f.Decl.Name.Name() }

// IsEntryPoint reports whether the function has a pipeline stage.
func (f *Function) IsEntryPoint() bool { return f.Stage != StageNone }

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

// Behaviors is the set of ways control can leave a statement.
type Behaviors uint8

const (
	BehaviorNext Behaviors = 1 << iota
	BehaviorReturn
	BehaviorBreak
	BehaviorContinue
)

// Contains reports whether every behavior in o is in b.
func (b Behaviors) Contains(o Behaviors) bool { return b&o == o }

// Without returns b with o removed.
func (b Behaviors) Without(o Behaviors) Behaviors { return b &^ o }

func (b Behaviors) String() string {
	if b == 0 {
		return "{}"
	}
	s := "{"
	for i, name := range []string{"Next", "Return", "Break", "Continue"} {
		if b&(1<<i) != 0 {
			if len(s) > 1 {
				s += ", "
			}
			s += name
		}
	}
	return s + "}"
}

// Statement is the annotation of a statement.
type Statement struct {
	Node     ast.Stmt
	Parent   *Statement
	Block    *ast.CompoundStmt // innermost enclosing block, nil for a function body
	Function *Function

	Behaviors Behaviors

	// Reachable is false when a preceding sibling cannot fall through.
	Reachable bool
}

// FindParent returns the nearest ancestor statement (including s) whose
// node satisfies pred.
func (s *Statement) FindParent(pred func(ast.Stmt) bool) *Statement {
	for p := s; p != nil; p = p.Parent {
		if pred(p.Node) {
			return p
		}
	}
	return nil
}
