// Package transform implements the whole-program rewrite passes.
//
// Every pass reads a resolved program, registers substitution rules on an
// ast.CloneContext, clones the module into a fresh builder and resolves the
// result. Passes never modify their input. A pass that has nothing to do
// returns nil (Skip) and the Manager clones the input unchanged.
package transform

import (
	"reflect"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// Transform is a whole-program rewrite pass.
type Transform interface {
	// Name returns the name used in configuration files and logs.
	Name() string

	// Apply runs the pass over src. It returns nil when src needs no
	// change. Configuration is read from inputs; data for later passes is
	// written to outputs.
	Apply(src *program.Program, inputs, outputs *DataMap) *program.Program
}

// ----------------------------------------------------------------------------
// DataMap
// ----------------------------------------------------------------------------

// DataMap holds per-pass configuration and results, keyed by their Go
// type. Values are stored as given, normally as pointers.
type DataMap struct {
	values map[reflect.Type]any
}

// NewDataMap creates a map holding values.
func NewDataMap(values ...any) *DataMap {
	dm := &DataMap{values: make(map[reflect.Type]any)}
	for _, v := range values {
		dm.Add(v)
	}
	return dm
}

// Add stores v, replacing any value of the same type.
func (dm *DataMap) Add(v any) {
	if v == nil {
		return
	}
	dm.values[reflect.TypeOf(v)] = v
}

// Len returns the number of stored values.
func (dm *DataMap) Len() int { return len(dm.values) }

// Get returns the value of type T stored in dm.
func Get[T any](dm *DataMap) (T, bool) {
	var zero T
	if dm == nil {
		return zero, false
	}
	v, ok := dm.values[reflect.TypeOf((*T)(nil)).Elem()]
	if !ok {
		return zero, false
	}
	return v.(T), true
}

// ----------------------------------------------------------------------------
// Cloning helpers
// ----------------------------------------------------------------------------

// newCloneContext prepares a clone of src into a fresh builder. Every
// source symbol is interned up front so that fresh names never take the
// spelling of an existing declaration.
func newCloneContext(src *program.Program) *ast.CloneContext {
	return ast.NewCloneContext(ast.NewBuilder(), src.AST, true)
}

// finish clones the whole module and resolves the result.
func finish(ctx *ast.CloneContext) *program.Program {
	ctx.Clone()
	return program.Resolve(ctx.Dst())
}

// CloneProgram returns a resolved structural copy of src.
func CloneProgram(src *program.Program) *program.Program {
	return finish(newCloneContext(src))
}

// missingData reports that pass needs a configuration value it did not
// receive. The program is copied unchanged and carries the diagnostic.
func missingData(src *program.Program, pass, what string) *program.Program {
	return badData(src, diagnostic.CodeMissingTransformData,
		"missing transform data for "+pass+": "+what)
}

func badData(src *program.Program, code diagnostic.DiagnosticCode, msg string) *program.Program {
	ctx := newCloneContext(src)
	ctx.Clone()
	b := ctx.Dst()
	b.Diagnostics().AddErrorWithCode(0, code, msg)
	return program.Resolve(b)
}

// createASTType spells the semantic type t in the destination of ctx.
// Struct types are named through the symbol of their declaration.
func createASTType(ctx *ast.CloneContext, info *sem.Info, t types.Type) ast.Type {
	b := ctx.Dst()
	switch t := t.(type) {
	case *types.Scalar:
		if t.IsAbstract() {
			return createASTType(ctx, info, types.ConcreteType(t))
		}
		return b.TypeName(t.String())
	case *types.Vector:
		return b.Vec(uint8(t.Width), createASTType(ctx, info, t.Element))
	case *types.Matrix:
		return b.Mat(uint8(t.Cols), uint8(t.Rows), createASTType(ctx, info, t.Element))
	case *types.Array:
		elem := createASTType(ctx, info, t.Element)
		if t.IsRuntimeSized() {
			return b.Array(elem, nil)
		}
		return b.Array(elem, t.Count)
	case *types.Struct:
		d := info.StructDecl(t)
		if d == nil {
			diagnostic.ICE("struct '%s' has no declaration", t.Name)
		}
		return b.TypeName(ctx.CloneSymbol(d.Name))
	case *types.Atomic:
		return b.Atomic(createASTType(ctx, info, t.Element))
	case *types.Pointer:
		access := ast.AccessModeNone
		if t.AddressSpace == ast.AddressSpaceStorage {
			access = types.EffectiveAccess(t.AddressSpace, t.AccessMode)
		}
		return b.Ptr(t.AddressSpace, createASTType(ctx, info, t.Element), access)
	case *types.Reference:
		return createASTType(ctx, info, t.Element)
	case *types.Sampler:
		return b.Sampler(t.Comparison)
	case *types.Texture:
		var sampled ast.Type
		if t.SampledType != nil {
			sampled = createASTType(ctx, info, t.SampledType)
		}
		return b.Texture(t.Kind, t.Dimension, sampled, t.TexelFormat, t.AccessMode)
	}
	diagnostic.ICE("cannot spell type %v", t)
	return nil
}

// ----------------------------------------------------------------------------
// Semantic queries shared by passes
// ----------------------------------------------------------------------------

// hasSideEffects reports whether evaluating e may have side effects.
func hasSideEffects(info *sem.Info, e ast.Expr) bool {
	x := info.Expr(e)
	return x != nil && x.HasSideEffects
}

// stmtOf returns the statement annotation of the statement containing e.
func stmtOf(info *sem.Info, e ast.Expr) *sem.Statement {
	x := info.Expr(e)
	if x == nil || x.Stmt == nil {
		diagnostic.ICE("expression %v has no statement", e.Kind())
	}
	return x.Stmt
}

// rootIdent returns the identifier at the root of a chain of member,
// index, address-of and dereference expressions, or nil.
func rootIdent(e ast.Expr) *ast.IdentExpr {
	for {
		switch x := e.(type) {
		case *ast.IdentExpr:
			return x
		case *ast.MemberExpr:
			e = x.Base
		case *ast.IndexExpr:
			e = x.Base
		case *ast.UnaryExpr:
			if x.Op != ast.UnaryOpAddr && x.Op != ast.UnaryOpDeref {
				return nil
			}
			e = x.Operand
		default:
			return nil
		}
	}
}

// userFunctions returns the functions with bodies in declaration order.
func userFunctions(m *ast.Module) []*ast.FunctionDecl {
	var out []*ast.FunctionDecl
	for _, f := range m.Functions() {
		if f.Body != nil {
			out = append(out, f)
		}
	}
	return out
}

// inspectFunctions calls fn for every node inside function bodies.
func inspectFunctions(m *ast.Module, fn func(ast.Node) bool) {
	for _, f := range userFunctions(m) {
		ast.Inspect(f.Body, fn)
	}
}

// constIndex returns the constant value of an index expression.
func constIndex(info *sem.Info, e ast.Expr) (int64, bool) {
	x := info.Expr(e)
	if x == nil || x.Value == nil {
		return 0, false
	}
	return x.Value.AsInt(), true
}
