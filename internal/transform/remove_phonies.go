package transform

import (
	"strconv"
	"strings"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// RemovePhonies removes phony assignments (_ = e). The side effects of e
// are kept: a single call becomes a call statement, several calls become
// the arguments of a generated phony_sink function.
type RemovePhonies struct{}

func (*RemovePhonies) Name() string { return "RemovePhonies" }

// ShouldRun reports whether src contains a phony assignment.
func (*RemovePhonies) ShouldRun(src *program.Program, _ *DataMap) bool {
	found := false
	inspectFunctions(src.AST, func(n ast.Node) bool {
		if a, ok := n.(*ast.AssignStmt); ok && isPhony(a) {
			found = true
		}
		return !found
	})
	return found
}

func isPhony(a *ast.AssignStmt) bool {
	_, ok := a.Left.(*ast.PhonyExpr)
	return ok
}

func (r *RemovePhonies) Apply(src *program.Program, inputs, _ *DataMap) *program.Program {
	if !r.ShouldRun(src, inputs) {
		return nil
	}
	ctx := newCloneContext(src)
	info := src.Sem
	b := ctx.Dst()

	sinks := make(map[string]ast.Symbol)
	sinkFor := func(calls []*ast.CallExpr) ast.Symbol {
		argTypes := make([]types.Type, len(calls))
		names := make([]string, len(calls))
		for i, c := range calls {
			argTypes[i] = info.Expr(c).UnwrappedType()
			names[i] = argTypes[i].String()
		}
		key := strings.Join(names, ",")
		if sym, ok := sinks[key]; ok {
			return sym
		}
		sym := b.NewSym("phony_sink")
		params := make([]*ast.Parameter, len(argTypes))
		for i, t := range argTypes {
			params[i] = b.Param(b.Sym("p"+strconv.Itoa(i)), createASTType(ctx, info, t))
		}
		// Created while the calling function is being cloned, so the sink
		// lands in front of it.
		b.Func(sym, params, nil, b.Block())
		sinks[key] = sym
		return sym
	}

	inspectFunctions(src.AST, func(n ast.Node) bool {
		a, ok := n.(*ast.AssignStmt)
		if !ok || !isPhony(a) {
			return true
		}
		calls := sideEffectCalls(info, a.Right)
		switch {
		case len(calls) == 0:
			removeStmt(ctx, info, a)
		case len(calls) == 1:
			ctx.ReplaceFunc(a, func() ast.Node {
				return b.CallStmt(ast.Clone(ctx, calls[0]))
			})
		default:
			ctx.ReplaceFunc(a, func() ast.Node {
				args := make([]any, len(calls))
				for i, c := range calls {
					args[i] = ast.Clone(ctx, c)
				}
				return b.CallStmt(b.Call(sinkFor(calls), args...))
			})
		}
		return false
	})
	return finish(ctx)
}

// sideEffectCalls returns the outermost calls in e that have side effects
// of their own, in evaluation order. Constructors, conversions and pure
// builtins are looked through: only their arguments can have effects.
func sideEffectCalls(info *sem.Info, e ast.Expr) []*ast.CallExpr {
	var calls []*ast.CallExpr
	ast.TraverseExpressions(e, ast.LeftToRight, func(x ast.Expr, _ int) ast.TraverseAction {
		if !hasSideEffects(info, x) {
			return ast.Skip
		}
		if c, ok := x.(*ast.CallExpr); ok && isEffectfulCall(info, c) {
			calls = append(calls, c)
			return ast.Skip
		}
		return ast.Descend
	})
	return calls
}

// isEffectfulCall reports whether c may have side effects regardless of
// its arguments.
func isEffectfulCall(info *sem.Info, c *ast.CallExpr) bool {
	sc := info.Call(c)
	if sc == nil {
		return false
	}
	switch sc.Kind {
	case sem.CallFunction:
		return true
	case sem.CallBuiltin:
		return sc.Builtin.SideEffects
	}
	return false
}

// removeStmt drops s from the clone. Statements in a block are removed
// from the block; a for loop initializer or update is left out.
func removeStmt(ctx *ast.CloneContext, info *sem.Info, s ast.Stmt) {
	st := info.Stmt(s)
	if st != nil && st.Parent != nil {
		if block, ok := st.Parent.Node.(*ast.CompoundStmt); ok {
			ctx.Remove(ast.StmtsOf(block), s)
			return
		}
	}
	ctx.ReplaceFunc(s, func() ast.Node { return nil })
}
