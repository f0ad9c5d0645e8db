package transform

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// ExpandCompoundAssignment rewrites compound assignments (x op= y) and
// increments (x++, x--) into plain assignments (x = x op y). Parts of the
// left-hand side that must only be evaluated once are hoisted into lets.
type ExpandCompoundAssignment struct{}

func (*ExpandCompoundAssignment) Name() string { return "ExpandCompoundAssignment" }

// ShouldRun reports whether src contains a compound assignment or an
// increment statement.
func (*ExpandCompoundAssignment) ShouldRun(src *program.Program, _ *DataMap) bool {
	found := false
	inspectFunctions(src.AST, func(n ast.Node) bool {
		switch s := n.(type) {
		case *ast.AssignStmt:
			found = s.Op != ast.AssignOpSimple
		case *ast.IncrDecrStmt:
			found = true
		}
		return !found
	})
	return found
}

func (e *ExpandCompoundAssignment) Apply(src *program.Program, inputs, _ *DataMap) *program.Program {
	if !e.ShouldRun(src, inputs) {
		return nil
	}
	ctx := newCloneContext(src)
	x := &compoundExpander{ctx: ctx, info: src.Sem, hoist: newHoister(ctx, src.Sem)}
	inspectFunctions(src.AST, func(n ast.Node) bool {
		switch s := n.(type) {
		case *ast.AssignStmt:
			if s.Op != ast.AssignOpSimple {
				x.expand(s, s.Left, s.Right, s.Op.BinaryOp())
			}
		case *ast.IncrDecrStmt:
			op := ast.BinOpAdd
			if !s.Increment {
				op = ast.BinOpSub
			}
			x.expand(s, s.Expr, nil, op)
		}
		return true
	})
	return finish(ctx)
}

type compoundExpander struct {
	ctx   *ast.CloneContext
	info  *sem.Info
	hoist *hoister
}

// expand replaces stmt with lhs = lhs op rhs. A nil rhs stands for the
// literal one of the type of lhs.
func (x *compoundExpander) expand(stmt ast.Stmt, lhs, rhs ast.Expr, op ast.BinaryOp) {
	b := x.ctx.Dst()
	st := x.info.Stmt(stmt)

	hoistPointer := func(e ast.Expr) ast.Symbol {
		sym := b.NewSym("ptr")
		x.hoist.InsertBefore(st, func() ast.Node {
			return b.Decl(b.Let(sym, nil, b.AddressOf(ast.Clone(x.ctx, e))))
		})
		return sym
	}
	hoistLet := func(e ast.Expr) ast.Symbol {
		sym := b.NewSym("index")
		x.hoist.InsertBefore(st, func() ast.Node {
			return b.Decl(b.Let(sym, nil, ast.Clone(x.ctx, e)))
		})
		return sym
	}

	// newLHS runs twice, so it must not evaluate anything with side
	// effects and must not share nodes between its results.
	var newLHS func() ast.Expr
	index, _ := lhs.(*ast.IndexExpr)
	member, _ := lhs.(*ast.MemberExpr)
	switch {
	case isIdent(lhs) || member != nil && isIdent(member.Base):
		newLHS = func() ast.Expr { return ast.Duplicate(x.ctx, lhs) }
	case index != nil && x.isVector(index.Base):
		ptr := hoistPointer(index.Base)
		idx := hoistLet(index.Index)
		newLHS = func() ast.Expr { return b.Index(b.Deref(ptr), idx) }
	case member != nil && x.isVector(member.Base):
		ptr := hoistPointer(member.Base)
		newLHS = func() ast.Expr { return b.MemberAccessor(b.Deref(ptr), x.ctx.CloneSymbol(member.Member)) }
	default:
		ptr := hoistPointer(lhs)
		newLHS = func() ast.Expr { return b.Deref(ptr) }
	}

	x.ctx.ReplaceFunc(stmt, func() ast.Node {
		var value ast.Expr
		if rhs != nil {
			value = ast.Clone(x.ctx, rhs)
		} else {
			value = x.one(lhs)
		}
		return b.Assign(newLHS(), b.Binary(op, newLHS(), value))
	})
}

func (x *compoundExpander) isVector(e ast.Expr) bool {
	return types.IsVector(x.info.Expr(e).UnwrappedType())
}

// one returns 1i or 1u, matching the type of e.
func (x *compoundExpander) one(e ast.Expr) ast.Expr {
	b := x.ctx.Dst()
	if s := types.ScalarOf(x.info.Expr(e).UnwrappedType()); s != nil && s.Kind == types.ScalarU32 {
		return b.U32(1)
	}
	return b.I32(1)
}

func isIdent(e ast.Expr) bool {
	_, ok := e.(*ast.IdentExpr)
	return ok
}
