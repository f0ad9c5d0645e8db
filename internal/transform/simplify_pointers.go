package transform

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// SimplifyPointers removes pointer lets by inlining their initializers at
// every use and folds chains of address-of and dereference down to the
// fewest operations. Dynamic indices inside an inlined initializer are
// saved into lets at the place of the pointer let, so they are evaluated
// once and at the same point as before.
type SimplifyPointers struct{}

func (*SimplifyPointers) Name() string { return "SimplifyPointers" }

// ShouldRun reports whether src declares a pointer let or applies & to a
// dereference (or the reverse).
func (*SimplifyPointers) ShouldRun(src *program.Program, _ *DataMap) bool {
	found := false
	inspectFunctions(src.AST, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.LetDecl:
			found = isPointerLet(src.Sem, n)
		case *ast.UnaryExpr:
			if u, ok := n.Operand.(*ast.UnaryExpr); ok {
				found = n.Op == ast.UnaryOpAddr && u.Op == ast.UnaryOpDeref ||
					n.Op == ast.UnaryOpDeref && u.Op == ast.UnaryOpAddr
			}
		}
		return !found
	})
	return found
}

func isPointerLet(info *sem.Info, d *ast.LetDecl) bool {
	v := info.Variable(d)
	return v != nil && v.Function != nil && types.IsPointer(v.Type)
}

func (s *SimplifyPointers) Apply(src *program.Program, inputs, _ *DataMap) *program.Program {
	if !s.ShouldRun(src, inputs) {
		return nil
	}
	ctx := newCloneContext(src)
	info := src.Sem
	b := ctx.Dst()

	saved := make(map[ast.Expr]ast.Symbol)
	ast.ReplaceAll(ctx, func(e ast.Expr) ast.Expr {
		if sym, ok := saved[e]; ok {
			return b.Ident(sym)
		}
		root, indirections := reducePointer(info, e)
		out := ast.CloneWithoutTransform(ctx, root)
		for ; indirections > 0; indirections-- {
			out = b.Deref(out)
		}
		for ; indirections < 0; indirections++ {
			out = b.AddressOf(out)
		}
		return out
	})

	inspectFunctions(src.AST, func(n ast.Node) bool {
		ds, ok := n.(*ast.DeclStmt)
		if !ok {
			return true
		}
		let, ok := ds.Decl.(*ast.LetDecl)
		if !ok || !isPointerLet(info, let) {
			return true
		}

		anchor := outermostInBlock(info.Stmt(ds))
		block := anchor.Parent.Node.(*ast.CompoundStmt)
		prefix := let.Name.Name() + "_save"
		collectSavedIndices(let.Initializer, func(idx ast.Expr) {
			sym := b.NewSym(prefix)
			saved[idx] = sym
			ctx.InsertBefore(ast.StmtsOf(block), anchor.Node, func() ast.Node {
				return b.Decl(b.Let(sym, nil, ast.CloneWithoutTransform(ctx, idx)))
			})
		})
		removeStmt(ctx, info, ds)
		return false
	})
	return finish(ctx)
}

// reducePointer strips address-of and dereference operators from e and
// replaces pointer lets by their initializers. It returns the remaining
// expression and the number of dereferences (negative for address-of) to
// put back on it.
func reducePointer(info *sem.Info, e ast.Expr) (ast.Expr, int) {
	n := 0
	for {
		switch x := e.(type) {
		case *ast.UnaryExpr:
			switch x.Op {
			case ast.UnaryOpDeref:
				n++
				e = x.Operand
				continue
			case ast.UnaryOpAddr:
				n--
				e = x.Operand
				continue
			}
		case *ast.IdentExpr:
			if v := info.Ident(x).Variable; v != nil {
				if let, ok := v.Decl.(*ast.LetDecl); ok && isPointerLet(info, let) {
					e = let.Initializer
					continue
				}
			}
		}
		return e, n
	}
}

// collectSavedIndices calls fn for every non-literal index in the pointer
// expression e, outermost object first.
func collectSavedIndices(e ast.Expr, fn func(ast.Expr)) {
	switch x := e.(type) {
	case *ast.IndexExpr:
		collectSavedIndices(x.Base, fn)
		if _, lit := x.Index.(*ast.LiteralExpr); !lit {
			fn(x.Index)
		}
	case *ast.MemberExpr:
		collectSavedIndices(x.Base, fn)
	case *ast.UnaryExpr:
		collectSavedIndices(x.Operand, fn)
	}
}

// outermostInBlock returns st or the ancestor of st that sits directly in
// a block, such as the for loop owning an initializer.
func outermostInBlock(st *sem.Statement) *sem.Statement {
	for st.Parent != nil {
		if _, ok := st.Parent.Node.(*ast.CompoundStmt); ok {
			return st
		}
		st = st.Parent
	}
	return st
}
