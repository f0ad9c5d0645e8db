package transform

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// LocalizeStructArrayAssignment rewrites assignments through a dynamic
// index into an array member of a struct held in a function or private
// variable. The whole variable is copied into a local, the store goes to
// the local and the local is written back:
//
//	s.arr[i] = v;    {
//	                     var tmp = s;
//	                     tmp.arr[i] = v;
//	                     s = tmp;
//	                 }
//
// Roots reached through a pointer are read and written as *p.
type LocalizeStructArrayAssignment struct{}

func (*LocalizeStructArrayAssignment) Name() string { return "LocalizeStructArrayAssignment" }

func (*LocalizeStructArrayAssignment) ShouldRun(src *program.Program, _ *DataMap) bool {
	found := false
	inspectFunctions(src.AST, func(n ast.Node) bool {
		if s, ok := n.(*ast.AssignStmt); ok {
			_, _, found = localizedRoot(src.Sem, s)
		}
		return !found
	})
	return found
}

// localizedRoot returns the root of the assignment target when s stores
// through a dynamic index into an array held in a struct member: the
// expression to replace with the local copy and the identifier naming the
// variable or pointer.
func localizedRoot(info *sem.Info, s *ast.AssignStmt) (ast.Expr, *ast.IdentExpr, bool) {
	st := info.Stmt(s)
	if st == nil || st.Parent == nil {
		return nil, nil, false
	}
	if _, ok := st.Parent.Node.(*ast.CompoundStmt); !ok {
		return nil, nil, false
	}

	dynamic := false
	e := s.Left
	for {
		switch x := e.(type) {
		case *ast.IndexExpr:
			_, isArray := types.UnwrapRef(info.TypeOf(x.Base)).(*types.Array)
			_, inMember := x.Base.(*ast.MemberExpr)
			if _, ok := constIndex(info, x.Index); !ok && isArray && inMember {
				dynamic = true
			}
			e = x.Base
			continue
		case *ast.MemberExpr:
			e = x.Base
			continue
		}
		break
	}
	if !dynamic {
		return nil, nil, false
	}

	var id *ast.IdentExpr
	switch x := e.(type) {
	case *ast.IdentExpr:
		id = x
	case *ast.UnaryExpr:
		inner, ok := x.Operand.(*ast.IdentExpr)
		if !ok || x.Op != ast.UnaryOpDeref {
			return nil, nil, false
		}
		id = inner
	default:
		return nil, nil, false
	}
	v := info.Ident(id).Variable
	if v == nil {
		return nil, nil, false
	}
	space := v.AddressSpace
	if p, ok := v.Type.(*types.Pointer); ok {
		space = p.AddressSpace
	}
	if space != ast.AddressSpaceFunction && space != ast.AddressSpacePrivate {
		return nil, nil, false
	}
	return e, id, true
}

func (l *LocalizeStructArrayAssignment) Apply(src *program.Program, inputs, _ *DataMap) *program.Program {
	if !l.ShouldRun(src, inputs) {
		return nil
	}
	ctx := newCloneContext(src)
	info := src.Sem
	b := ctx.Dst()

	inspectFunctions(src.AST, func(n ast.Node) bool {
		s, ok := n.(*ast.AssignStmt)
		if !ok {
			return true
		}
		root, id, ok := localizedRoot(info, s)
		if !ok {
			return true
		}
		tmp := b.NewSym("tmp")
		ctx.ReplaceFunc(root, func() ast.Node { return b.Ident(tmp) })

		name := ctx.CloneSymbol(id.Symbol)
		isPtr := types.IsPointer(info.Ident(id).Variable.Type)
		whole := func() ast.Expr {
			if isPtr {
				return b.Deref(b.Ident(name))
			}
			return b.Ident(name)
		}
		ctx.ReplaceFunc(s, func() ast.Node {
			return b.Block(
				b.Decl(b.Var(tmp, nil, ast.AddressSpaceNone, whole())),
				b.CompoundAssign(ast.Clone(ctx, s.Left), s.Op, ast.Clone(ctx, s.Right)),
				b.Assign(whole(), b.Ident(tmp)),
			)
		})
		return false
	})

	return finish(ctx)
}
