package transform

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/program"
)

// RemoveUnreachableStatements removes the statements that follow one that
// cannot fall through, as found by the behavior analysis of the resolver.
type RemoveUnreachableStatements struct{}

func (*RemoveUnreachableStatements) Name() string { return "RemoveUnreachableStatements" }

// ShouldRun reports whether src contains an unreachable statement.
func (*RemoveUnreachableStatements) ShouldRun(src *program.Program, _ *DataMap) bool {
	return len(unreachableStatements(src)) > 0
}

func (r *RemoveUnreachableStatements) Apply(src *program.Program, inputs, _ *DataMap) *program.Program {
	dead := unreachableStatements(src)
	if len(dead) == 0 {
		return nil
	}
	ctx := newCloneContext(src)
	for _, s := range dead {
		removeStmt(ctx, src.Sem, s)
	}
	return finish(ctx)
}

// unreachableStatements returns the outermost unreachable statements.
func unreachableStatements(src *program.Program) []ast.Stmt {
	var dead []ast.Stmt
	inspectFunctions(src.AST, func(n ast.Node) bool {
		s, ok := n.(ast.Stmt)
		if !ok {
			return true
		}
		if st := src.Sem.Stmt(s); st != nil && !st.Reachable {
			dead = append(dead, s)
			return false
		}
		return true
	})
	return dead
}
