package transform

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/sem"
)

// Unshadow renames every local variable and parameter that hides another
// declaration of the same name, so that later passes can move code across
// scopes freely.
type Unshadow struct{}

func (*Unshadow) Name() string { return "Unshadow" }

// ShouldRun reports whether any declaration shadows another.
func (*Unshadow) ShouldRun(src *program.Program, _ *DataMap) bool {
	for _, f := range src.Sem.Functions {
		for _, p := range f.Parameters {
			if p.Shadows != nil {
				return true
			}
		}
	}
	found := false
	inspectFunctions(src.AST, func(n ast.Node) bool {
		if d, ok := n.(ast.Variable); ok {
			if v := src.Sem.Variable(d); v != nil && v.Shadows != nil {
				found = true
			}
		}
		return !found
	})
	return found
}

func (u *Unshadow) Apply(src *program.Program, inputs, _ *DataMap) *program.Program {
	if !u.ShouldRun(src, inputs) {
		return nil
	}
	ctx := newCloneContext(src)
	info := src.Sem
	b := ctx.Dst()

	renamed := make(map[*sem.Variable]ast.Symbol)
	rename := func(v *sem.Variable) ast.Symbol {
		if s, ok := renamed[v]; ok {
			return s
		}
		s := b.NewSym(v.Name())
		renamed[v] = s
		return s
	}

	ast.ReplaceAll(ctx, func(d ast.Variable) ast.Node {
		v := info.Variable(d)
		if v == nil || v.Shadows == nil {
			return nil
		}
		return renameVariable(ctx, d, rename(v))
	})
	ast.ReplaceAll(ctx, func(id *ast.IdentExpr) ast.Node {
		v := info.Ident(id).Variable
		if v == nil || v.Shadows == nil {
			return nil
		}
		return b.Ident(rename(v))
	})
	return finish(ctx)
}

// renameVariable clones the declaration d under the name sym.
func renameVariable(ctx *ast.CloneContext, d ast.Variable, sym ast.Symbol) ast.Node {
	b := ctx.Dst()
	f := d.Fields()
	ty := ast.Clone(ctx, f.Type)
	init := ast.Clone(ctx, f.Initializer)
	attrs := ast.CloneList(ctx, ast.AttributesOf(d), f.Attributes)
	switch d := d.(type) {
	case *ast.VarDecl:
		return b.VarAccess(sym, ty, d.AddressSpace, d.AccessMode, init, attrs...)
	case *ast.LetDecl:
		return b.Let(sym, ty, init)
	case *ast.ConstDecl:
		return b.Const(sym, ty, init)
	case *ast.Parameter:
		return b.Param(sym, ty, attrs...)
	}
	diagnostic.ICE("cannot rename %v", d.Kind())
	return nil
}
