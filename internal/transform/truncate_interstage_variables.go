package transform

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// TruncateInterstageVariablesConfig names the locations the fragment stage
// reads.
type TruncateInterstageVariablesConfig struct {
	// InterstageLocations has bit i set when @location(i) is used.
	InterstageLocations uint32
}

// Used reports whether location loc survives truncation.
func (c *TruncateInterstageVariablesConfig) Used(loc int64) bool {
	return loc >= 0 && loc < 32 && c.InterstageLocations&(1<<uint(loc)) != 0
}

// TruncateInterstageVariables drops the vertex outputs the next stage
// does not read. Each vertex entry point returning a struct with unused
// @location members returns a truncated copy instead:
//
//	struct VSOut_truncated { @builtin(position) pos: vec4<f32>, @location(1) b: f32, }
//	fn truncate_VSOut(io: VSOut) -> VSOut_truncated {
//	    return VSOut_truncated(io.pos, io.b);
//	}
//
// The original struct keeps its attributes, so it may still be used
// elsewhere.
type TruncateInterstageVariables struct{}

func (*TruncateInterstageVariables) Name() string { return "TruncateInterstageVariables" }

func (*TruncateInterstageVariables) ShouldRun(src *program.Program, inputs *DataMap) bool {
	cfg, ok := Get[*TruncateInterstageVariablesConfig](inputs)
	if !ok {
		return true
	}
	for _, fn := range src.Sem.Functions {
		if _, _, ok := truncatedOutputs(src.Sem, fn, cfg); ok {
			return true
		}
	}
	return false
}

// truncatedOutputs returns the output struct of a vertex entry point and
// the indices of its members to keep. ok is false when nothing is dropped.
func truncatedOutputs(info *sem.Info, fn *sem.Function, cfg *TruncateInterstageVariablesConfig) (*ast.StructDecl, []int, bool) {
	if fn.Stage != sem.StageVertex {
		return nil, nil, false
	}
	st, ok := fn.ReturnType.(*types.Struct)
	if !ok {
		return nil, nil, false
	}
	decl := info.StructDecl(st)
	if decl == nil {
		return nil, nil, false
	}
	var keep []int
	for i, m := range decl.Members {
		if a := ast.FindAttribute(m.Attributes, "location"); a != nil && len(a.Args) > 0 {
			if x := info.Expr(a.Args[0]); x != nil && x.Value != nil && !cfg.Used(x.Value.AsInt()) {
				continue
			}
		}
		keep = append(keep, i)
	}
	return decl, keep, len(keep) < len(decl.Members)
}

func (t *TruncateInterstageVariables) Apply(src *program.Program, inputs, _ *DataMap) *program.Program {
	cfg, ok := Get[*TruncateInterstageVariablesConfig](inputs)
	if !ok {
		return missingData(src, t.Name(), "TruncateInterstageVariablesConfig")
	}
	if !t.ShouldRun(src, inputs) {
		return nil
	}
	ctx := newCloneContext(src)
	info := src.Sem
	b := ctx.Dst()

	type truncation struct{ st, fn ast.Symbol }
	done := make(map[*ast.StructDecl]truncation)

	for _, fn := range info.Functions {
		decl, keep, ok := truncatedOutputs(info, fn, cfg)
		if !ok {
			continue
		}
		tr, ok := done[decl]
		if !ok {
			name := decl.Name.Name()
			tr = truncation{st: b.NewSym(name + "_truncated"), fn: b.NewSym("truncate_" + name)}
			done[decl] = tr

			io := b.Sym("io")
			members := make([]*ast.StructMember, 0, len(keep))
			fields := make([]any, 0, len(keep))
			for _, i := range keep {
				m := decl.Members[i]
				attrs := make([]*ast.Attribute, len(m.Attributes))
				for j, a := range m.Attributes {
					attrs[j] = ast.Duplicate(ctx, a)
				}
				name := ctx.CloneSymbol(m.Name)
				members = append(members, b.Member(name, ast.Duplicate(ctx, m.Type), attrs...))
				fields = append(fields, b.MemberAccessor(io, name))
			}
			orig := ctx.CloneSymbol(decl.Name)
			ctx.InsertAfter(ast.GlobalDecls, decl, b.StructDecl(tr.st, members...))
			ctx.InsertAfter(ast.GlobalDecls, decl, b.FuncDecl(tr.fn,
				[]*ast.Parameter{b.Param(io, b.TypeName(orig))},
				b.TypeName(tr.st), nil,
				b.Block(b.Return(b.Call(tr.st, fields...)))))
		}

		f := fn.Decl
		ctx.ReplaceFunc(f.ReturnType, func() ast.Node { return b.TypeName(tr.st) })
		ast.Inspect(f.Body, func(n ast.Node) bool {
			if r, ok := n.(*ast.ReturnStmt); ok && r.Value != nil {
				v := r.Value
				ctx.ReplaceFunc(v, func() ast.Node {
					return b.Call(tr.fn, ast.CloneWithoutTransform(ctx, v))
				})
			}
			return true
		})
	}

	return finish(ctx)
}
