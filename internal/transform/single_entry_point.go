package transform

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/dce"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/program"
)

// SingleEntryPointConfig names the entry point to keep.
type SingleEntryPointConfig struct {
	EntryPoint string
}

// SingleEntryPoint strips a module down to one entry point and the
// module-scope declarations it reaches.
type SingleEntryPoint struct{}

func (*SingleEntryPoint) Name() string { return "SingleEntryPoint" }

// ShouldRun reports whether anything besides the chosen entry point's
// dependencies is declared. It is true for a missing configuration or an
// unknown entry point so that Apply can report them.
func (*SingleEntryPoint) ShouldRun(src *program.Program, inputs *DataMap) bool {
	cfg, ok := Get[*SingleEntryPointConfig](inputs)
	if !ok {
		return true
	}
	if f := src.AST.Function(cfg.EntryPoint); f == nil || !f.IsEntryPoint() {
		return true
	}
	_, dead := dce.Mark(src.AST, cfg.EntryPoint)
	return dead > 0
}

func (s *SingleEntryPoint) Apply(src *program.Program, inputs, _ *DataMap) *program.Program {
	cfg, ok := Get[*SingleEntryPointConfig](inputs)
	if !ok {
		return missingData(src, s.Name(), "SingleEntryPointConfig")
	}
	if f := src.AST.Function(cfg.EntryPoint); f == nil || !f.IsEntryPoint() {
		return badData(src, diagnostic.CodeInvalidTransformData,
			"entry point '"+cfg.EntryPoint+"' not found")
	}
	live, dead := dce.Mark(src.AST, cfg.EntryPoint)
	if dead == 0 {
		return nil
	}

	ctx := newCloneContext(src)
	for _, d := range src.AST.Decls {
		if !live.IsDeclarationLive(d) {
			ctx.Remove(ast.GlobalDecls, d)
		}
	}
	return finish(ctx)
}
