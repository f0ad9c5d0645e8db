package transform

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/builtins"
	"github.com/HugoDaniel/rewgsl/internal/printer"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/renamer"
	"github.com/HugoDaniel/rewgsl/internal/sem"
)

// RenamerTarget selects which declarations the Renamer touches.
type RenamerTarget uint8

const (
	// RenameAll gives every user declaration a short name.
	RenameAll RenamerTarget = iota
	// RenameBackendKeywords renames only declarations spelled like a
	// keyword of HLSL, MSL or GLSL.
	RenameBackendKeywords
)

// RenamerConfig configures the Renamer. It is optional; the zero value
// renames everything except entry points.
type RenamerConfig struct {
	Target RenamerTarget
	// Preserve lists names that keep their spelling.
	Preserve []string
}

// RenamerData maps every renamed declaration's old name to its new one.
type RenamerData struct {
	Remappings map[string]string
}

// Renamer renames user declarations. Entry points, swizzles, builtins and
// every name the program uses without declaring it keep their spelling.
type Renamer struct{}

func (*Renamer) Name() string { return "Renamer" }

func (*Renamer) ShouldRun(src *program.Program, inputs *DataMap) bool {
	return len(renameableNames(src, rename(inputs))) > 0
}

func rename(inputs *DataMap) *RenamerConfig {
	if cfg, ok := Get[*RenamerConfig](inputs); ok {
		return cfg
	}
	return &RenamerConfig{}
}

// renameableNames returns the declared names that may change, with their
// number of occurrences.
func renameableNames(src *program.Program, cfg *RenamerConfig) map[string]uint32 {
	info := src.Sem
	keep := make(map[string]bool)
	for _, n := range cfg.Preserve {
		keep[n] = true
	}
	for _, f := range src.AST.Functions() {
		if f.IsEntryPoint() {
			keep[f.Name.Name()] = true
		}
	}

	declared := make(map[string]uint32)
	declare := func(s ast.Symbol) { declared[s.Name()]++ }
	callees := make(map[*ast.IdentExpr]*sem.Call)
	for _, n := range src.AST.Nodes() {
		if c, ok := n.(*ast.CallExpr); ok && c.Func != nil {
			callees[c.Func] = info.Call(c)
		}
	}

	uses := make(map[string]uint32)
	for _, n := range src.AST.Nodes() {
		switch n := n.(type) {
		case ast.Variable:
			declare(n.Fields().Name)
		case *ast.FunctionDecl:
			declare(n.Name)
		case *ast.StructDecl:
			declare(n.Name)
		case *ast.StructMember:
			declare(n.Name)
		case *ast.AliasDecl:
			declare(n.Name)
		case *ast.IdentType:
			uses[n.Name.Name()]++
		case *ast.MemberExpr:
			if m := info.Member(n); m == nil || m.IsSwizzle() {
				keep[n.Member.Name()] = true
			}
			uses[n.Member.Name()]++
		case *ast.IdentExpr:
			name := n.Symbol.Name()
			uses[name]++
			if c, ok := callees[n]; ok {
				if c == nil || c.Kind == sem.CallBuiltin || c.Kind == sem.CallConversion {
					keep[name] = true
				}
				continue
			}
			t := info.Ident(n)
			if t.Variable == nil && t.Function == nil && t.Type == nil {
				// builtin value, enumerant or intrinsic marker
				keep[name] = true
			}
		}
	}

	out := make(map[string]uint32)
	for name, count := range declared {
		if !keep[name] {
			out[name] = count + uses[name]
		}
	}
	return out
}

func (r *Renamer) Apply(src *program.Program, inputs, outputs *DataMap) *program.Program {
	cfg := rename(inputs)
	names := renameableNames(src, cfg)
	if len(names) == 0 {
		if outputs != nil {
			outputs.Add(&RenamerData{Remappings: map[string]string{}})
		}
		return nil
	}

	var rn renamer.Renamer
	switch cfg.Target {
	case RenameBackendKeywords:
		declared := make([]string, 0, len(names))
		for n := range names {
			declared = append(declared, n)
		}
		rn = renamer.NewKeywordRenamer(declared, renamer.BackendKeywords())
	default:
		rn = minifyRenamer(src, names)
	}

	ctx := ast.NewCloneContext(ast.NewBuilder(), src.AST, false)
	ctx.ReplaceAllSymbols(func(s ast.Symbol) string {
		if _, ok := names[s.Name()]; ok {
			return rn.NameFor(s.Name())
		}
		return s.Name()
	})
	remappings := make(map[string]string)
	for _, s := range src.AST.Symbols().All() {
		d := ctx.CloneSymbol(s)
		if _, ok := names[s.Name()]; ok && d.Name() != s.Name() {
			remappings[s.Name()] = d.Name()
		}
	}
	if outputs != nil {
		outputs.Add(&RenamerData{Remappings: remappings})
	}
	return finish(ctx)
}

// minifyRenamer hands out the shortest names to the most used
// declarations, over an alphabet ordered by how often each character
// appears in the text that keeps its spelling.
func minifyRenamer(src *program.Program, names map[string]uint32) *renamer.MinifyRenamer {
	reserved := renamer.ReservedNames()
	for name := range builtins.Table {
		reserved[name] = true
	}
	for _, s := range src.AST.Symbols().All() {
		if _, ok := names[s.Name()]; !ok {
			reserved[s.Name()] = true
		}
	}

	var freq renamer.CharFreq
	freq.Scan(printer.Print(src.AST), 1)
	for name, count := range names {
		freq.Scan(name, -int32(count))
	}

	return renamer.NewMinifyRenamer(names, reserved, renamer.DefaultAlphabet().Reorder(freq))
}
