// Package program ties a module to its semantic information.
package program

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/parser"
	"github.com/HugoDaniel/rewgsl/internal/resolver"
	"github.com/HugoDaniel/rewgsl/internal/sem"
)

// Program is an immutable module together with its resolved semantics.
// Sem is nil when the module could not be resolved.
type Program struct {
	AST         *ast.Module
	Sem         *sem.Info
	Diagnostics *diagnostic.DiagnosticList
}

// IsValid reports whether the program has no error diagnostics.
func (p *Program) IsValid() bool {
	return p != nil && p.Sem != nil && !p.Diagnostics.HasErrors()
}

// Resolve snapshots b and resolves it. Diagnostics already reported on
// the builder come first. A builder with errors is not resolved.
func Resolve(b *ast.Builder) *Program {
	module := b.Module()
	diags := diagnostic.NewDiagnosticList(module.Source())
	if b.HasDiagnostics() {
		diags.Append(b.Diagnostics())
	}

	prog := &Program{AST: module, Diagnostics: diags}
	if diags.HasErrors() {
		return prog
	}
	info, resolved := resolver.Resolve(module)
	diags.Append(resolved)
	prog.Sem = info
	return prog
}

// Parse parses and resolves source.
func Parse(source string) *Program {
	return Resolve(parser.Parse(source))
}
