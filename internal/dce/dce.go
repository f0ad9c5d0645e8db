// Package dce finds the module-scope declarations a set of entry points
// depends on.
//
// DCE works by:
// 1. Finding the root entry points (@vertex, @fragment, @compute functions)
// 2. Building a dependency graph between module-scope names
// 3. Marking every declaration reachable from a root as live
//
// References are collected by name, so a local that shadows a module-scope
// name keeps that declaration alive. The result may keep more than needed
// but never less.
package dce

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
)

// Live is the set of declarations reachable from the roots.
type Live map[ast.Decl]bool

// Mark computes the live declarations of module. When names is empty every
// entry point is a root; otherwise only the entry points called names are.
// It returns the live set and the number of dead declarations.
func Mark(module *ast.Module, names ...string) (Live, int) {
	live := make(Live)
	if module == nil || len(module.Decls) == 0 {
		return live, 0
	}

	// Build dependency graph: for each name, which other names does its
	// declaration reference?
	byName, deps := buildDependencyGraph(module)

	// Find entry points
	entryPoints := findEntryPoints(module, names)

	// If no entry points found, mark everything as live (conservative)
	if len(entryPoints) == 0 {
		for _, d := range module.Decls {
			live[d] = true
		}
		return live, 0
	}

	visited := make(map[string]bool)
	for _, ep := range entryPoints {
		markLive(ep, byName, deps, visited, live)
	}
	// const_assert is always kept, and so is what it reads.
	for _, d := range module.Decls {
		if ca, ok := d.(*ast.ConstAssertDecl); ok {
			for _, ref := range collectRefs(ca) {
				markLive(ref, byName, deps, visited, live)
			}
		}
	}

	deadCount := 0
	for _, d := range module.Decls {
		if !live.IsDeclarationLive(d) {
			deadCount++
		}
	}
	return live, deadCount
}

// declName returns the module-scope name d declares, or "".
func declName(d ast.Decl) string {
	switch d := d.(type) {
	case ast.Variable:
		return d.Fields().Name.Name()
	case *ast.FunctionDecl:
		return d.Name.Name()
	case *ast.StructDecl:
		return d.Name.Name()
	case *ast.AliasDecl:
		return d.Name.Name()
	}
	return ""
}

// buildDependencyGraph maps every declared name to its declaration and
// to the names its declaration references.
func buildDependencyGraph(module *ast.Module) (map[string]ast.Decl, map[string][]string) {
	byName := make(map[string]ast.Decl)
	deps := make(map[string][]string)

	for _, decl := range module.Decls {
		name := declName(decl)
		if name == "" {
			continue
		}
		byName[name] = decl
		deps[name] = collectRefs(decl)
	}

	return byName, deps
}

// collectRefs collects the names referenced anywhere under n: identifiers,
// type names and attribute arguments.
func collectRefs(n ast.Node) []string {
	var refs []string
	ast.Inspect(n, func(n ast.Node) bool {
		switch n := n.(type) {
		case *ast.IdentExpr:
			refs = append(refs, n.Symbol.Name())
		case *ast.IdentType:
			refs = append(refs, n.Name.Name())
		}
		return true
	})
	return refs
}

// findEntryPoints returns the names of the root entry points.
func findEntryPoints(module *ast.Module, names []string) []string {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}

	var entryPoints []string
	for _, f := range module.Functions() {
		if !f.IsEntryPoint() {
			continue
		}
		if len(want) > 0 && !want[f.Name.Name()] {
			continue
		}
		entryPoints = append(entryPoints, f.Name.Name())
	}
	return entryPoints
}

// markLive marks a declaration and all its dependencies as live.
func markLive(name string, byName map[string]ast.Decl, deps map[string][]string, visited map[string]bool, live Live) {
	if visited[name] {
		return
	}
	visited[name] = true

	decl, ok := byName[name]
	if !ok {
		// builtin or local
		return
	}
	live[decl] = true

	for _, dep := range deps[name] {
		markLive(dep, byName, deps, visited, live)
	}
}

// IsDeclarationLive returns true if the declaration should be kept.
func (l Live) IsDeclarationLive(decl ast.Decl) bool {
	if declName(decl) == "" {
		return true
	}
	return l[decl]
}
