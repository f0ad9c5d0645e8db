package ast

// ----------------------------------------------------------------------------
// Module (Top Level)
// ----------------------------------------------------------------------------

// Module is an immutable snapshot of a Builder: the global declarations in
// source order plus every node the builder created.
type Module struct {
	gen     GenerationID
	symbols *SymbolTable
	nodes   []Node
	source  string

	// Top-level declarations in order
	Directives []Directive
	Decls      []Decl
}

// Generation returns the generation shared by every node of the module.
func (m *Module) Generation() GenerationID { return m.gen }

// Symbols returns the module's symbol table.
func (m *Module) Symbols() *SymbolTable { return m.symbols }

// Nodes returns every node in creation order. Children precede parents.
func (m *Module) Nodes() []Node { return m.nodes }

// Source returns the source text the module was parsed from, if any.
func (m *Module) Source() string { return m.source }

// Functions returns the module-scope functions in declaration order.
func (m *Module) Functions() []*FunctionDecl {
	var out []*FunctionDecl
	for _, d := range m.Decls {
		if f, ok := d.(*FunctionDecl); ok {
			out = append(out, f)
		}
	}
	return out
}

// Function returns the function called name, or nil.
func (m *Module) Function(name string) *FunctionDecl {
	for _, f := range m.Functions() {
		if f.Name.Name() == name {
			return f
		}
	}
	return nil
}

// Structs returns the module-scope structs in declaration order.
func (m *Module) Structs() []*StructDecl {
	var out []*StructDecl
	for _, d := range m.Decls {
		if s, ok := d.(*StructDecl); ok {
			out = append(out, s)
		}
	}
	return out
}

// GlobalVariables returns the module-scope var declarations.
func (m *Module) GlobalVariables() []*VarDecl {
	var out []*VarDecl
	for _, d := range m.Decls {
		if v, ok := d.(*VarDecl); ok {
			out = append(out, v)
		}
	}
	return out
}
