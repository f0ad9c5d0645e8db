package ast

// ----------------------------------------------------------------------------
// Directives
// ----------------------------------------------------------------------------

// EnableDirective represents: enable feature1, feature2;
type EnableDirective struct {
	NodeBase
	Features []string
}

// RequiresDirective represents: requires feature1, feature2;
type RequiresDirective struct {
	NodeBase
	Features []string
}

// DiagnosticDirective represents: diagnostic(severity, rule);
type DiagnosticDirective struct {
	NodeBase
	Severity string
	Rule     string
}

func (*EnableDirective) isDirective()     {}
func (*RequiresDirective) isDirective()   {}
func (*DiagnosticDirective) isDirective() {}

func (*EnableDirective) Kind() Kind     { return KindEnableDirective }
func (*RequiresDirective) Kind() Kind   { return KindRequiresDirective }
func (*DiagnosticDirective) Kind() Kind { return KindDiagnosticDirective }

func (n *EnableDirective) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &EnableDirective{Features: append([]string(nil), n.Features...)})
}

func (n *RequiresDirective) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &RequiresDirective{Features: append([]string(nil), n.Features...)})
}

func (n *DiagnosticDirective) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &DiagnosticDirective{Severity: n.Severity, Rule: n.Rule})
}

func (n *EnableDirective) children(fn func(Node))     {}
func (n *RequiresDirective) children(fn func(Node))   {}
func (n *DiagnosticDirective) children(fn func(Node)) {}

// ----------------------------------------------------------------------------
// Attributes
// ----------------------------------------------------------------------------

// Attribute represents a WGSL attribute (@name or @name(args)).
type Attribute struct {
	NodeBase
	Name string
	Args []Expr // nil for attributes without arguments
}

func (*Attribute) Kind() Kind { return KindAttribute }

func (n *Attribute) clone(ctx *CloneContext) Node {
	args := CloneList(ctx, List{Owner: n, Field: FieldArgs}, n.Args)
	return create(ctx.dst, n.rng, &Attribute{Name: n.Name, Args: args})
}

func (n *Attribute) children(fn func(Node)) { eachOf(fn, n.Args) }

// FindAttribute returns the first attribute called name, or nil.
func FindAttribute(attrs []*Attribute, name string) *Attribute {
	for _, a := range attrs {
		if a.Name == name {
			return a
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

// VarDecl represents: @group(g) @binding(b) var<space, access> name [: type] [= expr];
type VarDecl struct {
	NodeBase
	VariableFields
	AddressSpace AddressSpace
	AccessMode   AccessMode
}

// LetDecl represents: let name [: type] = expr;
type LetDecl struct {
	NodeBase
	VariableFields
}

// ConstDecl represents: const name [: type] = expr;
type ConstDecl struct {
	NodeBase
	VariableFields
}

// OverrideDecl represents: @id(n) override name [: type] [= expr];
type OverrideDecl struct {
	NodeBase
	VariableFields
}

// Parameter represents a function parameter.
type Parameter struct {
	NodeBase
	VariableFields
}

// FunctionDecl represents a function declaration. Functions without a
// body are intrinsics declared with @internal.
type FunctionDecl struct {
	NodeBase
	Attributes       []*Attribute
	Name             Symbol
	Parameters       []*Parameter
	ReturnType       Type // nil for void
	ReturnAttributes []*Attribute
	Body             *CompoundStmt // nil for intrinsics
}

// IsEntryPoint reports whether the function carries a pipeline stage
// attribute.
func (f *FunctionDecl) IsEntryPoint() bool {
	for _, a := range f.Attributes {
		switch a.Name {
		case "vertex", "fragment", "compute":
			return true
		}
	}
	return false
}

// StructDecl represents: struct Name { members }
type StructDecl struct {
	NodeBase
	Name    Symbol
	Members []*StructMember
}

// StructMember represents a struct field.
type StructMember struct {
	NodeBase
	Attributes []*Attribute
	Name       Symbol
	Type       Type
}

// AliasDecl represents: alias Name = Type;
type AliasDecl struct {
	NodeBase
	Name Symbol
	Type Type
}

// ConstAssertDecl represents: const_assert expr;
type ConstAssertDecl struct {
	NodeBase
	Expr Expr
}

func (*VarDecl) isDecl()         {}
func (*LetDecl) isDecl()         {}
func (*ConstDecl) isDecl()       {}
func (*OverrideDecl) isDecl()    {}
func (*Parameter) isDecl()       {}
func (*FunctionDecl) isDecl()    {}
func (*StructDecl) isDecl()      {}
func (*AliasDecl) isDecl()       {}
func (*ConstAssertDecl) isDecl() {}

func (*VarDecl) Kind() Kind         { return KindVarDecl }
func (*LetDecl) Kind() Kind         { return KindLetDecl }
func (*ConstDecl) Kind() Kind       { return KindConstDecl }
func (*OverrideDecl) Kind() Kind    { return KindOverrideDecl }
func (*Parameter) Kind() Kind       { return KindParameter }
func (*FunctionDecl) Kind() Kind    { return KindFunctionDecl }
func (*StructDecl) Kind() Kind      { return KindStructDecl }
func (*StructMember) Kind() Kind    { return KindStructMember }
func (*AliasDecl) Kind() Kind       { return KindAliasDecl }
func (*ConstAssertDecl) Kind() Kind { return KindConstAssertDecl }

func cloneVariableFields(ctx *CloneContext, owner Node, f *VariableFields) VariableFields {
	attrs := CloneList(ctx, List{Owner: owner, Field: FieldAttributes}, f.Attributes)
	name := ctx.CloneSymbol(f.Name)
	ty := Clone(ctx, f.Type)
	init := Clone(ctx, f.Initializer)
	return VariableFields{Name: name, Type: ty, Initializer: init, Attributes: attrs}
}

func (f *VariableFields) children(fn func(Node)) {
	eachOf(fn, f.Attributes)
	each(fn, f.Type, f.Initializer)
}

func (n *VarDecl) clone(ctx *CloneContext) Node {
	f := cloneVariableFields(ctx, n, &n.VariableFields)
	return create(ctx.dst, n.rng, &VarDecl{VariableFields: f, AddressSpace: n.AddressSpace, AccessMode: n.AccessMode})
}

func (n *LetDecl) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &LetDecl{VariableFields: cloneVariableFields(ctx, n, &n.VariableFields)})
}

func (n *ConstDecl) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &ConstDecl{VariableFields: cloneVariableFields(ctx, n, &n.VariableFields)})
}

func (n *OverrideDecl) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &OverrideDecl{VariableFields: cloneVariableFields(ctx, n, &n.VariableFields)})
}

func (n *Parameter) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &Parameter{VariableFields: cloneVariableFields(ctx, n, &n.VariableFields)})
}

func (n *FunctionDecl) clone(ctx *CloneContext) Node {
	attrs := CloneList(ctx, AttributesOf(n), n.Attributes)
	name := ctx.CloneSymbol(n.Name)
	params := CloneList(ctx, ParamsOf(n), n.Parameters)
	ret := Clone(ctx, n.ReturnType)
	retAttrs := CloneList(ctx, ReturnAttributesOf(n), n.ReturnAttributes)
	body := Clone(ctx, n.Body)
	return create(ctx.dst, n.rng, &FunctionDecl{
		Attributes:       attrs,
		Name:             name,
		Parameters:       params,
		ReturnType:       ret,
		ReturnAttributes: retAttrs,
		Body:             body,
	})
}

func (n *StructDecl) clone(ctx *CloneContext) Node {
	name := ctx.CloneSymbol(n.Name)
	members := CloneList(ctx, MembersOf(n), n.Members)
	return create(ctx.dst, n.rng, &StructDecl{Name: name, Members: members})
}

func (n *StructMember) clone(ctx *CloneContext) Node {
	attrs := CloneList(ctx, AttributesOf(n), n.Attributes)
	name := ctx.CloneSymbol(n.Name)
	ty := Clone(ctx, n.Type)
	return create(ctx.dst, n.rng, &StructMember{Attributes: attrs, Name: name, Type: ty})
}

func (n *AliasDecl) clone(ctx *CloneContext) Node {
	name := ctx.CloneSymbol(n.Name)
	return create(ctx.dst, n.rng, &AliasDecl{Name: name, Type: Clone(ctx, n.Type)})
}

func (n *ConstAssertDecl) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &ConstAssertDecl{Expr: Clone(ctx, n.Expr)})
}

func (n *VarDecl) children(fn func(Node))      { n.VariableFields.children(fn) }
func (n *LetDecl) children(fn func(Node))      { n.VariableFields.children(fn) }
func (n *ConstDecl) children(fn func(Node))    { n.VariableFields.children(fn) }
func (n *OverrideDecl) children(fn func(Node)) { n.VariableFields.children(fn) }
func (n *Parameter) children(fn func(Node))    { n.VariableFields.children(fn) }

func (n *FunctionDecl) children(fn func(Node)) {
	eachOf(fn, n.Attributes)
	eachOf(fn, n.Parameters)
	each(fn, n.ReturnType)
	eachOf(fn, n.ReturnAttributes)
	each(fn, n.Body)
}

func (n *StructDecl) children(fn func(Node)) { eachOf(fn, n.Members) }

func (n *StructMember) children(fn func(Node)) {
	eachOf(fn, n.Attributes)
	each(fn, n.Type)
}

func (n *AliasDecl) children(fn func(Node))       { each(fn, n.Type) }
func (n *ConstAssertDecl) children(fn func(Node)) { each(fn, n.Expr) }

// DeclName returns the declared name of d, or an invalid symbol for
// declarations that do not introduce one.
func DeclName(d Decl) Symbol {
	switch d := d.(type) {
	case Variable:
		return d.Fields().Name
	case *FunctionDecl:
		return d.Name
	case *StructDecl:
		return d.Name
	case *AliasDecl:
		return d.Name
	}
	return Symbol{}
}
