package ast

// ListField names a list-valued field of a node.
type ListField uint8

const (
	FieldStmts ListField = iota
	FieldArgs
	FieldParams
	FieldMembers
	FieldAttributes
	FieldReturnAttributes
	FieldCases
	FieldSelectors
	FieldDecls
	FieldDirectives
)

func (f ListField) String() string {
	return [...]string{"stmts", "args", "params", "members", "attributes",
		"return attributes", "cases", "selectors", "decls", "directives"}[f]
}

// List identifies one list inside the source module: the owning node and
// which of its list fields. The module-scope lists have no owner.
type List struct {
	Owner Node
	Field ListField
}

// GlobalDecls is the module-scope declaration list.
var GlobalDecls = List{Field: FieldDecls}

// GlobalDirectives is the module directive list.
var GlobalDirectives = List{Field: FieldDirectives}

func StmtsOf(b *CompoundStmt) List            { return List{Owner: b, Field: FieldStmts} }
func ArgsOf(c *CallExpr) List                 { return List{Owner: c, Field: FieldArgs} }
func ParamsOf(f *FunctionDecl) List           { return List{Owner: f, Field: FieldParams} }
func MembersOf(s *StructDecl) List            { return List{Owner: s, Field: FieldMembers} }
func CasesOf(s *SwitchStmt) List              { return List{Owner: s, Field: FieldCases} }
func SelectorsOf(c *SwitchCase) List          { return List{Owner: c, Field: FieldSelectors} }
func ReturnAttributesOf(f *FunctionDecl) List { return List{Owner: f, Field: FieldReturnAttributes} }

// AttributesOf returns the attribute list of a function, variable,
// parameter or struct member.
func AttributesOf(n Node) List { return List{Owner: n, Field: FieldAttributes} }

// items returns the current elements of l in src.
func (l List) items(src *Module) []Node {
	switch l.Field {
	case FieldDecls:
		return toNodes(src.Decls)
	case FieldDirectives:
		return toNodes(src.Directives)
	}
	switch o := l.Owner.(type) {
	case *CompoundStmt:
		if l.Field == FieldStmts {
			return toNodes(o.Stmts)
		}
	case *CallExpr:
		if l.Field == FieldArgs {
			return toNodes(o.Args)
		}
	case *Attribute:
		if l.Field == FieldArgs {
			return toNodes(o.Args)
		}
	case *FunctionDecl:
		switch l.Field {
		case FieldParams:
			return toNodes(o.Parameters)
		case FieldAttributes:
			return toNodes(o.Attributes)
		case FieldReturnAttributes:
			return toNodes(o.ReturnAttributes)
		}
	case *StructDecl:
		if l.Field == FieldMembers {
			return toNodes(o.Members)
		}
	case *StructMember:
		if l.Field == FieldAttributes {
			return toNodes(o.Attributes)
		}
	case *SwitchStmt:
		if l.Field == FieldCases {
			return toNodes(o.Cases)
		}
	case *SwitchCase:
		if l.Field == FieldSelectors {
			return toNodes(o.Selectors)
		}
	case Variable:
		if l.Field == FieldAttributes {
			return toNodes(o.Fields().Attributes)
		}
	}
	return nil
}

func toNodes[T Node](items []T) []Node {
	out := make([]Node, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}
