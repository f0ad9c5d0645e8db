// Package printer outputs WGSL code from an AST.
//
// The printer writes one statement per line with four space indentation.
// Binary expressions are always parenthesized, so the output does not
// depend on operator precedence and re-parses to the same tree. With
// MinifyWhitespace the same tokens are written with only the spaces the
// lexer needs to keep them apart.
package printer

import (
	"math"
	"strconv"
	"strings"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/sourcemap"
)

// Options controls printer output.
type Options struct {
	// MinifyWhitespace removes unnecessary whitespace
	MinifyWhitespace bool

	// SourceMap, when set, receives a mapping for every declaration and
	// statement that carries a source range.
	SourceMap *sourcemap.Generator
}

// Printer outputs WGSL code.
type Printer struct {
	options Options

	buf    strings.Builder
	indent int

	// Track if we need whitespace before next token
	needsSpace bool

	// Generated position, for source maps
	line      int
	lineStart int
}

// New creates a new printer.
func New(options Options) *Printer {
	return &Printer{options: options}
}

// Print outputs the module as a string.
func (p *Printer) Print(module *ast.Module) string {
	p.buf.Reset()
	p.indent = 0
	p.line, p.lineStart = 0, 0
	p.printModule(module)
	return p.buf.String()
}

// Print pretty-prints module with default options.
func Print(module *ast.Module) string {
	return New(Options{}).Print(module)
}

// ----------------------------------------------------------------------------
// Output Helpers
// ----------------------------------------------------------------------------

func (p *Printer) print(s string) {
	p.buf.WriteString(s)
	p.needsSpace = false
}

func (p *Printer) printSpace() {
	if !p.options.MinifyWhitespace || p.needsSpace {
		p.buf.WriteByte(' ')
	}
	p.needsSpace = false
}

func (p *Printer) printNewline() {
	if !p.options.MinifyWhitespace {
		p.buf.WriteByte('\n')
		p.line++
		p.lineStart = p.buf.Len()
		for i := 0; i < p.indent; i++ {
			p.buf.WriteString("    ")
		}
	}
	p.needsSpace = false
}

// addMapping maps the current output position to the start of n in the
// original source. Nodes built by transforms have no range.
func (p *Printer) addMapping(n ast.Node) {
	if p.options.SourceMap == nil {
		return
	}
	if r := n.Range(); r.Len > 0 {
		p.options.SourceMap.AddMapping(p.line, p.buf.Len()-p.lineStart, int(r.Loc.Start), "")
	}
}

func (p *Printer) printName(s ast.Symbol) {
	p.print(s.Name())
}

func (p *Printer) printList(n int, each func(i int)) {
	for i := 0; i < n; i++ {
		if i > 0 {
			p.print(",")
			p.printSpace()
		}
		each(i)
	}
}

// ----------------------------------------------------------------------------
// Module Printing
// ----------------------------------------------------------------------------

func (p *Printer) printModule(m *ast.Module) {
	for _, dir := range m.Directives {
		p.printDirective(dir)
		p.printNewline()
	}

	if len(m.Directives) > 0 && len(m.Decls) > 0 {
		p.printNewline()
	}

	for i, decl := range m.Decls {
		if i > 0 {
			p.printNewline()
		}
		p.printDecl(decl)
		p.printNewline()
	}
}

func (p *Printer) printDirective(d ast.Directive) {
	switch dir := d.(type) {
	case *ast.EnableDirective:
		p.print("enable ")
		p.printList(len(dir.Features), func(i int) { p.print(dir.Features[i]) })
		p.print(";")

	case *ast.RequiresDirective:
		p.print("requires ")
		p.printList(len(dir.Features), func(i int) { p.print(dir.Features[i]) })
		p.print(";")

	case *ast.DiagnosticDirective:
		p.print("diagnostic(")
		p.print(dir.Severity)
		p.print(",")
		p.printSpace()
		p.print(dir.Rule)
		p.print(");")
	}
}

// ----------------------------------------------------------------------------
// Declaration Printing
// ----------------------------------------------------------------------------

// printDecl prints a declaration without a trailing newline.
func (p *Printer) printDecl(d ast.Decl) {
	p.addMapping(d)
	if p.printDeclHead(d) {
		p.print(";")
	}
}

// printDeclHead prints d up to its terminating semicolon and reports
// whether one is needed.
func (p *Printer) printDeclHead(d ast.Decl) bool {
	switch decl := d.(type) {
	case *ast.ConstDecl:
		p.print("const ")
		p.printVariable(&decl.VariableFields)
		return true

	case *ast.LetDecl:
		p.print("let ")
		p.printVariable(&decl.VariableFields)
		return true

	case *ast.OverrideDecl:
		p.printAttributes(decl.Attributes)
		p.print("override ")
		p.printVariable(&decl.VariableFields)
		return true

	case *ast.VarDecl:
		p.printAttributes(decl.Attributes)
		p.print("var")
		if decl.AddressSpace != ast.AddressSpaceNone {
			p.print("<")
			p.print(decl.AddressSpace.String())
			if decl.AccessMode != ast.AccessModeNone {
				p.print(",")
				p.printSpace()
				p.print(decl.AccessMode.String())
			}
			p.print(">")
			p.printSpace()
		} else {
			p.print(" ")
		}
		p.printVariable(&decl.VariableFields)
		return true

	case *ast.FunctionDecl:
		p.printFunction(decl)
		return false

	case *ast.StructDecl:
		p.print("struct ")
		p.printName(decl.Name)
		p.printSpace()
		p.print("{")
		p.indent++
		for _, member := range decl.Members {
			p.printNewline()
			p.printAttributes(member.Attributes)
			p.printName(member.Name)
			p.print(":")
			p.printSpace()
			p.printType(member.Type)
			p.print(",")
		}
		p.indent--
		p.printNewline()
		p.print("}")
		return false

	case *ast.AliasDecl:
		p.print("alias ")
		p.printName(decl.Name)
		p.printSpace()
		p.print("=")
		p.printSpace()
		p.printType(decl.Type)
		return true

	case *ast.ConstAssertDecl:
		p.print("const_assert ")
		p.printExpr(decl.Expr)
		return true
	}
	return false
}

// printVariable prints "name: type = init" with the optional parts left
// out when absent.
func (p *Printer) printVariable(v *ast.VariableFields) {
	p.printName(v.Name)
	if v.Type != nil {
		p.print(":")
		p.printSpace()
		p.printType(v.Type)
	}
	if v.Initializer != nil {
		p.printSpace()
		p.print("=")
		p.printSpace()
		p.printExpr(v.Initializer)
	}
}

func (p *Printer) printFunction(decl *ast.FunctionDecl) {
	p.printAttributes(decl.Attributes)
	p.print("fn ")
	p.printName(decl.Name)
	p.print("(")
	p.printList(len(decl.Parameters), func(i int) {
		param := decl.Parameters[i]
		p.printAttributes(param.Attributes)
		p.printName(param.Name)
		p.print(":")
		p.printSpace()
		p.printType(param.Type)
	})
	p.print(")")
	if decl.ReturnType != nil {
		p.printSpace()
		p.print("->")
		p.printSpace()
		p.printAttributes(decl.ReturnAttributes)
		p.printType(decl.ReturnType)
	}
	if decl.Body == nil {
		p.print(";")
		return
	}
	p.printSpace()
	p.printCompoundStmt(decl.Body)
}

// ----------------------------------------------------------------------------
// Attribute Printing
// ----------------------------------------------------------------------------

func (p *Printer) printAttributes(attrs []*ast.Attribute) {
	for _, attr := range attrs {
		p.print("@")
		p.print(attr.Name)
		if len(attr.Args) > 0 {
			p.print("(")
			p.printList(len(attr.Args), func(i int) { p.printExpr(attr.Args[i]) })
			p.print(")")
		}
		// After an attribute, we need a space before the next token
		// to avoid things like @vertexfn becoming one token
		p.needsSpace = true
		p.printSpace()
	}
}

// ----------------------------------------------------------------------------
// Type Printing
// ----------------------------------------------------------------------------

func (p *Printer) printType(t ast.Type) {
	switch typ := t.(type) {
	case *ast.IdentType:
		p.printName(typ.Name)

	case *ast.VecType:
		p.print("vec")
		p.print(strconv.Itoa(int(typ.Size)))
		p.print("<")
		p.printType(typ.Elem)
		p.print(">")

	case *ast.MatType:
		p.print("mat")
		p.print(strconv.Itoa(int(typ.Cols)))
		p.print("x")
		p.print(strconv.Itoa(int(typ.Rows)))
		p.print("<")
		p.printType(typ.Elem)
		p.print(">")

	case *ast.ArrayType:
		p.print("array<")
		p.printType(typ.Elem)
		if typ.Count != nil {
			p.print(",")
			p.printSpace()
			p.printExpr(typ.Count)
		}
		p.print(">")

	case *ast.PtrType:
		p.print("ptr<")
		p.print(typ.AddressSpace.String())
		p.print(",")
		p.printSpace()
		p.printType(typ.Elem)
		if typ.AccessMode != ast.AccessModeNone {
			p.print(",")
			p.printSpace()
			p.print(typ.AccessMode.String())
		}
		p.print(">")

	case *ast.AtomicType:
		p.print("atomic<")
		p.printType(typ.Elem)
		p.print(">")

	case *ast.SamplerType:
		if typ.Comparison {
			p.print("sampler_comparison")
		} else {
			p.print("sampler")
		}

	case *ast.TextureType:
		p.printTextureType(typ)
	}
}

func (p *Printer) printTextureType(t *ast.TextureType) {
	prefix := "texture_"
	switch t.TexKind {
	case ast.TextureMultisampled:
		prefix = "texture_multisampled_"
	case ast.TextureStorage:
		prefix = "texture_storage_"
	case ast.TextureDepth:
		prefix = "texture_depth_"
	case ast.TextureDepthMultisampled:
		prefix = "texture_depth_multisampled_"
	case ast.TextureExternal:
		p.print("texture_external")
		return
	}

	p.print(prefix)
	p.print(t.Dim.String())

	// Template arguments
	switch {
	case t.Sampled != nil:
		p.print("<")
		p.printType(t.Sampled)
		p.print(">")
	case t.TexKind == ast.TextureStorage:
		p.print("<")
		p.print(t.Format)
		p.print(",")
		p.printSpace()
		p.print(t.Access.String())
		p.print(">")
	}
}

// ----------------------------------------------------------------------------
// Expression Printing
// ----------------------------------------------------------------------------

func (p *Printer) printExpr(e ast.Expr) {
	switch expr := e.(type) {
	case *ast.IdentExpr:
		p.printName(expr.Symbol)

	case *ast.LiteralExpr:
		p.printLiteral(expr)

	case *ast.BinaryExpr:
		p.printBinaryExpr(expr)

	case *ast.UnaryExpr:
		p.printUnaryExpr(expr)

	case *ast.CallExpr:
		if expr.Func != nil {
			p.printName(expr.Func.Symbol)
			if expr.Type != nil {
				p.print("<")
				p.printType(expr.Type)
				p.print(">")
			}
		} else {
			p.printType(expr.Type)
		}
		p.print("(")
		p.printList(len(expr.Args), func(i int) { p.printExpr(expr.Args[i]) })
		p.print(")")

	case *ast.IndexExpr:
		p.printPostfixBase(expr.Base)
		p.print("[")
		p.printExpr(expr.Index)
		p.print("]")

	case *ast.MemberExpr:
		p.printPostfixBase(expr.Base)
		p.print(".")
		p.printName(expr.Member)

	case *ast.PhonyExpr:
		p.print("_")
	}
}

// printPostfixBase parenthesizes unary operands of [] and . since the
// postfix operators bind tighter: (*p).x, (&a)[0].
func (p *Printer) printPostfixBase(e ast.Expr) {
	if _, ok := e.(*ast.UnaryExpr); ok {
		p.print("(")
		p.printExpr(e)
		p.print(")")
		return
	}
	p.printExpr(e)
}

func (p *Printer) printLiteral(lit *ast.LiteralExpr) {
	switch lit.LitKind {
	case ast.LiteralBool:
		if lit.Bool {
			p.print("true")
		} else {
			p.print("false")
		}

	case ast.LiteralInt:
		p.print(strconv.FormatInt(lit.Int, 10))
		p.print(lit.Suffix.String())

	case ast.LiteralFloat:
		p.print(formatFloat(lit.Float, lit.Suffix))
		p.print(lit.Suffix.String())
	}
}

// formatFloat spells v so that it lexes as a float literal.
func formatFloat(v float64, suffix ast.LiteralSuffix) string {
	bits := 64
	if suffix == ast.SuffixF || suffix == ast.SuffixH {
		bits = 32
	}
	if math.IsInf(v, 0) || math.IsNaN(v) {
		// Not representable in WGSL; the closest finite value keeps the
		// output parseable.
		v = math.Copysign(math.MaxFloat32, v)
	}
	s := strconv.FormatFloat(v, 'g', -1, bits)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}

func (p *Printer) printBinaryExpr(expr *ast.BinaryExpr) {
	p.print("(")
	p.printExpr(expr.Left)
	p.printSpace()
	p.print(expr.Op.String())
	p.needsSpace = startsWithSign(expr.Right)
	p.printSpace()
	p.printExpr(expr.Right)
	p.print(")")
}

func (p *Printer) printUnaryExpr(expr *ast.UnaryExpr) {
	p.print(expr.Op.String())
	if startsWithSign(expr.Operand) {
		p.print("(")
		p.printExpr(expr.Operand)
		p.print(")")
		return
	}
	p.printExpr(expr.Operand)
}

// startsWithSign reports whether e prints with a leading operator
// character that could merge with a preceding one.
func startsWithSign(e ast.Expr) bool {
	switch e := e.(type) {
	case *ast.UnaryExpr:
		return true
	case *ast.LiteralExpr:
		return e.LitKind == ast.LiteralInt && e.Int < 0 ||
			e.LitKind == ast.LiteralFloat && math.Signbit(e.Float)
	}
	return false
}

// ----------------------------------------------------------------------------
// Statement Printing
// ----------------------------------------------------------------------------

// printStmt prints a statement starting at the current position, without
// a trailing newline.
func (p *Printer) printStmt(s ast.Stmt) {
	p.addMapping(s)
	switch stmt := s.(type) {
	case *ast.CompoundStmt:
		p.printCompoundStmt(stmt)

	case *ast.ReturnStmt:
		p.print("return")
		if stmt.Value != nil {
			p.print(" ")
			p.printExpr(stmt.Value)
		}
		p.print(";")

	case *ast.IfStmt:
		p.printIfStmt(stmt)

	case *ast.SwitchStmt:
		p.printSwitchStmt(stmt)

	case *ast.ForStmt:
		p.printForStmt(stmt)

	case *ast.WhileStmt:
		p.print("while ")
		p.printExpr(stmt.Condition)
		p.printSpace()
		p.printCompoundStmt(stmt.Body)

	case *ast.LoopStmt:
		p.printLoopStmt(stmt)

	case *ast.BreakStmt:
		p.print("break;")

	case *ast.BreakIfStmt:
		p.print("break if ")
		p.printExpr(stmt.Condition)
		p.print(";")

	case *ast.ContinueStmt:
		p.print("continue;")

	case *ast.DiscardStmt:
		p.print("discard;")

	case *ast.DeclStmt:
		p.printDecl(stmt.Decl)

	default:
		p.printSimpleStmt(s)
		p.print(";")
	}
}

// printSimpleStmt prints the statements allowed in a for header.
func (p *Printer) printSimpleStmt(s ast.Stmt) {
	switch stmt := s.(type) {
	case *ast.AssignStmt:
		p.printExpr(stmt.Left)
		p.printSpace()
		p.print(stmt.Op.String())
		p.needsSpace = startsWithSign(stmt.Right)
		p.printSpace()
		p.printExpr(stmt.Right)

	case *ast.IncrDecrStmt:
		p.printExpr(stmt.Expr)
		if stmt.Increment {
			p.print("++")
		} else {
			p.print("--")
		}

	case *ast.CallStmt:
		p.printExpr(stmt.Call)

	case *ast.DeclStmt:
		p.printDeclHead(stmt.Decl)
	}
}

func (p *Printer) printCompoundStmt(block *ast.CompoundStmt) {
	p.print("{")
	p.indent++
	for _, s := range block.Stmts {
		p.printNewline()
		p.printStmt(s)
	}
	p.indent--
	p.printNewline()
	p.print("}")
}

func (p *Printer) printIfStmt(stmt *ast.IfStmt) {
	p.print("if ")
	p.printExpr(stmt.Condition)
	p.printSpace()
	p.printCompoundStmt(stmt.Body)
	if stmt.Else != nil {
		p.printSpace()
		p.print("else")
		p.needsSpace = true
		p.printSpace()
		p.printStmt(stmt.Else)
	}
}

func (p *Printer) printSwitchStmt(stmt *ast.SwitchStmt) {
	p.print("switch ")
	p.printExpr(stmt.Expr)
	p.printSpace()
	p.print("{")
	p.indent++
	for _, c := range stmt.Cases {
		p.printNewline()
		if len(c.Selectors) > 0 {
			p.print("case ")
			p.printList(len(c.Selectors), func(i int) { p.printExpr(c.Selectors[i]) })
			if c.HasDefault {
				p.print(",")
				p.printSpace()
				p.print("default")
			}
		} else {
			p.print("default")
		}
		p.print(":")
		p.printSpace()
		p.printCompoundStmt(c.Body)
	}
	p.indent--
	p.printNewline()
	p.print("}")
}

func (p *Printer) printForStmt(stmt *ast.ForStmt) {
	p.print("for")
	p.printSpace()
	p.print("(")
	if stmt.Init != nil {
		p.printSimpleStmt(stmt.Init)
	}
	p.print(";")
	if stmt.Condition != nil {
		p.printSpace()
		p.printExpr(stmt.Condition)
	}
	p.print(";")
	if stmt.Update != nil {
		p.printSpace()
		p.printSimpleStmt(stmt.Update)
	}
	p.print(")")
	p.printSpace()
	p.printCompoundStmt(stmt.Body)
}

func (p *Printer) printLoopStmt(stmt *ast.LoopStmt) {
	p.print("loop")
	p.printSpace()
	p.print("{")
	p.indent++
	for _, s := range stmt.Body.Stmts {
		p.printNewline()
		p.printStmt(s)
	}
	if stmt.Continuing != nil {
		p.printNewline()
		p.print("continuing")
		p.printSpace()
		p.printCompoundStmt(stmt.Continuing)
	}
	p.indent--
	p.printNewline()
	p.print("}")
}
