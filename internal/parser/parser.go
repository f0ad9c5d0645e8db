// Package parser turns WGSL source into an AST.
//
// The parser is a single recursive-descent pass that builds nodes through
// an ast.Builder, so every node gets its identity and source range as it is
// created. Names are not bound here: identifiers become symbols of the
// builder and the resolver later decides what each one refers to. Syntax
// errors are reported on the builder's diagnostic list and parsing
// continues at the next statement or declaration.
package parser

import (
	"fmt"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/lexer"
)

// Parser parses WGSL source into an ast.Builder.
type Parser struct {
	source  string
	tokens  []lexer.Token
	pos     int
	lastEnd int // end offset of the last consumed token
	lastErr int // offset of the last reported error, to avoid cascades

	// templateDepth is non-zero while parsing template arguments, where a
	// '>' closes the list instead of comparing.
	templateDepth int

	b *ast.Builder
}

// New creates a new parser for the given source.
func New(source string) *Parser {
	p := &Parser{
		source:  source,
		tokens:  lexer.New(source).Tokenize(),
		lastErr: -1,
		b:       ast.NewBuilder(),
	}
	p.b.SetSource(source)

	// Tokenize stops at the first lexical error. Report it and parse what
	// came before as if the input ended there.
	if last := &p.tokens[len(p.tokens)-1]; last.Kind == lexer.TokError {
		p.b.Diagnostics().Errorf(last.Start, diagnostic.CodeUnexpectedToken, "%s", last.Value)
		p.lastErr = last.Start
		last.Kind = lexer.TokEOF
	}
	return p
}

// Parse parses a whole translation unit. The returned builder holds the
// declarations and any syntax errors.
func (p *Parser) Parse() *ast.Builder {
	p.parseTranslationUnit()
	return p.b
}

// Parse parses source into a builder.
func Parse(source string) *ast.Builder {
	return New(source).Parse()
}

// ----------------------------------------------------------------------------
// Token Helpers
// ----------------------------------------------------------------------------

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Kind: lexer.TokEOF, Start: len(p.source), End: len(p.source)}
	}
	return p.tokens[p.pos]
}

func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens) && tok.Kind != lexer.TokEOF {
		p.pos++
		p.lastEnd = tok.End
	}
	return tok
}

func (p *Parser) expect(kind lexer.TokenKind) (lexer.Token, bool) {
	tok := p.current()
	if tok.Kind != kind {
		p.error(fmt.Sprintf("expected '%s', got %s", kind, describe(tok)))
		return tok, false
	}
	p.advance()
	return tok, true
}

func (p *Parser) match(kind lexer.TokenKind) bool {
	if p.current().Kind == kind {
		p.advance()
		return true
	}
	return false
}

func (p *Parser) expectIdent() string {
	tok, ok := p.expect(lexer.TokIdent)
	if !ok {
		return ""
	}
	return tok.Value
}

// closeTemplate consumes the '>' that ends a template list. A '>>', '>='
// or '>>=' token is split and its remainder left for the next read.
func (p *Parser) closeTemplate() {
	tok := &p.tokens[p.pos]
	switch tok.Kind {
	case lexer.TokGt:
		p.advance()
		return
	case lexer.TokGtGt:
		tok.Kind = lexer.TokGt
	case lexer.TokGtEq:
		tok.Kind = lexer.TokEq
	case lexer.TokGtGtEq:
		tok.Kind = lexer.TokGtEq
	default:
		p.error(fmt.Sprintf("expected '>' to close the template list, got %s", describe(*tok)))
		return
	}
	tok.Start++
	p.lastEnd = tok.Start
}

func (p *Parser) error(msg string) {
	start := p.current().Start
	if start == p.lastErr {
		return
	}
	p.lastErr = start
	p.b.Diagnostics().AddErrorWithCode(start, diagnostic.CodeUnexpectedToken, msg)
}

// at points the builder's range at the source from start to the end of
// the last consumed token, and returns the builder.
func (p *Parser) at(start int) *ast.Builder {
	end := p.lastEnd
	if end < start {
		end = start
	}
	p.b.SetRange(ast.Range{Loc: ast.Loc{Start: int32(start)}, Len: int32(end - start)})
	return p.b
}

func describe(tok lexer.Token) string {
	switch tok.Kind {
	case lexer.TokEOF:
		return "end of file"
	case lexer.TokIdent:
		return fmt.Sprintf("identifier '%s'", tok.Value)
	case lexer.TokIntLiteral, lexer.TokFloatLiteral:
		return fmt.Sprintf("literal '%s'", tok.Value)
	}
	return fmt.Sprintf("'%s'", tok.Kind)
}

func anys[T any](items []T) []any {
	out := make([]any, len(items))
	for i, it := range items {
		out[i] = it
	}
	return out
}

// ----------------------------------------------------------------------------
// Translation Unit
// ----------------------------------------------------------------------------

func (p *Parser) parseTranslationUnit() {
	for p.parseDirective() {
	}

	for p.current().Kind != lexer.TokEOF {
		before := p.pos
		if decl := p.parseDeclaration(); decl != nil {
			p.b.AddDecl(decl)
		}
		if p.pos == before {
			p.error(fmt.Sprintf("expected a declaration, got %s", describe(p.current())))
			p.advance()
		}
	}
}

func (p *Parser) parseDirective() bool {
	start := p.current().Start
	switch p.current().Kind {
	case lexer.TokEnable, lexer.TokRequires:
		kind := p.advance().Kind
		var features []string
		for {
			features = append(features, p.expectIdent())
			if !p.match(lexer.TokComma) || p.current().Kind == lexer.TokSemicolon {
				break
			}
		}
		p.expect(lexer.TokSemicolon)
		if kind == lexer.TokEnable {
			p.at(start).Enable(features...)
		} else {
			p.at(start).Requires(features...)
		}
		return true

	case lexer.TokDiagnostic:
		p.advance()
		p.expect(lexer.TokLParen)
		severity := p.expectIdent()
		p.expect(lexer.TokComma)
		rule := p.parseDiagnosticRule()
		p.match(lexer.TokComma)
		p.expect(lexer.TokRParen)
		p.expect(lexer.TokSemicolon)
		p.at(start).DiagnosticControl(severity, rule)
		return true
	}
	return false
}

// parseDiagnosticRule reads a rule name, which may be qualified: a.b
func (p *Parser) parseDiagnosticRule() string {
	rule := p.expectIdent()
	if p.match(lexer.TokDot) {
		rule += "." + p.expectIdent()
	}
	return rule
}

func (p *Parser) parseDeclaration() ast.Decl {
	start := p.current().Start
	attrs := p.parseAttributes()

	var decl ast.Decl
	switch p.current().Kind {
	case lexer.TokFn:
		return p.parseFunctionDecl(start, attrs)
	case lexer.TokStruct:
		return p.parseStructDecl(start)
	case lexer.TokConstAssert:
		decl = p.parseConstAssert(start)
	case lexer.TokConst, lexer.TokLet, lexer.TokVar, lexer.TokOverride:
		decl = p.parseVariableDecl(start, attrs)
	case lexer.TokAlias:
		decl = p.parseAliasDecl(start)
	default:
		if len(attrs) > 0 {
			p.error("attributes must be followed by a declaration")
		}
		return nil
	}
	p.expect(lexer.TokSemicolon)
	return decl
}

func (p *Parser) parseAttributes() []*ast.Attribute {
	var attrs []*ast.Attribute
	for p.current().Kind == lexer.TokAt {
		start := p.advance().Start

		// Keywords such as const and diagnostic double as attribute names.
		tok := p.current()
		name := tok.Value
		if _, keyword := lexer.Keywords[name]; tok.Kind != lexer.TokIdent && !keyword {
			p.error(fmt.Sprintf("expected attribute name, got %s", describe(tok)))
			break
		}
		p.advance()

		var args []ast.Expr
		if p.current().Kind == lexer.TokLParen {
			args = p.parseArguments()
		}
		attrs = append(attrs, p.at(start).Attr(name, anys(args)...))
	}
	return attrs
}

// parseVariableDecl parses const, let, var and override declarations
// without the trailing semicolon.
func (p *Parser) parseVariableDecl(start int, attrs []*ast.Attribute) ast.Decl {
	kind := p.advance().Kind

	space, access := ast.AddressSpaceNone, ast.AccessModeNone
	if kind == lexer.TokVar && p.match(lexer.TokLt) {
		p.templateDepth++
		space = p.parseAddressSpace()
		if p.match(lexer.TokComma) {
			access = p.parseAccessMode()
		}
		p.templateDepth--
		p.closeTemplate()
	}

	name := p.expectIdent()
	var ty ast.Type
	if p.match(lexer.TokColon) {
		ty = p.parseType()
	}
	var init ast.Expr
	if p.match(lexer.TokEq) {
		init = p.parseExpression()
	} else if kind == lexer.TokConst || kind == lexer.TokLet {
		p.error(fmt.Sprintf("expected '=' after the name of '%s', got %s", name, describe(p.current())))
	}

	switch kind {
	case lexer.TokConst:
		return p.at(start).Const(name, ty, init)
	case lexer.TokLet:
		return p.at(start).Let(name, ty, init)
	case lexer.TokOverride:
		return p.at(start).Override(name, ty, init, attrs...)
	}
	return p.at(start).VarAccess(name, ty, space, access, init, attrs...)
}

func (p *Parser) parseFunctionDecl(start int, attrs []*ast.Attribute) *ast.FunctionDecl {
	p.expect(lexer.TokFn)
	name := p.expectIdent()

	p.expect(lexer.TokLParen)
	params := p.parseParameters()
	p.expect(lexer.TokRParen)

	var ret ast.Type
	var retAttrs []*ast.Attribute
	if p.match(lexer.TokArrow) {
		retAttrs = p.parseAttributes()
		ret = p.parseType()
	}

	// Intrinsics are declared without a body.
	var body *ast.CompoundStmt
	if !p.match(lexer.TokSemicolon) {
		body = p.parseCompoundStmt()
	}
	return p.at(start).FuncDecl(name, params, ret, retAttrs, body, attrs...)
}

func (p *Parser) parseParameters() []*ast.Parameter {
	var params []*ast.Parameter
	for p.current().Kind != lexer.TokRParen && p.current().Kind != lexer.TokEOF {
		start := p.current().Start
		attrs := p.parseAttributes()
		name := p.expectIdent()
		p.expect(lexer.TokColon)
		ty := p.parseType()
		params = append(params, p.at(start).Param(name, ty, attrs...))
		if !p.match(lexer.TokComma) {
			break
		}
	}
	return params
}

func (p *Parser) parseStructDecl(start int) *ast.StructDecl {
	p.expect(lexer.TokStruct)
	name := p.expectIdent()
	p.expect(lexer.TokLBrace)

	var members []*ast.StructMember
	for p.current().Kind != lexer.TokRBrace && p.current().Kind != lexer.TokEOF {
		memberStart := p.current().Start
		attrs := p.parseAttributes()
		memberName := p.expectIdent()
		if _, ok := p.expect(lexer.TokColon); !ok {
			break
		}
		ty := p.parseType()
		members = append(members, p.at(memberStart).Member(memberName, ty, attrs...))
		if !p.match(lexer.TokComma) {
			break
		}
	}

	p.expect(lexer.TokRBrace)
	p.match(lexer.TokSemicolon)
	return p.at(start).StructDecl(name, members...)
}

func (p *Parser) parseAliasDecl(start int) *ast.AliasDecl {
	p.expect(lexer.TokAlias)
	name := p.expectIdent()
	p.expect(lexer.TokEq)
	ty := p.parseType()
	return p.at(start).AliasDecl(name, ty)
}

func (p *Parser) parseConstAssert(start int) *ast.ConstAssertDecl {
	p.expect(lexer.TokConstAssert)
	e := p.parseExpression()
	return p.at(start).ConstAssert(e)
}

// ----------------------------------------------------------------------------
// Types
// ----------------------------------------------------------------------------

func (p *Parser) parseType() ast.Type {
	tok := p.current()
	if tok.Kind != lexer.TokIdent {
		p.error(fmt.Sprintf("expected type, got %s", describe(tok)))
		return nil
	}
	p.advance()

	if p.current().Kind == lexer.TokLt {
		return p.parseTemplatedType(tok.Value, tok.Start)
	}

	switch tok.Value {
	case "sampler", "sampler_comparison":
		return p.at(tok.Start).Sampler(tok.Value == "sampler_comparison")
	}
	if tex, ok := textureTypes[tok.Value]; ok {
		if tex.kind == ast.TextureDepth || tex.kind == ast.TextureDepthMultisampled || tex.kind == ast.TextureExternal {
			return p.at(tok.Start).Texture(tex.kind, tex.dim, nil, "", ast.AccessModeNone)
		}
		p.error(fmt.Sprintf("'%s' requires template arguments", tok.Value))
		return nil
	}
	return p.at(tok.Start).TypeName(tok.Value)
}

// parseTemplatedType parses the template list after name, which has been
// consumed. The current token is '<'.
func (p *Parser) parseTemplatedType(name string, start int) ast.Type {
	p.expect(lexer.TokLt)
	p.templateDepth++
	defer func() { p.templateDepth-- }()

	var ty ast.Type
	switch {
	case len(name) == 4 && name[:3] == "vec" && name[3] >= '2' && name[3] <= '4':
		elem := p.parseType()
		p.closeTemplate()
		ty = p.at(start).Vec(name[3]-'0', elem)

	case len(name) == 6 && name[:3] == "mat" && name[4] == 'x':
		elem := p.parseType()
		p.closeTemplate()
		ty = p.at(start).Mat(name[3]-'0', name[5]-'0', elem)

	case name == "array":
		elem := p.parseType()
		var count ast.Expr
		if p.match(lexer.TokComma) && p.current().Kind != lexer.TokGt {
			count = p.parseExpression()
			p.match(lexer.TokComma)
		}
		p.closeTemplate()
		ty = p.at(start).Array(elem, count)

	case name == "ptr":
		space := p.parseAddressSpace()
		p.expect(lexer.TokComma)
		elem := p.parseType()
		access := ast.AccessModeNone
		if p.match(lexer.TokComma) {
			access = p.parseAccessMode()
		}
		p.closeTemplate()
		ty = p.at(start).Ptr(space, elem, access)

	case name == "atomic":
		elem := p.parseType()
		p.closeTemplate()
		ty = p.at(start).Atomic(elem)

	default:
		tex, ok := textureTypes[name]
		if !ok {
			p.error(fmt.Sprintf("'%s' does not take template arguments", name))
			return nil
		}
		ty = p.parseTextureArgs(start, tex.kind, tex.dim)
	}
	return ty
}

func (p *Parser) parseTextureArgs(start int, kind ast.TextureKind, dim ast.TextureDimension) ast.Type {
	switch kind {
	case ast.TextureStorage:
		format := p.expectIdent()
		p.expect(lexer.TokComma)
		access := p.parseAccessMode()
		p.closeTemplate()
		return p.at(start).Texture(kind, dim, nil, format, access)
	case ast.TextureSampled, ast.TextureMultisampled:
		sampled := p.parseType()
		p.closeTemplate()
		return p.at(start).Texture(kind, dim, sampled, "", ast.AccessModeNone)
	}
	p.error("this texture type does not take template arguments")
	return nil
}

var textureTypes = map[string]struct {
	kind ast.TextureKind
	dim  ast.TextureDimension
}{
	"texture_1d":                    {ast.TextureSampled, ast.Texture1D},
	"texture_2d":                    {ast.TextureSampled, ast.Texture2D},
	"texture_2d_array":              {ast.TextureSampled, ast.Texture2DArray},
	"texture_3d":                    {ast.TextureSampled, ast.Texture3D},
	"texture_cube":                  {ast.TextureSampled, ast.TextureCube},
	"texture_cube_array":            {ast.TextureSampled, ast.TextureCubeArray},
	"texture_multisampled_2d":       {ast.TextureMultisampled, ast.Texture2D},
	"texture_storage_1d":            {ast.TextureStorage, ast.Texture1D},
	"texture_storage_2d":            {ast.TextureStorage, ast.Texture2D},
	"texture_storage_2d_array":      {ast.TextureStorage, ast.Texture2DArray},
	"texture_storage_3d":            {ast.TextureStorage, ast.Texture3D},
	"texture_depth_2d":              {ast.TextureDepth, ast.Texture2D},
	"texture_depth_2d_array":        {ast.TextureDepth, ast.Texture2DArray},
	"texture_depth_cube":            {ast.TextureDepth, ast.TextureCube},
	"texture_depth_cube_array":      {ast.TextureDepth, ast.TextureCubeArray},
	"texture_depth_multisampled_2d": {ast.TextureDepthMultisampled, ast.Texture2D},
	"texture_external":              {ast.TextureExternal, ast.Texture2D},
}

func (p *Parser) parseAddressSpace() ast.AddressSpace {
	tok := p.current()
	space, ok := ast.ParseAddressSpace(tok.Value)
	if tok.Kind != lexer.TokIdent || !ok {
		p.error(fmt.Sprintf("expected address space, got %s", describe(tok)))
		return ast.AddressSpaceNone
	}
	p.advance()
	return space
}

func (p *Parser) parseAccessMode() ast.AccessMode {
	tok := p.current()
	access, ok := ast.ParseAccessMode(tok.Value)
	if tok.Kind != lexer.TokIdent || !ok {
		p.error(fmt.Sprintf("expected access mode, got %s", describe(tok)))
		return ast.AccessModeNone
	}
	p.advance()
	return access
}

// ----------------------------------------------------------------------------
// Expressions
// ----------------------------------------------------------------------------

func (p *Parser) parseExpression() ast.Expr {
	return p.parseLogicalOrExpr()
}

// parseBinary parses a left-associative run of operators from ops over
// operands parsed by next.
func (p *Parser) parseBinary(next func() ast.Expr, ops map[lexer.TokenKind]ast.BinaryOp) ast.Expr {
	start := p.current().Start
	left := next()
	for {
		op, ok := ops[p.current().Kind]
		if !ok || left == nil {
			return left
		}
		p.advance()
		right := next()
		left = p.at(start).Binary(op, left, right)
	}
}

var (
	logicalOrOps      = map[lexer.TokenKind]ast.BinaryOp{lexer.TokPipePipe: ast.BinOpLogicalOr}
	logicalAndOps     = map[lexer.TokenKind]ast.BinaryOp{lexer.TokAmpAmp: ast.BinOpLogicalAnd}
	bitwiseOrOps      = map[lexer.TokenKind]ast.BinaryOp{lexer.TokPipe: ast.BinOpOr}
	bitwiseXorOps     = map[lexer.TokenKind]ast.BinaryOp{lexer.TokCaret: ast.BinOpXor}
	bitwiseAndOps     = map[lexer.TokenKind]ast.BinaryOp{lexer.TokAmp: ast.BinOpAnd}
	equalityOps       = map[lexer.TokenKind]ast.BinaryOp{lexer.TokEqEq: ast.BinOpEq, lexer.TokBangEq: ast.BinOpNe}
	additiveOps       = map[lexer.TokenKind]ast.BinaryOp{lexer.TokPlus: ast.BinOpAdd, lexer.TokMinus: ast.BinOpSub}
	multiplicativeOps = map[lexer.TokenKind]ast.BinaryOp{
		lexer.TokStar: ast.BinOpMul, lexer.TokSlash: ast.BinOpDiv, lexer.TokPercent: ast.BinOpMod,
	}
	relationalOps = map[lexer.TokenKind]ast.BinaryOp{
		lexer.TokLt: ast.BinOpLt, lexer.TokLtEq: ast.BinOpLe, lexer.TokGt: ast.BinOpGt, lexer.TokGtEq: ast.BinOpGe,
	}
	shiftOps = map[lexer.TokenKind]ast.BinaryOp{lexer.TokLtLt: ast.BinOpShl, lexer.TokGtGt: ast.BinOpShr}

	// Inside a template list '>' ends the list.
	templateRelationalOps = map[lexer.TokenKind]ast.BinaryOp{lexer.TokLt: ast.BinOpLt, lexer.TokLtEq: ast.BinOpLe}
	templateShiftOps      = map[lexer.TokenKind]ast.BinaryOp{lexer.TokLtLt: ast.BinOpShl}
)

func (p *Parser) parseLogicalOrExpr() ast.Expr {
	return p.parseBinary(p.parseLogicalAndExpr, logicalOrOps)
}

func (p *Parser) parseLogicalAndExpr() ast.Expr {
	return p.parseBinary(p.parseBitwiseOrExpr, logicalAndOps)
}

func (p *Parser) parseBitwiseOrExpr() ast.Expr {
	return p.parseBinary(p.parseBitwiseXorExpr, bitwiseOrOps)
}

func (p *Parser) parseBitwiseXorExpr() ast.Expr {
	return p.parseBinary(p.parseBitwiseAndExpr, bitwiseXorOps)
}

func (p *Parser) parseBitwiseAndExpr() ast.Expr {
	return p.parseBinary(p.parseEqualityExpr, bitwiseAndOps)
}

func (p *Parser) parseEqualityExpr() ast.Expr {
	return p.parseBinary(p.parseRelationalExpr, equalityOps)
}

func (p *Parser) parseRelationalExpr() ast.Expr {
	if p.templateDepth > 0 {
		return p.parseBinary(p.parseShiftExpr, templateRelationalOps)
	}
	return p.parseBinary(p.parseShiftExpr, relationalOps)
}

func (p *Parser) parseShiftExpr() ast.Expr {
	if p.templateDepth > 0 {
		return p.parseBinary(p.parseAdditiveExpr, templateShiftOps)
	}
	return p.parseBinary(p.parseAdditiveExpr, shiftOps)
}

func (p *Parser) parseAdditiveExpr() ast.Expr {
	return p.parseBinary(p.parseMultiplicativeExpr, additiveOps)
}

func (p *Parser) parseMultiplicativeExpr() ast.Expr {
	return p.parseBinary(p.parseUnaryExpr, multiplicativeOps)
}

var unaryOps = map[lexer.TokenKind]ast.UnaryOp{
	lexer.TokMinus: ast.UnaryOpNeg,
	lexer.TokBang:  ast.UnaryOpNot,
	lexer.TokTilde: ast.UnaryOpBitNot,
	lexer.TokStar:  ast.UnaryOpDeref,
	lexer.TokAmp:   ast.UnaryOpAddr,
}

func (p *Parser) parseUnaryExpr() ast.Expr {
	tok := p.current()
	if op, ok := unaryOps[tok.Kind]; ok {
		p.advance()
		operand := p.parseUnaryExpr()
		if operand == nil {
			return nil
		}
		return p.at(tok.Start).Unary(op, operand)
	}
	return p.parsePostfixExpr()
}

func (p *Parser) parsePostfixExpr() ast.Expr {
	start := p.current().Start
	left := p.parsePrimaryExpr()
	if left == nil {
		return nil
	}

	for {
		switch p.current().Kind {
		case lexer.TokDot:
			p.advance()
			member := p.expectIdent()
			left = p.at(start).MemberAccessor(left, member)

		case lexer.TokLBracket:
			p.advance()
			saved := p.templateDepth
			p.templateDepth = 0
			index := p.parseExpression()
			p.templateDepth = saved
			p.expect(lexer.TokRBracket)
			left = p.at(start).Index(left, index)

		default:
			return left
		}
	}
}

func (p *Parser) parsePrimaryExpr() ast.Expr {
	tok := p.current()
	start := tok.Start

	switch tok.Kind {
	case lexer.TokIntLiteral:
		p.advance()
		v, suffix, err := lexer.IntLiteral(tok.Value)
		if err != nil {
			p.b.Diagnostics().AddErrorWithCode(start, diagnostic.CodeInvalidNumber, err.Error())
		}
		return p.at(start).IntLit(v, suffix)

	case lexer.TokFloatLiteral:
		p.advance()
		v, suffix, err := lexer.FloatLiteral(tok.Value)
		if err != nil {
			p.b.Diagnostics().AddErrorWithCode(start, diagnostic.CodeInvalidNumber, err.Error())
		}
		return p.at(start).FloatLit(v, suffix)

	case lexer.TokTrue, lexer.TokFalse:
		p.advance()
		return p.at(start).Bool(tok.Kind == lexer.TokTrue)

	case lexer.TokUnderscore:
		p.advance()
		return p.at(start).Phony()

	case lexer.TokIdent:
		p.advance()
		if p.current().Kind == lexer.TokLt && (tok.Value == "bitcast" || isTemplatedTypeName(tok.Value)) {
			return p.parseTemplatedConstructor(tok.Value, start)
		}
		fn := p.at(start).Ident(tok.Value)
		if p.current().Kind != lexer.TokLParen {
			return fn
		}
		args := p.parseArguments()
		return p.at(start).Call(fn, anys(args)...)

	case lexer.TokLParen:
		p.advance()
		saved := p.templateDepth
		p.templateDepth = 0
		e := p.parseExpression()
		p.templateDepth = saved
		p.expect(lexer.TokRParen)
		return e
	}

	p.error(fmt.Sprintf("expected expression, got %s", describe(tok)))
	return nil
}

// isTemplatedTypeName reports whether name is a predeclared type that takes
// template arguments. It tells array<f32, 2>(...) apart from a < b.
func isTemplatedTypeName(name string) bool {
	switch name {
	case "array", "vec2", "vec3", "vec4", "ptr", "atomic":
		return true
	}
	if len(name) == 6 && name[:3] == "mat" && name[4] == 'x' {
		return true
	}
	_, ok := textureTypes[name]
	return ok
}

// parseTemplatedConstructor parses array<T, N>(...), vec2<f32>(...) and
// bitcast<T>(e). The name has been consumed.
func (p *Parser) parseTemplatedConstructor(name string, start int) ast.Expr {
	var ty ast.Type
	if name == "bitcast" {
		p.expect(lexer.TokLt)
		p.templateDepth++
		ty = p.parseType()
		p.templateDepth--
		p.closeTemplate()
	} else {
		ty = p.parseTemplatedType(name, start)
	}
	if ty == nil {
		return nil
	}
	if p.current().Kind != lexer.TokLParen {
		p.error(fmt.Sprintf("expected '(' after type '%s', got %s", name, describe(p.current())))
		return nil
	}
	args := p.parseArguments()

	if name == "bitcast" {
		if len(args) != 1 {
			p.b.Diagnostics().AddErrorWithCode(start, diagnostic.CodeInvalidArgCount, "bitcast takes exactly one argument")
			return nil
		}
		return p.at(start).Bitcast(ty, args[0])
	}
	return p.at(start).Construct(ty, anys(args)...)
}

// parseArguments parses a parenthesized, comma separated expression list.
// A trailing comma is allowed.
func (p *Parser) parseArguments() []ast.Expr {
	p.expect(lexer.TokLParen)
	saved := p.templateDepth
	p.templateDepth = 0
	defer func() { p.templateDepth = saved }()

	var exprs []ast.Expr
	for p.current().Kind != lexer.TokRParen && p.current().Kind != lexer.TokEOF {
		e := p.parseExpression()
		if e == nil {
			break
		}
		exprs = append(exprs, e)
		if !p.match(lexer.TokComma) {
			break
		}
	}
	p.expect(lexer.TokRParen)
	return exprs
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func (p *Parser) parseStatement() ast.Stmt {
	start := p.current().Start
	// Statement attributes (@diagnostic on a block or loop) carry no
	// meaning for the transforms and are dropped.
	p.parseAttributes()

	switch p.current().Kind {
	case lexer.TokSemicolon:
		p.advance()
		return nil

	case lexer.TokLBrace:
		return p.parseCompoundStmt()

	case lexer.TokReturn:
		p.advance()
		var value ast.Expr
		if p.current().Kind != lexer.TokSemicolon {
			value = p.parseExpression()
		}
		p.expect(lexer.TokSemicolon)
		return p.at(start).Return(value)

	case lexer.TokIf:
		return p.parseIfStmt()

	case lexer.TokSwitch:
		return p.parseSwitchStmt()

	case lexer.TokFor:
		return p.parseForStmt()

	case lexer.TokWhile:
		p.advance()
		cond := p.parseExpression()
		body := p.parseCompoundStmt()
		return p.at(start).While(cond, body)

	case lexer.TokLoop:
		return p.parseLoopStmt()

	case lexer.TokBreak:
		p.advance()
		if p.match(lexer.TokIf) {
			cond := p.parseExpression()
			p.expect(lexer.TokSemicolon)
			return p.at(start).BreakIf(cond)
		}
		p.expect(lexer.TokSemicolon)
		return p.at(start).Break()

	case lexer.TokContinue:
		p.advance()
		p.expect(lexer.TokSemicolon)
		return p.at(start).Continue()

	case lexer.TokDiscard:
		p.advance()
		p.expect(lexer.TokSemicolon)
		return p.at(start).Discard()

	case lexer.TokConstAssert:
		d := p.parseConstAssert(start)
		p.expect(lexer.TokSemicolon)
		return p.at(start).Decl(d)

	case lexer.TokConst, lexer.TokLet, lexer.TokVar:
		d := p.parseVariableDecl(start, nil)
		p.expect(lexer.TokSemicolon)
		return p.at(start).Decl(d)
	}

	s := p.parseSimpleStmt()
	p.expect(lexer.TokSemicolon)
	return s
}

func (p *Parser) parseCompoundStmt() *ast.CompoundStmt {
	start := p.current().Start
	p.expect(lexer.TokLBrace)
	stmts := p.parseStatementsUntil(lexer.TokRBrace)
	p.expect(lexer.TokRBrace)
	return p.at(start).Block(stmts...)
}

// parseStatementsUntil parses statements up to a closing brace or one of
// the stop keywords, which is left unconsumed.
func (p *Parser) parseStatementsUntil(stops ...lexer.TokenKind) []ast.Stmt {
	var stmts []ast.Stmt
	for {
		kind := p.current().Kind
		if kind == lexer.TokEOF || kind == lexer.TokRBrace {
			return stmts
		}
		for _, stop := range stops {
			if kind == stop {
				return stmts
			}
		}

		before := p.pos
		if s := p.parseStatement(); s != nil {
			stmts = append(stmts, s)
		}
		if p.pos == before {
			p.error(fmt.Sprintf("expected statement, got %s", describe(p.current())))
			p.advance()
		}
	}
}

func (p *Parser) parseIfStmt() *ast.IfStmt {
	start := p.current().Start
	p.expect(lexer.TokIf)
	cond := p.parseExpression()
	body := p.parseCompoundStmt()

	var els ast.Stmt
	if p.match(lexer.TokElse) {
		if p.current().Kind == lexer.TokIf {
			els = p.parseIfStmt()
		} else {
			els = p.parseCompoundStmt()
		}
	}
	return p.at(start).If(cond, body, els)
}

func (p *Parser) parseSwitchStmt() *ast.SwitchStmt {
	start := p.current().Start
	p.expect(lexer.TokSwitch)
	selector := p.parseExpression()
	p.parseAttributes()
	p.expect(lexer.TokLBrace)

	var cases []*ast.SwitchCase
	for {
		caseStart := p.current().Start
		var selectors []ast.Expr
		hasDefault := false

		switch p.current().Kind {
		case lexer.TokDefault:
			p.advance()
			hasDefault = true
		case lexer.TokCase:
			p.advance()
			for p.current().Kind != lexer.TokColon && p.current().Kind != lexer.TokLBrace {
				if p.match(lexer.TokDefault) {
					hasDefault = true
				} else if e := p.parseExpression(); e != nil {
					selectors = append(selectors, e)
				} else {
					break
				}
				if !p.match(lexer.TokComma) {
					break
				}
			}
		default:
			p.expect(lexer.TokRBrace)
			return p.at(start).Switch(selector, cases...)
		}

		p.match(lexer.TokColon)
		body := p.parseCompoundStmt()
		cases = append(cases, p.at(caseStart).Case(selectors, hasDefault, body))
	}
}

func (p *Parser) parseForStmt() *ast.ForStmt {
	start := p.current().Start
	p.expect(lexer.TokFor)
	p.expect(lexer.TokLParen)

	var init ast.Stmt
	switch p.current().Kind {
	case lexer.TokSemicolon:
	case lexer.TokConst, lexer.TokLet, lexer.TokVar:
		initStart := p.current().Start
		d := p.parseVariableDecl(initStart, nil)
		init = p.at(initStart).Decl(d)
	default:
		init = p.parseSimpleStmt()
	}
	p.expect(lexer.TokSemicolon)

	var cond ast.Expr
	if p.current().Kind != lexer.TokSemicolon {
		cond = p.parseExpression()
	}
	p.expect(lexer.TokSemicolon)

	var update ast.Stmt
	if p.current().Kind != lexer.TokRParen {
		update = p.parseSimpleStmt()
	}
	p.expect(lexer.TokRParen)

	body := p.parseCompoundStmt()
	return p.at(start).For(init, cond, update, body)
}

// parseLoopStmt parses loop { stmts [continuing { stmts [break if e;] }] }.
// The continuing block sits inside the loop body.
func (p *Parser) parseLoopStmt() *ast.LoopStmt {
	start := p.current().Start
	p.expect(lexer.TokLoop)
	p.parseAttributes()

	bodyStart := p.current().Start
	p.expect(lexer.TokLBrace)
	stmts := p.parseStatementsUntil(lexer.TokContinuing)

	var cont *ast.CompoundStmt
	if p.match(lexer.TokContinuing) {
		cont = p.parseCompoundStmt()
	}
	p.expect(lexer.TokRBrace)

	body := p.at(bodyStart).Block(stmts...)
	return p.at(start).Loop(body, cont)
}

var assignOps = map[lexer.TokenKind]ast.AssignOp{
	lexer.TokEq:        ast.AssignOpSimple,
	lexer.TokPlusEq:    ast.AssignOpAdd,
	lexer.TokMinusEq:   ast.AssignOpSub,
	lexer.TokStarEq:    ast.AssignOpMul,
	lexer.TokSlashEq:   ast.AssignOpDiv,
	lexer.TokPercentEq: ast.AssignOpMod,
	lexer.TokAmpEq:     ast.AssignOpAnd,
	lexer.TokPipeEq:    ast.AssignOpOr,
	lexer.TokCaretEq:   ast.AssignOpXor,
	lexer.TokLtLtEq:    ast.AssignOpShl,
	lexer.TokGtGtEq:    ast.AssignOpShr,
}

// parseSimpleStmt parses an assignment, increment, decrement or call
// statement without its terminator. These are the statements allowed in
// a for-loop header.
func (p *Parser) parseSimpleStmt() ast.Stmt {
	start := p.current().Start
	left := p.parseExpression()
	if left == nil {
		return nil
	}

	tok := p.current()
	if op, ok := assignOps[tok.Kind]; ok {
		p.advance()
		right := p.parseExpression()
		return p.at(start).CompoundAssign(left, op, right)
	}
	switch tok.Kind {
	case lexer.TokPlusPlus, lexer.TokMinusMinus:
		p.advance()
		return p.at(start).IncrDecr(left, tok.Kind == lexer.TokPlusPlus)
	}

	if call, ok := left.(*ast.CallExpr); ok {
		return p.at(start).CallStmt(call)
	}
	p.error(fmt.Sprintf("expected assignment or call, got %s", describe(tok)))
	return nil
}
