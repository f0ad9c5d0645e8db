// Package lexer splits WGSL source into tokens for the parser.
//
// Comments nest and are dropped together with whitespace. Identifiers may
// use Unicode letters. The lexer does not disambiguate template lists:
// '<' and '>' are always plain tokens and the parser decides, from the
// identifier in front of them, whether they open a template.
package lexer

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// ----------------------------------------------------------------------------
// Token Types
// ----------------------------------------------------------------------------

// TokenKind represents the type of a token.
type TokenKind uint8

const (
	TokError TokenKind = iota
	TokEOF

	// Literals
	TokIntLiteral
	TokFloatLiteral
	TokTrue
	TokFalse

	TokIdent

	// Keywords
	TokAlias
	TokBreak
	TokCase
	TokConst
	TokConstAssert
	TokContinue
	TokContinuing
	TokDefault
	TokDiagnostic
	TokDiscard
	TokElse
	TokEnable
	TokFn
	TokFor
	TokIf
	TokLet
	TokLoop
	TokOverride
	TokRequires
	TokReturn
	TokStruct
	TokSwitch
	TokVar
	TokWhile

	// Operators
	TokPlus
	TokMinus
	TokStar
	TokSlash
	TokPercent
	TokAmp
	TokPipe
	TokCaret
	TokTilde
	TokBang
	TokLt
	TokGt
	TokEq
	TokDot
	TokAt
	TokPlusPlus
	TokMinusMinus
	TokAmpAmp
	TokPipePipe
	TokLtLt
	TokGtGt
	TokLtEq
	TokGtEq
	TokEqEq
	TokBangEq
	TokArrow
	TokPlusEq
	TokMinusEq
	TokStarEq
	TokSlashEq
	TokPercentEq
	TokAmpEq
	TokPipeEq
	TokCaretEq
	TokLtLtEq
	TokGtGtEq

	// Delimiters
	TokLParen
	TokRParen
	TokLBrace
	TokRBrace
	TokLBracket
	TokRBracket
	TokSemicolon
	TokColon
	TokComma
	TokUnderscore // '_' on the left of a phony assignment
)

// String returns the spelling of a token kind.
func (k TokenKind) String() string {
	if int(k) < len(tokenNames) && tokenNames[k] != "" {
		return tokenNames[k]
	}
	return "unknown"
}

var tokenNames [TokUnderscore + 1]string

func init() {
	tokenNames[TokError] = "error"
	tokenNames[TokEOF] = "EOF"
	tokenNames[TokIntLiteral] = "int"
	tokenNames[TokFloatLiteral] = "float"
	tokenNames[TokIdent] = "identifier"
	for word, kind := range Keywords {
		tokenNames[kind] = word
	}
	for _, op := range operators {
		tokenNames[op.kind] = op.text
	}
}

// ----------------------------------------------------------------------------
// Token
// ----------------------------------------------------------------------------

// Token represents a lexical token.
type Token struct {
	Kind  TokenKind
	Start int    // Byte offset in source
	End   int    // Byte offset of end (exclusive)
	Value string // Spelling of identifiers and literals, message of errors
}

// Text returns the source text of the token.
func (t Token) Text(source string) string {
	if t.Start >= 0 && t.End <= len(source) && t.Start <= t.End {
		return source[t.Start:t.End]
	}
	return ""
}

// ----------------------------------------------------------------------------
// Keywords
// ----------------------------------------------------------------------------

// Keywords maps keyword strings to their token kinds.
var Keywords = map[string]TokenKind{
	"alias":        TokAlias,
	"break":        TokBreak,
	"case":         TokCase,
	"const":        TokConst,
	"const_assert": TokConstAssert,
	"continue":     TokContinue,
	"continuing":   TokContinuing,
	"default":      TokDefault,
	"diagnostic":   TokDiagnostic,
	"discard":      TokDiscard,
	"else":         TokElse,
	"enable":       TokEnable,
	"false":        TokFalse,
	"fn":           TokFn,
	"for":          TokFor,
	"if":           TokIf,
	"let":          TokLet,
	"loop":         TokLoop,
	"override":     TokOverride,
	"requires":     TokRequires,
	"return":       TokReturn,
	"struct":       TokStruct,
	"switch":       TokSwitch,
	"true":         TokTrue,
	"var":          TokVar,
	"while":        TokWhile,
}

// reserved holds the WGSL reserved words that cannot be used as identifiers.
var reserved = func() map[string]bool {
	m := make(map[string]bool)
	for _, w := range strings.Fields(`
		NULL Self abstract active alignas alignof as asm asm_fragment async
		attribute auto await become cast catch class co_await co_return
		co_yield coherent column_major common compile compile_fragment concept
		const_cast consteval constexpr constinit crate debugger decltype delete
		demote demote_to_helper do dynamic_cast enum explicit export extends
		extern external fallthrough filter final finally friend from fxgroup
		get goto groupshared highp impl implements import inline instanceof
		interface layout lowp macro macro_rules match mediump meta mod module
		move mut mutable namespace new nil noexcept noinline nointerpolation
		non_coherent noncoherent noperspective null nullptr of operator package
		packoffset partition pass patch pixelfragment precise precision
		premerge priv protected pub public readonly ref regardless register
		reinterpret_cast require resource restrict self set shared sizeof
		smooth snorm static static_assert static_cast std subroutine super
		target template this thread_local throw trait try type typedef typeid
		typename typeof union unless unorm unsafe unsized use using varying
		virtual volatile wgsl where with writeonly yield`) {
		m[w] = true
	}
	return m
}()

// IsReserved reports whether word is a WGSL reserved word.
func IsReserved(word string) bool { return reserved[word] }

// ReservedWords returns the reserved words in no particular order.
func ReservedWords() []string {
	out := make([]string, 0, len(reserved))
	for w := range reserved {
		out = append(out, w)
	}
	return out
}

// operators lists every operator and delimiter, longest spelling first so
// that a prefix scan finds the maximal munch.
var operators = []struct {
	text string
	kind TokenKind
}{
	{"<<=", TokLtLtEq}, {">>=", TokGtGtEq},
	{"++", TokPlusPlus}, {"--", TokMinusMinus}, {"&&", TokAmpAmp},
	{"||", TokPipePipe}, {"<<", TokLtLt}, {">>", TokGtGt}, {"<=", TokLtEq},
	{">=", TokGtEq}, {"==", TokEqEq}, {"!=", TokBangEq}, {"->", TokArrow},
	{"+=", TokPlusEq}, {"-=", TokMinusEq}, {"*=", TokStarEq},
	{"/=", TokSlashEq}, {"%=", TokPercentEq}, {"&=", TokAmpEq},
	{"|=", TokPipeEq}, {"^=", TokCaretEq},
	{"+", TokPlus}, {"-", TokMinus}, {"*", TokStar}, {"/", TokSlash},
	{"%", TokPercent}, {"&", TokAmp}, {"|", TokPipe}, {"^", TokCaret},
	{"~", TokTilde}, {"!", TokBang}, {"<", TokLt}, {">", TokGt}, {"=", TokEq},
	{".", TokDot}, {"@", TokAt}, {"(", TokLParen}, {")", TokRParen},
	{"{", TokLBrace}, {"}", TokRBrace}, {"[", TokLBracket},
	{"]", TokRBracket}, {";", TokSemicolon}, {":", TokColon},
	{",", TokComma}, {"_", TokUnderscore},
}

// operatorsByByte indexes operators by their first byte.
var operatorsByByte [128][]int

func init() {
	for i, op := range operators {
		c := op.text[0]
		operatorsByByte[c] = append(operatorsByByte[c], i)
	}
}

// ----------------------------------------------------------------------------
// Lexer
// ----------------------------------------------------------------------------

// Lexer tokenizes WGSL source code.
type Lexer struct {
	source string
	pos    int
}

// New creates a new lexer for the given source.
func New(source string) *Lexer {
	return &Lexer{source: source}
}

// Tokenize returns all tokens in the source, ending with TokEOF or with the
// first TokError.
func (l *Lexer) Tokenize() []Token {
	tokens := make([]Token, 0, len(l.source)/4)
	for {
		tok := l.Next()
		tokens = append(tokens, tok)
		if tok.Kind == TokEOF || tok.Kind == TokError {
			return tokens
		}
	}
}

// Next returns the next token.
func (l *Lexer) Next() Token {
	if msg := l.skipTrivia(); msg != "" {
		return Token{Kind: TokError, Start: l.pos, End: len(l.source), Value: msg}
	}
	if l.pos >= len(l.source) {
		return Token{Kind: TokEOF, Start: l.pos, End: l.pos}
	}

	ch := l.source[l.pos]
	switch {
	case ch >= utf8.RuneSelf:
		r, _ := utf8.DecodeRuneInString(l.source[l.pos:])
		if isIdentStart(r) {
			return l.scanIdent()
		}
	case ch == '_' && l.pos+1 < len(l.source) && isIdentContinueByte(l.source[l.pos+1]):
		return l.scanIdent()
	case identStart[ch]:
		return l.scanIdent()
	case isDigit(ch) || ch == '.' && l.pos+1 < len(l.source) && isDigit(l.source[l.pos+1]):
		return l.scanNumber()
	default:
		if tok, ok := l.scanOperator(); ok {
			return tok
		}
	}

	_, size := utf8.DecodeRuneInString(l.source[l.pos:])
	start := l.pos
	l.pos += size
	return Token{Kind: TokError, Start: start, End: l.pos, Value: "unexpected character " + l.source[start:l.pos]}
}

// skipTrivia skips whitespace and comments. It returns a message when a
// block comment is left open.
func (l *Lexer) skipTrivia() string {
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		switch {
		case ch == ' ' || ch == '\n' || ch == '\t' || ch == '\r' || ch == '\v' || ch == '\f':
			l.pos++
		case strings.HasPrefix(l.source[l.pos:], "//"):
			end := strings.IndexByte(l.source[l.pos:], '\n')
			if end < 0 {
				l.pos = len(l.source)
			} else {
				l.pos += end
			}
		case strings.HasPrefix(l.source[l.pos:], "/*"):
			l.pos += 2
			depth := 1
			for depth > 0 {
				if l.pos+1 >= len(l.source) {
					l.pos = len(l.source)
					return "unterminated block comment"
				}
				switch l.source[l.pos : l.pos+2] {
				case "/*":
					depth++
					l.pos += 2
				case "*/":
					depth--
					l.pos += 2
				default:
					l.pos++
				}
			}
		default:
			return ""
		}
	}
	return ""
}

func (l *Lexer) scanIdent() Token {
	start := l.pos
	for l.pos < len(l.source) {
		ch := l.source[l.pos]
		if ch < utf8.RuneSelf {
			if !identContinue[ch] {
				break
			}
			l.pos++
			continue
		}
		r, size := utf8.DecodeRuneInString(l.source[l.pos:])
		if !isIdentContinue(r) {
			break
		}
		l.pos += size
	}

	text := l.source[start:l.pos]
	if kind, ok := Keywords[text]; ok {
		return Token{Kind: kind, Start: start, End: l.pos, Value: text}
	}
	if reserved[text] {
		return Token{Kind: TokError, Start: start, End: l.pos, Value: "reserved word: " + text}
	}
	if strings.HasPrefix(text, "__") {
		return Token{Kind: TokError, Start: start, End: l.pos, Value: "identifier cannot start with __"}
	}
	return Token{Kind: TokIdent, Start: start, End: l.pos, Value: text}
}

func (l *Lexer) scanNumber() Token {
	start := l.pos
	kind := TokIntLiteral

	if l.pos+1 < len(l.source) && l.source[l.pos] == '0' && (l.source[l.pos+1] == 'x' || l.source[l.pos+1] == 'X') {
		l.pos += 2
		l.skip(isHexDigit)
		if l.peek() == '.' {
			kind = TokFloatLiteral
			l.pos++
			l.skip(isHexDigit)
		}
		if c := l.peek(); c == 'p' || c == 'P' {
			kind = TokFloatLiteral
			l.exponent()
		}
	} else {
		l.skip(isDigit)
		// "1.x" is a member access on 1, "1." and "1.5" are floats.
		if l.peek() == '.' {
			next := byte(0)
			if l.pos+1 < len(l.source) {
				next = l.source[l.pos+1]
			}
			if next >= utf8.RuneSelf || !identStart[next] && next != '_' {
				kind = TokFloatLiteral
				l.pos++
				l.skip(isDigit)
			}
		}
		if c := l.peek(); c == 'e' || c == 'E' {
			kind = TokFloatLiteral
			l.exponent()
		}
	}

	switch l.peek() {
	case 'i', 'u':
		if kind == TokIntLiteral {
			l.pos++
		}
	case 'f', 'h':
		kind = TokFloatLiteral
		l.pos++
	}
	return Token{Kind: kind, Start: start, End: l.pos, Value: l.source[start:l.pos]}
}

func (l *Lexer) exponent() {
	l.pos++
	if c := l.peek(); c == '+' || c == '-' {
		l.pos++
	}
	l.skip(isDigit)
}

func (l *Lexer) scanOperator() (Token, bool) {
	ch := l.source[l.pos]
	if ch >= utf8.RuneSelf {
		return Token{}, false
	}
	rest := l.source[l.pos:]
	for _, i := range operatorsByByte[ch] {
		op := operators[i]
		if strings.HasPrefix(rest, op.text) {
			start := l.pos
			l.pos += len(op.text)
			return Token{Kind: op.kind, Start: start, End: l.pos}, true
		}
	}
	return Token{}, false
}

func (l *Lexer) peek() byte {
	if l.pos < len(l.source) {
		return l.source[l.pos]
	}
	return 0
}

func (l *Lexer) skip(class func(byte) bool) {
	for l.pos < len(l.source) && class(l.source[l.pos]) {
		l.pos++
	}
}

// ----------------------------------------------------------------------------
// Character Classification
// ----------------------------------------------------------------------------

var identStart, identContinue [128]bool

func init() {
	for c := 'a'; c <= 'z'; c++ {
		identStart[c], identContinue[c] = true, true
	}
	for c := 'A'; c <= 'Z'; c++ {
		identStart[c], identContinue[c] = true, true
	}
	for c := '0'; c <= '9'; c++ {
		identContinue[c] = true
	}
	identContinue['_'] = true
}

func isDigit(ch byte) bool { return ch >= '0' && ch <= '9' }

func isHexDigit(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}

func isIdentContinueByte(ch byte) bool {
	return ch >= utf8.RuneSelf || identContinue[ch]
}

func isIdentStart(r rune) bool {
	if r < utf8.RuneSelf {
		return identStart[r] || r == '_'
	}
	return unicode.IsLetter(r) || unicode.Is(unicode.Other_ID_Start, r)
}

func isIdentContinue(r rune) bool {
	if r < utf8.RuneSelf {
		return identContinue[r]
	}
	return unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.Is(unicode.Mn, r) ||
		unicode.Is(unicode.Mc, r) || unicode.Is(unicode.Other_ID_Continue, r)
}
