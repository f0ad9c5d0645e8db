package lexer

import (
	"testing"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ----------------------------------------------------------------------------
// Test Helpers
// ----------------------------------------------------------------------------

func expectToken(t *testing.T, input string, expected TokenKind) {
	t.Helper()
	tok := New(input).Next()
	if tok.Kind != expected {
		t.Errorf("input %q: expected %v, got %v", input, expected, tok.Kind)
	}
}

func expectTokenValue(t *testing.T, input string, expectedKind TokenKind, expectedValue string) {
	t.Helper()
	tok := New(input).Next()
	if tok.Kind != expectedKind {
		t.Errorf("input %q: expected kind %v, got %v", input, expectedKind, tok.Kind)
	}
	if tok.Value != expectedValue {
		t.Errorf("input %q: expected value %q, got %q", input, expectedValue, tok.Value)
	}
}

func expectTokens(t *testing.T, input string, expected ...TokenKind) {
	t.Helper()
	l := New(input)
	for i, exp := range expected {
		if tok := l.Next(); tok.Kind != exp {
			t.Errorf("input %q token %d: expected %v, got %v", input, i, exp, tok.Kind)
		}
	}
}

func expectError(t *testing.T, input string) {
	t.Helper()
	if tok := New(input).Next(); tok.Kind != TokError {
		t.Errorf("input %q: expected error, got %v", input, tok.Kind)
	}
}

// ----------------------------------------------------------------------------
// Words
// ----------------------------------------------------------------------------

func TestKeywords(t *testing.T) {
	for word, kind := range Keywords {
		t.Run(word, func(t *testing.T) {
			expectToken(t, word, kind)
			assert.Equal(t, word, kind.String())
		})
	}
}

func TestIdentifiers(t *testing.T) {
	for _, name := range []string{"foo", "_bar", "snake_case", "a1", "vec3f", "mat4x4f", "i32", "α", "日本語", "_über"} {
		t.Run(name, func(t *testing.T) {
			expectTokenValue(t, name, TokIdent, name)
		})
	}
}

func TestInvalidIdentifiers(t *testing.T) {
	expectToken(t, "_", TokUnderscore)
	expectError(t, "__reserved")
	for _, word := range []string{"NULL", "Self", "async", "class", "enum", "module", "null", "typeof", "yield"} {
		t.Run(word, func(t *testing.T) {
			expectError(t, word)
			assert.True(t, IsReserved(word))
		})
	}
	assert.False(t, IsReserved("private"))
}

// ----------------------------------------------------------------------------
// Numbers
// ----------------------------------------------------------------------------

func TestIntegerTokens(t *testing.T) {
	for _, text := range []string{"0", "42", "0i", "42u", "0x0", "0xABCDEF", "0X1234", "0xFFi", "0xFFu"} {
		t.Run(text, func(t *testing.T) {
			expectTokenValue(t, text, TokIntLiteral, text)
		})
	}
}

func TestFloatTokens(t *testing.T) {
	for _, text := range []string{
		"0.0", "3.14159", ".5", "0.", "1e10", "1E-10", "1.5e+10",
		"0.5f", "0.5h", "1f", "0x1p0", "0x1.0p0", "0x1P10", "0x1.ABCp+10", "0x1.8",
	} {
		t.Run(text, func(t *testing.T) {
			expectTokenValue(t, text, TokFloatLiteral, text)
		})
	}
}

func TestIntLiteralValues(t *testing.T) {
	cases := []struct {
		text   string
		value  int64
		suffix ast.LiteralSuffix
	}{
		{"0", 0, ast.SuffixNone},
		{"42", 42, ast.SuffixNone},
		{"7i", 7, ast.SuffixI},
		{"4294967295u", 4294967295, ast.SuffixU},
		{"0xff", 255, ast.SuffixNone},
		{"0x10u", 16, ast.SuffixU},
		{"2147483648i", 2147483648, ast.SuffixI},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			v, suffix, err := IntLiteral(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.value, v)
			assert.Equal(t, tc.suffix, suffix)
		})
	}

	for _, bad := range []string{"4294967296u", "2147483649i", "012"} {
		_, _, err := IntLiteral(bad)
		assert.Error(t, err, bad)
	}
}

func TestFloatLiteralValues(t *testing.T) {
	cases := []struct {
		text   string
		value  float64
		suffix ast.LiteralSuffix
	}{
		{"1.5", 1.5, ast.SuffixNone},
		{".25", 0.25, ast.SuffixNone},
		{"2.", 2, ast.SuffixNone},
		{"1e3", 1000, ast.SuffixNone},
		{"0.5f", 0.5, ast.SuffixF},
		{"3f", 3, ast.SuffixF},
		{"1.0h", 1, ast.SuffixH},
		{"0x1p4", 16, ast.SuffixNone},
		{"0x1.8", 1.5, ast.SuffixNone},
		{"0x1p1f", 2, ast.SuffixF},
	}
	for _, tc := range cases {
		t.Run(tc.text, func(t *testing.T) {
			v, suffix, err := FloatLiteral(tc.text)
			require.NoError(t, err)
			assert.Equal(t, tc.value, v)
			assert.Equal(t, tc.suffix, suffix)
		})
	}
}

// ----------------------------------------------------------------------------
// Operators and Trivia
// ----------------------------------------------------------------------------

func TestOperators(t *testing.T) {
	for _, op := range operators {
		t.Run(op.text, func(t *testing.T) {
			expectToken(t, op.text, op.kind)
			assert.Equal(t, op.text, op.kind.String())
		})
	}
}

func TestMaximalMunch(t *testing.T) {
	expectTokens(t, "a<<=b", TokIdent, TokLtLtEq, TokIdent, TokEOF)
	expectTokens(t, "x--->y", TokIdent, TokMinusMinus, TokArrow, TokIdent, TokEOF)
	expectTokens(t, "a>>b>=c", TokIdent, TokGtGt, TokIdent, TokGtEq, TokIdent, TokEOF)
}

func TestTemplateBrackets(t *testing.T) {
	expectTokens(t, "array<vec4<f32>>",
		TokIdent, TokLt, TokIdent, TokLt, TokIdent, TokGtGt, TokEOF)
}

func TestComments(t *testing.T) {
	expectTokens(t, "// line\nfoo", TokIdent, TokEOF)
	expectTokens(t, "a /* b */ c", TokIdent, TokIdent, TokEOF)
	expectTokens(t, "a /* outer /* inner */ still */ b", TokIdent, TokIdent, TokEOF)
	expectTokens(t, " \t\r\n\v\f", TokEOF)

	tok := New("a /* open").Tokenize()
	require.Len(t, tok, 2)
	assert.Equal(t, TokError, tok[1].Kind)
	assert.Equal(t, "unterminated block comment", tok[1].Value)
}

func TestMemberAccess(t *testing.T) {
	expectTokens(t, "pos.xyz", TokIdent, TokDot, TokIdent, TokEOF)
	expectTokens(t, "a.b.c", TokIdent, TokDot, TokIdent, TokDot, TokIdent, TokEOF)
	expectTokens(t, "v[1].x", TokIdent, TokLBracket, TokIntLiteral, TokRBracket, TokDot, TokIdent, TokEOF)
}

func TestUnexpectedCharacter(t *testing.T) {
	toks := New("a ? b").Tokenize()
	require.Len(t, toks, 2)
	assert.Equal(t, TokError, toks[1].Kind)
	assert.Equal(t, 2, toks[1].Start)
	expectError(t, "#")
	expectError(t, "→")
}

func TestTokenText(t *testing.T) {
	src := "fn main() {}"
	toks := New(src).Tokenize()
	require.Len(t, toks, 7)
	assert.Equal(t, "fn", toks[0].Text(src))
	assert.Equal(t, "main", toks[1].Text(src))
	assert.Equal(t, "", Token{Start: 5, End: 100}.Text(src))
	assert.Equal(t, TokEOF, toks[6].Kind)
}

func TestComputeShaderHeader(t *testing.T) {
	expectTokens(t, "@compute @workgroup_size(64, 1) fn main(@builtin(global_invocation_id) id: vec3u) {",
		TokAt, TokIdent, TokAt, TokIdent, TokLParen, TokIntLiteral, TokComma, TokIntLiteral, TokRParen,
		TokFn, TokIdent, TokLParen, TokAt, TokIdent, TokLParen, TokIdent, TokRParen,
		TokIdent, TokColon, TokIdent, TokRParen, TokLBrace, TokEOF)
}

func BenchmarkTokenize(b *testing.B) {
	src := `
struct Particle { pos: vec3<f32>, vel: vec3<f32>, }
@group(0) @binding(0) var<storage, read_write> particles: array<Particle>;
@compute @workgroup_size(64)
fn main(@builtin(global_invocation_id) id: vec3u) {
	let i = id.x;
	particles[i].pos += particles[i].vel * 0.016;
}
`
	for i := 0; i < b.N; i++ {
		New(src).Tokenize()
	}
}
