package lexer

import (
	"strconv"
	"strings"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/pkg/errors"
)

// IntLiteral decodes the spelling of an integer literal token.
func IntLiteral(text string) (int64, ast.LiteralSuffix, error) {
	suffix := ast.SuffixNone
	switch {
	case strings.HasSuffix(text, "i"):
		suffix, text = ast.SuffixI, text[:len(text)-1]
	case strings.HasSuffix(text, "u"):
		suffix, text = ast.SuffixU, text[:len(text)-1]
	}

	var n uint64
	var err error
	if strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X") {
		n, err = strconv.ParseUint(text[2:], 16, 64)
	} else {
		if len(text) > 1 && text[0] == '0' {
			return 0, suffix, errors.Errorf("integer literal %q has a leading zero", text)
		}
		n, err = strconv.ParseUint(text, 10, 64)
	}
	if err != nil {
		return 0, suffix, errors.Wrapf(err, "invalid integer literal %q", text)
	}

	// The minus sign is a separate token, so i32 accepts 2147483648i for
	// the operand of a negation.
	limit := uint64(1<<63 - 1)
	switch suffix {
	case ast.SuffixI:
		limit = 1 << 31
	case ast.SuffixU:
		limit = 1<<32 - 1
	}
	if n > limit {
		return 0, suffix, errors.Errorf("integer literal %q does not fit its type", text)
	}
	return int64(n), suffix, nil
}

// FloatLiteral decodes the spelling of a floating point literal token.
func FloatLiteral(text string) (float64, ast.LiteralSuffix, error) {
	suffix := ast.SuffixNone
	hex := strings.HasPrefix(text, "0x") || strings.HasPrefix(text, "0X")
	switch {
	case strings.HasSuffix(text, "f") && !(hex && !strings.ContainsAny(text, "pP")):
		suffix, text = ast.SuffixF, text[:len(text)-1]
	case strings.HasSuffix(text, "h"):
		suffix, text = ast.SuffixH, text[:len(text)-1]
	}

	if hex && !strings.ContainsAny(text, "pP") {
		// strconv requires an exponent on hex floats.
		text += "p0"
	}
	bits := 64
	if suffix == ast.SuffixF {
		bits = 32
	}
	v, err := strconv.ParseFloat(text, bits)
	if err != nil {
		return 0, suffix, errors.Wrapf(err, "invalid float literal %q", text)
	}
	return v, suffix, nil
}
