package resolver

import (
	"math"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// ----------------------------------------------------------------------------
// Constant Folding
//
// Only scalar expressions are folded. Anything that would fault at runtime
// (division by zero, out of range shifts) is left unfolded.
// ----------------------------------------------------------------------------

// convertValue converts v to the scalar type s.
func convertValue(v *sem.Value, s *types.Scalar) *sem.Value {
	out := &sem.Value{Type: s}
	switch {
	case s.Kind == types.ScalarBool:
		if v.Type.IsFloat() {
			out.Bool = v.Float != 0
		} else if v.Type.Kind == types.ScalarBool {
			out.Bool = v.Bool
		} else {
			out.Bool = v.Int != 0
		}
	case s.IsFloat():
		out.Float = v.AsFloat()
	default:
		out.Int = wrapInt(v.AsInt(), s)
	}
	return out
}

// wrapInt truncates n to the width of s.
func wrapInt(n int64, s *types.Scalar) int64 {
	switch s.Kind {
	case types.ScalarI32:
		return int64(int32(n))
	case types.ScalarU32:
		return int64(uint32(n))
	}
	return n
}

func foldUnary(op ast.UnaryOp, v *sem.Value) *sem.Value {
	if v == nil {
		return nil
	}
	out := &sem.Value{Type: v.Type}
	switch op {
	case ast.UnaryOpNeg:
		if v.Type.IsFloat() {
			out.Float = -v.Float
		} else {
			out.Int = wrapInt(-v.Int, v.Type)
		}
	case ast.UnaryOpNot:
		out.Bool = !v.Bool
	case ast.UnaryOpBitNot:
		out.Int = wrapInt(^v.Int, v.Type)
	default:
		return nil
	}
	return out
}

func foldBinary(op ast.BinaryOp, l, r *sem.Value, result *types.Scalar) *sem.Value {
	if op.IsComparison() {
		return foldComparison(op, l, r)
	}
	out := &sem.Value{Type: result}

	if result.Kind == types.ScalarBool {
		switch op {
		case ast.BinOpLogicalAnd, ast.BinOpAnd:
			out.Bool = l.Bool && r.Bool
		case ast.BinOpLogicalOr, ast.BinOpOr:
			out.Bool = l.Bool || r.Bool
		case ast.BinOpXor:
			out.Bool = l.Bool != r.Bool
		default:
			return nil
		}
		return out
	}

	if result.IsFloat() {
		a, b := l.AsFloat(), r.AsFloat()
		switch op {
		case ast.BinOpAdd:
			out.Float = a + b
		case ast.BinOpSub:
			out.Float = a - b
		case ast.BinOpMul:
			out.Float = a * b
		case ast.BinOpDiv:
			if b == 0 {
				return nil
			}
			out.Float = a / b
		case ast.BinOpMod:
			if b == 0 {
				return nil
			}
			out.Float = math.Mod(a, b)
		default:
			return nil
		}
		return out
	}

	a, b := l.AsInt(), r.AsInt()
	switch op {
	case ast.BinOpAdd:
		out.Int = a + b
	case ast.BinOpSub:
		out.Int = a - b
	case ast.BinOpMul:
		out.Int = a * b
	case ast.BinOpDiv:
		if b == 0 {
			return nil
		}
		out.Int = a / b
	case ast.BinOpMod:
		if b == 0 {
			return nil
		}
		out.Int = a % b
	case ast.BinOpAnd:
		out.Int = a & b
	case ast.BinOpOr:
		out.Int = a | b
	case ast.BinOpXor:
		out.Int = a ^ b
	case ast.BinOpShl:
		if b < 0 || b >= 32 {
			return nil
		}
		out.Int = a << uint(b)
	case ast.BinOpShr:
		if b < 0 || b >= 32 {
			return nil
		}
		out.Int = a >> uint(b)
	default:
		return nil
	}
	out.Int = wrapInt(out.Int, result)
	return out
}

func foldComparison(op ast.BinaryOp, l, r *sem.Value) *sem.Value {
	var cmp int
	switch {
	case l.Type.Kind == types.ScalarBool:
		if op != ast.BinOpEq && op != ast.BinOpNe {
			return nil
		}
		if l.Bool != r.Bool {
			cmp = 1
		}
	case l.Type.IsFloat() || r.Type.IsFloat():
		a, b := l.AsFloat(), r.AsFloat()
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	default:
		a, b := l.AsInt(), r.AsInt()
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	}

	out := &sem.Value{Type: types.Bool}
	switch op {
	case ast.BinOpEq:
		out.Bool = cmp == 0
	case ast.BinOpNe:
		out.Bool = cmp != 0
	case ast.BinOpLt:
		out.Bool = cmp < 0
	case ast.BinOpLe:
		out.Bool = cmp <= 0
	case ast.BinOpGt:
		out.Bool = cmp > 0
	case ast.BinOpGe:
		out.Bool = cmp >= 0
	}
	return out
}
