package types

import "github.com/HugoDaniel/rewgsl/internal/ast"

// ----------------------------------------------------------------------------
// Type Utilities
// ----------------------------------------------------------------------------

// UnwrapRef returns the store type of a reference and t otherwise.
func UnwrapRef(t Type) Type {
	if r, ok := t.(*Reference); ok {
		return r.Element
	}
	return t
}

// UnwrapPtr returns the pointee of a pointer and t otherwise.
func UnwrapPtr(t Type) Type {
	if p, ok := t.(*Pointer); ok {
		return p.Element
	}
	return t
}

// IsScalar returns true if t is a scalar type.
func IsScalar(t Type) bool {
	_, ok := t.(*Scalar)
	return ok
}

// IsVector returns true if t is a vector type.
func IsVector(t Type) bool {
	_, ok := t.(*Vector)
	return ok
}

// IsPointer returns true if t is a pointer type.
func IsPointer(t Type) bool {
	_, ok := t.(*Pointer)
	return ok
}

// IsReference returns true if t is a reference type.
func IsReference(t Type) bool {
	_, ok := t.(*Reference)
	return ok
}

// ScalarOf returns the scalar of a scalar or the element of a vector or
// matrix, and nil for everything else.
func ScalarOf(t Type) *Scalar {
	switch v := t.(type) {
	case *Scalar:
		return v
	case *Vector:
		return v.Element
	case *Matrix:
		return v.Element
	}
	return nil
}

// IsInteger returns true if t is an integer scalar or vector.
func IsInteger(t Type) bool {
	s := ScalarOf(t)
	return s != nil && !IsMatrixType(t) && s.IsInteger()
}

// IsFloat returns true if t is a floating-point scalar or vector.
func IsFloat(t Type) bool {
	s := ScalarOf(t)
	return s != nil && !IsMatrixType(t) && s.IsFloat()
}

// IsMatrixType returns true if t is a matrix type.
func IsMatrixType(t Type) bool {
	_, ok := t.(*Matrix)
	return ok
}

// ElementType returns the element type of composite types, or nil.
func ElementType(t Type) Type {
	switch v := t.(type) {
	case *Vector:
		return v.Element
	case *Matrix:
		return v.Column()
	case *Array:
		return v.Element
	case *Pointer:
		return v.Element
	case *Reference:
		return v.Element
	case *Atomic:
		return v.Element
	}
	return nil
}

// WithScalar returns t with its scalar element replaced by s: a scalar
// becomes s, a vector keeps its width.
func WithScalar(t Type, s *Scalar) Type {
	switch v := t.(type) {
	case *Vector:
		return Vec(v.Width, s)
	case *Matrix:
		return Mat(v.Cols, v.Rows, s)
	}
	return s
}

// ----------------------------------------------------------------------------
// Conversions
// ----------------------------------------------------------------------------

// CanConvertTo returns true if src can be implicitly converted to dst.
func CanConvertTo(src, dst Type) bool {
	if src.Equals(dst) {
		return true
	}
	switch s := src.(type) {
	case *Scalar:
		d, ok := dst.(*Scalar)
		if !ok {
			return false
		}
		switch s.Kind {
		case ScalarAbstractInt:
			return d.Kind != ScalarBool && d.Kind != ScalarAbstractInt
		case ScalarAbstractFloat:
			return d.Kind == ScalarF32 || d.Kind == ScalarF16
		}
	case *Vector:
		if d, ok := dst.(*Vector); ok && s.Width == d.Width {
			return CanConvertTo(s.Element, d.Element)
		}
	case *Matrix:
		if d, ok := dst.(*Matrix); ok && s.Cols == d.Cols && s.Rows == d.Rows {
			return CanConvertTo(s.Element, d.Element)
		}
	case *Array:
		if d, ok := dst.(*Array); ok && s.Count == d.Count {
			return CanConvertTo(s.Element, d.Element)
		}
	}
	return false
}

// CommonType returns the common type of two types for binary operations.
func CommonType(a, b Type) Type {
	switch {
	case a.Equals(b):
		return a
	case CanConvertTo(a, b):
		return b
	case CanConvertTo(b, a):
		return a
	}
	// Abstract-int and abstract-float meet at abstract-float.
	as, bs := ScalarOf(a), ScalarOf(b)
	if as != nil && bs != nil && as.IsAbstract() && bs.IsAbstract() {
		return WithScalar(a, AbstractFloat)
	}
	return nil
}

// commonScalarType returns the common scalar type between two scalars.
func commonScalarType(a, b *Scalar) *Scalar {
	if a.Equals(b) {
		return a
	}
	if a.IsAbstract() && b.IsNumeric() && CanConvertTo(a, b) {
		return b
	}
	if b.IsAbstract() && a.IsNumeric() && CanConvertTo(b, a) {
		return a
	}
	return nil
}

// ConcreteType returns the concrete version of an abstract type: f32 for
// abstract-float and i32 for abstract-int, element-wise for composites.
func ConcreteType(t Type) Type {
	switch ty := t.(type) {
	case *Scalar:
		switch ty.Kind {
		case ScalarAbstractFloat:
			return F32
		case ScalarAbstractInt:
			return I32
		}
	case *Vector:
		if ty.Element.IsAbstract() {
			return Vec(ty.Width, ConcreteType(ty.Element).(*Scalar))
		}
	case *Matrix:
		if ty.Element.IsAbstract() {
			return Mat(ty.Cols, ty.Rows, F32)
		}
	case *Array:
		if elem := ConcreteType(ty.Element); elem != ty.Element {
			return &Array{Element: elem, Count: ty.Count, ExplicitStride: ty.ExplicitStride}
		}
	}
	return t
}

// ----------------------------------------------------------------------------
// Operators
// ----------------------------------------------------------------------------

// BinaryResultType returns the type of l op r, or nil if the operands do
// not combine. Operands are value types (references already loaded).
func BinaryResultType(op ast.BinaryOp, l, r Type) Type {
	switch {
	case op.IsLogical():
		return Bool
	case op.IsComparison():
		c := CommonType(l, r)
		if c == nil {
			return nil
		}
		if v, ok := c.(*Vector); ok {
			return Vec(v.Width, Bool)
		}
		return Bool
	case op == ast.BinOpShl || op == ast.BinOpShr:
		// The shift amount is u32; the result has the type of the lhs.
		return l
	case op == ast.BinOpMul:
		return multiplyResultType(l, r)
	}
	return componentWiseResultType(l, r)
}

// componentWiseResultType handles +, -, /, %, &, |, ^: matching operands,
// or a scalar broadcast against a vector.
func componentWiseResultType(l, r Type) Type {
	if c := CommonType(l, r); c != nil {
		return c
	}
	switch lv := l.(type) {
	case *Vector:
		if rs, ok := r.(*Scalar); ok {
			if e := commonScalarType(lv.Element, rs); e != nil {
				return Vec(lv.Width, e)
			}
		}
		if rv, ok := r.(*Vector); ok && rv.Width == lv.Width {
			if e := commonScalarType(lv.Element, rv.Element); e != nil {
				return Vec(lv.Width, e)
			}
		}
	case *Scalar:
		if rv, ok := r.(*Vector); ok {
			if e := commonScalarType(lv, rv.Element); e != nil {
				return Vec(rv.Width, e)
			}
		}
	case *Matrix:
		if rm, ok := r.(*Matrix); ok && rm.Cols == lv.Cols && rm.Rows == lv.Rows {
			if e := commonScalarType(lv.Element, rm.Element); e != nil {
				return Mat(lv.Cols, lv.Rows, e)
			}
		}
	}
	return nil
}

// multiplyResultType handles the linear-algebra products on top of the
// component-wise cases:
//   - mat<C,R> * vec<C> -> vec<R>
//   - vec<R> * mat<C,R> -> vec<C>
//   - mat<K,R> * mat<C,K> -> mat<C,R>
//   - scalar * matrix and matrix * scalar -> matrix
func multiplyResultType(l, r Type) Type {
	lm, lIsMat := l.(*Matrix)
	rm, rIsMat := r.(*Matrix)
	switch {
	case lIsMat && rIsMat:
		if lm.Cols == rm.Rows {
			if e := commonScalarType(lm.Element, rm.Element); e != nil {
				return Mat(rm.Cols, lm.Rows, e)
			}
		}
		return nil
	case lIsMat:
		switch rv := r.(type) {
		case *Vector:
			if lm.Cols == rv.Width {
				if e := commonScalarType(lm.Element, rv.Element); e != nil {
					return Vec(lm.Rows, e)
				}
			}
		case *Scalar:
			if e := commonScalarType(lm.Element, rv); e != nil {
				return Mat(lm.Cols, lm.Rows, e)
			}
		}
		return nil
	case rIsMat:
		switch lv := l.(type) {
		case *Vector:
			if lv.Width == rm.Rows {
				if e := commonScalarType(lv.Element, rm.Element); e != nil {
					return Vec(rm.Cols, e)
				}
			}
		case *Scalar:
			if e := commonScalarType(lv, rm.Element); e != nil {
				return Mat(rm.Cols, rm.Rows, e)
			}
		}
		return nil
	}
	return componentWiseResultType(l, r)
}
