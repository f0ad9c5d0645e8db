// Package types provides the resolved WGSL types that the semantic
// annotation store attaches to expressions and declarations.
//
// Host-shareable types also carry their memory layout (size, alignment,
// member offsets and strides), which the buffer-access passes use to
// compute byte offsets.
package types

import (
	"fmt"
	"strings"

	"github.com/HugoDaniel/rewgsl/internal/ast"
)

// Type represents a resolved WGSL type.
type Type interface {
	// String returns the WGSL syntax for this type.
	String() string
	// Equals returns true if this type equals another type.
	Equals(Type) bool
	// IsConstructible returns true if values of this type can be constructed.
	IsConstructible() bool
	// IsConcrete returns true if this is not an abstract type.
	IsConcrete() bool
	// IsHostShareable returns true if this type can cross the CPU/GPU boundary.
	IsHostShareable() bool
	// Size returns the size in bytes (0 for unsized types).
	Size() int
	// Align returns the alignment in bytes.
	Align() int
	isType()
}

// ----------------------------------------------------------------------------
// Scalar Types
// ----------------------------------------------------------------------------

// ScalarKind represents the kind of scalar type.
type ScalarKind uint8

const (
	ScalarBool ScalarKind = iota
	ScalarI32
	ScalarU32
	ScalarF32
	ScalarF16
	ScalarAbstractInt
	ScalarAbstractFloat
)

// Scalar represents a scalar type (bool, i32, u32, f32, f16).
type Scalar struct {
	Kind ScalarKind
}

func (s *Scalar) String() string {
	return [...]string{"bool", "i32", "u32", "f32", "f16", "abstract-int", "abstract-float"}[s.Kind]
}

func (s *Scalar) Equals(other Type) bool {
	o, ok := other.(*Scalar)
	return ok && s.Kind == o.Kind
}

func (s *Scalar) IsConstructible() bool { return s.IsConcrete() }
func (s *Scalar) IsConcrete() bool      { return !s.IsAbstract() }

// bool is not host-shareable.
func (s *Scalar) IsHostShareable() bool { return s.Kind != ScalarBool && s.IsConcrete() }

func (s *Scalar) Size() int {
	switch s.Kind {
	case ScalarBool, ScalarI32, ScalarU32, ScalarF32:
		return 4
	case ScalarF16:
		return 2
	}
	return 0
}

func (s *Scalar) Align() int { return s.Size() }
func (s *Scalar) isType()    {}

// IsAbstract reports whether s is abstract-int or abstract-float.
func (s *Scalar) IsAbstract() bool {
	return s.Kind == ScalarAbstractInt || s.Kind == ScalarAbstractFloat
}

// IsNumeric returns true if this is a numeric scalar type.
func (s *Scalar) IsNumeric() bool { return s.Kind != ScalarBool }

// IsInteger returns true if this is an integer type.
func (s *Scalar) IsInteger() bool {
	return s.Kind == ScalarI32 || s.Kind == ScalarU32 || s.Kind == ScalarAbstractInt
}

// IsFloat returns true if this is a floating-point type.
func (s *Scalar) IsFloat() bool {
	return s.Kind == ScalarF32 || s.Kind == ScalarF16 || s.Kind == ScalarAbstractFloat
}

// ----------------------------------------------------------------------------
// Vector and Matrix Types
// ----------------------------------------------------------------------------

// Vector represents vec2<T>, vec3<T>, vec4<T>.
type Vector struct {
	Width   int // 2, 3, or 4
	Element *Scalar
}

func (v *Vector) String() string { return fmt.Sprintf("vec%d<%s>", v.Width, v.Element) }

func (v *Vector) Equals(other Type) bool {
	o, ok := other.(*Vector)
	return ok && v.Width == o.Width && v.Element.Equals(o.Element)
}

func (v *Vector) IsConstructible() bool { return v.Element.IsConstructible() }
func (v *Vector) IsConcrete() bool      { return v.Element.IsConcrete() }
func (v *Vector) IsHostShareable() bool { return v.Element.IsHostShareable() }
func (v *Vector) Size() int             { return v.Element.Size() * v.Width }

// vec2 aligns to 2*element, vec3 and vec4 align to 4*element.
func (v *Vector) Align() int {
	if v.Width == 2 {
		return v.Element.Size() * 2
	}
	return v.Element.Size() * 4
}

func (v *Vector) isType() {}

// Matrix represents matCxR<T>.
type Matrix struct {
	Cols    int // 2, 3, or 4
	Rows    int // 2, 3, or 4
	Element *Scalar
}

func (m *Matrix) String() string { return fmt.Sprintf("mat%dx%d<%s>", m.Cols, m.Rows, m.Element) }

func (m *Matrix) Equals(other Type) bool {
	o, ok := other.(*Matrix)
	return ok && m.Cols == o.Cols && m.Rows == o.Rows && m.Element.Equals(o.Element)
}

func (m *Matrix) IsConstructible() bool { return m.Element.IsConstructible() }
func (m *Matrix) IsConcrete() bool      { return m.Element.IsConcrete() }
func (m *Matrix) IsHostShareable() bool { return m.Element.IsHostShareable() }
func (m *Matrix) Size() int             { return m.ColumnStride() * m.Cols }
func (m *Matrix) Align() int            { return m.Column().Align() }
func (m *Matrix) isType()               {}

// Column returns the column vector type.
func (m *Matrix) Column() *Vector { return &Vector{Width: m.Rows, Element: m.Element} }

// ColumnStride returns the default distance in bytes between columns.
func (m *Matrix) ColumnStride() int { return m.Column().Align() }

// ----------------------------------------------------------------------------
// Array Types
// ----------------------------------------------------------------------------

// Array represents array<T, N> or array<T> (runtime-sized).
type Array struct {
	Element Type
	Count   int // 0 for runtime-sized arrays
	// ExplicitStride is the @stride of the declaration, 0 when absent.
	ExplicitStride int
}

func (a *Array) String() string {
	if a.Count == 0 {
		return fmt.Sprintf("array<%s>", a.Element)
	}
	return fmt.Sprintf("array<%s, %d>", a.Element, a.Count)
}

// Equals ignores the stride: a strided array parameter accepts the
// unstrided value built for it.
func (a *Array) Equals(other Type) bool {
	o, ok := other.(*Array)
	return ok && a.Count == o.Count && a.Element.Equals(o.Element)
}

func (a *Array) IsConstructible() bool { return a.Count > 0 && a.Element.IsConstructible() }
func (a *Array) IsConcrete() bool      { return a.Element.IsConcrete() }
func (a *Array) IsHostShareable() bool { return a.Element.IsHostShareable() }
func (a *Array) Size() int             { return a.Stride() * a.Count }
func (a *Array) Align() int            { return a.Element.Align() }
func (a *Array) isType()               {}

// IsRuntimeSized returns true if this is a runtime-sized array.
func (a *Array) IsRuntimeSized() bool { return a.Count == 0 }

// ImplicitStride is the element size rounded up to the element alignment.
func (a *Array) ImplicitStride() int { return roundUp(a.Element.Size(), a.Element.Align()) }

// Stride returns the distance in bytes between consecutive elements.
func (a *Array) Stride() int {
	if a.ExplicitStride != 0 {
		return a.ExplicitStride
	}
	return a.ImplicitStride()
}

// ----------------------------------------------------------------------------
// Struct Types
// ----------------------------------------------------------------------------

// StructField represents a struct member.
type StructField struct {
	Name  string
	Type  Type
	Index int

	// Layout, computed by ComputeLayout.
	Offset int
	Size   int
	Align  int

	// Explicit layout attributes, 0 when absent. A matrix member with
	// @stride has its columns MatrixStride bytes apart.
	ExplicitOffset int
	HasOffset      bool
	ExplicitSize   int
	ExplicitAlign  int
	MatrixStride   int
}

// Struct represents a user-defined struct type. Struct types are nominal:
// two structs are equal only if they are the same declaration.
type Struct struct {
	Name            string
	Fields          []*StructField
	size            int
	align           int
	hasRuntimeArray bool
}

func (s *Struct) String() string         { return s.Name }
func (s *Struct) Equals(other Type) bool { return Type(s) == other }

// A struct is constructible if all fields are and it has no runtime-sized array.
func (s *Struct) IsConstructible() bool {
	if s.hasRuntimeArray {
		return false
	}
	return s.all(Type.IsConstructible)
}

func (s *Struct) IsConcrete() bool      { return s.all(Type.IsConcrete) }
func (s *Struct) IsHostShareable() bool { return s.all(Type.IsHostShareable) }
func (s *Struct) Size() int             { return s.size }
func (s *Struct) Align() int            { return s.align }
func (s *Struct) isType()               {}

func (s *Struct) all(pred func(Type) bool) bool {
	for _, f := range s.Fields {
		if !pred(f.Type) {
			return false
		}
	}
	return true
}

// ComputeLayout computes field offsets, struct size, and alignment,
// honoring @offset, @size and @align.
func (s *Struct) ComputeLayout() {
	offset := 0
	maxAlign := 1

	for _, f := range s.Fields {
		f.Align = f.Type.Align()
		if f.ExplicitAlign != 0 {
			f.Align = f.ExplicitAlign
		}
		if f.Align == 0 {
			f.Align = 1
		}
		if f.Align > maxAlign {
			maxAlign = f.Align
		}

		f.Size = f.Type.Size()
		if m, ok := f.Type.(*Matrix); ok && f.MatrixStride != 0 {
			f.Size = f.MatrixStride * m.Cols
		}
		if f.ExplicitSize != 0 {
			f.Size = f.ExplicitSize
		}

		if f.HasOffset {
			offset = f.ExplicitOffset
		} else {
			offset = roundUp(offset, f.Align)
		}
		f.Offset = offset

		if arr, ok := f.Type.(*Array); ok && arr.IsRuntimeSized() {
			s.hasRuntimeArray = true
		}
		offset += f.Size
	}

	s.align = maxAlign
	s.size = roundUp(offset, maxAlign)
}

// Field returns the field with the given name, or nil.
func (s *Struct) Field(name string) *StructField {
	for _, f := range s.Fields {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// HasRuntimeArray reports whether the last field is a runtime-sized array.
func (s *Struct) HasRuntimeArray() bool { return s.hasRuntimeArray }

// ----------------------------------------------------------------------------
// Pointer and Reference Types
// ----------------------------------------------------------------------------

// Pointer represents ptr<space, T, access>.
type Pointer struct {
	AddressSpace ast.AddressSpace
	Element      Type
	AccessMode   ast.AccessMode
}

func (p *Pointer) String() string {
	if p.AccessMode != ast.AccessModeNone {
		return fmt.Sprintf("ptr<%s, %s, %s>", p.AddressSpace, p.Element, p.AccessMode)
	}
	return fmt.Sprintf("ptr<%s, %s>", p.AddressSpace, p.Element)
}

func (p *Pointer) Equals(other Type) bool {
	o, ok := other.(*Pointer)
	return ok && p.AddressSpace == o.AddressSpace &&
		EffectiveAccess(p.AddressSpace, p.AccessMode) == EffectiveAccess(o.AddressSpace, o.AccessMode) &&
		p.Element.Equals(o.Element)
}

func (p *Pointer) IsConstructible() bool { return false }
func (p *Pointer) IsConcrete() bool      { return true }
func (p *Pointer) IsHostShareable() bool { return false }
func (p *Pointer) Size() int             { return 0 }
func (p *Pointer) Align() int            { return 0 }
func (p *Pointer) isType()               {}

// Reference is the type of an expression that names memory: a variable,
// or a member or element of one. Loading from it yields the store type.
type Reference struct {
	AddressSpace ast.AddressSpace
	Element      Type
	AccessMode   ast.AccessMode
}

func (r *Reference) String() string {
	return fmt.Sprintf("ref<%s, %s, %s>", r.AddressSpace, r.Element, r.AccessMode)
}

func (r *Reference) Equals(other Type) bool {
	o, ok := other.(*Reference)
	return ok && r.AddressSpace == o.AddressSpace && r.AccessMode == o.AccessMode && r.Element.Equals(o.Element)
}

func (r *Reference) IsConstructible() bool { return false }
func (r *Reference) IsConcrete() bool      { return true }
func (r *Reference) IsHostShareable() bool { return false }
func (r *Reference) Size() int             { return 0 }
func (r *Reference) Align() int            { return 0 }
func (r *Reference) isType()               {}

// EffectiveAccess returns the access mode implied for space when none is
// written: read for uniform and storage, read_write otherwise.
func EffectiveAccess(space ast.AddressSpace, access ast.AccessMode) ast.AccessMode {
	if access != ast.AccessModeNone {
		return access
	}
	switch space {
	case ast.AddressSpaceUniform, ast.AddressSpaceStorage, ast.AddressSpaceHandle:
		return ast.AccessModeRead
	}
	return ast.AccessModeReadWrite
}

// ----------------------------------------------------------------------------
// Opaque Types
// ----------------------------------------------------------------------------

// Atomic represents atomic<T>.
type Atomic struct {
	Element *Scalar
}

func (a *Atomic) String() string { return fmt.Sprintf("atomic<%s>", a.Element) }

func (a *Atomic) Equals(other Type) bool {
	o, ok := other.(*Atomic)
	return ok && a.Element.Equals(o.Element)
}

func (a *Atomic) IsConstructible() bool { return false }
func (a *Atomic) IsConcrete() bool      { return true }
func (a *Atomic) IsHostShareable() bool { return true }
func (a *Atomic) Size() int             { return a.Element.Size() }
func (a *Atomic) Align() int            { return a.Element.Align() }
func (a *Atomic) isType()               {}

// Sampler represents sampler or sampler_comparison.
type Sampler struct {
	Comparison bool
}

func (s *Sampler) String() string {
	if s.Comparison {
		return "sampler_comparison"
	}
	return "sampler"
}

func (s *Sampler) Equals(other Type) bool {
	o, ok := other.(*Sampler)
	return ok && s.Comparison == o.Comparison
}

func (s *Sampler) IsConstructible() bool { return false }
func (s *Sampler) IsConcrete() bool      { return true }
func (s *Sampler) IsHostShareable() bool { return false }
func (s *Sampler) Size() int             { return 0 }
func (s *Sampler) Align() int            { return 0 }
func (s *Sampler) isType()               {}

// Texture represents texture types.
type Texture struct {
	Kind        ast.TextureKind
	Dimension   ast.TextureDimension
	SampledType *Scalar // For sampled textures
	TexelFormat string  // For storage textures
	AccessMode  ast.AccessMode
}

func (t *Texture) String() string {
	var sb strings.Builder
	switch t.Kind {
	case ast.TextureSampled:
		fmt.Fprintf(&sb, "texture_%s<%s>", t.Dimension, t.SampledType)
	case ast.TextureMultisampled:
		fmt.Fprintf(&sb, "texture_multisampled_2d<%s>", t.SampledType)
	case ast.TextureStorage:
		fmt.Fprintf(&sb, "texture_storage_%s<%s, %s>", t.Dimension, t.TexelFormat, t.AccessMode)
	case ast.TextureDepth:
		sb.WriteString("texture_depth_" + t.Dimension.String())
	case ast.TextureDepthMultisampled:
		sb.WriteString("texture_depth_multisampled_2d")
	case ast.TextureExternal:
		sb.WriteString("texture_external")
	}
	return sb.String()
}

func (t *Texture) Equals(other Type) bool {
	o, ok := other.(*Texture)
	if !ok || t.Kind != o.Kind || t.Dimension != o.Dimension {
		return false
	}
	if t.SampledType != nil && o.SampledType != nil && !t.SampledType.Equals(o.SampledType) {
		return false
	}
	return t.TexelFormat == o.TexelFormat && t.AccessMode == o.AccessMode
}

func (t *Texture) IsConstructible() bool { return false }
func (t *Texture) IsConcrete() bool      { return true }
func (t *Texture) IsHostShareable() bool { return false }
func (t *Texture) Size() int             { return 0 }
func (t *Texture) Align() int            { return 0 }
func (t *Texture) isType()               {}

// IsArrayed reports whether the texture has array layers.
func (t *Texture) IsArrayed() bool {
	return t.Dimension == ast.Texture2DArray || t.Dimension == ast.TextureCubeArray
}

// Coords returns the number of coordinate components used to address a texel.
func (t *Texture) Coords() int {
	switch t.Dimension {
	case ast.Texture1D:
		return 1
	case ast.Texture3D, ast.TextureCube, ast.TextureCubeArray:
		return 3
	}
	return 2
}

// Void represents the absence of a return type.
type Void struct{}

func (v *Void) String() string { return "void" }
func (v *Void) Equals(other Type) bool {
	_, ok := other.(*Void)
	return ok
}
func (v *Void) IsConstructible() bool { return false }
func (v *Void) IsConcrete() bool      { return true }
func (v *Void) IsHostShareable() bool { return false }
func (v *Void) Size() int             { return 0 }
func (v *Void) Align() int            { return 0 }
func (v *Void) isType()               {}

// ----------------------------------------------------------------------------
// Singleton Type Instances
// ----------------------------------------------------------------------------

var (
	Bool          = &Scalar{Kind: ScalarBool}
	I32           = &Scalar{Kind: ScalarI32}
	U32           = &Scalar{Kind: ScalarU32}
	F32           = &Scalar{Kind: ScalarF32}
	F16           = &Scalar{Kind: ScalarF16}
	AbstractInt   = &Scalar{Kind: ScalarAbstractInt}
	AbstractFloat = &Scalar{Kind: ScalarAbstractFloat}
	VoidType      = &Void{}
)

// Vec creates a vector type.
func Vec(size int, elem *Scalar) *Vector { return &Vector{Width: size, Element: elem} }

// Mat creates a matrix type.
func Mat(cols, rows int, elem *Scalar) *Matrix {
	return &Matrix{Cols: cols, Rows: rows, Element: elem}
}

// Arr creates an array type. A count of 0 makes a runtime-sized array.
func Arr(elem Type, count int) *Array { return &Array{Element: elem, Count: count} }

// Ptr creates a pointer type.
func Ptr(space ast.AddressSpace, elem Type, access ast.AccessMode) *Pointer {
	return &Pointer{AddressSpace: space, Element: elem, AccessMode: access}
}

// Ref creates a reference type. The access mode is made explicit.
func Ref(space ast.AddressSpace, elem Type, access ast.AccessMode) *Reference {
	return &Reference{AddressSpace: space, Element: elem, AccessMode: EffectiveAccess(space, access)}
}

func roundUp(n, align int) int {
	if align <= 1 {
		return n
	}
	return (n + align - 1) / align * align
}
