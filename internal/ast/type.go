package ast

// ----------------------------------------------------------------------------
// Types
// ----------------------------------------------------------------------------

// IdentType represents a type name: i32, f32, vec3f, MyStruct, an alias.
type IdentType struct {
	NodeBase
	Name Symbol
}

// VecType represents vec2<T>, vec3<T>, vec4<T>.
type VecType struct {
	NodeBase
	Size uint8 // 2, 3, or 4
	Elem Type
}

// MatType represents matCxR<T>.
type MatType struct {
	NodeBase
	Cols uint8 // 2, 3, or 4
	Rows uint8 // 2, 3, or 4
	Elem Type
}

// ArrayType represents array<T, N> or array<T>.
type ArrayType struct {
	NodeBase
	Elem  Type
	Count Expr // nil for runtime-sized arrays
}

// PtrType represents ptr<space, T, access>.
type PtrType struct {
	NodeBase
	AddressSpace AddressSpace
	Elem         Type
	AccessMode   AccessMode // AccessModeNone when not written
}

// AtomicType represents atomic<T>.
type AtomicType struct {
	NodeBase
	Elem Type
}

// SamplerType represents sampler or sampler_comparison.
type SamplerType struct {
	NodeBase
	Comparison bool
}

// TextureType represents texture types.
type TextureType struct {
	NodeBase
	TexKind TextureKind
	Dim     TextureDimension
	Sampled Type       // For sampled and multisampled textures
	Format  string     // For storage textures
	Access  AccessMode // For storage textures
}

// TextureKind indicates the texture category.
type TextureKind uint8

const (
	TextureSampled TextureKind = iota
	TextureMultisampled
	TextureStorage
	TextureDepth
	TextureDepthMultisampled
	TextureExternal
)

// TextureDimension indicates texture dimensionality.
type TextureDimension uint8

const (
	Texture1D TextureDimension = iota
	Texture2D
	Texture2DArray
	Texture3D
	TextureCube
	TextureCubeArray
)

func (d TextureDimension) String() string {
	return [...]string{"1d", "2d", "2d_array", "3d", "cube", "cube_array"}[d]
}

func (*IdentType) isType()   {}
func (*VecType) isType()     {}
func (*MatType) isType()     {}
func (*ArrayType) isType()   {}
func (*PtrType) isType()     {}
func (*AtomicType) isType()  {}
func (*SamplerType) isType() {}
func (*TextureType) isType() {}

func (*IdentType) Kind() Kind   { return KindIdentType }
func (*VecType) Kind() Kind     { return KindVecType }
func (*MatType) Kind() Kind     { return KindMatType }
func (*ArrayType) Kind() Kind   { return KindArrayType }
func (*PtrType) Kind() Kind     { return KindPtrType }
func (*AtomicType) Kind() Kind  { return KindAtomicType }
func (*SamplerType) Kind() Kind { return KindSamplerType }
func (*TextureType) Kind() Kind { return KindTextureType }

func (n *IdentType) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &IdentType{Name: ctx.CloneSymbol(n.Name)})
}

func (n *VecType) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &VecType{Size: n.Size, Elem: Clone(ctx, n.Elem)})
}

func (n *MatType) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &MatType{Cols: n.Cols, Rows: n.Rows, Elem: Clone(ctx, n.Elem)})
}

func (n *ArrayType) clone(ctx *CloneContext) Node {
	elem := Clone(ctx, n.Elem)
	count := Clone(ctx, n.Count)
	return create(ctx.dst, n.rng, &ArrayType{Elem: elem, Count: count})
}

func (n *PtrType) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &PtrType{
		AddressSpace: n.AddressSpace, Elem: Clone(ctx, n.Elem), AccessMode: n.AccessMode,
	})
}

func (n *AtomicType) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &AtomicType{Elem: Clone(ctx, n.Elem)})
}

func (n *SamplerType) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &SamplerType{Comparison: n.Comparison})
}

func (n *TextureType) clone(ctx *CloneContext) Node {
	return create(ctx.dst, n.rng, &TextureType{
		TexKind: n.TexKind, Dim: n.Dim, Sampled: Clone(ctx, n.Sampled), Format: n.Format, Access: n.Access,
	})
}

func (n *IdentType) children(fn func(Node))   {}
func (n *VecType) children(fn func(Node))     { each(fn, n.Elem) }
func (n *MatType) children(fn func(Node))     { each(fn, n.Elem) }
func (n *ArrayType) children(fn func(Node))   { each(fn, n.Elem, n.Count) }
func (n *PtrType) children(fn func(Node))     { each(fn, n.Elem) }
func (n *AtomicType) children(fn func(Node))  { each(fn, n.Elem) }
func (n *SamplerType) children(fn func(Node)) {}
func (n *TextureType) children(fn func(Node)) { each(fn, n.Sampled) }
