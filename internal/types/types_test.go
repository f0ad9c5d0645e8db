package types

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/HugoDaniel/rewgsl/internal/ast"
)

func TestBinaryResultType(t *testing.T) {
	tests := []struct {
		name   string
		op     ast.BinaryOp
		left   Type
		right  Type
		expect string
	}{
		{"mat4x4 * vec4", ast.BinOpMul, Mat(4, 4, F32), Vec(4, F32), "vec4<f32>"},
		{"vec3 * mat4x3", ast.BinOpMul, Vec(3, F32), Mat(4, 3, F32), "vec4<f32>"},
		{"mat2x3 * mat4x2", ast.BinOpMul, Mat(2, 3, F32), Mat(4, 2, F32), "mat4x3<f32>"},
		{"scalar * matrix", ast.BinOpMul, AbstractFloat, Mat(2, 2, F32), "mat2x2<f32>"},
		{"vec * abstract", ast.BinOpMul, Vec(3, F32), AbstractFloat, "vec3<f32>"},
		{"u32 + abstract-int", ast.BinOpAdd, U32, AbstractInt, "u32"},
		{"abstract-int / abstract-float", ast.BinOpDiv, AbstractInt, AbstractFloat, "abstract-float"},
		{"scalar - vec", ast.BinOpSub, I32, Vec(2, I32), "vec2<i32>"},
		{"vec compare", ast.BinOpLt, Vec(4, U32), Vec(4, U32), "vec4<bool>"},
		{"scalar compare", ast.BinOpEq, F32, AbstractFloat, "bool"},
		{"logical", ast.BinOpLogicalAnd, Bool, Bool, "bool"},
		{"shift keeps lhs", ast.BinOpShl, I32, U32, "i32"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BinaryResultType(tt.op, tt.left, tt.right)
			if assert.NotNil(t, got) {
				assert.Equal(t, tt.expect, got.String())
			}
		})
	}

	assert.Nil(t, BinaryResultType(ast.BinOpAdd, Vec(2, F32), Vec(3, F32)))
	assert.Nil(t, BinaryResultType(ast.BinOpMul, Mat(2, 2, F32), Vec(3, F32)))
}

func TestConcreteType(t *testing.T) {
	assert.Equal(t, "i32", ConcreteType(AbstractInt).String())
	assert.Equal(t, "vec3<f32>", ConcreteType(Vec(3, AbstractFloat)).String())
	assert.Equal(t, "array<i32, 4>", ConcreteType(Arr(AbstractInt, 4)).String())
	assert.Same(t, U32, ConcreteType(U32))
}

func TestCanConvertTo(t *testing.T) {
	assert.True(t, CanConvertTo(AbstractInt, U32))
	assert.True(t, CanConvertTo(AbstractInt, AbstractFloat))
	assert.True(t, CanConvertTo(Vec(2, AbstractFloat), Vec(2, F16)))
	assert.False(t, CanConvertTo(AbstractFloat, I32))
	assert.False(t, CanConvertTo(I32, U32))
	assert.False(t, CanConvertTo(Vec(2, AbstractInt), Vec(3, I32)))
}

func TestArrayStride(t *testing.T) {
	plain := Arr(Vec(3, F32), 4)
	assert.Equal(t, 16, plain.Stride())
	assert.Equal(t, 64, plain.Size())

	strided := &Array{Element: Vec(2, F32), Count: 2, ExplicitStride: 32}
	assert.Equal(t, 32, strided.Stride())
	assert.Equal(t, 64, strided.Size())
	assert.True(t, strided.Equals(Arr(Vec(2, F32), 2)), "stride does not take part in equality")

	assert.Equal(t, 4, Arr(F32, 0).Stride())
	assert.True(t, Arr(F32, 0).IsRuntimeSized())
}

func TestStructLayout(t *testing.T) {
	s := &Struct{Name: "S", Fields: []*StructField{
		{Name: "a", Type: F32},
		{Name: "b", Type: Vec(3, F32)},
		{Name: "c", Type: F32},
		{Name: "m", Type: Mat(2, 2, F32), HasOffset: true, ExplicitOffset: 48, MatrixStride: 32},
		{Name: "d", Type: U32, ExplicitAlign: 16},
		{Name: "rt", Type: Arr(U32, 0)},
	}}
	for i, f := range s.Fields {
		f.Index = i
	}
	s.ComputeLayout()

	offsets := make([]int, len(s.Fields))
	for i, f := range s.Fields {
		offsets[i] = f.Offset
	}
	assert.Equal(t, []int{0, 16, 28, 48, 112, 116}, offsets)
	assert.Equal(t, 64, s.Field("m").Size)
	assert.Equal(t, 16, s.Align())
	assert.True(t, s.HasRuntimeArray())
	assert.False(t, s.IsConstructible())
	assert.Nil(t, s.Field("missing"))
}

func TestStructsAreNominal(t *testing.T) {
	a := &Struct{Name: "S"}
	b := &Struct{Name: "S"}
	assert.True(t, a.Equals(a))
	assert.False(t, a.Equals(b))
}

func TestReferenceAccessIsExplicit(t *testing.T) {
	r := Ref(ast.AddressSpaceStorage, U32, ast.AccessModeNone)
	assert.Equal(t, ast.AccessModeRead, r.AccessMode)
	assert.Equal(t, "ref<storage, u32, read>", r.String())

	p1 := Ptr(ast.AddressSpaceFunction, F32, ast.AccessModeNone)
	p2 := Ptr(ast.AddressSpaceFunction, F32, ast.AccessModeReadWrite)
	assert.True(t, p1.Equals(p2))
	assert.Equal(t, "ptr<function, f32>", p1.String())
}

func TestTextureString(t *testing.T) {
	tex := &Texture{Kind: ast.TextureSampled, Dimension: ast.Texture2DArray, SampledType: F32}
	assert.Equal(t, "texture_2d_array<f32>", tex.String())
	assert.True(t, tex.IsArrayed())
	assert.Equal(t, 2, tex.Coords())

	st := &Texture{Kind: ast.TextureStorage, Dimension: ast.Texture3D, TexelFormat: "rgba8unorm", AccessMode: ast.AccessModeWrite}
	assert.Equal(t, "texture_storage_3d<rgba8unorm, write>", st.String())
	assert.Equal(t, 3, st.Coords())
}
