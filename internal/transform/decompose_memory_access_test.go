package transform

import (
	"math"
	"testing"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecomposeMemoryAccess(t *testing.T) {
	tr := &DecomposeMemoryAccess{}

	t.Run("scalars and vectors", func(t *testing.T) {
		expectTransform(t, tr, `
struct S {
  a: f32,
  v: vec3<f32>,
  arr: array<vec4<f32>, 2>,
}
@group(0) @binding(0) var<storage, read_write> sb: S;
fn f(i: i32) {
  let x = sb.a;
  sb.v = vec3<f32>(x);
  let y = sb.arr[i].y;
  sb.arr[1] = vec4<f32>(y);
}
`, `
struct S {
    a: f32,
    v: vec3<f32>,
    arr: array<vec4<f32>, 2>,
}

@group(0) @binding(0) var<storage, read_write> sb: S;

@internal(intrinsic_load_storage_f32, sb) fn sb_load(offset: u32) -> f32;

@internal(intrinsic_store_storage_vec3_f32, sb) fn sb_store(offset: u32, value: vec3<f32>);

@internal(intrinsic_store_storage_vec4_f32, sb) fn sb_store_1(offset: u32, value: vec4<f32>);

fn f(i: i32) {
    let x = sb_load(0u);
    sb_store(16u, vec3<f32>(x));
    let y = sb_load(((32u + (u32(i) * 16u)) + 4u));
    sb_store_1(48u, vec4<f32>(y));
}
`)
	})

	t.Run("matrix and atomic", func(t *testing.T) {
		expectTransform(t, tr, `
struct T {
  m: mat2x2<f32>,
  n: atomic<u32>,
}
@group(0) @binding(1) var<storage, read_write> tb: T;
fn g() -> u32 {
  let m = tb.m;
  return atomicAdd(&tb.n, 1u);
}
`, `
struct T {
    m: mat2x2<f32>,
    n: atomic<u32>,
}

@group(0) @binding(1) var<storage, read_write> tb: T;

@internal(intrinsic_load_storage_vec2_f32, tb) fn tb_load(offset: u32) -> vec2<f32>;

fn tb_load_1(offset: u32) -> mat2x2<f32> {
    return mat2x2<f32>(tb_load(offset), tb_load((offset + 8u)));
}

@internal(intrinsic_atomicAdd_storage_u32, tb) fn tb_atomicAdd(offset: u32, value: u32) -> u32;

fn g() -> u32 {
    let m = tb_load_1(0u);
    return tb_atomicAdd(16u, 1u);
}
`)
	})

	t.Run("uniform array", func(t *testing.T) {
		expectTransform(t, tr, `
@group(0) @binding(0) var<uniform> u: array<vec4<f32>, 2>;
fn h() -> vec4<f32> {
  let a = u;
  return a[0];
}
`, `
@group(0) @binding(0) var<uniform> u: array<vec4<f32>, 2>;

@internal(intrinsic_load_uniform_vec4_f32, u) fn u_load(offset: u32) -> vec4<f32>;

fn u_load_1(offset: u32) -> array<vec4<f32>, 2> {
    var arr: array<vec4<f32>, 2>;
    for (var i = 0u; (i < 2u); i = (i + 1u)) {
        arr[i] = u_load((offset + (i * 16u)));
    }
    return arr;
}

fn h() -> vec4<f32> {
    let a = u_load_1(0u);
    return a[0];
}
`)
	})

	t.Run("skip", func(t *testing.T) {
		expectSkip(t, tr, "fn f() -> f32 { var x = 1.0; return x; }")
		expectSkip(t, tr, `
@group(0) @binding(0) var<storage, read> b: array<u32>;
fn f() -> u32 { return arrayLength(&b); }
`)
	})
}

func TestBufferOffsetFolding(t *testing.T) {
	dyn := offsetExpr{}
	assert.Equal(t, offsetLit(12), addOffset(offsetLit(4), offsetLit(8)))
	assert.Equal(t, offsetLit(32), mulOffset(offsetLit(4), offsetLit(8)))
	assert.Equal(t, offset(dyn), addOffset(offsetLit(0), dyn))
	assert.Equal(t, offset(dyn), addOffset(dyn, offsetLit(0)))
	assert.Equal(t, offset(dyn), mulOffset(offsetLit(1), dyn))
	assert.Equal(t, offsetLit(0), mulOffset(dyn, offsetLit(0)))
	assert.Equal(t, offsetBin{op: ast.BinOpAdd, l: dyn, r: offsetLit(4)}, addOffset(dyn, offsetLit(4)))
}

func TestBufferOffsetOverflow(t *testing.T) {
	assert.Equal(t, offsetLit(math.MaxUint32), addOffset(offsetLit(math.MaxUint32-1), offsetLit(1)))
	assert.Equal(t, offsetLit(math.MaxUint32), mulOffset(offsetLit(65535), offsetLit(65537)))

	require.PanicsWithError(t, "INTERNAL COMPILER ERROR: buffer offset 4294967295 + 1 overflows u32", func() {
		addOffset(offsetLit(math.MaxUint32), offsetLit(1))
	})
	require.PanicsWithError(t, "INTERNAL COMPILER ERROR: buffer offset 65536 * 65536 overflows u32", func() {
		mulOffset(offsetLit(1<<16), offsetLit(1<<16))
	})
}
