package transform

import "testing"

func TestDecomposeStridedMatrix(t *testing.T) {
	tr := &DecomposeStridedMatrix{}

	t.Run("reads and writes", func(t *testing.T) {
		expectTransform(t, tr, `
struct S {
  @stride(32) m: mat2x2<f32>,
  @stride(8) n: mat2x2<f32>,
}
@group(0) @binding(0) var<storage, read_write> s: S;
fn f() -> vec2<f32> {
  let a = s.m;
  let c = s.m[1];
  s.m = mat2x2<f32>(c, c);
  return (a[0] + s.n[0]);
}
`, `
struct S {
    @stride(32) m: array<vec2<f32>, 2u>,
    @stride(8) n: mat2x2<f32>,
}

@group(0) @binding(0) var<storage, read_write> s: S;

fn arr_to_mat2x2_stride_32(arr: array<vec2<f32>, 2u>) -> mat2x2<f32> {
    return mat2x2<f32>(arr[0u], arr[1u]);
}

fn mat2x2_stride_32_to_arr(m: mat2x2<f32>) -> array<vec2<f32>, 2u> {
    return array<vec2<f32>, 2u>(m[0u], m[1u]);
}

fn f() -> vec2<f32> {
    let a = arr_to_mat2x2_stride_32(s.m);
    let c = s.m[1];
    s.m = mat2x2_stride_32_to_arr(mat2x2<f32>(c, c));
    return (a[0] + s.n[0]);
}
`)
	})

	t.Run("uniform copy", func(t *testing.T) {
		expectTransform(t, tr, `
struct U {
  @stride(16) m: mat3x2<f32>,
}
@group(0) @binding(0) var<uniform> u: U;
var<private> p: mat3x2<f32>;
fn f() {
  p = u.m;
}
`, `
struct U {
    @stride(16) m: array<vec2<f32>, 3u>,
}

@group(0) @binding(0) var<uniform> u: U;

var<private> p: mat3x2<f32>;

fn arr_to_mat3x2_stride_16(arr: array<vec2<f32>, 3u>) -> mat3x2<f32> {
    return mat3x2<f32>(arr[0u], arr[1u], arr[2u]);
}

fn f() {
    p = arr_to_mat3x2_stride_16(u.m);
}
`)
	})

	t.Run("skip", func(t *testing.T) {
		expectSkip(t, tr, `
struct S {
  m: mat2x2<f32>,
}
@group(0) @binding(0) var<uniform> u: S;
fn f() -> mat2x2<f32> { return u.m; }
`)
		expectSkip(t, tr, `
struct S {
  @stride(32) m: mat2x2<f32>,
}
fn f() -> mat2x2<f32> { var s: S; return s.m; }
`)
	})
}
