package transform

import "testing"

func TestDirectVariableAccess(t *testing.T) {
	tr := &DirectVariableAccess{}

	t.Run("variants per access shape", func(t *testing.T) {
		expectTransform(t, tr, `
struct S {
  arr: array<vec4<f32>, 4>,
  x: f32,
}
@group(0) @binding(0) var<uniform> U: S;
var<private> P: S;
fn load(p: ptr<uniform, vec4<f32>>) -> vec4<f32> { return *p; }
fn load_x(p: ptr<private, f32>) -> f32 { return *p; }
fn sum(s: ptr<function, S>, i: i32) -> f32 { return ((*s).arr[i].x + (*s).x); }
fn main() -> f32 {
  var i = 2;
  var l: S;
  let a = load(&U.arr[i]);
  let b = load(&U.arr[1]);
  let c = load_x(&P.x);
  return ((a.x + b.y) + (c + sum(&l, i)));
}
`, `
struct S {
    arr: array<vec4<f32>, 4>,
    x: f32,
}

@group(0) @binding(0) var<uniform> U: S;

var<private> P: S;

fn load_U_arr_X(p_indices: array<u32, 1>) -> vec4<f32> {
    return U.arr[p_indices[0]];
}

fn load_x_P_x() -> f32 {
    return P.x;
}

fn sum_F(s_base: ptr<function, S>, i: i32) -> f32 {
    return ((*s_base).arr[i].x + (*s_base).x);
}

fn main() -> f32 {
    var i = 2;
    var l: S;
    let a = load_U_arr_X(array<u32, 1>(u32(i)));
    let b = load_U_arr_X(array<u32, 1>(1u));
    let c = load_x_P_x();
    return ((a.x + b.y) + (c + sum_F(&l, i)));
}
`)
	})

	t.Run("forwarded pointer", func(t *testing.T) {
		expectTransform(t, tr, `
var<private> G: array<f32, 4>;
fn inner(p: ptr<private, f32>) -> f32 { return *p; }
fn outer(p: ptr<private, f32>) -> f32 { return inner(p); }
fn main(j: u32) -> f32 {
  return outer(&G[j]);
}
`, `
var<private> G: array<f32, 4>;

fn inner_G_X(p_indices: array<u32, 1>) -> f32 {
    return G[p_indices[0]];
}

fn outer_G_X(p_indices: array<u32, 1>) -> f32 {
    return inner_G_X(array<u32, 1>(p_indices[0]));
}

fn main(j: u32) -> f32 {
    return outer_G_X(array<u32, 1>(j));
}
`)
	})

	t.Run("added parameters avoid module names", func(t *testing.T) {
		expectTransform(t, tr, `
const p_indices = 3u;
var<private> G: array<f32, 4>;
fn get(p: ptr<private, f32>) -> f32 { return (*p + f32(p_indices)); }
fn main(j: u32) -> f32 {
  return get(&G[j]);
}
`, `
const p_indices = 3u;

var<private> G: array<f32, 4>;

fn get_G_X(p_indices_1: array<u32, 1>) -> f32 {
    return (G[p_indices_1[0]] + f32(p_indices));
}

fn main(j: u32) -> f32 {
    return get_G_X(array<u32, 1>(j));
}
`)
	})

	t.Run("pointer let evaluates its index once", func(t *testing.T) {
		expectTransform(t, tr, `
fn store_it(p: ptr<function, u32>) { *p = 1u; }
fn g() -> i32 { return 0; }
fn main() {
  var l: array<u32, 4>;
  let q = &l[g()];
  store_it(q);
}
`, `
fn store_it_F_X(p_base: ptr<function, array<u32, 4>>, p_indices: array<u32, 1>) {
    (*p_base)[p_indices[0]] = 1u;
}

fn g() -> i32 {
    return 0;
}

fn main() {
    var l: array<u32, 4>;
    let q_save = g();
    store_it_F_X(&l, array<u32, 1>(u32(q_save)));
}
`)
	})

	t.Run("pointer let still in use", func(t *testing.T) {
		expectTransform(t, tr, `
fn store_it(p: ptr<function, u32>) { *p = 1u; }
fn main(i: u32) {
  var l: array<u32, 4>;
  let q = &l[i];
  store_it(q);
  *q = 2u;
}
`, `
fn store_it_F_X(p_base: ptr<function, array<u32, 4>>, p_indices: array<u32, 1>) {
    (*p_base)[p_indices[0]] = 1u;
}

fn main(i: u32) {
    var l: array<u32, 4>;
    let q_save = i;
    let q = &l[q_save];
    store_it_F_X(&l, array<u32, 1>(q_save));
    *q = 2u;
}
`)
	})

	t.Run("skip", func(t *testing.T) {
		expectSkip(t, tr, "fn f(x: i32) -> i32 { return x; }")
	})
}
