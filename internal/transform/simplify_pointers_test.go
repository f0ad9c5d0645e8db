package transform

import "testing"

func TestSimplifyPointers(t *testing.T) {
	tr := &SimplifyPointers{}

	t.Run("fold", func(t *testing.T) {
		expectTransform(t, tr, `
fn g(p: ptr<function, i32>) -> i32 { return *p; }
fn f() -> i32 {
  var x = 1;
  var arr: array<i32, 2>;
  let p = &arr[1];
  *p = *(&x);
  return g(&(*p));
}
`, `
fn g(p: ptr<function, i32>) -> i32 {
    return *p;
}

fn f() -> i32 {
    var x = 1;
    var arr: array<i32, 2>;
    arr[1] = x;
    return g(&arr[1]);
}
`)
	})

	t.Run("saved indices", func(t *testing.T) {
		expectTransform(t, tr, `
struct S {
  v: vec4<f32>,
  f: f32,
}
fn f(i: i32) -> f32 {
  var a: array<S, 4>;
  let p = &a[i];
  let q = &(*p).v;
  (*q).x = 1.0;
  (*p).f = 2.0;
  return (*q).y;
}
`, `
struct S {
    v: vec4<f32>,
    f: f32,
}

fn f(i: i32) -> f32 {
    var a: array<S, 4>;
    let p_save = i;
    a[p_save].v.x = 1.0;
    a[p_save].f = 2.0;
    return a[p_save].v.y;
}
`)
	})

	t.Run("for loop initializer", func(t *testing.T) {
		expectTransform(t, tr, `
fn f(i: i32) {
  var a: array<i32, 4>;
  for (let p = &a[(i + 1)]; (*p < 4); *p = (*p + 1)) {
  }
}
`, `
fn f(i: i32) {
    var a: array<i32, 4>;
    let p_save = (i + 1);
    for (; (a[p_save] < 4); a[p_save] = (a[p_save] + 1)) {
    }
}
`)
	})

	t.Run("skip", func(t *testing.T) {
		expectSkip(t, tr, "fn f(p: ptr<function, i32>) -> i32 { return *p; }")
	})
}
