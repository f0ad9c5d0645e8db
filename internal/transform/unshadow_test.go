package transform

import "testing"

func TestUnshadow(t *testing.T) {
	tr := &Unshadow{}

	t.Run("locals and parameters", func(t *testing.T) {
		expectTransform(t, tr, `
var<private> a: i32;
fn f(a: i32) -> i32 {
  let b = a;
  {
    var b = 2;
    b = (b + a);
  }
  return b;
}
`, `
var<private> a: i32;

fn f(a_1: i32) -> i32 {
    let b = a_1;
    {
        var b_1 = 2;
        b_1 = (b_1 + a_1);
    }
    return b;
}
`)
	})

	t.Run("functions and types", func(t *testing.T) {
		expectTransform(t, tr, `
struct S {
  x: f32,
}
fn g() -> f32 { return 1.0; }
fn h() -> f32 {
  let g = 2.0;
  let S = g;
  return (S + g);
}
`, `
struct S {
    x: f32,
}

fn g() -> f32 {
    return 1.0;
}

fn h() -> f32 {
    let g_1 = 2.0;
    let S_1 = g_1;
    return (S_1 + g_1);
}
`)
	})

	t.Run("skip", func(t *testing.T) {
		expectSkip(t, tr, "fn f(a: i32) -> i32 { let b = a; return b; }")
	})
}
