package transform

import "testing"

func TestRemovePhonies(t *testing.T) {
	tr := &RemovePhonies{}

	t.Run("no side effects", func(t *testing.T) {
		expectTransform(t, tr, `
var<private> v: i32;
fn f() {
  _ = v;
  _ = (v + 1);
  _ = vec2<i32>(v, 2);
}
`, `
var<private> v: i32;

fn f() {
}
`)
	})

	t.Run("single call", func(t *testing.T) {
		expectTransform(t, tr, `
fn g() -> i32 { return 1; }
fn f() {
  _ = g();
  _ = (g() * 2);
  _ = max(g(), 2);
}
`, `
fn g() -> i32 {
    return 1;
}

fn f() {
    g();
    g();
    g();
}
`)
	})

	t.Run("sink", func(t *testing.T) {
		expectTransform(t, tr, `
fn g() -> i32 { return 1; }
fn h(x: f32) -> f32 { return x; }
fn f() {
  _ = (g() + g());
  _ = vec2<f32>(h(1.0), f32(g()));
  _ = (g() - g());
}
`, `
fn g() -> i32 {
    return 1;
}

fn h(x: f32) -> f32 {
    return x;
}

fn phony_sink(p0: i32, p1: i32) {
}

fn phony_sink_1(p0: f32, p1: i32) {
}

fn f() {
    phony_sink(g(), g());
    phony_sink_1(h(1.0), g());
    phony_sink(g(), g());
}
`)
	})

	t.Run("builtin with side effects", func(t *testing.T) {
		expectTransform(t, tr, `
@group(0) @binding(0) var<storage, read_write> counter: atomic<u32>;
@compute @workgroup_size(1) fn main() {
  _ = atomicAdd(&counter, 1u);
  _ = abs(-1);
}
`, `
@group(0) @binding(0) var<storage, read_write> counter: atomic<u32>;

@compute @workgroup_size(1) fn main() {
    atomicAdd(&counter, 1u);
}
`)
	})

	t.Run("skip", func(t *testing.T) {
		expectSkip(t, tr, "fn f() { let a = 1; }")
	})
}

func TestRemoveUnreachableStatements(t *testing.T) {
	tr := &RemoveUnreachableStatements{}

	expectTransform(t, tr, `
fn f(c: bool) -> i32 {
  if c {
    return 1;
    let dead = 2;
  }
  loop {
    break;
    let dead = 3;
  }
  return 4;
  let dead = 5;
  if c { return 6; }
}
`, `
fn f(c: bool) -> i32 {
    if c {
        return 1;
    }
    loop {
        break;
    }
    return 4;
}
`)

	expectTransform(t, tr, `
fn f(x: i32) {
  switch x {
    case 1: {
      return;
      discard;
    }
    default: {
    }
  }
  for (var i = 0; i < 4; i++) {
    continue;
    let y = i;
  }
}
`, `
fn f(x: i32) {
    switch x {
        case 1: {
            return;
        }
        default: {
        }
    }
    for (var i = 0; (i < 4); i++) {
        continue;
    }
}
`)

	expectSkip(t, tr, "fn f() -> i32 { if true { return 1; } return 2; }")
}
