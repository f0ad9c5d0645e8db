package transform

import "testing"

const sideEffectDecls = `
var<private> a: i32;
fn f() -> i32 {
  a = (a + 1);
  return a;
}
fn t() -> bool {
  a = 1;
  return true;
}
`

const sideEffectDeclsOut = `var<private> a: i32;

fn f() -> i32 {
    a = (a + 1);
    return a;
}

fn t() -> bool {
    a = 1;
    return true;
}

`

func TestPromoteSideEffectsToDecl(t *testing.T) {
	tr := &PromoteSideEffectsToDecl{}

	t.Run("read before call", func(t *testing.T) {
		expectTransform(t, tr, sideEffectDecls+`
fn g() {
  let r = (a + f());
  let s = (f() + f());
}
`, sideEffectDeclsOut+`fn g() {
    let tmp = a;
    let r = (tmp + f());
    let tmp_1 = f();
    let s = (tmp_1 + f());
}
`)
	})

	t.Run("call arguments", func(t *testing.T) {
		expectTransform(t, tr, sideEffectDecls+`
fn h(x: i32, y: i32, z: i32) -> i32 { return x; }
fn g() {
  var c = 1;
  a = h(c, f(), a);
}
`, sideEffectDeclsOut+`fn h(x: i32, y: i32, z: i32) -> i32 {
    return x;
}

fn g() {
    var c = 1;
    let tmp = c;
    a = h(tmp, f(), a);
}
`)
	})

	t.Run("logical and", func(t *testing.T) {
		expectTransform(t, tr, sideEffectDecls+`
fn g() {
  let c = ((a == 0) && t());
}
`, sideEffectDeclsOut+`fn g() {
    var tmp = (a == 0);
    if tmp {
        tmp = t();
    }
    let c = tmp;
}
`)
	})

	t.Run("nested logical or", func(t *testing.T) {
		expectTransform(t, tr, sideEffectDecls+`
fn g() -> bool {
  return (t() || (t() && (a > 2)));
}
`, sideEffectDeclsOut+`fn g() -> bool {
    var tmp = t();
    if !tmp {
        var tmp_1 = t();
        if tmp_1 {
            tmp_1 = (a > 2);
        }
        tmp = tmp_1;
    }
    return tmp;
}
`)
	})

	t.Run("while condition", func(t *testing.T) {
		expectTransform(t, tr, sideEffectDecls+`
fn g() {
  while (t()) {
    a = (a + 1);
  }
}
`, sideEffectDeclsOut+`fn g() {
    loop {
        if !t() {
            break;
        }
        a = (a + 1);
    }
}
`)
	})

	t.Run("else if condition", func(t *testing.T) {
		expectTransform(t, tr, sideEffectDecls+`
fn g(x: i32) -> i32 {
  if (x == 0) {
    return 0;
  } else if (t() && (x == 1)) {
    return 1;
  }
  return 2;
}
`, sideEffectDeclsOut+`fn g(x: i32) -> i32 {
    if (x == 0) {
        return 0;
    } else {
        var tmp = t();
        if tmp {
            tmp = (x == 1);
        }
        if tmp {
            return 1;
        }
    }
    return 2;
}
`)
	})

	t.Run("for condition", func(t *testing.T) {
		expectTransform(t, tr, sideEffectDecls+`
fn g() {
  for (var i = 0; (i < f()); i++) {
  }
}
`, sideEffectDeclsOut+`fn g() {
    {
        var i = 0;
        loop {
            let tmp = i;
            if !(tmp < f()) {
                break;
            }
            continuing {
                i++;
            }
        }
    }
}
`)
	})

	t.Run("skip", func(t *testing.T) {
		expectSkip(t, tr, sideEffectDecls+`
fn g() {
  let r = f();
  let s = (1 + f());
}
`)
	})
}
