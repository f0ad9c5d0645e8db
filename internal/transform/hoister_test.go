package transform

import (
	"testing"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/sem"
)

// hoistCalls moves every call to f into a let named h. With prepareOnly
// set it only makes room for the declarations.
type hoistCalls struct {
	prepareOnly bool
}

func (*hoistCalls) Name() string { return "hoistCalls" }

func (hc *hoistCalls) Apply(src *program.Program, _, _ *DataMap) *program.Program {
	ctx := newCloneContext(src)
	h := newHoister(ctx, src.Sem)
	inspectFunctions(src.AST, func(n ast.Node) bool {
		c, ok := n.(*ast.CallExpr)
		if !ok {
			return true
		}
		if call := src.Sem.Call(c); call == nil || call.Kind != sem.CallFunction || call.Function.Decl.Name.Name() != "f" {
			return true
		}
		if hc.prepareOnly {
			h.Prepare(c)
		} else {
			h.Add(c, false, "h")
		}
		return true
	})
	return finish(ctx)
}

const hoistHeader = `
fn f() -> i32 { return 1; }
`

const hoistHeaderOut = `fn f() -> i32 {
    return 1;
}

`

func TestHoister(t *testing.T) {
	tr := &hoistCalls{}

	t.Run("block statement", func(t *testing.T) {
		expectTransform(t, tr, hoistHeader+`
fn g() {
  let x = (f() + 1);
}
`, hoistHeaderOut+`fn g() {
    let h = f();
    let x = (h + 1);
}
`)
	})

	t.Run("for initializer", func(t *testing.T) {
		expectTransform(t, tr, hoistHeader+`
fn g() {
  for (var i = f(); (i < 4); i++) {
    let y = i;
  }
}
`, hoistHeaderOut+`fn g() {
    {
        let h = f();
        for (var i = h; (i < 4); i++) {
            let y = i;
        }
    }
}
`)
	})

	t.Run("for condition", func(t *testing.T) {
		expectTransform(t, tr, hoistHeader+`
fn g() {
  for (var i = 0; (i < f()); i++) {
    let y = i;
  }
}
`, hoistHeaderOut+`fn g() {
    {
        var i = 0;
        loop {
            let h = f();
            if !(i < h) {
                break;
            }
            let y = i;
            continuing {
                i++;
            }
        }
    }
}
`)
	})

	t.Run("for update", func(t *testing.T) {
		expectTransform(t, tr, hoistHeader+`
fn g() {
  for (var i = 0; (i < 4); i = (i + f())) {
    let y = i;
  }
}
`, hoistHeaderOut+`fn g() {
    {
        var i = 0;
        loop {
            if !(i < 4) {
                break;
            }
            let y = i;
            continuing {
                let h = f();
                i = (i + h);
            }
        }
    }
}
`)
	})

	t.Run("while condition", func(t *testing.T) {
		expectTransform(t, tr, hoistHeader+`
fn g() {
  while (f() < 4) {
    let y = 1;
  }
}
`, hoistHeaderOut+`fn g() {
    loop {
        let h = f();
        if !(h < 4) {
            break;
        }
        let y = 1;
    }
}
`)
	})

	t.Run("else if condition", func(t *testing.T) {
		expectTransform(t, tr, hoistHeader+`
fn g(x: i32) -> i32 {
  if (x == 0) {
    return 0;
  } else if (f() == x) {
    return 1;
  }
  return 2;
}
`, hoistHeaderOut+`fn g(x: i32) -> i32 {
    if (x == 0) {
        return 0;
    } else {
        let h = f();
        if (h == x) {
            return 1;
        }
    }
    return 2;
}
`)
	})
}

func TestHoisterPrepare(t *testing.T) {
	tr := &hoistCalls{prepareOnly: true}

	t.Run("while becomes loop", func(t *testing.T) {
		expectTransform(t, tr, hoistHeader+`
fn g() {
  while (f() < 4) {
    let y = 1;
  }
}
`, hoistHeaderOut+`fn g() {
    loop {
        if !(f() < 4) {
            break;
        }
        let y = 1;
    }
}
`)
	})

	t.Run("plain statement untouched", func(t *testing.T) {
		src := hoistHeader + `
fn g() {
  let x = f();
}
`
		expectTransform(t, tr, src, canonical(t, src))
	})
}
