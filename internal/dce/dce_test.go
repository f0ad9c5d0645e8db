package dce

import (
	"testing"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/parser"
)

func parse(t *testing.T, source string) *ast.Module {
	t.Helper()
	b := parser.Parse(source)
	if b.Diagnostics().HasErrors() {
		t.Fatalf("parse errors: %s", b.Diagnostics().Format())
	}
	return b.Module()
}

// liveNames returns the names of the live declarations in module order.
func liveNames(m *ast.Module, live Live) []string {
	var out []string
	for _, d := range m.Decls {
		if n := declName(d); n != "" && live.IsDeclarationLive(d) {
			out = append(out, n)
		}
	}
	return out
}

func expectLive(t *testing.T, source string, roots []string, expected ...string) {
	t.Helper()
	m := parse(t, source)
	live, _ := Mark(m, roots...)
	got := liveNames(m, live)
	if len(got) != len(expected) {
		t.Fatalf("live = %v, want %v", got, expected)
	}
	for i := range got {
		if got[i] != expected[i] {
			t.Fatalf("live = %v, want %v", got, expected)
		}
	}
}

// ----------------------------------------------------------------------------
// Mark Tests
// ----------------------------------------------------------------------------

func TestMark_NilModule(t *testing.T) {
	live, dead := Mark(nil)
	if dead != 0 || len(live) != 0 {
		t.Errorf("expected nothing for nil module, got %d live, %d dead", len(live), dead)
	}
}

func TestMark_NoEntryPoints(t *testing.T) {
	// When no entry points exist, everything is live (conservative)
	source := `const x = 1;
fn helper() { return; }`
	m := parse(t, source)
	live, dead := Mark(m)
	if dead != 0 {
		t.Errorf("expected 0 dead declarations (conservative marking), got %d", dead)
	}
	for _, d := range m.Decls {
		if !live.IsDeclarationLive(d) {
			t.Errorf("declaration %s should be live", declName(d))
		}
	}
}

func TestMark_WithEntryPoint(t *testing.T) {
	source := `const dead = 1;
const used = 2;
@compute @workgroup_size(1) fn main() { let x = used; }`
	m := parse(t, source)
	_, dead := Mark(m)
	if dead != 1 {
		t.Errorf("expected 1 dead declaration, got %d", dead)
	}
	expectLive(t, source, nil, "used", "main")
}

func TestMark_TransitiveDependencies(t *testing.T) {
	expectLive(t, `
const a = 1;
const b = a;
const c = b;
const unused = 42;
@compute @workgroup_size(1) fn main() { let x = c; }
`, nil, "a", "b", "c", "main")
}

func TestMark_FunctionCalls(t *testing.T) {
	expectLive(t, `
fn leaf() -> f32 { return 1.0; }
fn mid() -> f32 { return leaf(); }
fn orphan() -> f32 { return 2.0; }
@fragment fn main() -> @location(0) vec4<f32> { return vec4<f32>(mid()); }
`, nil, "leaf", "mid", "main")
}

func TestMark_TypesAndAliases(t *testing.T) {
	expectLive(t, `
struct Inner { v: f32 }
struct Outer { i: Inner }
alias O = Outer;
struct Unused { x: i32 }
@group(0) @binding(0) var<uniform> u: O;
@compute @workgroup_size(1) fn main() { let x = u.i.v; }
`, nil, "Inner", "Outer", "O", "u", "main")
}

func TestMark_AttributeArguments(t *testing.T) {
	// @workgroup_size and @internal arguments are references too.
	expectLive(t, `
override size: u32 = 64u;
@group(0) @binding(0) var<storage, read_write> buf: array<f32>;
@internal(intrinsic_load_storage_f32, buf) fn buf_load(offset: u32) -> f32;
@compute @workgroup_size(size) fn main() { let x = buf_load(0u); }
`, nil, "size", "buf", "buf_load", "main")
}

func TestMark_NamedEntryPoint(t *testing.T) {
	source := `
var<private> a: f32;
var<private> b: f32;
@fragment fn fa() -> @location(0) vec4<f32> { return vec4<f32>(a); }
@fragment fn fb() -> @location(0) vec4<f32> { return vec4<f32>(b); }
`
	expectLive(t, source, []string{"fb"}, "b", "fb")
	expectLive(t, source, nil, "a", "b", "fa", "fb")
}

func TestMark_UnknownEntryPointKeepsAll(t *testing.T) {
	expectLive(t, `
const a = 1;
@compute @workgroup_size(1) fn main() {}
`, []string{"missing"}, "a", "main")
}

func TestMark_ConstAssertKeepsItsConstants(t *testing.T) {
	source := `
const limit = 4;
const other = 5;
const_assert limit > 2;
@compute @workgroup_size(1) fn main() {}
`
	m := parse(t, source)
	live, _ := Mark(m)
	for _, d := range m.Decls {
		if _, ok := d.(*ast.ConstAssertDecl); ok && !live.IsDeclarationLive(d) {
			t.Error("const_assert should always be live")
		}
	}
	expectLive(t, source, nil, "limit", "main")
}

func TestMark_Recursion(t *testing.T) {
	// Cycles in the graph terminate.
	expectLive(t, `
struct Node { next: u32 }
fn a(n: Node) -> u32 { return n.next; }
@compute @workgroup_size(1) fn main() { var n: Node; let x = a(n); }
`, nil, "Node", "a", "main")
}
