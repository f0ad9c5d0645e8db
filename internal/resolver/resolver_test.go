package resolver

import (
	"strings"
	"testing"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/parser"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ----------------------------------------------------------------------------
// Test Helpers
// ----------------------------------------------------------------------------

func resolve(t *testing.T, src string) (*ast.Module, *sem.Info) {
	t.Helper()
	b := parser.Parse(src)
	require.False(t, b.HasDiagnostics(), "parse errors:\n%s", b.Diagnostics().Format())
	m := b.Module()
	info, diags := Resolve(m)
	require.False(t, diags.HasErrors(), "resolve errors:\n%s", diags.Format())
	return m, info
}

// expectResolveError verifies that resolving src reports an error with the
// given code whose message contains substr.
func expectResolveError(t *testing.T, src string, code diagnostic.DiagnosticCode, substr string) {
	t.Helper()
	t.Run(substr, func(t *testing.T) {
		t.Helper()
		b := parser.Parse(src)
		require.False(t, b.HasDiagnostics(), "parse errors:\n%s", b.Diagnostics().Format())
		_, diags := Resolve(b.Module())
		for _, d := range diags.Errors() {
			if d.Code == string(code) && strings.Contains(d.Message, substr) {
				return
			}
		}
		t.Errorf("expected %s error containing %q, got:\n%s", code, substr, diags.Format())
	})
}

func function(t *testing.T, info *sem.Info, name string) *sem.Function {
	t.Helper()
	for _, f := range info.Functions {
		if f.Name() == name {
			return f
		}
	}
	t.Fatalf("no function %q", name)
	return nil
}

// idents returns the identifier expressions spelled name, in creation order.
func idents(m *ast.Module, name string) []*ast.IdentExpr {
	var out []*ast.IdentExpr
	for _, n := range m.Nodes() {
		if id, ok := n.(*ast.IdentExpr); ok && id.Symbol.Name() == name {
			out = append(out, id)
		}
	}
	return out
}

func global(m *ast.Module, info *sem.Info, name string) *sem.Variable {
	for _, d := range m.Decls {
		if v, ok := d.(ast.Variable); ok && v.Fields().Name.Name() == name {
			return info.Variable(v)
		}
	}
	return nil
}

// ----------------------------------------------------------------------------
// Types
// ----------------------------------------------------------------------------

func TestReferenceTypes(t *testing.T) {
	m, info := resolve(t, `
@group(0) @binding(0) var<storage> buf: array<u32>;
var<private> v: vec4<f32>;
fn f() {
  var local = 1;
  let a = buf[0];
  let b = v.xy;
  let c = v.x;
  let d = local;
}`)
	bufRef := info.TypeOf(idents(m, "buf")[0])
	require.IsType(t, &types.Reference{}, bufRef)
	assert.Equal(t, ast.AddressSpaceStorage, bufRef.(*types.Reference).AddressSpace)
	assert.Equal(t, ast.AccessModeRead, bufRef.(*types.Reference).AccessMode)

	fn := m.Function("f")
	stmts := fn.Body.Stmts
	initOf := func(i int) *sem.Expression {
		return info.Expr(stmts[i].(*ast.DeclStmt).Decl.(*ast.LetDecl).Initializer)
	}

	assert.True(t, initOf(1).IsReference())
	assert.True(t, initOf(1).UnwrappedType().Equals(types.U32))

	// Multi-component swizzles are values, single ones are references.
	assert.False(t, initOf(2).IsReference())
	assert.True(t, initOf(2).Type.Equals(types.Vec(2, types.F32)))
	assert.True(t, initOf(3).IsReference())

	local := info.TypeOf(idents(m, "local")[0])
	assert.Equal(t, ast.AddressSpaceFunction, local.(*types.Reference).AddressSpace)
	assert.True(t, types.UnwrapRef(local).Equals(types.I32))

	a := info.Variable(stmts[1].(*ast.DeclStmt).Decl.(*ast.LetDecl))
	assert.True(t, a.Type.Equals(types.U32), "let stores the loaded value")
}

func TestDefaultAddressSpaces(t *testing.T) {
	m, info := resolve(t, `
var<private> p: i32;
@group(0) @binding(0) var s: sampler;
@group(0) @binding(1) var tex: texture_2d<f32>;
`)
	assert.Equal(t, ast.AddressSpacePrivate, global(m, info, "p").AddressSpace)
	assert.Equal(t, ast.AddressSpaceHandle, global(m, info, "s").AddressSpace)
	assert.Equal(t, ast.AddressSpaceHandle, global(m, info, "tex").AddressSpace)
	assert.Equal(t, &sem.BindingPoint{Group: 0, Binding: 1}, global(m, info, "tex").BindingPoint)
}

func TestStructLayout(t *testing.T) {
	m, info := resolve(t, `
struct S {
  a: f32,
  b: vec3<f32>,
  c: f32,
  @size(16) d: u32,
  @stride(32) m: mat2x2<f32>,
}`)
	s := info.Struct(m.Structs()[0])
	require.NotNil(t, s)
	require.Len(t, s.Fields, 5)
	assert.Equal(t, 0, s.Fields[0].Offset)
	assert.Equal(t, 16, s.Fields[1].Offset)
	assert.Equal(t, 28, s.Fields[2].Offset)
	assert.Equal(t, 32, s.Fields[3].Offset)
	assert.Equal(t, 16, s.Fields[3].Size)
	assert.Equal(t, 32, s.Fields[4].MatrixStride)
	assert.Same(t, m.Structs()[0], info.StructDecl(s))
}

func TestConstantFolding(t *testing.T) {
	m, info := resolve(t, `
const a = 2 + 3 * 4;
const b = a > 10;
const c: u32 = 7;
const d = -(1.5);
`)
	assert.Equal(t, int64(14), global(m, info, "a").Value.Int)
	assert.True(t, global(m, info, "a").Type.Equals(types.AbstractInt))
	assert.True(t, global(m, info, "b").Value.Bool)
	assert.Equal(t, int64(7), global(m, info, "c").Value.Int)
	assert.True(t, global(m, info, "c").Value.Type.Equals(types.U32))
	assert.Equal(t, -1.5, global(m, info, "d").Value.Float)
}

// ----------------------------------------------------------------------------
// Identifiers and Variables
// ----------------------------------------------------------------------------

func TestShadowing(t *testing.T) {
	m, info := resolve(t, `
var<private> x: i32;
fn f(x: f32) {
  {
    let x = 1u;
    _ = x;
  }
  _ = x;
}`)
	outer := m.Decls[0].(ast.Variable)
	param := m.Function("f").Parameters[0]
	pv := info.Variable(param)
	assert.Equal(t, ast.Node(outer), pv.Shadows)

	uses := idents(m, "x")
	require.Len(t, uses, 2)
	inner := info.Ident(uses[0]).Variable
	assert.Equal(t, sem.VariableLet, inner.Kind)
	assert.Equal(t, ast.Node(param), inner.Shadows)
	assert.Same(t, pv, info.Ident(uses[1]).Variable)
	assert.Empty(t, info.Variable(outer).Users)
}

func TestRootVariable(t *testing.T) {
	m, info := resolve(t, `
struct S { a: array<f32, 4> }
var<private> s: S;
fn f(p: ptr<private, S>) {
  let q = &s.a;
  let r = &(*q)[1];
  _ = (*p).a[0];
  *r = 2.0;
}`)
	sv := global(m, info, "s")
	body := m.Function("f").Body.Stmts
	r := info.Variable(body[1].(*ast.DeclStmt).Decl.(*ast.LetDecl))
	assert.Same(t, sv, r.Initializer.RootVariable)

	phony := body[2].(*ast.AssignStmt)
	pv := info.Variable(m.Function("f").Parameters[0])
	assert.Same(t, pv, info.Expr(phony.Right).RootVariable)

	store := body[3].(*ast.AssignStmt)
	assert.Same(t, sv, info.Expr(store.Left).RootVariable)
}

func TestCallsAndSideEffects(t *testing.T) {
	m, info := resolve(t, `
fn g() -> i32 { return 1; }
fn f() {
  let a = g() + 1;
  let b = max(1, 2);
  let c = vec3<f32>(1.0);
  let d = f32(1);
  let e = vec2(1.0, 2.0);
}`)
	body := m.Function("f").Body.Stmts
	init := func(i int) ast.Expr { return body[i].(*ast.DeclStmt).Decl.(*ast.LetDecl).Initializer }

	assert.True(t, info.Expr(init(0)).HasSideEffects)
	gcall := init(0).(*ast.BinaryExpr).Left.(*ast.CallExpr)
	assert.Equal(t, sem.CallFunction, info.Call(gcall).Kind)
	assert.Same(t, function(t, info, "g"), info.Ident(gcall.Func).Function)

	assert.False(t, info.Expr(init(1)).HasSideEffects)
	assert.Equal(t, sem.CallBuiltin, info.Call(init(1).(*ast.CallExpr)).Kind)
	assert.Equal(t, sem.CallConstructor, info.Call(init(2).(*ast.CallExpr)).Kind)
	assert.Equal(t, sem.CallConversion, info.Call(init(3).(*ast.CallExpr)).Kind)
	assert.True(t, info.TypeOf(init(4)).Equals(types.Vec(2, types.AbstractFloat)))
	assert.Equal(t, sem.CallConstructor, info.Call(init(4).(*ast.CallExpr)).Kind)
}

func TestCallStatements(t *testing.T) {
	resolve(t, `
@group(0) @binding(0) var<storage, read_write> counter: atomic<u32>;
@group(0) @binding(1) var tex: texture_storage_2d<rgba8unorm, write>;
fn g() -> i32 { return 1; }
fn f() {
  g();
  atomicAdd(&counter, 1u);
  textureStore(tex, vec2<u32>(0u), vec4<f32>(1.0));
  workgroupBarrier();
}`)

	expectResolveError(t, "fn f() { vec2<f32>(1.0, 2.0); }", diagnostic.CodeUnusedValue, "not used")
	expectResolveError(t, "fn f() { vec2(1.0, 2.0); }", diagnostic.CodeUnusedValue, "not used")
	expectResolveError(t, "fn f() { f32(1); }", diagnostic.CodeUnusedValue, "not used")
	expectResolveError(t, "fn g() -> i32 { return 1; } fn f() { max(g(), 2); }", diagnostic.CodeUnusedValue, "'max' must be used")
}

// ----------------------------------------------------------------------------
// Behaviors and Reachability
// ----------------------------------------------------------------------------

func TestFunctionBehaviors(t *testing.T) {
	_, info := resolve(t, `
fn ret(c: bool) -> i32 { if c { return 1; } return 2; }
fn forever() { loop { } }
fn breaks(c: bool) { loop { if c { break; } } }
fn whiles(c: bool) { while c { continue; } }
fn fors() { for (;;) { return; } }
fn switches(x: i32) { switch x { case 1: { break; } default: { return; } } }
fn discards() { discard; }
fn breakif(c: bool) { loop { continuing { break if c; } } }
`)
	cases := map[string]sem.Behaviors{
		"ret":      sem.BehaviorReturn,
		"forever":  0,
		"breaks":   sem.BehaviorNext,
		"whiles":   sem.BehaviorNext,
		"fors":     sem.BehaviorReturn,
		"switches": sem.BehaviorNext | sem.BehaviorReturn,
		"discards": sem.BehaviorNext,
		"breakif":  sem.BehaviorNext,
	}
	for name, want := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, want.String(), function(t, info, name).Behaviors.String())
		})
	}
}

func TestReachability(t *testing.T) {
	m, info := resolve(t, `
fn f(c: bool) {
  if c { return; } else { return; }
  let dead = 1;
  loop { break; let also_dead = 2; }
}`)
	body := m.Function("f").Body.Stmts
	assert.True(t, info.Stmt(body[0]).Reachable)
	assert.False(t, info.Stmt(body[1]).Reachable)
	assert.False(t, info.Stmt(body[2]).Reachable)

	loop := body[2].(*ast.LoopStmt)
	assert.True(t, info.Stmt(loop.Body.Stmts[0]).Reachable)
	assert.False(t, info.Stmt(loop.Body.Stmts[1]).Reachable)

	st := info.Stmt(loop.Body.Stmts[0])
	assert.Same(t, loop.Body, st.Block)
	isLoop := func(s ast.Stmt) bool { _, ok := s.(*ast.LoopStmt); return ok }
	assert.Same(t, info.Stmt(loop), st.FindParent(isLoop))
}

// ----------------------------------------------------------------------------
// Call Graph
// ----------------------------------------------------------------------------

func TestCallGraph(t *testing.T) {
	_, info := resolve(t, `
var<private> a: i32;
var<private> b: i32;
var<private> unused: i32;
fn leaf() -> i32 { return b; }
fn mid() -> i32 { return a + leaf() + leaf(); }
@compute @workgroup_size(8, 4) fn main() { _ = mid(); }
@fragment fn frag() -> @location(0) vec4f { _ = leaf(); return vec4f(); }
`)
	leaf, mid := function(t, info, "leaf"), function(t, info, "mid")
	main, frag := function(t, info, "main"), function(t, info, "frag")

	assert.Equal(t, sem.StageCompute, main.Stage)
	assert.Equal(t, [3]uint32{8, 4, 1}, main.WorkgroupSize)
	assert.Equal(t, sem.StageFragment, frag.Stage)

	assert.Equal(t, []*sem.Function{leaf}, mid.Callees)
	assert.Len(t, leaf.CallSites, 3)

	names := func(vs []*sem.Variable) []string {
		var out []string
		for _, v := range vs {
			out = append(out, v.Name())
		}
		return out
	}
	assert.Equal(t, []string{"a"}, names(mid.DirectGlobals))
	assert.Equal(t, []string{"a", "b"}, names(mid.TransitiveGlobals))
	assert.Equal(t, []string{"a", "b"}, names(main.TransitiveGlobals))
	assert.Equal(t, []*sem.Function{main, frag}, leaf.AncestorEntryPoints)
	assert.Equal(t, []*sem.Function{main}, mid.AncestorEntryPoints)
}

// ----------------------------------------------------------------------------
// Errors
// ----------------------------------------------------------------------------

func TestResolveErrors(t *testing.T) {
	expectResolveError(t, "fn f() { _ = y; }", diagnostic.CodeUndefinedSymbol, "undefined identifier 'y'")
	expectResolveError(t, "fn f() -> i32 { if true { return 1; } }", diagnostic.CodeMissingReturn, "must return a value")
	expectResolveError(t, "fn f() { g(); } fn g() { f(); }", diagnostic.CodeRecursiveFunction, "recursive call")
	expectResolveError(t, "const a = 1; const a = 2;", diagnostic.CodeDuplicateSymbol, "redeclaration of 'a'")
	expectResolveError(t, "fn f() { let a = 1; let a = 2; }", diagnostic.CodeDuplicateSymbol, "redeclaration of 'a'")
	expectResolveError(t, "var<private> v: array<i32, 4>; fn f() { _ = v[4]; }", diagnostic.CodeNotIndexable, "out of bounds")
	expectResolveError(t, "var<storage> b: array<u32>;", diagnostic.CodeMissingBinding, "requires @group and @binding")
	expectResolveError(t, "fn f() { break; }", diagnostic.CodeBreakOutsideLoop, "inside a loop or switch")
	expectResolveError(t, "fn f() { continue; }", diagnostic.CodeContinueOutsideLoop, "inside a loop")
	expectResolveError(t, "fn f() { if 1 { } }", diagnostic.CodeTypeMismatch, "condition must be bool")
	expectResolveError(t, "const_assert 1 > 2;", diagnostic.CodeInvalidConstExpr, "const_assert failure")
	expectResolveError(t, "fn f() { const_assert false; }", diagnostic.CodeInvalidConstExpr, "const_assert failure")
	expectResolveError(t, "struct S { a: i32 } fn f() { let s = S(); _ = s.b; }", diagnostic.CodeNoSuchMember, "has no member 'b'")
	expectResolveError(t, "@group(0) @binding(0) var<uniform> u: f32; fn f() { u = 1.0; }", diagnostic.CodeInvalidAssignment, "read-only")
	expectResolveError(t, "fn f(x: i32) { switch x { case 1: { } } }", diagnostic.CodeInvalidConstExpr, "exactly one default")
	expectResolveError(t, "fn f() -> i32 { return 1.5; }", diagnostic.CodeInvalidReturn, "cannot return")
	expectResolveError(t, "@compute fn main() { }", diagnostic.CodeMissingAttribute, "@workgroup_size")
	expectResolveError(t, "fn g(a: i32) { } fn f() { g(); }", diagnostic.CodeInvalidArgCount, "expects 1 arguments")
}

func TestBodilessIntrinsic(t *testing.T) {
	_, info := resolve(t, `
@group(0) @binding(0) var<storage, read_write> buf: array<u32>;
@internal(intrinsic_load_storage_u32, buf) fn buf_load(offset: u32) -> u32;
fn f() { _ = buf_load(4u); }
`)
	load := function(t, info, "buf_load")
	assert.Nil(t, load.Decl.Body)
	assert.Len(t, load.CallSites, 1)

	expectResolveError(t, "fn g() -> u32;", diagnostic.CodeInvalidEntryPoint, "has no body")
}
