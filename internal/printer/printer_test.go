package printer

import (
	"testing"

	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/parser"
	"github.com/HugoDaniel/rewgsl/internal/sourcemap"
	"github.com/HugoDaniel/rewgsl/internal/test"
)

// ----------------------------------------------------------------------------
// Test Helpers (esbuild-style)
// ----------------------------------------------------------------------------

func parse(t *testing.T, input string) *ast.Module {
	t.Helper()
	b := parser.Parse(input)
	if b.HasDiagnostics() {
		t.Fatalf("parse errors:\n%s", b.Diagnostics().Format())
	}
	return b.Module()
}

// expectPrinted verifies pretty-printed output and that the output prints
// back to itself.
func expectPrinted(t *testing.T, input string, expected string) {
	t.Helper()
	t.Run(input, func(t *testing.T) {
		t.Helper()
		actual := Print(parse(t, input))
		test.AssertEqualWithDiff(t, actual, expected)
		test.AssertEqualWithDiff(t, Print(parse(t, actual)), actual)
	})
}

// expectPrintedMinify verifies minified output (whitespace removed).
func expectPrintedMinify(t *testing.T, input string, expected string) {
	t.Helper()
	t.Run(input+"_minify", func(t *testing.T) {
		t.Helper()
		actual := New(Options{MinifyWhitespace: true}).Print(parse(t, input))
		test.AssertEqualWithDiff(t, actual, expected)
	})
}

// ----------------------------------------------------------------------------
// Declarations
// ----------------------------------------------------------------------------

func TestModuleScope(t *testing.T) {
	expectPrinted(t, "const x = 1;", "const x = 1;\n")
	expectPrinted(t, "const x: i32 = 1i;", "const x: i32 = 1i;\n")
	expectPrinted(t, "var<private> x: f32 = 1.0;", "var<private> x: f32 = 1.0;\n")
	expectPrinted(t, "var<workgroup> tile: array<f32, 64>;", "var<workgroup> tile: array<f32, 64>;\n")
	expectPrinted(t, "@id(0) override scale: f32 = 1.5;", "@id(0) override scale: f32 = 1.5;\n")
	expectPrinted(t, "alias V = vec4<f32>;", "alias V = vec4<f32>;\n")
	expectPrinted(t, "const_assert 1 < 2;", "const_assert (1 < 2);\n")
	expectPrinted(t, "const a = 1; const b = 2;", "const a = 1;\n\nconst b = 2;\n")
}

func TestDirectives(t *testing.T) {
	expectPrinted(t, "enable f16; const x = 1.0h;", "enable f16;\n\nconst x = 1.0h;\n")
	expectPrinted(t, "requires readonly_and_readwrite_storage_textures;",
		"requires readonly_and_readwrite_storage_textures;\n")
	expectPrinted(t, "diagnostic(off, derivative_uniformity);",
		"diagnostic(off, derivative_uniformity);\n")
}

func TestBindings(t *testing.T) {
	expectPrinted(t,
		"@group(0) @binding(1) var<storage, read_write> buf: array<u32>;",
		"@group(0) @binding(1) var<storage, read_write> buf: array<u32>;\n")
	expectPrinted(t,
		"@group(0) @binding(0) var<uniform> u: U;",
		"@group(0) @binding(0) var<uniform> u: U;\n")
	expectPrinted(t,
		"@group(0) @binding(0) var t: texture_2d<f32>;",
		"@group(0) @binding(0) var t: texture_2d<f32>;\n")
}

func TestStruct(t *testing.T) {
	expectPrinted(t,
		"struct S { a: i32, @align(16) b: vec3<f32> }",
		"struct S {\n    a: i32,\n    @align(16) b: vec3<f32>,\n}\n")
	expectPrinted(t,
		"struct VertexOut { @builtin(position) pos: vec4f, @location(0) uv: vec2f, };",
		"struct VertexOut {\n    @builtin(position) pos: vec4f,\n    @location(0) uv: vec2f,\n}\n")
}

func TestFunctions(t *testing.T) {
	expectPrinted(t, "fn main() {}", "fn main() {\n}\n")
	expectPrinted(t,
		"fn f(a: i32, b: i32) -> i32 { let c = a + b * 2; return c; }",
		"fn f(a: i32, b: i32) -> i32 {\n    let c = (a + (b * 2));\n    return c;\n}\n")
	expectPrinted(t,
		"@fragment fn main(@builtin(position) pos: vec4f) -> @location(0) vec4f { return pos; }",
		"@fragment fn main(@builtin(position) pos: vec4f) -> @location(0) vec4f {\n    return pos;\n}\n")
	expectPrinted(t,
		"@compute @workgroup_size(64, 1) fn main() {}",
		"@compute @workgroup_size(64, 1) fn main() {\n}\n")
	expectPrinted(t,
		"fn f(p: ptr<function, i32>) { *p = 1; }",
		"fn f(p: ptr<function, i32>) {\n    *p = 1;\n}\n")
}

func TestIntrinsicDeclaration(t *testing.T) {
	expectPrinted(t,
		"@internal(intrinsic_load_storage_u32, buf) fn buf_load(offset: u32) -> u32;",
		"@internal(intrinsic_load_storage_u32, buf) fn buf_load(offset: u32) -> u32;\n")
}

// ----------------------------------------------------------------------------
// Types
// ----------------------------------------------------------------------------

func TestTypes(t *testing.T) {
	cases := []string{
		"vec2<i32>", "vec3f", "mat4x4<f32>", "mat2x3f", "array<u32, 4>", "array<vec4<f32>>",
		"atomic<u32>", "ptr<storage, u32, read_write>", "sampler", "sampler_comparison",
		"texture_2d<f32>", "texture_2d_array<u32>", "texture_cube<f32>", "texture_multisampled_2d<f32>",
		"texture_depth_2d", "texture_depth_cube_array", "texture_depth_multisampled_2d",
		"texture_storage_2d<rgba8unorm, write>", "texture_external",
	}
	for _, ty := range cases {
		expectPrinted(t, "alias T = "+ty+";", "alias T = "+ty+";\n")
	}
}

// ----------------------------------------------------------------------------
// Literals and Expressions
// ----------------------------------------------------------------------------

func TestNumberPrinting(t *testing.T) {
	expectPrinted(t, "const x = 0;", "const x = 0;\n")
	expectPrinted(t, "const x = 42;", "const x = 42;\n")
	expectPrinted(t, "const x = 0.0;", "const x = 0.0;\n")
	expectPrinted(t, "const x = 3.14159;", "const x = 3.14159;\n")
	expectPrinted(t, "const x = 0.5f;", "const x = 0.5f;\n")
	expectPrinted(t, "const x = 0.1f;", "const x = 0.1f;\n")
	expectPrinted(t, "const x = 1e10;", "const x = 1e+10;\n")
	expectPrinted(t, "const x = 0xFF;", "const x = 255;\n")
	expectPrinted(t, "const x = 7u;", "const x = 7u;\n")
	expectPrinted(t, "const x = true;", "const x = true;\n")
}

func TestBinaryOperators(t *testing.T) {
	for _, op := range []string{"+", "-", "*", "/", "%", "&", "|", "^", "<<", ">>", "&&", "||", "==", "!=", "<", "<=", ">", ">="} {
		expectPrinted(t, "const x = a "+op+" b;", "const x = (a "+op+" b);\n")
	}
	expectPrinted(t, "const x = (a + b) * c;", "const x = ((a + b) * c);\n")
	expectPrinted(t, "const x = a - -b;", "const x = (a - -b);\n")
}

func TestUnaryOperators(t *testing.T) {
	expectPrinted(t, "const x = -a;", "const x = -a;\n")
	expectPrinted(t, "const x = !a;", "const x = !a;\n")
	expectPrinted(t, "const x = ~a;", "const x = ~a;\n")
	expectPrinted(t, "const x = -(-a);", "const x = -(-a);\n")
	expectPrinted(t, "fn f() { let e = (*p).x; let q = &v[0]; }",
		"fn f() {\n    let e = (*p).x;\n    let q = &v[0];\n}\n")
}

func TestCallsAndAccess(t *testing.T) {
	expectPrinted(t, "const v = vec3<f32>(1.0, 2.0, 3.0);", "const v = vec3<f32>(1.0, 2.0, 3.0);\n")
	expectPrinted(t, "const v = vec3f();", "const v = vec3f();\n")
	expectPrinted(t, "const v = array<u32, 2>(1u, 2u);", "const v = array<u32, 2>(1u, 2u);\n")
	expectPrinted(t, "const b = bitcast<u32>(1.0f);", "const b = bitcast<u32>(1.0f);\n")
	expectPrinted(t, "const m = max(a, b);", "const m = max(a, b);\n")
	expectPrinted(t, "const s = a.b.xyz;", "const s = a.b.xyz;\n")
	expectPrinted(t, "const e = arr[i + 1][2];", "const e = arr[(i + 1)][2];\n")
}

// ----------------------------------------------------------------------------
// Statements
// ----------------------------------------------------------------------------

func TestAssignments(t *testing.T) {
	for _, op := range []string{"=", "+=", "-=", "*=", "/=", "%=", "&=", "|=", "^=", "<<=", ">>="} {
		expectPrinted(t, "fn f() { x "+op+" 1; }", "fn f() {\n    x "+op+" 1;\n}\n")
	}
	expectPrinted(t, "fn f() { _ = g(); x++; y--; g(); }",
		"fn f() {\n    _ = g();\n    x++;\n    y--;\n    g();\n}\n")
}

func TestLocalDeclarations(t *testing.T) {
	expectPrinted(t,
		"fn f() { var i = 0; var<function> j: u32; let k = i; const c = 2; const_assert c > 1; }",
		"fn f() {\n    var i = 0;\n    var<function> j: u32;\n    let k = i;\n    const c = 2;\n    const_assert (c > 1);\n}\n")
}

func TestIfFormatting(t *testing.T) {
	expectPrinted(t,
		"fn f(x: i32) { if x > 0 {} else if x < 0 { return; } else { discard; } }",
		`fn f(x: i32) {
    if (x > 0) {
    } else if (x < 0) {
        return;
    } else {
        discard;
    }
}
`)
}

func TestLoopFormatting(t *testing.T) {
	expectPrinted(t,
		"fn f() { var i = 0; loop { i++; continuing { break if i >= 4; } } }",
		`fn f() {
    var i = 0;
    loop {
        i++;
        continuing {
            break if (i >= 4);
        }
    }
}
`)
	expectPrinted(t,
		"fn f() { for (var i = 0u; i < 4u; i += 1u) { continue; } }",
		"fn f() {\n    for (var i = 0u; (i < 4u); i += 1u) {\n        continue;\n    }\n}\n")
	expectPrinted(t,
		"fn f() { for (;;) { break; } }",
		"fn f() {\n    for (;;) {\n        break;\n    }\n}\n")
	expectPrinted(t,
		"fn f() { while i < 10 { i = i + 1; } }",
		"fn f() {\n    while (i < 10) {\n        i = (i + 1);\n    }\n}\n")
}

func TestSwitchFormatting(t *testing.T) {
	expectPrinted(t,
		"fn f(x: i32) { switch x { case 1, 2: { break; } case 3, default { } } }",
		`fn f(x: i32) {
    switch x {
        case 1, 2: {
            break;
        }
        case 3, default: {
        }
    }
}
`)
	expectPrinted(t,
		"fn f(x: i32) { switch x { default: {} } }",
		"fn f(x: i32) {\n    switch x {\n        default: {\n        }\n    }\n}\n")
}

// ----------------------------------------------------------------------------
// Whitespace Minification
// ----------------------------------------------------------------------------

func TestMinifyWhitespace(t *testing.T) {
	expectPrintedMinify(t, "const x = 1 + 2;", "const x=(1+2);")
	expectPrintedMinify(t, "fn foo() -> i32 { return 1; }", "fn foo()->i32{return 1;}")
	expectPrintedMinify(t, "struct Foo { x: i32, y: f32, }", "struct Foo{x:i32,y:f32,}")
	expectPrintedMinify(t,
		"@group(0) @binding(1) var<uniform> u: U;",
		"@group(0) @binding(1) var<uniform>u:U;")
	expectPrintedMinify(t,
		"fn f(a: i32) -> i32 { let b = a - -1; return b; }",
		"fn f(a:i32)->i32{let b=(a- -1);return b;}")
	expectPrintedMinify(t,
		"@vertex fn main() -> @builtin(position) vec4f { return vec4f(); }",
		"@vertex fn main()->@builtin(position) vec4f{return vec4f();}")
}

// ----------------------------------------------------------------------------
// Builder Output
// ----------------------------------------------------------------------------

func TestPrintBuiltModule(t *testing.T) {
	b := ast.NewBuilder()
	b.Func("f", nil, b.F32Type(),
		b.Block(b.Return(b.Mul(b.FloatLit(-2, ast.SuffixF), b.FloatLit(0.25, ast.SuffixNone)))))
	test.AssertEqualWithDiff(t, Print(b.Module()),
		"fn f() -> f32 {\n    return (-2.0f * 0.25);\n}\n")
}

func TestSourceMap(t *testing.T) {
	input := "fn f() -> i32 {\n  return 1;\n}\nconst c = 2;\n"
	gen := sourcemap.NewGenerator(input)
	gen.SetCoverLinesWithoutMappings(false)

	out := New(Options{SourceMap: gen}).Print(parse(t, input))
	test.AssertEqualWithDiff(t, out, "fn f() -> i32 {\n    return 1;\n}\n\nconst c = 2;\n")

	mappings, err := sourcemap.DecodeMappings(gen.Generate().Mappings)
	if err != nil {
		t.Fatalf("decoding mappings: %v", err)
	}
	type pos struct{ genLine, genCol, srcLine, srcCol int }
	var got []pos
	for _, m := range mappings {
		got = append(got, pos{m.GenLine, m.GenCol, m.SrcLine, m.SrcCol})
	}
	expected := []pos{
		{0, 0, 0, 0}, // fn f
		{1, 4, 1, 2}, // return 1;
		{4, 0, 3, 0}, // const c
	}
	if len(got) != len(expected) {
		t.Fatalf("expected %d mappings, got %v", len(expected), got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("mapping %d: expected %v, got %v", i, expected[i], got[i])
		}
	}
}
