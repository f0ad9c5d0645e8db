package reflect

import (
	"testing"

	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/transform"
)

type fieldExpectation struct {
	name   string
	offset int
	size   int
	align  int
}

func checkFields(t *testing.T, layout *StructLayout, expected []fieldExpectation) {
	t.Helper()
	if len(layout.Fields) != len(expected) {
		t.Fatalf("expected %d fields, got %d", len(expected), len(layout.Fields))
	}
	for i, want := range expected {
		field := layout.Fields[i]
		if field.Name != want.name {
			t.Errorf("field %d: expected name '%s', got '%s'", i, want.name, field.Name)
		}
		if field.Offset != want.offset {
			t.Errorf("field %d (%s): expected offset %d, got %d", i, want.name, want.offset, field.Offset)
		}
		if field.Size != want.size {
			t.Errorf("field %d (%s): expected size %d, got %d", i, want.name, want.size, field.Size)
		}
		if field.Alignment != want.align {
			t.Errorf("field %d (%s): expected alignment %d, got %d", i, want.name, want.align, field.Alignment)
		}
	}
}

func reflectSource(t *testing.T, source string) ReflectResult {
	t.Helper()
	result := Reflect(source)
	if len(result.Errors) > 0 {
		t.Fatalf("unexpected errors: %v", result.Errors)
	}
	return result
}

func TestReflectBasicStruct(t *testing.T) {
	result := reflectSource(t, `
struct Inputs {
    time: f32,
    resolution: vec2<u32>,
    brightness: f32,
}
@group(0) @binding(0) var<uniform> u: Inputs;
`)

	if len(result.Bindings) != 1 {
		t.Fatalf("expected 1 binding, got %d", len(result.Bindings))
	}

	binding := result.Bindings[0]
	if binding.Group != 0 || binding.Binding != 0 {
		t.Errorf("expected @group(0) @binding(0), got %d/%d", binding.Group, binding.Binding)
	}
	if binding.Name != "u" {
		t.Errorf("expected name 'u', got '%s'", binding.Name)
	}
	if binding.AddressSpace != "uniform" {
		t.Errorf("expected addressSpace 'uniform', got '%s'", binding.AddressSpace)
	}
	if binding.AccessMode != "" {
		t.Errorf("expected no accessMode for uniform, got '%s'", binding.AccessMode)
	}
	if binding.Type != "Inputs" {
		t.Errorf("expected type 'Inputs', got '%s'", binding.Type)
	}
	if binding.Layout == nil {
		t.Fatal("expected layout to be set")
	}

	// Total: 20 bytes, rounded up to alignment 8 = 24 bytes
	if binding.Layout.Alignment != 8 {
		t.Errorf("expected alignment 8, got %d", binding.Layout.Alignment)
	}
	if binding.Layout.Size != 24 {
		t.Errorf("expected size 24, got %d", binding.Layout.Size)
	}
	checkFields(t, binding.Layout, []fieldExpectation{
		{"time", 0, 4, 4},
		{"resolution", 8, 8, 8}, // Aligned to 8
		{"brightness", 16, 4, 4},
	})

	if _, ok := result.Structs["Inputs"]; !ok {
		t.Error("expected Inputs in Structs")
	}
}

func TestVec3Alignment(t *testing.T) {
	// vec3 has alignment=16 but size=12
	result := reflectSource(t, `
struct WithVec3 {
    a: f32,
    b: vec3<f32>,
    c: f32,
}
@group(0) @binding(0) var<uniform> u: WithVec3;
`)

	layout := result.Bindings[0].Layout
	if layout.Alignment != 16 {
		t.Errorf("expected alignment 16, got %d", layout.Alignment)
	}
	if layout.Size != 32 {
		t.Errorf("expected size 32, got %d", layout.Size)
	}
	checkFields(t, layout, []fieldExpectation{
		{"a", 0, 4, 4},
		{"b", 16, 12, 16},
		{"c", 28, 4, 4},
	})
}

func TestNestedStruct(t *testing.T) {
	result := reflectSource(t, `
struct Light {
    position: vec3<f32>,
    intensity: f32,
}
struct Scene {
    ambient: f32,
    lights: array<Light, 2>,
}
@group(0) @binding(0) var<storage, read> scene: Scene;
`)

	b := result.Bindings[0]
	if b.AddressSpace != "storage" || b.AccessMode != "read" {
		t.Errorf("expected storage/read, got %s/%s", b.AddressSpace, b.AccessMode)
	}
	checkFields(t, b.Layout, []fieldExpectation{
		{"ambient", 0, 4, 4},
		{"lights", 16, 32, 16},
	})
	lights := b.Layout.Fields[1].Layout
	if lights == nil {
		t.Fatal("expected a nested layout for array<Light, 2>")
	}
	checkFields(t, lights, []fieldExpectation{
		{"position", 0, 12, 16},
		{"intensity", 12, 4, 4},
	})
	if b.Layout.Size != 48 {
		t.Errorf("expected size 48, got %d", b.Layout.Size)
	}
}

func TestMultipleBindings(t *testing.T) {
	result := reflectSource(t, `
struct Uniforms {
    mvp: mat4x4<f32>,
}
@group(0) @binding(0) var<uniform> uniforms: Uniforms;
@group(0) @binding(1) var texSampler: sampler;
@group(0) @binding(2) var tex: texture_2d<f32>;
@group(1) @binding(0) var<storage, read_write> data: array<f32>;
`)

	if len(result.Bindings) != 4 {
		t.Fatalf("expected 4 bindings, got %d", len(result.Bindings))
	}

	tests := []struct {
		name, space, access, typ string
		group, binding           int
		hasLayout                bool
	}{
		{"uniforms", "uniform", "", "Uniforms", 0, 0, true},
		{"texSampler", "handle", "", "sampler", 0, 1, false},
		{"tex", "handle", "", "texture_2d<f32>", 0, 2, false},
		{"data", "storage", "read_write", "array<f32>", 1, 0, false},
	}
	for i, tt := range tests {
		b := result.Bindings[i]
		if b.Name != tt.name || b.AddressSpace != tt.space || b.AccessMode != tt.access || b.Type != tt.typ {
			t.Errorf("binding %d: got %+v", i, b)
		}
		if b.Group != tt.group || b.Binding != tt.binding {
			t.Errorf("binding %s: expected %d/%d, got %d/%d", tt.name, tt.group, tt.binding, b.Group, b.Binding)
		}
		if (b.Layout != nil) != tt.hasLayout {
			t.Errorf("binding %s: layout presence %v", tt.name, b.Layout != nil)
		}
	}
}

func TestEntryPoints(t *testing.T) {
	result := reflectSource(t, `
struct VSOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) uv: vec2<f32>,
    @location(2) shade: f32,
}

@compute @workgroup_size(8, 8, 1)
fn main() {}

@vertex
fn vertMain() -> VSOut {
    return VSOut(vec4<f32>(0.0), vec2<f32>(0.0), 1.0);
}

@fragment
fn fragMain() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}

fn helperFunc() {}
`)

	if len(result.EntryPoints) != 3 {
		t.Fatalf("expected 3 entry points, got %d", len(result.EntryPoints))
	}

	compute, vertex, fragment := result.EntryPoints[0], result.EntryPoints[1], result.EntryPoints[2]
	if compute.Name != "main" || compute.Stage != "compute" {
		t.Errorf("unexpected compute entry point %+v", compute)
	}
	if len(compute.WorkgroupSize) != 3 || compute.WorkgroupSize[0] != 8 || compute.WorkgroupSize[1] != 8 || compute.WorkgroupSize[2] != 1 {
		t.Errorf("expected workgroup size [8,8,1], got %v", compute.WorkgroupSize)
	}

	if vertex.Name != "vertMain" || vertex.Stage != "vertex" || vertex.WorkgroupSize != nil {
		t.Errorf("unexpected vertex entry point %+v", vertex)
	}
	if len(vertex.Outputs) != 2 {
		t.Fatalf("expected 2 vertex outputs, got %v", vertex.Outputs)
	}
	if vertex.Outputs[0] != (LocationInfo{Name: "uv", Location: 0, Type: "vec2<f32>"}) {
		t.Errorf("unexpected output %+v", vertex.Outputs[0])
	}
	if vertex.Outputs[1].Location != 2 {
		t.Errorf("expected location 2, got %d", vertex.Outputs[1].Location)
	}

	if fragment.Name != "fragMain" || len(fragment.Outputs) != 1 || fragment.Outputs[0].Type != "vec4<f32>" {
		t.Errorf("unexpected fragment entry point %+v", fragment)
	}
}

func TestReflectAfterTruncation(t *testing.T) {
	prog := program.Parse(`
struct VSOut {
    @builtin(position) pos: vec4<f32>,
    @location(0) uv: vec2<f32>,
    @location(1) shade: f32,
}
@vertex
fn vs() -> VSOut {
    return VSOut(vec4<f32>(0.0), vec2<f32>(0.0), 1.0);
}
`)
	if !prog.IsValid() {
		t.Fatalf("unexpected errors: %s", prog.Diagnostics.Format())
	}

	out := transform.NewManager(&transform.TruncateInterstageVariables{}).Run(prog,
		transform.NewDataMap(&transform.TruncateInterstageVariablesConfig{InterstageLocations: 1 << 1}))
	if !out.Program.IsValid() {
		t.Fatalf("unexpected errors: %s", out.Program.Diagnostics.Format())
	}

	result := ReflectProgram(out.Program)
	outputs := result.EntryPoints[0].Outputs
	if len(outputs) != 1 || outputs[0].Name != "shade" || outputs[0].Location != 1 {
		t.Errorf("expected only shade at location 1, got %+v", outputs)
	}
	if _, ok := result.Structs["VSOut_truncated"]; !ok {
		t.Error("expected VSOut_truncated in Structs")
	}
}

func TestParseErrors(t *testing.T) {
	result := Reflect("fn main( {")
	if len(result.Errors) == 0 {
		t.Error("expected errors for invalid source")
	}
	if result.Structs == nil {
		t.Error("expected an empty struct map")
	}
}
