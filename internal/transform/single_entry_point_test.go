package transform

import (
	"testing"

	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const twoEntryPoints = `
struct Light {
  color: vec3<f32>,
}
@group(0) @binding(0) var<uniform> light: Light;
var<private> counter: u32;
fn shade(c: vec3<f32>) -> vec4<f32> {
  return vec4<f32>(c, 1.0);
}
@fragment fn fs() -> @location(0) vec4<f32> {
  return shade(light.color);
}
@compute @workgroup_size(1) fn cs() {
  counter = 1u;
}
`

func TestSingleEntryPoint(t *testing.T) {
	tr := &SingleEntryPoint{}

	t.Run("keeps the fragment stage", func(t *testing.T) {
		expectTransform(t, tr, twoEntryPoints, `
struct Light {
    color: vec3<f32>,
}

@group(0) @binding(0) var<uniform> light: Light;

fn shade(c: vec3<f32>) -> vec4<f32> {
    return vec4<f32>(c, 1.0);
}

@fragment fn fs() -> @location(0) vec4<f32> {
    return shade(light.color);
}
`, &SingleEntryPointConfig{EntryPoint: "fs"})
	})

	t.Run("keeps the compute stage", func(t *testing.T) {
		expectTransform(t, tr, twoEntryPoints, `
var<private> counter: u32;

@compute @workgroup_size(1) fn cs() {
    counter = 1u;
}
`, &SingleEntryPointConfig{EntryPoint: "cs"})
	})

	t.Run("nothing to remove", func(t *testing.T) {
		expectSkip(t, tr, "@compute @workgroup_size(1) fn main() {}",
			&SingleEntryPointConfig{EntryPoint: "main"})
	})

	t.Run("unknown entry point", func(t *testing.T) {
		got := tr.Apply(parseProgram(t, twoEntryPoints),
			NewDataMap(&SingleEntryPointConfig{EntryPoint: "shade"}), NewDataMap())
		require.NotNil(t, got)
		errs := got.Diagnostics.Errors()
		require.Len(t, errs, 1)
		assert.Equal(t, string(diagnostic.CodeInvalidTransformData), errs[0].Code)
		assert.Contains(t, errs[0].Message, "'shade'")
	})

	t.Run("missing config", func(t *testing.T) {
		got := tr.Apply(parseProgram(t, twoEntryPoints), NewDataMap(), NewDataMap())
		require.NotNil(t, got)
		require.Len(t, got.Diagnostics.Errors(), 1)
		assert.Equal(t, string(diagnostic.CodeMissingTransformData), got.Diagnostics.Errors()[0].Code)
	})
}
