package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HugoDaniel/rewgsl/pkg/api"
)

const shader = `
var<private> arr: array<f32, 4>;
@compute @workgroup_size(1)
fn main(@builtin(local_invocation_index) i: u32) {
  arr[i] += 1.0;
}
`

func runCLI(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newCommand()
	cmd.Writer = &stdout
	cmd.ErrWriter = &stderr
	err := cmd.Run(context.Background(), append([]string{"rewgsl"}, args...))
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestTransformToStdout(t *testing.T) {
	in := writeFile(t, t.TempDir(), "in.wgsl", shader)

	out, _, err := runCLI(t, "--no-config", "--no-color", in)
	require.NoError(t, err)
	assert.Contains(t, out, "min(")
	assert.NotContains(t, out, "+=")
}

func TestTransformToFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.wgsl", shader)
	outPath := filepath.Join(dir, "out.wgsl")

	stdout, _, err := runCLI(t, "--no-config", "-o", outPath, "--pass", "ExpandCompoundAssignment", in)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "+=")
	assert.NotContains(t, string(data), "min(")
}

func TestSourceMapFile(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.wgsl", shader)
	outPath := filepath.Join(dir, "out.wgsl")

	_, _, err := runCLI(t, "--no-config", "--source-map", "-o", outPath, in)
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "//# sourceMappingURL=out.wgsl.map\n"))

	mapData, err := os.ReadFile(outPath + ".map")
	require.NoError(t, err)
	assert.Contains(t, string(mapData), `"sources":["in.wgsl"]`)
	assert.Contains(t, string(mapData), `"file":"out.wgsl"`)
}

func TestMinifyWhitespace(t *testing.T) {
	in := writeFile(t, t.TempDir(), "in.wgsl", shader)

	out, _, err := runCLI(t, "--no-config", "--minify-whitespace", "--pass", "ExpandCompoundAssignment", in)
	require.NoError(t, err)
	assert.Equal(t, "var<private>arr:array<f32,4>;", strings.SplitN(out, "@", 2)[0])
}

func TestSourceMapInline(t *testing.T) {
	in := writeFile(t, t.TempDir(), "in.wgsl", shader)

	out, _, err := runCLI(t, "--no-config", "--source-map", in)
	require.NoError(t, err)
	assert.Contains(t, out, "//# sourceMappingURL=data:application/json;base64,")
}

func TestConfigFileNextToInput(t *testing.T) {
	dir := t.TempDir()
	in := writeFile(t, dir, "in.wgsl", shader)
	writeFile(t, dir, "rewgsl.json", `{"passes": ["Robustness"], "robustness": {"action": "ignore"}}`)

	out, _, err := runCLI(t, in)
	require.NoError(t, err)
	assert.NotContains(t, out, "min(")
	assert.Contains(t, out, "+=")

	// Flags override the file
	out, _, err = runCLI(t, "--robustness", "clamp", in)
	require.NoError(t, err)
	assert.Contains(t, out, "min(")
}

func TestDiagnostics(t *testing.T) {
	in := writeFile(t, t.TempDir(), "bad.wgsl", "fn main( {")

	_, stderr, err := runCLI(t, "--no-config", "--no-color", in)
	require.Error(t, err)
	assert.Contains(t, stderr, "bad.wgsl:1:")
	assert.Contains(t, stderr, ": error: ")
	assert.NotContains(t, stderr, "\033[")
}

func TestInvalidFlags(t *testing.T) {
	in := writeFile(t, t.TempDir(), "in.wgsl", shader)

	_, _, err := runCLI(t, "--no-config", "--pass", "Minify", in)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Minify")

	_, _, err = runCLI(t, "--no-config", "--interstage-locations", "0,x", in)
	require.Error(t, err)
}

func TestPassesCommand(t *testing.T) {
	out, _, err := runCLI(t, "passes")
	require.NoError(t, err)
	assert.Contains(t, out, "SingleEntryPoint\n")
	assert.Contains(t, out, "DecomposeMemoryAccess\n")
}

func TestReflectCommand(t *testing.T) {
	in := writeFile(t, t.TempDir(), "in.wgsl", `
@group(0) @binding(3) var<uniform> tint: vec4<f32>;
@fragment fn fs() -> @location(0) vec4<f32> { return tint; }
`)
	out, _, err := runCLI(t, "reflect", in)
	require.NoError(t, err)
	assert.Contains(t, out, `"binding": 3`)
	assert.Contains(t, out, `"stage": "fragment"`)
}

func TestParseLocations(t *testing.T) {
	locs, err := parseLocations("0, 2,5")
	require.NoError(t, err)
	assert.Equal(t, []uint32{0, 2, 5}, locs)

	locs, err = parseLocations("")
	require.NoError(t, err)
	assert.Nil(t, locs)

	_, err = parseLocations("-1")
	assert.Error(t, err)
}

func TestFormatDiagnostic(t *testing.T) {
	d := api.Diagnostic{Severity: "error", Code: "E0100", Message: "undefined 'x'", Line: 3, Column: 7}
	assert.Equal(t, "a.wgsl:3:7: error: undefined 'x' [E0100]", formatDiagnostic("a.wgsl", d, false))
	assert.Equal(t, "a.wgsl:3:7: \033[1m\033[31merror\033[0m: undefined 'x' [E0100]", formatDiagnostic("a.wgsl", d, true))
}
