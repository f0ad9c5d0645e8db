package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/transform"
)

func TestLoadFile(t *testing.T) {
	// Create temp config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "rewgsl.json")

	content := `{
		"passes": ["Unshadow", "Robustness"],
		"entryPoint": "main",
		"robustness": {"action": "predicate", "spaces": {"texture": "ignore"}},
		"ignoredBindings": [{"group": 1, "binding": 2}],
		"interstageLocations": [0, 3],
		"rename": "keywords",
		"preserve": ["foo", "bar"]
	}`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFile(configPath)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}

	if len(cfg.Passes) != 2 || cfg.Passes[1] != "Robustness" {
		t.Errorf("Passes: got %v, want [Unshadow Robustness]", cfg.Passes)
	}
	if cfg.EntryPoint != "main" {
		t.Errorf("EntryPoint: got %q, want main", cfg.EntryPoint)
	}
	if cfg.Robustness == nil || cfg.Robustness.Action != "predicate" || cfg.Robustness.Spaces["texture"] != "ignore" {
		t.Errorf("Robustness: got %+v", cfg.Robustness)
	}
	if len(cfg.IgnoredBindings) != 1 || cfg.IgnoredBindings[0] != (Binding{Group: 1, Binding: 2}) {
		t.Errorf("IgnoredBindings: got %v", cfg.IgnoredBindings)
	}
	if len(cfg.InterstageLocations) != 2 || cfg.InterstageLocations[1] != 3 {
		t.Errorf("InterstageLocations: got %v, want [0 3]", cfg.InterstageLocations)
	}
	if cfg.Rename != "keywords" {
		t.Errorf("Rename: got %q, want keywords", cfg.Rename)
	}
	if len(cfg.Preserve) != 2 || cfg.Preserve[0] != "foo" || cfg.Preserve[1] != "bar" {
		t.Errorf("Preserve: got %v, want [foo bar]", cfg.Preserve)
	}
}

func TestLoadFileErrors(t *testing.T) {
	tmpDir := t.TempDir()

	if _, err := LoadFile(filepath.Join(tmpDir, "missing.json")); err == nil {
		t.Error("expected an error for a missing file")
	}

	bad := filepath.Join(tmpDir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"passes": 3}`), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	if _, err := LoadFile(bad); err == nil {
		t.Error("expected an error for a malformed file")
	}
}

func TestLoad(t *testing.T) {
	// Create nested directories with config in parent
	tmpDir := t.TempDir()
	subDir := filepath.Join(tmpDir, "project", "shaders")
	if err := os.MkdirAll(subDir, 0755); err != nil {
		t.Fatalf("failed to create dirs: %v", err)
	}

	// Create config in project dir (one level up from shaders)
	configPath := filepath.Join(tmpDir, "project", "rewgsl.json")
	content := `{"entryPoint": "vs"}`

	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	// Search from shaders dir - should find config in parent
	cfg, foundPath, err := Load(subDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg == nil {
		t.Fatal("expected config, got nil")
	}

	if foundPath != configPath {
		t.Errorf("found config at %s, expected %s", foundPath, configPath)
	}

	if cfg.EntryPoint != "vs" {
		t.Errorf("EntryPoint: got %q, want vs", cfg.EntryPoint)
	}
}

func TestLoadNoConfig(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, path, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg != nil {
		t.Errorf("expected nil config, got %v", cfg)
	}

	if path != "" {
		t.Errorf("expected empty path, got %s", path)
	}
}

func TestConfigFileNames(t *testing.T) {
	// Test that all supported config file names are searched
	tmpDir := t.TempDir()

	// Test .rewgslrc (second priority)
	rcPath := filepath.Join(tmpDir, ".rewgslrc")
	if err := os.WriteFile(rcPath, []byte(`{"rename": "all"}`), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, foundPath, err := Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg == nil {
		t.Fatal("expected config, got nil")
	}
	if filepath.Base(foundPath) != ".rewgslrc" {
		t.Errorf("expected .rewgslrc, got %s", filepath.Base(foundPath))
	}

	// Now add rewgsl.json (higher priority) - should use that instead
	jsonPath := filepath.Join(tmpDir, "rewgsl.json")
	if err := os.WriteFile(jsonPath, []byte(`{"rename": "none"}`), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, foundPath, err = Load(tmpDir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if filepath.Base(foundPath) != "rewgsl.json" {
		t.Errorf("expected rewgsl.json (higher priority), got %s", filepath.Base(foundPath))
	}
	if cfg.Rename != "none" {
		t.Errorf("Rename: got %q, want none (from rewgsl.json)", cfg.Rename)
	}
}

func TestMerge(t *testing.T) {
	cfg := &Config{
		EntryPoint: "vs",
		Robustness: &Robustness{Action: "clamp", Spaces: map[string]string{"texture": "ignore"}},
		Rename:     "none",
		Preserve:   []string{"configName"},
	}

	merged := cfg.Merge(MergeOptions{
		EntryPoint: "fs",
		Robustness: "predicate",
		Rename:     true,
		Preserve:   []string{"cliName"},
	})

	// CLI should win
	if merged.EntryPoint != "fs" {
		t.Errorf("EntryPoint: got %q, want fs (CLI override)", merged.EntryPoint)
	}
	if merged.Robustness.Action != "predicate" || merged.Robustness.Spaces["texture"] != "ignore" {
		t.Errorf("Robustness: got %+v", merged.Robustness)
	}
	if merged.Rename != "all" {
		t.Errorf("Rename: got %q, want all (--rename)", merged.Rename)
	}
	if len(merged.Preserve) != 2 {
		t.Errorf("Preserve: got %v, want 2 items", merged.Preserve)
	}

	// The config itself is untouched
	if cfg.EntryPoint != "vs" || cfg.Robustness.Action != "clamp" || len(cfg.Preserve) != 1 {
		t.Errorf("Merge modified its receiver: %+v", cfg)
	}
}

func TestMergeNilConfig(t *testing.T) {
	var cfg *Config
	merged := cfg.Merge(MergeOptions{Passes: []string{"Unshadow"}})
	if len(merged.Passes) != 1 || merged.Passes[0] != "Unshadow" {
		t.Errorf("Passes: got %v", merged.Passes)
	}
}

func TestMergeKeepsConfigRenameTarget(t *testing.T) {
	cfg := &Config{Rename: "keywords"}
	if merged := cfg.Merge(MergeOptions{Rename: true}); merged.Rename != "keywords" {
		t.Errorf("Rename: got %q, want keywords", merged.Rename)
	}
}

func TestInputs(t *testing.T) {
	cfg := &Config{
		EntryPoint:          "main",
		Robustness:          &Robustness{Action: "predicate", Spaces: map[string]string{"texture": "ignore"}},
		IgnoredBindings:     []Binding{{Group: 0, Binding: 1}},
		InterstageLocations: []uint32{0, 2},
		Rename:              "keywords",
		Preserve:            []string{"keep"},
	}

	inputs, err := cfg.Inputs()
	if err != nil {
		t.Fatalf("Inputs failed: %v", err)
	}

	sep, ok := transform.Get[*transform.SingleEntryPointConfig](inputs)
	if !ok || sep.EntryPoint != "main" {
		t.Errorf("SingleEntryPointConfig: got %+v", sep)
	}

	rob, ok := transform.Get[*transform.RobustnessConfig](inputs)
	if !ok {
		t.Fatal("RobustnessConfig missing")
	}
	if rob.Actions[transform.SpaceStorage] != transform.RobustnessPredicate {
		t.Errorf("storage: got %v, want predicate", rob.Actions[transform.SpaceStorage])
	}
	if rob.Actions[transform.SpaceTexture] != transform.RobustnessIgnore {
		t.Errorf("texture: got %v, want ignore", rob.Actions[transform.SpaceTexture])
	}
	if len(rob.IgnoredBindings) != 1 || rob.IgnoredBindings[0] != (sem.BindingPoint{Group: 0, Binding: 1}) {
		t.Errorf("IgnoredBindings: got %v", rob.IgnoredBindings)
	}

	tiv, ok := transform.Get[*transform.TruncateInterstageVariablesConfig](inputs)
	if !ok || tiv.InterstageLocations != 0b101 {
		t.Errorf("TruncateInterstageVariablesConfig: got %+v", tiv)
	}

	ren, ok := transform.Get[*transform.RenamerConfig](inputs)
	if !ok || ren.Target != transform.RenameBackendKeywords || len(ren.Preserve) != 1 {
		t.Errorf("RenamerConfig: got %+v", ren)
	}
}

func TestInputsErrors(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown action", Config{Robustness: &Robustness{Action: "wrap"}}},
		{"unknown space", Config{Robustness: &Robustness{Spaces: map[string]string{"heap": "clamp"}}}},
		{"location out of range", Config{InterstageLocations: []uint32{32}}},
		{"unknown rename target", Config{Rename: "some"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cfg.Inputs(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestToPipeline(t *testing.T) {
	t.Run("default passes", func(t *testing.T) {
		m, _, err := (&Config{EntryPoint: "main"}).ToPipeline()
		if err != nil {
			t.Fatalf("ToPipeline failed: %v", err)
		}
		ts := m.Transforms()
		if len(ts) == 0 || ts[0].Name() != "SingleEntryPoint" {
			t.Errorf("expected SingleEntryPoint first, got %v", ts)
		}
		for _, tr := range ts {
			if tr.Name() == "Renamer" {
				t.Error("Renamer runs without a rename target")
			}
		}
	})

	t.Run("named passes", func(t *testing.T) {
		m, _, err := (&Config{Passes: []string{"RemovePhonies", "Unshadow"}}).ToPipeline()
		if err != nil {
			t.Fatalf("ToPipeline failed: %v", err)
		}
		ts := m.Transforms()
		if len(ts) != 2 || ts[0].Name() != "RemovePhonies" || ts[1].Name() != "Unshadow" {
			t.Errorf("unexpected passes %v", ts)
		}
	})

	t.Run("unknown pass", func(t *testing.T) {
		if _, _, err := (&Config{Passes: []string{"Minify"}}).ToPipeline(); err == nil {
			t.Error("expected an error")
		}
	})
}
