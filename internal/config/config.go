// Package config handles loading pipeline configuration from files.
//
// Configuration can be specified in a JSON file named rewgsl.json or .rewgslrc.
// The config file is searched for in the input's directory and parent directories.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/transform"
)

// Config represents the configuration file structure.
// All fields are optional and will use default values if not specified.
type Config struct {
	// Passes names the transforms to run, in order. When empty the
	// default pipeline runs.
	Passes []string `json:"passes,omitempty"`

	// EntryPoint strips the module down to this entry point
	EntryPoint string `json:"entryPoint,omitempty"`

	// Robustness selects what out of bounds accesses turn into
	Robustness *Robustness `json:"robustness,omitempty"`

	// IgnoredBindings lists resources Robustness leaves alone
	IgnoredBindings []Binding `json:"ignoredBindings,omitempty"`

	// InterstageLocations lists the vertex output locations the fragment
	// stage reads. Nil keeps every output.
	InterstageLocations []uint32 `json:"interstageLocations,omitempty"`

	// Rename is "all", "keywords" or "none"
	Rename string `json:"rename,omitempty"`

	// Preserve lists names the renamer keeps
	Preserve []string `json:"preserve,omitempty"`
}

// Robustness is the robustness section of a config file.
type Robustness struct {
	// Action applies to every address space without an override:
	// "clamp", "predicate" or "ignore".
	Action string `json:"action,omitempty"`

	// Spaces overrides Action per space ("function", "storage", "texture", ...).
	Spaces map[string]string `json:"spaces,omitempty"`
}

// Binding is a resource binding point.
type Binding struct {
	Group   uint32 `json:"group"`
	Binding uint32 `json:"binding"`
}

// ConfigFileNames are the names searched for config files, in order of preference.
var ConfigFileNames = []string{
	"rewgsl.json",
	".rewgslrc",
	".rewgslrc.json",
}

// Load searches for a config file starting from the given directory
// and walking up to parent directories. Returns nil if no config file is found.
func Load(startDir string) (*Config, string, error) {
	dir := startDir
	for {
		for _, name := range ConfigFileNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				cfg, err := LoadFile(path)
				return cfg, path, err
			}
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root, no config found
			return nil, "", nil
		}
		dir = parent
	}
}

// LoadFile loads configuration from a specific file path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading config")
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrapf(err, "parsing %s", path)
	}

	return &cfg, nil
}

// MergeOptions holds the command line flags that override a config file.
// Zero values mean not specified.
type MergeOptions struct {
	Passes              []string
	EntryPoint          string
	Robustness          string
	InterstageLocations []uint32
	Rename              bool
	Preserve            []string
}

// Merge returns a copy of c with the CLI options applied. CLI options
// override config file options when specified. c may be nil.
func (c *Config) Merge(cli MergeOptions) *Config {
	var out Config
	if c != nil {
		out = *c
	}

	if len(cli.Passes) > 0 {
		out.Passes = cli.Passes
	}
	if cli.EntryPoint != "" {
		out.EntryPoint = cli.EntryPoint
	}
	if cli.Robustness != "" {
		r := Robustness{Action: cli.Robustness}
		if out.Robustness != nil {
			r.Spaces = out.Robustness.Spaces
		}
		out.Robustness = &r
	}
	if cli.InterstageLocations != nil {
		out.InterstageLocations = cli.InterstageLocations
	}
	if cli.Rename && (out.Rename == "" || out.Rename == "none") {
		out.Rename = "all"
	}
	if len(cli.Preserve) > 0 {
		// Append CLI names to config names
		out.Preserve = append(append([]string(nil), out.Preserve...), cli.Preserve...)
	}

	return &out
}

// ToPipeline builds the transform sequence and its inputs.
func (c *Config) ToPipeline() (*transform.Manager, *transform.DataMap, error) {
	inputs, err := c.Inputs()
	if err != nil {
		return nil, nil, err
	}
	if len(c.Passes) == 0 {
		return transform.NewManager(transform.DefaultPasses(inputs)...), inputs, nil
	}

	m := transform.NewManager()
	for _, name := range c.Passes {
		t, err := transform.New(name)
		if err != nil {
			return nil, nil, errors.Wrap(err, "passes")
		}
		m.Append(t)
	}
	return m, inputs, nil
}

// Inputs converts the configuration into per-pass inputs.
func (c *Config) Inputs() (*transform.DataMap, error) {
	inputs := transform.NewDataMap()

	if c.EntryPoint != "" {
		inputs.Add(&transform.SingleEntryPointConfig{EntryPoint: c.EntryPoint})
	}

	if c.Robustness != nil || len(c.IgnoredBindings) > 0 {
		r, err := c.robustness()
		if err != nil {
			return nil, err
		}
		inputs.Add(r)
	}

	if c.InterstageLocations != nil {
		var mask uint32
		for _, loc := range c.InterstageLocations {
			if loc >= 32 {
				return nil, errors.Errorf("interstageLocations: location %d out of range [0, 32)", loc)
			}
			mask |= 1 << loc
		}
		inputs.Add(&transform.TruncateInterstageVariablesConfig{InterstageLocations: mask})
	}

	switch c.Rename {
	case "", "none":
	case "all":
		inputs.Add(&transform.RenamerConfig{Target: transform.RenameAll, Preserve: c.Preserve})
	case "keywords":
		inputs.Add(&transform.RenamerConfig{Target: transform.RenameBackendKeywords, Preserve: c.Preserve})
	default:
		return nil, errors.Errorf("rename: unknown target %q", c.Rename)
	}

	return inputs, nil
}

func (c *Config) robustness() (*transform.RobustnessConfig, error) {
	out := &transform.RobustnessConfig{Actions: make(map[transform.RobustnessSpace]transform.RobustnessAction)}
	for _, b := range c.IgnoredBindings {
		out.IgnoredBindings = append(out.IgnoredBindings, sem.BindingPoint{Group: b.Group, Binding: b.Binding})
	}
	if c.Robustness == nil {
		return out, nil
	}

	if c.Robustness.Action != "" {
		a, err := parseAction(c.Robustness.Action)
		if err != nil {
			return nil, err
		}
		for _, s := range spaces {
			out.Actions[s] = a
		}
	}
	for name, action := range c.Robustness.Spaces {
		s, ok := spaceByName(name)
		if !ok {
			return nil, errors.Errorf("robustness: unknown space %q", name)
		}
		a, err := parseAction(action)
		if err != nil {
			return nil, err
		}
		out.Actions[s] = a
	}
	return out, nil
}

var spaces = []transform.RobustnessSpace{
	transform.SpaceFunction,
	transform.SpacePrivate,
	transform.SpaceWorkgroup,
	transform.SpaceUniform,
	transform.SpaceStorage,
	transform.SpaceValue,
	transform.SpaceTexture,
}

func spaceByName(name string) (transform.RobustnessSpace, bool) {
	for _, s := range spaces {
		if s.String() == name {
			return s, true
		}
	}
	return 0, false
}

func parseAction(name string) (transform.RobustnessAction, error) {
	for _, a := range []transform.RobustnessAction{
		transform.RobustnessClamp,
		transform.RobustnessPredicate,
		transform.RobustnessIgnore,
	} {
		if a.String() == name {
			return a, nil
		}
	}
	return 0, errors.Errorf("robustness: unknown action %q", name)
}
