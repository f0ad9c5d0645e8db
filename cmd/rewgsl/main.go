// Command rewgsl runs the WGSL transform pipeline over a shader.
//
// Usage:
//
//	rewgsl [options] <input.wgsl>
//	cat input.wgsl | rewgsl [options]
//	rewgsl passes
//	rewgsl reflect <input.wgsl>
//
// Config file:
//
//	rewgsl looks for rewgsl.json or .rewgslrc in the input's directory
//	and parent directories. Config file options are overridden by CLI flags.
//
// Example rewgsl.json:
//
//	{
//	    "entryPoint": "main",
//	    "robustness": {"action": "clamp", "spaces": {"texture": "ignore"}},
//	    "interstageLocations": [0, 1],
//	    "rename": "keywords"
//	}
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/urfave/cli/v3"
	"golang.org/x/term"

	"github.com/HugoDaniel/rewgsl/internal/config"
	"github.com/HugoDaniel/rewgsl/internal/sourcemap"
	"github.com/HugoDaniel/rewgsl/pkg/api"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	if err := newCommand().Run(context.Background(), os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func newCommand() *cli.Command {
	return &cli.Command{
		Name:      "rewgsl",
		Usage:     "Lower WGSL shaders through a sequence of AST transforms",
		Version:   fmt.Sprintf("%s (%s)", version, commit),
		ArgsUsage: "[input.wgsl]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Write output to `file` (default: stdout)",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "Use specific config `file`",
			},
			&cli.BoolFlag{
				Name:  "no-config",
				Usage: "Ignore config files",
			},
			&cli.StringSliceFlag{
				Name:    "pass",
				Aliases: []string{"p"},
				Usage:   "Run the named pass; repeat to build a pipeline (see 'rewgsl passes')",
			},
			&cli.StringFlag{
				Name:  "entry-point",
				Usage: "Keep only the entry point `name`",
			},
			&cli.StringFlag{
				Name:  "robustness",
				Usage: "Out of bounds action: clamp, predicate or ignore",
			},
			&cli.StringFlag{
				Name:  "interstage-locations",
				Usage: "Comma-separated vertex output `locations` the fragment stage reads",
			},
			&cli.BoolFlag{
				Name:  "rename",
				Usage: "Rename declarations to short names",
			},
			&cli.StringFlag{
				Name:  "preserve",
				Usage: "Comma-separated `names` the renamer keeps",
			},
			&cli.BoolFlag{
				Name:  "no-color",
				Usage: "Disable ANSI color output",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "Log each pass and print internal error stacks",
			},
		},
		Action: transformAction,
		Commands: []*cli.Command{
			{
				Name:   "passes",
				Usage:  "List the available passes in default pipeline order",
				Action: passesAction,
			},
			{
				Name:      "reflect",
				Usage:     "Print bindings, struct layouts and entry points as JSON",
				ArgsUsage: "[input.wgsl]",
				Action:    reflectAction,
			},
		},
	}
}

func transformAction(ctx context.Context, cmd *cli.Command) error {
	setupLogging(cmd.Bool("verbose"))
	input := cmd.Args().First()

	source, err := readInput(input)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, input)
	if err != nil {
		return err
	}
	locations, err := parseLocations(cmd.String("interstage-locations"))
	if err != nil {
		return err
	}
	cfg = cfg.Merge(config.MergeOptions{
		Passes:              cmd.StringSlice("pass"),
		EntryPoint:          cmd.String("entry-point"),
		Robustness:          cmd.String("robustness"),
		InterstageLocations: locations,
		Rename:              cmd.Bool("rename"),
		Preserve:            splitList(cmd.String("preserve")),
	})

	output := cmd.String("output")
	result := api.TransformWithConfig(string(source), cfg, api.Output{
		SourceMap:        cmd.Bool("source-map"),
		SourceName:       baseName(input),
		File:             baseName(output),
		MinifyWhitespace: cmd.Bool("minify-whitespace"),
	})
	if result.Err != nil {
		if cmd.Bool("verbose") {
			fmt.Fprintf(errWriter(cmd), "%+v\n", result.Err)
		}
		return result.Err
	}

	color := useColor(cmd.Bool("no-color"))
	name := input
	if name == "" {
		name = "<stdin>"
	}
	for _, d := range result.Diagnostics {
		fmt.Fprintln(errWriter(cmd), formatDiagnostic(name, d, color))
	}
	if result.Failed() {
		return errors.Errorf("transform failed with %d diagnostic(s)", len(result.Diagnostics))
	}

	for from, to := range result.Remappings {
		slog.Debug("renamed", "from", from, "to", to)
	}
	code := result.Code
	if result.SourceMap != "" {
		if code, err = attachSourceMap(code, result.SourceMap, output); err != nil {
			return err
		}
	}
	return writeOutput(cmd, output, code)
}

func passesAction(ctx context.Context, cmd *cli.Command) error {
	for _, name := range api.Passes() {
		fmt.Fprintln(outWriter(cmd), name)
	}
	return nil
}

func reflectAction(ctx context.Context, cmd *cli.Command) error {
	source, err := readInput(cmd.Args().First())
	if err != nil {
		return err
	}
	result := api.Reflect(string(source))
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			fmt.Fprintf(errWriter(cmd), "error: %s\n", e)
		}
		return errors.Errorf("reflection failed with %d error(s)", len(result.Errors))
	}
	enc := json.NewEncoder(outWriter(cmd))
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(result), "writing output")
}

// ----------------------------------------------------------------------------
// Helpers
// ----------------------------------------------------------------------------

func setupLogging(verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

func readInput(path string) ([]byte, error) {
	if path != "" {
		source, err := os.ReadFile(path)
		return source, errors.Wrap(err, "reading input")
	}

	// Check if stdin is a pipe
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return nil, errors.New("no input file specified")
	}
	source, err := io.ReadAll(os.Stdin)
	return source, errors.Wrap(err, "reading stdin")
}

// loadConfig returns the config named by --config, the one found next to
// the input, or nil.
func loadConfig(cmd *cli.Command, input string) (*config.Config, error) {
	if cmd.Bool("no-config") {
		return nil, nil
	}
	if file := cmd.String("config"); file != "" {
		cfg, err := config.LoadFile(file)
		return cfg, errors.Wrapf(err, "loading config file %s", file)
	}

	startDir, _ := os.Getwd()
	if input != "" {
		startDir = filepath.Dir(input)
	}
	cfg, path, err := config.Load(startDir)
	if err != nil {
		return nil, errors.Wrap(err, "loading config")
	}
	if path != "" {
		slog.Debug("using config", "path", path)
	}
	return cfg, nil
}

func parseLocations(s string) ([]uint32, error) {
	if s == "" {
		return nil, nil
	}
	locations := []uint32{}
	for _, part := range splitList(s) {
		n, err := strconv.ParseUint(part, 10, 32)
		if err != nil {
			return nil, errors.Wrapf(err, "interstage location %q", part)
		}
		locations = append(locations, uint32(n))
	}
	return locations, nil
}

func baseName(path string) string {
	if path == "" {
		return ""
	}
	return filepath.Base(path)
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

const (
	ansiRed    = "\033[31m"
	ansiYellow = "\033[33m"
	ansiBold   = "\033[1m"
	ansiReset  = "\033[0m"
)

// useColor reports whether diagnostics on stderr get ANSI colors.
func useColor(noColor bool) bool {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

func formatDiagnostic(file string, d api.Diagnostic, color bool) string {
	severity := d.Severity
	if color {
		switch d.Severity {
		case "error":
			severity = ansiBold + ansiRed + severity + ansiReset
		case "warning":
			severity = ansiBold + ansiYellow + severity + ansiReset
		}
	}
	line := fmt.Sprintf("%s:%d:%d: %s: %s", file, d.Line, d.Column, severity, d.Message)
	if d.Code != "" {
		line += " [" + d.Code + "]"
	}
	return line
}

// attachSourceMap writes the map to output+".map" and links it from the
// code, or inlines it as a data URI when output is stdout.
func attachSourceMap(code, mapJSON, output string) (string, error) {
	var sm sourcemap.SourceMap
	if err := json.Unmarshal([]byte(mapJSON), &sm); err != nil {
		return "", errors.Wrap(err, "decoding source map")
	}
	if output == "" {
		return code + sm.ToComment(true) + "\n", nil
	}
	if err := os.WriteFile(output+".map", []byte(mapJSON), 0644); err != nil {
		return "", errors.Wrap(err, "writing source map")
	}
	return code + sm.ToComment(false) + "\n", nil
}

func writeOutput(cmd *cli.Command, path, code string) error {
	if path == "" {
		_, err := io.WriteString(outWriter(cmd), code)
		return errors.Wrap(err, "writing output")
	}
	return errors.Wrap(os.WriteFile(path, []byte(code), 0644), "writing output")
}

func outWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func errWriter(cmd *cli.Command) io.Writer {
	if w := cmd.Root().ErrWriter; w != nil {
		return w
	}
	return os.Stderr
}
