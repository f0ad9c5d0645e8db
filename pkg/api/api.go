// Package api provides the public API for the WGSL transform pipeline.
//
// This package is intended for programmatic use of the pipeline.
// For CLI usage, see cmd/rewgsl.
package api

import (
	"github.com/pkg/errors"

	"github.com/HugoDaniel/rewgsl/internal/config"
	"github.com/HugoDaniel/rewgsl/internal/diagnostic"
	"github.com/HugoDaniel/rewgsl/internal/printer"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/reflect"
	"github.com/HugoDaniel/rewgsl/internal/sourcemap"
	"github.com/HugoDaniel/rewgsl/internal/transform"
)

// Options controls which transforms run and how.
type Options struct {
	// Passes names the transforms to run, in order. When empty the
	// default pipeline runs (see Passes).
	Passes []string

	// EntryPoint strips the module down to one entry point.
	EntryPoint string

	// Robustness is "clamp", "predicate" or "ignore". Empty clamps.
	Robustness string

	// IgnoredBindings lists resources whose accesses are left unchecked.
	IgnoredBindings []Binding

	// InterstageLocations lists the vertex output locations the next
	// stage reads. Nil keeps every output.
	InterstageLocations []uint32

	// Rename is "all", "keywords" or empty for no renaming.
	Rename string

	// Preserve lists names the renamer keeps.
	Preserve []string

	Output
}

// Output selects what besides the code a transform produces.
type Output struct {
	// Reflect fills Result.Reflect with the bindings and entry points of
	// the transformed module.
	Reflect bool

	// SourceMap fills Result.SourceMap with a v3 source map from the
	// transformed code back to the input.
	SourceMap bool

	// SourceName is the input file name recorded in the source map.
	SourceName string

	// File is the output file name recorded in the source map.
	File string

	// MinifyWhitespace prints the code without indentation or line
	// breaks.
	MinifyWhitespace bool
}

// Binding is a resource binding point.
type Binding struct {
	Group   uint32
	Binding uint32
}

// Diagnostic is a message about the input or the configuration.
type Diagnostic struct {
	Severity string `json:"severity"`
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

// Result contains the transform output.
type Result struct {
	// Code is the transformed WGSL source. It is empty when Diagnostics
	// holds errors or Err is set.
	Code string

	// Diagnostics lists errors and warnings, in source order for the
	// input and pass order for the pipeline.
	Diagnostics []Diagnostic

	// Remappings maps old names to new ones when the Renamer ran.
	Remappings map[string]string

	// Reflect describes the transformed module when Output.Reflect is set.
	Reflect *ReflectResult

	// SourceMap is the source map JSON when Output.SourceMap is set.
	// Statements the pipeline created map to nothing.
	SourceMap string

	// Err is set for invalid options and internal compiler errors.
	// Printing it with %+v shows the stack of an internal error.
	Err error
}

// Failed reports whether the result carries errors.
func (r *Result) Failed() bool {
	if r.Err != nil {
		return true
	}
	for _, d := range r.Diagnostics {
		if d.Severity == diagnostic.Error.String() {
			return true
		}
	}
	return false
}

// Passes returns the names of all transforms, in default pipeline order.
func Passes() []string {
	return transform.Names()
}

// Transform runs the pipeline described by opts over source.
func Transform(source string, opts Options) Result {
	return TransformWithConfig(source, opts.config(), opts.Output)
}

// TransformWithConfig runs the pipeline described by cfg over source.
func TransformWithConfig(source string, cfg *config.Config, output Output) (result Result) {
	defer func() {
		if r := recover(); r != nil {
			ice, ok := diagnostic.AsInternalError(r)
			if !ok {
				panic(r)
			}
			result = Result{Err: ice}
		}
	}()

	if cfg == nil {
		cfg = &config.Config{}
	}
	manager, inputs, err := cfg.ToPipeline()
	if err != nil {
		return Result{Err: errors.Wrap(err, "invalid options")}
	}

	prog := program.Parse(source)
	if !prog.IsValid() {
		return Result{Diagnostics: convertDiagnostics(prog.Diagnostics)}
	}

	out := manager.Run(prog, inputs)
	result.Diagnostics = convertDiagnostics(out.Program.Diagnostics)
	if !out.Program.IsValid() {
		return result
	}

	var gen *sourcemap.Generator
	if output.SourceMap {
		gen = sourcemap.NewGenerator(source)
		gen.SetSourceName(output.SourceName)
		gen.SetFile(output.File)
		gen.IncludeSourceContent(true)
	}
	result.Code = printer.New(printer.Options{
		MinifyWhitespace: output.MinifyWhitespace,
		SourceMap:        gen,
	}).Print(out.Program.AST)
	if gen != nil {
		result.SourceMap = gen.Generate().ToJSON()
	}
	if data, ok := transform.Get[*transform.RenamerData](out.Data); ok {
		result.Remappings = data.Remappings
	}
	if output.Reflect {
		r := convertReflect(reflect.ReflectProgram(out.Program))
		result.Reflect = &r
	}
	return result
}

func (o Options) config() *config.Config {
	cfg := &config.Config{
		Passes:              o.Passes,
		EntryPoint:          o.EntryPoint,
		InterstageLocations: o.InterstageLocations,
		Rename:              o.Rename,
		Preserve:            o.Preserve,
	}
	if o.Robustness != "" {
		cfg.Robustness = &config.Robustness{Action: o.Robustness}
	}
	for _, b := range o.IgnoredBindings {
		cfg.IgnoredBindings = append(cfg.IgnoredBindings, config.Binding{Group: b.Group, Binding: b.Binding})
	}
	return cfg
}

func convertDiagnostics(dl *diagnostic.DiagnosticList) []Diagnostic {
	if dl == nil {
		return nil
	}
	var out []Diagnostic
	for _, d := range dl.Diagnostics() {
		out = append(out, Diagnostic{
			Severity: d.Severity.String(),
			Code:     d.Code,
			Message:  d.Message,
			Line:     d.Range.Start.Line,
			Column:   d.Range.Start.Column,
		})
	}
	return out
}

// ----------------------------------------------------------------------------
// Reflection API
// ----------------------------------------------------------------------------

// ReflectResult contains binding and struct information from a WGSL shader.
type ReflectResult struct {
	// Bindings contains all @group/@binding variable declarations.
	Bindings []BindingInfo `json:"bindings"`

	// Structs contains layout information for all struct types.
	Structs map[string]StructLayout `json:"structs"`

	// EntryPoints contains all shader entry point functions.
	EntryPoints []EntryPointInfo `json:"entryPoints"`

	// Errors contains any errors encountered during parsing.
	Errors []string `json:"errors,omitempty"`
}

// BindingInfo describes a variable with @group/@binding attributes.
type BindingInfo struct {
	// Group is the binding group index from @group(n).
	Group int `json:"group"`

	// Binding is the binding index from @binding(n).
	Binding int `json:"binding"`

	// Name is the variable name.
	Name string `json:"name"`

	// AddressSpace is the memory address space: "uniform", "storage", "handle", or "".
	AddressSpace string `json:"addressSpace"`

	// AccessMode is the access mode for storage bindings: "read", "write", "read_write", or "".
	AccessMode string `json:"accessMode,omitempty"`

	// Type is the type as a string (e.g., "MyStruct", "texture_2d<f32>").
	Type string `json:"type"`

	// Layout contains the memory layout for struct types.
	// Nil for textures and samplers.
	Layout *StructLayout `json:"layout"`
}

// StructLayout describes the memory layout of a struct type.
type StructLayout struct {
	// Size is the total size in bytes.
	Size int `json:"size"`

	// Alignment is the required alignment in bytes.
	Alignment int `json:"alignment"`

	// Fields contains layout information for each struct field.
	Fields []FieldInfo `json:"fields"`
}

// FieldInfo describes a struct field with its memory layout.
type FieldInfo struct {
	Name      string        `json:"name"`
	Type      string        `json:"type"`
	Offset    int           `json:"offset"`
	Size      int           `json:"size"`
	Alignment int           `json:"alignment"`
	Layout    *StructLayout `json:"layout,omitempty"`
}

// EntryPointInfo describes a shader entry point function.
type EntryPointInfo struct {
	// Name is the function name.
	Name string `json:"name"`

	// Stage is the shader stage: "vertex", "fragment", or "compute".
	Stage string `json:"stage"`

	// WorkgroupSize is [x, y, z] for compute shaders, nil for others.
	WorkgroupSize []int `json:"workgroupSize"`

	// Outputs lists the @location outputs.
	Outputs []LocationInfo `json:"outputs,omitempty"`
}

// LocationInfo describes an entry point output with a @location.
type LocationInfo struct {
	Name     string `json:"name"`
	Location int    `json:"location"`
	Type     string `json:"type"`
}

// Reflect extracts binding, struct, and entry point information from WGSL
// source without transforming it.
func Reflect(source string) ReflectResult {
	return convertReflect(reflect.Reflect(source))
}

func convertReflect(result reflect.ReflectResult) ReflectResult {
	return ReflectResult{
		Bindings:    convertBindings(result.Bindings),
		Structs:     convertStructs(result.Structs),
		EntryPoints: convertEntryPoints(result.EntryPoints),
		Errors:      result.Errors,
	}
}

// convertBindings converts internal binding info to API types.
func convertBindings(bindings []reflect.BindingInfo) []BindingInfo {
	result := make([]BindingInfo, len(bindings))
	for i, b := range bindings {
		result[i] = BindingInfo{
			Group:        b.Group,
			Binding:      b.Binding,
			Name:         b.Name,
			AddressSpace: b.AddressSpace,
			AccessMode:   b.AccessMode,
			Type:         b.Type,
			Layout:       convertStructLayout(b.Layout),
		}
	}
	return result
}

// convertStructs converts internal struct layouts to API types.
func convertStructs(structs map[string]reflect.StructLayout) map[string]StructLayout {
	result := make(map[string]StructLayout, len(structs))
	for name, s := range structs {
		result[name] = StructLayout{
			Size:      s.Size,
			Alignment: s.Alignment,
			Fields:    convertFields(s.Fields),
		}
	}
	return result
}

func convertStructLayout(layout *reflect.StructLayout) *StructLayout {
	if layout == nil {
		return nil
	}
	return &StructLayout{
		Size:      layout.Size,
		Alignment: layout.Alignment,
		Fields:    convertFields(layout.Fields),
	}
}

func convertFields(fields []reflect.FieldInfo) []FieldInfo {
	result := make([]FieldInfo, len(fields))
	for i, f := range fields {
		result[i] = FieldInfo{
			Name:      f.Name,
			Type:      f.Type,
			Offset:    f.Offset,
			Size:      f.Size,
			Alignment: f.Alignment,
			Layout:    convertStructLayout(f.Layout),
		}
	}
	return result
}

// convertEntryPoints converts entry point info to API types.
func convertEntryPoints(entryPoints []reflect.EntryPointInfo) []EntryPointInfo {
	result := make([]EntryPointInfo, len(entryPoints))
	for i, ep := range entryPoints {
		var outputs []LocationInfo
		for _, o := range ep.Outputs {
			outputs = append(outputs, LocationInfo{Name: o.Name, Location: o.Location, Type: o.Type})
		}
		result[i] = EntryPointInfo{
			Name:          ep.Name,
			Stage:         ep.Stage,
			WorkgroupSize: ep.WorkgroupSize,
			Outputs:       outputs,
		}
	}
	return result
}
