// Package reflect provides WGSL shader reflection capabilities.
// It extracts binding information, struct layouts, and entry points
// from a resolved program, so it describes the module as it is after any
// transforms have run.
package reflect

import (
	"github.com/HugoDaniel/rewgsl/internal/ast"
	"github.com/HugoDaniel/rewgsl/internal/program"
	"github.com/HugoDaniel/rewgsl/internal/sem"
	"github.com/HugoDaniel/rewgsl/internal/types"
)

// ReflectResult contains all reflection information for a shader module.
type ReflectResult struct {
	Bindings    []BindingInfo           `json:"bindings"`
	Structs     map[string]StructLayout `json:"structs"`
	EntryPoints []EntryPointInfo        `json:"entryPoints"`
	Errors      []string                `json:"errors,omitempty"`
}

// BindingInfo describes a single @group/@binding variable.
type BindingInfo struct {
	Group        int           `json:"group"`
	Binding      int           `json:"binding"`
	Name         string        `json:"name"`
	AddressSpace string        `json:"addressSpace"`
	AccessMode   string        `json:"accessMode,omitempty"`
	Type         string        `json:"type"`
	Layout       *StructLayout `json:"layout"` // null for textures/samplers
}

// StructLayout describes the memory layout of a struct.
type StructLayout struct {
	Size      int         `json:"size"`
	Alignment int         `json:"alignment"`
	Fields    []FieldInfo `json:"fields"`
}

// FieldInfo describes a single struct field.
type FieldInfo struct {
	Name      string        `json:"name"`
	Type      string        `json:"type"`
	Offset    int           `json:"offset"`
	Size      int           `json:"size"`
	Alignment int           `json:"alignment"`
	Layout    *StructLayout `json:"layout,omitempty"` // for nested structs
}

// EntryPointInfo describes a shader entry point function.
type EntryPointInfo struct {
	Name          string         `json:"name"`
	Stage         string         `json:"stage"`         // "vertex", "fragment", "compute"
	WorkgroupSize []int          `json:"workgroupSize"` // null for vertex/fragment
	Outputs       []LocationInfo `json:"outputs,omitempty"`
}

// LocationInfo describes an entry point output with a @location.
type LocationInfo struct {
	Name     string `json:"name"`
	Location int    `json:"location"`
	Type     string `json:"type"`
}

// Reflect parses and resolves source, then reflects it.
func Reflect(source string) ReflectResult {
	prog := program.Parse(source)
	if !prog.IsValid() {
		var errs []string
		for _, d := range prog.Diagnostics.Errors() {
			errs = append(errs, d.Message)
		}
		return ReflectResult{Structs: map[string]StructLayout{}, Errors: errs}
	}
	return ReflectProgram(prog)
}

// ReflectProgram extracts binding and struct information from a resolved
// program.
func ReflectProgram(prog *program.Program) ReflectResult {
	info := prog.Sem
	result := ReflectResult{
		Bindings:    []BindingInfo{},
		Structs:     make(map[string]StructLayout),
		EntryPoints: []EntryPointInfo{},
	}

	for _, d := range prog.AST.Structs() {
		if st := info.Struct(d); st != nil {
			result.Structs[st.Name] = *structLayout(st)
		}
	}

	for _, d := range prog.AST.GlobalVariables() {
		if b := extractBinding(info.Variable(d)); b != nil {
			result.Bindings = append(result.Bindings, *b)
		}
	}

	for _, fn := range info.Functions {
		if fn.IsEntryPoint() {
			result.EntryPoints = append(result.EntryPoints, extractEntryPoint(info, fn))
		}
	}

	return result
}

func extractBinding(v *sem.Variable) *BindingInfo {
	if v == nil || v.BindingPoint == nil {
		return nil
	}
	b := &BindingInfo{
		Group:        int(v.BindingPoint.Group),
		Binding:      int(v.BindingPoint.Binding),
		Name:         v.Name(),
		AddressSpace: addressSpaceToString(v.AddressSpace),
		Type:         v.Type.String(),
	}
	if v.AddressSpace == ast.AddressSpaceStorage {
		b.AccessMode = types.EffectiveAccess(v.AddressSpace, v.Access).String()
	}
	if st, ok := v.Type.(*types.Struct); ok {
		b.Layout = structLayout(st)
	}
	return b
}

func extractEntryPoint(info *sem.Info, fn *sem.Function) EntryPointInfo {
	ep := EntryPointInfo{
		Name:  fn.Decl.Name.Name(),
		Stage: fn.Stage.String(),
	}
	if fn.Stage == sem.StageCompute {
		ep.WorkgroupSize = []int{int(fn.WorkgroupSize[0]), int(fn.WorkgroupSize[1]), int(fn.WorkgroupSize[2])}
	}

	if st, ok := fn.ReturnType.(*types.Struct); ok {
		if decl := info.StructDecl(st); decl != nil {
			for i, m := range decl.Members {
				if loc, ok := location(info, m.Attributes); ok {
					ep.Outputs = append(ep.Outputs, LocationInfo{
						Name:     m.Name.Name(),
						Location: loc,
						Type:     st.Fields[i].Type.String(),
					})
				}
			}
		}
	} else if loc, ok := location(info, fn.Decl.ReturnAttributes); ok {
		ep.Outputs = []LocationInfo{{Location: loc, Type: fn.ReturnType.String()}}
	}
	return ep
}

func location(info *sem.Info, attrs []*ast.Attribute) (int, bool) {
	a := ast.FindAttribute(attrs, "location")
	if a == nil || len(a.Args) == 0 {
		return 0, false
	}
	x := info.Expr(a.Args[0])
	if x == nil || x.Value == nil {
		return 0, false
	}
	return int(x.Value.AsInt()), true
}

func structLayout(st *types.Struct) *StructLayout {
	layout := &StructLayout{
		Size:      st.Size(),
		Alignment: st.Align(),
		Fields:    make([]FieldInfo, len(st.Fields)),
	}
	for i, f := range st.Fields {
		layout.Fields[i] = FieldInfo{
			Name:      f.Name,
			Type:      f.Type.String(),
			Offset:    f.Offset,
			Size:      f.Size,
			Alignment: f.Align,
			Layout:    nestedLayout(f.Type),
		}
	}
	return layout
}

// nestedLayout returns the layout of a struct type, or of the struct
// element of an array.
func nestedLayout(t types.Type) *StructLayout {
	switch t := t.(type) {
	case *types.Struct:
		return structLayout(t)
	case *types.Array:
		return nestedLayout(t.Element)
	}
	return nil
}

func addressSpaceToString(as ast.AddressSpace) string {
	if as == ast.AddressSpaceHandle {
		return "handle"
	}
	return as.String()
}
