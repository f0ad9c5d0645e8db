package transform

import (
	"github.com/pkg/errors"
)

// registry lists every pass in the order DefaultPasses runs them.
var registry = []struct {
	name string
	new  func() Transform
}{
	{"SingleEntryPoint", func() Transform { return &SingleEntryPoint{} }},
	{"Unshadow", func() Transform { return &Unshadow{} }},
	{"RemoveUnreachableStatements", func() Transform { return &RemoveUnreachableStatements{} }},
	{"PromoteSideEffectsToDecl", func() Transform { return &PromoteSideEffectsToDecl{} }},
	{"DirectVariableAccess", func() Transform { return &DirectVariableAccess{} }},
	{"SimplifyPointers", func() Transform { return &SimplifyPointers{} }},
	{"RemovePhonies", func() Transform { return &RemovePhonies{} }},
	{"ExpandCompoundAssignment", func() Transform { return &ExpandCompoundAssignment{} }},
	{"Robustness", func() Transform { return &Robustness{} }},
	{"LocalizeStructArrayAssignment", func() Transform { return &LocalizeStructArrayAssignment{} }},
	{"TruncateInterstageVariables", func() Transform { return &TruncateInterstageVariables{} }},
	{"DecomposeStridedMatrix", func() Transform { return &DecomposeStridedMatrix{} }},
	{"CalculateArrayLength", func() Transform { return &CalculateArrayLength{} }},
	{"DecomposeMemoryAccess", func() Transform { return &DecomposeMemoryAccess{} }},
	{"Renamer", func() Transform { return &Renamer{} }},
}

// optional lists the passes that only run by default when their
// configuration is present.
var optional = map[string]bool{
	"SingleEntryPoint":            true,
	"TruncateInterstageVariables": true,
	"Renamer":                     true,
}

// Names returns the name of every pass, in pipeline order.
func Names() []string {
	out := make([]string, len(registry))
	for i, r := range registry {
		out[i] = r.name
	}
	return out
}

// New creates the pass called name.
func New(name string) (Transform, error) {
	for _, r := range registry {
		if r.name == name {
			return r.new(), nil
		}
	}
	return nil, errors.Errorf("unknown transform %q", name)
}

// DefaultPasses returns the pipeline run when no passes are named. The
// passes needing configuration are included when inputs carries it.
func DefaultPasses(inputs *DataMap) []Transform {
	present := map[string]bool{}
	if _, ok := Get[*SingleEntryPointConfig](inputs); ok {
		present["SingleEntryPoint"] = true
	}
	if _, ok := Get[*TruncateInterstageVariablesConfig](inputs); ok {
		present["TruncateInterstageVariables"] = true
	}
	if _, ok := Get[*RenamerConfig](inputs); ok {
		present["Renamer"] = true
	}

	var out []Transform
	for _, r := range registry {
		if optional[r.name] && !present[r.name] {
			continue
		}
		out = append(out, r.new())
	}
	return out
}
