package transform

import (
	"log/slog"

	"github.com/HugoDaniel/rewgsl/internal/program"
)

// Output is the result of running a Manager.
type Output struct {
	Program *program.Program
	Data    *DataMap
}

// Manager runs a sequence of transforms. It is a Transform itself, so
// managers nest.
type Manager struct {
	transforms []Transform
}

// NewManager creates a manager running transforms in order.
func NewManager(transforms ...Transform) *Manager {
	return &Manager{transforms: transforms}
}

// Append adds transforms to the end of the sequence.
func (m *Manager) Append(transforms ...Transform) {
	m.transforms = append(m.transforms, transforms...)
}

// Transforms returns the sequence.
func (m *Manager) Transforms() []Transform { return m.transforms }

func (m *Manager) Name() string { return "Manager" }

// Run applies every transform to prog and collects the data they output.
func (m *Manager) Run(prog *program.Program, inputs *DataMap) Output {
	outputs := NewDataMap()
	result := m.Apply(prog, inputs, outputs)
	if result == nil {
		result = CloneProgram(prog)
	}
	return Output{Program: result, Data: outputs}
}

// Apply runs the transforms. A skipped pass is followed by a plain clone
// so that every pass hands a fresh program to the next. The sequence
// stops at the first program carrying errors. Apply returns nil only when
// there is nothing to run.
func (m *Manager) Apply(src *program.Program, inputs, outputs *DataMap) *program.Program {
	if len(m.transforms) == 0 {
		return nil
	}
	if inputs == nil {
		inputs = NewDataMap()
	}
	p := src
	for _, t := range m.transforms {
		result := t.Apply(p, inputs, outputs)
		skipped := result == nil
		if skipped {
			result = CloneProgram(p)
		}
		slog.Debug("transform", "pass", t.Name(), "skipped", skipped, "decls", len(result.AST.Decls))
		p = result
		if !p.IsValid() {
			slog.Debug("transform stopped", "pass", t.Name(), "errors", p.Diagnostics.ErrorCount())
			break
		}
	}
	return p
}
