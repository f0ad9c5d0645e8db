package diagnostic

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiagnosticList(t *testing.T) {
	source := "fn f() {\n  let x = y;\n}\n"
	dl := NewDiagnosticList(source)
	dl.Errorf(19, CodeUndefinedSymbol, "undefined '%s'", "y")
	dl.Add(Diagnostic{Severity: Warning, Message: "unused 'x'", Range: dl.rangeAt(15)})

	require.Equal(t, 2, dl.Count())
	assert.True(t, dl.HasErrors())
	assert.Equal(t, 1, dl.ErrorCount())
	require.Len(t, dl.Errors(), 1)

	d := dl.Errors()[0]
	assert.Equal(t, "E0100", d.Code)
	assert.Equal(t, Position{Offset: 19, Line: 2, Column: 11}, d.Range.Start)
	assert.Equal(t, "2:11: error: undefined 'y'", d.Error())

	assert.Equal(t,
		"2:11: error: undefined 'y' [E0100]\n"+
			"      let x = y;\n"+
			"              ^\n"+
			"2:7: warning: unused 'x'\n"+
			"      let x = y;\n"+
			"          ^\n",
		dl.Format())
}

func TestAppend(t *testing.T) {
	a := NewDiagnosticList("x")
	b := NewDiagnosticList("x")
	b.AddError(0, "first")
	a.Append(b)
	a.Append(nil)
	assert.Equal(t, 1, a.ErrorCount())
	assert.Equal(t, "first", a.Diagnostics()[0].Message)
}

func TestICE(t *testing.T) {
	defer func() {
		ice, ok := AsInternalError(recover())
		require.True(t, ok)
		assert.Equal(t, "INTERNAL COMPILER ERROR: unexpected node *ast.Foo", ice.Error())
		assert.Contains(t, fmt.Sprintf("%+v", ice), "diagnostic_test.go")
	}()
	ICE("unexpected node %s", "*ast.Foo")
}

func TestAsInternalErrorOtherPanics(t *testing.T) {
	_, ok := AsInternalError("boom")
	assert.False(t, ok)
}
