package vbparser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_SingleFunction(t *testing.T) {
	src := "Public Function AddNumbers(a, b)\n    AddNumbers = a + b\nEnd Function\n"
	syms := Parse(src, 0, 0)

	require.Len(t, syms, 1)
	fn := syms[0]
	assert.Equal(t, "AddNumbers", fn.Name)
	assert.Equal(t, KindFunction, fn.Kind)
	assert.Equal(t, 0, fn.SelectionRange.Start.Line)
	assert.Equal(t, 16, fn.SelectionRange.Start.Character)
	assert.Equal(t, 26, fn.SelectionRange.End.Character)
	assert.Equal(t, 2, fn.Range.End.Line)
	assert.Empty(t, fn.Children)
}

func TestParse_ClassWithMembers(t *testing.T) {
	src := "Class Calculator\n  Public Sub Add(v)\n    m_R = m_R + v\n  End Sub\nEnd Class\n"
	syms := Parse(src, 0, 0)

	require.Len(t, syms, 1)
	cls := syms[0]
	assert.Equal(t, "Calculator", cls.Name)
	assert.Equal(t, KindClass, cls.Kind)
	assert.Equal(t, 0, cls.Range.Start.Line)
	assert.Equal(t, 4, cls.Range.End.Line)

	require.Len(t, cls.Children, 1)
	add := cls.Children[0]
	assert.Equal(t, "Add", add.Name)
	assert.Equal(t, KindFunction, add.Kind)
	assert.Equal(t, 1, add.SelectionRange.Start.Line)
}

func TestParse_PropertyGetLetSet(t *testing.T) {
	src := "Class Box\n" +
		"  Public Property Get Value()\n" +
		"    Value = m_V\n" +
		"  End Property\n" +
		"  Public Property Let Value(v)\n" +
		"    m_V = v\n" +
		"  End Property\n" +
		"End Class\n"
	syms := Parse(src, 0, 0)

	require.Len(t, syms, 1)
	require.Len(t, syms[0].Children, 2)
	assert.Equal(t, KindProperty, syms[0].Children[0].Kind)
	assert.Equal(t, KindProperty, syms[0].Children[1].Kind)
}

func TestParse_IgnoresOpenerInsideStringAndComment(t *testing.T) {
	src := "Function Real()\n" +
		"    x = \"Function Fake()\"\n" +
		"    ' Function AlsoFake()\n" +
		"    y = 1\n" +
		"End Function\n"
	syms := Parse(src, 0, 0)

	require.Len(t, syms, 1)
	assert.Equal(t, "Real", syms[0].Name)
}

func TestParse_EmbeddedQuoteDoesNotTerminateString(t *testing.T) {
	src := "Function F()\n" +
		"    x = \"say \"\"hi\"\" %>\"\n" +
		"End Function\n"
	syms := Parse(src, 0, 0)
	require.Len(t, syms, 1)
}

func TestParse_RemToken(t *testing.T) {
	src := "Function F()\n" +
		"REM Sub Fake()\n" +
		"End Function\n"
	syms := Parse(src, 0, 0)
	require.Len(t, syms, 1)
}

func TestParse_UnclosedOpenerExtendsToEOF(t *testing.T) {
	src := "Function F()\n    x = 1\n"
	syms := Parse(src, 0, 0)
	require.Len(t, syms, 1)
	// EOF of src is just past its final newline: line 2, character 0.
	assert.Equal(t, 2, syms[0].Range.End.Line)
	assert.Equal(t, 0, syms[0].Range.End.Character)
}

func TestParse_DuplicateNamesPreserved(t *testing.T) {
	src := "Function Foo()\nEnd Function\nFunction Foo()\nEnd Function\n"
	syms := Parse(src, 0, 0)
	require.Len(t, syms, 2)
	assert.Equal(t, "Foo", syms[0].Name)
	assert.Equal(t, "Foo", syms[1].Name)
}

func TestParse_FragmentAnchorOffsetsFirstLineColumnsOnly(t *testing.T) {
	// anchorLine=1, anchorChar=8 simulates a VBScript block lifted out of
	// an ASP file starting partway through line 1.
	src := "\nFunction Greet()\nEnd Function\n"
	syms := Parse(src, 1, 8)
	require.Len(t, syms, 1)
	assert.Equal(t, 2, syms[0].SelectionRange.Start.Line)
	// Second line onward: anchorChar is not added.
	assert.Equal(t, 9, syms[0].SelectionRange.Start.Character)
}

func TestParse_SubMapsToFunctionKind(t *testing.T) {
	src := "Sub DoThing()\nEnd Sub\n"
	syms := Parse(src, 0, 0)
	require.Len(t, syms, 1)
	assert.Equal(t, KindFunction, syms[0].Kind)
}
