package errors

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorReporter(t *testing.T) {
	source := `func @main(%arg0: buf<f32>[8]) {
  kernel "add" ins(%unknown) outs(%arg0) dims(8)
  return %arg0
}`

	reporter := NewErrorReporter("test.loom", source)

	err := New(ErrorUndefinedBuffer, "unknown buffer '%unknown'", Position{
		Filename: "test.loom",
		Line:     2,
		Column:   20,
	})
	formatted := reporter.FormatError(err)

	// Should contain error level and code
	assert.Contains(t, formatted, "error["+ErrorUndefinedBuffer+"]")
	assert.Contains(t, formatted, "unknown buffer")

	// Should contain location
	assert.Contains(t, formatted, "test.loom:2:20")

	// Should quote the offending source line
	assert.Contains(t, formatted, `kernel "add"`)
}

func TestErrorWithNotes(t *testing.T) {
	source := `func @f(%a: buf<f32>[4]) {
^exit:
  return %a
}`
	reporter := NewErrorReporter("test.loom", source)

	err := New(ErrorMultipleBlocks, "the function needs to have a single block", Position{
		Filename: "test.loom",
		Line:     1,
		Column:   1,
	}).WithNote("tiling and fusion do not support multi-block control flow")
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "note:")
	assert.Contains(t, formatted, "multi-block control flow")
}

func TestWarningFormatting(t *testing.T) {
	source := `%dead = alloc buf<f32>[4]`
	reporter := NewErrorReporter("test.loom", source)

	err := NewWarning("L0801", "buffer '%dead' is never read", Position{Line: 1, Column: 1})
	formatted := reporter.FormatError(err)

	assert.Contains(t, formatted, "warning[L0801]")
	assert.Contains(t, formatted, "never read")
}

func TestErrorMarkerCreation(t *testing.T) {
	source := `%result = alloc buf<f32>[4]`
	reporter := NewErrorReporter("test.loom", source)

	marker := reporter.createMarker(5, 7, Error)

	spaces := strings.Count(marker, " ")
	assert.Equal(t, 4, spaces) // column 5 means 4 spaces before
	carets := strings.Count(marker, "^")
	assert.Equal(t, 7, carets)
}

func TestErrorLevels(t *testing.T) {
	source := `test`
	reporter := NewErrorReporter("test.loom", source)
	pos := Position{Line: 1, Column: 1}

	errorErr := CompilerError{Level: Error, Message: "test error", Position: pos}
	warningErr := CompilerError{Level: Warning, Message: "test warning", Position: pos}

	assert.Contains(t, reporter.FormatError(errorErr), "error:")
	assert.Contains(t, reporter.FormatError(warningErr), "warning:")
}

func TestErrorInterface(t *testing.T) {
	err := New(ErrorDuplicateBuffer, "duplicate buffer definition '%a'", Position{Line: 1, Column: 1})
	assert.Equal(t, "error[L0003]: duplicate buffer definition '%a'", err.Error())

	plain := CompilerError{Level: Error, Message: "something broke"}
	assert.Equal(t, "error: something broke", plain.Error())
}
