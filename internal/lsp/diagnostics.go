package lsp

import (
	"github.com/alecthomas/participle/v2"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"loom/internal/errors"
)

// ConvertCompilerErrors transforms loom diagnostics into LSP diagnostics for
// IDE display. These cover lowering problems (unknown or duplicated buffers,
// multiple writers) and pass preconditions like multi-block bodies.
func ConvertCompilerErrors(errs []errors.CompilerError) []protocol.Diagnostic {
	var diagnostics []protocol.Diagnostic

	for _, cerr := range errs {
		length := cerr.Length
		if length <= 0 {
			length = 1
		}

		diagnostic := protocol.Diagnostic{
			Range: protocol.Range{
				Start: protocol.Position{
					Line:      uint32(cerr.Position.Line - 1),   // Convert to 0-based indexing
					Character: uint32(cerr.Position.Column - 1), // Convert to 0-based indexing
				},
				End: protocol.Position{
					Line:      uint32(cerr.Position.Line - 1),
					Character: uint32(cerr.Position.Column - 1 + length),
				},
			},
			Severity: ptrSeverity(severityFor(cerr.Level)),
			Code:     &protocol.IntegerOrString{Value: cerr.Code},
			Source:   ptrString("loom"),
			Message:  cerr.Message,
		}
		diagnostics = append(diagnostics, diagnostic)
	}

	return diagnostics
}

// ConvertParseError transforms a participle parse error into a single LSP
// diagnostic at the failing token.
func ConvertParseError(err error) []protocol.Diagnostic {
	pe, ok := err.(participle.Error)
	if !ok {
		return []protocol.Diagnostic{{
			Range:    protocol.Range{},
			Severity: ptrSeverity(protocol.DiagnosticSeverityError),
			Source:   ptrString("loom-parser"),
			Message:  err.Error(),
		}}
	}

	pos := pe.Position()
	return []protocol.Diagnostic{{
		Range: protocol.Range{
			Start: protocol.Position{
				Line:      uint32(pos.Line - 1),
				Character: uint32(pos.Column - 1),
			},
			End: protocol.Position{
				Line:      uint32(pos.Line - 1),
				Character: uint32(pos.Column + 5), // Rough span for visibility
			},
		},
		Severity: ptrSeverity(protocol.DiagnosticSeverityError),
		Code:     &protocol.IntegerOrString{Value: errors.ErrorSyntax},
		Source:   ptrString("loom-parser"),
		Message:  pe.Message(),
	}}
}

func severityFor(level errors.ErrorLevel) protocol.DiagnosticSeverity {
	switch level {
	case errors.Warning:
		return protocol.DiagnosticSeverityWarning
	case errors.Note:
		return protocol.DiagnosticSeverityInformation
	default:
		return protocol.DiagnosticSeverityError
	}
}

func ptrSeverity(s protocol.DiagnosticSeverity) *protocol.DiagnosticSeverity {
	return &s
}

func ptrString(s string) *string {
	return &s
}
