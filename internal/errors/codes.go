package errors

// Diagnostic codes for the loom compiler.
// These codes are used in error messages and documentation to provide
// consistent error identification across the toolchain.
//
// Code ranges:
// L0001-L0099: structural / pass precondition errors
// L0100-L0199: parser errors
// L0800-L0899: warning codes

const (
	// L0001: the fusion pass requires a single-block function body
	ErrorMultipleBlocks = "L0001"

	// L0002: reference to a buffer that was never defined
	ErrorUndefinedBuffer = "L0002"

	// L0003: a buffer name defined more than once
	ErrorDuplicateBuffer = "L0003"

	// L0004: two kernels writing to the same buffer
	ErrorMultipleWriters = "L0004"

	// L0005: invalid pass configuration (e.g. non-positive tile size)
	ErrorInvalidConfiguration = "L0005"

	// L0100: generic syntax error surfaced from the parser
	ErrorSyntax = "L0100"
)
