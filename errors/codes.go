package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Core dashboard error taxonomy.
const (
	// ErrCodeConnection indicates a send or connect attempt failed because
	// the duplex connection is not open.
	ErrCodeConnection ErrorCode = "CONNECTION_ERROR"
	// ErrCodeFormat indicates a board envelope that is malformed, has the
	// wrong discriminator, or a version newer than the codec supports.
	ErrCodeFormat ErrorCode = "FORMAT_ERROR"
	// ErrCodeValidation indicates unmet port arity; non-fatal, reported as
	// an issue count.
	ErrCodeValidation ErrorCode = "VALIDATION_ERROR"
	// ErrCodeProtocol indicates the server answered a known request with an
	// error type code.
	ErrCodeProtocol ErrorCode = "PROTOCOL_ERROR"
	// ErrCodeStaleCorrelation indicates an inbound frame whose requestId
	// matches no pending session; dropped, never escalated.
	ErrCodeStaleCorrelation ErrorCode = "STALE_CORRELATION"
)

// Secondary codes.
const (
	// ErrCodeConflict indicates a run/sync/login attempted while another is
	// pending.
	ErrCodeConflict ErrorCode = "CONFLICT"
	// ErrCodeNotFound indicates a missing record or resource.
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	// ErrCodeInternal indicates an unexpected failure.
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
)

var retryableCodes = map[ErrorCode]bool{
	ErrCodeConnection: true,
	ErrCodeConflict:   true,
}

// IsRetryableCode reports whether a user-initiated retry of the failed
// action can succeed for the given code. Nothing retries automatically.
func IsRetryableCode(code ErrorCode) bool {
	return retryableCodes[code]
}
