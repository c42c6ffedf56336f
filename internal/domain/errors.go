package domain

// ErrorCode tags a caller-facing error condition. Codes are stable; the
// boundary layer maps them to protocol status codes.
type ErrorCode string

const (
	CodeEmptyName     ErrorCode = "empty_name"
	CodeAlreadyQueued ErrorCode = "already_queued"
	CodeNotFound      ErrorCode = "not_found"
	CodeInvalidInput  ErrorCode = "invalid_input"
)

// Error is a recoverable, caller-facing condition. Persistence faults are
// never wrapped in this type; they surface as plain errors and map to an
// internal-error response.
type Error struct {
	Code    ErrorCode
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrEmptyName     = &Error{Code: CodeEmptyName, Message: "Name is required"}
	ErrNameTooLong   = &Error{Code: CodeInvalidInput, Message: "Name too long"}
	ErrAlreadyQueued = &Error{Code: CodeAlreadyQueued, Message: "Already in queue"}
	ErrNameNotFound  = &Error{Code: CodeNotFound, Message: "Name not found in queue"}
	ErrCourtNotFound = &Error{Code: CodeNotFound, Message: "Court not found"}
)
