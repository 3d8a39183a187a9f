package core

// Error codes for domain errors.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeUnauthorized   = "unauthorized"
	ErrCodeAuthFailed     = "auth_failed"
	ErrCodeUserOffline    = "user_offline"
	ErrCodeInvalidStatus  = "invalid_status"
	ErrCodeInvalidMessage = "invalid_message"
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
