package connection

import "fmt"

// ServerError reports an outcome the identity API rejected explicitly
// (success=false in the envelope). The message is safe to show to the user.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("identity api rejected request: %s", e.Message)
}

// TransportError reports a request that never produced a usable envelope: a
// network failure, or a response body that could not be decoded. It carries
// no user-facing message.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("identity api transport failure on %s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}
