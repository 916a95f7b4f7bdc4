package executor

import "fmt"

// HandlerError reports a failing handler or malformed handler output.
type HandlerError struct {
	Type    string
	Message string // set for malformed output
	Err     error  // set when the handler itself failed
}

func (e *HandlerError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("handler %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("handler %s: %s", e.Type, e.Message)
}

func (e *HandlerError) Unwrap() error { return e.Err }

func malformedOutput(typeName, format string, args ...any) *HandlerError {
	return &HandlerError{Type: typeName, Message: "malformed output: " + fmt.Sprintf(format, args...)}
}
