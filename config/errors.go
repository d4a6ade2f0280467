package config

import "fmt"

// Error is returned by Load for every configuration problem. It is fatal
// and always raised before any network call.
type Error struct {
	Path    string // config file path
	Field   string // offending key, empty for file-level problems
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if e.Field != "" {
		msg = fmt.Sprintf("%q: %s", e.Field, e.Message)
	}
	if e.Path != "" {
		msg = e.Path + ": " + msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

func fieldError(path, field, message string) *Error {
	return &Error{Path: path, Field: field, Message: message}
}
