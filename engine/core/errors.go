package core

import (
	"errors"
	"fmt"
	"path/filepath"
	"runtime"
)

// Error is a failure carrying its status code and the location it was raised from.
type Error struct {
	Code    Code
	Message string
	Trace   string
}

func NewError(code Code, format string, args ...interface{}) *Error {
	return newError(1, code, format, args...)
}

func newError(skip int, code Code, format string, args ...interface{}) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Trace:   locationTrace(skip + 1),
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s (%d): %s%s", e.Code, int32(e.Code), e.Message, e.Trace)
}

func (e *Error) Unwrap() error {
	return e.Code
}

// CodeOf returns the status code carried by err. Errors without one map to CodeUnknown.
func CodeOf(err error) Code {
	if err == nil {
		return CodeSuccess
	}
	var c Code
	if errors.As(err, &c) {
		return c
	}
	return CodeUnknown
}

func locationTrace(skip int) string {
	_, file, line, ok := runtime.Caller(skip + 1)
	if !ok {
		return ""
	}
	return fmt.Sprintf(" *** %s:%d", filepath.Base(file), line)
}

func sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}
