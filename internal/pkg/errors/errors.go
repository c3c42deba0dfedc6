// Package errors provides structured error handling for the wanvideo worker.
// Every collaborator call site tags its failures with a domain code; the
// terminal error_code of a job is resolved from that tag, with a message
// sniffing fallback for errors that did not originate in this package.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Code is the error_code surfaced in a job's terminal failure event.
type Code string

// Error codes for the worker.
const (
	CodeInvalidInput Code = "INVALID_INPUT"
	CodeDownload     Code = "DOWNLOAD_ERROR"
	CodeModel        Code = "MODEL_ERROR"
	CodeMemory       Code = "MEMORY_ERROR"
	CodeUpload       Code = "UPLOAD_ERROR"
	CodeGeneration   Code = "GENERATION_ERROR"
)

// Error is a tagged error with operation context.
type Error struct {
	// Code is the domain code for classification.
	Code Code
	// Message is the human-readable error message.
	Message string
	// Op is the operation that failed (e.g., "fetch.image").
	Op string
	// Err is the underlying error.
	Err error
	// Fields contains additional context fields.
	Fields map[string]any
	// Stack contains the stack trace at error creation.
	Stack []Frame
}

// Frame represents a single stack frame.
type Frame struct {
	File     string `json:"file"`
	Line     int    `json:"line"`
	Function string `json:"function"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder

	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}

	b.WriteString(e.Message)

	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}

	return b.String()
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target matches this error by code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithField adds a context field to the error.
func (e *Error) WithField(key string, value any) *Error {
	if e.Fields == nil {
		e.Fields = make(map[string]any)
	}
	e.Fields[key] = value
	return e
}

// HTTPStatus returns the HTTP status code for this error. Only the health
// endpoint uses this; job failures travel as events, not HTTP errors.
func (e *Error) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidInput:
		return 400
	case CodeDownload, CodeUpload, CodeModel:
		return 502
	default:
		return 500
	}
}

// StackTrace returns the stack trace as a formatted string.
func (e *Error) StackTrace() string {
	if len(e.Stack) == 0 {
		return ""
	}

	var b strings.Builder
	for _, f := range e.Stack {
		fmt.Fprintf(&b, "  %s:%d %s\n", f.File, f.Line, f.Function)
	}
	return b.String()
}

// New creates a new error with the given code and message.
func New(code Code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Stack:   captureStack(2),
	}
}

// Newf creates a new error with formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Stack:   captureStack(2),
	}
}

// Wrap wraps an existing error, preserving its code when it already carries
// one and defaulting to the generation catch-all otherwise.
func Wrap(err error, op string, message string) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return &Error{
			Code:    e.Code,
			Message: message,
			Op:      op,
			Err:     err,
			Fields:  e.Fields,
			Stack:   captureStack(2),
		}
	}

	return &Error{
		Code:    CodeGeneration,
		Message: message,
		Op:      op,
		Err:     err,
		Stack:   captureStack(2),
	}
}

// Wrapf wraps an error with formatted message.
func Wrapf(err error, op string, format string, args ...any) *Error {
	return Wrap(err, op, fmt.Sprintf(format, args...))
}

// WrapWithCode wraps an error with a specific code.
func WrapWithCode(err error, code Code, op string, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Code:    code,
		Message: message,
		Op:      op,
		Err:     err,
		Stack:   captureStack(2),
	}
}

// InvalidInput creates a pre-flight validation error.
func InvalidInput(message string) *Error {
	return New(CodeInvalidInput, message)
}

// InvalidInputf creates a pre-flight validation error with formatted message.
func InvalidInputf(format string, args ...any) *Error {
	return Newf(CodeInvalidInput, format, args...)
}

// Download creates an image download error.
func Download(message string) *Error {
	return New(CodeDownload, message)
}

// Model creates a model load/availability error.
func Model(message string) *Error {
	return New(CodeModel, message)
}

// Upload creates a result upload error.
func Upload(message string) *Error {
	return New(CodeUpload, message)
}

// Generation creates a generation error (the catch-all code).
func Generation(message string) *Error {
	return New(CodeGeneration, message)
}

// CodeOf resolves the error_code for an error. Tagged errors report their
// code directly; anything else goes through Classify.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return Classify(err)
}

// Classify buckets an untagged error by sniffing its lowercase message.
// Priority order matters: a message containing both "download" and "model"
// classifies as a download error.
func Classify(err error) Code {
	if err == nil {
		return CodeGeneration
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "download"):
		return CodeDownload
	case strings.Contains(msg, "model"):
		return CodeModel
	case strings.Contains(msg, "memory"), strings.Contains(msg, "cuda"):
		return CodeMemory
	case strings.Contains(msg, "upload"):
		return CodeUpload
	default:
		return CodeGeneration
	}
}

// IsCode checks if an error resolves to a specific code.
func IsCode(err error, code Code) bool {
	return CodeOf(err) == code
}

// GetFields extracts context fields from an error.
func GetFields(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) && e.Fields != nil {
		return e.Fields
	}
	return nil
}

// captureStack captures the current stack trace.
func captureStack(skip int) []Frame {
	const maxDepth = 32
	var pcs [maxDepth]uintptr
	n := runtime.Callers(skip+1, pcs[:])

	frames := make([]Frame, 0, n)
	callersFrames := runtime.CallersFrames(pcs[:n])

	for {
		frame, more := callersFrames.Next()

		// Skip runtime frames
		if strings.Contains(frame.File, "runtime/") {
			if !more {
				break
			}
			continue
		}

		frames = append(frames, Frame{
			File:     frame.File,
			Line:     frame.Line,
			Function: frame.Function,
		})

		if !more || len(frames) >= 10 {
			break
		}
	}

	return frames
}

// As is a convenience wrapper for errors.As.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Is is a convenience wrapper for errors.Is.
func Is(err, target error) bool {
	return errors.Is(err, target)
}
