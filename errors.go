package sineql

import (
	"context"
	"errors"

	executor "github.com/hanpama/sineql/internal/executor"
	language "github.com/hanpama/sineql/internal/language"
	schema "github.com/hanpama/sineql/internal/schema"
)

// ErrorCode classifies failures. The empty code means success.
type ErrorCode string

const (
	CodeSchema        ErrorCode = "SCHEMA_ERROR"
	CodeConfiguration ErrorCode = "CONFIGURATION_ERROR"
	CodeQuery         ErrorCode = "QUERY_ERROR"
	CodeHandler       ErrorCode = "HANDLER_ERROR"
	CodeCanceled      ErrorCode = "CANCELED"
)

// Error carries the code of a failure together with its cause, one of
// *language.Error, schema.ValidationError, *executor.ConfigurationError or
// *executor.HandlerError.
type Error struct {
	Code ErrorCode
	Err  error
}

func (e *Error) Error() string { return string(e.Code) + ": " + e.Err.Error() }

func (e *Error) Unwrap() error { return e.Err }

// ErrorCodeOf classifies err. It returns "" for nil.
func ErrorCodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	var (
		cfgErr     *executor.ConfigurationError
		handlerErr *executor.HandlerError
		violations schema.ValidationError
		syntaxErr  *schema.SyntaxError
	)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return CodeCanceled
	case errors.As(err, &cfgErr):
		return CodeConfiguration
	case errors.As(err, &handlerErr):
		return CodeHandler
	case errors.As(err, &violations), errors.As(err, &syntaxErr):
		return CodeSchema
	}
	var langErr *language.Error
	if errors.As(err, &langErr) {
		return CodeQuery
	}
	return CodeHandler
}

// ErrorInfo is the serializable form of an error.
type ErrorInfo struct {
	Message    string              `json:"message"`
	Locations  []Location          `json:"locations,omitempty"`
	Type       string              `json:"type,omitempty"` // failing handler's type
	Violations []*schema.Violation `json:"violations,omitempty"`
}

type Location struct {
	Line   int `json:"line"`
	Column int `json:"column"`
}

func newErrorInfo(err error) *ErrorInfo {
	var coded *Error
	if errors.As(err, &coded) {
		err = coded.Err
	}
	info := &ErrorInfo{Message: err.Error()}
	var langErr *language.Error
	if errors.As(err, &langErr) {
		info.Message = langErr.Message
		for _, loc := range langErr.Locations {
			info.Locations = append(info.Locations, Location{Line: loc.Line, Column: loc.Column})
		}
	}
	var handlerErr *executor.HandlerError
	if errors.As(err, &handlerErr) {
		info.Type = handlerErr.Type
	}
	var violations schema.ValidationError
	if errors.As(err, &violations) {
		info.Violations = violations
	}
	return info
}

// ErrorInfoOf returns the serializable form of err, or nil.
func ErrorInfoOf(err error) *ErrorInfo {
	if err == nil {
		return nil
	}
	return newErrorInfo(err)
}
