package runtime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/deicod/inherit/nodes"
)

// ErrorType classifies an Error.
type ErrorType string

const (
	ErrorTypeTemplate  ErrorType = "template_error"
	ErrorTypeUndefined ErrorType = "undefined_error"
	ErrorTypeFilter    ErrorType = "filter_error"
	ErrorTypeLoader    ErrorType = "loader_error"
)

// Error is a load or render failure, positioned at the node that caused it.
type Error struct {
	Type     ErrorType
	Message  string
	Position nodes.Position
	Node     nodes.Node
	Cause    error
}

// Error formats the message with the source position when known.
func (e *Error) Error() string {
	if e.Position.Line > 0 {
		if e.Position.Column > 0 {
			return fmt.Sprintf("%s at line %d, column %d: %s", e.Type, e.Position.Line, e.Position.Column, e.Message)
		}
		return fmt.Sprintf("%s at line %d: %s", e.Type, e.Position.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func NewError(errorType ErrorType, message string, position nodes.Position, node nodes.Node) *Error {
	return &Error{
		Type:     errorType,
		Message:  message,
		Position: position,
		Node:     node,
	}
}

func NewErrorWithCause(errorType ErrorType, message string, position nodes.Position, node nodes.Node, cause error) *Error {
	return &Error{
		Type:     errorType,
		Message:  message,
		Position: position,
		Node:     node,
		Cause:    cause,
	}
}

// WrapError turns a foreign error into a runtime error. Errors that already
// belong to the engine are returned unchanged.
func WrapError(err error, errorType ErrorType, position nodes.Position, node nodes.Node) error {
	if err == nil {
		return nil
	}

	switch err.(type) {
	case *Error, *TemplateNotFoundError, *UndefinedError, *FilterError:
		return err
	}

	return &Error{
		Type:     errorType,
		Message:  err.Error(),
		Position: position,
		Node:     node,
		Cause:    err,
	}
}

// UndefinedError is raised for unknown names in strict mode.
type UndefinedError struct {
	error
	Name string
}

func NewUndefinedError(name string, position nodes.Position, node nodes.Node) *UndefinedError {
	return &UndefinedError{
		error: NewError(ErrorTypeUndefined, fmt.Sprintf("'%s' is undefined", name), position, node),
		Name:  name,
	}
}

// IsUndefinedError reports whether err wraps an UndefinedError.
func IsUndefinedError(err error) bool {
	var undefErr *UndefinedError
	return errors.As(err, &undefErr)
}

// FilterError is returned when a filter is unknown or rejects its input.
type FilterError struct {
	error
	FilterName string
}

func NewFilterError(filterName, message string, position nodes.Position, node nodes.Node, cause error) *FilterError {
	return &FilterError{
		error:      NewErrorWithCause(ErrorTypeFilter, fmt.Sprintf("filter '%s': %s", filterName, message), position, node, cause),
		FilterName: filterName,
	}
}

func (e *FilterError) Unwrap() error {
	return e.error
}

// TemplateNotFoundError is returned by loaders when no source exists for a name.
type TemplateNotFoundError struct {
	base  *Error
	Name  string
	Tried []string
}

// NewTemplateNotFound lists the tried locations in the message.
func NewTemplateNotFound(name string, tried []string, cause error) *TemplateNotFoundError {
	message := fmt.Sprintf("template %s not found", name)
	if len(tried) > 0 {
		message = fmt.Sprintf("%s (tried: %s)", message, strings.Join(tried, ", "))
	}

	return &TemplateNotFoundError{
		base:  NewErrorWithCause(ErrorTypeLoader, message, nodes.Position{}, nil, cause),
		Name:  name,
		Tried: append([]string(nil), tried...),
	}
}

func (e *TemplateNotFoundError) Error() string {
	if e == nil {
		return "template not found"
	}
	if e.base != nil {
		return e.base.Error()
	}
	return fmt.Sprintf("template %s not found", e.Name)
}

func (e *TemplateNotFoundError) Unwrap() error {
	if e == nil || e.base == nil {
		return nil
	}
	return e.base.Cause
}

// IsTemplateNotFound reports whether err, or any error it wraps, is a
// TemplateNotFoundError.
func IsTemplateNotFound(err error) bool {
	var notFound *TemplateNotFoundError
	return errors.As(err, &notFound)
}
