// Package errors provides standardized error handling for mdpress.
// It defines the error kinds surfaced by collection and conversion, the typed
// errors that carry them, and helpers for consistent creation, wrapping and
// inspection across the application.
package errors

import (
	"errors"
	"fmt"
)

// Standard errors package errors that we re-export for convenience
var (
	// Unwrap unwraps an error to access the underlying error
	Unwrap = errors.Unwrap
	// Is reports whether any error in err's chain matches target
	Is = errors.Is
	// As finds the first error in err's chain that matches target
	As = errors.As
)

// ErrorKind represents the kind of error
type ErrorKind int

// Error kinds
const (
	Unknown ErrorKind = iota
	// File error kinds
	FileNotFound
	FileAccessDenied
	InvalidPath
	// Config error kinds
	InvalidConfig
	ConfigNotFound
	// Pre-flight validation, never reaches the network
	EmptySelection
	NoMarkdownFiles
	// Collection
	TraversalError
	// Conversion round trip
	PackagingError
	RemoteError
	NetworkError
	// Caller errors
	Busy
	Superseded
)

var kindNames = map[ErrorKind]string{
	Unknown:          "unknown error",
	FileNotFound:     "file not found",
	FileAccessDenied: "file access denied",
	InvalidPath:      "invalid path",
	InvalidConfig:    "invalid configuration",
	ConfigNotFound:   "configuration not found",
	EmptySelection:   "empty selection",
	NoMarkdownFiles:  "no markdown files",
	TraversalError:   "traversal failed",
	PackagingError:   "packaging failed",
	RemoteError:      "remote error",
	NetworkError:     "network error",
	Busy:             "conversion already in progress",
	Superseded:       "collection superseded",
}

// String returns the human readable name of the kind.
func (k ErrorKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("error kind %d", int(k))
}

// Common error constants for frequently occurring errors
var (
	ErrFileNotFound    = NewFileError("file not found", "", FileNotFound, nil)
	ErrInvalidConfig   = NewConfigError("invalid configuration", "", InvalidConfig, nil)
	ErrEmptySelection  = NewTransferError(EmptySelection, "select a directory first", 0, nil)
	ErrNoMarkdownFiles = NewTransferError(NoMarkdownFiles, "the selected directory contains no .md files", 0, nil)
	ErrBusy            = NewTransferError(Busy, "wait for the current conversion to finish", 0, nil)
	ErrSuperseded      = &ApplicationError{msg: "collection superseded by a newer selection", kind: Superseded}
)

// ApplicationError is the base error type for all application errors
type ApplicationError struct {
	msg  string
	err  error
	kind ErrorKind
}

// Error returns the error message
func (e *ApplicationError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap returns the wrapped error
func (e *ApplicationError) Unwrap() error {
	return e.err
}

// Kind returns the kind of error
func (e *ApplicationError) Kind() ErrorKind {
	return e.kind
}

// Is matches errors of the same kind so sentinel values work with errors.Is.
func (e *ApplicationError) Is(target error) bool {
	var k interface{ Kind() ErrorKind }
	if !errors.As(target, &k) {
		return false
	}
	return k.Kind() != Unknown && k.Kind() == e.kind
}

// FileError represents errors related to file operations
type FileError struct {
	ApplicationError
	path string
}

// NewFileError creates a new file error
func NewFileError(msg string, path string, kind ErrorKind, err error) *FileError {
	return &FileError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		path: path,
	}
}

// NewTraversalError reports a failed enumeration or materialization at path.
func NewTraversalError(path string, err error) *FileError {
	return NewFileError("traversal failed", path, TraversalError, err)
}

// Error returns the file error message
func (e *FileError) Error() string {
	if e.path != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.path, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.path)
	}
	return e.ApplicationError.Error()
}

// Path returns the file path associated with the error
func (e *FileError) Path() string {
	return e.path
}

// ConfigError represents errors related to configuration
type ConfigError struct {
	ApplicationError
	param string
}

// NewConfigError creates a new configuration error
func NewConfigError(msg string, param string, kind ErrorKind, err error) *ConfigError {
	return &ConfigError{
		ApplicationError: ApplicationError{
			msg:  msg,
			err:  err,
			kind: kind,
		},
		param: param,
	}
}

// Error returns the config error message
func (e *ConfigError) Error() string {
	if e.param != "" {
		if e.err != nil {
			return fmt.Sprintf("%s: %s: %v", e.msg, e.param, e.err)
		}
		return fmt.Sprintf("%s: %s", e.msg, e.param)
	}
	return e.ApplicationError.Error()
}

// Param returns the configuration parameter associated with the error
func (e *ConfigError) Param() string {
	return e.param
}

// TransferError is a terminal failure of a conversion. Detail is the text
// shown to the user; for RemoteError it echoes what the converter said.
type TransferError struct {
	ApplicationError
	detail string
	status int
}

// NewTransferError creates a new transfer error. status is the HTTP status
// code when a response was received, otherwise zero.
func NewTransferError(kind ErrorKind, detail string, status int, err error) *TransferError {
	return &TransferError{
		ApplicationError: ApplicationError{
			msg:  kind.String(),
			err:  err,
			kind: kind,
		},
		detail: detail,
		status: status,
	}
}

// Error returns the kind prefix followed by the detail.
func (e *TransferError) Error() string {
	if e.detail != "" {
		return fmt.Sprintf("%s: %s", e.msg, e.detail)
	}
	return e.ApplicationError.Error()
}

// Detail returns the user facing detail
func (e *TransferError) Detail() string {
	return e.detail
}

// Status returns the HTTP status code, or zero when no response was received
func (e *TransferError) Status() int {
	return e.status
}

// New creates a new error with a message
func New(msg string) error {
	return &ApplicationError{
		msg:  msg,
		kind: Unknown,
	}
}

// Newf creates a new error with a formatted message
func Newf(format string, args ...interface{}) error {
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		kind: Unknown,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  msg,
		err:  err,
		kind: Unknown,
	}
}

// Wrapf wraps an existing error with additional formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return &ApplicationError{
		msg:  fmt.Sprintf(format, args...),
		err:  err,
		kind: Unknown,
	}
}

// KindOf returns the first non-Unknown kind found in err's chain.
func KindOf(err error) ErrorKind {
	for err != nil {
		if k, ok := err.(interface{ Kind() ErrorKind }); ok && k.Kind() != Unknown {
			return k.Kind()
		}
		err = errors.Unwrap(err)
	}
	return Unknown
}

// IsKind reports whether err carries the given kind anywhere in its chain.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}

// IsFileNotFound checks if the error is a file not found error
func IsFileNotFound(err error) bool {
	var fileErr *FileError
	if errors.As(err, &fileErr) {
		return fileErr.Kind() == FileNotFound
	}
	return false
}

// IsInvalidConfig checks if the error is an invalid configuration error
func IsInvalidConfig(err error) bool {
	var configErr *ConfigError
	if errors.As(err, &configErr) {
		return configErr.Kind() == InvalidConfig
	}
	return false
}

// IsTransferError checks if the error is a transfer error
func IsTransferError(err error) bool {
	var transferErr *TransferError
	return errors.As(err, &transferErr)
}
