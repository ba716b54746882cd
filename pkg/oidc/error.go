package oidc

import (
	"errors"
	"fmt"
	"log/slog"
)

type errorType string

const (
	InvalidRequest         errorType = "invalid_request"
	InvalidRedirectURI     errorType = "invalid_redirect_uri"
	InvalidClientMetadata  errorType = "invalid_client_metadata"
	InvalidClient          errorType = "invalid_client"
	NotFound               errorType = "not_found"
	ServerError            errorType = "server_error"
	TemporarilyUnavailable errorType = "temporarily_unavailable"
)

var (
	ErrInvalidRequest = func() *Error {
		return &Error{
			ErrorType: InvalidRequest,
		}
	}
	// ErrInvalidRedirectURI is returned by the registration endpoint when
	// one or more redirect_uris are rejected.
	ErrInvalidRedirectURI = func() *Error {
		return &Error{
			ErrorType: InvalidRedirectURI,
		}
	}
	// ErrInvalidClientMetadata is returned by the registration endpoint when
	// any other client metadata member is rejected.
	ErrInvalidClientMetadata = func() *Error {
		return &Error{
			ErrorType: InvalidClientMetadata,
		}
	}
	ErrInvalidClient = func() *Error {
		return &Error{
			ErrorType: InvalidClient,
		}
	}
	ErrNotFound = func() *Error {
		return &Error{
			ErrorType: NotFound,
		}
	}
	ErrServerError = func() *Error {
		return &Error{
			ErrorType: ServerError,
		}
	}
	ErrTemporarilyUnavailable = func() *Error {
		return &Error{
			ErrorType: TemporarilyUnavailable,
		}
	}
)

type Error struct {
	Parent      error     `json:"-"`
	ErrorType   errorType `json:"error"`
	Description string    `json:"error_description,omitempty"`
}

func (e *Error) Error() string {
	message := "ErrorType=" + string(e.ErrorType)
	if e.Description != "" {
		message += " Description=" + e.Description
	}
	if e.Parent != nil {
		message += " Parent=" + e.Parent.Error()
	}
	return message
}

func (e *Error) Unwrap() error {
	return e.Parent
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.ErrorType == t.ErrorType &&
		(e.Description == t.Description || t.Description == "")
}

func (e *Error) WithParent(err error) *Error {
	e.Parent = err
	return e
}

func (e *Error) WithDescription(desc string, args ...any) *Error {
	e.Description = fmt.Sprintf(desc, args...)
	return e
}

// LogLevel returns the level the error should be logged at:
// server errors at error level, everything else at warn level.
func (e *Error) LogLevel() slog.Level {
	if e.ErrorType == ServerError {
		return slog.LevelError
	}
	return slog.LevelWarn
}

// LogValue implements [slog.LogValuer].
func (e *Error) LogValue() slog.Value {
	attrs := make([]slog.Attr, 0, 3)
	if e.Parent != nil {
		attrs = append(attrs, slog.Any("parent", e.Parent))
	}
	if e.Description != "" {
		attrs = append(attrs, slog.String("description", e.Description))
	}
	attrs = append(attrs, slog.String("type", string(e.ErrorType)))
	return slog.GroupValue(attrs...)
}

// DefaultToServerError checks if the error is an Error
// if not the provided error will be wrapped into a ServerError
func DefaultToServerError(err error, description string) *Error {
	oauth := new(Error)
	if ok := errors.As(err, &oauth); !ok {
		oauth.ErrorType = ServerError
		oauth.Description = description
		oauth.Parent = err
	}
	return oauth
}
