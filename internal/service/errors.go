package service

import "errors"

var (
	// ErrNotAuthenticated means no usable session could be resolved from the
	// presented credentials.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotAuthorized means the session exists but does not grant the
	// requested account operation.
	ErrNotAuthorized = errors.New("not authorized")

	ErrInvalidCredentials = errors.New("invalid login or password")
	ErrLoginTaken         = errors.New("login already taken")
	ErrUnknownAuthType    = errors.New("unknown auth type")
	ErrNoActiveUser       = errors.New("session has no active user")
	ErrNoPasswordAuth     = errors.New("account has no password auth")
)
