package session

import (
	"errors"
	"fmt"
)

var (
	// ErrNotAuthenticated is returned by Start when there is no identity. The
	// caller should send the user to login.
	ErrNotAuthenticated = errors.New("session: not authenticated")

	ErrInvalidState   = errors.New("session: invalid state")
	ErrNotConnected   = errors.New("session: not connected")
	ErrSendInProgress = errors.New("session: a send is already in progress")

	// ErrUploadFailed aborts one send. Staged text and media are kept for retry.
	ErrUploadFailed = errors.New("session: media upload failed")

	ErrMalformedMessage = errors.New("session: malformed message")
	ErrUnknownStatus    = errors.New("session: unknown status")
)

// TransportError is a connect or send failure of the transport.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("session: transport %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}
