package errors

import (
	stderr "errors"
	"fmt"
)

// UnknownContentTypeError indicates that no client is registered for a file's content type.
type UnknownContentTypeError struct {
	Path string
}

// Error is an implementation of the error interface.
func (n *UnknownContentTypeError) Error() string {
	return fmt.Sprintf("no language client registered for %q", n.Path)
}

// IsUnknownContentType reports whether UnknownContentTypeError is part of the error chain.
func IsUnknownContentType(e error) bool {
	var nf *UnknownContentTypeError
	return stderr.As(e, &nf)
}

// ActivationError indicates that the transport for a language server could not be created.
type ActivationError struct {
	Client string
	Err    error
}

// Error is an implementation of the error interface.
func (n *ActivationError) Error() string {
	return fmt.Sprintf("activating %q: %v", n.Client, n.Err)
}

// Unwrap returns the underlying cause.
func (n *ActivationError) Unwrap() error {
	return n.Err
}

// HandshakeError indicates that the initialize exchange with a language server failed.
type HandshakeError struct {
	Client string
	Err    error
}

// Error is an implementation of the error interface.
func (n *HandshakeError) Error() string {
	return fmt.Sprintf("initializing %q: %v", n.Client, n.Err)
}

// Unwrap returns the underlying cause.
func (n *HandshakeError) Unwrap() error {
	return n.Err
}

// IsStartFailure reports whether the error came from activation or handshake.
func IsStartFailure(e error) bool {
	var ae *ActivationError
	var he *HandshakeError
	return stderr.As(e, &ae) || stderr.As(e, &he)
}
