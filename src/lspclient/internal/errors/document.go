package errors

import (
	"fmt"

	"go.lsp.dev/protocol"
)

// DocumentNotOpenError indicates that a document is not open in the session.
type DocumentNotOpenError struct {
	URI protocol.DocumentURI
}

// Error is an implementation of the error interface.
func (n *DocumentNotOpenError) Error() string {
	return fmt.Sprintf("document %q is not open", n.URI)
}

// VersionOrderError indicates that a change was submitted with a version that does not follow the last one sent.
type VersionOrderError struct {
	URI      protocol.DocumentURI
	Previous int32
	Received int32
}

// Error is an implementation of the error interface.
func (n *VersionOrderError) Error() string {
	return fmt.Sprintf("document %q version %d does not follow %d", n.URI, n.Received, n.Previous)
}

// InvalidEditError indicates that a text change does not fit the document it is applied to.
type InvalidEditError struct {
	URI    protocol.DocumentURI
	Offset int
	Length int
	Size   int
}

// Error is an implementation of the error interface.
func (n *InvalidEditError) Error() string {
	return fmt.Sprintf("edit at offset %d removing %d bytes is outside document %q of %d bytes", n.Offset, n.Length, n.URI, n.Size)
}
