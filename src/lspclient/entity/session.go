// Package entity contains the domain types of the language client session engine.
package entity

import (
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid"
	"go.uber.org/zap/zapcore"
)

type keyType string

// SessionContextKey indicates the key used to carry the session UUID in a context.
const SessionContextKey keyType = "SessionUUID"

// Key identifies one session: a content type plus an optional workspace root.
type Key struct {
	ContentType string `json:"contentType" zap:"contentType"`
	Root        string `json:"root,omitempty" zap:"root"`
}

// Rooted reports whether the session belongs to a loaded workspace.
func (k Key) Rooted() bool {
	return k.Root != ""
}

// Normalized returns the key with the content type folded to lower case and the root cleaned,
// for use as a table key.
func (k Key) Normalized() Key {
	n := Key{ContentType: strings.ToLower(k.ContentType)}
	if k.Root != "" {
		n.Root = filepath.Clean(k.Root)
	}
	return n
}

// String implements fmt.Stringer.
func (k Key) String() string {
	if !k.Rooted() {
		return k.ContentType
	}
	return k.ContentType + "@" + k.Root
}

// MarshalLogObject implements zapcore.ObjectMarshaler.
func (k Key) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("contentType", k.ContentType)
	if k.Rooted() {
		enc.AddString("root", k.Root)
	}
	return nil
}

// SessionState is the lifecycle state of a session.
type SessionState int32

const (
	// StateNotStarted is the initial state.
	StateNotStarted SessionState = iota
	// StateStarting covers activation and the handshake.
	StateStarting
	// StateStarted means capabilities are negotiated and feature traffic may flow.
	StateStarted
	// StateStopping covers the shutdown sequence.
	StateStopping
	// StateStopped is terminal.
	StateStopped
)

// String implements fmt.Stringer.
func (s SessionState) String() string {
	switch s {
	case StateNotStarted:
		return "NotStarted"
	case StateStarting:
		return "Starting"
	case StateStarted:
		return "Started"
	case StateStopping:
		return "Stopping"
	case StateStopped:
		return "Stopped"
	default:
		return "Unknown"
	}
}

// StartedEvent is raised once a session finished its handshake.
type StartedEvent struct {
	Key       Key
	SessionID uuid.UUID
}

// DisconnectedEvent is raised when a session's connection ends without a requested stop.
type DisconnectedEvent struct {
	Key       Key
	SessionID uuid.UUID
	Err       error
}
