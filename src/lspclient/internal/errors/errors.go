package errors

import stderr "errors"

// New returns an error that formats as the given text.
// Each call to New returns a distinct error value even if the text is identical.
func New(msg string) error {
	return stderr.New(msg)
}

var (
	// SessionStoppedError reports that a session was used after it reached the Stopped state.
	SessionStoppedError = New("session is stopped")
	// SessionStartingError reports that Start was requested while a start was already in flight.
	SessionStartingError = New("session is already starting")
	// NoConnectionError reports that the message channel has not been created.
	NoConnectionError = New("no connection to language server")
)

// IsSessionUnavailable reports whether the error means the session cannot carry traffic.
func IsSessionUnavailable(e error) bool {
	return stderr.Is(e, SessionStoppedError) || stderr.Is(e, NoConnectionError)
}
