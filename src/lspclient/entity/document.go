package entity

import (
	"go.lsp.dev/protocol"
)

// TextChange is one discrete edit, expressed against the text produced by the edits before it.
// Offset is a byte offset into the UTF-8 text.
type TextChange struct {
	Offset       int    `json:"offset"`
	RemovedText  string `json:"removedText,omitempty"`
	InsertedText string `json:"insertedText,omitempty"`
}

// Document is an editor document tracked for replay into sessions.
type Document struct {
	URI        protocol.DocumentURI `json:"uri" zap:"uri"`
	LanguageID string               `json:"languageId" zap:"languageId"`
	Text       string               `json:"-" zap:"-"`
	Version    int32                `json:"version" zap:"version"`
	Key        Key                  `json:"key" zap:"key"`
}

// DiagnosticsEvent carries the complete diagnostics for one document.
type DiagnosticsEvent struct {
	URI         protocol.DocumentURI
	Version     uint32
	Diagnostics []protocol.Diagnostic
}

// DocumentEditedEvent is raised after an open document was edited in memory on behalf of a server.
// Document carries the new text and version; Changes lead from the previous text to it.
type DocumentEditedEvent struct {
	Document Document
	Changes  []TextChange
}
