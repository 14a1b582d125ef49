package session

import (
	"context"
	"fmt"
	"reflect"

	"github.com/uber/lsp-client/src/lspclient/entity"
	lsperrors "github.com/uber/lsp-client/src/lspclient/internal/errors"
	"github.com/uber/lsp-client/src/lspclient/mapper"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// openDocument is the server's view of a document as last sent by this session.
type openDocument struct {
	languageID string
	version    int32
	text       string
}

// IsOpen reports whether uri was opened in this session and not closed since.
func (s *Session) IsOpen(uri protocol.DocumentURI) bool {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()
	_, ok := s.docs[uri]
	return ok
}

// DidOpen tells the server that uri is open with text. The session numbers versions from 0 at open.
// Before the session started this is a no-op; opening an already open document is a no-op.
func (s *Session) DidOpen(ctx context.Context, uri protocol.DocumentURI, languageID string, text string) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	conn := s.connection()
	if !s.Started() || conn == nil {
		return nil
	}
	if _, ok := s.docs[uri]; ok {
		return nil
	}

	params := &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{
			URI:        uri,
			LanguageID: protocol.LanguageIdentifier(languageID),
			Version:    0,
			Text:       text,
		},
	}
	if err := conn.Notify(ctx, protocol.MethodTextDocumentDidOpen, params); err != nil {
		return fmt.Errorf("sending %s for %s: %w", protocol.MethodTextDocumentDidOpen, uri, err)
	}

	s.docs[uri] = &openDocument{languageID: languageID, text: text}
	s.logger.Debugw("document opened", "uri", uri)
	return nil
}

// DidClose tells the server that uri was closed. Closing a document the server does not know is a no-op.
func (s *Session) DidClose(ctx context.Context, uri protocol.DocumentURI) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	conn := s.connection()
	if !s.Started() || conn == nil {
		return nil
	}
	if _, ok := s.docs[uri]; !ok {
		return nil
	}

	delete(s.docs, uri)
	params := &protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
	}
	if err := conn.Notify(ctx, protocol.MethodTextDocumentDidClose, params); err != nil {
		return fmt.Errorf("sending %s for %s: %w", protocol.MethodTextDocumentDidClose, uri, err)
	}
	s.logger.Debugw("document closed", "uri", uri)
	return nil
}

// DidChange sends the edits that produced version of uri, in the form the server's sync mode asks for.
// changes are ordered byte offset edits of the previous text; when they are empty the edits are derived
// from fullText. version must be greater than the last version sent for uri. When the server does not
// sync documents it only records version.
func (s *Session) DidChange(ctx context.Context, uri protocol.DocumentURI, version int32, changes []entity.TextChange, fullText string) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	conn := s.connection()
	if !s.Started() || conn == nil {
		return nil
	}
	doc, ok := s.docs[uri]
	if !ok {
		return &lsperrors.DocumentNotOpenError{URI: uri}
	}

	mode := s.Capabilities().Sync
	if mode == entity.SyncNone {
		// Nothing is sent, so the edits are neither validated nor applied.
		doc.version = version
		if len(changes) == 0 {
			doc.text = fullText
		}
		return nil
	}

	if version <= doc.version {
		return &lsperrors.VersionOrderError{URI: uri, Previous: doc.version, Received: version}
	}

	if len(changes) == 0 {
		changes = mapper.DiffTextChanges(doc.text, fullText)
	}
	events, text, err := mapper.TextChangesToContentChangeEvents(uri, doc.text, changes)
	if err != nil {
		return err
	}

	if mode == entity.SyncFull {
		events = mapper.FullContentChangeEvent(text)
	}

	if len(events) > 0 {
		params := &protocol.DidChangeTextDocumentParams{
			TextDocument: protocol.VersionedTextDocumentIdentifier{
				TextDocumentIdentifier: protocol.TextDocumentIdentifier{URI: uri},
				Version:                version,
			},
			ContentChanges: events,
		}
		if err := conn.Notify(ctx, protocol.MethodTextDocumentDidChange, params); err != nil {
			return fmt.Errorf("sending %s for %s: %w", protocol.MethodTextDocumentDidChange, uri, err)
		}
	}

	doc.version = version
	doc.text = text
	return nil
}

// DidChangeConfiguration re-reads the client's settings and sends them when they changed since last sent.
func (s *Session) DidChangeConfiguration(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	conn := s.connection()
	if !s.Started() || conn == nil {
		return nil
	}
	return s.sendConfiguration(ctx, conn, false)
}

// sendConfiguration sends the client's settings unless there are none. Unless force is set,
// settings equal to the last ones sent are skipped.
func (s *Session) sendConfiguration(ctx context.Context, conn jsonrpc2.Conn, force bool) error {
	current, err := s.settings.Settings(s.client)
	if err != nil {
		return err
	}
	if len(current) == 0 {
		return nil
	}

	s.mu.Lock()
	unchanged := reflect.DeepEqual(current, s.lastSettings)
	s.mu.Unlock()
	if unchanged && !force {
		return nil
	}

	params := &protocol.DidChangeConfigurationParams{Settings: current}
	if err := conn.Notify(ctx, protocol.MethodWorkspaceDidChangeConfiguration, params); err != nil {
		return fmt.Errorf("sending %s: %w", protocol.MethodWorkspaceDidChangeConfiguration, err)
	}

	s.mu.Lock()
	s.lastSettings = current
	s.mu.Unlock()
	return nil
}
