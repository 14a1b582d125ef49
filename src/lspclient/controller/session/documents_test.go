package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uber/lsp-client/src/lspclient/entity"
	"github.com/uber/lsp-client/src/lspclient/factory"
	lsperrors "github.com/uber/lsp-client/src/lspclient/internal/errors"
	"go.lsp.dev/protocol"
	"go.uber.org/mock/gomock"
)

func (f *fixture) waitCount(t *testing.T, method string, n int) {
	require.Eventually(t, func() bool { return f.server.Count(method) >= n }, _wait, 5*time.Millisecond)
}

func TestDidOpenAndClose(t *testing.T) {
	f := newFixture(t, factory.ServerCapabilitiesFull())
	f.withSettings(nil)
	s := f.started(t)
	ctx := context.Background()

	require.NoError(t, s.DidOpen(ctx, _docURI, "yaml", "a: 1\n"))
	require.NoError(t, s.DidOpen(ctx, _docURI, "yaml", "a: 1\n"))
	assert.True(t, s.IsOpen(_docURI))

	require.NoError(t, s.DidClose(ctx, _docURI))
	require.NoError(t, s.DidClose(ctx, _docURI))
	assert.False(t, s.IsOpen(_docURI))

	f.waitCount(t, protocol.MethodTextDocumentDidClose, 1)
	assert.Equal(t, 1, f.server.Count(protocol.MethodTextDocumentDidOpen))
	assert.Equal(t, 1, f.server.Count(protocol.MethodTextDocumentDidClose))

	open := decode[protocol.DidOpenTextDocumentParams](t, f.server.Received(protocol.MethodTextDocumentDidOpen)[0])
	assert.Equal(t, protocol.TextDocumentItem{
		URI:        _docURI,
		LanguageID: "yaml",
		Version:    0,
		Text:       "a: 1\n",
	}, open.TextDocument)
}

func TestDocumentNotificationsBeforeStart(t *testing.T) {
	f := newFixture(t, factory.ServerCapabilitiesFull())
	s := f.session(t, factory.Client("yaml", "yaml"))
	ctx := context.Background()

	assert.NoError(t, s.DidOpen(ctx, _docURI, "yaml", "a: 1"))
	assert.NoError(t, s.DidChange(ctx, _docURI, 1, nil, "a: 2"))
	assert.NoError(t, s.DidClose(ctx, _docURI))
	assert.NoError(t, s.DidChangeConfiguration(ctx))
	assert.False(t, s.IsOpen(_docURI))
	assert.Empty(t, f.server.Methods())
}

func TestDidChangeSyncModes(t *testing.T) {
	tests := []struct {
		name string
		kind protocol.TextDocumentSyncKind
		want []protocol.TextDocumentContentChangeEvent
	}{
		{
			name: "none",
			kind: protocol.TextDocumentSyncKindNone,
		},
		{
			name: "full",
			kind: protocol.TextDocumentSyncKindFull,
			want: []protocol.TextDocumentContentChangeEvent{{Text: "hello\nthere"}},
		},
		{
			name: "incremental",
			kind: protocol.TextDocumentSyncKindIncremental,
			want: []protocol.TextDocumentContentChangeEvent{{
				Range: &protocol.Range{
					Start: protocol.Position{Line: 1, Character: 0},
					End:   protocol.Position{Line: 1, Character: 5},
				},
				RangeLength: 5,
				Text:        "there",
			}},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, factory.ServerCapabilitiesMinimal(tt.kind))
			f.withSettings(nil)
			s := f.started(t)
			ctx := context.Background()

			require.NoError(t, s.DidOpen(ctx, _docURI, "yaml", "hello\nworld"))
			require.NoError(t, s.DidChange(ctx, _docURI, 1, []entity.TextChange{{Offset: 6, RemovedText: "world", InsertedText: "there"}}, "hello\nthere"))
			require.NoError(t, s.DidClose(ctx, _docURI))
			f.waitCount(t, protocol.MethodTextDocumentDidClose, 1)

			changes := f.server.Received(protocol.MethodTextDocumentDidChange)
			if tt.want == nil {
				assert.Empty(t, changes)
				return
			}

			require.Len(t, changes, 1)
			params := decode[protocol.DidChangeTextDocumentParams](t, changes[0])
			assert.Equal(t, int32(1), params.TextDocument.Version)
			assert.Equal(t, tt.want, params.ContentChanges)
		})
	}
}

func TestDidChangeSyncNoneSkipsEdits(t *testing.T) {
	f := newFixture(t, factory.ServerCapabilitiesMinimal(protocol.TextDocumentSyncKindNone))
	f.withSettings(nil)
	s := f.started(t)
	ctx := context.Background()

	require.NoError(t, s.DidOpen(ctx, _docURI, "yaml", "a: 1"))
	assert.NoError(t, s.DidChange(ctx, _docURI, 1, []entity.TextChange{{Offset: 40, RemovedText: "x"}}, ""))
	assert.NoError(t, s.DidChange(ctx, _docURI, 1, nil, "a: 2"))
	require.NoError(t, s.DidClose(ctx, _docURI))
	f.waitCount(t, protocol.MethodTextDocumentDidClose, 1)

	assert.Empty(t, f.server.Received(protocol.MethodTextDocumentDidChange))
}

func TestDidChangeMultipleEdits(t *testing.T) {
	f := newFixture(t, factory.ServerCapabilitiesMinimal(protocol.TextDocumentSyncKindIncremental))
	f.withSettings(nil)
	s := f.started(t)
	ctx := context.Background()

	require.NoError(t, s.DidOpen(ctx, _docURI, "yaml", "a: 1\nb: 2\n"))
	require.NoError(t, s.DidChange(ctx, _docURI, 3, []entity.TextChange{
		{Offset: 3, RemovedText: "1", InsertedText: "10"},
		{Offset: 6, RemovedText: "b: 2\n"},
	}, ""))
	f.waitCount(t, protocol.MethodTextDocumentDidChange, 1)

	params := decode[protocol.DidChangeTextDocumentParams](t, f.server.Received(protocol.MethodTextDocumentDidChange)[0])
	require.Len(t, params.ContentChanges, 2)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 0, Character: 3},
		End:   protocol.Position{Line: 0, Character: 4},
	}, *params.ContentChanges[0].Range)
	assert.Equal(t, "10", params.ContentChanges[0].Text)
	assert.Equal(t, protocol.Range{
		Start: protocol.Position{Line: 1, Character: 0},
		End:   protocol.Position{Line: 2, Character: 0},
	}, *params.ContentChanges[1].Range)
	assert.Equal(t, uint32(5), params.ContentChanges[1].RangeLength)
	assert.Empty(t, params.ContentChanges[1].Text)
}

func TestDidChangeDerivesEditsFromText(t *testing.T) {
	f := newFixture(t, factory.ServerCapabilitiesMinimal(protocol.TextDocumentSyncKindIncremental))
	f.withSettings(nil)
	s := f.started(t)
	ctx := context.Background()

	require.NoError(t, s.DidOpen(ctx, _docURI, "yaml", "name: old"))
	require.NoError(t, s.DidChange(ctx, _docURI, 1, nil, "name: new"))
	f.waitCount(t, protocol.MethodTextDocumentDidChange, 1)

	params := decode[protocol.DidChangeTextDocumentParams](t, f.server.Received(protocol.MethodTextDocumentDidChange)[0])
	require.NotEmpty(t, params.ContentChanges)
	for _, change := range params.ContentChanges {
		require.NotNil(t, change.Range)
		assert.Equal(t, uint32(0), change.Range.Start.Line)
	}
}

func TestDidChangeErrors(t *testing.T) {
	f := newFixture(t, factory.ServerCapabilitiesFull())
	f.withSettings(nil)
	s := f.started(t)
	ctx := context.Background()

	err := s.DidChange(ctx, _docURI, 1, nil, "a: 2")
	var notOpen *lsperrors.DocumentNotOpenError
	assert.ErrorAs(t, err, &notOpen)

	require.NoError(t, s.DidOpen(ctx, _docURI, "yaml", "a: 1"))
	require.NoError(t, s.DidChange(ctx, _docURI, 2, nil, "a: 2"))

	tests := []struct {
		name    string
		version int32
		changes []entity.TextChange
		check   func(t *testing.T, err error)
	}{
		{
			name:    "same version",
			version: 2,
			check: func(t *testing.T, err error) {
				var order *lsperrors.VersionOrderError
				require.ErrorAs(t, err, &order)
				assert.Equal(t, int32(2), order.Previous)
				assert.Equal(t, int32(2), order.Received)
			},
		},
		{
			name:    "older version",
			version: 1,
			check: func(t *testing.T, err error) {
				var order *lsperrors.VersionOrderError
				assert.ErrorAs(t, err, &order)
			},
		},
		{
			name:    "edit outside the document",
			version: 3,
			changes: []entity.TextChange{{Offset: 40, RemovedText: "x"}},
			check: func(t *testing.T, err error) {
				var invalid *lsperrors.InvalidEditError
				assert.ErrorAs(t, err, &invalid)
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, s.DidChange(ctx, _docURI, tt.version, tt.changes, "a: 3"))
		})
	}

	require.NoError(t, s.DidChange(ctx, _docURI, 3, nil, "a: 3"))
	f.waitCount(t, protocol.MethodTextDocumentDidChange, 2)
}

func TestDidChangeConfiguration(t *testing.T) {
	f := newFixture(t, factory.ServerCapabilitiesFull())
	first := map[string]interface{}{"yaml": map[string]interface{}{"validate": true}}
	second := map[string]interface{}{"yaml": map[string]interface{}{"validate": false}}
	gomock.InOrder(
		f.settings.EXPECT().Settings(gomock.Any()).Return(first, nil).Times(2),
		f.settings.EXPECT().Settings(gomock.Any()).Return(second, nil),
		f.settings.EXPECT().Settings(gomock.Any()).Return(nil, errors.New("parsing settings")),
	)
	s := f.started(t)
	ctx := context.Background()

	require.NoError(t, s.DidChangeConfiguration(ctx))
	require.NoError(t, s.DidChangeConfiguration(ctx))
	assert.ErrorContains(t, s.DidChangeConfiguration(ctx), "parsing settings")
	f.waitCount(t, protocol.MethodWorkspaceDidChangeConfiguration, 2)

	received := f.server.Received(protocol.MethodWorkspaceDidChangeConfiguration)
	require.Len(t, received, 2)
	assert.Equal(t, first, decode[protocol.DidChangeConfigurationParams](t, received[0]).Settings)
	assert.Equal(t, second, decode[protocol.DidChangeConfigurationParams](t, received[1]).Settings)
}

func TestHappyPath(t *testing.T) {
	f := newFixture(t, factory.ServerCapabilitiesFull())
	f.withSettings(nil)
	s := f.started(t)
	ctx := context.Background()

	require.NoError(t, s.DidOpen(ctx, _docURI, "yaml", "spec:\n  name."))
	_, err := s.Completion(ctx, _docURI, protocol.Position{Line: 1, Character: 7}, ".")
	require.NoError(t, err)
	require.NoError(t, s.DidChange(ctx, _docURI, 1, nil, "spec:\n  name.first"))
	f.waitCount(t, protocol.MethodTextDocumentDidChange, 1)

	assert.Equal(t, 1, f.server.Count(protocol.MethodTextDocumentCompletion))
	changes := f.server.Received(protocol.MethodTextDocumentDidChange)
	require.Len(t, changes, 1)
	params := decode[protocol.DidChangeTextDocumentParams](t, changes[0])
	assert.Equal(t, []protocol.TextDocumentContentChangeEvent{{Text: "spec:\n  name.first"}}, params.ContentChanges)
}
