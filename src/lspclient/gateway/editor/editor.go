// Package editor is the host-editor side of the session engine: the log sink, message presentation,
// user prompts and workspace edit application requested by language servers.
package editor

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/uber/lsp-client/src/lspclient/entity"
	"github.com/uber/lsp-client/src/lspclient/internal/event"
	"github.com/uber/lsp-client/src/lspclient/internal/fs"
	"github.com/uber/lsp-client/src/lspclient/mapper"
	"github.com/uber/lsp-client/src/lspclient/repository/document"
	"go.lsp.dev/protocol"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	_titleCancel   = "Cancel"
	_errApplyEdit  = "applying edit to %s: %w"
	_fileURIScheme = "file://"
)

// Module provides the editor gateway to fx.
var Module = fx.Provide(New)

// Gateway receives the server-initiated traffic that ends up in front of the user or in their files.
type Gateway interface {
	// LogMessage forwards a server log line to the log sink.
	LogMessage(ctx context.Context, params *protocol.LogMessageParams) error
	// ShowMessage presents a message to the user.
	ShowMessage(ctx context.Context, params *protocol.ShowMessageParams) error
	// ShowMessageRequest offers the actions plus a cancel choice and returns the selected action, or nil when canceled.
	ShowMessageRequest(ctx context.Context, params *protocol.ShowMessageRequestParams) (*protocol.MessageActionItem, error)
	// ApplyEdit applies a workspace edit. Open documents are edited in memory, other files on disk.
	ApplyEdit(ctx context.Context, params *protocol.ApplyWorkspaceEditParams) (*protocol.ApplyWorkspaceEditResponse, error)
	// SubscribeEdits registers handler for in-memory edits of open documents.
	SubscribeEdits(handler func(entity.DocumentEditedEvent)) (unsubscribe func())
}

// Presenter is the user-facing surface of the host.
type Presenter interface {
	// Show displays message with the given severity.
	Show(ctx context.Context, typ protocol.MessageType, message string) error
	// Choose asks the user to pick one of options and returns its index, or -1 if nothing was picked.
	Choose(ctx context.Context, typ protocol.MessageType, message string, options []string) (int, error)
}

// Params are inbound parameters to create the gateway.
type Params struct {
	fx.In

	Logger    *zap.SugaredLogger
	FS        fs.ClientFS
	Documents document.Repository
	Presenter Presenter `optional:"true"`
}

type gateway struct {
	logger    *zap.SugaredLogger
	fs        fs.ClientFS
	documents document.Repository
	presenter Presenter
	edits     event.Feed[entity.DocumentEditedEvent]
}

// New returns the editor gateway. Without a Presenter it runs headless: messages are logged and prompts are canceled.
func New(p Params) Gateway {
	return &gateway{
		logger:    p.Logger.Named("editor"),
		fs:        p.FS,
		documents: p.Documents,
		presenter: p.Presenter,
	}
}

func (g *gateway) LogMessage(ctx context.Context, params *protocol.LogMessageParams) error {
	g.logger.Logw(MessageTypeToLevel(params.Type), params.Message, "source", "server")
	return nil
}

func (g *gateway) ShowMessage(ctx context.Context, params *protocol.ShowMessageParams) error {
	if g.presenter == nil {
		g.logger.Logw(MessageTypeToLevel(params.Type), params.Message, "source", "showMessage")
		return nil
	}
	return g.presenter.Show(ctx, params.Type, params.Message)
}

func (g *gateway) ShowMessageRequest(ctx context.Context, params *protocol.ShowMessageRequestParams) (*protocol.MessageActionItem, error) {
	if g.presenter == nil {
		g.logger.Infow("no presenter to ask, canceling message request", "message", params.Message, "actions", len(params.Actions))
		return nil, nil
	}

	options := make([]string, 0, len(params.Actions)+1)
	for _, action := range params.Actions {
		options = append(options, action.Title)
	}
	options = append(options, _titleCancel)

	choice, err := g.presenter.Choose(ctx, params.Type, params.Message, options)
	if err != nil {
		return nil, err
	}
	if choice < 0 || choice >= len(params.Actions) {
		return nil, nil
	}
	item := params.Actions[choice]
	return &item, nil
}

type fileEdit struct {
	uri     protocol.DocumentURI
	version *int32
	edits   []protocol.TextEdit
}

func (g *gateway) ApplyEdit(ctx context.Context, params *protocol.ApplyWorkspaceEditParams) (*protocol.ApplyWorkspaceEditResponse, error) {
	for i, fe := range workspaceFileEdits(params.Edit) {
		if err := g.applyFileEdit(fe); err != nil {
			g.logger.Warnw("workspace edit failed", "label", params.Label, "change", i, zap.Error(err))
			return &protocol.ApplyWorkspaceEditResponse{
				Applied:       false,
				FailureReason: err.Error(),
				FailedChange:  uint32(i),
			}, nil
		}
	}
	return &protocol.ApplyWorkspaceEditResponse{Applied: true}, nil
}

func (g *gateway) SubscribeEdits(handler func(entity.DocumentEditedEvent)) func() {
	return g.edits.Subscribe(handler)
}

func (g *gateway) applyFileEdit(fe fileEdit) error {
	if doc, ok := g.documents.Get(fe.uri); ok {
		return g.applyInMemory(doc, fe)
	}
	return g.applyOnDisk(fe)
}

// applyInMemory edits an open document without saving it and bumps its version.
func (g *gateway) applyInMemory(doc entity.Document, fe fileEdit) error {
	if fe.version != nil && *fe.version != doc.Version {
		return fmt.Errorf(_errApplyEdit, fe.uri, fmt.Errorf("document is at version %d, edit expects %d", doc.Version, *fe.version))
	}

	text, err := mapper.ApplyTextEdits(doc.Text, fe.edits)
	if err != nil {
		return fmt.Errorf(_errApplyEdit, fe.uri, err)
	}

	changes := mapper.DiffTextChanges(doc.Text, text)
	doc.Version++
	doc.Text = text
	if err := g.documents.Update(doc.URI, doc.Version, doc.Text); err != nil {
		return fmt.Errorf(_errApplyEdit, fe.uri, err)
	}

	g.logger.Debugw("edited open document", "uri", doc.URI, "version", doc.Version, "changes", len(changes))
	g.edits.Publish(entity.DocumentEditedEvent{Document: doc, Changes: changes})
	return nil
}

func (g *gateway) applyOnDisk(fe fileEdit) error {
	path, err := Filename(fe.uri)
	if err != nil {
		return fmt.Errorf(_errApplyEdit, fe.uri, err)
	}

	exists, err := g.fs.FileExists(path)
	if err != nil {
		return fmt.Errorf(_errApplyEdit, fe.uri, err)
	}
	if !exists {
		return fmt.Errorf(_errApplyEdit, fe.uri, fmt.Errorf("file %s does not exist", path))
	}

	data, err := g.fs.ReadFile(path)
	if err != nil {
		return fmt.Errorf(_errApplyEdit, fe.uri, err)
	}
	text, err := mapper.ApplyTextEdits(string(data), fe.edits)
	if err != nil {
		return fmt.Errorf(_errApplyEdit, fe.uri, err)
	}
	if err := g.fs.WriteFile(path, text); err != nil {
		return fmt.Errorf(_errApplyEdit, fe.uri, err)
	}

	g.logger.Debugw("edited file on disk", "path", path, "edits", len(fe.edits))
	return nil
}

// workspaceFileEdits flattens a workspace edit into per-file edits.
// documentChanges keep their order; changes are ordered by URI.
func workspaceFileEdits(edit protocol.WorkspaceEdit) []fileEdit {
	if len(edit.DocumentChanges) > 0 {
		result := make([]fileEdit, 0, len(edit.DocumentChanges))
		for _, dc := range edit.DocumentChanges {
			result = append(result, fileEdit{
				uri:     dc.TextDocument.URI,
				version: dc.TextDocument.Version,
				edits:   dc.Edits,
			})
		}
		return result
	}

	uris := make([]protocol.DocumentURI, 0, len(edit.Changes))
	for u := range edit.Changes {
		uris = append(uris, u)
	}
	sort.Slice(uris, func(i, j int) bool { return uris[i] < uris[j] })

	result := make([]fileEdit, 0, len(uris))
	for _, u := range uris {
		result = append(result, fileEdit{uri: u, edits: edit.Changes[u]})
	}
	return result
}

// Filename returns the local path of a file URI.
func Filename(u protocol.DocumentURI) (string, error) {
	if !strings.HasPrefix(string(u), _fileURIScheme) {
		return "", fmt.Errorf("%q is not a file URI", u)
	}
	return u.Filename(), nil
}

// MessageTypeToLevel maps a protocol message severity to a log level.
func MessageTypeToLevel(typ protocol.MessageType) zapcore.Level {
	switch typ {
	case protocol.MessageTypeError:
		return zapcore.ErrorLevel
	case protocol.MessageTypeWarning:
		return zapcore.WarnLevel
	case protocol.MessageTypeInfo:
		return zapcore.InfoLevel
	default:
		return zapcore.DebugLevel
	}
}
