package session

import (
	"context"
	"encoding/json"

	"github.com/uber/lsp-client/src/lspclient/mapper"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

// call sends method unless the session is not started or the server does not support it.
// sent is false when the request was short-circuited and never reached the wire.
func (s *Session) call(ctx context.Context, method string, supported bool, params interface{}) (raw json.RawMessage, sent bool, err error) {
	scope := s.stats.Tagged(map[string]string{"method": method})

	conn := s.connection()
	if !s.Started() || !supported || conn == nil {
		scope.Counter(_counterShortCircuit).Inc(1)
		return nil, false, nil
	}

	scope.Counter(_counterRequests).Inc(1)
	sw := scope.Timer(_timerRequestLatency).Start()
	defer sw.Stop()

	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	if err := protocol.Call(ctx, conn, method, params, &raw); err != nil {
		scope.Counter(_counterRequestErrors).Inc(1)
		s.logger.Debugw("request failed", "method", method, zap.Error(err))
		return nil, true, err
	}
	return raw, true, nil
}

// IsCompletionProvider reports whether the server offers completion.
func (s *Session) IsCompletionProvider() bool {
	return s.Capabilities().Completion
}

// IsCompletionResolveProvider reports whether the server resolves additional completion item details.
func (s *Session) IsCompletionResolveProvider() bool {
	return s.Capabilities().CompletionResolve
}

// IsReferencesProvider reports whether the server finds references.
func (s *Session) IsReferencesProvider() bool {
	return s.Capabilities().References
}

// IsDefinitionProvider reports whether the server finds definitions.
func (s *Session) IsDefinitionProvider() bool {
	return s.Capabilities().Definition
}

// IsHoverProvider reports whether the server answers hover requests.
func (s *Session) IsHoverProvider() bool {
	return s.Capabilities().Hover
}

// IsSignatureHelpProvider reports whether the server offers signature help.
func (s *Session) IsSignatureHelpProvider() bool {
	return s.Capabilities().SignatureHelp
}

// IsDocumentFormattingProvider reports whether the server formats whole documents.
func (s *Session) IsDocumentFormattingProvider() bool {
	return s.Capabilities().DocumentFormatting
}

// IsRangeFormattingProvider reports whether the server formats ranges.
func (s *Session) IsRangeFormattingProvider() bool {
	return s.Capabilities().RangeFormatting
}

// IsRenameProvider reports whether the server renames symbols.
func (s *Session) IsRenameProvider() bool {
	return s.Capabilities().Rename
}

// IsCodeActionProvider reports whether the server offers code actions.
func (s *Session) IsCodeActionProvider() bool {
	return s.Capabilities().CodeAction
}

// IsExecuteCommandProvider reports whether the server executes commands.
func (s *Session) IsExecuteCommandProvider() bool {
	return s.Capabilities().ExecuteCommand
}

// IsWorkspaceSymbolProvider reports whether the server searches workspace symbols.
func (s *Session) IsWorkspaceSymbolProvider() bool {
	return s.Capabilities().WorkspaceSymbols
}

// IsCompletionTriggerCharacter reports whether typing ch should open completion.
func (s *Session) IsCompletionTriggerCharacter(ch string) bool {
	return s.completion.IsTriggerCharacter(ch)
}

// CompletionProvider returns the completion shim of the session.
func (s *Session) CompletionProvider() *CompletionProvider {
	return s.completion
}

// Completion requests completion at pos. typed is the character just entered, empty for an explicit invocation.
func (s *Session) Completion(ctx context.Context, uri protocol.DocumentURI, pos protocol.Position, typed string) (*protocol.CompletionList, error) {
	if !s.Started() || !s.IsCompletionProvider() {
		return s.sendCompletion(ctx, nil)
	}
	return s.completion.Provide(ctx, s.completion.Params(uri, pos, typed))
}

func (s *Session) sendCompletion(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	raw, _, err := s.call(ctx, protocol.MethodTextDocumentCompletion, params != nil && s.IsCompletionProvider(), params)
	if err != nil {
		return emptyCompletionList(), err
	}
	return mapper.ResultToCompletionList(raw)
}

// ResolveCompletion asks the server to fill in the details of item. item is returned unchanged when resolve is unsupported.
func (s *Session) ResolveCompletion(ctx context.Context, item protocol.CompletionItem) (*protocol.CompletionItem, error) {
	raw, sent, err := s.call(ctx, protocol.MethodCompletionItemResolve, s.IsCompletionProvider() && s.IsCompletionResolveProvider(), &item)
	if err != nil || !sent {
		return &item, err
	}
	resolved, err := mapper.ResultToValue[protocol.CompletionItem](raw)
	if err != nil || resolved == nil {
		return &item, err
	}
	return resolved, nil
}

// References finds the references to the symbol at pos.
func (s *Session) References(ctx context.Context, uri protocol.DocumentURI, pos protocol.Position, includeDeclaration bool) ([]protocol.Location, error) {
	params := &protocol.ReferenceParams{
		TextDocumentPositionParams: positionParams(uri, pos),
		Context:                    protocol.ReferenceContext{IncludeDeclaration: includeDeclaration},
	}
	raw, _, err := s.call(ctx, protocol.MethodTextDocumentReferences, s.IsReferencesProvider(), params)
	if err != nil {
		return []protocol.Location{}, err
	}
	return mapper.ResultToLocations(raw)
}

// Definition finds the definitions of the symbol at pos.
func (s *Session) Definition(ctx context.Context, uri protocol.DocumentURI, pos protocol.Position) ([]protocol.Location, error) {
	params := &protocol.DefinitionParams{TextDocumentPositionParams: positionParams(uri, pos)}
	raw, _, err := s.call(ctx, protocol.MethodTextDocumentDefinition, s.IsDefinitionProvider(), params)
	if err != nil {
		return []protocol.Location{}, err
	}
	return mapper.ResultToLocations(raw)
}

// Hover returns the hover for pos, nil when there is none.
func (s *Session) Hover(ctx context.Context, uri protocol.DocumentURI, pos protocol.Position) (*protocol.Hover, error) {
	params := &protocol.HoverParams{TextDocumentPositionParams: positionParams(uri, pos)}
	raw, _, err := s.call(ctx, protocol.MethodTextDocumentHover, s.IsHoverProvider(), params)
	if err != nil {
		return nil, err
	}
	return mapper.ResultToValue[protocol.Hover](raw)
}

// SignatureHelp returns the signatures valid at pos, nil when there are none.
func (s *Session) SignatureHelp(ctx context.Context, uri protocol.DocumentURI, pos protocol.Position) (*protocol.SignatureHelp, error) {
	params := &protocol.SignatureHelpParams{TextDocumentPositionParams: positionParams(uri, pos)}
	raw, _, err := s.call(ctx, protocol.MethodTextDocumentSignatureHelp, s.IsSignatureHelpProvider(), params)
	if err != nil {
		return nil, err
	}
	return mapper.ResultToValue[protocol.SignatureHelp](raw)
}

// Formatting returns the edits that format the whole document.
func (s *Session) Formatting(ctx context.Context, uri protocol.DocumentURI, opts protocol.FormattingOptions) ([]protocol.TextEdit, error) {
	params := &protocol.DocumentFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Options:      opts,
	}
	raw, _, err := s.call(ctx, protocol.MethodTextDocumentFormatting, s.IsDocumentFormattingProvider(), params)
	if err != nil {
		return []protocol.TextEdit{}, err
	}
	return mapper.ResultToTextEdits(raw)
}

// RangeFormatting returns the edits that format rng.
func (s *Session) RangeFormatting(ctx context.Context, uri protocol.DocumentURI, rng protocol.Range, opts protocol.FormattingOptions) ([]protocol.TextEdit, error) {
	params := &protocol.DocumentRangeFormattingParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Range:        rng,
		Options:      opts,
	}
	raw, _, err := s.call(ctx, protocol.MethodTextDocumentRangeFormatting, s.IsRangeFormattingProvider(), params)
	if err != nil {
		return []protocol.TextEdit{}, err
	}
	return mapper.ResultToTextEdits(raw)
}

// Rename returns the workspace edit renaming the symbol at pos, nil when the server has none.
func (s *Session) Rename(ctx context.Context, uri protocol.DocumentURI, pos protocol.Position, newName string) (*protocol.WorkspaceEdit, error) {
	params := &protocol.RenameParams{
		TextDocumentPositionParams: positionParams(uri, pos),
		NewName:                    newName,
	}
	raw, _, err := s.call(ctx, protocol.MethodTextDocumentRename, s.IsRenameProvider(), params)
	if err != nil {
		return nil, err
	}
	return mapper.ResultToValue[protocol.WorkspaceEdit](raw)
}

// CodeAction returns the actions available for rng given the diagnostics reported there.
func (s *Session) CodeAction(ctx context.Context, uri protocol.DocumentURI, rng protocol.Range, diagnostics []protocol.Diagnostic) ([]protocol.CodeAction, error) {
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	params := &protocol.CodeActionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Range:        rng,
		Context:      protocol.CodeActionContext{Diagnostics: diagnostics},
	}
	raw, _, err := s.call(ctx, protocol.MethodTextDocumentCodeAction, s.IsCodeActionProvider(), params)
	if err != nil {
		return []protocol.CodeAction{}, err
	}
	return mapper.ResultToCodeActions(raw)
}

// ExecuteCommand runs command on the server. Commands the server did not register are not sent.
func (s *Session) ExecuteCommand(ctx context.Context, command string, args ...interface{}) (json.RawMessage, error) {
	if !s.Started() || !s.IsExecuteCommandProvider() || !s.executeCommand.Supports(command) {
		return s.sendExecuteCommand(ctx, nil)
	}
	return s.executeCommand.Provide(ctx, &protocol.ExecuteCommandParams{Command: command, Arguments: args})
}

func (s *Session) sendExecuteCommand(ctx context.Context, params *protocol.ExecuteCommandParams) (json.RawMessage, error) {
	supported := params != nil && s.IsExecuteCommandProvider() && s.executeCommand.Supports(params.Command)
	raw, _, err := s.call(ctx, protocol.MethodWorkspaceExecuteCommand, supported, params)
	return mapper.ResultToRawMessage(raw), err
}

// WorkspaceSymbols searches the workspace for symbols matching query.
func (s *Session) WorkspaceSymbols(ctx context.Context, query string) ([]protocol.SymbolInformation, error) {
	if !s.Started() || !s.IsWorkspaceSymbolProvider() {
		return s.sendWorkspaceSymbol(ctx, nil)
	}
	return s.workspaceSymbol.Provide(ctx, &protocol.WorkspaceSymbolParams{Query: query})
}

func (s *Session) sendWorkspaceSymbol(ctx context.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	raw, _, err := s.call(ctx, protocol.MethodWorkspaceSymbol, params != nil && s.IsWorkspaceSymbolProvider(), params)
	if err != nil {
		return []protocol.SymbolInformation{}, err
	}
	return mapper.ResultToSymbols(raw)
}

func positionParams(uri protocol.DocumentURI, pos protocol.Position) protocol.TextDocumentPositionParams {
	return protocol.TextDocumentPositionParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: uri},
		Position:     pos,
	}
}

func emptyCompletionList() *protocol.CompletionList {
	return &protocol.CompletionList{Items: []protocol.CompletionItem{}}
}
