package mapper

import (
	"github.com/uber/lsp-client/src/lspclient/entity"
	"go.lsp.dev/protocol"
)

// ServerCapabilitiesToCapabilities maps the sparse wire capabilities into the typed capability bag.
// Provider fields typed as interface{} arrive as bool or as an options object; any options object means supported.
func ServerCapabilitiesToCapabilities(caps protocol.ServerCapabilities) entity.Capabilities {
	result := entity.Capabilities{
		References:         providerEnabled(caps.ReferencesProvider),
		Definition:         providerEnabled(caps.DefinitionProvider),
		Hover:              providerEnabled(caps.HoverProvider),
		Rename:             providerEnabled(caps.RenameProvider),
		CodeAction:         providerEnabled(caps.CodeActionProvider),
		DocumentFormatting: providerEnabled(caps.DocumentFormattingProvider),
		RangeFormatting:    providerEnabled(caps.DocumentRangeFormattingProvider),
		WorkspaceSymbols:   providerEnabled(caps.WorkspaceSymbolProvider),
		Sync:               TextDocumentSyncToSyncMode(caps.TextDocumentSync),
	}

	if caps.CompletionProvider != nil {
		result.Completion = true
		result.CompletionResolve = caps.CompletionProvider.ResolveProvider
		result.CompletionTriggerCharacters = append([]string(nil), caps.CompletionProvider.TriggerCharacters...)
	}

	if caps.SignatureHelpProvider != nil {
		result.SignatureHelp = true
		result.SignatureHelpTriggerCharacters = append([]string(nil), caps.SignatureHelpProvider.TriggerCharacters...)
	}

	if caps.ExecuteCommandProvider != nil {
		result.ExecuteCommand = true
		result.Commands = append([]string(nil), caps.ExecuteCommandProvider.Commands...)
	}

	return result
}

// TextDocumentSyncToSyncMode resolves the textDocumentSync capability, which is either a
// TextDocumentSyncKind number or a TextDocumentSyncOptions object.
func TextDocumentSyncToSyncMode(sync interface{}) entity.SyncMode {
	switch v := sync.(type) {
	case nil:
		return entity.SyncNone
	case float64:
		return syncKindToMode(protocol.TextDocumentSyncKind(v))
	case int:
		return syncKindToMode(protocol.TextDocumentSyncKind(v))
	case protocol.TextDocumentSyncKind:
		return syncKindToMode(v)
	case *protocol.TextDocumentSyncOptions:
		if v == nil {
			return entity.SyncNone
		}
		return syncKindToMode(v.Change)
	case protocol.TextDocumentSyncOptions:
		return syncKindToMode(v.Change)
	case map[string]interface{}:
		change, ok := v["change"].(float64)
		if !ok {
			return entity.SyncNone
		}
		return syncKindToMode(protocol.TextDocumentSyncKind(change))
	default:
		return entity.SyncNone
	}
}

func syncKindToMode(kind protocol.TextDocumentSyncKind) entity.SyncMode {
	switch kind {
	case protocol.TextDocumentSyncKindFull:
		return entity.SyncFull
	case protocol.TextDocumentSyncKindIncremental:
		return entity.SyncIncremental
	default:
		return entity.SyncNone
	}
}

func providerEnabled(provider interface{}) bool {
	switch v := provider.(type) {
	case nil:
		return false
	case bool:
		return v
	case map[string]interface{}:
		return v != nil
	default:
		return true
	}
}

// ClientToClientCapabilities declares what this client implements to a server for client.
// Workspace edits are declared only when the client descriptor accepts them.
func ClientToClientCapabilities(client entity.Client) protocol.ClientCapabilities {
	workspace := &protocol.WorkspaceClientCapabilities{
		ApplyEdit:              client.AcceptsWorkspaceEdit,
		DidChangeConfiguration: &protocol.DidChangeConfigurationWorkspaceClientCapabilities{},
		Symbol:                 &protocol.WorkspaceSymbolClientCapabilities{},
		ExecuteCommand:         &protocol.ExecuteCommandClientCapabilities{},
		WorkspaceFolders:       true,
		Configuration:          client.HasConfigurationSections(),
	}
	if client.AcceptsWorkspaceEdit {
		workspace.WorkspaceEdit = &protocol.WorkspaceClientCapabilitiesWorkspaceEdit{
			DocumentChanges: true,
			FailureHandling: "abort",
		}
	}

	return protocol.ClientCapabilities{
		Workspace: workspace,
		TextDocument: &protocol.TextDocumentClientCapabilities{
			Synchronization: &protocol.TextDocumentSyncClientCapabilities{},
			Completion: &protocol.CompletionTextDocumentClientCapabilities{
				CompletionItem: &protocol.CompletionTextDocumentClientCapabilitiesItem{
					DocumentationFormat: []protocol.MarkupKind{protocol.PlainText, protocol.Markdown},
				},
				ContextSupport: true,
			},
			Hover: &protocol.HoverTextDocumentClientCapabilities{
				ContentFormat: []protocol.MarkupKind{protocol.PlainText, protocol.Markdown},
			},
			SignatureHelp:      &protocol.SignatureHelpTextDocumentClientCapabilities{},
			Definition:         &protocol.DefinitionTextDocumentClientCapabilities{},
			References:         &protocol.ReferencesTextDocumentClientCapabilities{},
			CodeAction:         &protocol.CodeActionClientCapabilities{},
			Formatting:         &protocol.DocumentFormattingClientCapabilities{},
			RangeFormatting:    &protocol.DocumentRangeFormattingClientCapabilities{},
			Rename:             &protocol.RenameClientCapabilities{},
			PublishDiagnostics: &protocol.PublishDiagnosticsClientCapabilities{},
		},
		Window: &protocol.WindowClientCapabilities{
			ShowMessage: &protocol.ShowMessageRequestClientCapabilities{},
		},
	}
}
