package factory

import (
	"go.lsp.dev/protocol"
)

// ServerCapabilitiesFull is a factory for capabilities declaring every feature with full document sync.
func ServerCapabilitiesFull() protocol.ServerCapabilities {
	return protocol.ServerCapabilities{
		TextDocumentSync: float64(protocol.TextDocumentSyncKindFull),
		CompletionProvider: &protocol.CompletionOptions{
			ResolveProvider:   true,
			TriggerCharacters: []string{".", ","},
		},
		HoverProvider:                   true,
		SignatureHelpProvider:           &protocol.SignatureHelpOptions{TriggerCharacters: []string{"("}},
		DefinitionProvider:              true,
		ReferencesProvider:              true,
		CodeActionProvider:              true,
		WorkspaceSymbolProvider:         true,
		DocumentFormattingProvider:      true,
		DocumentRangeFormattingProvider: true,
		RenameProvider:                  true,
		ExecuteCommandProvider:          &protocol.ExecuteCommandOptions{Commands: []string{"apply"}},
	}
}

// ServerCapabilitiesMinimal is a factory for capabilities declaring nothing but the given sync kind.
func ServerCapabilitiesMinimal(kind protocol.TextDocumentSyncKind) protocol.ServerCapabilities {
	return protocol.ServerCapabilities{
		TextDocumentSync: float64(kind),
	}
}

// Diagnostic is a factory for a single-line diagnostic.
func Diagnostic(line uint32, message string) protocol.Diagnostic {
	return protocol.Diagnostic{
		Range: protocol.Range{
			Start: protocol.Position{Line: line, Character: 0},
			End:   protocol.Position{Line: line, Character: 1},
		},
		Severity: protocol.DiagnosticSeverityError,
		Message:  message,
	}
}
