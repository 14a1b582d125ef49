package session

import (
	"context"
	"encoding/json"

	"go.lsp.dev/protocol"
)

// CompletionFunc sends one completion request.
type CompletionFunc func(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error)

// CompletionMiddleware may inspect, rewrite or answer a completion request instead of next.
type CompletionMiddleware func(ctx context.Context, params *protocol.CompletionParams, next CompletionFunc) (*protocol.CompletionList, error)

// ExecuteCommandFunc sends one workspace/executeCommand request.
type ExecuteCommandFunc func(ctx context.Context, params *protocol.ExecuteCommandParams) (json.RawMessage, error)

// ExecuteCommandMiddleware may inspect, rewrite or answer a command execution instead of next.
type ExecuteCommandMiddleware func(ctx context.Context, params *protocol.ExecuteCommandParams, next ExecuteCommandFunc) (json.RawMessage, error)

// WorkspaceSymbolFunc sends one workspace/symbol request.
type WorkspaceSymbolFunc func(ctx context.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error)

// WorkspaceSymbolMiddleware may inspect, rewrite or answer a symbol query instead of next.
type WorkspaceSymbolMiddleware func(ctx context.Context, params *protocol.WorkspaceSymbolParams, next WorkspaceSymbolFunc) ([]protocol.SymbolInformation, error)

// CompletionProvider builds completion requests and runs them through the completion middleware.
type CompletionProvider struct {
	send     CompletionFunc
	triggers func() []string
}

func newCompletionProvider(send CompletionFunc, triggers func() []string, middleware []CompletionMiddleware) *CompletionProvider {
	for i := len(middleware) - 1; i >= 0; i-- {
		m, next := middleware[i], send
		send = func(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
			return m(ctx, params, next)
		}
	}
	return &CompletionProvider{send: send, triggers: triggers}
}

// IsTriggerCharacter reports whether typing ch should open completion.
func (p *CompletionProvider) IsTriggerCharacter(ch string) bool {
	if ch == "" {
		return false
	}
	for _, trigger := range p.triggers() {
		if trigger == ch {
			return true
		}
	}
	return false
}

// TriggerKind tells the server whether completion was typed into or invoked explicitly.
func (p *CompletionProvider) TriggerKind(typed string) protocol.CompletionTriggerKind {
	if p.IsTriggerCharacter(typed) {
		return protocol.CompletionTriggerKindTriggerCharacter
	}
	return protocol.CompletionTriggerKindInvoked
}

// Params builds the request for a completion at pos, typed being the character just entered, if any.
func (p *CompletionProvider) Params(uri protocol.DocumentURI, pos protocol.Position, typed string) *protocol.CompletionParams {
	params := &protocol.CompletionParams{
		TextDocumentPositionParams: protocol.TextDocumentPositionParams{
			TextDocument: protocol.TextDocumentIdentifier{URI: uri},
			Position:     pos,
		},
		Context: &protocol.CompletionContext{
			TriggerKind: p.TriggerKind(typed),
		},
	}
	if params.Context.TriggerKind == protocol.CompletionTriggerKindTriggerCharacter {
		params.Context.TriggerCharacter = typed
	}
	return params
}

// Provide sends params through the middleware chain.
func (p *CompletionProvider) Provide(ctx context.Context, params *protocol.CompletionParams) (*protocol.CompletionList, error) {
	return p.send(ctx, params)
}

// ExecuteCommandProvider runs command executions through the execute command middleware.
type ExecuteCommandProvider struct {
	send     ExecuteCommandFunc
	commands func() []string
}

func newExecuteCommandProvider(send ExecuteCommandFunc, commands func() []string, middleware []ExecuteCommandMiddleware) *ExecuteCommandProvider {
	for i := len(middleware) - 1; i >= 0; i-- {
		m, next := middleware[i], send
		send = func(ctx context.Context, params *protocol.ExecuteCommandParams) (json.RawMessage, error) {
			return m(ctx, params, next)
		}
	}
	return &ExecuteCommandProvider{send: send, commands: commands}
}

// Supports reports whether the server registered command. A server listing no commands accepts any.
func (p *ExecuteCommandProvider) Supports(command string) bool {
	commands := p.commands()
	if len(commands) == 0 {
		return true
	}
	for _, c := range commands {
		if c == command {
			return true
		}
	}
	return false
}

// Provide sends params through the middleware chain.
func (p *ExecuteCommandProvider) Provide(ctx context.Context, params *protocol.ExecuteCommandParams) (json.RawMessage, error) {
	return p.send(ctx, params)
}

// WorkspaceSymbolProvider runs symbol queries through the workspace symbol middleware.
type WorkspaceSymbolProvider struct {
	send WorkspaceSymbolFunc
}

func newWorkspaceSymbolProvider(send WorkspaceSymbolFunc, middleware []WorkspaceSymbolMiddleware) *WorkspaceSymbolProvider {
	for i := len(middleware) - 1; i >= 0; i-- {
		m, next := middleware[i], send
		send = func(ctx context.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
			return m(ctx, params, next)
		}
	}
	return &WorkspaceSymbolProvider{send: send}
}

// Provide sends params through the middleware chain.
func (p *WorkspaceSymbolProvider) Provide(ctx context.Context, params *protocol.WorkspaceSymbolParams) ([]protocol.SymbolInformation, error) {
	return p.send(ctx, params)
}
