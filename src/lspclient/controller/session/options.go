package session

import (
	"github.com/uber/lsp-client/src/lspclient/gateway/activator"
	"github.com/uber/lsp-client/src/lspclient/handler/target"
)

// Option customizes a Session created by the Factory.
type Option func(*options)

type options struct {
	activator       activator.Activator
	inbound         []target.Middleware
	completion      []CompletionMiddleware
	executeCommand  []ExecuteCommandMiddleware
	workspaceSymbol []WorkspaceSymbolMiddleware
	onFailure       []func(error)
}

// WithActivator replaces the activator the Factory would build from the client descriptor.
func WithActivator(a activator.Activator) Option {
	return func(o *options) {
		o.activator = a
	}
}

// WithInboundMiddleware attaches middleware in front of the inbound dispatch target.
func WithInboundMiddleware(m ...target.Middleware) Option {
	return func(o *options) {
		o.inbound = append(o.inbound, m...)
	}
}

// WithCompletionMiddleware wraps outgoing completion requests.
func WithCompletionMiddleware(m ...CompletionMiddleware) Option {
	return func(o *options) {
		o.completion = append(o.completion, m...)
	}
}

// WithExecuteCommandMiddleware wraps outgoing workspace/executeCommand requests.
func WithExecuteCommandMiddleware(m ...ExecuteCommandMiddleware) Option {
	return func(o *options) {
		o.executeCommand = append(o.executeCommand, m...)
	}
}

// WithWorkspaceSymbolMiddleware wraps outgoing workspace/symbol requests.
func WithWorkspaceSymbolMiddleware(m ...WorkspaceSymbolMiddleware) Option {
	return func(o *options) {
		o.workspaceSymbol = append(o.workspaceSymbol, m...)
	}
}

// WithFailureHook registers a function called with the cause when Start fails.
func WithFailureHook(hook func(error)) Option {
	return func(o *options) {
		o.onFailure = append(o.onFailure, hook)
	}
}
