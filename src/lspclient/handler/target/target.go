// Package target serves the calls and notifications a language server sends to the client.
package target

import (
	"context"
	"fmt"
	"sync"

	"github.com/gofrs/uuid"
	"github.com/uber-go/tally"
	"github.com/uber/lsp-client/src/lspclient/controller/diagnostics"
	"github.com/uber/lsp-client/src/lspclient/controller/settings"
	"github.com/uber/lsp-client/src/lspclient/entity"
	"github.com/uber/lsp-client/src/lspclient/gateway/editor"
	"github.com/uber/lsp-client/src/lspclient/internal/jsonrpcfx"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const _counterInboundCalls = "inbound_calls"

// Module provides the inbound dispatch target factory to fx.
var Module = fx.Provide(New)

// Middleware intercepts inbound messages before the dispatch target sees them.
// A middleware that handles a message itself must reply to it.
type Middleware func(next jsonrpc2.Handler) jsonrpc2.Handler

// Factory creates the inbound handler of one session.
type Factory interface {
	// New returns the handler serving a session's connection. middleware wraps the dispatch target,
	// the first element being the outermost.
	New(client entity.Client, id uuid.UUID, middleware ...Middleware) jsonrpc2.Handler
}

// Params are inbound parameters to create the factory.
type Params struct {
	fx.In

	Logger      *zap.SugaredLogger
	Stats       tally.Scope
	Editor      editor.Gateway
	Diagnostics diagnostics.Controller
	Settings    settings.Controller
}

type targetFactory struct {
	logger      *zap.SugaredLogger
	stats       tally.Scope
	editor      editor.Gateway
	diagnostics diagnostics.Controller
	settings    settings.Controller
}

// New returns a Factory for inbound dispatch targets.
func New(p Params) Factory {
	return &targetFactory{
		logger:      p.Logger,
		stats:       p.Stats.SubScope("inbound"),
		editor:      p.Editor,
		diagnostics: p.Diagnostics,
		settings:    p.Settings,
	}
}

func (f *targetFactory) New(client entity.Client, id uuid.UUID, middleware ...Middleware) jsonrpc2.Handler {
	t := &jsonRPCTarget{
		client:      client,
		uuid:        id,
		logger:      f.logger.With("client", client.Name, zap.Stringer("uuid", id)),
		stats:       f.stats.Tagged(map[string]string{"client": client.Name}),
		editor:      f.editor,
		diagnostics: f.diagnostics,
		settings:    f.settings,
	}

	var handler jsonrpc2.Handler = t.HandleReq
	for i := len(middleware) - 1; i >= 0; i-- {
		handler = middleware[i](handler)
	}
	return jsonrpcfx.Handlers(Recover(t.logger)(handler))
}

type jsonRPCTarget struct {
	client      entity.Client
	uuid        uuid.UUID
	logger      *zap.SugaredLogger
	stats       tally.Scope
	editor      editor.Gateway
	diagnostics diagnostics.Controller
	settings    settings.Controller
}

// HandleReq routes a single inbound message.
func (t *jsonRPCTarget) HandleReq(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	ctx = context.WithValue(ctx, entity.SessionContextKey, t.uuid)
	t.stats.Tagged(map[string]string{"method": req.Method()}).Counter(_counterInboundCalls).Inc(1)

	switch req.Method() {
	// Window methods.
	case protocol.MethodWindowLogMessage:
		return t.LogMessage(ctx, reply, req)

	case protocol.MethodWindowShowMessage:
		return t.ShowMessage(ctx, reply, req)

	case protocol.MethodWindowShowMessageRequest:
		return t.ShowMessageRequest(ctx, reply, req)

	case protocol.MethodWorkDoneProgressCreate:
		return reply(ctx, nil, nil)

	// Document methods.
	case protocol.MethodTextDocumentPublishDiagnostics:
		return t.PublishDiagnostics(ctx, reply, req)

	// Workspace methods.
	case protocol.MethodWorkspaceApplyEdit:
		return t.ApplyEdit(ctx, reply, req)

	case protocol.MethodWorkspaceConfiguration:
		return t.Configuration(ctx, reply, req)

	// Client methods.
	case protocol.MethodClientRegisterCapability, protocol.MethodClientUnregisterCapability:
		return reply(ctx, nil, nil)

	default:
		if _, isCall := req.(*jsonrpc2.Call); isCall {
			return jsonrpc2.MethodNotFoundHandler(ctx, reply, req)
		}
		t.logger.Debugw("ignoring notification", "method", req.Method())
		return reply(ctx, nil, nil)
	}
}

// Recover answers a call with a null result when the wrapped handler panics or returns without replying,
// so the server never waits on a lost response.
func Recover(logger *zap.SugaredLogger) Middleware {
	return func(next jsonrpc2.Handler) jsonrpc2.Handler {
		return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) (err error) {
			var once sync.Once
			replied := false
			guarded := func(ctx context.Context, result interface{}, replyErr error) error {
				var sendErr error
				once.Do(func() {
					replied = true
					sendErr = reply(ctx, result, replyErr)
				})
				return sendErr
			}

			defer func() {
				if r := recover(); r != nil {
					logger.Errorw("inbound handler panicked", "method", req.Method(), "panic", fmt.Sprint(r))
				}
				if !replied {
					err = guarded(ctx, nil, nil)
				}
			}()

			if err := next(ctx, guarded, req); err != nil {
				logger.Warnw("inbound handler failed", "method", req.Method(), zap.Error(err))
			}
			return nil
		}
	}
}
