package target

import (
	"context"

	"github.com/uber/lsp-client/src/lspclient/mapper"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/zap"
)

func (t *jsonRPCTarget) LogMessage(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToLogMessageParams(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	if err := t.editor.LogMessage(ctx, params); err != nil {
		t.logger.Warnw("forwarding log message", zap.Error(err))
	}
	return reply(ctx, nil, nil)
}

func (t *jsonRPCTarget) ShowMessage(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToShowMessageParams(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	if err := t.editor.ShowMessage(ctx, params); err != nil {
		t.logger.Warnw("showing message", zap.Error(err))
	}
	return reply(ctx, nil, nil)
}

// ShowMessageRequest answers with the chosen action, or null when the user canceled or the prompt failed.
func (t *jsonRPCTarget) ShowMessageRequest(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToShowMessageRequestParams(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	item, err := t.editor.ShowMessageRequest(ctx, params)
	if err != nil {
		t.logger.Warnw("asking user", zap.Error(err))
		return reply(ctx, nil, nil)
	}
	if item == nil {
		return reply(ctx, nil, nil)
	}
	return reply(ctx, item, nil)
}
