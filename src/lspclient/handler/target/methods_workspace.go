package target

import (
	"context"

	"github.com/uber/lsp-client/src/lspclient/controller/settings"
	"github.com/uber/lsp-client/src/lspclient/mapper"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.uber.org/zap"
)

const _reasonEditsNotAccepted = "workspace edits are not accepted by this client"

// ApplyEdit applies a workspace edit when the client accepts them. Failures are reported in the response.
func (t *jsonRPCTarget) ApplyEdit(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToApplyWorkspaceEditParams(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	if !t.client.AcceptsWorkspaceEdit {
		return reply(ctx, &protocol.ApplyWorkspaceEditResponse{FailureReason: _reasonEditsNotAccepted}, nil)
	}

	resp, err := t.editor.ApplyEdit(ctx, params)
	if err != nil {
		t.logger.Warnw("applying workspace edit", zap.Error(err))
		return reply(ctx, &protocol.ApplyWorkspaceEditResponse{FailureReason: err.Error()}, nil)
	}
	return reply(ctx, resp, nil)
}

// Configuration answers each requested section from the client's settings, null where nothing is set.
func (t *jsonRPCTarget) Configuration(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToConfigurationParams(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	doc, err := t.settings.Settings(t.client)
	if err != nil {
		t.logger.Warnw("reading settings for configuration request", zap.Error(err))
	}

	result := make([]interface{}, 0, len(params.Items))
	for _, item := range params.Items {
		result = append(result, settings.Lookup(doc, item.Section))
	}
	return reply(ctx, result, nil)
}
