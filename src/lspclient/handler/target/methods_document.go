package target

import (
	"context"

	"github.com/uber/lsp-client/src/lspclient/entity"
	"github.com/uber/lsp-client/src/lspclient/mapper"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// PublishDiagnostics replaces the stored diagnostics of one document.
func (t *jsonRPCTarget) PublishDiagnostics(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	params, err := mapper.RequestToPublishDiagnosticsParams(req)
	if err != nil {
		return reply(ctx, nil, err)
	}

	diagnostics := params.Diagnostics
	if diagnostics == nil {
		diagnostics = []protocol.Diagnostic{}
	}
	t.diagnostics.Publish(entity.DiagnosticsEvent{
		URI:         params.URI,
		Version:     params.Version,
		Diagnostics: diagnostics,
	})
	return reply(ctx, nil, nil)
}
