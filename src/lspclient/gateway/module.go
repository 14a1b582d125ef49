package gateway

import (
	"github.com/uber/lsp-client/src/lspclient/gateway/activator"
	"github.com/uber/lsp-client/src/lspclient/gateway/editor"
	"go.uber.org/fx"
)

// Module provides the outbound gateways: language server transports and the editor.
var Module = fx.Options(
	activator.Module,
	editor.Module,
)
