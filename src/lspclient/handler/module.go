package handler

import (
	"github.com/uber/lsp-client/src/lspclient/handler/target"
	"go.uber.org/fx"
)

// Module provides the handlers of server-initiated traffic.
var Module = fx.Options(
	target.Module,
)
