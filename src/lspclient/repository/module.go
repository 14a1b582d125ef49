package repository

import (
	"github.com/uber/lsp-client/src/lspclient/repository/document"
	"go.uber.org/fx"
)

// Module provides the repositories shared across sessions. The session table is owned by the router.
var Module = fx.Options(
	document.Module,
)
