package controller

import (
	"github.com/uber/lsp-client/src/lspclient/controller/diagnostics"
	"github.com/uber/lsp-client/src/lspclient/controller/router"
	"github.com/uber/lsp-client/src/lspclient/controller/session"
	"github.com/uber/lsp-client/src/lspclient/controller/settings"
	"go.uber.org/fx"
)

// Module provides the session engine and the router that owns its sessions.
var Module = fx.Options(
	diagnostics.Module,
	settings.Module,
	session.Module,
	router.Module,
	fx.Invoke(func(router.Router) {}),
)
