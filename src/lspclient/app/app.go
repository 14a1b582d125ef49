package app

import (
	"context"
	"time"

	"github.com/uber-go/tally"
	"github.com/uber/lsp-client/src/lspclient/controller"
	"github.com/uber/lsp-client/src/lspclient/gateway"
	"github.com/uber/lsp-client/src/lspclient/handler"
	"github.com/uber/lsp-client/src/lspclient/internal/core"
	"github.com/uber/lsp-client/src/lspclient/internal/executor"
	"github.com/uber/lsp-client/src/lspclient/internal/fs"
	"github.com/uber/lsp-client/src/lspclient/internal/jsonrpcfx"
	"github.com/uber/lsp-client/src/lspclient/repository"
	"go.uber.org/fx"
)

// Module defines the lspclient application module.
var Module = fx.Options(
	controller.Module,
	gateway.Module, // outbounds
	handler.Module, // inbounds
	repository.Module,
	jsonrpcfx.Module,
	fs.Module,
	executor.Module,
	core.ConfigModule,
	core.LoggerModule,
	fx.Provide(func(lc fx.Lifecycle) tally.Scope {
		rs, closer := tally.NewRootScope(tally.ScopeOptions{
			Tags: map[string]string{
				"service": "lspclient",
			},
		}, 1*time.Second)

		lc.Append(fx.Hook{
			OnStop: func(ctx context.Context) error {
				return closer.Close()
			},
		})

		return rs
	}),
	fx.Decorate(decorateEnvContext),
	fx.Decorate(decorateConfigProvider),
	fx.Provide(func() Context {
		return Context{
			Environment:        EnvLocal,
			RuntimeEnvironment: EnvLocal,
		}
	}),
)
