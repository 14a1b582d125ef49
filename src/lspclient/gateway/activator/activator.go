package activator

import (
	"context"
	"fmt"
	"io"

	"github.com/uber/lsp-client/src/lspclient/entity"
	"github.com/uber/lsp-client/src/lspclient/internal/executor"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the activator factory to fx.
var Module = fx.Provide(New)

// Activator produces the byte stream to one language server instance.
type Activator interface {
	// Activate launches or connects to the server. ctx bounds only the activation itself.
	Activate(ctx context.Context) (io.ReadWriteCloser, error)
}

// Factory creates activators from client descriptors.
type Factory interface {
	// New returns an activator for client. root is the workspace root of the session, empty when unrooted.
	New(client entity.Client, root string) (Activator, error)
}

// Params are the dependencies of the default Factory.
type Params struct {
	fx.In

	Executor executor.Executor
	Logger   *zap.SugaredLogger
}

type transportFactory struct {
	executor executor.Executor
	logger   *zap.SugaredLogger
}

// New returns the Factory that maps each transport to its activator.
func New(p Params) Factory {
	return &transportFactory{
		executor: p.Executor,
		logger:   p.Logger,
	}
}

func (f *transportFactory) New(client entity.Client, root string) (Activator, error) {
	transport := client.Transport
	if transport == "" {
		transport = entity.TransportStdio
	}

	switch transport {
	case entity.TransportStdio:
		if client.Command == "" {
			return nil, fmt.Errorf("client %q: stdio transport requires a command", client.Name)
		}
		return &stdioActivator{
			client:   client,
			dir:      root,
			executor: f.executor,
			logger:   f.logger.With("client", client.Name),
		}, nil
	case entity.TransportTCP, entity.TransportUnix:
		if client.Address == "" {
			return nil, fmt.Errorf("client %q: %s transport requires an address", client.Name, transport)
		}
		return &socketActivator{network: transport, address: client.Address}, nil
	case entity.TransportWebSocket:
		if client.Address == "" {
			return nil, fmt.Errorf("client %q: websocket transport requires an address", client.Name)
		}
		return &websocketActivator{address: client.Address}, nil
	default:
		return nil, fmt.Errorf("client %q: unknown transport %q", client.Name, transport)
	}
}

// Func adapts a function to the Activator interface.
type Func func(ctx context.Context) (io.ReadWriteCloser, error)

// Activate calls f.
func (f Func) Activate(ctx context.Context) (io.ReadWriteCloser, error) {
	return f(ctx)
}
