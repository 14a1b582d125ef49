package jsonrpcfx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"sync"

	"github.com/gofrs/uuid"
	"go.lsp.dev/jsonrpc2"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const _configKey = "jsonrpc"

// Module is an fx module to manage JSON-RPC connections to language servers.
var Module = fx.Provide(New)

// JSONRPCModule turns activated byte streams into JSON-RPC connections and tracks them until they close.
type JSONRPCModule interface {
	// Connect wraps rwc into a connection and starts serving inbound messages with handler.
	// ctx bounds the lifetime of the read loop.
	Connect(ctx context.Context, id uuid.UUID, rwc io.ReadWriteCloser, handler jsonrpc2.Handler) jsonrpc2.Conn
	// Len reports the number of connections that have not closed yet.
	Len() int
	// OnStop closes every connection that is still open.
	OnStop(ctx context.Context) error
}

// Config holds the settings of this module.
type Config struct {
	// Trace logs every message at debug level.
	Trace bool `yaml:"trace"`
}

// rawFramer is implemented by transports that delimit messages themselves, such as websockets.
type rawFramer interface {
	RawFraming() bool
}

type module struct {
	cfg    Config
	logger *zap.SugaredLogger

	connsMu sync.Mutex
	conns   map[uuid.UUID]jsonrpc2.Conn
}

// Params define values to be used by New.
type Params struct {
	fx.In

	Config    config.Provider
	Lifecycle fx.Lifecycle
	Logger    *zap.SugaredLogger
}

// New creates a new connection manager.
func New(p Params) (JSONRPCModule, error) {
	if p.Lifecycle == nil || p.Config == nil {
		return nil, errors.New("required parameters are missing")
	}

	m := &module{
		logger: p.Logger,
		conns:  make(map[uuid.UUID]jsonrpc2.Conn),
	}

	if err := p.Config.Get(_configKey).Populate(&m.cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}

	p.Lifecycle.Append(fx.Hook{
		OnStop: m.OnStop,
	})

	return m, nil
}

// Connect is called once a language server stream is available. Requests received via the connection
// are routed to the handler and answered via the connection's replier.
func (m *module) Connect(ctx context.Context, id uuid.UUID, rwc io.ReadWriteCloser, handler jsonrpc2.Handler) jsonrpc2.Conn {
	var stream jsonrpc2.Stream
	if framed, ok := rwc.(rawFramer); ok && framed.RawFraming() {
		stream = jsonrpc2.NewRawStream(rwc)
	} else {
		stream = jsonrpc2.NewStream(rwc)
	}
	if m.cfg.Trace {
		stream = &traceStream{Stream: stream, logger: m.logger.With(zap.Stringer("uuid", id))}
	}

	conn := jsonrpc2.NewConn(stream)

	m.connsMu.Lock()
	m.conns[id] = conn
	m.connsMu.Unlock()

	conn.Go(ctx, handler)
	m.logger.Infow("language server connected", zap.Stringer("uuid", id))

	go func() {
		// Block until the connection is closed.
		<-conn.Done()

		m.connsMu.Lock()
		delete(m.conns, id)
		m.connsMu.Unlock()
		m.logger.Infow("language server disconnected", zap.Stringer("uuid", id), zap.Error(conn.Err()))
	}()

	return conn
}

// Len reports the number of connections that are still open.
func (m *module) Len() int {
	m.connsMu.Lock()
	defer m.connsMu.Unlock()
	return len(m.conns)
}

// OnStop closes all open connections so no language server outlives the process.
func (m *module) OnStop(ctx context.Context) error {
	m.connsMu.Lock()
	conns := make([]jsonrpc2.Conn, 0, len(m.conns))
	for _, conn := range m.conns {
		conns = append(conns, conn)
	}
	m.connsMu.Unlock()

	var err error
	for _, conn := range conns {
		err = multierr.Append(err, ignoreClosed(conn.Close()))
	}
	return err
}

func ignoreClosed(err error) error {
	if err == nil || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, os.ErrClosed) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}

// traceStream logs each message passing through the wrapped stream.
type traceStream struct {
	jsonrpc2.Stream
	logger *zap.SugaredLogger
}

func (s *traceStream) Read(ctx context.Context) (jsonrpc2.Message, int64, error) {
	msg, n, err := s.Stream.Read(ctx)
	if err == nil {
		s.logger.Debugw("received", messageFields(msg)...)
	}
	return msg, n, err
}

func (s *traceStream) Write(ctx context.Context, msg jsonrpc2.Message) (int64, error) {
	s.logger.Debugw("sent", messageFields(msg)...)
	return s.Stream.Write(ctx, msg)
}

func messageFields(msg jsonrpc2.Message) []interface{} {
	switch msg := msg.(type) {
	case *jsonrpc2.Call:
		return []interface{}{"kind", "call", "method", msg.Method(), "id", fmt.Sprint(msg.ID())}
	case *jsonrpc2.Notification:
		return []interface{}{"kind", "notification", "method", msg.Method()}
	case *jsonrpc2.Response:
		return []interface{}{"kind", "response", "id", fmt.Sprint(msg.ID()), "error", msg.Err()}
	default:
		return []interface{}{"kind", fmt.Sprintf("%T", msg)}
	}
}
