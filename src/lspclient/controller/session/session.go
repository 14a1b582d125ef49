// Package session drives one language server: handshake, capability gating, document sync and shutdown.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	"github.com/uber-go/tally"
	"github.com/uber/lsp-client/src/lspclient/controller/settings"
	"github.com/uber/lsp-client/src/lspclient/entity"
	"github.com/uber/lsp-client/src/lspclient/gateway/activator"
	"github.com/uber/lsp-client/src/lspclient/handler/target"
	lsperrors "github.com/uber/lsp-client/src/lspclient/internal/errors"
	"github.com/uber/lsp-client/src/lspclient/internal/event"
	"github.com/uber/lsp-client/src/lspclient/internal/jsonrpcfx"
	"github.com/uber/lsp-client/src/lspclient/mapper"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_configKey  = "session"
	_clientName = "lspclient"

	_counterStartFailures = "start_failures"
	_counterRequests      = "requests"
	_counterShortCircuit  = "requests_short_circuited"
	_counterRequestErrors = "request_failures"
	_timerRequestLatency  = "request_latency"

	_defaultShutdownTimeout = 5 * time.Second
	_defaultExitTimeout     = time.Second
)

// Module provides the session Factory to fx.
var Module = fx.Provide(NewFactory)

// Config is the session block of the configuration.
type Config struct {
	// RequestTimeout bounds every feature request. Zero leaves the caller's context alone.
	RequestTimeout time.Duration `yaml:"requestTimeout"`
	// ShutdownTimeout bounds the wait for the shutdown response.
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// ExitTimeout bounds the wait for the server to go away after exit.
	ExitTimeout time.Duration `yaml:"exitTimeout"`
}

// Factory creates sessions bound to a client and a key.
type Factory interface {
	New(client entity.Client, key entity.Key, opts ...Option) (*Session, error)
}

// Params are inbound parameters to create the factory.
type Params struct {
	fx.In

	Config     config.Provider
	Logger     *zap.SugaredLogger
	Stats      tally.Scope
	Activators activator.Factory
	JSONRPC    jsonrpcfx.JSONRPCModule
	Targets    target.Factory
	Settings   settings.Controller
}

type sessionFactory struct {
	cfg        Config
	logger     *zap.SugaredLogger
	stats      tally.Scope
	activators activator.Factory
	jsonrpc    jsonrpcfx.JSONRPCModule
	targets    target.Factory
	settings   settings.Controller
}

// NewFactory reads the session configuration and returns a Factory.
func NewFactory(p Params) (Factory, error) {
	cfg := Config{
		ShutdownTimeout: _defaultShutdownTimeout,
		ExitTimeout:     _defaultExitTimeout,
	}
	if err := p.Config.Get(_configKey).Populate(&cfg); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}

	return &sessionFactory{
		cfg:        cfg,
		logger:     p.Logger,
		stats:      p.Stats.SubScope("session"),
		activators: p.Activators,
		jsonrpc:    p.JSONRPC,
		targets:    p.Targets,
		settings:   p.Settings,
	}, nil
}

func (f *sessionFactory) New(client entity.Client, key entity.Key, opts ...Option) (*Session, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	if client.InitializationOptions != "" && !json.Valid([]byte(client.InitializationOptions)) {
		return nil, fmt.Errorf("client %q: initializationOptions is not valid JSON", client.Name)
	}

	if o.activator == nil {
		a, err := f.activators.New(client, key.Root)
		if err != nil {
			return nil, &lsperrors.ActivationError{Client: client.Name, Err: err}
		}
		o.activator = a
	}

	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("generating session id: %w", err)
	}

	s := &Session{
		id:       id,
		key:      key,
		client:   client,
		cfg:      f.cfg,
		logger:   f.logger.With("client", client.Name, zap.Object("key", key), zap.Stringer("uuid", id)),
		stats:    f.stats.Tagged(map[string]string{"client": client.Name}),
		jsonrpc:  f.jsonrpc,
		targets:  f.targets,
		settings: f.settings,
		opts:     o,
		docs:     make(map[protocol.DocumentURI]*openDocument),
	}

	s.completion = newCompletionProvider(s.sendCompletion, func() []string { return s.Capabilities().CompletionTriggerCharacters }, o.completion)
	s.executeCommand = newExecuteCommandProvider(s.sendExecuteCommand, func() []string { return s.Capabilities().Commands }, o.executeCommand)
	s.workspaceSymbol = newWorkspaceSymbolProvider(s.sendWorkspaceSymbol, o.workspaceSymbol)
	return s, nil
}

// Session is the client side of one language server connection.
// A Session is started at most once; a failed or stopped Session is discarded and recreated.
type Session struct {
	id     uuid.UUID
	key    entity.Key
	client entity.Client
	cfg    Config
	logger *zap.SugaredLogger
	stats  tally.Scope

	jsonrpc  jsonrpcfx.JSONRPCModule
	targets  target.Factory
	settings settings.Controller
	opts     options

	state atomic.Int32

	mu           sync.RWMutex
	conn         jsonrpc2.Conn
	closeConn    context.CancelFunc
	cancelStart  context.CancelFunc
	capabilities entity.Capabilities
	serverInfo   *protocol.ServerInfo
	lastSettings map[string]interface{}

	// syncMu orders document and configuration notifications on the wire.
	syncMu sync.Mutex
	docs   map[protocol.DocumentURI]*openDocument

	started      event.Feed[entity.StartedEvent]
	disconnected event.Feed[entity.DisconnectedEvent]

	completion      *CompletionProvider
	executeCommand  *ExecuteCommandProvider
	workspaceSymbol *WorkspaceSymbolProvider
}

// ID is the instance id of the session.
func (s *Session) ID() uuid.UUID {
	return s.id
}

// Key is the content type and root the session serves.
func (s *Session) Key() entity.Key {
	return s.key
}

// Client is the descriptor of the language server.
func (s *Session) Client() entity.Client {
	return s.client
}

// State returns the lifecycle state.
func (s *Session) State() entity.SessionState {
	return entity.SessionState(s.state.Load())
}

// Started reports whether the handshake completed and the session has not stopped since.
func (s *Session) Started() bool {
	return s.State() == entity.StateStarted
}

// Capabilities returns the capabilities received in the handshake. It is empty before.
func (s *Session) Capabilities() entity.Capabilities {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.capabilities
}

// ServerInfo returns the name and version the server reported, if any.
func (s *Session) ServerInfo() *protocol.ServerInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.serverInfo
}

// OnStarted registers handler to run after the handshake completed.
func (s *Session) OnStarted(handler func(entity.StartedEvent)) (unsubscribe func()) {
	return s.started.Subscribe(handler)
}

// OnDisconnected registers handler to run when the server drops the connection without being stopped.
func (s *Session) OnDisconnected(handler func(entity.DisconnectedEvent)) (unsubscribe func()) {
	return s.disconnected.Subscribe(handler)
}

// Start activates the transport and performs the handshake. Calling Start on a started session is a no-op.
// A failure leaves the session stopped and is reported to the failure hooks.
func (s *Session) Start(ctx context.Context) error {
	if !s.state.CompareAndSwap(int32(entity.StateNotStarted), int32(entity.StateStarting)) {
		switch s.State() {
		case entity.StateStarted:
			return nil
		case entity.StateStarting:
			return lsperrors.SessionStartingError
		default:
			return lsperrors.SessionStoppedError
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.mu.Lock()
	s.cancelStart = cancel
	s.mu.Unlock()

	s.logger.Infow("starting session")
	conn, err := s.handshake(ctx)
	if err != nil {
		if s.State() == entity.StateStopped {
			return lsperrors.SessionStoppedError
		}
		s.fail(err)
		return err
	}

	if !s.state.CompareAndSwap(int32(entity.StateStarting), int32(entity.StateStarted)) {
		s.logger.Infow("session stopped during start")
		s.dispose()
		return lsperrors.SessionStoppedError
	}

	go s.watch(conn)
	s.logger.Infow("session started", "sync", s.Capabilities().Sync.String())
	s.started.Publish(entity.StartedEvent{Key: s.key, SessionID: s.id})
	return nil
}

func (s *Session) handshake(ctx context.Context) (jsonrpc2.Conn, error) {
	rwc, err := s.opts.activator.Activate(ctx)
	if err != nil {
		return nil, &lsperrors.ActivationError{Client: s.client.Name, Err: err}
	}

	connCtx, closeConn := context.WithCancel(context.WithValue(context.Background(), entity.SessionContextKey, s.id))
	handler := s.targets.New(s.client, s.id, s.opts.inbound...)
	conn := s.jsonrpc.Connect(connCtx, s.id, rwc, handler)

	s.mu.Lock()
	s.conn = conn
	s.closeConn = closeConn
	s.mu.Unlock()

	result := protocol.InitializeResult{}
	if err := protocol.Call(ctx, conn, protocol.MethodInitialize, s.initializeParams(), &result); err != nil {
		s.dispose()
		return nil, &lsperrors.HandshakeError{Client: s.client.Name, Err: err}
	}

	if err := conn.Notify(ctx, protocol.MethodInitialized, &protocol.InitializedParams{}); err != nil {
		s.dispose()
		return nil, &lsperrors.HandshakeError{Client: s.client.Name, Err: err}
	}

	s.mu.Lock()
	s.capabilities = mapper.ServerCapabilitiesToCapabilities(result.Capabilities)
	s.serverInfo = result.ServerInfo
	s.mu.Unlock()

	if err := s.sendConfiguration(ctx, conn, true); err != nil {
		s.logger.Warnw("sending initial configuration failed", zap.Error(err))
	}
	return conn, nil
}

func (s *Session) initializeParams() *protocol.InitializeParams {
	params := &protocol.InitializeParams{
		ProcessID:    int32(os.Getpid()),
		ClientInfo:   &protocol.ClientInfo{Name: _clientName},
		Capabilities: mapper.ClientToClientCapabilities(s.client),
	}
	if s.client.InitializationOptions != "" {
		params.InitializationOptions = json.RawMessage(s.client.InitializationOptions)
	}
	if s.key.Rooted() {
		rootURI := uri.File(s.key.Root)
		params.RootPath = s.key.Root
		params.RootURI = rootURI
		params.WorkspaceFolders = []protocol.WorkspaceFolder{{
			URI:  string(rootURI),
			Name: filepath.Base(s.key.Root),
		}}
	}
	return params
}

func (s *Session) fail(err error) {
	s.state.Store(int32(entity.StateStopped))
	s.stats.Counter(_counterStartFailures).Inc(1)
	s.logger.Errorw("session failed to start", zap.Error(err))
	for _, hook := range s.opts.onFailure {
		hook(err)
	}
	s.closeFeeds()
}

// Stop shuts the server down. It is safe to call more than once and from any state.
// Errors while sending shutdown or exit are logged; the connection is always released.
func (s *Session) Stop(ctx context.Context) {
	for {
		switch s.State() {
		case entity.StateStarted:
			if s.state.CompareAndSwap(int32(entity.StateStarted), int32(entity.StateStopping)) {
				s.shutdown(ctx)
				return
			}
		case entity.StateStarting:
			if s.state.CompareAndSwap(int32(entity.StateStarting), int32(entity.StateStopped)) {
				s.mu.RLock()
				cancel := s.cancelStart
				s.mu.RUnlock()
				if cancel != nil {
					cancel()
				}
				s.closeFeeds()
				return
			}
		case entity.StateNotStarted:
			if s.state.CompareAndSwap(int32(entity.StateNotStarted), int32(entity.StateStopped)) {
				s.closeFeeds()
				return
			}
		default:
			return
		}
	}
}

func (s *Session) shutdown(ctx context.Context) {
	s.logger.Infow("stopping session")
	conn := s.connection()
	if conn != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		if err := protocol.Call(shutdownCtx, conn, protocol.MethodShutdown, nil, nil); err != nil {
			s.logger.Warnw("shutdown request failed", zap.Error(err))
		}
		cancel()
		s.exit(ctx, conn)
	}

	s.dispose()
	s.state.Store(int32(entity.StateStopped))
	s.closeFeeds()
	s.logger.Infow("session stopped")
}

// exit sends the exit notification and gives the server ExitTimeout to close its end.
func (s *Session) exit(ctx context.Context, conn jsonrpc2.Conn) {
	timer := time.NewTimer(s.cfg.ExitTimeout)
	defer timer.Stop()

	sent := make(chan error, 1)
	go func() {
		sent <- conn.Notify(context.WithoutCancel(ctx), protocol.MethodExit, nil)
	}()

	select {
	case err := <-sent:
		if err != nil {
			s.logger.Warnw("exit notification failed", zap.Error(err))
			return
		}
	case <-timer.C:
		s.logger.Warnw("exit notification not sent in time", "timeout", s.cfg.ExitTimeout)
		return
	}

	select {
	case <-conn.Done():
	case <-timer.C:
		s.logger.Debugw("server did not close the connection after exit", "timeout", s.cfg.ExitTimeout)
	}
}

// dispose releases the connection. Safe to call more than once.
func (s *Session) dispose() {
	s.mu.Lock()
	conn, closeConn := s.conn, s.closeConn
	s.conn, s.closeConn = nil, nil
	s.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			s.logger.Debugw("closing connection", zap.Error(err))
		}
		select {
		case <-conn.Done():
		case <-time.After(s.cfg.ExitTimeout):
			s.logger.Warnw("connection did not close in time")
		}
		closeConn()
	}

	// Closing the connection first unblocks notifications still holding syncMu.
	s.syncMu.Lock()
	s.docs = make(map[protocol.DocumentURI]*openDocument)
	s.syncMu.Unlock()
}

// watch turns a connection dropped by the server into a stop.
func (s *Session) watch(conn jsonrpc2.Conn) {
	<-conn.Done()
	if !s.state.CompareAndSwap(int32(entity.StateStarted), int32(entity.StateStopped)) {
		return
	}

	err := conn.Err()
	s.logger.Warnw("language server disconnected", zap.Error(err))
	s.dispose()
	s.disconnected.Publish(entity.DisconnectedEvent{Key: s.key, SessionID: s.id, Err: err})
	s.closeFeeds()
}

func (s *Session) closeFeeds() {
	s.started.Close()
	s.disconnected.Close()
}

func (s *Session) connection() jsonrpc2.Conn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.conn
}
