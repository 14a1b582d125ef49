// Package lsptest provides a scripted in-memory language server for tests.
package lsptest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/uber/lsp-client/src/lspclient/internal/jsonrpcfx"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// HandlerFunc produces the result for one inbound call or handles one notification.
type HandlerFunc func(ctx context.Context, params json.RawMessage) (interface{}, error)

// Message is one message received by the server.
type Message struct {
	Method string
	Params json.RawMessage
	Call   bool
}

// Server is a fake language server reachable through Activate.
// Calls without a registered handler are answered with null. initialize answers with Capabilities.
type Server struct {
	Capabilities protocol.ServerCapabilities
	// IgnoreExit keeps the connection open after the exit notification.
	IgnoreExit bool

	mu       sync.Mutex
	handlers map[string]HandlerFunc
	received []Message
	conn     jsonrpc2.Conn
	cancel   context.CancelFunc
}

// NewServer returns a server advertising caps.
func NewServer(caps protocol.ServerCapabilities) *Server {
	return &Server{
		Capabilities: caps,
		handlers:     make(map[string]HandlerFunc),
	}
}

// Handle registers the handler for method, replacing any previous one.
func (s *Server) Handle(method string, h HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[method] = h
}

// Activate starts serving one connection and returns the client end of it.
func (s *Server) Activate(ctx context.Context) (io.ReadWriteCloser, error) {
	clientSide, serverSide := net.Pipe()

	serveCtx, cancel := context.WithCancel(context.Background())
	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(serverSide))

	s.mu.Lock()
	if s.conn != nil {
		s.mu.Unlock()
		cancel()
		return nil, fmt.Errorf("server already activated")
	}
	s.conn = conn
	s.cancel = cancel
	s.mu.Unlock()

	conn.Go(serveCtx, s.handler())
	return clientSide, nil
}

// Close terminates the connection as if the server process died.
func (s *Server) Close() {
	s.mu.Lock()
	conn, cancel := s.conn, s.cancel
	s.mu.Unlock()
	if conn == nil {
		return
	}
	_ = conn.Close()
	<-conn.Done()
	cancel()
}

// Done is closed once the server side of the connection stops reading.
func (s *Server) Done() <-chan struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil
	}
	return s.conn.Done()
}

// Notify sends a notification to the client.
func (s *Server) Notify(ctx context.Context, method string, params interface{}) error {
	return s.connection().Notify(ctx, method, params)
}

// Call sends a request to the client and decodes the reply into result.
func (s *Server) Call(ctx context.Context, method string, params, result interface{}) error {
	_, err := s.connection().Call(ctx, method, params, result)
	return err
}

// Methods lists the methods of all received messages in arrival order.
func (s *Server) Methods() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	methods := make([]string, 0, len(s.received))
	for _, msg := range s.received {
		methods = append(methods, msg.Method)
	}
	return methods
}

// Received returns the messages received for method in arrival order.
func (s *Server) Received(method string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []Message
	for _, msg := range s.received {
		if msg.Method == method {
			result = append(result, msg)
		}
	}
	return result
}

// Count returns how many messages arrived for method.
func (s *Server) Count(method string) int {
	return len(s.Received(method))
}

func (s *Server) connection() jsonrpc2.Conn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn
}

func (s *Server) record(req jsonrpc2.Request) {
	_, isCall := req.(*jsonrpc2.Call)
	s.mu.Lock()
	s.received = append(s.received, Message{
		Method: req.Method(),
		Params: append(json.RawMessage(nil), req.Params()...),
		Call:   isCall,
	})
	s.mu.Unlock()
}

func (s *Server) handler() jsonrpc2.Handler {
	inner := jsonrpcfx.Handlers(s.handle)

	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if req.Method() == protocol.MethodCancelRequest {
			s.record(req)
		}
		return inner(ctx, reply, req)
	}
}

func (s *Server) handle(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	s.record(req)

	s.mu.Lock()
	h, ok := s.handlers[req.Method()]
	conn := s.conn
	s.mu.Unlock()

	if ok {
		result, err := h(ctx, req.Params())
		return reply(ctx, result, err)
	}

	switch req.Method() {
	case protocol.MethodInitialize:
		return reply(ctx, protocol.InitializeResult{
			Capabilities: s.Capabilities,
			ServerInfo:   &protocol.ServerInfo{Name: "lsptest"},
		}, nil)
	case protocol.MethodExit:
		err := reply(ctx, nil, nil)
		if !s.IgnoreExit {
			go conn.Close()
		}
		return err
	default:
		return reply(ctx, nil, nil)
	}
}
