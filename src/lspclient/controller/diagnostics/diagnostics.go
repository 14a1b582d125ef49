package diagnostics

import (
	"sync"

	"github.com/uber/lsp-client/src/lspclient/entity"
	"github.com/uber/lsp-client/src/lspclient/internal/event"
	"go.lsp.dev/protocol"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module provides the diagnostics snapshot to fx.
var Module = fx.Provide(New)

// Controller holds the latest diagnostics per document and announces every replacement.
type Controller interface {
	// Publish replaces the diagnostics of ev.URI and notifies subscribers.
	Publish(ev entity.DiagnosticsEvent)
	// Get returns a copy of the diagnostics last published for uri.
	Get(uri protocol.DocumentURI) []protocol.Diagnostic
	// Clear drops the snapshot of uri and announces an empty set when one was present.
	Clear(uri protocol.DocumentURI)
	// Subscribe registers handler for every publish and returns its unsubscribe function.
	Subscribe(handler func(entity.DiagnosticsEvent)) (unsubscribe func())
}

// Params are inbound parameters to create the controller.
type Params struct {
	fx.In

	Logger *zap.SugaredLogger
}

type controller struct {
	logger        *zap.SugaredLogger
	diagnostics   map[protocol.DocumentURI][]protocol.Diagnostic
	diagnosticsMu sync.RWMutex
	feed          event.Feed[entity.DiagnosticsEvent]
}

// New creates an empty diagnostics snapshot.
func New(p Params) Controller {
	return &controller{
		logger:      p.Logger,
		diagnostics: make(map[protocol.DocumentURI][]protocol.Diagnostic),
	}
}

func (c *controller) Publish(ev entity.DiagnosticsEvent) {
	stored := cloneDiagnostics(ev.Diagnostics)

	c.diagnosticsMu.Lock()
	c.diagnostics[ev.URI] = stored
	c.diagnosticsMu.Unlock()

	c.logger.Debugw("diagnostics published", "uri", ev.URI, "count", len(stored))
	c.feed.Publish(entity.DiagnosticsEvent{
		URI:         ev.URI,
		Version:     ev.Version,
		Diagnostics: cloneDiagnostics(stored),
	})
}

func (c *controller) Get(uri protocol.DocumentURI) []protocol.Diagnostic {
	c.diagnosticsMu.RLock()
	defer c.diagnosticsMu.RUnlock()

	return cloneDiagnostics(c.diagnostics[uri])
}

func (c *controller) Clear(uri protocol.DocumentURI) {
	c.diagnosticsMu.Lock()
	_, ok := c.diagnostics[uri]
	delete(c.diagnostics, uri)
	c.diagnosticsMu.Unlock()

	if ok {
		c.feed.Publish(entity.DiagnosticsEvent{URI: uri, Diagnostics: []protocol.Diagnostic{}})
	}
}

func (c *controller) Subscribe(handler func(entity.DiagnosticsEvent)) func() {
	return c.feed.Subscribe(handler)
}

func cloneDiagnostics(diagnostics []protocol.Diagnostic) []protocol.Diagnostic {
	result := make([]protocol.Diagnostic, len(diagnostics))
	copy(result, diagnostics)
	return result
}
