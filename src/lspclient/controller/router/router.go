// Package router maps editor files to the language server sessions that serve them.
package router

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/uber-go/tally"
	"github.com/uber/lsp-client/src/lspclient/controller/diagnostics"
	"github.com/uber/lsp-client/src/lspclient/controller/session"
	"github.com/uber/lsp-client/src/lspclient/controller/settings"
	"github.com/uber/lsp-client/src/lspclient/entity"
	"github.com/uber/lsp-client/src/lspclient/gateway/editor"
	lsperrors "github.com/uber/lsp-client/src/lspclient/internal/errors"
	"github.com/uber/lsp-client/src/lspclient/internal/languages"
	"github.com/uber/lsp-client/src/lspclient/mapper"
	"github.com/uber/lsp-client/src/lspclient/repository/document"
	sessionrepository "github.com/uber/lsp-client/src/lspclient/repository/session"
	"go.lsp.dev/protocol"
	"go.uber.org/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const (
	_configKey = "clients"

	_counterSessionsCreated = "sessions_created"
	_counterDisconnects     = "disconnects"
)

// Module provides the router to fx.
var Module = fx.Provide(New)

// Router owns the sessions of the host: one per content type and workspace root.
type Router interface {
	// IsSupported reports whether a client is registered for the language of path.
	IsSupported(path string) bool
	// GetOrCreateSession returns the session serving path, creating and starting it when there is none.
	GetOrCreateSession(ctx context.Context, path string) (*session.Session, error)
	// GetSession returns the session serving path. Without create it returns nil when there is none.
	GetSession(ctx context.Context, path string, create bool) (*session.Session, error)
	// OpenDocument records an opened document and announces it to s.
	OpenDocument(ctx context.Context, s *session.Session, uri protocol.DocumentURI, languageID, text string) error
	// CloseDocument forgets a document. Closing the last document of s stops it.
	CloseDocument(ctx context.Context, s *session.Session, uri protocol.DocumentURI) error
	// NotifyTextChanged forwards an edit of an open document to s.
	// edits may be empty, in which case they are derived from fullText.
	NotifyTextChanged(ctx context.Context, s *session.Session, uri protocol.DocumentURI, version int32, edits []entity.TextChange, fullText string) error
	// LoadWorkspace makes root available as an owning root for files below it.
	LoadWorkspace(root string)
	// UnloadWorkspace stops every session rooted at root.
	UnloadWorkspace(ctx context.Context, root string) error
	// SubscribeDiagnostics registers handler for every diagnostics change.
	SubscribeDiagnostics(handler func(entity.DiagnosticsEvent)) (unsubscribe func())
	// Sessions returns every registered session.
	Sessions() []*session.Session
}

// ClientOptions adds session options to every session created for one client.
type ClientOptions struct {
	Client  string
	Options []session.Option
}

// Params are inbound parameters to create the router.
type Params struct {
	fx.In

	Config      config.Provider
	Lifecycle   fx.Lifecycle
	Logger      *zap.SugaredLogger
	Stats       tally.Scope
	Sessions    session.Factory
	Documents   document.Repository
	Diagnostics diagnostics.Controller
	Editor      editor.Gateway
	Settings    settings.Controller

	ClientOptions []ClientOptions `group:"clientOptions"`
}

type router struct {
	logger      *zap.SugaredLogger
	stats       tally.Scope
	factory     session.Factory
	sessions    sessionrepository.Repository[*session.Session]
	documents   document.Repository
	diagnostics diagnostics.Controller

	// clients maps a language identifier to the client serving it.
	clients       map[string]entity.Client
	clientOptions map[string][]session.Option

	rootsMu sync.RWMutex
	roots   map[string]struct{}

	// stopping tracks sessions stopped in the background.
	stopping    sync.WaitGroup
	unsubscribe []func()
}

// New reads the client registry and returns the router.
func New(p Params) (Router, error) {
	var clients []entity.Client
	if err := p.Config.Get(_configKey).Populate(&clients); err != nil {
		return nil, fmt.Errorf("getting config field %q: %w", _configKey, err)
	}

	byLanguage, err := registry(clients)
	if err != nil {
		return nil, err
	}

	options := make(map[string][]session.Option)
	for _, co := range p.ClientOptions {
		options[co.Client] = append(options[co.Client], co.Options...)
	}

	stats := p.Stats.SubScope("router")
	r := &router{
		logger:        p.Logger.Named("router"),
		stats:         stats,
		factory:       p.Sessions,
		sessions:      sessionrepository.New[*session.Session](stats),
		documents:     p.Documents,
		diagnostics:   p.Diagnostics,
		clients:       byLanguage,
		clientOptions: options,
		roots:         make(map[string]struct{}),
	}

	r.unsubscribe = append(r.unsubscribe,
		p.Editor.SubscribeEdits(r.onDocumentEdited),
		p.Settings.Subscribe(r.onSettingsChanged),
	)

	p.Lifecycle.Append(fx.Hook{
		OnStop: r.stop,
	})
	return r, nil
}

// registry indexes clients by language identifier. A language may be served by one client only.
func registry(clients []entity.Client) (map[string]entity.Client, error) {
	byLanguage := make(map[string]entity.Client)
	names := make(map[string]struct{})
	for _, c := range clients {
		if c.Name == "" {
			return nil, fmt.Errorf("client without a name")
		}
		if _, ok := names[c.Name]; ok {
			return nil, fmt.Errorf("client %q is declared twice", c.Name)
		}
		names[c.Name] = struct{}{}

		if len(c.LanguageIDs) == 0 {
			return nil, fmt.Errorf("client %q: no languageIds", c.Name)
		}
		for _, id := range c.LanguageIDs {
			if other, ok := byLanguage[id]; ok {
				return nil, fmt.Errorf("language %q is served by both %q and %q", id, other.Name, c.Name)
			}
			byLanguage[id] = c
		}
	}
	return byLanguage, nil
}

func (r *router) IsSupported(path string) bool {
	_, ok := r.clientFor(path)
	return ok
}

func (r *router) clientFor(path string) (entity.Client, bool) {
	id := languages.Identifier(path)
	if id == "" {
		return entity.Client{}, false
	}
	c, ok := r.clients[id]
	return c, ok
}

func (r *router) GetOrCreateSession(ctx context.Context, path string) (*session.Session, error) {
	return r.GetSession(ctx, path, true)
}

func (r *router) GetSession(ctx context.Context, path string, create bool) (*session.Session, error) {
	client, ok := r.clientFor(path)
	if !ok {
		return nil, &lsperrors.UnknownContentTypeError{Path: path}
	}
	key := entity.Key{ContentType: client.Name, Root: r.rootFor(path)}.Normalized()

	if !create {
		s, _ := r.sessions.Get(key)
		return s, nil
	}

	s, created, err := r.sessions.GetOrCreate(key, func() (*session.Session, error) {
		return r.newSession(client, key)
	})
	if err != nil {
		return nil, err
	}
	if !created {
		return s, nil
	}

	if err := s.Start(ctx); err != nil {
		r.sessions.Delete(key, s)
		return nil, err
	}
	return s, nil
}

// newSession creates an unstarted session. It runs inside the session table's critical section.
func (r *router) newSession(client entity.Client, key entity.Key) (*session.Session, error) {
	s, err := r.factory.New(client, key, r.clientOptions[client.Name]...)
	if err != nil {
		return nil, err
	}

	s.OnStarted(func(entity.StartedEvent) { r.replay(s) })
	s.OnDisconnected(func(ev entity.DisconnectedEvent) {
		r.stats.Counter(_counterDisconnects).Inc(1)
		if r.sessions.Delete(ev.Key, s) {
			r.logger.Infow("removed disconnected session", zap.Object("key", ev.Key))
		}
	})

	r.stats.Counter(_counterSessionsCreated).Inc(1)
	r.logger.Infow("created session", zap.Object("key", key), "client", client.Name)
	return s, nil
}

// replay opens the documents of the session's key that were opened before it started.
func (r *router) replay(s *session.Session) {
	ctx := context.Background()
	for _, doc := range r.documents.ByKey(s.Key()) {
		if err := s.DidOpen(ctx, doc.URI, doc.LanguageID, doc.Text); err != nil {
			r.logger.Warnw("replaying open document", "uri", doc.URI, zap.Error(err))
		}
	}
}

// rootFor returns the longest loaded root containing path, or "" when none does.
func (r *router) rootFor(path string) string {
	path = filepath.Clean(path)

	r.rootsMu.RLock()
	defer r.rootsMu.RUnlock()

	var best string
	for root := range r.roots {
		if path != root && !strings.HasPrefix(path, strings.TrimSuffix(root, string(filepath.Separator))+string(filepath.Separator)) {
			continue
		}
		if len(root) > len(best) {
			best = root
		}
	}
	return best
}

func (r *router) OpenDocument(ctx context.Context, s *session.Session, uri protocol.DocumentURI, languageID, text string) error {
	r.documents.Open(entity.Document{
		URI:        uri,
		LanguageID: languageID,
		Text:       text,
		Key:        s.Key(),
	})
	return s.DidOpen(ctx, uri, languageID, text)
}

func (r *router) CloseDocument(ctx context.Context, s *session.Session, uri protocol.DocumentURI) error {
	if _, ok := r.documents.Close(uri); !ok {
		return &lsperrors.DocumentNotOpenError{URI: uri}
	}
	r.diagnostics.Clear(uri)

	if len(r.documents.ByKey(s.Key())) > 0 {
		return s.DidClose(ctx, uri)
	}

	// The table entry goes first so the next lookup creates a fresh session.
	r.sessions.Delete(s.Key(), s)
	r.logger.Infow("last document closed, stopping session", zap.Object("key", s.Key()))
	r.stopAsync(s)
	return nil
}

func (r *router) stopAsync(s *session.Session) {
	r.stopping.Add(1)
	go func() {
		defer r.stopping.Done()
		s.Stop(context.Background())
	}()
}

func (r *router) NotifyTextChanged(ctx context.Context, s *session.Session, uri protocol.DocumentURI, version int32, edits []entity.TextChange, fullText string) error {
	doc, ok := r.documents.Get(uri)
	if !ok {
		return &lsperrors.DocumentNotOpenError{URI: uri}
	}
	if version <= doc.Version {
		return &lsperrors.VersionOrderError{URI: uri, Previous: doc.Version, Received: version}
	}

	text := fullText
	if len(edits) > 0 {
		_, applied, err := mapper.TextChangesToContentChangeEvents(uri, doc.Text, edits)
		if err != nil {
			return err
		}
		text = applied
	}

	if err := s.DidChange(ctx, uri, version, edits, text); err != nil {
		return err
	}
	return r.documents.Update(uri, version, text)
}

// onDocumentEdited forwards edits applied on behalf of a server to the session owning the document.
func (r *router) onDocumentEdited(ev entity.DocumentEditedEvent) {
	s, ok := r.sessions.Get(ev.Document.Key)
	if !ok {
		return
	}
	if err := s.DidChange(context.Background(), ev.Document.URI, ev.Document.Version, ev.Changes, ev.Document.Text); err != nil {
		r.logger.Warnw("forwarding applied edit", "uri", ev.Document.URI, zap.Error(err))
	}
}

func (r *router) onSettingsChanged() {
	ctx := context.Background()
	for _, s := range r.sessions.All() {
		if err := s.DidChangeConfiguration(ctx); err != nil {
			r.logger.Warnw("sending configuration", zap.Object("key", s.Key()), zap.Error(err))
		}
	}
}

func (r *router) LoadWorkspace(root string) {
	root = filepath.Clean(root)

	r.rootsMu.Lock()
	defer r.rootsMu.Unlock()
	r.roots[root] = struct{}{}
	r.logger.Infow("loaded workspace", "root", root)
}

func (r *router) UnloadWorkspace(ctx context.Context, root string) error {
	root = filepath.Clean(root)

	r.rootsMu.Lock()
	_, loaded := r.roots[root]
	delete(r.roots, root)
	r.rootsMu.Unlock()

	sessions := r.sessions.DeleteRoot(root)
	for _, s := range sessions {
		for _, doc := range r.documents.ByKey(s.Key()) {
			r.documents.Close(doc.URI)
			r.diagnostics.Clear(doc.URI)
		}
	}
	r.stopAll(ctx, sessions)
	r.logger.Infow("unloaded workspace", "root", root, "sessions", len(sessions))

	if !loaded {
		return fmt.Errorf("workspace %q is not loaded", root)
	}
	return nil
}

// stopAll stops sessions concurrently and waits for all of them.
func (r *router) stopAll(ctx context.Context, sessions []*session.Session) {
	var wg sync.WaitGroup
	for _, s := range sessions {
		wg.Add(1)
		go func(s *session.Session) {
			defer wg.Done()
			s.Stop(ctx)
		}(s)
	}
	wg.Wait()
}

func (r *router) SubscribeDiagnostics(handler func(entity.DiagnosticsEvent)) func() {
	return r.diagnostics.Subscribe(handler)
}

func (r *router) Sessions() []*session.Session {
	return r.sessions.All()
}

func (r *router) stop(ctx context.Context) error {
	for _, unsubscribe := range r.unsubscribe {
		unsubscribe()
	}

	r.stopAll(ctx, r.sessions.DeleteAll())
	r.stopping.Wait()
	return nil
}
