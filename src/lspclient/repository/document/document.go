package document

import (
	"sort"
	"sync"

	"github.com/uber-go/tally"
	"github.com/uber/lsp-client/src/lspclient/entity"
	"github.com/uber/lsp-client/src/lspclient/internal/errors"
	"go.lsp.dev/protocol"
	"go.uber.org/fx"
)

const _gaugeOpenDocuments = "open_documents"

// Module provides the open document set to fx.
var Module = fx.Provide(New)

// Repository is the set of documents the host editor has open.
type Repository interface {
	// Open records doc, replacing any earlier entry for its URI.
	Open(doc entity.Document)
	// Get returns the open document for uri.
	Get(uri protocol.DocumentURI) (entity.Document, bool)
	// Update replaces the text and version of an open document.
	Update(uri protocol.DocumentURI, version int32, text string) error
	// Close forgets uri and returns the document that was open.
	Close(uri protocol.DocumentURI) (entity.Document, bool)
	// ByKey returns the open documents served by the session key, ordered by URI.
	ByKey(key entity.Key) []entity.Document
	// Len returns the number of open documents.
	Len() int
}

type repository struct {
	mu       sync.Mutex
	memstore map[protocol.DocumentURI]entity.Document
	stats    tally.Scope
}

// New returns an in-memory open document set.
func New(stats tally.Scope) Repository {
	return &repository{
		memstore: make(map[protocol.DocumentURI]entity.Document),
		stats:    stats,
	}
}

func (r *repository) Open(doc entity.Document) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.memstore[doc.URI] = doc
	r.stats.Gauge(_gaugeOpenDocuments).Update(float64(len(r.memstore)))
}

func (r *repository) Get(uri protocol.DocumentURI) (entity.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.memstore[uri]
	return doc, ok
}

func (r *repository) Update(uri protocol.DocumentURI, version int32, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.memstore[uri]
	if !ok {
		return &errors.DocumentNotOpenError{URI: uri}
	}
	doc.Version = version
	doc.Text = text
	r.memstore[uri] = doc
	return nil
}

func (r *repository) Close(uri protocol.DocumentURI) (entity.Document, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.memstore[uri]
	delete(r.memstore, uri)
	r.stats.Gauge(_gaugeOpenDocuments).Update(float64(len(r.memstore)))
	return doc, ok
}

func (r *repository) ByKey(key entity.Key) []entity.Document {
	r.mu.Lock()
	defer r.mu.Unlock()

	key = key.Normalized()
	var docs []entity.Document
	for _, doc := range r.memstore {
		if doc.Key.Normalized() == key {
			docs = append(docs, doc)
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].URI < docs[j].URI })
	return docs
}

func (r *repository) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.memstore)
}
