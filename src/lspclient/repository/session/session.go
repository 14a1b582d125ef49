package session

import (
	"sort"
	"sync"

	"github.com/uber-go/tally"
	"github.com/uber/lsp-client/src/lspclient/entity"
)

const _gaugeActiveSessions = "active_sessions"

// Repository is the two-level session table: unrooted sessions are keyed by content type alone,
// rooted sessions by workspace root and then content type. At most one entry exists per key.
type Repository[S comparable] interface {
	// Get returns the session registered for key.
	Get(key entity.Key) (S, bool)
	// GetOrCreate returns the session registered for key, registering the result of create when there is none.
	// create runs inside the table's critical section, so concurrent callers for one key share one session.
	GetOrCreate(key entity.Key, create func() (S, error)) (s S, created bool, err error)
	// Delete removes the entry for key only if it still holds s.
	Delete(key entity.Key, s S) bool
	// DeleteRoot removes and returns every session rooted at root.
	DeleteRoot(root string) []S
	// DeleteAll removes and returns every session.
	DeleteAll() []S
	// All returns every registered session ordered by key.
	All() []S
	// Len returns the number of registered sessions.
	Len() int
}

type repository[S comparable] struct {
	mu       sync.Mutex
	unrooted map[string]S
	rooted   map[string]map[string]S
	stats    tally.Scope
}

// New returns an in-memory session table.
func New[S comparable](stats tally.Scope) Repository[S] {
	return &repository[S]{
		unrooted: make(map[string]S),
		rooted:   make(map[string]map[string]S),
		stats:    stats,
	}
}

func (r *repository[S]) Get(key entity.Key) (S, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.get(key.Normalized())
}

func (r *repository[S]) GetOrCreate(key entity.Key, create func() (S, error)) (S, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key = key.Normalized()
	if s, ok := r.get(key); ok {
		return s, false, nil
	}

	s, err := create()
	if err != nil {
		var zero S
		return zero, false, err
	}

	if key.Rooted() {
		byType, ok := r.rooted[key.Root]
		if !ok {
			byType = make(map[string]S)
			r.rooted[key.Root] = byType
		}
		byType[key.ContentType] = s
	} else {
		r.unrooted[key.ContentType] = s
	}
	r.updateGauge()
	return s, true, nil
}

func (r *repository[S]) Delete(key entity.Key, s S) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key = key.Normalized()
	current, ok := r.get(key)
	if !ok || current != s {
		return false
	}

	if key.Rooted() {
		delete(r.rooted[key.Root], key.ContentType)
		if len(r.rooted[key.Root]) == 0 {
			delete(r.rooted, key.Root)
		}
	} else {
		delete(r.unrooted, key.ContentType)
	}
	r.updateGauge()
	return true
}

func (r *repository[S]) DeleteRoot(root string) []S {
	r.mu.Lock()
	defer r.mu.Unlock()

	root = entity.Key{Root: root}.Normalized().Root
	byType := r.rooted[root]
	delete(r.rooted, root)
	r.updateGauge()
	return sortedValues(byType)
}

func (r *repository[S]) DeleteAll() []S {
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.all()
	r.unrooted = make(map[string]S)
	r.rooted = make(map[string]map[string]S)
	r.updateGauge()
	return all
}

func (r *repository[S]) All() []S {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.all()
}

func (r *repository[S]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.len()
}

func (r *repository[S]) get(key entity.Key) (S, bool) {
	if key.Rooted() {
		s, ok := r.rooted[key.Root][key.ContentType]
		return s, ok
	}
	s, ok := r.unrooted[key.ContentType]
	return s, ok
}

func (r *repository[S]) all() []S {
	result := sortedValues(r.unrooted)
	roots := make([]string, 0, len(r.rooted))
	for root := range r.rooted {
		roots = append(roots, root)
	}
	sort.Strings(roots)
	for _, root := range roots {
		result = append(result, sortedValues(r.rooted[root])...)
	}
	return result
}

func (r *repository[S]) len() int {
	n := len(r.unrooted)
	for _, byType := range r.rooted {
		n += len(byType)
	}
	return n
}

func (r *repository[S]) updateGauge() {
	r.stats.Gauge(_gaugeActiveSessions).Update(float64(r.len()))
}

func sortedValues[S any](m map[string]S) []S {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]S, 0, len(keys))
	for _, k := range keys {
		values = append(values, m[k])
	}
	return values
}
