package answercache

import (
	"container/list"
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCacheUnavailable marks a backend that cannot be reached. The cache
// degrades to a bypass; a turn is never failed by its cache.
var ErrCacheUnavailable = errors.New("cache backend unavailable")

// Entry is one cached answer keyed by the normalized question.
type Entry struct {
	NormalizedKey string    `json:"normalized_key"`
	OriginalQuery string    `json:"original_query"`
	Answer        string    `json:"answer"`
	DocIDs        []string  `json:"doc_ids"`
	Confidence    float64   `json:"confidence"`
	CreatedAt     time.Time `json:"created_at"`
	TTL           time.Duration `json:"ttl"`
	HitCount      int       `json:"hit_count"`
}

// Backend is the narrow get/set/delete contract the cache needs. Both the
// in-process LRU store and the redis store satisfy it.
type Backend interface {
	Get(ctx context.Context, key string) (*Entry, error)
	// Set stores the entry under key with its TTL, updating recency when
	// the key exists rather than duplicating it.
	Set(ctx context.Context, key string, e *Entry) error
	Delete(ctx context.Context, key string) error
	// Len reports stored entries, -1 when the backend cannot say cheaply.
	Len(ctx context.Context) int
}

// memoryBackend is a bounded LRU store with independent per-entry TTLs.
// go-cache covers the session repository's needs but has no capacity bound
// or LRU order, which this cache requires, hence the hand-rolled list+map.
type memoryBackend struct {
	mu       sync.Mutex
	capacity int
	order    *list.List               // front = most recent
	items    map[string]*list.Element // key -> element holding *memoryItem
}

type memoryItem struct {
	key       string
	entry     *Entry
	expiresAt time.Time
}

// NewMemoryBackend returns an in-process backend bounded to capacity
// entries, evicting least-recently-used first.
func NewMemoryBackend(capacity int) Backend {
	if capacity <= 0 {
		capacity = 1000
	}
	return &memoryBackend{
		capacity: capacity,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

func (m *memoryBackend) Get(_ context.Context, key string) (*Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	item := el.Value.(*memoryItem)
	if time.Now().After(item.expiresAt) {
		m.order.Remove(el)
		delete(m.items, key)
		return nil, nil
	}
	m.order.MoveToFront(el)
	return item.entry, nil
}

func (m *memoryBackend) Set(_ context.Context, key string, e *Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	expiresAt := e.CreatedAt.Add(e.TTL)
	if el, ok := m.items[key]; ok {
		item := el.Value.(*memoryItem)
		item.entry = e
		item.expiresAt = expiresAt
		m.order.MoveToFront(el)
		return nil
	}

	m.items[key] = m.order.PushFront(&memoryItem{key: key, entry: e, expiresAt: expiresAt})

	for m.order.Len() > m.capacity {
		tail := m.order.Back()
		if tail == nil {
			break
		}
		m.order.Remove(tail)
		delete(m.items, tail.Value.(*memoryItem).key)
	}
	return nil
}

func (m *memoryBackend) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		m.order.Remove(el)
		delete(m.items, key)
	}
	return nil
}

func (m *memoryBackend) Len(_ context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}
