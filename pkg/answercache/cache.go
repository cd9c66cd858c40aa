package answercache

import (
	"context"
	"sync"
	"time"

	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
)

// Scorer is an externally supplied similarity score between two questions
// (e.g. embedding cosine). The cache never computes similarity itself.
type Scorer func(ctx context.Context, a, b string) (float64, error)

// Config carries the cache parameters from the pipeline configuration.
type Config struct {
	Capacity   int
	DefaultTTL time.Duration
	// SimilarityThreshold enables the fallback scan when > 0.
	SimilarityThreshold float64
	// SimilarityWindow bounds how many recent entries the fallback visits.
	SimilarityWindow int
	// SimilarityBudget bounds how long the fallback may take in total.
	SimilarityBudget time.Duration
}

// Stats is the cache counters snapshot.
type Stats struct {
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
	Entries  int     `json:"entries"`
	Capacity int     `json:"capacity"`
}

// Cache normalizes questions into canonical keys and looks up previously
// computed answers. Only auto_reply outcomes are ever written; the caller
// skips lookups entirely while a clarification flow is active for the
// session, because keys carry no conversational state.
type Cache struct {
	backend Backend
	scorer  Scorer
	cfg     Config
	log     logger.ILogger

	mu     sync.Mutex
	hits   int64
	misses int64
	recent []recentEntry // ring of recent originals for the similarity scan
	next   int
}

type recentEntry struct {
	key      string
	original string
}

// New builds a cache over the given backend. scorer may be nil, which
// disables the similarity fallback regardless of configuration.
func New(backend Backend, scorer Scorer, cfg Config, log logger.ILogger) *Cache {
	if cfg.Capacity <= 0 {
		cfg.Capacity = 1000
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = time.Hour
	}
	if cfg.SimilarityWindow <= 0 {
		cfg.SimilarityWindow = 32
	}
	if cfg.SimilarityBudget <= 0 {
		cfg.SimilarityBudget = 150 * time.Millisecond
	}
	return &Cache{
		backend: backend,
		scorer:  scorer,
		cfg:     cfg,
		log:     log,
		recent:  make([]recentEntry, 0, cfg.SimilarityWindow),
	}
}

// Get looks up a question. A backend failure degrades to a miss; the turn
// proceeds through the full pipeline.
func (c *Cache) Get(ctx context.Context, question string) (*Entry, bool) {
	key := Normalize(question)
	if key == "" {
		return nil, false
	}

	entry, err := c.backend.Get(ctx, key)
	if err != nil {
		c.log.Warn("answercache", "backend get failed, bypassing cache", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, false
	}

	if entry == nil && c.scorer != nil && c.cfg.SimilarityThreshold > 0 {
		entry = c.similarLookup(ctx, question)
	}

	c.mu.Lock()
	if entry == nil {
		c.misses++
		c.mu.Unlock()
		return nil, false
	}
	c.hits++
	c.mu.Unlock()

	// Hit: bump count and recency in place, never duplicate the entry.
	entry.HitCount++
	if err := c.backend.Set(ctx, entry.NormalizedKey, entry); err != nil {
		c.log.Warn("answercache", "recency bump failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return entry, true
}

// Set stores an answer under the normalized key. Callers only invoke it for
// auto_reply turns; escalated and clarification-in-progress turns are never
// cached.
func (c *Cache) Set(ctx context.Context, question string, e *Entry) {
	key := Normalize(question)
	if key == "" {
		return
	}
	e.NormalizedKey = key
	e.OriginalQuery = question
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.TTL <= 0 {
		e.TTL = c.cfg.DefaultTTL
	}

	if err := c.backend.Set(ctx, key, e); err != nil {
		c.log.Warn("answercache", "backend set failed, entry dropped", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	c.remember(key, question)
}

// Delete removes an entry, e.g. when a document it cited was withdrawn.
func (c *Cache) Delete(ctx context.Context, question string) {
	_ = c.backend.Delete(ctx, Normalize(question))
}

// Stats returns the counters snapshot.
func (c *Cache) Stats(ctx context.Context) Stats {
	c.mu.Lock()
	hits, misses := c.hits, c.misses
	c.mu.Unlock()

	total := hits + misses
	rate := 0.0
	if total > 0 {
		rate = float64(hits) / float64(total)
	}
	return Stats{
		Hits:     hits,
		Misses:   misses,
		HitRate:  rate,
		Entries:  c.backend.Len(ctx),
		Capacity: c.cfg.Capacity,
	}
}

// similarLookup is the best-effort bounded scan over the recent-entries
// window. It never blocks past the configured budget.
func (c *Cache) similarLookup(ctx context.Context, question string) *Entry {
	c.mu.Lock()
	window := make([]recentEntry, len(c.recent))
	copy(window, c.recent)
	c.mu.Unlock()

	scanCtx, cancel := context.WithTimeout(ctx, c.cfg.SimilarityBudget)
	defer cancel()

	for _, cand := range window {
		if scanCtx.Err() != nil {
			return nil
		}
		score, err := c.scorer(scanCtx, question, cand.original)
		if err != nil {
			return nil
		}
		if score < c.cfg.SimilarityThreshold {
			continue
		}
		entry, err := c.backend.Get(scanCtx, cand.key)
		if err != nil || entry == nil {
			continue
		}
		c.log.Debug("answercache", "similarity fallback hit", map[string]interface{}{
			"score": score,
			"key":   cand.key,
		})
		return entry
	}
	return nil
}

func (c *Cache) remember(key, original string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.recent {
		if c.recent[i].key == key {
			c.recent[i].original = original
			return
		}
	}
	if len(c.recent) < c.cfg.SimilarityWindow {
		c.recent = append(c.recent, recentEntry{key, original})
		return
	}
	c.recent[c.next] = recentEntry{key, original}
	c.next = (c.next + 1) % c.cfg.SimilarityWindow
}
