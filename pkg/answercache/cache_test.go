package answercache

import (
	"context"
	"testing"
	"time"

	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases and strips punctuation", "How do I reset my PASSWORD?!", "password reset"},
		{"token order is irrelevant", "reset password", "password reset"},
		{"stopwords dropped", "please help me with the refund", "refund"},
		{"digits kept", "error SYNC-401 on login", "401 error login sync"},
		{"empty input", "   ", ""},
		{"only stopwords", "how do i", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.in)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if again := Normalize(got); again != got {
				t.Errorf("not idempotent: Normalize(%q) = %q", got, again)
			}
		})
	}
}

func TestNormalizeCollapsesPhrasings(t *testing.T) {
	variants := []string{
		"How do I reset my password?",
		"password reset please",
		"RESET PASSWORD!!!",
	}
	first := Normalize(variants[0])
	for _, v := range variants[1:] {
		if Normalize(v) != first {
			t.Errorf("Normalize(%q) = %q, want %q", v, Normalize(v), first)
		}
	}
}

func TestMemoryBackendLRUEviction(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(2)

	now := time.Now()
	put := func(key string) {
		_ = b.Set(ctx, key, &Entry{NormalizedKey: key, Answer: key, CreatedAt: now, TTL: time.Hour})
	}

	put("a")
	put("b")

	// Touch "a" so "b" becomes the eviction candidate.
	if e, _ := b.Get(ctx, "a"); e == nil {
		t.Fatal("warm read of a failed")
	}

	put("c")

	if e, _ := b.Get(ctx, "b"); e != nil {
		t.Error("least-recently-used entry survived eviction")
	}
	if e, _ := b.Get(ctx, "a"); e == nil {
		t.Error("recently-used entry was evicted")
	}
	if e, _ := b.Get(ctx, "c"); e == nil {
		t.Error("new entry missing")
	}
	if n := b.Len(ctx); n != 2 {
		t.Errorf("Len = %d, want 2", n)
	}
}

func TestMemoryBackendTTLExpiry(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend(10)

	_ = b.Set(ctx, "stale", &Entry{
		NormalizedKey: "stale",
		CreatedAt:     time.Now().Add(-2 * time.Hour),
		TTL:           time.Hour,
	})

	if e, _ := b.Get(ctx, "stale"); e != nil {
		t.Error("expired entry served")
	}
	if n := b.Len(ctx); n != 0 {
		t.Errorf("expired entry still counted, Len = %d", n)
	}
}

func TestCacheSetFillsDefaults(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryBackend(10), nil, Config{DefaultTTL: time.Minute}, logger.Nop())

	c.Set(ctx, "How do I reset my password?", &Entry{Answer: "Use the reset link."})

	e, ok := c.Get(ctx, "password reset")
	if !ok {
		t.Fatal("normalized variant missed")
	}
	if e.NormalizedKey != "password reset" {
		t.Errorf("NormalizedKey = %q", e.NormalizedKey)
	}
	if e.OriginalQuery != "How do I reset my password?" {
		t.Errorf("OriginalQuery = %q", e.OriginalQuery)
	}
	if e.TTL != time.Minute {
		t.Errorf("TTL = %v", e.TTL)
	}
	if e.CreatedAt.IsZero() {
		t.Error("CreatedAt not stamped")
	}
}

func TestCacheStats(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryBackend(10), nil, Config{}, logger.Nop())

	c.Set(ctx, "reset password", &Entry{Answer: "link"})

	if _, ok := c.Get(ctx, "reset password"); !ok {
		t.Fatal("expected hit")
	}
	if _, ok := c.Get(ctx, "completely different question about billing"); ok {
		t.Fatal("expected miss")
	}

	s := c.Stats(ctx)
	if s.Hits != 1 || s.Misses != 1 {
		t.Errorf("Hits=%d Misses=%d", s.Hits, s.Misses)
	}
	if s.HitRate != 0.5 {
		t.Errorf("HitRate = %v", s.HitRate)
	}
	if s.Entries != 1 {
		t.Errorf("Entries = %d", s.Entries)
	}
}

func TestCacheHitBumpsHitCount(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryBackend(10), nil, Config{}, logger.Nop())

	c.Set(ctx, "reset password", &Entry{Answer: "link"})
	c.Get(ctx, "reset password")
	e, ok := c.Get(ctx, "reset password")
	if !ok {
		t.Fatal("expected hit")
	}
	if e.HitCount != 2 {
		t.Errorf("HitCount = %d, want 2", e.HitCount)
	}
}

func TestSimilarityFallback(t *testing.T) {
	ctx := context.Background()
	scorer := func(ctx context.Context, a, b string) (float64, error) {
		// Everything is a near-duplicate in this fake.
		return 0.95, nil
	}
	c := New(NewMemoryBackend(10), scorer, Config{SimilarityThreshold: 0.9}, logger.Nop())

	c.Set(ctx, "How do I reset my password?", &Entry{Answer: "Use the reset link."})

	// The normalized keys differ, so only the scorer can connect them.
	e, ok := c.Get(ctx, "forgot my login credentials")
	if !ok {
		t.Fatal("similarity fallback did not fire")
	}
	if e.Answer != "Use the reset link." {
		t.Errorf("Answer = %q", e.Answer)
	}
}

func TestSimilarityFallbackRespectsThreshold(t *testing.T) {
	ctx := context.Background()
	scorer := func(ctx context.Context, a, b string) (float64, error) {
		return 0.5, nil
	}
	c := New(NewMemoryBackend(10), scorer, Config{SimilarityThreshold: 0.9}, logger.Nop())

	c.Set(ctx, "How do I reset my password?", &Entry{Answer: "Use the reset link."})

	if _, ok := c.Get(ctx, "billing question"); ok {
		t.Error("low-score candidate served as a hit")
	}
}

func TestNilScorerDisablesFallback(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryBackend(10), nil, Config{SimilarityThreshold: 0.9}, logger.Nop())

	c.Set(ctx, "How do I reset my password?", &Entry{Answer: "link"})

	if _, ok := c.Get(ctx, "unrelated words entirely"); ok {
		t.Error("fallback fired without a scorer")
	}
}
