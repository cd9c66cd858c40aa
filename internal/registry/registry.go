package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
	"github.com/letya999/support-rag-sub001/pkg/answercache"
	"github.com/letya999/support-rag-sub001/pkg/dialog"
	"github.com/letya999/support-rag-sub001/pkg/escalation"
	"github.com/letya999/support-rag-sub001/pkg/graph"
	"github.com/letya999/support-rag-sub001/pkg/nodes"
)

// File is the on-disk pipeline configuration: the execution graph, the
// dialog rules, the escalation thresholds and the retrieval/cache tuning,
// all in one reloadable document.
type File struct {
	Graph      graph.Definition      `json:"graph"`
	Rules      []dialog.Rule         `json:"rules"`
	Escalation EscalationConfig      `json:"escalation"`
	Retrieval  nodes.RetrievalConfig `json:"retrieval"`
	Cache      CacheConfig           `json:"cache"`
}

type EscalationConfig struct {
	SentimentSeverity   float64  `json:"sentiment_severity"`
	Confidence          float64  `json:"confidence"`
	MaxAttempts         int      `json:"max_attempts"`
	ForbiddenCategories []string `json:"forbidden_categories"`
	EscalateState       string   `json:"escalate_state"`
}

func (c EscalationConfig) thresholds() escalation.Thresholds {
	t := escalation.Thresholds{
		SentimentSeverity:   c.SentimentSeverity,
		Confidence:          c.Confidence,
		MaxAttempts:         c.MaxAttempts,
		ForbiddenCategories: c.ForbiddenCategories,
		EscalateState:       c.EscalateState,
	}
	if t.SentimentSeverity == 0 {
		t.SentimentSeverity = 0.8
	}
	if t.Confidence == 0 {
		t.Confidence = 0.5
	}
	if t.MaxAttempts == 0 {
		t.MaxAttempts = 2
	}
	if t.EscalateState == "" {
		t.EscalateState = "ESCALATE"
	}
	return t
}

type CacheConfig struct {
	Capacity            int     `json:"capacity"`
	TTLSeconds          int     `json:"ttl_seconds"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
	SimilarityWindow    int     `json:"similarity_window"`
	SimilarityBudgetMs  int     `json:"similarity_budget_ms"`
}

func (c CacheConfig) CacheOptions() answercache.Config {
	cfg := answercache.Config{
		Capacity:            c.Capacity,
		DefaultTTL:          time.Duration(c.TTLSeconds) * time.Second,
		SimilarityThreshold: c.SimilarityThreshold,
		SimilarityWindow:    c.SimilarityWindow,
		SimilarityBudget:    time.Duration(c.SimilarityBudgetMs) * time.Millisecond,
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = 1000
	}
	if cfg.DefaultTTL == 0 {
		cfg.DefaultTTL = time.Hour
	}
	return cfg
}

// Registry holds the active pipeline: the validated plan, the rule engine
// and the thresholds, swapped atomically on reload. A reload that fails
// validation leaves the running pipeline untouched.
type Registry struct {
	path  string
	nodes *graph.Registry
	preds graph.PredicateTable
	log   logger.ILogger

	mu          sync.RWMutex
	plan        *graph.Plan
	engine      *dialog.Engine
	thresholds  escalation.Thresholds
	retrieval   nodes.RetrievalConfig
	cache       CacheConfig
	nodeConfigs map[string]graph.NodeConfig
	version     int
	loadedAt    time.Time
}

func New(path string, nodeTable *graph.Registry, preds graph.PredicateTable, log logger.ILogger) *Registry {
	return &Registry{
		path:  path,
		nodes: nodeTable,
		preds: preds,
		log:   log,
	}
}

// Load reads and validates the pipeline file. Must succeed once at startup;
// later calls are reloads and keep the previous pipeline on any error.
func (r *Registry) Load() error {
	raw, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("read pipeline config: %w", err)
	}

	var file File
	if err := json.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse pipeline config: %w", err)
	}

	plan, err := graph.BuildPlan(file.Graph, r.nodes, r.preds)
	if err != nil {
		return fmt.Errorf("pipeline graph rejected: %w", err)
	}
	engine, err := dialog.NewEngine(file.Rules, r.log)
	if err != nil {
		return fmt.Errorf("dialog rules rejected: %w", err)
	}

	nodeConfigs := make(map[string]graph.NodeConfig, len(file.Graph.Nodes))
	for _, d := range file.Graph.Nodes {
		nodeConfigs[d.Name] = graph.NodeConfig{
			Timeout:  time.Duration(d.TimeoutMs) * time.Millisecond,
			Critical: d.Critical,
		}
	}

	r.mu.Lock()
	r.plan = plan
	r.engine = engine
	r.nodeConfigs = nodeConfigs
	r.thresholds = file.Escalation.thresholds()
	r.retrieval = file.Retrieval
	r.cache = file.Cache
	r.version++
	r.loadedAt = time.Now()
	version := r.version
	r.mu.Unlock()

	r.log.Info("registry", "pipeline loaded", map[string]interface{}{
		"path":    r.path,
		"version": version,
		"rules":   len(file.Rules),
	})
	return nil
}

// Reload re-reads the file; on failure the active pipeline keeps serving.
func (r *Registry) Reload() error {
	if err := r.Load(); err != nil {
		r.log.Error("registry", "pipeline reload rejected, keeping previous version", map[string]interface{}{
			"error": err.Error(),
		})
		return err
	}
	return nil
}

func (r *Registry) Plan() *graph.Plan {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.plan
}

func (r *Registry) Engine() *dialog.Engine {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.engine
}

func (r *Registry) Thresholds() escalation.Thresholds {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.thresholds
}

func (r *Registry) Retrieval() nodes.RetrievalConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.retrieval
}

func (r *Registry) Cache() CacheConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cache
}

// NodeConfig returns the declared execution policy for a node, including
// nodes that run outside the staged plan (generation and validation).
func (r *Registry) NodeConfig(name string) graph.NodeConfig {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nodeConfigs[name]
}

// Version identifies the active pipeline for logs and the admin API.
func (r *Registry) Version() (int, time.Time) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.version, r.loadedAt
}
