package nodes

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/letya999/support-rag-sub001/internal/entity"
	"github.com/letya999/support-rag-sub001/internal/pkg/logger"
	"github.com/letya999/support-rag-sub001/internal/repository/specification"
	"github.com/letya999/support-rag-sub001/internal/repository/unitofwork"
	"github.com/letya999/support-rag-sub001/pkg/embedding"
	"github.com/letya999/support-rag-sub001/pkg/graph"
	"github.com/letya999/support-rag-sub001/pkg/store"
)

const (
	NodeVectorSearch  = "vector_search"
	NodeLexicalSearch = "lexical_search"
	NodeFusion        = "fusion"
)

// RetrievalConfig bounds both search branches and the merge. Loaded from
// the pipeline config file.
type RetrievalConfig struct {
	Limit         int     `json:"limit"`
	Threshold     float64 `json:"threshold"`
	VectorWeight  float64 `json:"vector_weight"`
	LexicalWeight float64 `json:"lexical_weight"`
	TopK          int     `json:"top_k"`
}

func (c RetrievalConfig) withDefaults() RetrievalConfig {
	if c.Limit <= 0 {
		c.Limit = 10
	}
	if c.VectorWeight <= 0 {
		c.VectorWeight = 0.7
	}
	if c.LexicalWeight <= 0 {
		c.LexicalWeight = 0.3
	}
	if c.TopK <= 0 {
		c.TopK = 5
	}
	return c
}

// NewVectorSearchNode embeds the question and retrieves the nearest
// knowledge-base chunks, collapsing chunks of the same document to the best
// similarity. The config getter reads the active pipeline, so retrieval
// limits follow a reload.
func NewVectorSearchNode(embedder embedding.EmbeddingProvider, factory unitofwork.RepositoryFactory, getCfg func() RetrievalConfig, log logger.ILogger) graph.Node {
	return graph.NewNode(
		NodeVectorSearch,
		[]string{graph.FieldQuestion},
		[]string{graph.FieldVectorDocs},
		func(ctx context.Context, view graph.State) (graph.Delta, error) {
			cfg := getCfg().withDefaults()
			question := view.String(graph.FieldQuestion)

			emb, err := embedder.Generate(question, "retrieval_query")
			if err != nil {
				return nil, err
			}

			uow := factory.NewUnitOfWork(ctx)
			scored, err := uow.DocumentEmbeddingRepository().
				SearchSimilarWithScore(ctx, emb.Embedding.Values, cfg.Limit, cfg.Threshold)
			if err != nil {
				return nil, err
			}

			// Best chunk similarity per document.
			best := make(map[uuid.UUID]float64)
			order := make([]uuid.UUID, 0, len(scored))
			for _, s := range scored {
				id := s.Embedding.DocumentId
				if _, seen := best[id]; !seen {
					order = append(order, id)
				}
				if s.Similarity > best[id] {
					best[id] = s.Similarity
				}
			}
			if len(order) == 0 {
				return graph.Delta{graph.FieldVectorDocs: []store.Document{}}, nil
			}

			documents, err := uow.DocumentRepository().FindAll(ctx, specification.ByIDs{IDs: order})
			if err != nil {
				return nil, err
			}
			byID := make(map[uuid.UUID]*entity.Document, len(documents))
			for _, d := range documents {
				byID[d.Id] = d
			}

			docs := make([]store.Document, 0, len(order))
			for _, id := range order {
				d, ok := byID[id]
				if !ok {
					continue
				}
				docs = append(docs, toStoreDocument(d, best[id]))
			}
			return graph.Delta{graph.FieldVectorDocs: docs}, nil
		},
	)
}

// NewLexicalSearchNode runs Postgres full-text search over the knowledge
// base. The lexical branch catches exact terminology (error codes, product
// names) that embeddings blur.
func NewLexicalSearchNode(factory unitofwork.RepositoryFactory, getCfg func() RetrievalConfig, log logger.ILogger) graph.Node {
	return graph.NewNode(
		NodeLexicalSearch,
		[]string{graph.FieldQuestion},
		[]string{graph.FieldLexicalDocs},
		func(ctx context.Context, view graph.State) (graph.Delta, error) {
			cfg := getCfg().withDefaults()
			uow := factory.NewUnitOfWork(ctx)
			scored, err := uow.DocumentRepository().
				SearchKeywordWithScore(ctx, view.String(graph.FieldQuestion), cfg.Limit, cfg.Threshold)
			if err != nil {
				return nil, err
			}

			docs := make([]store.Document, 0, len(scored))
			for _, s := range scored {
				docs = append(docs, toStoreDocument(s.Document, s.Score))
			}
			return graph.Delta{graph.FieldLexicalDocs: docs}, nil
		},
	)
}

// NewFusionNode merges both retrieval branches into one ranked list. A
// document found by both branches gets the weighted sum of its scores, so
// agreement between branches outranks a single strong hit. Ties keep the
// vector-branch order; the result is deterministic for identical inputs.
func NewFusionNode(getCfg func() RetrievalConfig, log logger.ILogger) graph.Node {
	return graph.NewNode(
		NodeFusion,
		[]string{graph.FieldVectorDocs, graph.FieldLexicalDocs},
		[]string{graph.FieldDocs},
		func(ctx context.Context, view graph.State) (graph.Delta, error) {
			cfg := getCfg().withDefaults()
			vector, _ := view[graph.FieldVectorDocs].([]store.Document)
			lexical, _ := view[graph.FieldLexicalDocs].([]store.Document)

			type ranked struct {
				doc   store.Document
				score float64
				order int
			}
			merged := make(map[string]*ranked)
			seq := 0

			for _, d := range vector {
				merged[d.ID] = &ranked{doc: d, score: cfg.VectorWeight * float64(d.Score), order: seq}
				seq++
			}
			for _, d := range lexical {
				if r, ok := merged[d.ID]; ok {
					r.score += cfg.LexicalWeight * float64(d.Score)
					continue
				}
				merged[d.ID] = &ranked{doc: d, score: cfg.LexicalWeight * float64(d.Score), order: seq}
				seq++
			}

			all := make([]*ranked, 0, len(merged))
			for _, r := range merged {
				all = append(all, r)
			}
			sort.SliceStable(all, func(i, j int) bool {
				if all[i].score != all[j].score {
					return all[i].score > all[j].score
				}
				return all[i].order < all[j].order
			})

			if len(all) > cfg.TopK {
				all = all[:cfg.TopK]
			}
			docs := make([]store.Document, len(all))
			for i, r := range all {
				r.doc.Score = float32(r.score)
				docs[i] = r.doc
			}
			return graph.Delta{graph.FieldDocs: docs}, nil
		},
	)
}

func toStoreDocument(d *entity.Document, score float64) store.Document {
	return store.Document{
		ID:                  d.Id.String(),
		Title:               d.Title,
		Content:             d.Content,
		Category:            d.Category,
		Score:               float32(score),
		ClarifyingQuestions: d.ClarifyingQuestions,
		RequiresHandoff:     d.RequiresHandoff,
		Metadata:            d.Metadata,
	}
}
