package embedding

import "math"

// EmbeddingProvider defines the interface for generating text embeddings
type EmbeddingProvider interface {
	Generate(text string, taskType string) (*EmbeddingResponse, error)
}

type EmbeddingResponse struct {
	Embedding EmbeddingResponseEmbedding
}

type EmbeddingResponseEmbedding struct {
	Values []float32
}

// normalizeVector scales a vector to unit magnitude. Cosine distance in
// pgvector expects normalized vectors.
func normalizeVector(values []float32) []float32 {
	var sum float64
	for _, v := range values {
		sum += float64(v) * float64(v)
	}
	mag := math.Sqrt(sum)
	if mag == 0 {
		return values
	}
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(float64(v) / mag)
	}
	return out
}
