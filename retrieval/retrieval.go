package retrieval

import (
	"context"
	"fmt"
)

// Chunk is one retrieved piece of knowledge with its relevance score.
// Scores are cosine similarities in [0, 1], higher is more relevant.
type Chunk struct {
	ID            string            `json:"id"`
	KnowledgeBase string            `json:"knowledge_base"`
	Text          string            `json:"text"`
	Score         float64           `json:"score"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Source returns the origin recorded at ingestion time, if any.
func (c Chunk) Source() string {
	return c.Metadata["source"]
}

// Document is a piece of content to ingest into a knowledge base.
type Document struct {
	ID       string            `json:"id"`
	Text     string            `json:"text"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the persistence interface of the pipeline. A
// namespace corresponds to one knowledge base; querying a namespace
// that does not exist yet returns no hits, not an error.
type VectorStore interface {
	// Upsert writes documents and their vectors into a namespace,
	// replacing documents with the same ID.
	Upsert(ctx context.Context, namespace string, docs []Document, vectors [][]float32) error

	// Query returns up to topK chunks from the namespace ranked by
	// similarity to the vector.
	Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Chunk, error)

	// HasNamespace reports whether the namespace holds any documents.
	HasNamespace(ctx context.Context, namespace string) bool
}

// UnavailableError reports that the retrieval backend could not serve
// a search. Whether it is fatal for a run depends on the agent's
// configuration.
type UnavailableError struct {
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("retrieval unavailable: %v", e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }
