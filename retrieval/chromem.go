package retrieval

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"github.com/philippgille/chromem-go"
)

// ChromemStore is a VectorStore backed by chromem-go. Each namespace
// maps to one chromem collection. With a persist path the database
// survives restarts; without one it lives in memory.
type ChromemStore struct {
	db *chromem.DB

	mu          sync.Mutex
	collections map[string]*chromem.Collection
}

// NewChromemStore creates an in-memory chromem store.
func NewChromemStore() *ChromemStore {
	return &ChromemStore{
		db:          chromem.NewDB(),
		collections: make(map[string]*chromem.Collection),
	}
}

// NewPersistentChromemStore creates a chromem store persisted under
// the given directory.
func NewPersistentChromemStore(path string, compress bool) (*ChromemStore, error) {
	db, err := chromem.NewPersistentDB(path, compress)
	if err != nil {
		return nil, fmt.Errorf("open chromem db at %s: %w", path, err)
	}
	return &ChromemStore{
		db:          db,
		collections: make(map[string]*chromem.Collection),
	}, nil
}

// collection returns the chromem collection for a namespace, creating
// it on first use. Vectors arrive precomputed, so the collection's
// embedding func only guards against documents added without one.
func (s *ChromemStore) collection(namespace string) (*chromem.Collection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if col, ok := s.collections[namespace]; ok {
		return col, nil
	}
	col, err := s.db.GetOrCreateCollection(namespace, nil, func(ctx context.Context, text string) ([]float32, error) {
		return nil, fmt.Errorf("collection %s requires precomputed embeddings", namespace)
	})
	if err != nil {
		return nil, fmt.Errorf("get or create collection %s: %w", namespace, err)
	}
	s.collections[namespace] = col
	return col, nil
}

// HasNamespace reports whether the namespace holds any documents.
// Persistent databases may hold collections not yet in the cache, so
// the underlying db is consulted as well.
func (s *ChromemStore) HasNamespace(_ context.Context, namespace string) bool {
	s.mu.Lock()
	if col, ok := s.collections[namespace]; ok {
		s.mu.Unlock()
		return col.Count() > 0
	}
	s.mu.Unlock()
	col := s.db.GetCollection(namespace, nil)
	return col != nil && col.Count() > 0
}

// Upsert writes documents with their vectors into the namespace.
func (s *ChromemStore) Upsert(ctx context.Context, namespace string, docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("upsert into %s: %d documents but %d vectors", namespace, len(docs), len(vectors))
	}
	if len(docs) == 0 {
		return nil
	}
	col, err := s.collection(namespace)
	if err != nil {
		return err
	}
	cdocs := make([]chromem.Document, len(docs))
	for i, doc := range docs {
		cdocs[i] = chromem.Document{
			ID:        doc.ID,
			Content:   doc.Text,
			Metadata:  doc.Metadata,
			Embedding: vectors[i],
		}
	}
	if err := col.AddDocuments(ctx, cdocs, runtime.NumCPU()); err != nil {
		return fmt.Errorf("add documents to %s: %w", namespace, err)
	}
	return nil
}

// Query searches the namespace. An empty or unknown namespace returns
// no hits.
func (s *ChromemStore) Query(ctx context.Context, namespace string, vector []float32, topK int) ([]Chunk, error) {
	col, err := s.collection(namespace)
	if err != nil {
		return nil, err
	}
	// chromem rejects nResults greater than the document count.
	count := col.Count()
	if count == 0 {
		return nil, nil
	}
	if topK > count {
		topK = count
	}
	results, err := col.QueryEmbedding(ctx, vector, topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("query collection %s: %w", namespace, err)
	}
	chunks := make([]Chunk, len(results))
	for i, res := range results {
		chunks[i] = Chunk{
			ID:            res.ID,
			KnowledgeBase: namespace,
			Text:          res.Content,
			Score:         float64(res.Similarity),
			Metadata:      res.Metadata,
		}
	}
	return chunks, nil
}
