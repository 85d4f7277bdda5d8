package retrieval

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"sync"
)

// InMemoryStore is a brute force VectorStore for tests, demos and
// small corpora. It ranks by cosine similarity and is safe for
// concurrent use.
type InMemoryStore struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]storedDoc
}

type storedDoc struct {
	text     string
	vector   []float32
	metadata map[string]string
}

// NewInMemoryStore creates an empty store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{namespaces: make(map[string]map[string]storedDoc)}
}

// Upsert writes documents with their vectors into the namespace.
func (s *InMemoryStore) Upsert(_ context.Context, namespace string, docs []Document, vectors [][]float32) error {
	if len(docs) != len(vectors) {
		return fmt.Errorf("upsert into %s: %d documents but %d vectors", namespace, len(docs), len(vectors))
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	ns, ok := s.namespaces[namespace]
	if !ok {
		ns = make(map[string]storedDoc)
		s.namespaces[namespace] = ns
	}
	for i, doc := range docs {
		vec := make([]float32, len(vectors[i]))
		copy(vec, vectors[i])
		md := make(map[string]string, len(doc.Metadata))
		for k, v := range doc.Metadata {
			md[k] = v
		}
		ns[doc.ID] = storedDoc{text: doc.Text, vector: vec, metadata: md}
	}
	return nil
}

// Query ranks the namespace's documents by cosine similarity. An
// unknown namespace returns no hits.
func (s *InMemoryStore) Query(_ context.Context, namespace string, vector []float32, topK int) ([]Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ns := s.namespaces[namespace]
	if len(ns) == 0 {
		return nil, nil
	}
	chunks := make([]Chunk, 0, len(ns))
	for id, doc := range ns {
		chunks = append(chunks, Chunk{
			ID:            id,
			KnowledgeBase: namespace,
			Text:          doc.text,
			Score:         cosineSimilarity(vector, doc.vector),
			Metadata:      doc.metadata,
		})
	}
	sort.Slice(chunks, func(i, j int) bool {
		if chunks[i].Score != chunks[j].Score {
			return chunks[i].Score > chunks[j].Score
		}
		return chunks[i].ID < chunks[j].ID
	})
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks, nil
}

// HasNamespace reports whether the namespace holds any documents.
func (s *InMemoryStore) HasNamespace(_ context.Context, namespace string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.namespaces[namespace]) > 0
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// HashEmbedder is a deterministic Embedder for tests and demos. It
// hashes words into a fixed size bag-of-words vector, so texts sharing
// vocabulary score as similar. It is not a semantic embedding.
type HashEmbedder struct {
	// Dimensions of the produced vectors. Zero means 256.
	Dimensions int
}

// Embed hashes the text's words into a vector.
func (e HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	dims := e.Dimensions
	if dims <= 0 {
		dims = 256
	}
	vec := make([]float32, dims)
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		h.Write([]byte(word))
		vec[h.Sum32()%uint32(dims)]++
	}
	return vec, nil
}
