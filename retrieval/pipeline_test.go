package retrieval

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticEmbedder returns the same vector for every text.
type staticEmbedder struct {
	vec []float32
	err error
}

func (e staticEmbedder) Embed(context.Context, string) ([]float32, error) {
	return e.vec, e.err
}

// scriptedStore serves canned chunks (or an error) per namespace.
type scriptedStore struct {
	chunks map[string][]Chunk
	errs   map[string]error
}

func (s *scriptedStore) Upsert(context.Context, string, []Document, [][]float32) error {
	return nil
}

func (s *scriptedStore) HasNamespace(_ context.Context, namespace string) bool {
	_, ok := s.chunks[namespace]
	return ok
}

func (s *scriptedStore) Query(_ context.Context, namespace string, _ []float32, topK int) ([]Chunk, error) {
	if err := s.errs[namespace]; err != nil {
		return nil, err
	}
	chunks := s.chunks[namespace]
	if len(chunks) > topK {
		chunks = chunks[:topK]
	}
	return chunks, nil
}

func TestRetrieveMergesAndRanks(t *testing.T) {
	store := &scriptedStore{chunks: map[string][]Chunk{
		"kb-1": {
			{ID: "c1", Text: "alpha", Score: 0.9},
			{ID: "c2", Text: "beta", Score: 0.5},
		},
		"kb-2": {
			{ID: "c1", Text: "alpha", Score: 0.7}, // duplicate, lower score
			{ID: "c3", Text: "gamma", Score: 0.5},
		},
	}}
	p := New(store, staticEmbedder{vec: []float32{1}})

	chunks, err := p.Retrieve(context.Background(), "query", []string{"kb-1", "kb-2"}, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 3, "duplicates are removed")

	assert.Equal(t, "c1", chunks[0].ID)
	assert.Equal(t, 0.9, chunks[0].Score, "the higher score wins for duplicates")
	assert.Equal(t, "kb-1", chunks[0].KnowledgeBase)

	// Equal scores tie break by ID ascending.
	assert.Equal(t, "c2", chunks[1].ID)
	assert.Equal(t, "c3", chunks[2].ID)
}

func TestRetrieveTruncatesToTopK(t *testing.T) {
	store := &scriptedStore{chunks: map[string][]Chunk{
		"kb-1": {
			{ID: "a", Score: 0.9},
			{ID: "b", Score: 0.8},
			{ID: "c", Score: 0.7},
		},
	}}
	p := New(store, staticEmbedder{vec: []float32{1}})

	chunks, err := p.Retrieve(context.Background(), "query", []string{"kb-1"}, 2)
	require.NoError(t, err)
	assert.Len(t, chunks, 2)
}

func TestRetrieveScoreThreshold(t *testing.T) {
	store := &scriptedStore{chunks: map[string][]Chunk{
		"kb-1": {
			{ID: "a", Score: 0.9},
			{ID: "b", Score: 0.1},
		},
	}}
	p := New(store, staticEmbedder{vec: []float32{1}}, func(o *Options) {
		o.ScoreThreshold = 0.5
	})

	chunks, err := p.Retrieve(context.Background(), "query", []string{"kb-1"}, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "a", chunks[0].ID)
}

func TestRetrieveNoKnowledgeBases(t *testing.T) {
	p := New(&scriptedStore{}, staticEmbedder{vec: []float32{1}})

	chunks, err := p.Retrieve(context.Background(), "query", nil, 5)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetrieveEmptyNamespaceIsNotAnError(t *testing.T) {
	store := &scriptedStore{chunks: map[string][]Chunk{}}
	p := New(store, staticEmbedder{vec: []float32{1}})

	chunks, err := p.Retrieve(context.Background(), "query", []string{"kb-1"}, 5)
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestRetrievePartialFailureIsSkipped(t *testing.T) {
	store := &scriptedStore{
		chunks: map[string][]Chunk{"kb-1": {{ID: "a", Score: 0.9}}},
		errs:   map[string]error{"kb-2": fmt.Errorf("backend down")},
	}
	p := New(store, staticEmbedder{vec: []float32{1}})

	chunks, err := p.Retrieve(context.Background(), "query", []string{"kb-1", "kb-2"}, 5)
	require.NoError(t, err, "a single failing knowledge base is skipped")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a", chunks[0].ID)
}

func TestRetrieveAllNamespacesFailing(t *testing.T) {
	store := &scriptedStore{errs: map[string]error{
		"kb-1": fmt.Errorf("backend down"),
		"kb-2": fmt.Errorf("backend down"),
	}}
	p := New(store, staticEmbedder{vec: []float32{1}})

	_, err := p.Retrieve(context.Background(), "query", []string{"kb-1", "kb-2"}, 5)
	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
}

func TestRetrieveEmbedderFailure(t *testing.T) {
	p := New(&scriptedStore{}, staticEmbedder{err: fmt.Errorf("embedding service down")})

	_, err := p.Retrieve(context.Background(), "query", []string{"kb-1"}, 5)
	var unavailable *UnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Contains(t, err.Error(), "embedding service down")
}

func TestIngestAndRetrieveInMemory(t *testing.T) {
	store := NewInMemoryStore()
	p := New(store, HashEmbedder{}, func(o *Options) {
		o.ChunkSize = 50
		o.ChunkOverlap = 10
	})

	n, err := p.Ingest(context.Background(), "kb-1", []Document{
		{ID: "doc-1", Text: "The capital of France is Paris.", Metadata: map[string]string{"source": "geo.txt"}},
		{ID: "doc-2", Text: "Go is a statically typed programming language."},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	chunks, err := p.Retrieve(context.Background(), "capital of France", []string{"kb-1"}, 1)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "doc-1", chunks[0].ID)
	assert.Equal(t, "geo.txt", chunks[0].Source())
}
