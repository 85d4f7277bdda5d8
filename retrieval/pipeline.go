package retrieval

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/agentcore/logging"
)

// Defaults applied when Options leave the corresponding field zero.
const (
	DefaultTopK           = 5
	DefaultContextBudget  = 2000
	DefaultChunkSize      = 1000
	DefaultChunkOverlap   = 200
	DefaultSearchParallel = 4
)

// BudgetUnit selects how the context budget is measured.
type BudgetUnit string

const (
	// BudgetChars measures the budget in characters.
	BudgetChars BudgetUnit = "chars"
	// BudgetTokens measures the budget in model tokens.
	BudgetTokens BudgetUnit = "tokens"
)

// Options configure a Pipeline.
type Options struct {
	// TopK is the default number of chunks Retrieve returns.
	TopK int

	// ScoreThreshold drops chunks scoring below it. Zero keeps all.
	ScoreThreshold float64

	// ContextBudget bounds the rendered context block, measured in
	// BudgetUnit. Chunks that would overflow are skipped whole.
	ContextBudget int
	BudgetUnit    BudgetUnit

	// TokenEncoding names the tiktoken encoding used when BudgetUnit
	// is tokens. Empty falls back to cl100k_base.
	TokenEncoding string

	// ChunkSize and ChunkOverlap configure ingestion splitting.
	ChunkSize    int
	ChunkOverlap int

	// SearchParallelism bounds concurrent namespace searches.
	SearchParallelism int

	Logger logging.Logger
}

// Pipeline embeds queries, searches knowledge bases, and renders
// retrieved chunks into prompt context.
type Pipeline struct {
	store    VectorStore
	embedder Embedder
	opts     Options
	counter  *tokenCounter
}

// New creates a Pipeline over the given store and embedder.
func New(store VectorStore, embedder Embedder, optFns ...func(o *Options)) *Pipeline {
	opts := Options{
		TopK:              DefaultTopK,
		ContextBudget:     DefaultContextBudget,
		BudgetUnit:        BudgetChars,
		ChunkSize:         DefaultChunkSize,
		ChunkOverlap:      DefaultChunkOverlap,
		SearchParallelism: DefaultSearchParallel,
		Logger:            logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Pipeline{
		store:    store,
		embedder: embedder,
		opts:     opts,
		counter:  newTokenCounter(opts.TokenEncoding),
	}
}

// Ingest splits documents into overlapping chunks, embeds them, and
// writes them to the namespace. It returns the number of chunks stored.
func (p *Pipeline) Ingest(ctx context.Context, namespace string, docs []Document) (int, error) {
	if namespace == "" {
		return 0, fmt.Errorf("ingest: namespace must not be empty")
	}
	splitter := NewSplitter(p.opts.ChunkSize, p.opts.ChunkOverlap)

	var chunks []Document
	var vectors [][]float32
	for _, doc := range docs {
		pieces := splitter.Split(doc.Text)
		for i, piece := range pieces {
			id := doc.ID
			if len(pieces) > 1 {
				id = fmt.Sprintf("%s-%d", doc.ID, i)
			}
			vec, err := p.embedder.Embed(ctx, piece)
			if err != nil {
				return 0, fmt.Errorf("ingest: embed chunk %s: %w", id, err)
			}
			chunks = append(chunks, Document{ID: id, Text: piece, Metadata: doc.Metadata})
			vectors = append(vectors, vec)
		}
	}
	if len(chunks) == 0 {
		return 0, nil
	}
	if err := p.store.Upsert(ctx, namespace, chunks, vectors); err != nil {
		return 0, fmt.Errorf("ingest: upsert into %s: %w", namespace, err)
	}
	p.opts.Logger.Info("Ingested documents", "namespace", namespace, "documents", len(docs), "chunks", len(chunks))
	return len(chunks), nil
}

// HasKnowledgeBase reports whether the knowledge base exists in the
// backing store.
func (p *Pipeline) HasKnowledgeBase(ctx context.Context, id string) bool {
	return p.store.HasNamespace(ctx, id)
}

// Retrieve embeds the query once and searches every knowledge base
// concurrently. A namespace that fails is logged and skipped; the
// search only fails with an UnavailableError when the query cannot be
// embedded or every namespace fails. Results are deduplicated by chunk
// ID keeping the highest score, sorted by score descending with ID
// ascending as tie break, and truncated to topK.
func (p *Pipeline) Retrieve(ctx context.Context, query string, knowledgeBases []string, topK int) ([]Chunk, error) {
	if len(knowledgeBases) == 0 {
		return nil, nil
	}
	if topK <= 0 {
		topK = p.opts.TopK
	}
	start := time.Now()

	vector, err := p.embedder.Embed(ctx, query)
	if err != nil {
		return nil, &UnavailableError{Err: fmt.Errorf("embed query: %w", err)}
	}

	var mu sync.Mutex
	var hits []Chunk
	var failures []error

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.opts.SearchParallelism)
	for _, kb := range knowledgeBases {
		g.Go(func() error {
			chunks, err := p.store.Query(gctx, kb, vector, topK)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.opts.Logger.Warn("Knowledge base search failed", "knowledge_base", kb, "error", err)
				failures = append(failures, fmt.Errorf("%s: %w", kb, err))
				return nil
			}
			for _, c := range chunks {
				c.KnowledgeBase = kb
				hits = append(hits, c)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, &UnavailableError{Err: err}
	}
	if len(failures) == len(knowledgeBases) {
		return nil, &UnavailableError{Err: fmt.Errorf("all %d knowledge bases failed, first: %w", len(failures), failures[0])}
	}

	merged := p.merge(hits, topK)
	p.opts.Logger.Info("Retrieval completed", "knowledge_bases", len(knowledgeBases), "hits", len(merged), "duration", time.Since(start))
	return merged, nil
}

// merge deduplicates by ID keeping the max score, applies the score
// threshold, sorts, and truncates.
func (p *Pipeline) merge(hits []Chunk, topK int) []Chunk {
	best := make(map[string]Chunk, len(hits))
	for _, c := range hits {
		if c.Score < p.opts.ScoreThreshold {
			continue
		}
		if prev, ok := best[c.ID]; !ok || c.Score > prev.Score {
			best[c.ID] = c
		}
	}
	merged := make([]Chunk, 0, len(best))
	for _, c := range best {
		merged = append(merged, c)
	}
	sort.Slice(merged, func(i, j int) bool {
		if merged[i].Score != merged[j].Score {
			return merged[i].Score > merged[j].Score
		}
		return merged[i].ID < merged[j].ID
	})
	if len(merged) > topK {
		merged = merged[:topK]
	}
	return merged
}
