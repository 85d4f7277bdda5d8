package retrieval

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

const contextHeader = "Here is relevant information from the knowledge base:"

// BuildContext renders ranked chunks into a prompt context block. The
// block stays within the configured budget; a chunk that would
// overflow is skipped whole and later, smaller chunks may still fit.
// It returns an empty string when no chunk fits.
func (p *Pipeline) BuildContext(chunks []Chunk) string {
	if len(chunks) == 0 {
		return ""
	}
	var b strings.Builder
	remaining := p.opts.ContextBudget - p.measure(contextHeader)
	included := 0
	for _, c := range chunks {
		block := renderChunk(included+1, c)
		cost := p.measure(block) + p.measure("\n\n")
		if cost > remaining {
			continue
		}
		b.WriteString("\n\n")
		b.WriteString(block)
		remaining -= cost
		included++
	}
	if included == 0 {
		return ""
	}
	return contextHeader + b.String()
}

func renderChunk(position int, c Chunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Source %d] %s", position, c.Text)
	if src := c.Source(); src != "" {
		fmt.Fprintf(&b, "\n(Source: %s, Relevance: %.2f)", src, c.Score)
	} else {
		fmt.Fprintf(&b, "\n(Source: %s, Relevance: %.2f)", c.KnowledgeBase, c.Score)
	}
	return b.String()
}

// measure returns the budget cost of a string in the configured unit.
func (p *Pipeline) measure(text string) int {
	if p.opts.BudgetUnit == BudgetTokens {
		return p.counter.Count(text)
	}
	return len(text)
}

// tokenCounter counts model tokens using tiktoken, loading the
// encoding lazily and caching it. When the encoding cannot be loaded
// it falls back to a character based estimate.
type tokenCounter struct {
	encodingName string

	mu       sync.Mutex
	encoding *tiktoken.Tiktoken
	loadErr  error
	loaded   bool
}

func newTokenCounter(encodingName string) *tokenCounter {
	if encodingName == "" {
		encodingName = "cl100k_base"
	}
	return &tokenCounter{encodingName: encodingName}
}

func (t *tokenCounter) Count(text string) int {
	t.mu.Lock()
	if !t.loaded {
		t.encoding, t.loadErr = tiktoken.GetEncoding(t.encodingName)
		t.loaded = true
	}
	enc, err := t.encoding, t.loadErr
	t.mu.Unlock()

	if err != nil || enc == nil {
		// Rough estimate: about four characters per token.
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
