package retrieval

import "strings"

// Splitter breaks text into chunks of roughly chunkSize characters
// with overlap carried between neighbours. It prefers splitting at
// paragraph, then line, then word boundaries before cutting mid-word.
type Splitter struct {
	chunkSize  int
	overlap    int
	separators []string
}

// NewSplitter returns a splitter with the given size and overlap.
// Non-positive values fall back to the package defaults; overlap is
// clamped below chunkSize.
func NewSplitter(chunkSize, overlap int) *Splitter {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 2
	}
	return &Splitter{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: []string{"\n\n", "\n", " ", ""},
	}
}

// Split breaks text into chunks. Whitespace-only pieces are dropped.
// With a non-zero overlap each chunk after the first starts with the
// tail of its predecessor.
func (s *Splitter) Split(text string) []string {
	pieces := s.split(text, 0)
	out := make([]string, 0, len(pieces))
	for _, p := range pieces {
		if strings.TrimSpace(p) != "" {
			out = append(out, p)
		}
	}
	return s.applyOverlap(out)
}

func (s *Splitter) split(text string, sepIdx int) []string {
	if len(text) <= s.chunkSize {
		if text == "" {
			return nil
		}
		return []string{text}
	}
	if sepIdx >= len(s.separators) {
		return s.hardSplit(text)
	}
	sep := s.separators[sepIdx]
	if sep == "" {
		return s.hardSplit(text)
	}

	parts := strings.Split(text, sep)
	var chunks []string
	var current strings.Builder
	flush := func() {
		if current.Len() == 0 {
			return
		}
		piece := current.String()
		if len(piece) > s.chunkSize {
			chunks = append(chunks, s.split(piece, sepIdx+1)...)
		} else {
			chunks = append(chunks, piece)
		}
		current.Reset()
	}
	for _, part := range parts {
		addition := len(part)
		if current.Len() > 0 {
			addition += len(sep)
		}
		if current.Len()+addition > s.chunkSize {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(sep)
		}
		current.WriteString(part)
	}
	flush()
	return chunks
}

// hardSplit cuts text at fixed offsets when no separator fits.
func (s *Splitter) hardSplit(text string) []string {
	var chunks []string
	for start := 0; start < len(text); start += s.chunkSize {
		end := start + s.chunkSize
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}

// applyOverlap prefixes each chunk after the first with the tail of
// its predecessor so context is not lost at chunk boundaries.
func (s *Splitter) applyOverlap(chunks []string) []string {
	if s.overlap == 0 || len(chunks) < 2 {
		return chunks
	}
	out := make([]string, len(chunks))
	out[0] = chunks[0]
	for i := 1; i < len(chunks); i++ {
		prev := chunks[i-1]
		tail := prev
		if len(prev) > s.overlap {
			tail = prev[len(prev)-s.overlap:]
		}
		out[i] = tail + chunks[i]
	}
	return out
}
