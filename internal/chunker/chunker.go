// Package chunker splits extracted document text into fixed-size
// overlapping pieces for embedding.
package chunker

const (
	// DefaultChunkSize is the chunk length in characters.
	DefaultChunkSize = 512
	// DefaultOverlap is how many characters consecutive chunks share.
	DefaultOverlap = 50
)

// Chunker produces overlapping fixed-size chunks. Sizes are measured in
// runes so multi-byte text chunks cleanly.
type Chunker struct {
	size    int
	overlap int
}

// New creates a chunker. Non-positive size falls back to the default;
// an overlap outside [0, size) falls back to the default overlap.
func New(size, overlap int) *Chunker {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultOverlap
		if overlap >= size {
			overlap = size / 2
		}
	}
	return &Chunker{size: size, overlap: overlap}
}

// Split cuts text into chunks of the configured size, each starting
// size-overlap runes after the previous one. Empty input yields no
// chunks. The final chunk may be shorter than size.
func (c *Chunker) Split(text string) []string {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	stride := c.size - c.overlap
	var chunks []string
	for start := 0; start < len(runes); start += stride {
		end := start + c.size
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[start:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// Size returns the configured chunk size.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }
