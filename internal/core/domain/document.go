package domain

import (
	"math"
	"strings"
)

// Document is an uploaded file awaiting or undergoing indexing.
type Document struct {
	ID       string
	Filename string
	// SourceKey is the object storage key the original bytes live under.
	SourceKey string
	Size      int64
}

// Chunk is a contiguous slice of a document's extracted text.
type Chunk struct {
	ID       string
	Content  string
	Filename string
	// SourceKey links the chunk back to the stored document.
	SourceKey string
	// Index is the zero-based position of the chunk within its document.
	Index int
}

// RetrievedChunk is a chunk returned from a similarity search.
type RetrievedChunk struct {
	Chunk
	// Score is the cosine similarity against the query, higher is closer.
	Score float64
}

// Source describes where part of an answer came from.
type Source struct {
	Filename string  `json:"filename"`
	Preview  string  `json:"preview"`
	Score    float64 `json:"score"`
}

const previewRunes = 200

// SourceOf builds the user-facing attribution for a retrieved chunk.
// The preview is truncated to 200 characters and the score rounded to
// three decimal places.
func SourceOf(rc RetrievedChunk) Source {
	return Source{
		Filename: rc.Filename,
		Preview:  truncateRunes(rc.Content, previewRunes),
		Score:    roundScore(rc.Score),
	}
}

func truncateRunes(s string, n int) string {
	s = strings.TrimSpace(s)
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}

func roundScore(score float64) float64 {
	return math.Round(score*1000) / 1000
}
