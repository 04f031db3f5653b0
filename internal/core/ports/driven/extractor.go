package driven

import "context"

// Extractor pulls plain text out of a document file on disk.
type Extractor interface {
	// Extract reads the file at path and returns its text content.
	// Returns domain.ErrExtractionFailed when the file is malformed.
	Extract(ctx context.Context, path string) (string, error)

	// Extensions lists the lowercase file extensions this extractor
	// handles, dot included.
	Extensions() []string
}
