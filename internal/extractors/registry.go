// Package extractors routes document files to a format-specific text
// extractor based on file extension.
package extractors

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ardea-labs/ragna-core/internal/core/domain"
	"github.com/ardea-labs/ragna-core/internal/core/ports/driven"
)

// Registry dispatches extraction by lowercase file extension.
type Registry struct {
	byExt map[string]driven.Extractor
}

// NewRegistry creates a registry over the given extractors. Later
// registrations win when two extractors claim the same extension.
func NewRegistry(extractors ...driven.Extractor) *Registry {
	r := &Registry{byExt: make(map[string]driven.Extractor)}
	for _, ex := range extractors {
		for _, ext := range ex.Extensions() {
			r.byExt[strings.ToLower(ext)] = ex
		}
	}
	return r
}

// Supported reports whether any extractor handles the file's extension.
func (r *Registry) Supported(filename string) bool {
	_, ok := r.byExt[normalizeExt(filename)]
	return ok
}

// Extensions lists every registered extension.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		exts = append(exts, ext)
	}
	return exts
}

// Extract pulls text from the file at path, choosing the extractor by
// the extension of filename. Returns domain.ErrUnsupportedFormat when
// no extractor claims the extension.
func (r *Registry) Extract(ctx context.Context, filename, path string) (string, error) {
	ext := normalizeExt(filename)
	extractor, ok := r.byExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, ext)
	}
	return extractor.Extract(ctx, path)
}

func normalizeExt(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}
