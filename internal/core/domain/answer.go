package domain

import (
	"strings"
	"time"
)

const (
	// MinResults and MaxResults bound the number of chunks a query may ask for.
	MinResults = 1
	MaxResults = 20
	// DefaultMaxResults applies when the request does not set max_results.
	DefaultMaxResults = 5
)

// AnswerRequest is a question posed against the indexed documents.
type AnswerRequest struct {
	Query          string
	MaxResults     int
	IncludeSources bool
}

// Validate normalises the request in place and reports whether it is usable.
func (r *AnswerRequest) Validate() error {
	r.Query = strings.TrimSpace(r.Query)
	if r.Query == "" {
		return ErrInvalidInput
	}
	if r.MaxResults == 0 {
		r.MaxResults = DefaultMaxResults
	}
	if r.MaxResults < MinResults || r.MaxResults > MaxResults {
		return ErrInvalidInput
	}
	return nil
}

// AnswerResult is the generated answer with its supporting sources.
type AnswerResult struct {
	Query          string
	Answer         string
	Sources        []Source
	ProcessingTime time.Duration
}
