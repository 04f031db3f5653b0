package domain

import (
	"time"

	"github.com/google/uuid"
)

// IngestionTask is the unit of work handed from the upload path to the
// worker over the task queue.
type IngestionTask struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Filename   string    `json:"filename"`
	SourceKey  string    `json:"source_key"`
	Size       int64     `json:"size"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewIngestionTask creates a task for a freshly stored document.
func NewIngestionTask(doc Document) IngestionTask {
	return IngestionTask{
		ID:         uuid.New().String(),
		DocumentID: doc.ID,
		Filename:   doc.Filename,
		SourceKey:  doc.SourceKey,
		Size:       doc.Size,
		EnqueuedAt: time.Now().UTC(),
	}
}
