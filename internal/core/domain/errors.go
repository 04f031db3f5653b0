package domain

import "errors"

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or missing input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrMissingFilename indicates an upload without a filename.
	ErrMissingFilename = errors.New("filename is required")

	// ErrUnsupportedFormat indicates a file extension outside the allow-list.
	ErrUnsupportedFormat = errors.New("unsupported file format")

	// ErrFileTooLarge indicates an upload over the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrExtractionFailed indicates content could not be extracted from a
	// document of a supported format.
	ErrExtractionFailed = errors.New("extraction failed")

	// ErrDimensionMismatch indicates an embedding vector whose length does
	// not match the index dimension.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrIndexUnavailable indicates the vector index cannot be reached.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrQueueUnavailable indicates the task queue cannot be reached.
	ErrQueueUnavailable = errors.New("task queue unavailable")

	// ErrStorageUnavailable indicates the object store cannot be reached.
	ErrStorageUnavailable = errors.New("object storage unavailable")

	// ErrModelUnavailable indicates the embedding or chat model failed.
	ErrModelUnavailable = errors.New("model unavailable")
)
