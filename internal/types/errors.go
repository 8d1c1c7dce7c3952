package types

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	ErrAlreadyExists  = errors.New("article already exists")
	ErrInvalidURL     = errors.New("invalid URL")
	ErrEmptyResponse  = errors.New("empty response body")
	ErrMaxRetries     = errors.New("max retries exceeded")
	ErrNoSources      = errors.New("no active sources registered")
	ErrInvalidArticle = errors.New("invalid or insufficient article content")
)

// FetchError wraps errors that occur while fetching a page, after any
// retries have been exhausted.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// ExtractionError marks a candidate whose page survived no extraction
// strategy: the cascade ran to the end and the resulting record still
// failed validation. Nothing is persisted for the URL.
type ExtractionError struct {
	URL string
	Err error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for %s: %v", e.URL, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// StorageError wraps storage adapter failures.
type StorageError struct {
	Backend string
	Op      string
	Err     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage error (%s, %s): %v", e.Backend, e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// EnrichError wraps failures of the language-model backend. Enrichment
// failures after persistence degrade gracefully and never roll back the
// stored article.
type EnrichError struct {
	Op  string
	Err error
}

func (e *EnrichError) Error() string {
	return fmt.Sprintf("enrichment error (%s): %v", e.Op, e.Err)
}

func (e *EnrichError) Unwrap() error { return e.Err }
