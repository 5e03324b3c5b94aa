package summarizer

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrObjectNotFound is returned by ObjectStore.Get for a missing key.
var ErrObjectNotFound = errors.New("object not found")

// FetchError reports a network or HTTP failure while fetching an article.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("fetch %s: status %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
	case e.Err != nil:
		return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("fetch %s failed", e.URL)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// NoContentExtractedError reports that a parser produced no text.
type NoContentExtractedError struct {
	URL string
}

func (e *NoContentExtractedError) Error() string {
	return fmt.Sprintf("no content could be extracted from %s", e.URL)
}

// ModelUnavailableError reports that the model manager never reached ready.
type ModelUnavailableError struct {
	ModelID string
	State   string
	Err     error
}

func (e *ModelUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model %s unavailable (%s): %v", e.ModelID, e.State, e.Err)
	}
	return fmt.Sprintf("model %s unavailable (%s)", e.ModelID, e.State)
}

func (e *ModelUnavailableError) Unwrap() error { return e.Err }

// SummaryGenerationError wraps a failure raised by the generation engine.
type SummaryGenerationError struct {
	Err error
}

func (e *SummaryGenerationError) Error() string {
	return fmt.Sprintf("summary generation failed: %v", e.Err)
}

func (e *SummaryGenerationError) Unwrap() error { return e.Err }

// ArtifactSyncError reports an unreachable remote store or a partial transfer.
type ArtifactSyncError struct {
	ModelID string
	Op      string
	Err     error
}

func (e *ArtifactSyncError) Error() string {
	return fmt.Sprintf("artifact sync %s for %s: %v", e.Op, e.ModelID, e.Err)
}

func (e *ArtifactSyncError) Unwrap() error { return e.Err }
