package summarizer

import (
	"context"
	"io"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Parser turns an already-parsed article DOM into plain text.
// Implementations must hold no per-call mutable state.
type Parser interface {
	Parse(doc *goquery.Document) string
}

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// ObjectStore is the narrow object-storage surface used to mirror model artifacts.
type ObjectStore interface {
	Exists(ctx context.Context, key string) (bool, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Put(ctx context.Context, key string, r io.Reader) error
}

// Engine loads model artifacts into a runtime and hands back a Generator.
type Engine interface {
	Load(ctx context.Context, spec LoadSpec) (Generator, error)
}

// Generator produces raw decoded text for a prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, params DecodingParams) (string, error)
}

// HistoryStore persists produced summaries.
type HistoryStore interface {
	Save(ctx context.Context, record Record) error
	Recent(ctx context.Context, limit int) ([]Record, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes digests for artifact manifests.
type Hasher interface {
	Hash(data []byte) (string, error)
	HashReader(r io.Reader) (string, int64, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces record IDs.
type IDGenerator interface {
	NewID() (string, error)
}
