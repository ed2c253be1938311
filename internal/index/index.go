// Package index defines the search-index client contract consumed by the
// document sender. Implementations live in subpackages; the sender never
// depends on a concrete engine.
package index

import (
	"context"
	"encoding/json"
	"time"

	"github.com/crawldex/crawldex/internal/document"
)

// Task is the asynchronous confirmation handle returned by a document write.
// The index acknowledges receipt immediately; the task completes once the
// documents are searchable.
type Task struct {
	UID int64
}

// Client is the minimal index surface the crawl pipeline needs. Settings are
// passed as raw JSON so engine-specific types stay out of the core.
type Client interface {
	Exists(ctx context.Context, name string) (bool, error)
	Create(ctx context.Context, name, primaryKey string) error
	Settings(ctx context.Context, name string) (json.RawMessage, error)
	UpdateSettings(ctx context.Context, name string, settings json.RawMessage) error
	AddDocuments(ctx context.Context, name string, docs []document.Unit) (Task, error)
	WaitTask(ctx context.Context, task Task, timeout time.Duration) error
	Swap(ctx context.Context, a, b string) error
	Delete(ctx context.Context, name string) error
	DocumentCount(ctx context.Context, name string) (int64, error)
}
