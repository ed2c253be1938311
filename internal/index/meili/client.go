// Package meili implements index.Client against a Meilisearch instance.
package meili

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/meilisearch/meilisearch-go"

	"github.com/crawldex/crawldex/internal/document"
	"github.com/crawldex/crawldex/internal/index"
)

const (
	// How long structural operations (create, swap, settings) may take
	// before the client gives up waiting on their task.
	structuralTaskTimeout = 2 * time.Minute
	taskPollInterval      = 50 * time.Millisecond
)

// Client wraps the Meilisearch SDK behind the index.Client contract.
type Client struct {
	api *meilisearch.Client
}

// New connects to the Meilisearch instance at host. The key may be empty for
// unprotected development instances.
func New(host, apiKey string) *Client {
	return &Client{
		api: meilisearch.NewClient(meilisearch.ClientConfig{
			Host:   host,
			APIKey: apiKey,
		}),
	}
}

// Exists implements index.Client.
func (c *Client) Exists(_ context.Context, name string) (bool, error) {
	_, err := c.api.GetIndex(name)
	if err == nil {
		return true, nil
	}
	var apiErr *meilisearch.Error
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return false, nil
	}
	return false, fmt.Errorf("get index %q: %w", name, err)
}

// Create implements index.Client. It blocks until the index is usable.
func (c *Client) Create(ctx context.Context, name, primaryKey string) error {
	info, err := c.api.CreateIndex(&meilisearch.IndexConfig{
		Uid:        name,
		PrimaryKey: primaryKey,
	})
	if err != nil {
		return fmt.Errorf("create index %q: %w", name, err)
	}
	return c.awaitStructural(ctx, info.TaskUID, "create index "+name)
}

// Settings implements index.Client.
func (c *Client) Settings(_ context.Context, name string) (json.RawMessage, error) {
	settings, err := c.api.Index(name).GetSettings()
	if err != nil {
		return nil, fmt.Errorf("get settings for %q: %w", name, err)
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("encode settings for %q: %w", name, err)
	}
	return raw, nil
}

// UpdateSettings implements index.Client.
func (c *Client) UpdateSettings(ctx context.Context, name string, settings json.RawMessage) error {
	var decoded meilisearch.Settings
	if err := json.Unmarshal(settings, &decoded); err != nil {
		return fmt.Errorf("decode settings for %q: %w", name, err)
	}
	info, err := c.api.Index(name).UpdateSettings(&decoded)
	if err != nil {
		return fmt.Errorf("update settings for %q: %w", name, err)
	}
	return c.awaitStructural(ctx, info.TaskUID, "update settings for "+name)
}

// AddDocuments implements index.Client. The returned task completes once the
// documents are searchable; the write itself is acknowledged immediately.
func (c *Client) AddDocuments(_ context.Context, name string, docs []document.Unit) (index.Task, error) {
	info, err := c.api.Index(name).AddDocuments(&docs)
	if err != nil {
		return index.Task{}, fmt.Errorf("add %d documents to %q: %w", len(docs), name, err)
	}
	return index.Task{UID: info.TaskUID}, nil
}

// WaitTask implements index.Client.
func (c *Client) WaitTask(ctx context.Context, task index.Task, timeout time.Duration) error {
	waitCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	done, err := c.api.WaitForTask(task.UID, meilisearch.WaitParams{
		Context:  waitCtx,
		Interval: taskPollInterval,
	})
	if err != nil {
		return fmt.Errorf("wait for task %d: %w", task.UID, err)
	}
	if done.Status != meilisearch.TaskStatusSucceeded {
		return fmt.Errorf("task %d finished with status %q: %s", task.UID, done.Status, done.Error.Message)
	}
	return nil
}

// Swap implements index.Client; the swap is atomic on the Meilisearch side.
func (c *Client) Swap(ctx context.Context, a, b string) error {
	info, err := c.api.SwapIndexes([]meilisearch.SwapIndexesParams{
		{Indexes: []string{a, b}},
	})
	if err != nil {
		return fmt.Errorf("swap indexes %q and %q: %w", a, b, err)
	}
	return c.awaitStructural(ctx, info.TaskUID, fmt.Sprintf("swap %s/%s", a, b))
}

// Delete implements index.Client.
func (c *Client) Delete(ctx context.Context, name string) error {
	info, err := c.api.DeleteIndex(name)
	if err != nil {
		return fmt.Errorf("delete index %q: %w", name, err)
	}
	return c.awaitStructural(ctx, info.TaskUID, "delete index "+name)
}

// DocumentCount implements index.Client.
func (c *Client) DocumentCount(_ context.Context, name string) (int64, error) {
	stats, err := c.api.Index(name).GetStats()
	if err != nil {
		return 0, fmt.Errorf("get stats for %q: %w", name, err)
	}
	return stats.NumberOfDocuments, nil
}

func (c *Client) awaitStructural(ctx context.Context, taskUID int64, op string) error {
	if err := c.WaitTask(ctx, index.Task{UID: taskUID}, structuralTaskTimeout); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
