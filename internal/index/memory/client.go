// Package memory provides an in-process index.Client used by tests and dry
// runs. Writes complete instantly; the task handles it returns are always
// already confirmed.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/crawldex/crawldex/internal/document"
	"github.com/crawldex/crawldex/internal/index"
)

type indexState struct {
	primaryKey string
	settings   json.RawMessage
	docs       []document.Unit
}

// Client keeps whole indexes in memory. FailAddAttempts makes the next N
// AddDocuments calls fail, letting tests exercise the sender's retry path.
type Client struct {
	mu       sync.Mutex
	indexes  map[string]*indexState
	nextTask int64

	FailAddAttempts int

	// Batches records every successful AddDocuments payload in call order.
	Batches [][]document.Unit
	// Deleted records index names in deletion order.
	Deleted []string
	// Swaps records every swap performed.
	Swaps [][2]string
}

// New creates an empty in-memory index client.
func New() *Client {
	return &Client{indexes: make(map[string]*indexState)}
}

// Seed creates an index pre-populated with documents, bypassing task
// bookkeeping. Test setup helper.
func (c *Client) Seed(name, primaryKey string, docs []document.Unit) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.indexes[name] = &indexState{primaryKey: primaryKey, docs: append([]document.Unit(nil), docs...)}
}

// Docs returns a copy of the documents currently held by the named index.
func (c *Client) Docs(name string) []document.Unit {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.indexes[name]
	if !ok {
		return nil
	}
	return append([]document.Unit(nil), state.docs...)
}

// Exists implements index.Client.
func (c *Client) Exists(_ context.Context, name string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.indexes[name]
	return ok, nil
}

// Create implements index.Client.
func (c *Client) Create(_ context.Context, name, primaryKey string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.indexes[name]; ok {
		return fmt.Errorf("index %q already exists", name)
	}
	c.indexes[name] = &indexState{primaryKey: primaryKey}
	return nil
}

// Settings implements index.Client.
func (c *Client) Settings(_ context.Context, name string) (json.RawMessage, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.indexes[name]
	if !ok {
		return nil, fmt.Errorf("index %q not found", name)
	}
	return state.settings, nil
}

// UpdateSettings implements index.Client.
func (c *Client) UpdateSettings(_ context.Context, name string, settings json.RawMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.indexes[name]
	if !ok {
		return fmt.Errorf("index %q not found", name)
	}
	state.settings = settings
	return nil
}

// AddDocuments implements index.Client.
func (c *Client) AddDocuments(_ context.Context, name string, docs []document.Unit) (index.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailAddAttempts > 0 {
		c.FailAddAttempts--
		return index.Task{}, fmt.Errorf("injected add failure for %q", name)
	}
	state, ok := c.indexes[name]
	if !ok {
		return index.Task{}, fmt.Errorf("index %q not found", name)
	}
	state.docs = append(state.docs, docs...)
	c.Batches = append(c.Batches, append([]document.Unit(nil), docs...))
	c.nextTask++
	return index.Task{UID: c.nextTask}, nil
}

// WaitTask implements index.Client; in-memory writes are always confirmed.
func (c *Client) WaitTask(context.Context, index.Task, time.Duration) error {
	return nil
}

// Swap implements index.Client.
func (c *Client) Swap(_ context.Context, a, b string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	ia, ok := c.indexes[a]
	if !ok {
		return fmt.Errorf("index %q not found", a)
	}
	ib, ok := c.indexes[b]
	if !ok {
		return fmt.Errorf("index %q not found", b)
	}
	c.indexes[a], c.indexes[b] = ib, ia
	c.Swaps = append(c.Swaps, [2]string{a, b})
	return nil
}

// Delete implements index.Client.
func (c *Client) Delete(_ context.Context, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.indexes[name]; !ok {
		return fmt.Errorf("index %q not found", name)
	}
	delete(c.indexes, name)
	c.Deleted = append(c.Deleted, name)
	return nil
}

// DocumentCount implements index.Client.
func (c *Client) DocumentCount(_ context.Context, name string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.indexes[name]
	if !ok {
		return 0, fmt.Errorf("index %q not found", name)
	}
	return int64(len(state.docs)), nil
}
