// Package sender queues publish units, flushes them to the search index in
// batches, tracks in-flight write confirmations, and performs the atomic
// whole-index replace at the end of a crawl.
package sender

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/crawldex/crawldex/internal/crawl"
	"github.com/crawldex/crawldex/internal/document"
	"github.com/crawldex/crawldex/internal/index"
	"github.com/crawldex/crawldex/internal/metrics"
)

// StagingSuffix names the temporary index written to while a live index
// exists. The resulting "{live}_crawler_tmp" name is reserved across runs.
const StagingSuffix = "_crawler_tmp"

// State is the sender's lifecycle position for one crawl.
type State int

// Lifecycle states. The sender moves strictly forward.
const (
	StateUninitialized State = iota
	StateReady
	StateDraining
	StatePublished
	StateDiscarded
)

// Options bound the flush retry policy and the final drain.
type Options struct {
	// MaxFlushRetries is the number of retries after the first failed
	// attempt of one batch flush.
	MaxFlushRetries uint64
	FlushBaseDelay  time.Duration
	FlushMaxDelay   time.Duration
	// DrainTimeout bounds the wait on each pending write confirmation
	// during Finish. Expiry is logged, never fatal.
	DrainTimeout time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxFlushRetries == 0 {
		o.MaxFlushRetries = 4
	}
	if o.FlushBaseDelay <= 0 {
		o.FlushBaseDelay = 250 * time.Millisecond
	}
	if o.FlushMaxDelay <= 0 {
		o.FlushMaxDelay = 5 * time.Second
	}
	if o.DrainTimeout <= 0 {
		o.DrainTimeout = 2 * time.Minute
	}
	return o
}

// FlushError reports a batch that could not be written after the retry
// budget. Earlier successful flushes are not rolled back.
type FlushError struct {
	Queued int
	Err    error
}

func (e *FlushError) Error() string {
	return fmt.Sprintf("flush of %d documents failed after retries: %v", e.Queued, e.Err)
}

func (e *FlushError) Unwrap() error { return e.Err }

// Sender owns the send queue and the pending confirmation set exclusively;
// no other component reads or mutates them. Threshold-triggered flushes
// snapshot and clear the queue under the lock before any I/O, so a unit
// belongs to exactly one flush.
type Sender struct {
	client index.Client
	cfg    crawl.Config
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	state   State
	queue   []document.Unit
	pending []index.Task
	fatal   error
	total   int64

	inflight sync.WaitGroup

	live       string
	staging    string
	swapNeeded bool
}

// New builds a Sender for one crawl.
func New(client index.Client, cfg crawl.Config, opts Options, logger *zap.Logger) *Sender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Sender{
		client: client,
		cfg:    cfg,
		opts:   opts.withDefaults(),
		logger: logger,
		live:   cfg.IndexName,
	}
}

// Init resolves the staging index for this crawl. When a live index already
// exists the crawl writes to a fresh "{live}_crawler_tmp" index, optionally
// seeded with the live settings; otherwise the staging index is the live
// index itself and no swap happens later. Any failure here is fatal to the
// crawl.
func (s *Sender) Init(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateUninitialized {
		s.mu.Unlock()
		return fmt.Errorf("sender already initialized")
	}
	s.mu.Unlock()

	exists, err := s.client.Exists(ctx, s.live)
	if err != nil {
		return fmt.Errorf("check live index: %w", err)
	}

	if exists {
		var settings json.RawMessage
		if s.cfg.KeepIndexSettings {
			settings, err = s.client.Settings(ctx, s.live)
			if err != nil {
				return fmt.Errorf("read live index settings: %w", err)
			}
		}
		staging := s.live + StagingSuffix
		if err := s.recreateStaging(ctx, staging); err != nil {
			return err
		}
		if s.cfg.KeepIndexSettings && settings != nil {
			if err := s.client.UpdateSettings(ctx, staging, settings); err != nil {
				return fmt.Errorf("apply settings to staging index: %w", err)
			}
		}
		s.mu.Lock()
		s.staging = staging
		s.swapNeeded = true
	} else {
		if err := s.client.Create(ctx, s.live, s.cfg.PrimaryKey); err != nil {
			return fmt.Errorf("create index %q: %w", s.live, err)
		}
		s.mu.Lock()
		s.staging = s.live
	}
	s.state = StateReady
	s.mu.Unlock()
	return nil
}

// recreateStaging drops a leftover staging index from an interrupted earlier
// run before creating a fresh one.
func (s *Sender) recreateStaging(ctx context.Context, staging string) error {
	leftover, err := s.client.Exists(ctx, staging)
	if err != nil {
		return fmt.Errorf("check staging index: %w", err)
	}
	if leftover {
		s.logger.Warn("deleting leftover staging index", zap.String("index", staging))
		if err := s.client.Delete(ctx, staging); err != nil {
			return fmt.Errorf("delete leftover staging index: %w", err)
		}
	}
	if err := s.client.Create(ctx, staging, s.cfg.PrimaryKey); err != nil {
		return fmt.Errorf("create staging index %q: %w", staging, err)
	}
	return nil
}

// Add appends the unit to the send queue. Crossing the batch-size threshold
// claims the queued units synchronously and flushes them in the background;
// page processing never blocks on index I/O. Add reports a previously
// recorded fatal flush error so the crawl can stop instead of producing
// documents that would be lost.
func (s *Sender) Add(ctx context.Context, unit document.Unit) error {
	s.mu.Lock()
	if s.fatal != nil {
		err := s.fatal
		s.mu.Unlock()
		return err
	}
	if s.state != StateReady {
		s.mu.Unlock()
		return fmt.Errorf("sender not ready (state %d)", s.state)
	}
	s.queue = append(s.queue, unit)
	var batch []document.Unit
	if s.cfg.BatchSize > 0 && len(s.queue) >= s.cfg.BatchSize {
		batch = s.queue
		s.queue = nil
	}
	s.mu.Unlock()

	if batch != nil {
		s.inflight.Add(1)
		go func() {
			defer s.inflight.Done()
			s.flush(ctx, batch)
		}()
	}
	return nil
}

// flush writes one claimed batch, recording the confirmation handle on
// success and the fatal error once the retry budget is exhausted.
func (s *Sender) flush(ctx context.Context, batch []document.Unit) {
	task, err := s.flushWithRetry(ctx, batch)
	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		if s.fatal == nil {
			s.fatal = &FlushError{Queued: len(batch), Err: err}
		}
		return
	}
	s.pending = append(s.pending, task)
	s.total += int64(len(batch))
}

func (s *Sender) flushWithRetry(ctx context.Context, batch []document.Unit) (index.Task, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.opts.FlushBaseDelay
	bo.MaxInterval = s.opts.FlushMaxDelay
	bo.MaxElapsedTime = 0

	var task index.Task
	attempt := 0
	err := backoff.Retry(func() error {
		t, err := s.client.AddDocuments(ctx, s.staging, batch)
		if err != nil {
			attempt++
			metrics.ObserveFlushRetry(s.staging)
			s.logger.Warn("batch flush failed",
				zap.String("index", s.staging),
				zap.Int("batch_size", len(batch)),
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		task = t
		return nil
	}, backoff.WithMaxRetries(backoff.WithContext(bo, ctx), s.opts.MaxFlushRetries))
	if err != nil {
		metrics.ObserveFlushFailure(s.staging)
		return index.Task{}, err
	}
	metrics.ObserveFlush(s.staging, len(batch))
	return task, nil
}

// Finish drains the sender and publishes the crawl: it waits out in-flight
// background flushes, flushes the remainder synchronously, awaits every
// pending confirmation (best effort), and then swaps the staging index into
// the live name, or deletes it when the crawl produced no documents.
func (s *Sender) Finish(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return fmt.Errorf("sender not ready to finish (state %d)", s.state)
	}
	s.state = StateDraining
	s.mu.Unlock()

	s.inflight.Wait()

	s.mu.Lock()
	if s.fatal != nil {
		err := s.fatal
		s.state = StateDiscarded
		s.mu.Unlock()
		return err
	}
	remainder := s.queue
	s.queue = nil
	s.mu.Unlock()

	if len(remainder) > 0 {
		task, err := s.flushWithRetry(ctx, remainder)
		if err != nil {
			s.mu.Lock()
			s.state = StateDiscarded
			s.mu.Unlock()
			return &FlushError{Queued: len(remainder), Err: err}
		}
		s.mu.Lock()
		s.pending = append(s.pending, task)
		s.total += int64(len(remainder))
		s.mu.Unlock()
	}

	s.awaitPending(ctx)

	if err := s.publish(ctx); err != nil {
		return err
	}
	return nil
}

func (s *Sender) awaitPending(ctx context.Context) {
	s.mu.Lock()
	pending := s.pending
	s.pending = nil
	s.mu.Unlock()

	for _, task := range pending {
		if err := s.client.WaitTask(ctx, task, s.opts.DrainTimeout); err != nil {
			s.logger.Warn("pending index write not confirmed in time",
				zap.Int64("task_uid", task.UID),
				zap.Error(err),
			)
		}
	}
}

func (s *Sender) publish(ctx context.Context) error {
	s.mu.Lock()
	total := s.total
	staging := s.staging
	swapNeeded := s.swapNeeded
	s.mu.Unlock()

	if total == 0 {
		// Never replace a populated live index with an empty crawl.
		if err := s.client.Delete(ctx, staging); err != nil {
			s.logger.Warn("delete empty staging index failed",
				zap.String("index", staging), zap.Error(err))
		}
		s.setState(StateDiscarded)
		s.logger.Info("crawl produced no documents, staging index discarded",
			zap.String("index", staging))
		return nil
	}

	if swapNeeded {
		if err := s.client.Swap(ctx, s.live, staging); err != nil {
			s.setState(StateDiscarded)
			return fmt.Errorf("swap staging into live index: %w", err)
		}
		// After the swap the staging name holds the old live data.
		if err := s.client.Delete(ctx, staging); err != nil {
			s.logger.Warn("delete orphaned staging index failed",
				zap.String("index", staging), zap.Error(err))
		}
	}

	s.setState(StatePublished)
	indexed, err := s.client.DocumentCount(ctx, s.live)
	if err != nil {
		indexed = total
	}
	s.logger.Info("crawl published",
		zap.String("index", s.live),
		zap.Int64("documents_sent", total),
		zap.Int64("documents_indexed", indexed),
	)
	return nil
}

func (s *Sender) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// TotalSent reports how many documents reached the index so far.
func (s *Sender) TotalSent() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

// CurrentState returns the sender's lifecycle position.
func (s *Sender) CurrentState() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}
