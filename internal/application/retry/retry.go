// Package retry implements the retrying writer that guards aggregate
// mutations contending on a shared event stream, chiefly per-contest
// signing-key creation and deletion.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/contest-hub/contest-hub/internal/eventstore"
)

// Result classifies the outcome of one mutation attempt.
type Result int

const (
	// Applied means the mutation was persisted.
	Applied Result = iota
	// Conflict means another writer changed the stream first; the operation
	// may be retried.
	Conflict
	// Rejected means a precondition failed; retrying cannot help.
	Rejected
)

func (r Result) String() string {
	switch r {
	case Applied:
		return "applied"
	case Conflict:
		return "conflict"
	default:
		return "rejected"
	}
}

// Classify maps an error from the event-append layer to a Result.
func Classify(err error) Result {
	switch {
	case err == nil:
		return Applied
	case eventstore.IsConflict(err):
		return Conflict
	default:
		return Rejected
	}
}

// Config bounds the retry loop.
type Config struct {
	MaxAttempts int
	MinDelay    time.Duration
	MaxDelay    time.Duration
}

func (c Config) normalized() Config {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 10
	}
	if c.MinDelay <= 0 {
		c.MinDelay = 50 * time.Millisecond
	}
	if c.MaxDelay < c.MinDelay {
		c.MaxDelay = c.MinDelay
	}
	return c
}

// Operation performs one mutate-and-save attempt.
type Operation func(ctx context.Context) (Result, error)

// Writer retries an operation while it reports Conflict, waiting a randomized
// delay between attempts. Rejected results and Applied results end the loop
// immediately.
type Writer struct {
	cfg    Config
	logger zerolog.Logger
}

func NewWriter(cfg Config, logger zerolog.Logger) *Writer {
	return &Writer{
		cfg:    cfg.normalized(),
		logger: logger.With().Str("service", "retry-writer").Logger(),
	}
}

// Execute runs the operation with bounded retry on Conflict. After the last
// attempt the conflict error propagates to the caller.
func (w *Writer) Execute(ctx context.Context, op Operation) error {
	var lastErr error
	for attempt := 1; attempt <= w.cfg.MaxAttempts; attempt++ {
		result, err := op(ctx)
		switch result {
		case Applied:
			return nil
		case Rejected:
			return err
		case Conflict:
			lastErr = err
			if lastErr == nil {
				lastErr = eventstore.ErrVersionMismatch
			}
			if attempt == w.cfg.MaxAttempts {
				break
			}
			w.logger.Debug().
				Int("attempt", attempt).
				Err(lastErr).
				Msg("concurrent modification, retrying")
			if err := w.sleep(ctx); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("retry attempts exhausted: %w", lastErr)
}

func (w *Writer) sleep(ctx context.Context) error {
	delay := w.cfg.MinDelay
	if span := w.cfg.MaxDelay - w.cfg.MinDelay; span > 0 {
		delay += time.Duration(rand.Int63n(int64(span)))
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
