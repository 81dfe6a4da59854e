package eventstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ProcessingMode tells an event consumer whether it is catching up on history
// or observing an event the process just produced. Side effects (key deletion
// events, notifications) are only allowed in live mode.
type ProcessingMode int

const (
	// Replay indicates historical catch-up; handlers must not emit new events.
	Replay ProcessingMode = iota
	// Live indicates the event was just appended by this process.
	Live
)

func (m ProcessingMode) String() string {
	if m == Replay {
		return "replay"
	}
	return "live"
}

// AggregateType identifies the stream family an event belongs to.
type AggregateType string

const (
	AggregateContest       AggregateType = "contest"
	AggregateVote          AggregateType = "vote"
	AggregateElection      AggregateType = "election"
	AggregateUnion         AggregateType = "political-business-union"
	AggregateElectionGroup AggregateType = "election-group"
	AggregateKey           AggregateType = "contest-key"
)

var (
	// ErrVersionMismatch reports optimistic-concurrency failure on append.
	ErrVersionMismatch = errors.New("expected stream version does not match stored version")
	// ErrStreamNotFound reports a read on a stream with no events.
	ErrStreamNotFound = errors.New("event stream not found")
)

// Event is the append-only envelope persisted per aggregate stream.
// BusinessID is the correlation key used by the signature middleware; for
// merge moves it carries the surviving contest id even when StreamID still
// points at the moved entity.
type Event struct {
	ID            uuid.UUID       `json:"id"`
	StreamID      uuid.UUID       `json:"streamId"`
	AggregateType AggregateType   `json:"aggregateType"`
	Type          string          `json:"type"`
	Version       int64           `json:"version"`
	BusinessID    uuid.UUID       `json:"businessId"`
	Payload       json.RawMessage `json:"payload"`
	Signature     []byte          `json:"signature,omitempty"`
	KeyID         string          `json:"keyId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Store provides per-stream optimistic-concurrency append and replay.
type Store interface {
	// Append writes events to a stream. expectedVersion is the version of the
	// last event already in the stream (0 for a new stream); on mismatch the
	// append fails with ErrVersionMismatch and nothing is written.
	Append(ctx context.Context, streamID uuid.UUID, expectedVersion int64, events []Event) error
	// ReadStream returns all events of one stream in version order.
	ReadStream(ctx context.Context, streamID uuid.UUID) ([]Event, error)
	// ReadAll returns every event ordered by global append sequence, starting
	// after the given sequence (0 reads from the beginning).
	ReadAll(ctx context.Context, afterSequence int64) ([]Event, error)
	// StreamVersion returns the current version of a stream (0 if absent).
	StreamVersion(ctx context.Context, streamID uuid.UUID) (int64, error)
}

// IsConflict reports whether err is an optimistic-concurrency failure.
func IsConflict(err error) bool {
	return errors.Is(err, ErrVersionMismatch)
}
