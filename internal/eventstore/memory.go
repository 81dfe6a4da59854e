package eventstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store with per-stream optimistic concurrency.
// It backs unit tests and single-process runs without postgres.
type MemoryStore struct {
	mu       sync.Mutex
	streams  map[uuid.UUID][]Event
	log      []Event
	sequence int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{streams: make(map[uuid.UUID][]Event)}
}

func (s *MemoryStore) Append(ctx context.Context, streamID uuid.UUID, expectedVersion int64, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	stream := s.streams[streamID]
	current := int64(len(stream))
	if current != expectedVersion {
		return ErrVersionMismatch
	}

	for i := range events {
		ev := events[i]
		if ev.ID == uuid.Nil {
			ev.ID = uuid.New()
		}
		if ev.CreatedAt.IsZero() {
			ev.CreatedAt = time.Now().UTC()
		}
		ev.StreamID = streamID
		ev.Version = current + int64(i) + 1
		s.sequence++
		stream = append(stream, ev)
		s.log = append(s.log, ev)
	}
	s.streams[streamID] = stream
	return nil
}

func (s *MemoryStore) ReadStream(ctx context.Context, streamID uuid.UUID) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stream, ok := s.streams[streamID]
	if !ok {
		return nil, ErrStreamNotFound
	}
	out := make([]Event, len(stream))
	copy(out, stream)
	return out, nil
}

func (s *MemoryStore) ReadAll(ctx context.Context, afterSequence int64) ([]Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if afterSequence >= int64(len(s.log)) {
		return nil, nil
	}
	out := make([]Event, len(s.log)-int(afterSequence))
	copy(out, s.log[afterSequence:])
	return out, nil
}

func (s *MemoryStore) StreamVersion(ctx context.Context, streamID uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.streams[streamID])), nil
}
