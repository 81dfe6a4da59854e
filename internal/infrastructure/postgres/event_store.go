package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contest-hub/contest-hub/internal/eventstore"
)

const uniqueViolation = "23505"

// EventStore implements eventstore.Store on a single append-only table.
// Optimistic concurrency rides on the (stream_id, version) unique constraint:
// two writers appending at the same expected version collide on the same
// rows, the loser gets ErrVersionMismatch.
type EventStore struct {
	pool *pgxpool.Pool
}

func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

func (s *EventStore) Append(ctx context.Context, streamID uuid.UUID, expectedVersion int64, events []eventstore.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin append: %w", err)
	}
	defer tx.Rollback(ctx)

	var current int64
	if err := tx.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id=$1
	`, streamID).Scan(&current); err != nil {
		return fmt.Errorf("failed to read stream version: %w", err)
	}
	if current != expectedVersion {
		return eventstore.ErrVersionMismatch
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
		ev.Version = expectedVersion + int64(i) + 1

		if _, err := tx.Exec(ctx, `
			INSERT INTO events
			(id, stream_id, aggregate_type, event_type, version, business_id, payload, signature, key_id, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		`, ev.ID, ev.StreamID, ev.AggregateType, ev.Type, ev.Version, nullableUUID(ev.BusinessID), ev.Payload, ev.Signature, nullableString(ev.KeyID), ev.CreatedAt); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				return eventstore.ErrVersionMismatch
			}
			return fmt.Errorf("failed to append event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return eventstore.ErrVersionMismatch
		}
		return fmt.Errorf("failed to commit append: %w", err)
	}
	return nil
}

func (s *EventStore) ReadStream(ctx context.Context, streamID uuid.UUID) ([]eventstore.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, stream_id, aggregate_type, event_type, version, business_id, payload, signature, key_id, created_at
		FROM events
		WHERE stream_id=$1
		ORDER BY version ASC
	`, streamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events, err := scanEvents(rows)
	if err != nil {
		return nil, err
	}
	if len(events) == 0 {
		return nil, eventstore.ErrStreamNotFound
	}
	return events, nil
}

func (s *EventStore) ReadAll(ctx context.Context, afterSequence int64) ([]eventstore.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, stream_id, aggregate_type, event_type, version, business_id, payload, signature, key_id, created_at
		FROM events
		WHERE sequence > $1
		ORDER BY sequence ASC
	`, afterSequence)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (s *EventStore) StreamVersion(ctx context.Context, streamID uuid.UUID) (int64, error) {
	var version int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(version), 0) FROM events WHERE stream_id=$1
	`, streamID).Scan(&version)
	return version, err
}

func scanEvents(rows pgx.Rows) ([]eventstore.Event, error) {
	var events []eventstore.Event
	for rows.Next() {
		var ev eventstore.Event
		var businessID *uuid.UUID
		var keyID *string
		if err := rows.Scan(&ev.ID, &ev.StreamID, &ev.AggregateType, &ev.Type, &ev.Version, &businessID, &ev.Payload, &ev.Signature, &keyID, &ev.CreatedAt); err != nil {
			return nil, err
		}
		if businessID != nil {
			ev.BusinessID = *businessID
		}
		if keyID != nil {
			ev.KeyID = *keyID
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
