package signing

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/contest-hub/contest-hub/internal/application/retry"
	"github.com/contest-hub/contest-hub/internal/clock"
	"github.com/contest-hub/contest-hub/internal/domain/contest"
	"github.com/contest-hub/contest-hub/internal/domain/signing"
	"github.com/contest-hub/contest-hub/internal/eventstore"
)

// Service owns the signing-key lifecycle for all contests. Key events live
// on a dedicated per-contest key stream so concurrent creation and deletion
// contend on one stream and are serialized by the retrying writer.
type Service struct {
	cache     *Cache
	generator *signing.Generator
	store     eventstore.Store
	writer    *retry.Writer
	clk       clock.Clock
	logger    zerolog.Logger
}

func NewService(
	cache *Cache,
	generator *signing.Generator,
	store eventstore.Store,
	writer *retry.Writer,
	clk clock.Clock,
	logger zerolog.Logger,
) *Service {
	return &Service{
		cache:     cache,
		generator: generator,
		store:     store,
		writer:    writer,
		clk:       clk,
		logger:    logger.With().Str("service", "signing").Logger(),
	}
}

// Cache exposes the read surface consumed by the signature middleware.
func (s *Service) Cache() *Cache {
	return s.cache
}

// KeyStreamID returns the key stream for a contest, derived so every
// instance addresses the same stream.
func KeyStreamID(contestID uuid.UUID) uuid.UUID {
	return uuid.NewSHA1(contestID, []byte("signing-keys"))
}

// EnsureActiveSignature makes sure the contest has a usable key at the given
// instant, creating one and emitting PublicKeyCreated when the cached key is
// missing or expired. Concurrent callers race on the key stream; losers
// retry and then observe the winner's key.
func (s *Service) EnsureActiveSignature(ctx context.Context, contestID uuid.UUID, at time.Time) error {
	return s.writer.Execute(ctx, func(ctx context.Context) (retry.Result, error) {
		if key, ok := s.cache.Get(contestID); ok && key != nil && !key.ExpiredAt(at) {
			return retry.Applied, nil
		}

		streamID := KeyStreamID(contestID)
		if err := s.catchUpKeyStream(ctx, contestID, streamID); err != nil {
			return retry.Rejected, err
		}
		if key, ok := s.cache.Get(contestID); ok && key != nil && !key.ExpiredAt(at) {
			return retry.Applied, nil
		}

		version, err := s.store.StreamVersion(ctx, streamID)
		if err != nil {
			return retry.Rejected, err
		}
		key, err := s.generator.Generate(contestID, at)
		if err != nil {
			return retry.Rejected, err
		}
		payload, err := json.Marshal(contest.PublicKeyCreatedPayload{
			ContestID: contestID,
			KeyID:     key.KeyID,
			PublicKey: key.PublicKey,
			ValidFrom: key.ValidFrom,
			ValidTo:   key.ValidTo,
		})
		if err != nil {
			return retry.Rejected, err
		}
		ev := eventstore.Event{
			ID:            uuid.New(),
			AggregateType: eventstore.AggregateKey,
			Type:          contest.EventPublicKeyCreated,
			BusinessID:    contestID,
			Payload:       payload,
			CreatedAt:     s.clk.Now(),
		}
		if err := s.store.Append(ctx, streamID, version, []eventstore.Event{ev}); err != nil {
			return retry.Classify(err), err
		}

		s.cache.Add(contestID, key)
		s.logger.Info().
			Str("contest_id", contestID.String()).
			Str("key_id", key.KeyID).
			Time("valid_to", key.ValidTo).
			Msg("signing key created")
		return retry.Applied, nil
	})
}

// StopExpiredSignatures retires every cached key whose validity window has
// closed, emitting one PublicKeyDeleted per retired key. Entries remain with
// nil key material. Scheduler-driven; a tick without expired keys emits
// nothing.
func (s *Service) StopExpiredSignatures(ctx context.Context) (int, error) {
	now := s.clk.Now()
	stopped := 0
	for _, contestID := range s.cache.ContestIDs() {
		key, ok := s.cache.Get(contestID)
		if !ok || key == nil || !key.ExpiredAt(now) {
			continue
		}
		if err := s.deleteKey(ctx, contestID, key, false); err != nil {
			s.logger.Warn().Err(err).
				Str("contest_id", contestID.String()).
				Msg("failed to stop expired signature")
			continue
		}
		stopped++
	}
	return stopped, nil
}

// ReleaseContest handles contest deletion or archival. In live mode a
// currently cached key is retired with a PublicKeyDeleted event; without a
// cached key no event is emitted. In replay mode the entry is removed with
// no side effects, history is being reconstructed, not re-signed.
func (s *Service) ReleaseContest(ctx context.Context, contestID uuid.UUID, mode eventstore.ProcessingMode) error {
	if mode == eventstore.Replay {
		s.cache.Remove(contestID)
		return nil
	}
	key, ok := s.cache.Get(contestID)
	if ok && key != nil {
		if err := s.deleteKey(ctx, contestID, key, true); err != nil {
			return err
		}
	}
	s.cache.Remove(contestID)
	return nil
}

// HandleEvent keeps the cache consistent with processed contest events, both
// replayed and live.
func (s *Service) HandleEvent(ctx context.Context, ev eventstore.Event, mode eventstore.ProcessingMode) error {
	switch ev.Type {
	case contest.EventCreated:
		s.cache.EnsureEntry(ev.BusinessID)
	case contest.EventDeleted, contest.EventArchived:
		return s.ReleaseContest(ctx, ev.BusinessID, mode)
	case contest.EventPublicKeyCreated:
		if mode == eventstore.Live {
			// live creation already updated the cache in EnsureActiveSignature
			return nil
		}
		var payload contest.PublicKeyCreatedPayload
		if err := json.Unmarshal(ev.Payload, &payload); err != nil {
			return fmt.Errorf("failed to decode public key created payload: %w", err)
		}
		key, err := s.generator.Generate(payload.ContestID, payload.ValidFrom)
		if err != nil {
			return fmt.Errorf("failed to re-derive signing key: %w", err)
		}
		// the recorded window wins over the currently configured validity
		key.ValidFrom = payload.ValidFrom
		key.ValidTo = payload.ValidTo
		s.cache.Add(payload.ContestID, key)
	case contest.EventPublicKeyDeleted:
		if mode == eventstore.Live {
			return nil
		}
		s.cache.ClearKey(ev.BusinessID)
	}
	return nil
}

// CatchUp rebuilds the cache from the event log. Called once at startup
// before live processing begins.
func (s *Service) CatchUp(ctx context.Context) error {
	s.cache.Clear()
	events, err := s.store.ReadAll(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to read event log: %w", err)
	}
	for _, ev := range events {
		if err := s.HandleEvent(ctx, ev, eventstore.Replay); err != nil {
			return err
		}
	}
	s.logger.Info().Int("events", len(events)).Msg("signing cache rebuilt from event log")
	return nil
}

// catchUpKeyStream refreshes the cached key from the key stream, so a writer
// that lost a race observes the winner's key before deciding to create.
func (s *Service) catchUpKeyStream(ctx context.Context, contestID, streamID uuid.UUID) error {
	events, err := s.store.ReadStream(ctx, streamID)
	if err != nil {
		if err == eventstore.ErrStreamNotFound {
			return nil
		}
		return err
	}
	for _, ev := range events {
		if err := s.HandleEvent(ctx, ev, eventstore.Replay); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) deleteKey(ctx context.Context, contestID uuid.UUID, key *signing.KeyData, removeEntry bool) error {
	streamID := KeyStreamID(contestID)
	return s.writer.Execute(ctx, func(ctx context.Context) (retry.Result, error) {
		version, err := s.store.StreamVersion(ctx, streamID)
		if err != nil {
			return retry.Rejected, err
		}
		payload, err := json.Marshal(contest.PublicKeyDeletedPayload{ContestID: contestID, KeyID: key.KeyID})
		if err != nil {
			return retry.Rejected, err
		}
		ev := eventstore.Event{
			ID:            uuid.New(),
			AggregateType: eventstore.AggregateKey,
			Type:          contest.EventPublicKeyDeleted,
			BusinessID:    contestID,
			Payload:       payload,
			CreatedAt:     s.clk.Now(),
		}
		if err := s.store.Append(ctx, streamID, version, []eventstore.Event{ev}); err != nil {
			return retry.Classify(err), err
		}
		if !removeEntry {
			s.cache.ClearKey(contestID)
		}
		s.logger.Info().
			Str("contest_id", contestID.String()).
			Str("key_id", key.KeyID).
			Msg("signing key deleted")
		return retry.Applied, nil
	})
}
