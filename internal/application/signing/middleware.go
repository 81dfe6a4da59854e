package signing

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/contest-hub/contest-hub/internal/clock"
	domainsigning "github.com/contest-hub/contest-hub/internal/domain/signing"
	"github.com/contest-hub/contest-hub/internal/eventstore"
)

// SignedStore decorates an event store so every outgoing domain event is
// signed with the active key of the contest named by its business
// correlation id. Key-stream events pass through unsigned; they bootstrap
// the keys themselves.
type SignedStore struct {
	inner  eventstore.Store
	svc    *Service
	clk    clock.Clock
	logger zerolog.Logger
}

func NewSignedStore(inner eventstore.Store, svc *Service, clk clock.Clock, logger zerolog.Logger) *SignedStore {
	return &SignedStore{
		inner:  inner,
		svc:    svc,
		clk:    clk,
		logger: logger.With().Str("service", "event-signer").Logger(),
	}
}

func (s *SignedStore) Append(ctx context.Context, streamID uuid.UUID, expectedVersion int64, events []eventstore.Event) error {
	now := s.clk.Now()
	for i := range events {
		// fix the envelope before signing so the signature covers the stored
		// identity and version
		if events[i].ID == uuid.Nil {
			events[i].ID = uuid.New()
		}
		if events[i].CreatedAt.IsZero() {
			events[i].CreatedAt = now
		}
		events[i].StreamID = streamID
		events[i].Version = expectedVersion + int64(i) + 1
		if events[i].AggregateType == eventstore.AggregateKey || events[i].BusinessID == uuid.Nil {
			continue
		}
		if err := s.svc.EnsureActiveSignature(ctx, events[i].BusinessID, now); err != nil {
			return err
		}
		key, _ := s.svc.Cache().Get(events[i].BusinessID)
		if key == nil {
			s.logger.Warn().
				Str("business_id", events[i].BusinessID.String()).
				Str("event_type", events[i].Type).
				Msg("no active key, event stays unsigned")
			continue
		}
		sig, err := domainsigning.SignEvent(&events[i], key)
		if err != nil {
			return err
		}
		events[i].Signature = sig
		events[i].KeyID = key.KeyID
	}
	return s.inner.Append(ctx, streamID, expectedVersion, events)
}

func (s *SignedStore) ReadStream(ctx context.Context, streamID uuid.UUID) ([]eventstore.Event, error) {
	return s.inner.ReadStream(ctx, streamID)
}

func (s *SignedStore) ReadAll(ctx context.Context, afterSequence int64) ([]eventstore.Event, error) {
	return s.inner.ReadAll(ctx, afterSequence)
}

func (s *SignedStore) StreamVersion(ctx context.Context, streamID uuid.UUID) (int64, error) {
	return s.inner.StreamVersion(ctx, streamID)
}
