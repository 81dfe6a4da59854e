// Package merge consolidates descendant-tenant contests into an
// ancestor-tenant contest sharing the same date. All dependent entities of
// the superseded contests are retargeted to the surviving contest before the
// superseded contests are deleted.
package merge

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	appsigning "github.com/contest-hub/contest-hub/internal/application/signing"
	"github.com/contest-hub/contest-hub/internal/domain/business"
	"github.com/contest-hub/contest-hub/internal/domain/contest"
	"github.com/contest-hub/contest-hub/internal/eventstore"
)

// Orchestrator migrates dependent entities between contests and retires the
// superseded contest aggregates. The sequence is not transactional across
// aggregates; every step is idempotent so a partially applied merge can be
// re-run to completion.
type Orchestrator struct {
	contestRepo  contest.Repository
	businessRepo business.Repository
	store        eventstore.Store
	signingSvc   *appsigning.Service
	logger       zerolog.Logger
}

func NewOrchestrator(
	contestRepo contest.Repository,
	businessRepo business.Repository,
	store eventstore.Store,
	signingSvc *appsigning.Service,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		contestRepo:  contestRepo,
		businessRepo: businessRepo,
		store:        store,
		signingSvc:   signingSvc,
		logger:       logger.With().Str("service", "merge").Logger(),
	}
}

// Merge moves every dependent entity of the superseded contests to the
// surviving contest, deletes the superseded contests and records the merge
// summary on the surviving stream. The surviving contest must already be
// persisted. Every emitted event carries the surviving contest's id as its
// business correlation key.
func (o *Orchestrator) Merge(ctx context.Context, surviving *contest.Contest, supersededIDs []uuid.UUID) error {
	moved := 0
	for _, oldID := range supersededIDs {
		n, err := o.moveDependents(ctx, oldID, surviving.ID)
		if err != nil {
			return fmt.Errorf("failed to move dependents of contest %s: %w", oldID, err)
		}
		moved += n

		if err := o.deleteSuperseded(ctx, oldID, surviving.ID); err != nil {
			return fmt.Errorf("failed to delete superseded contest %s: %w", oldID, err)
		}
	}

	if err := o.recordSummary(ctx, surviving, supersededIDs, moved); err != nil {
		return fmt.Errorf("failed to record merge summary: %w", err)
	}
	if err := o.contestRepo.Update(ctx, surviving); err != nil {
		return fmt.Errorf("failed to update surviving contest: %w", err)
	}

	o.logger.Info().
		Str("contest_id", surviving.ID.String()).
		Int("superseded", len(supersededIDs)).
		Int("moved_businesses", moved).
		Msg("contests merged")
	return nil
}

func (o *Orchestrator) moveDependents(ctx context.Context, oldID, newID uuid.UUID) (int, error) {
	moved := 0

	businesses, err := o.businessRepo.ListBusinessesByContest(ctx, oldID)
	if err != nil {
		return moved, err
	}
	for _, b := range businesses {
		if !b.MoveToContest(newID) {
			continue
		}
		if err := o.appendBusinessChanges(ctx, b.ID, businessAggregate(b.Kind), newID, &b.Version, b.DrainChanges()); err != nil {
			return moved, err
		}
		if err := o.businessRepo.UpdateBusiness(ctx, b); err != nil {
			return moved, err
		}
		moved++
	}

	unions, err := o.businessRepo.ListUnionsByContest(ctx, oldID)
	if err != nil {
		return moved, err
	}
	for _, u := range unions {
		if !u.MoveToContest(newID) {
			continue
		}
		if err := o.appendBusinessChanges(ctx, u.ID, eventstore.AggregateUnion, newID, &u.Version, u.DrainChanges()); err != nil {
			return moved, err
		}
		if err := o.businessRepo.UpdateUnion(ctx, u); err != nil {
			return moved, err
		}
		moved++
	}

	groups, err := o.businessRepo.ListElectionGroupsByContest(ctx, oldID)
	if err != nil {
		return moved, err
	}
	for _, g := range groups {
		if !g.MoveToContest(newID) {
			continue
		}
		if err := o.appendBusinessChanges(ctx, g.ID, eventstore.AggregateElectionGroup, newID, &g.Version, g.DrainChanges()); err != nil {
			return moved, err
		}
		if err := o.businessRepo.UpdateElectionGroup(ctx, g); err != nil {
			return moved, err
		}
		moved++
	}

	return moved, nil
}

// deleteSuperseded removes one superseded contest: its deletion event is
// correlated with the surviving contest, its signing key is retired, and the
// read model entry disappears. Re-running on an already deleted contest is a
// no-op.
func (o *Orchestrator) deleteSuperseded(ctx context.Context, oldID, survivingID uuid.UUID) error {
	old, err := o.contestRepo.GetByID(ctx, oldID)
	if err != nil {
		return err
	}
	if old == nil {
		return nil
	}

	payload, err := json.Marshal(contest.DeletedPayload{ID: oldID})
	if err != nil {
		return err
	}
	ev := eventstore.Event{
		ID:            uuid.NewSHA1(oldID, []byte("merged-into:"+survivingID.String())),
		AggregateType: eventstore.AggregateContest,
		Type:          contest.EventDeleted,
		BusinessID:    survivingID,
		Payload:       payload,
	}
	if _, err := o.appendMissing(ctx, oldID, []eventstore.Event{ev}); err != nil {
		return err
	}
	if err := o.signingSvc.ReleaseContest(ctx, oldID, eventstore.Live); err != nil {
		return err
	}
	return o.contestRepo.Delete(ctx, oldID)
}

// recordSummary appends the merge summary to the surviving stream. The
// summary event id is deterministic over the superseded set so an
// interrupted run that already recorded it is not recorded twice.
func (o *Orchestrator) recordSummary(ctx context.Context, surviving *contest.Contest, supersededIDs []uuid.UUID, moved int) error {
	surviving.RecordMerge(supersededIDs, moved)
	changes := surviving.DrainChanges()

	idKey := make([]string, 0, len(supersededIDs))
	for _, id := range supersededIDs {
		idKey = append(idKey, id.String())
	}
	events := make([]eventstore.Event, 0, len(changes))
	for _, ch := range changes {
		payload, err := json.Marshal(ch.Payload)
		if err != nil {
			return err
		}
		events = append(events, eventstore.Event{
			ID:            uuid.NewSHA1(surviving.ID, []byte(ch.Type+":"+strings.Join(idKey, ","))),
			AggregateType: eventstore.AggregateContest,
			Type:          ch.Type,
			BusinessID:    surviving.ID,
			Payload:       payload,
		})
	}
	version, err := o.appendMissing(ctx, surviving.ID, events)
	if err != nil {
		return err
	}
	surviving.Version = version
	return nil
}

func (o *Orchestrator) appendBusinessChanges(ctx context.Context, streamID uuid.UUID, aggType eventstore.AggregateType, survivingID uuid.UUID, version *int64, changes []business.Change) error {
	events := make([]eventstore.Event, 0, len(changes))
	for i, ch := range changes {
		payload, err := json.Marshal(ch.Payload)
		if err != nil {
			return err
		}
		events = append(events, eventstore.Event{
			// deterministic id so a resumed merge converges on the same event
			ID:            uuid.NewSHA1(streamID, []byte(fmt.Sprintf("%s:%s:%d", ch.Type, survivingID, i))),
			AggregateType: aggType,
			Type:          ch.Type,
			BusinessID:    survivingID,
			Payload:       payload,
		})
	}
	v, err := o.appendMissing(ctx, streamID, events)
	if err != nil {
		return err
	}
	*version = v
	return nil
}

// appendMissing appends the events not already present in the stream,
// matched by their deterministic ids, at the stream's own version. The read
// model version is never trusted here: an interrupted run may have appended
// an event without reaching the read-model update, and the re-run must
// converge instead of failing on a version mismatch. Returns the stream
// version after the append.
func (o *Orchestrator) appendMissing(ctx context.Context, streamID uuid.UUID, events []eventstore.Event) (int64, error) {
	stream, err := o.store.ReadStream(ctx, streamID)
	if err != nil && err != eventstore.ErrStreamNotFound {
		return 0, err
	}
	existing := make(map[uuid.UUID]struct{}, len(stream))
	for _, ev := range stream {
		existing[ev.ID] = struct{}{}
	}

	pending := make([]eventstore.Event, 0, len(events))
	for _, ev := range events {
		if _, ok := existing[ev.ID]; !ok {
			pending = append(pending, ev)
		}
	}
	version := int64(len(stream))
	if len(pending) == 0 {
		return version, nil
	}
	if err := o.store.Append(ctx, streamID, version, pending); err != nil {
		return 0, err
	}
	return version + int64(len(pending)), nil
}

func businessAggregate(k business.Kind) eventstore.AggregateType {
	if k == business.KindElection {
		return eventstore.AggregateElection
	}
	return eventstore.AggregateVote
}
