// Package contest implements the contest writer operations: create, update,
// delete, archive, past-unlock, end-testing-phase, imports and e-voting
// approval. Creation and update consult the availability resolver and hand
// child-tenant conflicts to the merge orchestrator.
package contest

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/contest-hub/contest-hub/internal/application/availability"
	"github.com/contest-hub/contest-hub/internal/application/merge"
	appsigning "github.com/contest-hub/contest-hub/internal/application/signing"
	"github.com/contest-hub/contest-hub/internal/clock"
	"github.com/contest-hub/contest-hub/internal/domain/business"
	domaincontest "github.com/contest-hub/contest-hub/internal/domain/contest"
	"github.com/contest-hub/contest-hub/internal/eventstore"
)

// Service handles contest writer operations.
type Service struct {
	guard        *Guard
	contestRepo  domaincontest.Repository
	businessRepo business.Repository
	resolver     *availability.Resolver
	merger       *merge.Orchestrator
	signingSvc   *appsigning.Service
	store        eventstore.Store
	clk          clock.Clock
	minLead      time.Duration
	logger       zerolog.Logger
}

func NewService(
	guard *Guard,
	contestRepo domaincontest.Repository,
	businessRepo business.Repository,
	resolver *availability.Resolver,
	merger *merge.Orchestrator,
	signingSvc *appsigning.Service,
	store eventstore.Store,
	clk clock.Clock,
	minLead time.Duration,
	logger zerolog.Logger,
) *Service {
	return &Service{
		guard:        guard,
		contestRepo:  contestRepo,
		businessRepo: businessRepo,
		resolver:     resolver,
		merger:       merger,
		signingSvc:   signingSvc,
		store:        store,
		clk:          clk,
		minLead:      minLead,
		logger:       logger.With().Str("service", "contest").Logger(),
	}
}

// CheckAvailability classifies a candidate date without committing anything.
func (s *Service) CheckAvailability(ctx context.Context, date time.Time, domainOfInfluenceID uuid.UUID) (availability.Result, error) {
	if err := s.guard.EnsurePermission(ctx, domainOfInfluenceID); err != nil {
		return availability.Result{}, err
	}
	return s.resolver.Resolve(ctx, date, domainOfInfluenceID)
}

// Create creates a contest. An exact conflict is rejected; a conflict with
// descendant contests on the same date triggers the merge protocol: the new
// contest survives and absorbs the descendants' businesses.
func (s *Service) Create(ctx context.Context, input domaincontest.CreateInput) (*domaincontest.Contest, error) {
	if err := s.guard.EnsurePermission(ctx, input.DomainOfInfluenceID); err != nil {
		return nil, err
	}

	result, err := s.resolver.Resolve(ctx, input.Date, input.DomainOfInfluenceID)
	if err != nil {
		return nil, err
	}
	if result.Classification == availability.AlreadyExists {
		return nil, ErrDateConflict
	}

	c, err := domaincontest.New(input, s.minLead)
	if err != nil {
		return nil, err
	}

	// the surviving contest must exist before any dependent entity can be
	// retargeted to it
	if err := s.appendChanges(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to persist contest: %w", err)
	}
	if err := s.contestRepo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to create contest: %w", err)
	}

	if result.Classification == availability.ExistsOnChildTenant {
		if err := s.merger.Merge(ctx, c, result.ConflictingContestIDs); err != nil {
			return nil, err
		}
	}

	s.logger.Info().
		Str("contest_id", c.ID.String()).
		Time("date", c.Date).
		Str("classification", string(result.Classification)).
		Msg("contest created")
	return c, nil
}

// Update updates a contest within its editability constraints. The contest's
// date is re-resolved against its node: descendant contests that appeared on
// the same date since creation are merged into this contest, mirroring
// creation. This is also how an interrupted merge gets completed.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input domaincontest.UpdateInput) (*domaincontest.Contest, error) {
	c, err := s.guard.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.guard.EnsurePermission(ctx, c.DomainOfInfluenceID); err != nil {
		return nil, err
	}

	result, err := s.resolver.ResolveForContest(ctx, c.Date, c.DomainOfInfluenceID, c.ID)
	if err != nil {
		return nil, err
	}
	if result.Classification == availability.AlreadyExists {
		return nil, ErrDateConflict
	}

	if err := c.Update(input, s.minLead); err != nil {
		return nil, err
	}
	if err := s.appendChanges(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to persist contest update: %w", err)
	}
	if err := s.contestRepo.Update(ctx, c); err != nil {
		return nil, fmt.Errorf("failed to update contest: %w", err)
	}

	if result.Classification == availability.ExistsOnChildTenant {
		if err := s.merger.Merge(ctx, c, result.ConflictingContestIDs); err != nil {
			return nil, err
		}
	}

	s.logger.Info().Str("contest_id", id.String()).Msg("contest updated")
	return c, nil
}

// Delete removes a contest still in testing phase and not referenced as a
// previous contest. Its signing key, when present, is retired.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	c, err := s.guard.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.EnsurePermission(ctx, c.DomainOfInfluenceID); err != nil {
		return err
	}
	referenced, err := s.contestRepo.IsPreviousContest(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to check previous contest references: %w", err)
	}
	if referenced {
		return ErrReferencedAsPreviousContest
	}
	if err := c.Delete(); err != nil {
		return err
	}
	if err := s.appendChanges(ctx, c); err != nil {
		return fmt.Errorf("failed to persist contest deletion: %w", err)
	}
	if err := s.signingSvc.ReleaseContest(ctx, id, eventstore.Live); err != nil {
		return err
	}
	if err := s.contestRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete contest: %w", err)
	}

	s.logger.Info().Str("contest_id", id.String()).Msg("contest deleted")
	return nil
}

// Archive archives immediately or schedules archiving for a future
// archivePer. An archived contest's signing key is retired.
func (s *Service) Archive(ctx context.Context, id uuid.UUID, archivePer *time.Time) error {
	c, err := s.guard.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.EnsurePermission(ctx, c.DomainOfInfluenceID); err != nil {
		return err
	}
	if err := c.Archive(archivePer, s.clk.Now()); err != nil {
		return err
	}
	if err := s.appendChanges(ctx, c); err != nil {
		return fmt.Errorf("failed to persist archive: %w", err)
	}
	if err := s.contestRepo.Update(ctx, c); err != nil {
		return fmt.Errorf("failed to update contest: %w", err)
	}
	if c.State == domaincontest.StateArchived {
		if err := s.signingSvc.ReleaseContest(ctx, id, eventstore.Live); err != nil {
			return err
		}
	}

	s.logger.Info().Str("contest_id", id.String()).Str("state", string(c.State)).Msg("contest archive requested")
	return nil
}

// PastUnlock reopens a locked past contest until the next past-lock sweep.
func (s *Service) PastUnlock(ctx context.Context, id uuid.UUID) error {
	c, err := s.guard.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.EnsurePermission(ctx, c.DomainOfInfluenceID); err != nil {
		return err
	}
	if err := c.PastUnlock(s.clk.Now()); err != nil {
		return err
	}
	if err := s.appendChanges(ctx, c); err != nil {
		return fmt.Errorf("failed to persist past unlock: %w", err)
	}
	if err := s.contestRepo.Update(ctx, c); err != nil {
		return fmt.Errorf("failed to update contest: %w", err)
	}

	s.logger.Info().Str("contest_id", id.String()).Msg("contest past unlocked")
	return nil
}

// EndTestingPhase applies the testing-phase transition when due. Returns
// whether it was applied; calling early is a no-op, not an error.
func (s *Service) EndTestingPhase(ctx context.Context, id uuid.UUID) (bool, error) {
	c, err := s.guard.Load(ctx, id)
	if err != nil {
		return false, err
	}
	applied, err := c.TryEndTestingPhase(s.clk.Now())
	if err != nil || !applied {
		return false, err
	}
	if err := s.appendChanges(ctx, c); err != nil {
		return false, fmt.Errorf("failed to persist testing phase end: %w", err)
	}
	if err := s.contestRepo.Update(ctx, c); err != nil {
		return false, fmt.Errorf("failed to update contest: %w", err)
	}
	return true, nil
}

// PastLock locks the contest once its date has been reached. Try semantics
// like EndTestingPhase.
func (s *Service) PastLock(ctx context.Context, id uuid.UUID) (bool, error) {
	c, err := s.guard.Load(ctx, id)
	if err != nil {
		return false, err
	}
	applied, err := c.TrySetPastLocked(s.clk.Now())
	if err != nil || !applied {
		return false, err
	}
	if err := s.appendChanges(ctx, c); err != nil {
		return false, fmt.Errorf("failed to persist past lock: %w", err)
	}
	if err := s.contestRepo.Update(ctx, c); err != nil {
		return false, fmt.Errorf("failed to update contest: %w", err)
	}
	return true, nil
}

// ArchiveDue archives the contest once its scheduled archive date has been
// reached. The signing key of an archived contest is retired.
func (s *Service) ArchiveDue(ctx context.Context, id uuid.UUID) (bool, error) {
	c, err := s.guard.Load(ctx, id)
	if err != nil {
		return false, err
	}
	applied, err := c.TryArchive(s.clk.Now())
	if err != nil || !applied {
		return false, err
	}
	if err := s.appendChanges(ctx, c); err != nil {
		return false, fmt.Errorf("failed to persist archive: %w", err)
	}
	if err := s.contestRepo.Update(ctx, c); err != nil {
		return false, fmt.Errorf("failed to update contest: %w", err)
	}
	if err := s.signingSvc.ReleaseContest(ctx, id, eventstore.Live); err != nil {
		return false, err
	}
	return true, nil
}

// AutoApproveEVoting sets the approval flag once the due date has passed and
// cascades it to the pending businesses. Try semantics.
func (s *Service) AutoApproveEVoting(ctx context.Context, id uuid.UUID) (bool, error) {
	c, err := s.guard.Load(ctx, id)
	if err != nil {
		return false, err
	}
	applied, err := c.TryApproveEVoting(s.clk.Now())
	if err != nil || !applied {
		return false, err
	}
	if err := s.appendChanges(ctx, c); err != nil {
		return false, fmt.Errorf("failed to persist e-voting approval: %w", err)
	}
	if err := s.contestRepo.Update(ctx, c); err != nil {
		return false, fmt.Errorf("failed to update contest: %w", err)
	}
	if err := s.CascadeEVotingApproval(ctx, c.ID); err != nil {
		return false, err
	}
	return true, nil
}

// StartContestImport records a contest import beginning.
func (s *Service) StartContestImport(ctx context.Context, id uuid.UUID) error {
	return s.startImport(ctx, id, (*domaincontest.Contest).StartContestImport)
}

// StartPoliticalBusinessesImport records a business import beginning.
func (s *Service) StartPoliticalBusinessesImport(ctx context.Context, id uuid.UUID) error {
	return s.startImport(ctx, id, (*domaincontest.Contest).StartPoliticalBusinessesImport)
}

func (s *Service) startImport(ctx context.Context, id uuid.UUID, start func(*domaincontest.Contest, time.Time) error) error {
	c, err := s.guard.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.EnsurePermission(ctx, c.DomainOfInfluenceID); err != nil {
		return err
	}
	if err := start(c, s.clk.Now()); err != nil {
		return err
	}
	if err := s.appendChanges(ctx, c); err != nil {
		return fmt.Errorf("failed to persist import start: %w", err)
	}
	return s.contestRepo.Update(ctx, c)
}

// ApproveEVoting is the explicit sign-off; approval cascades to every
// e-voting-enabled business of the contest still awaiting it.
func (s *Service) ApproveEVoting(ctx context.Context, id uuid.UUID) error {
	c, err := s.guard.Load(ctx, id)
	if err != nil {
		return err
	}
	if err := s.guard.EnsurePermission(ctx, c.DomainOfInfluenceID); err != nil {
		return err
	}
	if err := c.ApproveEVoting(s.clk.Now()); err != nil {
		return err
	}
	if err := s.appendChanges(ctx, c); err != nil {
		return fmt.Errorf("failed to persist e-voting approval: %w", err)
	}
	if err := s.contestRepo.Update(ctx, c); err != nil {
		return fmt.Errorf("failed to update contest: %w", err)
	}
	return s.CascadeEVotingApproval(ctx, c.ID)
}

// CascadeEVotingApproval approves every pending e-voting business of the
// contest. Safe to re-run; already approved businesses are skipped.
func (s *Service) CascadeEVotingApproval(ctx context.Context, contestID uuid.UUID) error {
	pending, err := s.businessRepo.ListEVotingPending(ctx, contestID)
	if err != nil {
		return fmt.Errorf("failed to list pending e-voting businesses: %w", err)
	}
	now := s.clk.Now()
	for _, b := range pending {
		if !b.ApproveEVoting(now) {
			continue
		}
		if err := s.appendBusinessChanges(ctx, b); err != nil {
			return err
		}
		if err := s.businessRepo.UpdateBusiness(ctx, b); err != nil {
			return fmt.Errorf("failed to update business: %w", err)
		}
	}
	return nil
}

// Get returns a contest by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*domaincontest.Contest, error) {
	return s.guard.Load(ctx, id)
}

// List returns contests filtered by state.
func (s *Service) List(ctx context.Context, states ...domaincontest.State) ([]*domaincontest.Contest, error) {
	if len(states) == 0 {
		states = []domaincontest.State{
			domaincontest.StateTestingPhase,
			domaincontest.StateActive,
			domaincontest.StatePastUnlocked,
			domaincontest.StatePastLocked,
			domaincontest.StateArchived,
		}
	}
	return s.contestRepo.ListByStates(ctx, states...)
}

func (s *Service) appendChanges(ctx context.Context, c *domaincontest.Contest) error {
	changes := c.DrainChanges()
	if len(changes) == 0 {
		return nil
	}
	events := make([]eventstore.Event, 0, len(changes))
	for _, ch := range changes {
		payload, err := json.Marshal(ch.Payload)
		if err != nil {
			return err
		}
		events = append(events, eventstore.Event{
			AggregateType: eventstore.AggregateContest,
			Type:          ch.Type,
			BusinessID:    c.ID,
			Payload:       payload,
		})
	}
	if err := s.store.Append(ctx, c.ID, c.Version, events); err != nil {
		return err
	}
	c.Version += int64(len(events))
	return nil
}

func (s *Service) appendBusinessChanges(ctx context.Context, b *business.PoliticalBusiness) error {
	changes := b.DrainChanges()
	if len(changes) == 0 {
		return nil
	}
	aggType := eventstore.AggregateVote
	if b.Kind == business.KindElection {
		aggType = eventstore.AggregateElection
	}
	events := make([]eventstore.Event, 0, len(changes))
	for _, ch := range changes {
		payload, err := json.Marshal(ch.Payload)
		if err != nil {
			return err
		}
		events = append(events, eventstore.Event{
			AggregateType: aggType,
			Type:          ch.Type,
			BusinessID:    b.ContestID,
			Payload:       payload,
		})
	}
	if err := s.store.Append(ctx, b.ID, b.Version, events); err != nil {
		return err
	}
	b.Version += int64(len(events))
	return nil
}
