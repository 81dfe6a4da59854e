// Package scheduler drives the time-based lifecycle transitions: ending
// testing phases, locking past contests, archiving due contests, auto
// approving e-voting and retiring expired signing keys. Every sweep is
// idempotent; a missed or duplicated tick converges on the next run.
package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/contest-hub/contest-hub/internal/clock"
	"github.com/contest-hub/contest-hub/internal/domain/contest"
)

// ContestOperations is the writer surface the scheduler drives.
type ContestOperations interface {
	List(ctx context.Context, states ...contest.State) ([]*contest.Contest, error)
	EndTestingPhase(ctx context.Context, id uuid.UUID) (bool, error)
	PastLock(ctx context.Context, id uuid.UUID) (bool, error)
	ArchiveDue(ctx context.Context, id uuid.UUID) (bool, error)
	AutoApproveEVoting(ctx context.Context, id uuid.UUID) (bool, error)
}

// SignatureOperations retires signing keys past their validity.
type SignatureOperations interface {
	StopExpiredSignatures(ctx context.Context) (int, error)
}

// LeaderGate tells the scheduler whether this instance should run sweeps.
// Transitions are idempotent, so a stale gate causes duplicate work at
// worst, never divergent state.
type LeaderGate interface {
	IsLeader() bool
}

// AlwaysLeader gates nothing; used for single-instance deployments.
type AlwaysLeader struct{}

func (AlwaysLeader) IsLeader() bool {
	return true
}

// Scheduler runs the lifecycle sweeps on an interval.
type Scheduler struct {
	contests   ContestOperations
	signatures SignatureOperations
	policy     *ApprovalPolicy
	gate       LeaderGate
	interval   time.Duration
	clk        clock.Clock
	logger     zerolog.Logger
}

func New(
	contests ContestOperations,
	signatures SignatureOperations,
	policy *ApprovalPolicy,
	gate LeaderGate,
	interval time.Duration,
	clk clock.Clock,
	logger zerolog.Logger,
) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if gate == nil {
		gate = AlwaysLeader{}
	}
	return &Scheduler{
		contests:   contests,
		signatures: signatures,
		policy:     policy,
		gate:       gate,
		interval:   interval,
		clk:        clk,
		logger:     logger.With().Str("service", "scheduler").Logger(),
	}
}

// Run ticks until the context is cancelled.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !s.gate.IsLeader() {
				continue
			}
			s.Tick(ctx)
		}
	}
}

// Tick runs every sweep once. A failing contest is logged and skipped so one
// bad aggregate cannot stall the others.
func (s *Scheduler) Tick(ctx context.Context) {
	ended := s.sweep(ctx, "end_testing_phase", []contest.State{contest.StateTestingPhase}, s.contests.EndTestingPhase)
	locked := s.sweep(ctx, "past_lock", []contest.State{contest.StateActive, contest.StatePastUnlocked}, s.contests.PastLock)
	archived := s.sweep(ctx, "archive", []contest.State{contest.StatePastLocked, contest.StatePastUnlocked}, s.contests.ArchiveDue)
	approved := s.sweepApprovals(ctx)

	stopped, err := s.signatures.StopExpiredSignatures(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("failed to stop expired signatures")
	}

	if ended+locked+archived+approved+stopped > 0 {
		s.logger.Info().
			Int("testing_phases_ended", ended).
			Int("past_locked", locked).
			Int("archived", archived).
			Int("e_voting_approved", approved).
			Int("signatures_stopped", stopped).
			Msg("scheduler tick applied transitions")
	}
}

func (s *Scheduler) sweep(ctx context.Context, name string, states []contest.State, apply func(context.Context, uuid.UUID) (bool, error)) int {
	contests, err := s.contests.List(ctx, states...)
	if err != nil {
		s.logger.Warn().Err(err).Str("sweep", name).Msg("failed to list contests")
		return 0
	}
	applied := 0
	for _, c := range contests {
		ok, err := apply(ctx, c.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("sweep", name).Str("contest_id", c.ID.String()).Msg("sweep failed for contest")
			continue
		}
		if ok {
			applied++
		}
	}
	return applied
}

// sweepApprovals consults the approval policy before applying; the due-date
// guard itself lives in the aggregate.
func (s *Scheduler) sweepApprovals(ctx context.Context) int {
	contests, err := s.contests.List(ctx, contest.StateTestingPhase, contest.StateActive, contest.StatePastUnlocked)
	if err != nil {
		s.logger.Warn().Err(err).Str("sweep", "e_voting_approval").Msg("failed to list contests")
		return 0
	}
	now := s.clk.Now()
	applied := 0
	for _, c := range contests {
		if !c.EVoting || c.EVotingApproved || c.EVotingApprovalDueDate == nil {
			continue
		}
		allowed, err := s.policy.Allow(c, now)
		if err != nil {
			s.logger.Warn().Err(err).Str("contest_id", c.ID.String()).Msg("approval policy evaluation failed")
			continue
		}
		if !allowed {
			continue
		}
		ok, err := s.contests.AutoApproveEVoting(ctx, c.ID)
		if err != nil {
			s.logger.Warn().Err(err).Str("contest_id", c.ID.String()).Msg("e-voting approval failed")
			continue
		}
		if ok {
			applied++
		}
	}
	return applied
}
