// Package availability classifies a proposed contest date against existing
// contests and preconfigured dates before a contest is created or updated.
package availability

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/contest-hub/contest-hub/internal/domain/contest"
	"github.com/contest-hub/contest-hub/internal/domain/hierarchy"
)

// Classification is the availability verdict for a proposed contest date.
type Classification string

const (
	// AlreadyExists blocks creation: same date, same hierarchy node.
	AlreadyExists Classification = "ALREADY_EXISTS"
	// ExistsOnChildTenant triggers the merge protocol: same date on a
	// descendant node owned by another tenant.
	ExistsOnChildTenant Classification = "EXISTS_ON_CHILD_TENANT"
	// SameAsPreConfiguredDate is informational; creation proceeds.
	SameAsPreConfiguredDate Classification = "SAME_AS_PRE_CONFIGURED_DATE"
	// CloseToOtherContestDate warns about a nearby related contest.
	CloseToOtherContestDate Classification = "CLOSE_TO_OTHER_CONTEST_DATE"
	// Available means no conflict of any kind.
	Available Classification = "AVAILABLE"
)

// Result carries the classification plus, for ExistsOnChildTenant, the ids
// of the conflicting descendant contests the merge must supersede.
type Result struct {
	Classification        Classification
	ConflictingContestIDs []uuid.UUID
}

// Resolver classifies candidate contest dates.
type Resolver struct {
	contestRepo       contest.Repository
	preconfiguredRepo contest.PreconfiguredDateRepository
	hierarchyRepo     hierarchy.Repository
	proximityWindow   time.Duration
	logger            zerolog.Logger
}

func NewResolver(
	contestRepo contest.Repository,
	preconfiguredRepo contest.PreconfiguredDateRepository,
	hierarchyRepo hierarchy.Repository,
	proximityWindow time.Duration,
	logger zerolog.Logger,
) *Resolver {
	if proximityWindow <= 0 {
		proximityWindow = 24 * time.Hour
	}
	return &Resolver{
		contestRepo:       contestRepo,
		preconfiguredRepo: preconfiguredRepo,
		hierarchyRepo:     hierarchyRepo,
		proximityWindow:   proximityWindow,
		logger:            logger.With().Str("service", "availability").Logger(),
	}
}

// Resolve classifies the date for the hierarchy node. Exact and hierarchy
// conflicts take precedence over the informational classifications.
func (r *Resolver) Resolve(ctx context.Context, date time.Time, domainOfInfluenceID uuid.UUID) (Result, error) {
	return r.resolve(ctx, date, domainOfInfluenceID, uuid.Nil)
}

// ResolveForContest classifies the date of an existing contest, ignoring the
// contest itself among the same-day candidates. Updates use this to surface
// descendant conflicts that appeared after the contest was created.
func (r *Resolver) ResolveForContest(ctx context.Context, date time.Time, domainOfInfluenceID, contestID uuid.UUID) (Result, error) {
	return r.resolve(ctx, date, domainOfInfluenceID, contestID)
}

func (r *Resolver) resolve(ctx context.Context, date time.Time, domainOfInfluenceID, exclude uuid.UUID) (Result, error) {
	date = date.UTC()

	sameDay, err := r.contestRepo.ListByDate(ctx, date)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list contests by date: %w", err)
	}

	var childIDs []uuid.UUID
	for _, c := range sameDay {
		if c.ID == exclude {
			continue
		}
		if c.DomainOfInfluenceID == domainOfInfluenceID {
			return Result{Classification: AlreadyExists}, nil
		}
		descendant, err := r.hierarchyRepo.IsDescendantOf(ctx, c.DomainOfInfluenceID, domainOfInfluenceID)
		if err != nil {
			return Result{}, fmt.Errorf("failed to resolve hierarchy: %w", err)
		}
		if descendant {
			childIDs = append(childIDs, c.ID)
		}
	}
	if len(childIDs) > 0 {
		return Result{Classification: ExistsOnChildTenant, ConflictingContestIDs: childIDs}, nil
	}

	preconfigured, err := r.preconfiguredRepo.ListDates(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("failed to list preconfigured dates: %w", err)
	}
	for _, d := range preconfigured {
		if d.UTC().Equal(date) {
			return Result{Classification: SameAsPreConfiguredDate}, nil
		}
	}

	near, err := r.hasCloseRelatedContest(ctx, date, domainOfInfluenceID)
	if err != nil {
		return Result{}, err
	}
	if near {
		return Result{Classification: CloseToOtherContestDate}, nil
	}

	return Result{Classification: Available}, nil
}

func (r *Resolver) hasCloseRelatedContest(ctx context.Context, date time.Time, domainOfInfluenceID uuid.UUID) (bool, error) {
	nearby, err := r.contestRepo.ListByDateRange(ctx, date.Add(-r.proximityWindow), date.Add(r.proximityWindow))
	if err != nil {
		return false, fmt.Errorf("failed to list nearby contests: %w", err)
	}
	for _, c := range nearby {
		if c.Date.Equal(date) {
			continue
		}
		related, err := r.isRelated(ctx, c.DomainOfInfluenceID, domainOfInfluenceID)
		if err != nil {
			return false, err
		}
		if related {
			return true, nil
		}
	}
	return false, nil
}

// isRelated reports whether two hierarchy nodes are the same or lie on one
// ancestor/descendant path.
func (r *Resolver) isRelated(ctx context.Context, a, b uuid.UUID) (bool, error) {
	if a == b {
		return true, nil
	}
	descendant, err := r.hierarchyRepo.IsDescendantOf(ctx, a, b)
	if err != nil {
		return false, fmt.Errorf("failed to resolve hierarchy: %w", err)
	}
	if descendant {
		return true, nil
	}
	ancestor, err := r.hierarchyRepo.IsDescendantOf(ctx, b, a)
	if err != nil {
		return false, fmt.Errorf("failed to resolve hierarchy: %w", err)
	}
	return ancestor, nil
}
