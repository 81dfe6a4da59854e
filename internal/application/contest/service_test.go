package contest

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/contest-hub/contest-hub/internal/application/availability"
	"github.com/contest-hub/contest-hub/internal/application/merge"
	"github.com/contest-hub/contest-hub/internal/application/retry"
	appsigning "github.com/contest-hub/contest-hub/internal/application/signing"
	"github.com/contest-hub/contest-hub/internal/clock"
	"github.com/contest-hub/contest-hub/internal/domain/business"
	businessmocks "github.com/contest-hub/contest-hub/internal/domain/business/mocks"
	domaincontest "github.com/contest-hub/contest-hub/internal/domain/contest"
	contestmocks "github.com/contest-hub/contest-hub/internal/domain/contest/mocks"
	hierarchymocks "github.com/contest-hub/contest-hub/internal/domain/hierarchy/mocks"
	domainsigning "github.com/contest-hub/contest-hub/internal/domain/signing"
	"github.com/contest-hub/contest-hub/internal/eventstore"
)

var (
	contestDate = time.Date(2021, 3, 7, 0, 0, 0, 0, time.UTC)
	testingEnd  = contestDate.AddDate(0, 0, -7)
	fixedNow    = time.Date(2021, 1, 15, 10, 0, 0, 0, time.UTC)
)

type fixture struct {
	contestRepo  *contestmocks.MockRepository
	dates        *contestmocks.MockPreconfiguredDateRepository
	hierarchy    *hierarchymocks.MockRepository
	businessRepo *businessmocks.MockRepository
	store        *eventstore.MemoryStore
	svc          *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		contestRepo:  new(contestmocks.MockRepository),
		dates:        new(contestmocks.MockPreconfiguredDateRepository),
		hierarchy:    new(hierarchymocks.MockRepository),
		businessRepo: new(businessmocks.MockRepository),
		store:        eventstore.NewMemoryStore(),
	}

	logger := zerolog.Nop()
	clk := clock.Fixed{Instant: fixedNow}
	generator, err := domainsigning.NewGenerator([]byte("test-master-key"), 24*time.Hour)
	require.NoError(t, err)
	writer := retry.NewWriter(retry.Config{MaxAttempts: 3, MinDelay: time.Millisecond, MaxDelay: time.Millisecond}, logger)
	signingSvc := appsigning.NewService(appsigning.NewCache(), generator, f.store, writer, clk, logger)
	resolver := availability.NewResolver(f.contestRepo, f.dates, f.hierarchy, 24*time.Hour, logger)
	merger := merge.NewOrchestrator(f.contestRepo, f.businessRepo, f.store, signingSvc, logger)
	guard := NewGuard(AllowAll{}, f.contestRepo)

	f.svc = NewService(guard, f.contestRepo, f.businessRepo, resolver, merger, signingSvc, f.store, clk, 24*time.Hour, logger)
	return f
}

func (f *fixture) expectAvailable() {
	f.contestRepo.On("ListByDate", mock.Anything, contestDate).Return([]*domaincontest.Contest{}, nil)
	f.dates.On("ListDates", mock.Anything).Return([]time.Time{}, nil)
	f.contestRepo.On("ListByDateRange", mock.Anything, mock.Anything, mock.Anything).Return([]*domaincontest.Contest{}, nil)
}

func createInput(doi uuid.UUID) domaincontest.CreateInput {
	return domaincontest.CreateInput{
		Date:                contestDate,
		EndOfTestingPhase:   testingEnd,
		DomainOfInfluenceID: doi,
	}
}

func streamEventTypes(t *testing.T, store eventstore.Store, streamID uuid.UUID) []string {
	t.Helper()
	events, err := store.ReadStream(context.Background(), streamID)
	require.NoError(t, err)
	types := make([]string, 0, len(events))
	for _, ev := range events {
		types = append(types, ev.Type)
	}
	return types
}

func TestCreateAvailableDate(t *testing.T) {
	f := newFixture(t)
	f.expectAvailable()
	f.contestRepo.On("Create", mock.Anything, mock.AnythingOfType("*contest.Contest")).Return(nil)

	c, err := f.svc.Create(context.Background(), createInput(uuid.New()))
	require.NoError(t, err)

	assert.Equal(t, domaincontest.StateTestingPhase, c.State)
	assert.Equal(t, int64(1), c.Version)
	assert.Equal(t, []string{domaincontest.EventCreated}, streamEventTypes(t, f.store, c.ID))
	f.contestRepo.AssertExpectations(t)
}

func TestCreateExactConflictRejected(t *testing.T) {
	f := newFixture(t)
	doi := uuid.New()
	f.contestRepo.On("ListByDate", mock.Anything, contestDate).
		Return([]*domaincontest.Contest{{ID: uuid.New(), Date: contestDate, DomainOfInfluenceID: doi}}, nil)

	_, err := f.svc.Create(context.Background(), createInput(doi))
	assert.ErrorIs(t, err, ErrDateConflict)
	f.contestRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCreateMergesChildTenantContests(t *testing.T) {
	f := newFixture(t)
	canton := uuid.New()
	gossau := uuid.New()
	oldID := uuid.New()
	old := &domaincontest.Contest{
		ID:                  oldID,
		Date:                contestDate,
		DomainOfInfluenceID: gossau,
		State:               domaincontest.StateTestingPhase,
	}
	vote := &business.PoliticalBusiness{
		ID:                  uuid.New(),
		ContestID:           oldID,
		DomainOfInfluenceID: gossau,
		Kind:                business.KindVote,
	}

	f.contestRepo.On("ListByDate", mock.Anything, contestDate).Return([]*domaincontest.Contest{old}, nil)
	f.hierarchy.On("IsDescendantOf", mock.Anything, gossau, canton).Return(true, nil)
	f.contestRepo.On("Create", mock.Anything, mock.AnythingOfType("*contest.Contest")).Return(nil)
	f.businessRepo.On("ListBusinessesByContest", mock.Anything, oldID).Return([]*business.PoliticalBusiness{vote}, nil)
	f.businessRepo.On("ListUnionsByContest", mock.Anything, oldID).Return([]*business.Union{}, nil)
	f.businessRepo.On("ListElectionGroupsByContest", mock.Anything, oldID).Return([]*business.ElectionGroup{}, nil)
	f.businessRepo.On("UpdateBusiness", mock.Anything, vote).Return(nil)
	f.contestRepo.On("GetByID", mock.Anything, oldID).Return(old, nil)
	f.contestRepo.On("Delete", mock.Anything, oldID).Return(nil)
	f.contestRepo.On("Update", mock.Anything, mock.AnythingOfType("*contest.Contest")).Return(nil)

	surviving, err := f.svc.Create(context.Background(), createInput(canton))
	require.NoError(t, err)

	// the vote now belongs to the surviving contest, the superseded contest
	// is deleted and the surviving stream carries the merge summary
	assert.Equal(t, surviving.ID, vote.ContestID)
	assert.Equal(t, []string{domaincontest.EventDeleted}, streamEventTypes(t, f.store, oldID))
	assert.Equal(t, []string{domaincontest.EventCreated, domaincontest.EventMerged}, streamEventTypes(t, f.store, surviving.ID))
	f.contestRepo.AssertExpectations(t)
	f.businessRepo.AssertExpectations(t)
}

func TestUpdateAfterTestingPhaseKeepsRestrictedFields(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	due := fixedNow.AddDate(0, 0, 10)
	c := &domaincontest.Contest{
		ID:                  id,
		Date:                contestDate,
		EndOfTestingPhase:   testingEnd,
		DomainOfInfluenceID: uuid.New(),
		State:               domaincontest.StateActive,
	}
	f.expectAvailable()
	f.contestRepo.On("GetByID", mock.Anything, id).Return(c, nil)
	f.contestRepo.On("Update", mock.Anything, c).Return(nil)

	updated, err := f.svc.Update(context.Background(), id, domaincontest.UpdateInput{
		EndOfTestingPhase:      contestDate, // would violate the lead time if applied
		EVotingApprovalDueDate: &due,
	})
	require.NoError(t, err)

	assert.Equal(t, testingEnd, updated.EndOfTestingPhase)
	assert.Equal(t, &due, updated.EVotingApprovalDueDate)
}

func TestUpdateMergesChildTenantContests(t *testing.T) {
	// the descendant contest was created after this one, so the conflict was
	// invisible at creation time and surfaces on the next update
	f := newFixture(t)
	canton := uuid.New()
	gossau := uuid.New()
	id := uuid.New()
	c := &domaincontest.Contest{
		ID:                  id,
		Date:                contestDate,
		EndOfTestingPhase:   testingEnd,
		DomainOfInfluenceID: canton,
		State:               domaincontest.StateTestingPhase,
	}
	oldID := uuid.New()
	old := &domaincontest.Contest{
		ID:                  oldID,
		Date:                contestDate,
		DomainOfInfluenceID: gossau,
		State:               domaincontest.StateTestingPhase,
	}
	vote := &business.PoliticalBusiness{
		ID:        uuid.New(),
		ContestID: oldID,
		Kind:      business.KindVote,
	}

	f.contestRepo.On("GetByID", mock.Anything, id).Return(c, nil)
	f.contestRepo.On("ListByDate", mock.Anything, contestDate).Return([]*domaincontest.Contest{c, old}, nil)
	f.hierarchy.On("IsDescendantOf", mock.Anything, gossau, canton).Return(true, nil)
	f.businessRepo.On("ListBusinessesByContest", mock.Anything, oldID).Return([]*business.PoliticalBusiness{vote}, nil)
	f.businessRepo.On("ListUnionsByContest", mock.Anything, oldID).Return([]*business.Union{}, nil)
	f.businessRepo.On("ListElectionGroupsByContest", mock.Anything, oldID).Return([]*business.ElectionGroup{}, nil)
	f.businessRepo.On("UpdateBusiness", mock.Anything, vote).Return(nil)
	f.contestRepo.On("GetByID", mock.Anything, oldID).Return(old, nil)
	f.contestRepo.On("Delete", mock.Anything, oldID).Return(nil)
	f.contestRepo.On("Update", mock.Anything, c).Return(nil)

	updated, err := f.svc.Update(context.Background(), id, domaincontest.UpdateInput{
		EndOfTestingPhase: testingEnd,
	})
	require.NoError(t, err)

	// the contest itself is not its own conflict; only the descendant is
	// superseded
	assert.Equal(t, updated.ID, vote.ContestID)
	assert.Equal(t, []string{domaincontest.EventDeleted}, streamEventTypes(t, f.store, oldID))
	assert.Equal(t, []string{domaincontest.EventUpdated, domaincontest.EventMerged}, streamEventTypes(t, f.store, id))
	f.contestRepo.AssertExpectations(t)
	f.businessRepo.AssertExpectations(t)
}

func TestDeleteReferencedAsPreviousContest(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	c := &domaincontest.Contest{ID: id, Date: contestDate, DomainOfInfluenceID: uuid.New(), State: domaincontest.StateTestingPhase}
	f.contestRepo.On("GetByID", mock.Anything, id).Return(c, nil)
	f.contestRepo.On("IsPreviousContest", mock.Anything, id).Return(true, nil)

	err := f.svc.Delete(context.Background(), id)
	assert.ErrorIs(t, err, ErrReferencedAsPreviousContest)
	f.contestRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDeleteInTestingPhase(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	c := &domaincontest.Contest{ID: id, Date: contestDate, DomainOfInfluenceID: uuid.New(), State: domaincontest.StateTestingPhase}
	f.contestRepo.On("GetByID", mock.Anything, id).Return(c, nil)
	f.contestRepo.On("IsPreviousContest", mock.Anything, id).Return(false, nil)
	f.contestRepo.On("Delete", mock.Anything, id).Return(nil)

	require.NoError(t, f.svc.Delete(context.Background(), id))
	assert.Equal(t, []string{domaincontest.EventDeleted}, streamEventTypes(t, f.store, id))
	f.contestRepo.AssertExpectations(t)
}

func TestDeleteOutsideTestingPhase(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	c := &domaincontest.Contest{ID: id, Date: contestDate, DomainOfInfluenceID: uuid.New(), State: domaincontest.StateActive}
	f.contestRepo.On("GetByID", mock.Anything, id).Return(c, nil)
	f.contestRepo.On("IsPreviousContest", mock.Anything, id).Return(false, nil)

	err := f.svc.Delete(context.Background(), id)
	assert.ErrorIs(t, err, domaincontest.ErrNotInTestingPhase)
	f.contestRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestArchiveSchedulesFutureDate(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	per := fixedNow.AddDate(0, 1, 0)
	c := &domaincontest.Contest{ID: id, Date: contestDate, DomainOfInfluenceID: uuid.New(), State: domaincontest.StatePastLocked}
	f.contestRepo.On("GetByID", mock.Anything, id).Return(c, nil)
	f.contestRepo.On("Update", mock.Anything, c).Return(nil)

	require.NoError(t, f.svc.Archive(context.Background(), id, &per))

	assert.Equal(t, domaincontest.StatePastLocked, c.State)
	assert.Equal(t, []string{domaincontest.EventArchiveDateUpdated}, streamEventTypes(t, f.store, id))
}

func TestArchiveImmediately(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	c := &domaincontest.Contest{ID: id, Date: contestDate, DomainOfInfluenceID: uuid.New(), State: domaincontest.StatePastLocked}
	f.contestRepo.On("GetByID", mock.Anything, id).Return(c, nil)
	f.contestRepo.On("Update", mock.Anything, c).Return(nil)

	require.NoError(t, f.svc.Archive(context.Background(), id, nil))

	assert.Equal(t, domaincontest.StateArchived, c.State)
	assert.Equal(t, []string{domaincontest.EventArchived}, streamEventTypes(t, f.store, id))
}

func TestPastUnlockRequiresLockedState(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	c := &domaincontest.Contest{ID: id, Date: contestDate, DomainOfInfluenceID: uuid.New(), State: domaincontest.StateActive}
	f.contestRepo.On("GetByID", mock.Anything, id).Return(c, nil)

	err := f.svc.PastUnlock(context.Background(), id)
	assert.ErrorIs(t, err, domaincontest.ErrInvalidTransition)
	f.contestRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestEndTestingPhaseBeforeDueIsNoOp(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	c := &domaincontest.Contest{
		ID:                  id,
		Date:                contestDate,
		EndOfTestingPhase:   testingEnd,
		DomainOfInfluenceID: uuid.New(),
		State:               domaincontest.StateTestingPhase,
	}
	f.contestRepo.On("GetByID", mock.Anything, id).Return(c, nil)

	applied, err := f.svc.EndTestingPhase(context.Background(), id)
	require.NoError(t, err)

	assert.False(t, applied)
	assert.Equal(t, domaincontest.StateTestingPhase, c.State)
	f.contestRepo.AssertNotCalled(t, "Update", mock.Anything, mock.Anything)
}

func TestApproveEVotingCascadesToPendingBusinesses(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	c := &domaincontest.Contest{
		ID:                  id,
		Date:                contestDate,
		DomainOfInfluenceID: uuid.New(),
		State:               domaincontest.StateActive,
		EVoting:             true,
	}
	pending := &business.PoliticalBusiness{ID: uuid.New(), ContestID: id, Kind: business.KindElection, EVoting: true}
	f.contestRepo.On("GetByID", mock.Anything, id).Return(c, nil)
	f.contestRepo.On("Update", mock.Anything, c).Return(nil)
	f.businessRepo.On("ListEVotingPending", mock.Anything, id).Return([]*business.PoliticalBusiness{pending}, nil)
	f.businessRepo.On("UpdateBusiness", mock.Anything, pending).Return(nil)

	require.NoError(t, f.svc.ApproveEVoting(context.Background(), id))

	assert.True(t, c.EVotingApproved)
	assert.True(t, pending.EVotingApproved)
	f.businessRepo.AssertExpectations(t)
}

func TestStartContestImportTwiceRejected(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	c := &domaincontest.Contest{ID: id, Date: contestDate, DomainOfInfluenceID: uuid.New(), State: domaincontest.StateTestingPhase}
	f.contestRepo.On("GetByID", mock.Anything, id).Return(c, nil)
	f.contestRepo.On("Update", mock.Anything, c).Return(nil)

	require.NoError(t, f.svc.StartContestImport(context.Background(), id))
	err := f.svc.StartContestImport(context.Background(), id)
	assert.ErrorIs(t, err, domaincontest.ErrImportAlreadyRunning)
}

func TestGetUnknownContest(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	f.contestRepo.On("GetByID", mock.Anything, id).Return(nil, nil)

	_, err := f.svc.Get(context.Background(), id)
	assert.ErrorIs(t, err, ErrNotFound)
}
