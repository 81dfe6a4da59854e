package merge

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/contest-hub/contest-hub/internal/application/retry"
	appsigning "github.com/contest-hub/contest-hub/internal/application/signing"
	"github.com/contest-hub/contest-hub/internal/clock"
	"github.com/contest-hub/contest-hub/internal/domain/business"
	businessmocks "github.com/contest-hub/contest-hub/internal/domain/business/mocks"
	"github.com/contest-hub/contest-hub/internal/domain/contest"
	contestmocks "github.com/contest-hub/contest-hub/internal/domain/contest/mocks"
	domainsigning "github.com/contest-hub/contest-hub/internal/domain/signing"
	"github.com/contest-hub/contest-hub/internal/eventstore"
)

type fixture struct {
	contestRepo  *contestmocks.MockRepository
	businessRepo *businessmocks.MockRepository
	store        *eventstore.MemoryStore
	orchestrator *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		contestRepo:  new(contestmocks.MockRepository),
		businessRepo: new(businessmocks.MockRepository),
		store:        eventstore.NewMemoryStore(),
	}

	logger := zerolog.Nop()
	generator, err := domainsigning.NewGenerator([]byte("test-master-key"), 24*time.Hour)
	require.NoError(t, err)
	writer := retry.NewWriter(retry.Config{MaxAttempts: 3, MinDelay: time.Millisecond, MaxDelay: time.Millisecond}, logger)
	signingSvc := appsigning.NewService(appsigning.NewCache(), generator, f.store, writer, clock.System{}, logger)

	f.orchestrator = NewOrchestrator(f.contestRepo, f.businessRepo, f.store, signingSvc, logger)
	return f
}

func (f *fixture) expectNoDependents(oldID uuid.UUID) {
	f.businessRepo.On("ListBusinessesByContest", mock.Anything, oldID).Return([]*business.PoliticalBusiness{}, nil)
	f.businessRepo.On("ListUnionsByContest", mock.Anything, oldID).Return([]*business.Union{}, nil)
	f.businessRepo.On("ListElectionGroupsByContest", mock.Anything, oldID).Return([]*business.ElectionGroup{}, nil)
}

func TestMergeMovesDependentsAndDeletesSuperseded(t *testing.T) {
	f := newFixture(t)
	surviving := &contest.Contest{ID: uuid.New(), State: contest.StateTestingPhase}
	oldID := uuid.New()
	old := &contest.Contest{ID: oldID, State: contest.StateTestingPhase}
	vote := &business.PoliticalBusiness{ID: uuid.New(), ContestID: oldID, Kind: business.KindVote}
	election := &business.PoliticalBusiness{ID: uuid.New(), ContestID: oldID, Kind: business.KindElection}
	union := &business.Union{ID: uuid.New(), ContestID: oldID}
	group := &business.ElectionGroup{ID: uuid.New(), ContestID: oldID}

	f.businessRepo.On("ListBusinessesByContest", mock.Anything, oldID).
		Return([]*business.PoliticalBusiness{vote, election}, nil)
	f.businessRepo.On("ListUnionsByContest", mock.Anything, oldID).Return([]*business.Union{union}, nil)
	f.businessRepo.On("ListElectionGroupsByContest", mock.Anything, oldID).Return([]*business.ElectionGroup{group}, nil)
	f.businessRepo.On("UpdateBusiness", mock.Anything, mock.AnythingOfType("*business.PoliticalBusiness")).Return(nil).Twice()
	f.businessRepo.On("UpdateUnion", mock.Anything, union).Return(nil)
	f.businessRepo.On("UpdateElectionGroup", mock.Anything, group).Return(nil)
	f.contestRepo.On("GetByID", mock.Anything, oldID).Return(old, nil)
	f.contestRepo.On("Delete", mock.Anything, oldID).Return(nil)
	f.contestRepo.On("Update", mock.Anything, surviving).Return(nil)

	require.NoError(t, f.orchestrator.Merge(context.Background(), surviving, []uuid.UUID{oldID}))

	assert.Equal(t, surviving.ID, vote.ContestID)
	assert.Equal(t, surviving.ID, election.ContestID)
	assert.Equal(t, surviving.ID, union.ContestID)
	assert.Equal(t, surviving.ID, group.ContestID)
	f.contestRepo.AssertExpectations(t)
	f.businessRepo.AssertExpectations(t)
}

func TestMergeRecordsSummaryOnSurvivingStream(t *testing.T) {
	f := newFixture(t)
	surviving := &contest.Contest{ID: uuid.New(), State: contest.StateTestingPhase}
	oldID := uuid.New()

	f.expectNoDependents(oldID)
	f.contestRepo.On("GetByID", mock.Anything, oldID).Return(&contest.Contest{ID: oldID}, nil)
	f.contestRepo.On("Delete", mock.Anything, oldID).Return(nil)
	f.contestRepo.On("Update", mock.Anything, surviving).Return(nil)

	require.NoError(t, f.orchestrator.Merge(context.Background(), surviving, []uuid.UUID{oldID}))

	events, err := f.store.ReadStream(context.Background(), surviving.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, contest.EventMerged, events[0].Type)
	assert.Equal(t, surviving.ID, events[0].BusinessID)

	var payload contest.MergedPayload
	require.NoError(t, json.Unmarshal(events[0].Payload, &payload))
	assert.Equal(t, surviving.ID, payload.MergedID)
	assert.Equal(t, []uuid.UUID{oldID}, payload.OldIDs)

	// the deletion of the superseded contest is correlated with the survivor
	deleted, err := f.store.ReadStream(context.Background(), oldID)
	require.NoError(t, err)
	require.Len(t, deleted, 1)
	assert.Equal(t, contest.EventDeleted, deleted[0].Type)
	assert.Equal(t, surviving.ID, deleted[0].BusinessID)
}

func TestMergeResumesWithStaleReadModel(t *testing.T) {
	// the first run crashed after appending the move and deletion events but
	// before any read-model update; the re-run sees the read model at its old
	// versions and must converge on the already appended events instead of
	// failing on a version mismatch
	f := newFixture(t)
	surviving := &contest.Contest{ID: uuid.New(), State: contest.StateTestingPhase}
	oldID := uuid.New()
	old := &contest.Contest{ID: oldID, State: contest.StateTestingPhase}
	vote := &business.PoliticalBusiness{ID: uuid.New(), ContestID: oldID, Kind: business.KindVote}

	ctx := context.Background()
	moveID := uuid.NewSHA1(vote.ID, []byte(fmt.Sprintf("%s:%s:%d", business.EventVoteMoved, surviving.ID, 0)))
	require.NoError(t, f.store.Append(ctx, vote.ID, 0, []eventstore.Event{{
		ID:         moveID,
		Type:       business.EventVoteMoved,
		BusinessID: surviving.ID,
	}}))
	deleteID := uuid.NewSHA1(oldID, []byte("merged-into:"+surviving.ID.String()))
	require.NoError(t, f.store.Append(ctx, oldID, 0, []eventstore.Event{{
		ID:         deleteID,
		Type:       contest.EventDeleted,
		BusinessID: surviving.ID,
	}}))

	f.businessRepo.On("ListBusinessesByContest", mock.Anything, oldID).
		Return([]*business.PoliticalBusiness{vote}, nil)
	f.businessRepo.On("ListUnionsByContest", mock.Anything, oldID).Return([]*business.Union{}, nil)
	f.businessRepo.On("ListElectionGroupsByContest", mock.Anything, oldID).Return([]*business.ElectionGroup{}, nil)
	f.businessRepo.On("UpdateBusiness", mock.Anything, vote).Return(nil)
	f.contestRepo.On("GetByID", mock.Anything, oldID).Return(old, nil)
	f.contestRepo.On("Delete", mock.Anything, oldID).Return(nil)
	f.contestRepo.On("Update", mock.Anything, surviving).Return(nil)

	require.NoError(t, f.orchestrator.Merge(ctx, surviving, []uuid.UUID{oldID}))

	assert.Equal(t, surviving.ID, vote.ContestID)
	assert.Equal(t, int64(1), vote.Version)

	moved, err := f.store.ReadStream(ctx, vote.ID)
	require.NoError(t, err)
	assert.Len(t, moved, 1)
	deleted, err := f.store.ReadStream(ctx, oldID)
	require.NoError(t, err)
	assert.Len(t, deleted, 1)
	f.businessRepo.AssertExpectations(t)
	f.contestRepo.AssertExpectations(t)
}

func TestMergeRerunRecordsSummaryOnce(t *testing.T) {
	f := newFixture(t)
	surviving := &contest.Contest{ID: uuid.New(), State: contest.StateTestingPhase}
	oldID := uuid.New()

	f.expectNoDependents(oldID)
	f.contestRepo.On("GetByID", mock.Anything, oldID).Return(&contest.Contest{ID: oldID}, nil).Once()
	f.contestRepo.On("GetByID", mock.Anything, oldID).Return(nil, nil)
	f.contestRepo.On("Delete", mock.Anything, oldID).Return(nil).Once()
	f.contestRepo.On("Update", mock.Anything, surviving).Return(nil)

	ctx := context.Background()
	require.NoError(t, f.orchestrator.Merge(ctx, surviving, []uuid.UUID{oldID}))
	require.NoError(t, f.orchestrator.Merge(ctx, surviving, []uuid.UUID{oldID}))

	events, err := f.store.ReadStream(ctx, surviving.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, contest.EventMerged, events[0].Type)
	assert.Equal(t, int64(1), surviving.Version)
}

func TestMergeResumesAfterPartialApplication(t *testing.T) {
	// the first run crashed after moving the vote and deleting the contest
	// from the read model; the re-run must not move or delete again
	f := newFixture(t)
	surviving := &contest.Contest{ID: uuid.New(), State: contest.StateTestingPhase}
	oldID := uuid.New()
	vote := &business.PoliticalBusiness{ID: uuid.New(), ContestID: surviving.ID, Kind: business.KindVote}

	f.businessRepo.On("ListBusinessesByContest", mock.Anything, oldID).
		Return([]*business.PoliticalBusiness{vote}, nil)
	f.businessRepo.On("ListUnionsByContest", mock.Anything, oldID).Return([]*business.Union{}, nil)
	f.businessRepo.On("ListElectionGroupsByContest", mock.Anything, oldID).Return([]*business.ElectionGroup{}, nil)
	f.contestRepo.On("GetByID", mock.Anything, oldID).Return(nil, nil)
	f.contestRepo.On("Update", mock.Anything, surviving).Return(nil)

	require.NoError(t, f.orchestrator.Merge(context.Background(), surviving, []uuid.UUID{oldID}))

	f.businessRepo.AssertNotCalled(t, "UpdateBusiness", mock.Anything, mock.Anything)
	f.contestRepo.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}
