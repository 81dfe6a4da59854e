package availability

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/contest-hub/contest-hub/internal/domain/contest"
	contestmocks "github.com/contest-hub/contest-hub/internal/domain/contest/mocks"
	hierarchymocks "github.com/contest-hub/contest-hub/internal/domain/hierarchy/mocks"
)

var testDate = time.Date(2020, 12, 23, 0, 0, 0, 0, time.UTC)

func newResolver(contestRepo *contestmocks.MockRepository, dates *contestmocks.MockPreconfiguredDateRepository, h *hierarchymocks.MockRepository) *Resolver {
	return NewResolver(contestRepo, dates, h, 24*time.Hour, zerolog.Nop())
}

func TestResolveAlreadyExists(t *testing.T) {
	doi := uuid.New()
	contestRepo := new(contestmocks.MockRepository)
	dates := new(contestmocks.MockPreconfiguredDateRepository)
	h := new(hierarchymocks.MockRepository)

	contestRepo.On("ListByDate", mock.Anything, testDate).
		Return([]*contest.Contest{{ID: uuid.New(), Date: testDate, DomainOfInfluenceID: doi}}, nil)

	result, err := newResolver(contestRepo, dates, h).Resolve(context.Background(), testDate, doi)
	require.NoError(t, err)
	assert.Equal(t, AlreadyExists, result.Classification)
}

func TestResolveExistsOnChildTenant(t *testing.T) {
	canton := uuid.New()
	gossau := uuid.New()
	childContestID := uuid.New()
	contestRepo := new(contestmocks.MockRepository)
	dates := new(contestmocks.MockPreconfiguredDateRepository)
	h := new(hierarchymocks.MockRepository)

	contestRepo.On("ListByDate", mock.Anything, testDate).
		Return([]*contest.Contest{{ID: childContestID, Date: testDate, DomainOfInfluenceID: gossau}}, nil)
	h.On("IsDescendantOf", mock.Anything, gossau, canton).Return(true, nil)

	result, err := newResolver(contestRepo, dates, h).Resolve(context.Background(), testDate, canton)
	require.NoError(t, err)
	assert.Equal(t, ExistsOnChildTenant, result.Classification)
	assert.Equal(t, []uuid.UUID{childContestID}, result.ConflictingContestIDs)
}

func TestResolveForContestIgnoresSelf(t *testing.T) {
	// an existing contest re-resolving its own date must not classify itself
	// as a conflict, but a descendant that appeared since creation still does
	canton := uuid.New()
	gossau := uuid.New()
	ownID := uuid.New()
	childContestID := uuid.New()
	contestRepo := new(contestmocks.MockRepository)
	dates := new(contestmocks.MockPreconfiguredDateRepository)
	h := new(hierarchymocks.MockRepository)

	contestRepo.On("ListByDate", mock.Anything, testDate).
		Return([]*contest.Contest{
			{ID: ownID, Date: testDate, DomainOfInfluenceID: canton},
			{ID: childContestID, Date: testDate, DomainOfInfluenceID: gossau},
		}, nil)
	h.On("IsDescendantOf", mock.Anything, gossau, canton).Return(true, nil)

	result, err := newResolver(contestRepo, dates, h).
		ResolveForContest(context.Background(), testDate, canton, ownID)
	require.NoError(t, err)
	assert.Equal(t, ExistsOnChildTenant, result.Classification)
	assert.Equal(t, []uuid.UUID{childContestID}, result.ConflictingContestIDs)
}

func TestResolveHierarchyConflictBeatsPreconfiguredDate(t *testing.T) {
	// a child-tenant conflict must never be downgraded to an informational
	// classification even when the date is preconfigured
	canton := uuid.New()
	child := uuid.New()
	contestRepo := new(contestmocks.MockRepository)
	dates := new(contestmocks.MockPreconfiguredDateRepository)
	h := new(hierarchymocks.MockRepository)

	contestRepo.On("ListByDate", mock.Anything, testDate).
		Return([]*contest.Contest{{ID: uuid.New(), Date: testDate, DomainOfInfluenceID: child}}, nil)
	h.On("IsDescendantOf", mock.Anything, child, canton).Return(true, nil)

	result, err := newResolver(contestRepo, dates, h).Resolve(context.Background(), testDate, canton)
	require.NoError(t, err)
	assert.Equal(t, ExistsOnChildTenant, result.Classification)
	dates.AssertNotCalled(t, "ListDates", mock.Anything)
}

func TestResolveSameAsPreConfiguredDate(t *testing.T) {
	doi := uuid.New()
	contestRepo := new(contestmocks.MockRepository)
	dates := new(contestmocks.MockPreconfiguredDateRepository)
	h := new(hierarchymocks.MockRepository)

	contestRepo.On("ListByDate", mock.Anything, testDate).Return([]*contest.Contest{}, nil)
	dates.On("ListDates", mock.Anything).Return([]time.Time{testDate}, nil)

	result, err := newResolver(contestRepo, dates, h).Resolve(context.Background(), testDate, doi)
	require.NoError(t, err)
	assert.Equal(t, SameAsPreConfiguredDate, result.Classification)
}

func TestResolveCloseToOtherContestDate(t *testing.T) {
	doi := uuid.New()
	neighborDoi := uuid.New()
	contestRepo := new(contestmocks.MockRepository)
	dates := new(contestmocks.MockPreconfiguredDateRepository)
	h := new(hierarchymocks.MockRepository)

	contestRepo.On("ListByDate", mock.Anything, testDate).Return([]*contest.Contest{}, nil)
	dates.On("ListDates", mock.Anything).Return([]time.Time{}, nil)
	adjacent := testDate.AddDate(0, 0, -1)
	contestRepo.On("ListByDateRange", mock.Anything, mock.Anything, mock.Anything).
		Return([]*contest.Contest{{ID: uuid.New(), Date: adjacent, DomainOfInfluenceID: neighborDoi}}, nil)
	h.On("IsDescendantOf", mock.Anything, neighborDoi, doi).Return(false, nil)
	h.On("IsDescendantOf", mock.Anything, doi, neighborDoi).Return(true, nil)

	result, err := newResolver(contestRepo, dates, h).Resolve(context.Background(), testDate, doi)
	require.NoError(t, err)
	assert.Equal(t, CloseToOtherContestDate, result.Classification)
}

func TestResolveAvailable(t *testing.T) {
	doi := uuid.New()
	unrelatedDoi := uuid.New()
	contestRepo := new(contestmocks.MockRepository)
	dates := new(contestmocks.MockPreconfiguredDateRepository)
	h := new(hierarchymocks.MockRepository)

	contestRepo.On("ListByDate", mock.Anything, testDate).Return([]*contest.Contest{}, nil)
	dates.On("ListDates", mock.Anything).Return([]time.Time{testDate.AddDate(0, 3, 0)}, nil)
	// a nearby contest on an unrelated node is not a warning
	contestRepo.On("ListByDateRange", mock.Anything, mock.Anything, mock.Anything).
		Return([]*contest.Contest{{ID: uuid.New(), Date: testDate.AddDate(0, 0, 1), DomainOfInfluenceID: unrelatedDoi}}, nil)
	h.On("IsDescendantOf", mock.Anything, unrelatedDoi, doi).Return(false, nil)
	h.On("IsDescendantOf", mock.Anything, doi, unrelatedDoi).Return(false, nil)

	result, err := newResolver(contestRepo, dates, h).Resolve(context.Background(), testDate, doi)
	require.NoError(t, err)
	assert.Equal(t, Available, result.Classification)
}
