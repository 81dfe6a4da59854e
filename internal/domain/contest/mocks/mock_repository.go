package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/contest-hub/contest-hub/internal/domain/contest"
)

// MockRepository is a mock implementation of contest.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, c *contest.Contest) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*contest.Contest, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*contest.Contest), args.Error(1)
}

func (m *MockRepository) Update(ctx context.Context, c *contest.Contest) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository) ListByStates(ctx context.Context, states ...contest.State) ([]*contest.Contest, error) {
	callArgs := make([]interface{}, 0, len(states)+1)
	callArgs = append(callArgs, ctx)
	for _, s := range states {
		callArgs = append(callArgs, s)
	}
	args := m.Called(callArgs...)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*contest.Contest), args.Error(1)
}

func (m *MockRepository) ListByDate(ctx context.Context, date time.Time) ([]*contest.Contest, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*contest.Contest), args.Error(1)
}

func (m *MockRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*contest.Contest, error) {
	args := m.Called(ctx, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*contest.Contest), args.Error(1)
}

func (m *MockRepository) IsPreviousContest(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockPreconfiguredDateRepository is a mock implementation of
// contest.PreconfiguredDateRepository
type MockPreconfiguredDateRepository struct {
	mock.Mock
}

func (m *MockPreconfiguredDateRepository) ListDates(ctx context.Context) ([]time.Time, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]time.Time), args.Error(1)
}
