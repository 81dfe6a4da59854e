package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/contest-hub/contest-hub/internal/domain/business"
)

// MockRepository is a mock implementation of business.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) ListBusinessesByContest(ctx context.Context, contestID uuid.UUID) ([]*business.PoliticalBusiness, error) {
	args := m.Called(ctx, contestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*business.PoliticalBusiness), args.Error(1)
}

func (m *MockRepository) ListUnionsByContest(ctx context.Context, contestID uuid.UUID) ([]*business.Union, error) {
	args := m.Called(ctx, contestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*business.Union), args.Error(1)
}

func (m *MockRepository) ListElectionGroupsByContest(ctx context.Context, contestID uuid.UUID) ([]*business.ElectionGroup, error) {
	args := m.Called(ctx, contestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*business.ElectionGroup), args.Error(1)
}

func (m *MockRepository) ListEVotingPending(ctx context.Context, contestID uuid.UUID) ([]*business.PoliticalBusiness, error) {
	args := m.Called(ctx, contestID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*business.PoliticalBusiness), args.Error(1)
}

func (m *MockRepository) UpdateBusiness(ctx context.Context, b *business.PoliticalBusiness) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockRepository) UpdateUnion(ctx context.Context, u *business.Union) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *MockRepository) UpdateElectionGroup(ctx context.Context, g *business.ElectionGroup) error {
	args := m.Called(ctx, g)
	return args.Error(0)
}
