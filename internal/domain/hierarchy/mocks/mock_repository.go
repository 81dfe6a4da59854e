package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/contest-hub/contest-hub/internal/domain/hierarchy"
)

// MockRepository is a mock implementation of hierarchy.Repository
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) GetByID(ctx context.Context, id uuid.UUID) (*hierarchy.DomainOfInfluence, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*hierarchy.DomainOfInfluence), args.Error(1)
}

func (m *MockRepository) IsDescendantOf(ctx context.Context, candidate, ancestor uuid.UUID) (bool, error) {
	args := m.Called(ctx, candidate, ancestor)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) ListDescendants(ctx context.Context, id uuid.UUID) ([]*hierarchy.DomainOfInfluence, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*hierarchy.DomainOfInfluence), args.Error(1)
}
