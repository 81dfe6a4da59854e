package business

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the read model for contest-dependent entities.
type Repository interface {
	ListBusinessesByContest(ctx context.Context, contestID uuid.UUID) ([]*PoliticalBusiness, error)
	ListUnionsByContest(ctx context.Context, contestID uuid.UUID) ([]*Union, error)
	ListElectionGroupsByContest(ctx context.Context, contestID uuid.UUID) ([]*ElectionGroup, error)
	// ListEVotingPending returns the e-voting-enabled businesses of a contest
	// still awaiting approval.
	ListEVotingPending(ctx context.Context, contestID uuid.UUID) ([]*PoliticalBusiness, error)
	UpdateBusiness(ctx context.Context, b *PoliticalBusiness) error
	UpdateUnion(ctx context.Context, u *Union) error
	UpdateElectionGroup(ctx context.Context, g *ElectionGroup) error
}
