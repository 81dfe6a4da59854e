package contest

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository,PreconfiguredDateRepository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Repository defines the contest read model maintained by the projector and
// queried by writers, the availability resolver and the scheduler.
type Repository interface {
	Create(ctx context.Context, c *Contest) error
	GetByID(ctx context.Context, id uuid.UUID) (*Contest, error)
	Update(ctx context.Context, c *Contest) error
	Delete(ctx context.Context, id uuid.UUID) error
	// ListByStates returns all non-deleted contests in any of the states.
	ListByStates(ctx context.Context, states ...State) ([]*Contest, error)
	// ListByDate returns the contests on the exact voting date.
	ListByDate(ctx context.Context, date time.Time) ([]*Contest, error)
	// ListByDateRange returns the contests with date in [from, to].
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*Contest, error)
	// IsPreviousContest reports whether any contest references id as its
	// previous contest.
	IsPreviousContest(ctx context.Context, id uuid.UUID) (bool, error)
}

// PreconfiguredDateRepository lists the system-preconfigured contest dates.
type PreconfiguredDateRepository interface {
	ListDates(ctx context.Context) ([]time.Time, error)
}
