package contest

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	domaincontest "github.com/contest-hub/contest-hub/internal/domain/contest"
)

var (
	ErrNotFound                    = errors.New("contest not found")
	ErrInvalidID                   = errors.New("id is required")
	ErrDateConflict                = errors.New("a contest already exists on this date for this domain of influence")
	ErrReferencedAsPreviousContest = errors.New("contest is referenced as another contest's previous contest")
)

// PermissionChecker answers whether the caller may act on a hierarchy node.
// Implemented by the external permission/tenant service.
type PermissionChecker interface {
	CanManageContest(ctx context.Context, domainOfInfluenceID uuid.UUID) error
}

// AllowAll is a PermissionChecker that permits everything; used in tests and
// single-tenant deployments.
type AllowAll struct{}

func (AllowAll) CanManageContest(ctx context.Context, domainOfInfluenceID uuid.UUID) error {
	return nil
}

// Guard bundles the checks shared by every contest-dependent writer:
// permission, contest-state and id validation. Concrete writers embed a
// Guard instead of inheriting from a common base.
type Guard struct {
	permissions PermissionChecker
	contestRepo domaincontest.Repository
}

func NewGuard(permissions PermissionChecker, contestRepo domaincontest.Repository) *Guard {
	return &Guard{permissions: permissions, contestRepo: contestRepo}
}

// ValidateID rejects the zero id.
func (g *Guard) ValidateID(id uuid.UUID) error {
	if id == uuid.Nil {
		return ErrInvalidID
	}
	return nil
}

// EnsurePermission checks the caller against the hierarchy node.
func (g *Guard) EnsurePermission(ctx context.Context, domainOfInfluenceID uuid.UUID) error {
	return g.permissions.CanManageContest(ctx, domainOfInfluenceID)
}

// LoadModifiable loads a contest and fails when it no longer accepts writes.
func (g *Guard) LoadModifiable(ctx context.Context, id uuid.UUID) (*domaincontest.Contest, error) {
	c, err := g.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := c.EnsureModifiable(); err != nil {
		return nil, err
	}
	return c, nil
}

// Load loads a contest or reports ErrNotFound.
func (g *Guard) Load(ctx context.Context, id uuid.UUID) (*domaincontest.Contest, error) {
	if err := g.ValidateID(id); err != nil {
		return nil, err
	}
	c, err := g.contestRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get contest: %w", err)
	}
	if c == nil {
		return nil, ErrNotFound
	}
	return c, nil
}
