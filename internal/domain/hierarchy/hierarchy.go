// Package hierarchy models the jurisdictional tree of domains of influence
// (canton, district, municipality) that owns contests and businesses.
package hierarchy

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

import (
	"context"

	"github.com/google/uuid"
)

// DomainOfInfluenceType orders node kinds from root to leaf.
type DomainOfInfluenceType string

const (
	TypeCanton       DomainOfInfluenceType = "CANTON"
	TypeDistrict     DomainOfInfluenceType = "DISTRICT"
	TypeMunicipality DomainOfInfluenceType = "MUNICIPALITY"
)

// DomainOfInfluence is a node in the jurisdictional hierarchy.
type DomainOfInfluence struct {
	ID       uuid.UUID
	Name     string
	Type     DomainOfInfluenceType
	TenantID string
	ParentID *uuid.UUID
}

// Repository answers parent/child lookups against the hierarchy.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*DomainOfInfluence, error)
	// IsDescendantOf reports whether candidate lies strictly below ancestor.
	IsDescendantOf(ctx context.Context, candidate, ancestor uuid.UUID) (bool, error)
	// ListDescendants returns every node strictly below id.
	ListDescendants(ctx context.Context, id uuid.UUID) ([]*DomainOfInfluence, error)
}
