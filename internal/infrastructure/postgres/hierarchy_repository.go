package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contest-hub/contest-hub/internal/domain/hierarchy"
)

// HierarchyRepository implements hierarchy.Repository with recursive CTEs
// over the parent links.
type HierarchyRepository struct {
	pool *pgxpool.Pool
}

func NewHierarchyRepository(pool *pgxpool.Pool) *HierarchyRepository {
	return &HierarchyRepository{pool: pool}
}

func (r *HierarchyRepository) GetByID(ctx context.Context, id uuid.UUID) (*hierarchy.DomainOfInfluence, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, type, tenant_id, parent_id
		FROM domains_of_influence
		WHERE id=$1
	`, id)
	var d hierarchy.DomainOfInfluence
	if err := row.Scan(&d.ID, &d.Name, &d.Type, &d.TenantID, &d.ParentID); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &d, nil
}

func (r *HierarchyRepository) IsDescendantOf(ctx context.Context, candidate, ancestor uuid.UUID) (bool, error) {
	if candidate == ancestor {
		return false, nil
	}
	var descendant bool
	err := r.pool.QueryRow(ctx, `
		WITH RECURSIVE ancestors AS (
			SELECT id, parent_id FROM domains_of_influence WHERE id=$1
			UNION ALL
			SELECT d.id, d.parent_id
			FROM domains_of_influence d
			JOIN ancestors a ON d.id = a.parent_id
		)
		SELECT EXISTS (SELECT 1 FROM ancestors WHERE id=$2 AND id <> $1)
	`, candidate, ancestor).Scan(&descendant)
	return descendant, err
}

func (r *HierarchyRepository) ListDescendants(ctx context.Context, id uuid.UUID) ([]*hierarchy.DomainOfInfluence, error) {
	rows, err := r.pool.Query(ctx, `
		WITH RECURSIVE descendants AS (
			SELECT id, name, type, tenant_id, parent_id FROM domains_of_influence WHERE parent_id=$1
			UNION ALL
			SELECT d.id, d.name, d.type, d.tenant_id, d.parent_id
			FROM domains_of_influence d
			JOIN descendants s ON d.parent_id = s.id
		)
		SELECT id, name, type, tenant_id, parent_id FROM descendants
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var nodes []*hierarchy.DomainOfInfluence
	for rows.Next() {
		var d hierarchy.DomainOfInfluence
		if err := rows.Scan(&d.ID, &d.Name, &d.Type, &d.TenantID, &d.ParentID); err != nil {
			return nil, err
		}
		nodes = append(nodes, &d)
	}
	return nodes, rows.Err()
}
