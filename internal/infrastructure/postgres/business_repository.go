package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contest-hub/contest-hub/internal/domain/business"
)

// BusinessRepository implements business.Repository. Businesses, unions and
// election groups live in separate tables keyed by their contest.
type BusinessRepository struct {
	pool *pgxpool.Pool
}

func NewBusinessRepository(pool *pgxpool.Pool) *BusinessRepository {
	return &BusinessRepository{pool: pool}
}

func (r *BusinessRepository) ListBusinessesByContest(ctx context.Context, contestID uuid.UUID) ([]*business.PoliticalBusiness, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contest_id, domain_of_influence_id, kind, e_voting, e_voting_approved, payload, version
		FROM political_businesses
		WHERE contest_id=$1
	`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBusinesses(rows)
}

func (r *BusinessRepository) ListEVotingPending(ctx context.Context, contestID uuid.UUID) ([]*business.PoliticalBusiness, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contest_id, domain_of_influence_id, kind, e_voting, e_voting_approved, payload, version
		FROM political_businesses
		WHERE contest_id=$1 AND e_voting AND NOT e_voting_approved
	`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBusinesses(rows)
}

func (r *BusinessRepository) UpdateBusiness(ctx context.Context, b *business.PoliticalBusiness) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE political_businesses
		SET contest_id=$1, e_voting_approved=$2, version=$3
		WHERE id=$4
	`, b.ContestID, b.EVotingApproved, b.Version, b.ID)
	return err
}

func (r *BusinessRepository) ListUnionsByContest(ctx context.Context, contestID uuid.UUID) ([]*business.Union, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contest_id, payload, version
		FROM political_business_unions
		WHERE contest_id=$1
	`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var unions []*business.Union
	for rows.Next() {
		var u business.Union
		if err := rows.Scan(&u.ID, &u.ContestID, &u.Payload, &u.Version); err != nil {
			return nil, err
		}
		unions = append(unions, &u)
	}
	return unions, rows.Err()
}

func (r *BusinessRepository) UpdateUnion(ctx context.Context, u *business.Union) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE political_business_unions
		SET contest_id=$1, version=$2
		WHERE id=$3
	`, u.ContestID, u.Version, u.ID)
	return err
}

func (r *BusinessRepository) ListElectionGroupsByContest(ctx context.Context, contestID uuid.UUID) ([]*business.ElectionGroup, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, contest_id, payload, version
		FROM election_groups
		WHERE contest_id=$1
	`, contestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var groups []*business.ElectionGroup
	for rows.Next() {
		var g business.ElectionGroup
		if err := rows.Scan(&g.ID, &g.ContestID, &g.Payload, &g.Version); err != nil {
			return nil, err
		}
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

func (r *BusinessRepository) UpdateElectionGroup(ctx context.Context, g *business.ElectionGroup) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE election_groups
		SET contest_id=$1, version=$2
		WHERE id=$3
	`, g.ContestID, g.Version, g.ID)
	return err
}

func scanBusinesses(rows pgx.Rows) ([]*business.PoliticalBusiness, error) {
	var businesses []*business.PoliticalBusiness
	for rows.Next() {
		var b business.PoliticalBusiness
		if err := rows.Scan(&b.ID, &b.ContestID, &b.DomainOfInfluenceID, &b.Kind, &b.EVoting, &b.EVotingApproved, &b.Payload, &b.Version); err != nil {
			return nil, err
		}
		businesses = append(businesses, &b)
	}
	return businesses, rows.Err()
}
