package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/contest-hub/contest-hub/internal/domain/contest"
)

// ContestRepository implements contest.Repository on the contests read model.
type ContestRepository struct {
	pool *pgxpool.Pool
}

func NewContestRepository(pool *pgxpool.Pool) *ContestRepository {
	return &ContestRepository{pool: pool}
}

const contestColumns = `
	id, date, end_of_testing_phase, archive_per, past_lock_per, previous_contest_id,
	domain_of_influence_id, e_voting, e_voting_from, e_voting_to, e_voting_approved,
	e_voting_approval_due_date, state, contest_import_started, political_businesses_import_started, version
`

func (r *ContestRepository) Create(ctx context.Context, c *contest.Contest) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO contests
		(id, date, end_of_testing_phase, archive_per, past_lock_per, previous_contest_id,
		 domain_of_influence_id, e_voting, e_voting_from, e_voting_to, e_voting_approved,
		 e_voting_approval_due_date, state, contest_import_started, political_businesses_import_started, version)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	`, c.ID, c.Date, c.EndOfTestingPhase, c.ArchivePer, c.PastLockPer, c.PreviousContestID,
		c.DomainOfInfluenceID, c.EVoting, c.EVotingFrom, c.EVotingTo, c.EVotingApproved,
		c.EVotingApprovalDueDate, c.State, c.ContestImportStarted, c.PoliticalBusinessesImportStarted, c.Version)
	return err
}

func (r *ContestRepository) GetByID(ctx context.Context, id uuid.UUID) (*contest.Contest, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+contestColumns+`
		FROM contests
		WHERE id=$1
	`, id)
	return scanContest(row)
}

func (r *ContestRepository) Update(ctx context.Context, c *contest.Contest) error {
	_, err := r.pool.Exec(ctx, `
		UPDATE contests
		SET end_of_testing_phase=$1, archive_per=$2, previous_contest_id=$3, e_voting=$4,
		    e_voting_from=$5, e_voting_to=$6, e_voting_approved=$7, e_voting_approval_due_date=$8,
		    state=$9, contest_import_started=$10, political_businesses_import_started=$11, version=$12
		WHERE id=$13
	`, c.EndOfTestingPhase, c.ArchivePer, c.PreviousContestID, c.EVoting,
		c.EVotingFrom, c.EVotingTo, c.EVotingApproved, c.EVotingApprovalDueDate,
		c.State, c.ContestImportStarted, c.PoliticalBusinessesImportStarted, c.Version, c.ID)
	return err
}

func (r *ContestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM contests WHERE id=$1`, id)
	return err
}

func (r *ContestRepository) ListByStates(ctx context.Context, states ...contest.State) ([]*contest.Contest, error) {
	values := make([]string, 0, len(states))
	for _, s := range states {
		values = append(values, string(s))
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+contestColumns+`
		FROM contests
		WHERE state=ANY($1)
		ORDER BY date ASC
	`, values)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContests(rows)
}

func (r *ContestRepository) ListByDate(ctx context.Context, date time.Time) ([]*contest.Contest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contestColumns+`
		FROM contests
		WHERE date=$1
	`, date)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContests(rows)
}

func (r *ContestRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*contest.Contest, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+contestColumns+`
		FROM contests
		WHERE date >= $1 AND date <= $2
		ORDER BY date ASC
	`, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanContests(rows)
}

func (r *ContestRepository) IsPreviousContest(ctx context.Context, id uuid.UUID) (bool, error) {
	var referenced bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM contests WHERE previous_contest_id=$1)
	`, id).Scan(&referenced)
	return referenced, err
}

func scanContests(rows pgx.Rows) ([]*contest.Contest, error) {
	var contests []*contest.Contest
	for rows.Next() {
		c, err := scanContest(rows)
		if err != nil {
			return nil, err
		}
		contests = append(contests, c)
	}
	return contests, rows.Err()
}

func scanContest(row pgx.Row) (*contest.Contest, error) {
	var c contest.Contest
	if err := row.Scan(&c.ID, &c.Date, &c.EndOfTestingPhase, &c.ArchivePer, &c.PastLockPer, &c.PreviousContestID,
		&c.DomainOfInfluenceID, &c.EVoting, &c.EVotingFrom, &c.EVotingTo, &c.EVotingApproved,
		&c.EVotingApprovalDueDate, &c.State, &c.ContestImportStarted, &c.PoliticalBusinessesImportStarted, &c.Version); err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &c, nil
}

// PreconfiguredDateRepository implements contest.PreconfiguredDateRepository.
type PreconfiguredDateRepository struct {
	pool *pgxpool.Pool
}

func NewPreconfiguredDateRepository(pool *pgxpool.Pool) *PreconfiguredDateRepository {
	return &PreconfiguredDateRepository{pool: pool}
}

func (r *PreconfiguredDateRepository) ListDates(ctx context.Context) ([]time.Time, error) {
	rows, err := r.pool.Query(ctx, `SELECT date FROM preconfigured_dates ORDER BY date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, rows.Err()
}
