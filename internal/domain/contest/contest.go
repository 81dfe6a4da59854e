package contest

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/contest-hub/contest-hub/internal/clock"
)

// State represents contest lifecycle state.
type State string

const (
	StateTestingPhase State = "TESTING_PHASE"
	StateActive       State = "ACTIVE"
	StatePastUnlocked State = "PAST_UNLOCKED"
	StatePastLocked   State = "PAST_LOCKED"
	StateArchived     State = "ARCHIVED"
)

// Editability classifies how far a contest's configuration and its dependent
// businesses may still be changed.
type Editability string

const (
	// EditabilityFull applies while the testing phase runs.
	EditabilityFull Editability = "FULL"
	// EditabilityRestricted applies after the testing phase ended but before
	// the contest is locked; only a reduced field set may change.
	EditabilityRestricted Editability = "RESTRICTED"
	// EditabilityReadOnly applies to locked and archived contests.
	EditabilityReadOnly Editability = "READ_ONLY"
)

var (
	ErrInvalidTransition          = errors.New("invalid contest state transition")
	ErrContestLocked              = errors.New("contest is past locked or archived")
	ErrDateUndefined              = errors.New("contest date is required")
	ErrDateImmutable              = errors.New("contest date cannot be changed")
	ErrDomainOfInfluenceImmutable = errors.New("contest domain of influence cannot be changed")
	ErrTestingPhaseLead           = errors.New("end of testing phase must precede the contest date by the minimum lead time")
	ErrEVotingWindow              = errors.New("e-voting window is inconsistent")
	ErrArchivePerInPast           = errors.New("requested archive date must not be earlier than now")
	ErrNotInTestingPhase          = errors.New("contest is no longer in testing phase")
	ErrImportAlreadyRunning       = errors.New("an import is already running for this contest")
)

// Contest is the lifecycle aggregate. Mutating methods record uncommitted
// Changes drained by the writer on save.
type Contest struct {
	ID                  uuid.UUID
	Date                time.Time
	EndOfTestingPhase   time.Time
	ArchivePer          *time.Time
	PastLockPer         time.Time
	PreviousContestID   *uuid.UUID
	DomainOfInfluenceID uuid.UUID

	EVoting                bool
	EVotingFrom            *time.Time
	EVotingTo              *time.Time
	EVotingApproved        bool
	EVotingApprovalDueDate *time.Time

	State                            State
	ContestImportStarted             bool
	PoliticalBusinessesImportStarted bool
	Deleted                          bool

	// Version is the event-stream version the aggregate was loaded at.
	Version int64

	changes []Change
}

// CreateInput carries the fields needed to create a contest.
type CreateInput struct {
	ID                     uuid.UUID
	Date                   time.Time
	EndOfTestingPhase      time.Time
	DomainOfInfluenceID    uuid.UUID
	PreviousContestID      *uuid.UUID
	EVoting                bool
	EVotingFrom            *time.Time
	EVotingTo              *time.Time
	EVotingApprovalDueDate *time.Time
}

// UpdateInput carries the fields an update may change. Date and domain of
// influence are immutable; they are included so mismatches can be rejected.
type UpdateInput struct {
	Date                   time.Time
	EndOfTestingPhase      time.Time
	DomainOfInfluenceID    uuid.UUID
	PreviousContestID      *uuid.UUID
	EVoting                bool
	EVotingFrom            *time.Time
	EVotingTo              *time.Time
	EVotingApprovalDueDate *time.Time
}

// New validates input and creates a contest in testing phase.
func New(input CreateInput, minTestingPhaseLead time.Duration) (*Contest, error) {
	if input.Date.IsZero() {
		return nil, ErrDateUndefined
	}
	if input.EndOfTestingPhase.Add(minTestingPhaseLead).After(input.Date) {
		return nil, ErrTestingPhaseLead
	}
	if input.EVoting {
		if input.EVotingFrom == nil || input.EVotingTo == nil || !input.EVotingFrom.Before(*input.EVotingTo) {
			return nil, ErrEVotingWindow
		}
	}

	id := input.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	c := &Contest{
		ID:                     id,
		Date:                   input.Date.UTC(),
		EndOfTestingPhase:      input.EndOfTestingPhase.UTC(),
		PastLockPer:            clock.NextUTCDay(input.Date),
		PreviousContestID:      input.PreviousContestID,
		DomainOfInfluenceID:    input.DomainOfInfluenceID,
		EVoting:                input.EVoting,
		EVotingFrom:            input.EVotingFrom,
		EVotingTo:              input.EVotingTo,
		EVotingApprovalDueDate: input.EVotingApprovalDueDate,
		State:                  StateTestingPhase,
	}
	c.raise(EventCreated, CreatedPayload{
		ID:                     c.ID,
		Date:                   c.Date,
		EndOfTestingPhase:      c.EndOfTestingPhase,
		DomainOfInfluenceID:    c.DomainOfInfluenceID,
		PreviousContestID:      c.PreviousContestID,
		EVoting:                c.EVoting,
		EVotingFrom:            c.EVotingFrom,
		EVotingTo:              c.EVotingTo,
		EVotingApprovalDueDate: c.EVotingApprovalDueDate,
	})
	return c, nil
}

// CanTransitionTo validates a lifecycle transition.
func (c *Contest) CanTransitionTo(target State) bool {
	transitions := map[State][]State{
		StateTestingPhase: {StateActive},
		StateActive:       {StatePastLocked},
		StatePastLocked:   {StatePastUnlocked, StateArchived},
		StatePastUnlocked: {StatePastLocked, StateArchived},
		StateArchived:     {},
	}
	for _, s := range transitions[c.State] {
		if s == target {
			return true
		}
	}
	return false
}

// Editability reports how far this contest may still be edited.
func (c *Contest) Editability() Editability {
	switch c.State {
	case StateTestingPhase:
		return EditabilityFull
	case StateActive, StatePastUnlocked:
		return EditabilityRestricted
	default:
		return EditabilityReadOnly
	}
}

// EnsureModifiable fails when the contest no longer accepts writes.
func (c *Contest) EnsureModifiable() error {
	if c.Editability() == EditabilityReadOnly {
		return ErrContestLocked
	}
	return nil
}

// Update applies an update within the current editability constraints.
// During testing phase all mutable fields change; afterwards only the
// e-voting approval due date may move.
func (c *Contest) Update(input UpdateInput, minTestingPhaseLead time.Duration) error {
	if err := c.EnsureModifiable(); err != nil {
		return err
	}
	if !input.Date.IsZero() && !input.Date.UTC().Equal(c.Date) {
		return ErrDateImmutable
	}
	if input.DomainOfInfluenceID != uuid.Nil && input.DomainOfInfluenceID != c.DomainOfInfluenceID {
		return ErrDomainOfInfluenceImmutable
	}

	if c.Editability() == EditabilityFull {
		if input.EndOfTestingPhase.Add(minTestingPhaseLead).After(c.Date) {
			return ErrTestingPhaseLead
		}
		if input.EVoting {
			if input.EVotingFrom == nil || input.EVotingTo == nil || !input.EVotingFrom.Before(*input.EVotingTo) {
				return ErrEVotingWindow
			}
		}
		c.EndOfTestingPhase = input.EndOfTestingPhase.UTC()
		c.PreviousContestID = input.PreviousContestID
		c.EVoting = input.EVoting
		c.EVotingFrom = input.EVotingFrom
		c.EVotingTo = input.EVotingTo
	}
	c.EVotingApprovalDueDate = input.EVotingApprovalDueDate

	c.raise(EventUpdated, UpdatedPayload{
		ID:                     c.ID,
		EndOfTestingPhase:      c.EndOfTestingPhase,
		PreviousContestID:      c.PreviousContestID,
		EVoting:                c.EVoting,
		EVotingFrom:            c.EVotingFrom,
		EVotingTo:              c.EVotingTo,
		EVotingApprovalDueDate: c.EVotingApprovalDueDate,
	})
	return nil
}

// TryEndTestingPhase moves the contest to active once the testing phase is
// over. Returns false without error when the guard does not hold yet, so
// scheduler ticks can call it unconditionally.
func (c *Contest) TryEndTestingPhase(now time.Time) (bool, error) {
	if c.State != StateTestingPhase {
		return false, nil
	}
	if now.Before(c.EndOfTestingPhase) {
		return false, nil
	}
	if !c.CanTransitionTo(StateActive) {
		return false, ErrInvalidTransition
	}
	c.State = StateActive
	c.raise(EventTestingPhaseEnded, TestingPhaseEndedPayload{ID: c.ID, EndedAt: now.UTC()})
	return true, nil
}

// TrySetPastLocked locks the contest once its date has been reached.
func (c *Contest) TrySetPastLocked(now time.Time) (bool, error) {
	if c.State != StateActive && c.State != StatePastUnlocked {
		return false, nil
	}
	if now.Before(c.Date) {
		return false, nil
	}
	if !c.CanTransitionTo(StatePastLocked) {
		return false, ErrInvalidTransition
	}
	c.State = StatePastLocked
	c.raise(EventPastLocked, PastLockedPayload{ID: c.ID, LockedAt: now.UTC()})
	return true, nil
}

// PastUnlock is the explicit admin action reopening a locked past contest.
// Unlike the try transitions it fails when the state does not match.
func (c *Contest) PastUnlock(now time.Time) error {
	if c.State != StatePastLocked {
		return ErrInvalidTransition
	}
	c.State = StatePastUnlocked
	c.raise(EventPastUnlocked, PastUnlockedPayload{ID: c.ID, UnlockedAt: now.UTC()})
	return nil
}

// Archive archives the contest immediately, or schedules archiving when
// archivePer lies in the future. A requested archivePer earlier than now is
// rejected. Legal from the past states only.
func (c *Contest) Archive(archivePer *time.Time, now time.Time) error {
	if c.State != StatePastLocked && c.State != StatePastUnlocked {
		return ErrInvalidTransition
	}
	if archivePer != nil && archivePer.Before(now) {
		return ErrArchivePerInPast
	}
	if archivePer != nil && archivePer.After(now) {
		per := archivePer.UTC()
		c.ArchivePer = &per
		c.raise(EventArchiveDateUpdated, ArchiveDateUpdatedPayload{ID: c.ID, ArchivePer: per})
		return nil
	}
	per := now.UTC()
	c.ArchivePer = &per
	c.State = StateArchived
	c.raise(EventArchived, ArchivedPayload{ID: c.ID, ArchivedAt: per})
	return nil
}

// TryArchive promotes a contest with a due archive date. Scheduler-driven.
func (c *Contest) TryArchive(now time.Time) (bool, error) {
	if c.State != StatePastLocked && c.State != StatePastUnlocked {
		return false, nil
	}
	if c.ArchivePer == nil || now.Before(*c.ArchivePer) {
		return false, nil
	}
	if !c.CanTransitionTo(StateArchived) {
		return false, ErrInvalidTransition
	}
	c.State = StateArchived
	c.raise(EventArchived, ArchivedPayload{ID: c.ID, ArchivedAt: now.UTC()})
	return true, nil
}

// TryApproveEVoting sets the approval flag once the due date has passed.
// Approval never happens on locked or archived contests.
func (c *Contest) TryApproveEVoting(now time.Time) (bool, error) {
	if !c.EVoting || c.EVotingApproved {
		return false, nil
	}
	switch c.State {
	case StateTestingPhase, StateActive, StatePastUnlocked:
	default:
		return false, nil
	}
	if c.EVotingApprovalDueDate == nil || now.Before(*c.EVotingApprovalDueDate) {
		return false, nil
	}
	c.EVotingApproved = true
	c.raise(EventEVotingApproved, EVotingApprovedPayload{ID: c.ID, ApprovedAt: now.UTC()})
	return true, nil
}

// ApproveEVoting is the explicit admin sign-off, independent of the due date.
func (c *Contest) ApproveEVoting(now time.Time) error {
	if !c.EVoting {
		return ErrEVotingWindow
	}
	switch c.State {
	case StateTestingPhase, StateActive, StatePastUnlocked:
	default:
		return ErrContestLocked
	}
	if c.EVotingApproved {
		return nil
	}
	c.EVotingApproved = true
	c.raise(EventEVotingApproved, EVotingApprovedPayload{ID: c.ID, ApprovedAt: now.UTC()})
	return nil
}

// StartContestImport records that a bulk contest import began.
func (c *Contest) StartContestImport(now time.Time) error {
	if err := c.EnsureModifiable(); err != nil {
		return err
	}
	if c.ContestImportStarted {
		return ErrImportAlreadyRunning
	}
	c.ContestImportStarted = true
	c.raise(EventImportStarted, ImportStartedPayload{ID: c.ID, StartedAt: now.UTC()})
	return nil
}

// StartPoliticalBusinessesImport records that a business import began.
func (c *Contest) StartPoliticalBusinessesImport(now time.Time) error {
	if err := c.EnsureModifiable(); err != nil {
		return err
	}
	if c.PoliticalBusinessesImportStarted {
		return ErrImportAlreadyRunning
	}
	c.PoliticalBusinessesImportStarted = true
	c.raise(EventBusinessesImportStarted, ImportStartedPayload{ID: c.ID, StartedAt: now.UTC()})
	return nil
}

// Delete removes a contest still in testing phase. The caller checks that no
// other contest references it as previous contest.
func (c *Contest) Delete() error {
	if c.State != StateTestingPhase {
		return ErrNotInTestingPhase
	}
	c.Deleted = true
	c.raise(EventDeleted, DeletedPayload{ID: c.ID})
	return nil
}

// RecordMerge records the merge summary on the surviving contest.
func (c *Contest) RecordMerge(oldIDs []uuid.UUID, movedBusinesses int) {
	c.raise(EventMerged, MergedPayload{MergedID: c.ID, OldIDs: oldIDs, MovedBusinesses: movedBusinesses})
}

// Changes returns the uncommitted events raised since load or last drain.
func (c *Contest) Changes() []Change {
	return c.changes
}

// DrainChanges returns and clears the uncommitted events.
func (c *Contest) DrainChanges() []Change {
	out := c.changes
	c.changes = nil
	return out
}

func (c *Contest) raise(eventType string, payload any) {
	c.changes = append(c.changes, Change{Type: eventType, Payload: payload})
}
