package contest

import (
	"time"

	"github.com/google/uuid"
)

// Contest lifecycle event types recorded on the contest stream.
const (
	EventCreated                 = "contest.created"
	EventUpdated                 = "contest.updated"
	EventDeleted                 = "contest.deleted"
	EventTestingPhaseEnded       = "contest.testing_phase_ended"
	EventPastLocked              = "contest.past_locked"
	EventPastUnlocked            = "contest.past_unlocked"
	EventArchived                = "contest.archived"
	EventArchiveDateUpdated      = "contest.archive_date_updated"
	EventMerged                  = "contest.merged"
	EventImportStarted           = "contest.import_started"
	EventBusinessesImportStarted = "contest.political_businesses_import_started"
	EventEVotingApproved         = "contest.e_voting_approved"
)

// Signing-key event types recorded on the contest key stream.
const (
	EventPublicKeyCreated = "contest.public_key_created"
	EventPublicKeyDeleted = "contest.public_key_deleted"
)

// Change is an uncommitted domain event raised by an aggregate method and
// drained by the writer when persisting.
type Change struct {
	Type    string
	Payload any
}

// CreatedPayload snapshots the full contest on creation.
type CreatedPayload struct {
	ID                     uuid.UUID  `json:"id"`
	Date                   time.Time  `json:"date"`
	EndOfTestingPhase      time.Time  `json:"endOfTestingPhase"`
	DomainOfInfluenceID    uuid.UUID  `json:"domainOfInfluenceId"`
	PreviousContestID      *uuid.UUID `json:"previousContestId,omitempty"`
	EVoting                bool       `json:"eVoting"`
	EVotingFrom            *time.Time `json:"eVotingFrom,omitempty"`
	EVotingTo              *time.Time `json:"eVotingTo,omitempty"`
	EVotingApprovalDueDate *time.Time `json:"eVotingApprovalDueDate,omitempty"`
}

// UpdatedPayload carries the mutable fields after an update.
type UpdatedPayload struct {
	ID                     uuid.UUID  `json:"id"`
	EndOfTestingPhase      time.Time  `json:"endOfTestingPhase"`
	PreviousContestID      *uuid.UUID `json:"previousContestId,omitempty"`
	EVoting                bool       `json:"eVoting"`
	EVotingFrom            *time.Time `json:"eVotingFrom,omitempty"`
	EVotingTo              *time.Time `json:"eVotingTo,omitempty"`
	EVotingApprovalDueDate *time.Time `json:"eVotingApprovalDueDate,omitempty"`
}

// DeletedPayload records a contest deletion.
type DeletedPayload struct {
	ID uuid.UUID `json:"id"`
}

// TestingPhaseEndedPayload records the testing phase ending.
type TestingPhaseEndedPayload struct {
	ID      uuid.UUID `json:"id"`
	EndedAt time.Time `json:"endedAt"`
}

// PastLockedPayload records a contest entering the locked past state.
type PastLockedPayload struct {
	ID       uuid.UUID `json:"id"`
	LockedAt time.Time `json:"lockedAt"`
}

// PastUnlockedPayload records an explicit admin unlock of a past contest.
type PastUnlockedPayload struct {
	ID         uuid.UUID `json:"id"`
	UnlockedAt time.Time `json:"unlockedAt"`
}

// ArchivedPayload records a contest being archived.
type ArchivedPayload struct {
	ID         uuid.UUID `json:"id"`
	ArchivedAt time.Time `json:"archivedAt"`
}

// ArchiveDateUpdatedPayload records a future archive date being scheduled.
type ArchiveDateUpdatedPayload struct {
	ID         uuid.UUID `json:"id"`
	ArchivePer time.Time `json:"archivePer"`
}

// MergedPayload is the merge summary recorded once per merge on the
// surviving contest stream.
type MergedPayload struct {
	MergedID        uuid.UUID   `json:"mergedId"`
	OldIDs          []uuid.UUID `json:"oldIds"`
	MovedBusinesses int         `json:"movedBusinesses"`
}

// ImportStartedPayload records a bulk import beginning.
type ImportStartedPayload struct {
	ID        uuid.UUID `json:"id"`
	StartedAt time.Time `json:"startedAt"`
}

// EVotingApprovedPayload records the e-voting approval sign-off.
type EVotingApprovedPayload struct {
	ID         uuid.UUID `json:"id"`
	ApprovedAt time.Time `json:"approvedAt"`
}

// PublicKeyCreatedPayload records new per-contest key material becoming
// active. Only the public half is in the payload.
type PublicKeyCreatedPayload struct {
	ContestID uuid.UUID `json:"contestId"`
	KeyID     string    `json:"keyId"`
	PublicKey []byte    `json:"publicKey"`
	ValidFrom time.Time `json:"validFrom"`
	ValidTo   time.Time `json:"validTo"`
}

// PublicKeyDeletedPayload records a key being retired.
type PublicKeyDeletedPayload struct {
	ContestID uuid.UUID `json:"contestId"`
	KeyID     string    `json:"keyId"`
}
