// Package business models the entities that belong to a contest: votes and
// elections (political businesses), political business unions and election
// groups. To the lifecycle core they are opaque payloads; the only mutations
// are the merge-driven move to a new contest and the e-voting approval.
package business

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the dependent entity type.
type Kind string

const (
	KindVote          Kind = "VOTE"
	KindElection      Kind = "ELECTION"
	KindUnion         Kind = "POLITICAL_BUSINESS_UNION"
	KindElectionGroup Kind = "ELECTION_GROUP"
)

// Change is an uncommitted domain event raised by an aggregate method.
type Change struct {
	Type    string
	Payload any
}

// PoliticalBusiness is a vote or election belonging to a contest.
type PoliticalBusiness struct {
	ID                  uuid.UUID
	ContestID           uuid.UUID
	DomainOfInfluenceID uuid.UUID
	Kind                Kind
	EVoting             bool
	EVotingApproved     bool
	// Payload carries the business-specific configuration (ballots,
	// candidates, lists); the lifecycle core never inspects it.
	Payload json.RawMessage

	Version int64
	changes []Change
}

// MoveToContest retargets the business to a new contest. Moving to the
// current contest is a no-op so merge recovery can re-run safely.
func (b *PoliticalBusiness) MoveToContest(newContestID uuid.UUID) bool {
	if b.ContestID == newContestID {
		return false
	}
	b.ContestID = newContestID
	b.raise(movedEventType(b.Kind), MovedPayload{ID: b.ID, NewContestID: newContestID})
	return true
}

// ApproveEVoting marks an e-voting-enabled business as approved. Returns
// false when nothing changed.
func (b *PoliticalBusiness) ApproveEVoting(now time.Time) bool {
	if !b.EVoting || b.EVotingApproved {
		return false
	}
	b.EVotingApproved = true
	b.raise(approvedEventType(b.Kind), EVotingApprovedPayload{ID: b.ID, ApprovedAt: now.UTC()})
	return true
}

// DrainChanges returns and clears the uncommitted events.
func (b *PoliticalBusiness) DrainChanges() []Change {
	out := b.changes
	b.changes = nil
	return out
}

func (b *PoliticalBusiness) raise(eventType string, payload any) {
	b.changes = append(b.changes, Change{Type: eventType, Payload: payload})
}

// Union is a political business union belonging to a contest.
type Union struct {
	ID        uuid.UUID
	ContestID uuid.UUID
	Payload   json.RawMessage

	Version int64
	changes []Change
}

func (u *Union) MoveToContest(newContestID uuid.UUID) bool {
	if u.ContestID == newContestID {
		return false
	}
	u.ContestID = newContestID
	u.changes = append(u.changes, Change{Type: EventUnionMoved, Payload: MovedPayload{ID: u.ID, NewContestID: newContestID}})
	return true
}

func (u *Union) DrainChanges() []Change {
	out := u.changes
	u.changes = nil
	return out
}

// ElectionGroup groups primary and secondary elections within a contest.
type ElectionGroup struct {
	ID        uuid.UUID
	ContestID uuid.UUID
	Payload   json.RawMessage

	Version int64
	changes []Change
}

func (g *ElectionGroup) MoveToContest(newContestID uuid.UUID) bool {
	if g.ContestID == newContestID {
		return false
	}
	g.ContestID = newContestID
	g.changes = append(g.changes, Change{Type: EventElectionGroupMoved, Payload: MovedPayload{ID: g.ID, NewContestID: newContestID}})
	return true
}

func (g *ElectionGroup) DrainChanges() []Change {
	out := g.changes
	g.changes = nil
	return out
}
