package business

import (
	"time"

	"github.com/google/uuid"
)

// Event types recorded on dependent-entity streams.
const (
	EventVoteMoved          = "vote.moved_to_new_contest"
	EventElectionMoved      = "election.moved_to_new_contest"
	EventUnionMoved         = "political_business_union.moved_to_new_contest"
	EventElectionGroupMoved = "election_group.moved_to_new_contest"

	EventVoteEVotingApproved     = "vote.e_voting_approved"
	EventElectionEVotingApproved = "election.e_voting_approved"
)

// MovedPayload records an entity being retargeted to a new contest during a
// merge.
type MovedPayload struct {
	ID           uuid.UUID `json:"id"`
	NewContestID uuid.UUID `json:"newContestId"`
}

// EVotingApprovedPayload records the e-voting approval of one business.
type EVotingApprovedPayload struct {
	ID         uuid.UUID `json:"id"`
	ApprovedAt time.Time `json:"approvedAt"`
}

func movedEventType(k Kind) string {
	if k == KindElection {
		return EventElectionMoved
	}
	return EventVoteMoved
}

func approvedEventType(k Kind) string {
	if k == KindElection {
		return EventElectionEVotingApproved
	}
	return EventVoteEVotingApproved
}
