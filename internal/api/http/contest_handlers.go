package httpapi

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	domaincontest "github.com/contest-hub/contest-hub/internal/domain/contest"
)

// Data types for requests

type contestWriteRequest struct {
	ID                     *uuid.UUID `json:"id,omitempty"`
	Date                   time.Time  `json:"date"`
	EndOfTestingPhase      time.Time  `json:"end_of_testing_phase"`
	DomainOfInfluenceID    uuid.UUID  `json:"domain_of_influence_id"`
	PreviousContestID      *uuid.UUID `json:"previous_contest_id,omitempty"`
	EVoting                bool       `json:"e_voting"`
	EVotingFrom            *time.Time `json:"e_voting_from,omitempty"`
	EVotingTo              *time.Time `json:"e_voting_to,omitempty"`
	EVotingApprovalDueDate *time.Time `json:"e_voting_approval_due_date,omitempty"`
}

type availabilityRequest struct {
	Date                time.Time `json:"date"`
	DomainOfInfluenceID uuid.UUID `json:"domain_of_influence_id"`
}

type archiveRequest struct {
	ArchivePer *time.Time `json:"archive_per,omitempty"`
}

type contestResponse struct {
	ID                     uuid.UUID  `json:"id"`
	Date                   time.Time  `json:"date"`
	EndOfTestingPhase      time.Time  `json:"end_of_testing_phase"`
	ArchivePer             *time.Time `json:"archive_per,omitempty"`
	PastLockPer            time.Time  `json:"past_lock_per"`
	PreviousContestID      *uuid.UUID `json:"previous_contest_id,omitempty"`
	DomainOfInfluenceID    uuid.UUID  `json:"domain_of_influence_id"`
	EVoting                bool       `json:"e_voting"`
	EVotingFrom            *time.Time `json:"e_voting_from,omitempty"`
	EVotingTo              *time.Time `json:"e_voting_to,omitempty"`
	EVotingApproved        bool       `json:"e_voting_approved"`
	EVotingApprovalDueDate *time.Time `json:"e_voting_approval_due_date,omitempty"`
	State                  string     `json:"state"`
	Editability            string     `json:"editability"`
}

func toContestResponse(c *domaincontest.Contest) *contestResponse {
	return &contestResponse{
		ID:                     c.ID,
		Date:                   c.Date,
		EndOfTestingPhase:      c.EndOfTestingPhase,
		ArchivePer:             c.ArchivePer,
		PastLockPer:            c.PastLockPer,
		PreviousContestID:      c.PreviousContestID,
		DomainOfInfluenceID:    c.DomainOfInfluenceID,
		EVoting:                c.EVoting,
		EVotingFrom:            c.EVotingFrom,
		EVotingTo:              c.EVotingTo,
		EVotingApproved:        c.EVotingApproved,
		EVotingApprovalDueDate: c.EVotingApprovalDueDate,
		State:                  string(c.State),
		Editability:            string(c.Editability()),
	}
}

func (s *Server) createContest(w http.ResponseWriter, r *http.Request) {
	var req contestWriteRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}

	input := domaincontest.CreateInput{
		Date:                   req.Date,
		EndOfTestingPhase:      req.EndOfTestingPhase,
		DomainOfInfluenceID:    req.DomainOfInfluenceID,
		PreviousContestID:      req.PreviousContestID,
		EVoting:                req.EVoting,
		EVotingFrom:            req.EVotingFrom,
		EVotingTo:              req.EVotingTo,
		EVotingApprovalDueDate: req.EVotingApprovalDueDate,
	}
	if req.ID != nil {
		input.ID = *req.ID
	}

	c, err := s.contestSvc.Create(r.Context(), input)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toContestResponse(c))
}

func (s *Server) listContests(w http.ResponseWriter, r *http.Request) {
	var states []domaincontest.State
	if st := r.URL.Query().Get("state"); st != "" {
		states = append(states, domaincontest.State(st))
	}
	contests, err := s.contestSvc.List(r.Context(), states...)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	out := make([]*contestResponse, 0, len(contests))
	for _, c := range contests {
		out = append(out, toContestResponse(c))
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"contests": out})
}

func (s *Server) checkAvailability(w http.ResponseWriter, r *http.Request) {
	var req availabilityRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	result, err := s.contestSvc.CheckAvailability(r.Context(), req.Date, req.DomainOfInfluenceID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"classification":          result.Classification,
		"conflicting_contest_ids": result.ConflictingContestIDs,
	})
}

func (s *Server) getContest(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "contestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contestId")
		return
	}
	c, err := s.contestSvc.Get(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toContestResponse(c))
}

func (s *Server) updateContest(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "contestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contestId")
		return
	}
	var req contestWriteRequest
	if err := decodeBody(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
		return
	}
	c, err := s.contestSvc.Update(r.Context(), id, domaincontest.UpdateInput{
		Date:                   req.Date,
		EndOfTestingPhase:      req.EndOfTestingPhase,
		DomainOfInfluenceID:    req.DomainOfInfluenceID,
		PreviousContestID:      req.PreviousContestID,
		EVoting:                req.EVoting,
		EVotingFrom:            req.EVotingFrom,
		EVotingTo:              req.EVotingTo,
		EVotingApprovalDueDate: req.EVotingApprovalDueDate,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, toContestResponse(c))
}

func (s *Server) deleteContest(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "contestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contestId")
		return
	}
	if err := s.contestSvc.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"contest_id": id, "status": "DELETED"})
}

func (s *Server) archiveContest(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "contestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contestId")
		return
	}
	var req archiveRequest
	_ = decodeBody(r, &req)
	if err := s.contestSvc.Archive(r.Context(), id, req.ArchivePer); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"contest_id": id, "archive_per": req.ArchivePer})
}

func (s *Server) pastUnlockContest(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "contestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contestId")
		return
	}
	if err := s.contestSvc.PastUnlock(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"contest_id": id, "state": domaincontest.StatePastUnlocked})
}

func (s *Server) endTestingPhase(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "contestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contestId")
		return
	}
	applied, err := s.contestSvc.EndTestingPhase(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if !applied {
		respondError(w, http.StatusPreconditionFailed, "TESTING_PHASE_NOT_DUE", "end of testing phase not reached")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"contest_id": id, "state": domaincontest.StateActive})
}

func (s *Server) approveEVoting(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "contestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contestId")
		return
	}
	if err := s.contestSvc.ApproveEVoting(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"contest_id": id, "e_voting_approved": true})
}

func (s *Server) startContestImport(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "contestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contestId")
		return
	}
	if err := s.contestSvc.StartContestImport(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"contest_id": id, "status": "IMPORT_STARTED"})
}

func (s *Server) startBusinessesImport(w http.ResponseWriter, r *http.Request) {
	id, err := parseUUIDParam(r, "contestId")
	if err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", "invalid contestId")
		return
	}
	if err := s.contestSvc.StartPoliticalBusinessesImport(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"contest_id": id, "status": "IMPORT_STARTED"})
}
