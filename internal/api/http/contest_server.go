// Package httpapi exposes the contest lifecycle operations over HTTP.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	appcontest "github.com/contest-hub/contest-hub/internal/application/contest"
	domaincontest "github.com/contest-hub/contest-hub/internal/domain/contest"
	"github.com/contest-hub/contest-hub/internal/eventstore"
)

// Server holds dependencies for HTTP handlers.
type Server struct {
	contestSvc *appcontest.Service
}

func NewServer(contestSvc *appcontest.Service) *Server {
	return &Server{contestSvc: contestSvc}
}

// Router builds the HTTP router.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/v1", func(r chi.Router) {
		r.Route("/contests", func(r chi.Router) {
			r.Post("/", s.createContest)
			r.Get("/", s.listContests)
			r.Post("/check-availability", s.checkAvailability)
			r.Get("/{contestId}", s.getContest)
			r.Put("/{contestId}", s.updateContest)
			r.Delete("/{contestId}", s.deleteContest)
			r.Post("/{contestId}/archive", s.archiveContest)
			r.Post("/{contestId}/past-unlock", s.pastUnlockContest)
			r.Post("/{contestId}/end-testing-phase", s.endTestingPhase)
			r.Post("/{contestId}/approve-e-voting", s.approveEVoting)
			r.Post("/{contestId}/imports/contest", s.startContestImport)
			r.Post("/{contestId}/imports/political-businesses", s.startBusinessesImport)
		})
	})

	return r
}

// Helpers
func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   code,
		"message": message,
	})
}

// respondServiceError maps domain and application errors to HTTP status
// codes: validation 400, not found 404, conflicts 409, illegal lifecycle
// state 412.
func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, appcontest.ErrNotFound):
		respondError(w, http.StatusNotFound, "NOT_FOUND", err.Error())
	case errors.Is(err, appcontest.ErrInvalidID),
		errors.Is(err, domaincontest.ErrDateUndefined),
		errors.Is(err, domaincontest.ErrDateImmutable),
		errors.Is(err, domaincontest.ErrDomainOfInfluenceImmutable),
		errors.Is(err, domaincontest.ErrTestingPhaseLead),
		errors.Is(err, domaincontest.ErrEVotingWindow),
		errors.Is(err, domaincontest.ErrArchivePerInPast):
		respondError(w, http.StatusBadRequest, "INVALID_PARAM", err.Error())
	case errors.Is(err, appcontest.ErrDateConflict),
		errors.Is(err, appcontest.ErrReferencedAsPreviousContest),
		errors.Is(err, domaincontest.ErrImportAlreadyRunning),
		eventstore.IsConflict(err):
		respondError(w, http.StatusConflict, "CONFLICT", err.Error())
	case errors.Is(err, domaincontest.ErrInvalidTransition),
		errors.Is(err, domaincontest.ErrContestLocked),
		errors.Is(err, domaincontest.ErrNotInTestingPhase):
		respondError(w, http.StatusPreconditionFailed, "ILLEGAL_STATE", err.Error())
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
	}
}

func parseUUIDParam(r *http.Request, key string) (uuid.UUID, error) {
	val := chi.URLParam(r, key)
	return uuid.Parse(val)
}

func decodeBody(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
