package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/hyperjump/copilot/internal/catalog"
	"github.com/hyperjump/copilot/internal/engine"
	"github.com/hyperjump/copilot/internal/indexer"
	"github.com/hyperjump/copilot/internal/ledger"
	"github.com/hyperjump/copilot/internal/models"
	"github.com/hyperjump/copilot/internal/synth"
	"go.uber.org/zap"
)

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Banner())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Health(r.Context()))
}

func (s *Server) handleDatabaseStatus(w http.ResponseWriter, r *http.Request) {
	st := s.engine.DatabaseStatus(r.Context())
	if !st.Loaded {
		s.respondJSON(w, http.StatusOK, map[string]interface{}{"loaded": false, "message": st.Message})
		return
	}
	s.respondJSON(w, http.StatusOK, st)
}

func (s *Server) handleGenerateSolutions(w http.ResponseWriter, r *http.Request) {
	var challenge models.ChallengeInput
	if err := json.NewDecoder(r.Body).Decode(&challenge); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Info("generate request",
		zap.Int("description_length", len(challenge.Description)),
		zap.Int("constraints", len(challenge.Constraints)))
	result, err := s.engine.GenerateSolutions(r.Context(), challenge)
	if err != nil {
		s.logger.Error("generation failed", zap.Error(err), zap.String("code", string(synth.CodeOf(err))))
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

type reindexRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleReindex(w http.ResponseWriter, r *http.Request) {
	var req reindexRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if v := r.URL.Query().Get("force"); v == "true" || v == "1" {
		req.Force = true
	}
	n, err := s.engine.Reindex(r.Context(), req.Force)
	if err != nil {
		s.logger.Error("reindex failed", zap.Error(err))
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]int{"technology_count": n})
}

func (s *Server) handleListSubmissions(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Ledger().ListAll())
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.engine.Ledger().ListPending())
}

func (s *Server) handleGetSubmission(w http.ResponseWriter, r *http.Request) {
	sub, err := s.engine.Ledger().Get(chi.URLParam(r, "id"))
	if err != nil {
		s.respondFailure(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, sub)
}

type reviewResponse struct {
	Message    string            `json:"message"`
	Submission models.Submission `json:"submission"`
}

func (s *Server) handleReviewSubmission(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req models.ReviewAction
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Action) == "" {
		s.respondError(w, http.StatusBadRequest, "action is required")
		return
	}
	sub, err := s.engine.Ledger().Review(r.Context(), id, req.Action, req.Feedback)
	if err != nil {
		if !errors.Is(err, ledger.ErrSubmissionNotFound) {
			s.logger.Error("review failed", zap.String("id", id), zap.Error(err))
		}
		s.respondFailure(w, err)
		return
	}
	s.logger.Info("submission reviewed", zap.String("id", id), zap.String("status", string(sub.Status)))
	s.respondJSON(w, http.StatusOK, reviewResponse{
		Message:    fmt.Sprintf("Submission %sd successfully", req.Action),
		Submission: sub,
	})
}

// statusFor maps the error taxonomy to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, engine.ErrInvalidChallenge):
		return http.StatusBadRequest
	case errors.Is(err, ledger.ErrSubmissionNotFound):
		return http.StatusNotFound
	case errors.Is(err, indexer.ErrIndexingFailed):
		return http.StatusBadGateway
	case errors.Is(err, catalog.ErrNotLoaded), errors.Is(err, catalog.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondFailure(w http.ResponseWriter, err error) {
	s.respondError(w, statusFor(err), err.Error())
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
