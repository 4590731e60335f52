package server

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/perviz24/innovati-x/internal/pipeline"
	"github.com/perviz24/innovati-x/internal/server/middleware"
	"github.com/perviz24/innovati-x/internal/types"
)

// CreateChallengeRequest is the body for POST /challenges.
type CreateChallengeRequest struct {
	Title       string `json:"title" validate:"max=100"`
	Description string `json:"description" validate:"required,min=20"`
}

// handleCreateChallenge creates a new challenge in pending state.
func (s *Server) handleCreateChallenge(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var req CreateChallengeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	req.Description = strings.TrimSpace(req.Description)
	if err := s.validator.Struct(req); err != nil {
		s.errorResponse(w, http.StatusBadRequest, firstValidationError(err))
		return
	}

	id, err := s.challenges.CreateChallenge(r.Context(), userID, req.Title, req.Description)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	challenge, err := s.challenges.GetChallenge(r.Context(), id, userID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusCreated, challenge)
}

// handleListChallenges returns the caller's challenges, most recent first.
// Stage payloads are omitted from listings.
func (s *Server) handleListChallenges(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	challenges, err := s.challenges.ListChallenges(r.Context(), userID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if challenges == nil {
		challenges = []types.Challenge{}
	}
	s.jsonResponse(w, http.StatusOK, challenges)
}

// handleGetChallenge returns one challenge with all persisted stage payloads.
func (s *Server) handleGetChallenge(w http.ResponseWriter, r *http.Request) {
	userID, challengeID, ok := s.authAndID(w, r)
	if !ok {
		return
	}

	challenge, err := s.challenges.GetChallenge(r.Context(), challengeID, userID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, challenge)
}

// handleDeleteChallenge removes a challenge and its results.
func (s *Server) handleDeleteChallenge(w http.ResponseWriter, r *http.Request) {
	userID, challengeID, ok := s.authAndID(w, r)
	if !ok {
		return
	}

	if err := s.challenges.DeleteChallenge(r.Context(), challengeID, userID); err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// handleAnalyze starts an analysis run for the challenge. The run continues
// after the response is written; clients poll GET /challenges/{id} for
// per-stage progress.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	userID, challengeID, ok := s.authAndID(w, r)
	if !ok {
		return
	}

	challenge, err := s.challenges.GetChallenge(r.Context(), challengeID, userID)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}
	if challenge.Status != types.ChallengePending && challenge.Status != types.ChallengeFailed {
		conflict := &pipeline.ConflictError{Status: challenge.Status}
		s.errorResponse(w, HTTPStatus(conflict), conflict.Error())
		return
	}

	// Disconnecting the client must not abort a multi-minute run.
	runCtx := context.WithoutCancel(r.Context())
	go func() {
		if err := s.runner.Run(runCtx, challengeID, userID, challenge.Description); err != nil {
			log.Printf("analysis run for challenge %s ended with error: %v", challengeID, err)
		}
	}()

	s.jsonResponse(w, http.StatusAccepted, map[string]string{
		"id":     challengeID.String(),
		"status": string(types.ChallengeAnalyzing),
	})
}

// authAndID extracts the authenticated user and the {id} path parameter,
// writing the error response itself when either is missing.
func (s *Server) authAndID(w http.ResponseWriter, r *http.Request) (userID, challengeID uuid.UUID, ok bool) {
	userID, err := middleware.GetUserID(r)
	if err != nil {
		s.errorResponse(w, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, uuid.Nil, false
	}

	challengeID, err = uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.errorResponse(w, http.StatusBadRequest, "Invalid challenge ID")
		return uuid.Nil, uuid.Nil, false
	}
	return userID, challengeID, true
}
