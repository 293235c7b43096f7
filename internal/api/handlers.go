package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/abhisek/cogniz/internal/session"
)

// StartSessionRequest is the body of POST /api/v1/sessions.
type StartSessionRequest struct {
	GameID    string `json:"gameId"`
	ClientKey string `json:"clientKey,omitempty"`
}

// SessionResponse describes an active session.
type SessionResponse struct {
	SessionID  string    `json:"sessionId"`
	GameID     string    `json:"gameId"`
	ClientKey  string    `json:"clientKey"`
	StartTime  time.Time `json:"startTime"`
	TrialCount int       `json:"trialCount"`
}

func sessionResponse(h *session.Handle) SessionResponse {
	return SessionResponse{
		SessionID:  h.ID(),
		GameID:     h.GameID(),
		ClientKey:  h.ClientKey(),
		StartTime:  h.StartTime(),
		TrialCount: len(h.Session().Trials),
	}
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	var req StartSessionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.GameID == "" {
		respondError(w, http.StatusBadRequest, "gameId is required")
		return
	}

	h, err := s.engine.StartSessionFor(r.Context(), req.ClientKey, req.GameID)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, sessionResponse(h))
}

// lookupSession resolves the {sessionId} path parameter to an active
// handle, writing a 404 when there is none.
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) (*session.Handle, bool) {
	id := chi.URLParam(r, "sessionId")
	h, ok := s.engine.Session(id)
	if !ok {
		respondError(w, http.StatusNotFound, "session not found or already ended")
		return nil, false
	}
	return h, true
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, sessionResponse(h))
}

func (s *Server) handleRecordTrial(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupSession(w, r)
	if !ok {
		return
	}

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read request body")
		return
	}
	in, err := session.ParseTrialInput(raw)
	if err != nil {
		var ve *session.ValidationError
		if !errors.As(err, &ve) {
			s.respondEngineError(w, r, err)
			return
		}
		respondError(w, http.StatusBadRequest, ve.Error())
		return
	}

	trial, err := s.engine.RecordTrial(r.Context(), h, in)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, trial)
}

func (s *Server) handleEndSession(w http.ResponseWriter, r *http.Request) {
	h, ok := s.lookupSession(w, r)
	if !ok {
		return
	}
	res, err := s.engine.EndSession(r.Context(), h)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.CognitiveProfile()
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

func (s *Server) handleSkills(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.Skills())
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.Registry().AllGames())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, s.engine.History(r.Context()))
}

func (s *Server) handleModuleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.ModuleStats(r.Context(), chi.URLParam(r, "gameId"))
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func (s *Server) handlePlan(w http.ResponseWriter, r *http.Request) {
	minutes, err := strconv.Atoi(r.URL.Query().Get("minutes"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "minutes must be an integer")
		return
	}
	plan, err := s.engine.ComposeSession(r.Context(), minutes)
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, plan)
}

func (s *Server) handleListRecoveries(w http.ResponseWriter, r *http.Request) {
	snaps, err := s.engine.PendingRecoveries(r.Context())
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, snaps)
}

func (s *Server) handleRecover(w http.ResponseWriter, r *http.Request) {
	res, err := s.engine.RecoverSession(r.Context(), chi.URLParam(r, "sessionId"))
	if err != nil {
		s.respondEngineError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, res)
}
