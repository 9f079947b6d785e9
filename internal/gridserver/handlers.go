package gridserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/latticeforge/gridlex/internal/session"
	"github.com/latticeforge/gridlex/pkg/guide"
	"github.com/latticeforge/gridlex/pkg/index"
	"github.com/latticeforge/gridlex/pkg/vocabulary"
)

// Service wires the grammar registry and session store into HTTP handlers.
type Service struct {
	grammars   *GrammarRegistry
	sessions   *session.Store
	sessionTTL time.Duration
	log        *zap.Logger
}

// NewService returns a Service. log may be nil, in which case a no-op
// logger is used.
func NewService(grammars *GrammarRegistry, sessions *session.Store, sessionTTL time.Duration, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{grammars: grammars, sessions: sessions, sessionTTL: sessionTTL, log: log}
}

type compileResponse struct {
	GrammarID string `json:"grammar_id"`
}

func (s *Service) handleCompileGrammar(w http.ResponseWriter, r *http.Request) {
	var req CompileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	grammarID, _, err := s.grammars.Compile(req)
	if err != nil {
		s.log.Warn("grammar compile failed", zap.Error(err))
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, compileResponse{GrammarID: grammarID})
}

type beginSessionRequest struct {
	GrammarID string `json:"grammar_id"`
}

type sessionResponse struct {
	SessionID     string               `json:"session_id"`
	AllowedTokens []vocabulary.TokenID `json:"allowed_tokens"`
	Finished      bool                 `json:"finished"`
}

func (s *Service) handleBeginSession(w http.ResponseWriter, r *http.Request) {
	var req beginSessionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	idx, ok := s.grammars.Get(req.GrammarID)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("unknown grammar_id"))
		return
	}
	g := guide.New(idx)
	id, err := s.sessions.Begin(r.Context(), req.GrammarID, g, s.sessionTTL)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:     id,
		AllowedTokens: g.AllowedTokens(),
		Finished:      g.IsFinished(),
	})
}

type advanceRequest struct {
	TokenID vocabulary.TokenID `json:"token_id"`
}

func (s *Service) handleAdvanceSession(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	var req advanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	snap, err := s.sessions.Load(r.Context(), sessionID)
	if err != nil {
		writeError(w, http.StatusNotFound, err)
		return
	}
	idx, ok := s.grammars.Get(snap.GrammarID)
	if !ok {
		writeError(w, http.StatusNotFound, errors.New("grammar for session no longer registered"))
		return
	}

	allowed, state, err := s.sessions.Advance(r.Context(), sessionID, idx, req.TokenID, s.sessionTTL)
	if err != nil {
		writeError(w, http.StatusConflict, err)
		return
	}
	finished := state == index.Terminal
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID:     sessionID,
		AllowedTokens: allowed,
		Finished:      finished,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
