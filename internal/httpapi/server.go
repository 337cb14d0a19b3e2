// Package httpapi mounts the crisis pipeline's orchestrator and resource
// registry behind an HTTP surface, using github.com/go-chi/chi/v5 for
// routing the way the cmd/ entrypoint this module descends from mounts its
// generated handlers.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/nzcrisisline/safetypipeline/internal/audit"
	"github.com/nzcrisisline/safetypipeline/internal/domain"
	"github.com/nzcrisisline/safetypipeline/internal/model"
	"github.com/nzcrisisline/safetypipeline/internal/orchestrator"
	"github.com/nzcrisisline/safetypipeline/internal/resourceregistry"
	"github.com/nzcrisisline/safetypipeline/internal/telemetry"
)

// Server bundles the dependencies the HTTP handlers need.
type Server struct {
	orchestrator *orchestrator.Orchestrator
	registry     *resourceregistry.Registry
	audit        audit.Store
	obs          telemetry.Observability
}

// New constructs a Server.
func New(o *orchestrator.Orchestrator, registry *resourceregistry.Registry, store audit.Store, obs telemetry.Observability) *Server {
	return &Server{orchestrator: o, registry: registry, audit: store, obs: obs}
}

// Router builds the chi router mounting every route §6.1 names.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Post("/v1/turns", s.handleTurn)
	r.Get("/v1/crisis-events/{id}", s.handleGetCrisisEvent)
	r.Post("/v1/verify", s.handleVerify)
	r.Get("/healthz", s.handleHealthz)

	return r
}

type turnRequest struct {
	UserText            string           `json:"user_text"`
	ConversationHistory []historyMessage `json:"conversation_history,omitempty"`
	Region              string           `json:"region"`
	UserID              string           `json:"user_id"`
	ConversationID      string           `json:"conversation_id"`
	MessageID           string           `json:"message_id,omitempty"`
}

type historyMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type turnResponse struct {
	FinalText                string `json:"final_text"`
	Risk                     string `json:"risk"`
	EventID                  string `json:"event_id,omitempty"`
	MessageID                string `json:"message_id,omitempty"`
	Degraded                 bool   `json:"degraded"`
	AIFailureDetected        bool   `json:"ai_failure_detected"`
	ModelDegradationDetected bool   `json:"model_degradation_detected"`
}

func (s *Server) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserText == "" {
		writeError(w, http.StatusBadRequest, "user_text is required")
		return
	}

	history := make([]model.Message, 0, len(req.ConversationHistory))
	for _, m := range req.ConversationHistory {
		history = append(history, model.Message{Role: model.ConversationRole(m.Role), Content: m.Content})
	}

	resp, err := s.orchestrator.HandleTurn(r.Context(), orchestrator.TurnRequest{
		UserText:            req.UserText,
		ConversationHistory: history,
		Region:              domain.ParseRegion(req.Region),
		UserID:              req.UserID,
		ConversationID:      req.ConversationID,
		MessageID:           req.MessageID,
	})
	if err != nil {
		s.obs.Logger.Error(r.Context(), "turn handling failed", "error", err.Error())
		writeError(w, http.StatusInternalServerError, "failed to process turn")
		return
	}

	writeJSON(w, http.StatusOK, turnResponse{
		FinalText:                resp.FinalText,
		Risk:                     string(resp.Risk),
		EventID:                  resp.EventID,
		MessageID:                resp.MessageID,
		Degraded:                 resp.Degraded,
		AIFailureDetected:        resp.AIFailureDetected,
		ModelDegradationDetected: resp.ModelDegradationDetected,
	})
}

func (s *Server) handleGetCrisisEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	event, err := s.audit.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "crisis event not found")
		return
	}
	writeJSON(w, http.StatusOK, event)
}

type verifyRequest struct {
	TargetResourceID string `json:"target_resource_id"`
	VerifierID       string `json:"verifier_id"`
	Method           string `json:"method"`
	Outcome          string `json:"outcome"`
	Notes            string `json:"notes"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	event := &resourceregistry.VerificationEvent{
		TargetResourceID: req.TargetResourceID,
		AttemptedAt:      time.Now(),
		VerifierID:       req.VerifierID,
		Method:           req.Method,
		Outcome:          domain.VerificationOutcome(req.Outcome),
		Notes:            req.Notes,
	}
	if err := s.registry.RecordVerification(r.Context(), event); err != nil {
		s.obs.Logger.Error(r.Context(), "record verification failed", "error", err.Error())
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "recorded"})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
