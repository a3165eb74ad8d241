package server

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/atelier-ai/atelier/pkg/llms"
	"github.com/atelier-ai/atelier/pkg/session"
)

type messageRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
	Stream    bool   `json:"stream,omitempty"`
}

type messageResponse struct {
	SessionID  string `json:"session_id,omitempty"`
	Text       string `json:"text"`
	ToolCalls  int    `json:"tool_calls"`
	TokensUsed int    `json:"tokens_used"`
}

type answerRequest struct {
	Question string `json:"question"`
}

type answerResponse struct {
	Text          string   `json:"text"`
	Sources       []string `json:"sources,omitempty"`
	UsedWebSearch bool     `json:"used_web_search"`
	Grounded      bool     `json:"grounded"`
}

type createSessionRequest struct {
	Agent string `json:"agent"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, map[string]string{"error": fmt.Sprintf(format, args...)})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListAgents(w http.ResponseWriter, r *http.Request) {
	names := make([]string, 0, len(s.agents))
	for name := range s.agents {
		names = append(names, name)
	}
	sort.Strings(names)
	writeJSON(w, http.StatusOK, map[string][]string{"agents": names})
}

func (s *Server) handleAgentMessage(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "agent")
	runner, ok := s.agents[name]
	if !ok {
		writeError(w, http.StatusNotFound, "unknown agent: %s", name)
		return
	}

	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Message == "" {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	ctx := r.Context()
	var history []llms.Message
	if req.SessionID != "" {
		stored, err := s.sessions.Messages(ctx, req.SessionID)
		if err != nil {
			writeError(w, http.StatusNotFound, "%v", err)
			return
		}
		history = toLLMMessages(stored)
	}

	if req.Stream {
		s.streamAgentMessage(w, r, runner, history, req)
		return
	}

	result, err := runner.Run(ctx, history, req.Message, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "agent run failed: %v", err)
		return
	}

	if req.SessionID != "" {
		s.recordTurn(r, req.SessionID, req.Message, result.Text)
	}

	writeJSON(w, http.StatusOK, messageResponse{
		SessionID:  req.SessionID,
		Text:       result.Text,
		ToolCalls:  result.ToolCalls,
		TokensUsed: result.TokensUsed,
	})
}

func (s *Server) streamAgentMessage(w http.ResponseWriter, r *http.Request, runner Runner, history []llms.Message, req messageRequest) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sink := func(text string) {
		payload, _ := json.Marshal(map[string]string{"text": text})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
	}

	result, err := runner.Run(r.Context(), history, req.Message, sink)
	if err != nil {
		payload, _ := json.Marshal(map[string]string{"error": err.Error()})
		fmt.Fprintf(w, "data: %s\n\n", payload)
		flusher.Flush()
		return
	}

	if req.SessionID != "" {
		s.recordTurn(r, req.SessionID, req.Message, result.Text)
	}

	payload, _ := json.Marshal(map[string]any{
		"done":        true,
		"tool_calls":  result.ToolCalls,
		"tokens_used": result.TokensUsed,
	})
	fmt.Fprintf(w, "data: %s\n\n", payload)
	flusher.Flush()
}

// recordTurn persists the exchange; failures are logged, not surfaced,
// since the answer was already produced.
func (s *Server) recordTurn(r *http.Request, sessionID, input, output string) {
	ctx := r.Context()
	if err := s.sessions.AppendMessage(ctx, sessionID, llms.RoleUser, input); err != nil {
		slog.Error("failed to persist user message", "session", sessionID, "error", err)
		return
	}
	if err := s.sessions.AppendMessage(ctx, sessionID, llms.RoleAssistant, output); err != nil {
		slog.Error("failed to persist assistant message", "session", sessionID, "error", err)
	}
}

func (s *Server) handleAnswer(w http.ResponseWriter, r *http.Request) {
	if s.answerer == nil {
		writeError(w, http.StatusNotFound, "retrieval answering is not configured")
		return
	}

	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	answer, err := s.answerer.Answer(r.Context(), req.Question)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "answer failed: %v", err)
		return
	}

	writeJSON(w, http.StatusOK, answerResponse{
		Text:          answer.Text,
		Sources:       answer.Sources,
		UsedWebSearch: answer.UsedWebSearch,
		Grounded:      answer.Grounded,
	})
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: %v", err)
		return
	}
	if _, ok := s.agents[req.Agent]; !ok {
		writeError(w, http.StatusBadRequest, "unknown agent: %s", req.Agent)
		return
	}

	sess, err := s.sessions.CreateSession(r.Context(), req.Agent)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to create session: %v", err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := s.sessions.ListSessions(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sessions: %v", err)
		return
	}
	if sessions == nil {
		sessions = []*session.Session{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sessions": sessions})
}

func (s *Server) handleSessionMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	messages, err := s.sessions.Messages(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusNotFound, "%v", err)
		return
	}
	if messages == nil {
		messages = []session.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": messages})
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.sessions.DeleteSession(r.Context(), id); err != nil {
		writeError(w, http.StatusNotFound, "%v", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toLLMMessages(stored []session.Message) []llms.Message {
	out := make([]llms.Message, 0, len(stored))
	for _, m := range stored {
		out = append(out, llms.Message{Role: m.Role, Content: m.Content})
	}
	return out
}
