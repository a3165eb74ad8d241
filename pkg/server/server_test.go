package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atelier-ai/atelier/pkg/agent"
	"github.com/atelier-ai/atelier/pkg/config"
	"github.com/atelier-ai/atelier/pkg/llms"
	"github.com/atelier-ai/atelier/pkg/rag"
	"github.com/atelier-ai/atelier/pkg/session"
)

type fakeRunner struct {
	name    string
	err     error
	history []llms.Message
}

func (f *fakeRunner) Name() string { return f.name }

func (f *fakeRunner) Run(ctx context.Context, history []llms.Message, input string, sink agent.TextSink) (*agent.RunResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.history = history
	text := "echo: " + input
	if sink != nil {
		sink("echo: ")
		sink(input)
	}
	return &agent.RunResult{Text: text, TokensUsed: 7}, nil
}

type fakeAnswerer struct {
	answer *rag.Answer
	err    error
}

func (f *fakeAnswerer) Answer(ctx context.Context, question string) (*rag.Answer, error) {
	return f.answer, f.err
}

func newTestServer(t *testing.T, answerer Answerer) (*Server, session.Store) {
	t.Helper()
	store := session.NewMemoryStore()
	t.Cleanup(func() { store.Close() })

	cfg := config.ServerConfig{}
	cfg.SetDefaults()
	cfg.EnableMetrics = true

	return New(cfg, Options{
		Agents:   map[string]Runner{"assistant": &fakeRunner{name: "assistant"}},
		Sessions: store,
		Answerer: answerer,
	}), store
}

func postJSON(t *testing.T, handler http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"ok"`)
}

func TestAgentMessage(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/v1/agents/assistant/messages", messageRequest{Message: "hello"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp messageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "echo: hello", resp.Text)
	assert.Equal(t, 7, resp.TokensUsed)
}

func TestAgentMessageUnknownAgent(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := postJSON(t, srv.Handler(), "/v1/agents/nope/messages", messageRequest{Message: "hi"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAgentMessageRequiresMessage(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := postJSON(t, srv.Handler(), "/v1/agents/assistant/messages", messageRequest{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAgentMessageWithSession(t *testing.T) {
	srv, store := newTestServer(t, nil)
	handler := srv.Handler()
	ctx := context.Background()

	sess, err := store.CreateSession(ctx, "assistant")
	require.NoError(t, err)
	require.NoError(t, store.AppendMessage(ctx, sess.ID, llms.RoleUser, "earlier question"))
	require.NoError(t, store.AppendMessage(ctx, sess.ID, llms.RoleAssistant, "earlier answer"))

	rec := postJSON(t, handler, "/v1/agents/assistant/messages", messageRequest{
		SessionID: sess.ID,
		Message:   "follow-up",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	runner := srv.agents["assistant"].(*fakeRunner)
	require.Len(t, runner.history, 2)
	assert.Equal(t, "earlier question", runner.history[0].Content)

	messages, err := store.Messages(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, messages, 4)
	assert.Equal(t, "follow-up", messages[2].Content)
	assert.Equal(t, "echo: follow-up", messages[3].Content)
}

func TestAgentMessageStreaming(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := postJSON(t, srv.Handler(), "/v1/agents/assistant/messages", messageRequest{
		Message: "stream me",
		Stream:  true,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))

	body := rec.Body.String()
	assert.Contains(t, body, `"echo: "`)
	assert.Contains(t, body, `"stream me"`)
	assert.Contains(t, body, `"done":true`)
}

func TestAgentMessageRunFailure(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	srv.agents["broken"] = &fakeRunner{name: "broken", err: fmt.Errorf("provider unreachable")}
	rec := postJSON(t, srv.Handler(), "/v1/agents/broken/messages", messageRequest{Message: "hi"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "provider unreachable")
}

func TestAnswer(t *testing.T) {
	srv, _ := newTestServer(t, &fakeAnswerer{answer: &rag.Answer{
		Text:     "Cats sleep a lot.",
		Sources:  []string{"animals.md"},
		Grounded: true,
	}})
	rec := postJSON(t, srv.Handler(), "/v1/answer", answerRequest{Question: "do cats sleep?"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp answerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Cats sleep a lot.", resp.Text)
	assert.Equal(t, []string{"animals.md"}, resp.Sources)
	assert.True(t, resp.Grounded)
}

func TestAnswerNotConfigured(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := postJSON(t, srv.Handler(), "/v1/answer", answerRequest{Question: "anything"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSessionLifecycle(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	handler := srv.Handler()

	rec := postJSON(t, handler, "/v1/sessions", createSessionRequest{Agent: "assistant"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var sess session.Session
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sess))
	require.NotEmpty(t, sess.ID)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), sess.ID)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/sessions/"+sess.ID+"/messages", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"messages":[]`)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+sess.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/v1/sessions/"+sess.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSessionUnknownAgent(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := postJSON(t, srv.Handler(), "/v1/sessions", createSessionRequest{Agent: "ghost"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "go_") ||
		strings.Contains(rec.Body.String(), "atelier_"))
}
