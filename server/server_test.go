package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xhad/seerah/internal/models"
	"github.com/xhad/seerah/pkg/assistant"
	"github.com/xhad/seerah/pkg/chat"
	"github.com/xhad/seerah/pkg/llm"
)

type fakePipeline struct {
	answer string
	pages  []string
}

func (f *fakePipeline) Answer(_ context.Context, question string) models.AnswerResult {
	return models.AnswerResult{Question: question, Answer: f.answer, Pages: f.pages}
}

func (f *fakePipeline) AnswerStream(ctx context.Context, question string) <-chan llm.StreamEvent {
	events := make(chan llm.StreamEvent, 16)
	go func() {
		defer close(events)
		for _, word := range strings.SplitAfter(f.answer, " ") {
			events <- llm.StreamEvent{Delta: word}
		}
		result := f.Answer(ctx, question)
		events <- llm.StreamEvent{Result: &result}
	}()
	return events
}

func (f *fakePipeline) Info() assistant.Info {
	return assistant.Info{Backend: "local", Chunks: 42, Dimension: 3}
}

func newTestServer(streaming bool) *Server {
	gin.SetMode(gin.TestMode)
	return New(Config{Streaming: streaming}, &fakePipeline{answer: "It was in the cave of Hira.", pages: []string{"2"}})
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func createSession(t *testing.T, h http.Handler) string {
	t.Helper()
	rec := do(t, h, http.MethodPost, "/api/sessions", "")
	require.Equal(t, http.StatusCreated, rec.Code)

	var body struct {
		ID       string               `json:"id"`
		Messages []models.ChatMessage `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Messages, 1)
	assert.Equal(t, chat.Welcome, body.Messages[0].Content)
	return body.ID
}

func TestHealth(t *testing.T) {
	rec := do(t, newTestServer(false).Handler(), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Status string         `json:"status"`
		Index  assistant.Info `json:"index"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, 42, body.Index.Chunks)
}

func TestQuestions(t *testing.T) {
	rec := do(t, newTestServer(false).Handler(), http.MethodGet, "/api/questions", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Questions []string `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, chat.SampleQuestions(), body.Questions)
}

func TestAsk(t *testing.T) {
	h := newTestServer(false).Handler()
	id := createSession(t, h)

	rec := do(t, h, http.MethodPost, "/api/sessions/"+id+"/ask", `{"question":"Where was the first revelation?"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var answer Answer
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.Equal(t, "It was in the cave of Hira.", answer.Answer)
	assert.Equal(t, []string{"2"}, answer.Pages)
	assert.Equal(t, "It was in the cave of Hira.\n\n**Source:** Page 2", answer.Content)
	assert.Len(t, answer.Suggestions, 3)
	assert.Empty(t, answer.Error)

	rec = do(t, h, http.MethodPost, "/api/sessions/"+id+"/ask", `{"preset":2}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.Equal(t, chat.SampleQuestions()[2], answer.Question)

	rec = do(t, h, http.MethodGet, "/api/sessions/"+id+"/history", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var history struct {
		Messages []models.ChatMessage `json:"messages"`
		Stats    chat.Stats           `json:"stats"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &history))
	assert.Len(t, history.Messages, 5)
	assert.Equal(t, chat.Stats{Questions: 2, Responses: 3}, history.Stats)
}

func TestAsk_BadRequests(t *testing.T) {
	h := newTestServer(false).Handler()
	id := createSession(t, h)

	tests := []struct {
		name string
		path string
		body string
		code int
	}{
		{"unknown session", "/api/sessions/nope/ask", `{"question":"hi"}`, http.StatusNotFound},
		{"malformed body", "/api/sessions/" + id + "/ask", `{`, http.StatusBadRequest},
		{"blank question", "/api/sessions/" + id + "/ask", `{"question":"   "}`, http.StatusBadRequest},
		{"preset out of range", "/api/sessions/" + id + "/ask", `{"preset":99}`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestExportAndEnd(t *testing.T) {
	h := newTestServer(false).Handler()
	id := createSession(t, h)

	rec := do(t, h, http.MethodGet, "/api/sessions/"+id+"/export", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/markdown")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "# Islamic History Chatbot - Chat History"))

	assert.Equal(t, http.StatusNoContent, do(t, h, http.MethodDelete, "/api/sessions/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodDelete, "/api/sessions/"+id, "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/api/sessions/"+id+"/history", "").Code)
}

func dial(t *testing.T, srv *Server) *websocket.Conn {
	t.Helper()
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	var hello Message
	require.NoError(t, conn.ReadJSON(&hello))
	assert.Equal(t, "session", hello.Type)
	assert.NotEmpty(t, hello.Content)
	return conn
}

// readUntil reads messages until one of type want arrives.
func readUntil(t *testing.T, conn *websocket.Conn, want string) (Message, []Message) {
	t.Helper()
	var seen []Message
	for {
		var msg Message
		require.NoError(t, conn.ReadJSON(&msg))
		if msg.Type == want {
			return msg, seen
		}
		seen = append(seen, msg)
	}
}

func TestWebSocket_Ask(t *testing.T) {
	conn := dial(t, newTestServer(false))

	require.NoError(t, conn.WriteJSON(Message{Type: "ask", Content: "Where was the first revelation?"}))
	answer, before := readUntil(t, conn, "answer")

	assert.Equal(t, "It was in the cave of Hira.\n\n**Source:** Page 2", answer.Content)
	require.Len(t, before, 1)
	assert.Equal(t, "status", before[0].Type)
}

func TestWebSocket_Streaming(t *testing.T) {
	conn := dial(t, newTestServer(true))

	require.NoError(t, conn.WriteJSON(Message{Type: "ask", Content: "Where?"}))
	answer, before := readUntil(t, conn, "answer")

	var streamed strings.Builder
	for _, m := range before {
		if m.Type == "stream" {
			streamed.WriteString(m.Content)
		}
	}
	assert.Equal(t, "It was in the cave of Hira.", streamed.String())
	assert.Contains(t, answer.Content, "**Source:** Page 2")
}

func TestWebSocket_PresetAndErrors(t *testing.T) {
	conn := dial(t, newTestServer(false))

	preset := 1
	require.NoError(t, conn.WriteJSON(Message{Type: "preset", Preset: &preset}))
	answer, _ := readUntil(t, conn, "answer")
	data, ok := answer.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, chat.SampleQuestions()[1], data["question"])

	require.NoError(t, conn.WriteJSON(Message{Type: "bogus"}))
	msg, _ := readUntil(t, conn, "error")
	assert.Contains(t, msg.Content, "bogus")

	require.NoError(t, conn.WriteJSON(Message{Type: "history"}))
	history, _ := readUntil(t, conn, "history")
	messages, ok := history.Data.([]any)
	require.True(t, ok)
	assert.Len(t, messages, 3)
}
