package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/xhad/seerah/internal/logger"
	"github.com/xhad/seerah/pkg/chat"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Message is the websocket envelope in both directions. Clients send
// ask, preset, samples and history; the server replies with session,
// status, stream, answer, samples, history and error.
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content,omitempty"`
	Preset  *int   `json:"preset,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// wsConn serialises writes; gorilla connections allow one writer at a time.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Warn("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	session := s.sessions.Create()
	defer s.sessions.End(session.ID())

	ws := &wsConn{conn: conn}
	ws.sendMessage(Message{Type: "session", Content: session.ID(), Data: session.History()})

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("error reading message: %v", err)
			}
			cancel()
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			ws.send("error", fmt.Sprintf("invalid message: %v", err))
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			s.handleMessage(ctx, ws, session, msg)
		}()
	}
}

func (s *Server) handleMessage(ctx context.Context, ws *wsConn, session *chat.Session, msg Message) {
	switch msg.Type {
	case "ask":
		if chat.CleanText(msg.Content) == "" {
			ws.send("error", "question is empty")
			return
		}
		s.answer(ctx, ws, session, msg.Content)

	case "preset":
		if msg.Preset == nil {
			ws.send("error", "preset index is required")
			return
		}
		question, err := session.QueuePreset(*msg.Preset)
		if err != nil {
			ws.send("error", err.Error())
			return
		}
		ws.send("status", fmt.Sprintf("Asking: %s", question))
		reply, result, _ := session.ProcessPending(ctx)
		ws.sendMessage(Message{Type: "answer", Content: reply.Content, Data: newAnswer(reply, result)})

	case "samples":
		ws.sendMessage(Message{Type: "samples", Data: chat.SampleQuestions()})

	case "history":
		ws.sendMessage(Message{Type: "history", Data: session.History()})

	default:
		ws.send("error", fmt.Sprintf("unknown message type %q", msg.Type))
	}
}

func (s *Server) answer(ctx context.Context, ws *wsConn, session *chat.Session, question string) {
	ws.send("status", "Searching through the biography...")

	var onDelta func(string)
	if s.config.Streaming {
		onDelta = func(delta string) {
			ws.send("stream", delta)
		}
	}

	msg, result := session.AskStream(ctx, question, onDelta)
	ws.sendMessage(Message{Type: "answer", Content: msg.Content, Data: newAnswer(msg, result)})
}

func (ws *wsConn) send(msgType, content string) {
	ws.sendMessage(Message{Type: msgType, Content: content})
}

func (ws *wsConn) sendMessage(msg Message) {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if err := ws.conn.WriteJSON(msg); err != nil {
		logger.Debug("error sending message: %v", err)
	}
}
