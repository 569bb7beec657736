package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Websocket message types.
const (
	MessageGenerate = "generate"
	MessageProgress = "progress"
	MessageResult   = "result"
	MessageError    = "error"
)

// Message is exchanged in both directions on /ws. Clients send
// {"type":"generate","content":"<article url>"}.
type Message struct {
	Type    string `json:"type"`
	Content string `json:"content"`
	Status  int    `json:"status,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func (s *Server) upgrader() *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || s.config.FrontendOrigin == "" || origin == s.config.FrontendOrigin
		},
	}
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader().Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	log := s.log.With(zap.String("session", uuid.NewString()))
	log.Info("websocket connected")

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn("websocket read failed", zap.Error(err))
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(payload, &msg); err != nil {
			s.send(conn, log, Message{Type: MessageError, Status: http.StatusBadRequest, Content: "message must be JSON"})
			continue
		}
		if msg.Type != MessageGenerate {
			s.send(conn, log, Message{Type: MessageError, Status: http.StatusBadRequest, Content: "unknown message type " + msg.Type})
			continue
		}

		s.generate(r.Context(), conn, log, strings.TrimSpace(msg.Content))
	}
}

// generate runs one request on the connection, sending a progress message
// per stage and then the result or error.
func (s *Server) generate(parent context.Context, conn *websocket.Conn, log *zap.Logger, url string) {
	ctx, cancel := context.WithTimeout(parent, s.config.RequestTimeout)
	defer cancel()

	result, err := s.service.GenerateQuizWithProgress(ctx, url, func(stage string) {
		s.send(conn, log, Message{Type: MessageProgress, Content: stage})
	})
	if err != nil {
		status, message := statusFor(err)
		if status >= http.StatusInternalServerError {
			log.Error("websocket generation failed", zap.String("url", url), zap.Error(err))
		}
		s.send(conn, log, Message{Type: MessageError, Status: status, Content: message})
		return
	}
	s.send(conn, log, Message{Type: MessageResult, Data: result})
}

func (s *Server) send(conn *websocket.Conn, log *zap.Logger, msg Message) {
	if err := conn.WriteJSON(msg); err != nil {
		log.Warn("websocket write failed", zap.String("type", msg.Type), zap.Error(err))
	}
}
