package service

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tieubaoca/librarian-be/types"
)

// WebSocketService streams answers to clients fragment by fragment. Closing
// the socket cancels the in-flight query, and the abandoned session's
// citation markers are discarded with it.
type WebSocketService struct {
	answers  *AnswerService
	upgrader websocket.Upgrader
}

func NewWebSocketService(answers *AnswerService) *WebSocketService {
	return &WebSocketService{
		answers: answers,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins (adjust for production)
			},
		},
	}
}

func (s *WebSocketService) HandleQuery(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("Upgrade error:", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512 * 1024) // 512KB max message size
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	for {
		_, p, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket read error: %v", err)
			}
			return
		}
		var req types.WebsocketRequest
		if err := json.Unmarshal(p, &req); err != nil {
			s.writeError(conn, "invalid request")
			continue
		}
		switch req.Type {
		case types.TypeWebsocketQuery:
			payloadBytes, err := json.Marshal(req.Payload)
			if err != nil {
				s.writeError(conn, "invalid payload")
				continue
			}
			var query types.QueryRequest
			if err := json.Unmarshal(payloadBytes, &query); err != nil {
				s.writeError(conn, "invalid payload")
				continue
			}
			s.streamAnswer(ctx, conn, query)
		case types.TypeWebsocketPing:
			pong := types.WebsocketResponse{
				Type: types.TypeWebsocketPong,
			}
			if err := conn.WriteJSON(pong); err != nil {
				log.Println("Write error:", err)
			}
		default:
			log.Println("Invalid message type:", req.Type)
		}
	}
}

func (s *WebSocketService) streamAnswer(ctx context.Context, conn *websocket.Conn, query types.QueryRequest) {
	handler := func(fragment string) {
		res := types.WebsocketResponse{
			Type:    types.TypeWebsocketFragment,
			Payload: types.WebsocketFragmentPayload{Fragment: fragment},
		}
		if err := conn.WriteJSON(res); err != nil {
			log.Println("Write error:", err)
		}
	}

	session, err := s.answers.AskStream(ctx, query, handler)
	if err != nil {
		s.writeError(conn, err.Error())
		return
	}

	final := types.WebsocketResponse{
		Type: types.TypeWebsocketAnswer,
		Payload: types.QueryResponse{
			SessionID:    session.ID,
			Answer:       session.Answer,
			References:   session.References,
			Verification: session.Verification,
		},
	}
	if err := conn.WriteJSON(final); err != nil {
		log.Println("Write error:", err)
	}
}

func (s *WebSocketService) writeError(conn *websocket.Conn, message string) {
	res := types.WebsocketResponse{
		Type:    types.TypeWebsocketError,
		Payload: message,
	}
	if err := conn.WriteJSON(res); err != nil {
		log.Println("Write error:", err)
	}
}
