package http

import (
	"encoding/json"
	"net/http"
	"time"

	"exam-quiz-service/internal/app"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsWriteWait      = 10 * time.Second
	wsMaxMessageSize = 64 << 10
)

// WSHandler serves the progress autosave channel. Clients push progress
// snapshots as they answer and receive a save acknowledgement for each one.
type WSHandler struct {
	service  *app.QuizService
	auth     *Authenticator
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, auth *Authenticator) *WSHandler {
	return &WSHandler{
		service: service,
		auth:    auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// Register mounts the websocket route on r.
func (h *WSHandler) Register(r *mux.Router) {
	r.Handle("/ws/progress", h.auth.Middleware(http.HandlerFunc(h.ServeWS))).Methods(http.MethodGet)
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type savedPayload struct {
	Timestamp time.Time `json:"timestamp"`
}

type errorPayload struct {
	Message string `json:"message"`
}

// ServeWS upgrades the request and keeps one session's progress in sync.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		http.Error(w, "missing sessionId", http.StatusBadRequest)
		return
	}
	if uid, ok := authenticatedUser(r); ok {
		owner, err := h.service.SessionOwner(r.Context(), sessionID)
		if err != nil {
			writeError(w, r, err)
			return
		}
		if owner != uid {
			http.Error(w, "access denied", http.StatusForbidden)
			return
		}
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("sessionId", sessionID).Msg("ws upgrade failed")
		return
	}
	defer conn.Close()
	conn.SetReadLimit(wsMaxMessageSize)

	ctx := r.Context()
	send := func(msg any) bool {
		_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
		if err := conn.WriteJSON(msg); err != nil {
			log.Debug().Err(err).Str("sessionId", sessionID).Msg("ws write error")
			return false
		}
		return true
	}
	sendError := func(message string) bool {
		return send(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: message}})
	}

	snapshot, err := h.service.GetProgress(ctx, sessionID)
	if err != nil {
		_, msg := statusFor(err)
		sendError(msg)
		return
	}
	if !send(outboundMessage[any]{Type: "snapshot", Payload: snapshot}) {
		return
	}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			return
		}

		var ok bool
		switch inbound.Type {
		case "progress":
			var payload progressPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil || payload.CurrentQuestionIndex == nil || payload.TimeRemaining == nil {
				ok = sendError("invalid progress payload")
				break
			}
			savedAt, err := h.service.SaveProgress(ctx, payload.toUpdate(sessionID))
			if err != nil {
				_, msg := statusFor(err)
				ok = sendError(msg)
				break
			}
			ok = send(outboundMessage[savedPayload]{Type: "saved", Payload: savedPayload{Timestamp: savedAt}})
		case "snapshot":
			snapshot, err := h.service.GetProgress(ctx, sessionID)
			if err != nil {
				_, msg := statusFor(err)
				ok = sendError(msg)
				break
			}
			ok = send(outboundMessage[any]{Type: "snapshot", Payload: snapshot})
		default:
			ok = sendError("unsupported message type")
		}
		if !ok {
			return
		}
	}
}
