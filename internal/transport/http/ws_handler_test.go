package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"exam-quiz-service/internal/domain"
	"github.com/gorilla/websocket"
)

func TestWebSocketAutosaveFlow(t *testing.T) {
	env := newTestEnv(t, "")
	gen := generate(t, env, "u1", domain.QuizFreeDaily, "")

	server := httptest.NewServer(AccessLog(env.router))
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws/progress?sessionId=" + gen.SessionID
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Expect the current snapshot first.
	_, payload := readNext(conn, t, "snapshot")
	if payload["sessionId"] != gen.SessionID {
		t.Fatalf("expected snapshot for %s, got %v", gen.SessionID, payload)
	}

	b := "B"
	progress := map[string]any{
		"type": "progress",
		"payload": map[string]any{
			"currentQuestionIndex": 2,
			"answers":              []*string{nil, &b, nil},
			"bookmarked":           []bool{true, false, false},
			"timeRemaining":        420,
		},
	}
	if err := conn.WriteJSON(progress); err != nil {
		t.Fatalf("write progress: %v", err)
	}
	_, payload = readNext(conn, t, "saved")
	if payload["timestamp"] == nil {
		t.Fatalf("expected save timestamp, got %v", payload)
	}

	snap, err := env.service.GetProgress(context.Background(), gen.SessionID)
	if err != nil {
		t.Fatalf("get progress: %v", err)
	}
	if snap.CurrentQuestionIndex != 2 || snap.TimeRemaining != 420 || snap.Answers[1] == nil || *snap.Answers[1] != "B" {
		t.Fatalf("progress not persisted: %+v", snap)
	}

	// Invalid payloads are reported without closing the connection.
	bad := map[string]any{
		"type":    "progress",
		"payload": map[string]any{"currentQuestionIndex": 9, "answers": []*string{nil}, "bookmarked": []bool{false}, "timeRemaining": 1},
	}
	if err := conn.WriteJSON(bad); err != nil {
		t.Fatalf("write bad progress: %v", err)
	}
	readNext(conn, t, "error")

	if err := conn.WriteJSON(map[string]any{"type": "snapshot"}); err != nil {
		t.Fatalf("write snapshot request: %v", err)
	}
	_, payload = readNext(conn, t, "snapshot")
	if payload["timeRemaining"] != float64(420) {
		t.Fatalf("unexpected snapshot %v", payload)
	}
}

func TestWebSocketRejectsOtherUsersSession(t *testing.T) {
	const secret = "ws-secret"
	env := newTestEnv(t, secret)
	alice, _ := IssueToken(secret, "alice")
	bob, _ := IssueToken(secret, "bob")
	gen := generate(t, env, "alice", domain.QuizFreeDaily, alice)

	server := httptest.NewServer(env.router)
	defer server.Close()

	base := "ws" + server.URL[len("http"):] + "/ws/progress?sessionId=" + gen.SessionID
	_, resp, err := websocket.DefaultDialer.Dial(base+"&token="+bob, nil)
	if err == nil {
		t.Fatalf("expected handshake to fail for another user")
	}
	if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %+v", resp)
	}

	conn, _, err := websocket.DefaultDialer.Dial(base+"&token="+alice, nil)
	if err != nil {
		t.Fatalf("owner dial: %v", err)
	}
	defer conn.Close()
	readNext(conn, t, "snapshot")
}

func readNext(conn *websocket.Conn, t *testing.T, expect string) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	if expect != "" && msg.Type != expect {
		t.Fatalf("expected type %s, got %s (%v)", expect, msg.Type, msg.Payload)
	}
	return msg.Type, msg.Payload
}
