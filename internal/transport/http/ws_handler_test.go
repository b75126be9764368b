package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"medquiz-service/internal/app"
	"medquiz-service/internal/domain"
	"medquiz-service/internal/infra/memory"
)

func TestWebSocketQuizFlow(t *testing.T) {
	service, gateway := newTestService(t)
	wsHandler := NewWSHandler(service, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", wsHandler.ServeWS)
	server := httptest.NewServer(mux)
	defer server.Close()

	u := "ws" + server.URL[len("http"):] + "/ws?userId=u1&mode=custom&count=2"
	conn, _, err := websocket.DefaultDialer.Dial(u, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	// Initial session snapshot arrives first.
	msgType, payload := readNext(conn, t, "session")
	if msgType != "session" {
		t.Fatalf("expected session, got %s", msgType)
	}
	if payload["currentQuestion"] == nil {
		t.Fatalf("expected a current question in the snapshot")
	}

	var sessionID string
	if id, ok := payload["sessionId"].(string); ok {
		sessionID = id
	}
	if sessionID == "" {
		t.Fatalf("expected session id in snapshot")
	}

	// Answer both questions and advance through them.
	answerSeen := false
	completedSeen := false
	for i := 0; i < 2; i++ {
		if err := conn.WriteJSON(map[string]any{
			"type":    "answer",
			"payload": map[string]any{"optionIndex": 0},
		}); err != nil {
			t.Fatalf("write answer: %v", err)
		}
		if err := conn.WriteJSON(map[string]any{"type": "advance"}); err != nil {
			t.Fatalf("write advance: %v", err)
		}
	}

	for i := 0; i < 10 && !(answerSeen && completedSeen); i++ {
		typ, payload := readNext(conn, t, "")
		switch typ {
		case "answerResult":
			answerSeen = true
			if correct, _ := payload["correct"].(bool); !correct {
				t.Fatalf("expected correct answer feedback, got %+v", payload)
			}
		case "completed":
			completedSeen = true
			result, ok := payload["result"].(map[string]any)
			if !ok {
				t.Fatalf("expected result payload, got %+v", payload)
			}
			if pct, _ := result["scorePercent"].(float64); pct != 100 {
				t.Fatalf("expected 100%% score, got %v", pct)
			}
		case "error":
			t.Fatalf("unexpected error message: %+v", payload)
		}
	}
	if !answerSeen || !completedSeen {
		t.Fatalf("expected answerResult and completed, got answerResult=%v completed=%v", answerSeen, completedSeen)
	}

	if _, ok := gateway.Result(sessionID); !ok {
		t.Fatalf("expected result persisted via gateway")
	}
}

func TestWebSocketRejectsMissingParams(t *testing.T) {
	service, _ := newTestService(t)
	wsHandler := NewWSHandler(service, nil)

	server := httptest.NewServer(http.HandlerFunc(wsHandler.ServeWS))
	defer server.Close()

	resp, err := http.Get(server.URL + "/ws")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
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
		t.Fatalf("expected type %s, got %s", expect, msg.Type)
	}
	return msg.Type, msg.Payload
}

func newTestService(t *testing.T) (*app.QuizService, *memory.Gateway) {
	t.Helper()
	questions := []domain.Question{
		{
			ID:     "q1",
			Prompt: "Which enzyme is deficient in classic PKU?",
			Options: []domain.Option{
				{Label: "A", Text: "Phenylalanine hydroxylase"},
				{Label: "B", Text: "Tyrosinase"},
			},
			CorrectIndex: 0,
			Category:     "biochemistry",
			Difficulty:   domain.DifficultyEasy,
		},
		{
			ID:     "q2",
			Prompt: "Bitemporal hemianopia localizes to the:",
			Options: []domain.Option{
				{Label: "A", Text: "Optic chiasm"},
				{Label: "B", Text: "Optic tract"},
			},
			CorrectIndex: 0,
			Category:     "neurology",
			Difficulty:   domain.DifficultyEasy,
		},
	}
	registry := memory.NewRegistry()
	gateway := memory.NewGateway()
	repo := memory.NewQuestionRepository(memory.NewStaticQuestionLoader(questions), time.Minute)
	cfg := app.DefaultConfig()
	cfg.AutoAdvanceDelay = time.Hour
	return app.NewQuizService(registry, repo, gateway, cfg, nil), gateway
}
