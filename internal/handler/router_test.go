package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/mindmate/backend/internal/analysis/emotion"
	"github.com/zhouzirui/mindmate/backend/internal/service/ai"
	chatService "github.com/zhouzirui/mindmate/backend/internal/service/chat"
	"github.com/zhouzirui/mindmate/backend/internal/service/history"
	"github.com/zhouzirui/mindmate/backend/internal/service/outcome"
)

type staticCompleter struct {
	reply string
	fail  bool
}

func (c staticCompleter) Complete(context.Context, string, string, ...model.Option) outcome.Result[string] {
	if c.fail {
		return outcome.Failed[string](ai.ErrModelUnavailable)
	}
	return outcome.Success(c.reply)
}

type staticFrames struct{}

func (staticFrames) ClassifyFrame(context.Context, string) outcome.Result[emotion.Label] {
	return outcome.Success(emotion.Happy)
}

type tokenTable map[string]string

func (t tokenTable) Parse(token string) (string, error) {
	if id, ok := t[token]; ok {
		return id, nil
	}
	return "", errors.New("unknown token")
}

func setupRouter(completer chatService.Completer) (http.Handler, *history.MemoryStore) {
	store := history.NewMemoryStore()
	svc := chatService.NewService(chatService.Dependencies{
		Store:     store,
		Frames:    staticFrames{},
		Completer: completer,
	})
	return NewRouter(svc, Options{Tokens: tokenTable{"tok-1": "u1"}}), store
}

func do(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestChatEndpoint(t *testing.T) {
	r, store := setupRouter(staticCompleter{reply: "You are not alone; I'm here with you."})

	rec := do(t, r, http.MethodPost, "/api/chat", `{"message":"I feel so alone today","language":"en"}`, "tok-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["reply"] != "You are not alone; I'm here with you." || body["emotion"] != "lonely" {
		t.Fatalf("unexpected body %v", body)
	}

	turns, _ := store.ListByUser(context.Background(), "u1", history.Query{})
	if len(turns) != 1 {
		t.Fatalf("expected persisted turn for authenticated caller, got %d", len(turns))
	}
}

func TestChatEndpointErrors(t *testing.T) {
	r, _ := setupRouter(staticCompleter{reply: "ok"})

	rec := do(t, r, http.MethodPost, "/api/chat", `{"message":""}`, "")
	if rec.Code != http.StatusBadRequest || decode(t, rec)["message"] == nil {
		t.Fatalf("expected 400 with message, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodPost, "/api/chat", `{"message":`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed body, got %d", rec.Code)
	}

	down, _ := setupRouter(staticCompleter{fail: true})
	rec = do(t, down, http.MethodPost, "/api/chat", `{"message":"hello"}`, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
}

func TestChatHistoryRequiresIdentity(t *testing.T) {
	r, _ := setupRouter(staticCompleter{reply: "ok"})

	if rec := do(t, r, http.MethodGet, "/api/chat/history", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/api/chat/history", "", "forged"); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for invalid token, got %d", rec.Code)
	}

	do(t, r, http.MethodPost, "/api/chat", `{"message":"first"}`, "tok-1")
	do(t, r, http.MethodPost, "/api/chat", `{"message":"second"}`, "tok-1")

	rec := do(t, r, http.MethodGet, "/api/chat/history", "", "tok-1")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var turns []struct {
		Messages []struct {
			Content string `json:"content"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &turns); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(turns))
	}
}

func TestVideoChatEndpoint(t *testing.T) {
	r, _ := setupRouter(staticCompleter{reply: "You look bright today."})
	frame := "data:image/png;base64," + strings.Repeat("iVBORw0KGgo", 10)

	rec := do(t, r, http.MethodPost, "/api/videochat", `{"imageData":"`+frame+`","language":"xx"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%s)", rec.Code, rec.Body.String())
	}
	body := decode(t, rec)
	if body["success"] != true || body["emotion"] != "happy" || body["language"] != "en" {
		t.Fatalf("unexpected body %v", body)
	}
	if _, ok := body["timestamp"].(string); !ok {
		t.Fatalf("expected timestamp, got %v", body["timestamp"])
	}

	rec = do(t, r, http.MethodPost, "/api/videochat", `{}`, "")
	if rec.Code != http.StatusBadRequest || decode(t, rec)["success"] != false {
		t.Fatalf("expected 400 success=false, got %d %s", rec.Code, rec.Body.String())
	}

	rec = do(t, r, http.MethodPost, "/api/videochat", `{"imageData":"not-an-image"}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid image, got %d", rec.Code)
	}
}

func TestVideoHistoryAndAnalyticsEndpoints(t *testing.T) {
	r, _ := setupRouter(staticCompleter{reply: "ok"})
	frame := "data:image/png;base64," + strings.Repeat("iVBORw0KGgo", 10)
	do(t, r, http.MethodPost, "/api/videochat", `{"imageData":"`+frame+`"}`, "tok-1")

	if rec := do(t, r, http.MethodGet, "/api/videochat/history", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}

	rec := do(t, r, http.MethodGet, "/api/videochat/history", "", "tok-1")
	body := decode(t, rec)
	if rec.Code != http.StatusOK || body["totalSessions"] != float64(1) {
		t.Fatalf("unexpected history response %d %v", rec.Code, body)
	}
	stats, _ := body["emotionStats"].(map[string]any)
	if stats["happy"] != float64(1) {
		t.Fatalf("unexpected emotion stats %v", stats)
	}

	rec = do(t, r, http.MethodGet, "/api/videochat/analytics?days=7", "", "tok-1")
	body = decode(t, rec)
	analytics, _ := body["analytics"].(map[string]any)
	if rec.Code != http.StatusOK || analytics["totalSessions"] != float64(1) {
		t.Fatalf("unexpected analytics response %d %v", rec.Code, body)
	}
	if _, ok := analytics["dateRange"].(map[string]any); !ok {
		t.Fatalf("expected dateRange, got %v", analytics)
	}
}

func TestHealthRootAndNotFound(t *testing.T) {
	r, _ := setupRouter(staticCompleter{reply: "ok"})

	if rec := do(t, r, http.MethodGet, "/api/videochat/health", "", ""); rec.Code != http.StatusOK || decode(t, rec)["success"] != true {
		t.Fatalf("unexpected health response %d", rec.Code)
	}
	if rec := do(t, r, http.MethodGet, "/", "", ""); rec.Code != http.StatusOK {
		t.Fatalf("unexpected root response %d", rec.Code)
	}
	rec := do(t, r, http.MethodGet, "/api/unknown", "", "")
	if rec.Code != http.StatusNotFound || decode(t, rec)["message"] != "Route not found" {
		t.Fatalf("unexpected 404 response %d %s", rec.Code, rec.Body.String())
	}
}
