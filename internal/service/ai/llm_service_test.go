package ai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/mindmate/backend/internal/analysis/emotion"
	"github.com/zhouzirui/mindmate/backend/internal/config"
)

type fakeChatModel struct {
	reply    string
	err      error
	delay    time.Duration
	received []*schema.Message
	options  *model.Options
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.received = input
	f.options = model.GetCommonOptions(&model.Options{}, opts...)
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := f.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (f *fakeChatModel) BindTools([]*schema.ToolInfo) error { return nil }

func TestCompleteTrimsReplyAndSendsPrompt(t *testing.T) {
	fake := &fakeChatModel{reply: "  You are not alone; I'm here with you.\n"}
	svc, err := NewServiceWithModel(context.Background(), fake, time.Second)
	if err != nil {
		t.Fatalf("NewServiceWithModel err: %v", err)
	}

	system := BuildSystemPrompt(emotion.Lonely)
	res := svc.Complete(context.Background(), system, "I feel so alone today")
	if !res.OK() || res.Value != "You are not alone; I'm here with you." {
		t.Fatalf("unexpected result %+v", res)
	}

	if len(fake.received) != 2 {
		t.Fatalf("expected system + user messages, got %d", len(fake.received))
	}
	if fake.received[0].Role != schema.System || fake.received[0].Content != system {
		t.Fatalf("unexpected system message %+v", fake.received[0])
	}
	if fake.received[1].Role != schema.User || fake.received[1].Content != "I feel so alone today" {
		t.Fatalf("unexpected user message %+v", fake.received[1])
	}
}

func TestCompletePassesModelOptions(t *testing.T) {
	fake := &fakeChatModel{reply: "ok"}
	svc, err := NewServiceWithModel(context.Background(), fake, time.Second)
	if err != nil {
		t.Fatalf("NewServiceWithModel err: %v", err)
	}

	svc.Complete(context.Background(), "sys", "hi", model.WithMaxTokens(200), model.WithTemperature(0.7))
	if fake.options.MaxTokens == nil || *fake.options.MaxTokens != 200 {
		t.Fatalf("expected max tokens 200, got %v", fake.options.MaxTokens)
	}
	if fake.options.Temperature == nil || *fake.options.Temperature != 0.7 {
		t.Fatalf("expected temperature 0.7, got %v", fake.options.Temperature)
	}
}

func TestCompleteFailures(t *testing.T) {
	cases := map[string]*fakeChatModel{
		"provider error": {err: errors.New("status 500")},
		"blank reply":    {reply: "   "},
		"timeout":        {reply: "late", delay: 200 * time.Millisecond},
	}
	for name, fake := range cases {
		svc, err := NewServiceWithModel(context.Background(), fake, 50*time.Millisecond)
		if err != nil {
			t.Fatalf("%s: NewServiceWithModel err: %v", name, err)
		}
		res := svc.Complete(context.Background(), "sys", "hi")
		if !res.IsFailed() {
			t.Fatalf("%s: expected failure, got %+v", name, res)
		}
		if !errors.Is(res.Reason, ErrModelUnavailable) {
			t.Fatalf("%s: expected ErrModelUnavailable, got %v", name, res.Reason)
		}
	}
}

func TestNewServiceWithoutCredentialFails(t *testing.T) {
	_, err := NewService(context.Background(), config.CompletionConfig{Driver: config.DriverOpenRouter}, config.ArkConfig{})
	if !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
}

func TestUnavailableAlwaysFails(t *testing.T) {
	res := Unavailable{}.Complete(context.Background(), "sys", "hi")
	if !res.IsFailed() || !errors.Is(res.Reason, ErrModelUnavailable) {
		t.Fatalf("expected failure, got %+v", res)
	}
}

func TestOpenRouterModelWireFormat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-or" {
			t.Errorf("unexpected auth header %q", got)
		}
		var body chatCompletionRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode body: %v", err)
		}
		if body.Model != defaultOpenRouterModel {
			t.Errorf("unexpected model %q", body.Model)
		}
		if len(body.Messages) != 2 || body.Messages[0].Role != "system" || body.Messages[1].Role != "user" {
			t.Errorf("unexpected messages %+v", body.Messages)
		}
		if body.MaxTokens == nil || *body.MaxTokens != 200 {
			t.Errorf("expected max_tokens 200, got %v", body.MaxTokens)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"hello there"},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	m, err := NewOpenRouterModel("sk-or", WithOpenRouterBaseURL(srv.URL+"/"))
	if err != nil {
		t.Fatalf("NewOpenRouterModel err: %v", err)
	}

	out, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("sys"),
		schema.UserMessage("hi"),
	}, model.WithMaxTokens(200))
	if err != nil {
		t.Fatalf("Generate err: %v", err)
	}
	if out.Content != "hello there" || out.Role != schema.Assistant {
		t.Fatalf("unexpected message %+v", out)
	}
}

func TestOpenRouterModelOmitsUnsetParameters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var raw map[string]any
		_ = json.NewDecoder(r.Body).Decode(&raw)
		if _, ok := raw["max_tokens"]; ok {
			t.Errorf("max_tokens should be omitted: %v", raw)
		}
		if _, ok := raw["temperature"]; ok {
			t.Errorf("temperature should be omitted: %v", raw)
		}
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	m, err := NewOpenRouterModel("sk-or", WithOpenRouterBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenRouterModel err: %v", err)
	}
	if _, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")}); err != nil {
		t.Fatalf("Generate err: %v", err)
	}
}

func TestOpenRouterModelErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid key"}}`))
	}))
	defer srv.Close()

	m, err := NewOpenRouterModel("bad", WithOpenRouterBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewOpenRouterModel err: %v", err)
	}
	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	if err == nil || !strings.Contains(err.Error(), "invalid key") {
		t.Fatalf("expected api error message, got %v", err)
	}

	if _, err := NewOpenRouterModel("  "); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable for blank key, got %v", err)
	}
}

func TestBuildSystemPrompt(t *testing.T) {
	cases := map[emotion.Label]string{
		emotion.Lonely:  "You are an empathetic AI therapist. Offer company and caring words.",
		emotion.Sad:     "You are an empathetic AI therapist. Respond with empathy and reassurance.",
		emotion.Angry:   "You are an empathetic AI therapist. Stay composed and offer support.",
		emotion.Neutral: "You are an empathetic AI therapist. Be kind and supportive as a mental health assistant.",
	}
	for label, want := range cases {
		if got := BuildSystemPrompt(label); got != want {
			t.Fatalf("BuildSystemPrompt(%s) = %q, want %q", label, got, want)
		}
	}
}

func TestBuildVideoSystemPrompt(t *testing.T) {
	got := BuildVideoSystemPrompt(emotion.Anxious)
	if !strings.Contains(got, "Current user emotion: anxious") {
		t.Fatalf("expected emotion line, got %q", got)
	}
	if !strings.Contains(got, "grounding techniques") {
		t.Fatalf("expected anxious guidance, got %q", got)
	}
	if !strings.Contains(got, "through video chat") {
		t.Fatalf("expected video framing, got %q", got)
	}

	fallback := BuildVideoSystemPrompt(emotion.Confused)
	if !strings.Contains(fallback, defaultVideoGuidance) {
		t.Fatalf("expected default guidance for confused, got %q", fallback)
	}
}
