package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "mistralai/mistral-7b-instruct:free"
)

var errToolsUnsupported = errors.New("openrouter model does not support tool binding")

// OpenRouterModel 是走 OpenAI chat-completions 协议的 eino ChatModel。
type OpenRouterModel struct {
	apiKey      string
	endpoint    string
	modelName   string
	maxTokens   *int
	temperature *float32
	client      *http.Client
}

type OpenRouterOption func(*OpenRouterModel)

func WithOpenRouterBaseURL(baseURL string) OpenRouterOption {
	return func(m *OpenRouterModel) {
		if trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/"); trimmed != "" {
			m.endpoint = trimmed + "/chat/completions"
		}
	}
}

func WithOpenRouterModelName(name string) OpenRouterOption {
	return func(m *OpenRouterModel) {
		if trimmed := strings.TrimSpace(name); trimmed != "" {
			m.modelName = trimmed
		}
	}
}

func WithOpenRouterTimeout(timeout time.Duration) OpenRouterOption {
	return func(m *OpenRouterModel) {
		if timeout > 0 {
			m.client.Timeout = timeout
		}
	}
}

// WithOpenRouterDefaults sets request parameters used when a call passes none.
func WithOpenRouterDefaults(maxTokens *int, temperature *float32) OpenRouterOption {
	return func(m *OpenRouterModel) {
		m.maxTokens = maxTokens
		m.temperature = temperature
	}
}

// NewOpenRouterModel 创建模型，apiKey 为空时直接失败。
func NewOpenRouterModel(apiKey string, opts ...OpenRouterOption) (*OpenRouterModel, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("%w: openrouter api key is required", ErrModelUnavailable)
	}

	m := &OpenRouterModel{
		apiKey:    apiKey,
		endpoint:  defaultOpenRouterBaseURL + "/chat/completions",
		modelName: defaultOpenRouterModel,
		client:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m, nil
}

var _ model.ChatModel = (*OpenRouterModel)(nil)

type chatCompletionRequest struct {
	Model       string              `json:"model"`
	Messages    []completionMessage `json:"messages"`
	MaxTokens   *int                `json:"max_tokens,omitempty"`
	Temperature *float32            `json:"temperature,omitempty"`
	TopP        *float32            `json:"top_p,omitempty"`
	Stop        []string            `json:"stop,omitempty"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatCompletionResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      completionMessage `json:"message"`
		FinishReason string            `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type apiErrorEnvelope struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Generate sends one chat-completions request and returns the first choice.
func (m *OpenRouterModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{
		Model:       &m.modelName,
		MaxTokens:   m.maxTokens,
		Temperature: m.temperature,
	}, opts...)

	payload := chatCompletionRequest{
		Model:       m.modelName,
		Messages:    make([]completionMessage, 0, len(input)),
		MaxTokens:   options.MaxTokens,
		Temperature: options.Temperature,
		TopP:        options.TopP,
		Stop:        options.Stop,
	}
	if options.Model != nil && *options.Model != "" {
		payload.Model = *options.Model
	}
	for _, msg := range input {
		if msg == nil {
			continue
		}
		payload.Messages = append(payload.Messages, completionMessage{Role: string(msg.Role), Content: msg.Content})
	}
	if len(payload.Messages) == 0 {
		return nil, errors.New("at least one message is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call completion api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, parseAPIError(resp)
	}

	var parsed chatCompletionResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode completion response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return nil, errors.New("completion response contained no choices")
	}

	choice := parsed.Choices[0]
	out := schema.AssistantMessage(choice.Message.Content, nil)
	out.ResponseMeta = &schema.ResponseMeta{
		FinishReason: choice.FinishReason,
		Usage: &schema.TokenUsage{
			PromptTokens:     parsed.Usage.PromptTokens,
			CompletionTokens: parsed.Usage.CompletionTokens,
			TotalTokens:      parsed.Usage.TotalTokens,
		},
	}
	return out, nil
}

// Stream 不做真正的流式传输，把完整回复包装成单元素流。
func (m *OpenRouterModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *OpenRouterModel) BindTools([]*schema.ToolInfo) error {
	return errToolsUnsupported
}

func parseAPIError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	message := strings.TrimSpace(string(body))
	var envelope apiErrorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil && strings.TrimSpace(envelope.Error.Message) != "" {
		message = envelope.Error.Message
	}
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("completion api status %d: %s", resp.StatusCode, message)
}
