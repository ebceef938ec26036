package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/mindmate/backend/internal/config"
	"github.com/zhouzirui/mindmate/backend/internal/service/outcome"
)

// ErrModelUnavailable 表示无法从语言模型得到可用回复。
var ErrModelUnavailable = errors.New("language model unavailable")

const defaultTimeout = 30 * time.Second

// Service wraps the completion chain: system + user template -> chat model.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	timeout   time.Duration
}

// NewService 根据配置创建模型并编译调用链。凭证缺失时直接返回错误。
func NewService(ctx context.Context, cfg config.CompletionConfig, arkCfg config.ArkConfig) (*Service, error) {
	chatModel, err := NewChatModel(ctx, cfg, arkCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return NewServiceWithModel(ctx, chatModel, cfg.Timeout)
}

// NewServiceWithModel compiles the chain around an existing chat model.
func NewServiceWithModel(ctx context.Context, chatModel model.ChatModel, timeout time.Duration) (*Service, error) {
	if chatModel == nil {
		return nil, fmt.Errorf("%w: nil chat model", ErrModelUnavailable)
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		chain:     runnable,
		timeout:   timeout,
	}, nil
}

// Complete 发送系统提示词与用户文本，返回去除首尾空白的回复。
// 超时、非 2xx、空回复都视为 Failed，原因包装 ErrModelUnavailable。
func (s *Service) Complete(ctx context.Context, systemPrompt, userText string, opts ...model.Option) outcome.Result[string] {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	input := map[string]any{
		"system": systemPrompt,
		"query":  userText,
	}

	msg, err := s.chain.Invoke(ctx, input, compose.WithChatModelOption(opts...))
	if err != nil {
		return outcome.Failed[string](fmt.Errorf("%w: %w", ErrModelUnavailable, err))
	}
	if msg == nil {
		return outcome.Failed[string](fmt.Errorf("%w: empty response", ErrModelUnavailable))
	}

	reply := strings.TrimSpace(msg.Content)
	if reply == "" {
		return outcome.Failed[string](fmt.Errorf("%w: blank completion", ErrModelUnavailable))
	}
	return outcome.Success(reply)
}

// Unavailable 在模型未配置时替代 Service，每次调用都失败。
type Unavailable struct {
	Reason error
}

func (u Unavailable) Complete(context.Context, string, string, ...model.Option) outcome.Result[string] {
	reason := u.Reason
	if reason == nil {
		reason = errors.New("completion provider not configured")
	}
	return outcome.Failed[string](fmt.Errorf("%w: %w", ErrModelUnavailable, reason))
}
