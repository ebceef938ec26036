package ai

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"

	"github.com/zhouzirui/mindmate/backend/internal/config"
)

// NewChatModel 按 COMPLETION_PROVIDER 选择模型实现。
func NewChatModel(ctx context.Context, cfg config.CompletionConfig, arkCfg config.ArkConfig) (model.ChatModel, error) {
	if !cfg.Enabled(arkCfg) {
		return nil, fmt.Errorf("%w: credentials missing for provider %q", ErrModelUnavailable, cfg.Driver)
	}

	var temperature *float32
	if cfg.Temperature != nil {
		val := float32(*cfg.Temperature)
		temperature = &val
	}

	switch cfg.Driver {
	case config.DriverArk:
		timeout := cfg.Timeout
		return ark.NewChatModel(ctx, &ark.ChatModelConfig{
			BaseURL:     cfg.BaseURL,
			Region:      arkCfg.Region,
			APIKey:      cfg.APIKey,
			AccessKey:   arkCfg.AccessKey,
			SecretKey:   arkCfg.SecretKey,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: temperature,
			Timeout:     &timeout,
		})
	case config.DriverOpenRouter, "":
		return NewOpenRouterModel(cfg.APIKey,
			WithOpenRouterBaseURL(cfg.BaseURL),
			WithOpenRouterModelName(cfg.Model),
			WithOpenRouterTimeout(cfg.Timeout),
			WithOpenRouterDefaults(cfg.MaxTokens, temperature),
		)
	default:
		return nil, fmt.Errorf("unsupported completion provider %q", cfg.Driver)
	}
}
