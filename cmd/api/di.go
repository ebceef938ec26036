package main

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-redis/redis/v8"
	"github.com/samber/do/v2"

	"github.com/zhouzirui/mindmate/backend/internal/config"
	"github.com/zhouzirui/mindmate/backend/internal/handler"
	"github.com/zhouzirui/mindmate/backend/internal/service/ai"
	"github.com/zhouzirui/mindmate/backend/internal/service/auth"
	"github.com/zhouzirui/mindmate/backend/internal/service/chat"
	emotionservice "github.com/zhouzirui/mindmate/backend/internal/service/emotion"
	"github.com/zhouzirui/mindmate/backend/internal/service/history"
	"github.com/zhouzirui/mindmate/backend/internal/service/translation"
	"github.com/zhouzirui/mindmate/backend/internal/telemetry"
)

func setupDI(ctx context.Context, cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)

	do.Provide(injector, func(i do.Injector) (history.Store, error) {
		c := do.MustInvoke[*config.Config](i)
		return history.Open(ctx, c.Store.Driver, c.Store.DSN, c.Store.Database)
	})

	do.Provide(injector, func(i do.Injector) (*translation.Service, error) {
		c := do.MustInvoke[*config.Config](i)
		opts := []translation.Option{translation.WithLogger(slog.Default())}
		if c.Redis.Enabled() {
			client := redis.NewClient(&redis.Options{Addr: c.Redis.Addr, Password: c.Redis.Password, DB: c.Redis.DB})
			cache, err := translation.NewRedisCache(ctx, client, c.Translate.CacheTTL)
			if err != nil {
				// 缓存不可用不影响翻译本身
				slog.Warn("redis unavailable, translation cache disabled", "error", err)
				_ = client.Close()
			} else {
				opts = append(opts, translation.WithCache(cache))
				slog.Info("translation cache enabled", "addr", c.Redis.Addr)
			}
		}
		return translation.NewService(c.Translate.Provider, opts...), nil
	})

	do.Provide(injector, func(i do.Injector) (*emotionservice.Service, error) {
		c := do.MustInvoke[*config.Config](i)
		svc := emotionservice.NewService(c.EmotionAPI)
		if !svc.Enabled() {
			slog.Info("emotion API key not configured, video frames use the deterministic fallback")
		}
		return svc, nil
	})

	do.Provide(injector, func(i do.Injector) (chat.Completer, error) {
		c := do.MustInvoke[*config.Config](i)
		svc, err := ai.NewService(ctx, c.Completion, c.Ark)
		if err != nil {
			slog.Warn("completion provider unavailable, chat requests will return 503", "provider", c.Completion.Driver, "error", err)
			return ai.Unavailable{Reason: err}, nil
		}
		slog.Info("completion provider initialized", "provider", c.Completion.Driver, "model", c.Completion.Model)
		return svc, nil
	})

	do.ProvideValue[telemetry.Observer](injector, telemetry.NewSlogObserver(slog.Default()))

	do.Provide(injector, func(i do.Injector) (*chat.Service, error) {
		return chat.NewService(chat.Dependencies{
			Store:      do.MustInvoke[history.Store](i),
			Translator: do.MustInvoke[*translation.Service](i),
			Frames:     do.MustInvoke[*emotionservice.Service](i),
			Completer:  do.MustInvoke[chat.Completer](i),
			Observer:   do.MustInvoke[telemetry.Observer](i),
		}), nil
	})

	do.Provide(injector, func(i do.Injector) (http.Handler, error) {
		c := do.MustInvoke[*config.Config](i)
		opts := handler.Options{Verbose: c.IsDevelopment()}
		if c.Auth.Enabled() {
			tokens, err := auth.NewService(c.Auth.Secret, c.Auth.TTL)
			if err != nil {
				return nil, err
			}
			opts.Tokens = tokens
		} else {
			slog.Warn("JWT_SECRET not set, all requests are anonymous and history routes return 401")
		}
		return handler.NewRouter(do.MustInvoke[*chat.Service](i), opts), nil
	})

	return injector
}
