package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/zhouzirui/mindmate/backend/internal/config"
	"github.com/zhouzirui/mindmate/backend/internal/service/outcome"
)

// DefaultLanguage 是检测失败时使用的语言代码。
const DefaultLanguage = "en"

var (
	ErrEmptyTranslation = errors.New("translation response missing translatedText")
	ErrEmptyDetection   = errors.New("detection response contained no language")
)

// Service 是 LibreTranslate 兼容接口的客户端。失败不会向上抛出，而是退化为原文或默认语言。
type Service struct {
	baseURL string
	apiKey  string
	timeout time.Duration
	client  *http.Client
	cache   Cache
	logger  *slog.Logger
}

// Option customizes the Service.
type Option func(*Service)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		if client != nil {
			s.client = client
		}
	}
}

// WithCache 启用翻译缓存。
func WithCache(cache Cache) Option {
	return func(s *Service) {
		s.cache = cache
	}
}

// WithLogger sets the logger used for cache errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewService 创建翻译网关。
func NewService(cfg config.Provider, opts ...Option) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	svc := &Service{
		baseURL: strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		apiKey:  strings.TrimSpace(cfg.APIKey),
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

type translateRequest struct {
	Q      string `json:"q"`
	Source string `json:"source"`
	Target string `json:"target"`
	Format string `json:"format"`
	APIKey string `json:"api_key,omitempty"`
}

type translateResponse struct {
	TranslatedText string `json:"translatedText"`
}

type detectRequest struct {
	Q      string `json:"q"`
	APIKey string `json:"api_key,omitempty"`
}

type detection struct {
	Language   string  `json:"language"`
	Confidence float64 `json:"confidence"`
}

// Translate 把 text 从 source 翻译为 target。同语种或空文本直接原样返回，不发起请求。
// 失败时返回 Degraded，值为原文。
func (s *Service) Translate(ctx context.Context, text, source, target string) outcome.Result[string] {
	if strings.TrimSpace(text) == "" || strings.EqualFold(source, target) {
		return outcome.Success(text)
	}

	key := cacheKey(text, source, target)
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("translation cache read failed", "error", err)
		} else if ok {
			return outcome.Success(cached)
		}
	}

	var parsed translateResponse
	err := s.post(ctx, "/translate", translateRequest{
		Q:      text,
		Source: source,
		Target: target,
		Format: "text",
		APIKey: s.apiKey,
	}, &parsed)
	if err != nil {
		return outcome.Degraded(text, fmt.Errorf("translate %s->%s: %w", source, target, err))
	}
	if parsed.TranslatedText == "" {
		return outcome.Degraded(text, ErrEmptyTranslation)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, parsed.TranslatedText); err != nil {
			s.logger.Warn("translation cache write failed", "error", err)
		}
	}
	return outcome.Success(parsed.TranslatedText)
}

// DetectLanguage 返回 text 的语言代码，失败时退化为 en。
func (s *Service) DetectLanguage(ctx context.Context, text string) outcome.Result[string] {
	if strings.TrimSpace(text) == "" {
		return outcome.Degraded(DefaultLanguage, ErrEmptyDetection)
	}

	var parsed []detection
	if err := s.post(ctx, "/detect", detectRequest{Q: text, APIKey: s.apiKey}, &parsed); err != nil {
		return outcome.Degraded(DefaultLanguage, fmt.Errorf("detect language: %w", err))
	}
	if len(parsed) == 0 || strings.TrimSpace(parsed[0].Language) == "" {
		return outcome.Degraded(DefaultLanguage, ErrEmptyDetection)
	}
	return outcome.Success(strings.ToLower(strings.TrimSpace(parsed[0].Language)))
}

// Close 释放缓存持有的连接；未启用缓存或缓存无需关闭时直接返回。
func (s *Service) Close() error {
	if closer, ok := s.cache.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

func (s *Service) post(ctx context.Context, path string, payload, out any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("call translation api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
		return fmt.Errorf("translation api status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
