package emotion

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

	analysis "github.com/zhouzirui/mindmate/backend/internal/analysis/emotion"
	"github.com/zhouzirui/mindmate/backend/internal/config"
	"github.com/zhouzirui/mindmate/backend/internal/service/outcome"
)

var (
	// ErrNotConfigured 表示未提供远程识别服务的凭证。
	ErrNotConfigured = errors.New("emotion api key not configured")
	// ErrUnknownLabel 表示远程返回的标签不在封闭集合内。
	ErrUnknownLabel = errors.New("emotion api returned unknown label")
)

// Service 调用远程图像情绪识别接口，任何失败都回退到确定性的哈希标签。
type Service struct {
	apiKey   string
	endpoint string
	timeout  time.Duration
	client   *http.Client
}

// Option customizes the Service.
type Option func(*Service)

// WithHTTPClient overrides the HTTP client, mostly for tests.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Service) {
		if client != nil {
			s.client = client
		}
	}
}

// NewService 创建图像情绪识别服务。cfg.BaseURL 是完整的识别地址。
func NewService(cfg config.Provider, opts ...Option) *Service {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	svc := &Service{
		apiKey:   strings.TrimSpace(cfg.APIKey),
		endpoint: strings.TrimSpace(cfg.BaseURL),
		timeout:  timeout,
		client:   &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Enabled 返回是否会发起远程调用。
func (s *Service) Enabled() bool {
	return s != nil && s.apiKey != "" && s.endpoint != ""
}

type detectRequest struct {
	Image  string `json:"image"`
	Format string `json:"format"`
}

type detectResponse struct {
	Emotion string `json:"emotion"`
}

// ClassifyFrame 识别视频帧中的情绪。返回值要么是 OK，要么是携带回退标签的 Degraded，不会是 Failed。
func (s *Service) ClassifyFrame(ctx context.Context, base64Data string) outcome.Result[analysis.Label] {
	fallback := analysis.FallbackFrameLabel(base64Data)
	if !s.Enabled() {
		return outcome.Degraded(fallback, ErrNotConfigured)
	}

	label, err := s.detect(ctx, base64Data)
	if err != nil {
		return outcome.Degraded(fallback, err)
	}
	return outcome.Success(label)
}

func (s *Service) detect(ctx context.Context, base64Data string) (analysis.Label, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	body, err := json.Marshal(detectRequest{Image: base64Data, Format: "base64"})
	if err != nil {
		return "", fmt.Errorf("marshal emotion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build emotion request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call emotion api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return "", fmt.Errorf("emotion api status %d", resp.StatusCode)
	}

	var parsed detectResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode emotion response: %w", err)
	}

	label, ok := analysis.Parse(parsed.Emotion)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownLabel, parsed.Emotion)
	}
	return label, nil
}
