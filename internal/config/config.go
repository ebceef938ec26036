package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config 聚合整个服务的配置项。
type Config struct {
	Server     ServerConfig
	Completion CompletionConfig `envPrefix:"COMPLETION_"`
	Ark        ArkConfig        `envPrefix:"ARK_"`
	Translate  TranslateConfig  `envPrefix:"TRANSLATE_"`
	EmotionAPI Provider         `envPrefix:"EMOTION_API_"`
	Store      StoreConfig      `envPrefix:"STORE_"`
	Auth       AuthConfig       `envPrefix:"JWT_"`
	Redis      RedisConfig      `envPrefix:"REDIS_"`
}

// Provider 是远程网关共用的连接参数。
type Provider struct {
	APIKey  string        `env:"API_KEY"`
	Model   string        `env:"MODEL"`
	BaseURL string        `env:"BASE_URL"`
	Timeout time.Duration `env:"TIMEOUT"`
}

// ServerConfig 描述 HTTP 服务配置。
type ServerConfig struct {
	Port     string `env:"PORT" envDefault:"8080"`
	Env      string `env:"APP_ENV" envDefault:"development"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

// CompletionConfig 描述大模型网关。Driver 取 openrouter 或 ark。
type CompletionConfig struct {
	Driver string `env:"PROVIDER" envDefault:"openrouter"`
	Provider
	MaxTokens   *int     `env:"MAX_TOKENS"`
	Temperature *float64 `env:"TEMPERATURE"`
}

// ArkConfig 仅在 Driver=ark 时使用。
type ArkConfig struct {
	AccessKey string `env:"ACCESS_KEY"`
	SecretKey string `env:"SECRET_KEY"`
	Region    string `env:"REGION" envDefault:"cn-beijing"`
}

// TranslateConfig 描述 LibreTranslate 兼容的翻译服务。
type TranslateConfig struct {
	Provider
	CacheTTL time.Duration `env:"CACHE_TTL" envDefault:"24h"`
}

// StoreConfig 选择会话存储驱动。
type StoreConfig struct {
	Driver   string `env:"DRIVER" envDefault:"memory"`
	DSN      string `env:"DSN"`
	Database string `env:"DATABASE" envDefault:"mindmate"`
}

// AuthConfig 描述 JWT 身份校验。
type AuthConfig struct {
	Secret string        `env:"SECRET"`
	TTL    time.Duration `env:"TTL" envDefault:"168h"`
}

// RedisConfig 为空地址时关闭翻译缓存。
type RedisConfig struct {
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB"`
}

const (
	DriverOpenRouter = "openrouter"
	DriverArk        = "ark"

	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
)

const (
	defaultOpenRouterBaseURL = "https://openrouter.ai/api/v1"
	defaultOpenRouterModel   = "mistralai/mistral-7b-instruct:free"
	defaultArkBaseURL        = "https://ark.cn-beijing.volces.com/api/v3"
	defaultCompletionTimeout = 30 * time.Second

	defaultTranslateBaseURL = "https://libretranslate.de"
	defaultTranslateTimeout = 5 * time.Second

	defaultEmotionAPIURL     = "https://api.emotionsense.pro/detect"
	defaultEmotionAPITimeout = 10 * time.Second
)

// Load 从环境变量加载配置。
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("environment variables are invalid: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults 填充共享 Provider 结构无法通过 tag 表达的默认值。
func (c *Config) applyDefaults() {
	c.Completion.Driver = strings.ToLower(strings.TrimSpace(c.Completion.Driver))
	switch c.Completion.Driver {
	case DriverArk:
		c.Completion.BaseURL = orDefault(c.Completion.BaseURL, defaultArkBaseURL)
	default:
		c.Completion.BaseURL = orDefault(c.Completion.BaseURL, defaultOpenRouterBaseURL)
		c.Completion.Model = orDefault(c.Completion.Model, defaultOpenRouterModel)
	}
	if c.Completion.Timeout <= 0 {
		c.Completion.Timeout = defaultCompletionTimeout
	}

	c.Translate.BaseURL = orDefault(c.Translate.BaseURL, defaultTranslateBaseURL)
	if c.Translate.Timeout <= 0 {
		c.Translate.Timeout = defaultTranslateTimeout
	}

	c.EmotionAPI.BaseURL = orDefault(c.EmotionAPI.BaseURL, defaultEmotionAPIURL)
	if c.EmotionAPI.Timeout <= 0 {
		c.EmotionAPI.Timeout = defaultEmotionAPITimeout
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(c.Store.Driver))
}

// Validate 检查互相依赖的配置项。
func (c *Config) Validate() error {
	var errs []error

	if _, err := c.Server.Addr(); err != nil {
		errs = append(errs, err)
	}

	switch c.Completion.Driver {
	case DriverOpenRouter, DriverArk:
	default:
		errs = append(errs, fmt.Errorf("unsupported COMPLETION_PROVIDER %q", c.Completion.Driver))
	}

	switch c.Store.Driver {
	case StoreMemory:
	case StoreSQLite, StorePostgres, StoreMongo:
		if strings.TrimSpace(c.Store.DSN) == "" && c.Store.Driver != StoreSQLite {
			errs = append(errs, fmt.Errorf("STORE_DSN is required for driver %q", c.Store.Driver))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported STORE_DRIVER %q", c.Store.Driver))
	}

	if c.Auth.TTL <= 0 {
		errs = append(errs, errors.New("JWT_TTL must be positive"))
	}

	return errors.Join(errs...)
}

// IsDevelopment 开发环境下日志级别降到 debug。
func (c *Config) IsDevelopment() bool {
	return strings.EqualFold(strings.TrimSpace(c.Server.Env), "development")
}

// Addr 解析服务器监听地址。
func (s ServerConfig) Addr() (string, error) {
	port := strings.TrimSpace(s.Port)
	if port == "" {
		port = "8080"
	}

	if strings.Contains(port, ":") {
		// 允许用户直接传入 ":8080" 或 "127.0.0.1:8080"。
		return port, nil
	}

	if strings.Contains(port, " ") {
		return "", fmt.Errorf("invalid PORT value: %q", port)
	}

	return ":" + port, nil
}

// Enabled 表示是否提供了必需的密钥。
func (c CompletionConfig) Enabled(ark ArkConfig) bool {
	if c.Driver == DriverArk {
		return c.Model != "" && (c.APIKey != "" || (ark.AccessKey != "" && ark.SecretKey != ""))
	}
	return c.APIKey != ""
}

// Enabled 表示远程识别是否可用；未配置时直接走确定性回退。
func (p Provider) Enabled() bool {
	return strings.TrimSpace(p.APIKey) != ""
}

// Enabled 表示是否配置了 JWT 密钥。
func (a AuthConfig) Enabled() bool {
	return strings.TrimSpace(a.Secret) != ""
}

// Enabled 表示是否启用 Redis。
func (r RedisConfig) Enabled() bool {
	return strings.TrimSpace(r.Addr) != ""
}

func orDefault(value, fallback string) string {
	if v := strings.TrimSpace(value); v != "" {
		return v
	}
	return fallback
}
