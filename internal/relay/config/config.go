package config

import "time"

type Duration struct {
	Duration time.Duration
}

type HTTPConfig struct {
	Addr              string   `json:"addr"`
	ReadHeaderTimeout Duration `json:"read_header_timeout"`
	IdleTimeout       Duration `json:"idle_timeout"`
	ShutdownTimeout   Duration `json:"shutdown_timeout"`
	MaxRequestBytes   int64    `json:"max_request_bytes"`

	// CORSOrigins is the browser origin allow-list. "*" allows any origin without credentials.
	CORSOrigins []string `json:"cors_origins,omitempty"`
}

type LLMConfig struct {
	// Engine is "gemini" or "mock".
	Engine string `json:"engine"`

	APIKey     string `json:"api_key,omitempty"`
	BaseURL    string `json:"base_url,omitempty"`
	APIVersion string `json:"api_version,omitempty"`

	// Model serves describe, caption and planning calls; FinalModel serves final and improvement synthesis.
	Model      string `json:"model"`
	FinalModel string `json:"final_model"`

	Timeout Duration `json:"timeout,omitempty"`

	// RetryMaxOutputTokens is the output budget of the single retry after a MAX_TOKENS finish.
	RetryMaxOutputTokens int32 `json:"retry_max_output_tokens,omitempty"`

	// Upstream pacing shared by all generate calls. Zero RequestsPerSecond disables pacing.
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`
	Burst             int     `json:"burst,omitempty"`
}

type TTSConfig struct {
	// Provider is "gemini", "gcp" or "none".
	Provider     string   `json:"provider"`
	Model        string   `json:"model,omitempty"`
	DefaultVoice string   `json:"default_voice,omitempty"`
	Voices       []string `json:"voices,omitempty"`
	LanguageCode string   `json:"language_code,omitempty"`
	Timeout      Duration `json:"timeout,omitempty"`
	MaxTextChars int      `json:"max_text_chars,omitempty"`

	CacheTTL         Duration `json:"cache_ttl,omitempty"`
	BatchConcurrency int      `json:"batch_concurrency,omitempty"`
	MaxBatchItems    int      `json:"max_batch_items,omitempty"`
}

type CacheConfig struct {
	// RedisAddr enables the shared audio cache; empty falls back to an in-process cache.
	RedisAddr     string `json:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db,omitempty"`
	KeyPrefix     string `json:"key_prefix,omitempty"`
}

type HandoffConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string   `json:"driver"`
	DSN    string   `json:"dsn"`
	TTL    Duration `json:"ttl,omitempty"`
}

type AuthConfig struct {
	// JWTSecret enables bearer-token auth on every non-health route.
	JWTSecret string   `json:"jwt_secret,omitempty"`
	Issuer    string   `json:"issuer,omitempty"`
	TokenTTL  Duration `json:"token_ttl,omitempty"`
}

type ImproveConfig struct {
	MaxDOMBytes int `json:"max_dom_bytes,omitempty"`
}

type Config struct {
	Env     string        `json:"env"`
	Version string        `json:"version,omitempty"`
	HTTP    HTTPConfig    `json:"http"`
	LLM     LLMConfig     `json:"llm"`
	TTS     TTSConfig     `json:"tts"`
	Cache   CacheConfig   `json:"cache"`
	Handoff HandoffConfig `json:"handoff"`
	Auth    AuthConfig    `json:"auth"`
	Improve ImproveConfig `json:"improve"`
}

func (c *Config) AuthEnabled() bool { return c != nil && c.Auth.JWTSecret != "" }
