package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/yungbote/lovabuddy/internal/platform/envutil"
)

const (
	DefaultBaseURL    = "https://generativelanguage.googleapis.com"
	DefaultAPIVersion = "v1beta"
)

func (d *Duration) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		d.Duration = 0
		return nil
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		u, err := strconv.Unquote(s)
		if err != nil {
			return err
		}
		if strings.TrimSpace(u) == "" {
			d.Duration = 0
			return nil
		}
		dd, err := time.ParseDuration(u)
		if err != nil {
			return err
		}
		d.Duration = dd
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return fmt.Errorf("duration must be a JSON string like \"5s\" or an int nanoseconds: %w", err)
	}
	d.Duration = time.Duration(n)
	return nil
}

func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Duration.String())
}

func Default() *Config {
	return &Config{
		Env: "development",
		HTTP: HTTPConfig{
			Addr:              ":8787",
			ReadHeaderTimeout: Duration{Duration: 5 * time.Second},
			IdleTimeout:       Duration{Duration: 2 * time.Minute},
			ShutdownTimeout:   Duration{Duration: 15 * time.Second},
			MaxRequestBytes:   8 << 20,
			CORSOrigins:       []string{"*"},
		},
		LLM: LLMConfig{
			Engine:               "gemini",
			BaseURL:              DefaultBaseURL,
			APIVersion:           DefaultAPIVersion,
			Model:                "gemini-2.5-flash",
			FinalModel:           "gemini-2.5-pro",
			Timeout:              Duration{Duration: 90 * time.Second},
			RetryMaxOutputTokens: 2048,
			RequestsPerSecond:    5,
			Burst:                10,
		},
		TTS: TTSConfig{
			Provider:         "gemini",
			Model:            "gemini-2.5-flash-preview-tts",
			DefaultVoice:     "Fenrir",
			Voices:           []string{"Fenrir", "Zephyr"},
			LanguageCode:     "en-US",
			Timeout:          Duration{Duration: 30 * time.Second},
			MaxTextChars:     1200,
			CacheTTL:         Duration{Duration: 24 * time.Hour},
			BatchConcurrency: 4,
			MaxBatchItems:    12,
		},
		Cache: CacheConfig{KeyPrefix: "lovabuddy:tts:"},
		Handoff: HandoffConfig{
			Driver: "sqlite",
			DSN:    "file:lovabuddy.db?_busy_timeout=5000",
			TTL:    Duration{Duration: 24 * time.Hour},
		},
		Auth:    AuthConfig{Issuer: "lovabuddy-relay", TokenTTL: Duration{Duration: 30 * 24 * time.Hour}},
		Improve: ImproveConfig{MaxDOMBytes: 60 << 10},
	}
}

// Load reads .env (if present), then the JSON config file, then environment overrides.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()

	cfgPath := strings.TrimSpace(os.Getenv("LB_CONFIG_PATH"))
	if cfgPath == "" {
		if wd, err := os.Getwd(); err == nil {
			p := filepath.Join(wd, "config", "relay.json")
			if _, err := os.Stat(p); err == nil {
				cfgPath = p
			}
		}
	}
	if cfgPath != "" {
		b, err := os.ReadFile(cfgPath)
		if err != nil {
			return nil, err
		}
		// Decode over the defaults so a partial file only overrides what it names.
		if err := json.Unmarshal(b, cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", cfgPath, err)
		}
	}

	applyEnv(cfg)

	if err := cfg.normalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Env = envutil.String("LOG_MODE", cfg.Env)
	cfg.Version = envutil.String("LB_VERSION", cfg.Version)
	if v := strings.TrimSpace(os.Getenv("PORT")); v != "" {
		cfg.HTTP.Addr = ":" + strings.TrimPrefix(v, ":")
	}
	cfg.HTTP.Addr = envutil.String("LB_HTTP_ADDR", cfg.HTTP.Addr)
	if v := strings.TrimSpace(os.Getenv("LB_CORS_ORIGINS")); v != "" {
		cfg.HTTP.CORSOrigins = splitList(v)
	}

	cfg.LLM.Engine = envutil.String("LLM_ENGINE", cfg.LLM.Engine)
	cfg.LLM.APIKey = envutil.String("LLM_API_KEY", cfg.LLM.APIKey)
	if v := strings.TrimSpace(os.Getenv("LLM_BASE_URL")); v != "" {
		cfg.LLM.BaseURL, cfg.LLM.APIVersion = splitBaseURL(v, cfg.LLM.APIVersion)
	}
	cfg.LLM.Model = envutil.String("LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.FinalModel = envutil.String("LLM_FINAL_MODEL", cfg.LLM.FinalModel)
	cfg.LLM.Timeout.Duration = envutil.Duration("LLM_TIMEOUT", cfg.LLM.Timeout.Duration)

	cfg.TTS.Provider = envutil.String("TTS_PROVIDER", cfg.TTS.Provider)
	cfg.TTS.Model = envutil.String("TTS_MODEL", cfg.TTS.Model)
	cfg.TTS.DefaultVoice = envutil.String("TTS_DEFAULT_VOICE", cfg.TTS.DefaultVoice)
	cfg.TTS.CacheTTL.Duration = envutil.Duration("TTS_CACHE_TTL", cfg.TTS.CacheTTL.Duration)

	cfg.Cache.RedisAddr = envutil.String("REDIS_ADDR", cfg.Cache.RedisAddr)
	cfg.Cache.RedisPassword = envutil.String("REDIS_PASSWORD", cfg.Cache.RedisPassword)
	cfg.Cache.RedisDB = envutil.Int("REDIS_DB", cfg.Cache.RedisDB)

	cfg.Handoff.Driver = envutil.String("HANDOFF_DRIVER", cfg.Handoff.Driver)
	cfg.Handoff.DSN = envutil.String("HANDOFF_DSN", cfg.Handoff.DSN)

	cfg.Auth.JWTSecret = envutil.String("RELAY_JWT_SECRET", cfg.Auth.JWTSecret)
}

func (cfg *Config) normalize() error {
	if cfg.Env == "" {
		cfg.Env = "development"
	}
	if strings.TrimSpace(cfg.HTTP.Addr) == "" {
		cfg.HTTP.Addr = ":8787"
	}
	if cfg.HTTP.MaxRequestBytes <= 0 {
		cfg.HTTP.MaxRequestBytes = 8 << 20
	}

	cfg.LLM.Engine = strings.ToLower(strings.TrimSpace(cfg.LLM.Engine))
	switch cfg.LLM.Engine {
	case "", "gemini":
		cfg.LLM.Engine = "gemini"
		if strings.TrimSpace(cfg.LLM.APIKey) == "" {
			return errors.New("llm.api_key (LLM_API_KEY) is required for the gemini engine")
		}
	case "mock":
	default:
		return fmt.Errorf("invalid llm.engine=%q", cfg.LLM.Engine)
	}
	cfg.LLM.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.LLM.BaseURL), "/")
	if cfg.LLM.BaseURL == "" {
		cfg.LLM.BaseURL = DefaultBaseURL
	}
	if cfg.LLM.APIVersion == "" {
		cfg.LLM.APIVersion = DefaultAPIVersion
	}
	if cfg.LLM.Model == "" {
		return errors.New("llm.model is required")
	}
	if cfg.LLM.FinalModel == "" {
		cfg.LLM.FinalModel = cfg.LLM.Model
	}
	if cfg.LLM.Timeout.Duration <= 0 {
		cfg.LLM.Timeout = Duration{Duration: 90 * time.Second}
	}
	if cfg.LLM.RetryMaxOutputTokens <= 0 {
		cfg.LLM.RetryMaxOutputTokens = 2048
	}
	if cfg.LLM.RequestsPerSecond < 0 {
		return errors.New("llm.requests_per_second must be >= 0")
	}
	if cfg.LLM.Burst <= 0 {
		cfg.LLM.Burst = 1
	}

	cfg.TTS.Provider = strings.ToLower(strings.TrimSpace(cfg.TTS.Provider))
	switch cfg.TTS.Provider {
	case "", "none":
		cfg.TTS.Provider = "none"
	case "gemini", "gcp":
	default:
		return fmt.Errorf("invalid tts.provider=%q", cfg.TTS.Provider)
	}
	if len(cfg.TTS.Voices) == 0 {
		cfg.TTS.Voices = []string{"Fenrir", "Zephyr"}
	}
	if cfg.TTS.DefaultVoice == "" {
		cfg.TTS.DefaultVoice = cfg.TTS.Voices[0]
	}
	if cfg.TTS.MaxTextChars <= 0 {
		cfg.TTS.MaxTextChars = 1200
	}
	if cfg.TTS.BatchConcurrency <= 0 {
		cfg.TTS.BatchConcurrency = 4
	}
	if cfg.TTS.MaxBatchItems <= 0 {
		cfg.TTS.MaxBatchItems = 12
	}

	cfg.Handoff.Driver = strings.ToLower(strings.TrimSpace(cfg.Handoff.Driver))
	switch cfg.Handoff.Driver {
	case "sqlite", "postgres":
	case "":
		cfg.Handoff.Driver = "sqlite"
	default:
		return fmt.Errorf("invalid handoff.driver=%q", cfg.Handoff.Driver)
	}
	if strings.TrimSpace(cfg.Handoff.DSN) == "" {
		return errors.New("handoff.dsn is required")
	}

	if cfg.Improve.MaxDOMBytes <= 0 {
		cfg.Improve.MaxDOMBytes = 60 << 10
	}
	return nil
}

// splitBaseURL accepts base URLs that carry the API version as their last path segment
// ("https://host/v1beta") and separates the two.
func splitBaseURL(raw, fallbackVersion string) (string, string) {
	raw = strings.TrimRight(strings.TrimSpace(raw), "/")
	idx := strings.LastIndex(raw, "/")
	if idx > len("https://") {
		last := raw[idx+1:]
		if strings.HasPrefix(last, "v1") {
			return raw[:idx], last
		}
	}
	return raw, fallbackVersion
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
