package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	RelayURL string        `yaml:"relay_url"`
	Token    string        `yaml:"token,omitempty"`
	Timeout  time.Duration `yaml:"timeout,omitempty"`

	TTS TTSConfig `yaml:"tts"`

	LogMode string `yaml:"log_mode,omitempty"`
	LogFile string `yaml:"log_file,omitempty"`
}

type TTSConfig struct {
	Enabled bool   `yaml:"enabled"`
	Voice   string `yaml:"voice"`
	// Player is the command used to play WAV files, e.g. "afplay" or "aplay".
	Player string `yaml:"player,omitempty"`
}

var Voices = []string{"Fenrir", "Zephyr"}

func DefaultConfig() *Config {
	return &Config{
		RelayURL: "http://localhost:8787",
		Timeout:  90 * time.Second,
		TTS: TTSConfig{
			Enabled: false,
			Voice:   "Fenrir",
		},
		LogMode: "production",
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "lovabuddy"), nil
}

// ConfigPath honours LOVABUDDY_CONFIG before the default location.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv("LOVABUDDY_CONFIG")); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

func Exists() bool {
	path, err := ConfigPath()
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// Load reads the config file, falling back to defaults when it does not exist, then
// applies LOVABUDDY_RELAY_URL and LOVABUDDY_TOKEN.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	cfg, err := LoadFrom(path)
	if err != nil {
		return nil, err
	}
	cfg.applyEnv()
	return cfg, nil
}

func LoadFrom(path string) (*Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv("LOVABUDDY_RELAY_URL")); v != "" {
		c.RelayURL = v
	}
	if v := strings.TrimSpace(os.Getenv("LOVABUDDY_TOKEN")); v != "" {
		c.Token = v
	}
}

func (c *Config) normalize() {
	c.RelayURL = strings.TrimRight(strings.TrimSpace(c.RelayURL), "/")
	if c.RelayURL == "" {
		c.RelayURL = DefaultConfig().RelayURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultConfig().Timeout
	}
	if !ValidVoice(c.TTS.Voice) {
		c.TTS.Voice = Voices[0]
	}
}

func ValidVoice(v string) bool {
	for _, known := range Voices {
		if v == known {
			return true
		}
	}
	return false
}

func (c *Config) Save() error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return c.SaveTo(path)
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// LogPath is where the TUI writes its log so the terminal stays clean.
func (c *Config) LogPath() (string, error) {
	if c.LogFile != "" {
		return c.LogFile, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "buddy.log"), nil
}
