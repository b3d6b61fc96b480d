package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type AppConfig struct {
	BaseURL        string        `yaml:"base-url" env:"OMOK_BASE_URL"`
	RequestTimeout time.Duration `yaml:"request-timeout" env:"OMOK_REQUEST_TIMEOUT" env-default:"10s"`
	StateRetry     int           `yaml:"state-retry" env:"OMOK_STATE_RETRY" env-default:"3"`
	Player         string        `yaml:"player" env:"OMOK_PLAYER" env-default:"player"`

	Timing Timing `yaml:"timing"`

	MessagesDir string `yaml:"messages-dir" env:"OMOK_MESSAGES_DIR"`
	SnapshotDir string `yaml:"snapshot-dir" env:"OMOK_SNAPSHOT_DIR"`

	RedisURL     string `yaml:"redis-url" env:"REDIS_URL"`
	DatabaseURL  string `yaml:"database-url" env:"DATABASE_URL"`
	HistoryLimit int    `yaml:"history-limit" env:"OMOK_HISTORY_LIMIT" env-default:"50"`

	Log Log `yaml:"log"`
}

// Timing holds the cosmetic delays. None of them gate protocol correctness.
type Timing struct {
	AITurnDelay time.Duration `yaml:"ai-turn-delay" env:"OMOK_AI_TURN_DELAY" env-default:"500ms"`
	ThinkTick   time.Duration `yaml:"think-tick" env:"OMOK_THINK_TICK" env-default:"200ms"`
	ThinkGrace  time.Duration `yaml:"think-grace" env:"OMOK_THINK_GRACE" env-default:"300ms"`
	ResultDelay time.Duration `yaml:"result-delay" env:"OMOK_RESULT_DELAY" env-default:"1s"`
	ResultGrace time.Duration `yaml:"result-grace" env:"OMOK_RESULT_GRACE" env-default:"500ms"`
}

type Log struct {
	Level     string `yaml:"level" env:"LOG_LEVEL" env-default:"info"`
	Format    string `yaml:"format" env:"LOG_FORMAT" env-default:"legacy"`
	ToConsole bool   `yaml:"to-console" env:"LOG_TO_CONSOLE" env-default:"false"`
	File      string `yaml:"file" env:"LOG_FILE" env-default:"logs/omok.log"`
	Caller    bool   `yaml:"caller" env:"LOG_CALLER" env-default:"false"`
}

// Load reads the optional YAML file named by OMOK_CONFIG and then applies
// environment overrides.
func Load() (*AppConfig, error) {
	return LoadFile(strings.TrimSpace(os.Getenv("OMOK_CONFIG")))
}

func LoadFile(path string) (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error
	if path != "" {
		err = cleanenv.ReadConfig(path, cfg)
	} else {
		err = cleanenv.ReadEnv(cfg)
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	cfg.BaseURL = strings.TrimSpace(cfg.BaseURL)
	cfg.Player = strings.TrimSpace(cfg.Player)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) Validate() error {
	if c.BaseURL == "" {
		return errors.New("OMOK_BASE_URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("OMOK_BASE_URL must be an http(s) URL, got %q", c.BaseURL)
	}
	if c.RequestTimeout <= 0 {
		return errors.New("OMOK_REQUEST_TIMEOUT must be positive")
	}
	if c.StateRetry < 1 {
		c.StateRetry = 1
	}
	if c.HistoryLimit <= 0 {
		c.HistoryLimit = 50
	}
	if c.Player == "" {
		c.Player = "player"
	}
	t := c.Timing
	for name, d := range map[string]time.Duration{
		"OMOK_AI_TURN_DELAY": t.AITurnDelay,
		"OMOK_THINK_GRACE":   t.ThinkGrace,
		"OMOK_RESULT_DELAY":  t.ResultDelay,
		"OMOK_RESULT_GRACE":  t.ResultGrace,
	} {
		if d < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	if t.ThinkTick <= 0 {
		return errors.New("OMOK_THINK_TICK must be positive")
	}
	return nil
}
