package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultNYTAPIKey is used when NYT_API_KEY is unset.
// FIXME: a committed key leaks with the binary; drop it once every deployment sets NYT_API_KEY.
const DefaultNYTAPIKey = "nyt-demo-key-replace-me"

const (
	DefaultNYTBaseURL = "https://api.nytimes.com/svc/search/v2/articlesearch.json"
	DefaultFMPBaseURL = "https://financialmodelingprep.com/stable"
)

// Config holds everything a run needs. Nothing below it reads the environment.
type Config struct {
	DataDir        string        `yaml:"data_dir"`
	CacheMaxAge    time.Duration `yaml:"cache_max_age"`
	HistoryStart   string        `yaml:"history_start"`
	TopK           int           `yaml:"top_k"`
	MinSpacingDays int           `yaml:"min_spacing_days"` // 0 means the window size
	Output         string        `yaml:"output"`

	NYT struct {
		APIKey  string        `yaml:"api_key"`
		BaseURL string        `yaml:"base_url"`
		Delay   time.Duration `yaml:"delay"`
	} `yaml:"nyt"`

	FMP struct {
		APIKey  string `yaml:"api_key"`
		BaseURL string `yaml:"base_url"`
	} `yaml:"fmp"`

	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`

	Trace struct {
		Enabled bool   `yaml:"enabled"`
		File    string `yaml:"file"`
	} `yaml:"trace"`

	Port        string `yaml:"port"`
	AdminAPIKey string `yaml:"admin_api_key"`
}

func Get(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func GetBool(key, defaultVal string) bool {
	v := strings.ToLower(Get(key))
	if v == "" {
		v = defaultVal
	}
	return v == "1" || v == "true" || v == "yes"
}

// Load reads .env, then the YAML file at path (a missing file is fine),
// then environment overrides, then fills defaults.
func Load(path string) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if v := Get("EXTREMES_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := Get("EXTREMES_OUTPUT"); v != "" {
		cfg.Output = strings.ToLower(v)
	}
	if v := Get("NYT_API_KEY"); v != "" {
		cfg.NYT.APIKey = v
	}
	if v := Get("NYT_BASE_URL"); v != "" {
		cfg.NYT.BaseURL = v
	}
	if v := Get("FMP_API_KEY"); v != "" {
		cfg.FMP.APIKey = v
	}
	if v := Get("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := Get("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if Get("EXTREMES_TRACE") != "" {
		cfg.Trace.Enabled = GetBool("EXTREMES_TRACE", "false")
	}
	if v := Get("EXTREMES_TRACE_FILE"); v != "" {
		cfg.Trace.File = v
	}
	if v := Get("EXTREMES_TOP_K"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("EXTREMES_TOP_K: %w", err)
		}
		cfg.TopK = n
	}
	if v := Get("PORT"); v != "" {
		cfg.Port = v
	}
	if v := Get("ADMIN_API_KEY"); v != "" {
		cfg.AdminAPIKey = v
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data"
	}
	if c.CacheMaxAge == 0 {
		c.CacheMaxAge = 24 * time.Hour
	}
	if c.HistoryStart == "" {
		c.HistoryStart = "2000-01-01"
	}
	if c.TopK == 0 {
		c.TopK = 10
	}
	if c.Output == "" {
		c.Output = "text"
	}
	if c.NYT.APIKey == "" {
		c.NYT.APIKey = DefaultNYTAPIKey
	}
	if c.NYT.BaseURL == "" {
		c.NYT.BaseURL = DefaultNYTBaseURL
	}
	if c.NYT.Delay == 0 {
		c.NYT.Delay = time.Second
	}
	if c.FMP.BaseURL == "" {
		c.FMP.BaseURL = DefaultFMPBaseURL
	}
	if c.Log.Level == "" {
		c.Log.Level = "warn"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Port == "" {
		c.Port = "8000"
	}
}

// HistoryStartDate parses HistoryStart.
func (c *Config) HistoryStartDate() (time.Time, error) {
	t, err := time.Parse("2006-01-02", c.HistoryStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("history_start: %w", err)
	}
	return t, nil
}

// Validate checks that values are usable.
func (c *Config) Validate() error {
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.MinSpacingDays < 0 {
		return fmt.Errorf("min_spacing_days must not be negative, got %d", c.MinSpacingDays)
	}
	if c.CacheMaxAge < 0 {
		return fmt.Errorf("cache_max_age must not be negative")
	}
	if c.Output != "text" && c.Output != "json" {
		return fmt.Errorf("output must be text or json, got %q", c.Output)
	}
	if _, err := c.HistoryStartDate(); err != nil {
		return err
	}
	return nil
}

// SpacingFor returns the spacing radius for a window of days.
func (c *Config) SpacingFor(days int) int {
	if c.MinSpacingDays > 0 {
		return c.MinSpacingDays
	}
	return days
}
