package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds application configuration
type Config struct {
	API struct {
		BaseURL           string        `yaml:"base_url"`
		Timeout           time.Duration `yaml:"timeout"`
		RequestsPerSecond float64       `yaml:"requests_per_second"`
		Burst             int           `yaml:"burst"`
	} `yaml:"api"`
	Session struct {
		Dir string `yaml:"dir"`
	} `yaml:"session"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
	Archive struct {
		DSN string `yaml:"dsn"`
	} `yaml:"archive"`
	Report struct {
		FontPath string `yaml:"font_path"`
	} `yaml:"report"`
	Paths struct {
		DocumentsDir string `yaml:"documents_dir"`
	} `yaml:"paths"`
}

// Dir returns the directory holding the config file, session database and logs
func Dir() string {
	return filepath.Join(os.Getenv("HOME"), ".healthsync")
}

// Path returns the config file location. HEALTHSYNC_CONFIG overrides it.
func Path() string {
	if p := os.Getenv("HEALTHSYNC_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(Dir(), "config.yaml")
}

// Load loads configuration from file or returns defaults, then applies env overrides
func Load() (*Config, error) {
	cfg := Default()

	configPath := Path()
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, cfg.applyEnv()
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}

	return cfg, cfg.applyEnv()
}

func (c *Config) applyEnv() error {
	if v := os.Getenv("HEALTHSYNC_API_URL"); v != "" {
		c.API.BaseURL = v
	}
	if v := os.Getenv("HEALTHSYNC_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("HEALTHSYNC_ARCHIVE_DSN"); v != "" {
		c.Archive.DSN = v
	}
	if v := os.Getenv("HEALTHSYNC_METRICS_ADDR"); v != "" {
		c.Metrics.Addr = v
	}
	if v := os.Getenv("HEALTHSYNC_API_RPS"); v != "" {
		rps, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid HEALTHSYNC_API_RPS %q: %w", v, err)
		}
		c.API.RequestsPerSecond = rps
	}
	return nil
}

// Save saves configuration to file
func (c *Config) Save() error {
	configPath := Path()
	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return os.WriteFile(configPath, data, 0644)
}

// Default returns default configuration
func Default() *Config {
	cfg := &Config{}

	cfg.API.BaseURL = "http://localhost:5001"
	cfg.API.Timeout = 2 * time.Minute // analysis calls run a model server-side
	cfg.API.RequestsPerSecond = 10
	cfg.API.Burst = 20

	dir := Dir()
	cfg.Session.Dir = filepath.Join(dir, "session")
	cfg.Logging.Level = "info"
	cfg.Logging.File = filepath.Join(dir, "healthsync.log")
	cfg.Paths.DocumentsDir = filepath.Join(os.Getenv("HOME"), "documents")

	return cfg
}
