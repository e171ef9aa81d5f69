package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gobwas/glob"
	"gopkg.in/yaml.v3"

	"mdpress/internal/errors"
	"mdpress/pkg/types"
)

// EnvEndpoint overrides converter.endpoint when set.
const EnvEndpoint = "MDPRESS_ENDPOINT"

// Config represents the application configuration structure.
// It defines the converter endpoint, how trees are collected, where artifacts
// are saved, and logging.
type Config struct {
	Converter struct {
		Endpoint      string        `yaml:"endpoint"`       // URL receiving the multipart POST
		Timeout       time.Duration `yaml:"timeout"`        // Whole round trip, e.g. "5m"
		FieldName     string        `yaml:"field_name"`     // Multipart part name for every file
		EntryDocument string        `yaml:"entry_document"` // Optional main .md, sent as entry_md
	} `yaml:"converter"`
	Collect struct {
		BatchSize   int      `yaml:"batch_size"`  // Directory entries read per batch
		Concurrency int      `yaml:"concurrency"` // Subtrees walked in parallel
		Include     []string `yaml:"include"`     // Globs a path must match (empty = all)
		Exclude     []string `yaml:"exclude"`     // Globs removing paths
	} `yaml:"collect"`
	Output struct {
		Directory    string        `yaml:"directory"`     // Local directory artifacts are saved to
		S3URI        string        `yaml:"s3_uri"`        // s3://bucket/prefix, replaces directory when set
		DefaultName  string        `yaml:"default_name"`  // Used when the converter names nothing
		ReleaseGrace time.Duration `yaml:"release_grace"` // How long a staged artifact is kept
	} `yaml:"output"`
	Watch struct {
		Debounce time.Duration `yaml:"debounce"` // Quiet period before re-converting
	} `yaml:"watch"`
	Log struct {
		Level string `yaml:"level"`
		JSON  bool   `yaml:"json"`
		File  string `yaml:"file"`
	} `yaml:"log"`
}

// DefaultPath returns ~/.config/mdpress/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "mdpress", "config.yaml"), nil
}

// LoadConfig loads configuration from the default location.
func LoadConfig() (*Config, error) {
	path, err := DefaultPath()
	if err != nil {
		return nil, err
	}
	return LoadConfigFile(path)
}

// LoadConfigFile loads configuration from a specific file path.
// If the file doesn't exist, returns default configuration.
func LoadConfigFile(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.NewConfigError("error reading config file", path, errors.ConfigNotFound, err)
	default:
		// Values absent from the file keep their defaults.
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.NewConfigError("error parsing config file", path, errors.InvalidConfig, err)
		}
	}

	if env := strings.TrimSpace(os.Getenv(EnvEndpoint)); env != "" {
		cfg.Converter.Endpoint = env
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// defaultConfig returns the default configuration with safe defaults.
func defaultConfig() *Config {
	cfg := &Config{}

	cfg.Converter.Endpoint = "http://localhost:8000/convert"
	cfg.Converter.Timeout = 5 * time.Minute
	cfg.Converter.FieldName = "files"

	cfg.Collect.BatchSize = 100
	cfg.Collect.Concurrency = 8
	cfg.Collect.Include = []string{}
	cfg.Collect.Exclude = []string{}

	cfg.Output.Directory = "."
	cfg.Output.DefaultName = types.DefaultArtifactName
	cfg.Output.ReleaseGrace = time.Minute

	cfg.Watch.Debounce = 500 * time.Millisecond

	cfg.Log.Level = "info"

	return cfg
}

// New creates a new configuration instance with default values.
func New() *Config {
	return defaultConfig()
}

// SaveConfig saves the configuration to the specified file.
// It creates parent directories if they don't exist.
func SaveConfig(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.NewConfigError("nil config", "", errors.InvalidConfig, nil)
	}

	checks := []struct {
		param string
		err   error
	}{
		{"converter", validation.ValidateStruct(&c.Converter,
			validation.Field(&c.Converter.Endpoint, validation.Required, validation.By(httpURL)),
			validation.Field(&c.Converter.Timeout, validation.Min(time.Second)),
			validation.Field(&c.Converter.FieldName, validation.Required),
		)},
		{"collect", validation.ValidateStruct(&c.Collect,
			validation.Field(&c.Collect.BatchSize, validation.Required, validation.Min(1)),
			validation.Field(&c.Collect.Concurrency, validation.Required, validation.Min(1), validation.Max(256)),
			validation.Field(&c.Collect.Include, validation.By(compilableGlobs)),
			validation.Field(&c.Collect.Exclude, validation.By(compilableGlobs)),
		)},
		{"output", validation.ValidateStruct(&c.Output,
			validation.Field(&c.Output.S3URI, validation.By(s3URI)),
			validation.Field(&c.Output.DefaultName, validation.Required),
			validation.Field(&c.Output.ReleaseGrace, validation.Min(time.Second)),
		)},
		{"watch", validation.ValidateStruct(&c.Watch,
			validation.Field(&c.Watch.Debounce, validation.Min(time.Duration(0))),
		)},
		{"log", validation.ValidateStruct(&c.Log,
			validation.Field(&c.Log.Level, validation.In("debug", "info", "warn", "error")),
		)},
	}

	for _, check := range checks {
		if check.err != nil {
			return errors.NewConfigError("invalid configuration", check.param, errors.InvalidConfig, check.err)
		}
	}
	return nil
}

func httpURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("must be an http or https URL")
	}
	if u.Host == "" {
		return fmt.Errorf("must include a host")
	}
	return nil
}

func compilableGlobs(value interface{}) error {
	patterns, _ := value.([]string)
	for i, p := range patterns {
		if p == "" {
			return fmt.Errorf("pattern %d must not be empty", i)
		}
		if _, err := glob.Compile(p, '/'); err != nil {
			return fmt.Errorf("pattern %d: %w", i, err)
		}
	}
	return nil
}

func s3URI(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, _, err := ParseS3URI(s)
	return err
}

// ParseS3URI splits s3://bucket/prefix into bucket and prefix. The prefix has
// no leading slash and, when non-empty, a trailing one.
func ParseS3URI(uri string) (bucket, prefix string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("expected s3://bucket[/prefix], got %q", uri)
	}
	prefix = strings.TrimPrefix(u.Path, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}
	return u.Host, prefix, nil
}
