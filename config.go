package dataterm

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes the environment variables read by LoadConfig.
const EnvPrefix = "DTERM"

// DefaultConfigFile is read when present and no other file is given.
const DefaultConfigFile = "dterm.yaml"

// Config is the terminal configuration.
type Config struct {
	// ExportDir is where exports without an explicit path are written.
	ExportDir string `yaml:"export_dir" envconfig:"EXPORT_DIR"`
	// CacheDir holds the HTTP response cache, empty disables it.
	CacheDir string `yaml:"cache_dir" envconfig:"CACHE_DIR"`
	// Timeout bounds every fetch.
	Timeout time.Duration `yaml:"timeout" envconfig:"TIMEOUT" validate:"gt=0"`
	// Limit is the default number of rows shown.
	Limit int `yaml:"limit" envconfig:"LIMIT" validate:"min=1"`
	// LogLevel is a logrus level name.
	LogLevel string `yaml:"log_level" envconfig:"LOG_LEVEL" validate:"oneof=trace debug info warn warning error fatal panic"`
	// Trace prints OpenTelemetry spans on stderr.
	Trace bool `yaml:"trace" envconfig:"TRACE"`

	EODHD   EODHDConfig   `yaml:"eodhd" envconfig:"EODHD"`
	Onchain OnchainConfig `yaml:"onchain" envconfig:"ONCHAIN"`
	News    NewsConfig    `yaml:"news" envconfig:"NEWS"`
}

// EODHDConfig configures the eodhd source.
type EODHDConfig struct {
	APIKey string  `yaml:"api_key" envconfig:"API_KEY"`
	RPS    float64 `yaml:"rps" envconfig:"RPS" validate:"min=0"`
}

// OnchainConfig declares the on-chain metric endpoints.
type OnchainConfig struct {
	Endpoints []EndpointConfig `yaml:"endpoints" ignored:"true" validate:"dive"`
}

// EndpointConfig describes a JSON endpoint returning a time series.
//
// URL may contain {asset}, {start} and {end} placeholders. Records is the
// jsonpath of the array of records, Date and Fields are jsonpaths relative
// to a record.
type EndpointConfig struct {
	Name       string        `yaml:"name" validate:"required"`
	URL        string        `yaml:"url" validate:"required"`
	Records    string        `yaml:"records" validate:"required"`
	Date       string        `yaml:"date" validate:"required"`
	DateFormat string        `yaml:"date_format"`
	Fields     []FieldConfig `yaml:"fields" validate:"min=1,dive"`
}

// FieldConfig maps a column name to a jsonpath.
type FieldConfig struct {
	Name string `yaml:"name" validate:"required"`
	Path string `yaml:"path" validate:"required"`
}

// NewsConfig declares the news sites to scrape.
type NewsConfig struct {
	Sites []SiteConfig `yaml:"sites" ignored:"true" validate:"dive"`
}

// SiteConfig describes a news search page with CSS selectors.
// URL may contain a {query} placeholder.
type SiteConfig struct {
	Name       string `yaml:"name" validate:"required"`
	URL        string `yaml:"url" validate:"required"`
	Item       string `yaml:"item" validate:"required"`
	Title      string `yaml:"title" validate:"required"`
	Link       string `yaml:"link"`
	Published  string `yaml:"published"`
	DateFormat string `yaml:"date_format"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() Config {
	cache := ""
	if dir, err := os.UserCacheDir(); err == nil {
		cache = filepath.Join(dir, "dterm")
	}
	return Config{
		ExportDir: ".",
		CacheDir:  cache,
		Timeout:   DefaultTimeout,
		Limit:     DefaultLimit,
		LogLevel:  "warn",
		EODHD:     EODHDConfig{RPS: 5},
	}
}

// LoadConfig returns the default configuration overridden by the YAML file,
// then by DTERM_* environment variables.
//
// An empty file means DefaultConfigFile, which may be missing. A file given
// explicitly must exist.
func LoadConfig(file string) (Config, error) {
	cfg := DefaultConfig()

	explicit := file != ""
	if !explicit {
		file = DefaultConfigFile
	}
	data, err := os.ReadFile(file)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, invalidf("config %s: %v", file, err)
		}
	case explicit || !errors.Is(err, fs.ErrNotExist):
		return cfg, invalidf("config: %v", err)
	}

	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return cfg, invalidf("config from env: %v", err)
	}
	// the provider's own variable, as documented by eodhd.com
	if cfg.EODHD.APIKey == "" {
		cfg.EODHD.APIKey = os.Getenv("EODHD_API_KEY")
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration constraints.
func (c Config) Validate() error { return validateStruct(c) }
