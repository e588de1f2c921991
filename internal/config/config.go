// Package config loads fairdiet settings from ~/.fairdiet/config.yaml, an
// optional project overlay and FAIRDIET_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is matched by every error returned from Validate.
var ErrInvalidConfig = errors.New("invalid configuration")

// ErrUnknownKey is returned by Get for a key that does not name a setting.
var ErrUnknownKey = errors.New("unknown configuration key")

// Environment overrides, applied after the file.
const (
	EnvHome           = "FAIRDIET_HOME"
	EnvProjectDir     = "FAIRDIET_PROJECT_DIR"
	EnvDataDir        = "FAIRDIET_DATA_DIR"
	EnvClimateCommand = "FAIRDIET_CLIMATE_COMMAND"
	EnvLogLevel       = "FAIRDIET_LOG_LEVEL"
	EnvLogFormat      = "FAIRDIET_LOG_FORMAT"
	EnvServerAddr     = "FAIRDIET_SERVER_ADDR"
	EnvCacheDir       = "FAIRDIET_CACHE_DIR"
)

const (
	configFileName         = "config.yaml"
	defaultServerAddr      = "127.0.0.1:8050"
	defaultTimeout         = 30 * time.Second
	defaultMaxCompensation = 1e3
	defaultCacheTTL        = 7 * 24 * time.Hour
)

// Config is the full settings tree.
type Config struct {
	Data      DataConfig      `yaml:"data"`
	Scaling   ScalingConfig   `yaml:"scaling"`
	Climate   ClimateConfig   `yaml:"climate"`
	Logging   LoggingConfig   `yaml:"logging"`
	Server    ServerConfig    `yaml:"server"`
	Dashboard DashboardConfig `yaml:"dashboard"`

	configPath string
}

// DataConfig locates the input CSV files and the catalog.
type DataConfig struct {
	Dir string `yaml:"dir"`

	// Catalog is a YAML catalog file; empty means the embedded default.
	Catalog        string `yaml:"catalog"`
	ItemPattern    string `yaml:"item_pattern"`
	PopulationFile string `yaml:"population_file"`

	// PopulationFallback is the area code used when a region has no
	// population rows. Zero disables the fallback.
	PopulationFallback int `yaml:"population_fallback"`
}

// ScalingConfig tunes the scaling engine.
type ScalingConfig struct {
	DegeneratePolicy   string  `yaml:"degenerate_policy"`
	MaxCompensation    float64 `yaml:"max_compensation"`
	ApplyMeatReduction bool    `yaml:"apply_meat_reduction"`
}

// ClimateConfig describes the external climate model command. An empty
// Command disables climate projections.
type ClimateConfig struct {
	Command            string        `yaml:"command"`
	Args               []string      `yaml:"args"`
	Timeout            time.Duration `yaml:"timeout"`
	ProtocolConstraint string        `yaml:"protocol_constraint"`

	// Cache memoizes projections on disk under CacheDir, or
	// ~/.fairdiet/cache when empty. Off by default: every recompute runs the
	// model. A zero CacheTTL never expires entries.
	Cache    bool          `yaml:"cache"`
	CacheDir string        `yaml:"cache_dir"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

// ResolvedCacheDir returns CacheDir or the default under the config directory.
func (c ClimateConfig) ResolvedCacheDir() (string, error) {
	if c.CacheDir != "" {
		return c.CacheDir, nil
	}
	dir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "cache"), nil
}

// LoggingConfig controls log level, format and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// ServerConfig configures `fairdiet serve`.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DashboardConfig holds the dashboard's initial selection.
type DashboardConfig struct {
	Region string `yaml:"region"`
	Basis  string `yaml:"basis"`
	Panel  string `yaml:"panel"`
}

// Panels the dashboard can open on.
//
//nolint:gochecknoglobals // Fixed lookup table.
var knownPanels = []string{"emissions", "concentration", "forcing", "temperature", "nutrients"}

// Default returns the built-in settings without touching the filesystem.
func Default() *Config {
	return &Config{
		Data: DataConfig{
			Dir:                "data",
			ItemPattern:        "food/FAOSTAT_{item}_data.csv",
			PopulationFile:     "population/population.csv",
			PopulationFallback: 0,
		},
		Scaling: ScalingConfig{
			DegeneratePolicy: "reject",
			MaxCompensation:  defaultMaxCompensation,
		},
		Climate: ClimateConfig{
			Timeout:            defaultTimeout,
			ProtocolConstraint: "^1.0",
			Cache:              false,
			CacheTTL:           defaultCacheTTL,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Server: ServerConfig{Addr: defaultServerAddr},
		Dashboard: DashboardConfig{
			Region: "uk",
			Basis:  "weight",
			Panel:  "emissions",
		},
	}
}

// New returns the defaults overlaid with ~/.fairdiet/config.yaml, when it
// exists, and the environment. A config file that cannot be parsed is ignored.
func New() *Config {
	cfg := Default()
	if dir, err := GetConfigDir(); err == nil {
		cfg.configPath = filepath.Join(dir, configFileName)
	}
	if cfg.configPath != "" {
		if loaded, err := Load(cfg.configPath); err == nil {
			cfg = loaded
		}
	}
	cfg.applyEnv()
	return cfg
}

// Load reads path on top of the defaults. Environment overrides are not
// applied.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.configPath = path
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	if err = yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	return cfg, nil
}

// ConfigPath returns the file Save writes to.
func (c *Config) ConfigPath() string { return c.configPath }

// SetConfigPath changes the file Save writes to.
func (c *Config) SetConfigPath(path string) { c.configPath = path }

// Save writes the configuration as YAML, creating the directory if needed.
func (c *Config) Save() error {
	if c.configPath == "" {
		return errors.New("no config path set")
	}
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0o700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err = os.WriteFile(c.configPath, data, 0o600); err != nil {
		return fmt.Errorf("writing config %s: %w", c.configPath, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvDataDir); v != "" {
		c.Data.Dir = v
	}
	if v := os.Getenv(EnvClimateCommand); v != "" {
		c.Climate.Command = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvServerAddr); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv(EnvCacheDir); v != "" {
		c.Climate.CacheDir = v
	}
}

// Validate checks value ranges and enumerations. All problems are reported
// together; the result matches ErrInvalidConfig.
func (c *Config) Validate() error {
	var problems []string
	add := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}

	if c.Data.Dir == "" {
		add("data.dir must not be empty")
	}
	if !strings.Contains(c.Data.ItemPattern, "{item}") {
		add("data.item_pattern %q must contain {item}", c.Data.ItemPattern)
	}
	if c.Data.PopulationFallback < 0 {
		add("data.population_fallback must not be negative")
	}
	switch c.Scaling.DegeneratePolicy {
	case "reject", "clamp":
	default:
		add("scaling.degenerate_policy %q must be reject or clamp", c.Scaling.DegeneratePolicy)
	}
	if !(c.Scaling.MaxCompensation >= 1) {
		add("scaling.max_compensation must be at least 1")
	}
	if c.Climate.Timeout <= 0 {
		add("climate.timeout must be positive")
	}
	if c.Climate.CacheTTL < 0 {
		add("climate.cache_ttl must not be negative")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal", "panic", "disabled":
	default:
		add("logging.level %q is not a known level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		add("logging.format %q must be console or json", c.Logging.Format)
	}
	if c.Server.Addr == "" {
		add("server.addr must not be empty")
	}
	switch c.Dashboard.Basis {
	case "weight", "calories", "protein":
	default:
		add("dashboard.basis %q must be weight, calories or protein", c.Dashboard.Basis)
	}
	if !contains(knownPanels, c.Dashboard.Panel) {
		add("dashboard.panel %q must be one of %s", c.Dashboard.Panel, strings.Join(knownPanels, ", "))
	}

	if len(problems) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
}

// Get returns the value at a dotted key such as "scaling.degenerate_policy".
// Sections are rendered as YAML.
func (c *Config) Get(key string) (string, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}
	var tree map[string]any
	if err = yaml.Unmarshal(data, &tree); err != nil {
		return "", fmt.Errorf("decoding config: %w", err)
	}

	var node any = tree
	for _, part := range strings.Split(key, ".") {
		m, ok := node.(map[string]any)
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
		if node, ok = m[part]; !ok {
			return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
		}
	}

	switch v := node.(type) {
	case string:
		return v, nil
	case int:
		return strconv.Itoa(v), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	case nil:
		return "", nil
	default:
		out, marshalErr := yaml.Marshal(v)
		if marshalErr != nil {
			return "", fmt.Errorf("encoding %s: %w", key, marshalErr)
		}
		return strings.TrimRight(string(out), "\n"), nil
	}
}

// Keys lists every leaf key accepted by Get, sorted.
func (c *Config) Keys() []string {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil
	}
	var tree map[string]any
	if yaml.Unmarshal(data, &tree) != nil {
		return nil
	}
	var keys []string
	for section, v := range tree {
		m, ok := v.(map[string]any)
		if !ok {
			keys = append(keys, section)
			continue
		}
		for k := range m {
			keys = append(keys, section+"."+k)
		}
	}
	sort.Strings(keys)
	return keys
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
