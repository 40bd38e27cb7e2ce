// Package config manages zcurate configuration and the .zcurate workspace
// directory. It handles loading, validating and initializing the configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/kilupskalvis/zcurate/internal/models"
)

const (
	WorkspaceDir = ".zcurate"
	ConfigFile   = "config.toml"
	StateFile    = "state.db"
	LogsDir      = "logs"
	EnvFile      = ".env"
)

// Environment variables that override configuration keys
const (
	EnvSpectraDir = "ZCURATE_SPECTRA_DIR"
	EnvLogLevel   = "ZCURATE_LOG_LEVEL"
	EnvReviewMode = "ZCURATE_REVIEW_MODE"
)

// Config is the immutable zcurate configuration. It is built once at startup
// and passed by pointer to every component.
type Config struct {
	Catalog CatalogConfig `toml:"catalog" yaml:"catalog"`
	Flags   FlagsConfig   `toml:"flags" yaml:"flags"`
	Match   MatchConfig   `toml:"match" yaml:"match"`
	Spectra SpectraConfig `toml:"spectra" yaml:"spectra"`
	Working FileConfig    `toml:"working" yaml:"working"`
	Review  ReviewConfig  `toml:"review" yaml:"review"`
	Final   FileConfig    `toml:"final" yaml:"final"`
	Display DisplayConfig `toml:"display" yaml:"display"`
	Log     LogConfig     `toml:"log" yaml:"log"`

	root string // directory containing .zcurate
	path string // config file
}

// FileConfig locates a catalog file
type FileConfig struct {
	Path   string `toml:"path" yaml:"path" validate:"required"`
	Format string `toml:"format,omitempty" yaml:"format,omitempty" validate:"omitempty,oneof=csv tsv sqlite"`
	Table  string `toml:"table,omitempty" yaml:"table,omitempty"`
}

// CatalogConfig describes the raw spectroscopic input catalog
type CatalogConfig struct {
	Path            string    `toml:"path" yaml:"path" validate:"required"`
	Format          string    `toml:"format,omitempty" yaml:"format,omitempty" validate:"omitempty,oneof=csv tsv sqlite"`
	Table           string    `toml:"table,omitempty" yaml:"table,omitempty"`
	IDColumn        string    `toml:"id_column" yaml:"id_column" validate:"required"`
	RAColumn        string    `toml:"ra_column" yaml:"ra_column" validate:"required"`
	DecColumn       string    `toml:"dec_column" yaml:"dec_column" validate:"required"`
	ZColumn         string    `toml:"z_column" yaml:"z_column" validate:"required"`
	FlagColumn      string    `toml:"flag_column" yaml:"flag_column" validate:"required"`
	SpectrumColumn  string    `toml:"spectrum_column" yaml:"spectrum_column" validate:"required"`
	KeepColumns     []string  `toml:"keep_columns" yaml:"keep_columns"`
	SelectionColumn string    `toml:"selection_column,omitempty" yaml:"selection_column,omitempty"`
	BoundingBox     BoxConfig `toml:"bounding_box" yaml:"bounding_box"`
}

// BoxConfig restricts the input catalog to an RA/Dec box (degrees, inclusive)
type BoxConfig struct {
	Enabled bool    `toml:"enabled" yaml:"enabled"`
	RAMin   float64 `toml:"ra_min" yaml:"ra_min"`
	RAMax   float64 `toml:"ra_max" yaml:"ra_max" validate:"gtefield=RAMin"`
	DecMin  float64 `toml:"dec_min" yaml:"dec_min"`
	DecMax  float64 `toml:"dec_max" yaml:"dec_max" validate:"gtefield=DecMin"`
}

// FlagsConfig configures flag normalization. Classes maps a normalized class
// ("0".."5") to the raw quality digits it replaces.
type FlagsConfig struct {
	Scheme     string              `toml:"scheme" yaml:"scheme" validate:"required"`
	LowerLimit float64             `toml:"lower_limit" yaml:"lower_limit"`
	UpperLimit float64             `toml:"upper_limit" yaml:"upper_limit"`
	ZeroLimit  bool                `toml:"zero_limit" yaml:"zero_limit"`
	Classes    map[string][]string `toml:"classes" yaml:"classes"`
}

// MatchConfig configures the optional photometric-redshift cross-match
type MatchConfig struct {
	Enabled       bool   `toml:"enabled" yaml:"enabled"`
	Path          string `toml:"path" yaml:"path" validate:"required_if=Enabled true"`
	Format        string `toml:"format,omitempty" yaml:"format,omitempty" validate:"omitempty,oneof=csv tsv sqlite"`
	Table         string `toml:"table,omitempty" yaml:"table,omitempty"`
	IDColumn      string `toml:"id_column" yaml:"id_column" validate:"required_if=Enabled true"`
	RAColumn      string `toml:"ra_column" yaml:"ra_column" validate:"required_if=Enabled true"`
	DecColumn     string `toml:"dec_column" yaml:"dec_column" validate:"required_if=Enabled true"`
	ZColumn       string `toml:"z_column" yaml:"z_column" validate:"required_if=Enabled true"`
	MaxSeparation string `toml:"max_separation" yaml:"max_separation"`
}

// SpectraConfig locates one-dimensional spectra
type SpectraConfig struct {
	Dir                string  `toml:"dir" yaml:"dir" validate:"required"`
	Profile            string  `toml:"profile" yaml:"profile" validate:"required"`
	FluxScale          float64 `toml:"flux_scale" yaml:"flux_scale" validate:"gt=0"`
	PlaceholderOnError bool    `toml:"placeholder_on_error" yaml:"placeholder_on_error"`
	CacheTTL           string  `toml:"cache_ttl" yaml:"cache_ttl"`
}

// ReviewConfig selects the review set and locates the session files
type ReviewConfig struct {
	Mode          string     `toml:"mode" yaml:"mode" validate:"oneof=new resume"`
	Verified      string     `toml:"verified" yaml:"verified" validate:"oneof=all verified unverified"`
	ZMin          float64    `toml:"zmin" yaml:"zmin"`
	ZMax          float64    `toml:"zmax" yaml:"zmax" validate:"gtefield=ZMin"`
	PhotFilter    string     `toml:"phot_filter" yaml:"phot_filter"`
	Quality       []int      `toml:"quality" yaml:"quality" validate:"dive,min=0,max=5"`
	SamplePercent float64    `toml:"sample_percent" yaml:"sample_percent" validate:"gt=0,lte=100"`
	Seed          *int64     `toml:"seed,omitempty" yaml:"seed,omitempty"`
	Buffer        string     `toml:"buffer" yaml:"buffer" validate:"required"`
	Output        FileConfig `toml:"output" yaml:"output"`
}

// DisplayConfig configures the terminal reviewer
type DisplayConfig struct {
	WavelengthType string  `toml:"wavelength_type" yaml:"wavelength_type" validate:"oneof=air vacuum"`
	Lines          string  `toml:"lines" yaml:"lines" validate:"oneof=all primary none"`
	LinesFile      string  `toml:"lines_file,omitempty" yaml:"lines_file,omitempty"`
	ZStep          float64 `toml:"z_step" yaml:"z_step" validate:"gt=0"`
}

// LogConfig configures the rotating log file
type LogConfig struct {
	Level      string `toml:"level" yaml:"level" validate:"oneof=debug info warn error"`
	MaxSizeMB  int    `toml:"max_size_mb" yaml:"max_size_mb" validate:"gte=0"`
	MaxBackups int    `toml:"max_backups" yaml:"max_backups" validate:"gte=0"`
}

// Default returns a configuration with every optional key set
func Default() *Config {
	return &Config{
		Flags: FlagsConfig{Scheme: "decimal-code"},
		Match: MatchConfig{MaxSeparation: "1arcsec"},
		Spectra: SpectraConfig{
			Profile:   "ascii",
			FluxScale: 1,
			CacheTTL:  "10m",
		},
		Working: FileConfig{Path: "data/working.csv"},
		Review: ReviewConfig{
			Mode:          "resume",
			Verified:      "unverified",
			ZMin:          0,
			ZMax:          10,
			PhotFilter:    "ignore",
			SamplePercent: 100,
			Buffer:        "data/buffer.csv",
			Output:        FileConfig{Path: "data/reviewed.csv"},
		},
		Final: FileConfig{Path: "data/final.csv"},
		Display: DisplayConfig{
			WavelengthType: "vacuum",
			Lines:          "primary",
			ZStep:          5e-4,
		},
		Log: LogConfig{Level: "info", MaxSizeMB: 10, MaxBackups: 3},
	}
}

// FindRoot finds the .zcurate directory by walking up from the current directory
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}

	for {
		wsPath := filepath.Join(dir, WorkspaceDir)
		if info, err := os.Stat(wsPath); err == nil && info.IsDir() {
			return wsPath, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", models.Configf("not a zcurate workspace (or any parent up to root); run 'zcurate init'")
		}
		dir = parent
	}
}

// Load loads the workspace configuration. An explicit path overrides the
// workspace config file; relative paths inside it still resolve against the
// workspace root.
func Load(explicitPath string) (*Config, error) {
	wsPath, err := FindRoot()
	if err != nil {
		return nil, err
	}
	path := explicitPath
	if path == "" {
		path = filepath.Join(wsPath, ConfigFile)
	}
	return LoadFile(path, filepath.Dir(wsPath))
}

// LoadFile loads a TOML or YAML configuration file; root is the directory
// relative paths resolve against.
func LoadFile(path, root string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, models.DataAccessf(err, "failed to read config")
	}

	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		err = toml.Unmarshal(data, cfg)
	}
	if err != nil {
		return nil, models.Configf("failed to parse config %s: %v", path, err)
	}

	if err := applyEnv(cfg, root); err != nil {
		return nil, err
	}

	cfg.root = root
	cfg.path = path
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv loads the workspace .env file (without overriding the process
// environment) and applies the supported overrides.
func applyEnv(cfg *Config, root string) error {
	envPath := filepath.Join(root, EnvFile)
	if err := godotenv.Load(envPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return models.Configf("failed to load %s: %v", envPath, err)
	}
	if v := os.Getenv(EnvSpectraDir); v != "" {
		cfg.Spectra.Dir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv(EnvReviewMode); v != "" {
		cfg.Review.Mode = v
	}
	return nil
}

// Save writes the configuration as TOML to its file
func (c *Config) Save() error {
	data, err := toml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	return os.WriteFile(c.path, data, 0644)
}

// Root returns the directory relative paths resolve against
func (c *Config) Root() string {
	return c.root
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.path
}

// WorkspacePath returns the path to the .zcurate directory
func (c *Config) WorkspacePath() string {
	return filepath.Join(c.root, WorkspaceDir)
}

// StatePath returns the path to the workspace state database
func (c *Config) StatePath() string {
	return filepath.Join(c.WorkspacePath(), StateFile)
}

// LogPath returns the path to the rotating log file
func (c *Config) LogPath() string {
	return filepath.Join(c.WorkspacePath(), LogsDir, "zcurate.log")
}

// Resolve returns p made absolute against the workspace root
func (c *Config) Resolve(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.root, p)
}

// WithMode returns a copy of the configuration with a different review mode
func (c *Config) WithMode(mode string) *Config {
	cp := *c
	cp.Review.Mode = mode
	return &cp
}

// Initialize creates a new .zcurate directory with a template configuration
func Initialize(dir string) (string, error) {
	wsPath := filepath.Join(dir, WorkspaceDir)

	if _, err := os.Stat(wsPath); err == nil {
		return "", fmt.Errorf("zcurate workspace already exists")
	}

	if err := os.MkdirAll(filepath.Join(wsPath, LogsDir), 0755); err != nil {
		return "", fmt.Errorf("failed to create %s directory: %w", WorkspaceDir, err)
	}

	configPath := filepath.Join(wsPath, ConfigFile)
	if err := os.WriteFile(configPath, []byte(templateConfig), 0644); err != nil {
		// Cleanup on failure
		os.RemoveAll(wsPath)
		return "", err
	}

	return wsPath, nil
}
