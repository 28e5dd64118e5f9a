package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/ironsheep/label-line-mcp/internal/textline"
)

// Config holds the label-line configuration.
type Config struct {
	Extract    ExtractConfig    `yaml:"extract"`
	Preprocess PreprocessConfig `yaml:"preprocess"`
	OCR        OCRConfig        `yaml:"ocr"`
	HTTP       HTTPConfig       `yaml:"http"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// ExtractConfig holds line reconstruction and selection settings.
type ExtractConfig struct {
	// YThreshold is a pointer so an explicit 0 survives ApplyDefaults.
	YThreshold *float64 `yaml:"y_threshold"`
	Pattern    string   `yaml:"pattern"`
	Anchor     string   `yaml:"anchor"` // first, running-mean
}

// Threshold returns the configured vertical tolerance or the default.
func (e ExtractConfig) Threshold() float64 {
	if e.YThreshold == nil {
		return textline.DefaultYThreshold
	}
	return *e.YThreshold
}

// PreprocessConfig holds image preparation settings.
type PreprocessConfig struct {
	Disabled      bool     `yaml:"disabled"`
	TargetHeight  int      `yaml:"target_height"`
	GrayMode      string   `yaml:"gray_mode"` // luma, lightness
	DenoiseRadius *int     `yaml:"denoise_radius"`
	ClipLimit     *float64 `yaml:"clip_limit"` // 0 disables contrast equalization
	TileGrid      int      `yaml:"tile_grid"`
	BlockSize     int      `yaml:"block_size"`
	Offset        *float64 `yaml:"offset"`
}

// OCRConfig holds Tesseract settings.
type OCRConfig struct {
	Language       string `yaml:"language"`
	TessdataPrefix string `yaml:"tessdata_prefix"`
	PageSegMode    int    `yaml:"page_seg_mode"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int   `yaml:"port"`
	ReadTimeoutSec  int   `yaml:"read_timeout_sec"`
	WriteTimeoutSec int   `yaml:"write_timeout_sec"`
	ShutdownSec     int   `yaml:"shutdown_timeout_sec"`
	MaxUploadBytes  int64 `yaml:"max_upload_bytes"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// Load reads configuration for the given environment (local, dev, prod).
//
// A .env file in the working directory is loaded first without overriding
// variables already set. LABEL_LINE_CONFIG, when set, names the YAML file;
// otherwise config/<env>.yaml is used. A missing file is not an error: the
// defaults are enough to run.
func Load(env string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	path := os.Getenv("LABEL_LINE_CONFIG")
	explicit := path != ""
	if !explicit {
		path = filepath.Join("config", fmt.Sprintf("%s.yaml", env))
	}

	data, err := os.ReadFile(filepath.Clean(path))
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		data = nil
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return Config{}, err
	}

	if lvl := os.Getenv("LABEL_LINE_LOG_LEVEL"); lvl != "" {
		cfg.Logging.Level = lvl
	}
	return cfg, nil
}

// Parse decodes YAML, expands ${VAR} references, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if len(data) > 0 {
		if err := yaml.Unmarshal(expandEnvVars(data), &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Default returns a validated configuration with every default applied.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.Extract.Pattern == "" {
		c.Extract.Pattern = textline.DefaultPattern
	}
	if c.Extract.Anchor == "" {
		c.Extract.Anchor = string(textline.FirstAnchor)
	}
	if c.Preprocess.TargetHeight <= 0 {
		c.Preprocess.TargetHeight = 800
	}
	if c.Preprocess.GrayMode == "" {
		c.Preprocess.GrayMode = "luma"
	}
	if c.Preprocess.DenoiseRadius == nil {
		r := 1
		c.Preprocess.DenoiseRadius = &r
	}
	if c.Preprocess.ClipLimit == nil {
		clip := 2.0
		c.Preprocess.ClipLimit = &clip
	}
	if c.Preprocess.TileGrid <= 0 {
		c.Preprocess.TileGrid = 8
	}
	if c.Preprocess.BlockSize <= 0 {
		c.Preprocess.BlockSize = 31
	}
	if c.Preprocess.Offset == nil {
		offset := 10.0
		c.Preprocess.Offset = &offset
	}
	if c.OCR.Language == "" {
		c.OCR.Language = "eng"
	}
	if c.OCR.PageSegMode <= 0 {
		c.OCR.PageSegMode = 11 // sparse text, suits labels
	}
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 30
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 60
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.HTTP.MaxUploadBytes <= 0 {
		c.HTTP.MaxUploadBytes = 20 << 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.Extract.YThreshold != nil && !(*c.Extract.YThreshold >= 0) {
		return fmt.Errorf("extract.y_threshold must be >= 0, got %v", *c.Extract.YThreshold)
	}
	if _, err := textline.ParseAnchor(c.Extract.Anchor); err != nil {
		return fmt.Errorf("extract.anchor: %w", err)
	}
	switch c.Preprocess.GrayMode {
	case "luma", "lightness":
	default:
		return fmt.Errorf("preprocess.gray_mode must be \"luma\" or \"lightness\", got %q", c.Preprocess.GrayMode)
	}
	if *c.Preprocess.DenoiseRadius < 0 {
		return fmt.Errorf("preprocess.denoise_radius must be >= 0, got %d", *c.Preprocess.DenoiseRadius)
	}
	if !(*c.Preprocess.ClipLimit >= 0) {
		return fmt.Errorf("preprocess.clip_limit must be >= 0, got %v", *c.Preprocess.ClipLimit)
	}
	if math.IsNaN(*c.Preprocess.Offset) || math.IsInf(*c.Preprocess.Offset, 0) {
		return fmt.Errorf("preprocess.offset must be a finite number, got %v", *c.Preprocess.Offset)
	}
	if c.Preprocess.BlockSize < 3 || c.Preprocess.BlockSize%2 == 0 {
		return fmt.Errorf("preprocess.block_size must be odd and >= 3, got %d", c.Preprocess.BlockSize)
	}
	if c.OCR.PageSegMode > 13 {
		return fmt.Errorf("ocr.page_seg_mode must be between 1 and 13, got %d", c.OCR.PageSegMode)
	}
	if c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	return nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
