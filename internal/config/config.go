package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory and bind address configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
	APIBind string `toml:"api_bind"`
}

// OCR contains the layout-detection/OCR service endpoint.
type OCR struct {
	URL string `toml:"url"`
}

// Postprocessing contains the text-correction/entity-extraction service endpoint.
type Postprocessing struct {
	URL string `toml:"url"`
}

// Pipeline contains settings shared by both dispatch call sites.
type Pipeline struct {
	// CallbackBaseURL is the public base URL external services use to reach
	// the callback endpoints, e.g. "http://backend:8000/api/v1".
	CallbackBaseURL string `toml:"callback_base_url"`
	// RemotePathPrefix is prepended to group directories in dispatch
	// requests; processing services see the data directory under their own
	// mount point.
	RemotePathPrefix      string `toml:"remote_path_prefix"`
	MaxAttempts           int    `toml:"max_attempts"`
	BaseDelayMilliseconds int    `toml:"base_delay_ms"`
	MaxDelayMilliseconds  int    `toml:"max_delay_ms"`
	ConnectTimeoutSeconds int    `toml:"connect_timeout_seconds"`
}

// Ingest contains upload intake settings.
type Ingest struct {
	AllowedExtensions []string `toml:"allowed_extensions"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for Folio.
//
// Configuration sections by subsystem:
//   - Paths: data directory, log directory, and API bind address
//   - OCR: layout detection / OCR service endpoint
//   - Postprocessing: text correction / entity extraction service endpoint
//   - Pipeline: dispatch retry policy and callback addressing
//   - Ingest: accepted upload file extensions
//   - Logging: log format and level
type Config struct {
	Paths          Paths          `toml:"paths"`
	OCR            OCR            `toml:"ocr"`
	Postprocessing Postprocessing `toml:"postprocessing"`
	Pipeline       Pipeline       `toml:"pipeline"`
	Ingest         Ingest         `toml:"ingest"`
	Logging        Logging        `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/folio/config.toml")
}

// Load locates, parses, and validates a configuration file. An explicit
// path wins, then the FOLIO_CONFIG environment variable, then the default
// locations. The returned config has all path fields expanded and
// normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path == "" {
		path = strings.TrimSpace(os.Getenv("FOLIO_CONFIG"))
	}
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("folio.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

func (c *Config) normalize() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}

	c.OCR.URL = strings.TrimRight(strings.TrimSpace(c.OCR.URL), "/")
	c.Postprocessing.URL = strings.TrimRight(strings.TrimSpace(c.Postprocessing.URL), "/")
	c.Pipeline.CallbackBaseURL = strings.TrimRight(strings.TrimSpace(c.Pipeline.CallbackBaseURL), "/")
	c.Pipeline.RemotePathPrefix = strings.TrimSpace(c.Pipeline.RemotePathPrefix)

	exts := make([]string, 0, len(c.Ingest.AllowedExtensions))
	for _, ext := range c.Ingest.AllowedExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		exts = append(exts, ext)
	}
	if len(exts) > 0 {
		c.Ingest.AllowedExtensions = exts
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	return nil
}

// EnsureDirectories creates required directories for daemon operation.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.StoreDir(), c.GroupsDir(), c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// StoreDir returns the document store base directory.
func (c *Config) StoreDir() string {
	return filepath.Join(c.Paths.DataDir, "store")
}

// GroupsDir returns the root directory holding per-group content trees.
func (c *Config) GroupsDir() string {
	return filepath.Join(c.Paths.DataDir, "groups")
}

// SampleConfig returns the embedded sample configuration document.
func SampleConfig() string {
	return sampleConfig
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}
