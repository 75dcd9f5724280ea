package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lexlapax/hookwrap/pkg/log"
	"gopkg.in/yaml.v3"
)

// Environment variables overriding file settings.
const (
	EnvLogLevel        = "HOOKWRAP_LOG_LEVEL"
	EnvLogFormat       = "HOOKWRAP_LOG_FORMAT"
	EnvScriptPaths     = "HOOKWRAP_SCRIPT_PATHS"
	EnvScriptTimeoutMs = "HOOKWRAP_SCRIPT_TIMEOUT_MS"
	EnvSandbox         = "HOOKWRAP_SANDBOX"
	EnvJournalPath     = "HOOKWRAP_JOURNAL_PATH"
	EnvChronicle       = "HOOKWRAP_CHRONICLE"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config, err := LoadFromBytes(data)
	if err != nil {
		return nil, err
	}

	// relative script and journal paths are resolved against the file
	base := filepath.Dir(path)
	for i, p := range config.Scripting.Paths {
		config.Scripting.Paths[i] = resolve(base, p)
	}
	config.Journal.Path = resolve(base, config.Journal.Path)

	return config, nil
}

// LoadFromBytes loads configuration from YAML on top of Default.
func LoadFromBytes(data []byte) (*Config, error) {
	config := Default()

	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return finish(&config)
}

// LoadFromEnv builds a configuration from Default and the environment only.
func LoadFromEnv() (*Config, error) {
	config := Default()
	return finish(&config)
}

// LoadDotEnv loads variables from the first existing file among paths,
// defaulting to .env. Variables already set are kept. Missing files are
// not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		err := godotenv.Load(p)
		if err == nil {
			log.Debug("Loaded environment file", "path", p)
			return nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}

func finish(config *Config) (*Config, error) {
	if err := applyEnvironmentOverrides(config); err != nil {
		return nil, fmt.Errorf("invalid environment: %w", err)
	}
	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return config, nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func applyEnvironmentOverrides(config *Config) error {
	if level := os.Getenv(EnvLogLevel); level != "" {
		config.Logging.Level = log.Level(level)
	}

	if format := os.Getenv(EnvLogFormat); format != "" {
		config.Logging.Format = log.Format(format)
	}

	if paths := os.Getenv(EnvScriptPaths); paths != "" {
		config.Scripting.Paths = filepath.SplitList(paths)
	}

	if timeout := os.Getenv(EnvScriptTimeoutMs); timeout != "" {
		ms, err := strconv.Atoi(timeout)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvScriptTimeoutMs, err)
		}
		config.Scripting.ScriptTimeoutMs = ms
	}

	if sandbox := os.Getenv(EnvSandbox); sandbox != "" {
		enabled, err := strconv.ParseBool(sandbox)
		if err != nil {
			return fmt.Errorf("%s: %w", EnvSandbox, err)
		}
		config.Scripting.EnableSandboxing = enabled
	}

	if path := os.Getenv(EnvJournalPath); path != "" {
		config.Journal.Path = path
	}

	if chronicle := os.Getenv(EnvChronicle); chronicle != "" {
		config.Chronicle = chronicle
	}

	return nil
}

// validateConfig validates the configuration and normalizes the log settings.
func validateConfig(config *Config) error {
	level, err := log.ParseLevel(string(config.Logging.Level))
	if err != nil {
		return err
	}
	config.Logging.Level = level

	switch format := log.Format(strings.ToLower(string(config.Logging.Format))); format {
	case "":
		config.Logging.Format = log.TextFormat
	case log.TextFormat, log.JSONFormat:
		config.Logging.Format = format
	default:
		return fmt.Errorf("unsupported log format: %s", config.Logging.Format)
	}

	if config.Scripting.ScriptTimeoutMs < 0 {
		return fmt.Errorf("script timeout must not be negative, got %d", config.Scripting.ScriptTimeoutMs)
	}
	if config.Scripting.CallStackSize < 0 {
		return fmt.Errorf("call stack size must not be negative, got %d", config.Scripting.CallStackSize)
	}

	for _, p := range config.Scripting.Paths {
		if strings.TrimSpace(p) == "" {
			return fmt.Errorf("script paths must not be empty")
		}
	}

	return nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
