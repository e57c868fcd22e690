package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/tailscale/hujson"
)

// Config errors.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrConfigFileRead     = errors.New("cannot read config file")
	ErrConfigInvalid      = errors.New("invalid config file")
	ErrInvalidFormat      = errors.New("invalid output format")
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

var formats = []string{FormatText, FormatJSON, FormatYAML}

// Config holds all configuration options.
type Config struct {
	// DBPath is the package database directory. Empty means the engine's
	// %_dbpath.
	DBPath string `json:"dbpath,omitempty"`

	// RCFile is the rpmrc file list handed to the engine. Empty means the
	// engine's default search list.
	RCFile string `json:"rcfile,omitempty"`

	Format string `json:"format,omitempty"`

	// Defines are "name body" macro definitions applied before anything
	// else runs. Later layers append.
	Defines []string `json:"defines,omitempty"`

	// Resolved values (computed, not serialized)
	EffectiveCwd string        `json:"-"`
	DBPathAbs    string        `json:"-"`
	Sources      ConfigSources `json:"-"`
}

// ConfigSources tracks which config files were loaded.
type ConfigSources struct {
	Global  string // Path to global config if loaded, empty otherwise
	Project string // Path to project config if loaded, empty otherwise
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{Format: FormatText}
}

// ConfigFileName is the project config file name.
const ConfigFileName = ".rpmq.json"

// globalConfigPath returns $XDG_CONFIG_HOME/rpmq/config.json, falling back
// to ~/.config/rpmq/config.json. Empty if neither variable is set.
func globalConfigPath(env map[string]string) string {
	if xdgConfig := env["XDG_CONFIG_HOME"]; xdgConfig != "" {
		return filepath.Join(xdgConfig, "rpmq", "config.json")
	}

	if home := env["HOME"]; home != "" {
		return filepath.Join(home, ".config", "rpmq", "config.json")
	}

	return ""
}

// LoadConfigInput holds the inputs for LoadConfig.
type LoadConfigInput struct {
	WorkDirOverride string            // -C/--cwd flag value; if empty, os.Getwd() is used
	ConfigPath      string            // -c/--config flag value
	Overrides       Config            // flag values; empty fields mean no override
	Env             map[string]string // environment variables
}

// LoadConfig loads configuration with the following precedence (highest wins):
// 1. Defaults
// 2. Global user config ($XDG_CONFIG_HOME/rpmq/config.json)
// 3. Project config file (.rpmq.json in the working directory, if present)
// 4. Explicit config file via -c/--config
// 5. Flags.
//
// An explicit config file replaces the project file rather than layering on
// top of it.
func LoadConfig(input LoadConfigInput) (Config, error) {
	workDir := input.WorkDirOverride
	if workDir == "" {
		var err error

		workDir, err = os.Getwd()
		if err != nil {
			return Config{}, fmt.Errorf("cannot get working directory: %w", err)
		}
	}

	cfg := DefaultConfig()

	if path := globalConfigPath(input.Env); path != "" {
		globalCfg, loaded, err := loadConfigFile(path, false)
		if err != nil {
			return Config{}, err
		}

		if loaded {
			cfg.Sources.Global = path
			cfg = mergeConfig(cfg, globalCfg)
		}
	}

	projectCfg, projectPath, err := loadProjectConfig(workDir, input.ConfigPath)
	if err != nil {
		return Config{}, err
	}

	cfg.Sources.Project = projectPath
	cfg = mergeConfig(cfg, projectCfg)
	cfg = mergeConfig(cfg, input.Overrides)

	if !slices.Contains(formats, cfg.Format) {
		return Config{}, fmt.Errorf("%w: %q (want one of %v)", ErrInvalidFormat, cfg.Format, formats)
	}

	cfg.EffectiveCwd = workDir

	switch {
	case cfg.DBPath == "":
	case filepath.IsAbs(cfg.DBPath):
		cfg.DBPathAbs = cfg.DBPath
	default:
		cfg.DBPathAbs = filepath.Join(workDir, cfg.DBPath)
	}

	return cfg, nil
}

// loadProjectConfig loads .rpmq.json or the explicit config file.
func loadProjectConfig(workDir, configPath string) (Config, string, error) {
	cfgFile := filepath.Join(workDir, ConfigFileName)
	mustExist := false

	if configPath != "" {
		cfgFile = configPath
		if !filepath.IsAbs(cfgFile) {
			cfgFile = filepath.Join(workDir, cfgFile)
		}

		mustExist = true

		if _, err := os.Stat(cfgFile); err != nil {
			return Config{}, "", fmt.Errorf("%w: %s", ErrConfigFileNotFound, configPath)
		}
	}

	cfg, loaded, err := loadConfigFile(cfgFile, mustExist)
	if err != nil || !loaded {
		return Config{}, "", err
	}

	return cfg, cfgFile, nil
}

// loadConfigFile loads a config file. If mustExist is false, missing files
// return a zero config and loaded=false.
func loadConfigFile(path string, mustExist bool) (Config, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return Config{}, false, nil
		}

		return Config{}, false, fmt.Errorf("%w: %s", ErrConfigFileRead, path)
	}

	cfg, err := parseConfig(data)
	if err != nil {
		return Config{}, false, fmt.Errorf("%w %s: %w", ErrConfigInvalid, path, err)
	}

	return cfg, true, nil
}

func parseConfig(data []byte) (Config, error) {
	// Standardize JSONC to JSON
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSONC: %w", err)
	}

	var cfg Config

	err = json.Unmarshal(standardized, &cfg)
	if err != nil {
		return Config{}, fmt.Errorf("invalid JSON: %w", err)
	}

	return cfg, nil
}

func mergeConfig(base, overlay Config) Config {
	if overlay.DBPath != "" {
		base.DBPath = overlay.DBPath
	}

	if overlay.RCFile != "" {
		base.RCFile = overlay.RCFile
	}

	if overlay.Format != "" {
		base.Format = overlay.Format
	}

	base.Defines = append(slices.Clip(base.Defines), overlay.Defines...)

	return base
}
