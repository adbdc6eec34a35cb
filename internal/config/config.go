// Package config carries the pipeline's immutable Config value (spec §9),
// populated in priority order: CLI flags > environment variables (loaded
// from an optional .env by godotenv) > a config file read by viper > built-in
// defaults, adapted from the teacher's viper.New()/SetConfigName/
// AddConfigPath pattern in its own config.Load.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// PathMapping mirrors postprocess.PathMapping without importing it, so
// config stays a leaf package (no dependency on the pipeline stages it
// configures).
type PathMapping struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// ServiceCredentials holds upload-service credentials for writers that post
// coverage to a hosted service (spec §6's "service/credential flags"); grcov
// itself never uploads anything (spec §1 Non-goals) and only carries these
// through to an external writer's configuration (spec §D).
type ServiceCredentials struct {
	Name  string `mapstructure:"name"`
	Token string `mapstructure:"token"`
}

// Config is the immutable value threaded through every pipeline stage
// (spec §9: "carry an immutable Config value through the pipeline").
type Config struct {
	Inputs []string `mapstructure:"inputs"`

	// SymlinkDepth bounds how many symlinked directories deep Discovery
	// will follow before giving up on a branch (spec §C.1). 0 means the
	// walker's built-in default.
	SymlinkDepth int `mapstructure:"symlink_depth"`

	BinaryPath string `mapstructure:"binary_path"`
	SourceDir  string `mapstructure:"source_dir"`
	PrefixDir  string `mapstructure:"prefix_dir"`

	IgnoreNotExisting bool          `mapstructure:"ignore_not_existing"`
	IgnoreGlobs       []string      `mapstructure:"ignore"`
	KeepOnlyGlobs     []string      `mapstructure:"keep_only"`
	PathMappings      []PathMapping `mapstructure:"path_mapping"`

	Branch   bool   `mapstructure:"branch"`
	Filter   string `mapstructure:"filter"`
	LLVM     bool   `mapstructure:"llvm"`
	GcovPath string `mapstructure:"gcov_path"`

	ExclLine    string `mapstructure:"excl_line"`
	ExclStart   string `mapstructure:"excl_start"`
	ExclStop    string `mapstructure:"excl_stop"`
	ExclBrLine  string `mapstructure:"excl_br_line"`
	ExclBrStart string `mapstructure:"excl_br_start"`
	ExclBrStop  string `mapstructure:"excl_br_stop"`

	OutputTypes []string `mapstructure:"output_types"`
	OutputPath  string   `mapstructure:"output_path"`

	Threads   int `mapstructure:"threads"`
	Precision int `mapstructure:"precision"`

	Service ServiceCredentials `mapstructure:"service"`

	LogLevel string `mapstructure:"log_level"`
	LogPath  string `mapstructure:"log"`
}

// Defaults returns the built-in defaults, the lowest-priority layer.
func Defaults() Config {
	return Config{
		Threads:      0, // 0 means num_cpus, resolved by the pipeline
		Precision:    2,
		LogLevel:     "info",
		SymlinkDepth: 40, // mirrors discovery.defaultSymlinkDepth
	}
}

// Load reads an optional config file (name without extension, e.g. "grcov")
// from the given search paths and merges it over the defaults. It never
// errors when no config file is found - a missing file just means "use
// defaults", matching the CLI-first nature of this tool (unlike the
// teacher's fuzz harness, where a config file is mandatory).
func Load(configName string, searchPaths ...string) (Config, error) {
	cfg := Defaults()

	v := viper.New()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	for _, p := range searchPaths {
		v.AddConfigPath(p)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("failed to unmarshal config data: %w", err)
	}

	return cfg, nil
}

// LoadServiceCredentialsEnv loads upload-service credentials from an
// optional .env file via godotenv, overlaying cfg.Service only where the
// corresponding environment variable is actually set, so CLI-provided
// credentials are never silently overwritten by a stale .env (spec §B).
func LoadServiceCredentialsEnv(cfg *Config, envFile string) error {
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		// A missing .env is not an error: credentials are optional unless
		// an upload-format writer is actually selected.
		return nil
	}
	if v, ok := os.LookupEnv("GRCOV_SERVICE_NAME"); ok {
		cfg.Service.Name = v
	}
	if v, ok := os.LookupEnv("GRCOV_SERVICE_TOKEN"); ok {
		cfg.Service.Token = v
	}
	return nil
}
