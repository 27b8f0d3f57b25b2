// Package config loads settings shared by jobctl and jobserver.
//
// Values are resolved in viper's order: explicitly set flags, JOBCTL_*
// environment variables, the TOML config file, then defaults.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/nixpig/jobctl/internal/logging"
	"github.com/nixpig/jobctl/internal/protocol"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	envPrefix  = "JOBCTL"
	configName = "config"
	configType = "toml"
	appDir     = "jobctl"

	DefaultSettleDelay = 500 * time.Millisecond
	DefaultShell       = "sh"
)

type Config struct {
	SocketPath    string        `mapstructure:"socket"`
	SettleDelay   time.Duration `mapstructure:"settle_delay"`
	DaemonPath    string        `mapstructure:"daemon_path"`
	LogFile       string        `mapstructure:"log_file"`
	LogMaxSizeMB  int           `mapstructure:"log_max_size_mb"`
	LogMaxBackups int           `mapstructure:"log_max_backups"`
	LogMaxAgeDays int           `mapstructure:"log_max_age_days"`
	JobLogDir     string        `mapstructure:"job_log_dir"`
	Shell         string        `mapstructure:"shell"`
	Debug         bool          `mapstructure:"debug"`
}

func Default() Config {
	return Config{
		SocketPath:    protocol.DefaultSocketPath(),
		SettleDelay:   DefaultSettleDelay,
		LogFile:       filepath.Join(stateDir(), "jobserver.log"),
		LogMaxSizeMB:  logging.DefaultMaxSizeMB,
		LogMaxBackups: logging.DefaultMaxBackups,
		LogMaxAgeDays: logging.DefaultMaxAgeDays,
		Shell:         DefaultShell,
	}
}

// Load resolves the Config. An empty configPath searches the default config
// directory and tolerates a missing file; an explicit configPath must exist.
// Flags in flags whose name matches a key (with '-' for '_') override it
// when set. flags may be nil.
func Load(configPath string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()

	defaults := Default()
	v.SetDefault("socket", defaults.SocketPath)
	v.SetDefault("settle_delay", defaults.SettleDelay)
	v.SetDefault("daemon_path", defaults.DaemonPath)
	v.SetDefault("log_file", defaults.LogFile)
	v.SetDefault("log_max_size_mb", defaults.LogMaxSizeMB)
	v.SetDefault("log_max_backups", defaults.LogMaxBackups)
	v.SetDefault("log_max_age_days", defaults.LogMaxAgeDays)
	v.SetDefault("job_log_dir", defaults.JobLogDir)
	v.SetDefault("shell", defaults.Shell)
	v.SetDefault("debug", defaults.Debug)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(configName)
		v.SetConfigType(configType)
		v.AddConfigPath(configDir())
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		var bindErr error

		flags.VisitAll(func(f *pflag.Flag) {
			key := strings.ReplaceAll(f.Name, "-", "_")
			if !slices.Contains(keys, key) {
				return
			}

			if err := v.BindPFlag(key, f); err != nil && bindErr == nil {
				bindErr = fmt.Errorf("bind flag %s: %w", f.Name, err)
			}
		})

		if bindErr != nil {
			return Config{}, bindErr
		}
	}

	cfg := Config{}
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	return cfg, nil
}

func (c Config) Validate() error {
	if c.SocketPath == "" {
		return errors.New("socket cannot be empty")
	}

	if !filepath.IsAbs(c.SocketPath) {
		return fmt.Errorf("socket must be an absolute path: %s", c.SocketPath)
	}

	if c.SettleDelay < 0 {
		return errors.New("settle-delay cannot be negative")
	}

	if c.Shell == "" {
		return errors.New("shell cannot be empty")
	}

	if c.LogMaxSizeMB < 0 || c.LogMaxBackups < 0 || c.LogMaxAgeDays < 0 {
		return errors.New("log rotation settings cannot be negative")
	}

	return nil
}

// Logging returns the daemon logging configuration.
func (c Config) Logging() logging.Config {
	return logging.Config{
		Path:       c.LogFile,
		MaxSizeMB:  c.LogMaxSizeMB,
		MaxBackups: c.LogMaxBackups,
		MaxAgeDays: c.LogMaxAgeDays,
		Debug:      c.Debug,
	}
}

var keys = []string{
	"socket",
	"settle_delay",
	"daemon_path",
	"log_file",
	"log_max_size_mb",
	"log_max_backups",
	"log_max_age_days",
	"job_log_dir",
	"shell",
	"debug",
}

func configDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", appDir)
}

func stateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, appDir)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return os.TempDir()
	}

	return filepath.Join(home, ".local", "state", appDir)
}
