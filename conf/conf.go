// Package conf loads the process configuration from file and environment,
// applies defaults, and resolves the data paths before anything opens them.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/go-viper/mapstructure/v2"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/viper"

	"github.com/guardpost/guardpost/internal/audit"
	"github.com/guardpost/guardpost/internal/configstore"
	"github.com/guardpost/guardpost/internal/log"
	"github.com/guardpost/guardpost/internal/metrics"
	"github.com/guardpost/guardpost/internal/pkg/xfile"
	"github.com/guardpost/guardpost/internal/server"
	"github.com/guardpost/guardpost/internal/server/biz"
)

type Config struct {
	Log       log.Config     `conf:"log" yaml:"log" json:"log"`
	APIServer server.Config  `conf:"server" yaml:"server" json:"server"`
	Metrics   metrics.Config `conf:"metrics" yaml:"metrics" json:"metrics"`

	// DataDir constrains where the permission file and the audit trail may
	// live. Configured paths that resolve outside it, through dot-dot or
	// symlinks, are rejected at load time.
	DataDir string `conf:"data_dir" yaml:"data_dir" json:"data_dir"`

	ConfigStore configstore.Config `conf:"config_store" yaml:"config_store" json:"config_store"`
	Audit       audit.Config       `conf:"audit" yaml:"audit" json:"audit"`

	// Services is the whitelist of guarded service identifiers. Persisted
	// state for anything else is ignored.
	Services []string `conf:"services" yaml:"services" json:"services"`
}

// Default is the configuration used when nothing is set. Every service
// starts disabled; there is no permissive default.
func Default() Config {
	return Config{
		Log: log.DefaultConfig(),
		APIServer: server.Config{
			Host:           "0.0.0.0",
			Port:           8090,
			Name:           "guardpost",
			ReadTimeout:    30 * time.Second,
			RequestTimeout: 30 * time.Second,
		},
		Metrics: metrics.Config{
			Interval: time.Minute,
		},
		DataDir: "data",
		Audit: audit.Config{
			MaxSizeBytes: audit.DefaultMaxSizeBytes,
			MaxBackups:   audit.DefaultMaxBackups,
		},
		Services: []string{biz.ServiceEventLog, biz.ServiceFileSearch},
	}
}

// Load reads guardpost.yaml (working directory or /etc/guardpost) plus
// GUARDPOST_* environment overrides, merges defaults, resolves the data
// paths, and validates the result.
func Load() (Config, error) {
	v := viper.New()
	v.SetConfigName("guardpost")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/guardpost")
	v.SetEnvPrefix("GUARDPOST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("conf: read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config, decoderOptions); err != nil {
		return Config{}, fmt.Errorf("conf: decode config: %w", err)
	}

	if err := mergo.Merge(&config, Default()); err != nil {
		return Config{}, fmt.Errorf("conf: merge defaults: %w", err)
	}

	if err := config.ResolvePaths(); err != nil {
		return Config{}, err
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

// setDefaults registers the keys with viper so environment overrides are
// picked up even without a config file.
func setDefaults(v *viper.Viper) {
	defaults := Default()

	v.SetDefault("data_dir", defaults.DataDir)
	v.SetDefault("services", defaults.Services)

	v.SetDefault("log.name", defaults.Log.Name)
	v.SetDefault("log.level", defaults.Log.Level)
	v.SetDefault("log.format", defaults.Log.Format)
	v.SetDefault("log.file.path", "")

	v.SetDefault("server.host", defaults.APIServer.Host)
	v.SetDefault("server.port", defaults.APIServer.Port)
	v.SetDefault("server.name", defaults.APIServer.Name)
	v.SetDefault("server.admin_token", "")
	v.SetDefault("server.debug", false)

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.interval", defaults.Metrics.Interval)

	v.SetDefault("config_store.path", "")
	v.SetDefault("audit.path", "")
	v.SetDefault("audit.max_size_bytes", defaults.Audit.MaxSizeBytes)
	v.SetDefault("audit.max_backups", defaults.Audit.MaxBackups)
}

func decoderOptions(dc *mapstructure.DecoderConfig) {
	dc.TagName = "conf"
	dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// ResolvePaths pins the permission file and the audit trail under DataDir.
// Defaults are filled in; configured paths are resolved through symlinks and
// rejected if they land outside the data directory.
func (c *Config) ResolvePaths() error {
	dataDir, err := filepath.Abs(c.DataDir)
	if err != nil {
		return fmt.Errorf("conf: data_dir: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return fmt.Errorf("conf: create data_dir: %w", err)
	}

	c.DataDir = dataDir

	if c.ConfigStore.Path == "" {
		c.ConfigStore.Path = filepath.Join(dataDir, "permissions.json")
	}

	resolved, err := xfile.ResolveUnder(dataDir, c.ConfigStore.Path)
	if err != nil {
		return fmt.Errorf("conf: config_store.path: %w", err)
	}

	c.ConfigStore.Path = resolved

	if c.Audit.Path == "" {
		c.Audit.Path = filepath.Join(dataDir, "audit.log")
	}

	resolved, err = xfile.ResolveUnder(dataDir, c.Audit.Path)
	if err != nil {
		return fmt.Errorf("conf: audit.path: %w", err)
	}

	c.Audit.Path = resolved

	return nil
}

// Validate aggregates every configuration problem instead of stopping at
// the first.
func (c *Config) Validate() error {
	var result *multierror.Error

	if c.APIServer.Port <= 0 || c.APIServer.Port > 65535 {
		result = multierror.Append(result, errors.New("server.port must be between 1 and 65535"))
	}

	if c.Log.Name == "" {
		result = multierror.Append(result, errors.New("log.name cannot be empty"))
	}

	if len(c.Services) == 0 {
		result = multierror.Append(result, errors.New("services cannot be empty"))
	}

	if c.Audit.MaxSizeBytes <= 0 {
		result = multierror.Append(result, errors.New("audit.max_size_bytes must be positive"))
	}

	if c.Audit.MaxBackups <= 0 {
		result = multierror.Append(result, errors.New("audit.max_backups must be positive"))
	}

	if c.APIServer.CORS.Enabled && len(c.APIServer.CORS.AllowedOrigins) == 0 {
		result = multierror.Append(result, errors.New("server.cors.allowed_origins cannot be empty when CORS is enabled"))
	}

	return result.ErrorOrNil()
}
