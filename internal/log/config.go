package log

// Config configures the logger.
type Config struct {
	// Name is attached to every entry as the "logger" field.
	Name string `conf:"name" yaml:"name" json:"name"`

	// Level is the minimum level to emit: debug, info, warn, error.
	Level string `conf:"level" yaml:"level" json:"level"`

	// Format selects the encoder: json or console.
	Format string `conf:"format" yaml:"format" json:"format"`

	// File configures an optional rotated file sink. When File.Path is
	// empty the logger writes to stderr.
	File FileConfig `conf:"file" yaml:"file" json:"file"`
}

// FileConfig configures the rotated operational log file.
type FileConfig struct {
	Path       string `conf:"path" yaml:"path" json:"path"`
	MaxSizeMB  int    `conf:"max_size_mb" yaml:"max_size_mb" json:"max_size_mb"`
	MaxBackups int    `conf:"max_backups" yaml:"max_backups" json:"max_backups"`
	MaxAgeDays int    `conf:"max_age_days" yaml:"max_age_days" json:"max_age_days"`
	Compress   bool   `conf:"compress" yaml:"compress" json:"compress"`
}

// DefaultConfig returns the logger configuration used when none is provided.
func DefaultConfig() Config {
	return Config{
		Name:   "guardpost",
		Level:  "info",
		Format: "json",
	}
}
