// Package config centralizes runtime configuration: defaults, file and
// environment loading via viper, and validation.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	Database DatabaseConfig `mapstructure:"database" yaml:"database"`
	Scan     ScanConfig     `mapstructure:"scan" yaml:"scan"`
	Report   ReportConfig   `mapstructure:"report" yaml:"report"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// DatabaseConfig holds the scan store connection details. An empty URL
// disables persistence; scan results are still printed and reportable.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// ScanConfig controls repository traversal, extraction and rule evaluation.
type ScanConfig struct {
	IncludePatterns []string `mapstructure:"include_patterns" yaml:"include_patterns"`
	ExcludeDirs     []string `mapstructure:"exclude_dirs" yaml:"exclude_dirs"`
	MaxFileSize     int64    `mapstructure:"max_file_size" yaml:"max_file_size"`
	EnabledRules    []string `mapstructure:"enabled_rules" yaml:"enabled_rules"`
	SPOFThreshold   int      `mapstructure:"spof_threshold" yaml:"spof_threshold"`
	Workers         int      `mapstructure:"workers" yaml:"workers"`
}

// ReportConfig holds settings for report generation.
type ReportConfig struct {
	Format    string `mapstructure:"format" yaml:"format"`
	OutputDir string `mapstructure:"output_dir" yaml:"output_dir"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "archlens")
	v.SetDefault("logger.log_file", "archlens.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Database --
	v.SetDefault("database.url", "")

	// -- Scan --
	v.SetDefault("scan.include_patterns", []string{
		"*.py", "*.tf", "*.yaml", "*.yml", "Dockerfile", "Dockerfile.*",
		"package.json", "requirements.txt", "pyproject.toml", "go.mod",
	})
	v.SetDefault("scan.exclude_dirs", []string{
		"__pycache__", ".git", "node_modules", ".venv", "venv", ".pytest_cache",
	})
	v.SetDefault("scan.max_file_size", 1024*1024)
	v.SetDefault("scan.enabled_rules", []string{
		"circular_dependency", "single_point_failure", "secret_detector",
	})
	v.SetDefault("scan.spof_threshold", 3)
	v.SetDefault("scan.workers", 8)

	// -- Report --
	v.SetDefault("report.format", "markdown")
	v.SetDefault("report.output_dir", ".")
}

// NewDefaultConfig creates a configuration populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper creates a validated configuration from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if c.Scan.SPOFThreshold < 1 {
		return fmt.Errorf("scan.spof_threshold must be a positive integer")
	}
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("scan.workers must be a positive integer")
	}
	if c.Scan.MaxFileSize <= 0 {
		return fmt.Errorf("scan.max_file_size must be a positive byte count")
	}
	if len(c.Scan.IncludePatterns) == 0 {
		return fmt.Errorf("scan.include_patterns must not be empty")
	}
	switch c.Report.Format {
	case "markdown", "dot", "json":
	default:
		return fmt.Errorf("report.format must be one of markdown, dot, json (got %q)", c.Report.Format)
	}
	return nil
}
