// Package config defines the application configuration and its loading
// rules. Values resolve in the usual order: defaults, then a config file,
// then environment variables, then command-line flags.
package config

import (
	"fmt"

	"github.com/MeKo-Tech/parallax/internal/adcensus"
)

// Config is the root configuration for all parallax commands.
type Config struct {
	Matcher MatcherConfig `mapstructure:"matcher" yaml:"matcher" json:"matcher"`
	Output  OutputConfig  `mapstructure:"output" yaml:"output" json:"output"`
	Batch   BatchConfig   `mapstructure:"batch" yaml:"batch" json:"batch"`
	Server  ServerConfig  `mapstructure:"server" yaml:"server" json:"server"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging" json:"logging"`
}

// MatcherConfig mirrors adcensus.Options in a serializable form.
type MatcherConfig struct {
	MinDisparity            int     `mapstructure:"min_disparity" yaml:"min_disparity" json:"min_disparity"`
	MaxDisparity            int     `mapstructure:"max_disparity" yaml:"max_disparity" json:"max_disparity"`
	LambdaAD                float32 `mapstructure:"lambda_ad" yaml:"lambda_ad" json:"lambda_ad"`
	LambdaCensus            float32 `mapstructure:"lambda_census" yaml:"lambda_census" json:"lambda_census"`
	CrossL1                 int     `mapstructure:"cross_l1" yaml:"cross_l1" json:"cross_l1"`
	CrossL2                 int     `mapstructure:"cross_l2" yaml:"cross_l2" json:"cross_l2"`
	CrossT1                 int     `mapstructure:"cross_t1" yaml:"cross_t1" json:"cross_t1"`
	CrossT2                 int     `mapstructure:"cross_t2" yaml:"cross_t2" json:"cross_t2"`
	P1                      float32 `mapstructure:"p1" yaml:"p1" json:"p1"`
	P2                      float32 `mapstructure:"p2" yaml:"p2" json:"p2"`
	TSO                     int     `mapstructure:"tso" yaml:"tso" json:"tso"`
	IRVThresholdSize        int     `mapstructure:"irv_threshold_size" yaml:"irv_threshold_size" json:"irv_threshold_size"`
	IRVThresholdRatio       float32 `mapstructure:"irv_threshold_ratio" yaml:"irv_threshold_ratio" json:"irv_threshold_ratio"`
	LRCheckThreshold        float32 `mapstructure:"lr_check_threshold" yaml:"lr_check_threshold" json:"lr_check_threshold"`
	LRCheck                 bool    `mapstructure:"lr_check" yaml:"lr_check" json:"lr_check"`
	Filling                 bool    `mapstructure:"filling" yaml:"filling" json:"filling"`
	DiscontinuityAdjustment bool    `mapstructure:"discontinuity_adjustment" yaml:"discontinuity_adjustment" json:"discontinuity_adjustment"`
	PathCount               int     `mapstructure:"path_count" yaml:"path_count" json:"path_count"`
	Workers                 int     `mapstructure:"workers" yaml:"workers" json:"workers"`
	MaxMemoryMB             int     `mapstructure:"max_memory_mb" yaml:"max_memory_mb" json:"max_memory_mb"`
}

// OutputConfig controls how disparity maps are written to disk.
type OutputConfig struct {
	// Format selects the rendering: "gray", "color", or "both".
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	// Directory receives outputs when no explicit path is given.
	Directory string `mapstructure:"directory" yaml:"directory" json:"directory"`
	// Stats additionally writes a JSON statistics file per pair.
	Stats bool `mapstructure:"stats" yaml:"stats" json:"stats"`
}

// BatchConfig controls directory processing.
type BatchConfig struct {
	// Workers bounds the number of concurrently processed pairs.
	// 0 uses the number of CPUs.
	Workers         int  `mapstructure:"workers" yaml:"workers" json:"workers"`
	ContinueOnError bool `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Recursive       bool `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host        string `mapstructure:"host" yaml:"host" json:"host"`
	Port        int    `mapstructure:"port" yaml:"port" json:"port"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	CORSEnabled bool   `mapstructure:"cors_enabled" yaml:"cors_enabled" json:"cors_enabled"`
	TimeoutSec  int    `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`

	// MaxConcurrent bounds simultaneous disparity computations.
	// 0 uses the server default.
	MaxConcurrent int `mapstructure:"max_concurrent" yaml:"max_concurrent" json:"max_concurrent"`
}

// LoggingConfig controls the slog setup shared by all commands.
type LoggingConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level" json:"level"`
	// Format is text or json.
	Format string `mapstructure:"format" yaml:"format" json:"format"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	opts := adcensus.DefaultOptions()
	return &Config{
		Matcher: MatcherConfig{
			MinDisparity:            opts.MinDisparity,
			MaxDisparity:            opts.MaxDisparity,
			LambdaAD:                opts.LambdaAD,
			LambdaCensus:            opts.LambdaCensus,
			CrossL1:                 opts.CrossL1,
			CrossL2:                 opts.CrossL2,
			CrossT1:                 opts.CrossT1,
			CrossT2:                 opts.CrossT2,
			P1:                      opts.P1,
			P2:                      opts.P2,
			TSO:                     opts.TSO,
			IRVThresholdSize:        opts.IRVThresholdSize,
			IRVThresholdRatio:       opts.IRVThresholdRatio,
			LRCheckThreshold:        opts.LRCheckThreshold,
			LRCheck:                 opts.DoLRCheck,
			Filling:                 opts.DoFilling,
			DiscontinuityAdjustment: opts.DoDiscontinuityAdjustment,
			PathCount:               opts.PathCount,
			Workers:                 opts.Workers,
			MaxMemoryMB:             0,
		},
		Output: OutputConfig{
			Format:    "gray",
			Directory: "output",
			Stats:     false,
		},
		Batch: BatchConfig{
			Workers:         0,
			ContinueOnError: true,
			Recursive:       false,
		},
		Server: ServerConfig{
			Host:          "",
			Port:          8080,
			MaxUploadMB:   50,
			CORSEnabled:   true,
			TimeoutSec:    120,
			MaxConcurrent: 0,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// ToOptions converts the matcher section into engine options.
func (m MatcherConfig) ToOptions() adcensus.Options {
	return adcensus.Options{
		MinDisparity:              m.MinDisparity,
		MaxDisparity:              m.MaxDisparity,
		LambdaAD:                  m.LambdaAD,
		LambdaCensus:              m.LambdaCensus,
		CrossL1:                   m.CrossL1,
		CrossL2:                   m.CrossL2,
		CrossT1:                   m.CrossT1,
		CrossT2:                   m.CrossT2,
		P1:                        m.P1,
		P2:                        m.P2,
		TSO:                       m.TSO,
		IRVThresholdSize:          m.IRVThresholdSize,
		IRVThresholdRatio:         m.IRVThresholdRatio,
		LRCheckThreshold:          m.LRCheckThreshold,
		DoLRCheck:                 m.LRCheck,
		DoFilling:                 m.Filling,
		DoDiscontinuityAdjustment: m.DiscontinuityAdjustment,
		PathCount:                 m.PathCount,
		Workers:                   m.Workers,
		MaxMemoryBytes:            uint64(max(m.MaxMemoryMB, 0)) << 20,
	}
}

// Validate checks the full configuration for consistency.
func (c *Config) Validate() error {
	if c.Matcher.MaxMemoryMB < 0 {
		return fmt.Errorf("matcher: max memory must be non-negative, got %d MB", c.Matcher.MaxMemoryMB)
	}
	if err := c.Matcher.ToOptions().Validate(); err != nil {
		return fmt.Errorf("matcher: %w", err)
	}

	switch c.Output.Format {
	case "gray", "color", "both":
	default:
		return fmt.Errorf("output: format must be gray, color or both, got %q", c.Output.Format)
	}

	if c.Batch.Workers < 0 {
		return fmt.Errorf("batch: workers must be non-negative, got %d", c.Batch.Workers)
	}

	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server: port must be in [1,65535], got %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB < 1 {
		return fmt.Errorf("server: max upload must be at least 1 MB, got %d", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec < 1 {
		return fmt.Errorf("server: timeout must be at least 1s, got %d", c.Server.TimeoutSec)
	}
	if c.Server.MaxConcurrent < 0 {
		return fmt.Errorf("server: max concurrent must be non-negative, got %d", c.Server.MaxConcurrent)
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging: level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging: format must be text or json, got %q", c.Logging.Format)
	}

	return nil
}
