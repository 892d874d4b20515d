package config

import (
	"testing"

	"github.com/MeKo-Tech/parallax/internal/adcensus"
	"gopkg.in/yaml.v3"
)

// TestDefaultConfig verifies that DefaultConfig returns expected values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	// Matcher defaults
	if cfg.Matcher.MinDisparity != 0 {
		t.Errorf("Expected min_disparity 0, got %d", cfg.Matcher.MinDisparity)
	}
	if cfg.Matcher.MaxDisparity != 64 {
		t.Errorf("Expected max_disparity 64, got %d", cfg.Matcher.MaxDisparity)
	}
	if cfg.Matcher.LambdaAD != 10 {
		t.Errorf("Expected lambda_ad 10, got %f", cfg.Matcher.LambdaAD)
	}
	if cfg.Matcher.LambdaCensus != 30 {
		t.Errorf("Expected lambda_census 30, got %f", cfg.Matcher.LambdaCensus)
	}
	if cfg.Matcher.CrossL1 != 34 || cfg.Matcher.CrossL2 != 17 {
		t.Errorf("Expected cross arms 34/17, got %d/%d", cfg.Matcher.CrossL1, cfg.Matcher.CrossL2)
	}
	if cfg.Matcher.CrossT1 != 20 || cfg.Matcher.CrossT2 != 6 {
		t.Errorf("Expected cross thresholds 20/6, got %d/%d", cfg.Matcher.CrossT1, cfg.Matcher.CrossT2)
	}
	if cfg.Matcher.P1 != 1.0 || cfg.Matcher.P2 != 3.0 {
		t.Errorf("Expected penalties 1/3, got %f/%f", cfg.Matcher.P1, cfg.Matcher.P2)
	}
	if !cfg.Matcher.LRCheck {
		t.Error("Expected lr_check to be enabled")
	}
	if !cfg.Matcher.Filling {
		t.Error("Expected filling to be enabled")
	}
	if cfg.Matcher.DiscontinuityAdjustment {
		t.Error("Expected discontinuity_adjustment to be disabled")
	}
	if cfg.Matcher.PathCount != 4 {
		t.Errorf("Expected path_count 4, got %d", cfg.Matcher.PathCount)
	}
	if cfg.Matcher.MaxMemoryMB != 0 {
		t.Errorf("Expected max_memory_mb 0 (unlimited), got %d", cfg.Matcher.MaxMemoryMB)
	}

	// Output defaults
	if cfg.Output.Format != "gray" {
		t.Errorf("Expected output format 'gray', got %s", cfg.Output.Format)
	}
	if cfg.Output.Directory != "output" {
		t.Errorf("Expected output directory 'output', got %s", cfg.Output.Directory)
	}
	if cfg.Output.Stats {
		t.Error("Expected stats to be disabled by default")
	}

	// Batch defaults
	if cfg.Batch.Workers != 0 {
		t.Errorf("Expected batch workers 0 (auto), got %d", cfg.Batch.Workers)
	}
	if !cfg.Batch.ContinueOnError {
		t.Error("Expected continue_on_error to be true")
	}
	if cfg.Batch.Recursive {
		t.Error("Expected recursive to be false")
	}

	// Server defaults
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected server port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadMB != 50 {
		t.Errorf("Expected max upload 50 MB, got %d", cfg.Server.MaxUploadMB)
	}
	if !cfg.Server.CORSEnabled {
		t.Error("Expected CORS to be enabled by default")
	}
	if cfg.Server.TimeoutSec != 120 {
		t.Errorf("Expected timeout 120s, got %d", cfg.Server.TimeoutSec)
	}
	if cfg.Server.MaxConcurrent != 0 {
		t.Errorf("Expected max concurrent 0 (server default), got %d", cfg.Server.MaxConcurrent)
	}

	// Logging defaults
	if cfg.Logging.Level != "info" {
		t.Errorf("Expected log level 'info', got %s", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" {
		t.Errorf("Expected log format 'text', got %s", cfg.Logging.Format)
	}
}

// TestDefaultConfigIsValid ensures the defaults pass validation.
func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig().Validate() unexpected error: %v", err)
	}
}

// TestToOptionsMatchesEngineDefaults verifies the round trip through the
// serializable form reproduces the engine defaults.
func TestToOptionsMatchesEngineDefaults(t *testing.T) {
	opts := DefaultConfig().Matcher.ToOptions()
	want := adcensus.DefaultOptions()

	if opts.MinDisparity != want.MinDisparity {
		t.Errorf("Expected MinDisparity %d, got %d", want.MinDisparity, opts.MinDisparity)
	}
	if opts.MaxDisparity != want.MaxDisparity {
		t.Errorf("Expected MaxDisparity %d, got %d", want.MaxDisparity, opts.MaxDisparity)
	}
	if opts.LambdaAD != want.LambdaAD {
		t.Errorf("Expected LambdaAD %f, got %f", want.LambdaAD, opts.LambdaAD)
	}
	if opts.LambdaCensus != want.LambdaCensus {
		t.Errorf("Expected LambdaCensus %f, got %f", want.LambdaCensus, opts.LambdaCensus)
	}
	if opts.CrossL1 != want.CrossL1 || opts.CrossL2 != want.CrossL2 {
		t.Errorf("Expected cross arms %d/%d, got %d/%d", want.CrossL1, want.CrossL2, opts.CrossL1, opts.CrossL2)
	}
	if opts.CrossT1 != want.CrossT1 || opts.CrossT2 != want.CrossT2 {
		t.Errorf("Expected cross thresholds %d/%d, got %d/%d", want.CrossT1, want.CrossT2, opts.CrossT1, opts.CrossT2)
	}
	if opts.P1 != want.P1 || opts.P2 != want.P2 {
		t.Errorf("Expected penalties %f/%f, got %f/%f", want.P1, want.P2, opts.P1, opts.P2)
	}
	if opts.TSO != want.TSO {
		t.Errorf("Expected TSO %d, got %d", want.TSO, opts.TSO)
	}
	if opts.IRVThresholdSize != want.IRVThresholdSize {
		t.Errorf("Expected IRVThresholdSize %d, got %d", want.IRVThresholdSize, opts.IRVThresholdSize)
	}
	if opts.IRVThresholdRatio != want.IRVThresholdRatio {
		t.Errorf("Expected IRVThresholdRatio %f, got %f", want.IRVThresholdRatio, opts.IRVThresholdRatio)
	}
	if opts.LRCheckThreshold != want.LRCheckThreshold {
		t.Errorf("Expected LRCheckThreshold %f, got %f", want.LRCheckThreshold, opts.LRCheckThreshold)
	}
	if opts.DoLRCheck != want.DoLRCheck || opts.DoFilling != want.DoFilling {
		t.Errorf("Expected lr_check/filling %v/%v, got %v/%v",
			want.DoLRCheck, want.DoFilling, opts.DoLRCheck, opts.DoFilling)
	}
	if opts.DoDiscontinuityAdjustment != want.DoDiscontinuityAdjustment {
		t.Errorf("Expected discontinuity adjustment %v, got %v",
			want.DoDiscontinuityAdjustment, opts.DoDiscontinuityAdjustment)
	}
	if opts.PathCount != want.PathCount {
		t.Errorf("Expected PathCount %d, got %d", want.PathCount, opts.PathCount)
	}
	if opts.Workers != want.Workers {
		t.Errorf("Expected Workers %d, got %d", want.Workers, opts.Workers)
	}
	if opts.MaxMemoryBytes != want.MaxMemoryBytes {
		t.Errorf("Expected MaxMemoryBytes %d, got %d", want.MaxMemoryBytes, opts.MaxMemoryBytes)
	}
}

// TestToOptionsMemoryConversion verifies MB to byte conversion.
func TestToOptionsMemoryConversion(t *testing.T) {
	m := DefaultConfig().Matcher
	m.MaxMemoryMB = 512

	opts := m.ToOptions()
	if opts.MaxMemoryBytes != 512<<20 {
		t.Errorf("Expected %d bytes, got %d", uint64(512)<<20, opts.MaxMemoryBytes)
	}
}

// TestValidateRejectsBadValues exercises the validation failure paths.
func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative max memory", func(c *Config) { c.Matcher.MaxMemoryMB = -1 }},
		{"inverted disparity range", func(c *Config) {
			c.Matcher.MinDisparity = 10
			c.Matcher.MaxDisparity = 5
		}},
		{"zero lambda", func(c *Config) { c.Matcher.LambdaAD = 0 }},
		{"bad path count", func(c *Config) { c.Matcher.PathCount = 6 }},
		{"negative matcher workers", func(c *Config) { c.Matcher.Workers = -2 }},
		{"unknown output format", func(c *Config) { c.Output.Format = "tiff" }},
		{"negative batch workers", func(c *Config) { c.Batch.Workers = -1 }},
		{"port zero", func(c *Config) { c.Server.Port = 0 }},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }},
		{"zero upload limit", func(c *Config) { c.Server.MaxUploadMB = 0 }},
		{"zero timeout", func(c *Config) { c.Server.TimeoutSec = 0 }},
		{"negative max concurrent", func(c *Config) { c.Server.MaxConcurrent = -1 }},
		{"unknown log level", func(c *Config) { c.Logging.Level = "trace" }},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error, got nil")
			}
		})
	}
}

// TestConfigYAMLRoundTrip verifies the yaml tags survive a marshal cycle.
func TestConfigYAMLRoundTrip(t *testing.T) {
	original := DefaultConfig()
	original.Matcher.MaxDisparity = 32
	original.Output.Format = "both"
	original.Server.Port = 9090

	data, err := yaml.Marshal(original)
	if err != nil {
		t.Fatalf("yaml.Marshal() error: %v", err)
	}

	var decoded Config
	if err := yaml.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("yaml.Unmarshal() error: %v", err)
	}

	if decoded.Matcher.MaxDisparity != 32 {
		t.Errorf("Expected max_disparity 32 after round trip, got %d", decoded.Matcher.MaxDisparity)
	}
	if decoded.Matcher.CrossL1 != original.Matcher.CrossL1 {
		t.Errorf("Expected cross_l1 %d after round trip, got %d", original.Matcher.CrossL1, decoded.Matcher.CrossL1)
	}
	if decoded.Output.Format != "both" {
		t.Errorf("Expected output format 'both' after round trip, got %s", decoded.Output.Format)
	}
	if decoded.Server.Port != 9090 {
		t.Errorf("Expected port 9090 after round trip, got %d", decoded.Server.Port)
	}
	if decoded.Logging.Level != "info" {
		t.Errorf("Expected log level 'info' after round trip, got %s", decoded.Logging.Level)
	}
}
