package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "parallax"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "PARALLAX"
)

// Loader handles loading configuration from files, environment variables
// and defaults.
type Loader struct {
	v *viper.Viper
}

// NewLoader creates a loader on the global viper instance so cobra flag
// bindings resolve against the same state.
func NewLoader() *Loader {
	return &Loader{v: viper.GetViper()}
}

// Load resolves the configuration from the search paths, the environment
// and the defaults, then validates it. A missing config file is fine; any
// other read error is not.
func (l *Loader) Load() (*Config, error) {
	l.v.SetConfigName(ConfigFileName)
	l.v.SetConfigType("yaml")
	l.addConfigPaths()
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return l.unmarshalAndValidate()
}

// LoadWithFile loads configuration from a specific file path, falling back
// to the regular search when path is empty.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	if configFile == "" {
		return l.Load()
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configFile)
	}

	l.v.SetConfigFile(configFile)
	l.setupEnvironmentVariables()
	l.setDefaults()

	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
	}

	return l.unmarshalAndValidate()
}

func (l *Loader) unmarshalAndValidate() (*Config, error) {
	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return &config, nil
}

// Set sets a value in the configuration, overriding all other sources.
func (l *Loader) Set(key string, value interface{}) {
	l.v.Set(key, value)
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetResolvedConfig returns the fully resolved settings for inspection.
func (l *Loader) GetResolvedConfig() map[string]interface{} {
	return l.v.AllSettings()
}

// WriteConfigToFile writes the current configuration to a file.
func (l *Loader) WriteConfigToFile(filename string) error {
	return l.v.WriteConfigAs(filename)
}

// GenerateDefaultConfigFile writes a config file holding the defaults.
func GenerateDefaultConfigFile(filename string) error {
	loader := &Loader{v: viper.New()}
	loader.setDefaults()

	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}

	return loader.WriteConfigToFile(filename)
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
		paths = append(paths, filepath.Join(home, ".config", "parallax"))
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "parallax"))
	}

	paths = append(paths, "/etc/parallax")

	return paths
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	l.v.AddConfigPath(".")

	if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(home)
	}

	l.v.AddConfigPath("/etc/parallax")

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		l.v.AddConfigPath(filepath.Join(configDir, "parallax"))
	} else if home, err := os.UserHomeDir(); err == nil {
		l.v.AddConfigPath(filepath.Join(home, ".config", "parallax"))
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("matcher.min_disparity", defaults.Matcher.MinDisparity)
	l.v.SetDefault("matcher.max_disparity", defaults.Matcher.MaxDisparity)
	l.v.SetDefault("matcher.lambda_ad", defaults.Matcher.LambdaAD)
	l.v.SetDefault("matcher.lambda_census", defaults.Matcher.LambdaCensus)
	l.v.SetDefault("matcher.cross_l1", defaults.Matcher.CrossL1)
	l.v.SetDefault("matcher.cross_l2", defaults.Matcher.CrossL2)
	l.v.SetDefault("matcher.cross_t1", defaults.Matcher.CrossT1)
	l.v.SetDefault("matcher.cross_t2", defaults.Matcher.CrossT2)
	l.v.SetDefault("matcher.p1", defaults.Matcher.P1)
	l.v.SetDefault("matcher.p2", defaults.Matcher.P2)
	l.v.SetDefault("matcher.tso", defaults.Matcher.TSO)
	l.v.SetDefault("matcher.irv_threshold_size", defaults.Matcher.IRVThresholdSize)
	l.v.SetDefault("matcher.irv_threshold_ratio", defaults.Matcher.IRVThresholdRatio)
	l.v.SetDefault("matcher.lr_check_threshold", defaults.Matcher.LRCheckThreshold)
	l.v.SetDefault("matcher.lr_check", defaults.Matcher.LRCheck)
	l.v.SetDefault("matcher.filling", defaults.Matcher.Filling)
	l.v.SetDefault("matcher.discontinuity_adjustment", defaults.Matcher.DiscontinuityAdjustment)
	l.v.SetDefault("matcher.path_count", defaults.Matcher.PathCount)
	l.v.SetDefault("matcher.workers", defaults.Matcher.Workers)
	l.v.SetDefault("matcher.max_memory_mb", defaults.Matcher.MaxMemoryMB)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.directory", defaults.Output.Directory)
	l.v.SetDefault("output.stats", defaults.Output.Stats)

	l.v.SetDefault("batch.workers", defaults.Batch.Workers)
	l.v.SetDefault("batch.continue_on_error", defaults.Batch.ContinueOnError)
	l.v.SetDefault("batch.recursive", defaults.Batch.Recursive)

	l.v.SetDefault("server.host", defaults.Server.Host)
	l.v.SetDefault("server.port", defaults.Server.Port)
	l.v.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)
	l.v.SetDefault("server.cors_enabled", defaults.Server.CORSEnabled)
	l.v.SetDefault("server.timeout_sec", defaults.Server.TimeoutSec)
	l.v.SetDefault("server.max_concurrent", defaults.Server.MaxConcurrent)

	l.v.SetDefault("logging.level", defaults.Logging.Level)
	l.v.SetDefault("logging.format", defaults.Logging.Format)
}
