// Package config binds the analysis pipeline's configuration options to
// flags, environment variables, and an optional config file using
// github.com/spf13/viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds the pipeline's tunable options, each with a sensible
// default so an analysis run never requires a config file.
type Config struct {
	Verbose               bool     `mapstructure:"verbose"`
	IncludeTestFiles       bool     `mapstructure:"include_test_files"`
	MinCoverageThreshold   float64  `mapstructure:"min_coverage_threshold"`
	FailOnLowCoverage      bool     `mapstructure:"fail_on_low_coverage"`
	ExcludePatterns        []string `mapstructure:"exclude_patterns"`
	SimulateCoverage       bool     `mapstructure:"simulate_coverage"`
	TestArgs               []string `mapstructure:"test_args"`
	FailOnError            bool     `mapstructure:"fail_on_error"`
	TimeoutSeconds         int      `mapstructure:"timeout_seconds"`
	MaxAllowedComplexity   int      `mapstructure:"max_allowed_complexity"`
	IncludeCognitive       bool     `mapstructure:"include_cognitive"`
	FailOnHighComplexity   bool     `mapstructure:"fail_on_high_complexity"`
	ExportPath             string   `mapstructure:"export_path"`
}

// Defaults returns a Config populated with the pipeline's documented defaults.
func Defaults() Config {
	return Config{
		Verbose:              false,
		IncludeTestFiles:     false,
		MinCoverageThreshold: 80.0,
		FailOnLowCoverage:    false,
		ExcludePatterns:      []string{"*_test.go", "vendor/*"},
		SimulateCoverage:     false,
		TestArgs:             nil,
		FailOnError:          false,
		TimeoutSeconds:       30,
		MaxAllowedComplexity: 10,
		IncludeCognitive:     true,
		FailOnHighComplexity: false,
	}
}

// Load builds a Config from defaults, an optional config file (searched
// at configPath, or "./goflow.yaml" / "$HOME/goflow.yaml" if empty), and
// environment variables prefixed GOFLOW_ (e.g. GOFLOW_MIN_COVERAGE_THRESHOLD).
// Values already bound to cobra flags by the caller take precedence because
// viper.BindPFlag is expected to have been called before Load.
func Load(v *viper.Viper, configPath string) (Config, error) {
	def := Defaults()
	v.SetDefault("verbose", def.Verbose)
	v.SetDefault("include_test_files", def.IncludeTestFiles)
	v.SetDefault("min_coverage_threshold", def.MinCoverageThreshold)
	v.SetDefault("fail_on_low_coverage", def.FailOnLowCoverage)
	v.SetDefault("exclude_patterns", def.ExcludePatterns)
	v.SetDefault("simulate_coverage", def.SimulateCoverage)
	v.SetDefault("test_args", def.TestArgs)
	v.SetDefault("fail_on_error", def.FailOnError)
	v.SetDefault("timeout_seconds", def.TimeoutSeconds)
	v.SetDefault("max_allowed_complexity", def.MaxAllowedComplexity)
	v.SetDefault("include_cognitive", def.IncludeCognitive)
	v.SetDefault("fail_on_high_complexity", def.FailOnHighComplexity)

	v.SetEnvPrefix("GOFLOW")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", configPath, err)
		}
	} else {
		v.SetConfigName("goflow")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
