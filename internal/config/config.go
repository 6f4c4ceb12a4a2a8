// Package config provides configuration management for assetmin using Viper
// for flexible loading from files, environment variables and command-line
// flags.
//
// The merge flags (marker delimiters, URL template, stamp length, root path)
// are exposed as an immutable Flags value. A directive scanner receives a
// copy at construction and never observes later changes.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Default flag values.
const (
	DefaultLeftFlag   = "<!--min["
	DefaultRightFlag  = "]-->"
	DefaultHashLength = 8
	DefaultURLFunc    = "renderUrl"
	DefaultNewPath    = "renderUrl('{$base}-{$stamp}{$ext}')"
	DefaultRootPath   = "."
	DefaultAlgorithm  = "md5"
)

type Config struct {
	Merge Flags       `mapstructure:"merge" yaml:"merge"`
	Build BuildConfig `mapstructure:"build" yaml:"build"`
	Log   LogConfig   `mapstructure:"log" yaml:"log"`
}

// Flags controls marker recognition, URL templating and where merged
// bundles and referenced assets are resolved.
type Flags struct {
	LeftFlag   string `mapstructure:"left_flag" yaml:"left_flag"`
	RightFlag  string `mapstructure:"right_flag" yaml:"right_flag"`
	HashLength int    `mapstructure:"hash_length" yaml:"hash_length"`
	NewPath    string `mapstructure:"new_path" yaml:"new_path"`
	RootPath   string `mapstructure:"root_path" yaml:"root_path"`
	URLFunc    string `mapstructure:"url_func" yaml:"url_func"`
	Algorithm  string `mapstructure:"algorithm" yaml:"algorithm"`
}

type BuildConfig struct {
	Paths      []string      `mapstructure:"paths" yaml:"paths"`
	Extensions []string      `mapstructure:"extensions" yaml:"extensions"`
	Exclude    []string      `mapstructure:"exclude" yaml:"exclude"`
	OutputDir  string        `mapstructure:"output_dir" yaml:"output_dir"`
	Debounce   time.Duration `mapstructure:"debounce" yaml:"debounce"`

	// Concurrency is the number of templates processed at once.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DefaultFlags returns the built-in flag table.
func DefaultFlags() Flags {
	return Flags{
		LeftFlag:   DefaultLeftFlag,
		RightFlag:  DefaultRightFlag,
		HashLength: DefaultHashLength,
		NewPath:    DefaultNewPath,
		RootPath:   DefaultRootPath,
		URLFunc:    DefaultURLFunc,
		Algorithm:  DefaultAlgorithm,
	}
}

// WithOverrides returns a copy of f where every non-zero field of o replaces
// the corresponding field of f.
func (f Flags) WithOverrides(o Flags) Flags {
	if o.LeftFlag != "" {
		f.LeftFlag = o.LeftFlag
	}
	if o.RightFlag != "" {
		f.RightFlag = o.RightFlag
	}
	if o.HashLength != 0 {
		f.HashLength = o.HashLength
	}
	if o.NewPath != "" {
		f.NewPath = o.NewPath
	}
	if o.RootPath != "" {
		f.RootPath = o.RootPath
	}
	if o.URLFunc != "" {
		f.URLFunc = o.URLFunc
	}
	if o.Algorithm != "" {
		f.Algorithm = o.Algorithm
	}

	return f
}

// Load reads the configuration from the global viper instance.
func Load() (*Config, error) {
	return LoadFrom(viper.GetViper())
}

// LoadFrom reads the configuration from v, applies defaults and validates
// the result.
func LoadFrom(v *viper.Viper) (*Config, error) {
	config, err := Decode(v)
	if err != nil {
		return nil, err
	}

	result := Validate(config)
	if result.HasErrors() {
		return nil, fmt.Errorf("invalid configuration: %w", result.Err())
	}

	return config, nil
}

// Decode reads the configuration from v and applies defaults without
// validating it.
func Decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	config.Merge = DefaultFlags().WithOverrides(config.Merge)

	// Handle slices set via viper (workaround for viper slice handling)
	if v.IsSet("build.paths") && len(config.Build.Paths) == 0 {
		config.Build.Paths = v.GetStringSlice("build.paths")
	}
	if v.IsSet("build.extensions") && len(config.Build.Extensions) == 0 {
		config.Build.Extensions = v.GetStringSlice("build.extensions")
	}
	if v.IsSet("build.exclude") && len(config.Build.Exclude) == 0 {
		config.Build.Exclude = v.GetStringSlice("build.exclude")
	}

	if len(config.Build.Paths) == 0 {
		config.Build.Paths = []string{"."}
	}
	if len(config.Build.Extensions) == 0 {
		config.Build.Extensions = []string{".html", ".htm", ".phtml"}
	}
	if len(config.Build.Exclude) == 0 {
		config.Build.Exclude = []string{"node_modules", ".git", "*.bak"}
	}
	if config.Build.Debounce == 0 {
		config.Build.Debounce = 300 * time.Millisecond
	}
	if config.Build.Concurrency == 0 {
		config.Build.Concurrency = 1
	}

	if config.Log.Level == "" {
		config.Log.Level = "info"
	}
	if config.Log.Format == "" {
		config.Log.Format = "text"
	}

	return &config, nil
}
