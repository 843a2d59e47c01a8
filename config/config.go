// Package config loads spritesheet settings from a toml file and the
// environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Sheet   SheetConfig
	Preview PreviewConfig
	Load    LoadConfig
	Cache   CacheConfig
}

// SheetConfig holds compositing settings. A Columns value of zero picks the
// column count from the number of frames.
type SheetConfig struct {
	Columns      int
	Scale        float64
	Interpolator string
}

// PreviewConfig holds edit and export preview settings.
type PreviewConfig struct {
	ViewportWidth int `mapstructure:"viewport_width"`
}

// LoadConfig holds frame decoding settings.
type LoadConfig struct {
	Workers int
}

// CacheConfig holds decoded frame cache settings. An empty Path disables the
// persistent cache.
type CacheConfig struct {
	Path       string
	Expiration time.Duration
}

// Load reads configuration from file and env. Env var overrides use prefix
// SPRITESHEET_. If file is empty, $SPRITESHEET_CONFIG is tried, then
// ~/.config/spritesheet/config.toml.
func Load(file string) (Config, error) {
	v := viper.New()

	v.SetDefault("sheet.columns", 0)
	v.SetDefault("sheet.scale", 1.0)
	v.SetDefault("sheet.interpolator", "nearest")
	v.SetDefault("preview.viewport_width", 640)
	v.SetDefault("load.workers", runtime.NumCPU())
	v.SetDefault("cache.path", "")
	v.SetDefault("cache.expiration", 30*time.Minute)

	v.SetConfigType("toml")

	if file == "" {
		file = os.Getenv("SPRITESHEET_CONFIG")
	}
	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "spritesheet"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("SPRITESHEET")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		// An explicitly named file must exist
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if c.Sheet.Columns < 0 {
		return Config{}, fmt.Errorf("invalid sheet.columns %d", c.Sheet.Columns)
	}
	if !(c.Sheet.Scale > 0) {
		return Config{}, fmt.Errorf("invalid sheet.scale %v", c.Sheet.Scale)
	}
	if c.Load.Workers < 1 {
		c.Load.Workers = 1
	}

	return c, nil
}
